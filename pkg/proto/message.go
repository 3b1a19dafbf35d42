package proto

import "fmt"

// Fixed server lines.
const (
	LineWelcome      = "INFO: Welcome to Battleships Server! Please log in using 'LOGIN: username'"
	LinePlacePrompt  = "INFO: Place your ships using 'PLACE <type> x,y ...' (5 ships total)"
	LineFleetReady   = "INFO: All ships placed! Waiting for opponent..."
	LineGoodbye      = "INFO: Game over. Goodbye."
	LineReady        = "SUCCESS: READY"
	LinePing         = "PING"
	LineOK           = "OK"
	LineUnauthorized = "ERROR: Unauthorized"
	LineLoginFirst   = "ERROR: Please log in first using 'LOGIN: username'"
	LineNotSeated    = "ERROR: Still waiting for an opponent"
	LineNotInGame    = "ERROR: You are not in a game"
	LineInactive     = "ERROR: Disconnected due to inactivity"
)

// LoginOK acknowledges a claimed username.
func LoginOK(username string) string {
	return fmt.Sprintf("SUCCESS: Welcome, %s! Waiting for an opponent...", username)
}

// Opponent announces the seated opponent.
func Opponent(username string) string { return "OPPONENT: " + username }

// Errorf formats an ERROR line.
func Errorf(format string, args ...any) string {
	return "ERROR: " + fmt.Sprintf(format, args...)
}

// Error renders err as an ERROR line. Rule violations already carry their
// code as the message prefix.
func Error(err error) string { return "ERROR: " + err.Error() }
