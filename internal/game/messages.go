package game

import (
	"strconv"
	"strings"
)

// Lines pushed to players while a game is running.
const (
	MsgGameStart         = "GAME START"
	MsgYourTurn          = "Your turn"
	MsgOpponentsTurn     = "Opponent's turn"
	MsgYouWon            = "You won!"
	MsgYouLost           = "You lost!"
	MsgOpponentForfeited = "Your opponent forfeited! You win!"
	MsgYouForfeited      = "You forfeited the game!"
)

func hitLine(c Coord) string  { return "HIT:" + c.String() }
func missLine(c Coord) string { return "MISS:" + c.String() }

func sunkLine(cells []Coord) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = c.String()
	}
	return "SUNK:" + strings.Join(parts, " ")
}

func placedLine(t ShipType, cells []Coord, placed int) string {
	var b strings.Builder
	b.WriteString("SUCCESS: PLACED ")
	b.WriteString(string(t))
	for _, c := range cells {
		b.WriteByte(' ')
		b.WriteString(c.String())
	}
	b.WriteString(" (")
	b.WriteString(strconv.Itoa(placed))
	b.WriteString("/")
	b.WriteString(strconv.Itoa(FleetSize))
	b.WriteString(")")
	return b.String()
}

