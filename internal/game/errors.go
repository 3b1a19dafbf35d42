package game

import "fmt"

// RuleError is a rejected placement or shot. Code is the name reported on the
// wire; two RuleErrors match under errors.Is when their codes match.
type RuleError struct {
	Code   string
	Detail string
}

func (e *RuleError) Error() string {
	if e.Detail == "" {
		return e.Code
	}
	return e.Code + ": " + e.Detail
}

// Is lets a detailed error match its sentinel.
func (e *RuleError) Is(target error) bool {
	t, ok := target.(*RuleError)
	return ok && t.Code == e.Code
}

var (
	ErrDuplicateType      = &RuleError{Code: "DuplicateType"}
	ErrAdjacencyViolation = &RuleError{Code: "AdjacencyViolation"}
	ErrOverlap            = &RuleError{Code: "Overlap"}
	ErrOutOfBounds        = &RuleError{Code: "OutOfBounds"}
	ErrUnknownShipType    = &RuleError{Code: "UnknownShipType"}
	ErrInvalidShape       = &RuleError{Code: "InvalidShape"}
	ErrPlacementClosed    = &RuleError{Code: "PlacementClosed"}
	ErrNotYourTurn        = &RuleError{Code: "NotYourTurn"}
	ErrSetupIncomplete    = &RuleError{Code: "SetupIncomplete"}
	ErrAlreadyShot        = &RuleError{Code: "AlreadyShot"}
	ErrGameOver           = &RuleError{Code: "GameOver"}
	ErrUnknownPlayer      = &RuleError{Code: "UnknownPlayer"}
)

func ruleErr(base *RuleError, format string, args ...any) error {
	return &RuleError{Code: base.Code, Detail: fmt.Sprintf(format, args...)}
}
