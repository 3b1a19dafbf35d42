// Package proto is the line protocol spoken between battleship clients and
// the server: one command or notification per newline-terminated line.
package proto

import (
	"strconv"
	"strings"

	"ctchen222/Battleship/internal/game"
	"ctchen222/Battleship/internal/validator"
)

// Kind identifies a client command.
type Kind string

const (
	KindLogin Kind = "LOGIN"
	KindReady Kind = "READY"
	KindPlace Kind = "PLACE"
	KindFire  Kind = "FIRE"
	KindExit  Kind = "EXIT"
	KindCheck Kind = "CHECK"
	KindBoard Kind = "BOARD"
)

// Command is one parsed client line. Exactly one of Login, Place or Fire is
// set, matching Kind; the other kinds carry no arguments.
type Command struct {
	Kind  Kind
	Login *LoginCommand
	Place *PlaceCommand
	Fire  *FireCommand
}

// LoginCommand claims a username, optionally proving it with a token issued
// by the HTTP API.
type LoginCommand struct {
	Username string `validate:"required,username"`
	Token    string `validate:"omitempty,jwt"`
}

// PlaceCommand places one ship.
type PlaceCommand struct {
	ShipType string       `validate:"required"`
	Cells    []game.Coord `validate:"required,min=1,max=5"`
}

// FireCommand fires one shot.
type FireCommand struct {
	Target game.Coord
}

// ParseError is a malformed line. It is reported to the sender and never
// ends the connection.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string { return e.Msg }

func parseErr(msg string) error { return &ParseError{Msg: msg} }

// Parse decodes one client line. Keywords are case-insensitive and LOGIN
// accepts both "LOGIN: name" and "LOGIN name".
func Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, parseErr("Empty command")
	}

	fields := strings.Fields(line)
	keyword := strings.ToUpper(fields[0])
	args := fields[1:]

	// "LOGIN:alice" and "LOGIN: alice" both reach here.
	if strings.HasPrefix(keyword, string(KindLogin)+":") {
		if rest := fields[0][len(KindLogin)+1:]; rest != "" {
			args = append([]string{rest}, args...)
		}
		keyword = string(KindLogin)
	}

	switch Kind(keyword) {
	case KindLogin:
		return parseLogin(args)
	case KindPlace:
		return parsePlace(args)
	case KindFire:
		return parseFire(args)
	case KindReady, KindExit, KindCheck, KindBoard:
		if len(args) != 0 {
			return Command{}, parseErr(keyword + " takes no arguments")
		}
		return Command{Kind: Kind(keyword)}, nil
	default:
		return Command{}, parseErr("Unknown command: " + fields[0])
	}
}

func parseLogin(args []string) (Command, error) {
	if len(args) < 1 || len(args) > 2 {
		return Command{}, parseErr("Usage: LOGIN: <username>")
	}
	login := &LoginCommand{Username: args[0]}
	if len(args) == 2 {
		login.Token = args[1]
	}
	if err := validator.GetValidator().Struct(login); err != nil {
		return Command{}, parseErr("Invalid username: use 1-32 letters, digits, '.', '_' or '-'")
	}
	return Command{Kind: KindLogin, Login: login}, nil
}

func parsePlace(args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, parseErr("Usage: PLACE <type> x,y [x,y ...]")
	}
	place := &PlaceCommand{ShipType: args[0]}
	for _, raw := range args[1:] {
		c, err := ParseCoord(raw)
		if err != nil {
			return Command{}, err
		}
		place.Cells = append(place.Cells, c)
	}
	if err := validator.GetValidator().Struct(place); err != nil {
		return Command{}, parseErr("Too many coordinates: a ship has at most 5 cells")
	}
	return Command{Kind: KindPlace, Place: place}, nil
}

func parseFire(args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, parseErr("Usage: FIRE x,y")
	}
	c, err := ParseCoord(args[0])
	if err != nil {
		return Command{}, err
	}
	return Command{Kind: KindFire, Fire: &FireCommand{Target: c}}, nil
}

// ParseCoord decodes "x,y". Range is not checked here; out-of-board
// coordinates are a rule violation, not a syntax error.
func ParseCoord(raw string) (game.Coord, error) {
	xs, ys, ok := strings.Cut(raw, ",")
	if !ok {
		return game.Coord{}, parseErr("Invalid coordinate '" + raw + "': expected x,y")
	}
	x, err := strconv.Atoi(xs)
	if err != nil {
		return game.Coord{}, parseErr("Invalid coordinate '" + raw + "': x is not a number")
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		return game.Coord{}, parseErr("Invalid coordinate '" + raw + "': y is not a number")
	}
	return game.Coord{X: x, Y: y}, nil
}
