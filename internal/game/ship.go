package game

import (
	"regexp"
	"strings"
)

// ShipType names one class of the declared fleet.
type ShipType string

const (
	Carrier    ShipType = "Carrier"
	Battleship ShipType = "Battleship"
	Cruiser    ShipType = "Cruiser"
	Submarine  ShipType = "Submarine"
	Destroyer  ShipType = "Destroyer"
)

// FleetTypes is the declared fleet, in the order the bot and the help text use.
var FleetTypes = []ShipType{Carrier, Battleship, Cruiser, Submarine, Destroyer}

// FleetSize is the number of ships each player must place before play starts.
const FleetSize = 5

var shipSizes = map[ShipType]int{
	Carrier:    5,
	Battleship: 4,
	Cruiser:    3,
	Submarine:  3,
	Destroyer:  2,
}

var sizeSuffix = regexp.MustCompile(`\(\d+\)$`)

// NormalizeShipType strips a trailing size annotation such as "(4)" and maps
// the name case-insensitively onto a declared type. Unknown names come back
// trimmed but otherwise untouched.
func NormalizeShipType(raw string) ShipType {
	name := strings.TrimSpace(sizeSuffix.ReplaceAllString(strings.TrimSpace(raw), ""))
	for _, t := range FleetTypes {
		if strings.EqualFold(string(t), name) {
			return t
		}
	}
	return ShipType(name)
}

// Size reports how many cells the type occupies and whether it is declared.
func (t ShipType) Size() (int, bool) {
	n, ok := shipSizes[t]
	return n, ok
}

// Ship is an immutable set of occupied cells plus the cells hit so far.
type Ship struct {
	Type  ShipType
	cells []Coord
	occ   map[Coord]struct{}
	hits  map[Coord]struct{}
}

// NewShip builds a ship over the given cells.
func NewShip(t ShipType, cells []Coord) *Ship {
	s := &Ship{
		Type:  t,
		cells: append([]Coord(nil), cells...),
		occ:   make(map[Coord]struct{}, len(cells)),
		hits:  make(map[Coord]struct{}, len(cells)),
	}
	for _, c := range cells {
		s.occ[c] = struct{}{}
	}
	return s
}

// Occupies reports whether c is part of the ship.
func (s *Ship) Occupies(c Coord) bool {
	_, ok := s.occ[c]
	return ok
}

// RegisterHit records a hit on c. It returns false when c is not part of the ship.
func (s *Ship) RegisterHit(c Coord) bool {
	if !s.Occupies(c) {
		return false
	}
	s.hits[c] = struct{}{}
	return true
}

// IsSunk reports whether every cell of the ship has been hit.
func (s *Ship) IsSunk() bool {
	return len(s.hits) == len(s.occ)
}

// Cells returns the ship's cells in placement order.
func (s *Ship) Cells() []Coord {
	return append([]Coord(nil), s.cells...)
}

// straightLine reports whether cells form a gap-free horizontal or vertical
// run of exactly size cells with no repeats.
func straightLine(cells []Coord, size int) bool {
	if len(cells) != size || size == 0 {
		return false
	}
	minX, maxX, minY, maxY := cells[0].X, cells[0].X, cells[0].Y, cells[0].Y
	seen := make(map[Coord]struct{}, len(cells))
	for _, c := range cells {
		if _, dup := seen[c]; dup {
			return false
		}
		seen[c] = struct{}{}
		minX, maxX = min(minX, c.X), max(maxX, c.X)
		minY, maxY = min(minY, c.Y), max(maxY, c.Y)
	}
	switch {
	case minX == maxX:
		return maxY-minY+1 == size
	case minY == maxY:
		return maxX-minX+1 == size
	default:
		return false
	}
}
