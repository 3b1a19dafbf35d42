package game

import (
	"bytes"
	"fmt"
	"strconv"
	"text/tabwriter"
)

// Cell is the state of one square of a board.
type Cell uint8

const (
	CellEmpty Cell = iota
	CellShip
	CellHit
	CellMiss
)

// Board boundaries
const (
	BoardSize = 10
	BorderMin = 0
	BorderMax = BoardSize - 1
)

// Coord is a zero-based (x, y) board position.
type Coord struct {
	X int
	Y int
}

// InBounds reports whether the coordinate lies on the board.
func (c Coord) InBounds() bool {
	return c.X >= BorderMin && c.X <= BorderMax && c.Y >= BorderMin && c.Y <= BorderMax
}

func (c Coord) String() string {
	return strconv.Itoa(c.X) + "," + strconv.Itoa(c.Y)
}

// Board is one player's grid together with the fleet placed on it.
type Board struct {
	grid  [BoardSize][BoardSize]Cell
	fleet []*Ship
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	return &Board{fleet: make([]*Ship, 0, FleetSize)}
}

// Cell returns the state at c. Out-of-bounds coordinates read as empty.
func (b *Board) Cell(c Coord) Cell {
	if !c.InBounds() {
		return CellEmpty
	}
	return b.grid[c.X][c.Y]
}

// Complete reports whether the whole declared fleet is on the board.
func (b *Board) Complete() bool {
	return len(b.fleet) == FleetSize
}

// AllSunk reports whether a non-empty fleet has been fully destroyed.
func (b *Board) AllSunk() bool {
	if len(b.fleet) == 0 {
		return false
	}
	for _, s := range b.fleet {
		if !s.IsSunk() {
			return false
		}
	}
	return true
}

func (b *Board) hasType(t ShipType) bool {
	for _, s := range b.fleet {
		if s.Type == t {
			return true
		}
	}
	return false
}

// touches reports whether any of cells is 8-directionally adjacent to a cell
// already occupied by one of this board's ships.
func (b *Board) touches(cells []Coord) bool {
	for _, c := range cells {
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				if dx == 0 && dy == 0 {
					continue
				}
				n := Coord{X: c.X + dx, Y: c.Y + dy}
				if !n.InBounds() {
					continue
				}
				if st := b.grid[n.X][n.Y]; st == CellShip || st == CellHit {
					return true
				}
			}
		}
	}
	return false
}

func (b *Board) place(s *Ship) {
	for _, c := range s.cells {
		b.grid[c.X][c.Y] = CellShip
	}
	b.fleet = append(b.fleet, s)
}

// shoot resolves a shot at c, which must be in bounds and not yet shot.
// It returns the ship that was hit, or nil on a miss.
func (b *Board) shoot(c Coord) *Ship {
	if b.grid[c.X][c.Y] != CellShip {
		b.grid[c.X][c.Y] = CellMiss
		return nil
	}
	b.grid[c.X][c.Y] = CellHit
	for _, s := range b.fleet {
		if s.RegisterHit(c) {
			return s
		}
	}
	return nil
}

// Render draws the board as a grid with x across and y down. When reveal is
// false un-hit ship cells are drawn as water, which is the opponent's view.
func (b *Board) Render(reveal bool) string {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 2, 0, 1, ' ', 0)

	fmt.Fprint(tw, "\t")
	for x := 0; x < BoardSize; x++ {
		fmt.Fprint(tw, strconv.Itoa(x)+"\t")
	}
	fmt.Fprint(tw, "\n")

	for y := 0; y < BoardSize; y++ {
		fmt.Fprint(tw, strconv.Itoa(y)+"\t")
		for x := 0; x < BoardSize; x++ {
			switch b.grid[x][y] {
			case CellShip:
				if reveal {
					fmt.Fprint(tw, "S\t")
				} else {
					fmt.Fprint(tw, "~\t")
				}
			case CellHit:
				fmt.Fprint(tw, "X\t")
			case CellMiss:
				fmt.Fprint(tw, "O\t")
			default:
				fmt.Fprint(tw, "~\t")
			}
		}
		fmt.Fprint(tw, "\n")
	}
	tw.Flush()
	return buf.String()
}
