package bot

import (
	"math/rand/v2"

	"ctchen222/Battleship/internal/game"
)

// Mark is what the bot knows about one enemy square.
type Mark uint8

const (
	Unknown Mark = iota
	Miss
	Hit
	Sunk
	// Clear squares border a sunk ship; the adjacency rule keeps them empty.
	Clear
)

// Tracking is the bot's view of the enemy board.
type Tracking [game.BoardSize][game.BoardSize]Mark

func (t *Tracking) at(c game.Coord) Mark { return t[c.X][c.Y] }

// Record stores the result of one of the bot's own shots.
func (t *Tracking) Record(c game.Coord, m Mark) {
	if c.InBounds() {
		t[c.X][c.Y] = m
	}
}

// RecordSunk marks a whole ship as sunk and clears its neighbourhood.
func (t *Tracking) RecordSunk(cells []game.Coord) {
	for _, c := range cells {
		t.Record(c, Sunk)
	}
	for _, c := range cells {
		for _, n := range neighbours8(c) {
			if t.at(n) == Unknown {
				t.Record(n, Clear)
			}
		}
	}
}

// Difficulty selects a targeting strategy.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// NextShot picks the next target. It reports false once no unknown square
// is left.
func NextShot(t *Tracking, difficulty Difficulty, rng *rand.Rand) (game.Coord, bool) {
	switch difficulty {
	case Easy:
		return randomUnknown(t, rng, false)
	case Medium:
		if c, ok := targetMove(t, rng, false); ok {
			return c, true
		}
		return randomUnknown(t, rng, false)
	default:
		if c, ok := targetMove(t, rng, true); ok {
			return c, true
		}
		if c, ok := randomUnknown(t, rng, true); ok {
			return c, true
		}
		return randomUnknown(t, rng, false)
	}
}

// randomUnknown picks any unknown square, restricted to one colour of the
// checkerboard when parity is set. Every ship is at least two long, so
// parity squares alone are enough to find them all.
func randomUnknown(t *Tracking, rng *rand.Rand, parity bool) (game.Coord, bool) {
	var candidates []game.Coord
	for x := range game.BoardSize {
		for y := range game.BoardSize {
			if t[x][y] != Unknown || (parity && (x+y)%2 != 0) {
				continue
			}
			candidates = append(candidates, game.Coord{X: x, Y: y})
		}
	}
	if len(candidates) == 0 {
		return game.Coord{}, false
	}
	return candidates[rng.IntN(len(candidates))], true
}

// targetMove finishes off a wounded ship. With two or more hits in a line
// the line is extended when inline is set; otherwise any unknown neighbour of
// a hit will do.
func targetMove(t *Tracking, rng *rand.Rand, inline bool) (game.Coord, bool) {
	var hits []game.Coord
	for x := range game.BoardSize {
		for y := range game.BoardSize {
			if t[x][y] == Hit {
				hits = append(hits, game.Coord{X: x, Y: y})
			}
		}
	}
	if len(hits) == 0 {
		return game.Coord{}, false
	}

	if inline {
		for _, h := range hits {
			for _, d := range []game.Coord{{X: 1}, {Y: 1}} {
				next := game.Coord{X: h.X + d.X, Y: h.Y + d.Y}
				if !next.InBounds() || t.at(next) != Hit {
					continue
				}
				// Walk both ways along the line to its first open end.
				for _, sign := range []int{1, -1} {
					c := h
					for c.InBounds() && t.at(c) == Hit {
						c = game.Coord{X: c.X + sign*d.X, Y: c.Y + sign*d.Y}
					}
					if c.InBounds() && t.at(c) == Unknown {
						return c, true
					}
				}
			}
		}
	}

	var candidates []game.Coord
	for _, h := range hits {
		for _, n := range neighbours4(h) {
			if t.at(n) == Unknown {
				candidates = append(candidates, n)
			}
		}
	}
	if len(candidates) == 0 {
		return game.Coord{}, false
	}
	return candidates[rng.IntN(len(candidates))], true
}

func neighbours4(c game.Coord) []game.Coord {
	out := make([]game.Coord, 0, 4)
	for _, d := range []game.Coord{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}} {
		n := game.Coord{X: c.X + d.X, Y: c.Y + d.Y}
		if n.InBounds() {
			out = append(out, n)
		}
	}
	return out
}

func neighbours8(c game.Coord) []game.Coord {
	out := make([]game.Coord, 0, 8)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			n := game.Coord{X: c.X + dx, Y: c.Y + dy}
			if (dx != 0 || dy != 0) && n.InBounds() {
				out = append(out, n)
			}
		}
	}
	return out
}

// Ship is one entry of a fleet layout.
type Ship struct {
	Type  game.ShipType
	Cells []game.Coord
}

// RandomFleet lays out the declared fleet at random, checked against the
// real placement rules.
func RandomFleet(rng *rand.Rand) []Ship {
	for {
		if fleet, ok := tryRandomFleet(rng); ok {
			return fleet
		}
	}
}

func tryRandomFleet(rng *rand.Rand) ([]Ship, bool) {
	probe := game.NewSession("bot", "probe")
	fleet := make([]Ship, 0, len(game.FleetTypes))
	for _, st := range game.FleetTypes {
		size, _ := st.Size()
		placed := false
		for attempt := 0; attempt < 200 && !placed; attempt++ {
			cells := randomLine(rng, size)
			if _, err := probe.PlaceShip("bot", string(st), cells); err == nil {
				fleet = append(fleet, Ship{Type: st, Cells: cells})
				placed = true
			}
		}
		if !placed {
			return nil, false
		}
	}
	return fleet, true
}

func randomLine(rng *rand.Rand, size int) []game.Coord {
	horizontal := rng.IntN(2) == 0
	span := game.BoardSize - size + 1
	x, y := rng.IntN(game.BoardSize), rng.IntN(game.BoardSize)
	if horizontal {
		x = rng.IntN(span)
	} else {
		y = rng.IntN(span)
	}
	cells := make([]game.Coord, size)
	for i := range cells {
		if horizontal {
			cells[i] = game.Coord{X: x + i, Y: y}
		} else {
			cells[i] = game.Coord{X: x, Y: y + i}
		}
	}
	return cells
}

// ColumnFleet is a fixed legal layout: every ship upright, two columns apart.
func ColumnFleet() []Ship {
	fleet := make([]Ship, 0, len(game.FleetTypes))
	for i, st := range game.FleetTypes {
		size, _ := st.Size()
		cells := make([]game.Coord, size)
		for y := range cells {
			cells[y] = game.Coord{X: i * 2, Y: y}
		}
		fleet = append(fleet, Ship{Type: st, Cells: cells})
	}
	return fleet
}
