package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShipSunkOnlyWhenEveryCellHit(t *testing.T) {
	s := NewShip(Cruiser, line(1, 1, 3))
	assert.False(t, s.IsSunk())

	assert.False(t, s.RegisterHit(Coord{X: 5, Y: 5}), "miss must not register")
	assert.True(t, s.RegisterHit(Coord{X: 1, Y: 1}))
	assert.True(t, s.RegisterHit(Coord{X: 1, Y: 1}), "repeat hit is idempotent")
	assert.True(t, s.RegisterHit(Coord{X: 1, Y: 2}))
	assert.False(t, s.IsSunk())

	assert.True(t, s.RegisterHit(Coord{X: 1, Y: 3}))
	assert.True(t, s.IsSunk())
}

func TestNormalizeShipType(t *testing.T) {
	tests := []struct {
		in   string
		want ShipType
	}{
		{"Battleship", Battleship},
		{"battleship", Battleship},
		{" CARRIER ", Carrier},
		{"Battleship(4)", Battleship},
		{"Destroyer (2)", Destroyer},
		{"Rowboat", ShipType("Rowboat")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeShipType(tt.in))
		})
	}
}

func TestStraightLine(t *testing.T) {
	tests := []struct {
		name  string
		cells []Coord
		size  int
		want  bool
	}{
		{"vertical", line(3, 2, 4), 4, true},
		{"horizontal", []Coord{{X: 2, Y: 7}, {X: 3, Y: 7}, {X: 4, Y: 7}}, 3, true},
		{"unordered horizontal", []Coord{{X: 4, Y: 7}, {X: 2, Y: 7}, {X: 3, Y: 7}}, 3, true},
		{"too short", line(3, 2, 2), 3, false},
		{"diagonal", []Coord{{X: 0, Y: 0}, {X: 1, Y: 1}}, 2, false},
		{"empty", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, straightLine(tt.cells, tt.size))
		})
	}
}

func TestBoardShootMarksCells(t *testing.T) {
	b := NewBoard()
	b.place(NewShip(Destroyer, line(0, 0, 2)))

	assert.Nil(t, b.shoot(Coord{X: 5, Y: 5}))
	assert.Equal(t, CellMiss, b.Cell(Coord{X: 5, Y: 5}))

	hit := b.shoot(Coord{X: 0, Y: 0})
	if assert.NotNil(t, hit) {
		assert.Equal(t, Destroyer, hit.Type)
	}
	assert.Equal(t, CellHit, b.Cell(Coord{X: 0, Y: 0}))
	assert.False(t, b.AllSunk())

	b.shoot(Coord{X: 0, Y: 1})
	assert.True(t, b.AllSunk())
}
