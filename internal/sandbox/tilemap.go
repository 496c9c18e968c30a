// Package sandbox is a small deterministic platformer world used to drive
// the pipeline without a live game: a tile map, simple physics, patrolling
// subjects and a fixed-rate runner.
package sandbox

import (
	"errors"
	"fmt"
	"math"

	"inputpipe/internal/geom"
	"inputpipe/internal/world"
)

// Tile is one map cell, written as its ASCII glyph.
type Tile byte

const (
	Air    Tile = '.'
	Solid  Tile = '#'
	Freeze Tile = 'F'
	Death  Tile = 'X'

	spawnGlyph  = 'S' // self spawn, air
	patrolGlyph = 'P' // patrol anchor, air
)

// lineStep is the sampling distance of Obstructed in world units.
const lineStep = 4.0

var ErrEmptyMap = errors.New("sandbox: empty map")

// DefaultLevel is a flat floor with a freeze column standing on it, a death
// pit beyond and two patrol anchors.
var DefaultLevel = []string{
	"##############################",
	"#............................#",
	"#.................F..........#",
	"#.....P...........F..P.......#",
	"#..S..............F..........#",
	"#######################XX#####",
	"#######################XX#####",
	"##############################",
}

// Map is an immutable tile grid. Points outside it are solid.
type Map struct {
	cols, rows int
	tiles      []Tile

	Spawn   geom.Vec2
	Anchors []geom.Vec2
}

var _ world.Terrain = (*Map)(nil)

// Parse builds a map from equal-length rows, top row first.
func Parse(rows []string) (*Map, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyMap
	}

	m := &Map{cols: len(rows[0]), rows: len(rows)}
	m.tiles = make([]Tile, 0, m.cols*m.rows)
	spawned := false

	for y, row := range rows {
		if len(row) != m.cols {
			return nil, fmt.Errorf("sandbox: row %d has %d tiles, want %d", y, len(row), m.cols)
		}
		for x := 0; x < len(row); x++ {
			c := row[x]
			switch c {
			case spawnGlyph:
				m.Spawn = tileCenter(x, y)
				spawned = true
				c = byte(Air)
			case patrolGlyph:
				m.Anchors = append(m.Anchors, tileCenter(x, y))
				c = byte(Air)
			case byte(Air), byte(Solid), byte(Freeze), byte(Death):
			default:
				return nil, fmt.Errorf("sandbox: unknown tile %q at %d,%d", c, x, y)
			}
			m.tiles = append(m.tiles, Tile(c))
		}
	}
	if !spawned {
		return nil, errors.New("sandbox: map has no spawn")
	}
	return m, nil
}

func tileCenter(x, y int) geom.Vec2 {
	return geom.V(float64(x)*world.TileSize+world.TileSize/2, float64(y)*world.TileSize+world.TileSize/2)
}

// Size is the map extent in world units.
func (m *Map) Size() (w, h float64) {
	return float64(m.cols * world.TileSize), float64(m.rows * world.TileSize)
}

// At returns the tile containing p.
func (m *Map) At(p geom.Vec2) Tile {
	x := int(math.Floor(p.X / world.TileSize))
	y := int(math.Floor(p.Y / world.TileSize))
	if x < 0 || y < 0 || x >= m.cols || y >= m.rows {
		return Solid
	}
	return m.tiles[y*m.cols+x]
}

func (m *Map) IsSolid(p geom.Vec2) bool { return m.At(p) == Solid }

func (m *Map) IsHazard(p geom.Vec2) bool {
	t := m.At(p)
	return t == Freeze || t == Death
}

// Obstructed samples the segment every few units, end point included.
func (m *Map) Obstructed(a, b geom.Vec2) bool {
	d := b.Sub(a)
	n := int(math.Ceil(d.Len() / lineStep))
	for i := 1; i <= n; i++ {
		if m.IsSolid(a.Add(d.Scale(float64(i) / float64(n)))) {
			return true
		}
	}
	return false
}
