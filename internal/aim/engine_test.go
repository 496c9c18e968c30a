package aim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inputpipe/internal/geom"
	"inputpipe/internal/input"
	"inputpipe/internal/world"
)

// stubTerrain blocks any segment whose end point is accepted by blockEnd.
type stubTerrain struct {
	blockEnd func(b geom.Vec2) bool
}

func (s stubTerrain) Obstructed(_, b geom.Vec2) bool {
	return s.blockEnd != nil && s.blockEnd(b)
}
func (stubTerrain) IsHazard(geom.Vec2) bool { return false }
func (stubTerrain) IsSolid(geom.Vec2) bool { return false }

func newEngine(fov float64, terrain world.Terrain) *Engine {
	cfg := DefaultConfig()
	cfg.FOV = fov
	return NewEngine(cfg, terrain, nil, nil)
}

func self(weapon world.WeaponID) world.Self {
	return world.Self{ID: 0, Alive: true, Pos: geom.V(0, 0), Weapon: weapon}
}

func TestFOVFilter(t *testing.T) {
	onAxis := world.Subject{ID: 1, Active: true, Pos: geom.V(200, 0)}
	offAxis := world.Subject{ID: 2, Active: true, Pos: geom.V(0, 200)}

	tests := []struct {
		name    string
		fov     float64
		subject world.Subject
		want    bool
	}{
		{"60 on axis", 60, onAxis, true},
		{"60 at 90 degrees", 60, offAxis, false},
		{"90 at 90 degrees", 90, offAxis, false},
		{"360 at 90 degrees", 360, offAxis, true},
		{"zero disables", 0, offAxis, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(tt.fov, stubTerrain{})
			_, ok := e.Acquire(self(world.Gun), []world.Subject{tt.subject}, geom.V(1, 0))
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestRangeGating(t *testing.T) {
	tests := []struct {
		name   string
		weapon world.WeaponID
		dist   float64
		want   bool
	}{
		{"gun inside", world.Gun, 790, true},
		{"gun outside", world.Gun, 810, false},
		{"laser uses long tier", world.Laser, 790, true},
		{"hammer inside", world.Hammer, 390, true},
		{"hammer outside", world.Hammer, 410, false},
		{"ninja outside", world.Ninja, 500, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(360, stubTerrain{})
			sub := world.Subject{ID: 1, Active: true, Pos: geom.V(tt.dist, 0)}
			_, ok := e.Acquire(self(tt.weapon), []world.Subject{sub}, geom.V(1, 0))
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestOutOfRangeNeverWinsOnScore(t *testing.T) {
	e := newEngine(360, stubTerrain{})
	far := world.Subject{ID: 1, Active: true, Pos: geom.V(801, 0)}
	near := world.Subject{ID: 2, Active: true, Pos: geom.V(-700, 0)}

	best, ok := e.Acquire(self(world.Gun), []world.Subject{far, near}, geom.V(1, 0))
	require.True(t, ok)
	assert.Equal(t, 2, best.SubjectID)
}

func TestLeadDeterminism(t *testing.T) {
	pos := geom.V(300, -40)
	vel := geom.V(12, -3)
	dist := pos.Len()

	want := geom.V(pos.X+vel.X*(dist/2200), pos.Y+vel.Y*(dist/2200))
	assert.Equal(t, want, Lead(pos, vel, dist, 2200))
	assert.Equal(t, pos, Lead(pos, vel, dist, 0), "hitscan has no lead")

	e := newEngine(360, stubTerrain{})
	best, ok := e.Acquire(self(world.Gun), []world.Subject{{ID: 5, Active: true, Pos: pos, Vel: vel}}, geom.V(1, 0))
	require.True(t, ok)
	assert.Equal(t, want, best.AimPoint)
	assert.True(t, best.Clear)
}

func TestObstructionSearchPicksFirstClearOffset(t *testing.T) {
	lead := geom.V(300, 0)
	terrain := stubTerrain{blockEnd: func(b geom.Vec2) bool { return b.Distance(lead) < 5 }}
	e := newEngine(360, terrain)

	best, ok := e.Acquire(self(world.Laser), []world.Subject{{ID: 1, Active: true, Pos: lead}}, geom.V(1, 0))
	require.True(t, ok)
	assert.True(t, best.Clear)
	assert.Equal(t, geom.V(300, -10), best.AimPoint)
}

func TestObstructionFallbackPenalty(t *testing.T) {
	pos := geom.V(300, 0)
	blocked := stubTerrain{blockEnd: func(geom.Vec2) bool { return true }}

	open := newEngine(360, stubTerrain{})
	walled := newEngine(360, blocked)
	subjects := []world.Subject{{ID: 1, Active: true, Pos: pos}}

	clear, _ := open.Acquire(self(world.Laser), subjects, geom.V(1, 0))
	fallback, ok := walled.Acquire(self(world.Laser), subjects, geom.V(1, 0))
	require.True(t, ok, "fallback keeps the lock")
	assert.False(t, fallback.Clear)
	assert.Equal(t, pos, fallback.AimPoint)
	assert.InDelta(t, clear.Score+50, fallback.Score, 1e-9)
}

func TestTieBreaksOnLowestID(t *testing.T) {
	e := newEngine(360, stubTerrain{})
	subjects := []world.Subject{
		{ID: 7, Active: true, Pos: geom.V(100, 10)},
		{ID: 3, Active: true, Pos: geom.V(100, -10)},
	}
	best, ok := e.Acquire(self(world.Gun), subjects, geom.V(1, 0))
	require.True(t, ok)
	assert.Equal(t, 3, best.SubjectID)
}

func TestCrosshairWeightPrefersAlignedSubject(t *testing.T) {
	e := newEngine(360, stubTerrain{})
	subjects := []world.Subject{
		{ID: 1, Active: true, Pos: geom.V(0, 150)}, // close but 90 degrees off
		{ID: 2, Active: true, Pos: geom.V(600, 0)}, // far but on the crosshair
	}
	best, ok := e.Acquire(self(world.Gun), subjects, geom.V(1, 0))
	require.True(t, ok)
	assert.Equal(t, 2, best.SubjectID)
}

func TestSkipsSelfInactiveAndExcluded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FOV = 360
	aff := world.AffiliationFunc(func(_, id int) bool { return id == 3 })
	e := NewEngine(cfg, stubTerrain{}, aff, nil)

	subjects := []world.Subject{
		{ID: 0, Active: true, Pos: geom.V(10, 0)},
		{ID: 2, Active: false, Pos: geom.V(20, 0)},
		{ID: 3, Active: true, Pos: geom.V(30, 0)},
	}
	_, ok := e.Acquire(self(world.Gun), subjects, geom.V(1, 0))
	assert.False(t, ok)
}

func TestApplyWritesRelativeAim(t *testing.T) {
	e := newEngine(360, stubTerrain{})
	snap := world.Snapshot{
		Self:     world.Self{ID: 0, Alive: true, Pos: geom.V(100, 100), Weapon: world.Laser},
		Subjects: []world.Subject{{ID: 4, Active: true, Pos: geom.V(250.7, 40.2)}},
	}
	cmd := input.Command{TargetX: 1}

	_, ok := e.Apply(&cmd, snap, geom.V(5, 5), false)
	require.True(t, ok)
	assert.Equal(t, int32(150), cmd.TargetX)
	assert.Equal(t, int32(-59), cmd.TargetY)
	assert.Equal(t, 4, e.TargetID())
}

func TestApplyNoTargetFallsBackToMouse(t *testing.T) {
	e := newEngine(50, stubTerrain{})
	snap := world.Snapshot{Self: world.Self{Alive: true, Weapon: world.Gun}}

	cmd := input.Command{TargetX: 90, TargetY: 90}
	_, ok := e.Apply(&cmd, snap, geom.V(-30, 12), false)
	assert.False(t, ok)
	assert.Equal(t, int32(-30), cmd.TargetX)
	assert.Equal(t, int32(12), cmd.TargetY)
	assert.Equal(t, NoTarget, e.TargetID())

	kept := input.Command{TargetX: 90, TargetY: 90}
	e.Apply(&kept, snap, geom.V(-30, 12), true)
	assert.Equal(t, int32(90), kept.TargetX, "replayed aim is not clobbered")
}
