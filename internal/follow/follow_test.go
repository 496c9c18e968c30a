package follow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inputpipe/internal/geom"
	"inputpipe/internal/input"
	"inputpipe/internal/world"
)

func TestHistoryEvictsByWindow(t *testing.T) {
	h := NewHistory(250)
	for tick := uint64(0); tick < 400; tick++ {
		h.Push(Point{Tick: tick, Pos: geom.V(float64(tick), 0)})
	}
	require.Equal(t, 250, h.Len())
	assert.Equal(t, uint64(150), h.At(0).Tick)
	newest, ok := h.Newest()
	require.True(t, ok)
	assert.Equal(t, uint64(399), newest.Tick)
}

func TestHistoryEvictsAcrossGaps(t *testing.T) {
	h := NewHistory(250)
	h.Push(Point{Tick: 10})
	h.Push(Point{Tick: 20})
	h.Push(Point{Tick: 265})
	assert.Equal(t, 2, h.Len(), "tick 10 is older than 250 ticks")
	assert.Equal(t, uint64(20), h.At(0).Tick)
}

func TestHistoryNearestPrefersEarliest(t *testing.T) {
	h := NewHistory(10)
	for i, x := range []float64{0, 50, 100, 50} {
		h.Push(Point{Tick: uint64(i), Pos: geom.V(x, 0)})
	}
	assert.Equal(t, 1, h.Nearest(geom.V(48, 0)))
	assert.Equal(t, -1, NewHistory(3).Nearest(geom.V(0, 0)))
}

func TestTargetClampsLookahead(t *testing.T) {
	f := NewFollower(DefaultConfig(50), nil)
	for i := 0; i < 15; i++ {
		f.History().Push(Point{Tick: uint64(i), Pos: geom.V(float64(i*10), 0)})
	}

	got, ok := f.Target(geom.V(0, 0))
	require.True(t, ok)
	assert.Equal(t, geom.V(100, 0), got, "nearest index 0 plus 10")

	got, _ = f.Target(geom.V(120, 0))
	assert.Equal(t, geom.V(140, 0), got, "clamped to the newest entry")
}

func snapshot(selfPos geom.Vec2, subjects ...world.Subject) world.Snapshot {
	return world.Snapshot{
		Self:     world.Self{ID: 0, Alive: true, Pos: selfPos},
		Subjects: subjects,
	}
}

func TestSelectsLowestActiveID(t *testing.T) {
	f := NewFollower(DefaultConfig(50), nil)
	snap := snapshot(geom.V(0, 0),
		world.Subject{ID: 9, Active: true, Pos: geom.V(300, 0)},
		world.Subject{ID: 0, Active: true},
		world.Subject{ID: 4, Active: false},
		world.Subject{ID: 6, Active: true, Pos: geom.V(-300, 0)},
	)
	cmd := input.Command{}
	require.True(t, f.Apply(&cmd, snap, 1))
	assert.Equal(t, 6, f.TrackedID())
	assert.Equal(t, int32(-1), cmd.Direction)
}

func TestReselectClearsHistory(t *testing.T) {
	f := NewFollower(DefaultConfig(50), nil)
	a := world.Subject{ID: 1, Active: true, Pos: geom.V(100, 0)}
	b := world.Subject{ID: 2, Active: true, Pos: geom.V(-100, 0)}

	for tick := uint64(0); tick < 5; tick++ {
		f.Apply(&input.Command{}, snapshot(geom.V(0, 0), a, b), tick)
	}
	require.Equal(t, 1, f.TrackedID())
	require.Equal(t, 5, f.History().Len())

	a.Active = false
	f.Apply(&input.Command{}, snapshot(geom.V(0, 0), a, b), 5)
	assert.Equal(t, 2, f.TrackedID())
	assert.Equal(t, 1, f.History().Len())
}

func TestSteering(t *testing.T) {
	tests := []struct {
		name   string
		target geom.Vec2
		dir    int32
		jump   int32
		hook   int32
	}{
		{"inside dead zone", geom.V(8, 0), 0, 0, 0},
		{"right", geom.V(40, 0), 1, 0, 0},
		{"left and above", geom.V(-40, -30), -1, 1, 0},
		{"far above hooks", geom.V(0, -150), 0, 1, 1},
		{"far below does not hook", geom.V(0, 150), 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFollower(DefaultConfig(50), nil)
			cmd := input.Command{Direction: 1, Jump: 1, Hook: 1}
			f.steer(&cmd, geom.V(0, 0), tt.target)
			assert.Equal(t, tt.dir, cmd.Direction)
			assert.Equal(t, tt.jump, cmd.Jump)
			assert.Equal(t, tt.hook, cmd.Hook)
			assert.Equal(t, int32(tt.target.X), cmd.TargetX)
			assert.Equal(t, int32(tt.target.Y), cmd.TargetY)
		})
	}
}

func TestResetClears(t *testing.T) {
	f := NewFollower(DefaultConfig(50), nil)
	f.Apply(&input.Command{}, snapshot(geom.V(0, 0), world.Subject{ID: 3, Active: true}), 0)
	f.Reset()
	assert.Equal(t, NoSubject, f.TrackedID())
	assert.Equal(t, 0, f.History().Len())
}

func TestDeathResetsTracking(t *testing.T) {
	f := NewFollower(DefaultConfig(50), nil)
	sub := world.Subject{ID: 3, Active: true, Pos: geom.V(200, 0)}
	for tick := uint64(0); tick < 5; tick++ {
		f.Apply(&input.Command{}, snapshot(geom.V(0, 0), sub), tick)
	}
	require.Equal(t, 3, f.TrackedID())
	require.Equal(t, 5, f.History().Len())

	dead := snapshot(geom.V(0, 0), sub)
	dead.Self.Alive = false
	cmd := input.Command{Direction: -1}
	assert.False(t, f.Apply(&cmd, dead, 5))
	assert.Equal(t, int32(-1), cmd.Direction)
	assert.Equal(t, NoSubject, f.TrackedID())
	assert.Equal(t, 0, f.History().Len())
}

func TestNoCandidateLeavesCommand(t *testing.T) {
	f := NewFollower(DefaultConfig(50), nil)
	cmd := input.Command{Direction: 1}
	assert.False(t, f.Apply(&cmd, snapshot(geom.V(0, 0)), 0))
	assert.Equal(t, int32(1), cmd.Direction)
}
