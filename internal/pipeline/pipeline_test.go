package pipeline

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inputpipe/internal/geom"
	"inputpipe/internal/input"
	"inputpipe/internal/macro"
	"inputpipe/internal/world"
)

// flatTerrain has no walls. Hazard tiles are everything at x >= hazardX.
type flatTerrain struct {
	hazardX float64
}

func (flatTerrain) Obstructed(_, _ geom.Vec2) bool { return false }

func (t flatTerrain) IsHazard(p geom.Vec2) bool { return t.hazardX != 0 && p.X >= t.hazardX }

func (flatTerrain) IsSolid(geom.Vec2) bool { return false }

func newPipeline(t *testing.T, terrain world.Terrain, features ...Feature) *Pipeline {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Enabled = features
	cfg.MacroDir = t.TempDir()
	p, err := New(cfg, Deps{Terrain: terrain})
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func idleSnapshot() world.Snapshot {
	return world.Snapshot{Self: world.Self{ID: 0, Alive: true, Pos: geom.V(0, 0), Weapon: world.Gun}}
}

func playing(dev input.Device) input.Device {
	dev.Flags |= input.FlagPlaying
	if dev.Mouse.IsZero() {
		dev.Mouse = geom.V(100, 0)
	}
	return dev
}

func TestNewRequiresTerrain(t *testing.T) {
	_, err := New(DefaultConfig(), Deps{})
	assert.True(t, errors.Is(err, ErrNoTerrain))
}

func TestStageOrder(t *testing.T) {
	p := newPipeline(t, flatTerrain{})
	assert.Equal(t,
		[]string{"macro", "aim", "balance", "stack", "wiggle", "hazard", "follow", "bridge"},
		p.Stages())
}

func TestPassThroughWithNothingEnabled(t *testing.T) {
	p := newPipeline(t, flatTerrain{})
	res := p.Tick(playing(input.Device{Right: true, Jump: true}), idleSnapshot())

	assert.Equal(t, int32(1), res.Command.Direction)
	assert.Equal(t, int32(1), res.Command.Jump)
	assert.Equal(t, int32(100), res.Command.TargetX)
	assert.True(t, res.Send)
	assert.Empty(t, res.Overrides)
}

func TestRecordThenReplay(t *testing.T) {
	p := newPipeline(t, flatTerrain{}, FeatureAim)

	require.True(t, p.Enqueue(Event{Kind: EventMacroRecord}))
	for i := 0; i < 3; i++ {
		p.Tick(playing(input.Device{Right: true, Mouse: geom.V(40, -20)}), idleSnapshot())
	}
	p.Enqueue(Event{Kind: EventMacroRecord})
	p.Tick(playing(input.Device{}), idleSnapshot())

	st := p.Status()
	assert.Equal(t, "idle", st.Macro.State)
	assert.Equal(t, 3, st.Macro.Frames)

	p.Enqueue(Event{Kind: EventMacroPlay})
	for i := 0; i < 3; i++ {
		res := p.Tick(playing(input.Device{Left: true, Mouse: geom.V(-5, 5)}), idleSnapshot())
		assert.Equal(t, int32(1), res.Command.Direction, "tick %d replays the recording", i)
		assert.Equal(t, int32(40), res.Command.TargetX, "acquisition without target keeps replayed aim")
		assert.True(t, res.Send, "playback forces a send")
		assert.Contains(t, res.Overrides, "macro")
	}
	assert.Equal(t, "idle", p.Status().Macro.State)

	res := p.Tick(playing(input.Device{Left: true}), idleSnapshot())
	assert.Equal(t, int32(-1), res.Command.Direction, "live input returns after playback")
}

func TestTakeoverDoesNotRecordReplayedTicks(t *testing.T) {
	p := newPipeline(t, flatTerrain{})

	p.Enqueue(Event{Kind: EventMacroRecord})
	for _, dev := range []input.Device{{Left: true}, {}, {Right: true}} {
		p.Tick(playing(dev), idleSnapshot())
	}
	p.Enqueue(Event{Kind: EventMacroRecord})
	p.Enqueue(Event{Kind: EventMacroTakeover})

	for i := 0; i < 3; i++ {
		res := p.Tick(playing(input.Device{}), idleSnapshot())
		assert.Contains(t, res.Overrides, "macro", "tick %d replays", i)
	}
	st := p.Status()
	assert.Equal(t, "recording", st.Macro.State)
	assert.Equal(t, 3, st.Macro.Frames, "the last replayed tick must not be appended")

	p.Tick(playing(input.Device{Left: true}), idleSnapshot())

	var dirs []int32
	for _, f := range p.Macro().Frames() {
		dirs = append(dirs, f.Direction)
	}
	assert.Equal(t, []int32{-1, 0, 1, -1}, dirs)
}

func TestHazardClobbersReplay(t *testing.T) {
	p := newPipeline(t, flatTerrain{hazardX: 50}, FeatureHazard)
	p.Enqueue(Event{Kind: EventMacroRecord})
	p.Tick(playing(input.Device{Right: true}), idleSnapshot())
	p.Enqueue(Event{Kind: EventMacroRecord})
	p.Enqueue(Event{Kind: EventMacroPlay})

	snap := idleSnapshot()
	snap.Self.Vel = geom.V(3, 0)
	res := p.Tick(playing(input.Device{}), snap)
	assert.Equal(t, int32(-1), res.Command.Direction)
	assert.Equal(t, []string{"macro", "hazard"}, res.Overrides)
}

func TestFollowerYieldsToPlayback(t *testing.T) {
	p := newPipeline(t, flatTerrain{}, FeatureFollow)
	snap := idleSnapshot()
	snap.Subjects = []world.Subject{{ID: 1, Active: true, Pos: geom.V(-500, 0)}}

	res := p.Tick(playing(input.Device{Right: true}), snap)
	assert.Equal(t, int32(-1), res.Command.Direction, "follower steers toward the subject")
	assert.Equal(t, 1, p.Status().FollowID)

	p.Enqueue(Event{Kind: EventMacroRecord})
	p.Tick(playing(input.Device{Right: true}), snap)
	p.Enqueue(Event{Kind: EventMacroRecord})
	p.Enqueue(Event{Kind: EventMacroPlay})

	res = p.Tick(playing(input.Device{}), snap)
	assert.NotContains(t, res.Overrides, "follow")

	p.Enqueue(Event{Kind: EventSetFeature, Feature: FeatureFollow, Enabled: false})
	p.Tick(playing(input.Device{}), snap)
	assert.False(t, p.Status().Following(), "disable clears the tracked subject")
}

func TestToggleFeatureUpdatesStatus(t *testing.T) {
	p := newPipeline(t, flatTerrain{})
	p.Enqueue(Event{Kind: EventToggleFeature, Feature: FeatureWiggle})
	p.Enqueue(Event{Kind: EventToggleFeature, Feature: FeatureAim})
	p.Enqueue(Event{Kind: EventSetFeature, Feature: Feature("bogus"), Enabled: true})
	p.Tick(playing(input.Device{}), idleSnapshot())

	st := p.Status()
	assert.Equal(t, []Feature{FeatureAim, FeatureWiggle}, st.Features)
	assert.True(t, p.Enabled(FeatureWiggle))
}

func TestWiggleAlternates(t *testing.T) {
	p := newPipeline(t, flatTerrain{}, FeatureWiggle)
	both := playing(input.Device{Left: true, Right: true})

	var dirs []int32
	for i := 0; i < 4; i++ {
		dirs = append(dirs, p.Tick(both, idleSnapshot()).Command.Direction)
	}
	assert.Equal(t, []int32{1, -1, 1, -1}, dirs)
}

func TestSaveErrorsBecomeMessages(t *testing.T) {
	p := newPipeline(t, flatTerrain{})
	p.Enqueue(Event{Kind: EventMacroSave, Name: "empty"})
	p.Tick(playing(input.Device{}), idleSnapshot())
	assert.Contains(t, p.Status().Message, "no frames")

	p.Enqueue(Event{Kind: EventMacroRecord})
	p.Tick(playing(input.Device{Right: true}), idleSnapshot())
	p.Enqueue(Event{Kind: EventMacroRecord})
	p.Enqueue(Event{Kind: EventMacroSave, Name: "route"})
	p.Tick(playing(input.Device{}), idleSnapshot())
	assert.Contains(t, p.Status().Message, "Saved 1 frames")

	p.Enqueue(Event{Kind: EventMacroLoad, Name: "route"})
	p.Tick(playing(input.Device{}), idleSnapshot())
	assert.Equal(t, 1, p.Status().Macro.Frames)
	assert.Equal(t, macro.Idle, p.Macro().State())
}

func TestTruncateUsesDefaultStep(t *testing.T) {
	p := newPipeline(t, flatTerrain{})
	p.Enqueue(Event{Kind: EventMacroRecord})
	for i := 0; i < 8; i++ {
		p.Tick(playing(input.Device{}), idleSnapshot())
	}
	p.Enqueue(Event{Kind: EventMacroPause})
	p.Enqueue(Event{Kind: EventMacroTruncate})
	p.Tick(playing(input.Device{}), idleSnapshot())

	assert.Equal(t, 3, p.Status().Macro.Frames)
	assert.Equal(t, "paused", p.Status().Macro.State)
}

func TestEventQueueDropsWhenFull(t *testing.T) {
	q := NewEventQueue(2)
	assert.True(t, q.Enqueue(Event{Kind: EventMacroRecord}))
	assert.True(t, q.Enqueue(Event{Kind: EventMacroPause}))
	assert.False(t, q.Enqueue(Event{Kind: EventMacroPlay}))

	var kinds []EventKind
	assert.Equal(t, 2, q.Drain(func(ev Event) { kinds = append(kinds, ev.Kind) }))
	assert.Equal(t, []EventKind{EventMacroRecord, EventMacroPause}, kinds)

	st := q.Stats()
	assert.Equal(t, uint64(1), st.Dropped)
	assert.Equal(t, uint64(2), st.Processed)
	assert.Equal(t, 0, st.Pending)
}

type refusingDialer struct{}

func (refusingDialer) DialContext(context.Context, string, string) (net.Conn, error) {
	return nil, errors.New("refused")
}

func TestBridgeToggleOpensAndCloses(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = nil
	p, err := New(cfg, Deps{Terrain: flatTerrain{}, Dialer: refusingDialer{}})
	require.NoError(t, err)

	p.Enqueue(Event{Kind: EventSetFeature, Feature: FeatureBridge, Enabled: true})
	res := p.Tick(playing(input.Device{Right: true}), idleSnapshot())
	assert.NotContains(t, res.Overrides, "bridge", "no command without a connection")
	assert.NotNil(t, p.bridge)

	p.Enqueue(Event{Kind: EventSetFeature, Feature: FeatureBridge, Enabled: false})
	p.Tick(playing(input.Device{}), idleSnapshot())
	assert.Nil(t, p.bridge)
	assert.NoError(t, p.Close())
}

func TestParseFeature(t *testing.T) {
	f, err := ParseFeature(" Hazard ")
	require.NoError(t, err)
	assert.Equal(t, FeatureHazard, f)

	_, err = ParseFeature("teleport")
	assert.Error(t, err)
}
