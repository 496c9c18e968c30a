package sandbox

import (
	"inputpipe/internal/geom"
	"inputpipe/internal/input"
	"inputpipe/internal/world"
)

// SelfID is the id of the controlled entity.
const SelfID = 0

// patrolSpan is how far each patrol walks either side of its anchor.
const patrolSpan = 3 * world.TileSize

// World is the full simulated state. Not safe for concurrent use.
type World struct {
	Map     *Map
	Self    Body
	Weapon  world.WeaponID
	Patrols []*Patrol

	cfg  PhysicsConfig
	tick uint64
}

// NewWorld places self at the spawn and one patrol at each anchor, ids
// starting at 1.
func NewWorld(m *Map, cfg PhysicsConfig) *World {
	w := &World{
		Map:    m,
		Self:   Body{Pos: m.Spawn, Alive: true},
		Weapon: world.Gun,
		cfg:    cfg,
	}
	for i, a := range m.Anchors {
		w.Patrols = append(w.Patrols, NewPatrol(i+1,
			a.Sub(geom.V(patrolSpan, 0)), a.Add(geom.V(patrolSpan, 0)), 2))
	}
	return w
}

// Tick is the number of steps taken.
func (w *World) Tick() uint64 { return w.tick }

// Teams maps every entity to its team for world.SameTeam.
func (w *World) Teams() map[int]int {
	teams := map[int]int{SelfID: 0}
	for _, p := range w.Patrols {
		teams[p.ID] = p.Team
	}
	return teams
}

// Snapshot is the pipeline's view of the current state.
func (w *World) Snapshot() world.Snapshot {
	snap := world.Snapshot{
		Self: world.Self{
			ID:     SelfID,
			Alive:  w.Self.Alive,
			Pos:    w.Self.Pos,
			Vel:    w.Self.Vel,
			Weapon: w.Weapon,
		},
		Subjects: make([]world.Subject, 0, len(w.Patrols)),
	}
	for _, p := range w.Patrols {
		snap.Subjects = append(snap.Subjects, world.Subject{
			ID:     p.ID,
			Active: true,
			Pos:    p.Pos(),
			Vel:    p.Vel(),
			Team:   p.Team,
		})
	}
	return snap
}

// Step applies cmd to self and advances every patrol.
func (w *World) Step(cmd input.Command) {
	w.Self.step(w.Map, w.cfg, cmd)
	for _, p := range w.Patrols {
		p.step()
	}
	w.tick++
}

// Driver stands in for the human: it produces raw device state each tick.
type Driver func(tick uint64, snap world.Snapshot) input.Device

// Idle holds nothing, with the mouse pointing right.
func Idle(uint64, world.Snapshot) input.Device {
	return input.Device{Mouse: geom.V(100, 0), Flags: input.FlagPlaying}
}

// Walk holds a direction forever and taps jump every period ticks.
func Walk(direction int32, period uint64) Driver {
	return func(tick uint64, _ world.Snapshot) input.Device {
		dev := Idle(tick, world.Snapshot{})
		dev.Left = direction < 0
		dev.Right = direction > 0
		dev.Mouse = geom.V(float64(direction)*100, 0)
		if period > 0 {
			dev.Jump = tick%period == 0
		}
		return dev
	}
}
