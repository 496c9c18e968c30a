package pipeline

import (
	"time"

	"inputpipe/internal/geom"
	"inputpipe/internal/input"
	"inputpipe/internal/world"
)

// Frame is the per-tick working set threaded through every stage.
type Frame struct {
	Tick     uint64
	Now      time.Time
	Snapshot world.Snapshot
	Device   input.Device
	Command  input.Command

	// RawAim is the device aim before any stage touched it.
	RawAim geom.Vec2
	// LastDirection is the direction committed on the previous tick.
	LastDirection int32
	// MacroPlaying is set when macro playback owns this tick's command.
	MacroPlaying bool
}

// Stage is one step of the per-tick pipeline. Apply reports whether the
// stage rewrote any part of the command.
type Stage interface {
	Name() string
	Apply(f *Frame) bool
}

type stageFunc struct {
	name  string
	apply func(f *Frame) bool
}

func (s stageFunc) Name() string { return s.name }
func (s stageFunc) Apply(f *Frame) bool { return s.apply(f) }
