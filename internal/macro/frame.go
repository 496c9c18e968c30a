// Package macro records per-tick commands and replays them later.
package macro

import (
	"inputpipe/internal/geom"
	"inputpipe/internal/input"
)

// Frame is one recorded tick. Field order and widths are the on-disk layout.
type Frame struct {
	Direction    int32
	Jump         int32
	Hook         int32
	Fire         int32
	TargetX      int32
	TargetY      int32
	WantedWeapon int32
	NextWeapon   int32
	PrevWeapon   int32
	PosX         float32 // debug only, never replayed
	PosY         float32
	VelX         float32
	VelY         float32
}

// FrameSize is the encoded size of one Frame in bytes.
const FrameSize = 9*4 + 4*4

// NewFrame captures cmd together with the entity's position and velocity.
func NewFrame(cmd input.Command, pos, vel geom.Vec2) Frame {
	return Frame{
		Direction:    cmd.Direction,
		Jump:         cmd.Jump,
		Hook:         cmd.Hook,
		Fire:         int32(cmd.Fire),
		TargetX:      cmd.TargetX,
		TargetY:      cmd.TargetY,
		WantedWeapon: cmd.WantedWeapon,
		NextWeapon:   int32(cmd.NextWeapon),
		PrevWeapon:   int32(cmd.PrevWeapon),
		PosX:         float32(pos.X),
		PosY:         float32(pos.Y),
		VelX:         float32(vel.X),
		VelY:         float32(vel.Y),
	}
}

// Pos returns the recorded debug position.
func (f Frame) Pos() geom.Vec2 { return geom.V(float64(f.PosX), float64(f.PosY)) }

// apply overwrites every replayable field of cmd. Fire is rebased by
// fireOffset so the live counter keeps its parity history.
func (f Frame) apply(cmd *input.Command, fireOffset int32) {
	cmd.Direction = f.Direction
	cmd.Jump = f.Jump
	cmd.Hook = f.Hook
	cmd.Fire = input.EdgeCounter(f.Fire + fireOffset).Masked()
	cmd.TargetX = f.TargetX
	cmd.TargetY = f.TargetY
	cmd.WantedWeapon = f.WantedWeapon
	cmd.NextWeapon = input.EdgeCounter(f.NextWeapon).Masked()
	cmd.PrevWeapon = input.EdgeCounter(f.PrevWeapon).Masked()
}
