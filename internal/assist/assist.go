// Package assist holds the small movement helpers that run between target
// acquisition and hazard avoidance: counter-slide, stack alignment and wiggle.
package assist

import (
	"math"

	"inputpipe/internal/input"
	"inputpipe/internal/world"
)

// Config tunes all three assists.
type Config struct {
	BalanceThreshold float64 // |vel.x| above which balance counter-steers

	StackScanX     float64 // max horizontal distance to a stack candidate
	StackAboveTol  float64 // candidate may be this far above and still count
	StackStopZone  float64
	StackStopVel   float64
	StackDeadZone  float64
	StackDeadVel   float64
	StackBrakeGain float64 // fraction of dx that velocity may reach before braking
	StackBrakeBias float64
	StackSelfDist  float64 // closer than this is assumed to be self
}

func DefaultConfig() Config {
	return Config{
		BalanceThreshold: 1,
		StackScanX:       32,
		StackAboveTol:    10,
		StackStopZone:    0.5,
		StackStopVel:     0.1,
		StackDeadZone:    2,
		StackDeadVel:     0.5,
		StackBrakeGain:   0.5,
		StackBrakeBias:   2,
		StackSelfDist:    10,
	}
}

// Balance presses against the current slide when no direction key is held.
func Balance(cfg Config, cmd *input.Command, dev input.Device, self world.Self) bool {
	if dev.AnyDirection() || !self.Alive {
		return false
	}
	switch vx := self.Vel.X; {
	case vx > cfg.BalanceThreshold:
		cmd.Direction = -1
	case vx < -cfg.BalanceThreshold:
		cmd.Direction = 1
	default:
		cmd.Direction = 0
	}
	return true
}

// StackTarget finds the subject below self with the smallest horizontal gap.
func StackTarget(cfg Config, self world.Self, subjects []world.Subject) (world.Subject, bool) {
	var best world.Subject
	found := false
	bestDX := math.Inf(1)
	for _, s := range subjects {
		if !s.Active || s.ID == self.ID || s.Pos.Distance(self.Pos) < cfg.StackSelfDist {
			continue
		}
		if s.Pos.Y-self.Pos.Y < -cfg.StackAboveTol {
			continue
		}
		dx := math.Abs(s.Pos.X - self.Pos.X)
		if dx > cfg.StackScanX {
			continue
		}
		if dx < bestDX {
			best, bestDX, found = s, dx, true
		}
	}
	return best, found
}

// StackDirection steers horizontally onto a target dx away with velocity vx,
// braking early when the current speed would overshoot.
func StackDirection(cfg Config, dx, vx float64) int32 {
	if math.Abs(dx) < cfg.StackStopZone && math.Abs(vx) < cfg.StackStopVel {
		return 0
	}

	var dir int32
	if dx > 0 {
		dir = 1
		if vx > dx*cfg.StackBrakeGain+cfg.StackBrakeBias {
			dir = -1
		}
	} else {
		dir = -1
		if vx < dx*cfg.StackBrakeGain-cfg.StackBrakeBias {
			dir = 1
		}
	}

	if math.Abs(dx) < cfg.StackDeadZone && math.Abs(vx) < cfg.StackDeadVel {
		return 0
	}
	return dir
}

// Stack aligns self above the nearest subject underneath.
func Stack(cfg Config, cmd *input.Command, snap world.Snapshot) bool {
	if !snap.Self.Alive {
		return false
	}
	target, ok := StackTarget(cfg, snap.Self, snap.Subjects)
	if !ok {
		return false
	}
	cmd.Direction = StackDirection(cfg, target.Pos.X-snap.Self.Pos.X, snap.Self.Vel.X)
	return true
}

// Wiggle alternates direction every tick while both direction keys are held.
func Wiggle(cmd *input.Command, dev input.Device, lastDirection int32) bool {
	if !dev.BothDirections() {
		return false
	}
	if lastDirection != 0 {
		cmd.Direction = -lastDirection
	} else {
		cmd.Direction = 1
	}
	return true
}
