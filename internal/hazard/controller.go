// Package hazard overrides horizontal movement to keep the entity out of
// freeze and death tiles it is about to slide or run into.
package hazard

import (
	"go.uber.org/zap"

	"inputpipe/internal/geom"
	"inputpipe/internal/input"
	"inputpipe/internal/world"
)

// Config holds the sampling geometry and speed thresholds.
type Config struct {
	Margin         float64   // static outward distance of each side sample
	Horizons       []float64 // lookahead in ticks, short first
	Offsets        []float64 // vertical sample offsets: feet, torso, head, above head
	BrakeSpeed     float64   // toward-speed above which the opposite direction is pressed
	SettleSpeed    float64   // toward-speed above which direction is zeroed
	WallOffset     float64
	ClimbVelocityY float64 // vel.y below this counts as climbing when on a wall
}

func DefaultConfig() Config {
	return Config{
		Margin:         10,
		Horizons:       []float64{5, 20},
		Offsets:        []float64{10, -10, -24, -48, -96},
		BrakeSpeed:     0.5,
		SettleSpeed:    0.05,
		WallOffset:     18,
		ClimbVelocityY: -0.1,
	}
}

// Side is a horizontal direction, -1 left and +1 right.
type Side int32

const (
	Left  Side = -1
	Right Side = 1
)

// Controller is the hazard avoidance stage.
type Controller struct {
	cfg     Config
	terrain world.Terrain
	log     *zap.Logger
}

func NewController(cfg Config, terrain world.Terrain, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{cfg: cfg, terrain: terrain, log: log}
}

// SamplePoint is where side s is probed at horizon h, before vertical offsets.
// The moving side is pushed out by the distance covered in h ticks.
func (c *Controller) SamplePoint(pos, vel geom.Vec2, s Side, h float64) geom.Vec2 {
	x := pos.X + float64(s)*c.cfg.Margin
	if vel.X*float64(s) > 0 {
		x += vel.X * h
	}
	return geom.V(x, pos.Y+vel.Y*h)
}

// Dangerous reports whether any vertical sample on side s at any horizon is
// a hazard tile.
func (c *Controller) Dangerous(pos, vel geom.Vec2, s Side) bool {
	for _, h := range c.cfg.Horizons {
		p := c.SamplePoint(pos, vel, s, h)
		for _, dy := range c.cfg.Offsets {
			if c.terrain.IsHazard(geom.V(p.X, p.Y+dy)) {
				return true
			}
		}
	}
	return false
}

// Climbing reports whether the entity is pressed against a wall and moving up.
func (c *Controller) Climbing(pos, vel geom.Vec2) bool {
	onWall := c.terrain.IsSolid(geom.V(pos.X+c.cfg.WallOffset, pos.Y)) ||
		c.terrain.IsSolid(geom.V(pos.X-c.cfg.WallOffset, pos.Y))
	return onWall && vel.Y < c.cfg.ClimbVelocityY
}

// Suppressed reports whether the override must stand down this tick.
func (c *Controller) Suppressed(self world.Self, flags input.PlayerFlags) bool {
	switch {
	case !self.Alive, flags.Busy():
		return true
	case c.terrain.IsHazard(self.Pos):
		// already caught, nothing left to avoid
		return true
	}
	return c.Climbing(self.Pos, self.Vel)
}

// Apply rewrites cmd.Direction when a side is dangerous. Reports whether the
// direction changed.
func (c *Controller) Apply(cmd *input.Command, self world.Self) bool {
	if c.Suppressed(self, cmd.PlayerFlags) {
		return false
	}

	before := cmd.Direction
	for _, s := range [...]Side{Left, Right} {
		if !c.Dangerous(self.Pos, self.Vel, s) {
			continue
		}
		if cmd.Direction == int32(s) {
			cmd.Direction = 0
		}
		toward := self.Vel.X * float64(s)
		switch {
		case toward > c.cfg.BrakeSpeed:
			cmd.Direction = -int32(s)
		case toward > c.cfg.SettleSpeed:
			cmd.Direction = 0
		}
	}

	if cmd.Direction != before {
		c.log.Debug("hazard override",
			zap.Int32("from", before),
			zap.Int32("to", cmd.Direction),
			zap.Float64("velX", self.Vel.X))
		return true
	}
	return false
}
