package sandbox

import (
	"math"

	"inputpipe/internal/geom"
	"inputpipe/internal/input"
)

// PhysicsConfig holds per-tick movement constants.
type PhysicsConfig struct {
	Accel        float64
	MaxSpeed     float64
	Friction     float64 // velocity multiplier with no direction held
	Gravity      float64
	JumpImpulse  float64
	Radius       float64
	RespawnTicks int
}

func DefaultPhysics() PhysicsConfig {
	return PhysicsConfig{
		Accel:        2,
		MaxSpeed:     10,
		Friction:     0.5,
		Gravity:      0.5,
		JumpImpulse:  13.2,
		Radius:       14,
		RespawnTicks: 25,
	}
}

// Body is the self entity.
type Body struct {
	Pos      geom.Vec2
	Vel      geom.Vec2
	Grounded bool
	Alive    bool

	jumpHeld  bool
	respawnIn int
}

// step advances b by one tick under cmd. Touching a hazard kills the body;
// it reappears at spawn after RespawnTicks.
func (b *Body) step(m *Map, cfg PhysicsConfig, cmd input.Command) {
	if !b.Alive {
		if b.respawnIn--; b.respawnIn <= 0 {
			*b = Body{Pos: m.Spawn, Alive: true}
		}
		return
	}

	if cmd.Direction != 0 {
		b.Vel.X += float64(cmd.Direction) * cfg.Accel
		b.Vel.X = math.Max(-cfg.MaxSpeed, math.Min(cfg.MaxSpeed, b.Vel.X))
	} else {
		b.Vel.X *= cfg.Friction
		if math.Abs(b.Vel.X) < 0.01 {
			b.Vel.X = 0
		}
	}

	jump := cmd.Jump != 0
	if jump && !b.jumpHeld && b.Grounded {
		b.Vel.Y = -cfg.JumpImpulse
	}
	b.jumpHeld = jump
	b.Vel.Y += cfg.Gravity

	// horizontal then vertical, each reverted on contact
	if b.Vel.X != 0 {
		nx := b.Pos.X + b.Vel.X
		edge := nx + float64(geom.Sign(b.Vel.X))*cfg.Radius
		if m.IsSolid(geom.V(edge, b.Pos.Y)) {
			b.Vel.X = 0
		} else {
			b.Pos.X = nx
		}
	}

	ny := b.Pos.Y + b.Vel.Y
	edge := ny + float64(geom.Sign(b.Vel.Y))*cfg.Radius
	if b.Vel.Y != 0 && m.IsSolid(geom.V(b.Pos.X, edge)) {
		b.Grounded = b.Vel.Y > 0
		b.Vel.Y = 0
	} else {
		b.Pos.Y = ny
		b.Grounded = false
	}

	if m.IsHazard(b.Pos) {
		b.Alive = false
		b.Vel = geom.Vec2{}
		b.respawnIn = cfg.RespawnTicks
	}
}

// Patrol walks back and forth between two points.
type Patrol struct {
	ID    int
	Team  int
	A, B  geom.Vec2
	Speed float64

	pos     geom.Vec2
	vel     geom.Vec2
	towardB bool
}

// NewPatrol starts at a heading for b.
func NewPatrol(id int, a, b geom.Vec2, speed float64) *Patrol {
	return &Patrol{ID: id, A: a, B: b, Speed: speed, pos: a, towardB: true}
}

func (p *Patrol) Pos() geom.Vec2 { return p.pos }
func (p *Patrol) Vel() geom.Vec2 { return p.vel }

func (p *Patrol) step() {
	goal := p.A
	if p.towardB {
		goal = p.B
	}
	d := goal.Sub(p.pos)
	if d.Len() <= p.Speed {
		p.vel = d
		p.pos = goal
		p.towardB = !p.towardB
		return
	}
	p.vel = d.Normalize().Scale(p.Speed)
	p.pos = p.pos.Add(p.vel)
}
