// Package aim picks the best subject to aim at each tick and resolves a lead
// predicted, obstruction aware aim point for it.
package aim

import (
	"math"
	"slices"

	"go.uber.org/zap"

	"inputpipe/internal/geom"
	"inputpipe/internal/input"
	"inputpipe/internal/world"
)

// NoTarget is reported by TargetID when nothing is locked.
const NoTarget = -1

// Config tunes acquisition. Zero values are not meaningful; start from
// DefaultConfig.
type Config struct {
	FOV             float64 // degrees, full cone; <=0 or >=360 disables the check
	MeleeRange      float64
	ProjectileRange float64
	CrosshairWeight float64
	FallbackPenalty float64
	ProbeWidth      float64 // perpendicular offset of the two edge probes
}

func DefaultConfig() Config {
	return Config{
		FOV:             50,
		MeleeRange:      400,
		ProjectileRange: 800,
		CrosshairWeight: 3000,
		FallbackPenalty: 50,
		ProbeWidth:      3,
	}
}

// Offsets are tried around the lead position in priority order:
// center, body points, extremities, corners.
var Offsets = [...]geom.Vec2{
	{X: 0, Y: 0},
	{X: 0, Y: -10},
	{X: 0, Y: 10},
	{X: -10, Y: 0},
	{X: 10, Y: 0},
	{X: 0, Y: -24},
	{X: 0, Y: 24},
	{X: -24, Y: 0},
	{X: 24, Y: 0},
	{X: -20, Y: -20},
	{X: 20, Y: -20},
	{X: -20, Y: 20},
	{X: 20, Y: 20},
}

// Candidate is one scored subject. Recomputed every tick.
type Candidate struct {
	SubjectID int
	Score     float64
	AimPoint  geom.Vec2
	Clear     bool
}

// Engine is the target acquisition stage.
type Engine struct {
	cfg         Config
	terrain     world.Terrain
	affiliation world.Affiliation
	targetID    int
	log         *zap.Logger
}

func NewEngine(cfg Config, terrain world.Terrain, aff world.Affiliation, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		cfg:         cfg,
		terrain:     terrain,
		affiliation: aff,
		targetID:    NoTarget,
		log:         log,
	}
}

// TargetID is the subject locked on the last tick, or NoTarget.
func (e *Engine) TargetID() int { return e.targetID }

// Reset forgets the locked subject. Called when the stage is disabled.
func (e *Engine) Reset() { e.targetID = NoTarget }

func (e *Engine) FOV() float64 { return e.cfg.FOV }

// SetFOV changes the cone width in degrees.
func (e *Engine) SetFOV(deg float64) { e.cfg.FOV = deg }

// Range returns the engagement range for the held weapon.
func (e *Engine) Range(id world.WeaponID) float64 {
	if world.GetWeapon(id).Class == world.Projectile {
		return e.cfg.ProjectileRange
	}
	return e.cfg.MeleeRange
}

// minCos returns the cosine bound of the FOV half angle and whether the
// check is active at all.
func (e *Engine) minCos() (float64, bool) {
	if e.cfg.FOV <= 0 || e.cfg.FOV >= 360 {
		return 0, false
	}
	return math.Cos(e.cfg.FOV / 2 * math.Pi / 180), true
}

// Lead returns where a subject will be when a projectile fired now arrives.
func Lead(pos, vel geom.Vec2, distance, projectileSpeed float64) geom.Vec2 {
	if projectileSpeed <= 0 {
		return pos
	}
	return pos.Add(vel.Scale(distance / projectileSpeed))
}

// PathClear tests the center line from -> to and two parallel lines shifted
// by the probe width on either side.
func (e *Engine) PathClear(from, to geom.Vec2) bool {
	if e.terrain.Obstructed(from, to) {
		return false
	}
	perp := to.Sub(from).Normalize().Perp().Scale(e.cfg.ProbeWidth)
	if e.terrain.Obstructed(from.Add(perp), to.Add(perp)) {
		return false
	}
	return !e.terrain.Obstructed(from.Sub(perp), to.Sub(perp))
}

// ViablePoint returns the first offset around lead with a clear path.
func (e *Engine) ViablePoint(from, lead geom.Vec2) (geom.Vec2, bool) {
	for _, off := range Offsets {
		p := lead.Add(off)
		if e.PathClear(from, p) {
			return p, true
		}
	}
	return lead, false
}

// Acquire scores every eligible subject and returns the best. forward is the
// current aim direction and need not be normalized.
func (e *Engine) Acquire(self world.Self, subjects []world.Subject, forward geom.Vec2) (Candidate, bool) {
	maxRange := e.Range(self.Weapon)
	speed := world.GetWeapon(self.Weapon).ProjectileSpeed
	fwd := forward.Normalize()
	bound, fovOn := e.minCos()
	if fwd.IsZero() {
		fovOn = false
	}

	ordered := slices.Clone(subjects)
	slices.SortFunc(ordered, func(a, b world.Subject) int { return a.ID - b.ID })

	best := Candidate{SubjectID: NoTarget}
	found := false
	for _, sub := range ordered {
		if sub.ID == self.ID || !sub.Active {
			continue
		}
		if e.affiliation != nil && e.affiliation.Excluded(self.ID, sub.ID) {
			continue
		}

		dist := self.Pos.Distance(sub.Pos)
		if dist > maxRange {
			continue
		}
		dot := fwd.Dot(sub.Pos.Sub(self.Pos).Normalize())
		if fovOn && dot < bound {
			continue
		}

		lead := Lead(sub.Pos, sub.Vel, dist, speed)
		point, clear := e.ViablePoint(self.Pos, lead)

		score := (1-dot)*e.cfg.CrosshairWeight + dist
		if !clear {
			score += e.cfg.FallbackPenalty
		}
		if !found || score < best.Score {
			best = Candidate{SubjectID: sub.ID, Score: score, AimPoint: point, Clear: clear}
			found = true
		}
	}
	return best, found
}

// Apply runs acquisition for one tick and writes the aim into cmd. With no
// target the aim reverts to mouse, unless keepAim is set (the command is
// owned by macro playback).
func (e *Engine) Apply(cmd *input.Command, snap world.Snapshot, mouse geom.Vec2, keepAim bool) (Candidate, bool) {
	if !snap.Self.Alive {
		e.targetID = NoTarget
		return Candidate{SubjectID: NoTarget}, false
	}

	best, ok := e.Acquire(snap.Self, snap.Subjects, cmd.Aim())
	if !ok {
		if e.targetID != NoTarget {
			e.log.Debug("target lost", zap.Int("subject", e.targetID))
		}
		e.targetID = NoTarget
		if !keepAim {
			cmd.SetAim(mouse)
		}
		return best, false
	}

	if best.SubjectID != e.targetID {
		e.log.Debug("target locked",
			zap.Int("subject", best.SubjectID),
			zap.Float64("score", best.Score),
			zap.Bool("clear", best.Clear))
	}
	e.targetID = best.SubjectID
	cmd.SetAim(best.AimPoint.Sub(snap.Self.Pos))
	return best, true
}

// Locked reports whether the last tick found a target.
func (e *Engine) Locked() bool { return e.targetID != NoTarget }
