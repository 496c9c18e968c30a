package follow

import (
	"math"
	"slices"

	"go.uber.org/zap"

	"inputpipe/internal/geom"
	"inputpipe/internal/input"
	"inputpipe/internal/world"
)

// NoSubject is reported by TrackedID when nobody is followed.
const NoSubject = -1

type Config struct {
	WindowTicks  int     // history length in ticks (5 s at the tick rate)
	Lookahead    int     // entries ahead of the nearest point
	DeadZone     float64 // horizontal distance treated as "arrived"
	JumpHeight   float64 // target this far above triggers a jump
	HookDistance float64
}

// DefaultConfig sizes the window for tickRate ticks per second.
func DefaultConfig(tickRate int) Config {
	return Config{
		WindowTicks:  5 * tickRate,
		Lookahead:    10,
		DeadZone:     10,
		JumpHeight:   20,
		HookDistance: 100,
	}
}

// Follower is the trajectory following stage.
type Follower struct {
	cfg     Config
	history *History
	tracked int
	log     *zap.Logger
}

func NewFollower(cfg Config, log *zap.Logger) *Follower {
	if log == nil {
		log = zap.NewNop()
	}
	return &Follower{
		cfg:     cfg,
		history: NewHistory(cfg.WindowTicks),
		tracked: NoSubject,
		log:     log,
	}
}

func (f *Follower) TrackedID() int { return f.tracked }
func (f *Follower) History() *History { return f.history }

// Reset drops the tracked subject and its history.
func (f *Follower) Reset() {
	f.tracked = NoSubject
	f.history.Clear()
}

// selectSubject picks the first active non-self subject by ascending id.
func selectSubject(selfID int, subjects []world.Subject) (world.Subject, bool) {
	ordered := slices.Clone(subjects)
	slices.SortFunc(ordered, func(a, b world.Subject) int { return a.ID - b.ID })
	for _, s := range ordered {
		if s.ID != selfID && s.Active {
			return s, true
		}
	}
	return world.Subject{}, false
}

// Target returns the steering target for pos: the point Lookahead entries
// past the nearest history point, clamped to the newest.
func (f *Follower) Target(pos geom.Vec2) (geom.Vec2, bool) {
	i := f.history.Nearest(pos)
	if i < 0 {
		return geom.Vec2{}, false
	}
	i = min(i+f.cfg.Lookahead, f.history.Len()-1)
	return f.history.At(i).Pos, true
}

// Apply records the tracked subject and steers cmd toward its path.
// Reports whether it produced an override.
func (f *Follower) Apply(cmd *input.Command, snap world.Snapshot, tick uint64) bool {
	if !snap.Self.Alive {
		f.Reset()
		return false
	}

	sub, ok := snap.Subject(f.tracked)
	if f.tracked == NoSubject || !ok || !sub.Active {
		f.history.Clear()
		f.tracked = NoSubject
		sub, ok = selectSubject(snap.Self.ID, snap.Subjects)
		if !ok {
			return false
		}
		f.tracked = sub.ID
		f.log.Info("following subject", zap.Int("subject", sub.ID))
	}

	f.history.Push(Point{Tick: tick, Pos: sub.Pos})

	target, ok := f.Target(snap.Self.Pos)
	if !ok {
		return false
	}
	f.steer(cmd, snap.Self.Pos, target)
	return true
}

func (f *Follower) steer(cmd *input.Command, me, target geom.Vec2) {
	dx := target.X - me.X
	cmd.Direction = 0
	if math.Abs(dx) > f.cfg.DeadZone {
		cmd.Direction = geom.Sign(dx)
	}

	cmd.Jump = 0
	if target.Y < me.Y-f.cfg.JumpHeight {
		cmd.Jump = 1
	}

	cmd.Hook = 0
	if me.Distance(target) > f.cfg.HookDistance && target.Y < me.Y {
		cmd.Hook = 1
	}

	cmd.SetAim(target.Sub(me))
}
