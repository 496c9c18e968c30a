package input

import (
	"time"

	"inputpipe/internal/geom"
)

// Channel selects which controlled entity receives the command.
type Channel int

const (
	Primary Channel = iota
	Secondary
)

func (c Channel) String() string {
	if c == Secondary {
		return "secondary"
	}
	return "primary"
}

// Device is the raw human device state sampled at the start of a tick.
type Device struct {
	Left, Right  bool
	Jump, Hook   bool
	Fire         bool
	Mouse        geom.Vec2
	WantedWeapon int32
	NextWeapon   bool
	PrevWeapon   bool
	Flags        PlayerFlags
}

// BothDirections reports whether left and right are held together.
func (d Device) BothDirections() bool { return d.Left && d.Right }

// AnyDirection reports whether a direction key is held.
func (d Device) AnyDirection() bool { return d.Left || d.Right }

// TrackerConfig bounds the mouse and sets the resend heartbeat.
type TrackerConfig struct {
	MouseMinDistance float64
	MouseMaxDistance float64
	Heartbeat        time.Duration
}

// DefaultTrackerConfig matches the client's 25 Hz resend.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		MouseMinDistance: 0,
		MouseMaxDistance: 400,
		Heartbeat:        40 * time.Millisecond,
	}
}

type channelState struct {
	last     Command
	lastSent time.Time
	sent     bool
}

// Tracker seeds each tick's command from device state and remembers the last
// committed command per channel so edge counters carry over.
type Tracker struct {
	cfg      TrackerConfig
	active   Channel
	channels [2]channelState
}

func NewTracker(cfg TrackerConfig) *Tracker {
	return &Tracker{cfg: cfg}
}

func (t *Tracker) Active() Channel { return t.active }

// SetActive switches the channel that subsequent Seeds write to.
func (t *Tracker) SetActive(ch Channel) {
	if ch == Primary || ch == Secondary {
		t.active = ch
	}
}

// Last returns the last committed command for the active channel.
func (t *Tracker) Last() Command { return t.channels[t.active].last }

// Seed builds this tick's command from raw device input.
func (t *Tracker) Seed(dev Device) Command {
	prev := t.channels[t.active].last

	cmd := Command{
		Jump:         boolInt(dev.Jump),
		Hook:         boolInt(dev.Hook),
		Fire:         prev.Fire.Set(dev.Fire),
		WantedWeapon: dev.WantedWeapon,
		NextWeapon:   prev.NextWeapon.Set(dev.NextWeapon),
		PrevWeapon:   prev.PrevWeapon.Set(dev.PrevWeapon),
		PlayerFlags:  dev.Flags,
	}
	switch {
	case dev.Left && !dev.Right:
		cmd.Direction = -1
	case dev.Right && !dev.Left:
		cmd.Direction = 1
	}

	mouse := ClampMouse(dev.Mouse, t.cfg.MouseMinDistance, t.cfg.MouseMaxDistance)
	cmd.SetAim(mouse)
	cmd.ensureAim()

	if dev.Flags&FlagPlaying == 0 || dev.Flags.Busy() {
		cmd.Reset()
	}
	return cmd
}

// Commit stores cmd as the channel's last command and reports whether it
// should go out on the wire this tick: a relevant field changed, the
// heartbeat elapsed, or force is set.
func (t *Tracker) Commit(cmd *Command, now time.Time, force bool) bool {
	cmd.ensureAim()
	cmd.Fire = cmd.Fire.Masked()
	cmd.NextWeapon = cmd.NextWeapon.Masked()
	cmd.PrevWeapon = cmd.PrevWeapon.Masked()

	st := &t.channels[t.active]
	send := force || !st.sent || cmd.Differs(st.last) ||
		now.Sub(st.lastSent) >= t.cfg.Heartbeat

	st.last = *cmd
	if send {
		st.sent = true
		st.lastSent = now
	}
	return send
}
