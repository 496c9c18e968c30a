// Package input models the per-tick control command and the raw device state
// it is seeded from.
package input

import "inputpipe/internal/geom"

// InputStateMask bounds every edge counter. Counters wrap inside it.
const InputStateMask = 0x3f

// EdgeCounter encodes a button as a monotonically incrementing counter.
// Odd = pressed, even = released. Each press or release is one increment.
type EdgeCounter int32

// Pressed reports whether the counter currently encodes a held button.
func (c EdgeCounter) Pressed() bool { return c&1 == 1 }

// Set returns the counter advanced by one edge if its parity disagrees with
// pressed, otherwise c unchanged.
func (c EdgeCounter) Set(pressed bool) EdgeCounter {
	if c.Pressed() == pressed {
		return c
	}
	return (c + 1) & InputStateMask
}

// Release is Set(false).
func (c EdgeCounter) Release() EdgeCounter { return c.Set(false) }

// Masked folds an arbitrary counter value back into range.
func (c EdgeCounter) Masked() EdgeCounter { return c & InputStateMask }

// PlayerFlags mirrors the client's player state bits.
type PlayerFlags int32

const (
	FlagPlaying PlayerFlags = 1 << iota
	FlagInMenu
	FlagChatting
	FlagScoreboard
)

// Busy reports whether the player is typing or in a menu.
func (f PlayerFlags) Busy() bool { return f&(FlagInMenu|FlagChatting) != 0 }

// Command is the single control command assembled per channel per tick.
// Stages mutate it in place; it is committed exactly once.
type Command struct {
	Direction    int32       `json:"direction"`
	Jump         int32       `json:"jump"`
	Hook         int32       `json:"hook"`
	Fire         EdgeCounter `json:"fire"`
	TargetX      int32       `json:"targetX"`
	TargetY      int32       `json:"targetY"`
	WantedWeapon int32       `json:"wantedWeapon"`
	NextWeapon   EdgeCounter `json:"nextWeapon"`
	PrevWeapon   EdgeCounter `json:"prevWeapon"`
	PlayerFlags  PlayerFlags `json:"playerFlags"`
}

// Aim returns the aim vector relative to the entity.
func (c Command) Aim() geom.Vec2 {
	return geom.V(float64(c.TargetX), float64(c.TargetY))
}

// SetAim stores v truncated toward zero.
func (c *Command) SetAim(v geom.Vec2) {
	c.TargetX = int32(v.X)
	c.TargetY = int32(v.Y)
}

// ensureAim keeps the aim vector non-zero; the server rejects a (0,0) target.
func (c *Command) ensureAim() {
	if c.TargetX == 0 && c.TargetY == 0 {
		c.TargetX = 1
	}
}

// Reset simulates releasing every movement and fire control. Aim is kept.
func (c *Command) Reset() {
	c.Direction = 0
	c.Jump = 0
	c.Hook = 0
	c.Fire = c.Fire.Release()
}

// Differs reports whether any field that the server acts on changed.
// Aim alone does not count; it rides along with the heartbeat.
func (c Command) Differs(o Command) bool {
	return c.Direction != o.Direction ||
		c.Jump != o.Jump ||
		c.Hook != o.Hook ||
		c.Fire != o.Fire ||
		c.WantedWeapon != o.WantedWeapon ||
		c.NextWeapon != o.NextWeapon ||
		c.PrevWeapon != o.PrevWeapon ||
		c.PlayerFlags != o.PlayerFlags
}

// ClampMouse keeps the mouse vector length inside [minLen, maxLen].
// A vector shorter than 0.001 becomes (0.001, 0).
func ClampMouse(v geom.Vec2, minLen, maxLen float64) geom.Vec2 {
	l := v.Len()
	if l < 0.001 {
		return geom.V(0.001, 0)
	}
	switch {
	case maxLen > 0 && l > maxLen:
		return v.Scale(maxLen / l)
	case l < minLen:
		return v.Scale(minLen / l)
	}
	return v
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
