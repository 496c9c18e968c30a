package pipeline

import (
	"inputpipe/internal/aim"
	"inputpipe/internal/follow"
)

// MacroStatus is the HUD view of the macro engine.
type MacroStatus struct {
	State  string `json:"state"`
	Frames int    `json:"frames"`
	Index  int    `json:"index"`
}

// Status is an immutable snapshot published after every tick.
type Status struct {
	Tick            uint64      `json:"tick"`
	Features        []Feature   `json:"features"` // enabled, HUD order
	Macro           MacroStatus `json:"macro"`
	TargetID        int         `json:"targetId"`
	FollowID        int         `json:"followId"`
	BridgeConnected bool        `json:"bridgeConnected"`
	FOV             float64     `json:"fov"`
	Channel         string      `json:"channel"`
	Message         string      `json:"message,omitempty"`
	Queue           QueueStats  `json:"queue"`
}

// Locked reports whether acquisition holds a target.
func (s Status) Locked() bool { return s.TargetID != aim.NoTarget }

// Following reports whether the follower tracks a subject.
func (s Status) Following() bool { return s.FollowID != follow.NoSubject }

func (p *Pipeline) publish() {
	st := &Status{
		Tick:     p.tick,
		Features: []Feature{},
		Macro: MacroStatus{
			State:  p.session.State().String(),
			Frames: p.session.Len(),
			Index:  p.session.Index(),
		},
		TargetID:        p.aim.TargetID(),
		FollowID:        p.follower.TrackedID(),
		BridgeConnected: p.bridge != nil && p.bridge.Connected(),
		FOV:             p.aim.FOV(),
		Channel:         p.tracker.Active().String(),
		Message:         p.message,
		Queue:           p.events.Stats(),
	}
	for _, f := range AllFeatures {
		if p.enabled[f] {
			st.Features = append(st.Features, f)
		}
	}
	p.status.Store(st)
}
