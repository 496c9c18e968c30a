// Package pipeline assembles the per-tick command: it seeds it from raw
// device input, runs every enabled stage in a fixed order, commits it and
// feeds the macro recorder.
//
// Stage order (later stages may overwrite fields written earlier):
//
//	macro > aim > balance > stack > wiggle > hazard > follow > bridge
package pipeline

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"inputpipe/internal/aim"
	"inputpipe/internal/assist"
	"inputpipe/internal/bridge"
	"inputpipe/internal/follow"
	"inputpipe/internal/hazard"
	"inputpipe/internal/input"
	"inputpipe/internal/macro"
	"inputpipe/internal/metrics"
	"inputpipe/internal/world"
)

// Config bundles every stage's configuration.
type Config struct {
	TickRate     int
	QueueSize    int
	MacroDir     string
	TruncateStep int
	Enabled      []Feature

	Tracker input.TrackerConfig
	Aim     aim.Config
	Hazard  hazard.Config
	Follow  follow.Config
	Assist  assist.Config
	Bridge  bridge.Config
}

// DefaultConfig runs at 50 Hz with acquisition and hazard avoidance on.
func DefaultConfig() Config {
	return Config{
		TickRate:     50,
		QueueSize:    64,
		TruncateStep: 5,
		Enabled:      []Feature{FeatureAim, FeatureHazard},
		Tracker:      input.DefaultTrackerConfig(),
		Aim:          aim.DefaultConfig(),
		Hazard:       hazard.DefaultConfig(),
		Follow:       follow.DefaultConfig(50),
		Assist:       assist.DefaultConfig(),
		Bridge:       bridge.DefaultConfig(),
	}
}

// Deps are the external collaborators.
type Deps struct {
	Terrain     world.Terrain
	Affiliation world.Affiliation
	Clock       world.Clock
	Dialer      bridge.Dialer
	Logger      *zap.Logger
}

// Result is what the caller ships to the network layer.
type Result struct {
	Command   input.Command
	Send      bool
	Overrides []string
}

// Pipeline owns every stage and their transient state. Tick and Close must
// be called from one goroutine; Enqueue and Status are safe from any.
type Pipeline struct {
	cfg  Config
	deps Deps
	log  *zap.Logger

	tracker  *input.Tracker
	session  *macro.Session
	aim      *aim.Engine
	hazard   *hazard.Controller
	follower *follow.Follower
	bridge   *bridge.Bridge

	enabled map[Feature]bool
	stages  []Stage
	events  *EventQueue

	tick    uint64
	message string
	status  atomic.Pointer[Status]
}

var ErrNoTerrain = errors.New("pipeline: terrain is required")

// New builds a pipeline. Terrain is mandatory; every other dependency has a
// default.
func New(cfg Config, deps Deps) (*Pipeline, error) {
	if deps.Terrain == nil {
		return nil, ErrNoTerrain
	}
	if deps.Clock == nil {
		deps.Clock = world.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.TruncateStep <= 0 {
		cfg.TruncateStep = 5
	}
	log := deps.Logger.Named("pipeline")

	p := &Pipeline{
		cfg:      cfg,
		deps:     deps,
		log:      log,
		tracker:  input.NewTracker(cfg.Tracker),
		session:  macro.NewSession(macro.Store{Dir: cfg.MacroDir}, log.Named("macro")),
		aim:      aim.NewEngine(cfg.Aim, deps.Terrain, deps.Affiliation, log.Named("aim")),
		hazard:   hazard.NewController(cfg.Hazard, deps.Terrain, log.Named("hazard")),
		follower: follow.NewFollower(cfg.Follow, log.Named("follow")),
		enabled:  make(map[Feature]bool),
		events:   NewEventQueue(cfg.QueueSize),
	}
	for _, f := range cfg.Enabled {
		p.setFeature(f, true)
	}
	p.stages = p.buildStages()
	p.publish()
	return p, nil
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Events exposes the control queue.
func (p *Pipeline) Events() *EventQueue { return p.events }

// Enqueue schedules a control event for the next tick.
func (p *Pipeline) Enqueue(ev Event) bool { return p.events.Enqueue(ev) }

// Status returns the snapshot published after the last tick.
func (p *Pipeline) Status() Status { return *p.status.Load() }

// Enabled reports whether a feature is on.
func (p *Pipeline) Enabled(f Feature) bool { return p.enabled[f] }

// Macro exposes the record/playback session.
func (p *Pipeline) Macro() *macro.Session { return p.session }

// Tick assembles, commits and returns this tick's command.
func (p *Pipeline) Tick(dev input.Device, snap world.Snapshot) Result {
	started := time.Now()
	p.events.Drain(p.handle)
	p.tick++

	cmd := p.tracker.Seed(dev)
	f := Frame{
		Tick:          p.tick,
		Now:           p.deps.Clock.Now(),
		Snapshot:      snap,
		Device:        dev,
		Command:       cmd,
		RawAim:        cmd.Aim(),
		LastDirection: p.tracker.Last().Direction,
	}

	var overrides []string
	for _, s := range p.stages {
		if s.Apply(&f) {
			overrides = append(overrides, s.Name())
			metrics.RecordOverride(s.Name())
		}
	}

	send := p.tracker.Commit(&f.Command, f.Now, f.MacroPlaying)
	// a replayed tick is never recorded, even when takeover has just
	// switched the session to Recording
	if !f.MacroPlaying {
		p.session.Capture(f.Command, snap.Self)
	}
	if send {
		metrics.RecordSend()
	}

	metrics.UpdateMacro(int(p.session.State()), p.session.Len())
	metrics.RecordTick(time.Since(started))
	p.publish()

	return Result{Command: f.Command, Send: send, Overrides: overrides}
}

// Close releases the bridge socket.
func (p *Pipeline) Close() error {
	if p.bridge == nil {
		return nil
	}
	err := p.bridge.Close()
	p.bridge = nil
	return err
}

func (p *Pipeline) setFeature(f Feature, on bool) {
	if _, err := ParseFeature(string(f)); err != nil {
		p.log.Warn("ignoring feature", zap.Error(err))
		return
	}
	if p.enabled[f] == on {
		return
	}
	p.enabled[f] = on

	switch f {
	case FeatureAim:
		if !on {
			p.aim.Reset()
		}
	case FeatureFollow:
		p.follower.Reset()
	case FeatureBridge:
		if on {
			p.bridge = bridge.New(p.cfg.Bridge, p.deps.Dialer, p.deps.Clock, p.log.Named("bridge"))
		} else if p.bridge != nil {
			if err := p.bridge.Close(); err != nil {
				p.log.Debug("bridge close", zap.Error(err))
			}
			p.bridge = nil
		}
	}
	p.log.Info("feature toggled", zap.String("feature", string(f)), zap.Bool("enabled", on))
}

// handle applies one control event on the tick thread.
func (p *Pipeline) handle(ev Event) {
	switch ev.Kind {
	case EventSetFeature:
		p.setFeature(ev.Feature, ev.Enabled)
		p.message = featureMessage(ev.Feature, ev.Enabled)
	case EventToggleFeature:
		on := !p.enabled[ev.Feature]
		p.setFeature(ev.Feature, on)
		p.message = featureMessage(ev.Feature, on)
	case EventMacroRecord:
		p.message = p.session.ToggleRecord()
	case EventMacroPause:
		if msg := p.session.TogglePause(); msg != "" {
			p.message = msg
		}
	case EventMacroPlay:
		p.message = p.session.TogglePlay(false)
	case EventMacroTakeover:
		p.message = p.session.TogglePlay(true)
	case EventMacroTruncate:
		n := ev.Count
		if n <= 0 {
			n = p.cfg.TruncateStep
		}
		if removed := p.session.Truncate(n); removed > 0 {
			p.message = fmt.Sprintf("Removed %d frames (%d left)", removed, p.session.Len())
		}
	case EventMacroSave:
		p.message = p.fileResult(p.session.Save(ev.Name))
	case EventMacroLoad:
		p.message = p.fileResult(p.session.Load(ev.Name))
	case EventSetFOV:
		p.aim.SetFOV(ev.Value)
		p.message = fmt.Sprintf("FOV set to %.0f", ev.Value)
	case EventSetChannel:
		p.tracker.SetActive(input.Channel(ev.Count))
		p.message = "Controlling " + p.tracker.Active().String()
	default:
		p.log.Warn("unknown event", zap.String("kind", string(ev.Kind)))
	}
}

func (p *Pipeline) fileResult(msg string, err error) string {
	if err != nil {
		p.log.Warn("macro file operation failed", zap.Error(err))
		return err.Error()
	}
	return msg
}

func featureMessage(f Feature, on bool) string {
	if on {
		return string(f) + " on"
	}
	return string(f) + " off"
}
