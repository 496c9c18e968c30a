package pipeline

import (
	"inputpipe/internal/assist"
	"inputpipe/internal/metrics"
)

// buildStages wires the stages in their fixed execution order.
func (p *Pipeline) buildStages() []Stage {
	return []Stage{
		stageFunc{"macro", p.macroStage},
		stageFunc{"aim", p.aimStage},
		stageFunc{"balance", p.balanceStage},
		stageFunc{"stack", p.stackStage},
		stageFunc{"wiggle", p.wiggleStage},
		stageFunc{"hazard", p.hazardStage},
		stageFunc{"follow", p.followStage},
		stageFunc{"bridge", p.bridgeStage},
	}
}

func (p *Pipeline) macroStage(f *Frame) bool {
	f.MacroPlaying = p.session.Override(&f.Command)
	return f.MacroPlaying
}

func (p *Pipeline) aimStage(f *Frame) bool {
	if !p.enabled[FeatureAim] {
		return false
	}
	best, ok := p.aim.Apply(&f.Command, f.Snapshot, f.RawAim, f.MacroPlaying)
	if ok {
		metrics.RecordTargetLock(best.Clear)
	}
	return ok
}

// The assists act on live key state, so they stand down during playback.

func (p *Pipeline) balanceStage(f *Frame) bool {
	if !p.enabled[FeatureBalance] || f.MacroPlaying {
		return false
	}
	return assist.Balance(p.cfg.Assist, &f.Command, f.Device, f.Snapshot.Self)
}

func (p *Pipeline) stackStage(f *Frame) bool {
	if !p.enabled[FeatureStack] || f.MacroPlaying {
		return false
	}
	return assist.Stack(p.cfg.Assist, &f.Command, f.Snapshot)
}

func (p *Pipeline) wiggleStage(f *Frame) bool {
	if !p.enabled[FeatureWiggle] || f.MacroPlaying {
		return false
	}
	return assist.Wiggle(&f.Command, f.Device, f.LastDirection)
}

func (p *Pipeline) hazardStage(f *Frame) bool {
	if !p.enabled[FeatureHazard] {
		return false
	}
	return p.hazard.Apply(&f.Command, f.Snapshot.Self)
}

func (p *Pipeline) followStage(f *Frame) bool {
	if !p.enabled[FeatureFollow] || f.MacroPlaying {
		return false
	}
	return p.follower.Apply(&f.Command, f.Snapshot, f.Tick)
}

func (p *Pipeline) bridgeStage(f *Frame) bool {
	if !p.enabled[FeatureBridge] || p.bridge == nil {
		return false
	}
	return p.bridge.Apply(&f.Command, f.Snapshot.Self, p.deps.Terrain)
}
