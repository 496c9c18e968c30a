package sandbox

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"inputpipe/internal/input"
	"inputpipe/internal/pipeline"
	"inputpipe/internal/world"
)

// Ticker is the part of the pipeline the runner drives.
type Ticker interface {
	Tick(dev input.Device, snap world.Snapshot) pipeline.Result
}

// RunnerStats counts what the loop has done so far.
type RunnerStats struct {
	Ticks     uint64 `json:"ticks"`
	Sent      uint64 `json:"sent"`
	Overrides uint64 `json:"overrides"`
	Deaths    uint64 `json:"deaths"`
}

// Runner steps the world and the pipeline together at a fixed rate.
type Runner struct {
	mu       sync.Mutex
	world    *World
	pipe     Ticker
	driver   Driver
	tickRate int
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}
	done     chan struct{}
	log      *zap.Logger

	// OnTick, when set, sees every result. Called on the loop goroutine.
	OnTick func(tick uint64, res pipeline.Result)

	ticks     atomic.Uint64
	sent      atomic.Uint64
	overrides atomic.Uint64
	deaths    atomic.Uint64
}

func NewRunner(w *World, pipe Ticker, driver Driver, tickRate int, log *zap.Logger) *Runner {
	if driver == nil {
		driver = Idle
	}
	if tickRate <= 0 {
		tickRate = 50
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		world:    w,
		pipe:     pipe,
		driver:   driver,
		tickRate: tickRate,
		log:      log.Named("sandbox"),
	}
}

// Step runs one tick synchronously. Do not call it while the loop runs.
func (r *Runner) Step() pipeline.Result {
	snap := r.world.Snapshot()
	tick := r.world.Tick()
	dev := r.driver(tick, snap)

	res := r.pipe.Tick(dev, snap)
	wasAlive := r.world.Self.Alive
	r.world.Step(res.Command)

	r.ticks.Add(1)
	if res.Send {
		r.sent.Add(1)
	}
	r.overrides.Add(uint64(len(res.Overrides)))
	if wasAlive && !r.world.Self.Alive {
		r.deaths.Add(1)
		r.log.Info("self died", zap.Uint64("tick", tick), zap.Any("pos", r.world.Self.Pos))
	}
	if r.OnTick != nil {
		r.OnTick(tick, res)
	}
	return res
}

// Start launches the fixed-rate loop.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.stopChan = make(chan struct{})
	r.done = make(chan struct{})
	r.ticker = time.NewTicker(time.Second / time.Duration(r.tickRate))

	go func() {
		defer close(r.done)
		for {
			select {
			case <-r.ticker.C:
				r.Step()
			case <-r.stopChan:
				return
			}
		}
	}()

	r.log.Info("sandbox started", zap.Int("tps", r.tickRate))
}

// Stop halts the loop and waits for the in-flight tick.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.running = false
	r.ticker.Stop()
	close(r.stopChan)
	<-r.done
	r.log.Info("sandbox stopped", zap.Uint64("ticks", r.ticks.Load()))
}

func (r *Runner) Stats() RunnerStats {
	return RunnerStats{
		Ticks:     r.ticks.Load(),
		Sent:      r.sent.Load(),
		Overrides: r.overrides.Load(),
		Deaths:    r.deaths.Load(),
	}
}
