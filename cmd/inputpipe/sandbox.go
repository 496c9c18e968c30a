package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"inputpipe/internal/metrics"
	"inputpipe/internal/pipeline"
	"inputpipe/internal/sandbox"
	"inputpipe/internal/statusapi"
	"inputpipe/internal/world"
)

type sandboxOptions struct {
	duration  time.Duration
	walk      int32
	jumpEvery uint64
	features  []string
}

func newSandboxCmd(a *app) *cobra.Command {
	opts := sandboxOptions{}
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Run the pipeline against the built-in tile world",
		Long: "Run the pipeline against the built-in tile world. The status API " +
			"and debug server start when enabled in config. Prints run statistics " +
			"as JSON on exit.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSandbox(ctx, cmd, a, opts)
		},
	}
	cmd.Flags().DurationVarP(&opts.duration, "duration", "d", 0, "stop after this long (0 runs until interrupted)")
	cmd.Flags().Int32Var(&opts.walk, "walk", 0, "walk direction for the driver: -1, 0 or 1")
	cmd.Flags().Uint64Var(&opts.jumpEvery, "jump-every", 0, "tap jump every N ticks while walking (0 never)")
	cmd.Flags().StringSliceVar(&opts.features, "feature", nil, "extra feature to enable at start (repeatable)")
	return cmd
}

func runSandbox(ctx context.Context, cmd *cobra.Command, a *app, opts sandboxOptions) error {
	if opts.walk < -1 || opts.walk > 1 {
		return fmt.Errorf("walk must be -1, 0 or 1, got %d", opts.walk)
	}
	pcfg := a.cfg.Pipeline()
	for _, name := range opts.features {
		f, err := pipeline.ParseFeature(name)
		if err != nil {
			return err
		}
		pcfg.Enabled = append(pcfg.Enabled, f)
	}

	m, err := sandbox.Parse(sandbox.DefaultLevel)
	if err != nil {
		return err
	}
	w := sandbox.NewWorld(m, sandbox.DefaultPhysics())
	pipe, err := pipeline.New(pcfg, pipeline.Deps{
		Terrain:     m,
		Affiliation: world.SameTeam(w.Teams()),
		Logger:      a.log,
	})
	if err != nil {
		return err
	}
	defer pipe.Close()

	var driver sandbox.Driver = sandbox.Idle
	if opts.walk != 0 {
		driver = sandbox.Walk(opts.walk, opts.jumpEvery)
	}
	runner := sandbox.NewRunner(w, pipe, driver, pcfg.TickRate, a.log)

	var status *statusapi.Server
	if a.cfg.Status.Enabled {
		status = statusapi.NewServer(a.cfg.Status, pipe, a.log)
		if err := status.Start(ctx); err != nil {
			return err
		}
	}

	debug := metrics.StartDebugServer(a.cfg.Debug, a.log.Named("debug"))

	runner.Start()
	if opts.duration > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(opts.duration):
		}
	} else {
		<-ctx.Done()
	}
	runner.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if status != nil {
		if err := status.Shutdown(shutdownCtx); err != nil {
			a.log.Warn("status server shutdown", zap.Error(err))
		}
	}
	if err := debug.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("debug server shutdown", zap.Error(err))
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(runner.Stats())
}
