package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"inputpipe/internal/bridge"
	"inputpipe/internal/world"
)

func newPeerCmd(a *app) *cobra.Command {
	var (
		addr     string
		interval time.Duration
		duration time.Duration
	)
	cmd := &cobra.Command{
		Use:   "bridge-peer",
		Short: "Serve a test bridge peer that steers left and right",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Bridge.Address
			}
			p := bridge.NewPeer(addr, bridge.Alternating(interval), world.SystemClock{}, a.log)
			if err := p.Start(); err != nil {
				return err
			}
			defer p.Stop()
			fmt.Fprintf(cmd.OutOrStdout(), "bridge peer listening on %s\n", p.Addr())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				select {
				case <-ctx.Done():
				case <-time.After(duration):
				}
			} else {
				<-ctx.Done()
			}

			a.log.Info("bridge peer done", zap.Int64("observations", p.Observations()))
			fmt.Fprintf(cmd.OutOrStdout(), "observations: %d\n", p.Observations())
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default is bridge.address from config)")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "time between steering flips")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "stop after this long (0 runs until interrupted)")
	return cmd
}
