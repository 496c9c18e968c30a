package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"inputpipe/internal/geom"
	"inputpipe/internal/macro"
	"inputpipe/internal/overlay"
)

func newMacroCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "macro",
		Short: "Inspect and render recorded macro files",
	}
	cmd.AddCommand(newMacroInspectCmd(a), newMacroRenderCmd(a))
	return cmd
}

func newMacroInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print a JSON summary of a macro file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frames, err := macro.ReadFile(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(macro.Summarize(frames, a.cfg.Tick.Rate))
		},
	}
}

type renderOptions struct {
	out    string
	width  int
	height int
	target string
}

func newMacroRenderCmd(a *app) *cobra.Command {
	opts := renderOptions{}
	def := overlay.DefaultOptions()
	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Draw the recorded path to a PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ro := overlay.DefaultOptions()
			ro.Width, ro.Height = opts.width, opts.height
			if opts.target != "" {
				t, err := parseVec(opts.target)
				if err != nil {
					return fmt.Errorf("invalid --target: %w", err)
				}
				ro.Target = &t
			}

			frames, err := macro.ReadFile(args[0])
			if err != nil {
				return err
			}
			f, err := os.Create(opts.out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", opts.out, err)
			}
			if err := overlay.WritePNG(f, frames, ro); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			a.log.Info("rendered macro", zap.String("file", args[0]),
				zap.String("out", opts.out), zap.Int("frames", len(frames)))
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", opts.out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.out, "out", "o", "macro.png", "output PNG path")
	cmd.Flags().IntVar(&opts.width, "width", def.Width, "image width in pixels")
	cmd.Flags().IntVar(&opts.height, "height", def.Height, "image height in pixels")
	cmd.Flags().StringVar(&opts.target, "target", "", "mark a world position, as x,y")
	return cmd
}

func parseVec(s string) (geom.Vec2, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return geom.Vec2{}, fmt.Errorf("expected x,y, got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return geom.Vec2{}, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return geom.Vec2{}, err
	}
	return geom.V(x, y), nil
}
