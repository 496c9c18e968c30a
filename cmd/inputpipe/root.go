package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"inputpipe/internal/config"
	"inputpipe/internal/logging"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

// app carries what PersistentPreRunE prepares for the subcommands.
type app struct {
	cfgFile string
	cfg     config.Config
	log     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{log: zap.NewNop()}

	root := &cobra.Command{
		Use:           "inputpipe",
		Short:         "Per-tick input pipeline with macros, aim, hazard avoidance and following",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync(a.log)
		},
	}
	root.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./inputpipe.yaml)")

	root.AddCommand(
		newSandboxCmd(a),
		newMacroCmd(a),
		newPeerCmd(a),
	)
	return root
}

func (a *app) init() error {
	if err := loadDotenv("../.env", ".env"); err != nil {
		return err
	}

	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	// stdout belongs to command output
	log, err := logging.NewWithWriter(cfg.Log, zapcore.Lock(os.Stderr))
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	a.log = log
	a.log.Debug("config loaded", zap.String("file", a.cfgFile), zap.String("version", Version))
	return nil
}

// loadDotenv loads the first env file that exists. Missing files are fine.
func loadDotenv(paths ...string) error {
	for _, p := range paths {
		err := godotenv.Load(p)
		if err == nil {
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}
