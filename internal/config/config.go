// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for every stage's tunables.
//
// Defaults live in Default(). A config file, INPUTPIPE_* environment
// variables and .env (loaded by the CLI) override them through viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"inputpipe/internal/aim"
	"inputpipe/internal/assist"
	"inputpipe/internal/bridge"
	"inputpipe/internal/follow"
	"inputpipe/internal/hazard"
	"inputpipe/internal/input"
	"inputpipe/internal/metrics"
	"inputpipe/internal/pipeline"
)

// EnvPrefix is prepended to every environment override, e.g.
// INPUTPIPE_AIM_FOV=90.
const EnvPrefix = "INPUTPIPE"

var ErrInvalid = errors.New("invalid configuration")

// =============================================================================
// TICK & INPUT
// =============================================================================

// TickConfig controls the pipeline clock and the control queue.
type TickConfig struct {
	Rate      int `mapstructure:"rate"`       // ticks per second
	QueueSize int `mapstructure:"queue_size"` // pending control events before drops
}

// InputConfig bounds the mouse and sets the resend heartbeat.
type InputConfig struct {
	MouseMinDistance float64       `mapstructure:"mouse_min_distance"`
	MouseMaxDistance float64       `mapstructure:"mouse_max_distance"`
	Heartbeat        time.Duration `mapstructure:"heartbeat"`
}

// =============================================================================
// STAGES
// =============================================================================

// AimConfig configures target acquisition.
type AimConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	FOV             float64 `mapstructure:"fov"` // degrees; 0 or 360 disables the cone
	MeleeRange      float64 `mapstructure:"melee_range"`
	ProjectileRange float64 `mapstructure:"projectile_range"`
	CrosshairWeight float64 `mapstructure:"crosshair_weight"`
	FallbackPenalty float64 `mapstructure:"fallback_penalty"`
	ProbeWidth      float64 `mapstructure:"probe_width"`
}

// HazardConfig configures hazard avoidance.
type HazardConfig struct {
	Enabled        bool      `mapstructure:"enabled"`
	Margin         float64   `mapstructure:"margin"`
	Horizons       []float64 `mapstructure:"horizons"` // ticks
	Offsets        []float64 `mapstructure:"offsets"`
	BrakeSpeed     float64   `mapstructure:"brake_speed"`
	SettleSpeed    float64   `mapstructure:"settle_speed"`
	WallOffset     float64   `mapstructure:"wall_offset"`
	ClimbVelocityY float64   `mapstructure:"climb_velocity_y"`
}

// FollowConfig configures the trajectory follower. A zero window means five
// seconds at the tick rate.
type FollowConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	WindowTicks  int     `mapstructure:"window_ticks"`
	Lookahead    int     `mapstructure:"lookahead"`
	DeadZone     float64 `mapstructure:"dead_zone"`
	JumpHeight   float64 `mapstructure:"jump_height"`
	HookDistance float64 `mapstructure:"hook_distance"`
}

// AssistConfig configures the movement assists.
type AssistConfig struct {
	Balance          bool    `mapstructure:"balance"`
	Stack            bool    `mapstructure:"stack"`
	Wiggle           bool    `mapstructure:"wiggle"`
	BalanceThreshold float64 `mapstructure:"balance_threshold"`
	StackScanX       float64 `mapstructure:"stack_scan_x"`
	StackAboveTol    float64 `mapstructure:"stack_above_tol"`
}

// MacroConfig configures macro persistence.
type MacroConfig struct {
	Dir          string `mapstructure:"dir"`
	TruncateStep int    `mapstructure:"truncate_step"`
}

// BridgeConfig configures the external controller link.
type BridgeConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Address      string        `mapstructure:"address"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	IOTimeout    time.Duration `mapstructure:"io_timeout"`
}

// =============================================================================
// SURFACES
// =============================================================================

// StatusConfig configures the HUD status API.
type StatusConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	ListenAddr        string        `mapstructure:"listen_addr"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	RateLimit         float64       `mapstructure:"rate_limit"` // requests per second per IP
	RateBurst         int           `mapstructure:"rate_burst"`
	BroadcastInterval time.Duration `mapstructure:"broadcast_interval"`
	MaxClients        int           `mapstructure:"max_clients"`
}

// LogConfig configures zap and file rotation.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // console or json
	File       string `mapstructure:"file"`   // empty disables the file core
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	AddCaller  bool   `mapstructure:"add_caller"`
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// Config holds the complete application configuration.
type Config struct {
	Tick   TickConfig          `mapstructure:"tick"`
	Input  InputConfig         `mapstructure:"input"`
	Aim    AimConfig           `mapstructure:"aim"`
	Hazard HazardConfig        `mapstructure:"hazard"`
	Follow FollowConfig        `mapstructure:"follow"`
	Assist AssistConfig        `mapstructure:"assist"`
	Macro  MacroConfig         `mapstructure:"macro"`
	Bridge BridgeConfig        `mapstructure:"bridge"`
	Status StatusConfig        `mapstructure:"status"`
	Debug  metrics.DebugConfig `mapstructure:"debug"`
	Log    LogConfig           `mapstructure:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	tracker := input.DefaultTrackerConfig()
	a := aim.DefaultConfig()
	h := hazard.DefaultConfig()
	f := follow.DefaultConfig(50)
	as := assist.DefaultConfig()
	b := bridge.DefaultConfig()

	return Config{
		Tick: TickConfig{
			Rate:      50,
			QueueSize: 64,
		},
		Input: InputConfig{
			MouseMinDistance: tracker.MouseMinDistance,
			MouseMaxDistance: tracker.MouseMaxDistance,
			Heartbeat:        tracker.Heartbeat,
		},
		Aim: AimConfig{
			Enabled:         true,
			FOV:             a.FOV,
			MeleeRange:      a.MeleeRange,
			ProjectileRange: a.ProjectileRange,
			CrosshairWeight: a.CrosshairWeight,
			FallbackPenalty: a.FallbackPenalty,
			ProbeWidth:      a.ProbeWidth,
		},
		Hazard: HazardConfig{
			Enabled:        true,
			Margin:         h.Margin,
			Horizons:       h.Horizons,
			Offsets:        h.Offsets,
			BrakeSpeed:     h.BrakeSpeed,
			SettleSpeed:    h.SettleSpeed,
			WallOffset:     h.WallOffset,
			ClimbVelocityY: h.ClimbVelocityY,
		},
		Follow: FollowConfig{
			Lookahead:    f.Lookahead,
			DeadZone:     f.DeadZone,
			JumpHeight:   f.JumpHeight,
			HookDistance: f.HookDistance,
		},
		Assist: AssistConfig{
			BalanceThreshold: as.BalanceThreshold,
			StackScanX:       as.StackScanX,
			StackAboveTol:    as.StackAboveTol,
		},
		Macro: MacroConfig{
			Dir:          ".",
			TruncateStep: 5,
		},
		Bridge: BridgeConfig{
			Address:      b.Address,
			PollInterval: b.PollInterval,
			DialTimeout:  b.DialTimeout,
			IOTimeout:    b.IOTimeout,
		},
		Status: StatusConfig{
			Enabled:           true,
			ListenAddr:        "127.0.0.1:8088",
			AllowedOrigins:    []string{"http://localhost:*", "http://127.0.0.1:*"},
			RateLimit:         10,
			RateBurst:         20,
			BroadcastInterval: 100 * time.Millisecond, // 10 Hz HUD
			MaxClients:        16,
		},
		Debug: metrics.DefaultDebugConfig(),
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     14,
		},
	}
}

// SetDefaults registers every key of Default() so environment overrides are
// picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Default()

	// -- Tick & input --
	v.SetDefault("tick.rate", d.Tick.Rate)
	v.SetDefault("tick.queue_size", d.Tick.QueueSize)
	v.SetDefault("input.mouse_min_distance", d.Input.MouseMinDistance)
	v.SetDefault("input.mouse_max_distance", d.Input.MouseMaxDistance)
	v.SetDefault("input.heartbeat", d.Input.Heartbeat)

	// -- Aim --
	v.SetDefault("aim.enabled", d.Aim.Enabled)
	v.SetDefault("aim.fov", d.Aim.FOV)
	v.SetDefault("aim.melee_range", d.Aim.MeleeRange)
	v.SetDefault("aim.projectile_range", d.Aim.ProjectileRange)
	v.SetDefault("aim.crosshair_weight", d.Aim.CrosshairWeight)
	v.SetDefault("aim.fallback_penalty", d.Aim.FallbackPenalty)
	v.SetDefault("aim.probe_width", d.Aim.ProbeWidth)

	// -- Hazard --
	v.SetDefault("hazard.enabled", d.Hazard.Enabled)
	v.SetDefault("hazard.margin", d.Hazard.Margin)
	v.SetDefault("hazard.horizons", d.Hazard.Horizons)
	v.SetDefault("hazard.offsets", d.Hazard.Offsets)
	v.SetDefault("hazard.brake_speed", d.Hazard.BrakeSpeed)
	v.SetDefault("hazard.settle_speed", d.Hazard.SettleSpeed)
	v.SetDefault("hazard.wall_offset", d.Hazard.WallOffset)
	v.SetDefault("hazard.climb_velocity_y", d.Hazard.ClimbVelocityY)

	// -- Follow --
	v.SetDefault("follow.enabled", d.Follow.Enabled)
	v.SetDefault("follow.window_ticks", d.Follow.WindowTicks)
	v.SetDefault("follow.lookahead", d.Follow.Lookahead)
	v.SetDefault("follow.dead_zone", d.Follow.DeadZone)
	v.SetDefault("follow.jump_height", d.Follow.JumpHeight)
	v.SetDefault("follow.hook_distance", d.Follow.HookDistance)

	// -- Assists --
	v.SetDefault("assist.balance", d.Assist.Balance)
	v.SetDefault("assist.stack", d.Assist.Stack)
	v.SetDefault("assist.wiggle", d.Assist.Wiggle)
	v.SetDefault("assist.balance_threshold", d.Assist.BalanceThreshold)
	v.SetDefault("assist.stack_scan_x", d.Assist.StackScanX)
	v.SetDefault("assist.stack_above_tol", d.Assist.StackAboveTol)

	// -- Macro --
	v.SetDefault("macro.dir", d.Macro.Dir)
	v.SetDefault("macro.truncate_step", d.Macro.TruncateStep)

	// -- Bridge --
	v.SetDefault("bridge.enabled", d.Bridge.Enabled)
	v.SetDefault("bridge.address", d.Bridge.Address)
	v.SetDefault("bridge.poll_interval", d.Bridge.PollInterval)
	v.SetDefault("bridge.dial_timeout", d.Bridge.DialTimeout)
	v.SetDefault("bridge.io_timeout", d.Bridge.IOTimeout)

	// -- Status API --
	v.SetDefault("status.enabled", d.Status.Enabled)
	v.SetDefault("status.listen_addr", d.Status.ListenAddr)
	v.SetDefault("status.allowed_origins", d.Status.AllowedOrigins)
	v.SetDefault("status.rate_limit", d.Status.RateLimit)
	v.SetDefault("status.rate_burst", d.Status.RateBurst)
	v.SetDefault("status.broadcast_interval", d.Status.BroadcastInterval)
	v.SetDefault("status.max_clients", d.Status.MaxClients)

	// -- Debug server --
	v.SetDefault("debug.enabled", d.Debug.Enabled)
	v.SetDefault("debug.listen_addr", d.Debug.ListenAddr)
	v.SetDefault("debug.allow_external", d.Debug.AllowExternal)
	v.SetDefault("debug.basic_auth_user", d.Debug.BasicAuthUser)
	v.SetDefault("debug.basic_auth_pass", d.Debug.BasicAuthPass)

	// -- Logging --
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size", d.Log.MaxSize)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age", d.Log.MaxAge)
	v.SetDefault("log.compress", d.Log.Compress)
	v.SetDefault("log.add_caller", d.Log.AddCaller)
}

// Configure prepares v: defaults, environment binding and the optional
// config file. A missing file at the default search path is not an error; an
// explicit path that cannot be read is.
func Configure(v *viper.Viper, path string) error {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("inputpipe")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// FromViper unmarshals and validates a configured viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load returns the complete configuration with file and environment
// overrides applied, using a private viper instance.
func Load(path string) (Config, error) {
	v := viper.New()
	if err := Configure(v, path); err != nil {
		return Config{}, err
	}
	return FromViper(v)
}

// Validate checks the values that would otherwise break a stage at runtime.
func (c Config) Validate() error {
	switch {
	case c.Tick.Rate <= 0:
		return fmt.Errorf("%w: tick.rate must be positive", ErrInvalid)
	case c.Aim.FOV < 0 || c.Aim.FOV > 360:
		return fmt.Errorf("%w: aim.fov must be within [0, 360]", ErrInvalid)
	case len(c.Hazard.Horizons) == 0:
		return fmt.Errorf("%w: hazard.horizons must not be empty", ErrInvalid)
	case c.Macro.TruncateStep <= 0:
		return fmt.Errorf("%w: macro.truncate_step must be positive", ErrInvalid)
	case c.Bridge.PollInterval <= 0:
		return fmt.Errorf("%w: bridge.poll_interval must be positive", ErrInvalid)
	case c.Status.BroadcastInterval <= 0:
		return fmt.Errorf("%w: status.broadcast_interval must be positive", ErrInvalid)
	}
	return nil
}

// Features lists the stages switched on at startup.
func (c Config) Features() []pipeline.Feature {
	var out []pipeline.Feature
	for _, f := range []struct {
		on      bool
		feature pipeline.Feature
	}{
		{c.Aim.Enabled, pipeline.FeatureAim},
		{c.Assist.Balance, pipeline.FeatureBalance},
		{c.Assist.Stack, pipeline.FeatureStack},
		{c.Assist.Wiggle, pipeline.FeatureWiggle},
		{c.Hazard.Enabled, pipeline.FeatureHazard},
		{c.Follow.Enabled, pipeline.FeatureFollow},
		{c.Bridge.Enabled, pipeline.FeatureBridge},
	} {
		if f.on {
			out = append(out, f.feature)
		}
	}
	return out
}

// Pipeline converts the loaded sections into the pipeline's configuration.
func (c Config) Pipeline() pipeline.Config {
	pc := pipeline.DefaultConfig()
	pc.TickRate = c.Tick.Rate
	pc.QueueSize = c.Tick.QueueSize
	pc.MacroDir = c.Macro.Dir
	pc.TruncateStep = c.Macro.TruncateStep
	pc.Enabled = c.Features()

	pc.Tracker = input.TrackerConfig{
		MouseMinDistance: c.Input.MouseMinDistance,
		MouseMaxDistance: c.Input.MouseMaxDistance,
		Heartbeat:        c.Input.Heartbeat,
	}
	pc.Aim = aim.Config{
		FOV:             c.Aim.FOV,
		MeleeRange:      c.Aim.MeleeRange,
		ProjectileRange: c.Aim.ProjectileRange,
		CrosshairWeight: c.Aim.CrosshairWeight,
		FallbackPenalty: c.Aim.FallbackPenalty,
		ProbeWidth:      c.Aim.ProbeWidth,
	}
	pc.Hazard = hazard.Config{
		Margin:         c.Hazard.Margin,
		Horizons:       c.Hazard.Horizons,
		Offsets:        c.Hazard.Offsets,
		BrakeSpeed:     c.Hazard.BrakeSpeed,
		SettleSpeed:    c.Hazard.SettleSpeed,
		WallOffset:     c.Hazard.WallOffset,
		ClimbVelocityY: c.Hazard.ClimbVelocityY,
	}

	pc.Follow = follow.DefaultConfig(c.Tick.Rate)
	if c.Follow.WindowTicks > 0 {
		pc.Follow.WindowTicks = c.Follow.WindowTicks
	}
	pc.Follow.Lookahead = c.Follow.Lookahead
	pc.Follow.DeadZone = c.Follow.DeadZone
	pc.Follow.JumpHeight = c.Follow.JumpHeight
	pc.Follow.HookDistance = c.Follow.HookDistance

	pc.Assist.BalanceThreshold = c.Assist.BalanceThreshold
	pc.Assist.StackScanX = c.Assist.StackScanX
	pc.Assist.StackAboveTol = c.Assist.StackAboveTol

	pc.Bridge = bridge.Config{
		Address:      c.Bridge.Address,
		PollInterval: c.Bridge.PollInterval,
		DialTimeout:  c.Bridge.DialTimeout,
		IOTimeout:    c.Bridge.IOTimeout,
	}
	return pc
}

// TickInterval is the wall-clock period of one tick.
func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.Tick.Rate)
}
