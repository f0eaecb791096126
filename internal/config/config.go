package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/communitylab/rating-engine/internal/scoring"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	envPrefix             = "RATING"
	defaultHTTPAddress    = "0.0.0.0:8085"
	defaultDatabasePath   = "rating.db"
	defaultLogLevel       = "info"
	defaultSnapshotDir    = "data/snapshots"
	defaultClockStatePath = "data/virtual_time"
)

// Clock modes.
const (
	ClockModeReal    = "real"
	ClockModeVirtual = "virtual"
)

// Score history modes. Append is the reference semantics; upsert keeps
// the legacy single-row-per-pair behavior.
const (
	HistoryModeAppend = "append"
	HistoryModeUpsert = "upsert"
)

// AppConfig captures runtime configuration for the rating engine.
type AppConfig struct {
	HTTPAddress      string
	DatabasePath     string
	LogLevel         string
	SnapshotDir      string
	AchievementsPath string

	ClockMode            string
	VirtualSecondsPerDay int
	VirtualStatePath     string
	VirtualFlushPeriod   time.Duration

	RunInterval  time.Duration
	RunAtHour    int
	PollInterval time.Duration

	Thresholds    scoring.Thresholds
	ClampNegative bool
	HistoryMode   string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("source.snapshot_dir", defaultSnapshotDir)
	configViper.SetDefault("catalog.achievements_path", "")

	configViper.SetDefault("clock.mode", ClockModeReal)
	configViper.SetDefault("clock.virtual.seconds_per_day", 20)
	configViper.SetDefault("clock.virtual.state_path", defaultClockStatePath)
	configViper.SetDefault("clock.virtual.flush_seconds", 30)

	configViper.SetDefault("scheduler.interval_minutes", 15)
	configViper.SetDefault("scheduler.run_at_hour", 2)
	configViper.SetDefault("scheduler.poll_seconds", 1)

	configViper.SetDefault("scoring.threshold_c1", "100")
	configViper.SetDefault("scoring.threshold_c2", "320")
	configViper.SetDefault("scoring.threshold_c3", "700")
	configViper.SetDefault("scoring.threshold_c4", "1300")
	configViper.SetDefault("scoring.clamp_negative", false)
	configViper.SetDefault("history.mode", HistoryModeAppend)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	thresholds, err := parseThresholds(configViper)
	if err != nil {
		return AppConfig{}, err
	}

	cfg := AppConfig{
		HTTPAddress:      configViper.GetString("http.address"),
		DatabasePath:     configViper.GetString("database.path"),
		LogLevel:         configViper.GetString("log.level"),
		SnapshotDir:      configViper.GetString("source.snapshot_dir"),
		AchievementsPath: configViper.GetString("catalog.achievements_path"),

		ClockMode:            strings.ToLower(strings.TrimSpace(configViper.GetString("clock.mode"))),
		VirtualSecondsPerDay: configViper.GetInt("clock.virtual.seconds_per_day"),
		VirtualStatePath:     configViper.GetString("clock.virtual.state_path"),
		VirtualFlushPeriod:   time.Duration(configViper.GetInt("clock.virtual.flush_seconds")) * time.Second,

		RunInterval:  time.Duration(configViper.GetInt("scheduler.interval_minutes")) * time.Minute,
		RunAtHour:    configViper.GetInt("scheduler.run_at_hour"),
		PollInterval: time.Duration(configViper.GetInt("scheduler.poll_seconds")) * time.Second,

		Thresholds:    thresholds,
		ClampNegative: configViper.GetBool("scoring.clamp_negative"),
		HistoryMode:   strings.ToLower(strings.TrimSpace(configViper.GetString("history.mode"))),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func parseThresholds(configViper *viper.Viper) (scoring.Thresholds, error) {
	parse := func(key string) (decimal.Decimal, error) {
		value, err := decimal.NewFromString(configViper.GetString(key))
		if err != nil {
			return decimal.Zero, fmt.Errorf("%s is not a decimal: %w", key, err)
		}
		return value, nil
	}

	var thresholds scoring.Thresholds
	var err error
	if thresholds.C1, err = parse("scoring.threshold_c1"); err != nil {
		return scoring.Thresholds{}, err
	}
	if thresholds.C2, err = parse("scoring.threshold_c2"); err != nil {
		return scoring.Thresholds{}, err
	}
	if thresholds.C3, err = parse("scoring.threshold_c3"); err != nil {
		return scoring.Thresholds{}, err
	}
	if thresholds.C4, err = parse("scoring.threshold_c4"); err != nil {
		return scoring.Thresholds{}, err
	}
	return thresholds, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.ClockMode != ClockModeReal && c.ClockMode != ClockModeVirtual {
		return fmt.Errorf("clock.mode must be %q or %q", ClockModeReal, ClockModeVirtual)
	}
	if c.ClockMode == ClockModeVirtual {
		if c.VirtualSecondsPerDay <= 0 {
			return fmt.Errorf("clock.virtual.seconds_per_day must be positive")
		}
		if strings.TrimSpace(c.VirtualStatePath) == "" {
			return fmt.Errorf("clock.virtual.state_path is required in virtual mode")
		}
	}
	if c.RunAtHour < 0 || c.RunAtHour > 23 {
		return fmt.Errorf("scheduler.run_at_hour must be between 0 and 23")
	}
	if c.RunInterval <= 0 {
		return fmt.Errorf("scheduler.interval_minutes must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("scheduler.poll_seconds must be positive")
	}
	if c.HistoryMode != HistoryModeAppend && c.HistoryMode != HistoryModeUpsert {
		return fmt.Errorf("history.mode must be %q or %q", HistoryModeAppend, HistoryModeUpsert)
	}
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	return nil
}

// VirtualMultiplier derives the virtual-seconds-per-real-second factor
// from the configured compressed day length.
func (c AppConfig) VirtualMultiplier() int64 {
	if c.VirtualSecondsPerDay <= 0 {
		return 1
	}
	return int64(24 * 60 * 60 / c.VirtualSecondsPerDay)
}
