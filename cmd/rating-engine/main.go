package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/communitylab/rating-engine/internal/achievement"
	"github.com/communitylab/rating-engine/internal/catalog"
	"github.com/communitylab/rating-engine/internal/clock"
	"github.com/communitylab/rating-engine/internal/config"
	"github.com/communitylab/rating-engine/internal/database"
	"github.com/communitylab/rating-engine/internal/logging"
	"github.com/communitylab/rating-engine/internal/pipeline"
	"github.com/communitylab/rating-engine/internal/scoring"
	"github.com/communitylab/rating-engine/internal/server"
	"github.com/communitylab/rating-engine/internal/source"
	"github.com/communitylab/rating-engine/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rating-engine",
		Short: "Community rating and achievement pipeline",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("snapshot-dir", defaults.GetString("source.snapshot_dir"), "Engagement snapshot drop directory")
	cmd.PersistentFlags().String("achievements-path", defaults.GetString("catalog.achievements_path"), "Achievement catalog YAML path")
	cmd.PersistentFlags().String("clock-mode", defaults.GetString("clock.mode"), "Clock mode (real or virtual)")
	cmd.PersistentFlags().Int("virtual-seconds-per-day", defaults.GetInt("clock.virtual.seconds_per_day"), "Real seconds per virtual day")
	cmd.PersistentFlags().String("virtual-state-path", defaults.GetString("clock.virtual.state_path"), "Virtual clock state file path")
	cmd.PersistentFlags().Int("interval-minutes", defaults.GetInt("scheduler.interval_minutes"), "Run interval in minutes (real clock mode)")
	cmd.PersistentFlags().Int("run-at-hour", defaults.GetInt("scheduler.run_at_hour"), "Virtual hour of day triggering the run")
	cmd.PersistentFlags().String("history-mode", defaults.GetString("history.mode"), "Score history mode (append or upsert)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "source.snapshot_dir", "snapshot-dir")
	bindFlag(cmd, "catalog.achievements_path", "achievements-path")
	bindFlag(cmd, "clock.mode", "clock-mode")
	bindFlag(cmd, "clock.virtual.seconds_per_day", "virtual-seconds-per-day")
	bindFlag(cmd, "clock.virtual.state_path", "virtual-state-path")
	bindFlag(cmd, "scheduler.interval_minutes", "interval-minutes")
	bindFlag(cmd, "scheduler.run_at_hour", "run-at-hour")
	bindFlag(cmd, "history.mode", "history-mode")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runService(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	dataStore, err := store.New(db)
	if err != nil {
		return err
	}

	engineClock, closeClock, err := buildClock(appConfig, logger)
	if err != nil {
		return err
	}
	defer closeClock()

	engagementSource, err := source.NewFileSource(appConfig.SnapshotDir, logger)
	if err != nil {
		return err
	}

	if appConfig.AchievementsPath != "" {
		seeded, err := catalog.SeedAchievementDefinitions(ctx, dataStore, appConfig.AchievementsPath)
		if err != nil {
			return err
		}
		logger.Info("achievement catalog seeded", zap.Int("definitions", seeded))
	}

	detector, err := achievement.NewEngine(achievement.EngineConfig{
		Store:  dataStore,
		Clock:  engineClock,
		Rules:  achievement.DefaultRules(db, engineClock),
		Logger: logger,
	})
	if err != nil {
		return err
	}

	orchestrator, err := pipeline.New(pipeline.Config{
		Store:         dataStore,
		Source:        engagementSource,
		Clock:         engineClock,
		Calculator:    scoring.NewCalculator(scoring.DefaultWeights()),
		Thresholds:    appConfig.Thresholds,
		Detector:      detector,
		Logger:        logger,
		ClampNegative: appConfig.ClampNegative,
		HistoryMode:   appConfig.HistoryMode,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Status: orchestrator,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go pipeline.RunScheduler(signalCtx, pipeline.SchedulerConfig{
		Orchestrator: orchestrator,
		Clock:        engineClock,
		Logger:       logger,
		Virtual:      appConfig.ClockMode == config.ClockModeVirtual,
		Interval:     appConfig.RunInterval,
		RunAtHour:    appConfig.RunAtHour,
		PollInterval: appConfig.PollInterval,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// buildClock returns the configured clock and a teardown that persists
// virtual time on shutdown.
func buildClock(appConfig config.AppConfig, logger *zap.Logger) (clock.Clock, func(), error) {
	if appConfig.ClockMode != config.ClockModeVirtual {
		return clock.RealClock{}, func() {}, nil
	}
	virtualClock, err := clock.NewVirtualClock(clock.VirtualClockConfig{
		Multiplier:    appConfig.VirtualMultiplier(),
		StatePath:     appConfig.VirtualStatePath,
		FlushInterval: appConfig.VirtualFlushPeriod,
		Logger:        logger,
	})
	if err != nil {
		return nil, nil, err
	}
	closeClock := func() {
		if err := virtualClock.Close(); err != nil {
			logger.Warn("virtual clock shutdown failed", zap.Error(err))
		}
	}
	return virtualClock, closeClock, nil
}
