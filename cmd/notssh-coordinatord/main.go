// Command notssh-coordinatord is the notssh coordinator: it accepts agent
// connections, persists clients/actions, and serves the operator control
// API over a local UNIX socket.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kjubybot/notssh-go/internal/config"
	"github.com/kjubybot/notssh-go/internal/coordinator"
	"github.com/kjubybot/notssh-go/internal/store"

	_ "github.com/kjubybot/notssh-go/internal/rpc/codec"
)

var (
	version = "dev"
	commit  = "none"
)

type args struct {
	configPath string
	logLevel   string
	migrate    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &args{}

	root := &cobra.Command{
		Use:   "notssh-coordinatord",
		Short: "notssh coordinator — fleet command dispatch and control",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), a)
		},
	}

	root.AddCommand(newVersionCmd())

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", envOrDefault("NOTSSH_CONFIG", "/etc/notssh/config.yaml"), "config file path")
	root.PersistentFlags().StringVarP(&a.logLevel, "log-level", "l", envOrDefault("NOTSSH_LOG_LEVEL", "warn"), "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVarP(&a.migrate, "migrate", "m", false, "apply database migrations and exit")

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Printf("notssh-coordinatord %s (commit: %s)\n", version, commit)
		},
	}
}

func run(ctx context.Context, a *args) error {
	logger, err := buildLogger(a.logLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	logger.Info("starting notssh coordinator",
		zap.String("version", version),
		zap.String("address", cfg.Address),
		zap.Int("port", cfg.Port),
		zap.String("socket", cfg.Socket),
		zap.String("db_driver", cfg.DB.Driver),
	)

	dsn := cfg.DB.Database
	if cfg.DB.Driver == "postgres" {
		dsn = cfg.DB.PostgresDSN()
	}

	st, gormDB, err := store.Open(store.Config{
		Driver:   cfg.DB.Driver,
		DSN:      dsn,
		Logger:   logger,
		LogLevel: gormLogLevel(a.logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	defer sqlDB.Close()

	if a.migrate {
		logger.Info("migrations applied, exiting")
		return nil
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting GC")
	sweeper, err := coordinator.NewSweeper(st, logger)
	if err != nil {
		return fmt.Errorf("failed to create sweeper: %w", err)
	}
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("failed to start sweeper: %w", err)
	}

	registry := coordinator.NewSessionRegistry(logger)
	fleetSrv := coordinator.NewServer(st, registry, logger)
	controlSrv := coordinator.NewControlService(st, logger)

	fleetAddr := fmt.Sprintf("%s:%d", cfg.Address, cfg.Port)

	logger.Info("starting server")
	go func() {
		if err := fleetSrv.ListenAndServe(ctx, fleetAddr); err != nil {
			logger.Error("fleet server error", zap.Error(err))
			cancel()
		}
	}()

	logger.Info("starting control server")
	go func() {
		if err := coordinator.ListenAndServeControl(ctx, cfg.Socket, controlSrv); err != nil {
			logger.Error("control server error", zap.Error(err))
			cancel()
		}
	}()

	logger.Info("ready")
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := sweeper.Stop(shutdownCtx); err != nil {
		logger.Warn("sweeper shutdown error", zap.Error(err))
	}

	logger.Info("notssh coordinator stopped")
	return nil
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "debug":
		return gormlogger.Info
	case "info":
		return gormlogger.Warn
	default:
		return gormlogger.Error
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch level {
	case "debug":
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
