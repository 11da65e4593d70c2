package cliapp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"explicitexports/internal/core/config"
	"explicitexports/internal/data/history"
	"explicitexports/internal/shared/observability"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

// loadConfig loads the configuration and returns the file it came from, or
// "" when only defaults are in effect.
func loadConfig(path string) (*config.Config, string, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}

	file := path
	if file == "" {
		if _, err := os.Stat(config.DefaultFile); err == nil {
			file = config.DefaultFile
		}
	}
	if file != "" {
		abs, err := filepath.Abs(file)
		if err != nil {
			return nil, "", err
		}
		file = abs
		config.ResolvePaths(cfg, filepath.Dir(abs))
	}
	return cfg, file, nil
}

// applyRunFlags layers explicitly set command line flags over cfg.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config, flags *runFlags) error {
	changed := cmd.Flags().Changed

	if flags.write && flags.outDir != "" {
		return fmt.Errorf("--write and --out-dir cannot be used together")
	}
	if changed("transform-assign-expr") {
		cfg.TransformAssignExpr = flags.assignExpr
	}
	if changed("workers") {
		cfg.Workers = flags.workers
	}
	if flags.write {
		cfg.Output.Mode = config.OutputWrite
	}
	if flags.outDir != "" {
		cfg.Output.Mode = config.OutputDir
		cfg.Output.OutDir = flags.outDir
	}
	if flags.report != "" {
		cfg.Output.Report = flags.report
	}
	if flags.reportPath != "" {
		cfg.Output.ReportPath = flags.reportPath
	}

	return cfg.Validate()
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// configureLogging installs the default logger. Logs go to stderr unless a
// log file is configured or toFile is set, in which case they are rotated
// by lumberjack.
func configureLogging(cfg *config.Config, verbose, toFile bool, stderr io.Writer) func() {
	level := parseLevel(cfg.Log.Level)
	if verbose {
		level = slog.LevelDebug
	}

	output := stderr
	closeFn := func() {}
	if cfg.Log.File != "" || toFile {
		logPath := cfg.Log.File
		if logPath == "" {
			logPath = resolveLogPath()
		}
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
			fmt.Fprintf(stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
		} else {
			rotator := &lumberjack.Logger{
				Filename:   logPath,
				MaxSize:    cfg.Log.MaxSizeMB,
				MaxBackups: cfg.Log.MaxBackups,
			}
			output = rotator
			closeFn = func() { _ = rotator.Close() }
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return closeFn
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "explicitexports", "explicitexports.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "explicitexports", "explicitexports.log")
	}

	return "explicitexports.log"
}

// startObservability starts the metrics endpoint and span export configured
// in cfg. The returned function stops both.
func startObservability(ctx context.Context, cfg *config.Config) (func(), error) {
	var server *observability.Server
	if cfg.Observability.MetricsAddr != "" {
		server = observability.NewServer(cfg.Observability.MetricsAddr)
		if err := server.Start(); err != nil {
			return nil, fmt.Errorf("start metrics server: %w", err)
		}
		slog.Info("metrics server listening", "addr", server.Addr())
	}

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint)
	if err != nil {
		if server != nil {
			_ = server.Stop(context.Background())
		}
		return nil, err
	}

	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(stopCtx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
		if server != nil {
			if err := server.Stop(stopCtx); err != nil {
				slog.Warn("failed to stop metrics server", "error", err)
			}
		}
	}, nil
}

func openHistory(cfg *config.Config) (*history.Store, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}
