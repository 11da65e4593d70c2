package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: EXPLICITEXPORTS_[SECTION]_[KEY] (e.g., EXPLICITEXPORTS_OUTPUT_MODE).
func ApplyEnvOverrides(cfg *Config) {
	setEnvBool(&cfg.TransformAssignExpr, "EXPLICITEXPORTS_TRANSFORM_ASSIGN_EXPR")
	setEnvBool(&cfg.AllowSyntaxErrors, "EXPLICITEXPORTS_ALLOW_SYNTAX_ERRORS")
	setEnvInt(&cfg.Workers, "EXPLICITEXPORTS_WORKERS")

	// Output
	setEnvString(&cfg.Output.Mode, "EXPLICITEXPORTS_OUTPUT_MODE")
	setEnvString(&cfg.Output.OutDir, "EXPLICITEXPORTS_OUTPUT_OUT_DIR")
	setEnvString(&cfg.Output.Report, "EXPLICITEXPORTS_OUTPUT_REPORT")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "EXPLICITEXPORTS_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.RateLimit, "EXPLICITEXPORTS_WATCH_RATE_LIMIT")
	setEnvInt(&cfg.Watch.Burst, "EXPLICITEXPORTS_WATCH_BURST")

	// History
	setEnvBool(&cfg.History.Enabled, "EXPLICITEXPORTS_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "EXPLICITEXPORTS_HISTORY_PATH")

	// Observability
	setEnvString(&cfg.Observability.MetricsAddr, "EXPLICITEXPORTS_OBSERVABILITY_METRICS_ADDR")
	setEnvString(&cfg.Observability.OTLPEndpoint, "EXPLICITEXPORTS_OBSERVABILITY_OTLP_ENDPOINT")

	// Log
	setEnvString(&cfg.Log.Level, "EXPLICITEXPORTS_LOG_LEVEL")
	setEnvString(&cfg.Log.File, "EXPLICITEXPORTS_LOG_FILE")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
