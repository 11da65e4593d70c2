package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"explicitexports/internal/core/errors"

	"github.com/BurntSushi/toml"
)

// Load reads the TOML file at path, fills defaults and validates the result.
// An empty path loads DefaultFile when it exists and the defaults otherwise.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		if _, err := os.Stat(DefaultFile); err != nil {
			cfg := DefaultConfig()
			ApplyEnvOverrides(cfg)
			if err := cfg.Validate(); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "config file not found"), errors.CtxPath, path)
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "read config"), errors.CtxPath, path)
	}

	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "decode config"), errors.CtxPath, path)
	}
	for _, key := range meta.Undecoded() {
		slog.Warn("unknown config key ignored", "key", key.String(), "path", path)
	}

	applyDefaults(&cfg)
	ApplyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if len(cfg.Paths.Include) == 0 {
		cfg.Paths.Include = []string{"*.js", "*.jsx", "*.mjs", "*.cjs", "*.ts", "*.tsx", "*.mts", "*.cts"}
	}
	if cfg.Paths.ExcludeDirs == nil {
		cfg.Paths.ExcludeDirs = []string{"node_modules", ".git", "dist", "build"}
	}
	if cfg.Paths.ExcludeFiles == nil {
		cfg.Paths.ExcludeFiles = []string{"*.min.js", "*.d.ts"}
	}

	cfg.Output.Mode = strings.ToLower(strings.TrimSpace(cfg.Output.Mode))
	if cfg.Output.Mode == "" {
		cfg.Output.Mode = OutputStdout
	}
	cfg.Output.Report = strings.ToLower(strings.TrimSpace(cfg.Output.Report))

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
	if cfg.Watch.RateLimit == 0 {
		cfg.Watch.RateLimit = 20
	}
	if cfg.Watch.Burst == 0 {
		cfg.Watch.Burst = 5
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = ".explicitexports/history.db"
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB <= 0 {
		cfg.Log.MaxSizeMB = 10
	}
	if cfg.Log.MaxBackups <= 0 {
		cfg.Log.MaxBackups = 3
	}
}
