package config

import (
	stderrors "errors"
	"fmt"
	"strings"

	"explicitexports/internal/core/errors"
	"explicitexports/internal/engine/parser"

	"github.com/gobwas/glob"
)

// Validate reports every invalid setting as one VALIDATION_ERROR.
func (c *Config) Validate() error {
	errs := validate(c)
	if len(errs) == 0 {
		return nil
	}
	return errors.Wrap(stderrors.Join(errs...), errors.CodeValidationError, "invalid configuration")
}

func validate(cfg *Config) []error {
	var errs []error

	if cfg.Workers < 1 || cfg.Workers > 256 {
		errs = append(errs, fmt.Errorf("workers must be between 1 and 256, got %d", cfg.Workers))
	}

	errs = append(errs, validatePatterns("paths.include", cfg.Paths.Include)...)
	errs = append(errs, validatePatterns("paths.exclude_dirs", cfg.Paths.ExcludeDirs)...)
	errs = append(errs, validatePatterns("paths.exclude_files", cfg.Paths.ExcludeFiles)...)

	switch cfg.Output.Mode {
	case OutputStdout, OutputWrite:
	case OutputDir:
		if strings.TrimSpace(cfg.Output.OutDir) == "" {
			errs = append(errs, fmt.Errorf("output.out_dir must be set when output.mode=%s", OutputDir))
		}
	default:
		errs = append(errs, fmt.Errorf("output.mode must be one of: %s, %s, %s", OutputStdout, OutputWrite, OutputDir))
	}
	switch cfg.Output.Report {
	case "", "json", "yaml":
	default:
		errs = append(errs, fmt.Errorf("output.report must be one of: json, yaml"))
	}
	if cfg.Output.Mode == OutputStdout && cfg.Output.Report != "" && strings.TrimSpace(cfg.Output.ReportPath) == "" {
		errs = append(errs, fmt.Errorf("output.report_path must be set when output.report is used with output.mode=%s", OutputStdout))
	}

	if cfg.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must not be negative"))
	}
	if cfg.Watch.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("watch.rate_limit must not be negative"))
	}
	if cfg.Watch.Burst < 1 {
		errs = append(errs, fmt.Errorf("watch.burst must be >= 1"))
	}

	if cfg.History.Enabled && strings.TrimSpace(cfg.History.Path) == "" {
		errs = append(errs, fmt.Errorf("history.path must not be empty when history is enabled"))
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of: debug, info, warn, error"))
	}

	if _, err := parser.BuildLanguageRegistry(cfg.LanguageOverrides()); err != nil {
		errs = append(errs, fmt.Errorf("languages: %w", err))
	}
	return errs
}

func validatePatterns(field string, patterns []string) []error {
	var errs []error
	for i, pattern := range patterns {
		if strings.TrimSpace(pattern) == "" {
			errs = append(errs, fmt.Errorf("%s[%d] must not be empty", field, i))
			continue
		}
		if _, err := glob.Compile(pattern); err != nil {
			errs = append(errs, fmt.Errorf("%s[%d] %q is not a valid glob: %w", field, i, pattern, err))
		}
	}
	return errs
}

// LanguageOverrides converts the [languages] tables for the parser registry.
func (c *Config) LanguageOverrides() map[string]parser.LanguageOverride {
	if len(c.Languages) == 0 {
		return nil
	}
	out := make(map[string]parser.LanguageOverride, len(c.Languages))
	for id, lang := range c.Languages {
		out[strings.ToLower(strings.TrimSpace(id))] = parser.LanguageOverride{
			Enabled:    lang.Enabled,
			Extensions: append([]string(nil), lang.Extensions...),
		}
	}
	return out
}
