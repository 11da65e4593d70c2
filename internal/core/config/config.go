package config

import (
	"time"
)

// DefaultFile is loaded from the working directory when no --config is given.
const DefaultFile = "explicitexports.toml"

type Config struct {
	TransformAssignExpr bool                `toml:"transform_assign_expr"`
	AllowSyntaxErrors   bool                `toml:"allow_syntax_errors"`
	Workers             int                 `toml:"workers"`
	Languages           map[string]Language `toml:"languages"`
	Paths               Paths               `toml:"paths"`
	Output              Output              `toml:"output"`
	Watch               Watch               `toml:"watch"`
	History             History             `toml:"history"`
	Observability       Observability       `toml:"observability"`
	Log                 Log                 `toml:"log"`
}

// Language overrides one entry of the parser language registry.
type Language struct {
	Enabled    *bool    `toml:"enabled"`
	Extensions []string `toml:"extensions"`
}

type Paths struct {
	Include      []string `toml:"include"`
	ExcludeDirs  []string `toml:"exclude_dirs"`
	ExcludeFiles []string `toml:"exclude_files"`
}

const (
	OutputStdout = "stdout"
	OutputWrite  = "write"
	OutputDir    = "out_dir"
)

type Output struct {
	Mode       string `toml:"mode"`
	OutDir     string `toml:"out_dir"`
	Report     string `toml:"report"`
	ReportPath string `toml:"report_path"`
}

type Watch struct {
	Debounce  time.Duration `toml:"debounce"`
	RateLimit float64       `toml:"rate_limit"`
	Burst     int           `toml:"burst"`
}

type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Observability struct {
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

type Log struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}
