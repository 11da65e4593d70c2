// Package app drives batch and watch-mode transforms over source trees.
package app

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"explicitexports/internal/core/config"
	"explicitexports/internal/core/ports"
	"explicitexports/internal/core/watcher"
	"explicitexports/internal/engine/parser"
	"explicitexports/internal/engine/transform"
)

type App struct {
	mu          sync.RWMutex
	config      *config.Config
	classifier  ports.SourceClassifier
	transformer ports.FileTransformer
	injected    bool

	history ports.HistoryStore
	stdout  io.Writer
	logger  *slog.Logger

	watcher  *watcher.Watcher
	remember func(path string, content []byte)
}

type Option func(*App)

func WithHistory(store ports.HistoryStore) Option {
	return func(a *App) { a.history = store }
}

func WithStdout(w io.Writer) Option {
	return func(a *App) { a.stdout = w }
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// WithTransformer replaces the tree-sitter transformer; Reload keeps it.
func WithTransformer(t ports.FileTransformer) Option {
	return func(a *App) {
		a.transformer = t
		a.injected = true
	}
}

func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	a := &App{
		config: cfg,
		stdout: os.Stdout,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}

	classifier, transformer, err := buildEngine(cfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.classifier = classifier
	if !a.injected {
		a.transformer = transformer
	}
	return a, nil
}

func buildEngine(cfg *config.Config, logger *slog.Logger) (*parser.Parser, *transform.Transformer, error) {
	registry, err := parser.BuildLanguageRegistry(cfg.LanguageOverrides())
	if err != nil {
		return nil, nil, err
	}
	loader, err := parser.NewGrammarLoaderWithRegistry(registry)
	if err != nil {
		return nil, nil, err
	}
	t := transform.NewTransformer(loader, transform.Options{
		TransformAssignExpr: cfg.TransformAssignExpr,
		AllowSyntaxErrors:   cfg.AllowSyntaxErrors,
	}, logger)
	return parser.NewParser(loader), t, nil
}

// Config returns the configuration currently in effect.
func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config
}

// Reload swaps in cfg for subsequent transforms. An invalid cfg is rejected
// and the previous configuration stays active.
func (a *App) Reload(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	classifier, transformer, err := buildEngine(cfg, a.logger)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.config = cfg
	a.classifier = classifier
	if !a.injected {
		a.transformer = transformer
	}
	if a.watcher != nil {
		a.watcher.SetDebounce(cfg.Watch.Debounce)
	}
	a.logger.Info("configuration reloaded", "transform_assign_expr", cfg.TransformAssignExpr, "mode", cfg.Output.Mode)
	return nil
}

func (a *App) engine() (*config.Config, ports.SourceClassifier, ports.FileTransformer) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config, a.classifier, a.transformer
}
