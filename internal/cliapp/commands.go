package cliapp

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"explicitexports/internal/core/app"
	"explicitexports/internal/core/config"
	"explicitexports/internal/core/errors"
	"explicitexports/internal/data/history"
	"explicitexports/internal/ui/report"

	"github.com/spf13/cobra"
)

// session holds everything a run or watch command sets up and tears down.
type session struct {
	cfg     *config.Config
	cfgPath string
	app     *app.App
	store   *history.Store
	closers []func()
}

func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func newSession(cmd *cobra.Command, opts *globalOptions, flags *runFlags, logToFile bool) (*session, error) {
	cfg, cfgPath, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, &exitError{code: exitFailure, err: err}
	}
	if err := applyRunFlags(cmd, cfg, flags); err != nil {
		return nil, &exitError{code: exitUsage, err: err}
	}

	s := &session{cfg: cfg, cfgPath: cfgPath}
	s.closers = append(s.closers, configureLogging(cfg, opts.verbose, logToFile, cmd.ErrOrStderr()))

	stopObs, err := startObservability(cmd.Context(), cfg)
	if err != nil {
		s.close()
		return nil, &exitError{code: exitFailure, err: err}
	}
	s.closers = append(s.closers, stopObs)

	appOpts := []app.Option{app.WithStdout(cmd.OutOrStdout()), app.WithLogger(slog.Default())}
	store, err := openHistory(cfg)
	if err != nil {
		slog.Warn("run history disabled", "error", err)
	} else if store != nil {
		s.store = store
		s.closers = append(s.closers, func() { _ = store.Close() })
		appOpts = append(appOpts, app.WithHistory(store))
	}

	a, err := app.New(cfg, appOpts...)
	if err != nil {
		s.close()
		return nil, &exitError{code: exitFailure, err: err}
	}
	s.app = a
	return s, nil
}

func newRunCmd(opts *globalOptions) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Transform the given files and directories once",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts, flags, false)
			if err != nil {
				return err
			}
			defer s.close()

			summary, runErr := s.app.Run(cmd.Context(), args, app.RunOptions{Check: flags.check})
			if summary == nil {
				return &exitError{code: exitFailure, err: runErr}
			}
			if err := emitReport(cmd.OutOrStdout(), s.cfg, summary); err != nil {
				return &exitError{code: exitFailure, err: err}
			}
			printSummary(cmd.ErrOrStderr(), summary)

			if runErr != nil {
				return &exitError{code: exitFailure, err: runErr}
			}
			if summary.Failed > 0 {
				return &exitError{code: exitFailure, err: fmt.Errorf("%d file(s) failed to transform", summary.Failed)}
			}
			return nil
		},
	}
	addRunFlags(cmd, flags)
	return cmd
}

func newWatchCmd(opts *globalOptions) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Transform once, then keep transforming files as they change",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.check {
				return &exitError{code: exitUsage, err: fmt.Errorf("--check cannot be used with watch")}
			}
			s, err := newSession(cmd, opts, flags, true)
			if err != nil {
				return err
			}
			defer s.close()

			if s.cfgPath != "" {
				cw := config.NewWatcher(s.cfgPath, func(next *config.Config) {
					if err := applyRunFlags(cmd, next, flags); err != nil {
						slog.Error("reloaded configuration rejected", "error", err)
						return
					}
					if err := s.app.Reload(next); err != nil {
						slog.Error("reloaded configuration rejected", "error", err)
					}
				})
				if err := cw.Start(cmd.Context()); err != nil {
					slog.Warn("config watcher disabled", "path", s.cfgPath, "error", err)
				} else {
					defer cw.Stop()
				}
			}

			fmt.Fprintln(cmd.ErrOrStderr(), "watching for changes, press Ctrl+C to stop")
			if err := s.app.Watch(cmd.Context(), args, app.RunOptions{}); err != nil {
				return &exitError{code: exitFailure, err: err}
			}
			return nil
		},
	}
	addRunFlags(cmd, flags)
	return cmd
}

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	var limit int
	var runID string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(opts.configPath)
			if err != nil {
				return &exitError{code: exitFailure, err: err}
			}
			if _, err := os.Stat(cfg.History.Path); err != nil {
				cmd.Println("no run history recorded at " + cfg.History.Path)
				return nil
			}
			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return &exitError{code: exitFailure, err: err}
			}
			defer store.Close()

			if runID != "" {
				files, err := store.LoadFileResults(runID)
				if err != nil {
					return &exitError{code: exitFailure, err: err}
				}
				if len(files) == 0 {
					return &exitError{code: exitFailure, err: errors.AddContext(errors.New(errors.CodeNotFound, "run not found"), "run", runID)}
				}
				cmd.Print(report.RenderFileResults(files))
				return nil
			}

			runs, err := store.LoadRuns(limit)
			if err != nil {
				return &exitError{code: exitFailure, err: err}
			}
			if len(runs) == 0 {
				cmd.Println("no runs recorded")
				return nil
			}
			cmd.Print(report.RenderHistory(runs))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to show")
	cmd.Flags().StringVar(&runID, "run", "", "show the per-file results of one run")
	return cmd
}

func emitReport(stdout io.Writer, cfg *config.Config, summary *app.Summary) error {
	if cfg.Output.Report == "" {
		return nil
	}
	doc := report.Build(summary)
	if cfg.Output.ReportPath != "" {
		if err := report.WriteFile(cfg.Output.ReportPath, doc, cfg.Output.Report); err != nil {
			return err
		}
		slog.Info("report written", "path", cfg.Output.ReportPath, "format", cfg.Output.Report)
		return nil
	}
	return report.Write(stdout, doc, cfg.Output.Report)
}

func printSummary(w io.Writer, summary *app.Summary) {
	color := false
	if f, ok := w.(*os.File); ok {
		color = report.IsTTY(f)
	}
	if len(summary.Files) > 1 {
		fmt.Fprint(w, report.RenderSummary(summary))
	}
	fmt.Fprintln(w, report.Headline(summary, color))
	if summary.RunID != "" {
		fmt.Fprintf(w, "run %s recorded\n", summary.RunID)
	}
}
