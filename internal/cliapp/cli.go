// Package cliapp wires the explicitexports command line.
package cliapp

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"explicitexports/internal/core/config"

	"github.com/spf13/cobra"
)

const versionString = "1.0.0"

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

const rootLongDescription = `explicitexports rewrites references to a module's own exported bindings so
that they go through the module's export namespace (module.exports.<name>).

Paths may be files or directories; directories are scanned recursively using
the include and exclude globs from the configuration.`

type globalOptions struct {
	configPath string
	verbose    bool
}

type runFlags struct {
	assignExpr bool
	write      bool
	outDir     string
	check      bool
	report     string
	reportPath string
	workers    int
}

// exitError carries a process exit code through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// Run executes the command line and returns the process exit code.
func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx, args, os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if stderrors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(stderr, ee.err.Error())
		}
		return ee.code
	}
	fmt.Fprintln(stderr, err.Error())
	return exitUsage
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:           "explicitexports",
		Short:         "Route references to a module's own exports through module.exports",
		Long:          rootLongDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (default ./"+config.DefaultFile+" when present)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newRunCmd(opts),
		newWatchCmd(opts),
		newHistoryCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func addRunFlags(cmd *cobra.Command, flags *runFlags) {
	f := cmd.Flags()
	f.BoolVar(&flags.assignExpr, "transform-assign-expr", false, "also rewrite assignment and update targets")
	f.BoolVarP(&flags.write, "write", "w", false, "rewrite files in place")
	f.StringVar(&flags.outDir, "out-dir", "", "write transformed files to a mirror tree under this directory")
	f.BoolVar(&flags.check, "check", false, "report files that would change and exit non-zero if any")
	f.StringVar(&flags.report, "report", "", "emit a decision report: json or yaml")
	f.StringVar(&flags.reportPath, "report-path", "", "write the report to this file instead of stdout")
	f.IntVar(&flags.workers, "workers", 0, "number of files transformed concurrently")
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("explicitexports v%s\n", versionString)
		},
	}
}
