package report

import (
	"fmt"
	"os"
	"time"

	"explicitexports/internal/core/app"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)
)

// IsTTY reports whether f is attached to a terminal.
func IsTTY(f *os.File) bool {
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Headline summarizes a run in one line, colored when color is set.
func Headline(summary *app.Summary, color bool) string {
	title := "explicitexports"
	var status string
	style := successStyle
	switch {
	case summary.Failed > 0:
		status = fmt.Sprintf("%d file(s) failed", summary.Failed)
		style = failStyle
	case summary.Check && summary.Changed > 0:
		status = fmt.Sprintf("%d file(s) would change", summary.Changed)
		style = warnStyle
	case summary.Changed > 0:
		status = fmt.Sprintf("%d file(s) changed", summary.Changed)
	default:
		status = "no changes"
	}
	counts := fmt.Sprintf("%d files, %d rewritten, %d skipped in %s",
		len(summary.Files), summary.Rewritten, summary.Skipped, summary.Duration.Round(time.Millisecond))

	if !color {
		return fmt.Sprintf("%s: %s (%s)", title, status, counts)
	}
	return fmt.Sprintf("%s: %s (%s)", titleStyle.Render(title), style.Render(status), counts)
}
