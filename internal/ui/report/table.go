package report

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"explicitexports/internal/core/app"
	"explicitexports/internal/data/history"

	"github.com/olekukonko/tablewriter"
)

// RenderSummary renders one row per file with its export and reference counts.
func RenderSummary(summary *app.Summary) string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Path", "Exports", "Rewritten", "Skipped", "Status"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
	})

	for _, o := range summary.Files {
		if o.Err != nil {
			table.Append([]string{o.Path, "-", "-", "-", "failed"})
			continue
		}
		table.Append([]string{
			o.Path,
			strconv.Itoa(len(o.Result.Descriptors)),
			strconv.Itoa(o.Result.Rewritten),
			strconv.Itoa(o.Result.Skipped),
			fileStatus(summary, o),
		})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Files %d", len(summary.Files)),
		"",
		strconv.Itoa(summary.Rewritten),
		strconv.Itoa(summary.Skipped),
		fmt.Sprintf("%d changed", summary.Changed),
	})
	table.Render()
	return buf.String()
}

func fileStatus(summary *app.Summary, o app.FileOutcome) string {
	switch {
	case !o.Result.Changed:
		return "unchanged"
	case summary.Check:
		return "would change"
	case o.Written:
		return "written"
	default:
		return "changed"
	}
}

// RenderHistory renders recorded runs, newest first.
func RenderHistory(runs []history.Run) string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Run", "Started", "Mode", "Files", "Changed", "Rewritten", "Failed"})
	table.SetBorder(false)
	table.SetCenterSeparator("")

	for _, r := range runs {
		table.Append([]string{
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.Mode,
			strconv.Itoa(r.Files),
			strconv.Itoa(r.Changed),
			strconv.Itoa(r.Rewritten),
			strconv.Itoa(r.Failed),
		})
	}
	table.Render()
	return buf.String()
}

// RenderFileResults renders the per-file rows of one recorded run.
func RenderFileResults(files []history.FileResult) string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Path", "Language", "Exports", "Rewritten", "Skipped", "Error"})
	table.SetBorder(false)
	table.SetCenterSeparator("")

	for _, f := range files {
		table.Append([]string{
			f.Path,
			f.Language,
			strconv.Itoa(f.Exports),
			strconv.Itoa(f.Rewritten),
			strconv.Itoa(f.Skipped),
			f.Error,
		})
	}
	table.Render()
	return buf.String()
}
