package ui

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Step statuses understood by StepTable.
const (
	StatusDone    = "done"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// StepRow is one line of the installation summary.
type StepRow struct {
	Name     string
	Status   string
	Duration time.Duration
	Detail   string
}

// StepTable renders rows as a table string.
func StepTable(rows []StepRow) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"#", "Step", "Status", "Time", "Detail"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
	})

	for i, r := range rows {
		t.AppendRow(table.Row{i + 1, r.Name, statusColor(r.Status).Sprint(r.Status), formatDuration(r.Duration), r.Detail})
	}
	return t.Render()
}

// PrintSteps prints the summary table.
func PrintSteps(title string, rows []StepRow) {
	if len(rows) == 0 {
		return
	}
	printLine("")
	printLine(accentStyle.Render("  " + title))
	printLine(StepTable(rows))
}

func statusColor(status string) text.Colors {
	switch status {
	case StatusDone:
		return text.Colors{text.FgGreen}
	case StatusFailed:
		return text.Colors{text.FgRed, text.Bold}
	default:
		return text.Colors{text.FgHiBlack}
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return d.Round(100 * time.Millisecond).String()
	}
}
