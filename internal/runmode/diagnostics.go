package runmode

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"articast/internal/preflight"
)

func renderResults(results []preflight.Result) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Check", "Status", "Detail"})
	for _, result := range results {
		tw.AppendRow(table.Row{result.Name, statusLabel(result), result.Detail})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignCenter, AlignHeader: text.AlignLeft},
		{Number: 3, WidthMax: 72},
	})
	return tw.Render()
}

func statusLabel(result preflight.Result) string {
	switch {
	case result.Passed:
		return "ok"
	case result.Optional:
		return "warn"
	default:
		return "FAIL"
	}
}
