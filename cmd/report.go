package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/xkilldash9x/smartfill/internal/autofill"
)

const maxValueWidth = 40

// renderReport writes one row per fillable field followed by the run totals.
func renderReport(w io.Writer, s autofill.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Run %s (%s)", s.RunID, s.Duration.Round(time.Millisecond))

	t.AppendHeader(table.Row{"#", "Outcome", "Field", "Label", "Value", "Reason"})
	for i, o := range s.Outcomes {
		t.AppendRow(table.Row{i + 1, o.Kind, o.Field, o.Label, o.Value, o.Reason})
	}
	t.AppendFooter(table.Row{"", "", "", "", "Filled", fmt.Sprintf("%d / %d", s.Filled, len(s.Outcomes))})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Label", WidthMax: maxValueWidth},
		{Name: "Value", WidthMax: maxValueWidth, Transformer: text.Transformer(func(v interface{}) string {
			return text.Trim(fmt.Sprint(v), maxValueWidth)
		})},
	})
	t.Render()
}
