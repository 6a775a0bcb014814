package output

import (
	"github.com/jedib0t/go-pretty/v6/table"
)

func renderTable(s sheet) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	if s.Title != "" {
		t.SetTitle(s.Title)
	}
	t.AppendHeader(toRow(s.Header))

	for _, r := range s.Rows {
		t.AppendRow(toRow(r))
	}

	if s.Footer != "" {
		footer := make(table.Row, len(s.Header))
		for i := range footer {
			footer[i] = ""
		}
		if len(footer) > 0 {
			footer[len(footer)-1] = s.Footer
		}
		t.AppendFooter(footer)
	}

	return t.Render()
}

func toRow(values []string) table.Row {
	row := make(table.Row, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}
