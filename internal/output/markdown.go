package output

import (
	"fmt"
	"strings"
)

func renderMarkdown(s sheet) string {
	var sb strings.Builder
	if s.Title != "" {
		sb.WriteString(fmt.Sprintf("## %s\n\n", escapeMarkdownCell(s.Title)))
	}

	cells := make([]string, len(s.Header))
	rule := make([]string, len(s.Header))
	for i, h := range s.Header {
		cells[i] = escapeMarkdownCell(h)
		rule[i] = strings.Repeat("-", max(3, len(h)))
	}
	sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	sb.WriteString("|" + strings.Join(rule, "|") + "|\n")

	for _, r := range s.Rows {
		row := make([]string, len(r))
		for i, v := range r {
			row[i] = escapeMarkdownCell(v)
		}
		sb.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}

	if s.Footer != "" {
		sb.WriteString(fmt.Sprintf("\n**Total**: %s\n", s.Footer))
	}
	return sb.String()
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
