// Package output renders CLI results as tables, JSON, or markdown.
package output

import (
	"fmt"
	"strings"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// Extension returns the file extension used when writing format to disk.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatMarkdown:
		return ".md"
	default:
		return ".txt"
	}
}

// sheet is the format-neutral shape every result is reduced to.
type sheet struct {
	Title  string
	Header []string
	Rows   [][]string
	Footer string
}

// Render writes data in format. Tables and markdown use the sheet; JSON
// marshals data itself so field names stay stable for scripts.
func render(format Format, data any, s sheet) (string, error) {
	switch format {
	case FormatJSON:
		return renderJSON(data)
	case FormatMarkdown:
		return renderMarkdown(s), nil
	default:
		return renderTable(s), nil
	}
}

func truncate(value string, max int) string {
	value = strings.Join(strings.Fields(value), " ")
	if max <= 3 || len(value) <= max {
		return value
	}
	return value[:max-3] + "..."
}
