package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// printer renders command results as a table or as structured output
type printer struct {
	w      io.Writer
	format string
}

func newPrinter(w io.Writer, format string) (*printer, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = formatTable
	}
	switch format {
	case formatTable, formatJSON, formatYAML:
		return &printer{w: w, format: format}, nil
	default:
		return nil, fmt.Errorf("invalid output format %q, must be one of: table, json, yaml", format)
	}
}

// structured reports whether output is machine readable
func (p *printer) structured() bool {
	return p.format != formatTable
}

// print writes v as json or yaml, or calls table with a tabwriter
func (p *printer) print(v any, table func(w *tabwriter.Writer)) error {
	switch p.format {
	case formatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		w := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
		table(w)
		return w.Flush()
	}
}

// message writes a human readable line, suppressed for structured output
func (p *printer) message(format string, args ...any) {
	if p.structured() {
		return
	}
	fmt.Fprintf(p.w, format+"\n", args...)
}

func formatMap(m map[string]any) string {
	if len(m) == 0 {
		return "-"
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Sprint(m)
	}
	return string(data)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
