package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/leapdplyr/internal/history"
	"github.com/leapstack-labs/leapdplyr/pkg/accept"
)

// renderResult writes res in the given format.
func renderResult(w io.Writer, res *accept.Result, format string) error {
	switch format {
	case "json":
		return renderJSON(w, res)
	case "csv":
		return renderCSV(w, res)
	case "md", "markdown":
		if len(res.Rows) == 0 {
			_, _ = fmt.Fprintln(w, "(0 rows)")
			return nil
		}
		newTable(w, res).RenderMarkdown()
		return nil
	default:
		if len(res.Rows) == 0 {
			_, _ = fmt.Fprintln(w, "(0 rows)")
			return nil
		}
		newTable(w, res).Render()
		_, _ = fmt.Fprintf(w, "(%d rows)\n", len(res.Rows))
		return nil
	}
}

func newTable(w io.Writer, res *accept.Result) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(res.Columns))
	for i, col := range res.Columns {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, r := range res.Rows {
		row := make(table.Row, len(r))
		for i, v := range r {
			row[i] = formatValue(v)
		}
		t.AppendRow(row)
	}
	return t
}

func renderJSON(w io.Writer, res *accept.Result) error {
	records := make([]map[string]any, 0, len(res.Rows))
	for _, r := range res.Rows {
		rec := make(map[string]any, len(res.Columns))
		for i, col := range res.Columns {
			rec[col] = r[i]
		}
		records = append(records, rec)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// renderCSV writes RFC 4180 CSV. NULL is written as an empty field.
func renderCSV(w io.Writer, res *accept.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(res.Columns); err != nil {
		return err
	}
	record := make([]string, len(res.Columns))
	for _, r := range res.Rows {
		for i, v := range r {
			if v == nil {
				record[i] = ""
				continue
			}
			record[i] = formatValue(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// renderHistory writes history entries as a table.
func renderHistory(w io.Writer, entries []*history.Entry) {
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, "(no history)")
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"When", "Outcome", "Rows", "Duration", "Query"})
	for _, e := range entries {
		outcome := "OK"
		if !e.OK() {
			outcome = e.Kind
		}
		t.AppendRow(table.Row{
			e.Created.Local().Format("2006-01-02 15:04:05"),
			outcome,
			e.RowCount,
			e.Duration.Round(time.Millisecond),
			truncate(e.Query, 60),
		})
	}
	t.Render()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
