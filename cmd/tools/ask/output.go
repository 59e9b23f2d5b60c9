// cmd/tools/ask/output.go
package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"query-orchestrator/internal/audit"
	"query-orchestrator/internal/models"
)

const (
	narrativeWidth = 60
	stampLayout    = "2006-01-02 15:04"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			WidthMax:    narrativeWidth,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func printResponse(out io.Writer, resp models.FusedResponse) {
	fmt.Fprintf(out, "Request: %s\n", resp.RequestID)
	fmt.Fprintf(out, "Intent:  %s\n", intentLabel(resp.Intent))
	fmt.Fprintf(out, "Status:  %s\n\n", resp.Status)
	fmt.Fprintln(out, resp.Narrative)

	if len(resp.Results) < 2 && !hasError(resp.Results) {
		return
	}
	rows := make([][]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		detail := ""
		if r.Error != nil {
			detail = r.Error.Code
		}
		rows = append(rows, []string{string(r.Agent), string(r.Status), detail, r.Narrative})
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable([]string{"Agent", "Status", "Error", "Answer"}, rows, nil))
}

func printAudit(out io.Writer, entries []audit.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No queries recorded yet.")
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.CreatedAt.Local().Format(stampLayout),
			e.Query,
			e.Intent,
			e.Status,
			strconv.FormatInt(e.DurationMs, 10),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"When", "Query", "Intent", "Status", "Duration (ms)"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	))
}

func intentLabel(labels []models.AgentLabel) string {
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = string(l)
	}
	return strings.Join(parts, " + ")
}

func hasError(results []models.AgentResult) bool {
	for _, r := range results {
		if r.Status == models.StatusError {
			return true
		}
	}
	return false
}
