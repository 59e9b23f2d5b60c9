// internal/agents/seo/models.go
package seo

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
)

// DataSource loads the crawl export.
type DataSource interface {
	Load(ctx context.Context) (*Table, error)
}

// Table is a crawl export: one header row and string cells.
type Table struct {
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
}

// NewTable builds a table from raw rows. Header cells are trimmed, short rows
// are padded and cells beyond the header are dropped.
func NewTable(header []string, rows [][]string) *Table {
	t := &Table{Columns: make([]string, len(header))}
	for i, h := range header {
		t.Columns[i] = strings.TrimSpace(h)
	}
	for _, raw := range rows {
		row := make(map[string]string, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(raw) {
				row[col] = raw[i]
			} else {
				row[col] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// AnalysisPlan is the structured reading of an SEO question.
type AnalysisPlan struct {
	Operation     string   `json:"operation"`
	Filters       []Filter `json:"filters"`
	GroupBy       string   `json:"group_by"`
	Aggregation   string   `json:"aggregation"`
	SelectColumns []string `json:"select_columns"`
	Limit         int      `json:"limit"`
	ReturnJSON    bool     `json:"return_json"`
}

type Filter struct {
	Column   string     `json:"column"`
	Operator string     `json:"operator"`
	Value    FlexString `json:"value"`
}

// FlexString accepts JSON strings, numbers, booleans and null.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = FlexString(strconv.FormatBool(b))
		return nil
	}
	*f = ""
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// AnalysisResult is computed in Go from the table; narratives only restate it.
type AnalysisResult struct {
	Type          string              `json:"type"` // list or grouped
	Total         int                 `json:"total"`
	MatchingCount int                 `json:"matchingCount"`
	Percentage    float64             `json:"percentage"`
	Columns       []string            `json:"columns,omitempty"`
	Rows          []map[string]string `json:"rows,omitempty"`
	GroupBy       string              `json:"groupBy,omitempty"`
	Groups        []Group             `json:"groups,omitempty"`
	Applied       []Filter            `json:"appliedFilters,omitempty"`
	Skipped       []string            `json:"skippedFilters,omitempty"`
	Truncated     bool                `json:"truncated"`
}

type Group struct {
	Key   string             `json:"key"`
	Count int                `json:"count"`
	Sums  map[string]float64 `json:"sums,omitempty"`
	Means map[string]float64 `json:"means,omitempty"`
}
