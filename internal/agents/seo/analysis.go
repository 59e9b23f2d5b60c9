// internal/agents/seo/analysis.go
package seo

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultLimit caps listed rows when the plan sets no limit.
const DefaultLimit = 100

const (
	OpEquals        = "equals"
	OpNotEquals     = "not_equals"
	OpContains      = "contains"
	OpNotContains   = "not_contains"
	OpGreater       = "greater"
	OpLess          = "less"
	OpIsEmpty       = "is_empty"
	OpNotEmpty      = "not_empty"
	OpLengthGreater = "length_greater"
	OpLengthLess    = "length_less"
)

type predicate func(cell string) bool

// Execute runs plan against table. It is deterministic and never calls out.
func Execute(table *Table, plan AnalysisPlan) AnalysisResult {
	result := AnalysisResult{Type: "list", Total: table.Len()}

	rows := table.Rows
	for _, f := range plan.Filters {
		col, ok := ResolveColumn(table.Columns, f.Column)
		if !ok {
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s: unknown column", f.Column))
			continue
		}
		pred, err := buildPredicate(f, col)
		if err != nil {
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s: %v", f.Column, err))
			continue
		}
		rows = filterRows(rows, col, pred)
		result.Applied = append(result.Applied, Filter{Column: col, Operator: normalizeOperator(f.Operator), Value: f.Value})
	}

	result.MatchingCount = len(rows)
	if result.Total > 0 {
		result.Percentage = round1(float64(result.MatchingCount) / float64(result.Total) * 100)
	}

	if plan.GroupBy != "" {
		if col, ok := ResolveColumn(table.Columns, plan.GroupBy); ok {
			result.Type = "grouped"
			result.GroupBy = col
			result.Groups = group(rows, table.Columns, col, strings.ToLower(plan.Aggregation))
			return result
		}
		result.Skipped = append(result.Skipped, fmt.Sprintf("group_by %s: unknown column", plan.GroupBy))
	}

	columns := table.Columns
	if len(plan.SelectColumns) > 0 {
		var selected []string
		seen := make(map[string]bool)
		for _, c := range plan.SelectColumns {
			if col, ok := ResolveColumn(table.Columns, c); ok && !seen[col] {
				seen[col] = true
				selected = append(selected, col)
			}
		}
		if len(selected) > 0 {
			columns = selected
		}
	}

	limit := plan.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(rows) > limit {
		rows = rows[:limit]
		result.Truncated = true
	}

	result.Columns = columns
	result.Rows = project(rows, columns)
	return result
}

func normalizeOperator(op string) string {
	op = strings.ToLower(strings.TrimSpace(op))
	switch op {
	case "", "eq", "==", "=":
		return OpEquals
	case "ne", "!=":
		return OpNotEquals
	case "gt", ">":
		return OpGreater
	case "lt", "<":
		return OpLess
	}
	return op
}

func buildPredicate(f Filter, col string) (predicate, error) {
	value := strings.TrimSpace(f.Value.String())
	op := normalizeOperator(f.Operator)

	// "title length > 60" against a text column compares lengths.
	if (op == OpGreater || op == OpLess) &&
		strings.Contains(strings.ToLower(f.Column), "length") &&
		!strings.Contains(strings.ToLower(col), "length") {
		if op == OpGreater {
			op = OpLengthGreater
		} else {
			op = OpLengthLess
		}
	}

	switch op {
	case OpEquals:
		return func(cell string) bool { return strings.EqualFold(strings.TrimSpace(cell), value) }, nil
	case OpNotEquals:
		return func(cell string) bool { return !strings.EqualFold(strings.TrimSpace(cell), value) }, nil
	case OpContains:
		needle := strings.ToLower(value)
		return func(cell string) bool { return strings.Contains(strings.ToLower(cell), needle) }, nil
	case OpNotContains:
		needle := strings.ToLower(value)
		return func(cell string) bool { return !strings.Contains(strings.ToLower(cell), needle) }, nil
	case OpIsEmpty:
		return func(cell string) bool { return strings.TrimSpace(cell) == "" }, nil
	case OpNotEmpty:
		return func(cell string) bool { return strings.TrimSpace(cell) != "" }, nil
	}

	threshold, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("operator %s needs a numeric value, got %q", op, value)
	}

	switch op {
	case OpGreater:
		return func(cell string) bool {
			v, ok := parseNumber(cell)
			return ok && v > threshold
		}, nil
	case OpLess:
		return func(cell string) bool {
			v, ok := parseNumber(cell)
			return ok && v < threshold
		}, nil
	case OpLengthGreater:
		return func(cell string) bool { return float64(utf8.RuneCountInString(cell)) > threshold }, nil
	case OpLengthLess:
		return func(cell string) bool { return float64(utf8.RuneCountInString(cell)) < threshold }, nil
	}
	return nil, fmt.Errorf("unsupported operator %q", f.Operator)
}

func parseNumber(cell string) (float64, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(cell, ",", ""))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func filterRows(rows []map[string]string, col string, pred predicate) []map[string]string {
	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		if pred(row[col]) {
			out = append(out, row)
		}
	}
	return out
}

func project(rows []map[string]string, columns []string) []map[string]string {
	out := make([]map[string]string, len(rows))
	for i, row := range rows {
		p := make(map[string]string, len(columns))
		for _, c := range columns {
			p[c] = row[c]
		}
		out[i] = p
	}
	return out
}

// group buckets rows by col. Sums and means cover columns whose non-empty
// cells are all numeric.
func group(rows []map[string]string, columns []string, col, aggregation string) []Group {
	index := make(map[string]int)
	var groups []Group
	var members [][]map[string]string

	for _, row := range rows {
		key := strings.TrimSpace(row[col])
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
			members = append(members, nil)
		}
		groups[i].Count++
		members[i] = append(members[i], row)
	}

	if aggregation == "sum" || aggregation == "mean" || aggregation == "avg" || aggregation == "average" {
		numeric := numericColumns(rows, columns, col)
		for i := range groups {
			sums := make(map[string]float64, len(numeric))
			for _, c := range numeric {
				for _, row := range members[i] {
					if v, ok := parseNumber(row[c]); ok {
						sums[c] += v
					}
				}
			}
			if aggregation == "sum" {
				groups[i].Sums = sums
				continue
			}
			means := make(map[string]float64, len(sums))
			for c, s := range sums {
				means[c] = round1(s / float64(groups[i].Count))
			}
			groups[i].Means = means
		}
	}

	sort.SliceStable(groups, func(a, b int) bool {
		if groups[a].Count != groups[b].Count {
			return groups[a].Count > groups[b].Count
		}
		return groups[a].Key < groups[b].Key
	})
	return groups
}

func numericColumns(rows []map[string]string, columns []string, exclude string) []string {
	var out []string
	for _, c := range columns {
		if c == exclude {
			continue
		}
		seen := false
		numeric := true
		for _, row := range rows {
			cell := strings.TrimSpace(row[c])
			if cell == "" {
				continue
			}
			if _, ok := parseNumber(cell); !ok {
				numeric = false
				break
			}
			seen = true
		}
		if numeric && seen {
			out = append(out, c)
		}
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
