package seo

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// crawlTable has 21 rows; row 7 is the only plain-HTTP address.
func crawlTable() *Table {
	header := []string{"Address", "Status Code", "Indexability", "Title 1", "Word Count"}
	var rows [][]string
	for i := 1; i <= 21; i++ {
		scheme := "https"
		if i == 7 {
			scheme = "http"
		}
		status := "200"
		indexability := "Indexable"
		if i%5 == 0 {
			status = "301"
			indexability = "Non-Indexable"
		}
		title := fmt.Sprintf("Page %d", i)
		if i <= 3 {
			title = "An extremely long title tag that keeps going well past sixty characters"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%s://example.com/page-%d", scheme, i),
			status,
			indexability,
			title,
			fmt.Sprintf("%d", i*50),
		})
	}
	return NewTable(header, rows)
}

func TestNewTable_PadsShortRows(t *testing.T) {
	table := NewTable([]string{" Address ", "Status Code"}, [][]string{{"https://a"}, {"https://b", "200", "extra"}})

	assert.Equal(t, []string{"Address", "Status Code"}, table.Columns)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, "", table.Rows[0]["Status Code"])
	assert.Equal(t, "200", table.Rows[1]["Status Code"])
	assert.Len(t, table.Rows[1], 2)
}

func TestExecute_NonHTTPSCount(t *testing.T) {
	result := Execute(crawlTable(), AnalysisPlan{
		Operation: "filter",
		Filters:   []Filter{{Column: "url", Operator: OpNotContains, Value: "https://"}},
	})

	assert.Equal(t, 21, result.Total)
	assert.Equal(t, 1, result.MatchingCount)
	assert.Equal(t, 4.8, result.Percentage)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "http://example.com/page-7", result.Rows[0]["Address"])
	require.Len(t, result.Applied, 1)
	assert.Equal(t, "Address", result.Applied[0].Column)
}

func TestExecute_Operators(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"equals case insensitive", Filter{Column: "Indexability", Operator: "equals", Value: "non-indexable"}, 4},
		{"not equals", Filter{Column: "Status Code", Operator: "!=", Value: "200"}, 4},
		{"contains", Filter{Column: "Address", Operator: OpContains, Value: "page-1"}, 11},
		{"greater", Filter{Column: "Word Count", Operator: OpGreater, Value: "900"}, 3},
		{"less", Filter{Column: "Word Count", Operator: "lt", Value: "300"}, 5},
		{"length greater", Filter{Column: "Title 1", Operator: OpLengthGreater, Value: "60"}, 3},
		{"length via column name", Filter{Column: "Title 1 length", Operator: OpGreater, Value: "60"}, 3},
		{"length less", Filter{Column: "Title", Operator: OpLengthLess, Value: "7"}, 6},
		{"is empty", Filter{Column: "Title 1", Operator: OpIsEmpty}, 0},
		{"not empty", Filter{Column: "Title 1", Operator: OpNotEmpty}, 21},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Execute(crawlTable(), AnalysisPlan{Filters: []Filter{tt.filter}})
			assert.Equal(t, tt.want, result.MatchingCount)
			assert.Empty(t, result.Skipped)
		})
	}
}

func TestExecute_SkipsBadFilters(t *testing.T) {
	result := Execute(crawlTable(), AnalysisPlan{Filters: []Filter{
		{Column: "canonical", Operator: OpEquals, Value: "x"},
		{Column: "Word Count", Operator: OpGreater, Value: "lots"},
		{Column: "Address", Operator: "matches_regex", Value: ".*"},
	}})

	assert.Equal(t, 21, result.MatchingCount)
	assert.Len(t, result.Skipped, 3)
	assert.Empty(t, result.Applied)
}

func TestExecute_NoMatchesIsZeroCount(t *testing.T) {
	result := Execute(crawlTable(), AnalysisPlan{Filters: []Filter{{Column: "Status Code", Operator: OpEquals, Value: "404"}}})

	assert.Equal(t, 0, result.MatchingCount)
	assert.Equal(t, 0.0, result.Percentage)
	assert.Empty(t, result.Rows)
}

func TestExecute_GroupBy(t *testing.T) {
	result := Execute(crawlTable(), AnalysisPlan{Operation: "group", GroupBy: "indexability", Aggregation: "count"})

	assert.Equal(t, "grouped", result.Type)
	assert.Equal(t, "Indexability", result.GroupBy)
	require.Len(t, result.Groups, 2)
	assert.Equal(t, Group{Key: "Indexable", Count: 17}, result.Groups[0])
	assert.Equal(t, Group{Key: "Non-Indexable", Count: 4}, result.Groups[1])
}

func TestExecute_GroupByMean(t *testing.T) {
	result := Execute(crawlTable(), AnalysisPlan{GroupBy: "Indexability", Aggregation: "mean"})

	require.Len(t, result.Groups, 2)
	non := result.Groups[1]
	assert.Equal(t, "Non-Indexable", non.Key)
	// pages 5, 10, 15, 20
	assert.Equal(t, 625.0, non.Means["Word Count"])
	assert.Equal(t, 301.0, non.Means["Status Code"])
	_, hasTitle := non.Means["Title 1"]
	assert.False(t, hasTitle)
}

func TestExecute_LimitAndSelect(t *testing.T) {
	result := Execute(crawlTable(), AnalysisPlan{SelectColumns: []string{"url", "status", "url"}, Limit: 5})

	assert.Equal(t, 21, result.MatchingCount)
	assert.True(t, result.Truncated)
	assert.Equal(t, []string{"Address", "Status Code"}, result.Columns)
	require.Len(t, result.Rows, 5)
	assert.Len(t, result.Rows[0], 2)
}

func TestFilter_FlexibleValue(t *testing.T) {
	var plan AnalysisPlan
	raw := `{"filters":[{"column":"a","operator":"greater","value":60},{"column":"b","value":true},{"column":"c","value":null}]}`
	require.NoError(t, json.Unmarshal([]byte(raw), &plan))

	require.Len(t, plan.Filters, 3)
	assert.Equal(t, FlexString("60"), plan.Filters[0].Value)
	assert.Equal(t, FlexString("true"), plan.Filters[1].Value)
	assert.Equal(t, FlexString(""), plan.Filters[2].Value)
}
