package seo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordPlan(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  AnalysisPlan
	}{
		{
			name:  "non https",
			query: "Which URLs are not using HTTPS?",
			want: AnalysisPlan{Operation: "filter", Filters: []Filter{
				{Column: "url", Operator: OpNotContains, Value: "https://"},
			}},
		},
		{
			name:  "group by indexability",
			query: "Group all pages by indexability",
			want:  AnalysisPlan{Operation: "group", GroupBy: "Indexability", Aggregation: "count"},
		},
		{
			name:  "non indexable",
			query: "List non-indexable pages",
			want: AnalysisPlan{Operation: "filter", Filters: []Filter{
				{Column: "indexability", Operator: OpEquals, Value: "Non-Indexable"},
			}},
		},
		{
			name:  "specific status",
			query: "How many pages return a 404 status?",
			want: AnalysisPlan{Operation: "filter", Filters: []Filter{
				{Column: "status code", Operator: OpEquals, Value: "404"},
			}},
		},
		{
			name:  "status breakdown",
			query: "Break down pages by status code",
			want:  AnalysisPlan{Operation: "group", GroupBy: "Status Code", Aggregation: "count"},
		},
		{
			name:  "long titles with threshold",
			query: "Show title tags longer than 70 characters",
			want: AnalysisPlan{Operation: "filter", Filters: []Filter{
				{Column: "title", Operator: OpLengthGreater, Value: "70"},
			}},
		},
		{
			name:  "long titles default",
			query: "Which pages have titles that are too long?",
			want: AnalysisPlan{Operation: "filter", Filters: []Filter{
				{Column: "title", Operator: OpLengthGreater, Value: "60"},
			}},
		},
		{
			name:  "missing meta description",
			query: "Pages missing a meta description",
			want: AnalysisPlan{Operation: "filter", Filters: []Filter{
				{Column: "meta description", Operator: OpIsEmpty},
			}},
		},
		{
			name:  "thin content with limit and json",
			query: "Top 5 pages with thin content, return JSON",
			want: AnalysisPlan{Operation: "filter", Limit: 5, ReturnJSON: true, Filters: []Filter{
				{Column: "word count", Operator: OpLess, Value: "300"},
			}},
		},
		{
			name:  "nothing recognizable",
			query: "Tell me about the crawl",
			want:  AnalysisPlan{Operation: "list"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, keywordPlan(tt.query))
		})
	}
}

func TestParsePlan(t *testing.T) {
	t.Run("fenced object", func(t *testing.T) {
		plan, err := parsePlan("Here you go:\n```json\n{\"operation\":\"group\",\"group_by\":\"Indexability\",\"aggregation\":\"count\",\"limit\":10}\n```")
		require.NoError(t, err)
		assert.Equal(t, "group", plan.Operation)
		assert.Equal(t, "Indexability", plan.GroupBy)
		assert.Equal(t, 10, plan.Limit)
	})

	t.Run("null strings", func(t *testing.T) {
		plan, err := parsePlan(`{"operation":"filter","group_by":"null","aggregation":"null","filters":[{"column":"Address","operator":"contains","value":"blog"}]}`)
		require.NoError(t, err)
		assert.Empty(t, plan.GroupBy)
		assert.Empty(t, plan.Aggregation)
		require.Len(t, plan.Filters, 1)
	})

	t.Run("empty object", func(t *testing.T) {
		_, err := parsePlan("{}")
		assert.Error(t, err)
	})

	t.Run("no json", func(t *testing.T) {
		_, err := parsePlan("I cannot help with that.")
		assert.Error(t, err)
	})
}

func TestPlanPrompt_ListsColumns(t *testing.T) {
	prompt := planPrompt([]string{"Address", "Status Code"})
	assert.Contains(t, prompt, "Available columns: Address, Status Code")
	assert.Contains(t, prompt, "SEO data analyst")
}
