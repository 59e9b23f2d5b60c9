// internal/agents/seo/plan.go
package seo

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"query-orchestrator/internal/agents"
)

const planSystemPrompt = `You are an SEO data analyst. Turn the user's question about a site crawl export into an analysis plan.

Available columns: %s

Common column names:
- URL, Address: the page URL
- Title, Title 1: title tag
- Meta Description, Meta Description 1: meta description
- Status Code: HTTP status
- Indexability: whether the page is indexable
- Content Type, Word Count, H1-1

Return ONLY a JSON object:
{
  "operation": "filter|group|count|list",
  "filters": [{"column": "Address", "operator": "equals|not_equals|contains|not_contains|greater|less|is_empty|not_empty|length_greater|length_less", "value": "..."}],
  "group_by": "column or null",
  "aggregation": "count|sum|mean|null",
  "select_columns": ["Address"],
  "limit": 100,
  "return_json": false
}

Examples:
- "URLs without HTTPS" -> filter Address not_contains "https://"
- "Group by indexability" -> group_by "Indexability", aggregation "count"
- "Title tags longer than 60 characters" -> filter Title 1 length_greater 60
- "Return in JSON format" -> return_json true`

var (
	thresholdPattern = regexp.MustCompile(`(?:than|over|above|under|below|exceeds?|exceeding)\s+(\d{1,6})\b`)
	limitPattern     = regexp.MustCompile(`\b(?:top|first|limit)\s+(\d{1,4})\b`)
	statusPattern    = regexp.MustCompile(`\b([1-5]\d\d)\b`)
)

var insecurePhrases = []string{
	"non-https", "non https", "not https", "without https", "no https", "lack https",
	"lacking https", "missing https", "not using https", "don't use https", "do not use https",
	"http only", "http-only", "http instead", "instead of https", "insecure", "not secure",
}

var missingWords = []string{"missing", "empty", "without", "no ", "lack"}
var longerWords = []string{"longer than", "more than", "over", "exceed", "above", "greater than", "too long"}
var shorterWords = []string{"shorter than", "less than", "under", "below", "fewer than", "too short"}

func planPrompt(columns []string) string {
	return fmt.Sprintf(planSystemPrompt, strings.Join(columns, ", "))
}

// parsePlan decodes the LLM's plan. A plan with nothing recognizable is
// rejected so the keyword plan can take over.
func parsePlan(text string) (AnalysisPlan, error) {
	var plan AnalysisPlan
	if err := agents.DecodeJSONObject(text, &plan); err != nil {
		return AnalysisPlan{}, err
	}
	if plan.Operation == "" && len(plan.Filters) == 0 && plan.GroupBy == "" && len(plan.SelectColumns) == 0 && !plan.ReturnJSON {
		return AnalysisPlan{}, fmt.Errorf("plan has no operation")
	}
	if strings.EqualFold(plan.GroupBy, "null") {
		plan.GroupBy = ""
	}
	if strings.EqualFold(plan.Aggregation, "null") {
		plan.Aggregation = ""
	}
	return plan, nil
}

// keywordPlan derives a plan from the question alone.
func keywordPlan(query string) AnalysisPlan {
	q := strings.ToLower(query)
	plan := AnalysisPlan{Operation: "list", ReturnJSON: agents.WantsJSON(query)}

	if m := limitPattern.FindStringSubmatch(q); m != nil {
		plan.Limit, _ = strconv.Atoi(m[1])
	}

	switch {
	case containsAny(q, insecurePhrases):
		plan.Operation = "filter"
		plan.Filters = append(plan.Filters, Filter{Column: "url", Operator: OpNotContains, Value: "https://"})

	case strings.Contains(q, "non-indexable") || strings.Contains(q, "not indexable") || strings.Contains(q, "noindex"):
		plan.Operation = "filter"
		plan.Filters = append(plan.Filters, Filter{Column: "indexability", Operator: OpEquals, Value: "Non-Indexable"})

	case strings.Contains(q, "indexab"):
		plan.Operation = "group"
		plan.GroupBy = "Indexability"
		plan.Aggregation = "count"

	case strings.Contains(q, "status") || strings.Contains(q, "response code") || strings.Contains(q, "broken") || strings.Contains(q, "redirect"):
		if m := statusPattern.FindStringSubmatch(q); m != nil {
			plan.Operation = "filter"
			plan.Filters = append(plan.Filters, Filter{Column: "status code", Operator: OpEquals, Value: FlexString(m[1])})
		} else {
			plan.Operation = "group"
			plan.GroupBy = "Status Code"
			plan.Aggregation = "count"
		}

	case strings.Contains(q, "meta description"):
		plan.Filters = append(plan.Filters, textFieldFilter(q, "meta description", 155)...)

	case strings.Contains(q, "title"):
		plan.Filters = append(plan.Filters, textFieldFilter(q, "title", 60)...)

	case strings.Contains(q, "h1"):
		plan.Filters = append(plan.Filters, textFieldFilter(q, "h1", 70)...)

	case strings.Contains(q, "thin content") || strings.Contains(q, "word count"):
		n := threshold(q, 300)
		op := OpLess
		if containsAny(q, longerWords) {
			op = OpGreater
		}
		plan.Filters = append(plan.Filters, Filter{Column: "word count", Operator: op, Value: FlexString(strconv.Itoa(n))})
	}

	if len(plan.Filters) > 0 && plan.Operation == "list" {
		plan.Operation = "filter"
	}
	return plan
}

// textFieldFilter handles "missing X" and "X longer/shorter than N".
func textFieldFilter(q, column string, defaultLength int) []Filter {
	switch {
	case containsAny(q, longerWords) || strings.Contains(q, "long"):
		return []Filter{{Column: column, Operator: OpLengthGreater, Value: FlexString(strconv.Itoa(threshold(q, defaultLength)))}}
	case containsAny(q, shorterWords) || strings.Contains(q, "short"):
		return []Filter{{Column: column, Operator: OpLengthLess, Value: FlexString(strconv.Itoa(threshold(q, 30)))}}
	case containsAny(q, missingWords):
		return []Filter{{Column: column, Operator: OpIsEmpty}}
	}
	return nil
}

// threshold reads the number after a comparison word ("longer than 70").
func threshold(q string, fallback int) int {
	if m := thresholdPattern.FindStringSubmatch(q); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return fallback
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
