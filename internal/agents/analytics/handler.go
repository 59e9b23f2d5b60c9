// internal/agents/analytics/handler.go
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"query-orchestrator/internal/agents"
	apperrors "query-orchestrator/internal/common/errors"
	"query-orchestrator/internal/common/logger"
	"query-orchestrator/internal/llm"
	"query-orchestrator/internal/models"
)

const AgentName = "analytics-agent"

const planSystemPrompt = `You translate questions about website traffic into a Google Analytics 4 reporting plan.
Return ONLY a JSON object with these fields:
{
  "metrics": ["screenPageViews"],
  "dimensions": ["date"],
  "date_range": {"type": "relative", "days": 14} or {"type": "absolute", "start_date": "YYYY-MM-DD", "end_date": "YYYY-MM-DD"},
  "filters": [{"dimension": "pagePath", "value": "/pricing"}],
  "order_by": {"field": "screenPageViews", "descending": true},
  "limit": 10
}
Use GA4 API names. "last X days" means a relative range of X days. Default to the last 7 days.
Use the "date" dimension for daily breakdowns and trends.`

const narrativeSystemPrompt = `You are a data analyst explaining GA4 analytics results.
Given the user's question and the GA4 data, give a clear and concise answer.
Lead with the key findings, mention specific numbers, and describe trends when the data is a time series.
Only use numbers that appear in the data.`

type Handler struct {
	config *Config
	llm    agents.Completer
	source DataSource
	logger logger.Logger
	now    func() time.Time
}

func NewHandler(config *Config, completer agents.Completer, source DataSource, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		llm:    completer,
		source: source,
		logger: log.With(map[string]interface{}{
			"agent": AgentName,
		}),
		now: time.Now,
	}
}

// WithClock sets the clock used to resolve relative date ranges.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

func (h *Handler) Label() models.AgentLabel {
	return models.LabelAnalytics
}

func (h *Handler) Handle(ctx context.Context, q models.Query) (result models.AgentResult) {
	defer agents.Recover(models.LabelAnalytics, h.logger, &result)

	if !q.HasPropertyID() {
		return models.ErrorResult(models.LabelAnalytics, apperrors.NewPropertyIDRequiredError().Detail())
	}

	plan, planSource := h.interpret(ctx, q)
	req, dropped := validate(plan, h.config, h.now())
	if len(dropped) > 0 {
		h.logger.Warn("dropped unknown plan fields", map[string]interface{}{
			"dropped": dropped,
		})
	}

	report, err := h.fetch(ctx, q.PropertyID, req)
	if err != nil {
		se := ClassifyFetchError(err)
		h.logger.Error("GA4 report failed", map[string]interface{}{
			"propertyId": q.PropertyID,
			"code":       string(se.Code),
			"error":      err.Error(),
		})
		return models.ErrorResult(models.LabelAnalytics, se.Detail())
	}

	payload := map[string]interface{}{
		"propertyId": q.PropertyID,
		"plan":       req,
		"planSource": planSource,
		"rowCount":   report.RowCount,
		"rows":       report.Rows,
		"totals":     report.Totals,
	}
	if len(dropped) > 0 {
		payload["droppedFields"] = dropped
	}

	if len(report.Rows) == 0 {
		return models.EmptyResult(models.LabelAnalytics, emptyNarrative(q.PropertyID, req), payload)
	}

	return models.SuccessResult(models.LabelAnalytics, h.narrate(ctx, q, req, report), payload)
}

// interpret asks the LLM for a reporting plan and falls back to the default one.
func (h *Handler) interpret(ctx context.Context, q models.Query) (ReportingPlan, string) {
	prompt := strings.Join([]string{
		fmt.Sprintf("Today is %s.", h.now().Format(dateLayout)),
		fmt.Sprintf("Question: %s", q.Text),
	}, "\n")

	resp, err := h.llm.Complete(ctx, llm.Request{
		SystemPrompt: planSystemPrompt,
		Prompt:       prompt,
		Temperature:  llm.Float(0.1),
		MaxTokens:    512,
	})
	if err != nil {
		h.logger.Warn("plan generation failed, using default plan", map[string]interface{}{"error": err.Error()})
		return defaultPlan(h.config.DefaultDays), "default"
	}

	var plan ReportingPlan
	if err := agents.DecodeJSONObject(resp.Text, &plan); err != nil {
		h.logger.Warn("unparseable plan, using default plan", map[string]interface{}{
			"error":  err.Error(),
			"output": agents.Truncate(resp.Text, 200),
		})
		return defaultPlan(h.config.DefaultDays), "default"
	}
	return plan, "llm"
}

func (h *Handler) fetch(ctx context.Context, propertyID string, req ReportRequest) (*Report, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, h.config.FetchTimeout)
	defer cancel()

	report, err := h.source.RunReport(fetchCtx, propertyID, req)
	if err != nil {
		return nil, err
	}
	if report == nil {
		report = &Report{}
	}
	return report, nil
}

func (h *Handler) narrate(ctx context.Context, q models.Query, req ReportRequest, report *Report) string {
	rows := report.Rows
	if len(rows) > h.config.NarrativeRows {
		rows = rows[:h.config.NarrativeRows]
	}

	if agents.WantsJSON(q.Text) {
		data, _ := json.MarshalIndent(map[string]interface{}{
			"rows":     report.Rows,
			"totals":   report.Totals,
			"rowCount": report.RowCount,
		}, "", "  ")
		return string(data)
	}

	rowsJSON, _ := json.MarshalIndent(rows, "", "  ")
	totalsJSON, _ := json.Marshal(report.Totals)
	parts := []string{
		fmt.Sprintf("User Question: %s", q.Text),
		"",
		"Query Plan:",
		fmt.Sprintf("- Metrics: %s", strings.Join(req.Metrics, ", ")),
		fmt.Sprintf("- Dimensions: %s", strings.Join(req.Dimensions, ", ")),
		fmt.Sprintf("- Date Range: %s to %s", req.StartDate, req.EndDate),
		"",
		"GA4 Results:",
		fmt.Sprintf("- Total Rows: %d", report.RowCount),
		fmt.Sprintf("- Data (first %d rows): %s", len(rows), rowsJSON),
		fmt.Sprintf("- Totals: %s", totalsJSON),
	}

	resp, err := h.llm.Complete(ctx, llm.Request{
		SystemPrompt: narrativeSystemPrompt,
		Prompt:       strings.Join(parts, "\n"),
	})
	if err != nil {
		h.logger.Warn("narrative generation failed, using summary", map[string]interface{}{"error": err.Error()})
		return summarize(req, report)
	}
	return strings.TrimSpace(resp.Text)
}

func emptyNarrative(propertyID string, req ReportRequest) string {
	return fmt.Sprintf("No %s recorded for property %s between %s and %s.",
		strings.Join(req.Metrics, ", "), propertyID, req.StartDate, req.EndDate)
}

// summarize describes a report without the LLM.
func summarize(req ReportRequest, report *Report) string {
	totals := report.Totals
	if len(totals) == 0 {
		totals = sumMetrics(report)
	}

	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s %s", k, totals[k]))
	}

	rowCount := report.RowCount
	if rowCount == 0 {
		rowCount = int64(len(report.Rows))
	}
	summary := fmt.Sprintf("GA4 returned %d rows between %s and %s.", rowCount, req.StartDate, req.EndDate)
	if len(pairs) > 0 {
		summary += " Totals: " + strings.Join(pairs, ", ") + "."
	}
	return summary
}

func sumMetrics(report *Report) map[string]string {
	out := make(map[string]string, len(report.MetricHeaders))
	for _, metric := range report.MetricHeaders {
		var sum float64
		for _, row := range report.Rows {
			if v, err := strconv.ParseFloat(row[metric], 64); err == nil {
				sum += v
			}
		}
		out[metric] = strconv.FormatFloat(sum, 'f', -1, 64)
	}
	return out
}
