// internal/agents/seo/handler.go
package seo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"query-orchestrator/internal/agents"
	apperrors "query-orchestrator/internal/common/errors"
	"query-orchestrator/internal/common/logger"
	"query-orchestrator/internal/llm"
	"query-orchestrator/internal/models"
)

const AgentName = "seo-agent"

const narrativeSystemPrompt = `You are an SEO expert explaining the results of a site crawl analysis.
The counts below were computed from the crawl export and are exact. Restate them as given.
Explain what the findings mean for search visibility and suggest concrete fixes.
Keep the answer short and specific.`

const emptyTableNarrative = "The SEO crawl export contains no rows."

type Handler struct {
	config *Config
	llm    agents.Completer
	source DataSource
	logger logger.Logger
}

func NewHandler(config *Config, completer agents.Completer, source DataSource, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		llm:    completer,
		source: source,
		logger: log.With(map[string]interface{}{
			"agent": AgentName,
		}),
	}
}

func (h *Handler) Label() models.AgentLabel {
	return models.LabelSEO
}

func (h *Handler) Handle(ctx context.Context, q models.Query) (result models.AgentResult) {
	defer agents.Recover(models.LabelSEO, h.logger, &result)

	table, err := h.load(ctx)
	if err != nil {
		se, ok := apperrors.AsStandard(err)
		if !ok {
			se = apperrors.NewSEODataUnavailableError(err)
		}
		h.logger.Error("SEO data load failed", map[string]interface{}{
			"code":  string(se.Code),
			"error": err.Error(),
		})
		return models.ErrorResult(models.LabelSEO, se.Detail())
	}

	if table.Len() == 0 {
		return models.EmptyResult(models.LabelSEO, emptyTableNarrative, map[string]interface{}{
			"total":   0,
			"columns": table.Columns,
		})
	}

	plan, planSource := h.interpret(ctx, q, table)
	if plan.Limit <= 0 || plan.Limit > h.config.ResultLimit {
		plan.Limit = h.config.ResultLimit
	}

	analysis := Execute(table, plan)
	if len(analysis.Skipped) > 0 {
		h.logger.Warn("skipped plan filters", map[string]interface{}{
			"skipped": analysis.Skipped,
		})
	}

	payload := map[string]interface{}{
		"analysis":      analysis,
		"plan":          plan,
		"planSource":    planSource,
		"matchingCount": analysis.MatchingCount,
		"total":         analysis.Total,
		"percentage":    analysis.Percentage,
	}

	return models.SuccessResult(models.LabelSEO, h.narrate(ctx, q, plan, analysis), payload)
}

func (h *Handler) load(ctx context.Context) (*Table, error) {
	loadCtx, cancel := context.WithTimeout(ctx, h.config.LoadTimeout)
	defer cancel()

	table, err := h.source.Load(loadCtx)
	if err != nil {
		return nil, err
	}
	if table == nil {
		table = &Table{}
	}
	return table, nil
}

// interpret asks the LLM for an analysis plan and falls back to keyword rules.
func (h *Handler) interpret(ctx context.Context, q models.Query, table *Table) (AnalysisPlan, string) {
	sample := table.Rows
	if len(sample) > h.config.SampleRows {
		sample = sample[:h.config.SampleRows]
	}
	sampleJSON, _ := json.Marshal(sample)

	resp, err := h.llm.Complete(ctx, llm.Request{
		SystemPrompt: planPrompt(table.Columns),
		Prompt: strings.Join([]string{
			fmt.Sprintf("Question: %s", q.Text),
			fmt.Sprintf("Total rows: %d", table.Len()),
			fmt.Sprintf("Sample rows: %s", agents.Truncate(string(sampleJSON), 2000)),
		}, "\n"),
		Temperature: llm.Float(0.1),
		MaxTokens:   512,
	})
	if err != nil {
		h.logger.Warn("plan generation failed, using keyword plan", map[string]interface{}{"error": err.Error()})
		return keywordPlan(q.Text), "keyword"
	}

	plan, err := parsePlan(resp.Text)
	if err != nil {
		h.logger.Warn("unparseable plan, using keyword plan", map[string]interface{}{
			"error":  err.Error(),
			"output": agents.Truncate(resp.Text, 200),
		})
		return keywordPlan(q.Text), "keyword"
	}
	if agents.WantsJSON(q.Text) {
		plan.ReturnJSON = true
	}
	return plan, "llm"
}

func (h *Handler) narrate(ctx context.Context, q models.Query, plan AnalysisPlan, analysis AnalysisResult) string {
	if plan.ReturnJSON || agents.WantsJSON(q.Text) {
		data, _ := json.MarshalIndent(analysis, "", "  ")
		return string(data)
	}

	preview := analysis.Rows
	if len(preview) > 20 {
		preview = preview[:20]
	}
	previewJSON, _ := json.MarshalIndent(preview, "", "  ")
	groupsJSON, _ := json.MarshalIndent(analysis.Groups, "", "  ")

	parts := []string{
		fmt.Sprintf("User Question: %s", q.Text),
		"",
		"Analysis Results:",
		fmt.Sprintf("- Total URLs analyzed: %d", analysis.Total),
		fmt.Sprintf("- Matching URLs: %d", analysis.MatchingCount),
		fmt.Sprintf("- Percentage: %.1f%%", analysis.Percentage),
	}
	if analysis.Type == "grouped" {
		parts = append(parts, fmt.Sprintf("- Grouped by %s: %s", analysis.GroupBy, groupsJSON))
	} else {
		parts = append(parts, fmt.Sprintf("- Sample matches: %s", previewJSON))
	}

	resp, err := h.llm.Complete(ctx, llm.Request{
		SystemPrompt: narrativeSystemPrompt,
		Prompt:       strings.Join(parts, "\n"),
	})
	if err != nil {
		h.logger.Warn("narrative generation failed, using summary", map[string]interface{}{"error": err.Error()})
		return summarize(analysis)
	}
	return strings.TrimSpace(resp.Text)
}

// summarize describes an analysis without the LLM.
func summarize(analysis AnalysisResult) string {
	if analysis.Type == "grouped" {
		parts := make([]string, 0, len(analysis.Groups))
		for _, g := range analysis.Groups {
			key := g.Key
			if key == "" {
				key = "(blank)"
			}
			parts = append(parts, fmt.Sprintf("%s: %d", key, g.Count))
		}
		return fmt.Sprintf("%d URLs grouped by %s. %s.", analysis.MatchingCount, analysis.GroupBy, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("%d of %d URLs (%.1f%%) match the requested criteria.",
		analysis.MatchingCount, analysis.Total, analysis.Percentage)
}
