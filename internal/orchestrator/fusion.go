// internal/orchestrator/fusion.go
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"query-orchestrator/internal/agents"
	apperrors "query-orchestrator/internal/common/errors"
	"query-orchestrator/internal/common/logger"
	"query-orchestrator/internal/common/metrics"
	"query-orchestrator/internal/llm"
	"query-orchestrator/internal/models"
)

const fusionSystemPrompt = `You combine the findings of a web analytics specialist and an SEO specialist into one answer.
Use only the facts in their answers. Keep every number exactly as given.
Connect traffic and SEO findings where the data supports it and say so when one side has no data or failed.
Answer the user's question directly.`

const payloadSummaryLimit = 1500

var sectionTitles = map[models.AgentLabel]string{
	models.LabelAnalytics: "Analytics",
	models.LabelSEO:       "SEO",
}

// fuse produces the final narrative. Only a two-agent answer with at least one
// success goes through the LLM.
func (o *Orchestrator) fuse(ctx context.Context, q models.Query, results []models.AgentResult, log logger.Logger) string {
	if len(results) == 1 {
		metrics.FusionOutcomes.WithLabelValues("single").Inc()
		return results[0].Narrative
	}

	succeeded := false
	for _, r := range results {
		if r.Succeeded() {
			succeeded = true
			break
		}
	}
	if !succeeded {
		metrics.FusionOutcomes.WithLabelValues("concatenated").Inc()
		return concatenate(results)
	}

	ctx, span := o.obs.StartSpan(ctx, "orchestrator.fuse")
	defer span.End()

	resp, err := o.llm.Complete(ctx, llm.Request{
		SystemPrompt: fusionSystemPrompt,
		Prompt:       fusionPrompt(q, results),
		Temperature:  llm.Float(0.3),
	})
	if err == nil && strings.TrimSpace(resp.Text) == "" {
		err = llm.ErrEmptyOutput
	}
	if err != nil {
		se := apperrors.NewFusionFailedError(err)
		log.Warn(se.Message, map[string]interface{}{
			"code":  string(se.Code),
			"error": err.Error(),
		})
		metrics.FusionOutcomes.WithLabelValues("concatenated").Inc()
		return concatenate(results)
	}

	metrics.FusionOutcomes.WithLabelValues("llm").Inc()
	return strings.TrimSpace(resp.Text)
}

func fusionPrompt(q models.Query, results []models.AgentResult) string {
	parts := []string{
		fmt.Sprintf("User Question: %s", q.Text),
	}
	for _, r := range results {
		parts = append(parts,
			"",
			fmt.Sprintf("%s agent (status: %s):", sectionTitles[r.Agent], r.Status),
			r.Narrative,
		)
		if summary := summarizePayload(r.Payload); summary != "" {
			parts = append(parts, fmt.Sprintf("Data: %s", summary))
		}
	}
	return strings.Join(parts, "\n")
}

func summarizePayload(payload map[string]interface{}) string {
	if len(payload) == 0 {
		return ""
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return agents.Truncate(string(data), payloadSummaryLimit)
}

// concatenate joins the narratives verbatim under section headers.
func concatenate(results []models.AgentResult) string {
	sections := make([]string, 0, len(results))
	for _, r := range results {
		sections = append(sections, fmt.Sprintf("[%s]\n%s", sectionTitles[r.Agent], r.Narrative))
	}
	return strings.Join(sections, "\n\n")
}
