// internal/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"query-orchestrator/internal/agents"
	apperrors "query-orchestrator/internal/common/errors"
	"query-orchestrator/internal/common/logger"
	"query-orchestrator/internal/common/metrics"
	"query-orchestrator/internal/common/observability"
	"query-orchestrator/internal/models"
)

// Orchestrator answers queries by routing them to agents and fusing the results.
type Orchestrator struct {
	config     *Config
	classifier *Classifier
	agents     map[models.AgentLabel]agents.Agent
	llm        agents.Completer
	obs        *observability.Observability
	logger     logger.Logger
}

// New builds an orchestrator. Every known label must have an agent.
func New(config *Config, completer agents.Completer, registry map[models.AgentLabel]agents.Agent, obs *observability.Observability, log logger.Logger) (*Orchestrator, error) {
	resolved := make(map[models.AgentLabel]agents.Agent, len(models.AllLabels))
	for _, label := range models.AllLabels {
		agent, ok := registry[label]
		if !ok || agent == nil {
			return nil, apperrors.NewAgentMissingError(string(label))
		}
		if agent.Label() != label {
			return nil, fmt.Errorf("agent registered for %s reports label %s", label, agent.Label())
		}
		resolved[label] = agent
	}
	if obs == nil {
		obs = &observability.Observability{}
	}

	log = log.With(map[string]interface{}{
		"component": "orchestrator",
	})
	return &Orchestrator{
		config:     config,
		classifier: NewClassifier(completer, config.StrictFallback, log),
		agents:     resolved,
		llm:        completer,
		obs:        obs,
		logger:     log,
	}, nil
}

// Answer never fails: agent failures become error slots in the response.
func (o *Orchestrator) Answer(ctx context.Context, q models.Query) models.FusedResponse {
	start := time.Now()
	requestID := uuid.NewString()

	metrics.OrchestratorInFlight.Inc()
	defer metrics.OrchestratorInFlight.Dec()

	ctx, span := o.obs.StartSpan(ctx, "orchestrator.answer",
		attribute.String("request.id", requestID),
		attribute.Bool("query.has_property_id", q.HasPropertyID()),
	)
	defer span.End()

	log := o.logger.With(map[string]interface{}{
		"requestId": requestID,
	})
	log.Info("answering query", map[string]interface{}{
		"queryLength":   len(q.Text),
		"hasPropertyId": q.HasPropertyID(),
	})

	intent := o.classifier.Classify(ctx, q)
	span.SetAttributes(attribute.String("intent", intent.String()))

	results := o.dispatch(ctx, q, intent)
	narrative := o.fuse(ctx, q, results, log)
	status := models.OverallStatus(results)

	resp := models.FusedResponse{
		RequestID:  requestID,
		Status:     status,
		Narrative:  narrative,
		Results:    results,
		Intent:     intent.Labels(),
		CrossAgent: intent.IsCrossAgent(),
	}

	elapsed := time.Since(start)
	metrics.OrchestratorRequests.WithLabelValues(string(status)).Inc()
	metrics.OrchestratorRequestDuration.WithLabelValues(string(status)).Observe(elapsed.Seconds())
	o.obs.RecordQuery(ctx, string(status))
	o.obs.RecordQueryDuration(ctx, elapsed, string(status))

	span.SetAttributes(attribute.String("status", string(status)))
	if status == models.StatusError {
		span.SetStatus(codes.Error, "all agents failed")
	}

	log.Info("query answered", map[string]interface{}{
		"intent":     intent.String(),
		"status":     string(status),
		"durationMs": elapsed.Milliseconds(),
	})
	return resp
}

// dispatch runs one agent per label. Results come back in the intent's order.
func (o *Orchestrator) dispatch(ctx context.Context, q models.Query, intent models.Intent) []models.AgentResult {
	labels := intent.Labels()
	results := make([]models.AgentResult, len(labels))

	if len(labels) == 1 {
		results[0] = o.run(ctx, o.agents[labels[0]], q)
		return results
	}

	var wg sync.WaitGroup
	for i, label := range labels {
		wg.Add(1)
		go func(i int, agent agents.Agent) {
			defer wg.Done()
			results[i] = o.run(ctx, agent, q)
		}(i, o.agents[label])
	}
	wg.Wait()
	return results
}

// run calls one agent under its own deadline. A result that arrives after the
// deadline is discarded.
func (o *Orchestrator) run(ctx context.Context, agent agents.Agent, q models.Query) models.AgentResult {
	label := agent.Label()
	start := time.Now()

	ctx, span := o.obs.StartSpan(ctx, "agent."+strings.ToLower(string(label)))
	defer span.End()

	agentCtx, cancel := context.WithTimeout(ctx, o.config.AgentTimeout)
	defer cancel()

	done := make(chan models.AgentResult, 1)
	go func() {
		done <- o.invoke(agentCtx, agent, q)
	}()

	var result models.AgentResult
	select {
	case result = <-done:
	case <-agentCtx.Done():
		select {
		case result = <-done:
		default:
			result = o.abandoned(ctx, label)
		}
	}
	result = normalize(label, result)

	metrics.AgentResults.WithLabelValues(string(label), string(result.Status)).Inc()
	metrics.AgentDuration.WithLabelValues(string(label)).Observe(time.Since(start).Seconds())
	o.obs.RecordAgent(ctx, string(label), string(result.Status))

	span.SetAttributes(attribute.String("status", string(result.Status)))
	if result.Error != nil {
		span.SetStatus(codes.Error, result.Error.Code)
		o.logger.Warn("agent returned an error", map[string]interface{}{
			"agent":     string(label),
			"code":      result.Error.Code,
			"kind":      result.Error.Kind,
			"category":  result.Error.Category,
			"retryable": result.Error.Retryable,
		})
	}
	return result
}

func (o *Orchestrator) invoke(ctx context.Context, agent agents.Agent, q models.Query) (result models.AgentResult) {
	defer agents.Recover(agent.Label(), o.logger, &result)
	return agent.Handle(ctx, q)
}

// abandoned builds the slot for an agent that did not answer in time.
func (o *Orchestrator) abandoned(ctx context.Context, label models.AgentLabel) models.AgentResult {
	if errors.Is(ctx.Err(), context.Canceled) {
		return models.ErrorResult(label, apperrors.NewAgentCanceledError(string(label), ctx.Err()).Detail())
	}
	return models.ErrorResult(label, apperrors.NewAgentTimeoutError(string(label), o.config.AgentTimeout).Detail())
}

// normalize keeps a misbehaving agent from breaking response invariants.
func normalize(label models.AgentLabel, result models.AgentResult) models.AgentResult {
	result.Agent = label
	switch result.Status {
	case models.StatusSuccess, models.StatusEmpty:
		result.Error = nil
	case models.StatusError:
		if result.Error == nil {
			detail := apperrors.New(apperrors.ErrCodeInternal, apperrors.KindFatal, "agent failed without details").Detail()
			result.Error = &detail
			if result.Narrative == "" {
				result.Narrative = detail.Message
			}
		}
	default:
		detail := apperrors.New(apperrors.ErrCodeInternal, apperrors.KindFatal,
			fmt.Sprintf("agent returned unknown status %q", result.Status)).Detail()
		return models.ErrorResult(label, detail)
	}
	return result
}
