// Package agents defines the contract shared by the specialized agents.
package agents

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	apperrors "query-orchestrator/internal/common/errors"
	"query-orchestrator/internal/common/logger"
	"query-orchestrator/internal/llm"
	"query-orchestrator/internal/models"
)

// Agent answers the part of a query that falls in its domain. Handle never
// returns an error: failures are reported through the result status.
type Agent interface {
	Label() models.AgentLabel
	Handle(ctx context.Context, q models.Query) models.AgentResult
}

// Completer is the LLM dependency of agents and the orchestrator.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

var ErrNoJSONObject = errors.New("no JSON object in LLM output")

// Recover converts a panic inside Handle into an error result. It must be
// deferred directly.
func Recover(label models.AgentLabel, log logger.Logger, out *models.AgentResult) {
	if r := recover(); r != nil {
		err := apperrors.NewAgentPanicError(string(label), r)
		log.Error("agent panicked", map[string]interface{}{
			"agent": string(label),
			"panic": err.Details,
		})
		*out = models.ErrorResult(label, err.Detail())
	}
}

// ExtractJSONObject returns the first balanced {...} block in text, ignoring
// markdown fences and prose around it.
func ExtractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// DecodeJSONObject extracts the first JSON object in text into v.
func DecodeJSONObject(text string, v interface{}) error {
	raw, ok := ExtractJSONObject(text)
	if !ok {
		return ErrNoJSONObject
	}
	return json.Unmarshal([]byte(raw), v)
}

// WantsJSON reports whether the user asked for machine-readable output.
func WantsJSON(query string) bool {
	return strings.Contains(strings.ToLower(query), "json")
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
