package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"query-orchestrator/internal/common/logger"
	"query-orchestrator/internal/models"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"bare", `{"a":1}`, `{"a":1}`, true},
		{"fenced", "```json\n{\"a\": {\"b\": 2}}\n```", `{"a": {"b": 2}}`, true},
		{"prose around", `Here you go: {"a":"}"} hope it helps {"x":1}`, `{"a":"}"}`, true},
		{"escaped quote", `{"a":"say \"hi\" }"}`, `{"a":"say \"hi\" }"}`, true},
		{"unbalanced", `{"a":1`, "", false},
		{"none", `no json here`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSONObject(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeJSONObject(t *testing.T) {
	var v struct {
		Metrics []string `json:"metrics"`
	}
	require.NoError(t, DecodeJSONObject("plan:\n{\"metrics\":[\"sessions\"]}", &v))
	assert.Equal(t, []string{"sessions"}, v.Metrics)

	assert.ErrorIs(t, DecodeJSONObject("nothing", &v), ErrNoJSONObject)
	assert.Error(t, DecodeJSONObject("{not json}", &v))
}

func TestRecover(t *testing.T) {
	run := func() (result models.AgentResult) {
		defer Recover(models.LabelSEO, logger.NewTestLogger(t), &result)
		var m map[string]int
		m["boom"] = 1
		return models.SuccessResult(models.LabelSEO, "unreachable", nil)
	}

	result := run()
	assert.Equal(t, models.StatusError, result.Status)
	require.NotNil(t, result.Error)
	assert.Equal(t, "AGENT_PANIC", result.Error.Code)
	assert.Equal(t, models.LabelSEO, result.Agent)
}

func TestWantsJSON(t *testing.T) {
	assert.True(t, WantsJSON("return the results in JSON format"))
	assert.False(t, WantsJSON("how many sessions last week"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab...", Truncate("abcdef", 2))
}
