package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIntent(t *testing.T) {
	tests := []struct {
		name   string
		labels []AgentLabel
		want   []AgentLabel
	}{
		{"empty falls back to default", nil, []AgentLabel{LabelAnalytics, LabelSEO}},
		{"single seo", []AgentLabel{LabelSEO}, []AgentLabel{LabelSEO}},
		{"duplicates removed", []AgentLabel{LabelSEO, LabelSEO}, []AgentLabel{LabelSEO}},
		{"canonical order", []AgentLabel{LabelSEO, LabelAnalytics}, []AgentLabel{LabelAnalytics, LabelSEO}},
		{"unknown dropped", []AgentLabel{"BILLING", LabelAnalytics}, []AgentLabel{LabelAnalytics}},
		{"only unknown", []AgentLabel{"BILLING"}, []AgentLabel{LabelAnalytics, LabelSEO}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewIntent(tt.labels...).Labels())
		})
	}
}

func TestIntent_ZeroValueIsDefault(t *testing.T) {
	var intent Intent
	assert.True(t, intent.IsCrossAgent())
	assert.True(t, intent.Has(LabelAnalytics))
	assert.True(t, intent.Has(LabelSEO))
	assert.Equal(t, "ANALYTICS+SEO", intent.String())
}

func TestIntent_LabelsReturnsCopy(t *testing.T) {
	intent := NewIntent(LabelSEO)
	labels := intent.Labels()
	labels[0] = LabelAnalytics
	assert.Equal(t, []AgentLabel{LabelSEO}, intent.Labels())
}

func TestIntent_With(t *testing.T) {
	intent := NewIntent(LabelSEO).With(LabelAnalytics)
	assert.Equal(t, []AgentLabel{LabelAnalytics, LabelSEO}, intent.Labels())
	assert.True(t, intent.Equal(DefaultIntent()))
}

func TestIntent_JSON(t *testing.T) {
	data, err := json.Marshal(NewIntent(LabelSEO))
	require.NoError(t, err)
	assert.JSONEq(t, `["SEO"]`, string(data))

	var decoded Intent
	require.NoError(t, json.Unmarshal([]byte(`["SEO","ANALYTICS","SEO"]`), &decoded))
	assert.Equal(t, []AgentLabel{LabelAnalytics, LabelSEO}, decoded.Labels())
}

func TestParseAgentLabel(t *testing.T) {
	l, ok := ParseAgentLabel(" seo ")
	assert.True(t, ok)
	assert.Equal(t, LabelSEO, l)

	_, ok = ParseAgentLabel("both")
	assert.False(t, ok)
}

func TestNewQuery(t *testing.T) {
	q := NewQuery("  how many users?  ", "  123 ")
	assert.Equal(t, "how many users?", q.Text)
	assert.Equal(t, "123", q.PropertyID)
	assert.True(t, q.HasPropertyID())
	assert.False(t, NewQuery("x", "   ").HasPropertyID())
}

func TestOverallStatus(t *testing.T) {
	ok := SuccessResult(LabelAnalytics, "fine", nil)
	empty := EmptyResult(LabelSEO, "nothing", nil)
	failed := ErrorResult(LabelSEO, ErrorDetail{Code: "X", Kind: "fatal", Message: "boom"})

	tests := []struct {
		name    string
		results []AgentResult
		want    ResultStatus
	}{
		{"one success", []AgentResult{ok}, StatusSuccess},
		{"partial success", []AgentResult{ok, failed}, StatusSuccess},
		{"all errors", []AgentResult{failed, failed}, StatusError},
		{"empty and error", []AgentResult{empty, failed}, StatusEmpty},
		{"only empty", []AgentResult{empty}, StatusEmpty},
		{"nothing", nil, StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OverallStatus(tt.results))
		})
	}
}

func TestErrorResult_CarriesDetail(t *testing.T) {
	r := ErrorResult(LabelAnalytics, ErrorDetail{Code: "PROPERTY_ID_REQUIRED", Kind: "fatal", Message: "missing"})
	require.NotNil(t, r.Error)
	assert.Equal(t, StatusError, r.Status)
	assert.Equal(t, "missing", r.Narrative)
	assert.False(t, r.Succeeded())
}
