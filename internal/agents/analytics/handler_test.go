package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"query-orchestrator/internal/agents/agentstest"
	apperrors "query-orchestrator/internal/common/errors"
	"query-orchestrator/internal/common/logger"
	"query-orchestrator/internal/models"
)

type fakeSource struct {
	mu       sync.Mutex
	report   *Report
	err      error
	block    bool
	panics   bool
	requests []ReportRequest
	props    []string
}

func (f *fakeSource) RunReport(ctx context.Context, propertyID string, req ReportRequest) (*Report, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.props = append(f.props, propertyID)
	f.mu.Unlock()

	if f.panics {
		panic("ga4 client exploded")
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.report, f.err
}

func dailyReport() *Report {
	return &Report{
		DimensionHeaders: []string{"date"},
		MetricHeaders:    []string{"screenPageViews"},
		Rows: []map[string]string{
			{"date": "20240301", "screenPageViews": "120"},
			{"date": "20240302", "screenPageViews": "80"},
		},
		RowCount: 2,
	}
}

const planJSON = "```json\n" + `{"metrics":["page views"],"dimensions":["day"],"date_range":{"type":"relative","days":14}}` + "\n```"

func newHandler(t *testing.T, llm *agentstest.LLM, source DataSource) *Handler {
	cfg := &Config{FetchTimeout: time.Second, DefaultDays: 7, RowLimit: 1000, NarrativeRows: 20}
	return NewHandler(cfg, llm, source, logger.NewTestLogger(t)).WithClock(func() time.Time { return fixedNow })
}

func TestHandle_MissingPropertyID(t *testing.T) {
	llm := &agentstest.LLM{}
	source := &fakeSource{}
	h := newHandler(t, llm, source)

	result := h.Handle(context.Background(), models.NewQuery("page views last week", ""))

	assert.Equal(t, models.StatusError, result.Status)
	require.NotNil(t, result.Error)
	assert.Equal(t, "PROPERTY_ID_REQUIRED", result.Error.Code)
	assert.Equal(t, "fatal", result.Error.Kind)
	assert.Empty(t, llm.Requests())
	assert.Empty(t, source.requests)
}

func TestHandle_Success(t *testing.T) {
	llm := &agentstest.LLM{Rules: map[string]agentstest.Reply{
		"reporting plan": {Text: planJSON},
		"data analyst":   {Text: "Page views peaked on March 1st with 120."},
	}}
	source := &fakeSource{report: dailyReport()}
	h := newHandler(t, llm, source)

	result := h.Handle(context.Background(), models.NewQuery("daily page views for the last 14 days", "123456"))

	assert.Equal(t, models.StatusSuccess, result.Status)
	assert.Equal(t, models.LabelAnalytics, result.Agent)
	assert.Equal(t, "Page views peaked on March 1st with 120.", result.Narrative)
	assert.Nil(t, result.Error)

	require.Len(t, source.requests, 1)
	req := source.requests[0]
	assert.Equal(t, "123456", source.props[0])
	assert.Equal(t, []string{"screenPageViews"}, req.Metrics)
	assert.Equal(t, []string{"date"}, req.Dimensions)
	assert.Equal(t, "2024-03-01", req.StartDate)
	assert.Equal(t, "2024-03-15", req.EndDate)

	assert.Equal(t, "llm", result.Payload["planSource"])
	assert.Equal(t, int64(2), result.Payload["rowCount"])
}

func TestHandle_UnparseablePlanUsesDefault(t *testing.T) {
	llm := &agentstest.LLM{Rules: map[string]agentstest.Reply{
		"reporting plan": {Text: "I think you want page views"},
		"data analyst":   {Text: "ok"},
	}}
	source := &fakeSource{report: dailyReport()}
	h := newHandler(t, llm, source)

	result := h.Handle(context.Background(), models.NewQuery("traffic?", "1"))

	assert.Equal(t, models.StatusSuccess, result.Status)
	assert.Equal(t, "default", result.Payload["planSource"])
	require.Len(t, source.requests, 1)
	assert.Equal(t, []string{"screenPageViews", "totalUsers", "sessions"}, source.requests[0].Metrics)
	assert.Equal(t, []string{"date"}, source.requests[0].Dimensions)
	assert.Equal(t, "2024-03-08", source.requests[0].StartDate)
}

func TestHandle_ZeroRowsIsEmpty(t *testing.T) {
	llm := &agentstest.LLM{Rules: map[string]agentstest.Reply{
		"reporting plan": {Text: `{"metrics":["sessions"],"date_range":{"type":"absolute","start_date":"2024-01-01","end_date":"2024-01-07"}}`},
	}}
	source := &fakeSource{report: &Report{MetricHeaders: []string{"sessions"}}}
	h := newHandler(t, llm, source)

	result := h.Handle(context.Background(), models.NewQuery("sessions first week of january", "987"))

	assert.Equal(t, models.StatusEmpty, result.Status)
	assert.Equal(t, "No sessions recorded for property 987 between 2024-01-01 and 2024-01-07.", result.Narrative)
	assert.Nil(t, result.Error)
	assert.Len(t, llm.Requests(), 1, "no narrative call for empty data")
}

func TestHandle_FetchErrors(t *testing.T) {
	tests := []struct {
		name     string
		source   *fakeSource
		wantCode string
		wantKind string
	}{
		{"auth", &fakeSource{err: apperrors.NewGA4AuthError(errors.New("403"))}, "GA4_AUTH_FAILED", "fatal"},
		{"quota", &fakeSource{err: apperrors.NewGA4QuotaError(errors.New("429"))}, "GA4_QUOTA_EXHAUSTED", "fatal"},
		{"plain", &fakeSource{err: errors.New("socket closed")}, "GA4_FETCH_FAILED", "fatal"},
		{"timeout", &fakeSource{block: true}, "GA4_TIMEOUT", "transient"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &agentstest.LLM{Rules: map[string]agentstest.Reply{
				"reporting plan": {Text: `{"metrics":["sessions"]}`},
			}}
			h := newHandler(t, llm, tt.source)
			h.config.FetchTimeout = 20 * time.Millisecond

			result := h.Handle(context.Background(), models.NewQuery("sessions", "1"))

			assert.Equal(t, models.StatusError, result.Status)
			require.NotNil(t, result.Error)
			assert.Equal(t, tt.wantCode, result.Error.Code)
			assert.Equal(t, "ANALYTICS", result.Error.Category)
			assert.Equal(t, tt.wantKind == "transient", result.Error.Retryable)
			assert.Equal(t, tt.wantKind, result.Error.Kind)
		})
	}
}

func TestHandle_NarrativeFailureKeepsSuccess(t *testing.T) {
	llm := &agentstest.LLM{Rules: map[string]agentstest.Reply{
		"reporting plan": {Text: `{"metrics":["screenPageViews"],"dimensions":["date"]}`},
		"data analyst":   {Err: errors.New("LLM_RETRIES_EXHAUSTED")},
	}}
	h := newHandler(t, llm, &fakeSource{report: dailyReport()})

	result := h.Handle(context.Background(), models.NewQuery("page views", "1"))

	assert.Equal(t, models.StatusSuccess, result.Status)
	assert.Equal(t, "GA4 returned 2 rows between 2024-03-08 and 2024-03-15. Totals: screenPageViews 200.", result.Narrative)
}

func TestHandle_JSONOutput(t *testing.T) {
	llm := &agentstest.LLM{Rules: map[string]agentstest.Reply{
		"reporting plan": {Text: `{"metrics":["screenPageViews"],"dimensions":["date"]}`},
	}}
	h := newHandler(t, llm, &fakeSource{report: dailyReport()})

	result := h.Handle(context.Background(), models.NewQuery("page views per day, return JSON", "1"))

	require.Equal(t, models.StatusSuccess, result.Status)
	var decoded struct {
		Rows     []map[string]string `json:"rows"`
		RowCount int                 `json:"rowCount"`
	}
	require.NoError(t, json.Unmarshal([]byte(result.Narrative), &decoded))
	assert.Len(t, decoded.Rows, 2)
	assert.Equal(t, 2, decoded.RowCount)
}

func TestHandle_PanicBecomesError(t *testing.T) {
	llm := &agentstest.LLM{Rules: map[string]agentstest.Reply{
		"reporting plan": {Text: `{"metrics":["sessions"]}`},
	}}
	h := newHandler(t, llm, &fakeSource{panics: true})

	result := h.Handle(context.Background(), models.NewQuery("sessions", "1"))

	assert.Equal(t, models.StatusError, result.Status)
	require.NotNil(t, result.Error)
	assert.Equal(t, "AGENT_PANIC", result.Error.Code)
}

func TestClassifyFetchError(t *testing.T) {
	assert.Equal(t, apperrors.ErrCodeGA4Timeout, ClassifyFetchError(context.DeadlineExceeded).Code)
	assert.Equal(t, apperrors.KindCanceled, ClassifyFetchError(context.Canceled).Kind)
	assert.Equal(t, apperrors.ErrCodeGA4BadRequest, ClassifyFetchError(apperrors.NewGA4BadRequestError(errors.New("x"))).Code)
	assert.Equal(t, apperrors.ErrCodeGA4FetchFailed, ClassifyFetchError(errors.New("x")).Code)
}
