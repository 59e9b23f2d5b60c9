package audit

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"query-orchestrator/internal/common/logger"
	"query-orchestrator/internal/models"
)

func sampleResponse() models.FusedResponse {
	return models.FusedResponse{
		RequestID: "2f1c6f0e-8a7b-4c55-9d1e-0a4b3c2d1e0f",
		Status:    models.StatusSuccess,
		Results: []models.AgentResult{
			models.SuccessResult(models.LabelAnalytics, "n1", nil),
			models.EmptyResult(models.LabelSEO, "n2", nil),
		},
		Intent:     []models.AgentLabel{models.LabelAnalytics, models.LabelSEO},
		CrossAgent: true,
	}
}

func TestNewEntry(t *testing.T) {
	at := time.Date(2024, 3, 15, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	e := NewEntry(models.NewQuery("traffic and seo", "123"), sampleResponse(), 1500*time.Millisecond, at)

	assert.Equal(t, "ANALYTICS+SEO", e.Intent)
	assert.Equal(t, []string{"ANALYTICS:success", "SEO:empty"}, e.Agents)
	assert.Equal(t, int64(1500), e.DurationMs)
	assert.Equal(t, "123", e.PropertyID)
	assert.Equal(t, time.UTC, e.CreatedAt.Location())
}

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS query_audit`).WillReturnResult(sqlmock.NewResult(0, 0))

	r := NewRecorder(db, logger.NewTestLogger(t))
	require.NoError(t, r.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	e := NewEntry(models.NewQuery("which urls lack https", ""), sampleResponse(), time.Second, time.Now())

	mock.ExpectExec(regexp.QuoteMeta(insertSQL)).
		WithArgs(e.RequestID, e.Query, nil, "ANALYTICS+SEO", "success", pq.Array(e.Agents), int64(1000), e.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	r := NewRecorder(db, logger.NewTestLogger(t))
	require.NoError(t, r.Record(context.Background(), e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestObserve_SwallowsErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(insertSQL)).WillReturnError(errors.New("relation does not exist"))

	r := NewRecorder(db, logger.NewTestLogger(t))
	r.Observe(context.Background(), models.NewQuery("q", "1"), sampleResponse(), time.Second)
	r.Wait()
	assert.NoError(t, mock.ExpectationsWereMet())

	var disabled *Recorder
	assert.NotPanics(t, func() {
		disabled.Observe(context.Background(), models.NewQuery("q", ""), sampleResponse(), time.Second)
	})
}

func TestObserve_SurvivesCanceledRequest(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(insertSQL)).WillReturnResult(sqlmock.NewResult(1, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRecorder(db, logger.NewTestLogger(t))
	r.Observe(ctx, models.NewQuery("q", ""), sampleResponse(), time.Second)
	r.Wait()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestObserve_DoesNotBlockOnSlowInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(insertSQL)).
		WillDelayFor(300 * time.Millisecond).
		WillReturnResult(sqlmock.NewResult(1, 1))

	r := NewRecorder(db, logger.NewTestLogger(t))
	start := time.Now()
	r.Observe(context.Background(), models.NewQuery("q", ""), sampleResponse(), time.Second)
	assert.Less(t, time.Since(start), 150*time.Millisecond)

	r.Wait()
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"request_id", "query_text", "property_id", "intent", "status", "agents", "duration_ms", "created_at"}).
		AddRow("id-2", "which urls lack https", nil, "SEO", "success", "{SEO:success}", int64(800), created).
		AddRow("id-1", "page views", "123", "ANALYTICS", "error", "{ANALYTICS:error}", int64(1200), created.Add(-time.Minute))

	mock.ExpectQuery(regexp.QuoteMeta(recentSQL)).WithArgs(maxRecentLimit).WillReturnRows(rows)

	r := NewRecorder(db, logger.NewTestLogger(t))
	entries, err := r.Recent(context.Background(), 5000)
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, "id-2", entries[0].RequestID)
	assert.Empty(t, entries[0].PropertyID)
	assert.Equal(t, []string{"SEO:success"}, entries[0].Agents)
	assert.Equal(t, "123", entries[1].PropertyID)
	assert.Equal(t, int64(1200), entries[1].DurationMs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecent_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(recentSQL)).WithArgs(DefaultRecentLimit).WillReturnError(errors.New("connection reset"))

	_, err = NewRecorder(db, logger.NewTestLogger(t)).Recent(context.Background(), 0)
	assert.Error(t, err)
}
