// internal/audit/recorder.go
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"query-orchestrator/internal/common/logger"
	"query-orchestrator/internal/models"
)

const schemaSQL = `CREATE TABLE IF NOT EXISTS query_audit (
	id          BIGSERIAL PRIMARY KEY,
	request_id  UUID        NOT NULL,
	query_text  TEXT        NOT NULL,
	property_id TEXT,
	intent      TEXT        NOT NULL,
	status      TEXT        NOT NULL,
	agents      TEXT[]      NOT NULL,
	duration_ms BIGINT      NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const insertSQL = `INSERT INTO query_audit (request_id, query_text, property_id, intent, status, agents, duration_ms, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const recentSQL = `SELECT request_id, query_text, property_id, intent, status, agents, duration_ms, created_at
FROM query_audit ORDER BY created_at DESC LIMIT $1`

const (
	DefaultRecentLimit = 20
	maxRecentLimit     = 200
	writeTimeout       = 3 * time.Second
)

// Entry is one answered query. Agents holds "LABEL:status" pairs.
type Entry struct {
	RequestID  string    `json:"requestId"`
	Query      string    `json:"query"`
	PropertyID string    `json:"propertyId,omitempty"`
	Intent     string    `json:"intent"`
	Status     string    `json:"status"`
	Agents     []string  `json:"agents"`
	DurationMs int64     `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewEntry summarizes a fused response for the audit log.
func NewEntry(q models.Query, resp models.FusedResponse, duration time.Duration, at time.Time) Entry {
	labels := make([]string, len(resp.Intent))
	for i, l := range resp.Intent {
		labels[i] = string(l)
	}
	agents := make([]string, len(resp.Results))
	for i, r := range resp.Results {
		agents[i] = fmt.Sprintf("%s:%s", r.Agent, r.Status)
	}
	return Entry{
		RequestID:  resp.RequestID,
		Query:      q.Text,
		PropertyID: q.PropertyID,
		Intent:     strings.Join(labels, "+"),
		Status:     string(resp.Status),
		Agents:     agents,
		DurationMs: duration.Milliseconds(),
		CreatedAt:  at.UTC(),
	}
}

// Recorder writes the query audit log to Postgres. A nil Recorder is disabled.
type Recorder struct {
	db      *sql.DB
	logger  logger.Logger
	pending sync.WaitGroup
}

func NewRecorder(db *sql.DB, log logger.Logger) *Recorder {
	return &Recorder{
		db: db,
		logger: log.With(map[string]interface{}{
			"component": "audit",
		}),
	}
}

func (r *Recorder) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create query_audit table: %w", err)
	}
	return nil
}

func (r *Recorder) Record(ctx context.Context, e Entry) error {
	_, err := r.db.ExecContext(ctx, insertSQL,
		e.RequestID, e.Query, nullable(e.PropertyID), e.Intent, e.Status, pq.Array(e.Agents), e.DurationMs, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Observe records an answered query in the background. Failures are logged
// only. Call Wait before closing the database.
func (r *Recorder) Observe(ctx context.Context, q models.Query, resp models.FusedResponse, duration time.Duration) {
	if r == nil {
		return
	}
	entry := NewEntry(q, resp, duration, time.Now())
	ctx = context.WithoutCancel(ctx)

	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		ctx, cancel := context.WithTimeout(ctx, writeTimeout)
		defer cancel()

		if err := r.Record(ctx, entry); err != nil {
			r.logger.Warn("audit write failed", map[string]interface{}{
				"requestId": entry.RequestID,
				"error":     err.Error(),
			})
		}
	}()
}

// Wait blocks until every pending Observe write has finished.
func (r *Recorder) Wait() {
	if r == nil {
		return
	}
	r.pending.Wait()
}

// Recent returns the newest entries first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	rows, err := r.db.QueryContext(ctx, recentSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var property sql.NullString
		if err := rows.Scan(&e.RequestID, &e.Query, &property, &e.Intent, &e.Status, pq.Array(&e.Agents), &e.DurationMs, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.PropertyID = property.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read audit entries: %w", err)
	}
	return entries, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
