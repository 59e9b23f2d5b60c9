package sheets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	apperrors "query-orchestrator/internal/common/errors"
	"query-orchestrator/internal/common/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), &Config{SpreadsheetID: "sheet-1", Endpoint: srv.URL + "/"}, logger.NewTestLogger(t),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresSpreadsheetID(t *testing.T) {
	_, err := NewClient(context.Background(), &Config{}, logger.NewNoOpLogger())
	assert.ErrorIs(t, err, ErrMissingSpreadsheetID)
}

func TestLoad(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
		  "range": "Sheet1!A1:ZZ",
		  "majorDimension": "ROWS",
		  "values": [
		    [" Address ", "Status Code", "Word Count"],
		    ["https://example.com/", "200", 512],
		    ["http://example.com/old"]
		  ]
		}`))
	})

	table, err := c.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/v4/spreadsheets/sheet-1/values/Sheet1!A1:ZZ", gotPath)
	assert.Equal(t, []string{"Address", "Status Code", "Word Count"}, table.Columns)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, "512", table.Rows[0]["Word Count"])
	assert.Equal(t, "http://example.com/old", table.Rows[1]["Address"])
	assert.Equal(t, "", table.Rows[1]["Status Code"])
}

func TestLoad_EmptySheet(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"range": "Sheet1!A1:ZZ"}`))
	})

	table, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestLoad_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"code": 403, "message": "The caller does not have permission"}}`))
	})

	_, err := c.Load(context.Background())
	require.Error(t, err)

	se, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeSEODataUnavailable, se.Code)
}
