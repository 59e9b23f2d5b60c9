// internal/datasource/sheets/client.go
package sheets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"query-orchestrator/internal/agents/seo"
	"query-orchestrator/internal/common/config"
	apperrors "query-orchestrator/internal/common/errors"
	"query-orchestrator/internal/common/logger"
)

const DefaultRange = "Sheet1!A1:ZZ"

var ErrMissingSpreadsheetID = errors.New("SEO spreadsheet id is not configured")

type Config struct {
	SpreadsheetID   string
	Range           string
	CredentialsPath string
	Endpoint        string
	CacheTTL        time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		SpreadsheetID:   cfg.SEO.SpreadsheetID,
		Range:           cfg.SEO.Range,
		CredentialsPath: cfg.SEO.CredentialsPath,
		Endpoint:        cfg.SEO.Endpoint,
		CacheTTL:        time.Duration(cfg.SEO.CacheTTL) * time.Second,
	}
}

// Client reads the crawl export from a Google Sheet. The first row holds the
// headers.
type Client struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	readRange     string
	logger        logger.Logger
}

func NewClient(ctx context.Context, cfg *Config, log logger.Logger, extra ...option.ClientOption) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, ErrMissingSpreadsheetID
	}

	var opts []option.ClientOption
	if cfg.CredentialsPath != "" {
		opts = append(opts,
			option.WithCredentialsFile(cfg.CredentialsPath),
			option.WithScopes(sheetsapi.SpreadsheetsReadonlyScope),
		)
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	opts = append(opts, extra...)

	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}

	readRange := cfg.Range
	if readRange == "" {
		readRange = DefaultRange
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		readRange:     readRange,
		logger: log.With(map[string]interface{}{
			"datasource":    "sheets",
			"spreadsheetId": cfg.SpreadsheetID,
		}),
	}, nil
}

func (c *Client) Load(ctx context.Context) (*seo.Table, error) {
	start := time.Now()
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.readRange).Context(ctx).Do()
	if err != nil {
		c.logger.Error("sheet read failed", map[string]interface{}{
			"range": c.readRange,
			"error": err.Error(),
		})
		return nil, apperrors.NewSEODataUnavailableError(err)
	}

	table := toTable(resp.Values)
	c.logger.Info("sheet loaded", map[string]interface{}{
		"rows":       table.Len(),
		"columns":    len(table.Columns),
		"durationMs": time.Since(start).Milliseconds(),
	})
	return table, nil
}

func toTable(values [][]interface{}) *seo.Table {
	if len(values) == 0 {
		return &seo.Table{}
	}
	header := cells(values[0])
	rows := make([][]string, 0, len(values)-1)
	for _, v := range values[1:] {
		rows = append(rows, cells(v))
	}
	return seo.NewTable(header, rows)
}

func cells(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		if v == nil {
			continue
		}
		out[i] = fmt.Sprint(v)
	}
	return out
}
