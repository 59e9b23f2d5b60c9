// internal/datasource/ga4/client.go
package ga4

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	analyticsdata "google.golang.org/api/analyticsdata/v1beta"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"query-orchestrator/internal/agents/analytics"
	"query-orchestrator/internal/common/config"
	apperrors "query-orchestrator/internal/common/errors"
	"query-orchestrator/internal/common/logger"
)

type Config struct {
	CredentialsPath string
	Endpoint        string
	Timeout         time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		CredentialsPath: cfg.GA4.CredentialsPath,
		Endpoint:        cfg.GA4.Endpoint,
		Timeout:         config.GetDuration(cfg.GA4.Timeout),
	}
}

// Client runs GA4 Data API reports.
type Client struct {
	svc     *analyticsdata.Service
	timeout time.Duration
	logger  logger.Logger
}

// NewClient builds the Data API service with read-only credentials. Extra
// options are appended after the configured ones.
func NewClient(ctx context.Context, cfg *Config, log logger.Logger, extra ...option.ClientOption) (*Client, error) {
	var opts []option.ClientOption
	if cfg.CredentialsPath != "" {
		opts = append(opts,
			option.WithCredentialsFile(cfg.CredentialsPath),
			option.WithScopes(analyticsdata.AnalyticsReadonlyScope),
		)
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	opts = append(opts, extra...)

	svc, err := analyticsdata.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GA4 data client: %w", err)
	}

	return &Client{
		svc:     svc,
		timeout: cfg.Timeout,
		logger: log.With(map[string]interface{}{
			"datasource": "ga4",
		}),
	}, nil
}

func (c *Client) RunReport(ctx context.Context, propertyID string, req analytics.ReportRequest) (*analytics.Report, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	property := "properties/" + strings.TrimPrefix(propertyID, "properties/")
	start := time.Now()

	resp, err := c.svc.Properties.RunReport(property, buildRequest(req)).Context(ctx).Do()
	if err != nil {
		classified := classifyError(ctx, err)
		c.logger.Error("GA4 runReport failed", map[string]interface{}{
			"property": property,
			"code":     string(classified.Code),
			"error":    err.Error(),
		})
		return nil, classified
	}

	report := flatten(resp)
	c.logger.Debug("GA4 report fetched", map[string]interface{}{
		"property":   property,
		"rowCount":   report.RowCount,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return report, nil
}

func buildRequest(req analytics.ReportRequest) *analyticsdata.RunReportRequest {
	out := &analyticsdata.RunReportRequest{
		DateRanges:         []*analyticsdata.DateRange{{StartDate: req.StartDate, EndDate: req.EndDate}},
		Limit:              req.Limit,
		MetricAggregations: []string{"TOTAL"},
	}
	for _, m := range req.Metrics {
		out.Metrics = append(out.Metrics, &analyticsdata.Metric{Name: m})
	}
	for _, d := range req.Dimensions {
		out.Dimensions = append(out.Dimensions, &analyticsdata.Dimension{Name: d})
	}

	var filters []*analyticsdata.FilterExpression
	for _, f := range req.Filters {
		filters = append(filters, &analyticsdata.FilterExpression{
			Filter: &analyticsdata.Filter{
				FieldName: f.Dimension,
				StringFilter: &analyticsdata.StringFilter{
					MatchType: "EXACT",
					Value:     f.Value,
				},
			},
		})
	}
	switch len(filters) {
	case 0:
	case 1:
		out.DimensionFilter = filters[0]
	default:
		out.DimensionFilter = &analyticsdata.FilterExpression{
			AndGroup: &analyticsdata.FilterExpressionList{Expressions: filters},
		}
	}

	if req.OrderBy != nil {
		order := &analyticsdata.OrderBy{Desc: req.OrderBy.Descending}
		if req.OrderBy.IsMetric {
			order.Metric = &analyticsdata.MetricOrderBy{MetricName: req.OrderBy.Field}
		} else {
			order.Dimension = &analyticsdata.DimensionOrderBy{DimensionName: req.OrderBy.Field}
		}
		out.OrderBys = []*analyticsdata.OrderBy{order}
	}
	return out
}

// flatten turns positional GA4 rows into header-keyed maps.
func flatten(resp *analyticsdata.RunReportResponse) *analytics.Report {
	report := &analytics.Report{RowCount: resp.RowCount}
	for _, h := range resp.DimensionHeaders {
		report.DimensionHeaders = append(report.DimensionHeaders, h.Name)
	}
	for _, h := range resp.MetricHeaders {
		report.MetricHeaders = append(report.MetricHeaders, h.Name)
	}

	for _, row := range resp.Rows {
		report.Rows = append(report.Rows, flattenRow(row, report.DimensionHeaders, report.MetricHeaders))
	}

	if len(resp.Totals) > 0 {
		report.Totals = make(map[string]string, len(report.MetricHeaders))
		for i, v := range resp.Totals[0].MetricValues {
			if i < len(report.MetricHeaders) {
				report.Totals[report.MetricHeaders[i]] = v.Value
			}
		}
	}
	if report.RowCount == 0 {
		report.RowCount = int64(len(report.Rows))
	}
	return report
}

func flattenRow(row *analyticsdata.Row, dims, metrics []string) map[string]string {
	out := make(map[string]string, len(dims)+len(metrics))
	for i, v := range row.DimensionValues {
		if i < len(dims) {
			out[dims[i]] = v.Value
		}
	}
	for i, v := range row.MetricValues {
		if i < len(metrics) {
			out[metrics[i]] = v.Value
		}
	}
	return out
}

// classifyError maps Data API failures onto GA4 error codes.
func classifyError(ctx context.Context, err error) *apperrors.StandardError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewGA4TimeoutError(err)
	}
	if errors.Is(err, context.Canceled) {
		return apperrors.Wrap(apperrors.ErrCodeGA4FetchFailed, apperrors.KindCanceled, "GA4 report request was canceled", err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden:
			return apperrors.NewGA4AuthError(err)
		case gerr.Code == http.StatusTooManyRequests:
			return apperrors.NewGA4QuotaError(err)
		case gerr.Code == http.StatusBadRequest:
			return apperrors.NewGA4BadRequestError(err)
		case gerr.Code >= http.StatusInternalServerError:
			return apperrors.NewGA4UnavailableError(err)
		}
	}
	return apperrors.NewGA4FetchFailedError(err)
}
