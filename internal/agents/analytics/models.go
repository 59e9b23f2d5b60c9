// internal/agents/analytics/models.go
package analytics

import "context"

// DataSource runs GA4 reports.
type DataSource interface {
	RunReport(ctx context.Context, propertyID string, req ReportRequest) (*Report, error)
}

// ReportingPlan is the LLM's reading of the question, before validation.
type ReportingPlan struct {
	Metrics    []string      `json:"metrics"`
	Dimensions []string      `json:"dimensions"`
	DateRange  DateRangeSpec `json:"date_range"`
	Filters    []FilterSpec  `json:"filters"`
	OrderBy    *OrderSpec    `json:"order_by"`
	Limit      int64         `json:"limit"`
}

type DateRangeSpec struct {
	Type      string `json:"type"` // relative or absolute
	Days      int    `json:"days"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type FilterSpec struct {
	Dimension string `json:"dimension"`
	Value     string `json:"value"`
}

type OrderSpec struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending"`
}

// ReportRequest is a validated plan ready to send to GA4.
type ReportRequest struct {
	Metrics    []string     `json:"metrics"`
	Dimensions []string     `json:"dimensions"`
	StartDate  string       `json:"startDate"`
	EndDate    string       `json:"endDate"`
	Filters    []FilterSpec `json:"filters,omitempty"`
	OrderBy    *ReportOrder `json:"orderBy,omitempty"`
	Limit      int64        `json:"limit"`
}

type ReportOrder struct {
	Field      string `json:"field"`
	IsMetric   bool   `json:"isMetric"`
	Descending bool   `json:"descending"`
}

// Report is a flattened GA4 response. Rows map header name to value.
type Report struct {
	DimensionHeaders []string            `json:"dimensionHeaders"`
	MetricHeaders    []string            `json:"metricHeaders"`
	Rows             []map[string]string `json:"rows"`
	Totals           map[string]string   `json:"totals,omitempty"`
	RowCount         int64               `json:"rowCount"`
}
