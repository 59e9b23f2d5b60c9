package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func TestResolveMetric(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"page views", "screenPageViews", true},
		{"Page Views", "screenPageViews", true},
		{"users", "totalUsers", true},
		{"sessions", "sessions", true},
		{"activeUsers", "activeUsers", true},
		{"ACTIVEUSERS", "activeUsers", true},
		{"revenue", "totalRevenue", true},
		{"engagedSessions", "engagedSessions", true},
		{"Revenue", "totalRevenue", true},
		{"dauPerMauRatio", "dauPerMau", true},
		{"profit", "", false},
		{"  ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ResolveMetric(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDimension(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"traffic source", "sessionDefaultChannelGroup", true},
		{"day", "date", true},
		{"page", "pagePath", true},
		{"device", "deviceCategory", true},
		{"pagePath", "pagePath", true},
		{"hostname", "hostName", true},
		{"weather", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ResolveDimension(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{DefaultDays: 7, RowLimit: 1000}

	plan := ReportingPlan{
		Metrics:    []string{"page views", "screenPageViews", "profit"},
		Dimensions: []string{"page", "weather"},
		DateRange:  DateRangeSpec{Type: "relative", Days: 14},
		Filters:    []FilterSpec{{Dimension: "page", Value: " /pricing "}, {Dimension: "weather", Value: "rain"}},
		OrderBy:    &OrderSpec{Field: "page views", Descending: true},
		Limit:      10,
	}

	req, dropped := validate(plan, cfg, fixedNow)

	assert.Equal(t, []string{"screenPageViews"}, req.Metrics)
	assert.Equal(t, []string{"pagePath"}, req.Dimensions)
	assert.Equal(t, []FilterSpec{{Dimension: "pagePath", Value: "/pricing"}}, req.Filters)
	require.NotNil(t, req.OrderBy)
	assert.Equal(t, ReportOrder{Field: "screenPageViews", IsMetric: true, Descending: true}, *req.OrderBy)
	assert.Equal(t, int64(10), req.Limit)
	assert.Equal(t, "2024-03-01", req.StartDate)
	assert.Equal(t, "2024-03-15", req.EndDate)
	assert.ElementsMatch(t, []string{"profit", "weather", "filter:weather"}, dropped)
}

func TestValidate_EnsuresMetric(t *testing.T) {
	cfg := &Config{DefaultDays: 7, RowLimit: 1000}

	req, _ := validate(ReportingPlan{Metrics: []string{"nonsense"}}, cfg, fixedNow)

	assert.Equal(t, []string{"screenPageViews", "totalUsers", "sessions"}, req.Metrics)
	assert.Equal(t, int64(1000), req.Limit)
	assert.Equal(t, "2024-03-08", req.StartDate)
}

func TestValidate_OrderByMustBeRequested(t *testing.T) {
	cfg := &Config{DefaultDays: 7, RowLimit: 1000}
	req, _ := validate(ReportingPlan{
		Metrics: []string{"sessions"},
		OrderBy: &OrderSpec{Field: "country"},
	}, cfg, fixedNow)
	assert.Nil(t, req.OrderBy)
}

func TestResolveDateRange(t *testing.T) {
	tests := []struct {
		name      string
		spec      DateRangeSpec
		wantStart string
		wantEnd   string
	}{
		{"relative", DateRangeSpec{Type: "relative", Days: 30}, "2024-02-14", "2024-03-15"},
		{"default days", DateRangeSpec{}, "2024-03-08", "2024-03-15"},
		{"absolute", DateRangeSpec{Type: "absolute", StartDate: "2024-01-01", EndDate: "2024-01-31"}, "2024-01-01", "2024-01-31"},
		{"absolute open end", DateRangeSpec{Type: "absolute", StartDate: "2024-03-10"}, "2024-03-10", "2024-03-15"},
		{"untyped absolute", DateRangeSpec{StartDate: "2024-02-01", EndDate: "2024-02-02"}, "2024-02-01", "2024-02-02"},
		{"bad format falls back", DateRangeSpec{Type: "absolute", StartDate: "01/02/2024", EndDate: "2024-01-31"}, "2024-03-08", "2024-03-15"},
		{"reversed falls back", DateRangeSpec{Type: "absolute", StartDate: "2024-02-01", EndDate: "2024-01-01"}, "2024-03-08", "2024-03-15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := resolveDateRange(tt.spec, 7, fixedNow)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}
