// internal/agents/analytics/plan.go
package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var validMetrics = []string{
	"activeUsers", "newUsers", "totalUsers", "sessions", "sessionsPerUser",
	"screenPageViews", "screenPageViewsPerSession", "screenPageViewsPerUser",
	"engagedSessions", "engagementRate", "averageSessionDuration",
	"bounceRate", "eventCount", "eventsPerSession", "conversions",
	"totalRevenue", "purchaseRevenue", "userEngagementDuration",
	"dauPerMau", "dauPerWau", "wauPerMau",
}

var validDimensions = []string{
	"date", "dateHour", "dateHourMinute", "dayOfWeek", "dayOfWeekName",
	"month", "year", "week", "hour", "minute",
	"country", "city", "region", "continent", "subContinent",
	"language", "browser", "operatingSystem", "deviceCategory",
	"platform", "mobileDeviceBranding", "mobileDeviceModel",
	"pagePath", "pageTitle", "pageLocation", "landingPage",
	"sessionSource", "sessionMedium", "sessionCampaignName",
	"sessionDefaultChannelGroup", "firstUserSource", "firstUserMedium",
	"eventName", "hostName",
}

var metricAliases = map[string]string{
	"page views":           "screenPageViews",
	"pageviews":            "screenPageViews",
	"views":                "screenPageViews",
	"users":                "totalUsers",
	"active users":         "activeUsers",
	"new users":            "newUsers",
	"sessions":             "sessions",
	"bounce rate":          "bounceRate",
	"engagement rate":      "engagementRate",
	"session duration":     "averageSessionDuration",
	"avg session duration": "averageSessionDuration",
	"events":               "eventCount",
	"conversions":          "conversions",
	"revenue":              "totalRevenue",
}

var dimensionAliases = map[string]string{
	"date":           "date",
	"day":            "date",
	"page":           "pagePath",
	"page path":      "pagePath",
	"path":           "pagePath",
	"country":        "country",
	"city":           "city",
	"device":         "deviceCategory",
	"browser":        "browser",
	"source":         "sessionSource",
	"medium":         "sessionMedium",
	"channel":        "sessionDefaultChannelGroup",
	"traffic source": "sessionDefaultChannelGroup",
	"landing page":   "landingPage",
	"event":          "eventName",
	"event name":     "eventName",
}

// defaultPlan is used when the LLM gives no usable plan.
func defaultPlan(days int) ReportingPlan {
	return ReportingPlan{
		Metrics:    []string{"screenPageViews", "totalUsers", "sessions"},
		Dimensions: []string{"date"},
		DateRange:  DateRangeSpec{Type: "relative", Days: days},
	}
}

func resolveName(name string, aliases map[string]string, valid []string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", false
	}
	lower := strings.ToLower(trimmed)
	if api, ok := aliases[lower]; ok {
		return api, true
	}
	for _, v := range valid {
		if v == trimmed {
			return v, true
		}
	}
	for _, v := range valid {
		if strings.EqualFold(v, trimmed) {
			return v, true
		}
	}
	return closest(lower, valid)
}

// closest returns the shortest allowlisted name that contains, or is
// contained in, name.
func closest(name string, valid []string) (string, bool) {
	candidates := make([]string, 0)
	for _, v := range valid {
		vl := strings.ToLower(v)
		if strings.Contains(vl, name) || strings.Contains(name, vl) {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i]) < len(candidates[j])
	})
	return candidates[0], true
}

func ResolveMetric(name string) (string, bool) {
	return resolveName(name, metricAliases, validMetrics)
}

func ResolveDimension(name string) (string, bool) {
	return resolveName(name, dimensionAliases, validDimensions)
}

func isMetric(name string) bool {
	for _, m := range validMetrics {
		if m == name {
			return true
		}
	}
	return false
}

// validate turns a plan into a request GA4 will accept. Unknown names are
// dropped; at least one metric is always present.
func validate(plan ReportingPlan, cfg *Config, now time.Time) (ReportRequest, []string) {
	var dropped []string
	req := ReportRequest{Limit: cfg.RowLimit}

	seen := make(map[string]bool)
	for _, m := range plan.Metrics {
		api, ok := ResolveMetric(m)
		if !ok {
			dropped = append(dropped, m)
			continue
		}
		if !seen[api] {
			seen[api] = true
			req.Metrics = append(req.Metrics, api)
		}
	}
	if len(req.Metrics) == 0 {
		req.Metrics = append(req.Metrics, defaultPlan(cfg.DefaultDays).Metrics...)
	}

	for _, d := range plan.Dimensions {
		api, ok := ResolveDimension(d)
		if !ok {
			dropped = append(dropped, d)
			continue
		}
		if !seen[api] {
			seen[api] = true
			req.Dimensions = append(req.Dimensions, api)
		}
	}

	for _, f := range plan.Filters {
		api, ok := ResolveDimension(f.Dimension)
		if !ok || strings.TrimSpace(f.Value) == "" {
			dropped = append(dropped, fmt.Sprintf("filter:%s", f.Dimension))
			continue
		}
		req.Filters = append(req.Filters, FilterSpec{Dimension: api, Value: strings.TrimSpace(f.Value)})
	}

	if plan.OrderBy != nil && plan.OrderBy.Field != "" {
		if api, ok := ResolveMetric(plan.OrderBy.Field); ok && seen[api] {
			req.OrderBy = &ReportOrder{Field: api, IsMetric: true, Descending: plan.OrderBy.Descending}
		} else if api, ok := ResolveDimension(plan.OrderBy.Field); ok && seen[api] {
			req.OrderBy = &ReportOrder{Field: api, Descending: plan.OrderBy.Descending}
		}
	}

	if plan.Limit > 0 && plan.Limit < req.Limit {
		req.Limit = plan.Limit
	}

	req.StartDate, req.EndDate = resolveDateRange(plan.DateRange, cfg.DefaultDays, now)
	return req, dropped
}

// resolveDateRange converts a range spec into inclusive YYYY-MM-DD bounds.
// Relative ranges end today; invalid absolute ranges fall back to the default.
func resolveDateRange(spec DateRangeSpec, defaultDays int, now time.Time) (string, string) {
	today := now.Format(dateLayout)

	if strings.EqualFold(spec.Type, "absolute") || (spec.Type == "" && spec.StartDate != "") {
		start, errStart := time.Parse(dateLayout, spec.StartDate)
		end, errEnd := time.Parse(dateLayout, spec.EndDate)
		if spec.EndDate == "" {
			end, errEnd = now, nil
		}
		if errStart == nil && errEnd == nil && !end.Before(start) {
			return start.Format(dateLayout), end.Format(dateLayout)
		}
	}

	days := spec.Days
	if days <= 0 {
		days = defaultDays
	}
	return now.AddDate(0, 0, -days).Format(dateLayout), today
}
