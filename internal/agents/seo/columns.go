// internal/agents/seo/columns.go
package seo

import "strings"

// columnAliases maps the names people use to Screaming Frog export headers.
var columnAliases = []struct {
	key          string
	alternatives []string
}{
	{"url", []string{"address", "url"}},
	{"title", []string{"title 1", "title", "title tag"}},
	{"meta description", []string{"meta description 1", "meta description"}},
	{"status", []string{"status code"}},
	{"indexability", []string{"indexability", "indexable"}},
	{"content", []string{"content type"}},
	{"word count", []string{"word count"}},
	{"h1", []string{"h1-1", "h1"}},
}

// ResolveColumn finds the best header for search: exact match, then
// substring in either direction, then the alias table.
func ResolveColumn(columns []string, search string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(search))
	if s == "" {
		return "", false
	}

	for _, col := range columns {
		if strings.ToLower(col) == s {
			return col, true
		}
	}

	for _, col := range columns {
		c := strings.ToLower(col)
		if c == "" {
			continue
		}
		if strings.Contains(c, s) || strings.Contains(s, c) {
			return col, true
		}
	}

	for _, alias := range columnAliases {
		if !strings.Contains(alias.key, s) && !strings.Contains(s, alias.key) {
			continue
		}
		for _, alt := range alias.alternatives {
			for _, col := range columns {
				if strings.Contains(strings.ToLower(col), alt) {
					return col, true
				}
			}
		}
	}

	return "", false
}
