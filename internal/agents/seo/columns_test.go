package seo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveColumn(t *testing.T) {
	columns := []string{"Address", "Status Code", "Indexability", "Title 1", "Title 1 Length", "Meta Description 1", "Word Count", "H1-1"}

	tests := []struct {
		name   string
		search string
		want   string
		found  bool
	}{
		{"exact", "Address", "Address", true},
		{"case insensitive", "indexability", "Indexability", true},
		{"substring of header", "status", "Status Code", true},
		{"header inside search", "title 1 tag", "Title 1", true},
		{"alias url", "url", "Address", true},
		{"alias meta", "meta description", "Meta Description 1", true},
		{"alias h1", "h1", "H1-1", true},
		{"unknown", "canonical", "", false},
		{"blank", "  ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveColumn(columns, tt.search)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
