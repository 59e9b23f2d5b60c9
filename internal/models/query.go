// internal/models/query.go
package models

import (
	"encoding/json"
	"strings"
)

// AgentLabel names one of the specialized agents a query can be routed to.
type AgentLabel string

const (
	LabelAnalytics AgentLabel = "ANALYTICS"
	LabelSEO       AgentLabel = "SEO"
)

// AllLabels lists the closed agent set in canonical order.
var AllLabels = []AgentLabel{LabelAnalytics, LabelSEO}

func (l AgentLabel) Valid() bool {
	return l == LabelAnalytics || l == LabelSEO
}

// ParseAgentLabel maps a case-insensitive name onto a label.
func ParseAgentLabel(s string) (AgentLabel, bool) {
	l := AgentLabel(strings.ToUpper(strings.TrimSpace(s)))
	return l, l.Valid()
}

// Query is a single user question. It is never mutated after construction.
type Query struct {
	Text       string `json:"query"`
	PropertyID string `json:"propertyId,omitempty"`
}

func NewQuery(text, propertyID string) Query {
	return Query{
		Text:       strings.TrimSpace(text),
		PropertyID: strings.TrimSpace(propertyID),
	}
}

func (q Query) HasPropertyID() bool {
	return q.PropertyID != ""
}

// Intent is the non-empty set of agents a query needs.
type Intent struct {
	labels []AgentLabel
}

// NewIntent de-duplicates and orders labels. Unknown labels are dropped and an
// empty input yields the default intent.
func NewIntent(labels ...AgentLabel) Intent {
	seen := make(map[AgentLabel]bool, len(labels))
	for _, l := range labels {
		if l.Valid() {
			seen[l] = true
		}
	}
	if len(seen) == 0 {
		return DefaultIntent()
	}
	out := make([]AgentLabel, 0, len(seen))
	for _, l := range AllLabels {
		if seen[l] {
			out = append(out, l)
		}
	}
	return Intent{labels: out}
}

// DefaultIntent routes to every agent.
func DefaultIntent() Intent {
	return Intent{labels: append([]AgentLabel(nil), AllLabels...)}
}

// Labels returns a copy of the labels in canonical order. The zero Intent
// behaves as the default one.
func (i Intent) Labels() []AgentLabel {
	if len(i.labels) == 0 {
		return DefaultIntent().labels
	}
	return append([]AgentLabel(nil), i.labels...)
}

func (i Intent) Has(label AgentLabel) bool {
	for _, l := range i.Labels() {
		if l == label {
			return true
		}
	}
	return false
}

// With returns a new intent that also includes label.
func (i Intent) With(label AgentLabel) Intent {
	return NewIntent(append(i.Labels(), label)...)
}

func (i Intent) IsCrossAgent() bool {
	return len(i.Labels()) > 1
}

func (i Intent) Equal(other Intent) bool {
	a, b := i.Labels(), other.Labels()
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if a[k] != b[k] {
			return false
		}
	}
	return true
}

func (i Intent) String() string {
	labels := i.Labels()
	parts := make([]string, len(labels))
	for k, l := range labels {
		parts[k] = string(l)
	}
	return strings.Join(parts, "+")
}

func (i Intent) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.Labels())
}

func (i *Intent) UnmarshalJSON(data []byte) error {
	var labels []AgentLabel
	if err := json.Unmarshal(data, &labels); err != nil {
		return err
	}
	*i = NewIntent(labels...)
	return nil
}
