// internal/orchestrator/classifier.go
package orchestrator

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"query-orchestrator/internal/agents"
	"query-orchestrator/internal/common/logger"
	"query-orchestrator/internal/common/metrics"
	"query-orchestrator/internal/llm"
	"query-orchestrator/internal/models"
)

const classifierSystemPrompt = `You are a query router for a marketing data assistant. Two agents are available:

ANALYTICS: Google Analytics 4 data. Page views, sessions, users, traffic sources, bounce rate, conversions, trends over time.
SEO: a site crawl export. URLs, title tags, meta descriptions, status codes, indexability, HTTPS, canonicals, word count.

Decide which agents are needed to answer the question.
Reply with exactly one word: ANALYTICS, SEO or BOTH.`

const (
	sourceLLM     = "llm"
	sourceKeyword = "keyword"
	sourceDefault = "default"
)

var analyticsVocabulary = []string{
	"page view", "pageview", "session", "traffic", "user", "visitor", "ga4", "google analytics",
	"analytics", "bounce rate", "conversion", "engagement", "daily", "weekly", "monthly", "trend",
	"last 7 days", "last 14 days", "last 30 days", "last week", "last month", "country", "device",
}

var seoVocabulary = []string{
	"seo", "url", "title tag", "meta description", "https", "indexab*", "crawl", "canonical",
	"status code", "screaming frog", "h1", "word count", "redirect", "404", "noindex", "title",
}

var (
	analyticsPattern = vocabularyPattern(analyticsVocabulary)
	seoPattern       = vocabularyPattern(seoVocabulary)
)

// vocabularyPattern matches terms as whole words, allowing plural and verb
// endings. A term ending in "*" is a stem and matches any continuation.
func vocabularyPattern(terms []string) *regexp.Regexp {
	var words, stems []string
	for _, t := range terms {
		if stem, ok := strings.CutSuffix(t, "*"); ok {
			stems = append(stems, regexp.QuoteMeta(stem))
			continue
		}
		words = append(words, regexp.QuoteMeta(t))
	}
	expr := `\b(?:` + strings.Join(words, "|") + `)(?:s|es|ed|ing)?\b`
	if len(stems) > 0 {
		expr += `|\b(?:` + strings.Join(stems, "|") + `)`
	}
	return regexp.MustCompile(expr)
}

// Classifier decides which agents a query needs. It never fails: LLM errors
// and unclear answers fall back to keyword rules and then to a default intent.
type Classifier struct {
	llm            agents.Completer
	strictFallback bool
	logger         logger.Logger
}

func NewClassifier(completer agents.Completer, strictFallback bool, log logger.Logger) *Classifier {
	return &Classifier{
		llm:            completer,
		strictFallback: strictFallback,
		logger: log.With(map[string]interface{}{
			"component": "intent-classifier",
		}),
	}
}

func (c *Classifier) Classify(ctx context.Context, q models.Query) models.Intent {
	intent, source := c.classify(ctx, q)
	intent = applyPostRules(q, intent)

	metrics.IntentClassifications.WithLabelValues(source, intent.String()).Inc()
	c.logger.Info("intent classified", map[string]interface{}{
		"intent": intent.String(),
		"source": source,
	})
	return intent
}

func (c *Classifier) classify(ctx context.Context, q models.Query) (models.Intent, string) {
	resp, err := c.llm.Complete(ctx, llm.Request{
		SystemPrompt: classifierSystemPrompt,
		Prompt:       "Question: " + q.Text,
		Temperature:  llm.Float(0.1),
		MaxTokens:    20,
	})
	if err == nil {
		if intent, ok := ParseIntent(resp.Text); ok {
			return intent, sourceLLM
		}
		c.logger.Warn("unclear classifier output", map[string]interface{}{
			"output": agents.Truncate(resp.Text, 100),
		})
	} else {
		c.logger.Warn("classifier LLM failed", map[string]interface{}{"error": err.Error()})
	}

	if intent, ok := keywordIntent(q); ok {
		return intent, sourceKeyword
	}
	return c.fallback(q), sourceDefault
}

func (c *Classifier) fallback(q models.Query) models.Intent {
	if !c.strictFallback {
		return models.DefaultIntent()
	}
	if q.HasPropertyID() {
		return models.NewIntent(models.LabelAnalytics)
	}
	return models.NewIntent(models.LabelSEO)
}

// ParseIntent maps classifier output to an intent. It accepts one of
// ANALYTICS, SEO or BOTH (quotes, fences and punctuation ignored) or a JSON
// object with requires_analytics and requires_seo.
func ParseIntent(text string) (models.Intent, bool) {
	if raw, ok := agents.ExtractJSONObject(text); ok {
		var flags struct {
			RequiresAnalytics *bool `json:"requires_analytics"`
			RequiresSEO       *bool `json:"requires_seo"`
		}
		if err := json.Unmarshal([]byte(raw), &flags); err != nil {
			return models.Intent{}, false
		}
		var labels []models.AgentLabel
		if flags.RequiresAnalytics != nil && *flags.RequiresAnalytics {
			labels = append(labels, models.LabelAnalytics)
		}
		if flags.RequiresSEO != nil && *flags.RequiresSEO {
			labels = append(labels, models.LabelSEO)
		}
		if len(labels) == 0 {
			return models.Intent{}, false
		}
		return models.NewIntent(labels...), true
	}

	word := strings.ReplaceAll(text, "```", "")
	word = strings.Trim(strings.TrimSpace(word), " \t\r\n'\"`.,;:!*")
	switch strings.ToUpper(word) {
	case "ANALYTICS":
		return models.NewIntent(models.LabelAnalytics), true
	case "SEO":
		return models.NewIntent(models.LabelSEO), true
	case "BOTH":
		return models.NewIntent(models.LabelAnalytics, models.LabelSEO), true
	}
	return models.Intent{}, false
}

func keywordIntent(q models.Query) (models.Intent, bool) {
	analytics, seo := vocabulary(q.Text)
	var labels []models.AgentLabel
	if analytics || q.HasPropertyID() {
		labels = append(labels, models.LabelAnalytics)
	}
	if seo {
		labels = append(labels, models.LabelSEO)
	}
	if len(labels) == 0 {
		return models.DefaultIntent(), false
	}
	return models.NewIntent(labels...), true
}

func applyPostRules(q models.Query, intent models.Intent) models.Intent {
	if q.HasPropertyID() {
		return intent.With(models.LabelAnalytics)
	}
	analytics, seo := vocabulary(q.Text)
	if seo && !analytics {
		return models.NewIntent(models.LabelSEO)
	}
	return intent
}

func vocabulary(text string) (analytics, seo bool) {
	t := strings.ToLower(text)
	return analyticsPattern.MatchString(t), seoPattern.MatchString(t)
}
