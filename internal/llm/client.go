package llm

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"query-orchestrator/internal/common/logger"
	"query-orchestrator/internal/common/metrics"
)

// Provider performs exactly one chat completion attempt.
type Provider interface {
	Chat(ctx context.Context, req Request) (*Response, error)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type state int

const (
	stateIdle state = iota
	stateAttempting
	stateRetrying
	stateSucceeded
	stateExhausted
	stateFatal
	stateCanceled
)

func (s state) String() string {
	return [...]string{"idle", "attempting", "retrying", "succeeded", "exhausted", "fatal", "canceled"}[s]
}

// next is the transition out of Attempting(attempt).
func next(attempt, maxAttempts int, kind ErrorKind) state {
	switch kind {
	case KindNone:
		return stateSucceeded
	case KindCanceled:
		return stateCanceled
	case KindTransient:
		if attempt >= maxAttempts {
			return stateExhausted
		}
		return stateRetrying
	default:
		return stateFatal
	}
}

// Client wraps a Provider with per-attempt timeouts and bounded retries of
// transient failures. It holds no per-call state and is safe for concurrent use.
type Client struct {
	config   Config
	provider Provider
	logger   logger.Logger
	sleep    Sleeper
	random   func() float64
}

type Option func(*Client)

// WithSleeper replaces the wait between attempts.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

// WithRandom replaces the jitter source.
func WithRandom(r func() float64) Option {
	return func(c *Client) { c.random = r }
}

func NewClient(cfg Config, provider Provider, log logger.Logger, opts ...Option) *Client {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	c := &Client{
		config:   cfg,
		provider: provider,
		logger:   log.With(map[string]interface{}{"component": "llm-client"}),
		sleep:    sleepContext,
		random:   rand.Float64,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete runs one logical LLM call. The returned error is always an *Error.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	req = c.withDefaults(req)
	start := time.Now()

	var (
		st       = stateIdle
		attempt  int
		resp     *Response
		lastErr  error
		lastKind ErrorKind
		delay    time.Duration
	)

	for {
		switch st {
		case stateIdle:
			attempt = 1
			st = stateAttempting

		case stateAttempting:
			resp, lastErr = c.attempt(ctx, req)
			lastKind = Classify(lastErr)
			if lastErr != nil && ctx.Err() != nil {
				lastKind = KindCanceled
			}
			metrics.LLMAttempts.WithLabelValues(lastKind.String()).Inc()
			st = next(attempt, c.config.MaxAttempts, lastKind)
			if st == stateRetrying {
				delay = Backoff(attempt, c.config.Backoff, c.random())
				c.logger.Warn("LLM attempt failed, retrying", map[string]interface{}{
					"attempt":     attempt,
					"maxAttempts": c.config.MaxAttempts,
					"delayMs":     delay.Milliseconds(),
					"error":       lastErr.Error(),
				})
			}

		case stateRetrying:
			if err := c.sleep(ctx, delay); err != nil {
				lastErr = err
				lastKind = KindCanceled
				st = stateCanceled
				continue
			}
			attempt++
			st = stateAttempting

		case stateSucceeded:
			resp.Attempts = attempt
			c.observe(st, start)
			return resp, nil

		case stateExhausted:
			c.observe(st, start)
			c.logger.Error("LLM retries exhausted", map[string]interface{}{
				"attempts": attempt,
				"error":    lastErr.Error(),
			})
			return nil, &Error{Kind: lastKind, Attempts: attempt, Err: lastErr, terminal: ErrExhausted}

		case stateFatal:
			c.observe(st, start)
			c.logger.Error("LLM call failed", map[string]interface{}{
				"attempts": attempt,
				"error":    lastErr.Error(),
			})
			return nil, &Error{Kind: lastKind, Attempts: attempt, Err: lastErr, terminal: ErrFatal}

		case stateCanceled:
			c.observe(st, start)
			if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(lastErr, ctxErr) {
				lastErr = ctxErr
			}
			return nil, &Error{Kind: KindCanceled, Attempts: attempt, Err: lastErr, terminal: ErrCanceled}
		}
	}
}

// StructuredChat sends a system and a user message and returns the text.
func (c *Client) StructuredChat(ctx context.Context, system, user string, temperature *float64) (string, error) {
	resp, err := c.Complete(ctx, Request{
		SystemPrompt: system,
		Prompt:       user,
		Temperature:  temperature,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (c *Client) attempt(ctx context.Context, req Request) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	resp, err := c.provider.Chat(attemptCtx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return nil, ErrEmptyOutput
	}
	return resp, nil
}

func (c *Client) withDefaults(req Request) Request {
	if req.Model == "" {
		req.Model = c.config.Model
	}
	if req.Temperature == nil {
		req.Temperature = Float(c.config.Temperature)
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = c.config.MaxTokens
	}
	if req.Timeout <= 0 {
		req.Timeout = c.config.Timeout
	}
	if req.Timeout <= 0 {
		req.Timeout = DefaultConfig().Timeout
	}
	return req
}

func (c *Client) observe(st state, start time.Time) {
	outcome := st.String()
	metrics.LLMCalls.WithLabelValues(outcome).Inc()
	metrics.LLMCallDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
