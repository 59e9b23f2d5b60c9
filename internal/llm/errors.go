package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

var (
	ErrExhausted = errors.New("LLM_RETRIES_EXHAUSTED")
	ErrFatal     = errors.New("LLM_FATAL")
	ErrCanceled  = errors.New("LLM_CANCELED")

	// ErrEmptyOutput is returned by providers when the model produced no text.
	ErrEmptyOutput = errors.New("LLM_EMPTY_OUTPUT")
)

// ErrorKind classifies a single failed attempt.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindTransient
	KindFatal
	KindCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTransient:
		return "transient"
	case KindFatal:
		return "fatal"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// ProviderError is a failed response from the gateway.
type ProviderError struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider error (status %d, type %q): %s", e.StatusCode, e.Type, msg)
	}
	return fmt.Sprintf("provider error (type %q): %s", e.Type, msg)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsContentPolicy reports whether the provider refused the content.
func (e *ProviderError) IsContentPolicy() bool {
	for _, s := range []string{e.Type, e.Code} {
		s = strings.ToLower(s)
		if strings.Contains(s, "content_filter") || strings.Contains(s, "content_policy") {
			return true
		}
	}
	return false
}

// IsQuotaExceeded reports whether the account ran out of quota. Gateways send
// this as a 429 like a rate limit, but waiting does not help.
func (e *ProviderError) IsQuotaExceeded() bool {
	for _, s := range []string{e.Type, e.Code} {
		if strings.Contains(strings.ToLower(s), "quota") {
			return true
		}
	}
	return false
}

// Error is the terminal error of Client.Complete. It matches ErrExhausted,
// ErrFatal or ErrCanceled with errors.Is and also unwraps to the last cause.
type Error struct {
	Kind     ErrorKind
	Attempts int
	Err      error

	terminal error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s after %d attempt(s): %v", e.terminal, e.Attempts, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.terminal, e.Err}
}

// Classify decides whether a failed attempt may be retried. It does not look
// at the caller's context; cancellation is handled by the client.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, ErrEmptyOutput) {
		return KindFatal
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		if pe.IsContentPolicy() || pe.IsQuotaExceeded() {
			return KindFatal
		}
		if pe.StatusCode > 0 {
			return classifyStatus(pe.StatusCode)
		}
		if pe.Err != nil {
			return Classify(pe.Err)
		}
		return KindFatal
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}
	return KindFatal
}

func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusTooManyRequests,
		status == http.StatusRequestTimeout,
		status >= 500:
		return KindTransient
	default:
		return KindFatal
	}
}
