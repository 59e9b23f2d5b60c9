// Package errors provides the error taxonomy shared by the LLM client, the
// agents and the orchestrator.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"query-orchestrator/internal/models"
)

// ==========================
// 1. Kinds and Codes
// ==========================

// Kind is the coarse failure class used for retry and reporting decisions.
type Kind string

const (
	KindTransient               Kind = "transient"
	KindFatal                   Kind = "fatal"
	KindDataAbsent              Kind = "data_absent"
	KindClassificationAmbiguous Kind = "classification_ambiguous"
	KindFusionFailed            Kind = "fusion_failed"
	KindCanceled                Kind = "canceled"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodePropertyIDRequired ErrorCode = "PROPERTY_ID_REQUIRED"

	ErrCodeGA4AuthFailed     ErrorCode = "GA4_AUTH_FAILED"
	ErrCodeGA4QuotaExhausted ErrorCode = "GA4_QUOTA_EXHAUSTED"
	ErrCodeGA4Unavailable    ErrorCode = "GA4_UNAVAILABLE"
	ErrCodeGA4Timeout        ErrorCode = "GA4_TIMEOUT"
	ErrCodeGA4BadRequest     ErrorCode = "GA4_BAD_REQUEST"
	ErrCodeGA4FetchFailed    ErrorCode = "GA4_FETCH_FAILED"

	ErrCodeSEODataUnavailable ErrorCode = "SEO_DATA_UNAVAILABLE"
	ErrCodeSEODataEmpty       ErrorCode = "SEO_DATA_EMPTY"

	ErrCodeLLMExhausted ErrorCode = "LLM_RETRIES_EXHAUSTED"
	ErrCodeLLMFatal     ErrorCode = "LLM_FATAL"
	ErrCodeLLMCanceled  ErrorCode = "LLM_CANCELED"

	ErrCodeIntentAmbiguous ErrorCode = "INTENT_AMBIGUOUS"
	ErrCodeFusionFailed    ErrorCode = "FUSION_FAILED"

	ErrCodeAgentTimeout  ErrorCode = "AGENT_TIMEOUT"
	ErrCodeAgentPanic    ErrorCode = "AGENT_PANIC"
	ErrCodeAgentCanceled ErrorCode = "AGENT_CANCELED"
	ErrCodeAgentMissing  ErrorCode = "AGENT_NOT_REGISTERED"

	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Kind      Kind                   `json:"kind"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Detail converts the error into the result-level representation.
func (e *StandardError) Detail() models.ErrorDetail {
	return models.ErrorDetail{
		Code:      string(e.Code),
		Kind:      string(e.Kind),
		Message:   e.Message,
		Category:  GetErrorCategory(e.Code),
		Retryable: e.Retryable,
	}
}

// WithMetadata returns e after attaching a metadata entry.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. Constructors
// ==========================

func newError(code ErrorCode, kind Kind, message string, cause error) *StandardError {
	e := &StandardError{
		Code:      code,
		Kind:      kind,
		Message:   message,
		Retryable: IsRetryableErrorCode(code),
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// New creates a StandardError with an explicit code and kind.
func New(code ErrorCode, kind Kind, message string) *StandardError {
	return newError(code, kind, message, nil)
}

// Wrap creates a StandardError that keeps err in its chain.
func Wrap(code ErrorCode, kind Kind, message string, err error) *StandardError {
	return newError(code, kind, message, err)
}

// NewPropertyIDRequiredError is returned when an analytics query has no property.
func NewPropertyIDRequiredError() *StandardError {
	return newError(ErrCodePropertyIDRequired, KindFatal,
		"A GA4 property ID is required to answer analytics questions", nil)
}

func NewGA4AuthError(err error) *StandardError {
	return newError(ErrCodeGA4AuthFailed, KindFatal, "GA4 rejected the service account credentials", err)
}

func NewGA4QuotaError(err error) *StandardError {
	return newError(ErrCodeGA4QuotaExhausted, KindFatal, "GA4 API quota exhausted", err)
}

func NewGA4UnavailableError(err error) *StandardError {
	return newError(ErrCodeGA4Unavailable, KindTransient, "GA4 API is unavailable", err)
}

func NewGA4TimeoutError(err error) *StandardError {
	return newError(ErrCodeGA4Timeout, KindTransient, "GA4 report request timed out", err)
}

func NewGA4BadRequestError(err error) *StandardError {
	return newError(ErrCodeGA4BadRequest, KindFatal, "GA4 rejected the report request", err)
}

func NewGA4FetchFailedError(err error) *StandardError {
	return newError(ErrCodeGA4FetchFailed, KindFatal, "Failed to fetch GA4 report", err)
}

func NewSEODataUnavailableError(err error) *StandardError {
	return newError(ErrCodeSEODataUnavailable, KindTransient, "SEO crawl data could not be loaded", err)
}

func NewAgentTimeoutError(agent string, timeout time.Duration) *StandardError {
	e := newError(ErrCodeAgentTimeout, KindTransient,
		fmt.Sprintf("%s agent did not answer within %s", agent, timeout), nil)
	return e.WithMetadata("agent", agent)
}

func NewAgentPanicError(agent string, recovered interface{}) *StandardError {
	e := newError(ErrCodeAgentPanic, KindFatal, fmt.Sprintf("%s agent failed unexpectedly", agent), nil)
	e.Details = fmt.Sprint(recovered)
	return e.WithMetadata("agent", agent)
}

func NewAgentCanceledError(agent string, err error) *StandardError {
	return newError(ErrCodeAgentCanceled, KindCanceled, fmt.Sprintf("%s agent was canceled", agent), err)
}

func NewAgentMissingError(agent string) *StandardError {
	return newError(ErrCodeAgentMissing, KindFatal, fmt.Sprintf("no agent registered for %s", agent), nil)
}

func NewFusionFailedError(err error) *StandardError {
	return newError(ErrCodeFusionFailed, KindFusionFailed, "LLM fusion failed, narratives concatenated", err)
}

func NewInvalidRequestError(details string) *StandardError {
	e := newError(ErrCodeInvalidRequest, KindFatal, "Invalid request", nil)
	e.Details = details
	return e
}

// ==========================
// 3. Utility Functions
// ==========================

// AsStandard extracts a StandardError from err's chain.
func AsStandard(err error) (*StandardError, bool) {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// ToDetail maps any error onto an ErrorDetail. Errors that are not
// StandardErrors get fallback as their code.
func ToDetail(err error, fallback ErrorCode) models.ErrorDetail {
	if err == nil {
		return models.ErrorDetail{Code: string(fallback), Kind: string(KindFatal), Category: GetErrorCategory(fallback)}
	}
	if se, ok := AsStandard(err); ok {
		return se.Detail()
	}
	kind := KindFatal
	switch {
	case stderrors.Is(err, context.Canceled):
		kind = KindCanceled
	case stderrors.Is(err, context.DeadlineExceeded):
		kind = KindTransient
	}
	return models.ErrorDetail{
		Code:      string(fallback),
		Kind:      string(kind),
		Message:   err.Error(),
		Category:  GetErrorCategory(fallback),
		Retryable: kind == KindTransient,
	}
}

// IsRetryableErrorCode reports whether asking the same question again later
// may succeed. Quota and credential failures need an operator first.
func IsRetryableErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodeGA4Unavailable,
		ErrCodeGA4Timeout,
		ErrCodeSEODataUnavailable,
		ErrCodeLLMExhausted,
		ErrCodeAgentTimeout:
		return true
	default:
		return false
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "GA4") || strings.Contains(codeStr, "PROPERTY"):
		return "ANALYTICS"
	case strings.HasPrefix(codeStr, "SEO"):
		return "SEO"
	case strings.HasPrefix(codeStr, "LLM") || strings.Contains(codeStr, "INTENT") || strings.Contains(codeStr, "FUSION"):
		return "AI"
	case strings.HasPrefix(codeStr, "AGENT"):
		return "ORCHESTRATION"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
