// internal/agents/analytics/errors.go
package analytics

import (
	"context"
	"errors"

	apperrors "query-orchestrator/internal/common/errors"
)

// ClassifyFetchError maps a DataSource failure onto a GA4 error code. Data
// sources that already return a StandardError keep their code.
func ClassifyFetchError(err error) *apperrors.StandardError {
	if se, ok := apperrors.AsStandard(err); ok {
		return se
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewGA4TimeoutError(err)
	case errors.Is(err, context.Canceled):
		return apperrors.Wrap(apperrors.ErrCodeGA4FetchFailed, apperrors.KindCanceled, "GA4 report request was canceled", err)
	default:
		return apperrors.NewGA4FetchFailedError(err)
	}
}
