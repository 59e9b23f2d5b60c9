// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"query-orchestrator/internal/audit"
	apperrors "query-orchestrator/internal/common/errors"
	"query-orchestrator/internal/common/validation"
	"query-orchestrator/internal/models"
)

type errorResponse struct {
	Code    string                       `json:"code"`
	Message string                       `json:"message"`
	Errors  []validation.ValidationError `json:"errors,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, apperrors.NewInvalidRequestError("request body too large"), nil)
			return
		}
		s.writeError(w, http.StatusBadRequest, apperrors.NewInvalidRequestError("could not read request body"), nil)
		return
	}

	if result := s.validator.ValidateJSON(body); !result.Valid {
		s.writeError(w, http.StatusBadRequest, apperrors.NewInvalidRequestError(result.Summary()), result.Errors)
		return
	}

	var req struct {
		Query      string  `json:"query"`
		PropertyID *string `json:"propertyId"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, apperrors.NewInvalidRequestError("body is not valid JSON"), nil)
		return
	}
	propertyID := ""
	if req.PropertyID != nil {
		propertyID = *req.PropertyID
	}
	q := models.NewQuery(req.Query, propertyID)

	start := time.Now()
	resp := s.answerer.Answer(r.Context(), q)
	if s.audit != nil {
		s.audit.Observe(r.Context(), q, resp, time.Since(start))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecentAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		s.writeError(w, http.StatusNotFound, apperrors.New(apperrors.ErrCodeInvalidRequest, apperrors.KindFatal, "audit log is disabled"), nil)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, apperrors.NewInvalidRequestError("limit must be a positive integer"), nil)
			return
		}
		limit = n
	}

	entries, err := s.audit.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("audit read failed", map[string]interface{}{"error": err.Error()})
		s.writeError(w, http.StatusInternalServerError, apperrors.Wrap(apperrors.ErrCodeInternal, apperrors.KindTransient, "audit log unavailable", err), nil)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func (s *Server) handleInvalidateSEOCache(w http.ResponseWriter, r *http.Request) {
	if s.config.SEOCache == nil {
		s.writeError(w, http.StatusNotFound, apperrors.New(apperrors.ErrCodeInvalidRequest, apperrors.KindFatal, "SEO cache is disabled"), nil)
		return
	}
	if err := s.config.SEOCache.Invalidate(r.Context()); err != nil {
		s.logger.Error("SEO cache invalidation failed", map[string]interface{}{"error": err.Error()})
		s.writeError(w, http.StatusInternalServerError, apperrors.Wrap(apperrors.ErrCodeInternal, apperrors.KindTransient, "SEO cache unavailable", err), nil)
		return
	}
	s.logger.Info("SEO cache invalidated", nil)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"version": s.config.Version,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	writeJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": results,
	})
}

func (s *Server) writeError(w http.ResponseWriter, status int, err *apperrors.StandardError, details []validation.ValidationError) {
	message := err.Message
	if err.Details != "" {
		message = err.Message + ": " + err.Details
	}
	writeJSON(w, status, errorResponse{
		Code:    string(err.Code),
		Message: message,
		Errors:  details,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
