package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"budgetrollup/internal/core"
	"budgetrollup/internal/log"
	"budgetrollup/web"
)

// HeaderDegraded lists the categories whose source failed, comma separated.
const HeaderDegraded = "X-Rollup-Degraded"

type detailsResponse struct {
	Details []core.DetailLineItem `json:"details"`
	Count   int                   `json:"count"`
}

// handleBudgetDetails serves both route shapes of the rollup.
func (s *Server) handleBudgetDetails(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	res, err := s.rollups.ComputeRollup(ctx, r.PathValue("projectId"))
	if err != nil {
		if errors.Is(err, core.ErrInvalidProjectID) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Budget rollup failed",
			log.FieldError, err,
			log.FieldPath, r.URL.Path,
			"error_type", log.ErrorTypeInternal)
		writeError(w, http.StatusInternalServerError, "failed to compute budget rollup")
		return
	}

	if degraded := res.Degraded(); len(degraded) > 0 {
		w.Header().Set(HeaderDegraded, strings.Join(degraded, ","))
	}

	items := res.Items
	if items == nil {
		items = []core.DetailLineItem{}
	}
	writeJSON(w, http.StatusOK, detailsResponse{Details: items, Count: res.Count})
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady pings the source store.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	switch {
	case s.store == nil:
		checks["store"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	default:
		if err := s.store.Ping(ctx); err != nil {
			checks["store"] = "failed: " + err.Error()
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	}

	rl := s.rateLimiter.GetMetrics()
	checks["rate_limiter"] = map[string]any{
		"active_clients": rl.ClientCount,
		"hits":           rl.TotalHits,
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded, retry later")
}

func handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(web.OpenAPI)
}
