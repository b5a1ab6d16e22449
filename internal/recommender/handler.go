// Package recommender implements the HTTP handlers for the recommendation
// service.
//
// All routes expect an x-user-id header forwarded by the Gateway.
//
// Routes:
//
//	POST /recommendations/generate      → run a generation pass
//	GET  /recommendations               → list active (non-expired) recommendations
//	POST /recommendations/{id}/viewed   → mark viewed
//	POST /recommendations/{id}/clicked  → mark clicked
//	POST /recommendations/{id}/applied  → mark applied
//	POST /recommendations/{id}/dismiss  → dismiss with optional reason
//	POST /recommendations/{id}/feedback → submit explicit feedback
//	GET  /jobs/{id}/similar             → job-to-job similarity
//	POST /digest/daily                  → generate (or fetch) today's digest
//	GET  /metrics                       → funnel metrics for a period
package recommender

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the Service over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler returns a configured Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts all recommendation-service routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/recommendations", func(r chi.Router) {
		r.Post("/generate", h.handleGenerate)
		r.Get("/", h.handleList)
		r.Post("/{id}/viewed", h.handleViewed)
		r.Post("/{id}/clicked", h.handleClicked)
		r.Post("/{id}/applied", h.handleApplied)
		r.Post("/{id}/dismiss", h.handleDismiss)
		r.Post("/{id}/feedback", h.handleFeedback)
	})
	r.Get("/jobs/{id}/similar", h.handleSimilar)
	r.Post("/digest/daily", h.handleDailyDigest)
	r.Get("/metrics", h.handleMetrics)
	r.Post("/learn/application", h.handleLearnApplication)
}

// ─── Recommendations ─────────────────────────────────────────────────────────

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var params GenerateParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	recs, err := h.svc.Generate(r.Context(), userID, params)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recommendations": recs})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	recs, err := h.svc.ListActive(r.Context(), userID, r.URL.Query().Get("status"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recommendations": recs})
}

func (h *Handler) handleViewed(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.svc.MarkViewed)
}

func (h *Handler) handleClicked(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.svc.MarkClicked)
}

func (h *Handler) handleApplied(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.svc.MarkApplied)
}

func (h *Handler) handleTransition(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, userID, recID string) (*Recommendation, error),
) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	rec, err := op(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleDismiss(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body) // reason is optional
	}

	rec, err := h.svc.Dismiss(r.Context(), userID, chi.URLParam(r, "id"), body.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var body struct {
		FeedbackType string  `json:"feedbackType"`
		FeedbackText *string `json:"feedbackText"`
		Rating       *int    `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	fb, err := h.svc.SubmitFeedback(r.Context(), userID, chi.URLParam(r, "id"),
		body.FeedbackType, body.FeedbackText, body.Rating)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, fb)
}

// ─── Similarity, digest, metrics ─────────────────────────────────────────────

func (h *Handler) handleSimilar(w http.ResponseWriter, r *http.Request) {
	limit := 5
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = v
	}

	similar, err := h.svc.FindSimilar(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"similarJobs": similar})
}

func (h *Handler) handleDailyDigest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	digest, err := h.svc.GenerateDailyDigest(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if digest == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, digest)
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "start must be RFC 3339")
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "end must be RFC 3339")
		return
	}

	metrics, err := h.svc.Metrics(r.Context(), userID, start, end)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

// handleLearnApplication lets the tracker's status-change handler feed an
// application event directly, outside the recommendation lifecycle.
func (h *Handler) handleLearnApplication(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var body struct {
		JobID string `json:"jobId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.JobID == "" {
		writeError(w, http.StatusBadRequest, "jobId is required")
		return
	}

	job, err := h.svc.jobs.Job(r.Context(), body.JobID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	if err := h.svc.Learner().LearnFromApplication(r.Context(), userID, *job); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("x-user-id")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "x-user-id header is required")
		return "", false
	}
	return userID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeServiceError(w http.ResponseWriter, err error) {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, vErr.Msg)
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		slog.Error("internal error", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
