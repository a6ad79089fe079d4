package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/user/goldwatch/internal/delivery/http/response"
	"github.com/user/goldwatch/internal/usecase"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type Handler struct {
	runManager usecase.RunManager
}

func NewHandler(runManager usecase.RunManager) *Handler {
	return &Handler{
		runManager: runManager,
	}
}

// HandleTriggerRun runs the pipeline synchronously. A failed run is reported
// with status 500 and the run body; an overlapping trigger gets 409. The run
// outlives a client disconnect.
func (h *Handler) HandleTriggerRun(w http.ResponseWriter, r *http.Request) {
	report, err := h.runManager.Trigger(context.WithoutCancel(r.Context()))
	if errors.Is(err, usecase.ErrRunInProgress) {
		h.writeJSONError(w, err.Error(), http.StatusConflict)
		return
	}
	if report == nil {
		slog.Error("Pipeline run returned no report", "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if err != nil {
		status = http.StatusInternalServerError
	}
	h.writeJSON(w, status, response.NewRunResponse(report))
}

func (h *Handler) HandleGetLatestRun(w http.ResponseWriter, r *http.Request) {
	report, err := h.runManager.Latest(r.Context())
	if err != nil {
		slog.Error("Failed to get latest run", "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if report == nil {
		h.writeJSONError(w, "No run has finished yet", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewRunResponse(report))
}

func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			h.writeJSONError(w, "limit must be between 1 and 100", http.StatusBadRequest)
			return
		}
		limit = n
	}

	reports, err := h.runManager.History(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list runs", "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := response.RunListResponse{Runs: make([]response.RunResponse, 0, len(reports))}
	for _, report := range reports {
		resp.Runs = append(resp.Runs, response.NewRunResponse(report))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
