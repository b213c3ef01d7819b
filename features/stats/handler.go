package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"ragserver/internal/middleware"
)

type SourceCounter interface {
	Count(ctx context.Context) (int, error)
}

type RunCounter interface {
	Count(ctx context.Context) (int, error)
}

type VectorStore interface {
	CountChunks(ctx context.Context) (int, error)
}

type Handler struct {
	sources     SourceCounter
	runs        RunCounter
	vectorStore VectorStore
}

func NewHandler(s SourceCounter, r RunCounter, v VectorStore) *Handler {
	return &Handler{sources: s, runs: r, vectorStore: v}
}

type StatsResponse struct {
	Sources int `json:"sources"`
	Chunks  int `json:"chunks"`
	Runs    int `json:"runs"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sCount, err := h.sources.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count sources", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count sources", http.StatusInternalServerError)
		return
	}

	rCount, err := h.runs.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count runs", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count runs", http.StatusInternalServerError)
		return
	}

	cCount, err := h.vectorStore.CountChunks(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count chunks", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count chunks", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{
		Sources: sCount,
		Chunks:  cCount,
		Runs:    rCount,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
