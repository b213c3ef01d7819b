package ask

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"ragserver/internal/answer"
	"ragserver/internal/middleware"
	"ragserver/internal/retrieval"
)

// Retriever and Generator are the two core services the query surface fronts.
type Retriever interface {
	Retrieve(ctx context.Context, query string, limit int, minRelevance float64) ([]retrieval.Result, error)
}

type Generator interface {
	GenerateAnswer(ctx context.Context, q answer.QueryWithContext) (*answer.GeneratedAnswer, error)
}

type Handler struct {
	retriever Retriever
	generator Generator
}

func NewHandler(retriever Retriever, generator Generator) *Handler {
	return &Handler{retriever: retriever, generator: generator}
}

// minRelevanceOrDefault maps an absent min_relevance to the negative sentinel
// the retrieval service replaces with its configured default. An explicit
// zero passes through and disables the relevance filter.
func minRelevanceOrDefault(v *float64) float64 {
	if v == nil {
		return -1
	}
	return *v
}

// Search handles POST /search: retrieval only, no generation.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Query        string   `json:"query"`
		Limit        int      `json:"limit"`
		MinRelevance *float64 `json:"min_relevance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}

	results, err := h.retriever.Retrieve(ctx, req.Query, req.Limit, minRelevanceOrDefault(req.MinRelevance))
	if err != nil {
		if errors.Is(err, retrieval.ErrInvalidQuery) {
			h.writeError(ctx, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
			return
		}
		slog.ErrorContext(ctx, "search failed", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if results == nil {
		results = []retrieval.Result{}
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": results,
		"meta": map[string]int{"count": len(results)},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// Ask handles POST /ask: retrieve then generate a grounded answer. Provider
// failures resolve to the fallback answer inside the generator; the only
// client errors here are validation ones.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Query        string   `json:"query"`
		Limit        int      `json:"limit"`
		MinRelevance *float64 `json:"min_relevance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}

	results, err := h.retriever.Retrieve(ctx, req.Query, req.Limit, minRelevanceOrDefault(req.MinRelevance))
	if err != nil {
		if errors.Is(err, retrieval.ErrInvalidQuery) {
			h.writeError(ctx, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
			return
		}
		slog.ErrorContext(ctx, "retrieval failed", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	chunks := make([]string, len(results))
	sources := make([]string, len(results))
	for i, res := range results {
		chunks[i] = res.Text
		sources[i] = res.SourceURL
	}

	ans, err := h.generator.GenerateAnswer(ctx, answer.QueryWithContext{
		Query:         req.Query,
		ContextChunks: chunks,
		Sources:       sources,
	})
	if err != nil {
		if errors.Is(err, answer.ErrEmptyQuery) {
			h.writeError(ctx, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
			return
		}
		slog.ErrorContext(ctx, "answer generation failed", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": ans}); err != nil {
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
		slog.ErrorContext(ctx, "failed to encode error response", "error", err)
	}
}
