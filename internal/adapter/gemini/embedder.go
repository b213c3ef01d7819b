package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"ragserver/internal/retry"
)

// ErrDimensionMismatch signals that the provider returned a vector of the
// wrong dimensionality. It is never retried.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// maxBatchSize is the provider-imposed cap on texts per batch embed call.
const maxBatchSize = 100

// Embedder wraps the Gemini embedding API. Document and query embedding use
// distinct task types and are not interchangeable.
type Embedder struct {
	client  *genai.Client
	model   string
	dim     int
	policy  retry.Policy
	limiter *rate.Limiter
}

type EmbedderConfig struct {
	APIKey string
	Model  string
	// Dim is the provider-declared dimensionality for Model. Every returned
	// vector is validated against it.
	Dim    int
	Policy retry.Policy
}

func NewEmbedder(ctx context.Context, cfg EmbedderConfig, opts ...option.ClientOption) (*Embedder, error) {
	clientOpts := append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Embedder{
		client:  client,
		model:   cfg.Model,
		dim:     cfg.Dim,
		policy:  cfg.Policy,
		limiter: rate.NewLimiter(rate.Limit(5), 5),
	}, nil
}

func (e *Embedder) Close() error {
	return e.client.Close()
}

// EmbedDocuments embeds chunk texts for storage, batched up to the provider
// limit. A transient provider failure is retried with backoff; exhaustion
// fails the whole call so the caller can isolate the ingestion item.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	em := e.client.EmbeddingModel(e.model)
	em.TaskType = genai.TaskTypeRetrievalDocument

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		slog.DebugContext(ctx, "embedding document batch", "model", e.model, "size", len(batch))

		var resp *genai.BatchEmbedContentsResponse
		err := e.policy.Do(ctx, func() error {
			if err := e.limiter.Wait(ctx); err != nil {
				return retry.Permanent(err)
			}
			b := em.NewBatch()
			for _, t := range batch {
				b.AddContent(genai.Text(t))
			}
			var callErr error
			resp, callErr = em.BatchEmbedContents(ctx, b)
			return callErr
		})
		if err != nil {
			return nil, fmt.Errorf("batch embed: %w", err)
		}

		if len(resp.Embeddings) != len(batch) {
			return nil, fmt.Errorf("expected %d embeddings, got %d", len(batch), len(resp.Embeddings))
		}
		for _, emb := range resp.Embeddings {
			if err := e.checkDim(emb.Values); err != nil {
				return nil, err
			}
			vectors = append(vectors, emb.Values)
		}
	}

	return vectors, nil
}

// EmbedQuery embeds a search query with the query task type.
func (e *Embedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	em := e.client.EmbeddingModel(e.model)
	em.TaskType = genai.TaskTypeRetrievalQuery

	var resp *genai.EmbedContentResponse
	err := e.policy.Do(ctx, func() error {
		if err := e.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}
		var callErr error
		resp, callErr = em.EmbedContent(ctx, genai.Text(query))
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	if resp.Embedding == nil {
		return nil, fmt.Errorf("empty embedding received")
	}
	if err := e.checkDim(resp.Embedding.Values); err != nil {
		return nil, err
	}
	return resp.Embedding.Values, nil
}

func (e *Embedder) checkDim(vec []float32) error {
	if len(vec) != e.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), e.dim)
	}
	return nil
}
