package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"ragserver/internal/retry"
)

// Generator wraps the Gemini chat completion API with deterministic sampling
// parameters so repeated calls on identical input are reproducible.
type Generator struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
	policy      retry.Policy
	limiter     *rate.Limiter
}

type GeneratorConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int
	Policy          retry.Policy
}

func NewGenerator(ctx context.Context, cfg GeneratorConfig, opts ...option.ClientOption) (*Generator, error) {
	clientOpts := append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Generator{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   int32(cfg.MaxOutputTokens),
		policy:      cfg.Policy,
		limiter:     rate.NewLimiter(rate.Limit(10.0/60.0), 3),
	}, nil
}

func (g *Generator) Close() error {
	return g.client.Close()
}

// Generate produces a completion for prompt. Transient provider failures are
// retried with bounded backoff; the error after exhaustion is returned to the
// caller, which is responsible for the fallback policy.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	gm := g.client.GenerativeModel(g.model)
	gm.SetTemperature(g.temperature)
	gm.SetMaxOutputTokens(g.maxTokens)

	var resp *genai.GenerateContentResponse
	err := g.policy.Do(ctx, func() error {
		if err := g.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}
		var callErr error
		resp, callErr = gm.GenerateContent(ctx, genai.Text(prompt))
		return callErr
	})
	if err != nil {
		slog.ErrorContext(ctx, "generation failed", "model", g.model, "error", err)
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := extractText(resp)
	if text == "" {
		return "", fmt.Errorf("empty completion received")
	}
	return text, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return strings.TrimSpace(sb.String())
}
