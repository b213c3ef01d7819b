package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var ErrEmptyQuery = errors.New("query cannot be empty")

// QueryWithContext is the generator's input: the user query, the retrieved
// chunk texts in descending relevance order, and the parallel source URLs.
type QueryWithContext struct {
	Query         string   `json:"query"`
	ContextChunks []string `json:"context_chunks"`
	Sources       []string `json:"sources"`
}

// GeneratedAnswer is the terminal artifact. Immutable once returned.
type GeneratedAnswer struct {
	AnswerText            string   `json:"answer_text"`
	ConfidenceScore       float64  `json:"confidence_score"`
	SourceCitations       []string `json:"source_citations"`
	HallucinationDetected bool     `json:"hallucination_detected"`
}

// Generator produces a completion for a prompt. Implemented by the Gemini
// adapter.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	OverlapThreshold    float64
	StrictGrounding     bool
	PromptContextBudget int
}

// Service orchestrates prompt construction, model invocation and grounding
// validation. Model failures resolve to the fallback answer, never to an
// error reaching the caller.
type Service struct {
	generator Generator
	prompt    *PromptBuilder
	threshold float64
	strict    bool
}

func NewService(generator Generator, cfg Config) *Service {
	threshold := cfg.OverlapThreshold
	if threshold <= 0 {
		threshold = 0.3
	}
	return &Service{
		generator: generator,
		prompt:    NewPromptBuilder(cfg.PromptContextBudget),
		threshold: threshold,
		strict:    cfg.StrictGrounding,
	}
}

// GenerateAnswer validates the input, builds the prompt, calls the model and
// post-validates the result. Empty context short-circuits to the fallback
// without a model call. The only returned error is ErrEmptyQuery.
func (s *Service) GenerateAnswer(ctx context.Context, q QueryWithContext) (*GeneratedAnswer, error) {
	if strings.TrimSpace(q.Query) == "" {
		return nil, fmt.Errorf("validate query: %w", ErrEmptyQuery)
	}

	chunks, sources := nonEmptyChunks(q.ContextChunks, q.Sources)
	if len(chunks) == 0 {
		slog.InfoContext(ctx, "no context available, returning fallback", "query_chars", len(q.Query))
		return fallback(false), nil
	}

	prompt := s.prompt.Build(q.Query, chunks)

	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		slog.WarnContext(ctx, "generation failed, returning fallback", "error", err)
		return fallback(false), nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		slog.WarnContext(ctx, "empty completion, returning fallback")
		return fallback(false), nil
	}

	final := raw
	flagged, ratio := detectHallucination(raw, chunks, s.threshold)
	if flagged {
		slog.WarnContext(ctx, "low grounding overlap in generated answer",
			"overlap", ratio, "threshold", s.threshold, "strict", s.strict)
		if s.strict {
			return fallback(true), nil
		}
		final = stripUnsupported(raw, chunks, s.threshold)
		if strings.TrimSpace(final) == "" {
			return fallback(true), nil
		}
	}

	ans := &GeneratedAnswer{
		AnswerText:            final,
		ConfidenceScore:       confidenceScore(final, chunks),
		SourceCitations:       sourceCitations(final, chunks, sources, s.threshold),
		HallucinationDetected: flagged,
	}
	slog.InfoContext(ctx, "answer generated",
		"answer_chars", len(ans.AnswerText),
		"confidence", ans.ConfidenceScore,
		"citations", len(ans.SourceCitations),
		"hallucination_detected", ans.HallucinationDetected,
	)
	return ans, nil
}

func fallback(flagged bool) *GeneratedAnswer {
	return &GeneratedAnswer{
		AnswerText:            FallbackAnswer,
		ConfidenceScore:       0,
		HallucinationDetected: flagged,
	}
}

func nonEmptyChunks(chunks, sources []string) ([]string, []string) {
	keptChunks := make([]string, 0, len(chunks))
	keptSources := make([]string, 0, len(chunks))
	for i, c := range chunks {
		if strings.TrimSpace(c) == "" {
			continue
		}
		keptChunks = append(keptChunks, c)
		if i < len(sources) {
			keptSources = append(keptSources, sources[i])
		} else {
			keptSources = append(keptSources, "")
		}
	}
	return keptChunks, keptSources
}
