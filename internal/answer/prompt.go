package answer

import (
	"fmt"
	"log/slog"
	"strings"
)

// FallbackAnswer is the fixed refusal sentinel the model is instructed to
// emit when the context is insufficient, and the answer returned whenever
// generation cannot produce a grounded result.
const FallbackAnswer = "I cannot answer this question based on the provided context."

const instructions = `Answer the question using ONLY the provided context. Do not use any prior knowledge or information not present in the context. If the context does not contain sufficient information to answer the question, respond with "` + FallbackAnswer + `" Ensure your answer is directly supported by the information in the context section above.`

// PromptBuilder renders the grounding-constrained prompt. The context budget
// is enforced by dropping whole chunks from the end of the list. Callers
// supply chunks in descending relevance order, so the least relevant are
// dropped first.
type PromptBuilder struct {
	contextBudget int
}

func NewPromptBuilder(contextBudget int) *PromptBuilder {
	if contextBudget <= 0 {
		contextBudget = 6000
	}
	return &PromptBuilder{contextBudget: contextBudget}
}

// Build renders the three prompt sections in fixed order. Chunks are included
// verbatim, never truncated mid-chunk.
func (b *PromptBuilder) Build(query string, contextChunks []string) string {
	kept := make([]string, 0, len(contextChunks))
	total := 0
	for _, chunk := range contextChunks {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		if total+len(chunk)+1 > b.contextBudget {
			break
		}
		kept = append(kept, chunk)
		total += len(chunk) + 1
	}

	if dropped := len(contextChunks) - len(kept); dropped > 0 {
		slog.Debug("dropped context chunks over budget", "dropped", dropped, "kept", len(kept), "budget", b.contextBudget)
	}

	contextText := strings.Join(kept, "\n")
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s\n\nInstructions: %s", contextText, query, instructions)
}
