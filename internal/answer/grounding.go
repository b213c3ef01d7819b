package answer

import (
	"regexp"
	"strings"
)

// Lexical overlap is the grounding heuristic: the share of the answer's
// content words (4+ characters) that also appear in the context union. It is
// a heuristic, not a guarantee, and the threshold is tunable.
var contentWordRe = regexp.MustCompile(`\b\w{4,}\b`)

// Phrases that signal a deliberate refusal. Answers containing one are valid
// low-overlap responses and are never flagged as hallucinations.
var insufficientContextPhrases = []string{
	"i cannot answer",
	"no context provided",
	"not enough information",
	"based on my general knowledge",
	"i don't have access to",
	"i don't know",
}

var hedgingIndicators = []string{
	"i think", "possibly", "might be", "could be", "seems to",
	"appears to", "potentially", "may be", "probably",
}

func contentWords(text string) map[string]bool {
	words := contentWordRe.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// overlapRatio returns the fraction of the answer's content words present in
// the context. An answer with no content words has zero overlap.
func overlapRatio(answer, context string) float64 {
	answerWords := contentWords(answer)
	if len(answerWords) == 0 {
		return 0
	}
	ctxWords := contentWords(context)
	common := 0
	for w := range answerWords {
		if ctxWords[w] {
			common++
		}
	}
	return float64(common) / float64(len(answerWords))
}

func isRefusal(answer string) bool {
	lower := strings.ToLower(answer)
	for _, phrase := range insufficientContextPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// detectHallucination flags an answer whose content-word overlap with the
// context falls below threshold. Refusals are exempt.
func detectHallucination(answer string, contextChunks []string, threshold float64) (bool, float64) {
	if answer == "" || len(contextChunks) == 0 {
		return false, 0
	}
	if isRefusal(answer) {
		return false, 0
	}
	ratio := overlapRatio(answer, strings.Join(contextChunks, " "))
	return ratio < threshold, ratio
}

// confidenceScore derives confidence from the overlap measure, not from the
// model's self-reported certainty. Short answers and hedging language are
// penalized.
func confidenceScore(answer string, contextChunks []string) float64 {
	if answer == "" || len(contextChunks) == 0 {
		return 0
	}
	ratio := overlapRatio(answer, strings.Join(contextChunks, " "))

	score := ratio * 2
	if score > 1 {
		score = 1
	}
	if len(answer) < 20 {
		score *= 0.8
	}
	lower := strings.ToLower(answer)
	for _, indicator := range hedgingIndicators {
		if strings.Contains(lower, indicator) {
			score *= 0.7
			break
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}

// sourceCitations returns the subset of sources whose chunk text shares at
// least threshold overlap with the final answer. sources and chunks are
// parallel sequences; a source appears at most once.
func sourceCitations(answer string, contextChunks, sources []string, threshold float64) []string {
	if answer == "" || isRefusal(answer) {
		return nil
	}
	seen := make(map[string]bool)
	var cited []string
	for i, chunk := range contextChunks {
		if i >= len(sources) || sources[i] == "" {
			continue
		}
		if overlapRatio(answer, chunk) < threshold {
			continue
		}
		if seen[sources[i]] {
			continue
		}
		seen[sources[i]] = true
		cited = append(cited, sources[i])
	}
	return cited
}

var sentenceSplitRe = regexp.MustCompile(`(?s)[^.!?]+[.!?]+|\S[^.!?]*$`)

// stripUnsupported removes sentences whose overlap with the context falls
// below threshold. Used in lenient mode instead of replacing the whole
// answer.
func stripUnsupported(answer string, contextChunks []string, threshold float64) string {
	context := strings.Join(contextChunks, " ")
	sentences := sentenceSplitRe.FindAllString(answer, -1)
	var kept []string
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if overlapRatio(s, context) >= threshold {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, " ")
}
