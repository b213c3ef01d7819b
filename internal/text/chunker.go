package text

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// ContentChunk is the atomic retrievable unit: a bounded span of a source
// document's text. IDs are a deterministic function of (url, position) so
// re-ingesting the same page produces the same IDs.
type ContentChunk struct {
	ID        string
	URL       string
	Text      string
	Position  int
	CharCount int
}

// Chunker splits cleaned document text into sentence-respecting chunks of at
// most MaxChars characters.
type Chunker struct {
	maxChars int
}

func NewChunker(maxChars int) *Chunker {
	if maxChars <= 0 {
		maxChars = 1200
	}
	return &Chunker{maxChars: maxChars}
}

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+(?:\s|$)|[^.!?]+$`)

// Chunk accumulates sentence-terminated spans and closes a chunk when adding
// the next sentence would exceed the limit. A single sentence longer than the
// limit is force-split at whitespace; that degrades chunk quality but never
// fails. Empty input yields no chunks and no error.
func (c *Chunker) Chunk(cleanText, url string) []ContentChunk {
	cleanText = normalizeWhitespace(cleanText)
	if cleanText == "" {
		return nil
	}

	if len(cleanText) <= c.maxChars {
		return []ContentChunk{makeChunk(url, 0, cleanText)}
	}

	sentences := sentenceRe.FindAllString(cleanText, -1)
	if len(sentences) == 0 {
		sentences = []string{cleanText}
	}

	var chunks []ContentChunk
	var current strings.Builder
	position := 0

	flush := func() {
		text := strings.TrimSpace(current.String())
		if text == "" {
			return
		}
		chunks = append(chunks, makeChunk(url, position, text))
		position++
		current.Reset()
	}

	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		if len(sentence) > c.maxChars {
			// Oversized sentence: emit what we have, then force-split the
			// sentence at whitespace boundaries.
			flush()
			slog.Warn("forced mid-sentence chunk break", "url", url, "sentence_len", len(sentence), "limit", c.maxChars)
			for _, piece := range splitAtWhitespace(sentence, c.maxChars) {
				chunks = append(chunks, makeChunk(url, position, piece))
				position++
			}
			continue
		}

		if current.Len() > 0 && current.Len()+1+len(sentence) > c.maxChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
	}
	flush()

	return chunks
}

// ChunkID derives the stable chunk identifier for a (url, position) pair.
func ChunkID(url string, position int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", url, position)))
	return fmt.Sprintf("%x", sum)
}

func makeChunk(url string, position int, text string) ContentChunk {
	return ContentChunk{
		ID:        ChunkID(url, position),
		URL:       url,
		Text:      text,
		Position:  position,
		CharCount: len(text),
	}
}

// splitAtWhitespace breaks a span into pieces no longer than maxChars,
// preferring word boundaries. Words longer than maxChars are cut hard.
func splitAtWhitespace(s string, maxChars int) []string {
	words := strings.Fields(s)
	var pieces []string
	var current strings.Builder

	for _, word := range words {
		for len(word) > maxChars {
			if current.Len() > 0 {
				pieces = append(pieces, current.String())
				current.Reset()
			}
			pieces = append(pieces, word[:maxChars])
			word = word[maxChars:]
		}
		if word == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+1+len(word) > maxChars {
			pieces = append(pieces, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		pieces = append(pieces, current.String())
	}
	return pieces
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func normalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
