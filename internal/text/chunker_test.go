package text

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk(t *testing.T) {
	t.Run("Empty Input", func(t *testing.T) {
		c := NewChunker(1200)
		assert.Empty(t, c.Chunk("", "https://example.com/a"))
		assert.Empty(t, c.Chunk("   \n\t  ", "https://example.com/a"))
	})

	t.Run("Short Text Single Chunk", func(t *testing.T) {
		c := NewChunker(1200)
		chunks := c.Chunk("The program offers robotics training. It covers ROS2 and AI.", "https://example.com/a")
		require.Len(t, chunks, 1)
		assert.Equal(t, 0, chunks[0].Position)
		assert.Equal(t, "The program offers robotics training. It covers ROS2 and AI.", chunks[0].Text)
		assert.Equal(t, len(chunks[0].Text), chunks[0].CharCount)
	})

	t.Run("Chunk Bound", func(t *testing.T) {
		c := NewChunker(100)
		var sb strings.Builder
		for i := 0; i < 50; i++ {
			sb.WriteString("This is sentence number one of many in the document. ")
		}
		chunks := c.Chunk(sb.String(), "https://example.com/long")
		require.NotEmpty(t, chunks)
		for _, chunk := range chunks {
			assert.LessOrEqual(t, chunk.CharCount, 100)
			assert.NotEmpty(t, chunk.Text)
		}
	})

	t.Run("Sentence Boundaries Respected", func(t *testing.T) {
		c := NewChunker(60)
		text := "First sentence here. Second sentence follows. Third one ends it."
		chunks := c.Chunk(text, "https://example.com/s")
		require.True(t, len(chunks) > 1)
		// No chunk breaks mid-sentence: each ends with a terminator.
		for _, chunk := range chunks {
			last := chunk.Text[len(chunk.Text)-1]
			assert.Contains(t, ".!?", string(last))
		}
	})

	t.Run("Coverage", func(t *testing.T) {
		c := NewChunker(80)
		text := "Alpha is first. Bravo is second. Charlie is third. Delta is fourth. Echo is fifth."
		chunks := c.Chunk(text, "https://example.com/c")
		require.NotEmpty(t, chunks)
		var parts []string
		for _, chunk := range chunks {
			parts = append(parts, chunk.Text)
		}
		assert.Equal(t, text, strings.Join(parts, " "))
	})

	t.Run("Positions Monotonic", func(t *testing.T) {
		c := NewChunker(50)
		text := strings.Repeat("A sentence goes right here. ", 20)
		chunks := c.Chunk(text, "https://example.com/p")
		require.True(t, len(chunks) > 2)
		for i, chunk := range chunks {
			assert.Equal(t, i, chunk.Position)
		}
	})

	t.Run("Forced Split Of Oversized Sentence", func(t *testing.T) {
		c := NewChunker(50)
		// One sentence far over the limit, no internal terminators.
		text := strings.Repeat("word ", 40) + "end."
		chunks := c.Chunk(text, "https://example.com/f")
		require.True(t, len(chunks) > 1)
		for _, chunk := range chunks {
			assert.LessOrEqual(t, chunk.CharCount, 50)
		}
		// Nothing dropped: all words survive the split.
		joined := strings.Join(strings.Fields(strings.Join(collectTexts(chunks), " ")), " ")
		assert.Equal(t, strings.Join(strings.Fields(text), " "), joined)
	})

	t.Run("Deterministic IDs", func(t *testing.T) {
		c := NewChunker(100)
		text := strings.Repeat("Stable sentence for identity. ", 10)
		first := c.Chunk(text, "https://example.com/d")
		second := c.Chunk(text, "https://example.com/d")
		require.Equal(t, len(first), len(second))
		for i := range first {
			assert.Equal(t, first[i].ID, second[i].ID)
		}
		// Different URL yields different IDs for identical text.
		other := c.Chunk(text, "https://example.com/other")
		assert.NotEqual(t, first[0].ID, other[0].ID)
	})

	t.Run("Whitespace Normalized", func(t *testing.T) {
		c := NewChunker(1200)
		chunks := c.Chunk("Spaced\n\nout\ttext.  Extra   gaps.", "https://example.com/w")
		require.Len(t, chunks, 1)
		assert.Equal(t, "Spaced out text. Extra gaps.", chunks[0].Text)
	})
}

func TestChunkID(t *testing.T) {
	a := ChunkID("https://example.com/page", 0)
	b := ChunkID("https://example.com/page", 0)
	c := ChunkID("https://example.com/page", 1)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func collectTexts(chunks []ContentChunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}
