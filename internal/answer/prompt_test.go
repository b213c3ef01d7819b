package answer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptBuilder(t *testing.T) {
	t.Run("Section Order", func(t *testing.T) {
		b := NewPromptBuilder(6000)
		prompt := b.Build("What is covered?", []string{"Robotics training.", "ROS2 and AI."})

		ctxIdx := strings.Index(prompt, "Context:")
		qIdx := strings.Index(prompt, "Question:")
		instIdx := strings.Index(prompt, "Instructions:")
		require.NotEqual(t, -1, ctxIdx)
		require.NotEqual(t, -1, qIdx)
		require.NotEqual(t, -1, instIdx)
		assert.Less(t, ctxIdx, qIdx)
		assert.Less(t, qIdx, instIdx)

		assert.Contains(t, prompt, "Robotics training.")
		assert.Contains(t, prompt, "ROS2 and AI.")
		assert.Contains(t, prompt, "What is covered?")
		assert.Contains(t, prompt, FallbackAnswer)
	})

	t.Run("Chunks Rendered Verbatim In Order", func(t *testing.T) {
		b := NewPromptBuilder(6000)
		prompt := b.Build("q", []string{"first chunk", "second chunk"})
		assert.Less(t, strings.Index(prompt, "first chunk"), strings.Index(prompt, "second chunk"))
	})

	t.Run("Budget Drops Whole Chunks From End", func(t *testing.T) {
		big := strings.Repeat("a", 50)
		b := NewPromptBuilder(120)
		prompt := b.Build("q", []string{big, big, big})

		// Two chunks fit (50+1 each), the third does not.
		assert.Equal(t, 2, strings.Count(prompt, big))
		// Never truncated mid-chunk.
		assert.Contains(t, prompt, "Context:\n"+big+"\n"+big+"\n\nQuestion:")
	})

	t.Run("Skips Empty Chunks", func(t *testing.T) {
		b := NewPromptBuilder(6000)
		prompt := b.Build("q", []string{"", "  ", "real content"})
		assert.Contains(t, prompt, "Context:\nreal content")
	})

	t.Run("Deterministic", func(t *testing.T) {
		b := NewPromptBuilder(6000)
		chunks := []string{"alpha", "beta"}
		assert.Equal(t, b.Build("q", chunks), b.Build("q", chunks))
	})
}
