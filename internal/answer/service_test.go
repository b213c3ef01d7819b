package answer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ragserver/internal/answer"
)

type MockGenerator struct{ mock.Mock }

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func newService(gen answer.Generator, strict bool) *answer.Service {
	return answer.NewService(gen, answer.Config{
		OverlapThreshold:    0.3,
		StrictGrounding:     strict,
		PromptContextBudget: 6000,
	})
}

func TestGenerateAnswer(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty Query Rejected", func(t *testing.T) {
		gen := new(MockGenerator)
		svc := newService(gen, false)

		_, err := svc.GenerateAnswer(ctx, answer.QueryWithContext{Query: "  "})
		require.Error(t, err)
		assert.ErrorIs(t, err, answer.ErrEmptyQuery)
		gen.AssertNotCalled(t, "Generate")
	})

	t.Run("Empty Context Short-Circuits Without Model Call", func(t *testing.T) {
		gen := new(MockGenerator)
		svc := newService(gen, false)

		ans, err := svc.GenerateAnswer(ctx, answer.QueryWithContext{Query: "What is covered?"})
		require.NoError(t, err)
		assert.Equal(t, answer.FallbackAnswer, ans.AnswerText)
		assert.False(t, ans.HallucinationDetected)
		assert.Zero(t, ans.ConfidenceScore)
		assert.Empty(t, ans.SourceCitations)
		gen.AssertNotCalled(t, "Generate")
	})

	t.Run("Blank Chunks Count As Empty Context", func(t *testing.T) {
		gen := new(MockGenerator)
		svc := newService(gen, false)

		ans, err := svc.GenerateAnswer(ctx, answer.QueryWithContext{
			Query:         "What is covered?",
			ContextChunks: []string{"", "   "},
			Sources:       []string{"https://a", "https://b"},
		})
		require.NoError(t, err)
		assert.Equal(t, answer.FallbackAnswer, ans.AnswerText)
		gen.AssertNotCalled(t, "Generate")
	})

	t.Run("Happy Path With Citations", func(t *testing.T) {
		gen := new(MockGenerator)
		gen.On("Generate", mock.Anything, mock.Anything).
			Return("The program offers robotics training and covers ROS2.", nil).Once()
		svc := newService(gen, false)

		ans, err := svc.GenerateAnswer(ctx, answer.QueryWithContext{
			Query:         "What does the program cover?",
			ContextChunks: []string{"The Governor IT program offers robotics training. It covers ROS2 and AI."},
			Sources:       []string{"https://example.com/program"},
		})
		require.NoError(t, err)
		assert.Contains(t, ans.AnswerText, "robotics")
		assert.False(t, ans.HallucinationDetected)
		assert.Greater(t, ans.ConfidenceScore, 0.5)
		assert.Equal(t, []string{"https://example.com/program"}, ans.SourceCitations)
		gen.AssertExpectations(t)
	})

	t.Run("Provider Failure Resolves To Fallback", func(t *testing.T) {
		gen := new(MockGenerator)
		gen.On("Generate", mock.Anything, mock.Anything).
			Return("", errors.New("503 service unavailable")).Once()
		svc := newService(gen, false)

		ans, err := svc.GenerateAnswer(ctx, answer.QueryWithContext{
			Query:         "What is covered?",
			ContextChunks: []string{"some context"},
			Sources:       []string{"https://a"},
		})
		require.NoError(t, err)
		assert.Equal(t, answer.FallbackAnswer, ans.AnswerText)
		assert.False(t, ans.HallucinationDetected)
		gen.AssertExpectations(t)
	})

	t.Run("Empty Completion Resolves To Fallback", func(t *testing.T) {
		gen := new(MockGenerator)
		gen.On("Generate", mock.Anything, mock.Anything).Return("   ", nil).Once()
		svc := newService(gen, false)

		ans, err := svc.GenerateAnswer(ctx, answer.QueryWithContext{
			Query:         "q",
			ContextChunks: []string{"some context"},
		})
		require.NoError(t, err)
		assert.Equal(t, answer.FallbackAnswer, ans.AnswerText)
	})

	t.Run("Strict Mode Replaces Ungrounded Answer", func(t *testing.T) {
		gen := new(MockGenerator)
		gen.On("Generate", mock.Anything, mock.Anything).
			Return("Elephants migrate across savanna landscapes every season.", nil).Once()
		svc := newService(gen, true)

		ans, err := svc.GenerateAnswer(ctx, answer.QueryWithContext{
			Query:         "What is covered?",
			ContextChunks: []string{"The program offers robotics training."},
			Sources:       []string{"https://a"},
		})
		require.NoError(t, err)
		assert.Equal(t, answer.FallbackAnswer, ans.AnswerText)
		assert.True(t, ans.HallucinationDetected)
	})

	t.Run("Lenient Mode Strips Unsupported Sentences", func(t *testing.T) {
		gen := new(MockGenerator)
		gen.On("Generate", mock.Anything, mock.Anything).
			Return("Ancient galaxies drift beyond forgotten kingdoms, strange deserts, and unexplained mysteries. The program offers robotics training.", nil).Once()
		svc := newService(gen, false)

		ans, err := svc.GenerateAnswer(ctx, answer.QueryWithContext{
			Query:         "What is covered?",
			ContextChunks: []string{"The program offers robotics training sessions weekly."},
			Sources:       []string{"https://a"},
		})
		require.NoError(t, err)
		assert.Contains(t, ans.AnswerText, "robotics training")
		assert.NotContains(t, ans.AnswerText, "mysteries")
		assert.True(t, ans.HallucinationDetected)
	})

	t.Run("Model Refusal Passed Through Unflagged", func(t *testing.T) {
		gen := new(MockGenerator)
		gen.On("Generate", mock.Anything, mock.Anything).Return(answer.FallbackAnswer, nil).Once()
		svc := newService(gen, true)

		ans, err := svc.GenerateAnswer(ctx, answer.QueryWithContext{
			Query:         "What is the weather today?",
			ContextChunks: []string{"The program offers robotics training."},
			Sources:       []string{"https://a"},
		})
		require.NoError(t, err)
		assert.Equal(t, answer.FallbackAnswer, ans.AnswerText)
		assert.False(t, ans.HallucinationDetected)
		assert.Empty(t, ans.SourceCitations)
	})
}
