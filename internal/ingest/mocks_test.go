package ingest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ragserver/internal/text"
	"ragserver/internal/vector"
)

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(doc *SourceDocument) (*ExtractedText, error) {
	args := m.Called(doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ExtractedText), args.Error(1)
}

type MockChunker struct {
	mock.Mock
}

func (m *MockChunker) Chunk(cleanText, url string) []text.ContentChunk {
	args := m.Called(cleanText, url)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]text.ContentChunk)
}

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

type MockVectorStore struct {
	mock.Mock
}

func (m *MockVectorStore) UpsertChunks(ctx context.Context, points []vector.Point) error {
	args := m.Called(ctx, points)
	return args.Error(0)
}

func (m *MockVectorStore) DeleteStaleChunks(ctx context.Context, url string, fromPosition int) error {
	args := m.Called(ctx, url, fromPosition)
	return args.Error(0)
}
