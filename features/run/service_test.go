package run_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ragserver/features/run"
	"ragserver/internal/ingest"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Save(ctx context.Context, r *run.Run) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockRepository) ListBySource(ctx context.Context, sourceID string) ([]run.Run, error) {
	args := m.Called(ctx, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]run.Run), args.Error(1)
}

func (m *MockRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func TestService_RecordRun(t *testing.T) {
	started := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Converts Report Fields", func(t *testing.T) {
		repo := new(MockRepository)
		svc := run.NewService(repo)

		var saved *run.Run
		repo.On("Save", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { saved = args.Get(1).(*run.Run) }).
			Return(nil)

		report := &ingest.Report{
			SitemapURL:    "https://example.com/sitemap.xml",
			Discovered:    10,
			Succeeded:     8,
			Failed:        2,
			PointsWritten: 37,
			Failures: []ingest.Failure{
				{URL: "https://example.com/a", Stage: ingest.StageFetch, Error: "status 500"},
				{URL: "https://example.com/b", Stage: ingest.StageExtract, Error: "content too short"},
			},
			StartedAt: started,
			Duration:  90 * time.Second,
		}

		err := svc.RecordRun(context.Background(), "src-1", report)
		require.NoError(t, err)

		require.NotNil(t, saved)
		assert.Equal(t, "src-1", saved.SourceID)
		assert.Equal(t, 10, saved.Discovered)
		assert.Equal(t, 8, saved.Succeeded)
		assert.Equal(t, 2, saved.Failed)
		assert.Equal(t, 37, saved.PointsWritten)
		assert.Equal(t, started, saved.StartedAt)
		assert.Equal(t, started.Add(90*time.Second), saved.FinishedAt)

		var failures []ingest.Failure
		require.NoError(t, json.Unmarshal(saved.Failures, &failures))
		require.Len(t, failures, 2)
		assert.Equal(t, "fetch", failures[0].Stage)
	})

	t.Run("No Failures Leaves Column Null", func(t *testing.T) {
		repo := new(MockRepository)
		svc := run.NewService(repo)

		var saved *run.Run
		repo.On("Save", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { saved = args.Get(1).(*run.Run) }).
			Return(nil)

		err := svc.RecordRun(context.Background(), "src-1", &ingest.Report{Discovered: 3, Succeeded: 3, StartedAt: started})
		require.NoError(t, err)
		assert.Nil(t, saved.Failures)
	})

	t.Run("Propagates Save Failure", func(t *testing.T) {
		repo := new(MockRepository)
		svc := run.NewService(repo)

		repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down"))

		err := svc.RecordRun(context.Background(), "src-1", &ingest.Report{StartedAt: started})
		assert.Error(t, err)
	})
}

func TestHandler_ListBySource(t *testing.T) {
	t.Run("Returns Runs With Count", func(t *testing.T) {
		repo := new(MockRepository)
		h := run.NewHandler(run.NewService(repo))

		repo.On("ListBySource", mock.Anything, "src-1").Return([]run.Run{
			{ID: "run-1", SourceID: "src-1", Succeeded: 3},
		}, nil)

		req := httptest.NewRequest("GET", "/sources/src-1/runs", nil)
		req.SetPathValue("id", "src-1")
		rec := httptest.NewRecorder()

		h.ListBySource(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Data []run.Run      `json:"data"`
			Meta map[string]int `json:"meta"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Len(t, resp.Data, 1)
		assert.Equal(t, "run-1", resp.Data[0].ID)
		assert.Equal(t, 1, resp.Meta["count"])
	})

	t.Run("Empty List Is Array", func(t *testing.T) {
		repo := new(MockRepository)
		h := run.NewHandler(run.NewService(repo))

		repo.On("ListBySource", mock.Anything, "src-1").Return(nil, nil)

		req := httptest.NewRequest("GET", "/sources/src-1/runs", nil)
		req.SetPathValue("id", "src-1")
		rec := httptest.NewRecorder()

		h.ListBySource(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"data":[]`)
	})

	t.Run("Repository Failure Returns 500", func(t *testing.T) {
		repo := new(MockRepository)
		h := run.NewHandler(run.NewService(repo))

		repo.On("ListBySource", mock.Anything, "src-1").Return(nil, errors.New("db down"))

		req := httptest.NewRequest("GET", "/sources/src-1/runs", nil)
		req.SetPathValue("id", "src-1")
		rec := httptest.NewRecorder()

		h.ListBySource(rec, req)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
