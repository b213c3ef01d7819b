package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragserver/internal/retry"
)

func testFetcher() *HTTPFetcher {
	return NewHTTPFetcher(FetcherConfig{
		UserAgent: "ragserver/1.0",
		Timeout:   5 * time.Second,
		Policy: retry.Policy{
			MaxAttempts:     3,
			InitialInterval: time.Millisecond,
			MaxInterval:     2 * time.Millisecond,
		},
		RequestsPerSecond: 1000,
	})
}

func TestHTTPFetcher(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "ragserver/1.0", r.Header.Get("User-Agent"))
			w.Write([]byte("<html><body>hello</body></html>"))
		}))
		defer ts.Close()

		doc, err := testFetcher().Fetch(ctx, ts.URL)
		require.NoError(t, err)
		assert.Equal(t, ts.URL, doc.URL)
		assert.Equal(t, http.StatusOK, doc.Status)
		assert.Contains(t, doc.RawMarkup, "hello")
		assert.False(t, doc.FetchedAt.IsZero())
	})

	t.Run("Retries 5xx Then Succeeds", func(t *testing.T) {
		var calls int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte("ok"))
		}))
		defer ts.Close()

		doc, err := testFetcher().Fetch(ctx, ts.URL)
		require.NoError(t, err)
		assert.Equal(t, "ok", doc.RawMarkup)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("404 Not Retried", func(t *testing.T) {
		var calls int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer ts.Close()

		_, err := testFetcher().Fetch(ctx, ts.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 404")
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("Exhausted Retries Fail", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer ts.Close()

		_, err := testFetcher().Fetch(ctx, ts.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 500")
	})
}
