package source

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"ragserver/internal/config"
	"ragserver/internal/middleware"
	"ragserver/internal/worker"
)

var ErrDuplicate = errors.New("duplicate source")

// Source lifecycle statuses. A source moves pending → ingesting →
// {ready | failed} and back to ingesting on resync.
const (
	StatusPending   = "pending"
	StatusIngesting = "ingesting"
	StatusReady     = "ready"
	StatusFailed    = "failed"
)

type Source struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	SitemapURL  string `json:"sitemap_url"`
	ContentHash string `json:"-"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

type Repository interface {
	Save(ctx context.Context, src *Source) error
	ExistsByHash(ctx context.Context, hash string) (bool, error)
	Get(ctx context.Context, id string) (*Source, error)
	List(ctx context.Context) ([]Source, error)
	UpdateStatus(ctx context.Context, id, status string) error
	SoftDelete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	CountOthersByOrigin(ctx context.Context, originPrefix, excludeID string) (int, error)
}

// ChunkStore is the slice of the vector store the source feature needs to
// clean up after itself.
type ChunkStore interface {
	DeleteChunksByURLPrefix(ctx context.Context, prefix string) error
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type Service struct {
	repo       Repository
	pub        EventPublisher
	chunkStore ChunkStore
}

func NewService(repo Repository, pub EventPublisher, chunkStore ChunkStore) *Service {
	return &Service{repo: repo, pub: pub, chunkStore: chunkStore}
}

func (s *Service) Create(ctx context.Context, src *Source) error {
	if _, err := url.ParseRequestURI(src.SitemapURL); err != nil {
		return fmt.Errorf("invalid sitemap url: %w", err)
	}

	hash := sha256.Sum256([]byte(src.SitemapURL))
	src.ContentHash = fmt.Sprintf("%x", hash)

	exists, err := s.repo.ExistsByHash(ctx, src.ContentHash)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicate
	}

	src.Status = StatusPending
	if err := s.repo.Save(ctx, src); err != nil {
		return err
	}

	s.publishIngestTask(ctx, src)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*Source, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Source, error) {
	return s.repo.List(ctx)
}

// Delete removes the source's chunks from the vector store first, so a
// failure leaves the registry row intact and the operation retryable. Chunks
// are scoped by site origin; when another live source shares that origin their
// chunks stay untouched and only the registry row is removed.
func (s *Service) Delete(ctx context.Context, id string) error {
	src, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if prefix := siteOrigin(src.SitemapURL); prefix != "" {
		others, err := s.repo.CountOthersByOrigin(ctx, prefix, id)
		if err != nil {
			return err
		}
		if others > 0 {
			slog.WarnContext(ctx, "skipping chunk deletion, origin shared with other sources",
				"source_id", id, "origin", prefix, "other_sources", others)
		} else if err := s.chunkStore.DeleteChunksByURLPrefix(ctx, prefix); err != nil {
			return fmt.Errorf("delete chunks: %w", err)
		}
	}
	return s.repo.SoftDelete(ctx, id)
}

func (s *Service) ReSync(ctx context.Context, id string) error {
	src, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusPending); err != nil {
		return err
	}
	s.publishIngestTask(ctx, src)
	return nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func (s *Service) publishIngestTask(ctx context.Context, src *Source) {
	payload, _ := json.Marshal(worker.IngestTaskPayload{
		SourceID:      src.ID,
		SitemapURL:    src.SitemapURL,
		CorrelationID: middleware.GetCorrelationID(ctx),
	})
	if err := s.pub.Publish(config.TopicIngestTask, payload); err != nil {
		slog.ErrorContext(ctx, "failed to publish ingest.task event", "error", err, "source_id", src.ID)
	} else {
		slog.InfoContext(ctx, "published ingest.task event", "source_id", src.ID, "sitemap_url", src.SitemapURL)
	}
}

// siteOrigin reduces a sitemap URL to its scheme://host/ prefix, the shared
// prefix of every page URL that sitemap can list.
func siteOrigin(sitemapURL string) string {
	u, err := url.Parse(sitemapURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/"
}
