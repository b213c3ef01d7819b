package weaviate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"ragserver/internal/retrieval"
	"ragserver/internal/vector"
)

// Store adapts the Weaviate client to the vector-store contract: idempotent
// batched upserts keyed on deterministic object IDs, cosine nearVector search,
// and explicit deletion of stale chunks.
type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	return vector.EnsureSchema(ctx, s)
}

// Schema pass-throughs satisfying vector.SchemaClient.

func (s *Store) ClassExists(ctx context.Context, className string) (bool, error) {
	return s.client.Schema().ClassExistenceChecker().WithClassName(className).Do(ctx)
}

func (s *Store) CreateClass(ctx context.Context, class *models.Class) error {
	return s.client.Schema().ClassCreator().WithClass(class).Do(ctx)
}

func (s *Store) GetClass(ctx context.Context, className string) (*models.Class, error) {
	return s.client.Schema().ClassGetter().WithClassName(className).Do(ctx)
}

func (s *Store) AddProperty(ctx context.Context, className string, property *models.Property) error {
	return s.client.Schema().PropertyCreator().WithClassName(className).WithProperty(property).Do(ctx)
}

// UpsertChunks writes points via batch import. Weaviate's batch import
// replaces objects whose ID already exists, so re-running ingestion over an
// unchanged page rewrites the same objects instead of growing the collection.
func (s *Store) UpsertChunks(ctx context.Context, points []vector.Point) error {
	if len(points) == 0 {
		return nil
	}

	objects := make([]*models.Object, len(points))
	for i, p := range points {
		createdAt := p.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		objects[i] = &models.Object{
			Class: vector.ClassName,
			ID:    strfmt.UUID(vector.PointID(p.ChunkID)),
			Properties: map[string]interface{}{
				"text":      p.Text,
				"url":       p.URL,
				"chunkId":   p.ChunkID,
				"position":  p.Position,
				"title":     p.Title,
				"createdAt": createdAt.Format(time.RFC3339),
			},
			Vector: models.C11yVector(p.Vector),
		}
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("batch upsert: %w", err)
	}
	for _, r := range resp {
		if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
			return fmt.Errorf("batch upsert object %s: %s", r.ID, r.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// DeleteStaleChunks removes points for url at position >= fromPosition. After
// a page shrinks, this keeps the collection free of orphaned tail chunks.
func (s *Store) DeleteStaleChunks(ctx context.Context, url string, fromPosition int) error {
	resp, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(vector.ClassName).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithOperator(filters.And).
			WithOperands([]*filters.WhereBuilder{
				filters.Where().
					WithPath([]string{"url"}).
					WithOperator(filters.Equal).
					WithValueString(url),
				filters.Where().
					WithPath([]string{"position"}).
					WithOperator(filters.GreaterThanEqual).
					WithValueInt(int64(fromPosition)),
			})).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("delete stale chunks: %w", err)
	}
	if resp != nil && resp.Results != nil && resp.Results.Matches > 0 {
		slog.InfoContext(ctx, "deleted stale chunks", "url", url, "from_position", fromPosition, "matches", resp.Results.Matches)
	}
	return nil
}

// DeleteChunksByURLPrefix removes every point whose url starts with prefix.
// Used when a whole source is deleted.
func (s *Store) DeleteChunksByURLPrefix(ctx context.Context, prefix string) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(vector.ClassName).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{"url"}).
			WithOperator(filters.Like).
			WithValueText(prefix + "*")).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("delete chunks by url prefix: %w", err)
	}
	return nil
}

// Search runs a cosine nearVector query. The relevance score is 1 - distance,
// i.e. cosine similarity. minScore filters server-side before the topK
// truncation; ties are broken by chunk position for deterministic ordering.
func (s *Store) Search(ctx context.Context, vec []float32, topK int, minScore float64) ([]retrieval.Result, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(vec).
		WithDistance(float32(1.0 - minScore))

	fields := []graphql.Field{
		{Name: "text"},
		{Name: "url"},
		{Name: "chunkId"},
		{Name: "position"},
		{Name: "title"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithNearVector(nearVector).
		WithLimit(topK).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("near vector query: %w", err)
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	var results []retrieval.Result
	data, ok := res.Data["Get"].(map[string]interface{})
	if !ok {
		return results, nil
	}
	raw, ok := data[vector.ClassName].([]interface{})
	if !ok {
		return results, nil
	}

	for _, item := range raw {
		props, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		result := retrieval.Result{}
		if text, ok := props["text"].(string); ok {
			result.Text = text
		}
		if url, ok := props["url"].(string); ok {
			result.SourceURL = url
		}
		if chunkID, ok := props["chunkId"].(string); ok {
			result.ChunkID = chunkID
		}
		if position, ok := props["position"].(float64); ok {
			result.Position = int(position)
		}
		if title, ok := props["title"].(string); ok {
			result.Title = title
		}
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			if distance, ok := additional["distance"].(float64); ok {
				result.RelevanceScore = 1.0 - distance
			}
		}

		if result.RelevanceScore < minScore {
			continue
		}
		results = append(results, result)
	}

	// Descending score, ties by position ascending for determinism.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].RelevanceScore != results[j].RelevanceScore {
			return results[i].RelevanceScore > results[j].RelevanceScore
		}
		return results[i].Position < results[j].Position
	})

	return results, nil
}

// CountChunks returns the number of stored points.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	res, err := s.client.GraphQL().Aggregate().
		WithClassName(vector.ClassName).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("aggregate count: %w", err)
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	agg, ok := res.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	items, ok := agg[vector.ClassName].([]interface{})
	if !ok || len(items) == 0 {
		return 0, nil
	}
	first, ok := items[0].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	meta, ok := first["meta"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	count, _ := meta["count"].(float64)
	return int(count), nil
}
