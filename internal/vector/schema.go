package vector

import (
	"context"
	"log/slog"

	"github.com/weaviate/weaviate/entities/models"
)

// SchemaClient defines the interface for Weaviate schema operations
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
}

// EnsureSchema creates the chunk class if it does not exist and backfills any
// missing properties. Collection creation is always this explicit call; it
// never happens implicitly on first write.
func EnsureSchema(ctx context.Context, client SchemaClient) error {
	exists, err := client.ClassExists(ctx, ClassName)
	if err != nil {
		return err
	}

	properties := []*models.Property{
		{
			Name:     "text",
			DataType: []string{"text"},
		},
		{
			Name:     "url",
			DataType: []string{"string"}, // exact match
		},
		{
			Name:     "chunkId",
			DataType: []string{"string"}, // exact match
		},
		{
			Name:     "position",
			DataType: []string{"int"},
		},
		{
			Name:     "title",
			DataType: []string{"text"},
		},
		{
			Name:     "createdAt",
			DataType: []string{"date"},
		},
	}

	if !exists {
		class := &models.Class{
			Class:       ClassName,
			Description: "A chunk of an ingested page",
			Vectorizer:  "none",
			VectorIndexConfig: map[string]interface{}{
				"distance": "cosine",
			},
			Properties: properties,
		}
		slog.InfoContext(ctx, "creating vector collection", "class", ClassName, "distance", "cosine")
		return client.CreateClass(ctx, class)
	}

	// Class exists, check for missing properties
	class, err := client.GetClass(ctx, ClassName)
	if err != nil {
		return err
	}

	existingProps := make(map[string]bool)
	for _, p := range class.Properties {
		existingProps[p.Name] = true
	}

	for _, p := range properties {
		if !existingProps[p.Name] {
			if err := client.AddProperty(ctx, ClassName, p); err != nil {
				return err
			}
		}
	}

	return nil
}
