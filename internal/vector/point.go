package vector

import (
	"time"

	"github.com/google/uuid"
)

// ClassName is the Weaviate class holding all stored chunks.
const ClassName = "ContentChunk"

// Point is the persisted unit in the vector collection. Its object ID is a
// deterministic function of the chunk ID, so re-ingesting an unchanged page
// overwrites points in place instead of duplicating them.
type Point struct {
	ChunkID   string
	URL       string
	Text      string
	Position  int
	Title     string
	Vector    []float32
	CreatedAt time.Time
}

// PointID derives the stable Weaviate object UUID for a chunk. Writing twice
// with the same chunk ID always lands on the same object.
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkID)).String()
}
