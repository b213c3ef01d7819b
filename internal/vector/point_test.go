package vector

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointID(t *testing.T) {
	t.Run("Deterministic", func(t *testing.T) {
		first := PointID("abc123")
		second := PointID("abc123")
		assert.Equal(t, first, second)
	})

	t.Run("Distinct Chunk IDs Map To Distinct Object IDs", func(t *testing.T) {
		assert.NotEqual(t, PointID("chunk-a"), PointID("chunk-b"))
	})

	t.Run("Valid UUID", func(t *testing.T) {
		id, err := uuid.Parse(PointID("some-chunk"))
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(5), id.Version())
	})
}
