//go:build unit

package keyhash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashIsDeterministic(t *testing.T) {
	t.Run("hashing the same key twice yields the same value", func(t *testing.T) {
		assert.Equal(t, Hash([]byte("hello")), Hash([]byte("hello")))
	})

	t.Run("different keys almost certainly hash differently", func(t *testing.T) {
		assert.NotEqual(t, Hash([]byte("hello")), Hash([]byte("world")))
	})
}

func TestSegmentIndexInRange(t *testing.T) {
	t.Run("segment index always falls within [0, segmentCount)", func(t *testing.T) {
		for i := 0; i < 1000; i++ {
			h := Hash([]byte{byte(i), byte(i >> 8)})
			idx := SegmentIndex(h, 16)
			assert.True(t, idx >= 0 && idx < 16)
		}
	})

	t.Run("a single-segment map always routes to segment 0", func(t *testing.T) {
		assert.Equal(t, int64(0), SegmentIndex(Hash([]byte("anything")), 1))
	})
}
