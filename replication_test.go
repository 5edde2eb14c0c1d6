//go:build unit

package sharedhashmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteApplyAcceptsNewerTimestamp(t *testing.T) {
	t.Run("a remote write with a newer origin timestamp overwrites the local value", func(t *testing.T) {
		m := newTestMap(t, true)

		require.NoError(t, m.RemoteApply(ReplicatedPut, "k", "local", 100, 2))
		require.NoError(t, m.RemoteApply(ReplicatedPut, "k", "remote", 200, 3))

		v, ok, err := m.Get("k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "remote", v)
	})
}

func TestRemoteApplyDiscardsOlderTimestamp(t *testing.T) {
	t.Run("a remote write with an older origin timestamp is discarded, leaving local state unchanged", func(t *testing.T) {
		m := newTestMap(t, true)

		require.NoError(t, m.RemoteApply(ReplicatedPut, "k", "local", 200, 2))
		require.NoError(t, m.RemoteApply(ReplicatedPut, "k", "stale", 100, 3))

		v, ok, err := m.Get("k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "local", v)
	})
}

func TestRemoteApplyTombstoneHidesKeyUntilOverwritten(t *testing.T) {
	t.Run("a remote delete hides the key from Get but still occupies a slot a later write can overwrite", func(t *testing.T) {
		m := newTestMap(t, true)

		require.NoError(t, m.RemoteApply(ReplicatedPut, "k", "v", 100, 2))
		require.NoError(t, m.RemoteApply(ReplicatedDelete, "k", "", 200, 2))

		_, ok, err := m.Get("k")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, m.RemoteApply(ReplicatedPut, "k", "revived", 300, 2))

		v, ok, err := m.Get("k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "revived", v)
	})
}
