//go:build unit

package replication

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecideTimestampOrdering(t *testing.T) {
	t.Run("a strictly newer remote timestamp is accepted regardless of identifiers", func(t *testing.T) {
		local := LocalEntry{OriginTimestamp: 100, OriginIdentifier: 5}
		remote := RemoteOp{RemoteTimestamp: 101, RemoteIdentifier: 9, CurrentNodeID: 5}
		assert.Equal(t, Accept, Decide(local, remote))
	})

	t.Run("a strictly older remote timestamp is discarded regardless of identifiers", func(t *testing.T) {
		local := LocalEntry{OriginTimestamp: 100, OriginIdentifier: 5}
		remote := RemoteOp{RemoteTimestamp: 99, RemoteIdentifier: 1, CurrentNodeID: 5}
		assert.Equal(t, Discard, Decide(local, remote))
	})
}

func TestDecideIdentifierTieBreak(t *testing.T) {
	t.Run("equal timestamps favor the lower remote identifier", func(t *testing.T) {
		local := LocalEntry{OriginTimestamp: 100, OriginIdentifier: 5}
		remote := RemoteOp{RemoteTimestamp: 100, RemoteIdentifier: 3, CurrentNodeID: 9}
		assert.Equal(t, Accept, Decide(local, remote))
	})

	t.Run("equal timestamps discard a higher remote identifier", func(t *testing.T) {
		local := LocalEntry{OriginTimestamp: 100, OriginIdentifier: 5}
		remote := RemoteOp{RemoteTimestamp: 100, RemoteIdentifier: 7, CurrentNodeID: 9}
		assert.Equal(t, Discard, Decide(local, remote))
	})
}

func TestDecideExactCollisionSameNodeSpecialCase(t *testing.T) {
	t.Run("an identical stamp replayed back onto its origin node is discarded", func(t *testing.T) {
		local := LocalEntry{OriginTimestamp: 100, OriginIdentifier: 5}
		remote := RemoteOp{RemoteTimestamp: 100, RemoteIdentifier: 5, CurrentNodeID: 5}
		assert.Equal(t, Discard, Decide(local, remote))
	})

	t.Run("an identical stamp evaluated on a different node is accepted so it still propagates", func(t *testing.T) {
		local := LocalEntry{OriginTimestamp: 100, OriginIdentifier: 5}
		remote := RemoteOp{RemoteTimestamp: 100, RemoteIdentifier: 5, CurrentNodeID: 9}
		assert.Equal(t, Accept, Decide(local, remote))
	})
}

func TestDecisionString(t *testing.T) {
	t.Run("String renders the two decisions distinctly", func(t *testing.T) {
		assert.Equal(t, "ACCEPT", Accept.String())
		assert.Equal(t, "DISCARD", Discard.String())
	})
}
