//go:build unit

package ctxregistry

import (
	"context"
	"testing"

	"github.com/gostonefire/sharedhashmap/internal/lockctx"
	"github.com/gostonefire/sharedhashmap/internal/segment"
	"github.com/stretchr/testify/assert"
)

func newTestSegment(identity string) *segment.Header {
	buf := make([]byte, 64)
	return segment.New(buf, 0, 0, identity)
}

func TestRegisterUnregisterRemovesFromSnapshot(t *testing.T) {
	t.Run("unregistering a handle removes only that context from the snapshot", func(t *testing.T) {
		r := New()
		c1 := lockctx.New(newTestSegment("a"), nil)
		c2 := lockctx.New(newTestSegment("b"), nil)

		h1 := r.Register(c1)
		r.Register(c2)

		assert.ElementsMatch(t, []string{"a/seg0", "b/seg0"}, r.Snapshot())

		r.Unregister(h1)
		assert.Equal(t, []string{"b/seg0"}, r.Snapshot())
	})
}

func TestCloseAllReleasesEveryRemainingContext(t *testing.T) {
	t.Run("CloseAll forcibly closes every still-registered context and empties the registry", func(t *testing.T) {
		r := New()
		seg := newTestSegment("a")
		c := lockctx.New(seg, nil)
		assert.NoError(t, c.LockWrite(context.Background()))
		r.Register(c)

		errs := r.CloseAll()
		assert.Empty(t, errs)
		assert.Equal(t, lockctx.Unlocked, c.State())
		assert.False(t, seg.WriteHeld())
		assert.Empty(t, r.Snapshot())
	})
}
