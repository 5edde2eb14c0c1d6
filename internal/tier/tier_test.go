//go:build unit

package tier

import (
	"testing"

	"github.com/gostonefire/sharedhashmap/internal/conf"
	"github.com/stretchr/testify/assert"
)

func newTestBuf(layout Layout, tiers int64) []byte {
	return make([]byte, layout.TierSize()*tiers)
}

func TestEntryAllocFreeLowestIndex(t *testing.T) {
	t.Run("Alloc hands out the lowest-index free slot and Free reclaims it", func(t *testing.T) {
		layout := NewLayout(8, 4, 16)
		buf := newTestBuf(layout, 1)
		tr := Open(buf, layout, 0)

		p0, ok := tr.Alloc()
		assert.True(t, ok)
		assert.Equal(t, int64(0), p0)

		p1, ok := tr.Alloc()
		assert.True(t, ok)
		assert.Equal(t, int64(1), p1)

		tr.Free(p0)
		p2, ok := tr.Alloc()
		assert.True(t, ok)
		assert.Equal(t, int64(0), p2, "freed slot 0 must be reused before advancing further")
	})

	t.Run("Alloc reports failure once the arena is full", func(t *testing.T) {
		layout := NewLayout(8, 2, 16)
		buf := newTestBuf(layout, 1)
		tr := Open(buf, layout, 0)

		_, ok := tr.Alloc()
		assert.True(t, ok)
		_, ok = tr.Alloc()
		assert.True(t, ok)
		_, ok = tr.Alloc()
		assert.False(t, ok)
	})
}

func TestEntryBytesIsolatedPerSlot(t *testing.T) {
	t.Run("writing into one entry slot does not touch its neighbors", func(t *testing.T) {
		layout := NewLayout(8, 4, 8)
		buf := newTestBuf(layout, 1)
		tr := Open(buf, layout, 0)

		copy(tr.EntryBytes(1), []byte("abcdefgh"))
		assert.Equal(t, make([]byte, 8), tr.EntryBytes(0))
		assert.Equal(t, []byte("abcdefgh"), tr.EntryBytes(1))
		assert.Equal(t, make([]byte, 8), tr.EntryBytes(2))
	})
}

func TestTierHeaderFields(t *testing.T) {
	t.Run("live count, checksum, and next-tier link round-trip", func(t *testing.T) {
		layout := NewLayout(8, 4, 8)
		buf := newTestBuf(layout, 2)
		tr := Open(buf, layout, 0)

		tr.SetNextTier(conf.NoNextTier)
		assert.Equal(t, conf.NoNextTier, tr.NextTier())

		tr.SetNextTier(1)
		assert.Equal(t, int64(1), tr.NextTier())

		tr.IncLiveCount()
		tr.IncLiveCount()
		tr.DecLiveCount()
		assert.Equal(t, int64(1), tr.LiveCount())

		tr.AccumulateChecksum(0xF0F0)
		tr.AccumulateChecksum(0x0F0F)
		assert.Equal(t, uint64(0xFFFF), tr.Checksum())
	})
}

func TestPoolAcquireBumpsHighWaterWhenFreeListEmpty(t *testing.T) {
	t.Run("each acquire without a prior release gets a distinct, cleared tier", func(t *testing.T) {
		layout := NewLayout(8, 4, 8).WithBase(16)
		header := make([]byte, 16)
		for i := 0; i < 8; i++ {
			header[i] = 0xFF // free-list head = NoNextTier (-1); high-water starts at 0
		}
		buf := append(header, newTestBuf(layout, 4)...)
		pool := NewPool(buf, layout, 0, 8, 4)

		t1, err := pool.Acquire()
		assert.NoError(t, err)
		assert.Equal(t, int64(0), t1.Index())

		t2, err := pool.Acquire()
		assert.NoError(t, err)
		assert.Equal(t, int64(1), t2.Index())
	})

	t.Run("Acquire fails with TierPoolExhausted once total tiers are handed out", func(t *testing.T) {
		layout := NewLayout(8, 4, 8).WithBase(16)
		header := make([]byte, 16)
		for i := 0; i < 8; i++ {
			header[i] = 0xFF // free-list head = NoNextTier
		}
		buf := append(header, newTestBuf(layout, 1)...)
		pool := NewPool(buf, layout, 0, 8, 1)

		_, err := pool.Acquire()
		assert.NoError(t, err)

		_, err = pool.Acquire()
		assert.Error(t, err)
	})
}

func TestPoolReleaseThenAcquireReusesTier(t *testing.T) {
	t.Run("a released tier is the next one handed out, via the shared free list", func(t *testing.T) {
		layout := NewLayout(8, 4, 8).WithBase(16)
		header := make([]byte, 16)
		for i := 0; i < 8; i++ {
			header[i] = 0xFF
		}
		buf := append(header, newTestBuf(layout, 2)...)
		pool := NewPool(buf, layout, 0, 8, 2)

		t1, err := pool.Acquire()
		assert.NoError(t, err)
		t2, err := pool.Acquire()
		assert.NoError(t, err)
		assert.NotEqual(t, t1.Index(), t2.Index())

		pool.Release(t1)
		t3, err := pool.Acquire()
		assert.NoError(t, err)
		assert.Equal(t, t1.Index(), t3.Index())
	})
}
