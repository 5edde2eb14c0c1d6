package tier

import (
	"github.com/gostonefire/sharedhashmap/crt"
	"github.com/gostonefire/sharedhashmap/internal/atomicmem"
	"github.com/gostonefire/sharedhashmap/internal/conf"
)

// Pool hands out and reclaims tiers across the whole map. Its free list is
// itself stored in shared memory rather than process-local state: the head
// lives at headOff in the global header (conf.NextFreeTierOffset) and each
// free tier's own next-tier field is reused as the link to the next free
// tier, so an Acquire/Release pair survives a process restart the same way
// segment and tier state does. Tiers never handed out yet are allocated by
// bumping a high-water mark also kept in the global header
// (conf.NextUnusedTierOffset), up to the fixed tier budget the map was
// created with; nothing grows that budget after the file is created.
type Pool struct {
	buf     []byte
	layout  Layout
	headOff int64
	highOff int64
	total   int64
}

// NewPool - Returns a Pool operating over buf under layout, with total
// tiers available in all.
func NewPool(buf []byte, layout Layout, headOff, highOff, total int64) *Pool {
	return &Pool{buf: buf, layout: layout, headOff: headOff, highOff: highOff, total: total}
}

// Acquire - Returns a cleared tier ready to be chained onto a segment:
// first by popping the shared free list, falling back to bumping the
// high-water mark if the free list is empty. Fails with TierPoolExhausted
// once both are spent.
func (p *Pool) Acquire() (*Tier, error) {
	for {
		head := int64(atomicmem.LoadU64(p.buf, p.headOff))
		if head == conf.NoNextTier {
			break
		}
		t := Open(p.buf, p.layout, head)
		next := t.NextTier()
		if atomicmem.CASU64(p.buf, p.headOff, uint64(head), uint64(next)) {
			t.Clear()
			return t, nil
		}
	}

	for {
		cur := int64(atomicmem.LoadU64(p.buf, p.highOff))
		if cur >= p.total {
			return nil, crt.TierPoolExhausted{}
		}
		if atomicmem.CASU64(p.buf, p.highOff, uint64(cur), uint64(cur+1)) {
			t := Open(p.buf, p.layout, cur)
			t.Clear()
			return t, nil
		}
	}
}

// Release - Returns a tier to the shared free list. Callers must ensure no
// segment chain still references it. The free list is shared by every
// segment: the next Acquire from any segment may receive the released tier.
// Nothing in this module calls Release outside its tests.
func (p *Pool) Release(t *Tier) {
	t.Clear()
	for {
		head := int64(atomicmem.LoadU64(p.buf, p.headOff))
		t.SetNextTier(head)
		if atomicmem.CASU64(p.buf, p.headOff, uint64(head), uint64(t.index)) {
			return
		}
	}
}

// Open - Returns the Tier at index without touching the free list or
// high-water mark, for resolving an already-chained tier index found while
// walking a segment's tier chain.
func (p *Pool) Open(index int64) *Tier {
	return Open(p.buf, p.layout, index)
}
