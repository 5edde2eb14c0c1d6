// Package tier implements one tier's storage — the fixed-size slot array
// from internal/slotarray, the entry arena, and the free-list bitmap that
// tracks which arena slots are in use. Tiers chain onto a segment via a
// singly linked next-tier field embedded in every tier header, and are
// handed out and reclaimed by a Pool.
//
// Grounded on the scres package's bucket + overflow chaining over computed
// fixed-size records, generalized from file-seek records to a fixed byte
// layout addressed directly in shared memory, with free-slot tracking
// moved from an in-use flag per record (inUseFlagBytes) to a compact
// bitmap.
package tier

import (
	"github.com/gostonefire/sharedhashmap/internal/atomicmem"
	"github.com/gostonefire/sharedhashmap/internal/conf"
	"github.com/gostonefire/sharedhashmap/internal/slotarray"
)

// Layout describes the fixed byte geometry shared by every tier in a map:
// how many slots, how wide the entry arena, and where each region starts
// relative to a tier's own base offset. All tiers in one map share one
// Layout; only the base offset differs per tier index.
type Layout struct {
	SlotCount  int64
	ArenaCap   int64
	EntryWidth int64

	base      int64
	bitmapLen int64
	slotsOff  int64
	bitmapOff int64
	arenaOff  int64
	tierSize  int64
}

// NewLayout - Computes the byte geometry for a tier holding slotCount slots
// (must be a power of two, per internal/slotarray) over an entry arena of
// arenaCap slots each entryWidth bytes wide. The tier region is assumed to
// start at byte 0 of whatever buffer a Tier or Pool is later opened
// against; call WithBase to place it elsewhere in a larger shared buffer.
// The bitmap and the whole tier are padded to multiples of 8 bytes so every
// tier's header and slot words stay 8-byte aligned for internal/atomicmem.
func NewLayout(slotCount, arenaCap, entryWidth int64) Layout {
	bitmapLen := (arenaCap + 63) / 64 * 8
	slotsOff := conf.TierHeaderLength
	bitmapOff := slotsOff + slotCount*conf.SlotWidthBytes
	arenaOff := bitmapOff + bitmapLen
	tierSize := (arenaOff + arenaCap*entryWidth + 7) / 8 * 8

	return Layout{
		SlotCount:  slotCount,
		ArenaCap:   arenaCap,
		EntryWidth: entryWidth,
		bitmapLen:  bitmapLen,
		slotsOff:   slotsOff,
		bitmapOff:  bitmapOff,
		arenaOff:   arenaOff,
		tierSize:   tierSize,
	}
}

// WithBase - Returns a copy of l whose tier region starts at byte base
// within the shared buffer, letting the global header and segment headers
// precede it in the same mmap'd file.
func (l Layout) WithBase(base int64) Layout {
	l.base = base
	return l
}

// TierSize - Total byte length of one tier under this layout, including its
// header, slot array, free-list bitmap, and entry arena.
func (l Layout) TierSize() int64 { return l.tierSize }

// OffsetOf - Byte offset of tier index's base within the shared buffer.
func (l Layout) OffsetOf(index int64) int64 { return l.base + index*l.tierSize }

// Tier - A view over one tier at a fixed base offset within buf.
type Tier struct {
	buf    []byte
	off    int64
	index  int64
	layout Layout
	slots  *slotarray.SlotArray
}

// Open - Returns a Tier bound to tier index under layout within buf.
func Open(buf []byte, layout Layout, index int64) *Tier {
	off := layout.OffsetOf(index)
	return &Tier{
		buf:    buf,
		off:    off,
		index:  index,
		layout: layout,
		slots:  slotarray.New(layout.SlotCount, off+layout.slotsOff),
	}
}

// Index - Returns this tier's index within the tier region.
func (t *Tier) Index() int64 { return t.index }

// Slots - Returns the slot array (component A) backing this tier.
func (t *Tier) Slots() *slotarray.SlotArray { return t.slots }

// NextTier - Returns the index of the tier chained after this one, or
// conf.NoNextTier if this is the chain's tail.
func (t *Tier) NextTier() int64 {
	return int64(atomicmem.LoadU64(t.buf, t.off+conf.NextTierOffset))
}

// SetNextTier - Links this tier to the next one in its segment's chain.
// Write-lock-only, part of tier promotion.
func (t *Tier) SetNextTier(idx int64) {
	atomicmem.StoreU64(t.buf, t.off+conf.NextTierOffset, uint64(idx))
}

// LiveCount - Returns the number of entries currently stored in this tier.
func (t *Tier) LiveCount() int64 {
	return int64(atomicmem.LoadU64(t.buf, t.off+conf.LiveCountOffset))
}

// IncLiveCount / DecLiveCount - Adjust the live entry count by one.
func (t *Tier) IncLiveCount() { atomicmem.AddU64(t.buf, t.off+conf.LiveCountOffset, 1) }
func (t *Tier) DecLiveCount() { atomicmem.AddU64(t.buf, t.off+conf.LiveCountOffset, ^uint64(0)) }

// Checksum - Returns the tier's delayed checksum accumulator.
func (t *Tier) Checksum() uint64 {
	return atomicmem.LoadU64(t.buf, t.off+conf.ChecksumOffset)
}

// AccumulateChecksum - Folds mix into the tier's checksum accumulator by
// XOR. internal/engine does not call it, so a tier's checksum stays zero
// unless a caller folds values in itself.
func (t *Tier) AccumulateChecksum(mix uint64) {
	for {
		cur := t.Checksum()
		if atomicmem.CASU64(t.buf, t.off+conf.ChecksumOffset, cur, cur^mix) {
			return
		}
	}
}

// EntryBytes - Returns the raw byte window for the entry slot at entryPos,
// for internal/codec to decode from or encode into directly.
func (t *Tier) EntryBytes(entryPos int64) []byte {
	off := t.off + t.layout.arenaOff + entryPos*t.layout.EntryWidth
	return t.buf[off : off+t.layout.EntryWidth]
}

// bitmapByte - Returns the byte offset and bit mask for entryPos within the
// free-list bitmap.
func (t *Tier) bitmapByte(entryPos int64) (int64, byte) {
	return t.off + t.layout.bitmapOff + entryPos/8, 1 << byte(entryPos%8)
}

// Alloc - Scans the free-list bitmap for the lowest-index free arena slot,
// marks it used, and returns it. Returns ok=false if the arena is full.
// Write-lock-only.
func (t *Tier) Alloc() (entryPos int64, ok bool) {
	for pos := int64(0); pos < t.layout.ArenaCap; pos++ {
		off, mask := t.bitmapByte(pos)
		if t.buf[off]&mask == 0 {
			t.buf[off] |= mask
			return pos, true
		}
	}
	return 0, false
}

// Free - Clears the free-list bit for entryPos, making it available again.
func (t *Tier) Free(entryPos int64) {
	off, mask := t.bitmapByte(entryPos)
	t.buf[off] &^= mask
}

// Clear - Resets this tier to its just-acquired state: empty slot array, no
// next link, zero live count and checksum, empty free-list bitmap. Only
// safe when no other context can yet observe this tier, i.e. right after
// Pool hands it out, or while laying out a brand new map file before any
// segment header publishes a tier chain pointing at it.
func (t *Tier) Clear() {
	t.SetNextTier(conf.NoNextTier)
	atomicmem.StoreU64(t.buf, t.off+conf.LiveCountOffset, 0)
	atomicmem.StoreU64(t.buf, t.off+conf.ChecksumOffset, 0)
	t.slots.Clear(t.buf)

	bitmapOff := t.off + t.layout.bitmapOff
	for i := int64(0); i < t.layout.bitmapLen; i++ {
		t.buf[bitmapOff+i] = 0
	}
}
