// Package slotarray implements the compact open-addressed hash slot array
// that lives at a fixed offset inside every tier. Each slot packs a
// (searchKey, entryPos) pair into a single 64-bit word so that a probe step
// is one volatile load.
//
// Grounded on HashLookupSearch.java (hlPos/step/empty/key/value/
// readEntryVolatile/writeEntryVolatile/remove) and on an open-addressing
// linear-probing loop, adapted from file-seek-and-read records to volatile
// reads over shared memory via internal/atomicmem.
package slotarray

import (
	"github.com/gostonefire/sharedhashmap/internal/atomicmem"
)

// EntryPosBits - Number of low bits of a slot word reserved for entryPos.
// 24 bits addresses up to 16,777,214 arena slots per tier (UnsetKey is the
// all-ones sentinel, so the maximum representable entryPos is reserved).
const EntryPosBits = 24

// KeyBits - Number of remaining high bits of a 64-bit slot word available
// for the searchKey field. Callers producing a searchKey (internal/keyhash)
// must mask it down to KeyBits so it round-trips losslessly through
// pack/Key instead of being silently truncated by the left shift.
const KeyBits = 64 - EntryPosBits

// KeyMask - Mask isolating the low KeyBits of a searchKey before packing.
const KeyMask = uint64(1)<<KeyBits - 1

// entryPosMask - Mask isolating the entryPos field of a slot word.
const entryPosMask = uint64(1)<<EntryPosBits - 1

// UnsetKey - Sentinel slot value meaning "empty slot": all bits one.
const UnsetKey = ^uint64(0)

// SlotArray - A view over the slot region of a single tier: slotCount fixed
// power-of-two slots of 8 bytes each, starting at byteOffset within the
// tier's backing buffer.
type SlotArray struct {
	slotCount  int64
	mask       int64
	byteOffset int64
}

// New - Returns a SlotArray of slotCount slots (must be a power of two)
// starting at byteOffset bytes into the tier's buffer.
func New(slotCount int64, byteOffset int64) *SlotArray {
	return &SlotArray{
		slotCount:  slotCount,
		mask:       slotCount - 1,
		byteOffset: byteOffset,
	}
}

// SlotCount - Returns the number of slots in the array.
func (a *SlotArray) SlotCount() int64 {
	return a.slotCount
}

// ByteLen - Returns the number of bytes the slot array occupies.
func (a *SlotArray) ByteLen() int64 {
	return a.slotCount * 8
}

// HlPos - Returns the starting probe position for searchKey: its lower
// log2(slotCount) bits, via a mask since slotCount is a power of two.
func (a *SlotArray) HlPos(searchKey uint64) int64 {
	return int64(searchKey) & a.mask
}

// Step - Advances pos by one slot, wrapping at slotCount.
func (a *SlotArray) Step(pos int64) int64 {
	return (pos + 1) & a.mask
}

// StepBack - Moves pos back by one slot, wrapping at slotCount, the inverse
// of Step.
func (a *SlotArray) StepBack(pos int64) int64 {
	return (pos - 1) & a.mask
}

// Empty - Returns true if slot is the UnsetKey sentinel.
func Empty(slot uint64) bool {
	return slot == UnsetKey
}

// Key - Extracts the searchKey field of a packed slot word.
func Key(slot uint64) uint64 {
	return slot >> EntryPosBits
}

// Value - Extracts the entryPos field of a packed slot word.
func Value(slot uint64) int64 {
	return int64(slot & entryPosMask)
}

// pack - Builds a slot word from a searchKey and entryPos. searchKey is
// masked to KeyBits first so a caller passing a wider value degrades to a
// collision within the low bits instead of corrupting entryPos.
func pack(searchKey uint64, entryPos int64) uint64 {
	return ((searchKey & KeyMask) << EntryPosBits) | (uint64(entryPos) & entryPosMask)
}

// offsetOf - Byte offset of slot pos within buf.
func (a *SlotArray) offsetOf(pos int64) int64 {
	return a.byteOffset + pos*8
}

// ReadSlotVolatile - Acquire-semantics read of the slot at pos. Establishes
// the happens-before edge that a writer's release publish of this slot
// becomes visible here, along with everything it wrote to the entry arena
// beforehand.
func (a *SlotArray) ReadSlotVolatile(buf []byte, pos int64) uint64 {
	return atomicmem.LoadU64(buf, a.offsetOf(pos))
}

// ReadSlot - Plain (non-volatile) read of the slot at pos. Only safe for
// the owner thread that performed the last mutation to this slot.
func (a *SlotArray) ReadSlot(buf []byte, pos int64) uint64 {
	off := a.offsetOf(pos)
	return uint64(buf[off]) | uint64(buf[off+1])<<8 | uint64(buf[off+2])<<16 | uint64(buf[off+3])<<24 |
		uint64(buf[off+4])<<32 | uint64(buf[off+5])<<40 | uint64(buf[off+6])<<48 | uint64(buf[off+7])<<56
}

// WriteSlotVolatile - Release-semantics publish of a (searchKey, entryPos)
// pair into the slot at pos. Callers must have written the corresponding
// entry arena bytes before calling this, so readers who observe the new slot
// always observe a complete entry.
func (a *SlotArray) WriteSlotVolatile(buf []byte, pos int64, searchKey uint64, entryPos int64) {
	atomicmem.StoreU64(buf, a.offsetOf(pos), pack(searchKey, entryPos))
}

// clearVolatile - Publishes the UnsetKey sentinel into the slot at pos.
func (a *SlotArray) clearVolatile(buf []byte, pos int64) {
	atomicmem.StoreU64(buf, a.offsetOf(pos), UnsetKey)
}

// Clear - Resets every slot to the UnsetKey sentinel. Only safe to call on a
// tier nobody else can observe yet (a freshly acquired or just-released
// tier), since it writes without regard to ordering against readers.
func (a *SlotArray) Clear(buf []byte) {
	for pos := int64(0); pos < a.slotCount; pos++ {
		a.clearVolatile(buf, pos)
	}
}

// Remove - Back-shift deletion starting at the slot to clear. Walks forward
// from pos, moving each subsequent slot that still needs its original probe
// sequence into the gap, until an empty slot is reached; that slot becomes
// the new gap and the walk stops. Returns the position lookups should treat
// as "the empty slot" after the removal, mirroring
// CompactOffHeapLinearHashTable.remove's behavior.
func (a *SlotArray) Remove(buf []byte, pos int64) int64 {
	a.clearVolatile(buf, pos)
	freePos := pos
	scan := a.Step(pos)

	for {
		slot := a.ReadSlotVolatile(buf, scan)
		if Empty(slot) {
			return freePos
		}

		home := a.HlPos(Key(slot))
		if a.inRange(home, freePos, scan) {
			a.WriteSlotVolatile(buf, freePos, Key(slot), Value(slot))
			a.clearVolatile(buf, scan)
			freePos = scan
		}

		scan = a.Step(scan)
		if scan == pos {
			// Defensive: a fully-wrapped table means every slot is occupied and
			// this search should have hit empty first; never expected to trigger.
			return freePos
		}
	}
}

// inRange - Returns true if, walking forward circularly from start, pos
// `free` is reached no later than `scan`: i.e. moving the record at scan back
// to free would not jump it past its own probe start.
func (a *SlotArray) inRange(home, free, scan int64) bool {
	if home <= scan {
		return home <= free && free <= scan
	}
	// home > scan means the probe sequence wrapped past slot 0
	return free >= home || free <= scan
}
