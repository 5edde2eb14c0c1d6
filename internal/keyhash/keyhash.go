// Package keyhash derives a segment index and a slot-array search key from
// a raw key. A single 64-bit xxhash is split: its high bits pick the
// segment (independent of slot-array position so rehashing a tier never
// needs to touch segment routing), and its low slotarray.KeyBits bits are
// handed to internal/slotarray as the searchKey, which in turn only ever
// looks at its own low bits per tier.
package keyhash

import (
	"github.com/cespare/xxhash/v2"

	"github.com/gostonefire/sharedhashmap/internal/slotarray"
)

// Hash - Returns the 64-bit hash of key.
func Hash(key []byte) uint64 {
	return xxhash.Sum64(key)
}

// SegmentIndex - Selects a segment for hash out of segmentCount segments,
// using the hash's high bits so segment routing stays stable regardless of
// how many low bits a tier's slot array happens to mask.
func SegmentIndex(hash uint64, segmentCount int64) int64 {
	if segmentCount <= 1 {
		return 0
	}
	return int64(hash>>32) % segmentCount
}

// SearchKey - Returns the value internal/slotarray.SlotArray.HlPos and slot
// comparisons should use for hash. Masked to slotarray.KeyBits so it
// round-trips losslessly through a packed slot word: a full unmasked hash
// would have its top bits silently dropped by the pack/Key shift, making a
// slot's reconstructed key never equal this value again after it wraps
// through the slot array once.
func SearchKey(hash uint64) uint64 {
	return hash & slotarray.KeyMask
}
