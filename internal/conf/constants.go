// Package conf holds fixed layout constants for the persisted map file.
// Offsets here mirror the on-disk/on-mmap layout and must stay in lockstep
// with internal/model.Header's field order.
package conf

// GlobalHeaderLength - Length in bytes of the global file header, fixed regardless of segment count.
const GlobalHeaderLength int64 = 128

// Magic - Magic marker written at the start of every map file.
const Magic = "SHHM"

// FormatVersion - Current on-disk format version.
const FormatVersion uint16 = 1

// Header field offsets, all within the first GlobalHeaderLength bytes.
const (
	MagicOffset             int64 = 0
	VersionOffset           int64 = 4
	SegmentCountOffset      int64 = 6
	TierSlotCountOffset     int64 = 10
	ArenaCapacityOffset     int64 = 14
	MaxEntrySizeOffset      int64 = 18
	SchemaDigestOffset      int64 = 22
	ReplicationEnabledOffset int64 = 30
	LocalNodeIDOffset       int64 = 31
	NextFreeTierOffset      int64 = 32
	TierCountOffset         int64 = 40
	NextUnusedTierOffset    int64 = 48
)

// UnsetKey - Sentinel slot value meaning "empty slot": all bits one.
const UnsetKey uint64 = ^uint64(0)

// SlotWidthBytes - Width in bytes of a single packed (searchKey, entryPos) slot.
const SlotWidthBytes int64 = 8

// SegmentHeaderLength - Length in bytes of a segment header (lock word, tier anchor, count, version).
const SegmentHeaderLength int64 = 32

// Segment header field offsets, relative to the start of a segment header.
const (
	LockWordOffset       int64 = 0
	TierChainHeadOffset  int64 = 8
	EntryCountOffset     int64 = 16
	VersionCounterOffset int64 = 24
)

// TierHeaderLength - Length in bytes of a tier header (next-tier link, live count, checksum).
const TierHeaderLength int64 = 24

// Tier header field offsets, relative to the start of a tier.
const (
	NextTierOffset    int64 = 0
	LiveCountOffset   int64 = 8
	ChecksumOffset    int64 = 16
)

// NoNextTier - Sentinel value for TierHeader.NextTier meaning "end of chain".
const NoNextTier int64 = -1

// DefaultSpinIterations - Bounded spin count before falling back to parking, per segment lock acquisition attempt.
const DefaultSpinIterations = 64

// DefaultParkStep - Initial backoff sleep step used once spinning is exhausted.
const DefaultParkStep = 50_000 // nanoseconds

// DefaultMaxPark - Cap on the exponential backoff sleep step.
const DefaultMaxPark = 1_000_000 // 1ms, nanoseconds

// DefaultDeadlockBudget - Total bounded wait, across spin+park, before a lock call fails with DeadLockDetected.
const DefaultDeadlockBudget = 50_000_000 // 50ms, nanoseconds
