// Package model holds the plain data structures shared across the storage
// layers: the persisted file header and the in-memory view of a decoded
// entry. None of these types touch shared memory directly;
// internal/globalheader and internal/codec own the byte-level
// encoding/decoding.
package model

// Header - Represents the global map file header.
type Header struct {
	Version            uint16
	SegmentCount       uint32
	TierSlotCount      uint32
	ArenaCapacity      uint32
	MaxEntrySize       uint32
	SchemaDigest       uint64
	ReplicationEnabled bool
	LocalNodeID        byte
	NextFreeTier       int64
	TierCount          uint32
	NextUnusedTier     int64
}

// Entry - Represents one decoded key/value entry, including the replication
// fields carried when the map was created with replication enabled.
//   - Tombstone marks a replicable entry logically removed but retained so the
//     replication acceptance rule can still see its timestamp.
type Entry struct {
	Key              []byte
	Value            []byte
	OriginTimestamp  uint64
	OriginIdentifier byte
	Tombstone        bool
}

// SegmentLocation - Identifies where a key lives: its segment and the lower
// hash bits used as the slot array search key.
type SegmentLocation struct {
	SegmentIndex int64
	SearchKey    uint64
}
