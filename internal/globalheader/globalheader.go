// Package globalheader encodes and decodes internal/model.Header into the
// fixed GlobalHeaderLength byte region at the start of a map file. Kept
// separate from internal/model because model's own doc comment says it
// stays byte-layout free; this package is the one place that reads conf's
// offsets into actual PutUint64/Uint64 calls, mirroring the split in
// internal/file/converters.go between plain structs and the code that
// turns them into bytes.
package globalheader

import (
	"encoding/binary"

	"github.com/gostonefire/sharedhashmap/crt"
	"github.com/gostonefire/sharedhashmap/internal/conf"
	"github.com/gostonefire/sharedhashmap/internal/model"
)

// Write - Encodes h into the first conf.GlobalHeaderLength bytes of buf.
// Callers must hold exclusive access to the file (only Create and the
// tier-count/next-unused-tier bump paths under write lock touch this after
// the file is first laid out).
func Write(buf []byte, h model.Header) {
	copy(buf[conf.MagicOffset:], []byte(conf.Magic))
	binary.LittleEndian.PutUint16(buf[conf.VersionOffset:], h.Version)
	binary.LittleEndian.PutUint32(buf[conf.SegmentCountOffset:], h.SegmentCount)
	binary.LittleEndian.PutUint32(buf[conf.TierSlotCountOffset:], h.TierSlotCount)
	binary.LittleEndian.PutUint32(buf[conf.ArenaCapacityOffset:], h.ArenaCapacity)
	binary.LittleEndian.PutUint32(buf[conf.MaxEntrySizeOffset:], h.MaxEntrySize)
	binary.LittleEndian.PutUint64(buf[conf.SchemaDigestOffset:], h.SchemaDigest)
	if h.ReplicationEnabled {
		buf[conf.ReplicationEnabledOffset] = 1
	} else {
		buf[conf.ReplicationEnabledOffset] = 0
	}
	buf[conf.LocalNodeIDOffset] = h.LocalNodeID
	binary.LittleEndian.PutUint64(buf[conf.NextFreeTierOffset:], uint64(h.NextFreeTier))
	binary.LittleEndian.PutUint32(buf[conf.TierCountOffset:], h.TierCount)
	binary.LittleEndian.PutUint64(buf[conf.NextUnusedTierOffset:], uint64(h.NextUnusedTier))
}

// Read - Decodes a model.Header from buf, verifying the magic marker.
// Returns crt.InvariantViolation if buf does not start with a sharedhashmap
// magic, which most commonly means Open was pointed at the wrong file.
func Read(buf []byte) (model.Header, error) {
	if len(buf) < int(conf.GlobalHeaderLength) {
		return model.Header{}, crt.InvariantViolation{Msg: "file shorter than the global header"}
	}
	if string(buf[conf.MagicOffset:conf.MagicOffset+4]) != conf.Magic {
		return model.Header{}, crt.InvariantViolation{Msg: "bad magic marker, not a sharedhashmap file"}
	}

	return model.Header{
		Version:            binary.LittleEndian.Uint16(buf[conf.VersionOffset:]),
		SegmentCount:       binary.LittleEndian.Uint32(buf[conf.SegmentCountOffset:]),
		TierSlotCount:      binary.LittleEndian.Uint32(buf[conf.TierSlotCountOffset:]),
		ArenaCapacity:      binary.LittleEndian.Uint32(buf[conf.ArenaCapacityOffset:]),
		MaxEntrySize:       binary.LittleEndian.Uint32(buf[conf.MaxEntrySizeOffset:]),
		SchemaDigest:       binary.LittleEndian.Uint64(buf[conf.SchemaDigestOffset:]),
		ReplicationEnabled: buf[conf.ReplicationEnabledOffset] == 1,
		LocalNodeID:        buf[conf.LocalNodeIDOffset],
		NextFreeTier:       int64(binary.LittleEndian.Uint64(buf[conf.NextFreeTierOffset:])),
		TierCount:          binary.LittleEndian.Uint32(buf[conf.TierCountOffset:]),
		NextUnusedTier:     int64(binary.LittleEndian.Uint64(buf[conf.NextUnusedTierOffset:])),
	}, nil
}
