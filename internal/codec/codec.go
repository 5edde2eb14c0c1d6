// Package codec encodes and decodes a model.Entry into the fixed-width byte
// window a tier's entry arena hands out per slot. The wire layout is a small
// fixed header (origin timestamp, origin identifier, tombstone flag)
// followed by the key and value each as a binary.Uvarint-prefixed frame,
// zero-padded to the arena's configured slot width.
//
// Generalized from a fixed-offset, fixed-length field layout to variable
// length via a varint-prefixed frame over encoding/binary (see DESIGN.md
// for why no third-party serialization library fits a raw length-prefixed
// byte frame better than the stdlib).
package codec

import (
	"encoding/binary"

	"github.com/gostonefire/sharedhashmap/crt"
	"github.com/gostonefire/sharedhashmap/internal/model"
	"github.com/gostonefire/sharedhashmap/internal/utils"
)

const (
	tsOff        = 0
	idOff        = 8
	flagsOff     = 9
	HeaderLen    = 10
	tombstoneBit = 1
)

// MinEntryWidth - The smallest entry slot width that can hold an empty key
// and value: the fixed header plus one zero-length varint each.
const MinEntryWidth = HeaderLen + 2

// uvarintLen - Returns how many bytes binary.PutUvarint would use for v.
func uvarintLen(v uint64) int {
	var tmp [binary.MaxVarintLen64]byte
	return binary.PutUvarint(tmp[:], v)
}

// Encode - Writes e into buf, which must be exactly one tier's configured
// entry slot width. Zero-pads any bytes left over after the key and value.
// Fails if the encoded entry would not fit.
func Encode(e model.Entry, buf []byte) error {
	if len(buf) < HeaderLen {
		return crt.InvariantViolation{Msg: "entry slot too small for its fixed header"}
	}

	need := HeaderLen + uvarintLen(uint64(len(e.Key))) + len(e.Key) +
		uvarintLen(uint64(len(e.Value))) + len(e.Value)
	if need > len(buf) {
		return crt.InvariantViolation{Msg: "entry exceeds the configured maximum entry size"}
	}

	binary.LittleEndian.PutUint64(buf[tsOff:], e.OriginTimestamp)
	buf[idOff] = e.OriginIdentifier

	var flags byte
	if e.Tombstone {
		flags |= tombstoneBit
	}
	buf[flagsOff] = flags

	n := HeaderLen
	n += binary.PutUvarint(buf[n:], uint64(len(e.Key)))
	n += copy(buf[n:], e.Key)
	n += binary.PutUvarint(buf[n:], uint64(len(e.Value)))
	n += copy(buf[n:], e.Value)
	for ; n < len(buf); n++ {
		buf[n] = 0
	}
	return nil
}

// Decode - Reconstructs a model.Entry from an entry slot's raw bytes.
// Allocates fresh Key/Value slices so the result outlives the shared buffer.
func Decode(buf []byte) (model.Entry, error) {
	if len(buf) < HeaderLen {
		return model.Entry{}, crt.InvariantViolation{Msg: "entry buffer shorter than its header"}
	}

	ts := binary.LittleEndian.Uint64(buf[tsOff:])
	id := buf[idOff]
	flags := buf[flagsOff]

	n := HeaderLen
	keyLen, kn := binary.Uvarint(buf[n:])
	if kn <= 0 {
		return model.Entry{}, crt.InvariantViolation{Msg: "corrupt key length varint"}
	}
	n += kn
	if n+int(keyLen) > len(buf) {
		return model.Entry{}, crt.InvariantViolation{Msg: "key length overruns its slot"}
	}
	key := make([]byte, keyLen)
	copy(key, buf[n:n+int(keyLen)])
	n += int(keyLen)

	valueLen, vn := binary.Uvarint(buf[n:])
	if vn <= 0 {
		return model.Entry{}, crt.InvariantViolation{Msg: "corrupt value length varint"}
	}
	n += vn
	if n+int(valueLen) > len(buf) {
		return model.Entry{}, crt.InvariantViolation{Msg: "value length overruns its slot"}
	}
	value := make([]byte, valueLen)
	copy(value, buf[n:n+int(valueLen)])

	return model.Entry{
		Key:              key,
		Value:            value,
		OriginTimestamp:  ts,
		OriginIdentifier: id,
		Tombstone:        flags&tombstoneBit != 0,
	}, nil
}

// KeyEqual - Compares key against the key bytes encoded in buf without
// decoding the value, for the probe loop's hot path (internal/engine walks
// many candidate slots per lookup and most turn out to be a different key
// that happened to share a searchKey).
func KeyEqual(buf []byte, key []byte) bool {
	if len(buf) < HeaderLen {
		return false
	}
	keyLen, kn := binary.Uvarint(buf[HeaderLen:])
	if kn <= 0 || int(keyLen) != len(key) {
		return false
	}
	start := HeaderLen + kn
	if start+int(keyLen) > len(buf) {
		return false
	}
	return utils.IsEqual(buf[start:start+int(keyLen)], key)
}

// DecodedKeyLen - Returns the key length encoded in buf, for callers that
// need to size a reusable key buffer before a full Decode.
func DecodedKeyLen(buf []byte) int {
	if len(buf) < HeaderLen {
		return 0
	}
	keyLen, kn := binary.Uvarint(buf[HeaderLen:])
	if kn <= 0 {
		return 0
	}
	return int(keyLen)
}
