// Package sharedhashmap implements a persistent, memory-mapped hash table
// shared across processes, with optional multi-master replication under a
// last-write-wins eventual-consistency rule.
//
// This file is the facade tying internal/engine, internal/lockctx,
// internal/mmapfile, internal/ctxregistry, and internal/telemetry together
// into the Map[K, V] type callers use.
package sharedhashmap

import (
	"context"
	"path/filepath"

	"github.com/gostonefire/sharedhashmap/internal/conf"
	"github.com/gostonefire/sharedhashmap/internal/ctxregistry"
	"github.com/gostonefire/sharedhashmap/internal/engine"
	"github.com/gostonefire/sharedhashmap/internal/globalheader"
	"github.com/gostonefire/sharedhashmap/internal/keyhash"
	"github.com/gostonefire/sharedhashmap/internal/lockctx"
	"github.com/gostonefire/sharedhashmap/internal/mmapfile"
	"github.com/gostonefire/sharedhashmap/internal/model"
	"github.com/gostonefire/sharedhashmap/internal/segment"
	"github.com/gostonefire/sharedhashmap/internal/sizing"
	"github.com/gostonefire/sharedhashmap/internal/telemetry"
	"github.com/gostonefire/sharedhashmap/internal/tier"
)

// KeyCodec converts a caller's key type to and from the raw bytes this
// module hashes and stores. Callers supply an implementation; sharedhashmap
// never invents a serialization format of its own for K.
type KeyCodec[K any] interface {
	EncodeKey(k K) ([]byte, error)
	DecodeKey(b []byte) (K, error)
}

// ValueCodec converts a caller's value type to and from the raw bytes stored
// alongside a key, the same external-collaborator role KeyCodec plays.
type ValueCodec[V any] interface {
	EncodeValue(v V) ([]byte, error)
	DecodeValue(b []byte) (V, error)
}

// Map is a shared hash table keyed by K with values of type V, backed by one
// memory-mapped file. Every method is safe to call from multiple goroutines
// in this process and from other processes with the same file open.
type Map[K, V any] struct {
	mmf      *mmapfile.File
	eng      *engine.Engine
	segments []*segment.Header
	registry *ctxregistry.Registry
	log      *telemetry.Logger

	keyCodec KeyCodec[K]
	valCodec ValueCodec[V]

	segmentCount       int64
	localNodeID        byte
	replicationEnabled bool
}

// Create lays out a brand new map file at cfg.Path and returns it open. A
// file already at that path is truncated and overwritten; use Open to attach
// to one instead.
func Create[K, V any](cfg Config, keyCodec KeyCodec[K], valCodec ValueCodec[V]) (*Map[K, V], error) {
	cfg = cfg.withDefaults()

	slotsPerTier := sizing.EstimateSlotsPerTier(cfg.ExpectedKeysPerSegment, cfg.LoadFactor)
	entryWidth := cfg.MaxEntrySize
	layout := tier.NewLayout(slotsPerTier, slotsPerTier, entryWidth).
		WithBase(conf.GlobalHeaderLength + conf.SegmentHeaderLength*cfg.SegmentCount)

	totalTiers := cfg.SegmentCount + cfg.OverflowTierHeadroom
	fileSize := layout.OffsetOf(totalTiers)

	mmf, err := mmapfile.Create(cfg.Path, fileSize, cfg.Logger)
	if err != nil {
		return nil, err
	}
	_ = mmf.AdviseRandom()

	header := model.Header{
		Version:            conf.FormatVersion,
		SegmentCount:       uint32(cfg.SegmentCount),
		TierSlotCount:      uint32(slotsPerTier),
		ArenaCapacity:      uint32(slotsPerTier),
		MaxEntrySize:       uint32(entryWidth),
		ReplicationEnabled: cfg.ReplicationEnabled,
		LocalNodeID:        cfg.LocalNodeID,
		NextFreeTier:       conf.NoNextTier,
		TierCount:          uint32(totalTiers),
		NextUnusedTier:     cfg.SegmentCount,
	}
	globalheader.Write(mmf.Data, header)

	registry := ctxregistry.New()
	log := telemetry.New(cfg.Logger)

	mapIdentity := filepath.Base(cfg.Path)
	segments := make([]*segment.Header, cfg.SegmentCount)
	for i := int64(0); i < cfg.SegmentCount; i++ {
		off := conf.GlobalHeaderLength + i*conf.SegmentHeaderLength
		segments[i] = segment.New(mmf.Data, off, i, mapIdentity)
		segments[i].SetTierChainHead(i)
		segments[i].SetLogger(log)
		segments[i].SetSnapshot(registry.Snapshot)
		tier.Open(mmf.Data, layout, i).Clear()
	}

	pool := tier.NewPool(mmf.Data, layout, conf.NextFreeTierOffset, conf.NextUnusedTierOffset, totalTiers)
	eng := engine.New(mmf.Data, segments, pool)
	eng.SetLogger(log)

	return &Map[K, V]{
		mmf:                mmf,
		eng:                eng,
		segments:           segments,
		registry:           registry,
		log:                log,
		keyCodec:           keyCodec,
		valCodec:           valCodec,
		segmentCount:       cfg.SegmentCount,
		localNodeID:        cfg.LocalNodeID,
		replicationEnabled: cfg.ReplicationEnabled,
	}, nil
}

// Open attaches to an already-created map file at cfg.Path, reading its
// layout from the file's own header rather than cfg; cfg only supplies Path
// and Logger when reopening.
func Open[K, V any](cfg Config, keyCodec KeyCodec[K], valCodec ValueCodec[V]) (*Map[K, V], error) {
	mmf, err := mmapfile.Open(cfg.Path, cfg.Logger)
	if err != nil {
		return nil, err
	}
	_ = mmf.AdviseRandom()

	header, err := globalheader.Read(mmf.Data)
	if err != nil {
		_ = mmf.Close(false)
		return nil, err
	}

	segmentCount := int64(header.SegmentCount)
	layout := tier.NewLayout(int64(header.TierSlotCount), int64(header.ArenaCapacity), int64(header.MaxEntrySize)).
		WithBase(conf.GlobalHeaderLength + conf.SegmentHeaderLength*segmentCount)

	registry := ctxregistry.New()
	log := telemetry.New(cfg.Logger)

	mapIdentity := filepath.Base(cfg.Path)
	segments := make([]*segment.Header, segmentCount)
	for i := int64(0); i < segmentCount; i++ {
		off := conf.GlobalHeaderLength + i*conf.SegmentHeaderLength
		segments[i] = segment.New(mmf.Data, off, i, mapIdentity)
		segments[i].SetLogger(log)
		segments[i].SetSnapshot(registry.Snapshot)
	}

	pool := tier.NewPool(mmf.Data, layout, conf.NextFreeTierOffset, conf.NextUnusedTierOffset, int64(header.TierCount))
	eng := engine.New(mmf.Data, segments, pool)
	eng.SetLogger(log)

	return &Map[K, V]{
		mmf:                mmf,
		eng:                eng,
		segments:           segments,
		registry:           registry,
		log:                log,
		keyCodec:           keyCodec,
		valCodec:           valCodec,
		segmentCount:       segmentCount,
		localNodeID:        header.LocalNodeID,
		replicationEnabled: header.ReplicationEnabled,
	}, nil
}

// locate hashes key into the segment and slot-array search key it routes to,
// plus the raw encoded key bytes every lower layer addresses entries by.
func (m *Map[K, V]) locate(key K) (segIdx int64, searchKey uint64, keyBytes []byte, err error) {
	keyBytes, err = m.keyCodec.EncodeKey(key)
	if err != nil {
		return 0, 0, nil, err
	}
	h := keyhash.Hash(keyBytes)
	return keyhash.SegmentIndex(h, m.segmentCount), keyhash.SearchKey(h), keyBytes, nil
}

// stamp returns the origin timestamp a locally originated write should
// carry. Only meaningful when replication is enabled; zero otherwise, since
// a node that never replicates never needs its local writes ordered against
// anyone else's.
func (m *Map[K, V]) stamp() uint64 {
	if !m.replicationEnabled {
		return 0
	}
	return uint64(nowUnixNano())
}

// Get returns the value stored for key, or ok=false if absent or tombstoned.
func (m *Map[K, V]) Get(key K) (value V, ok bool, err error) {
	segIdx, sk, kb, err := m.locate(key)
	if err != nil {
		return value, false, err
	}

	lc := lockctx.New(m.eng.Segment(segIdx), nil)
	if err := lc.LockRead(context.Background()); err != nil {
		return value, false, err
	}
	defer lc.Close()

	entry, found, err := m.eng.Get(segIdx, sk, kb)
	if err != nil || !found || entry.Tombstone {
		return value, false, err
	}
	value, err = m.valCodec.DecodeValue(entry.Value)
	return value, err == nil, err
}

// decodeLive decodes entry's value unless entry is absent or tombstoned, in
// which case it reports had=false with a zero value, matching the
// comma-ok view every Map method presents regardless of whether a
// tombstone is sitting in the slot underneath.
func (m *Map[K, V]) decodeLive(entry model.Entry, exists bool) (value V, had bool, err error) {
	if !exists || entry.Tombstone {
		return value, false, nil
	}
	value, err = m.valCodec.DecodeValue(entry.Value)
	return value, err == nil, err
}

// Put inserts or overwrites the value stored for key, returning whatever
// value key held before this call.
func (m *Map[K, V]) Put(key K, value V) (prev V, had bool, err error) {
	segIdx, sk, kb, err := m.locate(key)
	if err != nil {
		return prev, false, err
	}
	vb, err := m.valCodec.EncodeValue(value)
	if err != nil {
		return prev, false, err
	}

	lc := lockctx.New(m.eng.Segment(segIdx), nil)
	if err := lc.LockWrite(context.Background()); err != nil {
		return prev, false, err
	}
	defer lc.Close()

	existing, exists, err := m.eng.Get(segIdx, sk, kb)
	if err != nil {
		return prev, false, err
	}
	prev, had, err = m.decodeLive(existing, exists)
	if err != nil {
		return prev, had, err
	}

	entry := model.Entry{Key: kb, Value: vb, OriginTimestamp: m.stamp(), OriginIdentifier: m.localNodeID}
	err = m.eng.Put(context.Background(), lc, segIdx, sk, entry)
	return prev, had, err
}

// PutIfAbsent inserts value for key only if key is not already present (or
// only tombstoned). If key was present, no write happens and had=true is
// returned along with the value key already held.
func (m *Map[K, V]) PutIfAbsent(key K, value V) (prev V, had bool, err error) {
	segIdx, sk, kb, err := m.locate(key)
	if err != nil {
		return prev, false, err
	}

	lc := lockctx.New(m.eng.Segment(segIdx), nil)
	if err := lc.LockWrite(context.Background()); err != nil {
		return prev, false, err
	}
	defer lc.Close()

	existing, exists, err := m.eng.Get(segIdx, sk, kb)
	if err != nil {
		return prev, false, err
	}
	prev, had, err = m.decodeLive(existing, exists)
	if err != nil || had {
		return prev, had, err
	}

	vb, err := m.valCodec.EncodeValue(value)
	if err != nil {
		return prev, false, err
	}
	entry := model.Entry{Key: kb, Value: vb, OriginTimestamp: m.stamp(), OriginIdentifier: m.localNodeID}
	err = m.eng.Put(context.Background(), lc, segIdx, sk, entry)
	return prev, false, err
}

// Replace overwrites the value stored for key only if key is already
// present (and not merely tombstoned). Returns had=false, no error, and
// leaves the map untouched if key was absent.
func (m *Map[K, V]) Replace(key K, value V) (prev V, had bool, err error) {
	segIdx, sk, kb, err := m.locate(key)
	if err != nil {
		return prev, false, err
	}

	lc := lockctx.New(m.eng.Segment(segIdx), nil)
	if err := lc.LockWrite(context.Background()); err != nil {
		return prev, false, err
	}
	defer lc.Close()

	existing, exists, err := m.eng.Get(segIdx, sk, kb)
	if err != nil {
		return prev, false, err
	}
	prev, had, err = m.decodeLive(existing, exists)
	if err != nil || !had {
		return prev, had, err
	}

	vb, err := m.valCodec.EncodeValue(value)
	if err != nil {
		return prev, had, err
	}
	entry := model.Entry{Key: kb, Value: vb, OriginTimestamp: m.stamp(), OriginIdentifier: m.localNodeID}
	err = m.eng.Put(context.Background(), lc, segIdx, sk, entry)
	return prev, had, err
}

// Remove deletes key if present, returning the value it held. had=false, no
// error, on a miss.
//
// When replication is enabled, the entry is not physically removed but
// overwritten with a tombstone carrying this delete's origin stamp:
// physically removing it would leave nothing for a later-delivered remote
// write to compare its timestamp against, and an older remote write could
// then incorrectly resurrect the key RemoteApply's last-write-wins rule
// should have discarded.
func (m *Map[K, V]) Remove(key K) (prev V, had bool, err error) {
	segIdx, sk, kb, err := m.locate(key)
	if err != nil {
		return prev, false, err
	}

	lc := lockctx.New(m.eng.Segment(segIdx), nil)
	if err := lc.LockWrite(context.Background()); err != nil {
		return prev, false, err
	}
	defer lc.Close()

	existing, exists, err := m.eng.Get(segIdx, sk, kb)
	if err != nil {
		return prev, false, err
	}
	prev, had, err = m.decodeLive(existing, exists)
	if err != nil || !had {
		return prev, had, err
	}

	if !m.replicationEnabled {
		_, err = m.eng.Remove(lc, segIdx, sk, kb)
		return prev, had, err
	}

	entry := model.Entry{Key: kb, OriginTimestamp: m.stamp(), OriginIdentifier: m.localNodeID, Tombstone: true}
	err = m.eng.Put(context.Background(), lc, segIdx, sk, entry)
	return prev, had, err
}

// ContainsKey reports whether key is currently present.
func (m *Map[K, V]) ContainsKey(key K) (bool, error) {
	segIdx, sk, kb, err := m.locate(key)
	if err != nil {
		return false, err
	}

	lc := lockctx.New(m.eng.Segment(segIdx), nil)
	if err := lc.LockRead(context.Background()); err != nil {
		return false, err
	}
	defer lc.Close()

	entry, found, err := m.eng.Get(segIdx, sk, kb)
	return found && !entry.Tombstone, err
}

// Size returns the total live entry count across every segment. Counts
// tombstones: a precise live count would need to walk every tier discarding
// tombstoned slots rather than reading the cheap per-segment counter.
func (m *Map[K, V]) Size() (int64, error) {
	var total int64
	for _, seg := range m.segments {
		total += seg.EntryCount()
	}
	return total, nil
}

// QueryContext locks key's segment for read and returns a Context for
// issuing multiple reads against that segment under one lock hold. The
// caller must call Context.Close when done.
func (m *Map[K, V]) QueryContext(key K) (*Context[K, V], error) {
	segIdx, _, _, err := m.locate(key)
	if err != nil {
		return nil, err
	}
	lc := lockctx.New(m.eng.Segment(segIdx), nil)
	if err := lc.LockRead(context.Background()); err != nil {
		return nil, err
	}
	return &Context[K, V]{m: m, lc: lc, handle: m.registry.Register(lc), segIdx: segIdx}, nil
}

// UpdateContext locks key's segment for write and returns a Context for
// issuing multiple reads and mutations against that segment atomically. The
// caller must call Context.Close when done.
func (m *Map[K, V]) UpdateContext(key K) (*Context[K, V], error) {
	segIdx, _, _, err := m.locate(key)
	if err != nil {
		return nil, err
	}
	lc := lockctx.New(m.eng.Segment(segIdx), nil)
	if err := lc.LockWrite(context.Background()); err != nil {
		return nil, err
	}
	return &Context[K, V]{m: m, lc: lc, handle: m.registry.Register(lc), segIdx: segIdx}, nil
}

// Close releases every context this process still holds open, flushes
// buffered telemetry, syncs the mapping durably, and unmaps the file. Safe
// to call once per Map.
func (m *Map[K, V]) Close() error {
	for _, err := range m.registry.CloseAll() {
		if err != nil {
			return err
		}
	}
	_ = m.log.Sync()
	return m.mmf.Close(true)
}
