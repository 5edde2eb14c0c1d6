// Package engine implements the key search and insertion protocol that
// ties the slot array, segment header, tier storage, and per-context lock
// state machine together into Get/Put/Remove operations.
//
// Grounded on HashLookupSearch.java for the probe-then-chain-to-next-tier
// shape, and on operations.go for the Get/Set/Pop entry point style this
// package's Get/Put/Remove mirror.
package engine

import (
	"context"

	"github.com/gostonefire/sharedhashmap/crt"
	"github.com/gostonefire/sharedhashmap/internal/codec"
	"github.com/gostonefire/sharedhashmap/internal/conf"
	"github.com/gostonefire/sharedhashmap/internal/lockctx"
	"github.com/gostonefire/sharedhashmap/internal/model"
	"github.com/gostonefire/sharedhashmap/internal/segment"
	"github.com/gostonefire/sharedhashmap/internal/slotarray"
	"github.com/gostonefire/sharedhashmap/internal/telemetry"
	"github.com/gostonefire/sharedhashmap/internal/tier"
)

// Engine - Coordinates lookups and mutations across every segment of one
// open map.
type Engine struct {
	buf      []byte
	segments []*segment.Header
	pool     *tier.Pool
	log      *telemetry.Logger
}

// New - Returns an Engine operating over buf, with one Header per segment
// (segment i's home tier is tier index i in the tier region the pool was
// constructed with).
func New(buf []byte, segments []*segment.Header, pool *tier.Pool) *Engine {
	return &Engine{buf: buf, segments: segments, pool: pool, log: telemetry.New(nil)}
}

// SetLogger - Wires in the logger Put uses to record a TierPromoted event
// whenever a segment's chain grows a new tier.
func (e *Engine) SetLogger(log *telemetry.Logger) {
	if log != nil {
		e.log = log
	}
}

// Segment - Returns the segment header at segIdx.
func (e *Engine) Segment(segIdx int64) *segment.Header {
	return e.segments[segIdx]
}

// homeTier - Every segment is pre-allocated one tier at the same index as
// the segment itself; additional tiers chain off it via Tier.NextTier.
func (e *Engine) homeTier(segIdx int64) int64 {
	return segIdx
}

// probeResult - The outcome of scanning one tier's slot array for searchKey
// starting at its home probe position.
type probeResult struct {
	found     bool
	slotPos   int64
	entryPos  int64
	insertPos int64
	hasInsert bool
	full      bool
}

// probeTier - Walks tier t's slot array from hlPos(searchKey), stopping at
// the first empty slot (remembering it as the insert candidate) or at a
// slot whose full key matches. full is set if the
// probe wrapped back to its start without ever finding an empty slot.
func (e *Engine) probeTier(t *tier.Tier, searchKey uint64, key []byte) probeResult {
	slots := t.Slots()
	pos := slots.HlPos(searchKey)
	start := pos

	for {
		slot := slots.ReadSlotVolatile(e.buf, pos)
		if slotarray.Empty(slot) {
			return probeResult{insertPos: pos, hasInsert: true}
		}
		if slotarray.Key(slot) == searchKey {
			entryPos := slotarray.Value(slot)
			if codec.KeyEqual(t.EntryBytes(entryPos), key) {
				return probeResult{found: true, slotPos: pos, entryPos: entryPos}
			}
		}
		pos = slots.Step(pos)
		if pos == start {
			return probeResult{full: true}
		}
	}
}

// lookupChain - Walks a segment's tier chain starting at its home tier,
// returning the tier and probeResult where the walk stopped: either the
// tier holding a match, or the tail tier with its empty-slot insert
// candidate.
func (e *Engine) lookupChain(segIdx int64, searchKey uint64, key []byte) (*tier.Tier, probeResult, error) {
	t := e.pool.Open(e.homeTier(segIdx))
	for {
		r := e.probeTier(t, searchKey, key)
		if r.found {
			return t, r, nil
		}
		next := t.NextTier()
		if r.full {
			if next == conf.NoNextTier {
				return nil, probeResult{}, crt.HashLookupOverflow{Identity: e.segments[segIdx].Identity()}
			}
			t = e.pool.Open(next)
			continue
		}
		if next == conf.NoNextTier {
			return t, r, nil
		}
		t = e.pool.Open(next)
	}
}

// Get - Looks up key under segIdx/searchKey. The caller must already hold
// at least read lock on the segment. Returns ok=false, no error, on a
// clean miss.
func (e *Engine) Get(segIdx int64, searchKey uint64, key []byte) (model.Entry, bool, error) {
	t, r, err := e.lookupChain(segIdx, searchKey, key)
	if err != nil {
		return model.Entry{}, false, err
	}
	if !r.found {
		return model.Entry{}, false, nil
	}
	entry, err := codec.Decode(t.EntryBytes(r.entryPos))
	return entry, err == nil, err
}

// Put - Inserts or overwrites key/value under segIdx/searchKey. lc must
// already hold write lock (or update lock promoted to write) on the
// segment. Re-runs the lookup itself to confirm absence under write lock,
// so a single Put call is self-contained.
func (e *Engine) Put(_ context.Context, lc *lockctx.Context, segIdx int64, searchKey uint64, entry model.Entry) error {
	seg := e.segments[segIdx]
	t := e.pool.Open(e.homeTier(segIdx))

	for {
		r := e.probeTier(t, searchKey, entry.Key)

		if r.found {
			buf := t.EntryBytes(r.entryPos)
			if err := codec.Encode(entry, buf); err != nil {
				return err
			}
			lc.MarkMutated()
			return nil
		}

		if r.full || (r.hasInsert && t.NextTier() != conf.NoNextTier) {
			next := t.NextTier()
			if next == conf.NoNextTier {
				nt, err := e.pool.Acquire()
				if err != nil {
					return err
				}
				t.SetNextTier(nt.Index())
				seg.SetTierChainHead(nt.Index())
				seg.BumpVersion()
				e.log.TierPromoted(seg.Identity(), nt.Index(), seg.VersionCounter())
				next = nt.Index()
			}
			t = e.pool.Open(next)
			continue
		}

		// r.hasInsert && this is the tail tier: allocate and publish here.
		entryPos, ok := t.Alloc()
		if !ok {
			return crt.InvariantViolation{
				Identity: seg.Identity(),
				Msg:      "tier entry arena full while its slot array still had room",
			}
		}
		if err := codec.Encode(entry, t.EntryBytes(entryPos)); err != nil {
			t.Free(entryPos)
			return err
		}
		t.Slots().WriteSlotVolatile(e.buf, r.insertPos, searchKey, entryPos)
		t.IncLiveCount()
		seg.IncEntryCount()
		lc.MarkMutated()
		return nil
	}
}

// Remove - Deletes key under segIdx/searchKey if present. lc must already
// hold write lock on the segment. ok is false, with no error, if the key
// was not found.
func (e *Engine) Remove(lc *lockctx.Context, segIdx int64, searchKey uint64, key []byte) (ok bool, err error) {
	seg := e.segments[segIdx]
	t, r, err := e.lookupChain(segIdx, searchKey, key)
	if err != nil {
		return false, err
	}
	if !r.found {
		return false, nil
	}

	t.Free(r.entryPos)
	t.Slots().Remove(e.buf, r.slotPos)
	t.DecLiveCount()
	seg.DecEntryCount()
	lc.MarkMutated()
	return true, nil
}
