// Package segment implements the segment header living in shared memory,
// combining the lock-state word (internal/lockword) with the tier chain
// anchor, live entry count, and a diagnostic version counter.
package segment

import (
	"context"
	"fmt"
	"time"

	"github.com/gostonefire/sharedhashmap/internal/atomicmem"
	"github.com/gostonefire/sharedhashmap/internal/conf"
	"github.com/gostonefire/sharedhashmap/internal/lockword"
	"github.com/gostonefire/sharedhashmap/internal/telemetry"
)

// Header - A view over one segment's header region in shared memory.
type Header struct {
	buf      []byte
	off      int64
	index    int64
	lock     *lockword.Word
	identity string
}

// New - Returns a Header bound to the segment header at byteOffset in buf.
func New(buf []byte, byteOffset int64, index int64, mapIdentity string) *Header {
	identity := fmt.Sprintf("%s/seg%d", mapIdentity, index)
	return &Header{
		buf:      buf,
		off:      byteOffset,
		index:    index,
		lock:     lockword.New(buf, byteOffset+conf.LockWordOffset, identity),
		identity: identity,
	}
}

// SetLogger - Wires in the logger this segment's lock word reports
// DeadLockDetected diagnostics through.
func (h *Header) SetLogger(log *telemetry.Logger) { h.lock.SetLogger(log) }

// SetSnapshot - Wires in the callback this segment's lock word uses to
// populate a DeadLockDetected diagnostic with every context currently
// registered against the owning map.
func (h *Header) SetSnapshot(fn func() []string) { h.lock.SetSnapshot(fn) }

// Index - Returns this segment's index.
func (h *Header) Index() int64 { return h.index }

// Identity - Returns the diagnostic identity string for this segment.
func (h *Header) Identity() string { return h.identity }

// TierChainHead - Returns the index of the current tail tier in this
// segment's chain (tier 0 is always the head; this is the append point).
func (h *Header) TierChainHead() int64 {
	return int64(atomicmem.LoadU64(h.buf, h.off+conf.TierChainHeadOffset))
}

// SetTierChainHead - Publishes a new tail tier index. Readers either observe
// the old tail (and treat it as end of chain) or the new one and keep
// probing correctly; append-only growth makes this safe without a lock
// beyond the update lock the caller already holds.
func (h *Header) SetTierChainHead(tierIdx int64) {
	atomicmem.StoreU64(h.buf, h.off+conf.TierChainHeadOffset, uint64(tierIdx))
}

// EntryCount - Returns the live entry count for this segment.
func (h *Header) EntryCount() int64 {
	return int64(atomicmem.LoadU64(h.buf, h.off+conf.EntryCountOffset))
}

// IncEntryCount - Increments the live entry count; write-lock-only.
func (h *Header) IncEntryCount() {
	atomicmem.AddU64(h.buf, h.off+conf.EntryCountOffset, 1)
}

// DecEntryCount - Decrements the live entry count; write-lock-only.
func (h *Header) DecEntryCount() {
	atomicmem.AddU64(h.buf, h.off+conf.EntryCountOffset, ^uint64(0))
}

// VersionCounter - Returns the diagnostic version counter, bumped on every
// structural change (tier promotion) for observability.
func (h *Header) VersionCounter() int64 {
	return int64(atomicmem.LoadU64(h.buf, h.off+conf.VersionCounterOffset))
}

// BumpVersion - Increments the diagnostic version counter.
func (h *Header) BumpVersion() {
	atomicmem.AddU64(h.buf, h.off+conf.VersionCounterOffset, 1)
}

// ReadLock / ReadUnlock / UpdateLock / TryUpdateLock / TryUpdateLockTimed /
// WriteLock / DowngradeUpdateToRead / DowngradeWriteToUpdate /
// DowngradeWriteToRead delegate straight to the lock-state word; component D
// (internal/lockctx) is the only caller, and owns the per-thread nesting and
// forbidden-upgrade rule on top of these raw shared-level operations.

func (h *Header) ReadLock(ctx context.Context) error   { return h.lock.ReadLock(ctx) }
func (h *Header) ReadUnlock() error                    { return h.lock.ReadUnlock() }
func (h *Header) UpdateLock(ctx context.Context) error { return h.lock.UpdateLock(ctx) }
func (h *Header) TryUpdateLock() bool                  { return h.lock.TryUpdateLock() }

func (h *Header) TryUpdateLockTimed(ctx context.Context, timeout time.Duration) (bool, error) {
	return h.lock.TryUpdateLockTimed(ctx, timeout)
}

func (h *Header) WriteLock(ctx context.Context, alreadyUpdateHolder bool) error {
	return h.lock.WriteLock(ctx, alreadyUpdateHolder)
}

func (h *Header) DowngradeUpdateToRead() error  { return h.lock.DowngradeUpdateToRead() }
func (h *Header) DowngradeWriteToUpdate() error { return h.lock.DowngradeWriteToUpdate() }
func (h *Header) DowngradeWriteToRead() error   { return h.lock.DowngradeWriteToRead() }

// Readers / UpdateHeld / WriteHeld - Diagnostic accessors over the lock
// word's current state, used by tests.
func (h *Header) Readers() int64    { return h.lock.Readers() }
func (h *Header) UpdateHeld() bool  { return h.lock.UpdateHeld() }
func (h *Header) WriteHeld() bool   { return h.lock.WriteHeld() }
