// Package lockword implements the shared lock-state word at the heart of
// the segment header: a single 64-bit word, CAS'd in place, encoding the read
// holder count (low 24 bits), the at-most-one update holder bit, and the
// at-most-one write holder bit. The word has no waiter bits: a waiting caller
// spins and backs off without registering itself in the word, so holders
// cannot see who is waiting. It implements the read/update/write lock algebra
// itself; internal/lockctx layers per-thread nesting and the "cannot
// upgrade read to update" rule on top of it.
//
// Grounded on UpdateLock.java (the shared-level update/write acquire,
// tryLock, and downgrade-on-unlock calls it delegates to SegmentHeader)
// with the spin+park+deadline waiting strategy resolved here as a bounded
// spin then exponential backoff.
package lockword

import (
	"context"
	"time"

	"github.com/gostonefire/sharedhashmap/crt"
	"github.com/gostonefire/sharedhashmap/internal/atomicmem"
	"github.com/gostonefire/sharedhashmap/internal/conf"
	"github.com/gostonefire/sharedhashmap/internal/telemetry"
)

const (
	readersMask   = uint64(1)<<24 - 1
	updateHeldBit = uint64(1) << 24
	writeHeldBit  = uint64(1) << 25
)

// Word - A view over the lock-state word at byteOffset within buf.
type Word struct {
	buf      []byte
	off      int64
	identity string

	log      *telemetry.Logger
	snapshot func() []string
}

// New - Returns a Word bound to the lock-state word at byteOffset in buf.
func New(buf []byte, byteOffset int64, identity string) *Word {
	return &Word{buf: buf, off: byteOffset, identity: identity, log: telemetry.New(nil)}
}

// SetLogger - Wires in the logger that await uses to record a
// DeadLockDetected diagnostic. Called by internal/segment once a Word's
// owning map has a real logger configured.
func (w *Word) SetLogger(log *telemetry.Logger) {
	if log != nil {
		w.log = log
	}
}

// SetSnapshot - Wires in the callback await uses to populate
// DeadLockDetected.Held with the identities of every context currently
// registered against the owning map (internal/ctxregistry.Registry.Snapshot).
func (w *Word) SetSnapshot(fn func() []string) {
	w.snapshot = fn
}

func (w *Word) load() uint64 { return atomicmem.LoadU64(w.buf, w.off) }

func (w *Word) cas(old, new uint64) bool { return atomicmem.CASU64(w.buf, w.off, old, new) }

// Readers - Returns the current number of read holders.
func (w *Word) Readers() int64 { return int64(w.load() & readersMask) }

// UpdateHeld - Returns true if an update holder currently exists.
func (w *Word) UpdateHeld() bool { return w.load()&updateHeldBit != 0 }

// WriteHeld - Returns true if a write holder currently exists.
func (w *Word) WriteHeld() bool { return w.load()&writeHeldBit != 0 }

// waiter is a predicate over a loaded word deciding whether the desired
// transition can be applied right now, and if so, what the new word value
// should be.
type waiter func(cur uint64) (next uint64, ok bool)

// await spins, then parks with exponential backoff, retrying fn via CAS
// until it succeeds, ctx is cancelled, or the bounded deadlock budget is
// exhausted.
func (w *Word) await(ctx context.Context, fn waiter) error {
	deadline := time.Now().Add(time.Duration(conf.DefaultDeadlockBudget))
	step := time.Duration(conf.DefaultParkStep)

	spins := 0
	for {
		cur := w.load()
		if next, ok := fn(cur); ok {
			if w.cas(cur, next) {
				return nil
			}
			continue
		}

		select {
		case <-ctx.Done():
			return crt.Interrupted{Identity: w.identity}
		default:
		}

		if spins < conf.DefaultSpinIterations {
			spins++
			continue
		}

		if time.Now().After(deadline) {
			var held []string
			if w.snapshot != nil {
				held = w.snapshot()
			}
			w.log.DeadlockDetected(w.identity, held)
			return crt.DeadLockDetected{Identity: w.identity, Held: held}
		}

		time.Sleep(step)
		if step < time.Duration(conf.DefaultMaxPark) {
			step *= 2
			if step > time.Duration(conf.DefaultMaxPark) {
				step = time.Duration(conf.DefaultMaxPark)
			}
		}
	}
}

// tryOnce attempts fn a single time with no waiting, returning ok=false if
// the transition could not be applied immediately.
func (w *Word) tryOnce(fn waiter) bool {
	for {
		cur := w.load()
		next, ok := fn(cur)
		if !ok {
			return false
		}
		if w.cas(cur, next) {
			return true
		}
	}
}

// ReadLock - Blocks until no write holder is present, then registers this
// caller as a read holder.
func (w *Word) ReadLock(ctx context.Context) error {
	return w.await(ctx, func(cur uint64) (uint64, bool) {
		if cur&writeHeldBit != 0 {
			return 0, false
		}
		return cur + 1, true
	})
}

// ReadUnlock - Releases one read holder registration.
func (w *Word) ReadUnlock() error {
	for {
		cur := w.load()
		if cur&readersMask == 0 {
			return crt.IllegalMonitorState{Identity: w.identity, Msg: "read unlock without matching read lock"}
		}
		if w.cas(cur, cur-1) {
			return nil
		}
	}
}

// UpdateLock - Blocks until neither an update nor a write holder is present,
// then becomes the sole update holder. Does not wait on readers: update
// permits concurrent readers by design.
func (w *Word) UpdateLock(ctx context.Context) error {
	return w.await(ctx, func(cur uint64) (uint64, bool) {
		if cur&(updateHeldBit|writeHeldBit) != 0 {
			return 0, false
		}
		return cur | updateHeldBit, true
	})
}

// TryUpdateLock - Non-blocking attempt to become the update holder.
func (w *Word) TryUpdateLock() bool {
	return w.tryOnce(func(cur uint64) (uint64, bool) {
		if cur&(updateHeldBit|writeHeldBit) != 0 {
			return 0, false
		}
		return cur | updateHeldBit, true
	})
}

// TryUpdateLockTimed - Attempts to become the update holder, waiting up to
// timeout before giving up and returning ok=false.
func (w *Word) TryUpdateLockTimed(ctx context.Context, timeout time.Duration) (ok bool, err error) {
	deadline := time.Now().Add(timeout)
	for {
		if w.TryUpdateLock() {
			return true, nil
		}
		select {
		case <-ctx.Done():
			return false, crt.Interrupted{Identity: w.identity}
		default:
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		time.Sleep(time.Millisecond)
	}
}

// WriteLock - Blocks until this caller can become the sole update+write
// holder with no readers outstanding. Safe to call both from UNLOCKED (it
// first acquires update, then waits out readers) and from an existing update
// holder promoting to write (alreadyUpdateHolder=true skips re-acquiring
// update).
func (w *Word) WriteLock(ctx context.Context, alreadyUpdateHolder bool) error {
	if !alreadyUpdateHolder {
		if err := w.UpdateLock(ctx); err != nil {
			return err
		}
	}
	return w.await(ctx, func(cur uint64) (uint64, bool) {
		if cur&readersMask != 0 {
			return 0, false
		}
		return cur | writeHeldBit, true
	})
}

// DowngradeUpdateToRead - Releases the update holder slot and registers the
// caller as a read holder in one step.
func (w *Word) DowngradeUpdateToRead() error {
	for {
		cur := w.load()
		if cur&updateHeldBit == 0 {
			return crt.IllegalMonitorState{Identity: w.identity, Msg: "downgrade update->read without update lock held"}
		}
		next := (cur &^ updateHeldBit) + 1
		if w.cas(cur, next) {
			return nil
		}
	}
}

// DowngradeWriteToUpdate - Releases the write holder slot, leaving the
// update holder slot intact.
func (w *Word) DowngradeWriteToUpdate() error {
	for {
		cur := w.load()
		if cur&writeHeldBit == 0 {
			return crt.IllegalMonitorState{Identity: w.identity, Msg: "downgrade write->update without write lock held"}
		}
		if w.cas(cur, cur&^writeHeldBit) {
			return nil
		}
	}
}

// DowngradeWriteToRead - Releases both the write and update holder slots and
// registers the caller as a read holder in one step.
func (w *Word) DowngradeWriteToRead() error {
	for {
		cur := w.load()
		if cur&writeHeldBit == 0 {
			return crt.IllegalMonitorState{Identity: w.identity, Msg: "downgrade write->read without write lock held"}
		}
		next := (cur &^ (writeHeldBit | updateHeldBit)) + 1
		if w.cas(cur, next) {
			return nil
		}
	}
}
