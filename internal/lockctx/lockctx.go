// Package lockctx implements the per-context lock state machine layered on
// top of a segment's shared lock-state word (internal/segment). It tracks
// nested acquisitions local to one logical caller, touching the shared word
// only when a local counter transitions through zero, and enforces the
// "cannot upgrade read to update/write" rule.
//
// Go has no native thread-local storage, so "enclosing context" from
// original_source's ThreadLocal-backed SegmentStages is modeled explicitly:
// a Context may be opened with a parent Context (the caller nesting a second
// context on the same segment passes the enclosing one to New), and the
// forbidden-upgrade check walks that parent chain instead of a hidden
// thread-local. The Map facade in this module always opens contexts with a
// nil parent. This is recorded as an Open Question resolution
// in DESIGN.md.
package lockctx

import (
	"context"
	"time"

	"github.com/gostonefire/sharedhashmap/crt"
	"github.com/gostonefire/sharedhashmap/internal/segment"
)

// LocalState - The four states a context can locally be in.
type LocalState int

const (
	Unlocked LocalState = iota
	ReadLocked
	UpdateLocked
	WriteLocked
)

// Context - Tracks one logical caller's nested lock acquisitions against a
// single segment.
type Context struct {
	seg    *segment.Header
	parent *Context
	state  LocalState

	read, update, write int

	mutated      bool
	onCloseDelayedChecksum func()
}

// New - Returns a fresh, unlocked Context bound to seg. parent, if non-nil,
// is an enclosing context on the same goroutine's logical call stack used to
// detect the forbidden read->update/write upgrade.
func New(seg *segment.Header, parent *Context) *Context {
	return &Context{seg: seg, parent: parent}
}

// State - Returns the context's current local lock state.
func (c *Context) State() LocalState { return c.state }

// Identity - Returns the identity string of the segment this context is
// bound to, for diagnostic snapshots (internal/ctxregistry).
func (c *Context) Identity() string { return c.seg.Identity() }

// SetDelayedChecksumCloser - Registers the callback this context invokes
// when it next transitions out of update or write lock, folding
// multiple mutations under one write session into a single delayed checksum
// update.
func (c *Context) SetDelayedChecksumCloser(fn func()) {
	c.onCloseDelayedChecksum = fn
}

// MarkMutated - Records that this context performed a mutation, so the next
// unlock actually invokes the delayed checksum closer instead of treating it
// as a no-op.
func (c *Context) MarkMutated() { c.mutated = true }

func (c *Context) closeDelayedChecksum() {
	if c.mutated && c.onCloseDelayedChecksum != nil {
		c.onCloseDelayedChecksum()
	}
	c.mutated = false
}

// ancestorReadCount - Sums read-lock nesting counts across enclosing
// contexts, mirroring SegmentStages' per-thread aggregate read counter.
func (c *Context) ancestorReadCount() int {
	total := 0
	for p := c.parent; p != nil; p = p.parent {
		total += p.read
	}
	return total
}

// LockRead - Acquires read lock, or increments the nested counter if this
// context already holds read, update, or write.
func (c *Context) LockRead(ctx context.Context) error {
	switch c.state {
	case Unlocked:
		if err := c.seg.ReadLock(ctx); err != nil {
			return err
		}
		c.state = ReadLocked
	}
	c.read++
	return nil
}

// LockUpdate - Acquires update lock (if Unlocked), or is a no-op if this
// context already holds update or write. Fails with ForbiddenUpgrade if
// this context or an enclosing one already holds read lock.
func (c *Context) LockUpdate(ctx context.Context) error {
	switch c.state {
	case Unlocked:
		if c.ancestorReadCount() > 0 {
			return crt.ForbiddenUpgrade{Identity: c.seg.Identity()}
		}
		if err := c.seg.UpdateLock(ctx); err != nil {
			return err
		}
		c.state = UpdateLocked
	case ReadLocked:
		return crt.ForbiddenUpgrade{Identity: c.seg.Identity()}
	}
	c.update++
	return nil
}

// TryLockUpdate - Non-blocking variant of LockUpdate.
func (c *Context) TryLockUpdate() (bool, error) {
	switch c.state {
	case Unlocked:
		if c.ancestorReadCount() > 0 {
			return false, crt.ForbiddenUpgrade{Identity: c.seg.Identity()}
		}
		if !c.seg.TryUpdateLock() {
			return false, nil
		}
		c.state = UpdateLocked
	case ReadLocked:
		return false, crt.ForbiddenUpgrade{Identity: c.seg.Identity()}
	}
	c.update++
	return true, nil
}

// TryLockUpdateTimed - Bounded-wait variant of LockUpdate.
func (c *Context) TryLockUpdateTimed(ctx context.Context, timeout time.Duration) (bool, error) {
	switch c.state {
	case Unlocked:
		if c.ancestorReadCount() > 0 {
			return false, crt.ForbiddenUpgrade{Identity: c.seg.Identity()}
		}
		ok, err := c.seg.TryUpdateLockTimed(ctx, timeout)
		if err != nil || !ok {
			return ok, err
		}
		c.state = UpdateLocked
	case ReadLocked:
		return false, crt.ForbiddenUpgrade{Identity: c.seg.Identity()}
	}
	c.update++
	return true, nil
}

// LockWrite - Acquires write lock. Permitted from Unlocked (acquires update
// then write under the hood) and from UpdateLocked (promotion, no deadlock
// risk since there is at most one update holder). Fails with
// ForbiddenUpgrade from ReadLocked, same rule as update.
func (c *Context) LockWrite(ctx context.Context) error {
	switch c.state {
	case Unlocked:
		if c.ancestorReadCount() > 0 {
			return crt.ForbiddenUpgrade{Identity: c.seg.Identity()}
		}
		if err := c.seg.WriteLock(ctx, false); err != nil {
			return err
		}
		c.state = WriteLocked
	case UpdateLocked:
		if err := c.seg.WriteLock(ctx, true); err != nil {
			return err
		}
		c.state = WriteLocked
	case ReadLocked:
		return crt.ForbiddenUpgrade{Identity: c.seg.Identity()}
	}
	c.write++
	return nil
}

// Unlock - Releases one nesting level. Only on the last local decrement for
// the held level does it downgrade the shared lock, to the next lower
// non-empty level: write->update if updates remain nested, else write->read;
// update->read. When the downgrade lands on read, the context is left
// holding read rather than fully releasing — full release happens only on
// Close.
func (c *Context) Unlock() error {
	switch c.state {
	case Unlocked, ReadLocked:
		return nil
	case UpdateLocked:
		c.update--
		if c.update == 0 {
			c.closeDelayedChecksum()
			if err := c.seg.DowngradeUpdateToRead(); err != nil {
				return err
			}
			c.state = ReadLocked
			c.read++
		}
	case WriteLocked:
		c.write--
		if c.write == 0 {
			c.closeDelayedChecksum()
			if c.update > 0 {
				if err := c.seg.DowngradeWriteToUpdate(); err != nil {
					return err
				}
				c.state = UpdateLocked
			} else {
				if err := c.seg.DowngradeWriteToRead(); err != nil {
					return err
				}
				c.state = ReadLocked
				c.read++
			}
		}
	}
	return nil
}

// Close - Fully releases whatever this context holds at the shared level,
// regardless of nesting depth. Called exactly once, on every exit path, when
// the logical operation using this context is done.
func (c *Context) Close() error {
	switch c.state {
	case Unlocked:
		return nil
	case UpdateLocked:
		c.closeDelayedChecksum()
		if err := c.seg.DowngradeUpdateToRead(); err != nil {
			return err
		}
	case WriteLocked:
		c.closeDelayedChecksum()
		if c.update > 0 {
			if err := c.seg.DowngradeWriteToUpdate(); err != nil {
				return err
			}
			if err := c.seg.DowngradeUpdateToRead(); err != nil {
				return err
			}
		} else if err := c.seg.DowngradeWriteToRead(); err != nil {
			return err
		}
	}
	if err := c.seg.ReadUnlock(); err != nil {
		return err
	}
	c.state = Unlocked
	c.read, c.update, c.write = 0, 0, 0
	return nil
}
