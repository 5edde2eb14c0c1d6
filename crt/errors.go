// Package crt holds the boundary error types surfaced by sharedhashmap.
// Each kind is a distinct struct implementing error rather than a sentinel
// errors.New value, so callers can errors.As into the specific kind they
// care about.
package crt

import "fmt"

// DeadLockDetected - A lock acquisition could not make progress within its
// bounded spin+park budget. Carries a diagnostic snapshot of contexts this
// process currently holds.
type DeadLockDetected struct {
	Identity string
	Held     []string
}

func (e DeadLockDetected) Error() string {
	return fmt.Sprintf("%s: deadlock detected waiting for lock, held contexts: %v", e.Identity, e.Held)
}

// ForbiddenUpgrade - An inner context tried to acquire update or write lock
// while an outer context on the same goroutine already holds read lock.
type ForbiddenUpgrade struct {
	Identity string
}

func (e ForbiddenUpgrade) Error() string {
	return fmt.Sprintf("%s: cannot acquire update/write lock because an outer context holds read lock; "+
		"acquire the higher lock level in the outer scope instead", e.Identity)
}

// IllegalMonitorState - An unlock call was made without a matching lock held.
type IllegalMonitorState struct {
	Identity string
	Msg      string
}

func (e IllegalMonitorState) Error() string {
	return fmt.Sprintf("%s: illegal monitor state: %s", e.Identity, e.Msg)
}

// HashLookupOverflow - The probe loop walked every slot in a tier without
// finding an empty slot or the key; this is an invariant violation and
// should never occur in a correctly sized table.
type HashLookupOverflow struct {
	Identity string
}

func (e HashLookupOverflow) Error() string {
	return fmt.Sprintf("%s: hash lookup overflow, should never occur", e.Identity)
}

// Interrupted - A lock acquisition was cancelled before it completed.
type Interrupted struct {
	Identity string
}

func (e Interrupted) Error() string {
	return fmt.Sprintf("%s: interrupted while waiting for lock", e.Identity)
}

// Timeout - A bounded tryLock(time) call expired before acquiring the lock.
type Timeout struct {
	Identity string
}

func (e Timeout) Error() string {
	return fmt.Sprintf("%s: timed out waiting for lock", e.Identity)
}

// NoRecordFound - No entry matches the given key.
type NoRecordFound struct {
	Identity string
}

func (e NoRecordFound) Error() string {
	return fmt.Sprintf("%s: no record found", e.Identity)
}

// TierPoolExhausted - The global tier pool has no free tier to reuse and has
// already handed out every tier the file was sized for at creation time.
type TierPoolExhausted struct {
	Identity string
}

func (e TierPoolExhausted) Error() string {
	return fmt.Sprintf("%s: tier pool exhausted, no free or unused tier left", e.Identity)
}

// InvariantViolation - A non-recoverable internal invariant was violated.
// Never expected to occur; never retried.
type InvariantViolation struct {
	Identity string
	Msg      string
}

func (e InvariantViolation) Error() string {
	return fmt.Sprintf("%s: invariant violation: %s", e.Identity, e.Msg)
}
