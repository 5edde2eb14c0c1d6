package sharedhashmap

import "github.com/gostonefire/sharedhashmap/crt"

// Error types surfaced at the package boundary, re-exported from internal/crt
// so callers never need to import an internal package to errors.As into a
// specific kind.
type (
	DeadLockDetected    = crt.DeadLockDetected
	ForbiddenUpgrade    = crt.ForbiddenUpgrade
	IllegalMonitorState = crt.IllegalMonitorState
	HashLookupOverflow  = crt.HashLookupOverflow
	Interrupted         = crt.Interrupted
	Timeout             = crt.Timeout
	NoRecordFound       = crt.NoRecordFound
	TierPoolExhausted   = crt.TierPoolExhausted
	InvariantViolation  = crt.InvariantViolation
)
