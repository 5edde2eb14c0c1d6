// Package telemetry is the structured logging sink used for tier-promotion
// events, DeadLockDetected diagnostics, and RemoteApply accept/discard
// decisions.
//
// A nil logger defaults to zap's no-op core so embedding this module never
// forces a configured sink on the caller, matching zap's own recommended
// library-embedding pattern.
package telemetry

import (
	"go.uber.org/zap"
)

// Logger - The subset of *zap.Logger this module's internals use, wrapped
// so a nil *zap.Logger passed in at construction is silently replaced with
// a no-op one instead of requiring every call site to nil-check.
type Logger struct {
	z *zap.Logger
}

// New - Returns a Logger wrapping z, or a no-op Logger if z is nil.
func New(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{z: z}
}

// TierPromoted - Logs a segment chaining a new tier onto its chain.
func (l *Logger) TierPromoted(segmentIdentity string, newTierIndex, version int64) {
	l.z.Info("tier promoted",
		zap.String("segment", segmentIdentity),
		zap.Int64("tier", newTierIndex),
		zap.Int64("version", version),
	)
}

// DeadlockDetected - Logs a lock acquisition that gave up, with a snapshot
// of every context this process currently holds open, for diagnosing
// which caller is holding the lock the failed acquisition needed.
func (l *Logger) DeadlockDetected(identity string, held []string) {
	l.z.Error("deadlock detected",
		zap.String("identity", identity),
		zap.Strings("held_contexts", held),
	)
}

// ReplicationDecision - Logs a RemoteApply accept/discard decision at debug
// level; replication traffic is expected to be high-volume, so this never
// logs above debug.
func (l *Logger) ReplicationDecision(key string, decision string, remoteTs, localTs uint64) {
	l.z.Debug("replication decision",
		zap.String("key", key),
		zap.String("decision", decision),
		zap.Uint64("remote_ts", remoteTs),
		zap.Uint64("local_ts", localTs),
	)
}

// Sync - Flushes any buffered log entries. Called from Map.Close().
func (l *Logger) Sync() error {
	return l.z.Sync()
}
