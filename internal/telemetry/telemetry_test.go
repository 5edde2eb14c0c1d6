//go:build unit

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNilLoggerDefaultsToNoOp(t *testing.T) {
	t.Run("a nil zap logger never panics on any logging call", func(t *testing.T) {
		l := New(nil)
		assert.NotPanics(t, func() {
			l.TierPromoted("seg0", 1, 2)
			l.DeadlockDetected("seg0", []string{"seg1", "seg2"})
			l.ReplicationDecision("k", "ACCEPT", 100, 90)
			assert.NoError(t, l.Sync())
		})
	})
}

func TestLoggedFieldsAreObservable(t *testing.T) {
	t.Run("a deadlock log carries the identity and held-context snapshot as fields", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		l := New(zap.New(core))

		l.DeadlockDetected("seg0", []string{"seg1"})

		entries := logs.All()
		assert.Len(t, entries, 1)
		assert.Equal(t, "deadlock detected", entries[0].Message)
		assert.Equal(t, "seg0", entries[0].ContextMap()["identity"])
	})
}
