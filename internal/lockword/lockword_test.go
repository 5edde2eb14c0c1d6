//go:build unit

package lockword

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gostonefire/sharedhashmap/crt"
)

func newTestWord() *Word {
	buf := make([]byte, 8)
	return New(buf, 0, "test")
}

func TestReadLockUnlock(t *testing.T) {
	t.Run("multiple readers can hold the lock concurrently", func(t *testing.T) {
		w := newTestWord()
		ctx := context.Background()

		assert.NoError(t, w.ReadLock(ctx))
		assert.NoError(t, w.ReadLock(ctx))
		assert.Equal(t, int64(2), w.Readers())

		assert.NoError(t, w.ReadUnlock())
		assert.Equal(t, int64(1), w.Readers())
		assert.NoError(t, w.ReadUnlock())
		assert.Equal(t, int64(0), w.Readers())
	})

	t.Run("unlocking without a held read lock fails", func(t *testing.T) {
		w := newTestWord()
		err := w.ReadUnlock()
		assert.Error(t, err)
	})
}

func TestUpdateLockExclusivity(t *testing.T) {
	t.Run("a second update lock attempt fails fast with TryUpdateLock", func(t *testing.T) {
		w := newTestWord()
		ctx := context.Background()

		assert.NoError(t, w.UpdateLock(ctx))
		assert.True(t, w.UpdateHeld())
		assert.False(t, w.TryUpdateLock())
	})

	t.Run("update lock coexists with readers", func(t *testing.T) {
		w := newTestWord()
		ctx := context.Background()

		assert.NoError(t, w.ReadLock(ctx))
		assert.NoError(t, w.UpdateLock(ctx))
		assert.Equal(t, int64(1), w.Readers())
		assert.True(t, w.UpdateHeld())
	})
}

func TestWriteLockWaitsForReaders(t *testing.T) {
	t.Run("write lock blocks until readers drain then succeeds", func(t *testing.T) {
		w := newTestWord()
		ctx := context.Background()
		assert.NoError(t, w.ReadLock(ctx))

		done := make(chan error, 1)
		go func() {
			done <- w.WriteLock(context.Background(), false)
		}()

		time.Sleep(5 * time.Millisecond)
		assert.NoError(t, w.ReadUnlock())

		err := <-done
		assert.NoError(t, err)
		assert.True(t, w.WriteHeld())
	})

	t.Run("write lock promoted from an existing update holder skips reacquiring update", func(t *testing.T) {
		w := newTestWord()
		ctx := context.Background()
		assert.NoError(t, w.UpdateLock(ctx))

		assert.NoError(t, w.WriteLock(ctx, true))
		assert.True(t, w.WriteHeld())
		assert.True(t, w.UpdateHeld())
	})
}

func TestDowngrades(t *testing.T) {
	t.Run("downgrade write to update keeps update holder set and clears write", func(t *testing.T) {
		w := newTestWord()
		ctx := context.Background()
		assert.NoError(t, w.WriteLock(ctx, false))

		assert.NoError(t, w.DowngradeWriteToUpdate())
		assert.True(t, w.UpdateHeld())
		assert.False(t, w.WriteHeld())
	})

	t.Run("downgrade write to read clears both and grants one reader", func(t *testing.T) {
		w := newTestWord()
		ctx := context.Background()
		assert.NoError(t, w.WriteLock(ctx, false))

		assert.NoError(t, w.DowngradeWriteToRead())
		assert.False(t, w.UpdateHeld())
		assert.False(t, w.WriteHeld())
		assert.Equal(t, int64(1), w.Readers())
	})

	t.Run("downgrade update to read clears update and grants one reader", func(t *testing.T) {
		w := newTestWord()
		ctx := context.Background()
		assert.NoError(t, w.UpdateLock(ctx))

		assert.NoError(t, w.DowngradeUpdateToRead())
		assert.False(t, w.UpdateHeld())
		assert.Equal(t, int64(1), w.Readers())
	})
}

func TestDeadlockDetection(t *testing.T) {
	t.Run("a write lock that can never drain readers eventually reports DeadLockDetected", func(t *testing.T) {
		w := newTestWord()
		ctx := context.Background()
		assert.NoError(t, w.ReadLock(ctx))

		err := w.WriteLock(ctx, false)
		assert.Error(t, err)
	})
}

func TestInterruptedCancelsWaiter(t *testing.T) {
	t.Run("cancelling the caller's context while parked returns Interrupted with no lock acquired", func(t *testing.T) {
		w := newTestWord()
		assert.NoError(t, w.WriteLock(context.Background(), false))

		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() {
			done <- w.ReadLock(ctx)
		}()

		time.Sleep(5 * time.Millisecond)
		cancel()

		err := <-done
		assert.ErrorAs(t, err, &crt.Interrupted{})
		assert.Equal(t, int64(0), w.Readers())
		assert.True(t, w.WriteHeld())
	})
}
