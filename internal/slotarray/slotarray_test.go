//go:build unit

package slotarray

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestHlPosAndStep(t *testing.T) {
	t.Run("hlPos masks to slot count and step/stepBack wrap", func(t *testing.T) {
		a := New(8, 0)

		assert.Equal(t, int64(5), a.HlPos(0b1101))
		assert.Equal(t, int64(0), a.Step(7))
		assert.Equal(t, int64(7), a.StepBack(0))
		assert.Equal(t, int64(3), a.Step(2))
	})
}

func TestPackedSlotRoundtrip(t *testing.T) {
	t.Run("writing then reading a slot preserves key and value", func(t *testing.T) {
		a := New(16, 0)
		buf := make([]byte, a.ByteLen())
		for i := range buf {
			buf[i] = 0xFF // all slots start empty
		}

		a.WriteSlotVolatile(buf, 3, 0xABCD, 42)
		slot := a.ReadSlotVolatile(buf, 3)

		assert.False(t, Empty(slot))
		assert.Equal(t, uint64(0xABCD), Key(slot))
		assert.Equal(t, int64(42), Value(slot))
	})

	t.Run("untouched slots read back as empty", func(t *testing.T) {
		a := New(16, 0)
		buf := make([]byte, a.ByteLen())
		for i := range buf {
			buf[i] = 0xFF
		}

		slot := a.ReadSlotVolatile(buf, 9)
		assert.True(t, Empty(slot))
	})

	t.Run("a full-width 64-bit key round-trips through KeyMask instead of being truncated", func(t *testing.T) {
		a := New(16, 0)
		buf := make([]byte, a.ByteLen())
		for i := range buf {
			buf[i] = 0xFF
		}

		wide := uint64(0xFFFFFFFFFFFFFFFF) & KeyMask
		a.WriteSlotVolatile(buf, 5, wide, 7)
		slot := a.ReadSlotVolatile(buf, 5)

		assert.Equal(t, wide, Key(slot))
		assert.Equal(t, int64(7), Value(slot))
	})
}

func TestRemoveBackShift(t *testing.T) {
	t.Run("back-shift keeps every remaining key reachable by its own probe", func(t *testing.T) {
		a := New(8, 0)
		buf := make([]byte, a.ByteLen())
		for i := range buf {
			buf[i] = 0xFF
		}

		// Three keys all collide on home slot 2, occupying 2,3,4 via linear probing.
		a.WriteSlotVolatile(buf, 2, 2, 100)
		a.WriteSlotVolatile(buf, 3, 2, 101)
		a.WriteSlotVolatile(buf, 4, 2, 102)

		// Remove the key at the home slot; the chain should shift back by one.
		newFree := a.Remove(buf, 2)
		assert.Equal(t, int64(4), newFree)

		// slot 2 should now hold what was at slot 3, slot 3 what was at slot 4.
		s2 := a.ReadSlotVolatile(buf, 2)
		assert.Equal(t, int64(101), Value(s2))
		s3 := a.ReadSlotVolatile(buf, 3)
		assert.Equal(t, int64(102), Value(s3))
		s4 := a.ReadSlotVolatile(buf, 4)
		assert.True(t, Empty(s4))
	})

	t.Run("removing a key that is not the start of a collision chain leaves others intact", func(t *testing.T) {
		a := New(8, 0)
		buf := make([]byte, a.ByteLen())
		for i := range buf {
			buf[i] = 0xFF
		}

		a.WriteSlotVolatile(buf, 2, 2, 100)
		a.WriteSlotVolatile(buf, 3, 2, 101)
		a.WriteSlotVolatile(buf, 4, 2, 102)

		a.Remove(buf, 3)

		s2 := a.ReadSlotVolatile(buf, 2)
		assert.Equal(t, int64(100), Value(s2))
		s3 := a.ReadSlotVolatile(buf, 3)
		assert.Equal(t, int64(102), Value(s3))
		s4 := a.ReadSlotVolatile(buf, 4)
		assert.True(t, Empty(s4))
	})
}
