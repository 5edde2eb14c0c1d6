//go:build unit

package mmapfile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateWriteCloseThenOpenSeesTheSameBytes(t *testing.T) {
	t.Run("bytes written through the mapping before Close are visible after a fresh Open", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "map.bin")

		f, err := Create(path, 4096, nil)
		assert.NoError(t, err)
		copy(f.Data[:5], []byte("hello"))
		assert.NoError(t, f.Close(true))

		f2, err := Open(path, nil)
		assert.NoError(t, err)
		assert.Equal(t, []byte("hello"), f2.Data[:5])
		assert.NoError(t, f2.Close(false))
	})
}

func TestCreateRejectsUnwritableDirectory(t *testing.T) {
	t.Run("creating under a path whose directory does not exist fails", func(t *testing.T) {
		_, err := Create(filepath.Join(t.TempDir(), "missing", "map.bin"), 4096, nil)
		assert.Error(t, err)
	})
}
