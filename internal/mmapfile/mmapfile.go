// Package mmapfile is the mmap-backed shared byte region every other
// internal package addresses by offset. Mapping the file MAP_SHARED is
// what turns internal/atomicmem's volatile loads/stores into a
// cross-process protocol — every process that opens the same path observes
// the same bytes.
//
// Create/Open/Close follow a stat-then-mmap, syscall.Munmap-on-close shape,
// pairing the mapping with golang.org/x/sys/unix.Madvise and
// go.uber.org/zap diagnostics. This package does not check the file's magic
// marker; internal/globalheader.Read does.
package mmapfile

import (
	"fmt"
	"os"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// File - An open mmap'd region backed by a file on disk.
type File struct {
	f    *os.File
	Data []byte
	log  *zap.Logger
}

// Create - Creates (or truncates) the file at path to size bytes and maps
// it PROT_READ|PROT_WRITE, MAP_SHARED. log may be nil, in which case
// mmapfile logs nothing.
func Create(path string, size int64, log *zap.Logger) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("mmapfile: create %s: %w", path, err)
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("mmapfile: truncate %s to %d: %w", path, size, err)
	}
	return mapOpenFile(f, log)
}

// Open - Maps an existing file at path, sized to whatever it already is on
// disk.
func Open(path string, log *zap.Logger) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("mmapfile: open %s: %w", path, err)
	}
	return mapOpenFile(f, log)
}

func mapOpenFile(f *os.File, log *zap.Logger) (*File, error) {
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmapfile: stat: %w", err)
	}
	size := fi.Size()
	if size == 0 {
		f.Close()
		return nil, fmt.Errorf("mmapfile: file is empty, nothing to map")
	}

	data, err := syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmapfile: mmap: %w", err)
	}

	return &File{f: f, Data: data, log: log}, nil
}

// AdviseRandom - Hints unix.MADV_RANDOM to the kernel over the whole
// mapping, since hash-table access is pointer-chasing across tiers rather
// than sequential, the opposite of the MADV_WILLNEED hint an ordered index
// page would want.
func (m *File) AdviseRandom() error {
	if err := unix.Madvise(m.Data, unix.MADV_RANDOM); err != nil {
		if m.log != nil {
			m.log.Warn("madvise MADV_RANDOM failed", zap.Error(err))
		}
		return err
	}
	return nil
}

// Sync - Flushes the mapping to disk with unix.Msync rather than waiting
// on OS page-flush timing, for callers that need a durable checkpoint.
func (m *File) Sync() error {
	if err := unix.Msync(m.Data, unix.MS_SYNC); err != nil {
		return fmt.Errorf("mmapfile: msync: %w", err)
	}
	return nil
}

// Close - Unmaps and closes the backing file. If durable is true, syncs
// first so every committed write is flushed before the mapping goes away.
func (m *File) Close(durable bool) error {
	if durable {
		if err := m.Sync(); err != nil {
			if m.log != nil {
				m.log.Warn("sync before close failed", zap.Error(err))
			}
		}
	}
	if err := syscall.Munmap(m.Data); err != nil {
		return fmt.Errorf("mmapfile: munmap: %w", err)
	}
	return m.f.Close()
}
