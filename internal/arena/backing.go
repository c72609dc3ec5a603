// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// backing is the raw byte region an Arena grows and addresses into. The two
// implementations below are the "in-memory heap buffer" and "file-backed
// mapping" modes named in spec §4.1.
type backing interface {
	data() []byte
	grow(newSize int64) error
	close() error
}

type heapBacking struct {
	buf []byte
}

func newHeapBacking(initial int64) *heapBacking {
	return &heapBacking{buf: make([]byte, initial)}
}

func (h *heapBacking) data() []byte { return h.buf }

func (h *heapBacking) grow(newSize int64) error {
	grown := make([]byte, newSize)
	copy(grown, h.buf)
	h.buf = grown
	return nil
}

func (h *heapBacking) close() error { return nil }

// fileBacking memory-maps a single file using mmap-go. grow truncates the
// file to the new size and remaps, matching spec §4.1's "created empty and
// truncated on growth" file-backed mode.
type fileBacking struct {
	f  *os.File
	mm mmap.MMap
}

func newFileBacking(path string, initial int64) (*fileBacking, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("tilekiln: opening arena file %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("tilekiln: stat arena file %s: %w", path, err)
	}
	if info.Size() < initial {
		if err := f.Truncate(initial); err != nil {
			f.Close()
			return nil, fmt.Errorf("tilekiln: truncating arena file %s to %d bytes: %w", path, initial, err)
		}
	}

	mm, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("tilekiln: mapping arena file %s: %w", path, err)
	}

	return &fileBacking{f: f, mm: mm}, nil
}

func (fb *fileBacking) data() []byte { return fb.mm }

func (fb *fileBacking) grow(newSize int64) error {
	if err := fb.mm.Unmap(); err != nil {
		return fmt.Errorf("tilekiln: unmapping arena file before grow: %w", err)
	}
	if err := fb.f.Truncate(newSize); err != nil {
		return fmt.Errorf("tilekiln: truncating arena file to %d bytes: %w", newSize, err)
	}
	mm, err := mmap.Map(fb.f, mmap.RDWR, 0)
	if err != nil {
		return fmt.Errorf("tilekiln: remapping arena file after grow: %w", err)
	}
	fb.mm = mm
	return nil
}

func (fb *fileBacking) close() error {
	if err := fb.mm.Unmap(); err != nil {
		return err
	}
	return fb.f.Close()
}
