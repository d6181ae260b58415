/* Copyright (C) 2016 Philipp Benner
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

//go:build linux || darwin

package big

import "encoding/binary"

import "golang.org/x/exp/mmap"

/* -------------------------------------------------------------------------- */

// mmapSource wraps an OS-level memory map. *mmap.ReaderAt is documented as
// safe for concurrent use, the same way biogo-hts's fai.File uses it, so no
// locking is needed here at all — this is the fastest of the four variants
// and the one most directly comparable to the original's memory-mapped
// ByteBuffer.
type mmapSource struct {
	r *mmap.ReaderAt
}

func (s *mmapSource) ReadAt(p []byte, off int64) (int, error) {
	return s.r.ReadAt(p, off)
}

/* -------------------------------------------------------------------------- */

type mmapRomBufferFactory struct {
	r     *mmap.ReaderAt
	order binary.ByteOrder
	size  int64
}

// NewMmapRomBufferFactory memory-maps path and returns a factory whose
// cursors read directly out of the mapped pages. Only supported on 64-bit
// Linux and macOS; callers on other platforms should fall back to one of
// the other three factories.
func NewMmapRomBufferFactory(path string, order binary.ByteOrder) (RomBufferFactory, error) {
	if order == nil {
		return nil, formatErrorf("NewMmapRomBufferFactory", "byte order must not be nil")
	}
	r, err := mmap.Open(path)
	if err != nil {
		return nil, wrapIo("NewMmapRomBufferFactory", err)
	}
	return &mmapRomBufferFactory{
		r:     r,
		order: order,
		size:  int64(r.Len()),
	}, nil
}

func (f *mmapRomBufferFactory) NewRomBuffer() (RomBuffer, error) {
	return f.newCursor(0), nil
}

func (f *mmapRomBufferFactory) newCursor(pos int64) RomBuffer {
	return &romBuffer{
		src:   &mmapSource{r: f.r},
		order: f.order,
		size:  f.size,
		pos:   pos,
		dup: func(pos int64) RomBuffer {
			return f.newCursor(pos)
		},
	}
}

func (f *mmapRomBufferFactory) Close() error {
	return f.r.Close()
}
