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

package big

import "encoding/binary"
import "os"
import "sync"

import "github.com/superbobry/big/internal/bufseek"

/* -------------------------------------------------------------------------- */

// perCursorSource owns one *os.File, wrapped in a read-ahead buffer so a
// run of small Get* calls doesn't each cost a syscall. It belongs to
// exactly one RomBuffer; ReadAt still holds mu so that its seek and read
// are never interleaved with another call on the same source.
type perCursorSource struct {
	mu     sync.Mutex
	file   *os.File
	buf    *bufseek.Reader
	closed bool
}

func (s *perCursorSource) ReadAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.buf.Seek(off, os.SEEK_SET); err != nil {
		return 0, err
	}
	return s.buf.Read(p)
}

// Close closes the handle once; the cursor and the factory may both call it.
func (s *perCursorSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}

/* -------------------------------------------------------------------------- */

type perCursorRomBufferFactory struct {
	path  string
	order binary.ByteOrder
	size  int64

	mu      sync.Mutex
	cursors []*perCursorSource
}

// NewPerCursorRomBufferFactory returns a factory that opens a brand-new
// file handle for every cursor (NewRomBuffer and Duplicate alike): higher
// fd cost than the other variants, but every cursor owns its handle
// outright and no two cursors ever contend on a lock.
func NewPerCursorRomBufferFactory(path string, order binary.ByteOrder) (RomBufferFactory, error) {
	if order == nil {
		return nil, formatErrorf("NewPerCursorRomBufferFactory", "byte order must not be nil")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapIo("NewPerCursorRomBufferFactory", err)
	}
	info, err := f.Stat()
	f.Close()
	if err != nil {
		return nil, wrapIo("NewPerCursorRomBufferFactory", err)
	}
	return &perCursorRomBufferFactory{path: path, order: order, size: info.Size()}, nil
}

func (f *perCursorRomBufferFactory) openCursor(pos int64) (RomBuffer, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, wrapIo("perCursorRomBufferFactory.openCursor", err)
	}
	rs, err := bufseek.New(file, 32*1024)
	if err != nil {
		file.Close()
		return nil, err
	}
	src := &perCursorSource{file: file, buf: rs}

	f.mu.Lock()
	f.cursors = append(f.cursors, src)
	f.mu.Unlock()

	return &romBuffer{
		src:   src,
		order: f.order,
		size:  f.size,
		pos:   pos,
		dup: func(pos int64) RomBuffer {
			// Duplicate has no error return, so the new handle is
			// opened eagerly here.
			dup, dupErr := f.openCursor(pos)
			if dupErr != nil {
				// Degrade to a buffer with the error surfaced on first
				// read instead of losing it silently.
				return &romBuffer{src: errorSource{dupErr}, order: f.order, size: -1}
			}
			return dup
		},
		close: src.Close,
	}, nil
}

func (f *perCursorRomBufferFactory) NewRomBuffer() (RomBuffer, error) {
	return f.openCursor(0)
}

func (f *perCursorRomBufferFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var first error
	for _, c := range f.cursors {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	f.cursors = nil
	return first
}

/* -------------------------------------------------------------------------- */

type errorSource struct{ err error }

func (s errorSource) ReadAt(p []byte, off int64) (int, error) { return 0, s.err }
