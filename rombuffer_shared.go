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

/* -------------------------------------------------------------------------- */

// sharedSource is one *os.File shared by every cursor the factory hands
// out; reads are serialized on a mutex, mirroring the teacher's
// fileReadAt (bbi.go): seek to the target offset, read, and leave the
// handle's position wherever the read left it — the mutex is what makes
// that safe under concurrent callers.
type sharedSource struct {
	mu   sync.Mutex
	file *os.File
}

func (s *sharedSource) ReadAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Seek(off, os.SEEK_SET); err != nil {
		return 0, err
	}
	return s.file.Read(p)
}

/* -------------------------------------------------------------------------- */

type sharedRomBufferFactory struct {
	src   *sharedSource
	order binary.ByteOrder
	size  int64
}

// NewSharedRomBufferFactory opens path once and returns a factory whose
// cursors all funnel through that single handle under a mutex: simplest
// variant, safe for concurrent callers, but every read serializes.
func NewSharedRomBufferFactory(path string, order binary.ByteOrder) (RomBufferFactory, error) {
	if order == nil {
		return nil, formatErrorf("NewSharedRomBufferFactory", "byte order must not be nil")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapIo("NewSharedRomBufferFactory", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, wrapIo("NewSharedRomBufferFactory", err)
	}
	return &sharedRomBufferFactory{
		src:   &sharedSource{file: f},
		order: order,
		size:  info.Size(),
	}, nil
}

func (f *sharedRomBufferFactory) NewRomBuffer() (RomBuffer, error) {
	return f.newCursor(0), nil
}

func (f *sharedRomBufferFactory) newCursor(pos int64) RomBuffer {
	return &romBuffer{
		src:   f.src,
		order: f.order,
		size:  f.size,
		pos:   pos,
		dup: func(pos int64) RomBuffer {
			return f.newCursor(pos)
		},
	}
}

func (f *sharedRomBufferFactory) Close() error {
	return f.src.file.Close()
}
