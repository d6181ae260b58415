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

// threadSafeSource keeps a pool of file handles opened against the same
// path instead of one handle per cursor (rombuffer_percursor.go) or one
// handle for the whole factory (rombuffer_shared.go): a read borrows
// whichever handle is free, reads from it with ReadAt, and returns it. This is the
// Go stand-in for the JVM original's thread-local handle table — pread
// makes the lock unnecessary, but pooling still bounds the fd count
// below one-per-cursor while letting concurrent readers run in parallel.
type threadSafeSource struct {
	path string
	pool sync.Pool
}

func newThreadSafeSource(path string) *threadSafeSource {
	s := &threadSafeSource{path: path}
	s.pool.New = func() interface{} {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		return f
	}
	return s
}

func (s *threadSafeSource) ReadAt(p []byte, off int64) (int, error) {
	v := s.pool.Get()
	f, ok := v.(*os.File)
	if !ok {
		return 0, wrapIo("threadSafeSource.ReadAt", v.(error))
	}
	defer s.pool.Put(f)
	return f.ReadAt(p, off)
}

func (s *threadSafeSource) closeAll() {
	// Without New, Get returns nil once the pool is drained.
	s.pool.New = nil
	for {
		v := s.pool.Get()
		f, ok := v.(*os.File)
		if !ok {
			return
		}
		f.Close()
	}
}

/* -------------------------------------------------------------------------- */

type threadSafeRomBufferFactory struct {
	src   *threadSafeSource
	order binary.ByteOrder
	size  int64
}

// NewThreadSafeRomBufferFactory returns a factory whose cursors share a
// pool of file handles: safe for concurrent use from many goroutines at
// once, without the single shared-handle's lock contention.
func NewThreadSafeRomBufferFactory(path string, order binary.ByteOrder) (RomBufferFactory, error) {
	if order == nil {
		return nil, formatErrorf("NewThreadSafeRomBufferFactory", "byte order must not be nil")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapIo("NewThreadSafeRomBufferFactory", err)
	}
	info, err := f.Stat()
	f.Close()
	if err != nil {
		return nil, wrapIo("NewThreadSafeRomBufferFactory", err)
	}
	return &threadSafeRomBufferFactory{
		src:   newThreadSafeSource(path),
		order: order,
		size:  info.Size(),
	}, nil
}

func (f *threadSafeRomBufferFactory) NewRomBuffer() (RomBuffer, error) {
	return f.newCursor(0), nil
}

func (f *threadSafeRomBufferFactory) newCursor(pos int64) RomBuffer {
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

func (f *threadSafeRomBufferFactory) Close() error {
	f.src.closeAll()
	return nil
}
