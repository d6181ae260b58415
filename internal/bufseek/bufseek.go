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

// Package bufseek wraps an io.ReadSeeker with a read-ahead buffer so that
// small sequential RomBuffer reads (a getInt here, a getCString there) don't
// each cost a separate syscall against the backing file handle.
package bufseek

import "fmt"
import "io"

/* -------------------------------------------------------------------------- */

type Reader struct {
	reader   io.ReadSeeker
	position int64
	offset   int64
	bufsize  int64
	buffer   []byte
}

/* -------------------------------------------------------------------------- */

func New(reader io.ReadSeeker, bufsize int) (*Reader, error) {
	if bufsize <= 0 {
		return nil, fmt.Errorf("bufseek: invalid buffer size `%d'", bufsize)
	}
	return &Reader{reader, 0, 0, 0, make([]byte, bufsize)}, nil
}

/* -------------------------------------------------------------------------- */

func (r *Reader) fillBuffer() error {
	if _, err := r.reader.Seek(r.position+r.bufsize, io.SeekStart); err != nil {
		return err
	}
	n, err := r.reader.Read(r.buffer)
	if err != nil {
		return err
	}
	r.position = r.position + r.bufsize
	r.bufsize = int64(n)
	r.offset = 0
	return nil
}

func (r *Reader) Read(p []byte) (int, error) {
	if len(p) > len(r.buffer) {
		// more bytes requested than the buffer can ever hold, read through
		if _, err := r.reader.Seek(r.position+r.offset, io.SeekStart); err != nil {
			return 0, err
		}
		n, err := io.ReadFull(r.reader, p)
		r.position += r.offset + int64(n)
		r.bufsize = 0
		r.offset = 0
		return n, err
	}
	k := int64(len(p))
	if k <= r.bufsize-r.offset {
		copy(p, r.buffer[r.offset:r.offset+k])
		r.offset += k
		return len(p), nil
	}
	// copy what's left, then refill and copy the remainder
	n := r.bufsize - r.offset
	m := k - n
	copy(p, r.buffer[r.offset:r.offset+n])
	if err := r.fillBuffer(); err != nil {
		return int(n), err
	}
	if m > r.bufsize {
		return int(n), io.ErrUnexpectedEOF
	}
	copy(p[n:], r.buffer[0:m])
	r.offset += m
	return len(p), nil
}

func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	if whence == io.SeekCurrent {
		offset = r.position + r.offset + offset
		whence = io.SeekStart
	}
	n, err := r.reader.Seek(offset, whence)
	if err != nil {
		return n, err
	}
	if n < r.position || n >= r.position+r.bufsize {
		r.bufsize = 0
		r.offset = 0
		r.position = n
	} else {
		r.offset = n - r.position
	}
	return r.position + r.offset, nil
}
