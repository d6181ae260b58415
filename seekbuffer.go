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

import "io"

/* -------------------------------------------------------------------------- */

// seekBuffer is a minimal in-memory io.WriteSeeker, used as OrderedDataOutput's
// scratch space inside With's compressed-block scope.
type seekBuffer struct {
	data []byte
	pos  int64
}

func newSeekBuffer() *seekBuffer {
	return &seekBuffer{}
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if end > int64(len(b.data)) {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[b.pos:end], p)
	b.pos = end
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = b.pos + offset
	case io.SeekEnd:
		target = int64(len(b.data)) + offset
	default:
		return 0, formatErrorf("seekBuffer.Seek", "invalid whence `%d'", whence)
	}
	if target < 0 {
		return 0, formatErrorf("seekBuffer.Seek", "negative position `%d'", target)
	}
	b.pos = target
	return b.pos, nil
}

func (b *seekBuffer) Bytes() []byte { return b.data }
