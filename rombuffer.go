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

// RomBuffer is the uniform read-only, byte-order-aware, seekable view every
// on-disk structure in this package (B+ tree, R+ tree, headers, data blocks)
// is decoded from. Four factories build a RomBuffer over the same file with
// different fd/concurrency trade-offs (rombuffer_shared.go,
// rombuffer_percursor.go, rombuffer_threadsafe.go, rombuffer_mmap.go); all
// four must decode a given file identically.
package big

import "encoding/binary"
import "io"
import "math"

/* -------------------------------------------------------------------------- */

// RomBuffer is a random-access, byte-order-aware view over a fixed region
// of a file (or of decompressed bytes taken from one).
type RomBuffer interface {
	ByteOrder() binary.ByteOrder

	GetByte() (int8, error)
	GetUnsignedByte() (uint8, error)
	GetShort() (int16, error)
	GetUnsignedShort() (uint16, error)
	GetInt() (int32, error)
	GetUnsignedInt() (uint32, error)
	GetLong() (int64, error)
	GetFloat() (float32, error)
	GetDouble() (float64, error)
	GetBytes(n int) ([]byte, error)
	GetCString() (string, error)
	GetInts(n int) ([]int32, error)
	GetFloats(n int) ([]float32, error)

	Seek(offset int64, whence int) (int64, error)
	Tell() int64

	// Duplicate returns an independent cursor over the same underlying
	// data, positioned where this one currently is. The two cursors do
	// not interfere with each other's position.
	Duplicate() RomBuffer

	// Decompress reads size bytes at the given absolute file offset,
	// decompresses them per compression, and returns a fresh RomBuffer
	// over the decompressed bytes (position 0, same byte order).
	Decompress(offset, size int64, compression Compression) (RomBuffer, error)

	Close() error
}

/* -------------------------------------------------------------------------- */

// source is what a romBuffer reads from: a plain []byte (decompressed
// blocks) or one of the four file-backed strategies.
type source interface {
	ReadAt(p []byte, off int64) (int, error)
}

type bytesSource []byte

func (s bytesSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(s)) {
		return 0, io.EOF
	}
	n := copy(p, s[off:])
	if n < len(p) {
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}

/* -------------------------------------------------------------------------- */

// romBuffer is the shared implementation behind all four factories; only
// the source, duplicate and close strategies differ between them.
type romBuffer struct {
	src   source
	order binary.ByteOrder
	base  int64 // absolute offset of position 0 in src
	size  int64 // region length, or -1 if unbounded
	pos   int64

	dup   func(pos int64) RomBuffer
	close func() error
}

var _ RomBuffer = (*romBuffer)(nil)

func (b *romBuffer) ByteOrder() binary.ByteOrder { return b.order }
func (b *romBuffer) Tell() int64                 { return b.pos }

func (b *romBuffer) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = b.pos + offset
	case io.SeekEnd:
		if b.size < 0 {
			return 0, formatErrorf("RomBuffer.Seek", "SeekEnd on an unbounded buffer")
		}
		target = b.size + offset
	default:
		return 0, formatErrorf("RomBuffer.Seek", "invalid whence `%d'", whence)
	}
	if target < 0 {
		return 0, formatErrorf("RomBuffer.Seek", "negative position `%d'", target)
	}
	b.pos = target
	return b.pos, nil
}

func (b *romBuffer) Duplicate() RomBuffer {
	return b.dup(b.pos)
}

func (b *romBuffer) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

func (b *romBuffer) Decompress(offset, size int64, compression Compression) (RomBuffer, error) {
	raw := make([]byte, size)
	n, err := b.src.ReadAt(raw, offset)
	if err != nil && int64(n) != size {
		return nil, wrapIo("Decompress", err)
	}
	data, err := decompressBlock(raw, compression)
	if err != nil {
		return nil, err
	}
	return &romBuffer{
		src:   bytesSource(data),
		order: b.order,
		base:  0,
		size:  int64(len(data)),
		pos:   0,
		dup: func(pos int64) RomBuffer {
			return &romBuffer{src: bytesSource(data), order: b.order, base: 0, size: int64(len(data)), pos: pos}
		},
	}, nil
}

/* -------------------------------------------------------------------------- */

func (b *romBuffer) readN(n int) ([]byte, error) {
	if b.size >= 0 && b.pos+int64(n) > b.size {
		return nil, &TruncatedError{Requested: n, Available: int(b.size - b.pos)}
	}
	buf := make([]byte, n)
	read, err := b.src.ReadAt(buf, b.base+b.pos)
	if err != nil && read != n {
		return nil, wrapIo("RomBuffer.read", err)
	}
	b.pos += int64(read)
	return buf, nil
}

func (b *romBuffer) GetByte() (int8, error) {
	buf, err := b.readN(1)
	if err != nil {
		return 0, err
	}
	return int8(buf[0]), nil
}

func (b *romBuffer) GetUnsignedByte() (uint8, error) {
	buf, err := b.readN(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (b *romBuffer) GetShort() (int16, error) {
	buf, err := b.readN(2)
	if err != nil {
		return 0, err
	}
	return int16(b.order.Uint16(buf)), nil
}

func (b *romBuffer) GetUnsignedShort() (uint16, error) {
	buf, err := b.readN(2)
	if err != nil {
		return 0, err
	}
	return b.order.Uint16(buf), nil
}

func (b *romBuffer) GetInt() (int32, error) {
	buf, err := b.readN(4)
	if err != nil {
		return 0, err
	}
	return int32(b.order.Uint32(buf)), nil
}

func (b *romBuffer) GetUnsignedInt() (uint32, error) {
	buf, err := b.readN(4)
	if err != nil {
		return 0, err
	}
	return b.order.Uint32(buf), nil
}

func (b *romBuffer) GetLong() (int64, error) {
	buf, err := b.readN(8)
	if err != nil {
		return 0, err
	}
	return int64(b.order.Uint64(buf)), nil
}

func (b *romBuffer) GetFloat() (float32, error) {
	buf, err := b.readN(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(b.order.Uint32(buf)), nil
}

func (b *romBuffer) GetDouble() (float64, error) {
	buf, err := b.readN(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(b.order.Uint64(buf)), nil
}

func (b *romBuffer) GetBytes(n int) ([]byte, error) {
	return b.readN(n)
}

func (b *romBuffer) GetCString() (string, error) {
	buf := make([]byte, 0, 32)
	for {
		c, err := b.readN(1)
		if err != nil {
			return "", err
		}
		if c[0] == 0 {
			return string(buf), nil
		}
		buf = append(buf, c[0])
	}
}

func (b *romBuffer) GetInts(n int) ([]int32, error) {
	buf, err := b.readN(4 * n)
	if err != nil {
		return nil, err
	}
	out := make([]int32, n)
	for i := 0; i < n; i++ {
		out[i] = int32(b.order.Uint32(buf[4*i : 4*i+4]))
	}
	return out, nil
}

func (b *romBuffer) GetFloats(n int) ([]float32, error) {
	buf, err := b.readN(4 * n)
	if err != nil {
		return nil, err
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(b.order.Uint32(buf[4*i : 4*i+4]))
	}
	return out, nil
}

/* -------------------------------------------------------------------------- */

// RomBufferFactory builds RomBuffer cursors over one open file. All cursors
// obtained from the same factory (directly or via Duplicate) must decode
// identically to those from any other factory over the same bytes.
type RomBufferFactory interface {
	NewRomBuffer() (RomBuffer, error)
	Close() error
}
