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
import "io"
import "math"

/* -------------------------------------------------------------------------- */

// OrderedDataOutput is a byte-order-aware sequential writer over an
// io.WriteSeeker, the write-side counterpart of RomBuffer. Grounded on the
// teacher's fileWriteAt idiom (bbi.go) for skipBytes, and on
// BbiBlockWriter's "buffer then append" pattern for the compressed block
// scope (With).
type OrderedDataOutput struct {
	w     io.WriteSeeker
	order binary.ByteOrder
}

func NewOrderedDataOutput(w io.WriteSeeker, order binary.ByteOrder) *OrderedDataOutput {
	return &OrderedDataOutput{w: w, order: order}
}

func (o *OrderedDataOutput) ByteOrder() binary.ByteOrder { return o.order }

func (o *OrderedDataOutput) Tell() (int64, error) {
	return o.w.Seek(0, io.SeekCurrent)
}

// SkipBytes seeks n bytes forward. If the writer is at the end of the
// file this leaves a hole that must be filled in later (the writer always
// backpatches these positions explicitly, never relies on sparse-file
// zero-fill semantics for correctness).
func (o *OrderedDataOutput) SkipBytes(n int64) error {
	_, err := o.w.Seek(n, io.SeekCurrent)
	return wrapIo("OrderedDataOutput.SkipBytes", err)
}

func (o *OrderedDataOutput) WriteAt(offset int64, p []byte) error {
	cur, err := o.Tell()
	if err != nil {
		return err
	}
	if _, err := o.w.Seek(offset, io.SeekStart); err != nil {
		return wrapIo("OrderedDataOutput.WriteAt", err)
	}
	if _, err := o.w.Write(p); err != nil {
		return wrapIo("OrderedDataOutput.WriteAt", err)
	}
	_, err = o.w.Seek(cur, io.SeekStart)
	return wrapIo("OrderedDataOutput.WriteAt", err)
}

/* -------------------------------------------------------------------------- */

func (o *OrderedDataOutput) WriteByte(v int8) error {
	return o.writeRaw([]byte{byte(v)})
}

func (o *OrderedDataOutput) WriteUnsignedByte(v uint8) error {
	return o.writeRaw([]byte{v})
}

func (o *OrderedDataOutput) WriteShort(v int16) error {
	buf := make([]byte, 2)
	o.order.PutUint16(buf, uint16(v))
	return o.writeRaw(buf)
}

func (o *OrderedDataOutput) WriteUnsignedShort(v uint16) error {
	buf := make([]byte, 2)
	o.order.PutUint16(buf, v)
	return o.writeRaw(buf)
}

func (o *OrderedDataOutput) WriteInt(v int32) error {
	buf := make([]byte, 4)
	o.order.PutUint32(buf, uint32(v))
	return o.writeRaw(buf)
}

func (o *OrderedDataOutput) WriteUnsignedInt(v uint32) error {
	buf := make([]byte, 4)
	o.order.PutUint32(buf, v)
	return o.writeRaw(buf)
}

func (o *OrderedDataOutput) WriteLong(v int64) error {
	buf := make([]byte, 8)
	o.order.PutUint64(buf, uint64(v))
	return o.writeRaw(buf)
}

func (o *OrderedDataOutput) WriteUnsignedLong(v uint64) error {
	buf := make([]byte, 8)
	o.order.PutUint64(buf, v)
	return o.writeRaw(buf)
}

func (o *OrderedDataOutput) WriteFloat(v float32) error {
	buf := make([]byte, 4)
	o.order.PutUint32(buf, math.Float32bits(v))
	return o.writeRaw(buf)
}

func (o *OrderedDataOutput) WriteDouble(v float64) error {
	buf := make([]byte, 8)
	o.order.PutUint64(buf, math.Float64bits(v))
	return o.writeRaw(buf)
}

func (o *OrderedDataOutput) WriteBytes(p []byte) error {
	return o.writeRaw(p)
}

func (o *OrderedDataOutput) WriteCString(s string) error {
	buf := append([]byte(s), 0)
	return o.writeRaw(buf)
}

func (o *OrderedDataOutput) writeRaw(p []byte) error {
	_, err := o.w.Write(p)
	return wrapIo("OrderedDataOutput.write", err)
}

/* -------------------------------------------------------------------------- */

// compressedBlock is an in-memory OrderedDataOutput that buffers writes
// for later compression, the same "accumulate into a bytes.Buffer, flush
// on Close" shape as BbiBlockWriter (bbi.go). With does not use it; it
// builds its own seekBuffer.
type compressedBlock struct {
	*OrderedDataOutput
	buf *seekBuffer
}

// With runs fn against a scratch buffer, compresses what it wrote, and
// appends the compressed bytes to o. It returns the uncompressed size so
// callers can track the per-file maximum block size (the BigFile header's
// uncompressBufSize).
func (o *OrderedDataOutput) With(compression Compression, fn func(*OrderedDataOutput) error) (int, error) {
	sb := newSeekBuffer()
	scratch := NewOrderedDataOutput(sb, o.order)
	if err := fn(scratch); err != nil {
		return 0, err
	}
	raw := sb.Bytes()
	compressed, err := compressBlock(raw, compression)
	if err != nil {
		return 0, err
	}
	if err := o.writeRaw(compressed); err != nil {
		return 0, err
	}
	return len(raw), nil
}
