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

// The BigFile header and zoom-level table, grounded on the teacher's
// BbiHeader/BbiHeaderZoom (bbi.go lines 1100-1416), generalized to both
// magics and to runtime byte-order detection, which the teacher never
// needed since it only ever wrote little-endian files itself.
package big

import "encoding/binary"
import "math"
import "os"

/* -------------------------------------------------------------------------- */

const (
	bigWigMagic = 0x888FFC26
	bigBedMagic = 0x8789F2EB
)

const minSupportedVersion = 3
const maxSupportedVersion = 5

/* -------------------------------------------------------------------------- */

// ZoomLevel is one entry of the header's zoom table.
type ZoomLevel struct {
	Reduction   int32
	DataOffset  int64
	IndexOffset int64
}

// BigFileHeader is the fixed-size preamble every BigWIG/BigBED file opens
// with, plus the zoom table and total summary it points to.
type BigFileHeader struct {
	Magic               uint32
	Version             uint16
	ChromTreeOffset     int64
	UnzoomedDataOffset  int64
	UnzoomedIndexOffset int64
	FieldCount          uint16
	DefinedFieldCount   uint16
	AutoSqlOffset       int64
	TotalSummaryOffset  int64
	UncompressBufSize   uint32
	ExtensionOffset     int64
	ZoomHeaders         []ZoomLevel
	TotalSummary        Summary
}

/* -------------------------------------------------------------------------- */

// DetectByteOrder reads the first 4 bytes of path and reports which byte
// order makes them equal expectedMagic, trying big-endian and
// byte-reversed (little-endian) interpretations. Exactly one must match.
func DetectByteOrder(path string, expectedMagic uint32) (binary.ByteOrder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapIo("DetectByteOrder", err)
	}
	defer f.Close()

	raw := make([]byte, 4)
	if _, err := f.Read(raw); err != nil {
		return nil, wrapIo("DetectByteOrder", err)
	}
	asBE := binary.BigEndian.Uint32(raw)
	asLE := binary.LittleEndian.Uint32(raw)
	switch {
	case asBE == expectedMagic:
		return binary.BigEndian, nil
	case asLE == expectedMagic:
		return binary.LittleEndian, nil
	default:
		got := asBE
		if asLE != asBE {
			got = asLE
		}
		return nil, &BadSignature{Expected: expectedMagic, Got: got}
	}
}

/* -------------------------------------------------------------------------- */

// ReadBigFileHeader decodes the header at offset 0 of buf, which must
// already be positioned in the file's actual byte order (see
// DetectByteOrder).
func ReadBigFileHeader(buf RomBuffer, expectedMagic uint32) (*BigFileHeader, error) {
	if _, err := buf.Seek(0, 0); err != nil {
		return nil, err
	}
	magic, err := buf.GetUnsignedInt()
	if err != nil {
		return nil, err
	}
	if magic != expectedMagic {
		return nil, &BadSignature{Expected: expectedMagic, Got: magic}
	}
	h := &BigFileHeader{Magic: magic}

	version, err := buf.GetUnsignedShort()
	if err != nil {
		return nil, err
	}
	h.Version = version
	if version < minSupportedVersion || version > maxSupportedVersion {
		return nil, &UnsupportedVersion{Version: version}
	}

	zoomLevels, err := buf.GetUnsignedShort()
	if err != nil {
		return nil, err
	}
	if h.ChromTreeOffset, err = buf.GetLong(); err != nil {
		return nil, err
	}
	if h.UnzoomedDataOffset, err = buf.GetLong(); err != nil {
		return nil, err
	}
	if h.UnzoomedIndexOffset, err = buf.GetLong(); err != nil {
		return nil, err
	}
	if h.FieldCount, err = buf.GetUnsignedShort(); err != nil {
		return nil, err
	}
	if h.DefinedFieldCount, err = buf.GetUnsignedShort(); err != nil {
		return nil, err
	}
	if h.AutoSqlOffset, err = buf.GetLong(); err != nil {
		return nil, err
	}
	if h.TotalSummaryOffset, err = buf.GetLong(); err != nil {
		return nil, err
	}
	if uncompress, uerr := buf.GetUnsignedInt(); uerr != nil {
		return nil, uerr
	} else {
		h.UncompressBufSize = uncompress
	}
	if h.ExtensionOffset, err = buf.GetLong(); err != nil {
		return nil, err
	}

	h.ZoomHeaders = make([]ZoomLevel, zoomLevels)
	for i := range h.ZoomHeaders {
		reduction, rerr := buf.GetInt()
		if rerr != nil {
			return nil, rerr
		}
		if _, rerr := buf.GetUnsignedInt(); rerr != nil { // reserved
			return nil, rerr
		}
		dataOffset, derr := buf.GetLong()
		if derr != nil {
			return nil, derr
		}
		indexOffset, ierr := buf.GetLong()
		if ierr != nil {
			return nil, ierr
		}
		h.ZoomHeaders[i] = ZoomLevel{Reduction: reduction, DataOffset: dataOffset, IndexOffset: indexOffset}
	}

	if h.TotalSummaryOffset > 0 {
		if _, err := buf.Seek(h.TotalSummaryOffset, 0); err != nil {
			return nil, err
		}
		nBasesCovered, err := buf.GetLong()
		if err != nil {
			return nil, err
		}
		minVal, err := buf.GetDouble()
		if err != nil {
			return nil, err
		}
		maxVal, err := buf.GetDouble()
		if err != nil {
			return nil, err
		}
		sumData, err := buf.GetDouble()
		if err != nil {
			return nil, err
		}
		sumSquared, err := buf.GetDouble()
		if err != nil {
			return nil, err
		}
		h.TotalSummary = Summary{
			Count:      nBasesCovered,
			MinValue:   minVal,
			MaxValue:   maxVal,
			Sum:        sumData,
			SumSquares: sumSquared,
		}
	}
	return h, nil
}

// Compression reports the compression every data and zoom block in this
// file was written with, inferred the way the teacher's BbiBlockReader
// does (bbi.go: `UncompressBufSize != 0` means "blocks are compressed"),
// generalized to distinguish DEFLATE from SNAPPY via the version field
// per spec §6 ("write emits 4 (zlib/none) or 5 (snappy)").
func (h *BigFileHeader) Compression() Compression {
	if h.UncompressBufSize == 0 {
		return CompressionNone
	}
	if h.Version >= 5 {
		return CompressionSnappy
	}
	return CompressionDeflate
}

// PickZoom returns the zoom level with the largest reduction that does not
// exceed desiredReduction, or ok=false if every level's reduction exceeds
// it (the caller should fall back to the unzoomed data).
func (h *BigFileHeader) PickZoom(desiredReduction int32) (level ZoomLevel, ok bool) {
	best := int32(-1)
	for _, z := range h.ZoomHeaders {
		if z.Reduction <= desiredReduction && z.Reduction > best {
			best = z.Reduction
			level = z
			ok = true
		}
	}
	return level, ok
}

/* -------------------------------------------------------------------------- */

// headerPatch records the file positions of every header field the writer
// cannot know until later passes, mirroring the teacher's
// BbiHeader.PtrCtOffset/PtrDataOffset/... fields (bbi.go) and
// WriteOffsets/WriteUncompressBufSize backpatch methods.
type headerPatch struct {
	chromTreeOffsetPos     int64
	unzoomedDataOffsetPos  int64
	unzoomedIndexOffsetPos int64
	autoSqlOffsetPos       int64
	totalSummaryOffsetPos  int64
	uncompressBufSizePos   int64
	extensionOffsetPos     int64
	zoomHeaderPos          []int64 // start of each zoom header slot
	totalSummaryDataPos    int64
}

// WriteBigFileHeaderPlaceholder writes the fixed header and a zoomLevels-
// sized zoom table full of zeros, followed by a zeroed total-summary slot,
// and returns a patch the caller backpatches once the real offsets and
// zoom levels are known.
func WriteBigFileHeaderPlaceholder(out *OrderedDataOutput, magic uint32, version uint16, zoomLevels int, fieldCount, definedFieldCount uint16) (*headerPatch, error) {
	if err := out.WriteUnsignedInt(magic); err != nil {
		return nil, err
	}
	if err := out.WriteUnsignedShort(version); err != nil {
		return nil, err
	}
	if err := out.WriteUnsignedShort(uint16(zoomLevels)); err != nil {
		return nil, err
	}

	p := &headerPatch{}
	var err error
	if p.chromTreeOffsetPos, err = out.Tell(); err != nil {
		return nil, err
	}
	if err := out.WriteLong(0); err != nil {
		return nil, err
	}
	if p.unzoomedDataOffsetPos, err = out.Tell(); err != nil {
		return nil, err
	}
	if err := out.WriteLong(0); err != nil {
		return nil, err
	}
	if p.unzoomedIndexOffsetPos, err = out.Tell(); err != nil {
		return nil, err
	}
	if err := out.WriteLong(0); err != nil {
		return nil, err
	}
	if err := out.WriteUnsignedShort(fieldCount); err != nil {
		return nil, err
	}
	if err := out.WriteUnsignedShort(definedFieldCount); err != nil {
		return nil, err
	}
	if p.autoSqlOffsetPos, err = out.Tell(); err != nil {
		return nil, err
	}
	if err := out.WriteLong(0); err != nil {
		return nil, err
	}
	if p.totalSummaryOffsetPos, err = out.Tell(); err != nil {
		return nil, err
	}
	if err := out.WriteLong(0); err != nil {
		return nil, err
	}
	if p.uncompressBufSizePos, err = out.Tell(); err != nil {
		return nil, err
	}
	if err := out.WriteUnsignedInt(0); err != nil {
		return nil, err
	}
	if p.extensionOffsetPos, err = out.Tell(); err != nil {
		return nil, err
	}
	if err := out.WriteLong(0); err != nil {
		return nil, err
	}

	p.zoomHeaderPos = make([]int64, zoomLevels)
	for i := 0; i < zoomLevels; i++ {
		if p.zoomHeaderPos[i], err = out.Tell(); err != nil {
			return nil, err
		}
		if err := out.WriteInt(0); err != nil {
			return nil, err
		}
		if err := out.WriteUnsignedInt(0); err != nil {
			return nil, err
		}
		if err := out.WriteLong(0); err != nil {
			return nil, err
		}
		if err := out.WriteLong(0); err != nil {
			return nil, err
		}
	}

	if p.totalSummaryDataPos, err = out.Tell(); err != nil {
		return nil, err
	}
	for i := 0; i < 5; i++ {
		if err := out.WriteLong(0); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *headerPatch) SetChromTreeOffset(out *OrderedDataOutput, offset int64) error {
	return writeLongAt(out, p.chromTreeOffsetPos, offset)
}

func (p *headerPatch) SetUnzoomedDataOffset(out *OrderedDataOutput, offset int64) error {
	return writeLongAt(out, p.unzoomedDataOffsetPos, offset)
}

func (p *headerPatch) SetUnzoomedIndexOffset(out *OrderedDataOutput, offset int64) error {
	return writeLongAt(out, p.unzoomedIndexOffsetPos, offset)
}

func (p *headerPatch) SetAutoSqlOffset(out *OrderedDataOutput, offset int64) error {
	return writeLongAt(out, p.autoSqlOffsetPos, offset)
}

func (p *headerPatch) SetExtensionOffset(out *OrderedDataOutput, offset int64) error {
	return writeLongAt(out, p.extensionOffsetPos, offset)
}

func (p *headerPatch) SetUncompressBufSize(out *OrderedDataOutput, size uint32) error {
	buf := make([]byte, 4)
	out.ByteOrder().PutUint32(buf, size)
	return out.WriteAt(p.uncompressBufSizePos, buf)
}

// TotalSummaryOffset reports where the writer should tell the header the
// total summary lives — always right after the zoom table, so the writer
// need not keep its own copy of this position.
func (p *headerPatch) TotalSummaryOffset() int64 { return p.totalSummaryDataPos }

func (p *headerPatch) SetTotalSummaryOffset(out *OrderedDataOutput, offset int64) error {
	return writeLongAt(out, p.totalSummaryOffsetPos, offset)
}

func (p *headerPatch) SetTotalSummary(out *OrderedDataOutput, s Summary) error {
	pos := p.totalSummaryDataPos
	buf := make([]byte, 8)

	out.ByteOrder().PutUint64(buf, uint64(s.Count))
	if err := out.WriteAt(pos, buf); err != nil {
		return err
	}
	pos += 8

	for _, f := range []float64{s.MinValue, s.MaxValue, s.Sum, s.SumSquares} {
		out.ByteOrder().PutUint64(buf, math.Float64bits(f))
		if err := out.WriteAt(pos, buf); err != nil {
			return err
		}
		pos += 8
	}
	return nil
}

// SetZoomHeader backpatches the i-th zoom table slot.
func (p *headerPatch) SetZoomHeader(out *OrderedDataOutput, i int, z ZoomLevel) error {
	pos := p.zoomHeaderPos[i]
	buf := make([]byte, 4)
	out.ByteOrder().PutUint32(buf, uint32(z.Reduction))
	if err := out.WriteAt(pos, buf); err != nil {
		return err
	}
	long := make([]byte, 8)
	out.ByteOrder().PutUint64(long, uint64(z.DataOffset))
	if err := out.WriteAt(pos+8, long); err != nil { // skip reduction(4)+reserved(4)
		return err
	}
	out.ByteOrder().PutUint64(long, uint64(z.IndexOffset))
	return out.WriteAt(pos+16, long)
}

func writeLongAt(out *OrderedDataOutput, pos, value int64) error {
	buf := make([]byte, 8)
	out.ByteOrder().PutUint64(buf, uint64(value))
	return out.WriteAt(pos, buf)
}
