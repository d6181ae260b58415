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

// The BigWIG data block codec: fixed-step, variable-step and bedGraph
// sections, grounded on the teacher's BbiDataHeader/BbiBlockReader
// (bbi.go lines 97-292, 614-649) for the block header and per-record
// layout, and on track_wig.go/granges_bedGraph.go for the WIG domain
// vocabulary the teacher uses to name these three encodings.
package big

/* -------------------------------------------------------------------------- */

// WigSectionType is the block's leading type tag.
type WigSectionType uint8

const (
	WigBedGraph     WigSectionType = 1
	WigVariableStep WigSectionType = 2
	WigFixedStep    WigSectionType = 3
)

// WigSection is a decoded (or partially filtered) BigWIG data block.
// Positions/StartOffsets/EndOffsets are only populated for the section
// types that carry them; Values is always parallel to whichever position
// array (or implicit fixed-step index) the section uses.
type WigSection struct {
	ChromIx int32
	Type    WigSectionType
	Start   int32
	End     int32
	Step    int32
	Span    int32

	Positions    []int32 // variable-step
	StartOffsets []int32 // bedGraph
	EndOffsets   []int32 // bedGraph
	Values       []float32
}

// Len returns the number of records in the section.
func (s *WigSection) Len() int { return len(s.Values) }

// bounds returns the interval spanned by every record in the section, the
// bounding box the writer records as this block's R+ leaf interval.
func (s *WigSection) bounds() Interval {
	if s.Len() == 0 {
		return Interval{ChromIx: s.ChromIx, Start: s.Start, End: s.Start}
	}
	first := s.RecordInterval(0)
	last := s.RecordInterval(s.Len() - 1)
	return Interval{ChromIx: s.ChromIx, Start: first.Start, End: last.End}
}

// RecordInterval returns the genomic interval covered by record i.
func (s *WigSection) RecordInterval(i int) Interval {
	switch s.Type {
	case WigFixedStep:
		start := s.Start + int32(i)*s.Step
		return Interval{ChromIx: s.ChromIx, Start: start, End: start + s.Span}
	case WigVariableStep:
		start := s.Positions[i]
		return Interval{ChromIx: s.ChromIx, Start: start, End: start + s.Span}
	default: // WigBedGraph
		return Interval{ChromIx: s.ChromIx, Start: s.StartOffsets[i], End: s.EndOffsets[i]}
	}
}

/* -------------------------------------------------------------------------- */

// decodeWigBlock parses one decompressed BigWIG data block in full.
func decodeWigBlock(buf RomBuffer) (*WigSection, error) {
	chromIx, err := buf.GetInt()
	if err != nil {
		return nil, err
	}
	start, err := buf.GetInt()
	if err != nil {
		return nil, err
	}
	end, err := buf.GetInt()
	if err != nil {
		return nil, err
	}
	step, err := buf.GetInt()
	if err != nil {
		return nil, err
	}
	span, err := buf.GetInt()
	if err != nil {
		return nil, err
	}
	typeTag, err := buf.GetUnsignedByte()
	if err != nil {
		return nil, err
	}
	if _, err := buf.GetUnsignedByte(); err != nil { // reserved
		return nil, err
	}
	count, err := buf.GetUnsignedShort()
	if err != nil {
		return nil, err
	}

	sec := &WigSection{
		ChromIx: chromIx, Start: start, End: end, Step: step, Span: span,
		Type: WigSectionType(typeTag),
	}
	n := int(count)
	switch sec.Type {
	case WigBedGraph:
		sec.StartOffsets = make([]int32, n)
		sec.EndOffsets = make([]int32, n)
		sec.Values = make([]float32, n)
		for i := 0; i < n; i++ {
			if sec.StartOffsets[i], err = buf.GetInt(); err != nil {
				return nil, err
			}
			if sec.EndOffsets[i], err = buf.GetInt(); err != nil {
				return nil, err
			}
			if sec.Values[i], err = buf.GetFloat(); err != nil {
				return nil, err
			}
		}
	case WigVariableStep:
		sec.Positions = make([]int32, n)
		sec.Values = make([]float32, n)
		for i := 0; i < n; i++ {
			if sec.Positions[i], err = buf.GetInt(); err != nil {
				return nil, err
			}
			if sec.Values[i], err = buf.GetFloat(); err != nil {
				return nil, err
			}
		}
	case WigFixedStep:
		sec.Values = make([]float32, n)
		for i := 0; i < n; i++ {
			if sec.Values[i], err = buf.GetFloat(); err != nil {
				return nil, err
			}
		}
	default:
		return nil, formatErrorf("wig block", "unknown section type tag `%d'", typeTag)
	}
	return sec, nil
}

/* -------------------------------------------------------------------------- */

// filterWigSection applies the query consistency test and the fixed-step
// realignment of spec §4.6, short-circuiting the scan once a run of
// matches is broken (block records are sorted by start, so no further
// match can occur after that point).
func filterWigSection(block *WigSection, query Interval, overlaps bool) *WigSection {
	startIdx := 0
	out := &WigSection{ChromIx: block.ChromIx, Type: block.Type, Step: block.Step, Span: block.Span, Start: block.Start, End: block.End}

	if block.Type == WigFixedStep && block.Step > 0 {
		margin := query.Start % block.Step
		var shift int32
		switch {
		case margin == 0:
			shift = 0
		case overlaps:
			shift = -margin
		default:
			shift = block.Step - margin
		}
		realigned := query.Start + shift
		if realigned < block.Start {
			realigned = block.Start
		}
		startIdx = int((realigned - block.Start) / block.Step)
		if startIdx < 0 {
			startIdx = 0
		}
		out.Start = block.Start + int32(startIdx)*block.Step
	}

	matched := false
	for i := startIdx; i < block.Len(); i++ {
		var iv Interval
		if block.Type == WigFixedStep {
			// The realignment above (margin/shift/startIdx) reasons in
			// Step-width slots, not RecordInterval's Span-width data
			// footprint; the consistency test must use the same slot or
			// the two disagree whenever Span < Step.
			slotStart := block.Start + int32(i)*block.Step
			iv = Interval{ChromIx: block.ChromIx, Start: slotStart, End: slotStart + block.Step}
		} else {
			iv = block.RecordInterval(i)
		}
		if consistent(iv, query, overlaps) {
			matched = true
			switch block.Type {
			case WigFixedStep:
				out.Values = append(out.Values, block.Values[i])
			case WigVariableStep:
				out.Positions = append(out.Positions, block.Positions[i])
				out.Values = append(out.Values, block.Values[i])
			case WigBedGraph:
				out.StartOffsets = append(out.StartOffsets, block.StartOffsets[i])
				out.EndOffsets = append(out.EndOffsets, block.EndOffsets[i])
				out.Values = append(out.Values, block.Values[i])
			}
		} else if matched {
			break
		}
	}
	return out
}

/* -------------------------------------------------------------------------- */

// blockCacheKey identifies one compressed data block.
type blockCacheKey struct {
	chromIx int32
	offset  int64
	size    int64
}

// blockCache holds the single most recently decompressed data block, per
// spec §4.6 ("A decoder MUST cache the last decompressed block buffer").
// It is deliberately not safe for concurrent use — it belongs to one
// Reader, never shared across Reader.duplicate() handles (spec §5).
type blockCache struct {
	key   blockCacheKey
	valid bool
	buf   RomBuffer
}

// Get returns a fresh cursor over the decompressed block for key, calling
// decompress only on a cache miss.
func (c *blockCache) Get(key blockCacheKey, decompress func() (RomBuffer, error)) (RomBuffer, error) {
	if c.valid && c.key == key {
		return c.buf.Duplicate(), nil
	}
	buf, err := decompress()
	if err != nil {
		return nil, err
	}
	c.key = key
	c.valid = true
	c.buf = buf
	return c.buf.Duplicate(), nil
}

/* -------------------------------------------------------------------------- */

// WriteWigSection writes section as a compressed data block and returns the
// number of uncompressed bytes written, for the writer's max-block-size
// tracking (spec §4.8 step 4).
func WriteWigSection(out *OrderedDataOutput, section *WigSection, compression Compression) (int, error) {
	return out.With(compression, func(w *OrderedDataOutput) error {
		if err := w.WriteInt(section.ChromIx); err != nil {
			return err
		}
		if err := w.WriteInt(section.Start); err != nil {
			return err
		}
		if err := w.WriteInt(section.End); err != nil {
			return err
		}
		if err := w.WriteInt(section.Step); err != nil {
			return err
		}
		if err := w.WriteInt(section.Span); err != nil {
			return err
		}
		if err := w.WriteUnsignedByte(uint8(section.Type)); err != nil {
			return err
		}
		if err := w.WriteUnsignedByte(0); err != nil { // reserved
			return err
		}
		if err := w.WriteUnsignedShort(uint16(section.Len())); err != nil {
			return err
		}
		switch section.Type {
		case WigBedGraph:
			for i := 0; i < section.Len(); i++ {
				if err := w.WriteInt(section.StartOffsets[i]); err != nil {
					return err
				}
				if err := w.WriteInt(section.EndOffsets[i]); err != nil {
					return err
				}
				if err := w.WriteFloat(section.Values[i]); err != nil {
					return err
				}
			}
		case WigVariableStep:
			for i := 0; i < section.Len(); i++ {
				if err := w.WriteInt(section.Positions[i]); err != nil {
					return err
				}
				if err := w.WriteFloat(section.Values[i]); err != nil {
					return err
				}
			}
		case WigFixedStep:
			for i := 0; i < section.Len(); i++ {
				if err := w.WriteFloat(section.Values[i]); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
