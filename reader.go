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

// The public reader API: open, chromosomes, query, summarize,
// totalSummary, duplicate, close (spec §6). BigWigReader and BigBedReader
// share baseReader for everything format-independent (header, chromosome
// B+ tree, data R+ tree, byte-order detection, factory selection) and
// differ only in how they decode a data block and fold it into a Summary,
// mirroring the teacher's BigWigReader (bigWig.go) generalized to both
// formats and to the four RomBuffer factories instead of one *os.File.
package big

import "encoding/binary"

/* -------------------------------------------------------------------------- */

// FactoryKind selects which RomBufferFactory variant a reader opens its
// file with; see rombuffer_*.go for the trade-offs between them.
type FactoryKind int

const (
	FactoryPerCursor FactoryKind = iota
	FactoryShared
	FactoryThreadSafe
	FactoryMmap
)

func newFactory(kind FactoryKind, path string, order binary.ByteOrder) (RomBufferFactory, error) {
	switch kind {
	case FactoryShared:
		return NewSharedRomBufferFactory(path, order)
	case FactoryThreadSafe:
		return NewThreadSafeRomBufferFactory(path, order)
	case FactoryMmap:
		return NewMmapRomBufferFactory(path, order)
	default:
		return NewPerCursorRomBufferFactory(path, order)
	}
}

/* -------------------------------------------------------------------------- */

// baseReader holds every piece of an open BigWIG/BigBED file that doesn't
// depend on which of the two record formats it holds.
type baseReader struct {
	factory RomBufferFactory
	owns    bool // true for the reader Open created; false for duplicates

	buf    RomBuffer
	header *BigFileHeader
	chroms *ChromosomeSet
	rtree  *RTree
	cache  blockCache
}

func openBase(path string, expectedMagic uint32, kind FactoryKind) (*baseReader, error) {
	order, err := DetectByteOrder(path, expectedMagic)
	if err != nil {
		return nil, err
	}
	factory, err := newFactory(kind, path, order)
	if err != nil {
		return nil, err
	}
	r, err := openBaseFromFactory(factory, expectedMagic)
	if err != nil {
		factory.Close()
		return nil, err
	}
	r.owns = true
	return r, nil
}

// openBaseFromFactory builds a baseReader from an already-open factory,
// used both by openBase (the first, owning reader) and Duplicate (a
// second, independent cursor over the same factory).
func openBaseFromFactory(factory RomBufferFactory, expectedMagic uint32) (*baseReader, error) {
	buf, err := factory.NewRomBuffer()
	if err != nil {
		return nil, err
	}
	header, err := ReadBigFileHeader(buf, expectedMagic)
	if err != nil {
		buf.Close()
		return nil, err
	}
	bpt, err := OpenBPlusTree(buf, header.ChromTreeOffset)
	if err != nil {
		buf.Close()
		return nil, err
	}
	entries, err := bpt.Traverse()
	if err != nil {
		buf.Close()
		return nil, err
	}
	rtree, err := OpenRTree(buf, header.UnzoomedIndexOffset)
	if err != nil {
		buf.Close()
		return nil, err
	}
	return &baseReader{
		factory: factory,
		buf:     buf,
		header:  header,
		chroms:  NewChromosomeSet(entries),
		rtree:   rtree,
	}, nil
}

func (r *baseReader) duplicate(expectedMagic uint32) (*baseReader, error) {
	dup, err := openBaseFromFactory(r.factory, expectedMagic)
	if err != nil {
		return nil, err
	}
	dup.owns = false
	return dup, nil
}

func (r *baseReader) close() error {
	err := r.buf.Close()
	if r.owns {
		if ferr := r.factory.Close(); err == nil {
			err = ferr
		}
	}
	return err
}

// Chromosomes returns every chromosome in the file's B+ tree, in
// ascending id order.
func (r *baseReader) Chromosomes() []ChromEntry { return r.chroms.Entries() }

// TotalSummary returns the file-wide BigSummary from the header.
func (r *baseReader) TotalSummary() Summary { return r.header.TotalSummary }

func (r *baseReader) resolve(chrom string) (ChromEntry, error) {
	entry, ok := r.chroms.Lookup(chrom)
	if !ok {
		return ChromEntry{}, &NoSuchElement{Name: chrom}
	}
	return entry, nil
}

func (r *baseReader) blocksOverlapping(chromIx, start, end int32) ([]RTreeEntry, error) {
	want := GenomicInterval{StartChromIx: chromIx, StartBase: start, EndChromIx: chromIx, EndBase: end}
	return r.rtree.Query(want)
}

func (r *baseReader) decompressBlock(chromIx int32, leaf RTreeEntry) (RomBuffer, error) {
	key := blockCacheKey{chromIx: chromIx, offset: leaf.Offset, size: leaf.Size}
	return r.cache.Get(key, func() (RomBuffer, error) {
		return r.buf.Decompress(leaf.Offset, leaf.Size, r.header.Compression())
	})
}

/* -------------------------------------------------------------------------- */

// BigWigReader is a read handle on a BigWIG file.
type BigWigReader struct {
	base *baseReader
}

// OpenBigWigReader opens path as a BigWIG file using the given RomBuffer
// factory strategy.
func OpenBigWigReader(path string, kind FactoryKind) (*BigWigReader, error) {
	base, err := openBase(path, bigWigMagic, kind)
	if err != nil {
		return nil, err
	}
	return &BigWigReader{base: base}, nil
}

func (r *BigWigReader) Chromosomes() []ChromEntry { return r.base.Chromosomes() }
func (r *BigWigReader) TotalSummary() Summary     { return r.base.TotalSummary() }
func (r *BigWigReader) Close() error              { return r.base.close() }

// Duplicate returns an independent reader handle over the same file,
// suitable for use from a different goroutine; its block cache is its
// own, per spec §5.
func (r *BigWigReader) Duplicate() (*BigWigReader, error) {
	base, err := r.base.duplicate(bigWigMagic)
	if err != nil {
		return nil, err
	}
	return &BigWigReader{base: base}, nil
}

// Query returns every record consistent with [start, end) on chrom: when
// overlaps is true, records intersecting the range; otherwise records
// fully contained in it. Results preserve on-disk order.
func (r *BigWigReader) Query(chrom string, start, end int32, overlaps bool) ([]*WigSection, error) {
	entry, err := r.base.resolve(chrom)
	if err != nil {
		return nil, err
	}
	leaves, err := r.base.blocksOverlapping(entry.Id, start, end)
	if err != nil {
		return nil, err
	}
	query := Interval{ChromIx: entry.Id, Start: start, End: end}
	var out []*WigSection
	for _, leaf := range leaves {
		decoded, err := r.decodeBlock(entry.Id, leaf)
		if err != nil {
			return nil, err
		}
		filtered := filterWigSection(decoded, query, overlaps)
		if filtered.Len() > 0 {
			out = append(out, filtered)
		}
	}
	return out, nil
}

func (r *BigWigReader) decodeBlock(chromIx int32, leaf RTreeEntry) (*WigSection, error) {
	buf, err := r.base.decompressBlock(chromIx, leaf)
	if err != nil {
		return nil, err
	}
	return decodeWigBlock(buf)
}

// Summarize returns numBins BigSummary values spanning [start, end) on
// chrom, each aggregating every record overlapping its bin. It decodes
// the full-resolution data directly; a caller after lower latency on wide
// ranges should call the zoom-aware variant the writer's pyramid exists
// to serve (see BigWigReader.SummarizeZoom).
func (r *BigWigReader) Summarize(chrom string, start, end int32, numBins int) ([]Summary, error) {
	sections, err := r.Query(chrom, start, end, true)
	if err != nil {
		return nil, err
	}
	return binSections(sections, start, end, numBins), nil
}

// SummarizeZoom behaves like Summarize but first tries to satisfy the
// request from the coarsest zoom level whose reduction does not exceed
// the per-bin width, per spec §4.5's PickZoom/summarize contract.
func (r *BigWigReader) SummarizeZoom(chrom string, start, end int32, numBins int) ([]Summary, error) {
	entry, err := r.base.resolve(chrom)
	if err != nil {
		return nil, err
	}
	if numBins <= 0 {
		return nil, nil
	}
	binWidth := (end - start) / int32(numBins)
	level, ok := r.base.header.PickZoom(binWidth)
	if !ok {
		return r.Summarize(chrom, start, end, numBins)
	}
	records, err := r.zoomRecords(entry.Id, start, end, level)
	if err != nil {
		return nil, err
	}
	return binZoomRecords(records, start, end, numBins), nil
}

func (r *BigWigReader) zoomRecords(chromIx, start, end int32, level ZoomLevel) ([]ZoomRecord, error) {
	rtree, err := OpenRTree(r.base.buf, level.IndexOffset)
	if err != nil {
		return nil, err
	}
	want := GenomicInterval{StartChromIx: chromIx, StartBase: start, EndChromIx: chromIx, EndBase: end}
	leaves, err := rtree.Query(want)
	if err != nil {
		return nil, err
	}
	var out []ZoomRecord
	for _, leaf := range leaves {
		buf, err := r.base.decompressBlock(chromIx, leaf)
		if err != nil {
			return nil, err
		}
		size, err := decompressedSize(buf)
		if err != nil {
			return nil, err
		}
		records, err := decodeZoomBlock(buf, size)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			if rec.Interval.ChromIx == chromIx && rec.Interval.Start < end && rec.Interval.End > start {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

/* -------------------------------------------------------------------------- */

// BigBedReader is a read handle on a BigBED file.
type BigBedReader struct {
	base *baseReader
}

// OpenBigBedReader opens path as a BigBED file using the given RomBuffer
// factory strategy.
func OpenBigBedReader(path string, kind FactoryKind) (*BigBedReader, error) {
	base, err := openBase(path, bigBedMagic, kind)
	if err != nil {
		return nil, err
	}
	return &BigBedReader{base: base}, nil
}

func (r *BigBedReader) Chromosomes() []ChromEntry { return r.base.Chromosomes() }
func (r *BigBedReader) TotalSummary() Summary     { return r.base.TotalSummary() }
func (r *BigBedReader) Close() error              { return r.base.close() }

// Duplicate returns an independent reader handle over the same file.
func (r *BigBedReader) Duplicate() (*BigBedReader, error) {
	base, err := r.base.duplicate(bigBedMagic)
	if err != nil {
		return nil, err
	}
	return &BigBedReader{base: base}, nil
}

// Query returns every feature consistent with [start, end) on chrom.
func (r *BigBedReader) Query(chrom string, start, end int32, overlaps bool) ([]BedEntry, error) {
	entry, err := r.base.resolve(chrom)
	if err != nil {
		return nil, err
	}
	leaves, err := r.base.blocksOverlapping(entry.Id, start, end)
	if err != nil {
		return nil, err
	}
	query := Interval{ChromIx: entry.Id, Start: start, End: end}
	var out []BedEntry
	for _, leaf := range leaves {
		decoded, err := r.decodeBlock(entry.Id, leaf)
		if err != nil {
			return nil, err
		}
		out = append(out, filterBedBlock(decoded, query, overlaps)...)
	}
	return out, nil
}

func (r *BigBedReader) decodeBlock(chromIx int32, leaf RTreeEntry) ([]BedEntry, error) {
	buf, err := r.base.decompressBlock(chromIx, leaf)
	if err != nil {
		return nil, err
	}
	size, err := decompressedSize(buf)
	if err != nil {
		return nil, err
	}
	return decodeBedBlock(buf, size)
}

// decompressedSize returns the length of a decompressed block buffer (not
// the compressed leaf.Size) and leaves buf positioned at its start.
func decompressedSize(buf RomBuffer) (int64, error) {
	size, err := buf.Seek(0, 2)
	if err != nil {
		return 0, err
	}
	_, err = buf.Seek(0, 0)
	return size, err
}

// Summarize returns numBins BigSummary values over [start, end) on chrom,
// treating each feature as contributing unit coverage across its span
// (the same convention the writer's zoom pyramid uses for BigBED).
func (r *BigBedReader) Summarize(chrom string, start, end int32, numBins int) ([]Summary, error) {
	entries, err := r.Query(chrom, start, end, true)
	if err != nil {
		return nil, err
	}
	bins := make([]Summary, numBins)
	for i := range bins {
		bins[i] = EmptySummary()
	}
	if numBins <= 0 || end <= start {
		return bins, nil
	}
	binWidth := float64(end-start) / float64(numBins)
	for _, e := range entries {
		lo := maxInt32(e.Start, start)
		hi := minInt32(e.End, end)
		if hi <= lo {
			continue
		}
		firstBin := int(float64(lo-start) / binWidth)
		lastBin := int(float64(hi-start-1) / binWidth)
		for b := firstBin; b <= lastBin && b < numBins; b++ {
			binStart := start + int32(float64(b)*binWidth)
			binEnd := start + int32(float64(b+1)*binWidth)
			if b == numBins-1 {
				binEnd = end
			}
			overlapLo := maxInt32(lo, binStart)
			overlapHi := minInt32(hi, binEnd)
			if overlapHi > overlapLo {
				bins[b] = bins[b].AddValue(1, int64(overlapHi-overlapLo))
			}
		}
	}
	return bins, nil
}

/* -------------------------------------------------------------------------- */

// binSections folds every record in sections into numBins equal-width
// summaries covering [start, end), weighting each record's contribution
// by how much of a bin it actually overlaps.
func binSections(sections []*WigSection, start, end int32, numBins int) []Summary {
	bins := make([]Summary, numBins)
	for i := range bins {
		bins[i] = EmptySummary()
	}
	if numBins <= 0 || end <= start {
		return bins
	}
	binWidth := float64(end-start) / float64(numBins)
	for _, sec := range sections {
		for i := 0; i < sec.Len(); i++ {
			iv := sec.RecordInterval(i)
			lo := maxInt32(iv.Start, start)
			hi := minInt32(iv.End, end)
			if hi <= lo {
				continue
			}
			firstBin := int(float64(lo-start) / binWidth)
			lastBin := int(float64(hi-start-1) / binWidth)
			for b := firstBin; b <= lastBin && b < numBins; b++ {
				binStart := start + int32(float64(b)*binWidth)
				binEnd := start + int32(float64(b+1)*binWidth)
				if b == numBins-1 {
					binEnd = end
				}
				overlapLo := maxInt32(lo, binStart)
				overlapHi := minInt32(hi, binEnd)
				if overlapHi > overlapLo {
					bins[b] = bins[b].AddValue(float64(sec.Values[i]), int64(overlapHi-overlapLo))
				}
			}
		}
	}
	return bins
}

// binZoomRecords is binSections' analogue over already-aggregated
// ZoomRecords: each zoom record's Summary is folded into every output
// bin it overlaps, weighted by the base-pair overlap as a fraction of the
// zoom record's own width (the finest granularity the zoom level keeps).
func binZoomRecords(records []ZoomRecord, start, end int32, numBins int) []Summary {
	bins := make([]Summary, numBins)
	for i := range bins {
		bins[i] = EmptySummary()
	}
	if numBins <= 0 || end <= start {
		return bins
	}
	binWidth := float64(end-start) / float64(numBins)
	for _, zr := range records {
		lo := maxInt32(zr.Interval.Start, start)
		hi := minInt32(zr.Interval.End, end)
		if hi <= lo || zr.Summary.Count == 0 {
			continue
		}
		recordSpan := float64(zr.Interval.End - zr.Interval.Start)
		firstBin := int(float64(lo-start) / binWidth)
		lastBin := int(float64(hi-start-1) / binWidth)
		for b := firstBin; b <= lastBin && b < numBins; b++ {
			binStart := start + int32(float64(b)*binWidth)
			binEnd := start + int32(float64(b+1)*binWidth)
			if b == numBins-1 {
				binEnd = end
			}
			overlapLo := maxInt32(lo, binStart)
			overlapHi := minInt32(hi, binEnd)
			if overlapHi <= overlapLo {
				continue
			}
			frac := float64(overlapHi-overlapLo) / recordSpan
			weighted := Summary{
				Count:      int64(float64(zr.Summary.Count) * frac),
				MinValue:   zr.Summary.MinValue,
				MaxValue:   zr.Summary.MaxValue,
				Sum:        zr.Summary.Sum * frac,
				SumSquares: zr.Summary.SumSquares * frac,
			}
			bins[b] = bins[b].Plus(weighted)
		}
	}
	return bins
}

func maxInt32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

func minInt32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}
