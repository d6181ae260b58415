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

// The writer pipeline that assembles a BigWIG or BigBED file from scratch:
// number the chromosomes actually touched by the input, write the header
// placeholder, the chromosome B+ tree, the data blocks and their R+ tree
// index, the zoom pyramid, and finally backpatch every offset the header
// could not know up front. Grounded on the teacher's
// track_bigWig.go/WriteBigWig for the overall pass ordering (header, then
// B+ tree, then data+index, then zoom levels, then backpatch), generalized
// from the teacher's single dense-track input to the spec's per-chromosome
// grouped WigSection/BedEntry input.
package big

import "encoding/binary"
import "os"

import . "github.com/pbenner/threadpool"

/* -------------------------------------------------------------------------- */

// WriteOptions controls the encoding choices the writer is free to make;
// none of them affect the decoded content, only how it is laid out.
type WriteOptions struct {
	// ZoomLevelCount is the largest number of reduction levels to build;
	// zero means 8. Each level quadruples the previous reduction, and
	// building stops early, whatever the cap, after the first level whose
	// zoomed item count is at most the number of chromosomes.
	ZoomLevelCount int
	Compression    Compression
	ByteOrder      binary.ByteOrder
	// BlockSize is the B+/R+ tree fanout (spec calls this the tree's
	// "block size", unrelated to the data block size).
	BlockSize int
	// Threads is how many goroutines reduce zoom levels concurrently.
	// Zero picks 4, mirroring the teacher's CLI tools' Config.Threads
	// default of GOMAXPROCS-ish parallelism for the same kind of
	// embarrassingly parallel per-bin reduction (pwmScanSequences.go).
	Threads int
}

func (o WriteOptions) byteOrder() binary.ByteOrder {
	if o.ByteOrder != nil {
		return o.ByteOrder
	}
	return binary.LittleEndian
}

func (o WriteOptions) blockSize() int {
	if o.BlockSize > 0 {
		return o.BlockSize
	}
	return 256
}

func (o WriteOptions) threads() int {
	if o.Threads > 0 {
		return o.Threads
	}
	return 4
}

// fileVersion reports the on-disk version a file compressed with c must
// declare: 5 for SNAPPY, 4 otherwise, per spec §6 ("write emits 4
// (zlib/none) or 5 (snappy)").
func fileVersion(c Compression) uint16 {
	if c == CompressionSnappy {
		return 5
	}
	return 4
}

/* -------------------------------------------------------------------------- */

// WigInput groups every WigSection belonging to one chromosome, in the
// order they must appear on disk (ascending, non-overlapping). Grouping by
// chromosome up front, rather than taking one flat slice of sections,
// makes the writer's per-chromosome sort-order check a check on each
// group's internal order instead of a global stable-sort precondition.
type WigInput struct {
	ChromName string
	Sections  []*WigSection
}

// BedInput groups every BedEntry belonging to one chromosome.
type BedInput struct {
	ChromName string
	Entries   []BedEntry
}

/* -------------------------------------------------------------------------- */

// WriteBigWig writes a complete BigWIG file to path. sizes is the full
// chromosome-size table (as from a .genome/.sizes file); only chromosomes
// named in inputs are written, numbered in the order inputs lists them
// (spec §4.8 step 3).
func WriteBigWig(path string, sizes []ChromSize, inputs []WigInput, opts WriteOptions) error {
	observed := make([]string, len(inputs))
	for i, in := range inputs {
		observed[i] = in.ChromName
	}
	chroms, err := NumberChromosomes(sizes, observed)
	if err != nil {
		return err
	}

	var allRecords []binnedRecord
	f, err := os.Create(path)
	if err != nil {
		return wrapIo("WriteBigWig", err)
	}
	defer f.Close()

	order := opts.byteOrder()
	out := NewOrderedDataOutput(f, order)
	blockSize := opts.blockSize()
	maxZoomLevels := opts.ZoomLevelCount
	if maxZoomLevels <= 0 {
		maxZoomLevels = 8
	}

	patch, err := WriteBigFileHeaderPlaceholder(out, bigWigMagic, fileVersion(opts.Compression), maxZoomLevels, 0, 0)
	if err != nil {
		return err
	}

	chromTreeOffset, err := out.Tell()
	if err != nil {
		return err
	}
	if err := WriteBPlusTree(out, chroms.Entries(), blockSize); err != nil {
		return err
	}
	if err := patch.SetChromTreeOffset(out, chromTreeOffset); err != nil {
		return err
	}

	unzoomedDataOffset, err := out.Tell()
	if err != nil {
		return err
	}
	var rtreeEntries []RTreeEntry
	maxBlockSize := 0
	total := EmptySummary()

	for _, in := range inputs {
		entry, ok := chroms.Lookup(in.ChromName)
		if !ok {
			return &NoSuchElement{Name: in.ChromName}
		}
		if err := validateWigOrder(in.Sections); err != nil {
			return err
		}
		for _, sec := range in.Sections {
			sec.ChromIx = entry.Id
			offset, err := out.Tell()
			if err != nil {
				return err
			}
			n, err := WriteWigSection(out, sec, opts.Compression)
			if err != nil {
				return err
			}
			if n > maxBlockSize {
				maxBlockSize = n
			}
			size, err := out.Tell()
			if err != nil {
				return err
			}
			bounds := sec.bounds()
			rtreeEntries = append(rtreeEntries, RTreeEntry{
				Interval: GenomicInterval{
					StartChromIx: bounds.ChromIx, StartBase: bounds.Start,
					EndChromIx: bounds.ChromIx, EndBase: bounds.End,
				},
				Offset: offset, Size: size - offset,
			})
			for i := 0; i < sec.Len(); i++ {
				iv := sec.RecordInterval(i)
				total = total.AddValue(float64(sec.Values[i]), int64(iv.End-iv.Start))
				allRecords = append(allRecords, binnedRecord{interval: iv, value: float64(sec.Values[i])})
			}
		}
	}
	if err := patch.SetUnzoomedDataOffset(out, unzoomedDataOffset); err != nil {
		return err
	}

	unzoomedIndexOffset, err := out.Tell()
	if err != nil {
		return err
	}
	if err := WriteRTree(out, rtreeEntries, blockSize, 1, unzoomedIndexOffset); err != nil {
		return err
	}
	if err := patch.SetUnzoomedIndexOffset(out, unzoomedIndexOffset); err != nil {
		return err
	}

	zoomLevels, zoomMaxBlockSize, err := writeZoomPyramid(out, allRecords, opts, maxZoomLevels, chroms.Len())
	if err != nil {
		return err
	}
	if zoomMaxBlockSize > maxBlockSize {
		maxBlockSize = zoomMaxBlockSize
	}
	if opts.Compression == CompressionNone {
		maxBlockSize = 0 // a zero uncompressBufSize marks uncompressed blocks
	}
	if err := patch.SetUncompressBufSize(out, uint32(maxBlockSize)); err != nil {
		return err
	}
	if err := rewriteZoomHeaderCount(out, len(zoomLevels)); err != nil {
		return err
	}
	for i, z := range zoomLevels {
		if err := patch.SetZoomHeader(out, i, z); err != nil {
			return err
		}
	}

	if err := patch.SetTotalSummaryOffset(out, patch.TotalSummaryOffset()); err != nil {
		return err
	}
	return patch.SetTotalSummary(out, total)
}

/* -------------------------------------------------------------------------- */

// WriteBigBed writes a complete BigBED file to path, following the same
// pass ordering as WriteBigWig. BigBED carries no realigned fixed-step
// shape, so every chromosome's entries are chunked into fixed-size blocks
// (bedBlockChunk records per block) purely for compression granularity.
func WriteBigBed(path string, sizes []ChromSize, inputs []BedInput, opts WriteOptions) error {
	observed := make([]string, len(inputs))
	for i, in := range inputs {
		observed[i] = in.ChromName
	}
	chroms, err := NumberChromosomes(sizes, observed)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return wrapIo("WriteBigBed", err)
	}
	defer f.Close()

	order := opts.byteOrder()
	out := NewOrderedDataOutput(f, order)
	blockSize := opts.blockSize()
	maxZoomLevels := opts.ZoomLevelCount
	if maxZoomLevels <= 0 {
		maxZoomLevels = 8
	}

	patch, err := WriteBigFileHeaderPlaceholder(out, bigBedMagic, fileVersion(opts.Compression), maxZoomLevels, 3, 3)
	if err != nil {
		return err
	}

	chromTreeOffset, err := out.Tell()
	if err != nil {
		return err
	}
	if err := WriteBPlusTree(out, chroms.Entries(), blockSize); err != nil {
		return err
	}
	if err := patch.SetChromTreeOffset(out, chromTreeOffset); err != nil {
		return err
	}

	unzoomedDataOffset, err := out.Tell()
	if err != nil {
		return err
	}
	var rtreeEntries []RTreeEntry
	var allRecords []binnedRecord
	maxBlockSize := 0
	total := EmptySummary()

	for _, in := range inputs {
		entry, ok := chroms.Lookup(in.ChromName)
		if !ok {
			return &NoSuchElement{Name: in.ChromName}
		}
		if err := validateBedOrder(in.Entries); err != nil {
			return err
		}
		entries := make([]BedEntry, len(in.Entries))
		copy(entries, in.Entries)
		for i := range entries {
			entries[i].ChromIx = entry.Id
		}
		for i := 0; i < len(entries); i += bedBlockChunk {
			chunk := entries[i:min(i+bedBlockChunk, len(entries))]
			offset, err := out.Tell()
			if err != nil {
				return err
			}
			n, err := WriteBedBlock(out, chunk, opts.Compression)
			if err != nil {
				return err
			}
			if n > maxBlockSize {
				maxBlockSize = n
			}
			size, err := out.Tell()
			if err != nil {
				return err
			}
			bounds := chunk[0].interval()
			for _, e := range chunk[1:] {
				iv := e.interval()
				if iv.Start < bounds.Start {
					bounds.Start = iv.Start
				}
				if iv.End > bounds.End {
					bounds.End = iv.End
				}
			}
			rtreeEntries = append(rtreeEntries, RTreeEntry{
				Interval: GenomicInterval{
					StartChromIx: bounds.ChromIx, StartBase: bounds.Start,
					EndChromIx: bounds.ChromIx, EndBase: bounds.End,
				},
				Offset: offset, Size: size - offset,
			})
			for _, e := range chunk {
				iv := e.interval()
				total = total.AddValue(1, int64(iv.End-iv.Start))
				allRecords = append(allRecords, binnedRecord{interval: iv, value: 1})
			}
		}
	}
	if err := patch.SetUnzoomedDataOffset(out, unzoomedDataOffset); err != nil {
		return err
	}

	unzoomedIndexOffset, err := out.Tell()
	if err != nil {
		return err
	}
	if err := WriteRTree(out, rtreeEntries, blockSize, 1, unzoomedIndexOffset); err != nil {
		return err
	}
	if err := patch.SetUnzoomedIndexOffset(out, unzoomedIndexOffset); err != nil {
		return err
	}

	zoomLevels, zoomMaxBlockSize, err := writeZoomPyramid(out, allRecords, opts, maxZoomLevels, chroms.Len())
	if err != nil {
		return err
	}
	if zoomMaxBlockSize > maxBlockSize {
		maxBlockSize = zoomMaxBlockSize
	}
	if opts.Compression == CompressionNone {
		maxBlockSize = 0 // a zero uncompressBufSize marks uncompressed blocks
	}
	if err := patch.SetUncompressBufSize(out, uint32(maxBlockSize)); err != nil {
		return err
	}
	if err := rewriteZoomHeaderCount(out, len(zoomLevels)); err != nil {
		return err
	}
	for i, z := range zoomLevels {
		if err := patch.SetZoomHeader(out, i, z); err != nil {
			return err
		}
	}

	if err := patch.SetTotalSummaryOffset(out, patch.TotalSummaryOffset()); err != nil {
		return err
	}
	return patch.SetTotalSummary(out, total)
}

// bedBlockChunk is the number of BedEntry records per compressed data
// block. BigBED carries no natural block boundary the way a WigSection
// does, so entries are batched for compression locality the same way the
// real bigBedToBigBed tool batches ~512-item blocks.
const bedBlockChunk = 512

/* -------------------------------------------------------------------------- */

func validateWigOrder(sections []*WigSection) error {
	var prevEnd int32 = -1
	havePrev := false
	for _, sec := range sections {
		for i := 0; i < sec.Len(); i++ {
			iv := sec.RecordInterval(i)
			if havePrev && iv.Start < prevEnd {
				return &SortOrderError{Msg: "WIG records must be sorted by start and non-overlapping"}
			}
			prevEnd = iv.End
			havePrev = true
		}
	}
	return nil
}

func validateBedOrder(entries []BedEntry) error {
	var prevEnd int32 = -1
	for i, e := range entries {
		if i > 0 && e.Start < prevEnd {
			return &SortOrderError{Msg: "BED records must be sorted by start and non-overlapping"}
		}
		prevEnd = e.End
	}
	return nil
}

/* -------------------------------------------------------------------------- */

// reduceZoomLevelsConcurrently computes buildZoomLevel(records, reductions[i])
// for every candidate reduction in parallel: each level's aggregation reads
// the shared records slice and writes only to its own map and result slot,
// so the levels have no cross-dependency worth serializing. Grounded on the
// teacher's pwmScanSequences.go pwmScanSequence, which hands the same kind
// of independent per-bin reduction to a ThreadPool via AddRangeJob.
func reduceZoomLevelsConcurrently(records []binnedRecord, reductions []int32, threads int) ([][]ZoomRecord, error) {
	out := make([][]ZoomRecord, len(reductions))
	pool := New(threads, len(reductions))
	jobGroup := pool.NewJobGroup()
	err := pool.AddRangeJob(0, len(reductions), jobGroup, func(i int, pool ThreadPool, erf func() error) error {
		out[i] = buildZoomLevel(records, reductions[i])
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := pool.Wait(jobGroup); err != nil {
		return nil, err
	}
	return out, nil
}

// writeZoomPyramid builds and writes each reduction level's data blocks and
// R+ tree index in turn, returning the ZoomLevel headers for the caller to
// backpatch. Grounded on track_bigWig.go's WriteZoom loop (write data, then
// index, per level), with the reduction arithmetic taken from spec §4.8
// step 7 rather than the teacher's own heuristic (see DESIGN.md).
func writeZoomPyramid(out *OrderedDataOutput, records []binnedRecord, opts WriteOptions, maxLevels int, numChroms int) ([]ZoomLevel, int, error) {
	if len(records) == 0 {
		return nil, 0, nil
	}
	firstReduction := initialReduction(records)
	if firstReduction <= 0 {
		return nil, 0, nil
	}

	reductions := make([]int32, maxLevels)
	reduction := firstReduction
	for i := range reductions {
		reductions[i] = reduction
		reduction *= 4
	}
	zoomedLevels, err := reduceZoomLevelsConcurrently(records, reductions, opts.threads())
	if err != nil {
		return nil, 0, err
	}

	var levels []ZoomLevel
	maxBlockSize := 0
	for i := 0; i < maxLevels; i++ {
		reduction := reductions[i]
		zoomed := zoomedLevels[i]
		if len(zoomed) <= numChroms && len(levels) > 0 {
			break
		}

		dataOffset, err := out.Tell()
		if err != nil {
			return nil, 0, err
		}
		var entries []RTreeEntry
		for _, zr := range zoomed {
			offset, err := out.Tell()
			if err != nil {
				return nil, 0, err
			}
			n, err := out.With(opts.Compression, func(w *OrderedDataOutput) error {
				return writeZoomRecord(w, zr)
			})
			if err != nil {
				return nil, 0, err
			}
			if n > maxBlockSize {
				maxBlockSize = n
			}
			size, err := out.Tell()
			if err != nil {
				return nil, 0, err
			}
			entries = append(entries, RTreeEntry{
				Interval: GenomicInterval{
					StartChromIx: zr.Interval.ChromIx, StartBase: zr.Interval.Start,
					EndChromIx: zr.Interval.ChromIx, EndBase: zr.Interval.End,
				},
				Offset: offset, Size: size - offset,
			})
		}

		indexOffset, err := out.Tell()
		if err != nil {
			return nil, 0, err
		}
		if err := WriteRTree(out, entries, opts.blockSize(), 1, indexOffset); err != nil {
			return nil, 0, err
		}

		levels = append(levels, ZoomLevel{Reduction: reduction, DataOffset: dataOffset, IndexOffset: indexOffset})
		if len(zoomed) <= numChroms {
			break
		}
	}
	return levels, maxBlockSize, nil
}

// initialReduction computes the first zoom level's bin width per spec §4.8
// step 7: ceil(mean record span) rounded up to at least 1, times 10.
func initialReduction(records []binnedRecord) int32 {
	sum := int64(0)
	for _, r := range records {
		sum += int64(r.interval.End - r.interval.Start)
	}
	if len(records) == 0 {
		return 0
	}
	mean := sum / int64(len(records))
	if sum%int64(len(records)) != 0 {
		mean++
	}
	if mean < 1 {
		mean = 1
	}
	return int32(mean) * 10
}

// rewriteZoomHeaderCount backpatches the header's zoomLevels count field at
// byte offset 6 (after the 4-byte magic and 2-byte version): the zoom
// table was reserved up front at its maximum possible size, but the actual
// number of levels built is only known once the whole pyramid is written.
func rewriteZoomHeaderCount(out *OrderedDataOutput, count int) error {
	buf := make([]byte, 2)
	out.ByteOrder().PutUint16(buf, uint16(count))
	return out.WriteAt(6, buf)
}
