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

// The data R+ tree: an index from genomic intervals to the (offset, size)
// of the compressed data block holding them, grounded on the teacher's
// RTree/RVertex (bbi.go) and, for the overlap predicate itself, on
// original_source/RTreeIndex.java's findOverlappingBlocksRecursively.
package big

import "sort"

/* -------------------------------------------------------------------------- */

const rTreeMagic = 0x2468ace0

// GenomicInterval is a half-open span expressed in (chromosome index, base)
// pairs, letting a single interval span multiple chromosomes the same way
// the UCSC R+ tree format does.
type GenomicInterval struct {
	StartChromIx int32
	StartBase    int32
	EndChromIx   int32
	EndBase      int32
}

func chromPosLess(chromA, baseA, chromB, baseB int32) bool {
	if chromA != chromB {
		return chromA < chromB
	}
	return baseA < baseB
}

// Overlaps reports whether the two intervals share any (chromIx, base)
// point, following the UCSC convention that an entry spanning
// startChromIx..endChromIx is treated as covering every full chromosome
// strictly between the two, not just the named start/end bases on them.
func (a GenomicInterval) Overlaps(b GenomicInterval) bool {
	// a ends at or before b starts
	if !chromPosLess(b.StartChromIx, b.StartBase, a.EndChromIx, a.EndBase) {
		return false
	}
	// b ends at or before a starts
	if !chromPosLess(a.StartChromIx, a.StartBase, b.EndChromIx, b.EndBase) {
		return false
	}
	return true
}

func (a GenomicInterval) union(b GenomicInterval) GenomicInterval {
	out := a
	if chromPosLess(b.StartChromIx, b.StartBase, out.StartChromIx, out.StartBase) {
		out.StartChromIx, out.StartBase = b.StartChromIx, b.StartBase
	}
	if chromPosLess(out.EndChromIx, out.EndBase, b.EndChromIx, b.EndBase) {
		out.EndChromIx, out.EndBase = b.EndChromIx, b.EndBase
	}
	return out
}

/* -------------------------------------------------------------------------- */

// RTreeEntry is one leaf of the R+ tree: the interval held by a data block
// and where that block lives on disk.
type RTreeEntry struct {
	Interval GenomicInterval
	Offset   int64
	Size     int64
}

type rTreeHeader struct {
	BlockSize    uint32
	ItemCount    uint64
	Bounds       GenomicInterval
	FileSize     int64
	ItemsPerSlot uint32
	RootOffset   int64
}

func readRTreeHeader(buf RomBuffer, offset int64) (*rTreeHeader, error) {
	if _, err := buf.Seek(offset, 0); err != nil {
		return nil, err
	}
	magic, err := buf.GetUnsignedInt()
	if err != nil {
		return nil, err
	}
	if magic != rTreeMagic {
		return nil, formatErrorf("R+ tree", "bad magic `0x%x'", magic)
	}
	h := &rTreeHeader{}
	if h.BlockSize, err = buf.GetUnsignedInt(); err != nil {
		return nil, err
	}
	itemCount, err := buf.GetLong()
	if err != nil {
		return nil, err
	}
	h.ItemCount = uint64(itemCount)
	if h.Bounds.StartChromIx, err = buf.GetInt(); err != nil {
		return nil, err
	}
	if h.Bounds.StartBase, err = buf.GetInt(); err != nil {
		return nil, err
	}
	if h.Bounds.EndChromIx, err = buf.GetInt(); err != nil {
		return nil, err
	}
	if h.Bounds.EndBase, err = buf.GetInt(); err != nil {
		return nil, err
	}
	if h.FileSize, err = buf.GetLong(); err != nil {
		return nil, err
	}
	if h.ItemsPerSlot, err = buf.GetUnsignedInt(); err != nil {
		return nil, err
	}
	if _, err := buf.GetUnsignedInt(); err != nil { // reserved
		return nil, err
	}
	if h.RootOffset, err = buf.GetLong(); err != nil {
		return nil, err
	}
	return h, nil
}

/* -------------------------------------------------------------------------- */

// RTree is a read handle on an on-disk data R+ tree.
type RTree struct {
	buf    RomBuffer
	header *rTreeHeader
}

// OpenRTree reads the tree header at offset.
func OpenRTree(buf RomBuffer, offset int64) (*RTree, error) {
	h, err := readRTreeHeader(buf, offset)
	if err != nil {
		return nil, err
	}
	return &RTree{buf: buf, header: h}, nil
}

func (t *RTree) readNode(offset int64) (isLeaf bool, leaves []RTreeEntry, children []rTreeChildRef, err error) {
	if _, err = t.buf.Seek(offset, 0); err != nil {
		return
	}
	leafFlag, err := t.buf.GetUnsignedByte()
	if err != nil {
		return
	}
	if _, err = t.buf.GetUnsignedByte(); err != nil { // reserved
		return
	}
	childCount, err := t.buf.GetUnsignedShort()
	if err != nil {
		return
	}
	isLeaf = leafFlag != 0
	for i := 0; i < int(childCount); i++ {
		var iv GenomicInterval
		if iv.StartChromIx, err = t.buf.GetInt(); err != nil {
			return
		}
		if iv.StartBase, err = t.buf.GetInt(); err != nil {
			return
		}
		if iv.EndChromIx, err = t.buf.GetInt(); err != nil {
			return
		}
		if iv.EndBase, err = t.buf.GetInt(); err != nil {
			return
		}
		dataOffset, derr := t.buf.GetLong()
		if derr != nil {
			err = derr
			return
		}
		if isLeaf {
			dataSize, serr := t.buf.GetLong()
			if serr != nil {
				err = serr
				return
			}
			leaves = append(leaves, RTreeEntry{Interval: iv, Offset: dataOffset, Size: dataSize})
		} else {
			children = append(children, rTreeChildRef{interval: iv, offset: dataOffset})
		}
	}
	return
}

type rTreeChildRef struct {
	interval GenomicInterval
	offset   int64
}

// Query returns every data block whose interval might overlap query; as in
// the UCSC format, entries within a returned block are not guaranteed to
// individually overlap — callers filter the decoded records themselves.
func (t *RTree) Query(query GenomicInterval) ([]RTreeEntry, error) {
	var out []RTreeEntry
	if err := t.query(t.header.RootOffset, query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *RTree) query(offset int64, want GenomicInterval, out *[]RTreeEntry) error {
	isLeaf, leaves, children, err := t.readNode(offset)
	if err != nil {
		return err
	}
	if isLeaf {
		for _, e := range leaves {
			if e.Interval.Overlaps(want) {
				*out = append(*out, e)
			}
		}
		return nil
	}
	for _, c := range children {
		if c.interval.Overlaps(want) {
			if err := t.query(c.offset, want, out); err != nil {
				return err
			}
		}
	}
	return nil
}

/* -------------------------------------------------------------------------- */

// WriteRTree builds a balanced R+ tree bottom-up over entries (which need
// not be pre-sorted; they are sorted by interval start here) and writes it
// at the output's current position, following the teacher's
// RTree.BuildTree/RVertex.write (bbi.go). itemsPerSlot is only recorded in
// the header: every entry becomes its own leaf item, which is the layout
// itemsPerSlot=1 describes; larger values do not group entries.
func WriteRTree(out *OrderedDataOutput, entries []RTreeEntry, blockSize int, itemsPerSlot uint32, fileSize int64) error {
	sorted := append([]RTreeEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i].Interval, sorted[j].Interval
		return chromPosLess(a.StartChromIx, a.StartBase, b.StartChromIx, b.StartBase)
	})

	bounds := GenomicInterval{}
	if len(sorted) > 0 {
		bounds = sorted[0].Interval
		for _, e := range sorted[1:] {
			bounds = bounds.union(e.Interval)
		}
	}

	if err := out.WriteUnsignedInt(rTreeMagic); err != nil {
		return err
	}
	if err := out.WriteUnsignedInt(uint32(blockSize)); err != nil {
		return err
	}
	if err := out.WriteLong(int64(len(sorted))); err != nil {
		return err
	}
	if err := out.WriteInt(bounds.StartChromIx); err != nil {
		return err
	}
	if err := out.WriteInt(bounds.StartBase); err != nil {
		return err
	}
	if err := out.WriteInt(bounds.EndChromIx); err != nil {
		return err
	}
	if err := out.WriteInt(bounds.EndBase); err != nil {
		return err
	}
	if err := out.WriteLong(fileSize); err != nil {
		return err
	}
	if err := out.WriteUnsignedInt(itemsPerSlot); err != nil {
		return err
	}
	if err := out.WriteUnsignedInt(0); err != nil { // reserved
		return err
	}
	rootOffsetPos, err := out.Tell()
	if err != nil {
		return err
	}
	if err := out.WriteLong(0); err != nil { // root offset placeholder
		return err
	}

	w := &rTreeWriter{out: out, blockSize: blockSize}
	rootOffset, err := w.writeLevel(sorted)
	if err != nil {
		return err
	}
	buf := make([]byte, 8)
	out.ByteOrder().PutUint64(buf, uint64(rootOffset))
	return out.WriteAt(rootOffsetPos, buf)
}

type rTreeWriter struct {
	out       *OrderedDataOutput
	blockSize int
}

type rTreeBuiltNode struct {
	offset GenomicInterval
	pos    int64
}

func (w *rTreeWriter) writeLevel(entries []RTreeEntry) (int64, error) {
	if len(entries) == 0 {
		pos, err := w.out.Tell()
		if err != nil {
			return 0, err
		}
		return pos, w.writeLeafNode(nil)
	}
	var nodes []rTreeBuiltNode
	for i := 0; i < len(entries); i += w.blockSize {
		chunk := entries[i:min(i+w.blockSize, len(entries))]
		pos, err := w.out.Tell()
		if err != nil {
			return 0, err
		}
		if err := w.writeLeafNode(chunk); err != nil {
			return 0, err
		}
		bounds := chunk[0].Interval
		for _, e := range chunk[1:] {
			bounds = bounds.union(e.Interval)
		}
		nodes = append(nodes, rTreeBuiltNode{offset: bounds, pos: pos})
	}
	for len(nodes) > 1 {
		var parents []rTreeBuiltNode
		for i := 0; i < len(nodes); i += w.blockSize {
			chunk := nodes[i:min(i+w.blockSize, len(nodes))]
			pos, err := w.out.Tell()
			if err != nil {
				return 0, err
			}
			if err := w.writeInternalNode(chunk); err != nil {
				return 0, err
			}
			bounds := chunk[0].offset
			for _, c := range chunk[1:] {
				bounds = bounds.union(c.offset)
			}
			parents = append(parents, rTreeBuiltNode{offset: bounds, pos: pos})
		}
		nodes = parents
	}
	return nodes[0].pos, nil
}

func (w *rTreeWriter) writeInterval(iv GenomicInterval) error {
	if err := w.out.WriteInt(iv.StartChromIx); err != nil {
		return err
	}
	if err := w.out.WriteInt(iv.StartBase); err != nil {
		return err
	}
	if err := w.out.WriteInt(iv.EndChromIx); err != nil {
		return err
	}
	return w.out.WriteInt(iv.EndBase)
}

func (w *rTreeWriter) writeLeafNode(chunk []RTreeEntry) error {
	if err := w.out.WriteUnsignedByte(1); err != nil {
		return err
	}
	if err := w.out.WriteUnsignedByte(0); err != nil {
		return err
	}
	if err := w.out.WriteUnsignedShort(uint16(len(chunk))); err != nil {
		return err
	}
	for _, e := range chunk {
		if err := w.writeInterval(e.Interval); err != nil {
			return err
		}
		if err := w.out.WriteLong(e.Offset); err != nil {
			return err
		}
		if err := w.out.WriteLong(e.Size); err != nil {
			return err
		}
	}
	return nil
}

func (w *rTreeWriter) writeInternalNode(chunk []rTreeBuiltNode) error {
	if err := w.out.WriteUnsignedByte(0); err != nil {
		return err
	}
	if err := w.out.WriteUnsignedByte(0); err != nil {
		return err
	}
	if err := w.out.WriteUnsignedShort(uint16(len(chunk))); err != nil {
		return err
	}
	for _, n := range chunk {
		if err := w.writeInterval(n.offset); err != nil {
			return err
		}
		if err := w.out.WriteLong(n.pos); err != nil {
			return err
		}
	}
	return nil
}
