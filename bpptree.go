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

// The chromosome B+ tree: a name -> (id, length) map stored on disk in the
// same shape as the teacher's BTree/BVertex/BData (bbi.go), generalized
// from a fixed uint32-pair value to a (int32, int32) ChromEntry and from
// *os.File to RomBuffer/OrderedDataOutput.
package big

import "bytes"
import "sort"

/* -------------------------------------------------------------------------- */

const bPlusTreeMagic = 0x78ca8c91

// ChromEntry is one row of the chromosome B+ tree: a name and the dense id
// and length the writer assigned it.
type ChromEntry struct {
	Name   string
	Id     int32
	Length int32
}

/* -------------------------------------------------------------------------- */

type bPlusHeader struct {
	BlockSize  uint32
	KeySize    uint32
	ValSize    uint32
	ItemCount  uint64
	RootOffset int64
}

func readBPlusHeader(buf RomBuffer, offset int64) (*bPlusHeader, error) {
	if _, err := buf.Seek(offset, 0); err != nil {
		return nil, err
	}
	magic, err := buf.GetUnsignedInt()
	if err != nil {
		return nil, err
	}
	if magic != bPlusTreeMagic {
		return nil, formatErrorf("chrom B+ tree", "bad magic `0x%x'", magic)
	}
	h := &bPlusHeader{}
	if h.BlockSize, err = buf.GetUnsignedInt(); err != nil {
		return nil, err
	}
	if h.KeySize, err = buf.GetUnsignedInt(); err != nil {
		return nil, err
	}
	if h.ValSize, err = buf.GetUnsignedInt(); err != nil {
		return nil, err
	}
	itemCount, err := buf.GetLong()
	if err != nil {
		return nil, err
	}
	h.ItemCount = uint64(itemCount)
	// reserved
	if _, err := buf.GetLong(); err != nil {
		return nil, err
	}
	rootOffset, err := buf.GetLong()
	if err != nil {
		return nil, err
	}
	h.RootOffset = rootOffset
	return h, nil
}

/* -------------------------------------------------------------------------- */

// BPlusTree is a read handle on an on-disk chromosome B+ tree.
type BPlusTree struct {
	buf    RomBuffer
	header *bPlusHeader
}

// OpenBPlusTree reads the tree header at offset and returns a handle that
// can Lookup or Traverse; the tree body is read lazily, node by node.
func OpenBPlusTree(buf RomBuffer, offset int64) (*BPlusTree, error) {
	h, err := readBPlusHeader(buf, offset)
	if err != nil {
		return nil, err
	}
	return &BPlusTree{buf: buf, header: h}, nil
}

func (t *BPlusTree) padKey(name string) []byte {
	key := make([]byte, t.header.KeySize)
	copy(key, name)
	return key
}

type bPlusNodeEntry struct {
	key    []byte
	offset int64 // internal: child offset. leaf: unused.
	id     int32
	length int32
}

func (t *BPlusTree) readNode(offset int64) (isLeaf bool, entries []bPlusNodeEntry, err error) {
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
	entries = make([]bPlusNodeEntry, childCount)
	for i := 0; i < int(childCount); i++ {
		key, kerr := t.buf.GetBytes(int(t.header.KeySize))
		if kerr != nil {
			return isLeaf, nil, kerr
		}
		entries[i].key = key
		if isLeaf {
			id, ierr := t.buf.GetUnsignedInt()
			if ierr != nil {
				return isLeaf, nil, ierr
			}
			length, lerr := t.buf.GetUnsignedInt()
			if lerr != nil {
				return isLeaf, nil, lerr
			}
			entries[i].id = int32(id)
			entries[i].length = int32(length)
		} else {
			off, oerr := t.buf.GetLong()
			if oerr != nil {
				return isLeaf, nil, oerr
			}
			entries[i].offset = off
		}
	}
	return isLeaf, entries, nil
}

// Lookup returns the (id, length) pair for name, if present.
func (t *BPlusTree) Lookup(name string) (id int32, length int32, found bool, err error) {
	key := t.padKey(name)
	offset := t.header.RootOffset
	for {
		isLeaf, entries, err := t.readNode(offset)
		if err != nil {
			return 0, 0, false, err
		}
		if isLeaf {
			for _, e := range entries {
				if bytes.Equal(e.key, key) {
					return e.id, e.length, true, nil
				}
			}
			return 0, 0, false, nil
		}
		// descend into the child with the greatest key <= target
		idx := -1
		for i, e := range entries {
			if bytes.Compare(e.key, key) <= 0 {
				idx = i
			} else {
				break
			}
		}
		if idx == -1 {
			return 0, 0, false, nil
		}
		offset = entries[idx].offset
	}
}

// Traverse returns every (name, id, length) row in ascending key order.
func (t *BPlusTree) Traverse() ([]ChromEntry, error) {
	var out []ChromEntry
	if err := t.traverse(t.header.RootOffset, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *BPlusTree) traverse(offset int64, out *[]ChromEntry) error {
	isLeaf, entries, err := t.readNode(offset)
	if err != nil {
		return err
	}
	if isLeaf {
		for _, e := range entries {
			*out = append(*out, ChromEntry{
				Name:   string(bytes.TrimRight(e.key, "\x00")),
				Id:     e.id,
				Length: e.length,
			})
		}
		return nil
	}
	for _, e := range entries {
		if err := t.traverse(e.offset, out); err != nil {
			return err
		}
	}
	return nil
}

/* -------------------------------------------------------------------------- */

// WriteBPlusTree builds a balanced B+ tree bottom-up from chroms (sorted by
// name) and writes it at the output's current position, following the
// teacher's BTree.BuildTree/Write (bbi.go): every internal node has at most
// blockSize children, every leaf has at most blockSize entries.
func WriteBPlusTree(out *OrderedDataOutput, chroms []ChromEntry, blockSize int) error {
	sorted := append([]ChromEntry(nil), chroms...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	seen := make(map[string]bool, len(sorted))
	keySize := uint32(0)
	for _, c := range sorted {
		if seen[c.Name] {
			return &DuplicateKey{Key: c.Name}
		}
		seen[c.Name] = true
		if uint32(len(c.Name)) > keySize {
			keySize = uint32(len(c.Name))
		}
	}

	if err := out.WriteUnsignedInt(bPlusTreeMagic); err != nil {
		return err
	}
	if err := out.WriteUnsignedInt(uint32(blockSize)); err != nil {
		return err
	}
	if err := out.WriteUnsignedInt(keySize); err != nil {
		return err
	}
	if err := out.WriteUnsignedInt(8); err != nil { // valSize
		return err
	}
	if err := out.WriteLong(int64(len(sorted))); err != nil {
		return err
	}
	if err := out.WriteLong(0); err != nil { // reserved
		return err
	}
	rootOffsetPos, err := out.Tell()
	if err != nil {
		return err
	}
	if err := out.WriteLong(0); err != nil { // root offset placeholder, backpatched below
		return err
	}

	w := &bPlusTreeWriter{out: out, keySize: keySize, blockSize: blockSize}
	rootOffset, err := w.writeLevel(sorted)
	if err != nil {
		return err
	}
	buf := make([]byte, 8)
	out.ByteOrder().PutUint64(buf, uint64(rootOffset))
	return out.WriteAt(rootOffsetPos, buf)
}

type bPlusTreeWriter struct {
	out       *OrderedDataOutput
	keySize   uint32
	blockSize int
}

type bPlusBuiltNode struct {
	offset  int64
	firstOf []byte
}

// writeLevel writes the leaves, then repeatedly groups the previous level's
// nodes into parent levels until a single root remains, mirroring
// BTree.BuildTree/BVertex.write (bbi.go) but working bottom-up over
// already-written nodes instead of a recursive split of an in-memory slice,
// since RomBuffer/OrderedDataOutput only ever append.
func (w *bPlusTreeWriter) writeLevel(entries []ChromEntry) (int64, error) {
	if len(entries) == 0 {
		offset, err := w.out.Tell()
		if err != nil {
			return 0, err
		}
		return offset, w.writeLeafNode(nil)
	}
	var nodes []bPlusBuiltNode
	for i := 0; i < len(entries); i += w.blockSize {
		chunk := entries[i:min(i+w.blockSize, len(entries))]
		offset, err := w.out.Tell()
		if err != nil {
			return 0, err
		}
		if err := w.writeLeafNode(chunk); err != nil {
			return 0, err
		}
		nodes = append(nodes, bPlusBuiltNode{offset: offset, firstOf: w.padKey(chunk[0].Name)})
	}
	for len(nodes) > 1 {
		var parents []bPlusBuiltNode
		for i := 0; i < len(nodes); i += w.blockSize {
			chunk := nodes[i:min(i+w.blockSize, len(nodes))]
			offset, err := w.out.Tell()
			if err != nil {
				return 0, err
			}
			if err := w.writeInternalNode(chunk); err != nil {
				return 0, err
			}
			parents = append(parents, bPlusBuiltNode{offset: offset, firstOf: chunk[0].firstOf})
		}
		nodes = parents
	}
	return nodes[0].offset, nil
}

func (w *bPlusTreeWriter) padKey(name string) []byte {
	key := make([]byte, w.keySize)
	copy(key, name)
	return key
}

func (w *bPlusTreeWriter) writeLeafNode(chunk []ChromEntry) error {
	if err := w.out.WriteUnsignedByte(1); err != nil {
		return err
	}
	if err := w.out.WriteUnsignedByte(0); err != nil {
		return err
	}
	if err := w.out.WriteUnsignedShort(uint16(len(chunk))); err != nil {
		return err
	}
	for _, c := range chunk {
		if err := w.out.WriteBytes(w.padKey(c.Name)); err != nil {
			return err
		}
		if err := w.out.WriteUnsignedInt(uint32(c.Id)); err != nil {
			return err
		}
		if err := w.out.WriteUnsignedInt(uint32(c.Length)); err != nil {
			return err
		}
	}
	return nil
}

func (w *bPlusTreeWriter) writeInternalNode(chunk []bPlusBuiltNode) error {
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
		if err := w.out.WriteBytes(n.firstOf); err != nil {
			return err
		}
		if err := w.out.WriteLong(n.offset); err != nil {
			return err
		}
	}
	return nil
}

/* -------------------------------------------------------------------------- */

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
