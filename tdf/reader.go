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

// The public TDF reader API (spec §4.9/§6): open a file, resolve a
// dataset by name, query it for tiles overlapping a range, and the
// chrom/zoom/window-function summarize convenience built on top. Mirrors
// the root package's Reader.Query/Summarize shape (big/reader.go) rather
// than introducing a second API style for the same kind of file.
package tdf

import "encoding/binary"
import "fmt"

import big "github.com/superbobry/big"

// newFactory builds a RomBufferFactory for path under the given strategy,
// always in little-endian order (spec §4.9: TDF has no byte-order
// detection, unlike BigWIG/BigBED). Mirrors big/reader.go's own
// newFactory switch, which is unexported and format-agnostic only in
// spirit, not in visibility.
func newFactory(kind big.FactoryKind, path string) (big.RomBufferFactory, error) {
	switch kind {
	case big.FactoryShared:
		return big.NewSharedRomBufferFactory(path, binary.LittleEndian)
	case big.FactoryThreadSafe:
		return big.NewThreadSafeRomBufferFactory(path, binary.LittleEndian)
	case big.FactoryMmap:
		return big.NewMmapRomBufferFactory(path, binary.LittleEndian)
	default:
		return big.NewPerCursorRomBufferFactory(path, binary.LittleEndian)
	}
}

/* -------------------------------------------------------------------------- */

// Reader is a read handle on a TDF file.
type Reader struct {
	factory big.RomBufferFactory
	owns    bool

	buf    big.RomBuffer
	header *Header
	index  *MasterIndex
}

// Open opens path as a TDF file using the given RomBuffer factory
// strategy. TDF is always little-endian (spec §4.9), so the factory is
// built directly rather than through byte-order detection.
func Open(path string, kind big.FactoryKind) (*Reader, error) {
	factory, err := newFactory(kind, path)
	if err != nil {
		return nil, err
	}
	r, err := openFromFactory(factory)
	if err != nil {
		factory.Close()
		return nil, err
	}
	r.owns = true
	return r, nil
}

func openFromFactory(factory big.RomBufferFactory) (*Reader, error) {
	buf, err := factory.NewRomBuffer()
	if err != nil {
		return nil, err
	}
	header, err := ReadHeader(buf)
	if err != nil {
		buf.Close()
		return nil, err
	}
	if _, err := buf.Seek(header.IndexOffset, 0); err != nil {
		buf.Close()
		return nil, err
	}
	index, err := ReadMasterIndex(buf)
	if err != nil {
		buf.Close()
		return nil, err
	}
	return &Reader{factory: factory, buf: buf, header: header, index: index}, nil
}

// Duplicate returns an independent reader handle over the same file.
func (r *Reader) Duplicate() (*Reader, error) {
	dup, err := openFromFactory(r.factory)
	if err != nil {
		return nil, err
	}
	dup.owns = false
	return dup, nil
}

// Header returns the file's decoded header.
func (r *Reader) Header() *Header { return r.header }

// Close releases the reader's resources. Duplicates do not close the
// underlying factory, matching big.BigWigReader/BigBedReader.
func (r *Reader) Close() error {
	err := r.buf.Close()
	if r.owns {
		if ferr := r.factory.Close(); err == nil {
			err = ferr
		}
	}
	return err
}

/* -------------------------------------------------------------------------- */

// Dataset resolves name in the master index and decodes its attribute and
// tile table (not the tiles themselves, which are fetched lazily by
// Query).
func (r *Reader) Dataset(name string) (*Dataset, error) {
	entry, err := r.index.Lookup(name)
	if err != nil {
		return nil, err
	}
	cursor := r.buf.Duplicate()
	defer cursor.Close()
	if _, err := cursor.Seek(entry.Offset, 0); err != nil {
		return nil, err
	}
	return ReadDataset(cursor)
}

// Group resolves name in the master index's group map and decodes its
// attributes.
func (r *Reader) Group(name string) (*Group, error) {
	entry, err := r.index.LookupGroup(name)
	if err != nil {
		return nil, err
	}
	cursor := r.buf.Duplicate()
	defer cursor.Close()
	if _, err := cursor.Seek(entry.Offset, 0); err != nil {
		return nil, err
	}
	return ReadGroup(cursor)
}

// Query returns every present tile of dataset whose [tileStart, tileEnd)
// span overlaps [startOffset, endOffset). An absent tile (TileSlot.Offset
// < 0) is skipped, never an error (spec §8 scenario 6).
func (r *Reader) Query(dataset string, startOffset, endOffset int32) ([]Tile, error) {
	ds, err := r.Dataset(dataset)
	if err != nil {
		return nil, err
	}
	var out []Tile
	for i, slot := range ds.Tiles {
		if slot.Absent() {
			continue
		}
		tileStart, tileEnd := ds.tileRange(i)
		if tileStart >= endOffset || tileEnd <= startOffset {
			continue
		}
		tile, err := r.decodeSlot(slot)
		if err != nil {
			return nil, err
		}
		out = append(out, tile)
	}
	return out, nil
}

func (r *Reader) decodeSlot(slot TileSlot) (Tile, error) {
	compression := big.CompressionNone
	if r.header.Compressed() {
		compression = big.CompressionDeflate
	}
	cursor, err := r.buf.Decompress(slot.Offset, int64(slot.Size), compression)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()
	return decodeTile(cursor)
}

/* -------------------------------------------------------------------------- */

// Summarize resolves the dataset name "/<chromosome>/z<zoom>/<windowFunction>"
// for the reader's first configured window function, falling back to
// "/<chromosome>/raw" if the zoomed dataset doesn't exist (spec §4.9),
// then returns every value row of every track whose span overlaps
// [start, end), per track.
func (r *Reader) Summarize(chromosome string, start, end int32, zoom int) ([][]TdfValue, error) {
	wf := "mean"
	if len(r.header.WindowFunctions) > 0 {
		wf = r.header.WindowFunctions[0]
	}
	name := fmt.Sprintf("/%s/z%d/%s", chromosome, zoom, wf)
	ds, err := r.Dataset(name)
	if _, ok := err.(*big.NoSuchElement); ok {
		name = fmt.Sprintf("/%s/raw", chromosome)
		ds, err = r.Dataset(name)
	}
	if err != nil {
		return nil, err
	}

	var tracks [][]TdfValue
	for i, slot := range ds.Tiles {
		if slot.Absent() {
			continue
		}
		tileStart, tileEnd := ds.tileRange(i)
		if tileStart >= end || tileEnd <= start {
			continue
		}
		tile, err := r.decodeSlot(slot)
		if err != nil {
			return nil, err
		}
		if tracks == nil {
			tracks = make([][]TdfValue, tile.NumTracks())
		}
		for row := 0; row < tile.Len(); row++ {
			rs, re := tile.Start(row), tile.End(row)
			if rs >= end || re <= start {
				continue
			}
			for t := 0; t < tile.NumTracks(); t++ {
				tracks[t] = append(tracks[t], TdfValue{Start: rs, End: re, Value: tile.Value(t, row)})
			}
		}
	}
	return tracks, nil
}

// TdfValue is one per-track summarized observation: a span and the value
// the chosen window function recorded for it.
type TdfValue struct {
	Start int32
	End   int32
	Value float32
}
