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

// A TDF dataset blob: an attribute map, the track data type (always
// "float" per spec §4.9), the tile width, and the per-tile (offset, size)
// table. Groups (tdf/index.go) share the attribute map shape but carry no
// tile table.
package tdf

import big "github.com/superbobry/big"

/* -------------------------------------------------------------------------- */

func readAttributes(buf big.RomBuffer) (map[string]string, error) {
	n, err := buf.GetInt()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, n)
	for i := int32(0); i < n; i++ {
		key, err := buf.GetCString()
		if err != nil {
			return nil, err
		}
		val, err := buf.GetCString()
		if err != nil {
			return nil, err
		}
		out[key] = val
	}
	return out, nil
}

// Group is an attribute-only master-index entry (e.g. "/" carries
// genome-wide metadata, "/<chrom>" per-chromosome metadata).
type Group struct {
	Attributes map[string]string
}

// ReadGroup decodes a group blob; buf must be positioned at its offset.
func ReadGroup(buf big.RomBuffer) (*Group, error) {
	attrs, err := readAttributes(buf)
	if err != nil {
		return nil, err
	}
	return &Group{Attributes: attrs}, nil
}

// TileSlot is one entry of a dataset's tile table: the (offset, size) of
// a single tile's compressed-or-not blob, or an absent tile when Offset is
// negative (spec §4.9, §8 scenario 6).
type TileSlot struct {
	Offset int64
	Size   int32
}

func (s TileSlot) Absent() bool { return s.Offset < 0 }

// Dataset is a queryable TDF dataset: a regular grid of TileWidth-wide
// tiles, each independently present or absent.
type Dataset struct {
	Attributes map[string]string
	DataType   string
	TileWidth  int32
	Tiles      []TileSlot
}

// ReadDataset decodes a dataset blob; buf must be positioned at its
// offset (the IndexEntry.Offset from MasterIndex.Lookup).
func ReadDataset(buf big.RomBuffer) (*Dataset, error) {
	attrs, err := readAttributes(buf)
	if err != nil {
		return nil, err
	}
	dataType, err := buf.GetCString()
	if err != nil {
		return nil, err
	}
	tileWidthF, err := buf.GetFloat()
	if err != nil {
		return nil, err
	}
	tileCount, err := buf.GetInt()
	if err != nil {
		return nil, err
	}
	tiles := make([]TileSlot, tileCount)
	for i := range tiles {
		offset, err := buf.GetLong()
		if err != nil {
			return nil, err
		}
		size, err := buf.GetInt()
		if err != nil {
			return nil, err
		}
		tiles[i] = TileSlot{Offset: offset, Size: size}
	}
	return &Dataset{
		Attributes: attrs,
		DataType:   dataType,
		TileWidth:  int32(tileWidthF),
		Tiles:      tiles,
	}, nil
}

// tileRange returns the [start, end) base-pair span tile index i covers.
func (d *Dataset) tileRange(i int) (int32, int32) {
	start := int32(i) * d.TileWidth
	return start, start + d.TileWidth
}
