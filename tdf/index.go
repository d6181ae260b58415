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

// The TDF master index (spec §4.9): two name -> (offset, size) maps, one
// for datasets (tile-bearing, queryable by Reader.Query/Summarize) and one
// for groups (attribute-only, e.g. the root "/" group carrying genome-wide
// metadata). Same entry shape as big's R+/B+ tree leaves, decoded with the
// same "read count, then count fixed records" idiom.
package tdf

import big "github.com/superbobry/big"

/* -------------------------------------------------------------------------- */

// IndexEntry locates a dataset or group's attribute/tile blob.
type IndexEntry struct {
	Offset int64
	Size   int32
}

// MasterIndex is the TDF file's top-level name directory.
type MasterIndex struct {
	Datasets map[string]IndexEntry
	Groups   map[string]IndexEntry
}

func readEntryMap(buf big.RomBuffer) (map[string]IndexEntry, error) {
	n, err := buf.GetInt()
	if err != nil {
		return nil, err
	}
	out := make(map[string]IndexEntry, n)
	for i := int32(0); i < n; i++ {
		name, err := buf.GetCString()
		if err != nil {
			return nil, err
		}
		offset, err := buf.GetLong()
		if err != nil {
			return nil, err
		}
		size, err := buf.GetInt()
		if err != nil {
			return nil, err
		}
		out[name] = IndexEntry{Offset: offset, Size: size}
	}
	return out, nil
}

// ReadMasterIndex decodes the master index at header.IndexOffset. buf must
// already be positioned there (see openFromFactory).
func ReadMasterIndex(buf big.RomBuffer) (*MasterIndex, error) {
	datasets, err := readEntryMap(buf)
	if err != nil {
		return nil, err
	}
	groups, err := readEntryMap(buf)
	if err != nil {
		return nil, err
	}
	return &MasterIndex{Datasets: datasets, Groups: groups}, nil
}

// Lookup resolves name in the dataset map, per spec §6's NoSuchElement
// contract for reader lookup misses.
func (m *MasterIndex) Lookup(name string) (IndexEntry, error) {
	entry, ok := m.Datasets[name]
	if !ok {
		return IndexEntry{}, &big.NoSuchElement{Name: name}
	}
	return entry, nil
}

// LookupGroup resolves name in the group (attribute-only) map.
func (m *MasterIndex) LookupGroup(name string) (IndexEntry, error) {
	entry, ok := m.Groups[name]
	if !ok {
		return IndexEntry{}, &big.NoSuchElement{Name: name}
	}
	return entry, nil
}
