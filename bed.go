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

// The BigBED data block codec. The teacher carries no BigBED support at
// all; the field layout and per-chromosome query dispatch are grounded on
// other_examples/nimezhu-indexed__bigbed.go, and the tab-separated "rest"
// field vocabulary on the teacher's own track_bed.go/granges_bed.go.
package big

/* -------------------------------------------------------------------------- */

// BedEntry is one decoded BigBED feature record. Rest holds every field
// past chromEnd, still tab-separated, exactly as it was written (no
// AutoSql-driven parsing — see spec §1 Non-goals).
type BedEntry struct {
	ChromIx int32
	Start   int32
	End     int32
	Rest    string
}

func (e BedEntry) interval() Interval {
	return Interval{ChromIx: e.ChromIx, Start: e.Start, End: e.End}
}

/* -------------------------------------------------------------------------- */

// decodeBedBlock parses every record of one decompressed BigBED data
// block, which is exactly size bytes long. Records are sorted by
// (chromIx, start) on disk.
func decodeBedBlock(buf RomBuffer, size int64) ([]BedEntry, error) {
	var entries []BedEntry
	for buf.Tell() < size {
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
		rest, err := buf.GetCString()
		if err != nil {
			return nil, err
		}
		entries = append(entries, BedEntry{ChromIx: chromIx, Start: start, End: end, Rest: rest})
	}
	return entries, nil
}

// filterBedBlock applies the consistency test and short-circuit of spec
// §4.7 (identical to §4.6, minus fixed-step realignment, which does not
// apply to BED records).
func filterBedBlock(entries []BedEntry, query Interval, overlaps bool) []BedEntry {
	var out []BedEntry
	matched := false
	for _, e := range entries {
		if consistent(e.interval(), query, overlaps) {
			matched = true
			out = append(out, e)
		} else if matched {
			break
		}
	}
	return out
}

/* -------------------------------------------------------------------------- */

// WriteBedBlock writes entries as a single compressed data block and
// returns the number of uncompressed bytes written.
func WriteBedBlock(out *OrderedDataOutput, entries []BedEntry, compression Compression) (int, error) {
	return out.With(compression, func(w *OrderedDataOutput) error {
		for _, e := range entries {
			if err := w.WriteInt(e.ChromIx); err != nil {
				return err
			}
			if err := w.WriteInt(e.Start); err != nil {
				return err
			}
			if err := w.WriteInt(e.End); err != nil {
				return err
			}
			if err := w.WriteCString(e.Rest); err != nil {
				return err
			}
		}
		return nil
	})
}
