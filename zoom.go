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

// The zoom-level pyramid: fixed-width binned BigSummary records, one R+
// tree per reduction level. Grounded on track_bigWig.go's
// writeBigWig_reductionLevels/WriteZoom structure (loop over reduction
// levels, write data then an index per level, append a header.ZoomHeaders
// entry), with the reduction-level arithmetic itself taken from spec §4.8
// step 7 rather than the teacher's heuristic (see DESIGN.md).
package big

import "sort"

/* -------------------------------------------------------------------------- */

// ZoomRecord is one fixed-width bin of aggregated statistics at a given
// reduction level, the UCSC "zoom data" record.
type ZoomRecord struct {
	Interval Interval
	Summary  Summary
}

func decodeZoomBlock(buf RomBuffer, size int64) ([]ZoomRecord, error) {
	var out []ZoomRecord
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
		validCount, err := buf.GetUnsignedInt()
		if err != nil {
			return nil, err
		}
		minVal, err := buf.GetFloat()
		if err != nil {
			return nil, err
		}
		maxVal, err := buf.GetFloat()
		if err != nil {
			return nil, err
		}
		sumData, err := buf.GetFloat()
		if err != nil {
			return nil, err
		}
		sumSquares, err := buf.GetFloat()
		if err != nil {
			return nil, err
		}
		out = append(out, ZoomRecord{
			Interval: Interval{ChromIx: chromIx, Start: start, End: end},
			Summary: Summary{
				Count:      int64(validCount),
				MinValue:   float64(minVal),
				MaxValue:   float64(maxVal),
				Sum:        float64(sumData),
				SumSquares: float64(sumSquares),
			},
		})
	}
	return out, nil
}

func writeZoomRecord(out *OrderedDataOutput, r ZoomRecord) error {
	if err := out.WriteInt(r.Interval.ChromIx); err != nil {
		return err
	}
	if err := out.WriteInt(r.Interval.Start); err != nil {
		return err
	}
	if err := out.WriteInt(r.Interval.End); err != nil {
		return err
	}
	if err := out.WriteUnsignedInt(uint32(r.Summary.Count)); err != nil {
		return err
	}
	if err := out.WriteFloat(float32(r.Summary.MinValue)); err != nil {
		return err
	}
	if err := out.WriteFloat(float32(r.Summary.MaxValue)); err != nil {
		return err
	}
	if err := out.WriteFloat(float32(r.Summary.Sum)); err != nil {
		return err
	}
	return out.WriteFloat(float32(r.Summary.SumSquares))
}

/* -------------------------------------------------------------------------- */

// binnedRecord is one (interval, value) observation fed into the zoom
// builder, format-agnostic: a WigSection record carries its decoded
// value, a BedEntry contributes a unit coverage value (the standard
// BigBED "feature density" zoom semantic).
type binnedRecord struct {
	interval Interval
	value    float64
}

// buildZoomLevel aggregates records into reduction-wide bins per
// chromosome and returns the resulting zoom records, sorted by
// (chromIx, start) the way WriteRTree expects its entries pre-sort
// candidates.
func buildZoomLevel(records []binnedRecord, reduction int32) []ZoomRecord {
	bins := make(map[int64]*ZoomRecord)
	keyOf := func(chromIx int32, binIdx int64) int64 {
		return int64(chromIx)<<32 | (binIdx & 0xffffffff)
	}
	for _, rec := range records {
		startBin := int64(rec.interval.Start) / int64(reduction)
		endBin := int64(rec.interval.End-1) / int64(reduction)
		for b := startBin; b <= endBin; b++ {
			k := keyOf(rec.interval.ChromIx, b)
			zr, ok := bins[k]
			if !ok {
				binStart := int32(b * int64(reduction))
				binEnd := binStart + reduction
				zr = &ZoomRecord{
					Interval: Interval{ChromIx: rec.interval.ChromIx, Start: binStart, End: binEnd},
					Summary:  EmptySummary(),
				}
				bins[k] = zr
			}
			zr.Summary = zr.Summary.AddValue(rec.value, 1)
		}
	}
	out := make([]ZoomRecord, 0, len(bins))
	for _, zr := range bins {
		out = append(out, *zr)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Interval, out[j].Interval
		return a.ChromIx < b.ChromIx || (a.ChromIx == b.ChromIx && a.Start < b.Start)
	})
	return out
}
