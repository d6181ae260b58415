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

package big

/* -------------------------------------------------------------------------- */

// Interval is a half-open span on a single chromosome, the unit both the
// WIG and BED record codecs decode against. It is distinct from
// GenomicInterval, which can span chromosomes the way R+ tree bounding
// boxes do.
type Interval struct {
	ChromIx int32
	Start   int32
	End     int32
}

func (a Interval) intersects(b Interval) bool {
	return a.ChromIx == b.ChromIx && a.Start < b.End && b.Start < a.End
}

func (a Interval) containedIn(b Interval) bool {
	return a.ChromIx == b.ChromIx && a.Start >= b.Start && a.End <= b.End
}

// consistent reports whether candidate satisfies the query per spec §4.6:
// intersecting it when overlaps is set, or fully contained in it
// otherwise.
func consistent(candidate, query Interval, overlaps bool) bool {
	if overlaps {
		return candidate.intersects(query)
	}
	return candidate.containedIn(query)
}
