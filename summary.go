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

import "math"

/* -------------------------------------------------------------------------- */

// Summary is the running-statistics monoid attached to a BigFile as a whole
// (the header's total-summary slot) and to every zoom-level record.
type Summary struct {
	Count      int64
	MinValue   float64
	MaxValue   float64
	Sum        float64
	SumSquares float64
}

// EmptySummary is the identity element of Plus.
func EmptySummary() Summary {
	return Summary{
		Count:    0,
		MinValue: math.Inf(1),
		MaxValue: math.Inf(-1),
	}
}

// AddValue folds a single observation covering span base pairs into s.
func (s Summary) AddValue(value float64, span int64) Summary {
	if math.IsNaN(value) {
		return s
	}
	s.Count += span
	if value < s.MinValue {
		s.MinValue = value
	}
	if value > s.MaxValue {
		s.MaxValue = value
	}
	s.Sum += value * float64(span)
	s.SumSquares += value * value * float64(span)
	return s
}

// Plus combines two summaries. Plus is commutative and associative and
// EmptySummary() is its identity, so a slice of Summary values reduces the
// same way regardless of grouping or order. The zoom builder does not call
// Plus: it accumulates bins with AddValue and runs one job per zoom level.
func (s Summary) Plus(other Summary) Summary {
	if other.Count == 0 {
		return s
	}
	if s.Count == 0 {
		return other
	}
	return Summary{
		Count:      s.Count + other.Count,
		MinValue:   math.Min(s.MinValue, other.MinValue),
		MaxValue:   math.Max(s.MaxValue, other.MaxValue),
		Sum:        s.Sum + other.Sum,
		SumSquares: s.SumSquares + other.SumSquares,
	}
}

// Mean returns the count-weighted mean, or NaN if Count is zero.
func (s Summary) Mean() float64 {
	if s.Count == 0 {
		return math.NaN()
	}
	return s.Sum / float64(s.Count)
}
