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

// TDF tile decode (spec §4.9): each tile opens with a leading C-string
// type tag dispatching to one of three shapes, all carrying parallel
// per-track FloatArrays of a common length. Mirrors big/wig.go's block
// type-tag dispatch (fixed/variable/bedGraph), the closest analogue in
// this module to TDF's fixed/variable/bed tile split.
package tdf

import "fmt"

import big "github.com/superbobry/big"

/* -------------------------------------------------------------------------- */

// TileType identifies which of the three TDF tile shapes a Tile holds.
type TileType uint8

const (
	TileFixed TileType = iota
	TileVariable
	TileBed
)

const (
	tagFixedStep    = "fixedStep"
	tagVariableStep = "variableStep"
	tagBed          = "bed"
	tagBedWithName  = "bedWithName"
)

// Tile is one TDF data tile: a fixed, variable, or bed-shaped grid of
// per-track float values.
type Tile interface {
	Type() TileType
	NumTracks() int
	Len() int
	// Value returns track t's value at row idx. Per spec §4.9's decoder
	// note, callers (and this package) always index as (trackNumber, idx)
	// consistently — never the getValue(0, b) swap the original TdfUtil
	// dump bug made.
	Value(t, idx int) float32
	// Start and End return row idx's genomic span.
	Start(idx int) int32
	End(idx int) int32
}

/* -------------------------------------------------------------------------- */

// FixedTile is a fixedStep tile: row i covers [start+i*span, start+(i+1)*span).
type FixedTile struct {
	TileStart int32
	Span      float32
	Values    [][]float32 // Values[track][row]
}

func (t *FixedTile) Type() TileType { return TileFixed }
func (t *FixedTile) NumTracks() int { return len(t.Values) }

func (t *FixedTile) Len() int {
	if len(t.Values) == 0 {
		return 0
	}
	return len(t.Values[0])
}

func (t *FixedTile) Value(tr, idx int) float32 { return t.Values[tr][idx] }
func (t *FixedTile) Start(idx int) int32       { return t.TileStart + int32(float32(idx)*t.Span) }
func (t *FixedTile) End(idx int) int32         { return t.TileStart + int32(float32(idx+1)*t.Span) }

// VariableTile is a variableStep tile: row i covers [Positions[i], Positions[i]+Span).
type VariableTile struct {
	Positions []int32
	Span      float32
	Values    [][]float32
}

func (t *VariableTile) Type() TileType            { return TileVariable }
func (t *VariableTile) NumTracks() int            { return len(t.Values) }
func (t *VariableTile) Len() int                  { return len(t.Positions) }
func (t *VariableTile) Value(tr, idx int) float32 { return t.Values[tr][idx] }
func (t *VariableTile) Start(idx int) int32       { return t.Positions[idx] }
func (t *VariableTile) End(idx int) int32         { return t.Positions[idx] + int32(t.Span) }

// BedTile is a bed tile: row i covers [Starts[i], Ends[i]). A bedWithName
// tile decodes into this same shape, its trailing name array dropped
// (spec §4.9 design note: "the trailing name array is silently dropped").
type BedTile struct {
	Starts []int32
	Ends   []int32
	Values [][]float32
}

func (t *BedTile) Type() TileType            { return TileBed }
func (t *BedTile) NumTracks() int            { return len(t.Values) }
func (t *BedTile) Len() int                  { return len(t.Starts) }
func (t *BedTile) Value(tr, idx int) float32 { return t.Values[tr][idx] }
func (t *BedTile) Start(idx int) int32       { return t.Starts[idx] }
func (t *BedTile) End(idx int) int32         { return t.Ends[idx] }

/* -------------------------------------------------------------------------- */

func readTrackValues(buf big.RomBuffer, nTracks, nRows int) ([][]float32, error) {
	values := make([][]float32, nTracks)
	for t := 0; t < nTracks; t++ {
		row, err := buf.GetFloats(nRows)
		if err != nil {
			return nil, err
		}
		values[t] = row
	}
	return values, nil
}

// decodeTile reads one tile from buf, which must already be positioned at
// its start (immediately after decompression, if the file is compressed).
func decodeTile(buf big.RomBuffer) (Tile, error) {
	tag, err := buf.GetCString()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagFixedStep:
		start, err := buf.GetInt()
		if err != nil {
			return nil, err
		}
		span, err := buf.GetFloat()
		if err != nil {
			return nil, err
		}
		nBins, err := buf.GetInt()
		if err != nil {
			return nil, err
		}
		nTracks, err := buf.GetInt()
		if err != nil {
			return nil, err
		}
		values, err := readTrackValues(buf, int(nTracks), int(nBins))
		if err != nil {
			return nil, err
		}
		return &FixedTile{TileStart: start, Span: span, Values: values}, nil

	case tagVariableStep:
		span, err := buf.GetFloat()
		if err != nil {
			return nil, err
		}
		nPositions, err := buf.GetInt()
		if err != nil {
			return nil, err
		}
		positions, err := buf.GetInts(int(nPositions))
		if err != nil {
			return nil, err
		}
		nTracks, err := buf.GetInt()
		if err != nil {
			return nil, err
		}
		values, err := readTrackValues(buf, int(nTracks), int(nPositions))
		if err != nil {
			return nil, err
		}
		return &VariableTile{Positions: positions, Span: span, Values: values}, nil

	case tagBed, tagBedWithName:
		nFeatures, err := buf.GetInt()
		if err != nil {
			return nil, err
		}
		starts, err := buf.GetInts(int(nFeatures))
		if err != nil {
			return nil, err
		}
		ends, err := buf.GetInts(int(nFeatures))
		if err != nil {
			return nil, err
		}
		nTracks, err := buf.GetInt()
		if err != nil {
			return nil, err
		}
		values, err := readTrackValues(buf, int(nTracks), int(nFeatures))
		if err != nil {
			return nil, err
		}
		if tag == tagBedWithName {
			// Trailing per-feature name strings; read and discard so the
			// cursor lands correctly for any caller that keeps reading
			// past this tile, per spec §4.9/§9.
			for i := int32(0); i < nFeatures; i++ {
				if _, err := buf.GetCString(); err != nil {
					return nil, err
				}
			}
		}
		return &BedTile{Starts: starts, Ends: ends, Values: values}, nil

	default:
		return nil, &big.FormatError{Where: "tdf tile", Msg: fmt.Sprintf("unknown tile type tag `%s'", tag)}
	}
}
