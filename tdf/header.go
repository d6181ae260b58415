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

// TDF header decode (spec §4.9): a 24-byte fixed prefix, always little
// endian, followed by a variable block of strings and a flags word. No
// example repo in the retrieval pack carries TDF, so the codec follows
// the wire layout spec §4.9 states directly, using the same
// header-struct-plus-Read(RomBuffer) idiom as big.ReadBigFileHeader
// (big/header.go).
package tdf

import "encoding/binary"

import big "github.com/superbobry/big"

/* -------------------------------------------------------------------------- */

const (
	magicTDF = "TDF4"
	magicIBF = "IBF4"
)

// flagCompressed marks every tile in the file as deflate-compressed.
const flagCompressed = 0x1

// Header is the fixed-plus-variable TDF preamble (spec §4.9).
type Header struct {
	Magic       string
	Version     int32
	IndexOffset int64
	IndexSize   int32
	HeaderSize  int32

	WindowFunctions []string
	TrackType       string
	TrackLine       string
	TrackNames      []string
	Build           string
	Flags           int32
}

// Compressed reports whether tile bytes in this file are deflate
// compressed before being written (flags & 0x1, per spec §4.9).
func (h *Header) Compressed() bool { return h.Flags&flagCompressed != 0 }

// ReadHeader decodes the TDF header from buf, which must be positioned at
// offset 0. TDF is always little-endian (spec §4.9), unlike BigWIG/BigBED's
// detected byte order.
func ReadHeader(buf big.RomBuffer) (*Header, error) {
	magicBytes, err := buf.GetBytes(4)
	if err != nil {
		return nil, err
	}
	magic := string(magicBytes)
	if magic != magicTDF && magic != magicIBF {
		return nil, &big.BadSignature{Expected: binary.LittleEndian.Uint32([]byte(magicTDF)), Got: binary.LittleEndian.Uint32(magicBytes)}
	}

	version, err := buf.GetInt()
	if err != nil {
		return nil, err
	}
	indexOffset, err := buf.GetLong()
	if err != nil {
		return nil, err
	}
	indexSize, err := buf.GetInt()
	if err != nil {
		return nil, err
	}
	headerSize, err := buf.GetInt()
	if err != nil {
		return nil, err
	}

	h := &Header{
		Magic:       magic,
		Version:     version,
		IndexOffset: indexOffset,
		IndexSize:   indexSize,
		HeaderSize:  headerSize,
	}

	nWindowFns, err := buf.GetInt()
	if err != nil {
		return nil, err
	}
	h.WindowFunctions = make([]string, nWindowFns)
	for i := range h.WindowFunctions {
		h.WindowFunctions[i], err = buf.GetCString()
		if err != nil {
			return nil, err
		}
	}

	if h.TrackType, err = buf.GetCString(); err != nil {
		return nil, err
	}
	if h.TrackLine, err = buf.GetCString(); err != nil {
		return nil, err
	}

	nTracks, err := buf.GetInt()
	if err != nil {
		return nil, err
	}
	h.TrackNames = make([]string, nTracks)
	for i := range h.TrackNames {
		h.TrackNames[i], err = buf.GetCString()
		if err != nil {
			return nil, err
		}
	}

	if h.Build, err = buf.GetCString(); err != nil {
		return nil, err
	}
	if h.Flags, err = buf.GetInt(); err != nil {
		return nil, err
	}
	return h, nil
}
