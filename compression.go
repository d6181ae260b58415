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

import "bytes"
import "io"

import "github.com/golang/snappy"
import "github.com/klauspost/compress/zlib"

/* -------------------------------------------------------------------------- */

// Compression identifies the per-block compression scheme a BigFile uses.
// The teacher (bbi.go's compressSlice/uncompressSlice) hardcodes zlib; this
// generalizes to the spec's three-way choice, using klauspost/compress for
// the zlib path instead of the standard library's compress/zlib.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionDeflate
	CompressionSnappy
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionDeflate:
		return "deflate"
	case CompressionSnappy:
		return "snappy"
	default:
		return "unknown"
	}
}

/* -------------------------------------------------------------------------- */

func decompressBlock(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionDeflate:
		z, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, wrapIo("decompress(deflate)", err)
		}
		defer z.Close()
		out, err := io.ReadAll(z)
		if err != nil {
			return nil, wrapIo("decompress(deflate)", err)
		}
		return out, nil
	case CompressionSnappy:
		out, err := snappy.Decode(nil, data)
		if err != nil {
			return nil, wrapIo("decompress(snappy)", err)
		}
		return out, nil
	default:
		return nil, &UnsupportedCompression{Tag: c}
	}
}

func compressBlock(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionDeflate:
		var b bytes.Buffer
		w, err := zlib.NewWriterLevel(&b, zlib.BestCompression)
		if err != nil {
			return nil, wrapIo("compress(deflate)", err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, wrapIo("compress(deflate)", err)
		}
		if err := w.Close(); err != nil {
			return nil, wrapIo("compress(deflate)", err)
		}
		return b.Bytes(), nil
	case CompressionSnappy:
		return snappy.Encode(nil, data), nil
	default:
		return nil, &UnsupportedCompression{Tag: c}
	}
}
