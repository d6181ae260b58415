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

import "fmt"

import "github.com/pkg/errors"

/* -------------------------------------------------------------------------- */

// IoError wraps a failure of the underlying file handle or mmap.
type IoError struct {
	Op  string
	Err error
}

func (e *IoError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *IoError) Unwrap() error { return e.Err }

func wrapIo(op string, err error) error {
	if err == nil {
		return nil
	}
	return &IoError{Op: op, Err: errors.WithStack(err)}
}

/* -------------------------------------------------------------------------- */

// FormatError reports a structurally invalid on-disk record.
type FormatError struct {
	Where string
	Msg   string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error in %s: %s", e.Where, e.Msg)
}

func formatErrorf(where, format string, args ...interface{}) error {
	return &FormatError{Where: where, Msg: fmt.Sprintf(format, args...)}
}

/* -------------------------------------------------------------------------- */

// TruncatedError is returned when a read runs past the end of the region a
// RomBuffer was opened over.
type TruncatedError struct {
	Requested int
	Available int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("truncated read: requested %d bytes, %d available", e.Requested, e.Available)
}

/* -------------------------------------------------------------------------- */

// UnsupportedVersion is returned for a BigFile version outside [3, 5].
type UnsupportedVersion struct {
	Version uint16
}

func (e *UnsupportedVersion) Error() string {
	return fmt.Sprintf("unsupported bigWig/bigBed version `%d'", e.Version)
}

/* -------------------------------------------------------------------------- */

// UnsupportedCompression is returned for a compression tag this package
// doesn't decode.
type UnsupportedCompression struct {
	Tag Compression
}

func (e *UnsupportedCompression) Error() string {
	return fmt.Sprintf("unsupported compression `%d'", e.Tag)
}

/* -------------------------------------------------------------------------- */

// BadSignature is returned when neither byte order makes a file's leading
// magic number match the expected one.
type BadSignature struct {
	Expected uint32
	Got      uint32
}

func (e *BadSignature) Error() string {
	return fmt.Sprintf("bad signature: expected magic `0x%x', got `0x%x' in either byte order", e.Expected, e.Got)
}

/* -------------------------------------------------------------------------- */

// SortOrderError is returned by the writer when input sections are not
// sorted by chromosome then start, or overlap on the same chromosome.
type SortOrderError struct {
	Msg string
}

func (e *SortOrderError) Error() string { return "sort order violation: " + e.Msg }

/* -------------------------------------------------------------------------- */

// DuplicateKey is returned by the B+ tree writer when a chromosome name
// appears more than once.
type DuplicateKey struct {
	Key string
}

func (e *DuplicateKey) Error() string { return fmt.Sprintf("duplicate key `%s'", e.Key) }

/* -------------------------------------------------------------------------- */

// NoSuchElement is returned by lookups that miss: an unknown chromosome name,
// or (in package tdf) an unknown dataset/group.
type NoSuchElement struct {
	Name string
}

func (e *NoSuchElement) Error() string { return fmt.Sprintf("no such element `%s'", e.Name) }
