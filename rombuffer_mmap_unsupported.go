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

//go:build !linux && !darwin

package big

import "encoding/binary"

/* -------------------------------------------------------------------------- */

// NewMmapRomBufferFactory is unavailable outside 64-bit Linux/macOS; use
// NewThreadSafeRomBufferFactory or NewSharedRomBufferFactory instead.
func NewMmapRomBufferFactory(path string, order binary.ByteOrder) (RomBufferFactory, error) {
	return nil, formatErrorf("NewMmapRomBufferFactory", "memory-mapped RomBuffer is only supported on linux and darwin")
}
