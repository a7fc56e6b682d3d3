// Package ztable implements the VAR opcodes that treat a span of
// memory as a packed table: scan_table, copy_table and print_table.
package ztable

import (
	"strings"

	"github.com/haldane-ifs/zengine/internal/memory"
)

// PrintTable renders a width x height block of text starting at baddr,
// skipping skip bytes at the start of each row beyond the first.
func PrintTable(img *memory.Image, baddr uint32, width, height, skip uint16) string {
	s := strings.Builder{}
	for row := uint16(0); row < height; row++ {
		if row != 0 {
			s.WriteByte('\n')
		}
		rowStart := baddr + uint32(row)*(uint32(width)+uint32(skip))
		for col := uint16(0); col < width; col++ {
			s.WriteByte(img.ReadByte(rowStart + uint32(col)))
		}
	}
	return s.String()
}

// ScanTable searches length entries of fieldSize bytes (taken from the
// low 7 bits of form; bit 7 set means a 2-byte field) for test, returning
// the address of the first match or 0.
func ScanTable(img *memory.Image, test uint16, baddr uint32, length uint16, form uint16) uint32 {
	ptr := baddr
	fieldSize := form & 0b0111_1111
	checkWord := form&0b1000_0000 != 0
	if fieldSize == 0 {
		return 0
	}

	for i := uint16(0); i < length; i++ {
		var value uint16
		if checkWord {
			value = img.ReadWord(ptr)
		} else {
			value = uint16(img.ReadByte(ptr))
		}
		if value == test {
			return ptr
		}
		ptr += uint32(fieldSize)
	}
	return 0
}

// CopyTable copies |size| bytes from first to second. A positive size
// copies as if through a temporary buffer, so overlapping ranges are
// safe; a negative size copies forward byte by byte even when the
// ranges overlap. second == 0 zero-fills first instead of copying.
func CopyTable(img *memory.Image, first, second uint32, size int16) {
	count := uint32(size)
	if size < 0 {
		count = uint32(-int32(size))
	}

	if second == 0 {
		for i := uint32(0); i < count; i++ {
			img.WriteByte(first+i, 0)
		}
		return
	}

	if size >= 0 {
		tmp := make([]uint8, count)
		copy(tmp, img.ReadSlice(first, first+count))
		for i, b := range tmp {
			img.WriteByte(second+uint32(i), b)
		}
		return
	}

	for i := uint32(0); i < count; i++ {
		img.WriteByte(second+i, img.ReadByte(first+i))
	}
}
