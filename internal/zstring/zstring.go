// Package zstring implements the Z-machine's packed text encoding: the
// three shiftable 5-bit alphabets, abbreviation indirection, and the
// ZSCII<->Unicode translation used at the edges.
package zstring

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/haldane-ifs/zengine/internal/memory"
)

const endOfStreamBit = 0x8000

// unpackZchars reads 16-bit words from address until the terminator bit
// is set, unpacking three 5-bit z-characters per word.
func unpackZchars(img *memory.Image, address uint32) ([]uint8, uint32) {
	var zchars []uint8
	ptr := address
	for {
		word := img.ReadWord(ptr)
		ptr += 2
		zchars = append(zchars, uint8((word>>10)&0x1f), uint8((word>>5)&0x1f), uint8(word&0x1f))
		if word&endOfStreamBit != 0 {
			break
		}
	}
	return zchars, ptr - address
}

// Decode reads a Z-string starting at address, returning the decoded
// text and the number of bytes consumed from the image (not counting
// abbreviation tables, which live elsewhere in memory). Abbreviations
// cannot themselves reference abbreviations; encountering one while
// already expanding one is a fatal decode error.
func Decode(img *memory.Image, alphabets *Alphabets, address uint32) (string, uint32, error) {
	return decode(img, alphabets, address, false)
}

func decode(img *memory.Image, alphabets *Alphabets, address uint32, inAbbreviation bool) (string, uint32, error) {
	zchars, bytesRead := unpackZchars(img, address)

	var sb strings.Builder
	alphabet := 0

	for i := 0; i < len(zchars); i++ {
		zc := zchars[i]

		switch {
		case zc == 0:
			sb.WriteByte(' ')
			alphabet = 0

		case zc >= 1 && zc <= 3:
			if inAbbreviation {
				return "", 0, fmt.Errorf("illegal nested abbreviation at address 0x%x", address)
			}
			if i+1 >= len(zchars) {
				return "", 0, fmt.Errorf("truncated abbreviation escape at address 0x%x", address)
			}
			next := zchars[i+1]
			text, err := decodeAbbreviation(img, alphabets, 32*(int(zc)-1)+int(next))
			if err != nil {
				return "", 0, err
			}
			sb.WriteString(text)
			alphabet = 0
			i++

		case zc == 4:
			alphabet = 1

		case zc == 5:
			alphabet = 2

		case alphabet == 2 && zc == 6:
			if i+2 >= len(zchars) {
				return "", 0, fmt.Errorf("truncated zscii escape at address 0x%x", address)
			}
			code := zchars[i+1]<<5 | zchars[i+2]
			sb.WriteRune(ZsciiToRune(code, img))
			alphabet = 0
			i += 2

		default:
			table := alphabets.table(alphabet)
			idx := int(zc) - 6
			if idx < 0 || idx >= len(table) || table[idx] == 0 {
				sb.WriteByte('?')
			} else {
				sb.WriteByte(table[idx])
			}
			alphabet = 0
		}
	}

	return sb.String(), bytesRead, nil
}

func decodeAbbreviation(img *memory.Image, alphabets *Alphabets, index int) (string, error) {
	tableAddr := uint32(img.AbbreviationTableBase) + uint32(index)*2
	wordAddr := img.ReadWord(tableAddr)
	strAddr := uint32(wordAddr) * 2
	text, _, err := decode(img, alphabets, strAddr, true)
	return text, err
}

func indexOfByte(table [26]uint8, b uint8, skipZero bool) int {
	for i, c := range table {
		if skipZero && i == 0 {
			continue
		}
		if c == b {
			return i
		}
	}
	return -1
}

// Encode produces the fixed-length dictionary key form used for
// tokenising player input and matching against the dictionary: 4 bytes
// (v3, 3 z-characters per word over 2 words, trimmed at 4 source
// characters with padding) or 6 bytes (v4+, 3 words), padded with z-char 5
// and terminated by setting the top bit of the final word. Input is
// case-folded to lowercase by the caller before this is reached, per
// the dictionary's match semantics.
func Encode(input []rune, img *memory.Image, alphabets *Alphabets) []uint8 {
	slots := 6
	if img.Version >= 4 {
		slots = 9
	}

	zchars := make([]uint8, 0, slots)
	for _, r := range input {
		if len(zchars) >= slots {
			break
		}
		if r > 0xff {
			zchars = append(zchars, 0)
			continue
		}
		b := uint8(r)

		if idx := indexOfByte(alphabets.A0, b, false); idx >= 0 {
			zchars = append(zchars, uint8(idx+6))
			continue
		}
		if idx := indexOfByte(alphabets.A1, b, false); idx >= 0 {
			zchars = append(zchars, 4, uint8(idx+6))
			continue
		}
		if idx := indexOfByte(alphabets.A2, b, true); idx >= 1 {
			zchars = append(zchars, 5, uint8(idx+6))
			continue
		}
		if code, ok := RuneToZscii(r, img); ok {
			zchars = append(zchars, 5, 6, code>>5, code&0x1f)
			continue
		}
		zchars = append(zchars, 0) // unencodable: fall back to a space
	}

	if len(zchars) > slots {
		zchars = zchars[:slots]
	}
	for len(zchars) < slots {
		zchars = append(zchars, 5)
	}

	out := make([]uint8, slots/3*2)
	for w := 0; w < slots/3; w++ {
		word := uint16(zchars[w*3])<<10 | uint16(zchars[w*3+1])<<5 | uint16(zchars[w*3+2])
		if w == slots/3-1 {
			word |= endOfStreamBit
		}
		binary.BigEndian.PutUint16(out[w*2:], word)
	}
	return out
}
