package zstring

import "github.com/haldane-ifs/zengine/internal/memory"

// Alphabets holds the three 26-entry z-character tables used by the
// text codec. Versions below 5, and v5+ stories that don't set the
// header's alphabet-table address, use the defaults from the Standard;
// v5+ can override all three tables via a table in memory.
type Alphabets struct {
	A0 [26]uint8
	A1 [26]uint8
	A2 [26]uint8
}

var defaultA0 = [26]uint8{'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h', 'i', 'j', 'k', 'l', 'm', 'n', 'o', 'p', 'q', 'r', 's', 't', 'u', 'v', 'w', 'x', 'y', 'z'}
var defaultA1 = [26]uint8{'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', 'M', 'N', 'O', 'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z'}

// defaultA2 is indexed by (zchar-6); slot 0 (zchar 6) is never read
// through this table since zchar 6 in A2 begins a 10-bit ZSCII escape
// rather than naming a table entry.
var defaultA2 = [26]uint8{0, '\n', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9', '.', ',', '!', '?', '_', '#', '\'', '"', '/', '\\', '-', ':', '(', ')'}

// Load builds the Alphabets for an image, honouring a v5+ custom
// alphabet table when the header declares one.
func Load(img *memory.Image) *Alphabets {
	a := &Alphabets{A0: defaultA0, A1: defaultA1, A2: defaultA2}

	if img.Version >= 5 && img.AlphabetTableBase != 0 {
		base := uint32(img.AlphabetTableBase)
		for i := 0; i < 26; i++ {
			a.A0[i] = img.ReadByte(base + uint32(i))
			a.A1[i] = img.ReadByte(base + 26 + uint32(i))
			a.A2[i] = img.ReadByte(base + 52 + uint32(i))
		}
		a.A2[1] = '\n' // z-char 7 in A2 is always newline, even under a custom table
	}

	return a
}

func (a *Alphabets) table(alphabet int) [26]uint8 {
	switch alphabet {
	case 0:
		return a.A0
	case 1:
		return a.A1
	default:
		return a.A2
	}
}
