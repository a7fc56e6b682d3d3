package zstring

import "github.com/haldane-ifs/zengine/internal/memory"

// DefaultUnicodeTranslationTable is the Standard's default mapping from
// ZSCII codes 155..251 to Unicode code points, used whenever a story
// doesn't supply its own table via the header extension area.
var DefaultUnicodeTranslationTable = [...]rune{
	'ä', 'ö', 'ü', 'Ä', 'Ö', 'Ü', 'ß', '»', '«', 'ë', 'ï', 'ÿ', 'Ë', 'Ï',
	'á', 'é', 'í', 'ó', 'ú', 'ý', 'Á', 'É', 'Í', 'Ó', 'Ú', 'Ý',
	'à', 'è', 'ì', 'ò', 'ù', 'À', 'È', 'Ì', 'Ò', 'Ù',
	'â', 'ê', 'î', 'ô', 'û', 'Â', 'Ê', 'Î', 'Ô', 'Û',
	'å', 'Å', 'ø', 'Ø', 'ã', 'ñ', 'õ', 'Ã', 'Ñ', 'Õ',
	'æ', 'Æ', 'ç', 'Ç', 'þ', 'ð', 'Þ', 'Ð', '£', 'œ', 'Œ', '¡', '¿',
}

func unicodeTable(img *memory.Image) []rune {
	if img.ExtensionTableBase == 0 {
		return DefaultUnicodeTranslationTable[:]
	}
	base := uint32(img.ExtensionTableBase)
	// Word 3 of the header extension table (if present) gives the
	// address of a custom unicode translation table: count byte
	// followed by that many ZSCII-order code points.
	if img.ReadWord(base) < 3 {
		return DefaultUnicodeTranslationTable[:]
	}
	unicodeTableAddr := img.ReadWord(base + 6)
	if unicodeTableAddr == 0 {
		return DefaultUnicodeTranslationTable[:]
	}
	count := img.ReadByte(uint32(unicodeTableAddr))
	table := make([]rune, count)
	for i := range table {
		table[i] = rune(img.ReadWord(uint32(unicodeTableAddr) + 1 + uint32(i)*2))
	}
	return table
}

// ZsciiToRune converts an output ZSCII code to a displayable rune.
// Codes outside the known ranges decode to the replacement rune ' '.
func ZsciiToRune(code uint8, img *memory.Image) rune {
	switch {
	case code == 0:
		return 0
	case code == 13:
		return '\n'
	case code >= 32 && code <= 126:
		return rune(code)
	case code >= 155 && code <= 251:
		table := unicodeTable(img)
		ix := int(code) - 155
		if ix < len(table) {
			return table[ix]
		}
		return ' '
	default:
		return ' '
	}
}

// RuneToZscii converts an input rune back to a ZSCII code for encoding,
// reporting false for runes with no representation.
func RuneToZscii(r rune, img *memory.Image) (uint8, bool) {
	switch {
	case r == '\n':
		return 13, true
	case r >= 32 && r <= 126:
		return uint8(r), true
	default:
		table := unicodeTable(img)
		for ix, candidate := range table {
			if candidate == r {
				return uint8(155 + ix), true
			}
		}
		return 0, false
	}
}
