// Package dictionary parses a Z-machine dictionary table and provides
// the tokeniser used to split player input for the read/sread and
// tokenise opcodes.
package dictionary

import (
	"bytes"
	"sort"

	"github.com/haldane-ifs/zengine/internal/memory"
	"github.com/haldane-ifs/zengine/internal/zstring"
)

// Header is the fixed-size prefix of a dictionary table.
type Header struct {
	Separators []uint8
	EntryLen   uint8
	Sorted     bool
	Count      int
}

// Entry is one dictionary word: its address (for storing into the
// parse buffer) and the encoded key used to match tokenised input.
type Entry struct {
	Address     uint16
	EncodedWord []uint8
}

// Dictionary is a parsed table, ready for lookups.
type Dictionary struct {
	Header  Header
	entries []Entry
}

// Parse reads the dictionary table located at baseAddress.
func Parse(img *memory.Image, baseAddress uint32) *Dictionary {
	ptr := baseAddress
	numSeparators := img.ReadByte(ptr)
	separators := make([]uint8, numSeparators)
	for i := range separators {
		separators[i] = img.ReadByte(ptr + 1 + uint32(i))
	}
	ptr += 1 + uint32(numSeparators)

	entryLen := img.ReadByte(ptr)
	ptr++
	rawCount := int16(img.ReadWord(ptr))
	ptr += 2

	sorted := rawCount >= 0
	count := int(rawCount)
	if !sorted {
		count = -count
	}

	keyLen := 4
	if img.Version >= 4 {
		keyLen = 6
	}

	entries := make([]Entry, count)
	for i := 0; i < count; i++ {
		entryAddr := ptr + uint32(i)*uint32(entryLen)
		entries[i] = Entry{
			Address:     uint16(entryAddr),
			EncodedWord: append([]uint8(nil), img.ReadSlice(entryAddr, entryAddr+uint32(keyLen))...),
		}
	}

	return &Dictionary{
		Header: Header{Separators: separators, EntryLen: entryLen, Sorted: sorted, Count: count},
		entries: entries,
	}
}

// Find looks up an already-encoded dictionary key, binary searching a
// sorted dictionary and scanning linearly otherwise (including custom
// dictionaries supplied to tokenise, which may declare themselves
// unsorted). Returns 0 when the word is absent, per §4.E.
func (d *Dictionary) Find(encoded []uint8) uint16 {
	if d.Header.Sorted {
		ix := sort.Search(len(d.entries), func(i int) bool {
			return bytes.Compare(d.entries[i].EncodedWord, encoded) >= 0
		})
		if ix < len(d.entries) && bytes.Equal(d.entries[ix].EncodedWord, encoded) {
			return d.entries[ix].Address
		}
		return 0
	}

	for _, e := range d.entries {
		if bytes.Equal(e.EncodedWord, encoded) {
			return e.Address
		}
	}
	return 0
}

func (d *Dictionary) isSeparator(b uint8) bool {
	for _, s := range d.Header.Separators {
		if s == b {
			return true
		}
	}
	return false
}

// Token is one word or separator found in the input buffer.
type Token struct {
	Text            string
	DictionaryEntry uint16
	StartOffset     int // 0-based index of the token's first character within the text passed to Tokenise
}

// Tokenise splits text on whitespace and the dictionary's separator
// set, emitting separators as their own single-character tokens, and
// looks each token up in the dictionary.
func Tokenise(text string, d *Dictionary, img *memory.Image, alphabets *zstring.Alphabets) []Token {
	var tokens []Token
	runes := []rune(text)

	start := 0
	flush := func(end int) {
		if end > start {
			word := runes[start:end]
			encoded := zstring.Encode(word, img, alphabets)
			tokens = append(tokens, Token{
				Text:            string(word),
				DictionaryEntry: d.Find(encoded),
				StartOffset:     start,
			})
		}
	}

	for i, r := range runes {
		switch {
		case r == ' ':
			flush(i)
			start = i + 1
		case r < 256 && d.isSeparator(uint8(r)):
			flush(i)
			encoded := zstring.Encode([]rune{r}, img, alphabets)
			tokens = append(tokens, Token{
				Text:            string(r),
				DictionaryEntry: d.Find(encoded),
				StartOffset:     i,
			})
			start = i + 1
		}
	}
	flush(len(runes))

	return tokens
}
