package dictionary_test

import (
	"testing"

	"github.com/haldane-ifs/zengine/internal/dictionary"
	"github.com/haldane-ifs/zengine/internal/memory"
	"github.com/haldane-ifs/zengine/internal/zstring"
)

// buildV3Dictionary writes a sorted dictionary with three words: "go",
// "north" and "take", each encoded to the 4-byte v3 key, plus the
// single separator ",".
func buildV3Dictionary(t *testing.T) (*memory.Image, *zstring.Alphabets, uint32) {
	t.Helper()
	raw := make([]uint8, 0x200)
	raw[0x00] = 3
	size := uint32(len(raw))
	raw[0x1a] = uint8(size >> 8)
	raw[0x1b] = uint8(size)

	img := memory.Load(raw)
	alphabets := zstring.Load(img)

	const base = 0x40
	raw[base] = 1    // 1 separator
	raw[base+1] = ',' // separator char
	raw[base+2] = 7   // entry length: 4 key bytes + 3 data bytes
	raw[base+3] = 0   // count high
	raw[base+4] = 3   // count low, positive => sorted

	words := [][]rune{[]rune("go"), []rune("north"), []rune("take")}
	entryPtr := uint32(base + 5)
	for _, w := range words {
		key := zstring.Encode(w, img, alphabets)
		copy(raw[entryPtr:], key)
		entryPtr += 7
	}

	return img, alphabets, base
}

func TestParseSortedDictionary(t *testing.T) {
	img, _, base := buildV3Dictionary(t)
	d := dictionary.Parse(img, base)

	if !d.Header.Sorted {
		t.Fatal("expected a sorted dictionary")
	}
	if d.Header.Count != 3 {
		t.Fatalf("expected 3 entries, got %d", d.Header.Count)
	}
	if len(d.Header.Separators) != 1 || d.Header.Separators[0] != ',' {
		t.Fatalf("unexpected separators: %v", d.Header.Separators)
	}
}

func TestFindSortedDictionary(t *testing.T) {
	img, alphabets, base := buildV3Dictionary(t)
	d := dictionary.Parse(img, base)

	key := zstring.Encode([]rune("north"), img, alphabets)
	addr := d.Find(key)
	if addr == 0 {
		t.Fatal("expected to find 'north'")
	}

	missing := zstring.Encode([]rune("zzzzz"), img, alphabets)
	if got := d.Find(missing); got != 0 {
		t.Fatalf("expected 0 for a missing word, got %d", got)
	}
}

func TestTokeniseSplitsOnSeparatorsAndSpaces(t *testing.T) {
	img, alphabets, base := buildV3Dictionary(t)
	d := dictionary.Parse(img, base)

	tokens := dictionary.Tokenise("go north,take", d, img, alphabets)
	if len(tokens) != 4 {
		t.Fatalf("expected 4 tokens, got %d: %+v", len(tokens), tokens)
	}

	want := []string{"go", "north", ",", "take"}
	for i, w := range want {
		if tokens[i].Text != w {
			t.Fatalf("token %d: expected %q, got %q", i, w, tokens[i].Text)
		}
	}

	if tokens[0].DictionaryEntry == 0 {
		t.Fatal("expected 'go' to resolve in the dictionary")
	}
	if tokens[2].DictionaryEntry != 0 {
		t.Fatal("the separator token itself is not a dictionary word here")
	}
}

func TestTokeniseUnknownWordReportsZero(t *testing.T) {
	img, alphabets, base := buildV3Dictionary(t)
	d := dictionary.Parse(img, base)

	tokens := dictionary.Tokenise("xyzzy go", d, img, alphabets)
	if tokens[0].DictionaryEntry != 0 {
		t.Fatal("expected unknown word to resolve to 0")
	}
	if tokens[1].DictionaryEntry == 0 {
		t.Fatal("expected 'go' to still resolve")
	}
}
