package format

import (
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"
)

// MessageLimit is the Telegram text message limit. Telegram counts UTF-16
// code units, so characters outside the BMP take two.
const MessageLimit = 4096

// Chunk splits text into ordered pieces of at most limit UTF-16 code units,
// cut on rune boundaries. A piece breaks at the last newline inside its window
// when the text before that newline is not blank. Pieces made only of
// whitespace are dropped, since Telegram rejects them; every other character
// of text appears in the result in order.
func Chunk(text string, limit int) []string {
	if limit <= 0 {
		limit = MessageLimit
	}
	if Width(text) <= limit {
		return []string{text}
	}

	var chunks []string
	for text != "" {
		cut := unitOffset(text, limit)
		if cut < len(text) {
			if nl := strings.LastIndexByte(text[:cut], '\n'); nl > 0 && !blank(text[:nl+1]) {
				cut = nl + 1
			}
		}
		if piece := text[:cut]; !blank(piece) {
			chunks = append(chunks, piece)
		}
		text = text[cut:]
	}
	return chunks
}

// Width returns the length of s in UTF-16 code units.
func Width(s string) int {
	n := 0
	for _, r := range s {
		n += runeWidth(r)
	}
	return n
}

func runeWidth(r rune) int {
	if w := utf16.RuneLen(r); w > 0 {
		return w
	}
	return 1
}

// unitOffset returns the byte index just past the longest run of whole runes
// of s that fits in n code units. At least one rune is always taken.
func unitOffset(s string, n int) int {
	i, units := 0, 0
	for i < len(s) && units < n {
		r, size := utf8.DecodeRuneInString(s[i:])
		w := runeWidth(r)
		if units+w > n && i > 0 {
			break
		}
		units += w
		i += size
	}
	return i
}

func blank(s string) bool {
	return strings.TrimFunc(s, unicode.IsSpace) == ""
}
