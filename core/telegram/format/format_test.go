package format

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunkShortText(t *testing.T) {
	got := Chunk("hello", 10)
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("unexpected chunks: %q", got)
	}
	if got := Chunk("", 10); len(got) != 1 || got[0] != "" {
		t.Fatalf("empty text: %q", got)
	}
}

func TestChunkRespectsLimitAndOrder(t *testing.T) {
	text := strings.Repeat("ы", 9000) + "end"
	chunks := Chunk(text, MessageLimit)
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > MessageLimit {
			t.Fatalf("chunk %d has %d runes", i, n)
		}
		if !utf8.ValidString(c) {
			t.Fatalf("chunk %d is not valid utf-8", i)
		}
	}
	if strings.Join(chunks, "") != text {
		t.Fatal("chunks do not concatenate back to the text")
	}

	text = strings.Repeat("a", 4095) + "😀" + "bbbbbbbbbb" + strings.Repeat("🙂", 3000)
	chunks = Chunk(text, MessageLimit)
	for i, c := range chunks {
		if n := Width(c); n > MessageLimit {
			t.Fatalf("chunk %d is %d utf-16 units", i, n)
		}
		if !utf8.ValidString(c) {
			t.Fatalf("chunk %d is not valid utf-8", i)
		}
	}
	if chunks[0] != strings.Repeat("a", 4095) {
		t.Fatalf("first chunk must stop before the emoji, got %d units", Width(chunks[0]))
	}
	if strings.Join(chunks, "") != text {
		t.Fatal("chunks with emoji do not concatenate back to the text")
	}
}

func TestChunkWidth(t *testing.T) {
	if n := Width("ab😀ы"); n != 5 {
		t.Fatalf("Width = %d, want 5", n)
	}
	if got := Chunk("😀😀", 1); len(got) != 2 || got[0] != "😀" {
		t.Fatalf("a rune wider than the limit still makes progress: %q", got)
	}
}

func TestChunkSkipsBlankPieces(t *testing.T) {
	text := strings.Repeat("x", 4096) + "\n\n" + strings.Repeat("y", 5000)
	chunks := Chunk(text, MessageLimit)
	for i, c := range chunks {
		if strings.TrimSpace(c) == "" {
			t.Fatalf("chunk %d is blank: %q", i, c)
		}
		if n := Width(c); n > MessageLimit {
			t.Fatalf("chunk %d is %d units", i, n)
		}
	}
	if strings.Join(chunks, "") != text {
		t.Fatal("newline run was lost")
	}

	chunks = Chunk("abc\n"+strings.Repeat(" ", 8), 4)
	if len(chunks) != 1 || chunks[0] != "abc\n" {
		t.Fatalf("trailing whitespace run: %q", chunks)
	}
}

func TestChunkPrefersNewlines(t *testing.T) {
	text := "aaaa\nbbbb\ncc"
	chunks := Chunk(text, 6)
	want := []string{"aaaa\n", "bbbb\n", "cc"}
	if len(chunks) != len(want) {
		t.Fatalf("chunks = %q, want %q", chunks, want)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Fatalf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestChunkExactLimit(t *testing.T) {
	text := strings.Repeat("x", 8)
	chunks := Chunk(text, 4)
	if len(chunks) != 2 || chunks[0] != "xxxx" || chunks[1] != "xxxx" {
		t.Fatalf("unexpected chunks: %q", chunks)
	}
}

func TestEscapeMarkdown(t *testing.T) {
	got, err := EscapeMarkdown("a_b*c", MarkdownV1)
	if err != nil {
		t.Fatal(err)
	}
	if got != `a\_b\*c` {
		t.Fatalf("v1 = %q", got)
	}
	got, err = EscapeMarkdown("1.5!", MarkdownV2)
	if err != nil {
		t.Fatal(err)
	}
	if got != `1\.5\!` {
		t.Fatalf("v2 = %q", got)
	}
	if _, err := EscapeMarkdown("x", 3); err == nil {
		t.Fatal("expected error for unknown version")
	}
	if got := EscapeMD("[link](x) `code`"); got != "\\[link](x) \\`code\\`" {
		t.Fatalf("EscapeMD = %q", got)
	}
}
