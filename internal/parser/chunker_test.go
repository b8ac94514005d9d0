package parser

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"docqa/internal/config"
	"docqa/internal/models"
)

// uniqueWords builds text whose tokens never repeat so overlaps are unambiguous.
func uniqueWords(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			if i%40 == 0 {
				b.WriteString(".\n\n")
			} else if i%9 == 0 {
				b.WriteString(". ")
			} else {
				b.WriteString(" ")
			}
		}
		fmt.Fprintf(&b, "w%d", i)
	}
	return b.String()
}

// overlap returns the longest suffix of a that is a prefix of b.
func overlap(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	for k := min(len(ra), len(rb)); k > 0; k-- {
		if string(ra[len(ra)-k:]) == string(rb[:k]) {
			return k
		}
	}
	return 0
}

// checkInvariants asserts the length limit, the minimum overlap between
// neighbours and that de-overlapped chunks rebuild text exactly.
func checkInvariants(t *testing.T, chunks []string, text string, size, minOverlap int) {
	t.Helper()
	var rebuilt strings.Builder
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > size {
			t.Fatalf("chunk %d has %d runes, limit is %d", i, n, size)
		}
		if i == 0 {
			rebuilt.WriteString(c)
			continue
		}
		k := overlap(chunks[i-1], c)
		if k < minOverlap {
			t.Fatalf("chunks %d and %d overlap by %d runes, want >= %d", i-1, i, k, minOverlap)
		}
		rebuilt.WriteString(string([]rune(c)[k:]))
	}
	if rebuilt.String() != text {
		t.Fatalf("de-overlapped chunks do not reproduce the page text")
	}
}

func TestSplitters_Invariants(t *testing.T) {
	texts := map[string]string{
		"paragraphs":  uniqueWords(2000),
		"short prose": uniqueWords(1500),
		"turkish":     strings.ReplaceAll(uniqueWords(1500), "w", "öğüş"),
	}
	for _, mode := range []string{config.SplitterWindow, config.SplitterRecursive} {
		c := NewChunker(&config.RAGConfig{ChunkSize: 1000, ChunkOverlap: 150, Splitter: mode})
		for name, text := range texts {
			t.Run(mode+"/"+name, func(t *testing.T) {
				chunks, err := c.splitter.SplitText(text)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(chunks) < 2 {
					t.Fatalf("expected several chunks, got %d", len(chunks))
				}
				checkInvariants(t, chunks, text, 1000, 150)
			})
		}
	}
}

func TestWindowSplitter_PrefersNaturalBoundaries(t *testing.T) {
	s := NewWindowSplitter(1000, 150)
	chunks, err := s.SplitText(uniqueWords(2000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, c := range chunks[:len(chunks)-1] {
		if !strings.HasSuffix(c, "\n\n") {
			t.Fatalf("chunk %d should end on a paragraph break, ends with %q", i, c[len(c)-10:])
		}
	}
}

func TestWindowSplitter_HardCutWithoutBoundaries(t *testing.T) {
	s := NewWindowSplitter(100, 20)
	text := strings.Repeat("ab", 260)

	chunks, err := s.SplitText(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, c := range chunks {
		if len(c) > 100 {
			t.Fatalf("chunk %d too long: %d", i, len(c))
		}
		if i > 0 && !strings.HasSuffix(chunks[i-1], c[:20]) {
			t.Fatalf("chunk %d does not overlap its predecessor", i)
		}
	}
	if chunks[0] != text[:100] {
		t.Fatalf("expected a hard cut at 100 runes")
	}
}

func TestWindowSplitter_ShortAndEmpty(t *testing.T) {
	s := NewWindowSplitter(1000, 150)

	chunks, _ := s.SplitText("short page")
	if len(chunks) != 1 || chunks[0] != "short page" {
		t.Fatalf("expected the short page as a single chunk, got %q", chunks)
	}

	chunks, _ = s.SplitText(" \n\t ")
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks for blank text, got %d", len(chunks))
	}
}

func TestWindowSplitter_CountsRunesNotBytes(t *testing.T) {
	s := NewWindowSplitter(50, 10)
	text := strings.Repeat("çğış öü ", 30)

	chunks, _ := s.SplitText(text)
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Fatalf("chunk %d is not valid utf-8", i)
		}
		if n := utf8.RuneCountInString(c); n > 50 {
			t.Fatalf("chunk %d has %d runes", i, n)
		}
	}
}

func TestChunker_CopiesProvenance(t *testing.T) {
	c := NewChunker(&config.RAGConfig{ChunkSize: 1000, ChunkOverlap: 150, Splitter: config.SplitterWindow})
	pages := []models.PageRecord{
		{Text: uniqueWords(500), Source: "a.pdf", Page: 2},
		{Text: "   ", Source: "a.pdf", Page: 3},
		{Text: "tail page", Source: "b.pdf", Page: 7},
	}

	chunks, err := c.ChunkPages(pages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
	}
	last := chunks[len(chunks)-1]
	if last.Source != "b.pdf" || last.Page != 7 || last.Index != 0 {
		t.Fatalf("unexpected provenance on last chunk: %+v", last)
	}
	for i, ch := range chunks[:len(chunks)-1] {
		if ch.Source != "a.pdf" || ch.Page != 2 || ch.Index != i {
			t.Fatalf("unexpected provenance on chunk %d: %+v", i, ch)
		}
	}
}

func TestChunker_RecursiveSplitter(t *testing.T) {
	c := NewChunker(&config.RAGConfig{ChunkSize: 200, ChunkOverlap: 30, Splitter: config.SplitterRecursive})
	text := uniqueWords(300)
	chunks, err := c.ChunkPages([]models.PageRecord{{Text: text, Source: "r.pdf", Page: 1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected the recursive splitter to split the page, got %d chunks", len(chunks))
	}
	parts := make([]string, len(chunks))
	for i, ch := range chunks {
		parts[i] = ch.Text
	}
	checkInvariants(t, parts, text, 200, 30)
}

func TestPieceEnds(t *testing.T) {
	text := "çay\n\nsu ve ekmek\n\nson"
	got := pieceEnds(text, []string{"çay", "missing", "su ve ekmek", "son"})
	want := []int{3, 16, 21}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("pieceEnds() = %v, want %v", got, want)
	}
}
