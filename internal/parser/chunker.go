package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/textsplitter"

	"docqa/internal/config"
	"docqa/internal/models"
)

// maxWordBack bounds how far a chunk start is moved back to reach a word start.
const maxWordBack = 32

// boundaries in order of preference
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "),
	[]rune("! "),
	[]rune("? "),
	[]rune(" "),
}

// WindowSplitter cuts text into windows of at most Size runes. Consecutive
// windows share at least Overlap runes, and a cut is placed on the strongest
// natural boundary found in the second half of the window.
type WindowSplitter struct {
	Size    int
	Overlap int
}

var _ textsplitter.TextSplitter = WindowSplitter{}

func NewWindowSplitter(size, overlap int) WindowSplitter {
	if size <= 0 {
		size = models.DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return WindowSplitter{Size: size, Overlap: overlap}
}

// SplitText implements textsplitter.TextSplitter.
func (s WindowSplitter) SplitText(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return s.split([]rune(text), s.breakPoint), nil
}

// split walks r in windows of Size runes. cut picks the end of each window
// and must return a position in (start+Overlap, end].
func (s WindowSplitter) split(r []rune, cut func(r []rune, start, end int) int) []string {
	if len(r) <= s.Size {
		return []string{string(r)}
	}

	var chunks []string
	start := 0
	for {
		end := start + s.Size
		if end >= len(r) {
			return append(chunks, string(r[start:]))
		}
		end = cut(r, start, end)
		chunks = append(chunks, string(r[start:end]))
		start = wordStart(r, end-s.Overlap, start+1)
	}
}

// breakPoint returns the cut position for the window r[start:end]. The cut
// never falls at or before start+Overlap so the next window always advances.
func (s WindowSplitter) breakPoint(r []rune, start, end int) int {
	minEnd := start + max(s.Overlap+1, s.Size/2)
	for _, sep := range separators {
		for p := end - len(sep); p+len(sep) >= minEnd && p >= start; p-- {
			if hasRunes(r[p:], sep) {
				return p + len(sep)
			}
		}
	}
	return end
}

func hasRunes(r, prefix []rune) bool {
	if len(r) < len(prefix) {
		return false
	}
	for i := range prefix {
		if r[i] != prefix[i] {
			return false
		}
	}
	return true
}

// wordStart moves pos back to the beginning of the word it falls in, never
// below lower. Moving back only grows the overlap.
func wordStart(r []rune, pos, lower int) int {
	p := pos
	for p > lower && pos-p < maxWordBack && !unicode.IsSpace(r[p-1]) {
		p--
	}
	if unicode.IsSpace(r[p-1]) {
		return p
	}
	return pos
}

// GuidedSplitter windows text like WindowSplitter but cuts where the Guide
// splitter ends its pieces whenever such a position falls inside the window.
// Length, overlap and lossless reconstruction hold as for WindowSplitter.
type GuidedSplitter struct {
	WindowSplitter
	Guide textsplitter.TextSplitter
}

var _ textsplitter.TextSplitter = GuidedSplitter{}

// NewRecursiveSplitter guides the window with langchaingo's recursive
// character splitter.
func NewRecursiveSplitter(size, overlap int) GuidedSplitter {
	w := NewWindowSplitter(size, overlap)
	return GuidedSplitter{
		WindowSplitter: w,
		Guide: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(w.Size-w.Overlap),
			textsplitter.WithChunkOverlap(0),
		),
	}
}

// SplitText implements textsplitter.TextSplitter.
func (s GuidedSplitter) SplitText(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	pieces, err := s.Guide.SplitText(text)
	if err != nil {
		return nil, err
	}
	ends := pieceEnds(text, pieces)

	return s.split([]rune(text), func(r []rune, start, end int) int {
		for i := len(ends) - 1; i >= 0; i-- {
			if ends[i] <= end && ends[i] > start+s.Overlap {
				return ends[i]
			}
		}
		return s.breakPoint(r, start, end)
	}), nil
}

// pieceEnds locates pieces in text, in order, and returns the rune offset
// where each one ends. Pieces that cannot be found verbatim are skipped.
func pieceEnds(text string, pieces []string) []int {
	var ends []int
	cursor, runes := 0, 0
	for _, piece := range pieces {
		if piece == "" {
			continue
		}
		i := strings.Index(text[cursor:], piece)
		if i < 0 {
			continue
		}
		next := cursor + i + len(piece)
		runes += utf8.RuneCountInString(text[cursor:next])
		cursor = next
		ends = append(ends, runes)
	}
	return ends
}

// Chunker turns page records into chunks carrying their page provenance.
type Chunker struct {
	splitter textsplitter.TextSplitter
}

func NewChunker(cfg *config.RAGConfig) *Chunker {
	if cfg == nil {
		return &Chunker{splitter: NewWindowSplitter(models.DefaultChunkSize, models.DefaultChunkOverlap)}
	}
	if cfg.Splitter == config.SplitterRecursive {
		return &Chunker{splitter: NewRecursiveSplitter(cfg.ChunkSize, cfg.ChunkOverlap)}
	}
	return &Chunker{splitter: NewWindowSplitter(cfg.ChunkSize, cfg.ChunkOverlap)}
}

// ChunkPages splits every page, keeping page order and the order of chunks within a page.
func (c *Chunker) ChunkPages(pages []models.PageRecord) ([]models.Chunk, error) {
	var chunks []models.Chunk
	for _, page := range pages {
		pageChunks, err := c.getChunks(page)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, pageChunks...)
	}
	return chunks, nil
}

// get chunks from page content, copying source and page number
func (c *Chunker) getChunks(page models.PageRecord) ([]models.Chunk, error) {
	parts, err := c.splitter.SplitText(page.Text)
	if err != nil {
		return nil, err
	}

	var chunks []models.Chunk
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		chunks = append(chunks, models.Chunk{
			Text:   part,
			Source: page.Source,
			Page:   page.Page,
			Index:  len(chunks),
		})
	}
	log.Debug().Str("source", page.Source).Int("page", page.Page).Int("chunks", len(chunks)).Msg("Chunked page")
	return chunks, nil
}
