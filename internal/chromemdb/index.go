package chromemdb

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/philippgille/chromem-go"
	"github.com/tmc/langchaingo/embeddings"

	"docqa/internal/models"
)

// Index is a loaded or freshly built chunk index.
type Index struct {
	collection *chromem.Collection
	embedder   embeddings.Embedder
	model      string
	dimension  int
	chunks     []models.Chunk
}

// Query returns the k chunks closest to question by cosine similarity,
// closest first. Equal scores keep insertion order. k <= 0 means the default of 4.
// A nil index has nothing to search and reports ErrIndexNotFound.
func (idx *Index) Query(ctx context.Context, question string, k int) ([]models.Chunk, error) {
	if idx == nil {
		return nil, fmt.Errorf("%w: no index loaded", models.ErrIndexNotFound)
	}
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: empty question", models.ErrInvalidArgument)
	}
	if k <= 0 {
		k = models.DefaultTopK
	}

	vec, err := idx.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrEmbedding, err)
	}
	if len(vec) != idx.dimension {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d", models.ErrIndexCorrupt, len(vec), idx.dimension)
	}

	// rank everything so ties can be ordered by insertion
	results, err := idx.collection.QueryEmbedding(ctx, vec, idx.collection.Count(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}

	type hit struct {
		seq        int
		similarity float32
	}
	hits := make([]hit, 0, len(results))
	for _, r := range results {
		seq, err := strconv.Atoi(r.Metadata[metaSeq])
		if err != nil || seq < 0 || seq >= len(idx.chunks) {
			return nil, fmt.Errorf("%w: bad seq metadata on %s", models.ErrIndexCorrupt, r.ID)
		}
		hits = append(hits, hit{seq: seq, similarity: r.Similarity})
	}
	slices.SortStableFunc(hits, func(a, b hit) int {
		switch {
		case a.similarity > b.similarity:
			return -1
		case a.similarity < b.similarity:
			return 1
		}
		return a.seq - b.seq
	})

	out := make([]models.Chunk, 0, min(k, len(hits)))
	for _, h := range hits[:min(k, len(hits))] {
		out = append(out, idx.chunks[h.seq])
	}
	return out, nil
}

// Chunks returns every chunk in insertion order.
func (idx *Index) Chunks() []models.Chunk {
	return slices.Clone(idx.chunks)
}

func (idx *Index) Model() string { return idx.model }

func (idx *Index) Dimension() int { return idx.dimension }

func (idx *Index) Count() int { return len(idx.chunks) }
