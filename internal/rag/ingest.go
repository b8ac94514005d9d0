package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"docqa/internal/chromemdb"
	"docqa/internal/models"
	"docqa/internal/parser"
)

// FileReport is the outcome of reading one file of a batch.
type FileReport struct {
	Path   string
	Pages  int
	Chunks int
	Err    error
}

type IngestResult struct {
	Files  []FileReport
	Chunks []models.Chunk
	Index  *chromemdb.Index
}

// Ingester turns a batch of files into a fresh index.
type Ingester struct {
	chunker  *parser.Chunker
	store    *chromemdb.VectorDBManager
	progress chromemdb.ProgressFunc
}

func NewIngester(chunker *parser.Chunker, store *chromemdb.VectorDBManager, progress chromemdb.ProgressFunc) *Ingester {
	return &Ingester{chunker: chunker, store: store, progress: progress}
}

// Ingest reads and chunks every path. Unreadable documents are recorded in
// their report and skipped. The index is rebuilt from the remaining chunks;
// a failed build is returned as is and leaves the previous index in place.
func (i *Ingester) Ingest(ctx context.Context, paths []string) (*IngestResult, error) {
	result := &IngestResult{}
	for _, path := range paths {
		report := FileReport{Path: path}

		pages, err := parser.CollectPages(path)
		if err == nil {
			var chunks []models.Chunk
			chunks, err = i.chunker.ChunkPages(pages)
			if err == nil {
				report.Pages = len(pages)
				report.Chunks = len(chunks)
				result.Chunks = append(result.Chunks, chunks...)
			}
		}
		if err != nil {
			if !errors.Is(err, models.ErrDocument) {
				err = &models.DocumentError{Path: path, Err: err}
			}
			report.Err = err
			log.Warn().Err(err).Str("file", path).Msg("Skipping document")
		} else {
			log.Info().Str("file", path).Int("pages", report.Pages).Int("chunks", report.Chunks).Msg("Document processed")
		}
		result.Files = append(result.Files, report)
	}

	if len(result.Chunks) == 0 {
		return result, fmt.Errorf("%w: no text found in %d file(s)", models.ErrNoChunks, len(paths))
	}

	idx, err := i.store.Build(ctx, result.Chunks, i.progress)
	if err != nil {
		return result, err
	}
	result.Index = idx
	return result, nil
}
