package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"docqa/internal/chromemdb"
	"docqa/internal/config"
	"docqa/internal/models"
	"docqa/internal/parser"
)

type lengthEmbedder struct {
	fail error
}

func (e *lengthEmbedder) vector(text string) []float32 {
	return []float32{1, float32(len(text) % 7), float32(len(text) % 3)}
}

func (e *lengthEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if e.fail != nil {
		return nil, e.fail
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *lengthEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

func newTestIngester(t *testing.T, emb *lengthEmbedder) (*Ingester, *chromemdb.VectorDBManager) {
	t.Helper()
	cfg := config.Default().RAG
	cfg.IndexPath = filepath.Join(t.TempDir(), "index.gob")
	store := chromemdb.NewVectorDBManager(emb, "test-model", &cfg)
	return NewIngester(parser.NewChunker(&cfg), store, nil), store
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIngest_SkipsBadDocuments(t *testing.T) {
	ing, store := newTestIngester(t, &lengthEmbedder{})
	good := writeFile(t, "notes.txt", "The committee met on Monday.\n\nIt approved the budget.")
	broken := writeFile(t, "broken.pdf", "%PDF-1.4 this is not really a pdf")
	unknown := writeFile(t, "image.bmp", "BM")

	result, err := ing.Ingest(context.Background(), []string{good, broken, unknown})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(result.Files) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(result.Files))
	}
	if result.Files[0].Err != nil || result.Files[0].Pages != 1 || result.Files[0].Chunks != 1 {
		t.Fatalf("unexpected report for the good file: %+v", result.Files[0])
	}
	for _, report := range result.Files[1:] {
		if !errors.Is(report.Err, models.ErrDocument) {
			t.Fatalf("expected a document error for %s, got %v", report.Path, report.Err)
		}
	}
	if result.Index == nil || result.Index.Count() != len(result.Chunks) {
		t.Fatalf("index does not match chunks")
	}
	if result.Chunks[0].Source != "notes.txt" {
		t.Fatalf("unexpected source %q", result.Chunks[0].Source)
	}

	if _, err := store.Load(context.Background()); err != nil {
		t.Fatalf("index should be persisted: %v", err)
	}
}

func TestIngest_NoChunks(t *testing.T) {
	ing, store := newTestIngester(t, &lengthEmbedder{})
	blank := writeFile(t, "blank.txt", "   \n\n  ")

	_, err := ing.Ingest(context.Background(), []string{blank})
	if !errors.Is(err, models.ErrNoChunks) {
		t.Fatalf("expected ErrNoChunks, got %v", err)
	}
	if _, err := store.Load(context.Background()); !errors.Is(err, models.ErrIndexNotFound) {
		t.Fatalf("nothing should be persisted, got %v", err)
	}
}

func TestIngest_EmbeddingFailureAbortsBuild(t *testing.T) {
	ing, store := newTestIngester(t, &lengthEmbedder{fail: errors.New("connection refused")})
	good := writeFile(t, "notes.txt", "Some text worth indexing.")

	result, err := ing.Ingest(context.Background(), []string{good})
	if !errors.Is(err, models.ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding, got %v", err)
	}
	if result.Index != nil {
		t.Fatalf("no index expected after a failed build")
	}
	if _, err := store.Load(context.Background()); !errors.Is(err, models.ErrIndexNotFound) {
		t.Fatalf("nothing should be persisted, got %v", err)
	}
}
