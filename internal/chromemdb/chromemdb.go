package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"docqa/internal/config"
	"docqa/internal/helper"
	"docqa/internal/models"
)

const collectionName = "documents"

// embedded at load to compare the configured model with the stored vectors
const dimensionCheckText = "dimension check"

// metadata keys stored with every document
const (
	metaSource = "source"
	metaPage   = "page"
	metaIndex  = "index"
	metaSeq    = "seq"
	metaModel  = "embedding_model"
)

// ProgressFunc is called after each embedded batch.
type ProgressFunc func(done, total int)

// VectorDBManager builds, persists and loads the chunk index at one file location.
type VectorDBManager struct {
	embedder      embeddings.Embedder
	model         string
	filePath      string
	compress      bool
	encryptionKey string
	batchSize     int
}

// NewVectorDBManager binds the index location to an embedder. model identifies
// the embedding model and is stored in the index so a later load can reject a
// file built with another model.
func NewVectorDBManager(embedder embeddings.Embedder, model string, ragConfig *config.RAGConfig) *VectorDBManager {
	batchSize := ragConfig.EmbedBatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	return &VectorDBManager{
		embedder:      embedder,
		model:         model,
		filePath:      ragConfig.IndexPath,
		compress:      ragConfig.Compress,
		encryptionKey: ragConfig.EncryptionKey,
		batchSize:     batchSize,
	}
}

func (m *VectorDBManager) FilePath() string { return m.filePath }

// Build embeds every chunk, replaces the persisted index with the new one and
// returns it. On any failure the previous file is left untouched.
func (m *VectorDBManager) Build(ctx context.Context, chunks []models.Chunk, progress ProgressFunc) (*Index, error) {
	if len(chunks) == 0 {
		return nil, models.ErrNoChunks
	}

	vectors, err := m.embedChunks(ctx, chunks, progress)
	if err != nil {
		return nil, err
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection(collectionName, nil, m.embedFunc())
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:        docID(i),
			Content:   c.Text,
			Metadata:  m.metadata(c, i),
			Embedding: vectors[i],
		}
	}
	if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("failed to add documents: %w", err)
	}

	if err := m.export(db); err != nil {
		return nil, err
	}
	log.Info().Int("chunks", len(chunks)).Str("path", m.filePath).Str("model", m.model).Msg("Index built")

	return &Index{
		collection: collection,
		embedder:   m.embedder,
		model:      m.model,
		dimension:  len(vectors[0]),
		chunks:     append([]models.Chunk(nil), chunks...),
	}, nil
}

func (m *VectorDBManager) embedChunks(ctx context.Context, chunks []models.Chunk, progress ProgressFunc) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += m.batchSize {
		end := min(start+m.batchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		batch, err := m.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrEmbedding, err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("%w: got %d vectors for %d texts", models.ErrEmbedding, len(batch), len(texts))
		}
		for _, v := range batch {
			if len(v) == 0 {
				return nil, fmt.Errorf("%w: empty vector", models.ErrEmbedding)
			}
			if len(vectors) > 0 && len(v) != len(vectors[0]) {
				return nil, fmt.Errorf("%w: inconsistent dimensions %d and %d", models.ErrEmbedding, len(vectors[0]), len(v))
			}
			vectors = append(vectors, v)
		}

		log.Debug().Int("done", end).Int("total", len(chunks)).Msg("Embedded batch")
		if progress != nil {
			progress(end, len(chunks))
		}
	}
	return vectors, nil
}

// export writes the collection next to the target file and renames it into place.
func (m *VectorDBManager) export(db *chromem.DB) error {
	dir := filepath.Dir(m.filePath)
	if err := helper.CreateFolder(dir); err != nil {
		return err
	}

	id, err := helper.GenerateUUID()
	if err != nil {
		return err
	}
	tmp := filepath.Join(dir, "."+id+".tmp.gob")
	if m.compress {
		tmp += ".gz"
	}

	if err := db.ExportToFile(tmp, m.compress, m.encryptionKey, collectionName); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to export index: %w", err)
	}
	if err := os.Rename(tmp, m.filePath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace index: %w", err)
	}
	return nil
}

// Load reads the persisted index.
func (m *VectorDBManager) Load(ctx context.Context) (*Index, error) {
	if _, err := os.Stat(m.filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrIndexNotFound, m.filePath)
		}
		return nil, fmt.Errorf("%w: %w", models.ErrIndexCorrupt, err)
	}

	db := chromem.NewDB()
	if err := db.ImportFromFile(m.filePath, m.encryptionKey); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrIndexCorrupt, err)
	}
	collection := db.GetCollection(collectionName, m.embedFunc())
	if collection == nil || collection.Count() == 0 {
		return nil, fmt.Errorf("%w: no documents in %s", models.ErrIndexCorrupt, m.filePath)
	}

	idx := &Index{collection: collection, embedder: m.embedder, model: m.model}
	idx.chunks = make([]models.Chunk, collection.Count())
	for seq := range idx.chunks {
		doc, err := collection.GetByID(ctx, docID(seq))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrIndexCorrupt, err)
		}
		if model := doc.Metadata[metaModel]; model != m.model {
			return nil, fmt.Errorf("%w: built with embedding model %q, configured %q", models.ErrIndexCorrupt, model, m.model)
		}
		switch {
		case len(doc.Embedding) == 0:
			return nil, fmt.Errorf("%w: document %s has no embedding", models.ErrIndexCorrupt, doc.ID)
		case idx.dimension == 0:
			idx.dimension = len(doc.Embedding)
		case idx.dimension != len(doc.Embedding):
			return nil, fmt.Errorf("%w: inconsistent dimensions %d and %d", models.ErrIndexCorrupt, idx.dimension, len(doc.Embedding))
		}
		chunk, err := chunkFromDocument(doc.Content, doc.Metadata)
		if err != nil {
			return nil, err
		}
		idx.chunks[seq] = chunk
	}
	if err := m.checkDimension(ctx, idx.dimension); err != nil {
		return nil, err
	}

	log.Info().Int("chunks", len(idx.chunks)).Str("path", m.filePath).Msg("Index loaded")
	return idx, nil
}

// checkDimension embeds a short text with the configured embedder and
// compares its width to the stored vectors. When the embedder cannot be
// reached the index still loads and Query repeats the comparison.
func (m *VectorDBManager) checkDimension(ctx context.Context, stored int) error {
	vec, err := m.embedder.EmbedQuery(ctx, dimensionCheckText)
	if err != nil {
		log.Warn().Err(err).Msg("Could not verify index dimension at load")
		return nil
	}
	if len(vec) != stored {
		return fmt.Errorf("%w: index dimension %d, model %q produces %d", models.ErrIndexCorrupt, stored, m.model, len(vec))
	}
	return nil
}

func (m *VectorDBManager) metadata(c models.Chunk, seq int) map[string]string {
	return map[string]string{
		metaSource: c.Source,
		metaPage:   strconv.Itoa(c.Page),
		metaIndex:  strconv.Itoa(c.Index),
		metaSeq:    strconv.Itoa(seq),
		metaModel:  m.model,
	}
}

// embedFunc lets the collection embed text itself. Queries go through
// Index.Query, which embeds with the same embedder.
func (m *VectorDBManager) embedFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return m.embedder.EmbedQuery(ctx, text)
	}
}

func docID(seq int) string {
	return fmt.Sprintf("chunk-%08d", seq)
}

func chunkFromDocument(content string, meta map[string]string) (models.Chunk, error) {
	page, err := strconv.Atoi(meta[metaPage])
	if err != nil {
		return models.Chunk{}, fmt.Errorf("%w: bad page metadata %q", models.ErrIndexCorrupt, meta[metaPage])
	}
	index, err := strconv.Atoi(meta[metaIndex])
	if err != nil {
		return models.Chunk{}, fmt.Errorf("%w: bad index metadata %q", models.ErrIndexCorrupt, meta[metaIndex])
	}
	source := strings.TrimSpace(meta[metaSource])
	return models.Chunk{Text: content, Source: source, Page: page, Index: index}, nil
}
