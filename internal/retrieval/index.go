package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/spherical-ai/phone-advisor/internal/catalog"
	"github.com/spherical-ai/phone-advisor/internal/embedding"
	"github.com/spherical-ai/phone-advisor/internal/observability"
	"github.com/spherical-ai/phone-advisor/internal/storage"
)

// ErrIndexNotReady is returned by Search before the first successful build or load.
var ErrIndexNotReady = errors.New("semantic index not built")

// IndexStore persists index builds.
type IndexStore interface {
	Replace(ctx context.Context, snap storage.IndexSnapshot) error
	Load(ctx context.Context) (*storage.IndexSnapshot, error)
}

// Index is the vector-backed Retriever. Searches read an immutable snapshot;
// Rebuild prepares a complete replacement and swaps it in only on success,
// so readers observe either the old or the new index, never a partial one.
type Index struct {
	embedder  embedding.Embedder
	store     IndexStore
	cache     *ResultCache
	logger    *observability.Logger
	batchSize int

	current   atomic.Pointer[snapshot]
	rebuildMu sync.Mutex
}

type snapshot struct {
	version uuid.UUID
	model   string
	builtAt time.Time
	vectors *vectorStore
}

// IndexOption configures an Index.
type IndexOption func(*Index)

// WithStore persists builds to store and allows LoadPersisted.
func WithStore(store IndexStore) IndexOption {
	return func(ix *Index) { ix.store = store }
}

// WithResultCache caches search results per index version.
func WithResultCache(c *ResultCache) IndexOption {
	return func(ix *Index) { ix.cache = c }
}

// WithBatchSize sets how many documents are embedded per request.
func WithBatchSize(n int) IndexOption {
	return func(ix *Index) {
		if n > 0 {
			ix.batchSize = n
		}
	}
}

// NewIndex creates an empty index. Call Rebuild or LoadPersisted before searching.
func NewIndex(embedder embedding.Embedder, logger *observability.Logger, opts ...IndexOption) *Index {
	if logger == nil {
		logger = observability.NopLogger()
	}
	ix := &Index{
		embedder:  embedder,
		logger:    logger.WithOperation("semantic_index"),
		batchSize: 64,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// RebuildResult describes a completed build.
type RebuildResult struct {
	Documents int       `json:"documents"`
	Version   string    `json:"version"`
	Model     string    `json:"model"`
	BuiltAt   time.Time `json:"built_at"`
}

// Rebuild embeds every phone, persists the result and swaps it in.
// Concurrent rebuilds are serialized. On failure the live index is untouched.
func (ix *Index) Rebuild(ctx context.Context, phones []catalog.Phone, progress func(done, total int)) (*RebuildResult, error) {
	ix.rebuildMu.Lock()
	defer ix.rebuildMu.Unlock()

	start := time.Now()
	docs := BuildDocuments(phones)
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}

	vectors, err := embedding.EmbedBatch(ctx, ix.embedder, texts, ix.batchSize, func(done int) {
		if progress != nil {
			progress(done, len(texts))
		}
	})
	if err != nil {
		observability.IndexRebuilds.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("embed documents: %w", err)
	}

	store, err := newVectorStore(docs, vectors)
	if err != nil {
		observability.IndexRebuilds.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("build vector store: %w", err)
	}

	next := &snapshot{
		version: uuid.New(),
		model:   ix.embedder.Model(),
		builtAt: time.Now().UTC(),
		vectors: store,
	}

	if ix.store != nil {
		if err := ix.store.Replace(ctx, toStorage(next)); err != nil {
			observability.IndexRebuilds.WithLabelValues("failure").Inc()
			return nil, fmt.Errorf("persist index: %w", err)
		}
	}

	prev := ix.current.Swap(next)
	ix.invalidate(ctx, prev)

	observability.IndexRebuilds.WithLabelValues("success").Inc()
	observability.IndexDocuments.Set(float64(len(docs)))

	ix.logger.Info().
		Str("version", next.version.String()).
		Str("model", next.model).
		Int("documents", len(docs)).
		Dur("duration", time.Since(start)).
		Msg("Semantic index rebuilt")

	return &RebuildResult{
		Documents: len(docs),
		Version:   next.version.String(),
		Model:     next.model,
		BuiltAt:   next.builtAt,
	}, nil
}

// LoadPersisted restores the last build from the store. It reports false when
// nothing usable is stored, including builds made with a different model.
func (ix *Index) LoadPersisted(ctx context.Context) (bool, error) {
	if ix.store == nil {
		return false, nil
	}

	ix.rebuildMu.Lock()
	defer ix.rebuildMu.Unlock()

	snap, err := ix.store.Load(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load persisted index: %w", err)
	}

	if snap.Model != ix.embedder.Model() {
		ix.logger.Warn().
			Str("stored_model", snap.Model).
			Str("model", ix.embedder.Model()).
			Msg("Persisted index was built with a different embedding model")
		return false, nil
	}

	docs := make([]Document, len(snap.Entries))
	vectors := make([][]float32, len(snap.Entries))
	for i, e := range snap.Entries {
		docs[i] = Document{ID: e.ID, Position: e.Position, Content: e.Content, Metadata: e.Metadata}
		vectors[i] = e.Embedding
	}

	store, err := newVectorStore(docs, vectors)
	if err != nil {
		return false, fmt.Errorf("restore vector store: %w", err)
	}

	prev := ix.current.Swap(&snapshot{
		version: snap.Version,
		model:   snap.Model,
		builtAt: snap.BuiltAt,
		vectors: store,
	})
	ix.invalidate(ctx, prev)
	observability.IndexDocuments.Set(float64(len(docs)))

	ix.logger.Info().
		Str("version", snap.Version.String()).
		Int("documents", len(docs)).
		Msg("Semantic index loaded")

	return true, nil
}

// Search returns the k nearest documents with relevance scores.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]Evidence, error) {
	snap := ix.current.Load()
	if snap == nil {
		return nil, ErrIndexNotReady
	}

	version := snap.version.String()
	if cached, ok := ix.cache.get(ctx, version, query, k); ok {
		return cached, nil
	}

	qv, err := ix.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := snap.vectors.search(qv, k)
	if err != nil {
		return nil, err
	}

	evidence := make([]Evidence, len(results))
	for i, r := range results {
		evidence[i] = Evidence{
			Content:  r.doc.Content,
			Metadata: r.doc.Metadata,
			Score:    Scored(relevance(r.distance)),
		}
	}

	ix.cache.set(ctx, version, query, k, evidence)
	return evidence, nil
}

// Ready reports whether a snapshot is live.
func (ix *Index) Ready() bool {
	return ix.current.Load() != nil
}

// Version returns the live build version, or "" when not ready.
func (ix *Index) Version() string {
	if snap := ix.current.Load(); snap != nil {
		return snap.version.String()
	}
	return ""
}

// Len returns the number of documents in the live snapshot.
func (ix *Index) Len() int {
	if snap := ix.current.Load(); snap != nil {
		return len(snap.vectors.docs)
	}
	return 0
}

func (ix *Index) invalidate(ctx context.Context, prev *snapshot) {
	if prev == nil {
		return
	}
	if err := ix.cache.invalidate(ctx, prev.version.String()); err != nil {
		ix.logger.Warn().Err(err).Str("version", prev.version.String()).Msg("Failed to invalidate retrieval cache")
	}
}

func toStorage(s *snapshot) storage.IndexSnapshot {
	entries := make([]storage.IndexEntry, len(s.vectors.docs))
	for i, d := range s.vectors.docs {
		entries[i] = storage.IndexEntry{
			ID:        d.ID,
			Position:  d.Position,
			Content:   d.Content,
			Metadata:  d.Metadata,
			Embedding: s.vectors.vectors[i],
		}
	}
	return storage.IndexSnapshot{
		Version: s.version,
		Model:   s.model,
		BuiltAt: s.builtAt,
		Entries: entries,
	}
}

var _ Retriever = (*Index)(nil)
