package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/phone-advisor/internal/cache"
	"github.com/spherical-ai/phone-advisor/internal/catalog"
	"github.com/spherical-ai/phone-advisor/internal/embedding"
	"github.com/spherical-ai/phone-advisor/internal/storage"
)

var testPhones = []catalog.Phone{
	{Name: "Galaxy S21", Brand: "Samsung", Model: "S21", Battery: 4000, RAM: 8000, CameraMP: 12, Screen: 6.2},
	{Name: "iPhone 13", Brand: "Apple", Model: "13", Battery: 3240, RAM: 4000, CameraMP: 12, Screen: 6.1},
	{Name: "Pixel 6", Brand: "Google", Model: "6", Battery: 4614, RAM: 8000, CameraMP: 50, Screen: 6.4},
}

type memoryStore struct {
	mu    sync.Mutex
	snap  *storage.IndexSnapshot
	fail  error
	saves int
}

func (m *memoryStore) Replace(_ context.Context, snap storage.IndexSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.saves++
	m.snap = &snap
	return nil
}

func (m *memoryStore) Load(context.Context) (*storage.IndexSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return nil, storage.ErrNotFound
	}
	return m.snap, nil
}

type failingEmbedder struct {
	embedding.Embedder
	err error
}

func (f failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, f.err
}

func TestIndex_SearchBeforeBuild(t *testing.T) {
	ix := NewIndex(embedding.NewMockClient(64), nil)
	_, err := ix.Search(context.Background(), "samsung", 5)
	assert.ErrorIs(t, err, ErrIndexNotReady)
	assert.False(t, ix.Ready())
}

func TestIndex_RebuildAndSearch(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	ix := NewIndex(embedding.NewMockClient(256), nil, WithStore(store), WithBatchSize(2))

	var progress []int
	res, err := ix.Rebuild(ctx, testPhones, func(done, total int) {
		assert.Equal(t, 3, total)
		progress = append(progress, done)
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Documents)
	assert.Equal(t, "mock-embedding-model", res.Model)
	assert.Equal(t, []int{2, 3}, progress)
	assert.Equal(t, res.Version, ix.Version())
	assert.Equal(t, 3, ix.Len())
	assert.Equal(t, 1, store.saves)

	got, err := ix.Search(ctx, "Samsung Galaxy S21", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Contains(t, got[0].Content, "Galaxy S21")
	require.NotNil(t, got[0].Score)
	assert.GreaterOrEqual(t, *got[0].Score, *got[1].Score)
	for _, e := range got {
		assert.GreaterOrEqual(t, *e.Score, 0.0)
		assert.LessOrEqual(t, *e.Score, 1.0)
	}
}

func TestIndex_FailedRebuildKeepsLiveSnapshot(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	mock := embedding.NewMockClient(64)
	ix := NewIndex(mock, nil, WithStore(store))

	first, err := ix.Rebuild(ctx, testPhones, nil)
	require.NoError(t, err)

	store.fail = errors.New("disk full")
	_, err = ix.Rebuild(ctx, testPhones[:1], nil)
	require.Error(t, err)
	assert.Equal(t, first.Version, ix.Version())
	assert.Equal(t, 3, ix.Len())

	broken := NewIndex(failingEmbedder{Embedder: mock, err: errors.New("down")}, nil)
	_, err = broken.Rebuild(ctx, testPhones, nil)
	require.Error(t, err)
	assert.False(t, broken.Ready())
}

func TestIndex_LoadPersisted(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	mock := embedding.NewMockClient(128)

	built := NewIndex(mock, nil, WithStore(store))
	res, err := built.Rebuild(ctx, testPhones, nil)
	require.NoError(t, err)

	restored := NewIndex(mock, nil, WithStore(store))
	ok, err := restored.LoadPersisted(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, res.Version, restored.Version())

	want, err := built.Search(ctx, "pixel google", 3)
	require.NoError(t, err)
	got, err := restored.Search(ctx, "pixel google", 3)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Content, got[i].Content)
		assert.InDelta(t, *want[i].Score, *got[i].Score, 1e-5)
	}
}

func TestIndex_LoadPersistedEmptyOrOtherModel(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}

	ix := NewIndex(embedding.NewMockClient(64), nil, WithStore(store))
	ok, err := ix.LoadPersisted(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	store.snap = &storage.IndexSnapshot{Model: "other-model", Entries: []storage.IndexEntry{{Embedding: []float32{1}}}}
	ok, err = ix.LoadPersisted(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIndex_CacheKeyedByVersion(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemoryClient(100)
	defer mem.Close()

	ix := NewIndex(embedding.NewMockClient(64), nil, WithResultCache(NewResultCache(mem, time.Minute, nil)))
	_, err := ix.Rebuild(ctx, testPhones, nil)
	require.NoError(t, err)

	first, err := ix.Search(ctx, "apple iphone", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, mem.Len())

	cached, err := ix.Search(ctx, "apple iphone", 2)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	_, err = ix.Rebuild(ctx, testPhones[:2], nil)
	require.NoError(t, err)
	assert.Equal(t, 0, mem.Len(), "rebuild invalidates the previous version")

	_, err = ix.Search(ctx, "apple iphone", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, mem.Len())
}

func TestIndex_SearchDuringRebuildSeesCompleteSnapshot(t *testing.T) {
	ctx := context.Background()
	ix := NewIndex(embedding.NewMockClient(64), nil, WithBatchSize(1))
	_, err := ix.Rebuild(ctx, testPhones, nil)
	require.NoError(t, err)

	bigger := make([]catalog.Phone, 0, 30)
	for i := 0; i < 30; i++ {
		bigger = append(bigger, catalog.Phone{Name: fmt.Sprintf("Phone %d", i), Brand: "Acme"})
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			got, err := ix.Search(ctx, "acme phone", 50)
			if assert.NoError(t, err) {
				assert.Contains(t, []int{3, 30}, len(got))
			}
		}
	}()

	for i := 0; i < 5; i++ {
		_, err := ix.Rebuild(ctx, bigger, nil)
		require.NoError(t, err)
		_, err = ix.Rebuild(ctx, testPhones, nil)
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()
}

func TestVectorStore_DimensionMismatch(t *testing.T) {
	docs := BuildDocuments(testPhones[:2])
	_, err := newVectorStore(docs, [][]float32{{1, 0}, {1, 0, 0}})
	assert.ErrorIs(t, err, ErrVectorDimensionMismatch)

	s, err := newVectorStore(docs, [][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)
	_, err = s.search([]float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, ErrVectorDimensionMismatch)
}

func TestVectorStore_OrdersByDistance(t *testing.T) {
	docs := BuildDocuments(testPhones)
	s, err := newVectorStore(docs, [][]float32{{0, 1}, {1, 0}, {1, 1}})
	require.NoError(t, err)

	got, err := s.search([]float32{1, 0.1}, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, docs[1].ID, got[0].doc.ID)
	assert.Equal(t, docs[2].ID, got[1].doc.ID)
	assert.Equal(t, docs[0].ID, got[2].doc.ID)
	assert.InDelta(t, 1.0, relevance(got[0].distance), 0.01)
}
