package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/phone-advisor/internal/config"
	"github.com/spherical-ai/phone-advisor/internal/embedding"
	"github.com/spherical-ai/phone-advisor/internal/observability"
)

const phonesCSV = `Name,Brand,Model,Price,Battery capacity (mAh),Screen size (inches),RAM (MB),Internal storage (GB),Rear camera,Operating system
Galaxy A15,Samsung,A15,300,5000,6.5,4096,128,50,Android
iPhone 13,Apple,13,450,3240,6.1,4096,128,12,iOS
Redmi Note 13,Xiaomi,Note 13,250,5000,6.67,6144,128,108,Android
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "phones.csv")
	require.NoError(t, os.WriteFile(path, []byte(phonesCSV), 0o644))

	cfg := config.DefaultConfig()
	cfg.Catalog.Path = path
	cfg.Database.SQLite.Path = filepath.Join(dir, "db", "index.db")
	cfg.Embedding.BaseURL = ""
	return cfg
}

func embeddingServer(t *testing.T) *httptest.Server {
	t.Helper()
	mock := embedding.NewMockClient(64)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedding.EmbeddingRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		vectors, err := mock.Embed(r.Context(), req.Input)
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		resp := embedding.EmbeddingResponse{Object: "list", Model: req.Model}
		for i, v := range vectors {
			resp.Data = append(resp.Data, embedding.EmbeddingData{Index: i, Embedding: v})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_KeywordMode(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), observability.NopLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Index)
	require.NoError(t, a.Warm(ctx, nil))

	_, err = a.RebuildCatalog(ctx)
	assert.ErrorIs(t, err, ErrVectorSearchDisabled)

	evidence, err := a.Retriever.Search(ctx, "xiaomi redmi", 3)
	require.NoError(t, err)
	require.NotEmpty(t, evidence)
	assert.Nil(t, evidence[0].Score)

	rec, err := a.Chat.Recommend(ctx, "samsung under 400")
	require.NoError(t, err)
	require.Len(t, rec.Recommendations, 1)
	assert.Equal(t, "Galaxy A15", rec.Recommendations[0].Name)
}

func TestNew_VectorModePersistsIndex(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Embedding.BaseURL = embeddingServer(t).URL

	a, err := New(ctx, cfg, observability.NopLogger())
	require.NoError(t, err)
	require.NotNil(t, a.Index)
	assert.False(t, a.Index.Ready())

	var last int
	require.NoError(t, a.Warm(ctx, func(done, total int) {
		assert.Equal(t, 3, total)
		last = done
	}))
	assert.Equal(t, 3, last)
	assert.True(t, a.Index.Ready())
	version := a.Index.Version()

	evidence, err := a.Retriever.Search(ctx, "Redmi Note 13 by Xiaomi", 1)
	require.NoError(t, err)
	require.Len(t, evidence, 1)
	require.NotNil(t, evidence[0].Score)
	assert.Contains(t, evidence[0].Content, "Redmi Note 13")
	require.NoError(t, a.Close())

	restarted, err := New(ctx, cfg, observability.NopLogger())
	require.NoError(t, err)
	defer restarted.Close()

	assert.True(t, restarted.Index.Ready())
	assert.Equal(t, version, restarted.Index.Version())
	assert.Equal(t, 3, restarted.Index.Len())

	require.NoError(t, restarted.Warm(ctx, nil))
	assert.Equal(t, version, restarted.Index.Version(), "warm keeps a restored index")

	res, err := restarted.RebuildCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Documents)
	assert.NotEqual(t, version, res.Version)
}

func TestNew_MissingCatalog(t *testing.T) {
	cfg := testConfig(t)
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "missing.csv")

	_, err := New(context.Background(), cfg, observability.NopLogger())
	assert.Error(t, err)
}
