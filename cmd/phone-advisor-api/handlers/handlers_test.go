package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/phone-advisor/internal/catalog"
	"github.com/spherical-ai/phone-advisor/internal/chat"
	"github.com/spherical-ai/phone-advisor/internal/generation"
	"github.com/spherical-ai/phone-advisor/internal/observability"
	"github.com/spherical-ai/phone-advisor/internal/retrieval"
)

func testProvider() *catalog.Provider {
	return catalog.Static(catalog.New([]catalog.Phone{
		{Name: "Galaxy S21", Brand: "Samsung", Price: 799, Battery: 4000, RAM: 8000, CameraMP: 12},
		{Name: "iPhone 13", Brand: "Apple", Price: 999, Battery: 3240, RAM: 4000, CameraMP: 12},
		{Name: "Nord 2", Brand: "OnePlus", Price: 399, Battery: 4500, RAM: 12000, CameraMP: 50},
	}))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestCatalogHandler_Metadata(t *testing.T) {
	h := NewCatalogHandler(observability.NopLogger(), testProvider())

	rec := httptest.NewRecorder()
	h.Brands(rec, httptest.NewRequest(http.MethodGet, "/brands", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Apple", "OnePlus", "Samsung"}, decode[[]string](t, rec))

	rec = httptest.NewRecorder()
	h.PriceRange(rec, httptest.NewRequest(http.MethodGet, "/price-range", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]float64{"min": 399, "max": 999}, decode[map[string]float64](t, rec))

	rec = httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"max_price":999,"max_battery":4500,"max_ram":12000,"max_camera":50}`, rec.Body.String())
}

func TestCatalogHandler_EmptyCatalogStats(t *testing.T) {
	h := NewCatalogHandler(observability.NopLogger(), catalog.Static(catalog.New(nil)))

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.JSONEq(t, `{"max_price":0,"max_battery":0,"max_ram":0,"max_camera":0}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.Filter(rec, httptest.NewRequest(http.MethodPost, "/filter", strings.NewReader(`{"max_price":500}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":0,"results":[]}`, rec.Body.String())
}

func TestCatalogHandler_Filter(t *testing.T) {
	h := NewCatalogHandler(observability.NopLogger(), testProvider())

	rec := httptest.NewRecorder()
	body := `{"max_price":800,"min_battery":4000}`
	h.Filter(rec, httptest.NewRequest(http.MethodPost, "/filter", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count   int `json:"count"`
		Results []struct {
			Name            string   `json:"name"`
			Brand           string   `json:"brand"`
			Price           float64  `json:"price"`
			MatchPercentage float64  `json:"match_percentage"`
			Reasons         []string `json:"reasons"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Equal(t, 2, resp.Count)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Nord 2", resp.Results[0].Name)
	assert.Equal(t, "Galaxy S21", resp.Results[1].Name)
	assert.GreaterOrEqual(t, resp.Results[0].MatchPercentage, resp.Results[1].MatchPercentage)
	assert.Contains(t, resp.Results[0].Reasons, "Price within budget")
}

func TestCatalogHandler_FilterEmptyBodyReturnsCatalog(t *testing.T) {
	h := NewCatalogHandler(observability.NopLogger(), testProvider())

	rec := httptest.NewRecorder()
	h.Filter(rec, httptest.NewRequest(http.MethodPost, "/filter", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[FilterResponseDTO](t, rec)
	require.Equal(t, 3, resp.Count)
	assert.Equal(t, "Galaxy S21", resp.Results[0].Name)
	assert.Zero(t, resp.Results[0].MatchPercentage)
}

func TestCatalogHandler_FilterBadJSON(t *testing.T) {
	h := NewCatalogHandler(observability.NopLogger(), testProvider())

	rec := httptest.NewRecorder()
	h.Filter(rec, httptest.NewRequest(http.MethodPost, "/filter", strings.NewReader(`{"max_price":"cheap"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request body", decode[map[string]string](t, rec)["error"])
}

func TestCatalogHandler_CatalogUnavailable(t *testing.T) {
	provider := catalog.NewProvider(func(context.Context) (*catalog.Catalog, error) {
		return nil, catalog.ErrNoSource
	})
	h := NewCatalogHandler(observability.NopLogger(), provider)

	rec := httptest.NewRecorder()
	h.Brands(rec, httptest.NewRequest(http.MethodGet, "/brands", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "catalog unavailable", decode[map[string]string](t, rec)["error"])
}

type stubChatter struct {
	result *chat.Result
	rec    *chat.Recommendation
	err    error
}

func (s *stubChatter) Chat(context.Context, string) (*chat.Result, error) {
	return s.result, s.err
}

func (s *stubChatter) Recommend(context.Context, string) (*chat.Recommendation, error) {
	return s.rec, s.err
}

func TestChatHandler_Chat(t *testing.T) {
	h := NewChatHandler(observability.NopLogger(), &stubChatter{
		result: &chat.Result{Reply: "The Nord 2 has 12GB of RAM.", Kind: chat.KindGrounded, Evidence: 2},
	})

	rec := httptest.NewRecorder()
	h.Chat(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"most ram?"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reply":"The Nord 2 has 12GB of RAM.","type":"RAG"}`, rec.Body.String())
}

func TestChatHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		want   string
	}{
		{name: "malformed body", body: `{`, status: http.StatusBadRequest, want: "invalid request body"},
		{name: "blank message", body: `{"message":"  "}`, status: http.StatusBadRequest, want: "message is required"},
		{
			name:   "generation unavailable",
			body:   `{"message":"hi"}`,
			err:    fmt.Errorf("%w: connection refused", generation.ErrUnavailable),
			status: http.StatusServiceUnavailable,
			want:   "generation unavailable",
		},
		{
			name:   "unexpected failure",
			body:   `{"message":"hi"}`,
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
			want:   "chat failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewChatHandler(observability.NopLogger(), &stubChatter{err: tt.err})

			rec := httptest.NewRecorder()
			h.Chat(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.want, decode[map[string]string](t, rec)["error"])
		})
	}
}

func TestChatHandler_Recommend(t *testing.T) {
	cat, err := testProvider().Get(context.Background())
	require.NoError(t, err)
	router := chat.NewRouter(catalog.Static(cat), nil, nil, nil, chat.RouterConfig{})
	h := NewChatHandler(observability.NopLogger(), router)

	rec := httptest.NewRecorder()
	h.Recommend(rec, httptest.NewRequest(http.MethodPost, "/chat/recommend", strings.NewReader(`{"message":"samsung under 900"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Message         string `json:"message"`
		Recommendations []struct {
			Name            string  `json:"name"`
			MatchPercentage float64 `json:"match_percentage"`
		} `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Recommendations, 1)
	assert.Equal(t, "Galaxy S21", resp.Recommendations[0].Name)
	assert.Contains(t, resp.Message, "Samsung")
}

type stubRebuilder struct {
	res *retrieval.RebuildResult
	err error
}

func (s *stubRebuilder) RebuildCatalog(context.Context) (*retrieval.RebuildResult, error) {
	return s.res, s.err
}

func TestIndexHandler_Rebuild(t *testing.T) {
	h := NewIndexHandler(observability.NopLogger(), &stubRebuilder{
		res: &retrieval.RebuildResult{Documents: 3, Version: "c0ffee", Model: "nomic-embed-text"},
	})

	rec := httptest.NewRecorder()
	h.Rebuild(rec, httptest.NewRequest(http.MethodPost, "/admin/index/rebuild", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[map[string]any](t, rec)
	assert.EqualValues(t, 3, resp["documents"])
	assert.Equal(t, "c0ffee", resp["version"])
}

func TestIndexHandler_RebuildErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	NewIndexHandler(observability.NopLogger(), nil).
		Rebuild(rec, httptest.NewRequest(http.MethodPost, "/admin/index/rebuild", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	NewIndexHandler(observability.NopLogger(), &stubRebuilder{err: errors.New("embedding server down")}).
		Rebuild(rec, httptest.NewRequest(http.MethodPost, "/admin/index/rebuild", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "embedding server down", decode[map[string]string](t, rec)["detail"])
}
