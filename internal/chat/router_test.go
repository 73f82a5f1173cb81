package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/phone-advisor/internal/catalog"
	"github.com/spherical-ai/phone-advisor/internal/generation"
	"github.com/spherical-ai/phone-advisor/internal/retrieval"
)

type fakeRetriever struct {
	evidence []retrieval.Evidence
	err      error
	queries  []string
}

func (f *fakeRetriever) Search(_ context.Context, query string, _ int) ([]retrieval.Evidence, error) {
	f.queries = append(f.queries, query)
	return f.evidence, f.err
}

type fakeCompleter struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func testCatalog() *catalog.Provider {
	return catalog.Static(catalog.New([]catalog.Phone{
		{Name: "Galaxy A15", Brand: "Samsung", Price: 300, Battery: 5000, RAM: 4096, CameraMP: 50},
		{Name: "Galaxy S24", Brand: "Samsung", Price: 900, Battery: 4000, RAM: 8192, CameraMP: 50},
		{Name: "iPhone 13", Brand: "Apple", Price: 450, Battery: 3240, RAM: 4096, CameraMP: 12},
		{Name: "Redmi Note 13", Brand: "Xiaomi", Price: 250, Battery: 5000, RAM: 6144, CameraMP: 108},
	}))
}

func newTestRouter(r retrieval.Retriever, c generation.Completer) *Router {
	return NewRouter(testCatalog(), r, c, nil, RouterConfig{K: 5, MinRelevance: 0.35, MaxRecommendations: 8})
}

func TestRouter_RecommendBrandAndBudget(t *testing.T) {
	router := newTestRouter(nil, &fakeCompleter{})

	rec, err := router.Recommend(context.Background(), "I want a Samsung phone under 500")
	require.NoError(t, err)

	require.Len(t, rec.Recommendations, 1)
	assert.Equal(t, "Galaxy A15", rec.Recommendations[0].Name)
	assert.False(t, rec.Relaxed)
	assert.Contains(t, rec.Message, "Samsung")
	assert.Contains(t, rec.Message, "up to 500")
}

func TestRouter_RecommendRelaxesPrice(t *testing.T) {
	router := newTestRouter(nil, &fakeCompleter{})

	rec, err := router.Recommend(context.Background(), "anything under 50")
	require.NoError(t, err)

	assert.True(t, rec.Relaxed)
	assert.Len(t, rec.Recommendations, 4)
	assert.Contains(t, rec.Message, "Nothing fits a budget of 50")
	assert.NotContains(t, rec.Message, "up to 50")
}

func TestRouter_RecommendBrandMissDoesNotRelax(t *testing.T) {
	provider := catalog.Static(catalog.New([]catalog.Phone{
		{Name: "Pixel 8", Brand: "Google", Price: 700},
	}))
	router := NewRouter(provider, nil, &fakeCompleter{}, nil, RouterConfig{})

	rec, err := router.Recommend(context.Background(), "any google phone with battery 9000")
	require.NoError(t, err)
	assert.False(t, rec.Relaxed)
	require.Len(t, rec.Recommendations, 1)
}

func TestRouter_RecommendCapsResults(t *testing.T) {
	phones := make([]catalog.Phone, 12)
	for i := range phones {
		phones[i] = catalog.Phone{Name: fmt.Sprintf("Phone %d", i), Brand: "Acme", Price: float64(100 + i)}
	}
	router := NewRouter(catalog.Static(catalog.New(phones)), nil, &fakeCompleter{}, nil, RouterConfig{})

	rec, err := router.Recommend(context.Background(), "show me something nice")
	require.NoError(t, err)

	require.Len(t, rec.Recommendations, 8)
	for i, m := range rec.Recommendations {
		assert.Equal(t, fmt.Sprintf("Phone %d", i), m.Name)
		assert.Zero(t, m.MatchPercentage)
	}
	assert.Contains(t, rec.Message, "Tell me your budget")
}

func TestRouter_RecommendEmptyCatalog(t *testing.T) {
	router := NewRouter(catalog.Static(catalog.New(nil)), nil, &fakeCompleter{}, nil, RouterConfig{})

	rec, err := router.Recommend(context.Background(), "cheap phone under 100")
	require.NoError(t, err)
	assert.Empty(t, rec.Recommendations)
	assert.Equal(t, "No phones are available right now.", rec.Message)
}

func TestRouter_EmptyMessage(t *testing.T) {
	router := newTestRouter(&fakeRetriever{}, &fakeCompleter{})

	_, err := router.Recommend(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = router.Chat(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestRouter_CatalogLoadError(t *testing.T) {
	provider := catalog.NewProvider(func(context.Context) (*catalog.Catalog, error) {
		return nil, catalog.ErrNoSource
	})
	router := NewRouter(provider, nil, &fakeCompleter{}, nil, RouterConfig{})

	_, err := router.Recommend(context.Background(), "hello")
	assert.ErrorIs(t, err, catalog.ErrNoSource)
}

func TestRouter_ChatGrounded(t *testing.T) {
	retriever := &fakeRetriever{evidence: []retrieval.Evidence{
		{Content: "Galaxy A15 by Samsung, battery 5000", Score: retrieval.Scored(0.82)},
		{Content: "iPhone 13 by Apple, battery 3240", Score: retrieval.Scored(0.12)},
	}}
	completer := &fakeCompleter{reply: "The Galaxy A15 has a 5000 mAh battery."}
	router := newTestRouter(retriever, completer)

	res, err := router.Chat(context.Background(), "which samsung has the best battery?")
	require.NoError(t, err)

	assert.Equal(t, KindGrounded, res.Kind)
	assert.Equal(t, completer.reply, res.Reply)
	assert.Equal(t, 1, res.Evidence)

	require.Len(t, completer.prompts, 1)
	prompt := completer.prompts[0]
	assert.Contains(t, prompt, "- Galaxy A15 by Samsung, battery 5000")
	assert.NotContains(t, prompt, "iPhone 13")
	assert.Contains(t, prompt, RefusalSentence)
	assert.Contains(t, prompt, "which samsung has the best battery?")
}

func TestRouter_ChatUnscoredEvidenceGrounds(t *testing.T) {
	retriever := &fakeRetriever{evidence: []retrieval.Evidence{
		{Content: "Redmi Note 13 by Xiaomi"},
		{Content: "Galaxy A15 by Samsung"},
	}}
	completer := &fakeCompleter{reply: "ok"}
	router := newTestRouter(retriever, completer)

	res, err := router.Chat(context.Background(), "xiaomi phones?")
	require.NoError(t, err)
	assert.Equal(t, KindGrounded, res.Kind)
	assert.Equal(t, 2, res.Evidence)
	assert.Contains(t, completer.prompts[0], "- Redmi Note 13 by Xiaomi\n\n- Galaxy A15 by Samsung")
}

func TestRouter_ChatGeneralWhenNothingRelevant(t *testing.T) {
	retriever := &fakeRetriever{evidence: []retrieval.Evidence{
		{Content: "Galaxy A15 by Samsung", Score: retrieval.Scored(0.2)},
	}}
	completer := &fakeCompleter{reply: "5G is the fifth generation of cellular networks."}
	router := newTestRouter(retriever, completer)

	res, err := router.Chat(context.Background(), "what is 5G?")
	require.NoError(t, err)

	assert.Equal(t, KindGeneral, res.Kind)
	assert.Zero(t, res.Evidence)
	require.Len(t, completer.prompts, 1)
	assert.Equal(t, GeneralPrompt("what is 5G?"), completer.prompts[0])
}

func TestRouter_ChatRetrieverErrorFallsBack(t *testing.T) {
	retriever := &fakeRetriever{err: retrieval.ErrIndexNotReady}
	completer := &fakeCompleter{reply: "general answer"}
	router := newTestRouter(retriever, completer)

	res, err := router.Chat(context.Background(), "best phone for gaming?")
	require.NoError(t, err)
	assert.Equal(t, KindGeneral, res.Kind)
	assert.Equal(t, "general answer", res.Reply)
	assert.Len(t, retriever.queries, 1)
}

func TestRouter_ChatWithoutRetriever(t *testing.T) {
	completer := &fakeCompleter{reply: "general answer"}
	router := newTestRouter(nil, completer)

	res, err := router.Chat(context.Background(), "best phone for gaming?")
	require.NoError(t, err)
	assert.Equal(t, KindGeneral, res.Kind)
}

func TestRouter_ChatGenerationFailure(t *testing.T) {
	t.Run("plain errors are wrapped", func(t *testing.T) {
		router := newTestRouter(&fakeRetriever{}, &fakeCompleter{err: errors.New("connection refused")})

		_, err := router.Chat(context.Background(), "hello")
		require.Error(t, err)
		assert.ErrorIs(t, err, generation.ErrUnavailable)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("unavailable errors pass through", func(t *testing.T) {
		cause := fmt.Errorf("%w: breaker open", generation.ErrUnavailable)
		router := newTestRouter(&fakeRetriever{}, &fakeCompleter{err: cause})

		_, err := router.Chat(context.Background(), "hello")
		assert.Equal(t, cause, err)
	})
}

func TestPrompts(t *testing.T) {
	general := GeneralPrompt("is 8GB of RAM enough?")
	assert.Contains(t, general, "general knowledge")
	assert.Contains(t, general, "Question:\nis 8GB of RAM enough?")

	grounded := GroundedPrompt([]retrieval.Evidence{{Content: "a"}, {Content: "b"}}, "q")
	assert.Contains(t, grounded, "data phones:\n- a\n\n- b\n\nQuestion:\nq")
	assert.Contains(t, grounded, `"`+RefusalSentence+`"`)

	assert.Empty(t, FormatEvidence(nil))
}
