// Package chat answers free-text questions about phones, either by turning the
// text into preferences for the filter pipeline or by retrieval-grounded generation.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spherical-ai/phone-advisor/internal/catalog"
	"github.com/spherical-ai/phone-advisor/internal/generation"
	"github.com/spherical-ai/phone-advisor/internal/observability"
	"github.com/spherical-ai/phone-advisor/internal/recommend"
	"github.com/spherical-ai/phone-advisor/internal/retrieval"
)

// ErrEmptyMessage is returned for blank chat input.
var ErrEmptyMessage = errors.New("message is empty")

// Kind tells whether a reply used catalog evidence.
type Kind string

const (
	KindGrounded Kind = "RAG"
	KindGeneral  Kind = "GENERAL"
)

// Result is a generated chat reply.
type Result struct {
	Reply    string `json:"reply"`
	Kind     Kind   `json:"type"`
	Evidence int    `json:"-"`
}

// Recommendation is the structured reply to a chat message.
type Recommendation struct {
	Message         string                `json:"message"`
	Recommendations []recommend.Match     `json:"recommendations"`
	Hints           recommend.Preferences `json:"-"`
	Relaxed         bool                  `json:"-"`
}

// RouterConfig tunes the router.
type RouterConfig struct {
	K                  int
	MinRelevance       float64
	MaxRecommendations int
}

// Router serves both chat strategies. They are exposed separately and never merged.
type Router struct {
	catalog   *catalog.Provider
	retriever retrieval.Retriever
	completer generation.Completer
	logger    *observability.Logger
	cfg       RouterConfig
}

// NewRouter creates a chat router.
func NewRouter(
	provider *catalog.Provider,
	retriever retrieval.Retriever,
	completer generation.Completer,
	logger *observability.Logger,
	cfg RouterConfig,
) *Router {
	if cfg.K <= 0 {
		cfg.K = 5
	}
	if cfg.MaxRecommendations <= 0 {
		cfg.MaxRecommendations = 8
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Router{
		catalog:   provider,
		retriever: retriever,
		completer: completer,
		logger:    logger.WithOperation("chat"),
		cfg:       cfg,
	}
}

// Recommend extracts hints from text and returns the top filtered phones.
// When a price hint leaves nothing under strict admission, the search is
// repeated without price limits so the reply is empty only for an empty catalog.
func (r *Router) Recommend(ctx context.Context, text string) (*Recommendation, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	cat, err := r.catalog.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	hints := ExtractHints(text, cat.Brands())
	phones := cat.Phones()
	matches := recommend.Filter(phones, hints, cat.Stats())

	relaxed := false
	if len(matches) == 0 && hints.MaxPrice != nil {
		loose := hints
		loose.MaxPrice = nil
		matches = recommend.Filter(phones, loose, cat.Stats())
		relaxed = true
	}

	top := recommend.Top(matches, r.cfg.MaxRecommendations)

	r.logger.WithContext(ctx).Debug().
		Bool("brand", hints.Brand != nil).
		Bool("price", hints.MaxPrice != nil).
		Bool("relaxed", relaxed).
		Int("matches", len(matches)).
		Msg("Structured chat recommendation")

	return &Recommendation{
		Message:         recommendationMessage(hints, len(top), relaxed),
		Recommendations: top,
		Hints:           hints,
		Relaxed:         relaxed,
	}, nil
}

// Chat answers from retrieved evidence when the gate keeps any, and from the
// model's general knowledge otherwise. Retrieval failures fall back to the
// general path; completion failures return generation.ErrUnavailable.
func (r *Router) Chat(ctx context.Context, question string) (*Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyMessage
	}
	logger := r.logger.WithContext(ctx)
	start := time.Now()

	var evidence []retrieval.Evidence
	if r.retriever != nil {
		found, err := r.retriever.Search(ctx, question, r.cfg.K)
		if err != nil {
			logger.Warn().Err(err).Msg("Retrieval failed, answering without catalog evidence")
		} else {
			evidence = found
		}
	}

	selected := retrieval.SelectForGrounding(evidence, r.cfg.MinRelevance)
	observability.EvidenceSelected.Observe(float64(len(selected)))

	kind := KindGeneral
	prompt := GeneralPrompt(question)
	if len(selected) > 0 {
		kind = KindGrounded
		prompt = GroundedPrompt(selected, question)
	}

	reply, err := r.completer.Complete(ctx, prompt)
	if err != nil {
		if !errors.Is(err, generation.ErrUnavailable) {
			err = fmt.Errorf("%w: %v", generation.ErrUnavailable, err)
		}
		return nil, err
	}

	observability.ChatReplies.WithLabelValues(string(kind)).Inc()
	logger.Info().
		Str("type", string(kind)).
		Int("retrieved", len(evidence)).
		Int("grounding", len(selected)).
		Dur("duration", time.Since(start)).
		Msg("Chat reply generated")

	return &Result{Reply: reply, Kind: kind, Evidence: len(selected)}, nil
}

func recommendationMessage(h recommend.Preferences, n int, relaxed bool) string {
	if n == 0 {
		return "No phones are available right now."
	}

	var criteria []string
	if h.Brand != nil {
		criteria = append(criteria, *h.Brand)
	}
	if h.MaxPrice != nil && !relaxed {
		criteria = append(criteria, fmt.Sprintf("up to %s", formatAmount(*h.MaxPrice)))
	}
	if h.MinBattery != nil {
		criteria = append(criteria, fmt.Sprintf("%dmAh+ battery", *h.MinBattery))
	}
	if h.MinMemory != nil {
		criteria = append(criteria, fmt.Sprintf("%dMB+ RAM", *h.MinMemory))
	}
	if h.MinCamera != nil {
		criteria = append(criteria, fmt.Sprintf("%dMP+ camera", *h.MinCamera))
	}

	var b strings.Builder
	if relaxed {
		fmt.Fprintf(&b, "Nothing fits a budget of %s, so the price limit was dropped. ", formatAmount(*h.MaxPrice))
	}
	if len(criteria) == 0 {
		fmt.Fprintf(&b, "Here are %d phones to start with. Tell me your budget, brand or the specs you care about for better matches.", n)
		return b.String()
	}
	fmt.Fprintf(&b, "Here are the top %d phones for: %s.", n, strings.Join(criteria, ", "))
	return b.String()
}

func formatAmount(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
