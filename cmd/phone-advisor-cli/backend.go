package main

import (
	"context"
	"fmt"

	"github.com/spherical-ai/phone-advisor/internal/app"
	"github.com/spherical-ai/phone-advisor/internal/catalog"
	"github.com/spherical-ai/phone-advisor/internal/recommend"
	"github.com/spherical-ai/phone-advisor/pkg/client"
)

// backend is what every command talks to: the services in process, or a
// running API server when --server is set. Results use the SDK types.
type backend interface {
	Brands(ctx context.Context) ([]string, error)
	PriceRange(ctx context.Context) (*client.PriceRange, error)
	Stats(ctx context.Context) (*client.Stats, error)
	Filter(ctx context.Context, prefs client.Preferences) (*client.FilterResponse, error)
	Chat(ctx context.Context, message string) (*client.ChatReply, error)
	Recommend(ctx context.Context, message string) (*client.Recommendation, error)
	RebuildIndex(ctx context.Context, progress func(done, total int)) (*client.RebuildResult, error)
	// Prepare makes retrieval ready before chatting.
	Prepare(ctx context.Context, progress func(done, total int)) error
	Close() error
}

func openBackend(ctx context.Context) (backend, error) {
	if serverURL != "" {
		return &remoteBackend{Client: client.NewClient(client.ClientConfig{BaseURL: serverURL})}, nil
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &localBackend{app: a}, nil
}

type remoteBackend struct {
	*client.Client
}

func (r *remoteBackend) RebuildIndex(ctx context.Context, _ func(done, total int)) (*client.RebuildResult, error) {
	return r.Client.RebuildIndex(ctx)
}

func (r *remoteBackend) Prepare(context.Context, func(done, total int)) error { return nil }

func (r *remoteBackend) Close() error { return nil }

type localBackend struct {
	app *app.App
}

func (l *localBackend) catalog(ctx context.Context) (*catalog.Catalog, error) {
	return l.app.Catalog.Get(ctx)
}

func (l *localBackend) Brands(ctx context.Context) ([]string, error) {
	cat, err := l.catalog(ctx)
	if err != nil {
		return nil, err
	}
	return cat.Brands(), nil
}

func (l *localBackend) PriceRange(ctx context.Context) (*client.PriceRange, error) {
	cat, err := l.catalog(ctx)
	if err != nil {
		return nil, err
	}
	pr := cat.PriceRange()
	return &client.PriceRange{Min: pr.Min, Max: pr.Max}, nil
}

func (l *localBackend) Stats(ctx context.Context) (*client.Stats, error) {
	cat, err := l.catalog(ctx)
	if err != nil {
		return nil, err
	}
	s := cat.Stats()
	return &client.Stats{
		MaxPrice:   s.MaxPrice,
		MaxBattery: s.MaxBattery,
		MaxRAM:     s.MaxRAM,
		MaxCamera:  s.MaxCamera,
	}, nil
}

func (l *localBackend) Filter(ctx context.Context, prefs client.Preferences) (*client.FilterResponse, error) {
	cat, err := l.catalog(ctx)
	if err != nil {
		return nil, err
	}
	matches := recommend.Filter(cat.Phones(), toPreferences(prefs), cat.Stats())
	return &client.FilterResponse{Count: len(matches), Results: toMatches(matches)}, nil
}

func (l *localBackend) Chat(ctx context.Context, message string) (*client.ChatReply, error) {
	res, err := l.app.Chat.Chat(ctx, message)
	if err != nil {
		return nil, err
	}
	return &client.ChatReply{Reply: res.Reply, Type: string(res.Kind)}, nil
}

func (l *localBackend) Recommend(ctx context.Context, message string) (*client.Recommendation, error) {
	rec, err := l.app.Chat.Recommend(ctx, message)
	if err != nil {
		return nil, err
	}
	return &client.Recommendation{Message: rec.Message, Recommendations: toMatches(rec.Recommendations)}, nil
}

func (l *localBackend) RebuildIndex(ctx context.Context, progress func(done, total int)) (*client.RebuildResult, error) {
	res, err := l.app.RebuildIndex(ctx, progress)
	if err != nil {
		return nil, err
	}
	return &client.RebuildResult{
		Documents: res.Documents,
		Version:   res.Version,
		Model:     res.Model,
		BuiltAt:   res.BuiltAt,
	}, nil
}

func (l *localBackend) Prepare(ctx context.Context, progress func(done, total int)) error {
	if err := l.app.Warm(ctx, progress); err != nil {
		return fmt.Errorf("build semantic index: %w", err)
	}
	return nil
}

func (l *localBackend) Close() error {
	return l.app.Close()
}

func toPreferences(p client.Preferences) recommend.Preferences {
	return recommend.Preferences{
		Brand:      p.Brand,
		MinPrice:   p.MinPrice,
		MaxPrice:   p.MaxPrice,
		MinBattery: p.MinBattery,
		MinMemory:  p.MinRAM,
		MinCamera:  p.MinCameraMP,
		Screen:     p.Screen,
	}
}

func toMatches(matches []recommend.Match) []client.Match {
	out := make([]client.Match, len(matches))
	for i, m := range matches {
		out[i] = client.Match{
			Phone: client.Phone{
				Name:     m.Name,
				Brand:    m.Brand,
				Price:    m.Price,
				Battery:  m.Battery,
				RAM:      m.RAM,
				CameraMP: m.CameraMP,
				ImageURL: m.ImageURL,
				Screen:   m.Screen,
			},
			MatchPercentage: m.MatchPercentage,
			Reasons:         m.Reasons,
		}
	}
	return out
}
