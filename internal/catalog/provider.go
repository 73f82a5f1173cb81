package catalog

import (
	"context"
	"sync"

	"github.com/spherical-ai/phone-advisor/internal/observability"
)

// LoadFunc produces a catalog. It is invoked at most once per Provider.
type LoadFunc func(ctx context.Context) (*Catalog, error)

// Provider lazily loads a catalog exactly once. Concurrent callers block on
// the first load and share its result or error.
type Provider struct {
	load LoadFunc

	once    sync.Once
	catalog *Catalog
	err     error
}

// NewProvider creates a Provider around load.
func NewProvider(load LoadFunc) *Provider {
	return &Provider{load: load}
}

// NewFileProvider creates a Provider that reads the CSV at path.
func NewFileProvider(path string, opts ...ProviderOption) *Provider {
	o := providerOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	return NewProvider(func(context.Context) (*Catalog, error) {
		res, err := LoadFile(path, o.logger)
		if err != nil {
			return nil, err
		}
		return res.Catalog, nil
	})
}

// Static returns a Provider over an already-built catalog.
func Static(c *Catalog) *Provider {
	p := &Provider{}
	p.once.Do(func() { p.catalog = c })
	return p
}

// Get returns the catalog, loading it on first use.
func (p *Provider) Get(ctx context.Context) (*Catalog, error) {
	p.once.Do(func() {
		p.catalog, p.err = p.load(ctx)
	})
	return p.catalog, p.err
}

type providerOptions struct {
	logger *observability.Logger
}

// ProviderOption configures a file-backed Provider.
type ProviderOption func(*providerOptions)

// WithLogger reports load warnings through logger.
func WithLogger(logger *observability.Logger) ProviderOption {
	return func(o *providerOptions) { o.logger = logger }
}
