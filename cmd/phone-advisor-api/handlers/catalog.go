package handlers

import (
	"net/http"

	"github.com/spherical-ai/phone-advisor/internal/catalog"
	"github.com/spherical-ai/phone-advisor/internal/observability"
	"github.com/spherical-ai/phone-advisor/internal/recommend"
)

// CatalogHandler serves catalog metadata and the filter pipeline.
type CatalogHandler struct {
	logger   *observability.Logger
	provider *catalog.Provider
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(logger *observability.Logger, provider *catalog.Provider) *CatalogHandler {
	return &CatalogHandler{
		logger:   logger,
		provider: provider,
	}
}

// StatsDTO is the public view of catalog maxima.
type StatsDTO struct {
	MaxPrice   float64 `json:"max_price"`
	MaxBattery int     `json:"max_battery"`
	MaxRAM     int     `json:"max_ram"`
	MaxCamera  int     `json:"max_camera"`
}

// FilterResponseDTO is the response of POST /filter.
type FilterResponseDTO struct {
	Count   int               `json:"count"`
	Results []recommend.Match `json:"results"`
}

// Brands handles GET /brands.
func (h *CatalogHandler) Brands(w http.ResponseWriter, r *http.Request) {
	cat, ok := h.catalog(w, r)
	if !ok {
		return
	}
	writeJSON(w, h.logger, http.StatusOK, cat.Brands())
}

// PriceRange handles GET /price-range.
func (h *CatalogHandler) PriceRange(w http.ResponseWriter, r *http.Request) {
	cat, ok := h.catalog(w, r)
	if !ok {
		return
	}
	writeJSON(w, h.logger, http.StatusOK, cat.PriceRange())
}

// Stats handles GET /stats.
func (h *CatalogHandler) Stats(w http.ResponseWriter, r *http.Request) {
	cat, ok := h.catalog(w, r)
	if !ok {
		return
	}
	s := cat.Stats()
	writeJSON(w, h.logger, http.StatusOK, StatsDTO{
		MaxPrice:   s.MaxPrice,
		MaxBattery: s.MaxBattery,
		MaxRAM:     s.MaxRAM,
		MaxCamera:  s.MaxCamera,
	})
}

// Filter handles POST /filter.
func (h *CatalogHandler) Filter(w http.ResponseWriter, r *http.Request) {
	var prefs recommend.Preferences
	if err := decodeBody(w, r, &prefs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	cat, ok := h.catalog(w, r)
	if !ok {
		return
	}

	results := recommend.Filter(cat.Phones(), prefs, cat.Stats())
	if results == nil {
		results = []recommend.Match{}
	}
	observability.FilterResults.Observe(float64(len(results)))

	writeJSON(w, h.logger, http.StatusOK, FilterResponseDTO{
		Count:   len(results),
		Results: results,
	})
}

func (h *CatalogHandler) catalog(w http.ResponseWriter, r *http.Request) (*catalog.Catalog, bool) {
	cat, err := h.provider.Get(r.Context())
	if err != nil {
		h.logger.WithContext(r.Context()).Error().Err(err).Msg("Catalog unavailable")
		writeError(w, http.StatusInternalServerError, "catalog unavailable", err.Error())
		return nil, false
	}
	return cat, true
}
