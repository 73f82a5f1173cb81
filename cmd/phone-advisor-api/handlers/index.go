package handlers

import (
	"context"
	"net/http"

	"github.com/spherical-ai/phone-advisor/internal/observability"
	"github.com/spherical-ai/phone-advisor/internal/retrieval"
)

// Rebuilder rebuilds the semantic index from the current catalog.
type Rebuilder interface {
	RebuildCatalog(ctx context.Context) (*retrieval.RebuildResult, error)
}

// IndexHandler exposes semantic index administration.
type IndexHandler struct {
	logger    *observability.Logger
	rebuilder Rebuilder
}

// NewIndexHandler creates a new index handler. A nil rebuilder means vector
// search is disabled.
func NewIndexHandler(logger *observability.Logger, rebuilder Rebuilder) *IndexHandler {
	return &IndexHandler{
		logger:    logger,
		rebuilder: rebuilder,
	}
}

// Rebuild handles POST /admin/index/rebuild.
func (h *IndexHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if h.rebuilder == nil {
		writeError(w, http.StatusConflict, "semantic index disabled", "no embedding endpoint is configured")
		return
	}

	res, err := h.rebuilder.RebuildCatalog(r.Context())
	if err != nil {
		h.logger.WithContext(r.Context()).Error().Err(err).Msg("Index rebuild failed")
		writeError(w, http.StatusInternalServerError, "index rebuild failed", err.Error())
		return
	}
	writeJSON(w, h.logger, http.StatusOK, res)
}
