package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/spherical-ai/phone-advisor/internal/chat"
	"github.com/spherical-ai/phone-advisor/internal/generation"
	"github.com/spherical-ai/phone-advisor/internal/observability"
)

// Chatter answers chat messages.
type Chatter interface {
	Chat(ctx context.Context, question string) (*chat.Result, error)
	Recommend(ctx context.Context, text string) (*chat.Recommendation, error)
}

// ChatHandler handles free-text chat requests.
type ChatHandler struct {
	logger *observability.Logger
	chat   Chatter
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(logger *observability.Logger, chatter Chatter) *ChatHandler {
	return &ChatHandler{
		logger: logger,
		chat:   chatter,
	}
}

// ChatRequestDTO is the body of both chat endpoints.
type ChatRequestDTO struct {
	Message string `json:"message"`
}

// Chat handles POST /chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	msg, ok := h.message(w, r)
	if !ok {
		return
	}

	res, err := h.chat.Chat(r.Context(), msg)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, res)
}

// Recommend handles POST /chat/recommend.
func (h *ChatHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	msg, ok := h.message(w, r)
	if !ok {
		return
	}

	rec, err := h.chat.Recommend(r.Context(), msg)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, rec)
}

func (h *ChatHandler) message(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req ChatRequestDTO
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return "", false
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required", "")
		return "", false
	}
	return req.Message, true
}

func (h *ChatHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "message is required", "")
	case errors.Is(err, generation.ErrUnavailable):
		h.logger.WithContext(r.Context()).Warn().Err(err).Msg("Generation unavailable")
		writeError(w, http.StatusServiceUnavailable, "generation unavailable", err.Error())
	default:
		h.logger.WithContext(r.Context()).Error().Err(err).Msg("Chat failed")
		writeError(w, http.StatusInternalServerError, "chat failed", err.Error())
	}
}
