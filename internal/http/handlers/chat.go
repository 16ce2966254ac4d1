package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/AkhileshRajan/zentra-pro/internal/apperr"
	"github.com/AkhileshRajan/zentra-pro/internal/gate"
	"github.com/AkhileshRajan/zentra-pro/internal/http/respond"
	"github.com/AkhileshRajan/zentra-pro/internal/ledger"
	"github.com/AkhileshRajan/zentra-pro/internal/llm"
	"github.com/AkhileshRajan/zentra-pro/internal/models/dto"
)

// ChatHandler owns the paid assistant conversation endpoint.
type ChatHandler struct {
	gate      *gate.Gate
	assistant Assistant
	logger    *zap.Logger
}

// NewChatHandler constructs the handler.
func NewChatHandler(g *gate.Gate, assistant Assistant, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{gate: g, assistant: assistant, logger: logger}
}

// Register attaches chat routes.
func (h *ChatHandler) Register(r chi.Router) {
	r.Post("/chat", h.handleChat)
}

func (h *ChatHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req dto.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	messages, err := toLLMMessages(req.Messages)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	reply, _, err := h.gate.Spend(r.Context(), id, ledger.CreditsPerPrompt, func(ctx context.Context) (string, error) {
		return h.assistant.Chat(ctx, messages, req.Context)
	})
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	respond.JSON(w, http.StatusOK, dto.ChatResponse{
		Message:     dto.ChatMessage{Role: "assistant", Content: reply},
		CreditsUsed: ledger.CreditsPerPrompt,
	})
}

// toLLMMessages rejects empty conversations, unknown roles and blank content.
// Callers cannot inject system turns; the persona is added by the llm client.
func toLLMMessages(in []dto.ChatMessage) ([]llm.Message, error) {
	if len(in) == 0 {
		return nil, apperr.New(apperr.KindValidation, "messages must not be empty")
	}
	out := make([]llm.Message, 0, len(in))
	for _, m := range in {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		if role != "user" && role != "assistant" {
			return nil, apperr.New(apperr.KindValidation, "message role must be user or assistant")
		}
		if strings.TrimSpace(m.Content) == "" {
			return nil, apperr.New(apperr.KindValidation, "message content must not be empty")
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out, nil
}
