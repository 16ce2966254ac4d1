package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/AkhileshRajan/zentra-pro/internal/gate"
	"github.com/AkhileshRajan/zentra-pro/internal/http/respond"
	"github.com/AkhileshRajan/zentra-pro/internal/models/dto"
)

// AccountHandler serves the caller's profile.
type AccountHandler struct {
	gate   *gate.Gate
	logger *zap.Logger
}

// NewAccountHandler constructs the handler.
func NewAccountHandler(g *gate.Gate, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{gate: g, logger: logger}
}

// Register attaches account routes.
func (h *AccountHandler) Register(r chi.Router) {
	r.Get("/me", h.handleMe)
}

func (h *AccountHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	user, err := h.gate.Admit(r.Context(), id)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.NewMeResponse(user))
}
