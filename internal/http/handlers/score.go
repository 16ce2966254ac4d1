package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AkhileshRajan/zentra-pro/internal/apperr"
	"github.com/AkhileshRajan/zentra-pro/internal/gate"
	"github.com/AkhileshRajan/zentra-pro/internal/http/respond"
	"github.com/AkhileshRajan/zentra-pro/internal/models"
	"github.com/AkhileshRajan/zentra-pro/internal/models/dto"
	"github.com/AkhileshRajan/zentra-pro/internal/score"
	"github.com/AkhileshRajan/zentra-pro/internal/storage"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// ScoreHandler computes, stores and lists Zentra scores. Scoring is free.
type ScoreHandler struct {
	gate   *gate.Gate
	scores storage.ScoreStore
	logger *zap.Logger
}

// NewScoreHandler constructs the handler.
func NewScoreHandler(g *gate.Gate, scores storage.ScoreStore, logger *zap.Logger) *ScoreHandler {
	return &ScoreHandler{gate: g, scores: scores, logger: logger}
}

// Register attaches score routes.
func (h *ScoreHandler) Register(r chi.Router) {
	r.Post("/zentra-score", h.handleScore)
	r.Get("/zentra-score/history", h.handleHistory)
}

func (h *ScoreHandler) handleScore(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req dto.ScoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := h.gate.Admit(r.Context(), id); err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	result := score.Compute(score.Inputs{
		Income:   req.Income,
		Expenses: req.Expenses,
		Savings:  req.Savings,
		Debt:     req.Debt,
	})
	record, err := h.scores.SaveScore(r.Context(), models.ScoreRecord{
		ID:       uuid.NewString(),
		UserID:   id.ID,
		Income:   result.Income,
		Expenses: result.Expenses,
		Savings:  result.Savings,
		Debt:     result.Debt,
		Score:    result.Score,
	})
	if err != nil {
		respond.Error(w, h.logger, apperr.Wrap(apperr.KindInternal, "could not save score", err))
		return
	}

	respond.JSON(w, http.StatusOK, dto.ScoreResponse{Score: result.Score, Record: record})
}

func (h *ScoreHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respond.Fail(w, apperr.KindValidation, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	if _, err := h.gate.Admit(r.Context(), id); err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	records, err := h.scores.ListScores(r.Context(), id.ID, limit)
	if err != nil {
		respond.Error(w, h.logger, apperr.Wrap(apperr.KindInternal, "could not list scores", err))
		return
	}
	respond.JSON(w, http.StatusOK, dto.ScoreHistoryResponse{Records: records})
}
