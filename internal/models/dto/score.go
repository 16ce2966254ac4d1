package dto

import "github.com/AkhileshRajan/zentra-pro/internal/models"

type ScoreRequest struct {
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Savings  float64 `json:"savings"`
	Debt     float64 `json:"debt"`
}

type ScoreResponse struct {
	Score  float64            `json:"score"`
	Record models.ScoreRecord `json:"record"`
}

type ScoreHistoryResponse struct {
	Records []models.ScoreRecord `json:"records"`
}
