package models

import "time"

// ScoreRecord is one persisted Zentra score computation. Records are append-only.
type ScoreRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Income    float64   `json:"income"`
	Expenses  float64   `json:"expenses"`
	Savings   float64   `json:"savings"`
	Debt      float64   `json:"debt"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}
