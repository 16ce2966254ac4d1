package dto

import (
	"time"

	"github.com/AkhileshRajan/zentra-pro/internal/models"
)

type MeResponse struct {
	ID                 string                    `json:"id"`
	Email              string                    `json:"email"`
	Credits            int64                     `json:"credits"`
	SubscriptionStatus models.SubscriptionStatus `json:"subscription_status"`
	CreditsResetAt     string                    `json:"credits_reset_at,omitempty"`
	CreatedAt          time.Time                 `json:"created_at"`
}

// NewMeResponse projects a user onto the profile payload.
func NewMeResponse(u models.User) MeResponse {
	resp := MeResponse{
		ID:                 u.ID,
		Email:              u.Email,
		Credits:            u.Credits,
		SubscriptionStatus: u.SubscriptionStatus,
		CreatedAt:          u.CreatedAt,
	}
	if u.CreditsResetAt != nil {
		resp.CreditsResetAt = u.CreditsResetAt.Format(time.DateOnly)
	}
	return resp
}
