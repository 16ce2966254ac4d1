package models

import "time"

// SubscriptionStatus is the billing tier of a user.
type SubscriptionStatus string

const (
	SubscriptionFree      SubscriptionStatus = "free"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionFree, SubscriptionActive, SubscriptionCancelled:
		return true
	}
	return false
}

// User captures application-facing fields for an authenticated identity.
type User struct {
	ID                 string             `json:"id"`
	Email              string             `json:"email"`
	Credits            int64              `json:"credits"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
	// CreditsResetAt is a calendar date held as UTC midnight. Nil means no reset is scheduled.
	CreditsResetAt *time.Time `json:"credits_reset_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
