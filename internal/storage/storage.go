package storage

import (
	"context"
	"errors"
	"time"

	"github.com/AkhileshRajan/zentra-pro/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ErrConditionNotMet indicates a conditional update matched an existing row whose
// current values did not satisfy the condition.
var ErrConditionNotMet = errors.New("update condition not met")

// DefaultTimeout bounds a single store operation when none is configured.
const DefaultTimeout = 5 * time.Second

// UserStore captures single-row persistence operations on users. It applies no
// business policy: defaults and reset rules belong to the ledger.
type UserStore interface {
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	UpdateCredits(ctx context.Context, id string, credits int64) error
	// DeductCredits subtracts amount only if the current balance covers it, as one
	// atomic statement. It returns ErrNotFound for an unknown id and
	// ErrConditionNotMet when the balance is too low.
	DeductCredits(ctx context.Context, id string, amount int64) (models.User, error)
	UpdateSubscription(ctx context.Context, id string, status models.SubscriptionStatus, credits int64, nextReset time.Time) error
	UpdateStatus(ctx context.Context, id string, status models.SubscriptionStatus) error
	// ResetCredits sets credits and the next reset date only while credits_reset_at
	// still equals expectedResetAt. It returns ErrConditionNotMet if another writer
	// moved the date first.
	ResetCredits(ctx context.Context, id string, expectedResetAt time.Time, credits int64, nextReset time.Time) (models.User, error)
}

// ScoreStore persists append-only score records.
type ScoreStore interface {
	SaveScore(ctx context.Context, record models.ScoreRecord) (models.ScoreRecord, error)
	ListScores(ctx context.Context, userID string, limit int) ([]models.ScoreRecord, error)
}

// Store is the full persistence surface a backend provides.
type Store interface {
	UserStore
	ScoreStore
	Close() error
}

// DateOnly truncates t to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
