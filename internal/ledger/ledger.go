// Package ledger owns the credits policy: provisioning users on first sight,
// applying the monthly reset, and deducting the cost of paid operations.
//
// Resets are lazy. A balance is refreshed by the first request that touches the
// user on or after credits_reset_at, so a user who makes no requests keeps a stale
// balance until they return. No scheduler runs in the background.
//
// All calendar arithmetic happens in UTC.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/AkhileshRajan/zentra-pro/internal/models"
	"github.com/AkhileshRajan/zentra-pro/internal/storage"
)

const (
	CreditsPerPrompt    int64 = 10
	FreeCreditsPerMonth int64 = 50
	PaidCreditsPerMonth int64 = 100
)

// Outcome is the result of a deduction attempt.
type Outcome int

const (
	OK Outcome = iota
	Insufficient
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Insufficient:
		return "insufficient"
	case NotFound:
		return "not_found"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// ErrInvalidAmount is returned for non-positive deductions or negative balances.
var ErrInvalidAmount = errors.New("ledger: amount must be positive")

// Ledger applies credit policy on top of a storage.UserStore.
type Ledger struct {
	store  storage.UserStore
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used to decide "today".
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// New constructs a Ledger over store.
func New(store storage.UserStore, opts ...Option) *Ledger {
	l := &Ledger{store: store, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Today returns the current UTC calendar date.
func (l *Ledger) Today() time.Time {
	return storage.DateOnly(l.now())
}

// FirstOfNextMonth returns the first day of the month following t's UTC date.
func FirstOfNextMonth(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
}

// AllowanceFor is the monthly credit grant of a subscription tier.
func AllowanceFor(status models.SubscriptionStatus) int64 {
	if status == models.SubscriptionActive {
		return PaidCreditsPerMonth
	}
	return FreeCreditsPerMonth
}

// Get reads the stored user.
func (l *Ledger) Get(ctx context.Context, id string) (models.User, error) {
	return l.store.FindByID(ctx, id)
}

// EnsureUser returns the user with id, creating a free-tier row on first sight.
// A concurrent first request that wins the insert is resolved by re-reading.
func (l *Ledger) EnsureUser(ctx context.Context, id, email string) (models.User, error) {
	user, err := l.store.FindByID(ctx, id)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return models.User{}, fmt.Errorf("find user: %w", err)
	}

	resetAt := FirstOfNextMonth(l.Today())
	created, err := l.store.CreateUser(ctx, models.User{
		ID:                 id,
		Email:              email,
		Credits:            FreeCreditsPerMonth,
		SubscriptionStatus: models.SubscriptionFree,
		CreditsResetAt:     &resetAt,
	})
	switch {
	case err == nil:
		l.logger.Info("provisioned user", zap.String("user_id", id))
		return created, nil
	case errors.Is(err, storage.ErrAlreadyExists):
		user, err := l.store.FindByID(ctx, id)
		if err != nil {
			return models.User{}, fmt.Errorf("re-read user after conflict: %w", err)
		}
		return user, nil
	default:
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
}

// ResetIfDue refreshes the balance to the tier allowance when today has reached
// credits_reset_at, and moves the reset date to the next first-of-month. Users
// without a reset date are returned unchanged.
func (l *Ledger) ResetIfDue(ctx context.Context, user models.User) (models.User, error) {
	if user.CreditsResetAt == nil {
		return user, nil
	}
	today := l.Today()
	due := storage.DateOnly(*user.CreditsResetAt)
	if today.Before(due) {
		return user, nil
	}

	credits := AllowanceFor(user.SubscriptionStatus)
	next := FirstOfNextMonth(today)
	updated, err := l.store.ResetCredits(ctx, user.ID, due, credits, next)
	switch {
	case err == nil:
		l.logger.Info("reset monthly credits",
			zap.String("user_id", user.ID),
			zap.Int64("credits", credits),
			zap.String("next_reset", next.Format(time.DateOnly)))
		return updated, nil
	case errors.Is(err, storage.ErrConditionNotMet):
		// another request applied this reset first
		fresh, err := l.store.FindByID(ctx, user.ID)
		if err != nil {
			return models.User{}, fmt.Errorf("re-read user after reset race: %w", err)
		}
		return fresh, nil
	default:
		return models.User{}, fmt.Errorf("reset credits: %w", err)
	}
}

// Deduct removes amount from the user's balance if it is covered. The check and
// the write are a single conditional store operation, so concurrent deductions
// can never overdraw the balance.
func (l *Ledger) Deduct(ctx context.Context, id string, amount int64) (Outcome, models.User, error) {
	if amount <= 0 {
		return 0, models.User{}, ErrInvalidAmount
	}
	user, err := l.store.DeductCredits(ctx, id, amount)
	switch {
	case err == nil:
		return OK, user, nil
	case errors.Is(err, storage.ErrConditionNotMet):
		return Insufficient, models.User{}, nil
	case errors.Is(err, storage.ErrNotFound):
		return NotFound, models.User{}, nil
	default:
		return 0, models.User{}, fmt.Errorf("deduct credits: %w", err)
	}
}

// ActivateSubscription moves the user to the paid tier with a full paid allowance.
func (l *Ledger) ActivateSubscription(ctx context.Context, id string) error {
	next := FirstOfNextMonth(l.Today())
	if err := l.store.UpdateSubscription(ctx, id, models.SubscriptionActive, PaidCreditsPerMonth, next); err != nil {
		return fmt.Errorf("activate subscription: %w", err)
	}
	l.logger.Info("subscription activated", zap.String("user_id", id))
	return nil
}

// CancelSubscription marks the subscription cancelled. The balance and reset
// date are untouched; the next reset grants the free allowance.
func (l *Ledger) CancelSubscription(ctx context.Context, id string) error {
	if err := l.store.UpdateStatus(ctx, id, models.SubscriptionCancelled); err != nil {
		return fmt.Errorf("cancel subscription: %w", err)
	}
	l.logger.Info("subscription cancelled", zap.String("user_id", id))
	return nil
}

// SetCredits overwrites the balance.
func (l *Ledger) SetCredits(ctx context.Context, id string, credits int64) error {
	if credits < 0 {
		return ErrInvalidAmount
	}
	if err := l.store.UpdateCredits(ctx, id, credits); err != nil {
		return fmt.Errorf("set credits: %w", err)
	}
	return nil
}
