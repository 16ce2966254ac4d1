// Package gate admits authenticated callers and charges them for paid work.
package gate

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/AkhileshRajan/zentra-pro/internal/apperr"
	"github.com/AkhileshRajan/zentra-pro/internal/auth"
	"github.com/AkhileshRajan/zentra-pro/internal/ledger"
	"github.com/AkhileshRajan/zentra-pro/internal/models"
)

// PaidOperation is the work performed once credits have been taken.
type PaidOperation func(ctx context.Context) (string, error)

// Gate composes the ledger steps every authenticated request goes through.
type Gate struct {
	ledger *ledger.Ledger
	logger *zap.Logger
}

// New returns a Gate over l.
func New(l *ledger.Ledger, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{ledger: l, logger: logger}
}

// Admit provisions the caller on first sight and applies a due monthly reset.
func (g *Gate) Admit(ctx context.Context, id auth.Identity) (models.User, error) {
	user, err := g.ledger.EnsureUser(ctx, id.ID, id.Email)
	if err != nil {
		return models.User{}, apperr.Wrap(apperr.KindInternal, "could not load account", err)
	}
	user, err = g.ledger.ResetIfDue(ctx, user)
	if err != nil {
		return models.User{}, apperr.Wrap(apperr.KindInternal, "could not refresh credits", err)
	}
	return user, nil
}

// Spend admits the caller, takes cost credits and then runs op. op never runs when
// the balance does not cover cost. Credits are not returned if op fails.
func (g *Gate) Spend(ctx context.Context, id auth.Identity, cost int64, op PaidOperation) (string, models.User, error) {
	if _, err := g.Admit(ctx, id); err != nil {
		return "", models.User{}, err
	}

	outcome, user, err := g.ledger.Deduct(ctx, id.ID, cost)
	if err != nil {
		return "", models.User{}, apperr.Wrap(apperr.KindInternal, "could not deduct credits", err)
	}
	switch outcome {
	case ledger.OK:
	case ledger.Insufficient:
		return "", models.User{}, apperr.New(apperr.KindInsufficientCredits, "Insufficient credits. Upgrade to Pro or wait for monthly reset.")
	default:
		g.logger.Error("user vanished between admit and deduct", zap.String("user_id", id.ID))
		return "", models.User{}, apperr.New(apperr.KindInternal, "account not found")
	}

	result, err := op(ctx)
	if err != nil {
		g.logger.Warn("paid operation failed after charge",
			zap.String("user_id", id.ID),
			zap.Int64("cost", cost),
			zap.Error(err))
		if _, ok := apperr.As(err); ok {
			return "", user, err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", user, apperr.Wrap(apperr.KindExternal, "request timed out", err)
		}
		return "", user, apperr.Wrap(apperr.KindExternal, "upstream service failed", err)
	}
	return result, user, nil
}
