package gate_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AkhileshRajan/zentra-pro/internal/apperr"
	"github.com/AkhileshRajan/zentra-pro/internal/auth"
	"github.com/AkhileshRajan/zentra-pro/internal/gate"
	"github.com/AkhileshRajan/zentra-pro/internal/ledger"
	"github.com/AkhileshRajan/zentra-pro/internal/storage/sqlite"
)

type fixture struct {
	store *sqlite.Store
	gate  *gate.Gate
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "gate.db"), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	f := &fixture{store: s, clock: time.Date(2025, time.January, 15, 9, 0, 0, 0, time.UTC)}
	l := ledger.New(s, ledger.WithClock(func() time.Time { return f.clock }))
	f.gate = gate.New(l, nil)
	return f
}

var alice = auth.Identity{ID: "alice", Email: "alice@example.com"}

func TestAdmit_ProvisionsAndResets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.gate.Admit(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(50), u.Credits)

	require.NoError(t, f.store.UpdateCredits(ctx, "alice", 0))
	f.clock = time.Date(2025, time.February, 1, 0, 0, 1, 0, time.UTC)

	u, err = f.gate.Admit(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(50), u.Credits)
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), *u.CreditsResetAt)
}

func TestSpend_ChargesThenRuns(t *testing.T) {
	f := newFixture(t)
	calls := 0

	reply, u, err := f.gate.Spend(context.Background(), alice, 10, func(context.Context) (string, error) {
		calls++
		return "hello", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", reply)
	assert.Equal(t, int64(40), u.Credits)
	assert.Equal(t, 1, calls)
}

func TestSpend_InsufficientSkipsOperation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.gate.Admit(ctx, alice)
	require.NoError(t, err)
	require.NoError(t, f.store.UpdateCredits(ctx, "alice", 5))

	called := false
	_, _, err = f.gate.Spend(ctx, alice, 10, func(context.Context) (string, error) {
		called = true
		return "", nil
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInsufficientCredits, apperr.KindOf(err))
	assert.False(t, called)

	stored, err := f.store.FindByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(5), stored.Credits)
}

func TestSpend_FailureKeepsCharge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, u, err := f.gate.Spend(ctx, alice, 10, func(context.Context) (string, error) {
		return "", errors.New("upstream 500")
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindExternal, apperr.KindOf(err))
	assert.Equal(t, int64(40), u.Credits)

	stored, err := f.store.FindByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(40), stored.Credits)
}

func TestSpend_PreservesClassifiedFailure(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.gate.Spend(context.Background(), alice, 10, func(context.Context) (string, error) {
		return "", apperr.New(apperr.KindValidation, "no text found")
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestSpend_DeadlineIsExternal(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.gate.Spend(context.Background(), alice, 10, func(context.Context) (string, error) {
		return "", context.DeadlineExceeded
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindExternal, apperr.KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
