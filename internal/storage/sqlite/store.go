// Package sqlite implements storage.Store on an embedded SQLite database. It is
// used for local development and as the real-SQL backend in tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	// register sqlite driver
	_ "modernc.org/sqlite"

	"github.com/AkhileshRajan/zentra-pro/internal/models"
	"github.com/AkhileshRajan/zentra-pro/internal/storage"
	"github.com/AkhileshRajan/zentra-pro/internal/storage/migrations"
)

var _ storage.Store = (*Store)(nil)

const (
	dateLayout = time.DateOnly
	// fixed width so text ordering matches time ordering
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

const userColumns = `id, email, credits, subscription_status, credits_reset_at, created_at`

// Store implements storage.Store backed by SQLite.
type Store struct {
	db      *sqlx.DB
	timeout time.Duration
	now     func() time.Time
}

type userRow struct {
	ID                 string         `db:"id"`
	Email              string         `db:"email"`
	Credits            int64          `db:"credits"`
	SubscriptionStatus string         `db:"subscription_status"`
	CreditsResetAt     sql.NullString `db:"credits_reset_at"`
	CreatedAt          string         `db:"created_at"`
}

type scoreRow struct {
	ID        string  `db:"id"`
	UserID    string  `db:"user_id"`
	Income    float64 `db:"income"`
	Expenses  float64 `db:"expenses"`
	Savings   float64 `db:"savings"`
	Debt      float64 `db:"debt"`
	Score     float64 `db:"score"`
	CreatedAt string  `db:"created_at"`
}

// New opens (or creates) a SQLite store at path and applies migrations.
func New(ctx context.Context, path string, timeout time.Duration) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if timeout <= 0 {
		timeout = storage.DefaultTimeout
	}
	s := &Store{db: db, timeout: timeout, now: time.Now}
	if err := migrations.Up(ctx, db.DB, "sqlite"); err != nil {
		_ = s.Close()
		return nil, err
	}
	// SQLite allows a single writer; one connection serialises statements
	// instead of surfacing SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)
	return s, nil
}

// Close releases underlying database resources.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// FindByID fetches a user by identity provider id.
func (s *Store) FindByID(ctx context.Context, id string) (models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// FindByEmail fetches the oldest user with the given email address.
func (s *Store) FindByEmail(ctx context.Context, email string) (models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ? ORDER BY created_at LIMIT 1`, email)
}

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	created := user.CreatedAt
	if created.IsZero() {
		created = s.now().UTC()
	}
	const query = `
INSERT INTO users (id, email, credits, subscription_status, credits_reset_at, created_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING ` + userColumns
	out, err := s.getUser(ctx, query, user.ID, user.Email, user.Credits, string(user.SubscriptionStatus), dateParam(user.CreditsResetAt), created.Format(timeLayout))
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, err
	}
	return out, nil
}

// UpdateCredits overwrites the balance of a user.
func (s *Store) UpdateCredits(ctx context.Context, id string, credits int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `UPDATE users SET credits = ? WHERE id = ?`, credits, id)
	if err != nil {
		return fmt.Errorf("update credits: %w", err)
	}
	return requireRow(res)
}

// DeductCredits decrements the balance in one statement guarded by credits >= amount.
func (s *Store) DeductCredits(ctx context.Context, id string, amount int64) (models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	const query = `
UPDATE users SET credits = credits - ?
WHERE id = ? AND credits >= ?
RETURNING ` + userColumns
	user, err := s.getUser(ctx, query, amount, id, amount)
	if errors.Is(err, storage.ErrNotFound) {
		return models.User{}, s.missOrCondition(ctx, id)
	}
	return user, err
}

// UpdateSubscription sets status, balance and next reset date together.
func (s *Store) UpdateSubscription(ctx context.Context, id string, status models.SubscriptionStatus, credits int64, nextReset time.Time) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET subscription_status = ?, credits = ?, credits_reset_at = ? WHERE id = ?`,
		string(status), credits, storage.DateOnly(nextReset).Format(dateLayout), id)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return requireRow(res)
}

// UpdateStatus changes only the subscription status.
func (s *Store) UpdateStatus(ctx context.Context, id string, status models.SubscriptionStatus) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `UPDATE users SET subscription_status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return requireRow(res)
}

// ResetCredits applies a monthly reset if credits_reset_at still equals expectedResetAt.
func (s *Store) ResetCredits(ctx context.Context, id string, expectedResetAt time.Time, credits int64, nextReset time.Time) (models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	const query = `
UPDATE users SET credits = ?, credits_reset_at = ?
WHERE id = ? AND credits_reset_at = ?
RETURNING ` + userColumns
	user, err := s.getUser(ctx, query,
		credits, storage.DateOnly(nextReset).Format(dateLayout),
		id, storage.DateOnly(expectedResetAt).Format(dateLayout))
	if errors.Is(err, storage.ErrNotFound) {
		return models.User{}, s.missOrCondition(ctx, id)
	}
	return user, err
}

// SaveScore appends a score record.
func (s *Store) SaveScore(ctx context.Context, record models.ScoreRecord) (models.ScoreRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO zentra_scores (id, user_id, income, expenses, savings, debt, score, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.UserID, record.Income, record.Expenses, record.Savings, record.Debt, record.Score,
		record.CreatedAt.Format(timeLayout))
	if err != nil {
		return models.ScoreRecord{}, fmt.Errorf("save score: %w", err)
	}
	return record, nil
}

// ListScores returns up to limit records for the user, newest first.
func (s *Store) ListScores(ctx context.Context, userID string, limit int) ([]models.ScoreRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []scoreRow
	err := s.db.SelectContext(ctx, &rows, `
SELECT id, user_id, income, expenses, savings, debt, score, created_at
FROM zentra_scores
WHERE user_id = ?
ORDER BY created_at DESC
LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}

	records := make([]models.ScoreRecord, 0, len(rows))
	for _, r := range rows {
		created, err := time.Parse(timeLayout, r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("parse score created_at: %w", err)
		}
		records = append(records, models.ScoreRecord{
			ID: r.ID, UserID: r.UserID,
			Income: r.Income, Expenses: r.Expenses, Savings: r.Savings, Debt: r.Debt,
			Score: r.Score, CreatedAt: created,
		})
	}
	return records, nil
}

func (s *Store) getUser(ctx context.Context, query string, args ...any) (models.User, error) {
	var row userRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	return row.toModel()
}

func (s *Store) missOrCondition(ctx context.Context, id string) error {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(1) FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return storage.ErrConditionNotMet
}

func (r userRow) toModel() (models.User, error) {
	created, err := time.Parse(timeLayout, r.CreatedAt)
	if err != nil {
		return models.User{}, fmt.Errorf("parse created_at: %w", err)
	}
	user := models.User{
		ID:                 r.ID,
		Email:              r.Email,
		Credits:            r.Credits,
		SubscriptionStatus: models.SubscriptionStatus(r.SubscriptionStatus),
		CreatedAt:          created,
	}
	if r.CreditsResetAt.Valid && r.CreditsResetAt.String != "" {
		d, err := time.ParseInLocation(dateLayout, r.CreditsResetAt.String, time.UTC)
		if err != nil {
			return models.User{}, fmt.Errorf("parse credits_reset_at: %w", err)
		}
		user.CreditsResetAt = &d
	}
	return user, nil
}

func dateParam(t *time.Time) any {
	if t == nil {
		return nil
	}
	return storage.DateOnly(*t).Format(dateLayout)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	// modernc reports constraint failures as "constraint failed: UNIQUE constraint failed: ..."
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
