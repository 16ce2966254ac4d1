package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/AkhileshRajan/zentra-pro/internal/models"
	"github.com/AkhileshRajan/zentra-pro/internal/storage"
	"github.com/AkhileshRajan/zentra-pro/internal/storage/migrations"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

const uniqueViolation = "23505"

const userColumns = `id, email, credits, subscription_status, credits_reset_at, created_at`

// Store provides Postgres-backed persistence for users and score records.
type Store struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewStore connects to databaseURL, runs migrations, and returns a ready Store.
// Every operation is bounded by timeout (storage.DefaultTimeout when zero).
func NewStore(ctx context.Context, databaseURL string, timeout time.Duration) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if timeout <= 0 {
		timeout = storage.DefaultTimeout
	}
	s := &Store{pool: pool, timeout: timeout}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrations.Up(ctx, stdlib.OpenDBFromPool(pool), "postgres"); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// FindByID fetches a user by identity provider id.
func (s *Store) FindByID(ctx context.Context, id string) (models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// FindByEmail fetches the oldest user with the given email address.
func (s *Store) FindByEmail(ctx context.Context, email string) (models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	const query = `
	SELECT ` + userColumns + `
	FROM users
	WHERE email = $1
	ORDER BY created_at
	LIMIT 1;
	`
	row := s.pool.QueryRow(ctx, query, email)
	return scanUser(row)
}

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	const query = `
	INSERT INTO users (id, email, credits, subscription_status, credits_reset_at)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING ` + userColumns
	row := s.pool.QueryRow(ctx, query, user.ID, user.Email, user.Credits, string(user.SubscriptionStatus), dateParam(user.CreditsResetAt))
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, err
	}
	return created, nil
}

// UpdateCredits overwrites the balance of a user.
func (s *Store) UpdateCredits(ctx context.Context, id string, credits int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `UPDATE users SET credits = $2 WHERE id = $1`, id, credits)
	if err != nil {
		return fmt.Errorf("update credits: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeductCredits decrements the balance in one statement guarded by credits >= amount.
func (s *Store) DeductCredits(ctx context.Context, id string, amount int64) (models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	const query = `
	UPDATE users
	SET credits = credits - $2
	WHERE id = $1 AND credits >= $2
	RETURNING ` + userColumns
	user, err := scanUser(s.pool.QueryRow(ctx, query, id, amount))
	if errors.Is(err, storage.ErrNotFound) {
		return models.User{}, s.missOrCondition(ctx, id)
	}
	return user, err
}

// UpdateSubscription sets status, balance and next reset date together.
func (s *Store) UpdateSubscription(ctx context.Context, id string, status models.SubscriptionStatus, credits int64, nextReset time.Time) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	const query = `
	UPDATE users
	SET subscription_status = $2, credits = $3, credits_reset_at = $4
	WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, id, string(status), credits, storage.DateOnly(nextReset))
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpdateStatus changes only the subscription status.
func (s *Store) UpdateStatus(ctx context.Context, id string, status models.SubscriptionStatus) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `UPDATE users SET subscription_status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ResetCredits applies a monthly reset if credits_reset_at still equals expectedResetAt.
func (s *Store) ResetCredits(ctx context.Context, id string, expectedResetAt time.Time, credits int64, nextReset time.Time) (models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	const query = `
	UPDATE users
	SET credits = $3, credits_reset_at = $4
	WHERE id = $1 AND credits_reset_at = $2
	RETURNING ` + userColumns
	user, err := scanUser(s.pool.QueryRow(ctx, query, id, storage.DateOnly(expectedResetAt), credits, storage.DateOnly(nextReset)))
	if errors.Is(err, storage.ErrNotFound) {
		return models.User{}, s.missOrCondition(ctx, id)
	}
	return user, err
}

// SaveScore appends a score record.
func (s *Store) SaveScore(ctx context.Context, record models.ScoreRecord) (models.ScoreRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	const query = `
	INSERT INTO zentra_scores (id, user_id, income, expenses, savings, debt, score)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING created_at`
	err := s.pool.QueryRow(ctx, query, record.ID, record.UserID, record.Income, record.Expenses, record.Savings, record.Debt, record.Score).
		Scan(&record.CreatedAt)
	if err != nil {
		return models.ScoreRecord{}, fmt.Errorf("save score: %w", err)
	}
	return record, nil
}

// ListScores returns up to limit records for the user, newest first.
func (s *Store) ListScores(ctx context.Context, userID string, limit int) ([]models.ScoreRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	const query = `
	SELECT id, user_id, income, expenses, savings, debt, score, created_at
	FROM zentra_scores
	WHERE user_id = $1
	ORDER BY created_at DESC
	LIMIT $2`
	rows, err := s.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	defer rows.Close()

	records := make([]models.ScoreRecord, 0, limit)
	for rows.Next() {
		var r models.ScoreRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.Income, &r.Expenses, &r.Savings, &r.Debt, &r.Score, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// missOrCondition distinguishes an absent row from a failed update condition.
func (s *Store) missOrCondition(ctx context.Context, id string) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return storage.ErrNotFound
	}
	return storage.ErrConditionNotMet
}

func dateParam(t *time.Time) any {
	if t == nil {
		return nil
	}
	return storage.DateOnly(*t)
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	var status string
	var resetAt pgtype.Date
	if err := row.Scan(&user.ID, &user.Email, &user.Credits, &status, &resetAt, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	user.SubscriptionStatus = models.SubscriptionStatus(status)
	if resetAt.Valid {
		d := storage.DateOnly(resetAt.Time)
		user.CreditsResetAt = &d
	}
	return user, nil
}
