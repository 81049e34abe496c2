package referral

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *Repository) OwnerOfCode(ctx context.Context, tx pgx.Tx, code string) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `SELECT id FROM users WHERE referral_code = $1`, code).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrInvalidCode
	}
	return id, err
}

// SetReferrer links referred to referrer exactly once. The IS NULL predicate
// is the compare-and-set: under a concurrent double submit only one update
// sees the null and wins.
func (r *Repository) SetReferrer(ctx context.Context, tx pgx.Tx, referredID, referrerID int64) error {
	result, err := tx.Exec(ctx, `
		UPDATE users SET referred_by = $1, updated_at = now()
		WHERE id = $2 AND referred_by IS NULL
	`, referrerID, referredID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, referredID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrUserNotFound
	}
	return ErrAlreadyReferred
}

func (r *Repository) IncrementReferralCount(ctx context.Context, tx pgx.Tx, referrerID int64) (int, error) {
	var count int
	err := tx.QueryRow(ctx, `
		UPDATE users SET referral_count = referral_count + 1, updated_at = now()
		WHERE id = $1
		RETURNING referral_count
	`, referrerID).Scan(&count)
	return count, err
}

func (r *Repository) CreditBonus(ctx context.Context, tx pgx.Tx, referrerID, bonus int64) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `
		UPDATE users SET balance = balance + $1, updated_at = now()
		WHERE id = $2
		RETURNING balance
	`, bonus, referrerID).Scan(&balance)
	return balance, err
}

func (r *Repository) DirectCount(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE referred_by = $1`, userID).Scan(&n)
	return n, err
}

// IndirectCount counts users referred by one of userID's direct referrals.
// Depth exactly two, never an unbounded traversal.
func (r *Repository) IndirectCount(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM users
		WHERE referred_by IN (SELECT id FROM users WHERE referred_by = $1)
	`, userID).Scan(&n)
	return n, err
}
