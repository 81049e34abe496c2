package claim

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

// ClaimToday performs the whole claim as one conditional update: the last
// claim date check and the write are a single statement, so two concurrent
// claims cannot both pass the check. Zero rows means the predicate failed and
// is disambiguated into already-claimed vs not-found.
func (r *Repository) ClaimToday(ctx context.Context, userID int64, today string, reward int64) (newBalance int64, previous *string, err error) {
	err = r.pool.QueryRow(ctx, `
		WITH prev AS (
			SELECT last_claim_date FROM users WHERE id = $1
		)
		UPDATE users SET last_claim_date = $2, balance = balance + $3, updated_at = now()
		WHERE id = $1 AND (last_claim_date IS NULL OR last_claim_date <> $2)
		RETURNING balance, (SELECT last_claim_date FROM prev)
	`, userID, today, reward).Scan(&newBalance, &previous)
	if err == nil {
		return newBalance, previous, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, err
	}

	var stored *string
	err = r.pool.QueryRow(ctx, `SELECT last_claim_date FROM users WHERE id = $1`, userID).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, ErrUserNotFound
	}
	if err != nil {
		return 0, nil, err
	}
	return 0, stored, ErrAlreadyClaimed
}

func (r *Repository) LastClaim(ctx context.Context, userID int64) (*string, error) {
	var stored *string
	err := r.pool.QueryRow(ctx, `SELECT last_claim_date FROM users WHERE id = $1`, userID).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return stored, err
}
