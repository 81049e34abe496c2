package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Balance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := r.pool.QueryRow(ctx, `SELECT balance FROM users WHERE id = $1`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	return balance, err
}

// Adjust applies a signed delta as a single atomic conditional update. The
// predicate keeps the balance non-negative; a zero-row result is disambiguated
// into not-found vs insufficient-funds with a follow-up existence check.
func (r *Repository) Adjust(ctx context.Context, userID, delta int64) (int64, error) {
	var newBalance int64
	err := r.pool.QueryRow(ctx, `
		UPDATE users SET balance = balance + $1, updated_at = now()
		WHERE id = $2 AND balance + $1 >= 0
		RETURNING balance
	`, delta, userID).Scan(&newBalance)
	if err == nil {
		return newBalance, nil
	}
	if isOutOfRange(err) {
		return 0, ErrBalanceOverflow
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	exists, err := r.exists(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrUserNotFound
	}
	return 0, ErrInsufficientFunds
}

// Transfer moves amount from sender to receiver as one transaction. The
// deduct carries the funds check in its WHERE clause, so on insufficient
// funds nothing is observable.
func (r *Repository) Transfer(ctx context.Context, sender, receiver, amount int64) (senderBalance, receiverBalance int64, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		UPDATE users SET balance = balance - $1, updated_at = now()
		WHERE id = $2 AND balance >= $1
		RETURNING balance
	`, amount, sender).Scan(&senderBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		exists, exErr := r.exists(ctx, sender)
		if exErr != nil {
			return 0, 0, exErr
		}
		if !exists {
			return 0, 0, ErrUserNotFound
		}
		return 0, 0, ErrInsufficientFunds
	}
	if err != nil {
		return 0, 0, err
	}

	err = tx.QueryRow(ctx, `
		UPDATE users SET balance = balance + $1, updated_at = now()
		WHERE id = $2
		RETURNING balance
	`, amount, receiver).Scan(&receiverBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, ErrUserNotFound
	}
	if err != nil {
		if isOutOfRange(err) {
			return 0, 0, ErrBalanceOverflow
		}
		return 0, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, err
	}
	return senderBalance, receiverBalance, nil
}

func (r *Repository) exists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	return exists, err
}

// isOutOfRange reports a bigint overflow (SQLSTATE 22003). Balances must
// reject rather than wrap.
func isOutOfRange(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22003"
}
