package wallet

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/EX7EX/SimplRefQ/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores a freshly generated address. The (user_id, chain) primary key
// rejects a second address for the same chain; that conflict surfaces as
// ErrAddressExists so the caller can re-read the stored one.
func (r *Repository) Insert(ctx context.Context, addr *models.WalletAddress) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO wallet_addresses (user_id, chain, address)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, addr.UserID, addr.Chain, addr.Address).Scan(&addr.CreatedAt)
	if isUniqueViolation(err) {
		return ErrAddressExists
	}
	if isForeignKeyViolation(err) {
		return ErrUserNotFound
	}
	return err
}

func (r *Repository) Get(ctx context.Context, userID int64, chain string) (*models.WalletAddress, error) {
	var addr models.WalletAddress
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, chain, address, created_at
		FROM wallet_addresses WHERE user_id = $1 AND chain = $2
	`, userID, chain).Scan(&addr.UserID, &addr.Chain, &addr.Address, &addr.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoAddress
	}
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

func (r *Repository) ListForUser(ctx context.Context, userID int64) ([]*models.WalletAddress, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, chain, address, created_at
		FROM wallet_addresses WHERE user_id = $1 ORDER BY chain ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.WalletAddress
	for rows.Next() {
		var addr models.WalletAddress
		if err := rows.Scan(&addr.UserID, &addr.Chain, &addr.Address, &addr.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &addr)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
