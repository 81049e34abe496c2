package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/EX7EX/SimplRefQ/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert creates the user if it does not exist. ON CONFLICT DO NOTHING makes
// registration idempotent: re-registering never resets balance or referral
// state. Returns whether a row was created.
func (r *Repository) Insert(ctx context.Context, id int64, name string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, name, referral_code) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, id, name, models.ReferralCodeFor(id))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, balance, wallet_balance, referral_code, referral_count,
		       referred_by, last_claim_date, rank, channel_joined, created_at, updated_at
		FROM users WHERE id = $1
	`, id).Scan(
		&u.ID, &u.Name, &u.Balance, &u.WalletBalance, &u.ReferralCode, &u.ReferralCount,
		&u.ReferredBy, &u.LastClaimDate, &u.Rank, &u.ChannelJoined, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Update applies only the fields set in the patch, as one statement built
// from numbered placeholders.
func (r *Repository) Update(ctx context.Context, id int64, patch Patch) error {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Balance != nil {
		add("balance", *patch.Balance)
	}
	if patch.WalletBalance != nil {
		add("wallet_balance", *patch.WalletBalance)
	}
	if patch.LastClaimDate != nil {
		add("last_claim_date", *patch.LastClaimDate)
	}
	if patch.ChannelJoined != nil {
		add("channel_joined", *patch.ChannelJoined)
	}
	if len(sets) == 0 {
		return ErrEmptyPatch
	}

	args = append(args, id)
	query := fmt.Sprintf(
		"UPDATE users SET %s, updated_at = now() WHERE id = $%d",
		strings.Join(sets, ", "), len(args),
	)
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
