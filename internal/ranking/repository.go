package ranking

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

// Standings returns every user ordered the way ranks are assigned: balance
// descending, then referral count descending, then id for a stable order.
func (r *Repository) Standings(ctx context.Context) ([]Standing, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, balance, referral_count FROM users
		ORDER BY balance DESC, referral_count DESC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var standings []Standing
	for rows.Next() {
		var s Standing
		if err := rows.Scan(&s.UserID, &s.Balance, &s.ReferralCount); err != nil {
			return nil, err
		}
		standings = append(standings, s)
	}
	return standings, rows.Err()
}

// UpdateRanks persists the computed ranks in one batch round trip.
func (r *Repository) UpdateRanks(ctx context.Context, standings []Standing) error {
	batch := &pgx.Batch{}
	for _, s := range standings {
		batch.Queue(`UPDATE users SET rank = $1 WHERE id = $2`, s.Rank, s.UserID)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

func (r *Repository) Rank(ctx context.Context, userID int64) (*int, error) {
	var rank *int
	err := r.pool.QueryRow(ctx, `SELECT rank FROM users WHERE id = $1`, userID).Scan(&rank)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return rank, err
}

func (r *Repository) Leaderboard(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, balance, referral_count, rank FROM users
		ORDER BY balance DESC, referral_count DESC, id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.UserID, &e.Name, &e.Balance, &e.ReferralCount, &e.Rank); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// EntriesByID loads leaderboard rows for the given ids, preserving the
// caller's ordering. Used to hydrate cache hits.
func (r *Repository) EntriesByID(ctx context.Context, ids []int64) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, balance, referral_count, rank FROM users
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[int64]Entry, len(ids))
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.UserID, &e.Name, &e.Balance, &e.ReferralCount, &e.Rank); err != nil {
			return nil, err
		}
		byID[e.UserID] = e
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}
