package audit

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/EX7EX/SimplRefQ/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, e *models.LedgerEvent) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO ledger_events (user_id, kind, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, e.UserID, e.Kind, e.Description).Scan(&e.ID, &e.CreatedAt)
}

// List returns the most recent events newest first. A nil userID selects
// system-wide history across all subjects.
func (r *Repository) List(ctx context.Context, userID *int64, limit int) ([]*models.LedgerEvent, error) {
	query := `
		SELECT id, user_id, kind, description, created_at
		FROM ledger_events
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	args := []any{limit}
	if userID != nil {
		query = `
			SELECT id, user_id, kind, description, created_at
			FROM ledger_events
			WHERE user_id = $2
			ORDER BY created_at DESC, id DESC
			LIMIT $1
		`
		args = append(args, *userID)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.LedgerEvent
	for rows.Next() {
		var e models.LedgerEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.Kind, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
