package auth

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

func (r *Repository) Create(ctx context.Context, email, passwordHash, name string) (*models.Operator, error) {
	var op models.Operator
	err := r.pool.QueryRow(ctx, `
		INSERT INTO operators (email, password_hash, name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, email, passwordHash, name).Scan(&op.ID, &op.CreatedAt, &op.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	op.Email = email
	op.Name = name
	return &op, nil
}

// GetByEmail returns the operator and password hash for login. A missing
// account is (nil, "", nil) so the caller can answer with one generic
// invalid-credentials error.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.Operator, string, error) {
	var op models.Operator
	var passwordHash string
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, password_hash, created_at, updated_at
		FROM operators WHERE email = $1
	`, email).Scan(&op.ID, &op.Email, &op.Name, &passwordHash, &op.CreatedAt, &op.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	return &op, passwordHash, nil
}
