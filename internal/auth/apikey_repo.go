package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/EX7EX/SimplRefQ/internal/models"
)

var ErrKeyNotFound = errors.New("api key not found")

// APIKeyRepository resolves the chat adapter's service credentials.
type APIKeyRepository struct {
	pool *pgxpool.Pool
}

func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

func (r *APIKeyRepository) FindByKeyHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	var key models.APIKey
	err := r.pool.QueryRow(ctx, `
		SELECT id, label, key_hash, key_prefix, is_active
		FROM api_keys WHERE key_hash = $1 AND is_active
	`, keyHash).Scan(&key.ID, &key.Label, &key.KeyHash, &key.KeyPrefix, &key.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}
