package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Open creates the process-wide connection pool. The pool is acquired once at
// boot, passed down to every repository, and closed on shutdown; no package
// holds a global handle.
func Open(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	// Bound every store call so a stuck backend surfaces as a transient
	// failure instead of a hung request handler.
	cfg.ConnConfig.ConnectTimeout = 10 * time.Second
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id              BIGINT PRIMARY KEY,
	name            TEXT NOT NULL,
	balance         BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
	wallet_balance  BIGINT NOT NULL DEFAULT 0 CHECK (wallet_balance >= 0),
	referral_code   TEXT NOT NULL UNIQUE,
	referral_count  INT NOT NULL DEFAULT 0,
	referred_by     BIGINT REFERENCES users(id) ON DELETE SET NULL,
	last_claim_date TEXT,
	rank            INT,
	channel_joined  BOOLEAN NOT NULL DEFAULT FALSE,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	CHECK (referred_by IS NULL OR referred_by <> id)
);
CREATE INDEX IF NOT EXISTS idx_users_ranking ON users (balance DESC, referral_count DESC);
CREATE INDEX IF NOT EXISTS idx_users_referred_by ON users (referred_by);

CREATE TABLE IF NOT EXISTS ledger_events (
	id          BIGSERIAL PRIMARY KEY,
	user_id     BIGINT,
	kind        TEXT NOT NULL,
	description TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_ledger_events_user ON ledger_events (user_id, created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_ledger_events_time ON ledger_events (created_at DESC, id DESC);

CREATE TABLE IF NOT EXISTS tasks (
	id            UUID PRIMARY KEY,
	name          TEXT NOT NULL,
	reward_amount BIGINT NOT NULL CHECK (reward_amount > 0),
	description   TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS user_tasks (
	user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	task_id UUID NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	PRIMARY KEY (user_id, task_id)
);

CREATE TABLE IF NOT EXISTS task_completions (
	user_id      BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	task_id      UUID NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	completed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, task_id)
);

CREATE TABLE IF NOT EXISTS wallet_addresses (
	user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	chain      TEXT NOT NULL,
	address    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, chain)
);

CREATE TABLE IF NOT EXISTS operators (
	id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	email         TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS api_keys (
	id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	label      TEXT NOT NULL,
	key_hash   TEXT NOT NULL UNIQUE,
	key_prefix TEXT NOT NULL,
	is_active  BOOLEAN NOT NULL DEFAULT TRUE
);
`

// ApplySchema creates the application tables. River manages its own job
// tables through rivermigrate.
func ApplySchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
