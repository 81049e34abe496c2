package tasks

import (
	"context"
	"errors"

	"github.com/google/uuid"
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

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *Repository) Insert(ctx context.Context, task *models.Task) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, name, reward_amount, description)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, task.ID, task.Name, task.RewardAmount, task.Description).Scan(&task.CreatedAt)
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, reward_amount, description, created_at
		FROM tasks WHERE id = $1
	`, id).Scan(&task.ID, &task.Name, &task.RewardAmount, &task.Description, &task.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *Repository) List(ctx context.Context) ([]*models.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, reward_amount, description, created_at
		FROM tasks ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Task
	for rows.Next() {
		var task models.Task
		if err := rows.Scan(&task.ID, &task.Name, &task.RewardAmount, &task.Description, &task.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &task)
	}
	return out, rows.Err()
}

// Assign is idempotent: assigning a task a user already holds is a no-op.
func (r *Repository) Assign(ctx context.Context, taskID uuid.UUID, userID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_tasks (user_id, task_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, userID, taskID)
	if isForeignKeyViolation(err) {
		return ErrUserNotFound
	}
	return err
}

// ConsumeAssignment deletes the user's pending assignment. The delete doubles
// as the completion gate: zero rows means the task was never assigned or was
// already completed.
func (r *Repository) ConsumeAssignment(ctx context.Context, tx pgx.Tx, taskID uuid.UUID, userID int64) error {
	tag, err := tx.Exec(ctx, `
		DELETE FROM user_tasks WHERE user_id = $1 AND task_id = $2
	`, userID, taskID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotAssigned
	}
	return nil
}

func (r *Repository) InsertCompletion(ctx context.Context, tx pgx.Tx, taskID uuid.UUID, userID int64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO task_completions (task_id, user_id) VALUES ($1, $2)
	`, taskID, userID)
	if isUniqueViolation(err) {
		return ErrAlreadyCompleted
	}
	return err
}

func (r *Repository) CreditReward(ctx context.Context, tx pgx.Tx, userID, amount int64) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `
		UPDATE users SET balance = balance + $1, updated_at = now()
		WHERE id = $2
		RETURNING balance
	`, amount, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	return balance, err
}

func (r *Repository) CompletionsFor(ctx context.Context, userID int64) ([]*models.TaskCompletion, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT task_id, user_id, completed_at FROM task_completions
		WHERE user_id = $1 ORDER BY completed_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.TaskCompletion
	for rows.Next() {
		var c models.TaskCompletion
		if err := rows.Scan(&c.TaskID, &c.UserID, &c.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
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
