package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/EX7EX/SimplRefQ/internal/audit"
	"github.com/EX7EX/SimplRefQ/internal/models"
)

var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrNotAssigned      = errors.New("task not assigned to user")
	ErrAlreadyCompleted = errors.New("task already completed")
	ErrInvalidTask      = errors.New("task needs a name and a positive reward")
)

type Store interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Insert(ctx context.Context, task *models.Task) error
	Get(ctx context.Context, id uuid.UUID) (*models.Task, error)
	List(ctx context.Context) ([]*models.Task, error)
	Assign(ctx context.Context, taskID uuid.UUID, userID int64) error
	ConsumeAssignment(ctx context.Context, tx pgx.Tx, taskID uuid.UUID, userID int64) error
	InsertCompletion(ctx context.Context, tx pgx.Tx, taskID uuid.UUID, userID int64) error
	CreditReward(ctx context.Context, tx pgx.Tx, userID, amount int64) (int64, error)
	CompletionsFor(ctx context.Context, userID int64) ([]*models.TaskCompletion, error)
}

type Service struct {
	store Store
	audit audit.Log
}

func NewService(store Store, auditLog audit.Log) *Service {
	return &Service{store: store, audit: auditLog}
}

func (s *Service) Create(ctx context.Context, name string, reward int64, description string) (*models.Task, error) {
	name = strings.TrimSpace(name)
	if name == "" || reward <= 0 {
		return nil, ErrInvalidTask
	}
	task := &models.Task{
		ID:           uuid.New(),
		Name:         name,
		RewardAmount: reward,
		Description:  description,
	}
	if err := s.store.Insert(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*models.Task, error) {
	return s.store.List(ctx)
}

// Assign hands a task to a user. The task must exist; assigning twice is a
// no-op.
func (s *Service) Assign(ctx context.Context, taskID uuid.UUID, userID int64) error {
	if _, err := s.store.Get(ctx, taskID); err != nil {
		return err
	}
	return s.store.Assign(ctx, taskID, userID)
}

// Complete consumes the assignment, records the completion and credits the
// reward in one transaction, so a task can pay out at most once however many
// concurrent submissions race for it.
func (s *Service) Complete(ctx context.Context, taskID uuid.UUID, userID int64) (newBalance int64, err error) {
	task, err := s.store.Get(ctx, taskID)
	if err != nil {
		return 0, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if err := s.store.ConsumeAssignment(ctx, tx, taskID, userID); err != nil {
		return 0, err
	}
	if err := s.store.InsertCompletion(ctx, tx, taskID, userID); err != nil {
		return 0, err
	}
	newBalance, err = s.store.CreditReward(ctx, tx, userID, task.RewardAmount)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	s.audit.Record(ctx, &userID, models.EventTaskCompleted,
		fmt.Sprintf("completed task %q for %d coins, balance now %d", task.Name, task.RewardAmount, newBalance))
	return newBalance, nil
}

func (s *Service) Completed(ctx context.Context, userID int64) ([]*models.TaskCompletion, error) {
	return s.store.CompletionsFor(ctx, userID)
}
