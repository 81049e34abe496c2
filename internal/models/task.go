package models

import (
	"time"

	"github.com/google/uuid"
)

// Task is immutable once created; reward amounts are never edited.
type Task struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	RewardAmount int64     `json:"reward_amount"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TaskCompletion records one task moving from a user's assigned set to its
// completed sequence. At most one completion exists per (user, task).
type TaskCompletion struct {
	TaskID      uuid.UUID `json:"task_id"`
	UserID      int64     `json:"user_id"`
	CompletedAt time.Time `json:"completed_at"`
}
