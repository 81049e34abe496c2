package models

import "time"

// Ledger event kinds.
const (
	EventBalanceUpdate   = "balance_update"
	EventTaskCompleted   = "task_completed"
	EventDailyReward     = "daily_reward"
	EventReferralGranted = "referral_granted"
	EventUserCreated     = "user_created"
	EventUserDeleted     = "user_deleted"
	EventRankingUpdate   = "ranking_update"
)

// LedgerEvent is one append-only audit entry. UserID is nil for system-wide
// events such as a ranking recompute. Ordering is created_at, ties broken by
// the insertion id.
type LedgerEvent struct {
	ID          int64     `json:"id"`
	UserID      *int64    `json:"user_id,omitempty"`
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
