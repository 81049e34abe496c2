package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/EX7EX/SimplRefQ/internal/audit"
	"github.com/EX7EX/SimplRefQ/internal/models"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmptyPatch      = errors.New("no fields to update")
	ErrNegativeBalance = errors.New("balance cannot be negative")
)

// Patch carries an operator's partial update; nil fields are left untouched.
// Completed tasks are not patchable: completions are written only by the
// task completion flow, which is what pays their reward exactly once.
type Patch struct {
	Name          *string `json:"name"`
	Balance       *int64  `json:"balance"`
	WalletBalance *int64  `json:"wallet_balance"`
	LastClaimDate *string `json:"last_claim_date"`
	ChannelJoined *bool   `json:"channel_joined"`
}

type Store interface {
	Insert(ctx context.Context, id int64, name string) (created bool, err error)
	Get(ctx context.Context, id int64) (*models.User, error)
	Update(ctx context.Context, id int64, patch Patch) error
	Delete(ctx context.Context, id int64) error
}

// CompletionLister reports a user's completed tasks for the snapshot.
type CompletionLister interface {
	Completed(ctx context.Context, userID int64) ([]*models.TaskCompletion, error)
}

// ReferralRegistrar links a new user to the owner of a referral code.
type ReferralRegistrar interface {
	Register(ctx context.Context, referredID int64, code string) error
}

// Snapshot is the read model served to the chat adapter.
type Snapshot struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	Balance        int64       `json:"balance"`
	WalletBalance  int64       `json:"wallet_balance"`
	ReferralCode   string      `json:"referral_code"`
	ReferralCount  int         `json:"referral_count"`
	Rank           *int        `json:"rank"`
	LastClaimDate  *string     `json:"last_claim_date"`
	CompletedTasks []uuid.UUID `json:"completed_tasks"`
}

// RegisterResult distinguishes a fresh creation from an idempotent replay,
// and carries the referral outcome separately: a bad code never undoes the
// registration.
type RegisterResult struct {
	Created     bool
	ReferralErr error
}

type Service struct {
	store       Store
	completions CompletionLister
	referrals   ReferralRegistrar
	audit       audit.Log
	logger      *slog.Logger
}

func NewService(store Store, completions CompletionLister, referrals ReferralRegistrar, auditLog audit.Log, logger *slog.Logger) *Service {
	return &Service{
		store:       store,
		completions: completions,
		referrals:   referrals,
		audit:       auditLog,
		logger:      logger,
	}
}

// Register creates the user if needed and then applies the referral code, if
// any. Creation is idempotent; the referral outcome is reported in the result
// rather than failing the call.
func (s *Service) Register(ctx context.Context, id int64, name, referralCode string) (RegisterResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = models.PlaceholderName(id)
	}

	created, err := s.store.Insert(ctx, id, name)
	if err != nil {
		return RegisterResult{}, err
	}
	if created {
		s.audit.Record(ctx, &id, models.EventUserCreated,
			fmt.Sprintf("registered %q with code %s", name, models.ReferralCodeFor(id)))
	}

	result := RegisterResult{Created: created}
	if referralCode != "" {
		if err := s.referrals.Register(ctx, id, referralCode); err != nil {
			s.logger.Info("referral code not applied", "user_id", id, "error", err)
			result.ReferralErr = err
		}
	}
	return result, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Snapshot(ctx context.Context, id int64) (*Snapshot, error) {
	u, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	completions, err := s.completions.Completed(ctx, id)
	if err != nil {
		return nil, err
	}
	taskIDs := make([]uuid.UUID, 0, len(completions))
	for _, c := range completions {
		taskIDs = append(taskIDs, c.TaskID)
	}
	return &Snapshot{
		ID:             u.ID,
		Name:           u.Name,
		Balance:        u.Balance,
		WalletBalance:  u.WalletBalance,
		ReferralCode:   u.ReferralCode,
		ReferralCount:  u.ReferralCount,
		Rank:           u.Rank,
		LastClaimDate:  u.LastClaimDate,
		CompletedTasks: taskIDs,
	}, nil
}

// Update applies an operator patch. Empty patches and negative balances are
// rejected before touching the store.
func (s *Service) Update(ctx context.Context, id int64, patch Patch) error {
	if (patch.Balance != nil && *patch.Balance < 0) ||
		(patch.WalletBalance != nil && *patch.WalletBalance < 0) {
		return ErrNegativeBalance
	}
	return s.store.Update(ctx, id, patch)
}

// Delete purges the user. Referred users keep their rows; the self-referencing
// foreign key nulls their referred_by.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, &id, models.EventUserDeleted, fmt.Sprintf("user %d deleted by operator", id))
	return nil
}
