package referral

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/EX7EX/SimplRefQ/internal/audit"
	"github.com/EX7EX/SimplRefQ/internal/models"
)

var (
	// ErrInvalidCode is returned when no user owns the referral code.
	ErrInvalidCode = errors.New("referral code not recognized")
	// ErrSelfReferral is returned when the code belongs to the referred
	// user itself.
	ErrSelfReferral = errors.New("cannot use your own referral code")
	// ErrAlreadyReferred is returned when referred_by is already set. The
	// caller must see the distinction, so this is never a silent no-op.
	ErrAlreadyReferred = errors.New("user already has a referrer")
	ErrUserNotFound    = errors.New("user not found")
)

// Store is the transactional persistence for the referral graph.
type Store interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	OwnerOfCode(ctx context.Context, tx pgx.Tx, code string) (int64, error)
	SetReferrer(ctx context.Context, tx pgx.Tx, referredID, referrerID int64) error
	IncrementReferralCount(ctx context.Context, tx pgx.Tx, referrerID int64) (int, error)
	CreditBonus(ctx context.Context, tx pgx.Tx, referrerID, bonus int64) (int64, error)
	DirectCount(ctx context.Context, userID int64) (int, error)
	IndirectCount(ctx context.Context, userID int64) (int, error)
}

type Stats struct {
	DirectCount   int `json:"direct_count"`
	IndirectCount int `json:"indirect_count"`
}

// Service owns the referred-by relation, derived counts, and the capped bonus
// payout. The relation is acyclic by construction: a user is referred at most
// once, at registration time, and never by itself.
type Service struct {
	store Store
	audit audit.Log
	bonus int64
	cap   int
}

func NewService(store Store, auditLog audit.Log, bonus int64, cap int) *Service {
	return &Service{store: store, audit: auditLog, bonus: bonus, cap: cap}
}

// Register links referredID to the owner of code, increments the referrer's
// count, and pays the bonus while the count is at or below the cap. The count
// always increments; only the payout stops at the cap. The Nth referral where
// N equals the cap still pays, N+1 does not.
func (s *Service) Register(ctx context.Context, referredID int64, code string) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	referrerID, err := s.store.OwnerOfCode(ctx, tx, code)
	if err != nil {
		return err
	}
	if referrerID == referredID {
		return ErrSelfReferral
	}
	if err := s.store.SetReferrer(ctx, tx, referredID, referrerID); err != nil {
		return err
	}
	newCount, err := s.store.IncrementReferralCount(ctx, tx, referrerID)
	if err != nil {
		return err
	}

	description := fmt.Sprintf("referred user %d, referral count now %d (bonus cap reached)", referredID, newCount)
	if newCount <= s.cap {
		balance, err := s.store.CreditBonus(ctx, tx, referrerID, s.bonus)
		if err != nil {
			return err
		}
		description = fmt.Sprintf("+%d coins for referring user %d, referral count now %d, balance now %d",
			s.bonus, referredID, newCount, balance)
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.audit.Record(ctx, &referrerID, models.EventReferralGranted, description)
	return nil
}

// Stats returns direct referrals and depth-two indirect referrals.
func (s *Service) Stats(ctx context.Context, userID int64) (Stats, error) {
	direct, err := s.store.DirectCount(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	indirect, err := s.store.IndirectCount(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	return Stats{DirectCount: direct, IndirectCount: indirect}, nil
}
