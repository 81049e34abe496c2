package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/EX7EX/SimplRefQ/internal/audit"
	"github.com/EX7EX/SimplRefQ/internal/models"
)

var (
	// ErrUserNotFound is returned when the target user does not exist.
	// Balance mutations never create users; registration is the only
	// creation path.
	ErrUserNotFound = errors.New("user not found")
	// ErrInsufficientFunds is returned when a deduction would take a
	// balance negative. No partial mutation is observable.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrBalanceOverflow is returned instead of wrapping on bigint overflow.
	ErrBalanceOverflow = errors.New("balance out of range")
	// ErrInvalidAmount is returned for non-positive transfer amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Store is the balance persistence the service drives. Implementations must
// make each mutation a single atomic conditional update.
type Store interface {
	Balance(ctx context.Context, userID int64) (int64, error)
	Adjust(ctx context.Context, userID, delta int64) (int64, error)
	Transfer(ctx context.Context, sender, receiver, amount int64) (senderBalance, receiverBalance int64, err error)
}

// Service owns atomic balance mutation and its audit trail. It never talks to
// the chat platform; the only side effects are the store write and the audit
// append.
type Service struct {
	store Store
	audit audit.Log
}

func NewService(store Store, auditLog audit.Log) *Service {
	return &Service{store: store, audit: auditLog}
}

func (s *Service) GetBalance(ctx context.Context, userID int64) (int64, error) {
	return s.store.Balance(ctx, userID)
}

// AdjustBalance applies a signed delta and appends exactly one audit event
// recording it. The append happens after the mutation commits and never rolls
// it back.
func (s *Service) AdjustBalance(ctx context.Context, userID, delta int64, description string) (int64, error) {
	newBalance, err := s.store.Adjust(ctx, userID, delta)
	if err != nil {
		return 0, err
	}
	s.audit.Record(ctx, &userID, models.EventBalanceUpdate,
		fmt.Sprintf("%+d coins (%s), balance now %d", delta, description, newBalance))
	return newBalance, nil
}

// Transfer debits sender and credits receiver as one atomic unit. One audit
// event is appended per mutated balance.
func (s *Service) Transfer(ctx context.Context, sender, receiver, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if sender == receiver {
		return ErrInvalidAmount
	}
	senderBalance, receiverBalance, err := s.store.Transfer(ctx, sender, receiver, amount)
	if err != nil {
		return err
	}
	s.audit.Record(ctx, &sender, models.EventBalanceUpdate,
		fmt.Sprintf("-%d coins (transfer to %d), balance now %d", amount, receiver, senderBalance))
	s.audit.Record(ctx, &receiver, models.EventBalanceUpdate,
		fmt.Sprintf("+%d coins (transfer from %d), balance now %d", amount, sender, receiverBalance))
	return nil
}
