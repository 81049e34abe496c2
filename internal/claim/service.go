package claim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/EX7EX/SimplRefQ/internal/audit"
	"github.com/EX7EX/SimplRefQ/internal/models"
)

var (
	// ErrAlreadyClaimed is the expected rejection for a second claim within
	// the same UTC calendar day. No balance change, no audit event.
	ErrAlreadyClaimed = errors.New("daily reward already claimed today")
	ErrUserNotFound   = errors.New("user not found")
)

// Gate states per user.
const (
	StateNeverClaimed   = "never_claimed"
	StateClaimedToday   = "claimed_today"
	StateClaimAvailable = "claim_available"
)

// Store performs the claim as a single atomic conditional update against the
// user document. previous is the stored last-claim value before the write
// (nil for never-claimed).
type Store interface {
	ClaimToday(ctx context.Context, userID int64, today string, reward int64) (newBalance int64, previous *string, err error)
	LastClaim(ctx context.Context, userID int64) (*string, error)
}

type Result struct {
	Granted    bool  `json:"granted"`
	NewBalance int64 `json:"new_balance"`
}

// Service is the once-per-UTC-day reward gate.
type Service struct {
	store  Store
	audit  audit.Log
	logger *slog.Logger
	reward int64
	now    func() time.Time
}

func NewService(store Store, auditLog audit.Log, logger *slog.Logger, reward int64) *Service {
	return &Service{store: store, audit: auditLog, logger: logger, reward: reward, now: time.Now}
}

// ClaimDaily grants the configured reward at most once per UTC calendar day.
// Retries by the caller are safe: the store predicate re-checks the date on
// every attempt.
func (s *Service) ClaimDaily(ctx context.Context, userID int64) (Result, error) {
	today := s.now().UTC().Format(models.ClaimDateLayout)

	newBalance, previous, err := s.store.ClaimToday(ctx, userID, today, s.reward)
	if errors.Is(err, ErrAlreadyClaimed) {
		return Result{Granted: false}, ErrAlreadyClaimed
	}
	if err != nil {
		return Result{}, err
	}

	// A stored value that doesn't parse is treated as never-claimed; the
	// grant has already gone through above, this only surfaces the bad data.
	if previous != nil {
		if _, perr := time.Parse(models.ClaimDateLayout, *previous); perr != nil {
			s.logger.Warn("malformed stored last-claim date, treated as never claimed",
				"user_id", userID, "stored", *previous)
		}
	}

	s.audit.Record(ctx, &userID, models.EventDailyReward,
		fmt.Sprintf("+%d coins daily reward for %s, balance now %d", s.reward, today, newBalance))
	return Result{Granted: true, NewBalance: newBalance}, nil
}

// State reports the gate state for a user without mutating anything.
func (s *Service) State(ctx context.Context, userID int64) (string, error) {
	stored, err := s.store.LastClaim(ctx, userID)
	if err != nil {
		return "", err
	}
	if stored == nil {
		return StateNeverClaimed, nil
	}
	last, perr := time.Parse(models.ClaimDateLayout, *stored)
	if perr != nil {
		s.logger.Warn("malformed stored last-claim date, treated as never claimed",
			"user_id", userID, "stored", *stored)
		return StateNeverClaimed, nil
	}
	if last.UTC().Format(models.ClaimDateLayout) == s.now().UTC().Format(models.ClaimDateLayout) {
		return StateClaimedToday, nil
	}
	return StateClaimAvailable, nil
}
