package ranking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/EX7EX/SimplRefQ/internal/audit"
	"github.com/EX7EX/SimplRefQ/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 100
)

type Standing struct {
	UserID        int64
	Balance       int64
	ReferralCount int
	Rank          int
}

type Entry struct {
	UserID        int64  `json:"user_id"`
	Name          string `json:"name"`
	Balance       int64  `json:"balance"`
	ReferralCount int    `json:"referral_count"`
	Rank          *int   `json:"rank"`
}

type Store interface {
	Standings(ctx context.Context) ([]Standing, error)
	UpdateRanks(ctx context.Context, standings []Standing) error
	Rank(ctx context.Context, userID int64) (*int, error)
	Leaderboard(ctx context.Context, limit int) ([]Entry, error)
	EntriesByID(ctx context.Context, ids []int64) ([]Entry, error)
}

type LeaderboardCache interface {
	Rebuild(ctx context.Context, standings []Standing) error
	Top(ctx context.Context, n int) ([]int64, error)
}

type Service struct {
	store  Store
	cache  LeaderboardCache
	audit  audit.Log
	logger *slog.Logger
}

// NewService wires the ranking engine. cache may be nil, in which case every
// read goes to the store.
func NewService(store Store, cache LeaderboardCache, auditLog audit.Log, logger *slog.Logger) *Service {
	return &Service{store: store, cache: cache, audit: auditLog, logger: logger}
}

// assignRanks applies competition ranking to standings already ordered best
// first: equal (balance, referral count) pairs share a rank, and the next
// distinct pair takes the rank it would have had without the tie, so balances
// [50 50 30 10] rank [1 1 3 4].
func assignRanks(standings []Standing) {
	for i := range standings {
		if i > 0 &&
			standings[i].Balance == standings[i-1].Balance &&
			standings[i].ReferralCount == standings[i-1].ReferralCount {
			standings[i].Rank = standings[i-1].Rank
			continue
		}
		standings[i].Rank = i + 1
	}
}

// Recompute reranks every user and persists the result. The cache refresh is
// best-effort; a Redis failure leaves the store authoritative.
func (s *Service) Recompute(ctx context.Context) (int, error) {
	standings, err := s.store.Standings(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading standings: %w", err)
	}
	assignRanks(standings)
	if err := s.store.UpdateRanks(ctx, standings); err != nil {
		return 0, fmt.Errorf("persisting ranks: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Rebuild(ctx, standings); err != nil {
			s.logger.Warn("leaderboard cache rebuild failed", "error", err)
		}
	}

	s.audit.Record(ctx, nil, models.EventRankingUpdate,
		fmt.Sprintf("recomputed rankings for %d users", len(standings)))
	return len(standings), nil
}

// Rank returns a user's stored rank. ranked is false for users that have not
// been through a recompute yet.
func (s *Service) Rank(ctx context.Context, userID int64) (rank int, ranked bool, err error) {
	stored, err := s.store.Rank(ctx, userID)
	if err != nil {
		return 0, false, err
	}
	if stored == nil {
		return 0, false, nil
	}
	return *stored, true, nil
}

// Leaderboard returns the top entries, serving ids from the cache when it is
// warm and falling back to the store otherwise.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	if limit > maxLeaderboardSize {
		limit = maxLeaderboardSize
	}

	if s.cache != nil {
		ids, err := s.cache.Top(ctx, limit)
		if err != nil {
			s.logger.Warn("leaderboard cache read failed", "error", err)
		} else if len(ids) > 0 {
			entries, err := s.store.EntriesByID(ctx, ids)
			if err != nil {
				return nil, err
			}
			if len(entries) == len(ids) {
				return entries, nil
			}
			// Cache and store disagree, likely a deleted user. Serve the
			// authoritative rows.
		}
	}
	return s.store.Leaderboard(ctx, limit)
}
