package ranking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"

	"github.com/EX7EX/SimplRefQ/internal/models"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockRankStore struct {
	mu        sync.Mutex
	standings []Standing
	ranks     map[int64]*int
	failLoad  error
}

func (m *mockRankStore) Standings(context.Context) ([]Standing, error) {
	if m.failLoad != nil {
		return nil, m.failLoad
	}
	out := make([]Standing, len(m.standings))
	copy(out, m.standings)
	return out, nil
}

func (m *mockRankStore) UpdateRanks(_ context.Context, standings []Standing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ranks == nil {
		m.ranks = map[int64]*int{}
	}
	for _, s := range standings {
		rank := s.Rank
		m.ranks[s.UserID] = &rank
	}
	return nil
}

func (m *mockRankStore) Rank(_ context.Context, userID int64) (*int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.standings {
		if s.UserID == userID {
			return m.ranks[userID], nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockRankStore) Leaderboard(_ context.Context, limit int) ([]Entry, error) {
	var entries []Entry
	for _, s := range m.standings {
		if len(entries) == limit {
			break
		}
		entries = append(entries, m.entryFor(s))
	}
	return entries, nil
}

func (m *mockRankStore) EntriesByID(_ context.Context, ids []int64) ([]Entry, error) {
	var entries []Entry
	for _, id := range ids {
		for _, s := range m.standings {
			if s.UserID == id {
				entries = append(entries, m.entryFor(s))
			}
		}
	}
	return entries, nil
}

func (m *mockRankStore) entryFor(s Standing) Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Entry{UserID: s.UserID, Balance: s.Balance, ReferralCount: s.ReferralCount, Rank: m.ranks[s.UserID]}
}

type mockCache struct {
	rebuilt []Standing
	top     []int64
	err     error
}

func (m *mockCache) Rebuild(_ context.Context, standings []Standing) error {
	if m.err != nil {
		return m.err
	}
	m.rebuilt = standings
	return nil
}

func (m *mockCache) Top(_ context.Context, n int) ([]int64, error) {
	if m.err != nil {
		return nil, m.err
	}
	if n > len(m.top) {
		n = len(m.top)
	}
	return m.top[:n], nil
}

type recordingAudit struct {
	mu     sync.Mutex
	events []*models.LedgerEvent
}

func (a *recordingAudit) Append(_ context.Context, e *models.LedgerEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	cp := *e
	a.events = append(a.events, &cp)
	return nil
}

func (a *recordingAudit) Record(ctx context.Context, userID *int64, kind, description string) {
	_ = a.Append(ctx, &models.LedgerEvent{UserID: userID, Kind: kind, Description: description})
}

func (a *recordingAudit) Query(context.Context, *int64, int) ([]*models.LedgerEvent, error) {
	return nil, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestAssignRanks(t *testing.T) {
	cases := []struct {
		name      string
		balances  []int64
		refCounts []int
		want      []int
	}{
		{"ties share and skip", []int64{50, 50, 30, 10}, nil, []int{1, 1, 3, 4}},
		{"all tied", []int64{7, 7, 7}, nil, []int{1, 1, 1}},
		{"strictly decreasing", []int64{9, 8, 7}, nil, []int{1, 2, 3}},
		{"tie at the bottom", []int64{9, 4, 4}, nil, []int{1, 2, 2}},
		{"referral count breaks balance ties", []int64{50, 50, 50}, []int{2, 2, 1}, []int{1, 1, 3}},
		{"empty", nil, nil, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			standings := make([]Standing, len(tc.balances))
			for i, b := range tc.balances {
				standings[i] = Standing{UserID: int64(i + 1), Balance: b}
				if tc.refCounts != nil {
					standings[i].ReferralCount = tc.refCounts[i]
				}
			}
			assignRanks(standings)
			got := make([]int, len(standings))
			for i, s := range standings {
				got[i] = s.Rank
			}
			if len(got) == 0 {
				got = nil
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("balances %v: ranks %v, want %v", tc.balances, got, tc.want)
			}
		})
	}
}

func TestRecompute_PersistsRanksAndRefreshesCache(t *testing.T) {
	store := &mockRankStore{standings: []Standing{
		{UserID: 1, Balance: 50},
		{UserID: 2, Balance: 50},
		{UserID: 3, Balance: 30},
		{UserID: 4, Balance: 10},
	}}
	cache := &mockCache{}
	auditLog := &recordingAudit{}
	svc := NewService(store, cache, auditLog, discardLogger())

	n, err := svc.Recompute(context.Background())
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if n != 4 {
		t.Errorf("ranked %d users, want 4", n)
	}

	wantRanks := map[int64]int{1: 1, 2: 1, 3: 3, 4: 4}
	for id, want := range wantRanks {
		got := store.ranks[id]
		if got == nil || *got != want {
			t.Errorf("user %d: rank %v, want %d", id, got, want)
		}
	}
	if len(cache.rebuilt) != 4 {
		t.Errorf("cache rebuilt with %d standings, want 4", len(cache.rebuilt))
	}
	if len(auditLog.events) != 1 || auditLog.events[0].Kind != models.EventRankingUpdate {
		t.Errorf("expected one ranking_update event, got %+v", auditLog.events)
	}
}

func TestRecompute_CacheFailureIsNotFatal(t *testing.T) {
	store := &mockRankStore{standings: []Standing{{UserID: 1, Balance: 5}}}
	cache := &mockCache{err: errors.New("redis down")}
	svc := NewService(store, cache, &recordingAudit{}, discardLogger())

	if _, err := svc.Recompute(context.Background()); err != nil {
		t.Fatalf("cache failure must not fail the recompute: %v", err)
	}
	if got := store.ranks[1]; got == nil || *got != 1 {
		t.Errorf("rank should still be persisted, got %v", got)
	}
}

func TestRank_UnrankedUser(t *testing.T) {
	store := &mockRankStore{standings: []Standing{{UserID: 1, Balance: 5}}}
	svc := NewService(store, nil, &recordingAudit{}, discardLogger())
	ctx := context.Background()

	if _, ranked, err := svc.Rank(ctx, 1); err != nil || ranked {
		t.Errorf("before recompute: ranked=%v err=%v, want unranked", ranked, err)
	}
	if _, err := svc.Recompute(ctx); err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	rank, ranked, err := svc.Rank(ctx, 1)
	if err != nil || !ranked || rank != 1 {
		t.Errorf("after recompute: rank=%d ranked=%v err=%v, want 1 true nil", rank, ranked, err)
	}
	if _, _, err := svc.Rank(ctx, 99); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user: expected ErrUserNotFound, got %v", err)
	}
}

func TestLeaderboard_ServesFromCacheWhenWarm(t *testing.T) {
	store := &mockRankStore{standings: []Standing{
		{UserID: 1, Balance: 50},
		{UserID: 2, Balance: 40},
		{UserID: 3, Balance: 30},
	}}
	cache := &mockCache{top: []int64{1, 2, 3}}
	svc := NewService(store, cache, &recordingAudit{}, discardLogger())

	entries, err := svc.Leaderboard(context.Background(), 2)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(entries) != 2 || entries[0].UserID != 1 || entries[1].UserID != 2 {
		t.Errorf("got %+v, want users 1 and 2 in order", entries)
	}
}

func TestLeaderboard_FallsBackWhenCacheCold(t *testing.T) {
	store := &mockRankStore{standings: []Standing{
		{UserID: 1, Balance: 50},
		{UserID: 2, Balance: 40},
	}}
	cases := []struct {
		name  string
		cache LeaderboardCache
	}{
		{"no cache configured", nil},
		{"cache empty", &mockCache{}},
		{"cache erroring", &mockCache{err: errors.New("redis down")}},
		{"cache references deleted user", &mockCache{top: []int64{1, 99}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(store, tc.cache, &recordingAudit{}, discardLogger())
			entries, err := svc.Leaderboard(context.Background(), 5)
			if err != nil {
				t.Fatalf("Leaderboard: %v", err)
			}
			if len(entries) != 2 || entries[0].UserID != 1 {
				t.Errorf("got %+v, want both users best first", entries)
			}
		})
	}
}
