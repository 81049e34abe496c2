package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/EX7EX/SimplRefQ/internal/claim"
	"github.com/EX7EX/SimplRefQ/internal/ledger"
	"github.com/EX7EX/SimplRefQ/internal/ranking"
	"github.com/EX7EX/SimplRefQ/internal/referral"
	"github.com/EX7EX/SimplRefQ/internal/tasks"
	"github.com/EX7EX/SimplRefQ/internal/users"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

// stubUserSvc backs both the service and operator surfaces so the update →
// snapshot roundtrip goes through one state.
type stubUserSvc struct {
	mu    sync.Mutex
	snaps map[int64]*users.Snapshot
}

func newStubUserSvc() *stubUserSvc {
	return &stubUserSvc{snaps: map[int64]*users.Snapshot{}}
}

func (s *stubUserSvc) Register(_ context.Context, id int64, name, _ string) (users.RegisterResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snaps[id]; ok {
		return users.RegisterResult{}, nil
	}
	s.snaps[id] = &users.Snapshot{ID: id, Name: name, CompletedTasks: []uuid.UUID{}}
	return users.RegisterResult{Created: true}, nil
}

func (s *stubUserSvc) Snapshot(_ context.Context, id int64) (*users.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[id]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	cp := *snap
	return &cp, nil
}

func (s *stubUserSvc) Update(_ context.Context, id int64, patch users.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if patch == (users.Patch{}) {
		return users.ErrEmptyPatch
	}
	if (patch.Balance != nil && *patch.Balance < 0) ||
		(patch.WalletBalance != nil && *patch.WalletBalance < 0) {
		return users.ErrNegativeBalance
	}
	snap, ok := s.snaps[id]
	if !ok {
		return users.ErrUserNotFound
	}
	if patch.Balance != nil {
		snap.Balance = *patch.Balance
	}
	if patch.WalletBalance != nil {
		snap.WalletBalance = *patch.WalletBalance
	}
	if patch.Name != nil {
		snap.Name = *patch.Name
	}
	if patch.LastClaimDate != nil {
		snap.LastClaimDate = patch.LastClaimDate
	}
	return nil
}

func (s *stubUserSvc) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snaps[id]; !ok {
		return users.ErrUserNotFound
	}
	delete(s.snaps, id)
	return nil
}

type stubClaimSvc struct {
	result claim.Result
	state  string
	err    error
}

func (s *stubClaimSvc) ClaimDaily(context.Context, int64) (claim.Result, error) {
	return s.result, s.err
}

func (s *stubClaimSvc) State(context.Context, int64) (string, error) {
	return s.state, s.err
}

type stubReferralSvc struct {
	err   error
	stats referral.Stats
}

func (s *stubReferralSvc) Register(context.Context, int64, string) error { return s.err }
func (s *stubReferralSvc) Stats(context.Context, int64) (referral.Stats, error) {
	return s.stats, nil
}

type stubRankingSvc struct {
	entries   []ranking.Entry
	gotLimit  int
	rank      int
	ranked    bool
	recompute int
}

func (s *stubRankingSvc) Rank(context.Context, int64) (int, bool, error) {
	return s.rank, s.ranked, nil
}

func (s *stubRankingSvc) Leaderboard(_ context.Context, limit int) ([]ranking.Entry, error) {
	s.gotLimit = limit
	return s.entries, nil
}

func (s *stubRankingSvc) Recompute(context.Context) (int, error) { return s.recompute, nil }

type stubTaskSvc struct {
	balance int64
	err     error
}

func (s *stubTaskSvc) Complete(context.Context, uuid.UUID, int64) (int64, error) {
	return s.balance, s.err
}

type stubLedgerSvc struct {
	balance int64
	err     error
}

func (s *stubLedgerSvc) GetBalance(context.Context, int64) (int64, error) {
	return s.balance, s.err
}

func (s *stubLedgerSvc) AdjustBalance(_ context.Context, _ int64, delta int64, _ string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.balance += delta
	return s.balance, nil
}

func (s *stubLedgerSvc) Transfer(context.Context, int64, int64, int64) error {
	return s.err
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type fixture struct {
	mux      *http.ServeMux
	users    *stubUserSvc
	claims   *stubClaimSvc
	refs     *stubReferralSvc
	rankings *stubRankingSvc
	tasks    *stubTaskSvc
	ledger   *stubLedgerSvc
}

func newFixture() *fixture {
	f := &fixture{
		users:    newStubUserSvc(),
		claims:   &stubClaimSvc{},
		refs:     &stubReferralSvc{},
		rankings: &stubRankingSvc{},
		tasks:    &stubTaskSvc{},
		ledger:   &stubLedgerSvc{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	uh := &UserHandler{
		Users:     f.users,
		Claims:    f.claims,
		Referrals: f.refs,
		Rankings:  f.rankings,
		Tasks:     f.tasks,
		Logger:    logger,
	}
	ah := &AdminHandler{
		Users:    f.users,
		Rankings: f.rankings,
		Ledger:   f.ledger,
		Logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/register", uh.Register)
	mux.HandleFunc("GET /v1/users/{id}", uh.GetUser)
	mux.HandleFunc("POST /v1/users/{id}/claim", uh.Claim)
	mux.HandleFunc("GET /v1/users/{id}/claim", uh.ClaimState)
	mux.HandleFunc("POST /v1/users/{id}/refer", uh.Refer)
	mux.HandleFunc("GET /v1/users/{id}/rank", uh.Rank)
	mux.HandleFunc("GET /v1/leaderboard", uh.Leaderboard)
	mux.HandleFunc("POST /v1/users/{id}/tasks/{taskID}/complete", uh.CompleteTask)
	mux.HandleFunc("POST /v1/users/{id}", ah.UpdateUser)
	mux.HandleFunc("DELETE /v1/users/{id}", ah.DeleteUser)
	mux.HandleFunc("GET /v1/users/{id}/balance", ah.GetBalance)
	mux.HandleFunc("POST /v1/users/{id}/balance", ah.AdjustBalance)
	f.mux = mux
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return v
}

func errCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[map[string]string](t, rec)["error"]
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestUpdateThenGetRoundtrip(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/v1/register", `{"id":7,"name":"alice"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/v1/users/7", `{"balance":500}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/v1/users/7", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}
	snap := decodeBody[users.Snapshot](t, rec)
	if snap.Balance != 500 {
		t.Errorf("balance %d, want 500", snap.Balance)
	}
	if snap.Name != "alice" || snap.WalletBalance != 0 {
		t.Errorf("fields outside the patch changed: %+v", snap)
	}
}

func TestUpdateUser_EmptyPatchIs400(t *testing.T) {
	f := newFixture()
	f.do(t, http.MethodPost, "/v1/register", `{"id":7,"name":"alice"}`)

	rec := f.do(t, http.MethodPost, "/v1/users/7", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := errCode(t, rec); code != "empty_patch" {
		t.Errorf("error code %q, want empty_patch", code)
	}
}

func TestUpdateUser_NegativeBalanceIs422(t *testing.T) {
	f := newFixture()
	f.do(t, http.MethodPost, "/v1/register", `{"id":7,"name":"alice"}`)

	rec := f.do(t, http.MethodPost, "/v1/users/7", `{"balance":-5}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	if code := errCode(t, rec); code != "negative_balance" {
		t.Errorf("error code %q, want negative_balance", code)
	}

	rec = f.do(t, http.MethodGet, "/v1/users/7", "")
	snap := decodeBody[users.Snapshot](t, rec)
	if snap.Balance != 0 {
		t.Errorf("rejected patch must not change balance, got %d", snap.Balance)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodGet, "/v1/users/404", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if code := errCode(t, rec); code != "not_found" {
		t.Errorf("error code %q, want not_found", code)
	}
}

func TestClaim_StatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		result     claim.Result
		wantStatus int
		wantCode   string
	}{
		{"granted", nil, claim.Result{Granted: true, NewBalance: 150}, http.StatusOK, ""},
		{"already claimed", claim.ErrAlreadyClaimed, claim.Result{}, http.StatusConflict, "already_claimed"},
		{"unknown user", claim.ErrUserNotFound, claim.Result{}, http.StatusNotFound, "not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			f.claims.result = tc.result
			f.claims.err = tc.err

			rec := f.do(t, http.MethodPost, "/v1/users/7/claim", "")
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, rec.Code, rec.Body.String())
			}
			if tc.wantCode != "" {
				if code := errCode(t, rec); code != tc.wantCode {
					t.Errorf("error code %q, want %q", code, tc.wantCode)
				}
				return
			}
			resp := decodeBody[claimResponse](t, rec)
			if !resp.Granted || resp.NewBalance != 150 {
				t.Errorf("response %+v", resp)
			}
		})
	}
}

func TestClaimState(t *testing.T) {
	f := newFixture()
	f.claims.state = claim.StateClaimAvailable

	rec := f.do(t, http.MethodGet, "/v1/users/7/claim", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decodeBody[map[string]string](t, rec)["state"]; got != claim.StateClaimAvailable {
		t.Errorf("state %q, want %q", got, claim.StateClaimAvailable)
	}

	f.claims.err = claim.ErrUserNotFound
	rec = f.do(t, http.MethodGet, "/v1/users/404/claim", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown user: expected 404, got %d", rec.Code)
	}
}

func TestAdminBalance_ReadAndAdjust(t *testing.T) {
	f := newFixture()
	f.ledger.balance = 80

	rec := f.do(t, http.MethodGet, "/v1/users/7/balance", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decodeBody[map[string]int64](t, rec)["balance"]; got != 80 {
		t.Errorf("balance %d, want 80", got)
	}

	rec = f.do(t, http.MethodPost, "/v1/users/7/balance", `{"delta":-30}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("adjust: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[map[string]int64](t, rec)["new_balance"]; got != 50 {
		t.Errorf("new_balance %d, want 50", got)
	}

	f.ledger.err = ledger.ErrInsufficientFunds
	rec = f.do(t, http.MethodPost, "/v1/users/7/balance", `{"delta":-500}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("overdraw: expected 409, got %d", rec.Code)
	}
	if code := errCode(t, rec); code != "insufficient_funds" {
		t.Errorf("error code %q, want insufficient_funds", code)
	}
}

func TestRefer_StatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid code", referral.ErrInvalidCode, http.StatusNotFound, "invalid_code"},
		{"already referred", referral.ErrAlreadyReferred, http.StatusConflict, "already_referred"},
		{"self referral", referral.ErrSelfReferral, http.StatusUnprocessableEntity, "self_referral"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			f.refs.err = tc.err

			rec := f.do(t, http.MethodPost, "/v1/users/7/refer", `{"code":"ref_1"}`)
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rec.Code)
			}
			if code := errCode(t, rec); code != tc.wantCode {
				t.Errorf("error code %q, want %q", code, tc.wantCode)
			}
		})
	}
}

func TestRank_NullForUnranked(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/v1/users/7/rank", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"rank":null,"ranked":false}` {
		t.Errorf("unranked body %s", body)
	}

	f.rankings.rank = 3
	f.rankings.ranked = true
	rec = f.do(t, http.MethodGet, "/v1/users/7/rank", "")
	resp := decodeBody[rankResponse](t, rec)
	if resp.Rank == nil || *resp.Rank != 3 || !resp.Ranked {
		t.Errorf("ranked body %s", rec.Body.String())
	}
}

func TestLeaderboard_PassesLimit(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodGet, "/v1/leaderboard?limit=25", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.rankings.gotLimit != 25 {
		t.Errorf("limit %d, want 25", f.rankings.gotLimit)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("empty leaderboard should serialize as [], got %s", body)
	}
}

func TestCompleteTask_StatusMapping(t *testing.T) {
	taskID := uuid.New()
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"completed", nil, http.StatusOK, ""},
		{"not assigned", tasks.ErrNotAssigned, http.StatusConflict, "not_assigned"},
		{"unknown task", tasks.ErrTaskNotFound, http.StatusNotFound, "task_not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			f.tasks.balance = 60
			f.tasks.err = tc.err

			rec := f.do(t, http.MethodPost, "/v1/users/7/tasks/"+taskID.String()+"/complete", "")
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rec.Code)
			}
			if tc.wantCode != "" {
				if code := errCode(t, rec); code != tc.wantCode {
					t.Errorf("error code %q, want %q", code, tc.wantCode)
				}
			}
		})
	}

	f := newFixture()
	rec := f.do(t, http.MethodPost, "/v1/users/7/tasks/not-a-uuid/complete", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad task id: expected 400, got %d", rec.Code)
	}
}

func TestDeleteUser(t *testing.T) {
	f := newFixture()
	f.do(t, http.MethodPost, "/v1/register", `{"id":7,"name":"alice"}`)

	rec := f.do(t, http.MethodDelete, "/v1/users/7", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodDelete, "/v1/users/7", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("double delete: expected 404, got %d", rec.Code)
	}
}
