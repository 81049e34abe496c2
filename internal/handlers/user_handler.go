package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/EX7EX/SimplRefQ/internal/claim"
	"github.com/EX7EX/SimplRefQ/internal/ranking"
	"github.com/EX7EX/SimplRefQ/internal/referral"
	"github.com/EX7EX/SimplRefQ/internal/tasks"
	"github.com/EX7EX/SimplRefQ/internal/users"
	"github.com/EX7EX/SimplRefQ/internal/wallet"
)

// UserService is the subset of the user lifecycle used by the service surface.
type UserService interface {
	Register(ctx context.Context, id int64, name, referralCode string) (users.RegisterResult, error)
	Snapshot(ctx context.Context, id int64) (*users.Snapshot, error)
}

type ClaimService interface {
	ClaimDaily(ctx context.Context, userID int64) (claim.Result, error)
	State(ctx context.Context, userID int64) (string, error)
}

type ReferralService interface {
	Register(ctx context.Context, referredID int64, code string) error
	Stats(ctx context.Context, userID int64) (referral.Stats, error)
}

type RankingReader interface {
	Rank(ctx context.Context, userID int64) (rank int, ranked bool, err error)
	Leaderboard(ctx context.Context, limit int) ([]ranking.Entry, error)
}

type TaskCompleter interface {
	Complete(ctx context.Context, taskID uuid.UUID, userID int64) (int64, error)
}

type WalletService interface {
	CreateAddress(ctx context.Context, userID int64, chain string) (wallet.Address, error)
	ChainBalance(ctx context.Context, userID int64, chain string) (string, error)
}

// UserHandler serves the chat adapter's surface under /v1.
type UserHandler struct {
	Users     UserService
	Claims    ClaimService
	Referrals ReferralService
	Rankings  RankingReader
	Tasks     TaskCompleter
	Wallets   WalletService
	Logger    *slog.Logger
}

// --- POST /v1/register ---

type registerRequest struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	ReferralCode string `json:"referral_code"`
}

type registerResponse struct {
	Created       bool   `json:"created"`
	ReferralError string `json:"referral_error,omitempty"`
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.ID <= 0 {
		errorJSON(w, http.StatusBadRequest, "invalid_user_id")
		return
	}

	result, err := h.Users.Register(r.Context(), req.ID, req.Name, req.ReferralCode)
	if err != nil {
		h.Logger.Error("register user", "user_id", req.ID, "error", err)
		errorJSON(w, http.StatusInternalServerError, "registration_failed")
		return
	}
	resp := registerResponse{Created: result.Created}
	if result.ReferralErr != nil {
		resp.ReferralError = referralCode(result.ReferralErr)
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

// --- GET /v1/users/{id} ---

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid_user_id")
		return
	}
	snap, err := h.Users.Snapshot(r.Context(), id)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			errorJSON(w, http.StatusNotFound, "not_found")
			return
		}
		h.Logger.Error("user snapshot", "user_id", id, "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal_error")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// --- POST /v1/users/{id}/claim ---

type claimResponse struct {
	Granted    bool  `json:"granted"`
	NewBalance int64 `json:"new_balance"`
}

func (h *UserHandler) Claim(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid_user_id")
		return
	}
	result, err := h.Claims.ClaimDaily(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, claimResponse{Granted: result.Granted, NewBalance: result.NewBalance})
	case errors.Is(err, claim.ErrAlreadyClaimed):
		errorJSON(w, http.StatusConflict, "already_claimed")
	case errors.Is(err, claim.ErrUserNotFound):
		errorJSON(w, http.StatusNotFound, "not_found")
	default:
		h.Logger.Error("daily claim", "user_id", id, "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal_error")
	}
}

// --- GET /v1/users/{id}/claim ---

func (h *UserHandler) ClaimState(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid_user_id")
		return
	}
	state, err := h.Claims.State(r.Context(), id)
	if err != nil {
		if errors.Is(err, claim.ErrUserNotFound) {
			errorJSON(w, http.StatusNotFound, "not_found")
			return
		}
		h.Logger.Error("claim state", "user_id", id, "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": state})
}

// --- POST /v1/users/{id}/refer ---

type referRequest struct {
	Code string `json:"code"`
}

func (h *UserHandler) Refer(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid_user_id")
		return
	}
	var req referRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		errorJSON(w, http.StatusBadRequest, "missing_code")
		return
	}

	err := h.Referrals.Register(r.Context(), id, req.Code)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "referred"})
	case errors.Is(err, referral.ErrInvalidCode):
		errorJSON(w, http.StatusNotFound, "invalid_code")
	case errors.Is(err, referral.ErrAlreadyReferred):
		errorJSON(w, http.StatusConflict, "already_referred")
	case errors.Is(err, referral.ErrSelfReferral):
		errorJSON(w, http.StatusUnprocessableEntity, "self_referral")
	case errors.Is(err, referral.ErrUserNotFound):
		errorJSON(w, http.StatusNotFound, "not_found")
	default:
		h.Logger.Error("refer user", "user_id", id, "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal_error")
	}
}

// --- GET /v1/users/{id}/referrals ---

func (h *UserHandler) ReferralStats(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid_user_id")
		return
	}
	stats, err := h.Referrals.Stats(r.Context(), id)
	if err != nil {
		h.Logger.Error("referral stats", "user_id", id, "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal_error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// --- GET /v1/users/{id}/rank ---

type rankResponse struct {
	Rank   *int `json:"rank"`
	Ranked bool `json:"ranked"`
}

func (h *UserHandler) Rank(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid_user_id")
		return
	}
	rank, ranked, err := h.Rankings.Rank(r.Context(), id)
	if err != nil {
		if errors.Is(err, ranking.ErrUserNotFound) {
			errorJSON(w, http.StatusNotFound, "not_found")
			return
		}
		h.Logger.Error("user rank", "user_id", id, "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal_error")
		return
	}
	resp := rankResponse{Ranked: ranked}
	if ranked {
		resp.Rank = &rank
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- GET /v1/leaderboard ---

func (h *UserHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.Rankings.Leaderboard(r.Context(), limit)
	if err != nil {
		h.Logger.Error("leaderboard", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal_error")
		return
	}
	if entries == nil {
		entries = []ranking.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// --- POST /v1/users/{id}/tasks/{taskID}/complete ---

type completeTaskResponse struct {
	NewBalance int64 `json:"new_balance"`
}

func (h *UserHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid_user_id")
		return
	}
	taskID, err := uuid.Parse(r.PathValue("taskID"))
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_task_id")
		return
	}

	balance, err := h.Tasks.Complete(r.Context(), taskID, id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, completeTaskResponse{NewBalance: balance})
	case errors.Is(err, tasks.ErrTaskNotFound):
		errorJSON(w, http.StatusNotFound, "task_not_found")
	case errors.Is(err, tasks.ErrNotAssigned):
		errorJSON(w, http.StatusConflict, "not_assigned")
	case errors.Is(err, tasks.ErrAlreadyCompleted):
		errorJSON(w, http.StatusConflict, "already_completed")
	case errors.Is(err, tasks.ErrUserNotFound):
		errorJSON(w, http.StatusNotFound, "not_found")
	default:
		h.Logger.Error("complete task", "user_id", id, "task_id", taskID, "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal_error")
	}
}

// --- POST /v1/users/{id}/wallets ---

type createWalletRequest struct {
	Chain string `json:"chain"`
}

func (h *UserHandler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid_user_id")
		return
	}
	var req createWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Chain == "" {
		errorJSON(w, http.StatusBadRequest, "missing_chain")
		return
	}

	addr, err := h.Wallets.CreateAddress(r.Context(), id, req.Chain)
	switch {
	case err == nil:
		status := http.StatusOK
		if addr.Created {
			status = http.StatusCreated
		}
		writeJSON(w, status, addr)
	case errors.Is(err, wallet.ErrUnsupportedChain):
		errorJSON(w, http.StatusUnprocessableEntity, "unsupported_chain")
	case errors.Is(err, wallet.ErrUserNotFound):
		errorJSON(w, http.StatusNotFound, "not_found")
	default:
		h.Logger.Error("create wallet", "user_id", id, "chain", req.Chain, "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal_error")
	}
}

// --- GET /v1/users/{id}/wallets/{chain}/balance ---

func (h *UserHandler) WalletBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid_user_id")
		return
	}
	chain := r.PathValue("chain")

	balance, err := h.Wallets.ChainBalance(r.Context(), id, chain)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"chain": chain, "balance": balance})
	case errors.Is(err, wallet.ErrNoAddress):
		errorJSON(w, http.StatusNotFound, "no_address")
	case errors.Is(err, wallet.ErrNoChainClient):
		errorJSON(w, http.StatusServiceUnavailable, "chain_unavailable")
	default:
		h.Logger.Error("wallet balance", "user_id", id, "chain", chain, "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal_error")
	}
}

// referralCode maps a referral failure to its response code.
func referralCode(err error) string {
	switch {
	case errors.Is(err, referral.ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, referral.ErrAlreadyReferred):
		return "already_referred"
	case errors.Is(err, referral.ErrSelfReferral):
		return "self_referral"
	default:
		return "referral_failed"
	}
}
