package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/EX7EX/SimplRefQ/internal/ledger"
	"github.com/EX7EX/SimplRefQ/internal/models"
	"github.com/EX7EX/SimplRefQ/internal/tasks"
	"github.com/EX7EX/SimplRefQ/internal/users"
)

// UserAdmin is the operator-only slice of the user lifecycle.
type UserAdmin interface {
	Update(ctx context.Context, id int64, patch users.Patch) error
	Delete(ctx context.Context, id int64) error
}

type RankingRecomputer interface {
	Recompute(ctx context.Context) (int, error)
}

// TaskAdmin creates, lists, and assigns tasks.
type TaskAdmin interface {
	Create(ctx context.Context, name string, reward int64, description string) (*models.Task, error)
	List(ctx context.Context) ([]*models.Task, error)
	Assign(ctx context.Context, taskID uuid.UUID, userID int64) error
}

// LedgerService drives operator balance reads, corrections, and transfers.
type LedgerService interface {
	GetBalance(ctx context.Context, userID int64) (int64, error)
	AdjustBalance(ctx context.Context, userID, delta int64, description string) (int64, error)
	Transfer(ctx context.Context, sender, receiver, amount int64) error
}

type AuditReader interface {
	Query(ctx context.Context, userID *int64, limit int) ([]*models.LedgerEvent, error)
}

// AdminHandler serves the operator surface. Every route behind it runs under
// OperatorAuth.
type AdminHandler struct {
	Users    UserAdmin
	Rankings RankingRecomputer
	Tasks    TaskAdmin
	Ledger   LedgerService
	Audit    AuditReader
	Logger   *slog.Logger
}

// --- POST /v1/users/{id} ---

func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid_user_id")
		return
	}
	var patch users.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_json")
		return
	}

	err := h.Users.Update(r.Context(), id, patch)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	case errors.Is(err, users.ErrEmptyPatch):
		errorJSON(w, http.StatusBadRequest, "empty_patch")
	case errors.Is(err, users.ErrNegativeBalance):
		errorJSON(w, http.StatusUnprocessableEntity, "negative_balance")
	case errors.Is(err, users.ErrUserNotFound):
		errorJSON(w, http.StatusNotFound, "not_found")
	default:
		h.Logger.Error("update user", "user_id", id, "error", err)
		errorJSON(w, http.StatusInternalServerError, "update_failed")
	}
}

// --- DELETE /v1/users/{id} ---

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid_user_id")
		return
	}
	err := h.Users.Delete(r.Context(), id)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, users.ErrUserNotFound):
		errorJSON(w, http.StatusNotFound, "not_found")
	default:
		h.Logger.Error("delete user", "user_id", id, "error", err)
		errorJSON(w, http.StatusInternalServerError, "delete_failed")
	}
}

// --- POST /v1/rankings/recompute ---

func (h *AdminHandler) RecomputeRankings(w http.ResponseWriter, r *http.Request) {
	n, err := h.Rankings.Recompute(r.Context())
	if err != nil {
		h.Logger.Error("recompute rankings", "error", err)
		errorJSON(w, http.StatusInternalServerError, "recompute_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"ranked_users": n})
}

// --- POST /v1/tasks ---

type createTaskRequest struct {
	Name        string `json:"name"`
	Reward      int64  `json:"reward"`
	Description string `json:"description"`
}

func (h *AdminHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_json")
		return
	}
	task, err := h.Tasks.Create(r.Context(), req.Name, req.Reward, req.Description)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, task)
	case errors.Is(err, tasks.ErrInvalidTask):
		errorJSON(w, http.StatusUnprocessableEntity, "invalid_task")
	default:
		h.Logger.Error("create task", "error", err)
		errorJSON(w, http.StatusInternalServerError, "create_failed")
	}
}

// --- GET /v1/tasks ---

func (h *AdminHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	list, err := h.Tasks.List(r.Context())
	if err != nil {
		h.Logger.Error("list tasks", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal_error")
		return
	}
	if list == nil {
		list = []*models.Task{}
	}
	writeJSON(w, http.StatusOK, list)
}

// --- POST /v1/users/{id}/tasks/{taskID} ---

func (h *AdminHandler) AssignTask(w http.ResponseWriter, r *http.Request) {
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

	err = h.Tasks.Assign(r.Context(), taskID, id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "assigned"})
	case errors.Is(err, tasks.ErrTaskNotFound):
		errorJSON(w, http.StatusNotFound, "task_not_found")
	case errors.Is(err, tasks.ErrUserNotFound):
		errorJSON(w, http.StatusNotFound, "not_found")
	default:
		h.Logger.Error("assign task", "user_id", id, "task_id", taskID, "error", err)
		errorJSON(w, http.StatusInternalServerError, "assign_failed")
	}
}

// --- GET /v1/users/{id}/balance ---

func (h *AdminHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid_user_id")
		return
	}
	balance, err := h.Ledger.GetBalance(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
	case errors.Is(err, ledger.ErrUserNotFound):
		errorJSON(w, http.StatusNotFound, "not_found")
	default:
		h.Logger.Error("get balance", "user_id", id, "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal_error")
	}
}

// --- POST /v1/users/{id}/balance ---

type adjustBalanceRequest struct {
	Delta       int64  `json:"delta"`
	Description string `json:"description"`
}

func (h *AdminHandler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid_user_id")
		return
	}
	var req adjustBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Description == "" {
		req.Description = "operator adjustment"
	}

	balance, err := h.Ledger.AdjustBalance(r.Context(), id, req.Delta, req.Description)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]int64{"new_balance": balance})
	case errors.Is(err, ledger.ErrUserNotFound):
		errorJSON(w, http.StatusNotFound, "not_found")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		errorJSON(w, http.StatusConflict, "insufficient_funds")
	case errors.Is(err, ledger.ErrBalanceOverflow):
		errorJSON(w, http.StatusUnprocessableEntity, "balance_overflow")
	default:
		h.Logger.Error("adjust balance", "user_id", id, "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal_error")
	}
}

// --- POST /v1/transfers ---

type transferRequest struct {
	Sender   int64 `json:"sender"`
	Receiver int64 `json:"receiver"`
	Amount   int64 `json:"amount"`
}

func (h *AdminHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid_json")
		return
	}

	err := h.Ledger.Transfer(r.Context(), req.Sender, req.Receiver, req.Amount)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "transferred"})
	case errors.Is(err, ledger.ErrInvalidAmount):
		errorJSON(w, http.StatusUnprocessableEntity, "invalid_amount")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		errorJSON(w, http.StatusConflict, "insufficient_funds")
	case errors.Is(err, ledger.ErrUserNotFound):
		errorJSON(w, http.StatusNotFound, "not_found")
	default:
		h.Logger.Error("transfer", "sender", req.Sender, "receiver", req.Receiver, "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal_error")
	}
}

// --- GET /v1/audit ---

func (h *AdminHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	var userFilter *int64
	if raw := r.URL.Query().Get("user"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			errorJSON(w, http.StatusBadRequest, "invalid_user_id")
			return
		}
		userFilter = &id
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := h.Audit.Query(r.Context(), userFilter, limit)
	if err != nil {
		h.Logger.Error("audit query", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal_error")
		return
	}
	if events == nil {
		events = []*models.LedgerEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}
