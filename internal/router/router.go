package router

import (
	"net/http"

	"github.com/EX7EX/SimplRefQ/internal/auth"
	"github.com/EX7EX/SimplRefQ/internal/handlers"
)

// Middleware wraps a handler, e.g. the API-key or operator JWT guards.
type Middleware func(http.Handler) http.Handler

// New builds the full route table. The service surface (chat adapter) runs
// behind serviceAuth; the operator surface behind operatorAuth; the operator
// account endpoints under /api/v1/auth are public.
func New(
	userHandler *handlers.UserHandler,
	adminHandler *handlers.AdminHandler,
	authHandler *auth.Handler,
	serviceAuth Middleware,
	operatorAuth Middleware,
) http.Handler {
	mux := http.NewServeMux()

	// Operator accounts (public).
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	// Service surface.
	service := func(h http.HandlerFunc) http.Handler { return serviceAuth(h) }
	mux.Handle("POST /v1/register", service(userHandler.Register))
	mux.Handle("GET /v1/users/{id}", service(userHandler.GetUser))
	mux.Handle("POST /v1/users/{id}/claim", service(userHandler.Claim))
	mux.Handle("GET /v1/users/{id}/claim", service(userHandler.ClaimState))
	mux.Handle("POST /v1/users/{id}/refer", service(userHandler.Refer))
	mux.Handle("GET /v1/users/{id}/referrals", service(userHandler.ReferralStats))
	mux.Handle("GET /v1/users/{id}/rank", service(userHandler.Rank))
	mux.Handle("GET /v1/leaderboard", service(userHandler.Leaderboard))
	mux.Handle("POST /v1/users/{id}/tasks/{taskID}/complete", service(userHandler.CompleteTask))
	mux.Handle("POST /v1/users/{id}/wallets", service(userHandler.CreateWallet))
	mux.Handle("GET /v1/users/{id}/wallets/{chain}/balance", service(userHandler.WalletBalance))

	// Operator surface.
	operator := func(h http.HandlerFunc) http.Handler { return operatorAuth(h) }
	mux.Handle("POST /v1/users/{id}", operator(adminHandler.UpdateUser))
	mux.Handle("DELETE /v1/users/{id}", operator(adminHandler.DeleteUser))
	mux.Handle("POST /v1/rankings/recompute", operator(adminHandler.RecomputeRankings))
	mux.Handle("POST /v1/tasks", operator(adminHandler.CreateTask))
	mux.Handle("GET /v1/tasks", operator(adminHandler.ListTasks))
	mux.Handle("POST /v1/users/{id}/tasks/{taskID}", operator(adminHandler.AssignTask))
	mux.Handle("GET /v1/users/{id}/balance", operator(adminHandler.GetBalance))
	mux.Handle("POST /v1/users/{id}/balance", operator(adminHandler.AdjustBalance))
	mux.Handle("POST /v1/transfers", operator(adminHandler.Transfer))
	mux.Handle("GET /v1/audit", operator(adminHandler.ListAudit))

	return mux
}
