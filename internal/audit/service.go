package audit

import (
	"context"
	"log/slog"

	"github.com/EX7EX/SimplRefQ/internal/models"
)

// EventRepo is the minimal repository interface the service needs.
type EventRepo interface {
	Insert(ctx context.Context, e *models.LedgerEvent) error
	List(ctx context.Context, userID *int64, limit int) ([]*models.LedgerEvent, error)
}

// Log is the audit trail consumed by the ledger, claim gate, and referral
// graph. Appends are observability, not transactional participants: a failed
// append never rolls back the mutation it describes.
type Log interface {
	Append(ctx context.Context, e *models.LedgerEvent) error
	Record(ctx context.Context, userID *int64, kind, description string)
	Query(ctx context.Context, userID *int64, limit int) ([]*models.LedgerEvent, error)
}

type Service struct {
	repo   EventRepo
	logger *slog.Logger
}

func NewService(repo EventRepo, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

var _ Log = (*Service)(nil)

// Append persists one event. Failures are surfaced to the caller so they can
// decide; Record is the fire-and-forget form most mutation paths want.
func (s *Service) Append(ctx context.Context, e *models.LedgerEvent) error {
	return s.repo.Insert(ctx, e)
}

// Record appends an event and downgrades a persist failure to a warning.
func (s *Service) Record(ctx context.Context, userID *int64, kind, description string) {
	e := &models.LedgerEvent{UserID: userID, Kind: kind, Description: description}
	if err := s.repo.Insert(ctx, e); err != nil {
		s.logger.Warn("audit append failed", "kind", kind, "error", err)
	}
}

func (s *Service) Query(ctx context.Context, userID *int64, limit int) ([]*models.LedgerEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.repo.List(ctx, userID, limit)
}
