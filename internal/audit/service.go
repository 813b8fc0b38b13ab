package audit

import (
	"context"
	"log/slog"
	"time"
)

// Store is the persistence surface the service needs. Satisfied by *Repository.
type Store interface {
	InsertDecision(ctx context.Context, d Decision) error
	ListRecentDecisions(ctx context.Context, limit int) ([]Decision, error)
}

// Service records and reads the authorization decision trail.
type Service struct {
	logger *slog.Logger
	repo   Store
	now    func() time.Time
}

// NewService constructs a Service instance.
func NewService(logger *slog.Logger, repo Store) *Service {
	return &Service{logger: logger, repo: repo, now: time.Now}
}

// Record appends a decision to the trail. Recording is best-effort: a
// persistence failure is logged and never surfaces to the request that
// produced the decision.
func (s *Service) Record(ctx context.Context, principalID string, operation string, resourceID int64, granted bool) {
	d := Decision{
		PrincipalID: principalID,
		Operation:   operation,
		ResourceID:  resourceID,
		Granted:     granted,
		DecidedAt:   s.now().UTC(),
	}
	if err := s.repo.InsertDecision(ctx, d); err != nil {
		s.logger.Error("record authorization decision",
			slog.String("principal_id", principalID),
			slog.String("operation", operation),
			slog.Any("error", err))
	}
}

// RecentDecisions returns up to limit decisions, newest first.
func (s *Service) RecentDecisions(ctx context.Context, limit int) ([]Decision, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListRecentDecisions(ctx, limit)
}
