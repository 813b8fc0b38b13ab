package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/shifthub/shifthub/internal/authz"
	"github.com/shifthub/shifthub/internal/shared"
)

// Authorizer decides whether a principal may perform an operation on a
// schedule. Satisfied by *authz.Service.
type Authorizer interface {
	Authorize(p *authz.Principal, op authz.Operation, res *authz.Resource) authz.Decision
}

// DecisionRecorder persists authorization decisions for the audit trail.
// Recording is best-effort and must never block the request.
type DecisionRecorder interface {
	Record(ctx context.Context, principalID string, operation string, resourceID int64, granted bool)
}

// Service is the schedule workflow controller: for each use case it runs the
// exact sequence of authorization checks that must all pass before a mutation
// is committed.
type Service struct {
	logger *slog.Logger
	repo   Repository
	auth   Authorizer
	audit  DecisionRecorder
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, repo Repository, auth Authorizer, audit DecisionRecorder) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, repo: repo, auth: auth, audit: audit}
}

// authorize runs one aggregator call and converts a denial into ErrForbidden.
// Denials are always recorded; grants are recorded for the privileged
// operations that mutate protected fields.
func (s *Service) authorize(ctx context.Context, p *authz.Principal, op authz.Operation, res *authz.Resource) error {
	decision := s.auth.Authorize(p, op, res)
	if s.audit != nil {
		privileged := op == authz.OpApprove || op == authz.OpReject ||
			op == authz.OpAssignOwner || op == authz.OpAssignStatus
		if !decision.Granted || privileged {
			s.audit.Record(ctx, p.ID, string(op), resourceID(res), decision.Granted)
		}
	}
	if !decision.Granted {
		return shared.ErrForbidden
	}
	return nil
}

// Create validates and authorizes a new shift request, then persists it.
// Time validation is a structural concern and runs before any authorization.
func (s *Service) Create(ctx context.Context, p *authz.Principal, input CreateScheduleInput) (Schedule, error) {
	if p == nil {
		return Schedule{}, shared.ErrForbidden
	}
	if input.OwnerID == "" {
		input.OwnerID = p.ID
	}
	if input.Status == "" {
		input.Status = StatusSubmitted
	}
	if !input.Status.Valid() {
		return Schedule{}, &ValidationError{Field: "status", Message: "Unknown status."}
	}
	if err := validateTimes(input.StartTime, input.EndTime); err != nil {
		return Schedule{}, err
	}

	draft := Schedule{
		OwnerID:   input.OwnerID,
		Date:      input.Date,
		Day:       DayOfWeek(input.Date),
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
		Status:    input.Status,
	}
	res := &authz.Resource{OwnerID: draft.OwnerID}

	if err := s.authorize(ctx, p, authz.OpCreate, res); err != nil {
		return Schedule{}, err
	}
	if draft.OwnerID != p.ID {
		if err := s.authorize(ctx, p, authz.OpAssignOwner, res); err != nil {
			return Schedule{}, err
		}
	}
	if draft.Status != StatusSubmitted {
		if err := s.authorize(ctx, p, authz.OpAssignStatus, res); err != nil {
			return Schedule{}, err
		}
	}

	created, err := s.repo.Create(ctx, draft)
	if err != nil {
		return Schedule{}, err
	}
	s.logger.Info("schedule created",
		slog.Int64("schedule_id", created.ID),
		slog.String("owner_id", created.OwnerID),
		slog.String("principal_id", p.ID))
	return created, nil
}

// Get returns a single schedule, applying the same visibility rule the
// listing uses: privileged roles see everything, others see approved
// schedules and their own. Invisible records surface as not found.
func (s *Service) Get(ctx context.Context, p *authz.Principal, id int64) (Schedule, error) {
	if p == nil {
		return Schedule{}, shared.ErrForbidden
	}
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Schedule{}, err
	}
	if !p.Privileged() && existing.OwnerID != p.ID && existing.Status != StatusApproved {
		return Schedule{}, shared.ErrNotFound
	}
	return existing, nil
}

// Update authorizes against the existing record before copying any field
// from the input. Owner and status changes require extra authority.
func (s *Service) Update(ctx context.Context, p *authz.Principal, id int64, input UpdateScheduleInput) (Schedule, error) {
	if p == nil {
		return Schedule{}, shared.ErrForbidden
	}
	if !input.Status.Valid() {
		return Schedule{}, &ValidationError{Field: "status", Message: "Unknown status."}
	}
	if err := validateTimes(input.StartTime, input.EndTime); err != nil {
		return Schedule{}, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Schedule{}, err
	}
	if input.OwnerID == "" {
		// An omitted owner keeps the current one rather than reassigning.
		input.OwnerID = existing.OwnerID
	}
	res := &authz.Resource{ID: existing.ID, OwnerID: existing.OwnerID}

	if err := s.authorize(ctx, p, authz.OpUpdate, res); err != nil {
		return Schedule{}, err
	}
	if input.OwnerID != p.ID {
		if err := s.authorize(ctx, p, authz.OpAssignOwner, res); err != nil {
			return Schedule{}, err
		}
	}
	if input.Status != StatusSubmitted {
		if err := s.authorize(ctx, p, authz.OpAssignStatus, res); err != nil {
			return Schedule{}, err
		}
	}

	existing.OwnerID = input.OwnerID
	existing.Status = input.Status
	existing.Date = input.Date
	existing.Day = DayOfWeek(input.Date)
	existing.StartTime = input.StartTime
	existing.EndTime = input.EndTime

	if err := s.repo.Update(ctx, existing); err != nil {
		return Schedule{}, err
	}
	s.logger.Info("schedule updated",
		slog.Int64("schedule_id", existing.ID),
		slog.String("principal_id", p.ID))
	return existing, nil
}

// Approve moves a submitted schedule to Approved.
func (s *Service) Approve(ctx context.Context, p *authz.Principal, id int64) (Schedule, error) {
	return s.transition(ctx, p, id, authz.OpApprove, StatusApproved)
}

// Reject moves a submitted schedule to Rejected.
func (s *Service) Reject(ctx context.Context, p *authz.Principal, id int64) (Schedule, error) {
	return s.transition(ctx, p, id, authz.OpReject, StatusRejected)
}

func (s *Service) transition(ctx context.Context, p *authz.Principal, id int64, op authz.Operation, to Status) (Schedule, error) {
	if p == nil {
		return Schedule{}, shared.ErrForbidden
	}
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Schedule{}, err
	}
	res := &authz.Resource{ID: existing.ID, OwnerID: existing.OwnerID}
	if err := s.authorize(ctx, p, op, res); err != nil {
		return Schedule{}, err
	}
	if existing.Status != StatusSubmitted {
		return Schedule{}, ErrFinalStatus
	}
	existing.Status = to
	if err := s.repo.Update(ctx, existing); err != nil {
		return Schedule{}, err
	}
	s.logger.Info("schedule status changed",
		slog.Int64("schedule_id", existing.ID),
		slog.String("status", string(to)),
		slog.String("principal_id", p.ID))
	return existing, nil
}

// Delete removes a schedule permanently. No soft delete.
func (s *Service) Delete(ctx context.Context, p *authz.Principal, id int64) error {
	if p == nil {
		return shared.ErrForbidden
	}
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	res := &authz.Resource{ID: existing.ID, OwnerID: existing.OwnerID}
	if err := s.authorize(ctx, p, authz.OpDelete, res); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("schedule deleted",
		slog.Int64("schedule_id", id),
		slog.String("principal_id", p.ID))
	return nil
}

// List returns all schedules visible to the principal in the requested
// order. Visibility is a query-level predicate, not a per-record check.
func (s *Service) List(ctx context.Context, p *authz.Principal, sort ListSort) ([]Schedule, error) {
	if p == nil {
		return nil, shared.ErrForbidden
	}
	q := ListQuery{Sort: sort}
	if !p.Privileged() {
		q.VisibleOnlyTo = p.ID
	}
	return s.repo.List(ctx, q)
}

// Calendar returns one week of visible schedules grouped per weekday. The
// week opens on Monday; nav moves the window one week back or forward.
func (s *Service) Calendar(ctx context.Context, p *authz.Principal, weekStart time.Time, nav string) (WeekData, error) {
	if p == nil {
		return WeekData{}, shared.ErrForbidden
	}
	start := StartOfWeek(weekStart)
	switch nav {
	case "back":
		start = start.AddDate(0, 0, -7)
	case "forward":
		start = start.AddDate(0, 0, 7)
	}
	end := start.AddDate(0, 0, 6)

	q := ListQuery{From: start, To: end, Sort: SortDateAsc}
	if !p.Privileged() {
		q.VisibleOnlyTo = p.ID
	}
	schedules, err := s.repo.List(ctx, q)
	if err != nil {
		return WeekData{}, err
	}

	week := WeekData{StartOfWeek: start, EndOfWeek: end}
	for _, sched := range schedules {
		switch sched.Date.Weekday() {
		case time.Monday:
			week.Monday = append(week.Monday, sched)
		case time.Tuesday:
			week.Tuesday = append(week.Tuesday, sched)
		case time.Wednesday:
			week.Wednesday = append(week.Wednesday, sched)
		case time.Thursday:
			week.Thursday = append(week.Thursday, sched)
		case time.Friday:
			week.Friday = append(week.Friday, sched)
		case time.Saturday:
			week.Saturday = append(week.Saturday, sched)
		case time.Sunday:
			week.Sunday = append(week.Sunday, sched)
		}
	}
	return week, nil
}

func resourceID(res *authz.Resource) int64 {
	if res == nil {
		return 0
	}
	return res.ID
}
