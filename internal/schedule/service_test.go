package schedule

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shifthub/shifthub/internal/authz"
	"github.com/shifthub/shifthub/internal/shared"
)

type memoryRepo struct {
	schedules map[int64]Schedule
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{schedules: make(map[int64]Schedule)}
}

func (r *memoryRepo) Create(ctx context.Context, s Schedule) (Schedule, error) {
	r.nextID++
	s.ID = r.nextID
	r.schedules[s.ID] = s
	return s, nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id int64) (Schedule, error) {
	s, ok := r.schedules[id]
	if !ok {
		return Schedule{}, shared.ErrNotFound
	}
	return s, nil
}

func (r *memoryRepo) Update(ctx context.Context, s Schedule) error {
	if _, ok := r.schedules[s.ID]; !ok {
		return shared.ErrNotFound
	}
	r.schedules[s.ID] = s
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.schedules[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.schedules, id)
	return nil
}

func (r *memoryRepo) List(ctx context.Context, q ListQuery) ([]Schedule, error) {
	var out []Schedule
	for _, s := range r.schedules {
		if !q.From.IsZero() && s.Date.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && s.Date.After(q.To) {
			continue
		}
		if q.VisibleOnlyTo != "" && s.Status != StatusApproved && s.OwnerID != q.VisibleOnlyTo {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			if q.Sort == SortDateDesc {
				return out[i].Date.After(out[j].Date)
			}
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

type recordedDecision struct {
	PrincipalID string
	Operation   string
	ResourceID  int64
	Granted     bool
}

type memoryRecorder struct {
	decisions []recordedDecision
}

func (r *memoryRecorder) Record(ctx context.Context, principalID, operation string, resourceID int64, granted bool) {
	r.decisions = append(r.decisions, recordedDecision{principalID, operation, resourceID, granted})
}

func newTestService(t *testing.T) (*Service, *memoryRepo, *memoryRecorder) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newMemoryRepo()
	recorder := &memoryRecorder{}
	engine := authz.NewService(logger, authz.DefaultHandlers()...)
	return NewService(logger, repo, engine, recorder), repo, recorder
}

var (
	userU1   = &authz.Principal{ID: "u1"}
	userU2   = &authz.Principal{ID: "u2"}
	managerM = &authz.Principal{ID: "m1", Roles: []string{authz.RoleScheduleManagers}}
	adminA   = &authz.Principal{ID: "a1", Roles: []string{authz.RoleScheduleAdministrators}}
)

func mondayShift(owner string) CreateScheduleInput {
	return CreateScheduleInput{
		OwnerID:   owner,
		Date:      time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		StartTime: TimeOfDay(9 * 60),
		EndTime:   TimeOfDay(17 * 60),
		Status:    StatusSubmitted,
	}
}

func TestCreateOwnSchedule(t *testing.T) {
	svc, _, _ := newTestService(t)

	created, err := svc.Create(context.Background(), userU1, mondayShift("u1"))
	require.NoError(t, err)
	require.Equal(t, "u1", created.OwnerID)
	require.Equal(t, "Monday", created.Day)
	require.Equal(t, StatusSubmitted, created.Status)
	require.NotZero(t, created.ID)
}

func TestCreateDefaultsOwnerAndStatus(t *testing.T) {
	svc, _, _ := newTestService(t)

	input := mondayShift("")
	input.Status = ""
	created, err := svc.Create(context.Background(), userU1, input)
	require.NoError(t, err)
	require.Equal(t, "u1", created.OwnerID)
	require.Equal(t, StatusSubmitted, created.Status)
}

func TestCreateForAnotherOwnerRequiresAssignOwner(t *testing.T) {
	svc, _, recorder := newTestService(t)

	_, err := svc.Create(context.Background(), userU1, mondayShift("u2"))
	require.ErrorIs(t, err, shared.ErrForbidden)

	// The draft carries the prospective owner u2, so even the Create check
	// fails for u1; AssignOwner is never reached.
	last := recorder.decisions[len(recorder.decisions)-1]
	require.Equal(t, string(authz.OpCreate), last.Operation)
	require.False(t, last.Granted)

	// Administrators hold AssignOwner and may create on behalf of others.
	created, err := svc.Create(context.Background(), adminA, mondayShift("u2"))
	require.NoError(t, err)
	require.Equal(t, "u2", created.OwnerID)
}

func TestCreateWithElevatedStatusRequiresAssignStatus(t *testing.T) {
	svc, _, _ := newTestService(t)

	input := mondayShift("u1")
	input.Status = StatusApproved
	_, err := svc.Create(context.Background(), userU1, input)
	require.ErrorIs(t, err, shared.ErrForbidden)

	input = mondayShift("a1")
	input.Status = StatusApproved
	created, err := svc.Create(context.Background(), adminA, input)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, created.Status)
}

func TestCreateValidatesTimesBeforeAuthorization(t *testing.T) {
	svc, _, recorder := newTestService(t)

	input := mondayShift("u2")
	input.StartTime = TimeOfDay(17 * 60)
	input.EndTime = TimeOfDay(9 * 60)
	_, err := svc.Create(context.Background(), userU1, input)

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "end_time", validation.Field)
	// Validation failed before any aggregator call was made.
	require.Empty(t, recorder.decisions)
}

func TestCreateWithoutPrincipalDenied(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), nil, mondayShift("u1"))
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestUpdateOwnSchedule(t *testing.T) {
	svc, _, _ := newTestService(t)
	created, err := svc.Create(context.Background(), userU1, mondayShift("u1"))
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), userU1, created.ID, UpdateScheduleInput{
		OwnerID:   "u1",
		Date:      time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC),
		StartTime: TimeOfDay(10 * 60),
		EndTime:   TimeOfDay(18 * 60),
		Status:    StatusSubmitted,
	})
	require.NoError(t, err)
	require.Equal(t, "Tuesday", updated.Day)
	require.Equal(t, TimeOfDay(10*60), updated.StartTime)
}

func TestUpdateSomeoneElsesScheduleDenied(t *testing.T) {
	svc, _, _ := newTestService(t)
	created, err := svc.Create(context.Background(), userU2, mondayShift("u2"))
	require.NoError(t, err)

	input := UpdateScheduleInput{
		OwnerID:   "u1",
		Date:      created.Date,
		StartTime: created.StartTime,
		EndTime:   created.EndTime,
		Status:    StatusSubmitted,
	}
	_, err = svc.Update(context.Background(), userU1, created.ID, input)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestUpdateStatusTamperDenied(t *testing.T) {
	svc, _, _ := newTestService(t)
	created, err := svc.Create(context.Background(), userU1, mondayShift("u1"))
	require.NoError(t, err)

	// The owner may update, but self-approving via the status field needs
	// AssignStatus authority nobody but administrators holds.
	_, err = svc.Update(context.Background(), userU1, created.ID, UpdateScheduleInput{
		OwnerID:   "u1",
		Date:      created.Date,
		StartTime: created.StartTime,
		EndTime:   created.EndTime,
		Status:    StatusApproved,
	})
	require.ErrorIs(t, err, shared.ErrForbidden)

	still, err := svc.Get(context.Background(), userU1, created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, still.Status)
}

func TestUpdateOwnerTamperDenied(t *testing.T) {
	svc, _, _ := newTestService(t)
	created, err := svc.Create(context.Background(), userU1, mondayShift("u1"))
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), userU1, created.ID, UpdateScheduleInput{
		OwnerID:   "u2",
		Date:      created.Date,
		StartTime: created.StartTime,
		EndTime:   created.EndTime,
		Status:    StatusSubmitted,
	})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestUpdateWithoutOwnerKeepsCurrentOwner(t *testing.T) {
	svc, _, _ := newTestService(t)
	created, err := svc.Create(context.Background(), userU1, mondayShift("u1"))
	require.NoError(t, err)

	// Owners commonly omit the owner field when editing their own shift.
	updated, err := svc.Update(context.Background(), userU1, created.ID, UpdateScheduleInput{
		Date:      created.Date,
		StartTime: TimeOfDay(11 * 60),
		EndTime:   TimeOfDay(19 * 60),
		Status:    StatusSubmitted,
	})
	require.NoError(t, err)
	require.Equal(t, "u1", updated.OwnerID)
	require.Equal(t, TimeOfDay(11*60), updated.StartTime)

	// An administrator omitting the field does not capture ownership.
	updated, err = svc.Update(context.Background(), adminA, created.ID, UpdateScheduleInput{
		Date:      created.Date,
		StartTime: created.StartTime,
		EndTime:   TimeOfDay(20 * 60),
		Status:    StatusSubmitted,
	})
	require.NoError(t, err)
	require.Equal(t, "u1", updated.OwnerID)
}

func TestAdminReassignsOwnerAndStatus(t *testing.T) {
	svc, _, _ := newTestService(t)
	created, err := svc.Create(context.Background(), userU1, mondayShift("u1"))
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), adminA, created.ID, UpdateScheduleInput{
		OwnerID:   "u2",
		Date:      created.Date,
		StartTime: created.StartTime,
		EndTime:   created.EndTime,
		Status:    StatusApproved,
	})
	require.NoError(t, err)
	require.Equal(t, "u2", updated.OwnerID)
	require.Equal(t, StatusApproved, updated.Status)
}

func TestUpdateMissingScheduleNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Update(context.Background(), adminA, 99, UpdateScheduleInput{
		OwnerID:   "u1",
		Date:      time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		StartTime: TimeOfDay(9 * 60),
		EndTime:   TimeOfDay(17 * 60),
		Status:    StatusSubmitted,
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestManagerApprovesAnySchedule(t *testing.T) {
	svc, _, recorder := newTestService(t)
	created, err := svc.Create(context.Background(), userU1, mondayShift("u1"))
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), managerM, created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)

	// Privileged grants land in the audit trail.
	last := recorder.decisions[len(recorder.decisions)-1]
	require.Equal(t, string(authz.OpApprove), last.Operation)
	require.True(t, last.Granted)
}

func TestOwnerCannotApproveOwnSchedule(t *testing.T) {
	svc, _, _ := newTestService(t)
	created, err := svc.Create(context.Background(), userU1, mondayShift("u1"))
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), userU1, created.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestRejectFinalizesSchedule(t *testing.T) {
	svc, _, _ := newTestService(t)
	created, err := svc.Create(context.Background(), userU1, mondayShift("u1"))
	require.NoError(t, err)

	rejected, err := svc.Reject(context.Background(), managerM, created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, rejected.Status)

	// Approved and Rejected are terminal for approve/reject.
	_, err = svc.Approve(context.Background(), managerM, created.ID)
	require.ErrorIs(t, err, ErrFinalStatus)
}

func TestDeleteOwnSchedule(t *testing.T) {
	svc, repo, _ := newTestService(t)
	created, err := svc.Create(context.Background(), userU1, mondayShift("u1"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), userU1, created.ID))
	require.Empty(t, repo.schedules)
}

func TestDeleteSomeoneElsesScheduleDenied(t *testing.T) {
	svc, repo, _ := newTestService(t)
	created, err := svc.Create(context.Background(), userU2, mondayShift("u2"))
	require.NoError(t, err)

	err = svc.Delete(context.Background(), userU1, created.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)
	require.Len(t, repo.schedules, 1)

	// Administrators can delete anything.
	require.NoError(t, svc.Delete(context.Background(), adminA, created.ID))
}

func TestListVisibility(t *testing.T) {
	svc, _, _ := newTestService(t)

	mine, err := svc.Create(context.Background(), userU1, mondayShift("u1"))
	require.NoError(t, err)
	theirs, err := svc.Create(context.Background(), userU2, mondayShift("u2"))
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), managerM, theirs.ID)
	require.NoError(t, err)
	hidden, err := svc.Create(context.Background(), userU2, mondayShift("u2"))
	require.NoError(t, err)

	visible, err := svc.List(context.Background(), userU1, SortDateAsc)
	require.NoError(t, err)

	ids := make(map[int64]Status, len(visible))
	for _, s := range visible {
		ids[s.ID] = s.Status
		if s.OwnerID != "u1" {
			require.Equal(t, StatusApproved, s.Status)
		}
	}
	require.Contains(t, ids, mine.ID)
	require.Contains(t, ids, theirs.ID)
	require.NotContains(t, ids, hidden.ID)

	// Privileged principals see everything.
	all, err := svc.List(context.Background(), managerM, SortDateAsc)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestGetVisibility(t *testing.T) {
	svc, _, _ := newTestService(t)
	created, err := svc.Create(context.Background(), userU2, mondayShift("u2"))
	require.NoError(t, err)

	// A submitted schedule of another user is invisible, not forbidden.
	_, err = svc.Get(context.Background(), userU1, created.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.Approve(context.Background(), managerM, created.ID)
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), userU1, created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, got.Status)
}

func TestCalendarGroupsByWeekday(t *testing.T) {
	svc, _, _ := newTestService(t)

	monday := mondayShift("u1")
	_, err := svc.Create(context.Background(), userU1, monday)
	require.NoError(t, err)

	wednesday := mondayShift("u1")
	wednesday.Date = time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	_, err = svc.Create(context.Background(), userU1, wednesday)
	require.NoError(t, err)

	nextWeek := mondayShift("u1")
	nextWeek.Date = time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)
	_, err = svc.Create(context.Background(), userU1, nextWeek)
	require.NoError(t, err)

	week, err := svc.Calendar(context.Background(), userU1, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), "")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), week.StartOfWeek)
	require.Len(t, week.Monday, 1)
	require.Len(t, week.Wednesday, 1)
	require.Empty(t, week.Tuesday)

	forward, err := svc.Calendar(context.Background(), userU1, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), "forward")
	require.NoError(t, err)
	require.Len(t, forward.Monday, 1)
	require.Equal(t, time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC), forward.StartOfWeek)
}
