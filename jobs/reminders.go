package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/shifthub/shifthub/internal/schedule"
	"github.com/shifthub/shifthub/internal/users"
)

const (
	// TaskShiftReminder sends each worker a digest of tomorrow's approved shifts.
	TaskShiftReminder = "schedule:shift-reminder"
)

// ShiftReminderPayload carries scheduling metadata.
type ShiftReminderPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewShiftReminderTask constructs an Asynq task for the reminder run.
func NewShiftReminderTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ShiftReminderPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskShiftReminder, body, asynq.Queue(QueueDefault)), nil
}

// ScheduleSource lists schedules in a date window.
type ScheduleSource interface {
	List(ctx context.Context, q schedule.ListQuery) ([]schedule.Schedule, error)
}

// DirectorySource resolves owner emails.
type DirectorySource interface {
	ListActiveUsers(ctx context.Context) ([]users.User, error)
}

// EmailEnqueuer submits send-email tasks. Satisfied by *Client.
type EmailEnqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error)
}

// ReminderDigest is one worker's email for the upcoming day.
type ReminderDigest struct {
	OwnerID string
	Email   string
	Subject string
	Body    string
}

// ShiftReminderJob emails every worker with approved shifts on the next day.
type ShiftReminderJob struct {
	Schedules ScheduleSource
	Directory DirectorySource
	Mailer    EmailEnqueuer
	Logger    *slog.Logger
	clock     func() time.Time
}

// NewShiftReminderJob wires dependencies for the reminder handler.
func NewShiftReminderJob(schedules ScheduleSource, directory DirectorySource, mailer EmailEnqueuer, logger *slog.Logger) *ShiftReminderJob {
	return &ShiftReminderJob{
		Schedules: schedules,
		Directory: directory,
		Mailer:    mailer,
		Logger:    logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes shift reminder tasks.
func (j *ShiftReminderJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Schedules == nil || j.Directory == nil || j.Mailer == nil {
		return errors.New("shift reminder: handler not configured")
	}
	var payload ShiftReminderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	now := j.now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	shifts, err := j.Schedules.List(ctx, schedule.ListQuery{From: day, To: day})
	if err != nil {
		j.logger().Error("load next-day shifts", slog.Any("error", err))
		return err
	}

	directory, err := j.Directory.ListActiveUsers(ctx)
	if err != nil {
		j.logger().Error("load user directory", slog.Any("error", err))
		return err
	}
	emails := make(map[string]string, len(directory))
	for _, u := range directory {
		emails[u.ID] = u.Email
	}

	digests := BuildReminderDigests(shifts, emails)
	if len(digests) == 0 {
		j.logger().Info("no approved shifts tomorrow", slog.Time("day", day))
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, digest := range digests {
		g.Go(func() error {
			_, err := j.Mailer.EnqueueSendEmail(gctx, SendEmailPayload{
				To:      digest.Email,
				Subject: digest.Subject,
				Body:    digest.Body,
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		j.logger().Error("enqueue reminder emails", slog.Any("error", err))
		return err
	}
	j.logger().Info("sent shift reminders", slog.Int("workers", len(digests)), slog.Time("day", day))
	return nil
}

// BuildReminderDigests groups approved shifts by owner into one email each.
// Shifts without a known email and shifts that are not approved are skipped.
// Output is ordered by owner id and shift lines by start time.
func BuildReminderDigests(shifts []schedule.Schedule, emails map[string]string) []ReminderDigest {
	byOwner := make(map[string][]schedule.Schedule)
	for _, s := range shifts {
		if s.Status != schedule.StatusApproved {
			continue
		}
		if _, ok := emails[s.OwnerID]; !ok {
			continue
		}
		byOwner[s.OwnerID] = append(byOwner[s.OwnerID], s)
	}

	owners := make([]string, 0, len(byOwner))
	for owner := range byOwner {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	digests := make([]ReminderDigest, 0, len(owners))
	for _, owner := range owners {
		own := byOwner[owner]
		sort.Slice(own, func(i, k int) bool { return own[i].StartTime < own[k].StartTime })

		var b strings.Builder
		day := own[0].Date
		fmt.Fprintf(&b, "Your shifts for %s, %s:\n", day.Weekday(), day.Format("2006-01-02"))
		for _, s := range own {
			fmt.Fprintf(&b, "  %s to %s\n", s.StartTime, s.EndTime)
		}
		digests = append(digests, ReminderDigest{
			OwnerID: owner,
			Email:   emails[owner],
			Subject: "Shift reminder for " + day.Format("2006-01-02"),
			Body:    b.String(),
		})
	}
	return digests
}

func (j *ShiftReminderJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskShiftReminder))
	}
	return slog.Default().With(slog.String("job", TaskShiftReminder))
}

func (j *ShiftReminderJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
