package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TaskSessionPurge triggers removal of expired session records.
	TaskSessionPurge = "session:purge"
)

// SessionPurgePayload carries scheduling metadata.
type SessionPurgePayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewSessionPurgeTask constructs an Asynq task for session cleanup.
func NewSessionPurgeTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(SessionPurgePayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionPurge, body, asynq.Queue(QueueDefault)), nil
}

// SessionPurger deletes session records that expired before the cutoff.
type SessionPurger interface {
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

// SessionPurgeJob removes stale session rows left behind after Redis TTLs fire.
type SessionPurgeJob struct {
	Sessions SessionPurger
	Logger   *slog.Logger
	clock    func() time.Time
}

// NewSessionPurgeJob wires dependencies for the purge handler.
func NewSessionPurgeJob(sessions SessionPurger, logger *slog.Logger) *SessionPurgeJob {
	return &SessionPurgeJob{
		Sessions: sessions,
		Logger:   logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes session purge tasks.
func (j *SessionPurgeJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Sessions == nil {
		return errors.New("session purge: handler not configured")
	}
	var payload SessionPurgePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	removed, err := j.Sessions.DeleteExpiredSessions(ctx, j.now())
	if err != nil {
		j.logger().Error("purge expired sessions", slog.Any("error", err))
		return err
	}
	j.logger().Info("purged expired sessions", slog.Int64("removed", removed))
	return nil
}

func (j *SessionPurgeJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSessionPurge))
	}
	return slog.Default().With(slog.String("job", TaskSessionPurge))
}

func (j *SessionPurgeJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
