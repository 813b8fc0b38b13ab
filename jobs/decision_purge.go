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
	// TaskDecisionPurge trims old entries from the authorization decision trail.
	TaskDecisionPurge = "audit:decision-purge"

	// decisionRetention is how long decision trail entries are kept.
	decisionRetention = 90 * 24 * time.Hour
)

// DecisionPurgePayload carries scheduling metadata.
type DecisionPurgePayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewDecisionPurgeTask constructs an Asynq task for trail cleanup.
func NewDecisionPurgeTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(DecisionPurgePayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDecisionPurge, body, asynq.Queue(QueueDefault)), nil
}

// DecisionPurger drops trail entries older than the cutoff.
type DecisionPurger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// DecisionPurgeJob enforces the retention window on the decision trail.
type DecisionPurgeJob struct {
	Trail  DecisionPurger
	Logger *slog.Logger
	clock  func() time.Time
}

// NewDecisionPurgeJob wires dependencies for the purge handler.
func NewDecisionPurgeJob(trail DecisionPurger, logger *slog.Logger) *DecisionPurgeJob {
	return &DecisionPurgeJob{
		Trail:  trail,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes decision purge tasks.
func (j *DecisionPurgeJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Trail == nil {
		return errors.New("decision purge: handler not configured")
	}
	var payload DecisionPurgePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	cutoff := j.now().Add(-decisionRetention)
	removed, err := j.Trail.PurgeBefore(ctx, cutoff)
	if err != nil {
		j.logger().Error("purge decision trail", slog.Any("error", err))
		return err
	}
	j.logger().Info("purged decision trail", slog.Int64("removed", removed), slog.Time("cutoff", cutoff))
	return nil
}

func (j *DecisionPurgeJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDecisionPurge))
	}
	return slog.Default().With(slog.String("job", TaskDecisionPurge))
}

func (j *DecisionPurgeJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
