package schedule

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shifthub/shifthub/internal/shared"
)

// ErrUnknownOwner indicates the owner id does not reference an existing user.
var ErrUnknownOwner = errors.New("schedule: owner does not exist")

// ListQuery narrows and orders a schedule listing. A zero From/To leaves the
// window unbounded. VisibleOnlyTo applies the non-privileged visibility
// predicate: approved schedules plus the given owner's own.
type ListQuery struct {
	From          time.Time
	To            time.Time
	VisibleOnlyTo string
	Sort          ListSort
}

// Repository defines persistence operations for schedules.
type Repository interface {
	Create(ctx context.Context, s Schedule) (Schedule, error)
	GetByID(ctx context.Context, id int64) (Schedule, error)
	Update(ctx context.Context, s Schedule) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, q ListQuery) ([]Schedule, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const scheduleColumns = `s.id, s.owner_id, u.name, s.date, s.day, s.start_minute, s.end_minute, s.status, s.created_at, s.updated_at`

// Create inserts a schedule and returns it with the generated id.
func (r *PGRepository) Create(ctx context.Context, s Schedule) (Schedule, error) {
	now := time.Now().UTC()
	err := r.pool.QueryRow(ctx, `INSERT INTO schedules (owner_id, date, day, start_minute, end_minute, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7) RETURNING id`,
		s.OwnerID, s.Date, s.Day, int(s.StartTime), int(s.EndTime), string(s.Status), now).Scan(&s.ID)
	if err != nil {
		return Schedule{}, mapConstraintErr(err)
	}
	s.CreatedAt = now
	s.UpdatedAt = now
	return s, nil
}

// GetByID fetches one schedule with its owner name.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (Schedule, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+scheduleColumns+`
FROM schedules s JOIN users u ON u.id = s.owner_id WHERE s.id = $1`, id)
	s, err := scanSchedule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Schedule{}, shared.ErrNotFound
		}
		return Schedule{}, err
	}
	return s, nil
}

// Update replaces the mutable fields of a schedule.
func (r *PGRepository) Update(ctx context.Context, s Schedule) error {
	tag, err := r.pool.Exec(ctx, `UPDATE schedules
SET owner_id = $2, date = $3, day = $4, start_minute = $5, end_minute = $6, status = $7, updated_at = $8
WHERE id = $1`,
		s.ID, s.OwnerID, s.Date, s.Day, int(s.StartTime), int(s.EndTime), string(s.Status), time.Now().UTC())
	if err != nil {
		return mapConstraintErr(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a schedule permanently.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// List returns schedules matching the query, owner names included.
func (r *PGRepository) List(ctx context.Context, q ListQuery) ([]Schedule, error) {
	sql := `SELECT ` + scheduleColumns + ` FROM schedules s JOIN users u ON u.id = s.owner_id WHERE 1=1`
	args := make([]any, 0, 3)
	if !q.From.IsZero() {
		args = append(args, q.From)
		sql += ` AND s.date >= $` + strconv.Itoa(len(args))
	}
	if !q.To.IsZero() {
		args = append(args, q.To)
		sql += ` AND s.date <= $` + strconv.Itoa(len(args))
	}
	if q.VisibleOnlyTo != "" {
		args = append(args, q.VisibleOnlyTo)
		sql += ` AND (s.status = 'Approved' OR s.owner_id = $` + strconv.Itoa(len(args)) + `)`
	}
	sql += orderClause(q.Sort)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return schedules, nil
}

func orderClause(sort ListSort) string {
	switch sort {
	case SortOwnerAsc:
		return ` ORDER BY u.name ASC, s.date ASC, s.start_minute ASC`
	case SortOwnerDesc:
		return ` ORDER BY u.name DESC, s.date ASC, s.start_minute ASC`
	case SortDateDesc:
		return ` ORDER BY s.date DESC, u.name ASC, s.start_minute ASC`
	default:
		return ` ORDER BY s.date ASC, u.name ASC, s.start_minute ASC`
	}
}

func scanSchedule(row pgx.Row) (Schedule, error) {
	var (
		s          Schedule
		start, end int
		status     string
	)
	if err := row.Scan(&s.ID, &s.OwnerID, &s.OwnerName, &s.Date, &s.Day, &start, &end, &status, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return Schedule{}, err
	}
	s.StartTime = TimeOfDay(start)
	s.EndTime = TimeOfDay(end)
	s.Status = Status(status)
	return s, nil
}

func mapConstraintErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName == "fk_schedules_owner" {
		return ErrUnknownOwner
	}
	return err
}

var _ Repository = (*PGRepository)(nil)
