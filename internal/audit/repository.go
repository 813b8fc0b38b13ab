package audit

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for the decision trail.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertDecision appends one decision to the trail.
func (r *Repository) InsertDecision(ctx context.Context, d Decision) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO authz_decisions (principal_id, operation, resource_id, granted, decided_at)
VALUES ($1, $2, NULLIF($3, 0), $4, $5)`,
		d.PrincipalID, d.Operation, d.ResourceID, d.Granted, d.DecidedAt.UTC())
	return err
}

// ListRecentDecisions returns the newest decisions first.
func (r *Repository) ListRecentDecisions(ctx context.Context, limit int) ([]Decision, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, principal_id, operation, COALESCE(resource_id, 0), granted, decided_at
FROM authz_decisions ORDER BY decided_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []Decision
	for rows.Next() {
		var d Decision
		if err := rows.Scan(&d.ID, &d.PrincipalID, &d.Operation, &d.ResourceID, &d.Granted, &d.DecidedAt); err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return decisions, nil
}

// PurgeBefore drops trail entries older than the cutoff.
func (r *Repository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM authz_decisions WHERE decided_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
