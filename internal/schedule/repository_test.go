package schedule

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestMapConstraintErr(t *testing.T) {
	fkErr := &pgconn.PgError{Code: "23503", ConstraintName: "fk_schedules_owner"}
	require.ErrorIs(t, mapConstraintErr(fkErr), ErrUnknownOwner)

	// Wrapped driver errors must still map.
	wrapped := fmt.Errorf("insert schedule: %w", fkErr)
	require.ErrorIs(t, mapConstraintErr(wrapped), ErrUnknownOwner)

	otherConstraint := &pgconn.PgError{Code: "23505", ConstraintName: "schedules_pkey"}
	require.NotErrorIs(t, mapConstraintErr(otherConstraint), ErrUnknownOwner)

	plain := errors.New("connection reset")
	require.Equal(t, plain, mapConstraintErr(plain))
}

func TestOrderClause(t *testing.T) {
	require.Contains(t, orderClause(SortOwnerAsc), "u.name ASC")
	require.Contains(t, orderClause(SortOwnerDesc), "u.name DESC")
	require.Contains(t, orderClause(SortDateDesc), "s.date DESC")
	require.Contains(t, orderClause(SortDateAsc), "s.date ASC")
}
