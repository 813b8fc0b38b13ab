package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shifthub/shifthub/internal/schedule"
)

func reminderShift(owner string, start, end schedule.TimeOfDay, status schedule.Status) schedule.Schedule {
	return schedule.Schedule{
		OwnerID:   owner,
		Date:      time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC),
		Day:       "Tuesday",
		StartTime: start,
		EndTime:   end,
		Status:    status,
	}
}

func TestBuildReminderDigestsGroupsByOwner(t *testing.T) {
	shifts := []schedule.Schedule{
		reminderShift("u2", 17*60, 23*60, schedule.StatusApproved),
		reminderShift("u1", 9*60, 17*60, schedule.StatusApproved),
		reminderShift("u1", 18*60, 20*60, schedule.StatusApproved),
	}
	emails := map[string]string{
		"u1": "sally.server@mail.com",
		"u2": "billy.barback@mail.com",
	}

	digests := BuildReminderDigests(shifts, emails)
	require.Len(t, digests, 2)

	require.Equal(t, "u1", digests[0].OwnerID)
	require.Equal(t, "sally.server@mail.com", digests[0].Email)
	require.Equal(t, "Shift reminder for 2025-01-07", digests[0].Subject)
	require.Equal(t, "Your shifts for Tuesday, 2025-01-07:\n  09:00 to 17:00\n  18:00 to 20:00\n", digests[0].Body)

	require.Equal(t, "u2", digests[1].OwnerID)
	require.Contains(t, digests[1].Body, "17:00 to 23:00")
}

func TestBuildReminderDigestsSkipsUnapprovedAndUnknown(t *testing.T) {
	shifts := []schedule.Schedule{
		reminderShift("u1", 9*60, 17*60, schedule.StatusSubmitted),
		reminderShift("u2", 9*60, 17*60, schedule.StatusRejected),
		reminderShift("ghost", 9*60, 17*60, schedule.StatusApproved),
	}
	emails := map[string]string{"u1": "a@mail.com", "u2": "b@mail.com"}

	require.Empty(t, BuildReminderDigests(shifts, emails))
}
