package hotel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/dumeirei/hotel-reservation-backend/internal/common/errors"
	"github.com/dumeirei/hotel-reservation-backend/internal/models"
)

func TestAvailabilityChecker_IsAvailable(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	info := f.book(t, f.room101.ID, "2026-02-10", "2026-02-12")

	tests := []struct {
		name    string
		in, out string
		exclude *int64
		want    bool
	}{
		{"完全重叠", "2026-02-10", "2026-02-12", nil, false},
		{"前半重叠", "2026-02-09", "2026-02-11", nil, false},
		{"后半重叠", "2026-02-11", "2026-02-15", nil, false},
		{"退房日入住", "2026-02-12", "2026-02-13", nil, true},
		{"入住日退房", "2026-02-08", "2026-02-10", nil, true},
		{"排除自身", "2026-02-10", "2026-02-12", &info.ID, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := f.availability.IsAvailable(ctx, f.room101.ID, date(t, tt.in), date(t, tt.out), tt.exclude)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestAvailabilityChecker_IgnoresTerminalReservations(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	info := f.book(t, f.room101.ID, "2026-02-10", "2026-02-12")
	require.NoError(t, f.reservations.CancelReservation(ctx, info.ID, 1))

	conflicts, err := f.availability.Conflicts(ctx, f.room101.ID, date(t, "2026-02-10"), date(t, "2026-02-12"), nil)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestAvailabilityChecker_InvalidRange(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	_, err := f.availability.IsAvailable(ctx, f.room101.ID, date(t, "2026-02-12"), date(t, "2026-02-12"), nil)
	assert.ErrorIs(t, err, appErrors.ErrInvalidDateRange)

	_, err = f.availability.ListAvailableRooms(ctx, date(t, "2026-02-12"), date(t, "2026-02-10"), nil)
	assert.ErrorIs(t, err, appErrors.ErrInvalidDateRange)
}

func TestAvailabilityChecker_ListAvailableRooms(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	f.book(t, f.room102.ID, "2026-02-10", "2026-02-12")
	require.NoError(t, f.db.Model(&models.Room{}).Where("id = ?", f.room301.ID).Update("status", models.RoomStatusMaintenance).Error)

	rooms, err := f.availability.ListAvailableRooms(ctx, date(t, "2026-02-11"), date(t, "2026-02-12"), nil)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "101", rooms[0].RoomNumber)
	require.NotNil(t, rooms[0].Category)
	assert.Equal(t, "Standard", rooms[0].Category.Name)

	rooms, err = f.availability.ListAvailableRooms(ctx, date(t, "2026-02-12"), date(t, "2026-02-14"), &f.standard.ID)
	require.NoError(t, err)
	assert.Len(t, rooms, 2)

	rooms, err = f.availability.ListAvailableRooms(ctx, date(t, "2026-02-12"), date(t, "2026-02-14"), &f.deluxe.ID)
	require.NoError(t, err)
	assert.Empty(t, rooms)
}
