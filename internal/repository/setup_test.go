package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/hotel-reservation-backend/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	require.NoError(t, err)
	return d
}

func seedCategory(t *testing.T, db *gorm.DB, name string, price float64, maxOccupancy int) *models.RoomCategory {
	t.Helper()
	c := &models.RoomCategory{Name: name, BasePrice: price, MaxOccupancy: maxOccupancy, IsActive: true}
	require.NoError(t, db.Create(c).Error)
	return c
}

func seedRoom(t *testing.T, db *gorm.DB, number string, categoryID int64, status models.HousekeepingStatus) *models.Room {
	t.Helper()
	r := &models.Room{RoomNumber: number, CategoryID: categoryID, Floor: 1, Status: status, IsActive: true}
	require.NoError(t, db.Create(r).Error)
	return r
}

func seedGuest(t *testing.T, db *gorm.DB, name, phone string) *models.Guest {
	t.Helper()
	g := &models.Guest{Name: name, Phone: phone}
	require.NoError(t, db.Create(g).Error)
	return g
}

func seedReservation(t *testing.T, db *gorm.DB, roomID, guestID int64, in, out string, status models.ReservationStatus) *models.Reservation {
	t.Helper()
	r := &models.Reservation{
		RoomID:       roomID,
		GuestID:      guestID,
		CheckInDate:  mustDate(t, in),
		CheckOutDate: mustDate(t, out),
		Occupants:    1,
		TotalPrice:   100,
		Status:       status,
		CreatedBy:    1,
	}
	require.NoError(t, db.Create(r).Error)
	return r
}
