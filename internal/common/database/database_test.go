// Package database 数据库模块单元测试
package database

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/config"
)

// ==================== getLogLevel 测试 ====================

func TestGetLogLevel(t *testing.T) {
	assert.Equal(t, logger.Info, getLogLevel(true))
	assert.Equal(t, logger.Warn, getLogLevel(false))
}

// ==================== Init / Migrate 测试 ====================

func TestInit_SQLiteFile(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "nested", "hotel.db"),
	}

	db, err := Init(cfg, zap.NewNop())
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, Migrate(context.Background(), db))

	for _, table := range []string{"room_categories", "rooms", "seasonal_rate_rules", "guests", "reservations", "payments", "staff_users", "audit_logs"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.NoError(t, Ping(context.Background(), db))
}

func TestInit_UnsupportedDriver(t *testing.T) {
	_, err := Init(&config.DatabaseConfig{Driver: "oracle"}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}

func TestInstallPostgresConstraints(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectExec("CREATE EXTENSION IF NOT EXISTS btree_gist").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`reservations_no_overlap[\s\S]*EXCLUDE USING gist \(room_id WITH =, daterange\(check_in_date, check_out_date, '\[\)'\) WITH &&\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`seasonal_rate_rules_no_overlap[\s\S]*daterange\(start_date, end_date, '\[\]'\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, installPostgresConstraints(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInstallPostgresConstraints_ExtensionFails(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectExec("CREATE EXTENSION").WillReturnError(stderrors.New("permission denied"))

	err = installPostgresConstraints(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

// ==================== 错误识别测试 ====================

func TestIsExclusionViolation(t *testing.T) {
	assert.True(t, IsExclusionViolation(&pgconn.PgError{Code: "23P01"}))
	assert.True(t, IsExclusionViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23P01"})))
	assert.False(t, IsExclusionViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsExclusionViolation(stderrors.New("boom")))
	assert.False(t, IsExclusionViolation(nil))
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, IsDuplicateKey(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKey(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsDuplicateKey(stderrors.New("UNIQUE constraint failed: rooms.room_number")))
	assert.False(t, IsDuplicateKey(&pgconn.PgError{Code: "23P01"}))
	assert.False(t, IsDuplicateKey(nil))
}

func TestIsDuplicateKey_SQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	type Item struct {
		ID   int64
		Code string `gorm:"uniqueIndex"`
	}
	require.NoError(t, db.AutoMigrate(&Item{}))
	require.NoError(t, db.Create(&Item{Code: "A"}).Error)

	err = db.Create(&Item{Code: "A"}).Error
	assert.True(t, IsDuplicateKey(err))
}

// ==================== Paginate 测试 ====================

func TestPaginate(t *testing.T) {
	testDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	type TestModel struct {
		ID   int64
		Name string
	}
	require.NoError(t, testDB.AutoMigrate(&TestModel{}))
	for i := 1; i <= 50; i++ {
		testDB.Create(&TestModel{ID: int64(i), Name: "Item"})
	}

	tests := []struct {
		name         string
		page         int
		pageSize     int
		expectedLen  int
		expectedFrom int64
	}{
		{"first page", 1, 10, 10, 1},
		{"second page", 2, 10, 10, 11},
		{"page beyond data", 6, 10, 0, 0},
		{"zero page defaults to 1", 0, 10, 10, 1},
		{"zero pageSize defaults to 10", 1, 0, 10, 1},
		{"pageSize over 100 capped", 1, 200, 50, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var results []TestModel
			testDB.Scopes(Paginate(tt.page, tt.pageSize)).Order("id").Find(&results)

			assert.Len(t, results, tt.expectedLen)
			if tt.expectedLen > 0 {
				assert.Equal(t, tt.expectedFrom, results[0].ID)
			}
		})
	}
}

func TestOrderByCreatedDesc(t *testing.T) {
	testDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	type Record struct {
		ID        int64
		CreatedAt time.Time
	}
	require.NoError(t, testDB.AutoMigrate(&Record{}))

	now := time.Now()
	testDB.Create(&Record{ID: 1, CreatedAt: now.Add(-2 * time.Hour)})
	testDB.Create(&Record{ID: 2, CreatedAt: now})

	var results []Record
	testDB.Scopes(OrderByCreatedDesc).Find(&results)
	require.Len(t, results, 2)
	assert.Equal(t, int64(2), results[0].ID)
}

// ==================== ZapLogger 测试 ====================

func TestZapLogger_Trace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapLogger(zap.New(core), logger.Info, 100*time.Millisecond)

	sqlFn := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(context.Background(), time.Now(), sqlFn, nil)
	l.Trace(context.Background(), time.Now().Add(-time.Second), sqlFn, nil)
	l.Trace(context.Background(), time.Now(), sqlFn, stderrors.New("syntax error"))
	l.Trace(context.Background(), time.Now(), sqlFn, gorm.ErrRecordNotFound)

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "sql", entries[0].Message)
	assert.Equal(t, "slow sql", entries[1].Message)
	assert.Equal(t, "sql error", entries[2].Message)
	// 记录不存在不视为错误
	assert.Equal(t, "sql", entries[3].Message)
}

func TestZapLogger_Silent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapLogger(zap.New(core), logger.Info, 0).LogMode(logger.Silent)

	l.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, stderrors.New("x"))
	l.Error(context.Background(), "boom %d", 1)
	assert.Zero(t, logs.Len())
}
