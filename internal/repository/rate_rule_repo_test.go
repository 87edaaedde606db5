// Package repository 价格规则仓储单元测试
package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/utils"
	"github.com/dumeirei/hotel-reservation-backend/internal/models"
)

func seedRule(t *testing.T, db *gorm.DB, categoryID int64, label, start, end string, multiplier, fixed *float64) *models.SeasonalRateRule {
	t.Helper()
	rule := &models.SeasonalRateRule{
		CategoryID: categoryID,
		Label:      label,
		StartDate:  mustDate(t, start),
		EndDate:    mustDate(t, end),
		Multiplier: multiplier,
		FixedPrice: fixed,
		IsActive:   true,
	}
	require.NoError(t, db.Create(rule).Error)
	return rule
}

func TestRateRuleRepository_FindLatestCovering(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRateRuleRepository(db)
	ctx := context.Background()

	std := seedCategory(t, db, "Standard", 200, 2)
	dlx := seedCategory(t, db, "Deluxe", 350, 3)

	seedRule(t, db, std.ID, "夏季", "2026-07-01", "2026-08-31", utils.Float64Ptr(1.5), nil)
	latest := seedRule(t, db, std.ID, "暑期周末", "2026-07-10", "2026-07-12", nil, utils.Float64Ptr(500))
	seedRule(t, db, dlx.ID, "豪华夏季", "2026-07-01", "2026-08-31", utils.Float64Ptr(2), nil)

	tests := []struct {
		name      string
		date      string
		wantLabel string
	}{
		{"起始日包含", "2026-07-01", "夏季"},
		{"结束日包含", "2026-08-31", "夏季"},
		{"重叠时取最新", "2026-07-11", latest.Label},
		{"范围外", "2026-09-01", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := repo.FindLatestCovering(ctx, std.ID, mustDate(t, tt.date))
			require.NoError(t, err)
			if tt.wantLabel == "" {
				assert.Nil(t, rule)
				return
			}
			require.NotNil(t, rule)
			assert.Equal(t, tt.wantLabel, rule.Label)
		})
	}
}

func TestRateRuleRepository_InactiveIgnored(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRateRuleRepository(db)
	ctx := context.Background()

	cat := seedCategory(t, db, "Standard", 200, 2)
	rule := seedRule(t, db, cat.ID, "春节", "2026-02-10", "2026-02-20", utils.Float64Ptr(2), nil)

	rows, err := repo.Deactivate(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	// 重复停用不再生效
	rows, err = repo.Deactivate(ctx, rule.ID)
	require.NoError(t, err)
	assert.Zero(t, rows)

	got, err := repo.FindLatestCovering(ctx, cat.ID, mustDate(t, "2026-02-15"))
	require.NoError(t, err)
	assert.Nil(t, got)

	rules, err := repo.ListActiveInRange(ctx, cat.ID, mustDate(t, "2026-02-01"), mustDate(t, "2026-02-28"))
	require.NoError(t, err)
	assert.Empty(t, rules)

	all, err := repo.List(ctx, &cat.ID, false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].IsActive)
	require.NotNil(t, all[0].Category)

	active, err := repo.List(ctx, nil, true)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestRateRuleRepository_ListActiveInRange(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRateRuleRepository(db)

	cat := seedCategory(t, db, "Standard", 200, 2)
	first := seedRule(t, db, cat.ID, "A", "2026-03-01", "2026-03-05", utils.Float64Ptr(1.2), nil)
	second := seedRule(t, db, cat.ID, "B", "2026-03-05", "2026-03-10", nil, utils.Float64Ptr(300))
	seedRule(t, db, cat.ID, "C", "2026-04-01", "2026-04-05", utils.Float64Ptr(1.1), nil)

	rules, err := repo.ListActiveInRange(context.Background(), cat.ID, mustDate(t, "2026-03-04"), mustDate(t, "2026-03-06"))
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, second.ID, rules[0].ID)
	assert.Equal(t, first.ID, rules[1].ID)
}
