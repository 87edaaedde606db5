// Package hotel 提供酒店预订核心：价格表、计价、可用性检查与预订生命周期
package hotel

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/database"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/errors"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/utils"
	"github.com/dumeirei/hotel-reservation-backend/internal/models"
	"github.com/dumeirei/hotel-reservation-backend/internal/repository"
)

// RateTable 房型基础价与季节性价格规则
type RateTable struct {
	db           *gorm.DB
	categoryRepo *repository.CategoryRepository
	ruleRepo     *repository.RateRuleRepository
	effects      *SideEffects
}

// NewRateTable 创建价格表
func NewRateTable(db *gorm.DB, categoryRepo *repository.CategoryRepository, ruleRepo *repository.RateRuleRepository, effects *SideEffects) *RateTable {
	return &RateTable{
		db:           db,
		categoryRepo: categoryRepo,
		ruleRepo:     ruleRepo,
		effects:      effects,
	}
}

// AddRuleRequest 新增价格规则请求，multiplier 与 fixed_price 二选一
type AddRuleRequest struct {
	CategoryID int64
	Label      string
	StartDate  time.Time
	EndDate    time.Time
	Multiplier *float64
	FixedPrice *float64
}

// BaseRate 获取房型基础价
func (t *RateTable) BaseRate(ctx context.Context, categoryID int64) (float64, error) {
	category, err := t.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return 0, errors.ErrCategoryNotFound
		}
		return 0, errors.ErrDatabaseError.WithError(err)
	}
	return category.BasePrice, nil
}

// RateForNight 获取某房型某一晚的价格
func (t *RateTable) RateForNight(ctx context.Context, categoryID int64, date time.Time) (float64, error) {
	base, err := t.BaseRate(ctx, categoryID)
	if err != nil {
		return 0, err
	}
	rule, err := t.ruleRepo.FindLatestCovering(ctx, categoryID, utils.NormalizeDate(date))
	if err != nil {
		return 0, errors.ErrDatabaseError.WithError(err)
	}
	price, _ := applyRule(base, rule)
	return price, nil
}

// applyRule 按规则计算单晚价格：固定价优先于倍率，无规则时为基础价
func applyRule(base float64, rule *models.SeasonalRateRule) (float64, string) {
	if rule == nil {
		return base, ""
	}
	if rule.FixedPrice != nil {
		return *rule.FixedPrice, rule.Label
	}
	if rule.Multiplier != nil {
		return base * *rule.Multiplier, rule.Label
	}
	return base, ""
}

// latestCovering 在按 id 降序排列的规则中找到第一条覆盖 date 的规则
func latestCovering(rules []*models.SeasonalRateRule, date time.Time) *models.SeasonalRateRule {
	for _, rule := range rules {
		if rule.Covers(date) {
			return rule
		}
	}
	return nil
}

func validateRule(req *AddRuleRequest) error {
	req.Label = strings.TrimSpace(req.Label)
	if req.CategoryID <= 0 {
		return errors.ErrRateRuleInvalid.WithMessage("缺少房型")
	}
	if req.Label == "" {
		return errors.ErrRateRuleInvalid.WithMessage("规则名称不能为空")
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return errors.ErrRateRuleInvalid.WithMessage("缺少规则日期")
	}
	req.StartDate = utils.NormalizeDate(req.StartDate)
	req.EndDate = utils.NormalizeDate(req.EndDate)
	if !req.EndDate.After(req.StartDate) {
		return errors.ErrRateRuleInvalid.WithMessage("结束日期必须晚于开始日期")
	}
	switch {
	case req.Multiplier == nil && req.FixedPrice == nil:
		return errors.ErrRateRuleInvalid.WithMessage("倍率与固定价必须填写其一")
	case req.Multiplier != nil && req.FixedPrice != nil:
		return errors.ErrRateRuleInvalid.WithMessage("倍率与固定价只能填写其一")
	case req.Multiplier != nil && *req.Multiplier <= 0:
		return errors.ErrRateRuleInvalid.WithMessage("倍率必须大于 0")
	case req.FixedPrice != nil && *req.FixedPrice <= 0:
		return errors.ErrRateRuleInvalid.WithMessage("固定价必须大于 0")
	}
	return nil
}

// AddRule 新增季节性价格规则，同一房型的有效规则日期不得重叠
func (t *RateTable) AddRule(ctx context.Context, req *AddRuleRequest, actingUserID int64) (*models.SeasonalRateRule, error) {
	if err := validateRule(req); err != nil {
		return nil, err
	}

	rule := &models.SeasonalRateRule{
		CategoryID: req.CategoryID,
		Label:      req.Label,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Multiplier: req.Multiplier,
		FixedPrice: req.FixedPrice,
		IsActive:   true,
		CreatedBy:  actingUserID,
	}

	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 锁住房型行，串行化同一房型的规则写入
		if _, err := t.categoryRepo.WithTx(tx).GetByIDForUpdate(ctx, req.CategoryID); err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrCategoryNotFound
			}
			return err
		}

		overlapping, err := t.ruleRepo.WithTx(tx).ListActiveInRange(ctx, req.CategoryID, req.StartDate, req.EndDate)
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			o := overlapping[0]
			return errors.ErrRateRuleConflict.WithMessagef("与规则「%s」(%s ~ %s) 日期重叠",
				o.Label, utils.FormatDate(o.StartDate), utils.FormatDate(o.EndDate))
		}

		return t.ruleRepo.WithTx(tx).Create(ctx, rule)
	})
	if err != nil {
		if errors.IsAppError(err) {
			return nil, err
		}
		if database.IsExclusionViolation(err) {
			return nil, errors.ErrRateRuleConflict
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	t.effects.Record(ctx, AuditEntry{
		UserID:        actingUserID,
		OperationType: models.AuditRuleAdd,
		EntityTable:   rule.TableName(),
		EntityID:      rule.ID,
		Description:   fmt.Sprintf("新增价格规则 %s (%s ~ %s)", rule.Label, utils.FormatDate(rule.StartDate), utils.FormatDate(rule.EndDate)),
	})

	return rule, nil
}

// DeactivateRule 停用价格规则，已有预订的总价不重新计算
func (t *RateTable) DeactivateRule(ctx context.Context, ruleID int64, actingUserID int64) error {
	rule, err := t.ruleRepo.GetByID(ctx, ruleID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.ErrRateRuleNotFound
		}
		return errors.ErrDatabaseError.WithError(err)
	}

	rows, err := t.ruleRepo.Deactivate(ctx, ruleID)
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	if rows == 0 {
		return errors.ErrRateRuleNotFound.WithMessage("价格规则不存在或已停用")
	}

	t.effects.Record(ctx, AuditEntry{
		UserID:        actingUserID,
		OperationType: models.AuditRuleDeactivate,
		EntityTable:   rule.TableName(),
		EntityID:      rule.ID,
		Before:        rule,
		Description:   fmt.Sprintf("停用价格规则 %s", rule.Label),
	})
	return nil
}

// ListRules 获取价格规则列表
func (t *RateTable) ListRules(ctx context.Context, categoryID *int64, activeOnly bool) ([]*models.SeasonalRateRule, error) {
	rules, err := t.ruleRepo.List(ctx, categoryID, activeOnly)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return rules, nil
}
