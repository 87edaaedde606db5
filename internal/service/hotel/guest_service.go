package hotel

import (
	"context"
	stderrors "errors"
	"strings"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/database"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/errors"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/utils"
	"github.com/dumeirei/hotel-reservation-backend/internal/models"
	"github.com/dumeirei/hotel-reservation-backend/internal/repository"
)

// GuestService 客人档案服务
type GuestService struct {
	guestRepo *repository.GuestRepository
}

// NewGuestService 创建客人档案服务
func NewGuestService(guestRepo *repository.GuestRepository) *GuestService {
	return &GuestService{guestRepo: guestRepo}
}

func normalizeGuestInfo(info GuestInfo) (GuestInfo, error) {
	info.Name = strings.TrimSpace(info.Name)
	info.Phone = strings.TrimSpace(info.Phone)
	info.Email = strings.TrimSpace(info.Email)
	info.IDNumber = strings.TrimSpace(info.IDNumber)
	info.Address = strings.TrimSpace(info.Address)

	if info.Name == "" || info.Phone == "" {
		return info, errors.ErrGuestInfoInvalid.WithMessage("客人姓名和手机号不能为空")
	}
	if !utils.ValidatePhone(info.Phone) {
		return info, errors.ErrGuestInfoInvalid.WithMessage("手机号格式错误")
	}
	if info.Email != "" && !utils.ValidateEmail(info.Email) {
		return info, errors.ErrGuestInfoInvalid.WithMessage("邮箱格式错误")
	}
	if info.IDNumber != "" && !utils.ValidateIDNumber(info.IDNumber) {
		return info, errors.ErrGuestInfoInvalid.WithMessage("证件号格式错误")
	}
	return info, nil
}

// GetOrCreate 按手机号查找客人，存在则更新资料，不存在则创建
func (s *GuestService) GetOrCreate(ctx context.Context, info GuestInfo) (int64, error) {
	info, err := normalizeGuestInfo(info)
	if err != nil {
		return 0, err
	}

	existing, err := s.guestRepo.GetByPhone(ctx, info.Phone)
	if err == nil {
		return existing.ID, s.refresh(ctx, existing, info)
	}
	if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return 0, errors.ErrDatabaseError.WithError(err)
	}

	guest := &models.Guest{
		Name:     info.Name,
		Phone:    info.Phone,
		Email:    utils.NilIfEmpty(info.Email),
		IDNumber: utils.NilIfEmpty(info.IDNumber),
		Address:  utils.NilIfEmpty(info.Address),
	}
	if err := s.guestRepo.Create(ctx, guest); err != nil {
		if !database.IsDuplicateKey(err) {
			return 0, errors.ErrDatabaseError.WithError(err)
		}
		// 并发创建同一手机号，取先写入的那条
		existing, err = s.guestRepo.GetByPhone(ctx, info.Phone)
		if err != nil {
			return 0, errors.ErrDatabaseError.WithError(err)
		}
		return existing.ID, s.refresh(ctx, existing, info)
	}
	return guest.ID, nil
}

// refresh 用新提交的非空资料覆盖已有档案
func (s *GuestService) refresh(ctx context.Context, guest *models.Guest, info GuestInfo) error {
	fields := map[string]interface{}{}
	if info.Name != guest.Name {
		fields["name"] = info.Name
	}
	if info.Email != "" && info.Email != utils.SafeString(guest.Email) {
		fields["email"] = info.Email
	}
	if info.IDNumber != "" && info.IDNumber != utils.SafeString(guest.IDNumber) {
		fields["id_number"] = info.IDNumber
	}
	if info.Address != "" && info.Address != utils.SafeString(guest.Address) {
		fields["address"] = info.Address
	}
	if len(fields) == 0 {
		return nil
	}
	if err := s.guestRepo.UpdateFields(ctx, guest.ID, fields); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}

// GetByPhone 根据手机号获取客人
func (s *GuestService) GetByPhone(ctx context.Context, phone string) (*models.Guest, error) {
	guest, err := s.guestRepo.GetByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrGuestNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return guest, nil
}
