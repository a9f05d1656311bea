package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/resv_go_server/internal/model"
)

type DiscountRepository struct {
	db *gorm.DB
}

func NewDiscountRepository(db *gorm.DB) *DiscountRepository {
	return &DiscountRepository{db: db}
}

func (r *DiscountRepository) Create(code *model.DiscountCode) error {
	if err := r.db.Create(code).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrCodeExists
		}
		return err
	}
	return nil
}

func (r *DiscountRepository) GetByCode(code string) (*model.DiscountCode, error) {
	var dc model.DiscountCode
	err := r.db.Where("code = ?", code).First(&dc).Error
	if err != nil {
		return nil, err
	}
	return &dc, nil
}

// Consume 原子条件自增：仅当仍启用、未过期、未用完时 +1。
// 单条 UPDATE 扛并发，used_count 永远到不了 max_uses 之上；
// 条件不满足返回 false，无任何副作用。
func (r *DiscountRepository) Consume(code string, now time.Time) (bool, error) {
	res := r.db.Model(&model.DiscountCode{}).
		Where("code = ? AND is_active = ? AND used_count < max_uses AND expires_at > ?",
			code, true, now).
		Update("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *DiscountRepository) Deactivate(code string) error {
	return r.db.Model(&model.DiscountCode{}).Where("code = ?", code).
		Update("is_active", false).Error
}

func (r *DiscountRepository) List() ([]model.DiscountCode, error) {
	var out []model.DiscountCode
	err := r.db.Order("created_at DESC").Find(&out).Error
	return out, err
}
