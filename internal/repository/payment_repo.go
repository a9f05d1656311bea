package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/resv_go_server/internal/model"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(pay *model.PaymentRequest) error {
	return r.db.Create(pay).Error
}

func (r *PaymentRepository) GetByID(id int64) (*model.PaymentRequest, error) {
	var pay model.PaymentRequest
	err := r.db.Where("id = ?", id).First(&pay).Error
	if err != nil {
		return nil, err
	}
	return &pay, nil
}

// Decide 一次性裁决：只在 pending 状态下落库，
// 第二次裁决命中零行，返回 ErrAlreadyReviewed。
func (r *PaymentRepository) Decide(id int64, status string, reviewerID int64, reason *string) error {
	updates := map[string]interface{}{
		"status":      status,
		"reviewed_at": time.Now(),
		"reviewer_id": reviewerID,
	}
	if reason != nil {
		updates["reject_reason"] = *reason
	}
	res := r.db.Model(&model.PaymentRequest{}).
		Where("id = ? AND status = ?", id, model.ReviewPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyReviewed
	}
	return nil
}

func (r *PaymentRepository) ListPending() ([]model.PaymentRequest, error) {
	var out []model.PaymentRequest
	err := r.db.Where("status = ?", model.ReviewPending).Order("created_at").Find(&out).Error
	return out, err
}

func (r *PaymentRepository) CountByStatus(status string) (int64, error) {
	var count int64
	err := r.db.Model(&model.PaymentRequest{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
