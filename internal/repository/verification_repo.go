package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/resv_go_server/internal/model"
)

type VerificationRepository struct {
	db *gorm.DB
}

func NewVerificationRepository(db *gorm.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

func (r *VerificationRepository) Create(req *model.VerificationRequest) error {
	return r.db.Create(req).Error
}

func (r *VerificationRepository) GetByID(id int64) (*model.VerificationRequest, error) {
	var req model.VerificationRequest
	err := r.db.Where("id = ?", id).First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Decide 一次性裁决，语义同 PaymentRepository.Decide。
// 驳回不删记录，历史申请留作审计。
func (r *VerificationRepository) Decide(id int64, status string, reviewerID int64, reason *string) error {
	updates := map[string]interface{}{
		"status":      status,
		"reviewed_at": time.Now(),
		"reviewer_id": reviewerID,
	}
	if reason != nil {
		updates["decision_reason"] = *reason
	}
	res := r.db.Model(&model.VerificationRequest{}).
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

func (r *VerificationRepository) ListPending() ([]model.VerificationRequest, error) {
	var out []model.VerificationRequest
	err := r.db.Where("status = ?", model.ReviewPending).Order("created_at").Find(&out).Error
	return out, err
}

func (r *VerificationRepository) CountByStatus(status string) (int64, error) {
	var count int64
	err := r.db.Model(&model.VerificationRequest{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

// UpsertCard 每用户一张已验证卡，后来的审批覆盖前面的
func (r *VerificationRepository) UpsertCard(card *model.VerifiedCard) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(card).Error
}

// VerifiedCard 购买资格查询，未验证返回 gorm.ErrRecordNotFound
func (r *VerificationRepository) VerifiedCard(userID int64) (*model.VerifiedCard, error) {
	var card model.VerifiedCard
	err := r.db.Where("user_id = ?", userID).First(&card).Error
	if err != nil {
		return nil, err
	}
	return &card, nil
}
