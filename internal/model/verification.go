package model

import (
	"time"
)

type VerificationRequest struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	UserID         int64      `gorm:"index;not null" json:"user_id"`
	Username       *string    `gorm:"size:100" json:"username,omitempty"`
	CardNumber     string     `gorm:"size:32;not null" json:"card_number"`
	PhotoRef       string     `gorm:"size:200;not null" json:"photo_ref"`
	Status         string     `gorm:"size:20;not null;default:pending;index" json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	ReviewerID     *int64     `json:"reviewer_id,omitempty"`
	DecisionReason *string    `gorm:"size:50" json:"decision_reason,omitempty"`
}

func (VerificationRequest) TableName() string {
	return "verification_requests"
}

// VerifiedCard 每个用户唯一的已验证银行卡，后续审批覆盖更新。
// 购买资格以这张表为准，不看历史申请记录。
type VerifiedCard struct {
	UserID     int64     `gorm:"primaryKey" json:"user_id"`
	Username   *string   `gorm:"size:100" json:"username,omitempty"`
	CardNumber string    `gorm:"size:32;not null" json:"card_number"`
	VerifiedAt time.Time `gorm:"not null" json:"verified_at"`
	VerifierID *int64    `json:"verifier_id,omitempty"`
}

func (VerifiedCard) TableName() string {
	return "verified_cards"
}
