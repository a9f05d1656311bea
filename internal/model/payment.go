package model

import (
	"time"
)

// 审核状态，payment 与 verification 共用
const (
	ReviewPending  = "pending"
	ReviewApproved = "approved"
	ReviewRejected = "rejected"
)

type PaymentRequest struct {
	ID              int64      `gorm:"primaryKey" json:"id"`
	ReservationID   int64      `gorm:"index;not null" json:"reservation_id"`
	UserID          int64      `gorm:"index;not null" json:"user_id"`
	Username        *string    `gorm:"size:100" json:"username,omitempty"`
	CardNumber      string     `gorm:"size:32;not null" json:"card_number"`
	CouponCode      *string    `gorm:"size:64" json:"coupon_code,omitempty"`
	CouponPercent   *int       `json:"coupon_percent,omitempty"`
	ReceiptPhotoRef string     `gorm:"size:200;not null" json:"receipt_photo_ref"`
	Status          string     `gorm:"size:20;not null;default:pending;index" json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	ReviewerID      *int64     `json:"reviewer_id,omitempty"`
	RejectReason    *string    `gorm:"type:text" json:"reject_reason,omitempty"`
}

func (PaymentRequest) TableName() string {
	return "payment_requests"
}
