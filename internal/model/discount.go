package model

import (
	"time"
)

// DiscountCode 折扣码。code 存小写，used_count 只通过条件自增变更
type DiscountCode struct {
	Code      string    `gorm:"primaryKey;size:64" json:"code"`
	Percent   int       `gorm:"not null" json:"percent"`
	MaxUses   int       `gorm:"not null" json:"max_uses"`
	UsedCount int       `gorm:"not null;default:0" json:"used_count"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy int64     `gorm:"not null" json:"created_by"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
}

func (DiscountCode) TableName() string {
	return "discount_codes"
}
