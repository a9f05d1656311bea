package model

import (
	"time"
)

type User struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	Username       *string    `gorm:"size:100" json:"username,omitempty"`
	FirstSeenAt    time.Time  `gorm:"not null" json:"first_seen_at"`
	LastSeenAt     time.Time  `gorm:"not null;index" json:"last_seen_at"`
	IsSubscribed   bool       `gorm:"default:true" json:"is_subscribed"`
	SubscribedAt   *time.Time `json:"subscribed_at,omitempty"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at,omitempty"`
}

func (User) TableName() string {
	return "users"
}
