package model

import (
	"time"
)

// 预约状态。booked / cancelled 为终态
const (
	ReservationPendingPayment = "pending_payment"
	ReservationBooked         = "booked"
	ReservationCancelled      = "cancelled"
)

type Reservation struct {
	ID               int64      `gorm:"primaryKey" json:"id"`
	UserID           int64      `gorm:"index;not null" json:"user_id"`
	ReservedAt       time.Time  `gorm:"index;not null" json:"reserved_at"`
	CreatedAt        time.Time  `json:"created_at"`
	Status           string     `gorm:"size:20;not null;default:pending_payment;index" json:"status"`
	GroupLink        *string    `gorm:"size:500" json:"group_link,omitempty"`
	PromoPhotoRef    *string    `gorm:"size:200" json:"promo_photo_ref,omitempty"`
	ReminderSentAt   *time.Time `json:"reminder_sent_at,omitempty"`
	Username         *string    `gorm:"size:100" json:"username,omitempty"`
	DestinationLinks *string    `gorm:"type:text" json:"destination_links,omitempty"`
}

func (Reservation) TableName() string {
	return "reservations"
}

// Active 活跃预约占用其时段
func (r *Reservation) Active() bool {
	return r.Status == ReservationPendingPayment || r.Status == ReservationBooked
}
