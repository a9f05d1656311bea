package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/resv_go_server/internal/model"
)

// AdminStats 运营总览计数
type AdminStats struct {
	TotalUsers            int64            `json:"total_users"`
	SubscribedUsers       int64            `json:"subscribed_users"`
	ActiveUsers24h        int64            `json:"active_users_24h"`
	ActiveUsers7d         int64            `json:"active_users_7d"`
	LastUserSeenAt        *time.Time       `json:"last_user_seen_at,omitempty"`
	ReservationsByStatus  map[string]int64 `json:"reservations_by_status"`
	PaymentsByStatus      map[string]int64 `json:"payments_by_status"`
	VerificationsByStatus map[string]int64 `json:"verifications_by_status"`
}

type StatsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// AdminStats 聚合各表计数
func (r *StatsRepository) AdminStats(now time.Time) (*AdminStats, error) {
	stats := &AdminStats{
		ReservationsByStatus:  make(map[string]int64),
		PaymentsByStatus:      make(map[string]int64),
		VerificationsByStatus: make(map[string]int64),
	}

	if err := r.db.Model(&model.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&model.User{}).Where("is_subscribed = ?", true).
		Count(&stats.SubscribedUsers).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&model.User{}).Where("last_seen_at >= ?", now.Add(-24*time.Hour)).
		Count(&stats.ActiveUsers24h).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&model.User{}).Where("last_seen_at >= ?", now.Add(-7*24*time.Hour)).
		Count(&stats.ActiveUsers7d).Error; err != nil {
		return nil, err
	}

	var lastSeen model.User
	err := r.db.Order("last_seen_at DESC").First(&lastSeen).Error
	if err == nil {
		stats.LastUserSeenAt = &lastSeen.LastSeenAt
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	if err := r.countByStatus(&model.Reservation{}, stats.ReservationsByStatus); err != nil {
		return nil, err
	}
	if err := r.countByStatus(&model.PaymentRequest{}, stats.PaymentsByStatus); err != nil {
		return nil, err
	}
	if err := r.countByStatus(&model.VerificationRequest{}, stats.VerificationsByStatus); err != nil {
		return nil, err
	}

	return stats, nil
}

type statusCount struct {
	Status string
	Count  int64
}

func (r *StatsRepository) countByStatus(m interface{}, out map[string]int64) error {
	var rows []statusCount
	err := r.db.Model(m).Select("status, COUNT(*) as count").Group("status").Scan(&rows).Error
	if err != nil {
		return err
	}
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return nil
}
