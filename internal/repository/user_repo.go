package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/resv_go_server/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert 首次交互建档，之后每次交互刷新 last_seen_at。
// 传入的 username 为空时保留库里已有的，不覆盖。
func (r *UserRepository) Upsert(id int64, username *string, now time.Time) error {
	user := &model.User{
		ID:           id,
		Username:     username,
		FirstSeenAt:  now,
		LastSeenAt:   now,
		IsSubscribed: true,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_seen_at": now,
			"username":     gorm.Expr("COALESCE(excluded.username, users.username)"),
		}),
	}).Create(user).Error
}

func (r *UserRepository) GetByID(id int64) (*model.User, error) {
	var user model.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetSubscription 切换订阅状态并记录切换时间
func (r *UserRepository) SetSubscription(id int64, subscribed bool, now time.Time) error {
	updates := map[string]interface{}{"is_subscribed": subscribed}
	if subscribed {
		updates["subscribed_at"] = now
	} else {
		updates["unsubscribed_at"] = now
	}
	return r.db.Model(&model.User{}).Where("id = ?", id).Updates(updates).Error
}

// ListSubscribedIDs 群发收件人集合
func (r *UserRepository) ListSubscribedIDs() ([]int64, error) {
	var ids []int64
	err := r.db.Model(&model.User{}).Where("is_subscribed = ?", true).
		Order("id").Pluck("id", &ids).Error
	return ids, err
}

func (r *UserRepository) CountAll() (int64, error) {
	var count int64
	err := r.db.Model(&model.User{}).Count(&count).Error
	return count, err
}

func (r *UserRepository) CountSubscribed() (int64, error) {
	var count int64
	err := r.db.Model(&model.User{}).Where("is_subscribed = ?", true).Count(&count).Error
	return count, err
}

func (r *UserRepository) CountActiveSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.User{}).Where("last_seen_at >= ?", since).Count(&count).Error
	return count, err
}

// LastSeenAt 全站最近一次用户活跃时间
func (r *UserRepository) LastSeenAt() (*time.Time, error) {
	var user model.User
	err := r.db.Order("last_seen_at DESC").First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user.LastSeenAt, nil
}
