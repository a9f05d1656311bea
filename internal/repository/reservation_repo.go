package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/resv_go_server/internal/model"
)

type ReservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

var activeStatuses = []string{model.ReservationPendingPayment, model.ReservationBooked}

// HoldSlot 以 pending_payment 占下时段。
// 排他靠 reservations 上按活跃状态过滤的唯一索引，
// 两个并发占用只有一个 INSERT 成功，绝不做先查后插。
func (r *ReservationRepository) HoldSlot(userID int64, at time.Time) (int64, error) {
	res := &model.Reservation{
		UserID:     userID,
		ReservedAt: at,
		Status:     model.ReservationPendingPayment,
	}
	if err := r.db.Create(res).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, ErrSlotTaken
		}
		return 0, err
	}
	return res.ID, nil
}

// IsSlotReserved 时段是否有活跃预约
func (r *ReservationRepository) IsSlotReserved(at time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&model.Reservation{}).
		Where("reserved_at = ? AND status IN ?", at, activeStatuses).
		Count(&count).Error
	return count > 0, err
}

// SlotOwner 时段活跃预约的持有人
func (r *ReservationRepository) SlotOwner(at time.Time) (int64, error) {
	var res model.Reservation
	err := r.db.Where("reserved_at = ? AND status IN ?", at, activeStatuses).
		First(&res).Error
	if err != nil {
		return 0, err
	}
	return res.UserID, nil
}

func (r *ReservationRepository) GetByID(id int64) (*model.Reservation, error) {
	var res model.Reservation
	err := r.db.Where("id = ?", id).First(&res).Error
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Transition 条件状态迁移，起始状态不符时不落库
func (r *ReservationRepository) Transition(id int64, from, to string) error {
	res := r.db.Model(&model.Reservation{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// UpdatePromo 写入宣传素材，nil 字段不动
func (r *ReservationRepository) UpdatePromo(id int64, username, groupLink, photoRef *string) error {
	updates := map[string]interface{}{}
	if username != nil {
		updates["username"] = *username
	}
	if groupLink != nil {
		updates["group_link"] = *groupLink
	}
	if photoRef != nil {
		updates["promo_photo_ref"] = *photoRef
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&model.Reservation{}).Where("id = ?", id).Updates(updates).Error
}

func (r *ReservationRepository) UpdateDestinationLinks(id int64, links *string) error {
	return r.db.Model(&model.Reservation{}).Where("id = ?", id).
		Update("destination_links", links).Error
}

// CountActiveBetween 日配额用：统计 [start, end) 内的活跃预约数
func (r *ReservationRepository) CountActiveBetween(start, end time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.Reservation{}).
		Where("reserved_at >= ? AND reserved_at < ? AND status IN ?", start, end, activeStatuses).
		Count(&count).Error
	return count, err
}

func (r *ReservationRepository) ListBookedByUser(userID int64, limit int) ([]model.Reservation, error) {
	var out []model.Reservation
	err := r.db.Where("user_id = ? AND status = ?", userID, model.ReservationBooked).
		Order("reserved_at DESC").Limit(limit).Find(&out).Error
	return out, err
}

// ListDueForReminder 窗口内未提醒的已订预约
func (r *ReservationRepository) ListDueForReminder(start, end time.Time) ([]model.Reservation, error) {
	var out []model.Reservation
	err := r.db.Where(
		"status = ? AND reminder_sent_at IS NULL AND reserved_at >= ? AND reserved_at <= ?",
		model.ReservationBooked, start, end,
	).Order("reserved_at").Find(&out).Error
	return out, err
}

// MarkReminded 条件写入提醒时间，已提醒过则返回 false。
// 调度器重复轮询靠这里保持幂等。
func (r *ReservationRepository) MarkReminded(id int64, when time.Time) (bool, error) {
	res := r.db.Model(&model.Reservation{}).
		Where("id = ? AND reminder_sent_at IS NULL", id).
		Update("reminder_sent_at", when)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListStalePending 超龄的 pending_payment 占用，清扫工具用
func (r *ReservationRepository) ListStalePending(before time.Time) ([]model.Reservation, error) {
	var out []model.Reservation
	err := r.db.Where("status = ? AND created_at < ?", model.ReservationPendingPayment, before).
		Order("created_at").Find(&out).Error
	return out, err
}
