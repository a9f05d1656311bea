package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/resv_go_server/config"
	"github.com/qs3c/resv_go_server/internal/model"
	"github.com/qs3c/resv_go_server/internal/pkg/pubsub"
	"github.com/qs3c/resv_go_server/internal/pkg/schedule"
	"github.com/qs3c/resv_go_server/internal/repository"
)

var (
	ErrVerificationRequired = errors.New("需先完成银行卡验证")
	ErrSlotTaken            = errors.New("该时段已被预约")
	ErrSlotTakenBySelf      = errors.New("你已预约了该时段")
	ErrQuotaFull            = errors.New("当日预约配额已满")
)

// SlotInfo 单个时段的占用情况
type SlotInfo struct {
	Time  time.Time `json:"time"`
	Taken bool      `json:"taken"`
}

// DayAvailability 某日的时段表和配额状况
type DayAvailability struct {
	Date          time.Time  `json:"date"`
	Slots         []SlotInfo `json:"slots"`
	ReservedCount int64      `json:"reserved_count"`
	DailyLimit    int        `json:"daily_limit"`
	QuotaFull     bool       `json:"quota_full"`
}

type BookingService struct {
	resRepo   *repository.ReservationRepository
	verifRepo *repository.VerificationRepository
	sched     *schedule.Schedule
	cfg       *config.Config
	publisher *pubsub.Publisher
}

func NewBookingService(
	resRepo *repository.ReservationRepository,
	verifRepo *repository.VerificationRepository,
	sched *schedule.Schedule,
	cfg *config.Config,
	publisher *pubsub.Publisher,
) *BookingService {
	return &BookingService{
		resRepo:   resRepo,
		verifRepo: verifRepo,
		sched:     sched,
		cfg:       cfg,
		publisher: publisher,
	}
}

// Availability 给定日期的时段表：逐时段查占用，并统计日配额
func (s *BookingService) Availability(date time.Time) (*DayAvailability, error) {
	day := &DayAvailability{
		Date:       date,
		DailyLimit: s.cfg.Slots.DailyLimit,
	}

	for _, at := range s.sched.SlotTimes(date) {
		taken, err := s.resRepo.IsSlotReserved(at)
		if err != nil {
			return nil, err
		}
		day.Slots = append(day.Slots, SlotInfo{Time: at, Taken: taken})
	}

	start, end := s.sched.DayBounds(date)
	count, err := s.resRepo.CountActiveBetween(start, end)
	if err != nil {
		return nil, err
	}
	day.ReservedCount = count
	day.QuotaFull = count >= int64(s.cfg.Slots.DailyLimit)

	return day, nil
}

// Hold 占用时段。顺序：验证资格 → 占用预检 → 日配额 → 原子插入。
// 预检只为给出友好提示，排他最终由唯一索引保证。
func (s *BookingService) Hold(userID int64, at time.Time) (int64, error) {
	if _, err := s.verifRepo.VerifiedCard(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrVerificationRequired
		}
		return 0, err
	}

	owner, err := s.resRepo.SlotOwner(at)
	if err == nil {
		if owner == userID {
			return 0, ErrSlotTakenBySelf
		}
		return 0, ErrSlotTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	start, end := s.sched.DayBounds(at)
	count, err := s.resRepo.CountActiveBetween(start, end)
	if err != nil {
		return 0, err
	}
	if count >= int64(s.cfg.Slots.DailyLimit) {
		return 0, ErrQuotaFull
	}

	id, err := s.resRepo.HoldSlot(userID, at)
	if err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return 0, ErrSlotTaken
		}
		return 0, err
	}

	if s.publisher != nil {
		_ = s.publisher.Publish(context.Background(), &pubsub.Event{
			Type:          pubsub.EventSlotHeld,
			UserID:        userID,
			ReservationID: id,
		})
	}

	return id, nil
}

// Book 支付通过后确认预约
func (s *BookingService) Book(reservationID int64) error {
	return s.resRepo.Transition(reservationID,
		model.ReservationPendingPayment, model.ReservationBooked)
}

// Cancel 取消待支付预约，释放时段
func (s *BookingService) Cancel(reservationID int64) error {
	return s.resRepo.Transition(reservationID,
		model.ReservationPendingPayment, model.ReservationCancelled)
}

func (s *BookingService) Get(reservationID int64) (*model.Reservation, error) {
	return s.resRepo.GetByID(reservationID)
}

func (s *BookingService) ListBooked(userID int64, limit int) ([]model.Reservation, error) {
	return s.resRepo.ListBookedByUser(userID, limit)
}

// SetPromo 审批通过后采集的宣传素材
func (s *BookingService) SetPromo(reservationID int64, username, groupLink, photoRef *string) error {
	return s.resRepo.UpdatePromo(reservationID, username, groupLink, photoRef)
}

func (s *BookingService) SetDestinationLinks(reservationID int64, links *string) error {
	return s.resRepo.UpdateDestinationLinks(reservationID, links)
}

func (s *BookingService) Schedule() *schedule.Schedule {
	return s.sched
}
