package service

import (
	"context"
	"log"
	"time"

	"github.com/qs3c/resv_go_server/internal/model"
	"github.com/qs3c/resv_go_server/internal/pkg/pubsub"
	"github.com/qs3c/resv_go_server/internal/repository"
)

type PaymentService struct {
	payRepo   *repository.PaymentRepository
	booking   *BookingService
	verif     *VerificationService
	discounts *DiscountService
	publisher *pubsub.Publisher
}

func NewPaymentService(
	payRepo *repository.PaymentRepository,
	booking *BookingService,
	verif *VerificationService,
	discounts *DiscountService,
	publisher *pubsub.Publisher,
) *PaymentService {
	return &PaymentService{
		payRepo:   payRepo,
		booking:   booking,
		verif:     verif,
		discounts: discounts,
		publisher: publisher,
	}
}

// Submit 提交支付回执。要求已有验证卡，卡号随申请留档。
func (s *PaymentService) Submit(reservationID, userID int64, username *string, couponCode *string, couponPercent *int, receiptRef string) (*model.PaymentRequest, error) {
	card, ok, err := s.verif.CardNumber(userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrVerificationRequired
	}

	pay := &model.PaymentRequest{
		ReservationID:   reservationID,
		UserID:          userID,
		Username:        username,
		CardNumber:      card,
		CouponCode:      couponCode,
		CouponPercent:   couponPercent,
		ReceiptPhotoRef: receiptRef,
		Status:          model.ReviewPending,
	}
	if err := s.payRepo.Create(pay); err != nil {
		return nil, err
	}

	s.publish(&pubsub.Event{
		Type:          pubsub.EventPaymentSubmitted,
		UserID:        userID,
		ReservationID: reservationID,
		PaymentID:     pay.ID,
		Status:        model.ReviewPending,
	})

	return pay, nil
}

// Approve 通过支付：裁决 → 确认预约 → 核销折扣码。
// 折扣码此刻可能已被别人用完或过期，核销失败只记日志，预约照常生效。
func (s *PaymentService) Approve(paymentID, reviewerID int64) (*model.PaymentRequest, error) {
	pay, err := s.payRepo.GetByID(paymentID)
	if err != nil {
		return nil, err
	}

	if err := s.payRepo.Decide(paymentID, model.ReviewApproved, reviewerID, nil); err != nil {
		return nil, err
	}

	if err := s.booking.Book(pay.ReservationID); err != nil {
		log.Printf("Payment %d approved but reservation %d not booked: %v",
			paymentID, pay.ReservationID, err)
	}

	if pay.CouponCode != nil {
		ok, err := s.discounts.Consume(*pay.CouponCode, time.Now())
		if err != nil {
			log.Printf("Payment %d: consume coupon %s failed: %v", paymentID, *pay.CouponCode, err)
		} else if !ok {
			log.Printf("Payment %d: coupon %s no longer usable, booking stands", paymentID, *pay.CouponCode)
		}
	}

	s.publish(&pubsub.Event{
		Type:          pubsub.EventPaymentApproved,
		UserID:        pay.UserID,
		ReservationID: pay.ReservationID,
		PaymentID:     paymentID,
		Status:        model.ReviewApproved,
	})

	return s.payRepo.GetByID(paymentID)
}

// Reject 驳回支付并取消预约，时段随之释放
func (s *PaymentService) Reject(paymentID, reviewerID int64, reason string) (*model.PaymentRequest, error) {
	pay, err := s.payRepo.GetByID(paymentID)
	if err != nil {
		return nil, err
	}

	if err := s.payRepo.Decide(paymentID, model.ReviewRejected, reviewerID, &reason); err != nil {
		return nil, err
	}

	if err := s.booking.Cancel(pay.ReservationID); err != nil {
		log.Printf("Payment %d rejected but reservation %d not cancelled: %v",
			paymentID, pay.ReservationID, err)
	}

	s.publish(&pubsub.Event{
		Type:          pubsub.EventPaymentRejected,
		UserID:        pay.UserID,
		ReservationID: pay.ReservationID,
		PaymentID:     paymentID,
		Status:        model.ReviewRejected,
		Message:       reason,
	})

	return s.payRepo.GetByID(paymentID)
}

func (s *PaymentService) Get(paymentID int64) (*model.PaymentRequest, error) {
	return s.payRepo.GetByID(paymentID)
}

func (s *PaymentService) ListPending() ([]model.PaymentRequest, error) {
	return s.payRepo.ListPending()
}

func (s *PaymentService) publish(event *pubsub.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.Background(), event); err != nil {
		log.Printf("Failed to publish %s event: %v", event.Type, err)
	}
}
