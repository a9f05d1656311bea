package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/resv_go_server/internal/model"
)

var fixtureSeq int64

func nextID() int64 {
	fixtureSeq++
	return 100000 + fixtureSeq
}

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	now := time.Now()
	username := fmt.Sprintf("user_%d", nextID())
	user := &model.User{
		ID:           nextID(),
		Username:     &username,
		FirstSeenAt:  now,
		LastSeenAt:   now,
		IsSubscribed: true,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithUsername 设置用户名
func WithUsername(username string) func(*model.User) {
	return func(u *model.User) {
		u.Username = &username
	}
}

// WithSubscribed 设置订阅状态
func WithSubscribed(subscribed bool) func(*model.User) {
	return func(u *model.User) {
		u.IsSubscribed = subscribed
	}
}

// WithLastSeen 设置最近活跃时间
func WithLastSeen(at time.Time) func(*model.User) {
	return func(u *model.User) {
		u.LastSeenAt = at
	}
}

// TestReservation 创建测试预约
func TestReservation(t *testing.T, db *gorm.DB, userID int64, reservedAt time.Time, opts ...func(*model.Reservation)) *model.Reservation {
	t.Helper()

	res := &model.Reservation{
		UserID:     userID,
		ReservedAt: reservedAt,
		Status:     model.ReservationPendingPayment,
	}

	for _, opt := range opts {
		opt(res)
	}

	if err := db.Create(res).Error; err != nil {
		t.Fatalf("Failed to create test reservation: %v", err)
	}

	return res
}

// WithStatus 设置预约状态
func WithStatus(status string) func(*model.Reservation) {
	return func(r *model.Reservation) {
		r.Status = status
	}
}

// WithPromo 设置宣传材料（群链接、横幅、目标群链接）
func WithPromo(groupLink, photoRef, destLinks string) func(*model.Reservation) {
	return func(r *model.Reservation) {
		if groupLink != "" {
			r.GroupLink = &groupLink
		}
		if photoRef != "" {
			r.PromoPhotoRef = &photoRef
		}
		if destLinks != "" {
			r.DestinationLinks = &destLinks
		}
	}
}

// WithReservationUsername 设置预约时的用户名快照
func WithReservationUsername(username string) func(*model.Reservation) {
	return func(r *model.Reservation) {
		r.Username = &username
	}
}

// WithReminderSent 标记已提醒
func WithReminderSent(at time.Time) func(*model.Reservation) {
	return func(r *model.Reservation) {
		r.ReminderSentAt = &at
	}
}

// TestPayment 创建测试支付申请
func TestPayment(t *testing.T, db *gorm.DB, reservationID, userID int64, opts ...func(*model.PaymentRequest)) *model.PaymentRequest {
	t.Helper()

	pay := &model.PaymentRequest{
		ReservationID:   reservationID,
		UserID:          userID,
		CardNumber:      "6037991234567890",
		ReceiptPhotoRef: fmt.Sprintf("receipt_%d", nextID()),
		Status:          model.ReviewPending,
	}

	for _, opt := range opts {
		opt(pay)
	}

	if err := db.Create(pay).Error; err != nil {
		t.Fatalf("Failed to create test payment: %v", err)
	}

	return pay
}

// WithCoupon 附加折扣码
func WithCoupon(code string, percent int) func(*model.PaymentRequest) {
	return func(p *model.PaymentRequest) {
		p.CouponCode = &code
		p.CouponPercent = &percent
	}
}

// TestVerification 创建测试验证申请
func TestVerification(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.VerificationRequest)) *model.VerificationRequest {
	t.Helper()

	req := &model.VerificationRequest{
		UserID:     userID,
		CardNumber: "6037991234567890",
		PhotoRef:   fmt.Sprintf("card_%d", nextID()),
		Status:     model.ReviewPending,
	}

	for _, opt := range opts {
		opt(req)
	}

	if err := db.Create(req).Error; err != nil {
		t.Fatalf("Failed to create test verification: %v", err)
	}

	return req
}

// TestVerifiedCard 创建已验证银行卡
func TestVerifiedCard(t *testing.T, db *gorm.DB, userID int64, cardNumber string) *model.VerifiedCard {
	t.Helper()

	card := &model.VerifiedCard{
		UserID:     userID,
		CardNumber: cardNumber,
		VerifiedAt: time.Now(),
	}

	if err := db.Create(card).Error; err != nil {
		t.Fatalf("Failed to create test verified card: %v", err)
	}

	return card
}

// TestDiscount 创建测试折扣码
func TestDiscount(t *testing.T, db *gorm.DB, code string, opts ...func(*model.DiscountCode)) *model.DiscountCode {
	t.Helper()

	dc := &model.DiscountCode{
		Code:      code,
		Percent:   20,
		MaxUses:   10,
		CreatedBy: 1,
		ExpiresAt: time.Now().Add(24 * time.Hour),
		IsActive:  true,
	}

	for _, opt := range opts {
		opt(dc)
	}

	if err := db.Create(dc).Error; err != nil {
		t.Fatalf("Failed to create test discount code: %v", err)
	}

	return dc
}

// WithMaxUses 设置可用次数
func WithMaxUses(max int) func(*model.DiscountCode) {
	return func(d *model.DiscountCode) {
		d.MaxUses = max
	}
}

// WithUsedCount 设置已用次数
func WithUsedCount(used int) func(*model.DiscountCode) {
	return func(d *model.DiscountCode) {
		d.UsedCount = used
	}
}

// WithExpiresAt 设置过期时间
func WithExpiresAt(at time.Time) func(*model.DiscountCode) {
	return func(d *model.DiscountCode) {
		d.ExpiresAt = at
	}
}

// WithActive 设置启用状态
func WithActive(active bool) func(*model.DiscountCode) {
	return func(d *model.DiscountCode) {
		d.IsActive = active
	}
}
