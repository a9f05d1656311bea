package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelBookingEvents = "booking_events"
)

// 事件类型
const (
	EventPaymentSubmitted      = "payment_submitted"
	EventPaymentApproved       = "payment_approved"
	EventPaymentRejected       = "payment_rejected"
	EventVerificationSubmitted = "verification_submitted"
	EventVerificationApproved  = "verification_approved"
	EventVerificationRejected  = "verification_rejected"
	EventSlotHeld              = "slot_held"
	EventReminderSent          = "reminder_sent"
)

// Event 预约流程事件，推给管理后台的实时通道
type Event struct {
	Type           string `json:"type"`
	UserID         int64  `json:"user_id,omitempty"`
	ReservationID  int64  `json:"reservation_id,omitempty"`
	PaymentID      int64  `json:"payment_id,omitempty"`
	VerificationID int64  `json:"verification_id,omitempty"`
	Status         string `json:"status,omitempty"`
	Message        string `json:"message,omitempty"`
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish 发布事件
func (p *Publisher) Publish(ctx context.Context, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return p.client.Publish(ctx, ChannelBookingEvents, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅事件流
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*Event)) error {
	pubsub := s.client.Subscribe(ctx, ChannelBookingEvents)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue // 忽略解析错误
			}

			handler(&event)
		}
	}
}
