package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/qs3c/resv_go_server/internal/gateway"
	"github.com/qs3c/resv_go_server/internal/pkg/queue"
	"github.com/qs3c/resv_go_server/internal/service"
)

// Broadcaster 群发消费者。从队列取任务，把消息逐个复制给订阅用户；
// 对方已屏蔽时自动退订并继续，单个失败不中断整轮。
type Broadcaster struct {
	queue    *queue.Queue
	users    *service.UserService
	gw       gateway.Gateway
	sleep    time.Duration
	stopChan chan struct{}
}

// BroadcastResult 一次群发的结果统计
type BroadcastResult struct {
	Total   int
	Sent    int
	Blocked int
	Failed  int
}

func NewBroadcaster(q *queue.Queue, users *service.UserService, gw gateway.Gateway, sleep time.Duration) *Broadcaster {
	return &Broadcaster{
		queue:    q,
		users:    users,
		gw:       gw,
		sleep:    sleep,
		stopChan: make(chan struct{}),
	}
}

// Start 启动消费循环
func (b *Broadcaster) Start() {
	go b.run()
	log.Println("Broadcast worker started")
}

// Stop 停止消费
func (b *Broadcaster) Stop() {
	close(b.stopChan)
	log.Println("Broadcast worker stopped")
}

func (b *Broadcaster) run() {
	ctx := context.Background()

	for {
		select {
		case <-b.stopChan:
			return
		default:
		}

		job, err := b.queue.Pop(ctx, 5*time.Second)
		if err != nil {
			log.Printf("Broadcast: pop failed: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		result, err := b.Broadcast(ctx, job)
		if err != nil {
			log.Printf("Broadcast job from %d failed: %v", job.RequestedBy, err)
			continue
		}

		log.Printf("Broadcast done: total=%d sent=%d blocked=%d failed=%d",
			result.Total, result.Sent, result.Blocked, result.Failed)

		// 给发起人回执
		b.report(ctx, job.RequestedBy, result)
	}
}

// Broadcast 执行一次群发任务
func (b *Broadcaster) Broadcast(ctx context.Context, job *queue.BroadcastJob) (*BroadcastResult, error) {
	ids, err := b.users.Subscribers()
	if err != nil {
		return nil, err
	}

	result := &BroadcastResult{Total: len(ids)}
	for _, chatID := range ids {
		err := b.gw.CopyMessage(ctx, chatID, job.FromChatID, job.MessageID)
		switch {
		case err == nil:
			result.Sent++
		case errors.Is(err, gateway.ErrBlocked):
			result.Blocked++
			if err := b.users.Unsubscribe(chatID); err != nil {
				log.Printf("Broadcast: unsubscribe %d failed: %v", chatID, err)
			}
		default:
			result.Failed++
			log.Printf("Broadcast: send to %d failed: %v", chatID, err)
		}

		if b.sleep > 0 {
			time.Sleep(b.sleep)
		}
	}

	return result, nil
}

func (b *Broadcaster) report(ctx context.Context, requestedBy int64, result *BroadcastResult) {
	if requestedBy == 0 {
		return
	}
	text := formatBroadcastReport(result)
	if _, err := b.gw.SendMessage(ctx, requestedBy, text, nil); err != nil {
		log.Printf("Broadcast: report to %d failed: %v", requestedBy, err)
	}
}

func formatBroadcastReport(result *BroadcastResult) string {
	return fmt.Sprintf("群发完成：共 %d，成功 %d，已屏蔽 %d，失败 %d",
		result.Total, result.Sent, result.Blocked, result.Failed)
}
