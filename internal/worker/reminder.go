package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/qs3c/resv_go_server/config"
	"github.com/qs3c/resv_go_server/internal/gateway"
	"github.com/qs3c/resv_go_server/internal/model"
	"github.com/qs3c/resv_go_server/internal/pkg/pubsub"
	"github.com/qs3c/resv_go_server/internal/pkg/schedule"
	"github.com/qs3c/resv_go_server/internal/repository"
)

// Reminder 开播提醒轮询器。
// 在时段开始前 lead 分钟的窗口内找到未提醒的已确认预约，
// 先抢标记再发通知，多实例下同一预约也只提醒一次。
type Reminder struct {
	resRepo   *repository.ReservationRepository
	gw        gateway.Gateway
	publisher *pubsub.Publisher
	cfg       *config.Config
	stopChan  chan struct{}
}

func NewReminder(
	resRepo *repository.ReservationRepository,
	gw gateway.Gateway,
	publisher *pubsub.Publisher,
	cfg *config.Config,
) *Reminder {
	return &Reminder{
		resRepo:   resRepo,
		gw:        gw,
		publisher: publisher,
		cfg:       cfg,
		stopChan:  make(chan struct{}),
	}
}

// Start 启动轮询
func (r *Reminder) Start() {
	go r.run()
	log.Printf("Reminder worker started (lead=%dm, interval=%ds)",
		r.cfg.Reminder.LeadMinutes, r.cfg.Reminder.IntervalSeconds)
}

// Stop 停止轮询
func (r *Reminder) Stop() {
	close(r.stopChan)
	log.Println("Reminder worker stopped")
}

func (r *Reminder) run() {
	ticker := time.NewTicker(time.Duration(r.cfg.Reminder.IntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			if n, err := r.Poll(context.Background(), time.Now()); err != nil {
				log.Printf("Reminder poll failed: %v", err)
			} else if n > 0 {
				log.Printf("Reminder poll: sent %d reminders", n)
			}
		}
	}
}

// Poll 执行一轮提醒，返回本轮发出的提醒数
func (r *Reminder) Poll(ctx context.Context, now time.Time) (int, error) {
	lead := time.Duration(r.cfg.Reminder.LeadMinutes) * time.Minute
	tolerance := time.Duration(r.cfg.Reminder.WindowSeconds) * time.Second
	start, end := schedule.ReminderWindow(now, lead, tolerance)

	due, err := r.resRepo.ListDueForReminder(start, end)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range due {
		res := &due[i]

		// 先标记后发送，标记失败说明已被其他轮次处理
		claimed, err := r.resRepo.MarkReminded(res.ID, now)
		if err != nil {
			log.Printf("Reminder: mark reservation %d failed: %v", res.ID, err)
			continue
		}
		if !claimed {
			continue
		}

		r.notify(ctx, res)
		sent++
	}

	return sent, nil
}

// notify 把预约的完整上下文推给所有管理员：
// 用户、时段、宣传横幅有无、目标群链接，开播前不用再翻记录
func (r *Reminder) notify(ctx context.Context, res *model.Reservation) {
	banner := "无"
	if res.PromoPhotoRef != nil && *res.PromoPhotoRef != "" {
		banner = "有"
	}

	text := fmt.Sprintf(
		"⏰ 开播提醒（%d 分钟后）\n\n"+
			"预约编号：%d\n"+
			"用户 ID：%d\n"+
			"用户名：%s\n"+
			"预约时段：%s\n"+
			"群链接：%s\n"+
			"宣传横幅：%s\n"+
			"目标群链接：%s",
		r.cfg.Reminder.LeadMinutes,
		res.ID, res.UserID, orNone(res.Username),
		res.ReservedAt.Format("2006-01-02 15:04"),
		orNone(res.GroupLink), banner, orNone(res.DestinationLinks))

	for _, adminID := range r.cfg.Bot.AdminIDs {
		if _, err := r.gw.SendMessage(ctx, adminID, text, nil); err != nil {
			log.Printf("Reminder: notify admin %d failed: %v", adminID, err)
		}
	}

	if r.publisher != nil {
		err := r.publisher.Publish(ctx, &pubsub.Event{
			Type:          pubsub.EventReminderSent,
			UserID:        res.UserID,
			ReservationID: res.ID,
		})
		if err != nil {
			log.Printf("Reminder: publish event failed: %v", err)
		}
	}
}

func orNone(s *string) string {
	if s == nil || *s == "" {
		return "无"
	}
	return *s
}
