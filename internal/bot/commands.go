package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/qs3c/resv_go_server/internal/gateway"
	"github.com/qs3c/resv_go_server/internal/pkg/queue"
	"github.com/qs3c/resv_go_server/internal/pkg/state"
)

func (r *Router) cmdStart(ctx context.Context, u *gateway.Update) error {
	// /start 同时作为全局重置
	if err := r.store.Clear(ctx, u.ChatID); err != nil {
		return err
	}

	ok, err := r.ensureMember(ctx, u)
	if err != nil || !ok {
		return err
	}

	_, err = r.gw.SendMessage(ctx, u.ChatID,
		"欢迎使用时段预约服务。\n\n"+
			"/book 预约时段\n"+
			"/verify 银行卡验证\n"+
			"/account 我的预约\n"+
			"/rates 价格表  /contact 联系客服\n"+
			"/subscribe 订阅通知  /unsubscribe 退订\n"+
			"/cancel 取消当前操作", nil)
	return err
}

func (r *Router) cmdRates(ctx context.Context, u *gateway.Update) error {
	ok, err := r.ensureMember(ctx, u)
	if err != nil || !ok {
		return err
	}

	text := "📋 价格表\n\n"
	if price := r.cfg.Slots.Price; price > 0 {
		text += fmt.Sprintf("每个直播时段：%d 元\n\n", price)
	}
	text += "转账后发送回执截图，审核通过即确认预约。\n/book 开始预约。"

	_, err = r.gw.SendMessage(ctx, u.ChatID, text, nil)
	return err
}

func (r *Router) cmdContact(ctx context.Context, u *gateway.Update) error {
	ok, err := r.ensureMember(ctx, u)
	if err != nil || !ok {
		return err
	}

	text := "联系管理员/客服或咨询购买，请发送消息至：\n\n"
	if contact := r.cfg.Bot.SupportContact; contact != "" {
		text += contact + "\n\n"
	} else {
		text += "（暂未配置客服账号，请稍后再试）\n\n"
	}
	text += "为了更快处理，请附上你的数字 ID、问题截图/回执和简短说明。"

	_, err = r.gw.SendMessage(ctx, u.ChatID, text, nil)
	return err
}

func (r *Router) onMemberConfirm(ctx context.Context, u *gateway.Update) error {
	channel := r.cfg.Bot.RequiredChannel
	if channel == "" {
		return r.gw.AnswerCallback(ctx, u.CallbackID, "未配置频道门禁", true)
	}

	member, err := r.gw.IsChannelMember(ctx, channel, u.UserID)
	if err != nil {
		return r.gw.AnswerCallback(ctx, u.CallbackID, "暂时无法校验，请稍后再试", true)
	}
	if !member {
		return r.gw.AnswerCallback(ctx, u.CallbackID, "尚未加入频道", true)
	}

	if err := r.gw.AnswerCallback(ctx, u.CallbackID, "", false); err != nil {
		return err
	}
	_, err = r.gw.SendMessage(ctx, u.ChatID, "已确认，欢迎！发送 /book 开始预约。", nil)
	return err
}

// cmdBook 选择预约日。星期按钮附带星期序号，具体日期点选时再解析。
func (r *Router) cmdBook(ctx context.Context, u *gateway.Update) error {
	ok, err := r.ensureMember(ctx, u)
	if err != nil || !ok {
		return err
	}

	names := []string{"周日", "周一", "周二", "周三", "周四", "周五", "周六"}
	var rows [][]gateway.Button
	var row []gateway.Button
	for wd := 0; wd < 7; wd++ {
		row = append(row, gateway.Button{
			Text: names[wd],
			Data: fmt.Sprintf("%s%d", cbDayPrefix, wd),
		})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	_, err = r.gw.SendMessage(ctx, u.ChatID, "请选择预约日期：", rows)
	return err
}

func (r *Router) onDaySelected(ctx context.Context, u *gateway.Update) error {
	ok, err := r.ensureMember(ctx, u)
	if err != nil || !ok {
		return err
	}

	var wd int
	if _, err := fmt.Sscanf(u.CallbackData, cbDayPrefix+"%d", &wd); err != nil || wd < 0 || wd > 6 {
		return r.gw.AnswerCallback(ctx, u.CallbackID, "无效的选择", true)
	}

	if err := r.gw.AnswerCallback(ctx, u.CallbackID, "", false); err != nil {
		return err
	}

	date := r.booking.Schedule().DateFor(time.Now(), time.Weekday(wd))
	return r.sendSlotsPanel(ctx, u.ChatID, date)
}

// sendSlotsPanel 渲染某日的时段表和配额说明
func (r *Router) sendSlotsPanel(ctx context.Context, chatID int64, date time.Time) error {
	day, err := r.booking.Availability(date)
	if err != nil {
		return err
	}

	var rows [][]gateway.Button
	var row []gateway.Button
	for _, slot := range day.Slots {
		mark := "✅"
		if slot.Taken {
			mark = "❌"
		}
		row = append(row, gateway.Button{
			Text: slot.Time.Format("15:04") + " " + mark,
			Data: fmt.Sprintf("%s%s|%s", cbSlotPrefix,
				date.Format("2006-01-02"), slot.Time.Format("15:04")),
		})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	remaining := int64(day.DailyLimit) - day.ReservedCount
	if remaining < 0 {
		remaining = 0
	}
	text := fmt.Sprintf(
		"预约时段 — %s\n当日限额 %d，已预约 %d，剩余 %d\n\n✅ 空闲 | ❌ 已占用",
		date.Format("2006-01-02"), day.DailyLimit, day.ReservedCount, remaining)

	_, err = r.gw.SendMessage(ctx, chatID, text, rows)
	return err
}

func (r *Router) cmdAccount(ctx context.Context, u *gateway.Update) error {
	ok, err := r.ensureMember(ctx, u)
	if err != nil || !ok {
		return err
	}

	reservations, err := r.booking.ListBooked(u.UserID, 20)
	if err != nil {
		return err
	}

	text := fmt.Sprintf("账户信息\n用户 ID：%d\n\n已确认的预约：\n", u.UserID)
	if len(reservations) == 0 {
		text += "暂无"
	} else {
		for i, res := range reservations {
			text += fmt.Sprintf("%d) %s\n", i+1, res.ReservedAt.Format("2006-01-02 15:04"))
		}
	}

	_, err = r.gw.SendMessage(ctx, u.ChatID, text, nil)
	return err
}

func (r *Router) cmdSubscribe(ctx context.Context, u *gateway.Update, on bool) error {
	var err error
	if on {
		err = r.users.Subscribe(u.UserID)
	} else {
		err = r.users.Unsubscribe(u.UserID)
	}
	if err != nil {
		return err
	}

	text := "已订阅通知。"
	if !on {
		text = "已退订通知。"
	}
	_, err = r.gw.SendMessage(ctx, u.ChatID, text, nil)
	return err
}

// cmdCancel 放弃当前向导流程。已落库的实体不受影响。
func (r *Router) cmdCancel(ctx context.Context, u *gateway.Update) error {
	if err := r.store.Clear(ctx, u.ChatID); err != nil {
		return err
	}
	_, err := r.gw.SendMessage(ctx, u.ChatID, "已取消当前操作。", nil)
	return err
}

func (r *Router) cmdStats(ctx context.Context, u *gateway.Update) error {
	if !r.isAdmin(u.UserID) {
		_, err := r.gw.SendMessage(ctx, u.ChatID, "无权限执行该操作。", nil)
		return err
	}

	stats, err := r.users.Stats()
	if err != nil {
		return err
	}

	lastSeen := "无"
	if stats.LastUserSeenAt != nil {
		lastSeen = stats.LastUserSeenAt.Format("2006-01-02 15:04")
	}

	text := fmt.Sprintf(
		"📊 运营统计\n\n"+
			"👤 用户\n- 总数：%d\n- 已订阅：%d\n- 24小时活跃：%d\n- 7日活跃：%d\n- 最近活跃：%s\n\n"+
			"⏱ 预约\n%s\n"+
			"💳 支付\n%s\n"+
			"🪪 验证\n%s",
		stats.TotalUsers, stats.SubscribedUsers,
		stats.ActiveUsers24h, stats.ActiveUsers7d, lastSeen,
		formatStatusCounts(stats.ReservationsByStatus),
		formatStatusCounts(stats.PaymentsByStatus),
		formatStatusCounts(stats.VerificationsByStatus))

	_, err = r.gw.SendMessage(ctx, u.ChatID, text, nil)
	return err
}

func (r *Router) cmdBroadcast(ctx context.Context, u *gateway.Update) error {
	if !r.isAdmin(u.UserID) {
		_, err := r.gw.SendMessage(ctx, u.ChatID, "无权限执行该操作。", nil)
		return err
	}

	sess := state.NewSession(flowBroadcast, stepAwaitMessage)
	if err := r.store.Put(ctx, u.ChatID, sess); err != nil {
		return err
	}

	_, err := r.gw.SendMessage(ctx, u.ChatID,
		"发送要群发的消息（仅推送给已订阅用户）。\n取消请用 /cancel", nil)
	return err
}

func (r *Router) onBroadcastMessage(ctx context.Context, u *gateway.Update, _ *state.Session) error {
	if !r.isAdmin(u.UserID) {
		return nil
	}

	if err := r.store.Clear(ctx, u.ChatID); err != nil {
		return err
	}

	job := &queue.BroadcastJob{
		FromChatID:  u.ChatID,
		MessageID:   u.MessageID,
		RequestedBy: u.UserID,
	}
	if err := r.broadcasts.Push(ctx, job); err != nil {
		return err
	}

	_, err := r.gw.SendMessage(ctx, u.ChatID, "已加入群发队列，完成后会收到回执。", nil)
	return err
}

func (r *Router) cmdDiscount(ctx context.Context, u *gateway.Update) error {
	if !r.isAdmin(u.UserID) {
		_, err := r.gw.SendMessage(ctx, u.ChatID, "无权限执行该操作。", nil)
		return err
	}

	sess := state.NewSession(flowDiscount, stepAwaitCode)
	if err := r.store.Put(ctx, u.ChatID, sess); err != nil {
		return err
	}

	_, err := r.gw.SendMessage(ctx, u.ChatID,
		"发送折扣码（2-64位字母数字、_ 或 -）：", nil)
	return err
}

func formatStatusCounts(counts map[string]int64) string {
	var total int64
	for _, n := range counts {
		total += n
	}
	return fmt.Sprintf("- 总数：%d\n- 待处理：%d\n- 已通过：%d\n- 已驳回：%d\n",
		total, counts["pending"]+counts["pending_payment"],
		counts["approved"]+counts["booked"], counts["rejected"]+counts["cancelled"])
}
