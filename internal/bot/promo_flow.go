package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/qs3c/resv_go_server/internal/gateway"
	"github.com/qs3c/resv_go_server/internal/pkg/state"
)

// 结束目的群链接采集的关键字
const destFinishText = "完成"

// onBanner 支付通过后收集宣传素材：横幅图片或群链接。
// 素材原样转发给管理员，随后询问目的群链接。
func (r *Router) onBanner(ctx context.Context, u *gateway.Update, sess *state.Session) error {
	reservationID := sess.Int64("reservation_id")
	if reservationID == 0 {
		return r.store.Clear(ctx, u.ChatID)
	}

	var username, groupLink, photoRef *string
	if u.Username != "" {
		username = &u.Username
	}
	if u.PhotoRef != "" {
		photoRef = &u.PhotoRef
	}
	if link := strings.TrimSpace(u.Text); strings.HasPrefix(strings.ToLower(link), "http") {
		groupLink = &link
	}
	if photoRef == nil && groupLink == nil {
		_, err := r.gw.SendMessage(ctx, u.ChatID, "请发送横幅图片或以 http 开头的群链接。", nil)
		return err
	}

	if err := r.booking.SetPromo(reservationID, username, groupLink, photoRef); err != nil {
		return err
	}

	for _, adminID := range r.adminIDs() {
		if err := r.gw.ForwardMessage(ctx, adminID, u.ChatID, u.MessageID); err != nil {
			continue
		}
	}

	// 下一步：目的群链接
	sess.Flow = flowDestination
	sess.Step = ""
	if err := r.store.Put(ctx, u.ChatID, sess); err != nil {
		return err
	}

	_, err := r.gw.SendMessage(ctx, u.ChatID,
		"是否提供目的群链接？（横幅将推送到这些群的成员）",
		[][]gateway.Button{{
			{Text: "提供 ✅", Data: fmt.Sprintf("%s%d|has", cbDestPrefix, reservationID)},
			{Text: "没有 ❌", Data: fmt.Sprintf("%s%d|no", cbDestPrefix, reservationID)},
		}})
	return err
}

// onDestinationChoice 目的群链接询问的回答
func (r *Router) onDestinationChoice(ctx context.Context, u *gateway.Update) error {
	rest := strings.TrimPrefix(u.CallbackData, cbDestPrefix)
	parts := strings.SplitN(rest, "|", 2)
	if len(parts) != 2 {
		return r.gw.AnswerCallback(ctx, u.CallbackID, "无效的选择", true)
	}
	reservationID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return r.gw.AnswerCallback(ctx, u.CallbackID, "无效的选择", true)
	}

	switch parts[1] {
	case "no":
		if err := r.booking.SetDestinationLinks(reservationID, nil); err != nil {
			return err
		}
		if err := r.store.Clear(ctx, u.ChatID); err != nil {
			return err
		}
		r.sendReservationSummary(ctx, reservationID, u, nil)
		if err := r.gw.AnswerCallback(ctx, u.CallbackID, "已登记", false); err != nil {
			return err
		}
		_, err := r.gw.SendMessage(ctx, u.ChatID, "资料已登记完成，感谢配合。", nil)
		return err

	case "has":
		sess := state.NewSession(flowDestination, stepAwaitLinks)
		sess.SetInt64("reservation_id", reservationID)
		if err := r.store.Put(ctx, u.ChatID, sess); err != nil {
			return err
		}
		if err := r.gw.AnswerCallback(ctx, u.CallbackID, "", false); err != nil {
			return err
		}
		_, err := r.gw.SendMessage(ctx, u.ChatID,
			fmt.Sprintf("请逐条发送目的群链接，发送完毕后输入「%s」。", destFinishText), nil)
		return err
	}

	return r.gw.AnswerCallback(ctx, u.CallbackID, "无效的选择", true)
}

// onDestinationLink 逐条累积目的群链接，直到用户输入结束关键字
func (r *Router) onDestinationLink(ctx context.Context, u *gateway.Update, sess *state.Session) error {
	reservationID := sess.Int64("reservation_id")
	if reservationID == 0 {
		return r.store.Clear(ctx, u.ChatID)
	}

	text := strings.TrimSpace(u.Text)
	if text != destFinishText {
		links := sess.Get("links")
		if links == "" {
			links = text
		} else {
			links += "\n" + text
		}
		sess.Set("links", links)
		if err := r.store.Put(ctx, u.ChatID, sess); err != nil {
			return err
		}
		_, err := r.gw.SendMessage(ctx, u.ChatID,
			fmt.Sprintf("已记录，继续发送下一条，或输入「%s」结束。", destFinishText), nil)
		return err
	}

	var links *string
	if v := sess.Get("links"); v != "" {
		links = &v
	}
	if err := r.booking.SetDestinationLinks(reservationID, links); err != nil {
		return err
	}
	if err := r.store.Clear(ctx, u.ChatID); err != nil {
		return err
	}

	r.sendReservationSummary(ctx, reservationID, u, links)

	_, err := r.gw.SendMessage(ctx, u.ChatID, "资料已登记完成，感谢配合。", nil)
	return err
}

// sendReservationSummary 素材采集完成后给管理员的汇总
func (r *Router) sendReservationSummary(ctx context.Context, reservationID int64, u *gateway.Update, links *string) {
	res, err := r.booking.Get(reservationID)
	reservedAt := "未知"
	username := u.Username
	if err == nil {
		reservedAt = res.ReservedAt.Format("2006-01-02 15:04")
		if res.Username != nil && *res.Username != "" {
			username = *res.Username
		}
	}

	linksText := "无"
	if links != nil && *links != "" {
		linksText = *links
	}

	r.notifyAdmins(ctx, fmt.Sprintf(
		"预约资料汇总（素材采集完成）\n\n预约单号：%d\n用户 ID：%d\n用户名：%s\n时段：%s\n目的群链接：\n%s",
		reservationID, u.UserID, username, reservedAt, linksText))
}
