package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/qs3c/resv_go_server/internal/gateway"
	"github.com/qs3c/resv_go_server/internal/pkg/state"
	"github.com/qs3c/resv_go_server/internal/service"
)

// onSlotClick 点选时段。占用成功后进入折扣码询问。
func (r *Router) onSlotClick(ctx context.Context, u *gateway.Update) error {
	parts := strings.Split(u.CallbackData, "|")
	if len(parts) != 3 {
		return r.gw.AnswerCallback(ctx, u.CallbackID, "无效的时段数据", true)
	}

	loc := r.booking.Schedule().Location()
	at, err := time.ParseInLocation("2006-01-02 15:04", parts[1]+" "+parts[2], loc)
	if err != nil {
		return r.gw.AnswerCallback(ctx, u.CallbackID, "无效的时段数据", true)
	}

	id, err := r.booking.Hold(u.UserID, at)
	switch {
	case errors.Is(err, service.ErrVerificationRequired):
		if err := r.gw.AnswerCallback(ctx, u.CallbackID, "请先完成银行卡验证", true); err != nil {
			return err
		}
		_, err = r.gw.SendMessage(ctx, u.ChatID, "预约前需完成银行卡验证，发送 /verify 开始。", nil)
		return err
	case errors.Is(err, service.ErrSlotTakenBySelf):
		return r.gw.AnswerCallback(ctx, u.CallbackID, "你已预约了该时段", true)
	case errors.Is(err, service.ErrSlotTaken):
		return r.gw.AnswerCallback(ctx, u.CallbackID, "该时段刚刚被预约", true)
	case errors.Is(err, service.ErrQuotaFull):
		return r.gw.AnswerCallback(ctx, u.CallbackID, "当日预约已满", true)
	case err != nil:
		return err
	}

	if err := r.gw.AnswerCallback(ctx, u.CallbackID, "", false); err != nil {
		return err
	}

	_, err = r.gw.SendMessage(ctx, u.ChatID,
		fmt.Sprintf("已为你锁定 %s 的时段。\n\n是否使用折扣码？", at.Format("2006-01-02 15:04")),
		[][]gateway.Button{{
			{Text: "有 ✅", Data: fmt.Sprintf("%s%d|yes", cbCouponPrefix, id)},
			{Text: "没有 ❌", Data: fmt.Sprintf("%s%d|no", cbCouponPrefix, id)},
		}})
	return err
}

// onCouponChoice 折扣码询问的回答
func (r *Router) onCouponChoice(ctx context.Context, u *gateway.Update) error {
	rest := strings.TrimPrefix(u.CallbackData, cbCouponPrefix)
	parts := strings.SplitN(rest, "|", 2)
	if len(parts) != 2 {
		return r.gw.AnswerCallback(ctx, u.CallbackID, "无效的选择", true)
	}
	reservationID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return r.gw.AnswerCallback(ctx, u.CallbackID, "无效的选择", true)
	}

	sess := state.NewSession(flowBooking, "")
	sess.SetInt64("reservation_id", reservationID)

	switch parts[1] {
	case "yes":
		sess.Step = stepAwaitCoupon
		if err := r.store.Put(ctx, u.ChatID, sess); err != nil {
			return err
		}
		if err := r.gw.AnswerCallback(ctx, u.CallbackID, "", false); err != nil {
			return err
		}
		_, err = r.gw.SendMessage(ctx, u.ChatID, "请发送折扣码：", nil)
		return err
	case "no":
		sess.Step = stepAwaitReceipt
		if err := r.store.Put(ctx, u.ChatID, sess); err != nil {
			return err
		}
		if err := r.gw.AnswerCallback(ctx, u.CallbackID, "", false); err != nil {
			return err
		}
		return r.sendPaymentInstructions(ctx, u, "")
	}
	return r.gw.AnswerCallback(ctx, u.CallbackID, "无效的选择", true)
}

// onCouponCode 录入折扣码。只做即时校验反馈，
// 真正核销发生在支付审批通过时。
func (r *Router) onCouponCode(ctx context.Context, u *gateway.Update, sess *state.Session) error {
	code := strings.TrimSpace(u.Text)
	if code == "" || len(code) > 64 {
		_, err := r.gw.SendMessage(ctx, u.ChatID, "折扣码格式不正确，请重新发送。", nil)
		return err
	}

	ok, reason, percent, err := r.discounts.Validate(code, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		_, err := r.gw.SendMessage(ctx, u.ChatID,
			service.DescribeReason(reason)+"，请重新发送或 /cancel 放弃。", nil)
		return err
	}

	sess.Set("coupon_code", code)
	sess.Set("coupon_percent", strconv.Itoa(percent))
	sess.Step = stepAwaitReceipt
	if err := r.store.Put(ctx, u.ChatID, sess); err != nil {
		return err
	}

	return r.sendPaymentInstructions(ctx, u,
		fmt.Sprintf("折扣码已登记：%s（%d%%）\n\n", code, percent))
}

func (r *Router) sendPaymentInstructions(ctx context.Context, u *gateway.Update, prefix string) error {
	card, ok, err := r.verifications.CardNumber(u.UserID)
	if err != nil {
		return err
	}
	if !ok {
		_, err := r.gw.SendMessage(ctx, u.ChatID, "预约前需完成银行卡验证，发送 /verify 开始。", nil)
		return err
	}

	text := fmt.Sprintf(
		"请用已验证的银行卡（%s）向以下卡号转账，然后在此发送转账回执截图：\n\n[ %s ]\n\n等待接收回执图片…",
		card, r.cfg.Bot.PayCardNumber)
	if price := r.cfg.Slots.Price; price > 0 {
		text = fmt.Sprintf("本次时段价格：%d 元\n\n", price) + text
	}

	_, err = r.gw.SendMessage(ctx, u.ChatID, prefix+text, nil)
	return err
}

// onReceiptPhoto 收到回执截图，创建支付申请并通知管理员审批
func (r *Router) onReceiptPhoto(ctx context.Context, u *gateway.Update, sess *state.Session) error {
	reservationID := sess.Int64("reservation_id")
	if reservationID == 0 {
		if err := r.store.Clear(ctx, u.ChatID); err != nil {
			return err
		}
		_, err := r.gw.SendMessage(ctx, u.ChatID, "流程状态丢失，请重新 /book。", nil)
		return err
	}

	var couponCode *string
	var couponPercent *int
	if code := sess.Get("coupon_code"); code != "" {
		couponCode = &code
		if p, err := strconv.Atoi(sess.Get("coupon_percent")); err == nil {
			couponPercent = &p
		}
	}

	var username *string
	if u.Username != "" {
		username = &u.Username
	}

	pay, err := r.payments.Submit(reservationID, u.UserID, username, couponCode, couponPercent, u.PhotoRef)
	if err != nil {
		if errors.Is(err, service.ErrVerificationRequired) {
			_, err := r.gw.SendMessage(ctx, u.ChatID, "预约前需完成银行卡验证，发送 /verify 开始。", nil)
			return err
		}
		return err
	}

	if err := r.store.Clear(ctx, u.ChatID); err != nil {
		return err
	}

	res, err := r.booking.Get(reservationID)
	reservedAt := "未知"
	if err == nil {
		reservedAt = res.ReservedAt.Format("2006-01-02 15:04")
	}

	caption := fmt.Sprintf(
		"用户购买申请\n\n用户 ID：%d\n用户名：%s\n银行卡：%s\n预约时段：%s\n支付单号：%d",
		u.UserID, displayName(username), pay.CardNumber, reservedAt, pay.ID)
	if couponCode != nil {
		caption += fmt.Sprintf("\n折扣码：%s", *couponCode)
		if couponPercent != nil {
			caption += fmt.Sprintf("（%d%%）", *couponPercent)
		}
	}

	buttons := [][]gateway.Button{
		{{Text: "通过 ✅", Data: fmt.Sprintf("%s%d|approve", cbPayPrefix, pay.ID)}},
		{{Text: "驳回 ❌", Data: fmt.Sprintf("%s%d|reject", cbPayPrefix, pay.ID)}},
	}
	r.notifyAdminsPhoto(ctx, u.PhotoRef, caption, buttons)

	_, err = r.gw.SendMessage(ctx, u.ChatID, "回执已提交，等待审核。", nil)
	return err
}

func (r *Router) notifyAdminsPhoto(ctx context.Context, photoRef, caption string, buttons [][]gateway.Button) {
	for _, adminID := range r.adminIDs() {
		if _, err := r.gw.SendPhoto(ctx, adminID, photoRef, caption, buttons); err != nil {
			continue
		}
	}
}

func (r *Router) notifyAdmins(ctx context.Context, text string) {
	for _, adminID := range r.adminIDs() {
		if _, err := r.gw.SendMessage(ctx, adminID, text, nil); err != nil {
			continue
		}
	}
}

func displayName(username *string) string {
	if username == nil || *username == "" {
		return "无"
	}
	return *username
}
