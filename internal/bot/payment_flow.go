package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/qs3c/resv_go_server/internal/gateway"
	"github.com/qs3c/resv_go_server/internal/model"
	"github.com/qs3c/resv_go_server/internal/pkg/state"
)

// onPaymentDecision 管理员对支付申请的裁决。
// 通过立即生效；驳回先让管理员写原因，收到原因后才真正驳回。
func (r *Router) onPaymentDecision(ctx context.Context, u *gateway.Update) error {
	if !r.isAdmin(u.UserID) {
		return r.gw.AnswerCallback(ctx, u.CallbackID, "无权限执行该操作", true)
	}

	rest := strings.TrimPrefix(u.CallbackData, cbPayPrefix)
	parts := strings.SplitN(rest, "|", 2)
	if len(parts) != 2 {
		return r.gw.AnswerCallback(ctx, u.CallbackID, "无效的数据", true)
	}
	paymentID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return r.gw.AnswerCallback(ctx, u.CallbackID, "无效的数据", true)
	}

	switch parts[1] {
	case "approve":
		pay, err := r.payments.Approve(paymentID, u.UserID)
		if err != nil {
			return r.answerDecisionError(ctx, u.CallbackID, err)
		}

		// 通过后向用户收集宣传素材
		sess := state.NewSession(flowPromo, stepAwaitBanner)
		sess.SetInt64("reservation_id", pay.ReservationID)
		if err := r.store.Put(ctx, pay.UserID, sess); err != nil {
			return err
		}

		_, _ = r.gw.SendMessage(ctx, pay.UserID,
			"支付已确认，预约生效 ✅\n\n"+
				"请发送你的宣传横幅图片；没有图片的话，直接发送群链接即可。", nil)
		return r.gw.AnswerCallback(ctx, u.CallbackID, "已通过 ✅", false)

	case "reject":
		pay, err := r.payments.Get(paymentID)
		if err != nil {
			return r.answerDecisionError(ctx, u.CallbackID, err)
		}
		if pay.Status != model.ReviewPending {
			return r.gw.AnswerCallback(ctx, u.CallbackID, "该申请已被处理", true)
		}

		sess := state.NewSession(flowRejectReason, stepAwaitReason)
		sess.SetInt64("payment_id", paymentID)
		if err := r.store.Put(ctx, u.ChatID, sess); err != nil {
			return err
		}

		if err := r.gw.AnswerCallback(ctx, u.CallbackID, "", false); err != nil {
			return err
		}
		_, err = r.gw.SendMessage(ctx, u.ChatID, "请输入驳回原因，将原样转告用户：", nil)
		return err
	}

	return r.gw.AnswerCallback(ctx, u.CallbackID, "未知操作", true)
}

// onRejectReason 管理员输入驳回原因，执行驳回并通知用户
func (r *Router) onRejectReason(ctx context.Context, u *gateway.Update, sess *state.Session) error {
	if !r.isAdmin(u.UserID) {
		return nil
	}

	paymentID := sess.Int64("payment_id")
	reason := strings.TrimSpace(u.Text)
	if paymentID == 0 || reason == "" {
		if err := r.store.Clear(ctx, u.ChatID); err != nil {
			return err
		}
		_, err := r.gw.SendMessage(ctx, u.ChatID, "驳回流程状态异常，请重新在审批消息上操作。", nil)
		return err
	}

	if err := r.store.Clear(ctx, u.ChatID); err != nil {
		return err
	}

	pay, err := r.payments.Reject(paymentID, u.UserID, reason)
	if err != nil {
		return err
	}

	_, _ = r.gw.SendMessage(ctx, pay.UserID,
		fmt.Sprintf("你的支付未通过审核：\n%s\n\n时段已释放，可重新 /book。", reason), nil)

	_, err = r.gw.SendMessage(ctx, u.ChatID, "已驳回并通知用户。", nil)
	return err
}
