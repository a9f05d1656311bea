package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/qs3c/resv_go_server/internal/gateway"
	"github.com/qs3c/resv_go_server/internal/pkg/state"
	"github.com/qs3c/resv_go_server/internal/repository"
	"github.com/qs3c/resv_go_server/internal/service"
)

// cmdVerify 进入银行卡验证流程：先收卡片照片，再收卡号
func (r *Router) cmdVerify(ctx context.Context, u *gateway.Update) error {
	ok, err := r.ensureMember(ctx, u)
	if err != nil || !ok {
		return err
	}

	sess := state.NewSession(flowVerification, stepAwaitPhoto)
	if err := r.store.Put(ctx, u.ChatID, sess); err != nil {
		return err
	}

	_, err = r.gw.SendMessage(ctx, u.ChatID,
		"银行卡验证说明：\n"+
			"1) 卡号和持卡人姓名需清晰可见\n"+
			"2) 请遮挡有效期和 CVV2\n"+
			"3) 之后只能用验证过的卡完成支付\n\n"+
			"请发送银行卡照片。", nil)
	return err
}

func (r *Router) onVerificationPhoto(ctx context.Context, u *gateway.Update, sess *state.Session) error {
	sess.Set("photo_ref", u.PhotoRef)
	sess.Step = stepAwaitCard
	if err := r.store.Put(ctx, u.ChatID, sess); err != nil {
		return err
	}

	_, err := r.gw.SendMessage(ctx, u.ChatID,
		"请发送16位银行卡号（纯数字，可带空格或连字符）。", nil)
	return err
}

func (r *Router) onVerificationCardNumber(ctx context.Context, u *gateway.Update, sess *state.Session) error {
	photoRef := sess.Get("photo_ref")
	if photoRef == "" {
		sess.Step = stepAwaitPhoto
		if err := r.store.Put(ctx, u.ChatID, sess); err != nil {
			return err
		}
		_, err := r.gw.SendMessage(ctx, u.ChatID, "请先发送银行卡照片。", nil)
		return err
	}

	var username *string
	if u.Username != "" {
		username = &u.Username
	}

	req, err := r.verifications.Submit(u.UserID, username, u.Text, photoRef)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCard) {
			_, err := r.gw.SendMessage(ctx, u.ChatID,
				"卡号格式不正确，请发送16位数字。", nil)
			return err
		}
		return err
	}

	if err := r.store.Clear(ctx, u.ChatID); err != nil {
		return err
	}

	caption := fmt.Sprintf(
		"银行卡验证申请\n\n用户 ID：%d\n用户名：%s\n卡号：%s\n申请单号：%d",
		u.UserID, displayName(username), req.CardNumber, req.ID)
	buttons := [][]gateway.Button{
		{{Text: "通过 ✅", Data: fmt.Sprintf("%s%d|approve", cbVerifPrefix, req.ID)}},
		{
			{Text: "照片有误 ❌", Data: fmt.Sprintf("%s%d|reject_wrong", cbVerifPrefix, req.ID)},
			{Text: "资料不全 ❌", Data: fmt.Sprintf("%s%d|reject_incomplete", cbVerifPrefix, req.ID)},
		},
	}
	r.notifyAdminsPhoto(ctx, photoRef, caption, buttons)

	_, err = r.gw.SendMessage(ctx, u.ChatID, "验证申请已提交，等待审核。", nil)
	return err
}

// onVerificationDecision 管理员对验证申请的裁决
func (r *Router) onVerificationDecision(ctx context.Context, u *gateway.Update) error {
	if !r.isAdmin(u.UserID) {
		return r.gw.AnswerCallback(ctx, u.CallbackID, "无权限执行该操作", true)
	}

	rest := strings.TrimPrefix(u.CallbackData, cbVerifPrefix)
	parts := strings.SplitN(rest, "|", 2)
	if len(parts) != 2 {
		return r.gw.AnswerCallback(ctx, u.CallbackID, "无效的数据", true)
	}
	requestID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return r.gw.AnswerCallback(ctx, u.CallbackID, "无效的数据", true)
	}

	switch parts[1] {
	case "approve":
		req, err := r.verifications.Approve(requestID, u.UserID)
		if err != nil {
			return r.answerDecisionError(ctx, u.CallbackID, err)
		}
		_, _ = r.gw.SendMessage(ctx, req.UserID,
			fmt.Sprintf("银行卡（%s）验证已通过，现在可以预约时段了。/book", req.CardNumber), nil)
		return r.gw.AnswerCallback(ctx, u.CallbackID, "已通过 ✅", false)

	case "reject_wrong", "reject_incomplete":
		reason := service.RejectReasonWrong
		text := "银行卡验证未通过：照片有误。可修正后重新提交。/verify"
		if parts[1] == "reject_incomplete" {
			reason = service.RejectReasonIncomplete
			text = "银行卡验证未通过：资料不全。请按说明补全后重新提交。/verify"
		}

		req, err := r.verifications.Reject(requestID, u.UserID, reason)
		if err != nil {
			return r.answerDecisionError(ctx, u.CallbackID, err)
		}
		_, _ = r.gw.SendMessage(ctx, req.UserID, text, nil)
		return r.gw.AnswerCallback(ctx, u.CallbackID, "已驳回 ❌", false)
	}

	return r.gw.AnswerCallback(ctx, u.CallbackID, "未知操作", true)
}

func (r *Router) answerDecisionError(ctx context.Context, callbackID string, err error) error {
	switch {
	case errors.Is(err, repository.ErrAlreadyReviewed):
		return r.gw.AnswerCallback(ctx, callbackID, "该申请已被处理", true)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return r.gw.AnswerCallback(ctx, callbackID, "申请不存在", true)
	}
	return err
}
