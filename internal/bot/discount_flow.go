package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/qs3c/resv_go_server/internal/gateway"
	"github.com/qs3c/resv_go_server/internal/pkg/state"
	"github.com/qs3c/resv_go_server/internal/repository"
	"github.com/qs3c/resv_go_server/internal/service"
)

var discountCodeRe = regexp.MustCompile(`^[A-Za-z0-9_-]{2,64}$`)

// onDiscountWizard 折扣码创建向导：码 → 可用次数 → 有效期 → 折扣比例。
// 每步即时校验，不合法就停在当前步重试。
func (r *Router) onDiscountWizard(ctx context.Context, u *gateway.Update, sess *state.Session) error {
	if !r.isAdmin(u.UserID) {
		return nil
	}

	text := strings.TrimSpace(u.Text)

	switch sess.Step {
	case stepAwaitCode:
		if !discountCodeRe.MatchString(text) {
			_, err := r.gw.SendMessage(ctx, u.ChatID,
				"折扣码须为2-64位字母数字、_ 或 -，请重新发送。", nil)
			return err
		}
		sess.Set("code", text)
		sess.Step = stepAwaitMaxUses
		if err := r.store.Put(ctx, u.ChatID, sess); err != nil {
			return err
		}
		_, err := r.gw.SendMessage(ctx, u.ChatID, "该码可使用多少次？（如 5）", nil)
		return err

	case stepAwaitMaxUses:
		n, err := strconv.Atoi(text)
		if err != nil || n <= 0 {
			_, err := r.gw.SendMessage(ctx, u.ChatID, "请发送一个正整数（如 5）。", nil)
			return err
		}
		sess.Set("max_uses", text)
		sess.Step = stepAwaitDuration
		if err := r.store.Put(ctx, u.ChatID, sess); err != nil {
			return err
		}
		_, err = r.gw.SendMessage(ctx, u.ChatID, "有效期多久？（如 30d / 12h / 90m）", nil)
		return err

	case stepAwaitDuration:
		if _, err := service.ParseValidity(text); err != nil {
			_, err := r.gw.SendMessage(ctx, u.ChatID, "有效期格式不正确，如 30d / 12h / 90m。", nil)
			return err
		}
		sess.Set("duration", text)
		sess.Step = stepAwaitPercent
		if err := r.store.Put(ctx, u.ChatID, sess); err != nil {
			return err
		}
		_, err := r.gw.SendMessage(ctx, u.ChatID, "折扣比例多少？（1-100 的整数）", nil)
		return err

	case stepAwaitPercent:
		percent, err := strconv.Atoi(text)
		if err != nil || percent < 1 || percent > 100 {
			_, err := r.gw.SendMessage(ctx, u.ChatID, "请发送 1-100 之间的整数。", nil)
			return err
		}

		maxUses, _ := strconv.Atoi(sess.Get("max_uses"))
		validity, err := service.ParseValidity(sess.Get("duration"))
		if err != nil {
			if err := r.store.Clear(ctx, u.ChatID); err != nil {
				return err
			}
			_, err := r.gw.SendMessage(ctx, u.ChatID, "流程状态异常，请重新 /discount。", nil)
			return err
		}

		dc, err := r.discounts.Create(sess.Get("code"), percent, maxUses, validity, u.UserID)
		if err != nil {
			if err := r.store.Clear(ctx, u.ChatID); err != nil {
				return err
			}
			switch {
			case errors.Is(err, repository.ErrCodeExists):
				_, err := r.gw.SendMessage(ctx, u.ChatID, "该折扣码已存在，换一个码重新 /discount。", nil)
				return err
			case errors.Is(err, service.ErrBadCode):
				_, err := r.gw.SendMessage(ctx, u.ChatID,
					"折扣码须为2-64位字母数字、_ 或 -，重新 /discount。", nil)
				return err
			}
			return err
		}

		if err := r.store.Clear(ctx, u.ChatID); err != nil {
			return err
		}

		_, err = r.gw.SendMessage(ctx, u.ChatID, fmt.Sprintf(
			"折扣码创建成功 ✅\n\n码：%s\n比例：%d%%\n可用次数：%d\n过期时间：%s",
			dc.Code, dc.Percent, dc.MaxUses, dc.ExpiresAt.Format("2006-01-02 15:04")), nil)
		return err
	}

	return nil
}
