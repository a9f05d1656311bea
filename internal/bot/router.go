package bot

import (
	"context"
	"log"
	"strings"

	"github.com/qs3c/resv_go_server/config"
	"github.com/qs3c/resv_go_server/internal/gateway"
	"github.com/qs3c/resv_go_server/internal/pkg/queue"
	"github.com/qs3c/resv_go_server/internal/pkg/state"
	"github.com/qs3c/resv_go_server/internal/service"
)

// 向导流程名。每个会话同一时刻只有一个活动流程，
// 流程状态存在 state.Store，和持久化实体完全分开。
const (
	flowBooking      = "booking"
	flowVerification = "verification"
	flowPromo        = "promo"
	flowDestination  = "destination"
	flowDiscount     = "discount_create"
	flowRejectReason = "reject_reason"
	flowBroadcast    = "broadcast"
)

// 流程步骤
const (
	stepAwaitCoupon   = "await_coupon"
	stepAwaitReceipt  = "await_receipt"
	stepAwaitPhoto    = "await_photo"
	stepAwaitCard     = "await_card"
	stepAwaitBanner   = "await_banner"
	stepAwaitLinks    = "await_links"
	stepAwaitCode     = "await_code"
	stepAwaitMaxUses  = "await_max_uses"
	stepAwaitDuration = "await_duration"
	stepAwaitPercent  = "await_percent"
	stepAwaitReason   = "await_reason"
	stepAwaitMessage  = "await_message"
)

// 回调数据前缀，格式见各 handler
const (
	cbMemberConfirm = "member|confirm"
	cbDayPrefix     = "day|"    // day|<weekday 0-6>
	cbSlotPrefix    = "slot|"   // slot|2006-01-02|15:04
	cbCouponPrefix  = "coupon|" // coupon|<reservation_id>|yes|no
	cbPayPrefix     = "pay|"    // pay|<payment_id>|approve|reject
	cbVerifPrefix   = "verif|"  // verif|<request_id>|approve|reject_wrong|reject_incomplete
	cbDestPrefix    = "dest|"   // dest|<reservation_id>|has|no
)

// Router 聊天入口的显式分发器。
// 按 (交互类型, 当前向导状态) 精确路由到唯一 handler，
// 不依赖注册顺序。
type Router struct {
	gw            gateway.Gateway
	store         *state.Store
	users         *service.UserService
	booking       *service.BookingService
	payments      *service.PaymentService
	verifications *service.VerificationService
	discounts     *service.DiscountService
	broadcasts    *queue.Queue
	cfg           *config.Config
}

func NewRouter(
	gw gateway.Gateway,
	store *state.Store,
	users *service.UserService,
	booking *service.BookingService,
	payments *service.PaymentService,
	verifications *service.VerificationService,
	discounts *service.DiscountService,
	broadcasts *queue.Queue,
	cfg *config.Config,
) *Router {
	return &Router{
		gw:            gw,
		store:         store,
		users:         users,
		booking:       booking,
		payments:      payments,
		verifications: verifications,
		discounts:     discounts,
		broadcasts:    broadcasts,
		cfg:           cfg,
	}
}

// HandleUpdate 处理一次入站交互
func (r *Router) HandleUpdate(ctx context.Context, u *gateway.Update) error {
	// 每次交互都刷新用户档案
	if err := r.users.Touch(u.UserID, u.Username); err != nil {
		log.Printf("Touch user %d failed: %v", u.UserID, err)
	}

	switch u.Kind {
	case gateway.KindCommand:
		return r.handleCommand(ctx, u)
	case gateway.KindCallback:
		return r.handleCallback(ctx, u)
	case gateway.KindPhoto:
		return r.handlePhoto(ctx, u)
	case gateway.KindText:
		return r.handleText(ctx, u)
	}
	return nil
}

func (r *Router) handleCommand(ctx context.Context, u *gateway.Update) error {
	switch u.Command {
	case "start":
		return r.cmdStart(ctx, u)
	case "book":
		return r.cmdBook(ctx, u)
	case "account":
		return r.cmdAccount(ctx, u)
	case "rates":
		return r.cmdRates(ctx, u)
	case "contact":
		return r.cmdContact(ctx, u)
	case "verify":
		return r.cmdVerify(ctx, u)
	case "subscribe":
		return r.cmdSubscribe(ctx, u, true)
	case "unsubscribe":
		return r.cmdSubscribe(ctx, u, false)
	case "cancel":
		return r.cmdCancel(ctx, u)
	case "stats":
		return r.cmdStats(ctx, u)
	case "broadcast":
		return r.cmdBroadcast(ctx, u)
	case "discount":
		return r.cmdDiscount(ctx, u)
	}

	_, err := r.gw.SendMessage(ctx, u.ChatID, "未知命令，/start 查看菜单", nil)
	return err
}

// handleCallback 按前缀分发回调
func (r *Router) handleCallback(ctx context.Context, u *gateway.Update) error {
	data := u.CallbackData
	switch {
	case data == cbMemberConfirm:
		return r.onMemberConfirm(ctx, u)
	case strings.HasPrefix(data, cbDayPrefix):
		return r.onDaySelected(ctx, u)
	case strings.HasPrefix(data, cbSlotPrefix):
		return r.onSlotClick(ctx, u)
	case strings.HasPrefix(data, cbCouponPrefix):
		return r.onCouponChoice(ctx, u)
	case strings.HasPrefix(data, cbPayPrefix):
		return r.onPaymentDecision(ctx, u)
	case strings.HasPrefix(data, cbVerifPrefix):
		return r.onVerificationDecision(ctx, u)
	case strings.HasPrefix(data, cbDestPrefix):
		return r.onDestinationChoice(ctx, u)
	}
	return r.gw.AnswerCallback(ctx, u.CallbackID, "", false)
}

// handlePhoto 按活动流程路由图片
func (r *Router) handlePhoto(ctx context.Context, u *gateway.Update) error {
	sess, err := r.store.Get(ctx, u.ChatID)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}

	switch {
	case sess.Flow == flowBooking && sess.Step == stepAwaitReceipt:
		return r.onReceiptPhoto(ctx, u, sess)
	case sess.Flow == flowVerification && sess.Step == stepAwaitPhoto:
		return r.onVerificationPhoto(ctx, u, sess)
	case sess.Flow == flowPromo && sess.Step == stepAwaitBanner:
		return r.onBanner(ctx, u, sess)
	case sess.Flow == flowBroadcast && sess.Step == stepAwaitMessage:
		return r.onBroadcastMessage(ctx, u, sess)
	}
	return nil
}

// handleText 按活动流程路由文本
func (r *Router) handleText(ctx context.Context, u *gateway.Update) error {
	sess, err := r.store.Get(ctx, u.ChatID)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}

	switch {
	case sess.Flow == flowBooking && sess.Step == stepAwaitCoupon:
		return r.onCouponCode(ctx, u, sess)
	case sess.Flow == flowVerification && sess.Step == stepAwaitCard:
		return r.onVerificationCardNumber(ctx, u, sess)
	case sess.Flow == flowPromo && sess.Step == stepAwaitBanner:
		return r.onBanner(ctx, u, sess)
	case sess.Flow == flowDestination && sess.Step == stepAwaitLinks:
		return r.onDestinationLink(ctx, u, sess)
	case sess.Flow == flowDiscount:
		return r.onDiscountWizard(ctx, u, sess)
	case sess.Flow == flowRejectReason && sess.Step == stepAwaitReason:
		return r.onRejectReason(ctx, u, sess)
	case sess.Flow == flowBroadcast && sess.Step == stepAwaitMessage:
		return r.onBroadcastMessage(ctx, u, sess)
	}
	return nil
}

func (r *Router) isAdmin(userID int64) bool {
	if r.cfg.Bot.OwnerChatID != 0 && userID == r.cfg.Bot.OwnerChatID {
		return true
	}
	for _, id := range r.cfg.Bot.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (r *Router) adminIDs() []int64 {
	ids := append([]int64(nil), r.cfg.Bot.AdminIDs...)
	if r.cfg.Bot.OwnerChatID != 0 && !containsID(ids, r.cfg.Bot.OwnerChatID) {
		ids = append(ids, r.cfg.Bot.OwnerChatID)
	}
	return ids
}

// ensureMember 频道成员门禁。未配置频道时放行；
// 不是成员时发送引导消息并拦截后续处理。
func (r *Router) ensureMember(ctx context.Context, u *gateway.Update) (bool, error) {
	channel := r.cfg.Bot.RequiredChannel
	if channel == "" {
		return true, nil
	}

	member, err := r.gw.IsChannelMember(ctx, channel, u.UserID)
	if err != nil {
		log.Printf("Membership check for %d failed: %v", u.UserID, err)
		member = false
	}
	if member {
		return true, nil
	}

	_, err = r.gw.SendMessage(ctx, u.ChatID, "欢迎！请先加入频道后点击确认。",
		[][]gateway.Button{
			{{Text: "加入频道", URL: channelJoinURL(channel)}},
			{{Text: "确认加入", Data: cbMemberConfirm}},
		})
	return false, err
}

func channelJoinURL(channel string) string {
	if strings.HasPrefix(channel, "@") {
		return "https://t.me/" + strings.TrimPrefix(channel, "@")
	}
	return channel
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
