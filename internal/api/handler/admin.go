package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qs3c/resv_go_server/internal/api/middleware"
	"github.com/qs3c/resv_go_server/internal/model/dto"
	"github.com/qs3c/resv_go_server/internal/pkg/response"
	"github.com/qs3c/resv_go_server/internal/repository"
	"github.com/qs3c/resv_go_server/internal/service"
)

// AdminHandler 管理后台的审批与运营接口。
// 与聊天侧共用同一批服务，裁决语义完全一致。
type AdminHandler struct {
	users         *service.UserService
	booking       *service.BookingService
	payments      *service.PaymentService
	verifications *service.VerificationService
	discounts     *service.DiscountService
}

func NewAdminHandler(
	users *service.UserService,
	booking *service.BookingService,
	payments *service.PaymentService,
	verifications *service.VerificationService,
	discounts *service.DiscountService,
) *AdminHandler {
	return &AdminHandler{
		users:         users,
		booking:       booking,
		payments:      payments,
		verifications: verifications,
		discounts:     discounts,
	}
}

// Stats 运营统计
// GET /api/v1/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.users.Stats()
	if err != nil {
		response.ServerError(c, "")
		return
	}
	response.Success(c, stats)
}

// Availability 某日时段占用情况
// GET /api/v1/availability?date=2006-01-02
func (h *AdminHandler) Availability(c *gin.Context) {
	sched := h.booking.Schedule()
	date := sched.TargetDate(time.Now())

	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, sched.Location())
		if err != nil {
			response.ParamError(c, "日期格式应为 2006-01-02")
			return
		}
		date = parsed
	}

	day, err := h.booking.Availability(date)
	if err != nil {
		response.ServerError(c, "")
		return
	}
	response.Success(c, day)
}

// PendingPayments 待审支付申请
// GET /api/v1/payments/pending
func (h *AdminHandler) PendingPayments(c *gin.Context) {
	pending, err := h.payments.ListPending()
	if err != nil {
		response.ServerError(c, "")
		return
	}
	response.Success(c, pending)
}

// DecidePayment 裁决支付申请
// POST /api/v1/payments/:id/decision
func (h *AdminHandler) DecidePayment(c *gin.Context) {
	paymentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的申请 ID")
		return
	}

	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	reviewerID, _ := middleware.GetAdminID(c)

	if req.Decision == "approve" {
		pay, err := h.payments.Approve(paymentID, reviewerID)
		if err != nil {
			h.decisionError(c, err)
			return
		}
		response.Success(c, pay)
		return
	}

	if req.Reason == "" {
		response.ParamError(c, "驳回必须填写原因")
		return
	}
	pay, err := h.payments.Reject(paymentID, reviewerID, req.Reason)
	if err != nil {
		h.decisionError(c, err)
		return
	}
	response.Success(c, pay)
}

// PendingVerifications 待审银行卡验证
// GET /api/v1/verifications/pending
func (h *AdminHandler) PendingVerifications(c *gin.Context) {
	pending, err := h.verifications.ListPending()
	if err != nil {
		response.ServerError(c, "")
		return
	}
	response.Success(c, pending)
}

// DecideVerification 裁决银行卡验证
// POST /api/v1/verifications/:id/decision
func (h *AdminHandler) DecideVerification(c *gin.Context) {
	requestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的申请 ID")
		return
	}

	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	reviewerID, _ := middleware.GetAdminID(c)

	if req.Decision == "approve" {
		vr, err := h.verifications.Approve(requestID, reviewerID)
		if err != nil {
			h.decisionError(c, err)
			return
		}
		response.Success(c, vr)
		return
	}

	vr, err := h.verifications.Reject(requestID, reviewerID, req.Reason)
	if err != nil {
		if errors.Is(err, service.ErrBadRejectReason) {
			response.ParamError(c, err.Error())
			return
		}
		h.decisionError(c, err)
		return
	}
	response.Success(c, vr)
}

// ListDiscounts 折扣码列表
// GET /api/v1/discounts
func (h *AdminHandler) ListDiscounts(c *gin.Context) {
	codes, err := h.discounts.List()
	if err != nil {
		response.ServerError(c, "")
		return
	}
	response.Success(c, codes)
}

// CreateDiscount 创建折扣码
// POST /api/v1/discounts
func (h *AdminHandler) CreateDiscount(c *gin.Context) {
	var req dto.CreateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	validity, err := service.ParseValidity(req.Validity)
	if err != nil {
		response.ParamError(c, err.Error())
		return
	}

	createdBy, _ := middleware.GetAdminID(c)
	dc, err := h.discounts.Create(req.Code, req.Percent, req.MaxUses, validity, createdBy)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrCodeExists):
			response.ConflictError(c, err.Error())
		case errors.Is(err, service.ErrBadCode),
			errors.Is(err, service.ErrBadPercent),
			errors.Is(err, service.ErrBadMaxUses),
			errors.Is(err, service.ErrBadDuration):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, dc)
}

// DeactivateDiscount 停用折扣码
// DELETE /api/v1/discounts/:code
func (h *AdminHandler) DeactivateDiscount(c *gin.Context) {
	if err := h.discounts.Deactivate(c.Param("code")); err != nil {
		response.ServerError(c, "")
		return
	}
	response.Success(c, nil)
}

func (h *AdminHandler) decisionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrAlreadyReviewed):
		response.ReviewedError(c, "")
	case errors.Is(err, gorm.ErrRecordNotFound):
		response.NotFoundError(c, "")
	default:
		response.ServerError(c, "")
	}
}
