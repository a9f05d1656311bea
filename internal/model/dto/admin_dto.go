package dto

// DecisionRequest 审批裁决请求。
// 支付驳回时 Reason 原样转达用户；
// 验证驳回时 Reason 只接受 wrong / incomplete。
type DecisionRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approve reject"`
	Reason   string `json:"reason"`
}

// CreateDiscountRequest 创建折扣码请求
type CreateDiscountRequest struct {
	Code     string `json:"code" binding:"required"`
	Percent  int    `json:"percent" binding:"required,min=1,max=100"`
	MaxUses  int    `json:"max_uses" binding:"required,min=1"`
	Validity string `json:"validity" binding:"required"` // 30d / 12h / 90m
}
