package service

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/resv_go_server/internal/model"
	"github.com/qs3c/resv_go_server/internal/repository"
)

var (
	ErrBadCode     = errors.New("折扣码须为2-64位字母数字、下划线或连字符")
	ErrBadPercent  = errors.New("折扣比例须在1-100之间")
	ErrBadMaxUses  = errors.New("可用次数须大于0")
	ErrBadDuration = errors.New("有效期格式不正确，如 30d / 12h / 90m")
)

// 校验结果原因
const (
	ReasonOK       = "ok"
	ReasonNotFound = "not_found"
	ReasonInactive = "inactive"
	ReasonExpired  = "expired"
	ReasonUsedUp   = "used_up"
)

var (
	codeRe     = regexp.MustCompile(`^[A-Za-z0-9_-]{2,64}$`)
	durationRe = regexp.MustCompile(`^(\d+)\s*([dhm])$`)
)

// ParseValidity 解析 "30d"、"12h"、"90m" 形式的有效期
func ParseValidity(raw string) (time.Duration, error) {
	m := durationRe.FindStringSubmatch(strings.TrimSpace(strings.ToLower(raw)))
	if m == nil {
		return 0, ErrBadDuration
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, ErrBadDuration
	}
	switch m[2] {
	case "d":
		return time.Duration(n) * 24 * time.Hour, nil
	case "h":
		return time.Duration(n) * time.Hour, nil
	default:
		return time.Duration(n) * time.Minute, nil
	}
}

type DiscountService struct {
	discountRepo *repository.DiscountRepository
}

func NewDiscountService(discountRepo *repository.DiscountRepository) *DiscountService {
	return &DiscountService{discountRepo: discountRepo}
}

// Create 创建折扣码。码存小写，重复返回 repository.ErrCodeExists。
func (s *DiscountService) Create(code string, percent, maxUses int, validity time.Duration, createdBy int64) (*model.DiscountCode, error) {
	code = strings.TrimSpace(code)
	if !codeRe.MatchString(code) {
		return nil, ErrBadCode
	}
	if percent < 1 || percent > 100 {
		return nil, ErrBadPercent
	}
	if maxUses <= 0 {
		return nil, ErrBadMaxUses
	}
	if validity <= 0 {
		return nil, ErrBadDuration
	}

	dc := &model.DiscountCode{
		Code:      strings.ToLower(code),
		Percent:   percent,
		MaxUses:   maxUses,
		CreatedBy: createdBy,
		ExpiresAt: time.Now().Add(validity),
		IsActive:  true,
	}
	if err := s.discountRepo.Create(dc); err != nil {
		return nil, err
	}
	return dc, nil
}

// Validate 录入折扣码时的即时校验。
// 只给反馈，不占用次数，真正扣减发生在支付审批通过时。
func (s *DiscountService) Validate(code string, now time.Time) (bool, string, int, error) {
	dc, err := s.discountRepo.GetByCode(normalize(code))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ReasonNotFound, 0, nil
		}
		return false, "", 0, err
	}

	switch {
	case !dc.IsActive:
		return false, ReasonInactive, 0, nil
	case !now.Before(dc.ExpiresAt):
		return false, ReasonExpired, 0, nil
	case dc.UsedCount >= dc.MaxUses:
		return false, ReasonUsedUp, 0, nil
	}
	return true, ReasonOK, dc.Percent, nil
}

// Consume 支付审批通过时核销，委托给仓储层的原子条件自增
func (s *DiscountService) Consume(code string, now time.Time) (bool, error) {
	return s.discountRepo.Consume(normalize(code), now)
}

func (s *DiscountService) List() ([]model.DiscountCode, error) {
	return s.discountRepo.List()
}

func (s *DiscountService) Deactivate(code string) error {
	return s.discountRepo.Deactivate(normalize(code))
}

func normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// DescribeReason 用户提示文案
func DescribeReason(reason string) string {
	switch reason {
	case ReasonNotFound:
		return "折扣码不存在"
	case ReasonInactive:
		return "折扣码已停用"
	case ReasonExpired:
		return "折扣码已过期"
	case ReasonUsedUp:
		return "折扣码已被用完"
	default:
		return fmt.Sprintf("折扣码状态异常: %s", reason)
	}
}
