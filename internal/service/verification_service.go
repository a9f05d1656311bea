package service

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/resv_go_server/internal/model"
	"github.com/qs3c/resv_go_server/internal/repository"
)

var (
	ErrInvalidCard     = errors.New("卡号须为16位数字")
	ErrBadRejectReason = errors.New("未知的驳回原因")
)

// 驳回原因标签
const (
	RejectReasonWrong      = "wrong"
	RejectReasonIncomplete = "incomplete"
)

var cardNumberRe = regexp.MustCompile(`^[0-9]{16}$`)

// NormalizeCardNumber 去掉空格和连字符后校验16位数字
func NormalizeCardNumber(raw string) (string, error) {
	cleaned := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.TrimSpace(raw))
	if !cardNumberRe.MatchString(cleaned) {
		return "", ErrInvalidCard
	}
	return cleaned, nil
}

type VerificationService struct {
	verifRepo *repository.VerificationRepository
}

func NewVerificationService(verifRepo *repository.VerificationRepository) *VerificationService {
	return &VerificationService{verifRepo: verifRepo}
}

// Submit 提交验证申请：卡照片 + 卡号
func (s *VerificationService) Submit(userID int64, username *string, rawCard, photoRef string) (*model.VerificationRequest, error) {
	card, err := NormalizeCardNumber(rawCard)
	if err != nil {
		return nil, err
	}

	req := &model.VerificationRequest{
		UserID:     userID,
		Username:   username,
		CardNumber: card,
		PhotoRef:   photoRef,
		Status:     model.ReviewPending,
	}
	if err := s.verifRepo.Create(req); err != nil {
		return nil, err
	}
	return req, nil
}

// Approve 通过验证并落已验证卡，解锁购买资格
func (s *VerificationService) Approve(requestID, reviewerID int64) (*model.VerificationRequest, error) {
	req, err := s.verifRepo.GetByID(requestID)
	if err != nil {
		return nil, err
	}

	if err := s.verifRepo.Decide(requestID, model.ReviewApproved, reviewerID, nil); err != nil {
		return nil, err
	}

	card := &model.VerifiedCard{
		UserID:     req.UserID,
		Username:   req.Username,
		CardNumber: req.CardNumber,
		VerifiedAt: time.Now(),
		VerifierID: &reviewerID,
	}
	if err := s.verifRepo.UpsertCard(card); err != nil {
		return nil, err
	}

	return s.verifRepo.GetByID(requestID)
}

// Reject 驳回验证。申请保留，用户可重新提交。
func (s *VerificationService) Reject(requestID, reviewerID int64, reason string) (*model.VerificationRequest, error) {
	if reason != RejectReasonWrong && reason != RejectReasonIncomplete {
		return nil, ErrBadRejectReason
	}

	if _, err := s.verifRepo.GetByID(requestID); err != nil {
		return nil, err
	}

	if err := s.verifRepo.Decide(requestID, model.ReviewRejected, reviewerID, &reason); err != nil {
		return nil, err
	}

	return s.verifRepo.GetByID(requestID)
}

// CardNumber 已验证卡号，未验证返回 ok=false
func (s *VerificationService) CardNumber(userID int64) (string, bool, error) {
	card, err := s.verifRepo.VerifiedCard(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return card.CardNumber, true, nil
}

func (s *VerificationService) ListPending() ([]model.VerificationRequest, error) {
	return s.verifRepo.ListPending()
}

func (s *VerificationService) Get(requestID int64) (*model.VerificationRequest, error) {
	return s.verifRepo.GetByID(requestID)
}
