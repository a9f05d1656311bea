package service

import (
	"time"

	"github.com/qs3c/resv_go_server/internal/model"
	"github.com/qs3c/resv_go_server/internal/repository"
)

type UserService struct {
	userRepo  *repository.UserRepository
	statsRepo *repository.StatsRepository
}

func NewUserService(userRepo *repository.UserRepository, statsRepo *repository.StatsRepository) *UserService {
	return &UserService{userRepo: userRepo, statsRepo: statsRepo}
}

// Touch 每次交互调用：首次建档，其后刷新活跃时间
func (s *UserService) Touch(userID int64, username string) error {
	var name *string
	if username != "" {
		name = &username
	}
	return s.userRepo.Upsert(userID, name, time.Now())
}

func (s *UserService) Get(userID int64) (*model.User, error) {
	return s.userRepo.GetByID(userID)
}

func (s *UserService) Subscribe(userID int64) error {
	return s.userRepo.SetSubscription(userID, true, time.Now())
}

func (s *UserService) Unsubscribe(userID int64) error {
	return s.userRepo.SetSubscription(userID, false, time.Now())
}

// Subscribers 群发收件人
func (s *UserService) Subscribers() ([]int64, error) {
	return s.userRepo.ListSubscribedIDs()
}

// Stats 运营总览
func (s *UserService) Stats() (*repository.AdminStats, error) {
	return s.statsRepo.AdminStats(time.Now())
}
