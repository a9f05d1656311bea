package state

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Session 单个会话的向导状态：当前流程、步骤和已采集的数据。
// 这是显式的有限状态机值，按 chat id 存放，和持久化实体彻底分开。
type Session struct {
	Flow string            `json:"flow"`
	Step string            `json:"step"`
	Data map[string]string `json:"data,omitempty"`
}

func NewSession(flow, step string) *Session {
	return &Session{Flow: flow, Step: step, Data: make(map[string]string)}
}

func (s *Session) Set(key, value string) {
	if s.Data == nil {
		s.Data = make(map[string]string)
	}
	s.Data[key] = value
}

func (s *Session) Get(key string) string {
	return s.Data[key]
}

func (s *Session) SetInt64(key string, value int64) {
	s.Set(key, strconv.FormatInt(value, 10))
}

func (s *Session) Int64(key string) int64 {
	v, _ := strconv.ParseInt(s.Data[key], 10, 64)
	return v
}

// Store 向导状态的 Redis TTL 存储。
// 丢失只会让用户重走当前流程，不影响已落库的实体。
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func key(chatID int64) string {
	return fmt.Sprintf("wizard:%d", chatID)
}

// Put 覆盖写入会话状态并刷新 TTL
func (s *Store) Put(ctx context.Context, chatID int64, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.client.Set(ctx, key(chatID), data, s.ttl).Err()
}

// Get 读取会话状态，不存在返回 nil
func (s *Store) Get(ctx context.Context, chatID int64) (*Session, error) {
	data, err := s.client.Get(ctx, key(chatID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		// 坏数据当作无状态处理，让用户重新开始流程
		return nil, nil
	}
	return &sess, nil
}

// Clear 结束流程
func (s *Store) Clear(ctx context.Context, chatID int64) error {
	return s.client.Del(ctx, key(chatID)).Err()
}
