package gateway

import (
	"context"
	"log"
	"sync/atomic"
)

// LogGateway 把所有出站消息写入日志的兜底实现。
// 未配置真实聊天平台适配器时 server 用它启动，
// 管理 API、提醒和清扫任务照常工作。
type LogGateway struct {
	nextID int64
}

func NewLogGateway() *LogGateway {
	return &LogGateway{}
}

func (g *LogGateway) SendMessage(_ context.Context, chatID int64, text string, _ [][]Button) (int64, error) {
	id := atomic.AddInt64(&g.nextID, 1)
	log.Printf("gateway: send to %d: %s", chatID, text)
	return id, nil
}

func (g *LogGateway) SendPhoto(_ context.Context, chatID int64, photoRef, caption string, _ [][]Button) (int64, error) {
	id := atomic.AddInt64(&g.nextID, 1)
	log.Printf("gateway: send photo %s to %d: %s", photoRef, chatID, caption)
	return id, nil
}

func (g *LogGateway) EditCaption(_ context.Context, chatID, messageID int64, caption string) error {
	log.Printf("gateway: edit caption of %d/%d: %s", chatID, messageID, caption)
	return nil
}

func (g *LogGateway) CopyMessage(_ context.Context, toChatID, fromChatID, messageID int64) error {
	log.Printf("gateway: copy %d/%d to %d", fromChatID, messageID, toChatID)
	return nil
}

func (g *LogGateway) ForwardMessage(_ context.Context, toChatID, fromChatID, messageID int64) error {
	log.Printf("gateway: forward %d/%d to %d", fromChatID, messageID, toChatID)
	return nil
}

func (g *LogGateway) AnswerCallback(_ context.Context, callbackID, text string, _ bool) error {
	log.Printf("gateway: answer callback %s: %s", callbackID, text)
	return nil
}

func (g *LogGateway) IsChannelMember(_ context.Context, _ string, _ int64) (bool, error) {
	return true, nil
}
