package testutil

import (
	"context"
	"sync"

	"github.com/qs3c/resv_go_server/internal/gateway"
)

// SentMessage 记录一次出站消息
type SentMessage struct {
	ChatID   int64
	Text     string
	PhotoRef string
	Buttons  [][]gateway.Button
}

// FakeGateway 内存网关，记录出站消息，按 ChatID 注入发送错误
type FakeGateway struct {
	mu       sync.Mutex
	messages []SentMessage
	copies   []SentMessage
	failWith map[int64]error
	members  map[int64]bool
	nextID   int64
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		failWith: make(map[int64]error),
		members:  make(map[int64]bool),
	}
}

// FailFor 让发往 chatID 的消息返回指定错误
func (g *FakeGateway) FailFor(chatID int64, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failWith[chatID] = err
}

// SetMember 设置频道成员身份
func (g *FakeGateway) SetMember(userID int64, member bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.members[userID] = member
}

// Messages 返回已发送消息的副本
func (g *FakeGateway) Messages() []SentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]SentMessage, len(g.messages))
	copy(out, g.messages)
	return out
}

// MessagesTo 返回发往 chatID 的消息
func (g *FakeGateway) MessagesTo(chatID int64) []SentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []SentMessage
	for _, m := range g.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

// Copies 返回已复制的消息
func (g *FakeGateway) Copies() []SentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]SentMessage, len(g.copies))
	copy(out, g.copies)
	return out
}

func (g *FakeGateway) SendMessage(_ context.Context, chatID int64, text string, buttons [][]gateway.Button) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err, ok := g.failWith[chatID]; ok {
		return 0, err
	}
	g.nextID++
	g.messages = append(g.messages, SentMessage{ChatID: chatID, Text: text, Buttons: buttons})
	return g.nextID, nil
}

func (g *FakeGateway) SendPhoto(_ context.Context, chatID int64, photoRef, caption string, buttons [][]gateway.Button) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err, ok := g.failWith[chatID]; ok {
		return 0, err
	}
	g.nextID++
	g.messages = append(g.messages, SentMessage{ChatID: chatID, Text: caption, PhotoRef: photoRef, Buttons: buttons})
	return g.nextID, nil
}

func (g *FakeGateway) EditCaption(_ context.Context, _, _ int64, _ string) error {
	return nil
}

func (g *FakeGateway) CopyMessage(_ context.Context, toChatID, _, _ int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err, ok := g.failWith[toChatID]; ok {
		return err
	}
	g.copies = append(g.copies, SentMessage{ChatID: toChatID})
	return nil
}

func (g *FakeGateway) ForwardMessage(ctx context.Context, toChatID, fromChatID, messageID int64) error {
	return g.CopyMessage(ctx, toChatID, fromChatID, messageID)
}

func (g *FakeGateway) AnswerCallback(_ context.Context, _, _ string, _ bool) error {
	return nil
}

func (g *FakeGateway) IsChannelMember(_ context.Context, _ string, userID int64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	member, ok := g.members[userID]
	if !ok {
		return true, nil
	}
	return member, nil
}
