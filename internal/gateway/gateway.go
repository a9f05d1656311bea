package gateway

import (
	"context"
	"errors"
)

// 发送失败的可识别原因。ErrBlocked 表示对方已屏蔽，
// 群发时据此自动退订，不中断整体流程。
var (
	ErrBlocked    = errors.New("recipient blocked the sender")
	ErrBadRequest = errors.New("gateway rejected the request")
)

// UpdateKind 入站交互类型
type UpdateKind int

const (
	KindCommand UpdateKind = iota
	KindText
	KindPhoto
	KindCallback
)

// Update 一次入站交互。字段按 Kind 选填：
// Command 仅命令；PhotoRef 仅图片；CallbackID/CallbackData 仅回调。
type Update struct {
	Kind         UpdateKind
	UserID       int64
	ChatID       int64
	MessageID    int64
	Username     string
	Command      string
	Text         string
	PhotoRef     string
	CallbackID   string
	CallbackData string
}

// Button 内联按钮。Data 与 URL 二选一
type Button struct {
	Text string
	Data string
	URL  string
}

// Gateway 聊天传输层的抽象。具体平台适配器在部署侧注入，
// 核心只依赖这组能力。
type Gateway interface {
	SendMessage(ctx context.Context, chatID int64, text string, buttons [][]Button) (int64, error)
	SendPhoto(ctx context.Context, chatID int64, photoRef, caption string, buttons [][]Button) (int64, error)
	EditCaption(ctx context.Context, chatID, messageID int64, caption string) error
	CopyMessage(ctx context.Context, toChatID, fromChatID, messageID int64) error
	ForwardMessage(ctx context.Context, toChatID, fromChatID, messageID int64) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
	IsChannelMember(ctx context.Context, channel string, userID int64) (bool, error)
}
