package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event 表示一次记录变更。
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Key        string    `json:"key"`
	Data       any       `json:"data,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent 构造带有唯一 ID 与时间戳的事件。
func NewEvent(eventType, key string, data any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Key:        key,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}

// Encode 将事件序列化为 JSON。
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher 负责投递变更事件。
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Noop 丢弃所有事件，是未配置驱动时的默认实现。
type Noop struct{}

// Publish 实现 Publisher。
func (Noop) Publish(context.Context, Event) error { return nil }

// Close 实现 Publisher。
func (Noop) Close() error { return nil }
