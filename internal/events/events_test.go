package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestMemoryPublisher(t *testing.T) {
	pub := NewMemoryPublisher(2)
	ctx := context.Background()

	if err := pub.Publish(ctx, NewEvent("agent.created", "A001", nil)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := pub.Publish(ctx, NewEvent("agent.deleted", "A001", nil)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	full, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if err := pub.Publish(full, NewEvent("agent.replaced", "A001", nil)); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded on full buffer, got %v", err)
	}

	got := pub.Drain()
	if len(got) != 2 || got[0].Type != "agent.created" || got[1].Type != "agent.deleted" {
		t.Fatalf("unexpected events: %+v", got)
	}

	if err := pub.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := pub.Publish(ctx, NewEvent("x", "y", nil)); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestMemoryPublisherCloseUnblocksPublish(t *testing.T) {
	pub := NewMemoryPublisher(1)
	ctx := context.Background()
	if err := pub.Publish(ctx, NewEvent("agent.created", "A001", nil)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	published := make(chan error, 1)
	go func() { published <- pub.Publish(ctx, NewEvent("agent.deleted", "A001", nil)) }()
	time.Sleep(20 * time.Millisecond)

	closed := make(chan error, 1)
	go func() { closed <- pub.Close() }()
	select {
	case err := <-closed:
		if err != nil {
			t.Fatalf("close: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Close blocked behind a pending Publish")
	}

	select {
	case err := <-published:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("expected ErrClosed for pending publish, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("pending Publish not released by Close")
	}

	var types []string
	for ev := range pub.Events() {
		types = append(types, ev.Type)
	}
	if len(types) != 1 || types[0] != "agent.created" {
		t.Fatalf("unexpected buffered events: %v", types)
	}
}

func TestEventEncode(t *testing.T) {
	ev := NewEvent("agent.commission_updated", "A002", map[string]string{"commission": "0.2"})
	if ev.ID == "" || ev.OccurredAt.IsZero() {
		t.Fatalf("event not initialised: %+v", ev)
	}
	raw, err := ev.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["type"] != "agent.commission_updated" || decoded["key"] != "A002" {
		t.Fatalf("unexpected payload: %s", raw)
	}
}

func TestNoopPublisher(t *testing.T) {
	var pub Publisher = Noop{}
	if err := pub.Publish(context.Background(), NewEvent("a", "b", nil)); err != nil {
		t.Fatalf("noop publish: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("noop close: %v", err)
	}
}

func TestRedisPublisherReportsUnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	pub := newRedisPublisher(client, "agents:events")
	defer pub.Close()

	if err := pub.Publish(context.Background(), NewEvent("agent.created", "A001", nil)); err == nil {
		t.Fatalf("expected publish error against closed port")
	}
}

func TestConstructorsValidateConfig(t *testing.T) {
	if _, err := NewRedisPublisher(context.Background(), RedisConfig{}); err == nil {
		t.Fatalf("expected redis address error")
	}
	if _, err := NewRabbitMQPublisher(RabbitMQConfig{}); err == nil {
		t.Fatalf("expected rabbitmq url error")
	}
}
