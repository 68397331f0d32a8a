package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisConfig 描述 Redis 事件列表的连接参数。
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Key      string
}

// RedisPublisher 将事件 LPUSH 到 Redis list，由下游自行 BRPOP 消费。
type RedisPublisher struct {
	client *redis.Client
	key    string
}

// NewRedisPublisher 创建 Redis 发布器并检查连通性。
func NewRedisPublisher(ctx context.Context, cfg RedisConfig) (*RedisPublisher, error) {
	if cfg.Address == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	key := cfg.Key
	if key == "" {
		key = "agents:events"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return newRedisPublisher(client, key), nil
}

func newRedisPublisher(client *redis.Client, key string) *RedisPublisher {
	return &RedisPublisher{client: client, key: key}
}

// Publish 将事件写入 Redis。
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := event.Encode()
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}
	if err := p.client.LPush(ctx, p.key, payload).Err(); err != nil {
		return fmt.Errorf("Redis 发布事件失败: %w", err)
	}
	return nil
}

// Close 关闭 Redis 连接。
func (p *RedisPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
