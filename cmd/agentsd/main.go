package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agents-gateway/internal/agent"
	"agents-gateway/internal/api"
	"agents-gateway/internal/config"
	"agents-gateway/internal/events"
	"agents-gateway/internal/observability/metrics"
	"agents-gateway/internal/proxy"
	"agents-gateway/internal/storage/sqlstore"
	"agents-gateway/pkg/logger"
)

// main 是 agents 网关的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("agentsd 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(os.Getenv("AGENTS_CONFIG"))
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: cfg.Log.OutputPaths,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Log.Audit.Enabled,
			Path:       cfg.Log.Audit.Path,
			MaxSizeMB:  cfg.Log.Audit.MaxSizeMB,
			MaxBackups: cfg.Log.Audit.MaxBackups,
			MaxAgeDays: cfg.Log.Audit.MaxAgeDays,
		},
	}); err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer logger.Sync()
	log := logger.Named("agentsd")

	var reg *metrics.Registry
	if cfg.Metrics.IsEnabled() {
		reg = metrics.NewRegistry()
	}

	store, closeStore, err := openStore(ctx, cfg.Database, reg)
	if err != nil {
		return err
	}
	defer closeStore()

	publisher, err := openPublisher(ctx, cfg.Events)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("close_publisher_failed", "error", err.Error())
		}
	}()

	relay, err := proxy.NewClient(proxy.Config{
		Endpoint: cfg.Proxy.Endpoint,
		Timeout:  cfg.Proxy.Timeout(),
	})
	if err != nil {
		return err
	}

	svc := agent.NewService(store, agent.WithPublisher(publisher))
	opts := []api.Option{
		api.WithRelay(relay),
		api.WithCORSOrigins(cfg.Server.CORSAllowedOrigins),
		api.WithTimeouts(
			time.Duration(cfg.Server.ReadHeaderTimeoutSeconds)*time.Second,
			time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second,
		),
	}
	if reg != nil {
		opts = append(opts, api.WithMetrics(reg, cfg.Metrics.Path))
	}
	server := api.NewServer(cfg.Server.Address, svc, opts...)

	log.Info("agentsd_started",
		"address", cfg.Server.Address,
		"db_driver", cfg.Database.Driver,
		"events_driver", cfg.Events.Driver,
	)
	err = server.Start(ctx)
	log.Info("agentsd_stopped")
	return err
}

// openStore 按配置选择存储。SQL 驱动返回的关闭函数会释放整个连接池。
func openStore(ctx context.Context, cfg config.DatabaseConfig, reg *metrics.Registry) (agent.Store, func(), error) {
	if cfg.Driver == "memory" {
		return agent.NewMemoryStore(), func() {}, nil
	}

	dsn := cfg.DSN
	if dsn == "" {
		dsn = sqlstore.BuildDSN(cfg.Driver, sqlstore.Endpoint{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			Database: cfg.Name,
		})
	}
	pool, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver:          cfg.Driver,
		DSN:             dsn,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetimeSeconds) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.ConnMaxIdleTimeSeconds) * time.Second,
		AcquireTimeout:  time.Duration(cfg.AcquireTimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, nil, err
	}
	if reg != nil {
		if err := reg.RegisterPool(pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("注册连接池指标失败: %w", err)
		}
	}
	closer := func() {
		if err := pool.Close(); err != nil {
			logger.Named("agentsd").Warn("close_pool_failed", "error", err.Error())
		}
	}
	return sqlstore.NewRepository(pool), closer, nil
}

func openPublisher(ctx context.Context, cfg config.EventsConfig) (events.Publisher, error) {
	switch cfg.Driver {
	case "memory":
		// 本地开发时事件只写入日志。
		pub := events.NewMemoryPublisher(1024)
		go func() {
			log := logger.Named("events")
			for ev := range pub.Events() {
				log.Info("agent_event", "id", ev.ID, "type", ev.Type, "key", ev.Key)
			}
		}()
		return pub, nil
	case "redis":
		return events.NewRedisPublisher(ctx, events.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
		})
	case "rabbitmq":
		return events.NewRabbitMQPublisher(events.RabbitMQConfig{
			URL:     cfg.RabbitMQ.URL,
			Queue:   cfg.RabbitMQ.Queue,
			Durable: cfg.RabbitMQ.Durable,
		})
	default:
		return events.Noop{}, nil
	}
}
