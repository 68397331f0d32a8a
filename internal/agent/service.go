package agent

import (
	"context"
	"log/slog"

	"agents-gateway/internal/events"
	xerrors "agents-gateway/internal/errors"
	"agents-gateway/pkg/logger"
)

// 变更事件类型。
const (
	EventCreated           = "agent.created"
	EventCommissionUpdated = "agent.commission_updated"
	EventReplaced          = "agent.replaced"
	EventDeleted           = "agent.deleted"
)

// Service 在 Store 之上完成请求校验与变更事件投递。
type Service struct {
	store     Store
	publisher events.Publisher
	log       *slog.Logger
}

// Option 定义 Service 的可选配置。
type Option func(*Service)

// WithPublisher 指定变更事件的发布器。
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLogger 指定日志实例。
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService 构造 agent 服务。
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		publisher: events.Noop{},
		log:       logger.Named("agent"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// ListAgents 返回全部 agent。
func (s *Service) ListAgents(ctx context.Context) ([]Agent, error) {
	agents, err := s.store.ListAgents(ctx)
	if err != nil {
		return nil, err
	}
	if agents == nil {
		agents = []Agent{}
	}
	return agents, nil
}

// GetAgent 按 AGENT_CODE 返回单个 agent。
func (s *Service) GetAgent(ctx context.Context, code string) (*Agent, error) {
	return s.store.GetAgent(ctx, code)
}

// ListCompanies 返回全部公司。
func (s *Service) ListCompanies(ctx context.Context) ([]Company, error) {
	companies, err := s.store.ListCompanies(ctx)
	if err != nil {
		return nil, err
	}
	if companies == nil {
		companies = []Company{}
	}
	return companies, nil
}

// CreateAgent 校验请求后插入新行，返回新 agent 的主键。
func (s *Service) CreateAgent(ctx context.Context, req AgentRequest) (string, error) {
	agent, err := req.Validate()
	if err != nil {
		return "", err
	}
	id, err := s.store.CreateAgent(ctx, agent)
	if err != nil {
		return "", err
	}
	s.publish(ctx, EventCreated, id, agent)
	return id, nil
}

// PatchCommission 只更新 code 对应行的 COMMISSION。
func (s *Service) PatchCommission(ctx context.Context, code string, req CommissionRequest) error {
	commission, err := req.Validate()
	if err != nil {
		return err
	}
	if err := s.store.UpdateCommission(ctx, code, commission); err != nil {
		return err
	}
	s.publish(ctx, EventCommissionUpdated, code, map[string]any{"COMMISSION": commission})
	return nil
}

// ReplaceAgent 用请求体整体替换 code 对应的行；请求体中的 agent_code 是新值。
func (s *Service) ReplaceAgent(ctx context.Context, code string, req AgentRequest) error {
	agent, err := req.Validate()
	if err != nil {
		return err
	}
	if err := s.store.ReplaceAgent(ctx, code, agent); err != nil {
		return err
	}
	s.publish(ctx, EventReplaced, code, agent)
	return nil
}

// DeleteAgent 删除 code 对应的行。
func (s *Service) DeleteAgent(ctx context.Context, code string) error {
	if err := s.store.DeleteAgent(ctx, code); err != nil {
		return err
	}
	s.publish(ctx, EventDeleted, code, nil)
	return nil
}

// Ping 探测存储是否可用。不支持探测的 Store 视为可用。
func (s *Service) Ping(ctx context.Context) error {
	if p, ok := s.store.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return xerrors.Wrap(xerrors.CodeStorageFailure, err, "")
		}
	}
	return nil
}

// publish 投递失败只记录日志，不影响请求结果。
func (s *Service) publish(ctx context.Context, eventType, key string, data any) {
	if err := s.publisher.Publish(ctx, events.NewEvent(eventType, key, data)); err != nil {
		l := s.log
		if id := logger.RequestID(ctx); id != "" {
			l = l.With("request_id", id)
		}
		l.Warn("publish_event_failed",
			"type", eventType,
			"key", key,
			"error", err.Error(),
		)
	}
}
