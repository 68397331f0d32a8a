package agent

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store 抽象 agents 与 company 两张表的访问。每个方法对应一条参数化语句；
// 未命中返回 NOT_FOUND，其余失败统一返回 STORAGE_FAILURE。
type Store interface {
	ListAgents(ctx context.Context) ([]Agent, error)
	GetAgent(ctx context.Context, code string) (*Agent, error)
	ListCompanies(ctx context.Context) ([]Company, error)
	// CreateAgent 返回新行的主键，即其 AGENT_CODE。
	CreateAgent(ctx context.Context, agent Agent) (string, error)
	UpdateCommission(ctx context.Context, code string, commission decimal.Decimal) error
	// ReplaceAgent 覆盖 code 所在行的全部六列，允许修改 AGENT_CODE 本身。
	ReplaceAgent(ctx context.Context, code string, agent Agent) error
	DeleteAgent(ctx context.Context, code string) error
}

// Pinger 由能够探测后端可用性的 Store 实现。
type Pinger interface {
	Ping(ctx context.Context) error
}
