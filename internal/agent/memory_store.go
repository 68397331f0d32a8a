package agent

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	xerrors "agents-gateway/internal/errors"
)

// MemoryStore 是 memory 驱动的 Store 实现，用于本地开发与测试。
// AGENT_CODE 的唯一性与数据库主键约束一致。
type MemoryStore struct {
	mu        sync.RWMutex
	agents    map[string]Agent
	companies []Company
}

// NewMemoryStore 创建一个空的内存存储。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{agents: make(map[string]Agent)}
}

// SeedCompanies 写入只读的公司数据。
func (m *MemoryStore) SeedCompanies(companies ...Company) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companies = append(m.companies, companies...)
}

// ListAgents 返回全部 agent，按 AGENT_CODE 排序以便调试。
func (m *MemoryStore) ListAgents(_ context.Context) ([]Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Agent, 0, len(m.agents))
	for _, a := range m.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// GetAgent 按 AGENT_CODE 查询。
func (m *MemoryStore) GetAgent(_ context.Context, code string) (*Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.agents[code]
	if !ok {
		return nil, ErrAgentNotFound
	}
	return &a, nil
}

// ListCompanies 返回全部公司。
func (m *MemoryStore) ListCompanies(_ context.Context) ([]Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Company, len(m.companies))
	copy(out, m.companies)
	return out, nil
}

// CreateAgent 插入新行，AGENT_CODE 重复时返回存储错误。
func (m *MemoryStore) CreateAgent(_ context.Context, agent Agent) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.agents[agent.Code]; exists {
		return "", duplicateKey(agent.Code)
	}
	m.agents[agent.Code] = agent
	return agent.Code, nil
}

// UpdateCommission 只更新 COMMISSION。
func (m *MemoryStore) UpdateCommission(_ context.Context, code string, commission decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.agents[code]
	if !ok {
		return ErrAgentNotFound
	}
	a.Commission = decimal.NewNullDecimal(commission)
	m.agents[code] = a
	return nil
}

// ReplaceAgent 覆盖整行，必要时改名。
func (m *MemoryStore) ReplaceAgent(_ context.Context, code string, agent Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.agents[code]; !ok {
		return ErrAgentNotFound
	}
	if agent.Code != code {
		if _, taken := m.agents[agent.Code]; taken {
			return duplicateKey(agent.Code)
		}
		delete(m.agents, code)
	}
	m.agents[agent.Code] = agent
	return nil
}

// DeleteAgent 删除一行。
func (m *MemoryStore) DeleteAgent(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.agents[code]; !ok {
		return ErrAgentNotFound
	}
	delete(m.agents, code)
	return nil
}

// Ping 实现 Pinger，内存存储始终可用。
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Len 返回当前 agent 数量。
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.agents)
}

func duplicateKey(code string) error {
	return xerrors.New(xerrors.CodeStorageFailure, "", xerrors.WithMetadata("duplicate_agent_code", code))
}
