package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"agents-gateway/internal/agent"
	xerrors "agents-gateway/internal/errors"
)

const (
	selectAgentsSQL = `SELECT AGENT_CODE AS agent_code, AGENT_NAME AS agent_name, WORKING_AREA AS working_area,
    COMMISSION AS commission, PHONE_NO AS phone_no, COUNTRY AS country
    FROM agents`
	selectAgentSQL = selectAgentsSQL + ` WHERE AGENT_CODE = ?`

	selectCompaniesSQL = `SELECT COMPANY_ID AS company_id, COMPANY_NAME AS company_name, COMPANY_CITY AS company_city
    FROM company`

	insertAgentSQL = `INSERT INTO agents (AGENT_CODE, AGENT_NAME, WORKING_AREA, COMMISSION, PHONE_NO, COUNTRY)
    VALUES (?, ?, ?, ?, ?, ?)`

	updateCommissionSQL = `UPDATE agents SET COMMISSION = ? WHERE AGENT_CODE = ?`

	replaceAgentSQL = `UPDATE agents SET AGENT_CODE = ?, AGENT_NAME = ?, WORKING_AREA = ?, COMMISSION = ?, PHONE_NO = ?, COUNTRY = ?
    WHERE AGENT_CODE = ?`

	deleteAgentSQL = `DELETE FROM agents WHERE AGENT_CODE = ?`
)

// Repository 使用关系型数据库实现 agent.Store。
type Repository struct {
	pool *Pool
}

var _ agent.Store = (*Repository)(nil)

// NewRepository 基于连接池创建仓库。
func NewRepository(pool *Pool) *Repository {
	return &Repository{pool: pool}
}

// withConn 取得连接执行 fn，并在所有返回路径上归还连接。
func (r *Repository) withConn(ctx context.Context, fn func(conn *sqlx.Conn) error) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer r.pool.Release(conn)
	return fn(conn)
}

// ListAgents 查询全部 agent，不保证顺序。
func (r *Repository) ListAgents(ctx context.Context) ([]agent.Agent, error) {
	agents := []agent.Agent{}
	err := r.withConn(ctx, func(conn *sqlx.Conn) error {
		if err := conn.SelectContext(ctx, &agents, r.pool.Rebind(selectAgentsSQL)); err != nil {
			return storageError("list_agents", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return agents, nil
}

// GetAgent 按 AGENT_CODE 查询单行。
func (r *Repository) GetAgent(ctx context.Context, code string) (*agent.Agent, error) {
	var a agent.Agent
	err := r.withConn(ctx, func(conn *sqlx.Conn) error {
		err := conn.GetContext(ctx, &a, r.pool.Rebind(selectAgentSQL), code)
		if errors.Is(err, sql.ErrNoRows) {
			return agent.ErrAgentNotFound
		}
		if err != nil {
			return storageError("get_agent", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListCompanies 查询全部公司。
func (r *Repository) ListCompanies(ctx context.Context) ([]agent.Company, error) {
	companies := []agent.Company{}
	err := r.withConn(ctx, func(conn *sqlx.Conn) error {
		if err := conn.SelectContext(ctx, &companies, r.pool.Rebind(selectCompaniesSQL)); err != nil {
			return storageError("list_companies", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return companies, nil
}

// CreateAgent 插入一行；agents 表没有自增列，主键即 AGENT_CODE。
func (r *Repository) CreateAgent(ctx context.Context, a agent.Agent) (string, error) {
	err := r.withConn(ctx, func(conn *sqlx.Conn) error {
		_, err := conn.ExecContext(ctx, r.pool.Rebind(insertAgentSQL),
			a.Code, a.Name, a.WorkingArea, a.Commission, a.PhoneNo, a.Country)
		if err != nil {
			return storageError("create_agent", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return a.Code, nil
}

// UpdateCommission 只更新 COMMISSION。
func (r *Repository) UpdateCommission(ctx context.Context, code string, commission decimal.Decimal) error {
	return r.execAffecting(ctx, "update_commission", updateCommissionSQL, commission, code)
}

// ReplaceAgent 覆盖六列，包括 AGENT_CODE。
func (r *Repository) ReplaceAgent(ctx context.Context, code string, a agent.Agent) error {
	return r.execAffecting(ctx, "replace_agent", replaceAgentSQL,
		a.Code, a.Name, a.WorkingArea, a.Commission, a.PhoneNo, a.Country, code)
}

// DeleteAgent 删除一行。
func (r *Repository) DeleteAgent(ctx context.Context, code string) error {
	return r.execAffecting(ctx, "delete_agent", deleteAgentSQL, code)
}

// Ping 实现 agent.Pinger。
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// execAffecting 执行写语句，影响行数为 0 时返回 NOT_FOUND。
func (r *Repository) execAffecting(ctx context.Context, op, query string, args ...any) error {
	return r.withConn(ctx, func(conn *sqlx.Conn) error {
		result, err := conn.ExecContext(ctx, r.pool.Rebind(query), args...)
		if err != nil {
			return storageError(op, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return storageError(op, err)
		}
		if affected == 0 {
			return agent.ErrAgentNotFound
		}
		return nil
	})
}

// storageError 将驱动错误统一为 STORAGE_FAILURE，驱动错误号只放进元数据。
func storageError(op string, err error) error {
	opts := []xerrors.Option{xerrors.WithMetadata("op", op)}

	var mysqlErr *mysql.MySQLError
	var pqErr *pq.Error
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &mysqlErr):
		opts = append(opts, xerrors.WithMetadata("mysql_errno", strconv.Itoa(int(mysqlErr.Number))))
	case errors.As(err, &pqErr):
		opts = append(opts, xerrors.WithMetadata("pq_code", string(pqErr.Code)))
	case errors.As(err, &pgErr):
		opts = append(opts, xerrors.WithMetadata("pg_code", pgErr.Code))
	case errors.Is(err, context.Canceled):
		// 调用方已放弃请求，不属于存储故障。
		opts = append(opts, xerrors.WithSeverity(xerrors.SeverityInfo))
	}
	return xerrors.Wrap(xerrors.CodeStorageFailure, err, "", opts...)
}
