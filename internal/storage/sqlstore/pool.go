package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	xerrors "agents-gateway/internal/errors"
	"agents-gateway/pkg/logger"
)

const (
	defaultMaxOpenConns   = 5
	defaultAcquireTimeout = 5 * time.Second
)

// Config 描述连接池参数。
type Config struct {
	// Driver 为 mysql、mariadb、postgres（lib/pq）或 pgx。
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// AcquireTimeout 是 Acquire 等待空闲连接的上限。
	AcquireTimeout time.Duration
}

// Endpoint 用于在未提供 DSN 时拼装连接串。
type Endpoint struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// BuildDSN 根据驱动拼装连接串。
func BuildDSN(driver string, ep Endpoint) string {
	switch normalizeDriver(driver) {
	case "postgres", "pgx":
		port := ep.Port
		if port == 0 {
			port = 5432
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(ep.User, ep.Password),
			Host:     net.JoinHostPort(ep.Host, strconv.Itoa(port)),
			Path:     "/" + ep.Database,
			RawQuery: "sslmode=disable",
		}
		return u.String()
	default:
		port := ep.Port
		if port == 0 {
			port = 3306
		}
		cfg := mysql.NewConfig()
		cfg.User = ep.User
		cfg.Passwd = ep.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(ep.Host, strconv.Itoa(port))
		cfg.DBName = ep.Database
		cfg.ParseTime = true
		cfg.ClientFoundRows = true
		return cfg.FormatDSN()
	}
}

// Pool 是进程级的有界连接池。连接只能通过 Acquire/Release 成对使用。
type Pool struct {
	db             *sqlx.DB
	acquireTimeout time.Duration
	log            *slog.Logger
}

// Open 打开数据库、设置连接池上限并确认可以连通。
func Open(ctx context.Context, cfg Config) (*Pool, error) {
	driver := normalizeDriver(cfg.Driver)
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "数据库 DSN 不能为空")
	}
	if driver == "mysql" {
		normalized, err := normalizeMySQLDSN(dsn)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "MySQL DSN 无效")
		}
		dsn = normalized
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "打开数据库失败")
	}
	configure(db, cfg)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "无法连接到数据库")
	}
	return NewPool(sqlx.NewDb(db, driver), cfg.AcquireTimeout), nil
}

// NewPool 用已经打开的 sqlx.DB 构造连接池。
func NewPool(db *sqlx.DB, acquireTimeout time.Duration) *Pool {
	if acquireTimeout <= 0 {
		acquireTimeout = defaultAcquireTimeout
	}
	return &Pool{db: db, acquireTimeout: acquireTimeout, log: logger.Named("sqlstore")}
}

func configure(db *sql.DB, cfg Config) {
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns
	}
	db.SetMaxOpenConns(maxOpen)
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(maxOpen)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// Acquire 在 AcquireTimeout 内取得一个连接。超时返回 CONNECTION_EXHAUSTED，
// 其他失败返回 STORAGE_FAILURE。调用方必须配对调用 Release。
func (p *Pool) Acquire(ctx context.Context) (*sqlx.Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()

	conn, err := p.db.Connx(acquireCtx)
	if err == nil {
		return conn, nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, xerrors.Wrap(xerrors.CodeConnectionExhausted, err, "",
			xerrors.WithMetadata("acquire_timeout", p.acquireTimeout.String()))
	}
	if ctx.Err() != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "",
			xerrors.WithSeverity(xerrors.SeverityInfo))
	}
	return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "")
}

// Release 将连接归还连接池，nil 安全。
func (p *Pool) Release(conn *sqlx.Conn) {
	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		p.log.Warn("release_connection_failed", "error", err.Error())
	}
}

// Rebind 将 '?' 占位符转换为当前驱动的格式。
func (p *Pool) Rebind(query string) string {
	return p.db.Rebind(query)
}

// Ping 探测数据库是否可用。
func (p *Pool) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Stats 返回连接池统计信息。
func (p *Pool) Stats() sql.DBStats {
	return p.db.Stats()
}

// Close 关闭连接池中的全部连接。
func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

func normalizeDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pq":
		return "postgres"
	case "pgx":
		return "pgx"
	default:
		return "mysql"
	}
}

// normalizeMySQLDSN 打开 clientFoundRows，使 UPDATE 的影响行数按匹配行计算，
// 值未变化的 PATCH 不会被误判为 404。
func normalizeMySQLDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}
