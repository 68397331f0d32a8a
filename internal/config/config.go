package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultProxyEndpoint 是 /say 转发的远端函数地址。
const DefaultProxyEndpoint = "https://qzkjccf4w8.execute-api.us-east-1.amazonaws.com/staging/say"

// Config 描述了网关在启动阶段需要加载的全部配置。
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Database DatabaseConfig `json:"database" yaml:"database"`
	Proxy    ProxyConfig    `json:"proxy" yaml:"proxy"`
	Events   EventsConfig   `json:"events" yaml:"events"`
	Log      LogConfig      `json:"log" yaml:"log"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
}

// ServerConfig 控制 HTTP 服务的监听地址与超时。
type ServerConfig struct {
	Address                  string   `json:"address" yaml:"address"`
	ReadHeaderTimeoutSeconds int      `json:"read_header_timeout_seconds" yaml:"read_header_timeout_seconds"`
	ShutdownTimeoutSeconds   int      `json:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds"`
	CORSAllowedOrigins       []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins"`
}

// DatabaseConfig 描述关系型数据库连接池。
type DatabaseConfig struct {
	// Driver 可选 memory、mysql、mariadb、postgres、pgx。
	Driver                 string `json:"driver" yaml:"driver"`
	DSN                    string `json:"dsn" yaml:"dsn"`
	Host                   string `json:"host" yaml:"host"`
	Port                   int    `json:"port" yaml:"port"`
	User                   string `json:"user" yaml:"user"`
	Password               string `json:"password" yaml:"password"`
	Name                   string `json:"name" yaml:"name"`
	MaxOpenConns           int    `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns           int    `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `json:"conn_max_lifetime_seconds" yaml:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int    `json:"conn_max_idle_time_seconds" yaml:"conn_max_idle_time_seconds"`
	AcquireTimeoutSeconds  int    `json:"acquire_timeout_seconds" yaml:"acquire_timeout_seconds"`
}

// ProxyConfig 描述 /say 远端函数。
type ProxyConfig struct {
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	// TimeoutSeconds 为 0 时沿用传输层默认行为。
	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// Timeout 返回代理请求超时时间。
func (p ProxyConfig) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// EventsConfig 控制 agent 变更事件的投递。
type EventsConfig struct {
	// Driver 可选 none、memory、redis、rabbitmq。
	Driver   string         `json:"driver" yaml:"driver"`
	Redis    RedisConfig    `json:"redis" yaml:"redis"`
	RabbitMQ RabbitMQConfig `json:"rabbitmq" yaml:"rabbitmq"`
}

// RedisConfig 描述 Redis 事件列表。
type RedisConfig struct {
	Address  string `json:"address" yaml:"address"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	Key      string `json:"key" yaml:"key"`
}

// RabbitMQConfig 描述 RabbitMQ 事件队列。
type RabbitMQConfig struct {
	URL     string `json:"url" yaml:"url"`
	Queue   string `json:"queue" yaml:"queue"`
	Durable bool   `json:"durable" yaml:"durable"`
}

// LogConfig 对应 pkg/logger 的配置。
type LogConfig struct {
	Level       string         `json:"level" yaml:"level"`
	Format      string         `json:"format" yaml:"format"`
	OutputPaths []string       `json:"output_paths" yaml:"output_paths"`
	Audit       AuditLogConfig `json:"audit" yaml:"audit"`
}

// AuditLogConfig 控制访问审计日志。
type AuditLogConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	Path       string `json:"path" yaml:"path"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
}

// MetricsConfig 控制 Prometheus 指标暴露。
type MetricsConfig struct {
	Enabled *bool  `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// IsEnabled 未配置时默认开启。
func (m MetricsConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// Load 解析指定路径的配置文件。path 为空时只使用环境变量与默认值。
func Load(path string) (*Config, error) {
	var cfg Config
	baseDir := "."
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := decode(path, content, &cfg); err != nil {
			return nil, fmt.Errorf("解析配置失败: %w", err)
		}
		baseDir = filepath.Dir(path)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults(baseDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decode(path string, content []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(content, cfg)
	default:
		return json.Unmarshal(content, cfg)
	}
}

// applyEnv 使用 AGENTS_* 环境变量覆盖文件中的值。
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strVars := map[string]*string{
		"AGENTS_SERVER_ADDRESS": &c.Server.Address,
		"AGENTS_DB_DRIVER":      &c.Database.Driver,
		"AGENTS_DB_DSN":         &c.Database.DSN,
		"AGENTS_DB_HOST":        &c.Database.Host,
		"AGENTS_DB_USER":        &c.Database.User,
		"AGENTS_DB_PASSWORD":    &c.Database.Password,
		"AGENTS_DB_NAME":        &c.Database.Name,
		"AGENTS_PROXY_ENDPOINT": &c.Proxy.Endpoint,
		"AGENTS_EVENTS_DRIVER":  &c.Events.Driver,
		"AGENTS_LOG_LEVEL":      &c.Log.Level,
		"AGENTS_LOG_FORMAT":     &c.Log.Format,
	}
	for key, target := range strVars {
		if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
			*target = strings.TrimSpace(value)
		}
	}

	intVars := map[string]*int{
		"AGENTS_DB_PORT":           &c.Database.Port,
		"AGENTS_DB_MAX_OPEN_CONNS": &c.Database.MaxOpenConns,
	}
	for key, target := range intVars {
		value, ok := lookup(key)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("环境变量 %s 不是整数: %w", key, err)
		}
		*target = parsed
	}
	return nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":3000"
	}
	if c.Server.ReadHeaderTimeoutSeconds <= 0 {
		c.Server.ReadHeaderTimeoutSeconds = 5
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		c.Server.ShutdownTimeoutSeconds = 5
	}
	if len(c.Server.CORSAllowedOrigins) == 0 {
		c.Server.CORSAllowedOrigins = []string{"*"}
	}

	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		c.Database.Driver = "memory"
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 5
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = c.Database.MaxOpenConns
	}
	if c.Database.AcquireTimeoutSeconds <= 0 {
		c.Database.AcquireTimeoutSeconds = 5
	}
	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Name == "" {
		c.Database.Name = "sample"
	}

	if c.Proxy.Endpoint == "" {
		c.Proxy.Endpoint = DefaultProxyEndpoint
	}

	c.Events.Driver = strings.ToLower(strings.TrimSpace(c.Events.Driver))
	if c.Events.Driver == "" {
		c.Events.Driver = "none"
	}
	if c.Events.Redis.Key == "" {
		c.Events.Redis.Key = "agents:events"
	}
	if c.Events.RabbitMQ.Queue == "" {
		c.Events.RabbitMQ.Queue = "agents.events"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Audit.Path != "" && !filepath.IsAbs(c.Log.Audit.Path) {
		c.Log.Audit.Path = filepath.Join(baseDir, c.Log.Audit.Path)
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate 检查驱动名称等取值是否合法。
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "memory", "mysql", "mariadb", "postgres", "pgx":
	default:
		return fmt.Errorf("未知的数据库驱动: %s", c.Database.Driver)
	}
	switch c.Events.Driver {
	case "none", "memory", "redis", "rabbitmq":
	default:
		return fmt.Errorf("未知的事件驱动: %s", c.Events.Driver)
	}
	if c.Events.Driver == "redis" && c.Events.Redis.Address == "" {
		return errors.New("events.redis.address 不能为空")
	}
	if c.Events.Driver == "rabbitmq" && c.Events.RabbitMQ.URL == "" {
		return errors.New("events.rabbitmq.url 不能为空")
	}
	return nil
}
