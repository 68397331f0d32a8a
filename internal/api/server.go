package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"agents-gateway/internal/agent"
	"agents-gateway/internal/observability/metrics"
	"agents-gateway/pkg/logger"
)

// Relayer 转发 /say 请求到远端函数。
type Relayer interface {
	Relay(ctx context.Context, keyword string) (json.RawMessage, error)
}

// Server 负责暴露 REST 接口。
type Server struct {
	addr              string
	agents            *agent.Service
	relay             Relayer
	metrics           *metrics.Registry
	metricsPath       string
	corsOrigins       []string
	readHeaderTimeout time.Duration
	shutdownTimeout   time.Duration
	log               *slog.Logger

	handler  http.Handler
	docCache docCache
}

// Option 定义 Server 的可选配置。
type Option func(*Server)

// WithRelay 设置 /say 使用的转发客户端。
func WithRelay(r Relayer) Option {
	return func(s *Server) { s.relay = r }
}

// WithMetrics 在 path 上暴露 Prometheus 指标并记录请求统计。
func WithMetrics(reg *metrics.Registry, path string) Option {
	return func(s *Server) {
		s.metrics = reg
		if path != "" {
			s.metricsPath = path
		}
	}
}

// WithCORSOrigins 设置允许的跨域来源。
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.corsOrigins = origins
		}
	}
}

// WithTimeouts 设置读取请求头与优雅关闭的超时。
func WithTimeouts(readHeader, shutdown time.Duration) Option {
	return func(s *Server) {
		if readHeader > 0 {
			s.readHeaderTimeout = readHeader
		}
		if shutdown > 0 {
			s.shutdownTimeout = shutdown
		}
	}
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, svc *agent.Service, opts ...Option) *Server {
	s := &Server{
		addr:              addr,
		agents:            svc,
		metricsPath:       "/metrics",
		corsOrigins:       []string{"*"},
		readHeaderTimeout: 5 * time.Second,
		shutdownTimeout:   5 * time.Second,
		log:               logger.Named("api"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.handler = s.buildHandler()
	return s
}

// Handler 返回完整的中间件链与路由。
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) buildHandler() http.Handler {
	router := mux.NewRouter()
	for _, rt := range s.routes() {
		router.Handle(rt.path, rt.handler).Methods(rt.method).Name(rt.name)
	}
	if s.metrics != nil {
		router.Handle(s.metricsPath, s.metrics.Handler()).Methods(http.MethodGet).Name("metrics")
	}
	router.NotFoundHandler = s.observe(http.HandlerFunc(s.handleNotFound))
	router.MethodNotAllowedHandler = s.observe(http.HandlerFunc(s.handleMethodNotAllowed))
	router.Use(s.observe)

	return s.recoverPanic(withRequestID(s.cors(router)))
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.handler),
		ReadHeaderTimeout: s.readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.log.Info("api_listening", "address", s.addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "Service is shutting down"})
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
