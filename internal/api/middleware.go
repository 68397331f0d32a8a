package api

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	xerrors "agents-gateway/internal/errors"
	"agents-gateway/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// statusWriter 捕获响应状态码。
type statusWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wrote {
		w.status = code
		w.wrote = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.status = http.StatusOK
		w.wrote = true
	}
	return w.ResponseWriter.Write(b)
}

func (s *Server) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.FromContext(r.Context(), "api").Error("handler_panic",
					"path", r.URL.Path,
					"panic", fmt.Sprint(rec),
					"stack", string(debug.Stack()),
				)
				writeError(w, r, xerrors.New(xerrors.CodeUnknown, "Internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withRequestID 沿用调用方提供的 X-Request-ID，缺省时生成新的 UUID。
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

func (s *Server) cors(next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{requestIDHeader},
	}).Handler(next)
}

// observe 记录访问日志与指标；写操作额外写入审计日志。
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		elapsed := time.Since(start)

		name := "unmatched"
		if rt := mux.CurrentRoute(r); rt != nil && rt.GetName() != "" {
			name = rt.GetName()
		}
		s.metrics.ObserveHTTPRequest(name, r.Method, sw.status, elapsed)

		attrs := []any{
			"route", name,
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", elapsed.Milliseconds(),
			"request_id", logger.RequestID(r.Context()),
		}
		s.log.Info("http_request", attrs...)
		if isWrite(r.Method) {
			logger.Audit().Info("api_request", attrs...)
		}
	})
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
