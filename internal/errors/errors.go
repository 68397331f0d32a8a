package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"sync"
)

// Code 表示网关内的统一错误码。
type Code string

// Severity 描述错误的严重程度，决定日志级别。
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

const (
	CodeUnknown             Code = "UNKNOWN"
	CodeInvalidArgument     Code = "INVALID_ARGUMENT"
	CodeNotFound            Code = "NOT_FOUND"
	CodeStorageFailure      Code = "STORAGE_FAILURE"
	CodeConnectionExhausted Code = "CONNECTION_EXHAUSTED"
	CodeUpstreamFailure     Code = "UPSTREAM_FAILURE"
)

// Attributes 为错误码提供默认行为。
type Attributes struct {
	Message  string
	Severity Severity
	// Status 是该错误码对应的 HTTP 状态码。
	Status int
}

var (
	registryMu sync.RWMutex
	registry   = map[Code]Attributes{
		CodeUnknown: {
			Message:  "unknown error",
			Severity: SeverityCritical,
			Status:   http.StatusInternalServerError,
		},
		CodeInvalidArgument: {
			Message:  "invalid argument",
			Severity: SeverityInfo,
			Status:   http.StatusBadRequest,
		},
		CodeNotFound: {
			Message:  "resource not found",
			Severity: SeverityInfo,
			Status:   http.StatusNotFound,
		},
		CodeStorageFailure: {
			Message:  "Database error",
			Severity: SeverityCritical,
			Status:   http.StatusInternalServerError,
		},
		CodeConnectionExhausted: {
			Message:  "Database error",
			Severity: SeverityWarning,
			Status:   http.StatusInternalServerError,
		},
		CodeUpstreamFailure: {
			Message:  "Error in calling function",
			Severity: SeverityWarning,
			Status:   http.StatusInternalServerError,
		},
	}
)

// Register 允许业务模块在初始化阶段注册新的错误码描述。
func Register(code Code, attr Attributes) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[code] = attr
}

// AttributesOf 返回错误码对应的属性。若未注册则返回 UNKNOWN 的属性。
func AttributesOf(code Code) Attributes {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if attr, ok := registry[code]; ok {
		return attr
	}
	return registry[CodeUnknown]
}

// Error 是网关内统一的错误类型。
type Error struct {
	code     Code
	message  string
	cause    error
	metadata map[string]string
	severity *Severity
}

// Option 定义可选配置。
type Option func(*Error)

// WithMetadata 附加额外信息，仅用于服务端日志。
func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata[key] = value
	}
}

// WithSeverity 覆盖默认严重程度。
func WithSeverity(sev Severity) Option {
	return func(e *Error) {
		e.severity = &sev
	}
}

// New 创建一个新的错误实例。message 为空时使用错误码的默认信息。
func New(code Code, message string, opts ...Option) *Error {
	if message == "" {
		message = AttributesOf(code).Message
	}
	e := &Error{code: code, message: message}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Wrap 在已有错误外包裹统一错误类型。
func Wrap(code Code, cause error, message string, opts ...Option) *Error {
	e := New(code, message, opts...)
	e.cause = cause
	return e
}

// Error 实现 error 接口。
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

// Unwrap 实现 errors.Unwrap。
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is 允许通过 errors.Is 判断是否相同错误码。
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.code == t.code
}

// Code 返回错误码。
func (e *Error) Code() Code {
	if e == nil {
		return CodeUnknown
	}
	return e.code
}

// Message 返回可以直接展示给调用方的错误信息。
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Metadata 返回附加信息。
func (e *Error) Metadata() map[string]string {
	if e == nil || len(e.metadata) == 0 {
		return nil
	}
	clone := make(map[string]string, len(e.metadata))
	for k, v := range e.metadata {
		clone[k] = v
	}
	return clone
}

// Severity 返回错误严重程度。
func (e *Error) Severity() Severity {
	if e == nil {
		return SeverityInfo
	}
	if e.severity != nil {
		return *e.severity
	}
	return AttributesOf(e.code).Severity
}

// From 尝试从 error 中解析统一错误类型。
func From(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var target *Error
	if stdErrors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf 返回错误对应的错误码。
func CodeOf(err error) Code {
	if e, ok := From(err); ok {
		return e.Code()
	}
	return CodeUnknown
}

// StatusOf 返回错误对应的 HTTP 状态码，非统一错误一律视为 500。
func StatusOf(err error) int {
	return AttributesOf(CodeOf(err)).Status
}

// MessageOf 返回适合写入响应体的错误信息。
func MessageOf(err error) string {
	if e, ok := From(err); ok {
		return e.Message()
	}
	return AttributesOf(CodeUnknown).Message
}

// SeverityOf 返回错误严重程度。
func SeverityOf(err error) Severity {
	if e, ok := From(err); ok {
		return e.Severity()
	}
	return AttributesOf(CodeUnknown).Severity
}
