package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	xerrors "agents-gateway/internal/errors"
	"agents-gateway/pkg/logger"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

type messageBody struct {
	Message string `json:"message"`
}

type createdBody struct {
	Message string `json:"message"`
	AgentID string `json:"agentId"`
}

type healthBody struct {
	Status string `json:"status"`
}

// CodeBodyTooLarge 表示请求体超过 maxBodyBytes。
const CodeBodyTooLarge xerrors.Code = "BODY_TOO_LARGE"

func init() {
	xerrors.Register(CodeBodyTooLarge, xerrors.Attributes{
		Message:  "Request body too large",
		Severity: xerrors.SeverityInfo,
		Status:   http.StatusRequestEntityTooLarge,
	})
}

var errMalformedBody = xerrors.New(xerrors.CodeInvalidArgument, "Invalid JSON body")

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeRawJSON(w http.ResponseWriter, status int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError 将统一错误换算为状态码，5xx 会在服务端记录原因。
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := xerrors.StatusOf(err)
	if status >= http.StatusInternalServerError {
		attrs := []any{
			"path", r.URL.Path,
			"method", r.Method,
			"code", string(xerrors.CodeOf(err)),
			"error", err.Error(),
		}
		if e, ok := xerrors.From(err); ok {
			for k, v := range e.Metadata() {
				attrs = append(attrs, k, v)
			}
		}
		log := logger.FromContext(r.Context(), "api")
		if xerrors.SeverityOf(err) == xerrors.SeverityCritical {
			log.Error("request_failed", attrs...)
		} else {
			log.Warn("request_failed", attrs...)
		}
	}
	writeJSON(w, status, errorBody{Error: xerrors.MessageOf(err)})
}

// decodeJSON 解析请求体。空请求体视为空对象，交由字段校验处理；
// 请求体必须恰好是一个 JSON 值。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return bodyError(err)
	}
	var trailing json.RawMessage
	switch err := dec.Decode(&trailing); {
	case errors.Is(err, io.EOF):
		return nil
	case err != nil:
		return bodyError(err)
	default:
		return xerrors.New(xerrors.CodeInvalidArgument, errMalformedBody.Message(),
			xerrors.WithMetadata("reason", "trailing data"))
	}
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return xerrors.Wrap(CodeBodyTooLarge, err, "")
	}
	return xerrors.Wrap(xerrors.CodeInvalidArgument, err, errMalformedBody.Message())
}
