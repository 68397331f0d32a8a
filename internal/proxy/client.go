// Package proxy relays the /say keyword to the remote function endpoint and
// returns its JSON body unchanged.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	xerrors "agents-gateway/internal/errors"
)

// maxBodyBytes 限制远端响应体大小。
const maxBodyBytes = 4 << 20

// Config 描述远端函数地址。Timeout 为 0 时不额外设置超时。
type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// Client 通过 HTTP GET 调用远端函数。
type Client struct {
	endpoint   *url.URL
	httpClient *http.Client
}

// NewClient 校验地址并创建客户端。
func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.Endpoint)
	if raw == "" {
		return nil, errors.New("代理地址不能为空")
	}
	endpoint, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("解析代理地址失败: %w", err)
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return nil, fmt.Errorf("代理地址必须是 http(s): %s", raw)
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Relay 携带 keyword 调用远端函数。2xx 响应体若为 JSON 则原样返回，
// 否则编码为 JSON 字符串；网络错误与非 2xx 状态均返回 UPSTREAM_FAILURE。
func (c *Client) Relay(ctx context.Context, keyword string) (json.RawMessage, error) {
	target := *c.endpoint
	query := target.Query()
	query.Set("keyword", keyword)
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeUpstreamFailure, err, "")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeUpstreamFailure, err, "")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeUpstreamFailure, err, "")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, xerrors.New(xerrors.CodeUpstreamFailure, "",
			xerrors.WithMetadata("upstream_status", resp.Status))
	}

	trimmed := strings.TrimSpace(string(body))
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}
	encoded, err := json.Marshal(string(body))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeUpstreamFailure, err, "")
	}
	return encoded, nil
}
