// Package agents is a typed Go client for the agents gateway REST API.
package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultHTTPTimeout defines the timeout used by clients created without a
// custom http.Client.
const DefaultHTTPTimeout = 15 * time.Second

// Client wraps the HTTP interactions with the agents gateway.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// Agent mirrors a row of the agents table as the gateway returns it. NULL
// columns decode to zero values.
type Agent struct {
	Code        string          `json:"AGENT_CODE"`
	Name        string          `json:"AGENT_NAME"`
	WorkingArea string          `json:"WORKING_AREA"`
	Commission  decimal.Decimal `json:"COMMISSION"`
	PhoneNo     string          `json:"PHONE_NO"`
	Country     string          `json:"COUNTRY"`
}

// Company mirrors a row of the company table.
type Company struct {
	ID   string `json:"COMPANY_ID"`
	Name string `json:"COMPANY_NAME"`
	City string `json:"COMPANY_CITY"`
}

// AgentInput is the body of create and replace calls. Every field is required.
type AgentInput struct {
	Code        string          `json:"agent_code"`
	Name        string          `json:"agent_name"`
	WorkingArea string          `json:"working_area"`
	Commission  decimal.Decimal `json:"commission"`
	PhoneNo     string          `json:"phone_no"`
	Country     string          `json:"country"`
}

type messageResponse struct {
	Message string `json:"message"`
	AgentID string `json:"agentId,omitempty"`
}

// APIError represents a non-2xx response from the gateway.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("agents api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for the gateway at rawURL. When httpClient
// is nil, a default client with DefaultHTTPTimeout is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// ListAgents returns every agent.
func (c *Client) ListAgents(ctx context.Context) ([]Agent, error) {
	var out []Agent
	if err := c.call(ctx, http.MethodGet, "/agents", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAgent fetches one agent by code.
func (c *Client) GetAgent(ctx context.Context, code string) (Agent, error) {
	var out Agent
	if err := c.call(ctx, http.MethodGet, "/agents/"+pathSegment(code), nil, nil, &out); err != nil {
		return Agent{}, err
	}
	return out, nil
}

// ListCompanies returns every company.
func (c *Client) ListCompanies(ctx context.Context) ([]Company, error) {
	var out []Company
	if err := c.call(ctx, http.MethodGet, "/companies", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateAgent inserts a new agent and returns its identifier.
func (c *Client) CreateAgent(ctx context.Context, in AgentInput) (string, error) {
	var out messageResponse
	if err := c.call(ctx, http.MethodPost, "/api/agents", nil, in, &out); err != nil {
		return "", err
	}
	return out.AgentID, nil
}

// UpdateCommission changes only the commission of an agent.
func (c *Client) UpdateCommission(ctx context.Context, code string, commission decimal.Decimal) error {
	body := struct {
		Commission decimal.Decimal `json:"commission"`
	}{Commission: commission}
	return c.call(ctx, http.MethodPatch, "/api/agents/"+pathSegment(code), nil, body, nil)
}

// ReplaceAgent overwrites every column of an agent, including its code.
func (c *Client) ReplaceAgent(ctx context.Context, code string, in AgentInput) error {
	return c.call(ctx, http.MethodPut, "/api/agents/"+pathSegment(code), nil, in, nil)
}

// DeleteAgent removes an agent.
func (c *Client) DeleteAgent(ctx context.Context, code string) error {
	return c.call(ctx, http.MethodDelete, "/api/agents/"+pathSegment(code), nil, nil, nil)
}

// Say relays keyword through the gateway and returns the upstream JSON body.
func (c *Client) Say(ctx context.Context, keyword string) (json.RawMessage, error) {
	var out json.RawMessage
	query := url.Values{"keyword": []string{keyword}}
	if err := c.call(ctx, http.MethodGet, "/say", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// pathSegment escapes code as a single path segment so that "/" or dot
// segments inside a code cannot select a different endpoint.
func pathSegment(code string) string {
	escaped := url.PathEscape(code)
	if escaped == "." || escaped == ".." {
		escaped = strings.ReplaceAll(escaped, ".", "%2E")
	}
	return escaped
}

// call sends a request to endpoint, which must already be path-escaped.
func (c *Client) call(ctx context.Context, method, endpoint string, query url.Values, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	u := *c.baseURL
	u.RawPath = strings.TrimRight(c.baseURL.EscapedPath(), "/") + endpoint
	unescaped, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return fmt.Errorf("build path: %w", err)
	}
	u.Path = unescaped
	u.RawQuery = query.Encode()
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := APIError{StatusCode: resp.StatusCode}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		if len(data) > 0 {
			_ = json.Unmarshal(data, &apiErr)
		}
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return &apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
