package api

import (
	"encoding/json"
	"net/http"

	"agents-gateway/internal/agent"
)

// route 描述一个接口：既用于注册路由，也用于生成 OpenAPI 文档。
type route struct {
	name    string
	method  string
	path    string
	summary string
	tag     string
	// query 列出查询参数名。
	query []string
	// request 是请求体的示例类型，nil 表示无请求体。
	request   any
	responses []response
	handler   http.Handler
}

type response struct {
	status      int
	description string
	// body 为 nil 时响应无 JSON 结构描述。
	body any
	// contentType 为空时默认 application/json。
	contentType string
}

func errResponse(status int, description string) response {
	return response{status: status, description: description, body: errorBody{}}
}

func (s *Server) routes() []route {
	return []route{
		{
			name:    "root",
			method:  http.MethodGet,
			path:    "/",
			summary: "Greeting",
			tag:     "misc",
			responses: []response{
				{status: http.StatusOK, description: "Plain text greeting", contentType: "text/plain"},
			},
			handler: http.HandlerFunc(s.handleRoot),
		},
		{
			name:    "say",
			method:  http.MethodGet,
			path:    "/say",
			summary: "Relay a keyword to the remote say function",
			tag:     "misc",
			query:   []string{"keyword"},
			responses: []response{
				{status: http.StatusOK, description: "Body returned by the remote function", body: json.RawMessage(nil)},
				errResponse(http.StatusInternalServerError, "Error in calling function"),
			},
			handler: http.HandlerFunc(s.handleSay),
		},
		{
			name:    "list_agents",
			method:  http.MethodGet,
			path:    "/agents",
			summary: "Retrieve all agents",
			tag:     "agents",
			responses: []response{
				{status: http.StatusOK, description: "A list of agents", body: []agent.Agent{}},
				errResponse(http.StatusInternalServerError, "Database error"),
			},
			handler: http.HandlerFunc(s.handleListAgents),
		},
		{
			name:    "get_agent",
			method:  http.MethodGet,
			path:    "/agents/{code}",
			summary: "Retrieve an agent by code",
			tag:     "agents",
			responses: []response{
				{status: http.StatusOK, description: "The agent", body: agent.Agent{}},
				errResponse(http.StatusNotFound, "Agent not found"),
				errResponse(http.StatusInternalServerError, "Database error"),
			},
			handler: http.HandlerFunc(s.handleGetAgent),
		},
		{
			name:    "list_companies",
			method:  http.MethodGet,
			path:    "/companies",
			summary: "Retrieve all companies",
			tag:     "companies",
			responses: []response{
				{status: http.StatusOK, description: "A list of companies", body: []agent.Company{}},
				errResponse(http.StatusInternalServerError, "Database error"),
			},
			handler: http.HandlerFunc(s.handleListCompanies),
		},
		{
			name:    "create_agent",
			method:  http.MethodPost,
			path:    "/api/agents",
			summary: "Add a new agent",
			tag:     "agents",
			request: agent.AgentRequest{},
			responses: []response{
				{status: http.StatusCreated, description: "Agent added successfully", body: createdBody{}},
				errResponse(http.StatusBadRequest, "All fields are required"),
				errResponse(http.StatusInternalServerError, "Database error"),
			},
			handler: http.HandlerFunc(s.handleCreateAgent),
		},
		{
			name:    "patch_commission",
			method:  http.MethodPatch,
			path:    "/api/agents/{id}",
			summary: "Update an agent's commission",
			tag:     "agents",
			request: agent.CommissionRequest{},
			responses: []response{
				{status: http.StatusOK, description: "Agent updated successfully", body: messageBody{}},
				errResponse(http.StatusBadRequest, "Commission field is required"),
				errResponse(http.StatusNotFound, "Agent not found"),
				errResponse(http.StatusInternalServerError, "Database error"),
			},
			handler: http.HandlerFunc(s.handlePatchCommission),
		},
		{
			name:    "replace_agent",
			method:  http.MethodPut,
			path:    "/api/agents/{id}",
			summary: "Replace an agent",
			tag:     "agents",
			request: agent.AgentRequest{},
			responses: []response{
				{status: http.StatusOK, description: "Agent replaced successfully", body: messageBody{}},
				errResponse(http.StatusBadRequest, "All fields are required"),
				errResponse(http.StatusNotFound, "Agent not found"),
				errResponse(http.StatusInternalServerError, "Database error"),
			},
			handler: http.HandlerFunc(s.handleReplaceAgent),
		},
		{
			name:    "delete_agent",
			method:  http.MethodDelete,
			path:    "/api/agents/{id}",
			summary: "Delete an agent",
			tag:     "agents",
			responses: []response{
				{status: http.StatusOK, description: "Agent deleted successfully", body: messageBody{}},
				errResponse(http.StatusNotFound, "Agent not found"),
				errResponse(http.StatusInternalServerError, "Database error"),
			},
			handler: http.HandlerFunc(s.handleDeleteAgent),
		},
		{
			name:    "healthz",
			method:  http.MethodGet,
			path:    "/healthz",
			summary: "Report whether the store is reachable",
			tag:     "misc",
			responses: []response{
				{status: http.StatusOK, description: "Store reachable", body: healthBody{}},
				{status: http.StatusServiceUnavailable, description: "Store unreachable", body: healthBody{}},
			},
			handler: http.HandlerFunc(s.handleHealth),
		},
		{
			name:    "api_docs",
			method:  http.MethodGet,
			path:    "/api-docs",
			summary: "OpenAPI document (JSON)",
			tag:     "misc",
			responses: []response{
				{status: http.StatusOK, description: "OpenAPI 3 document"},
			},
			handler: http.HandlerFunc(s.handleDocsJSON),
		},
		{
			name:    "api_docs_yaml",
			method:  http.MethodGet,
			path:    "/api-docs.yaml",
			summary: "OpenAPI document (YAML)",
			tag:     "misc",
			responses: []response{
				{status: http.StatusOK, description: "OpenAPI 3 document", contentType: "application/yaml"},
			},
			handler: http.HandlerFunc(s.handleDocsYAML),
		},
	}
}
