package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"agents-gateway/internal/agent"
	xerrors "agents-gateway/internal/errors"
)

const (
	msgAgentAdded    = "Agent added successfully"
	msgAgentUpdated  = "Agent updated successfully"
	msgAgentReplaced = "Agent replaced successfully"
	msgAgentDeleted  = "Agent deleted successfully"
)

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Hello, World!"))
}

func (s *Server) handleSay(w http.ResponseWriter, r *http.Request) {
	if s.relay == nil {
		writeError(w, r, xerrors.New(xerrors.CodeUpstreamFailure, "",
			xerrors.WithMetadata("reason", "relay not configured")))
		return
	}
	body, err := s.relay.Relay(r.Context(), r.URL.Query().Get("keyword"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.agents.ListAgents(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agents)
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	found, err := s.agents.GetAgent(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.agents.ListCompanies(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, companies)
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var req agent.AgentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := s.agents.CreateAgent(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdBody{Message: msgAgentAdded, AgentID: id})
}

func (s *Server) handlePatchCommission(w http.ResponseWriter, r *http.Request) {
	var req agent.CommissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.agents.PatchCommission(r.Context(), mux.Vars(r)["id"], req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: msgAgentUpdated})
}

func (s *Server) handleReplaceAgent(w http.ResponseWriter, r *http.Request) {
	var req agent.AgentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.agents.ReplaceAgent(r.Context(), mux.Vars(r)["id"], req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: msgAgentReplaced})
}

func (s *Server) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := s.agents.DeleteAgent(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: msgAgentDeleted})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.agents.Ping(r.Context()); err != nil {
		s.log.Warn("health_check_failed", "error", err.Error())
		writeJSON(w, http.StatusServiceUnavailable, healthBody{Status: "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, healthBody{Status: "ok"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, xerrors.New(xerrors.CodeNotFound, "Not found"))
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: http.StatusText(http.StatusMethodNotAllowed)})
}
