package main

import (
	"crypto/ed25519"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Mindburn-Labs/actiongov/pkg/crypto"
	"github.com/Mindburn-Labs/actiongov/pkg/orchestrator"
)

// server bundles the orchestrator and the key material used to verify
// bearer tokens a remote approver (mobile push, email link) presents
// instead of calling the respond endpoint directly.
type server struct {
	orch       *orchestrator.Orchestrator
	logger     *slog.Logger
	approverPub ed25519.PublicKey
}

func newMux(s *server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/propose", s.handlePropose)
	mux.HandleFunc("/v1/simulate", s.handleSimulate)
	mux.HandleFunc("/v1/approvals/respond", s.requireApproverAuth(s.handleRespond))
	mux.HandleFunc("/v1/envelopes/execute", s.handleExecute)
	mux.HandleFunc("/v1/envelopes/undo", s.handleUndo)
	return mux
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	cartridges := s.orch.Cartridges().HealthCheckAll(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "OK",
		"cartridges": cartridges,
	})
}

func (s *server) handlePropose(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.ProposeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := s.orch.ResolveAndPropose(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.SimulateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := s.orch.Simulate(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleRespond(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.RespondRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	env, err := s.orch.RespondToApproval(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (s *server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EnvelopeID string `json:"envelope_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	env, err := s.orch.ExecuteApproved(r.Context(), req.EnvelopeID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (s *server) handleUndo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EnvelopeID  string `json:"envelope_id"`
		ActionID    string `json:"action_id"`
		RequestedBy string `json:"requested_by"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := s.orch.RequestUndo(r.Context(), req.EnvelopeID, req.ActionID, req.RequestedBy)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// requireApproverAuth verifies an EdDSA-signed approval bearer token before
// letting a remote-channel response reach RespondToApproval. Requests that
// already carry a direct caller identity (no Authorization header) pass
// through unchanged, matching the console/API split the orchestrator
// itself is agnostic to.
func (s *server) requireApproverAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || s.approverPub == nil {
			next(w, r)
			return
		}
		tok := strings.TrimPrefix(header, "Bearer ")
		claims, err := crypto.ParseApprovalToken(tok, s.approverPub)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
			return
		}
		r.Header.Set("X-Verified-Responder", claims.ResponderID)
		r.Header.Set("X-Verified-Binding-Hash", claims.BindingHash)
		next(w, r)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	s.logger.Warn("request failed", "error", err)
	writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
}
