package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sage-x-project/agent-registry/internal/discovery"
	"github.com/sage-x-project/agent-registry/internal/httperr"
	"github.com/sage-x-project/agent-registry/internal/registry"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.health.Check(r.Context())
	if !status.OK {
		httperr.Write(w, httperr.New(httperr.Unhealthy, status.Error))
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		httperr.Write(w, httperr.BadRequestf("failed to read request body"))
		return
	}

	violations, err := s.validator.Validate(body)
	if err != nil {
		httperr.Write(w, httperr.Wrap(httperr.Internal, "schema validation failed", err))
		return
	}
	if len(violations) > 0 {
		httperr.Write(w, httperr.Validationf(violations, "register request failed schema validation"))
		return
	}

	var req registry.Request
	if err := json.Unmarshal(body, &req); err != nil {
		httperr.Write(w, httperr.BadRequestf("malformed register request: %v", err))
		return
	}

	resp, err := s.registry.Register(r.Context(), &req)
	if err != nil {
		httperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	var req discovery.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.Write(w, httperr.BadRequestf("malformed discovery request: %v", err))
		return
	}

	hits, err := s.discovery.Discover(r.Context(), &req)
	if err != nil {
		httperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": hits})
}

type reputationRequest struct {
	DID        string  `json:"did"`
	Reputation float64 `json:"reputation"`
}

func (s *Server) handleReputation(w http.ResponseWriter, r *http.Request) {
	var req reputationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.Write(w, httperr.BadRequestf("malformed reputation request: %v", err))
		return
	}
	if req.DID == "" {
		httperr.Write(w, httperr.BadRequestf("did is required"))
		return
	}
	if req.Reputation < 0 || req.Reputation > 1 {
		httperr.Write(w, httperr.BadRequestf("reputation must be in [0,1]"))
		return
	}

	if err := s.pg.UpdateReputation(r.Context(), req.DID, req.Reputation); err != nil {
		httperr.Write(w, httperr.Wrap(httperr.Internal, "update reputation failed", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

type availabilityRequest struct {
	DID          string  `json:"did"`
	Availability float64 `json:"availability"`
	LastSeen     *string `json:"last_seen,omitempty"`
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.Write(w, httperr.BadRequestf("malformed availability request: %v", err))
		return
	}
	if req.DID == "" {
		httperr.Write(w, httperr.BadRequestf("did is required"))
		return
	}
	if req.Availability < 0 || req.Availability > 1 {
		httperr.Write(w, httperr.BadRequestf("availability must be in [0,1]"))
		return
	}

	lastSeen := time.Now()
	if req.LastSeen != nil {
		parsed, err := time.Parse(time.RFC3339, *req.LastSeen)
		if err != nil {
			httperr.Write(w, httperr.BadRequestf("last_seen must be RFC3339: %v", err))
			return
		}
		lastSeen = parsed
	}

	if err := s.pg.UpdateAvailability(r.Context(), req.DID, req.Availability, lastSeen); err != nil {
		httperr.Write(w, httperr.Wrap(httperr.Internal, "update availability failed", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (s *Server) handleCapabilitySchema(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	schema, err := s.pg.GetCapabilityOutputSchema(r.Context(), id)
	if err != nil {
		httperr.Write(w, httperr.Wrap(httperr.Internal, "lookup capability schema failed", err))
		return
	}
	if schema == nil {
		httperr.Write(w, httperr.New(httperr.NotFound, "capability not found"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(schema)
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	count, err := s.reindexer.Run(r.Context())
	if err != nil {
		httperr.Write(w, httperr.Wrap(httperr.Internal, "reindex failed", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "reindexed": count})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
