// Package httpapi wires the HTTP surface of spec.md section 6 onto a
// gorilla/mux router: registration, discovery, reputation and
// availability updates, capability schema lookup, admin reindex, and the
// health probe.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sage-x-project/agent-registry/internal/admin"
	"github.com/sage-x-project/agent-registry/internal/admission"
	"github.com/sage-x-project/agent-registry/internal/discovery"
	"github.com/sage-x-project/agent-registry/internal/health"
	"github.com/sage-x-project/agent-registry/internal/registry"
	"github.com/sage-x-project/agent-registry/internal/store/postgres"
	"github.com/sage-x-project/agent-registry/logger"
)

// MaxBodyBytes caps request bodies per spec.md section 5: "request
// bodies are capped at 512 KiB; larger requests are rejected at the
// transport layer before validation."
const MaxBodyBytes = 512 * 1024

// Server bundles the handlers and admission guard into a mountable router.
type Server struct {
	guard      *admission.Guard
	registry   *registry.Service
	discovery  *discovery.Service
	health     *health.Checker
	reindexer  *admin.Reindexer
	pg         *postgres.Store
	validator  *registry.Validator
	corsOrigin string
	log        *logger.Logger
}

// NewServer constructs the HTTP server.
func NewServer(
	guard *admission.Guard,
	registrySvc *registry.Service,
	discoverySvc *discovery.Service,
	healthChecker *health.Checker,
	reindexer *admin.Reindexer,
	pg *postgres.Store,
	validator *registry.Validator,
	corsOrigin string,
	log *logger.Logger,
) *Server {
	return &Server{
		guard:      guard,
		registry:   registrySvc,
		discovery:  discoverySvc,
		health:     healthChecker,
		reindexer:  reindexer,
		pg:         pg,
		validator:  validator,
		corsOrigin: corsOrigin,
		log:        log,
	}
}

// Router builds the full mux.Router with admission middleware applied.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/v1/agent/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/v1/agent/discovery", s.handleDiscovery).Methods(http.MethodPost)
	r.HandleFunc("/v1/agent/reputation", s.handleReputation).Methods(http.MethodPost)
	r.HandleFunc("/v1/agent/availability", s.handleAvailability).Methods(http.MethodPost)
	r.HandleFunc("/v1/capability/{id}/schema", s.handleCapabilitySchema).Methods(http.MethodGet)
	r.HandleFunc("/admin/reindex", s.handleReindex).Methods(http.MethodPost)

	r.Use(s.corsMiddleware)

	var handler http.Handler = r
	handler = http.MaxBytesHandler(handler, MaxBodyBytes)
	return s.guard.Wrap(handler)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, x-api-key, x-request-id, x-correlation-id")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
