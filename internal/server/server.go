// Package server exposes the settlement engine as a JSON HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mizutamari/warikan/internal/auth"
	"github.com/mizutamari/warikan/internal/middleware"
	"github.com/mizutamari/warikan/internal/service"
	"github.com/mizutamari/warikan/internal/storage"
)

// Server holds the handler dependencies.
type Server struct {
	settlements       *service.SettlementService
	store             storage.Store
	jwtManager        *auth.JWTManager
	adminPasswordHash string
}

// New creates a Server.
func New(settlements *service.SettlementService, store storage.Store, jwtManager *auth.JWTManager, adminPasswordHash string) *Server {
	return &Server{
		settlements:       settlements,
		store:             store,
		jwtManager:        jwtManager,
		adminPasswordHash: adminPasswordHash,
	}
}

// Routes builds the full handler tree with middleware applied.
// Token issuance, health, and metrics are public; everything else requires
// a Bearer token, and mutating settlement calls additionally require the
// admin claim.
func (s *Server) Routes() http.Handler {
	public := http.NewServeMux()
	public.HandleFunc("POST /api/token", s.handleIssueToken)
	public.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	public.Handle("GET /metrics", promhttp.Handler())

	api := http.NewServeMux()
	api.HandleFunc("POST /api/households", s.handleCreateHousehold)
	api.HandleFunc("POST /api/households/{id}/members", s.handleAddMember)
	api.HandleFunc("POST /api/households/{id}/expenses", s.handleRecordExpense)
	api.HandleFunc("POST /api/households/{id}/incomes", s.handleDeclareIncome)
	api.HandleFunc("PUT /api/households/{id}/policy", s.handleSetPolicy)
	api.HandleFunc("POST /api/settlements/run", s.handleRunSettlement)
	api.HandleFunc("POST /api/settlements/{id}/finalize", s.handleFinalizeSettlement)
	api.HandleFunc("GET /api/settlements", s.handleListSettlements)
	api.HandleFunc("GET /api/settlements/{id}", s.handleGetSettlement)

	authed := middleware.RequireAuth(s.jwtManager)(api)
	public.Handle("/api/", authed)

	return middleware.Logging(public)
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps engine errors onto HTTP statuses:
// validation -> 400, not found -> 404, conflicts -> 409,
// consistency faults and everything else -> 500.
func writeError(w http.ResponseWriter, err error) {
	var validation *service.ValidationError
	var consistency *service.ConsistencyFault
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrSettlementNotFound), errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrSettlementFinalized), errors.Is(err, service.ErrRunInProgress):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.As(err, &consistency):
		slog.Error("consistency fault", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal consistency fault"})
	default:
		slog.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// requireAdmin rejects non-admin sessions. Returns false after writing the
// response when the caller is not an admin.
func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if !middleware.IsAdmin(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "admin privileges required"})
		return false
	}
	return true
}

// decodeBody decodes a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}
