// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/affinity/internal/domain/model"
)

const (
	defaultMaxClients     = 5000
	defaultRequestTimeout = 5 * time.Minute
	maxBodyBytes          = 16 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	MatchAll(ctx context.Context, clients []model.Client, employees []model.Employee, kind model.ClientKind) (model.AssignmentResult, error)
	Refresh(ctx context.Context, clients []model.Client, employees []model.Employee, kind model.ClientKind) (model.AssignmentResult, error)
	MatchesForEmployee(result model.AssignmentResult, employeeID string) []model.Assignment
	StartPrewarm(clients []model.Client, employees []model.Employee) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	matchHandler   *MatchHandler
	prewarmHandler *PrewarmHandler
}

// Option configures a Server.
type Option func(*serverConfig)

type serverConfig struct {
	maxClients     int
	requestTimeout time.Duration
	checker        HealthChecker
}

// WithMaxClients caps the clients accepted by one request.
func WithMaxClients(n int) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxClients = n
		}
	}
}

// WithRequestTimeout bounds one matching run. A run past it answers 503.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *serverConfig) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

// WithHealthChecker lets /healthz?format=json report scoring availability.
func WithHealthChecker(hc HealthChecker) Option {
	return func(c *serverConfig) {
		c.checker = hc
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := serverConfig{maxClients: defaultMaxClients, requestTimeout: defaultRequestTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:  NewHealthHandler(cfg.checker),
		statsHandler:   NewStatsHandler(statsProvider),
		matchHandler:   NewMatchHandler(deps, cfg.maxClients, cfg.requestTimeout),
		prewarmHandler: NewPrewarmHandler(deps, cfg.maxClients),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /match", MetricsMiddleware(s.matchHandler.HandleMatch, "match"))
	mux.HandleFunc("POST /refresh", MetricsMiddleware(s.matchHandler.HandleRefresh, "refresh"))
	mux.HandleFunc("POST /match/employee/{id}", MetricsMiddleware(s.matchHandler.HandleEmployee, "match_employee"))
	mux.HandleFunc("POST /prewarm", MetricsMiddleware(s.prewarmHandler.HandlePrewarm, "prewarm"))
}

// matchRequest mirrors the OpenAPI schema shared by the matching endpoints.
type matchRequest struct {
	Kind      string           `json:"kind"`
	Clients   []model.Client   `json:"clients"`
	Employees []model.Employee `json:"employees"`
}

// decodeMatchRequest reads and validates a request body. Records without an
// id are rejected so the core never falls back to name-based identity.
func decodeMatchRequest(w http.ResponseWriter, r *http.Request, maxClients int) (matchRequest, model.ClientKind, error) {
	var req matchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		return req, "", fmt.Errorf("invalid json: %w", err)
	}

	kind, ok := model.ParseKind(req.Kind)
	if !ok {
		return req, "", fmt.Errorf("invalid kind %q; must be customer, lead or all", req.Kind)
	}
	if len(req.Clients) > maxClients {
		return req, "", fmt.Errorf("%w: %d > %d", ErrTooManyClients, len(req.Clients), maxClients)
	}

	seen := make(map[string]bool, len(req.Clients))
	for i, c := range req.Clients {
		id := strings.TrimSpace(c.ID)
		switch {
		case id == "":
			return req, "", fmt.Errorf("clients[%d]: missing id", i)
		case seen[id]:
			return req, "", fmt.Errorf("clients[%d]: duplicate id %q", i, id)
		}
		seen[id] = true
	}

	seen = make(map[string]bool, len(req.Employees))
	for i, e := range req.Employees {
		id := strings.TrimSpace(e.ID)
		switch {
		case id == "":
			return req, "", fmt.Errorf("employees[%d]: missing id", i)
		case seen[id]:
			return req, "", fmt.Errorf("employees[%d]: duplicate id %q", i, id)
		}
		seen[id] = true
	}
	return req, kind, nil
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func badRequestStatus(err error) (int, string) {
	if errors.Is(err, ErrTooManyClients) {
		return http.StatusRequestEntityTooLarge, "too_many_clients"
	}
	return http.StatusBadRequest, "bad_request"
}
