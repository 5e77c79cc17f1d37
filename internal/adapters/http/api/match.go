package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/okian/affinity/internal/domain/assignment"
	"github.com/okian/affinity/internal/domain/model"
)

// MatchHandler serves the matching endpoints.
type MatchHandler struct {
	deps       Dependencies
	maxClients int
	timeout    time.Duration
}

// NewMatchHandler creates a new match handler. Each run is bounded by timeout;
// zero leaves it to the request context.
func NewMatchHandler(deps Dependencies, maxClients int, timeout time.Duration) *MatchHandler {
	return &MatchHandler{deps: deps, maxClients: maxClients, timeout: timeout}
}

func (h *MatchHandler) runContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.timeout)
}

type runFunc func(ctx context.Context, clients []model.Client, employees []model.Employee, kind model.ClientKind) (model.AssignmentResult, error)

// HandleMatch handles POST /match requests.
func (h *MatchHandler) HandleMatch(w http.ResponseWriter, r *http.Request) {
	h.serveRun(w, r, "api.match", h.deps.MatchAll)
}

// HandleRefresh handles POST /refresh requests.
func (h *MatchHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	h.serveRun(w, r, "api.refresh", h.deps.Refresh)
}

func (h *MatchHandler) serveRun(w http.ResponseWriter, r *http.Request, op string, run runFunc) {
	req, kind, err := decodeMatchRequest(w, r, h.maxClients)
	if err != nil {
		status, code := badRequestStatus(err)
		writeError(w, status, code, wrapKind(op, ErrBadRequest, err))
		return
	}
	ctx, cancel := h.runContext(r)
	defer cancel()
	result, err := run(ctx, req.Clients, req.Employees, kind)
	if err != nil {
		writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type employeeMatchesResponse struct {
	RunID       string             `json:"run_id"`
	Mode        model.Mode         `json:"mode"`
	EmployeeID  string             `json:"employee_id"`
	Assignments []model.Assignment `json:"assignments"`
}

// HandleEmployee handles POST /match/employee/{id}: it runs a match and
// returns only that employee's ordered list.
func (h *MatchHandler) HandleEmployee(w http.ResponseWriter, r *http.Request) {
	const op = "api.match_employee"
	employeeID := strings.TrimSpace(r.PathValue("id"))
	if employeeID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, nil))
		return
	}

	req, kind, err := decodeMatchRequest(w, r, h.maxClients)
	if err != nil {
		status, code := badRequestStatus(err)
		writeError(w, status, code, wrapKind(op, ErrBadRequest, err))
		return
	}
	if !containsEmployee(req.Employees, employeeID) {
		writeError(w, http.StatusNotFound, "not_found", wrapKind(op, ErrUnknownEmpl, errors.New(employeeID)))
		return
	}

	ctx, cancel := h.runContext(r)
	defer cancel()
	result, err := h.deps.MatchAll(ctx, req.Clients, req.Employees, kind)
	if err != nil {
		writeRunError(w, err)
		return
	}
	list := h.deps.MatchesForEmployee(result, employeeID)
	if list == nil {
		list = []model.Assignment{}
	}
	writeJSON(w, http.StatusOK, employeeMatchesResponse{
		RunID:       result.RunID,
		Mode:        result.Mode,
		EmployeeID:  employeeID,
		Assignments: list,
	})
}

func containsEmployee(employees []model.Employee, id string) bool {
	for _, e := range employees {
		if e.Key() == id {
			return true
		}
	}
	return false
}

func writeRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, assignment.ErrNoEmployees):
		writeError(w, http.StatusUnprocessableEntity, "no_employees", err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "timeout", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
