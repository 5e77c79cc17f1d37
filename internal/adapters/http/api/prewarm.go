package api

import (
	"errors"
	"net/http"

	"github.com/okian/affinity/internal/domain/prewarm"
)

// PrewarmHandler starts the once-only background cache fill.
type PrewarmHandler struct {
	deps       Dependencies
	maxClients int
}

// NewPrewarmHandler creates a new prewarm handler.
func NewPrewarmHandler(deps Dependencies, maxClients int) *PrewarmHandler {
	return &PrewarmHandler{deps: deps, maxClients: maxClients}
}

type ackResponse struct {
	Status string `json:"status"`
}

// HandlePrewarm handles POST /prewarm requests.
func (h *PrewarmHandler) HandlePrewarm(w http.ResponseWriter, r *http.Request) {
	const op = "api.prewarm"
	req, _, err := decodeMatchRequest(w, r, h.maxClients)
	if err != nil {
		status, code := badRequestStatus(err)
		writeError(w, status, code, wrapKind(op, ErrBadRequest, err))
		return
	}

	err = h.deps.StartPrewarm(req.Clients, req.Employees)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
	case errors.Is(err, prewarm.ErrAlreadyStarted):
		writeError(w, http.StatusConflict, "already_started", err)
	default:
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	}
}
