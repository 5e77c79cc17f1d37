package model

import "time"

// Mode tells how an AssignmentResult was produced.
type Mode string

// Result modes.
const (
	ModeScored   Mode = "scored"
	ModeFallback Mode = "fallback"
)

// Reasons attached to synthetic scores.
const (
	ReasonOverflow = "assigned for balanced distribution"
	ReasonFallback = "fallback assignment — semantic matching unavailable"
)

// Assignment is one client placed with an employee.
// Overflow marks placements made by the least-loaded sweep.
type Assignment struct {
	Client   Client    `json:"client"`
	Score    ScorePair `json:"score"`
	Overflow bool      `json:"overflow,omitempty"`
}

// AssignmentResult maps employee keys to their ordered assignments.
// Every input client appears in exactly one list.
type AssignmentResult struct {
	RunID       string                  `json:"run_id"`
	Kind        ClientKind              `json:"kind"`
	Mode        Mode                    `json:"mode"`
	Quota       int                     `json:"quota"`
	Assignments map[string][]Assignment `json:"assignments"`
	GeneratedAt time.Time               `json:"generated_at"`
}

// Total returns the number of assigned clients across all employees.
func (r AssignmentResult) Total() int {
	n := 0
	for _, list := range r.Assignments {
		n += len(list)
	}
	return n
}

// ForEmployee returns the ordered assignments of one employee, or nil.
func (r AssignmentResult) ForEmployee(employeeKey string) []Assignment {
	list := r.Assignments[employeeKey]
	if len(list) == 0 {
		return nil
	}
	out := make([]Assignment, len(list))
	copy(out, list)
	return out
}

// Quota is the per-employee cap of the greedy pass: ceil(clients/employees).
func Quota(clients, employees int) int {
	if employees <= 0 {
		return 0
	}
	return (clients + employees - 1) / employees
}
