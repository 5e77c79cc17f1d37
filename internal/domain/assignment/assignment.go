// Package assignment turns a scored matrix into a balanced assignment.
//
// A greedy pass walks the matrix best-first and gives each unassigned client
// to its employee while that employee is below quota. Clients left over
// (because their pairs failed to score or every candidate was full) are
// swept into the least-loaded employees. Every client ends up with exactly
// one employee.
package assignment

import (
	"sort"
	"time"

	"github.com/okian/affinity/internal/domain/model"
	"github.com/okian/affinity/pkg/metrics"
)

// Placeholder score for clients placed by the overflow sweep.
const (
	overflowTotalScore = 50
	overflowConfidence = 0.5
)

// Assign distributes clients over employees using matrix, which must be
// sorted best-first (see matrix.Sort). Pairs referring to unknown clients or
// employees are ignored.
func Assign(matrix []model.ScoredPair, clients []model.Client, employees []model.Employee, opts ...Option) (model.AssignmentResult, error) {
	cfg := config{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(employees) == 0 {
		return model.AssignmentResult{}, ErrNoEmployees
	}

	quota := model.Quota(len(clients), len(employees))
	result := model.AssignmentResult{
		Mode:        model.ModeScored,
		Quota:       quota,
		Assignments: make(map[string][]model.Assignment, len(employees)),
	}
	for _, e := range employees {
		result.Assignments[e.Key()] = []model.Assignment{}
	}

	pending := make(map[string]bool, len(clients))
	for _, c := range clients {
		pending[c.Key()] = true
	}

	greedy := 0
	for _, p := range matrix {
		ck, ek := p.Client.Key(), p.Employee.Key()
		list, known := result.Assignments[ek]
		if !known || !pending[ck] || len(list) >= quota {
			continue
		}
		result.Assignments[ek] = append(list, model.Assignment{Client: p.Client, Score: p.Score})
		delete(pending, ck)
		greedy++
	}

	overflow := 0
	placedAt := cfg.now()
	for _, c := range clients {
		ck := c.Key()
		if !pending[ck] {
			continue
		}
		ek := leastLoaded(result.Assignments, employees)
		result.Assignments[ek] = append(result.Assignments[ek], model.Assignment{
			Client: c,
			Score: model.ScorePair{
				TotalScore: overflowTotalScore,
				Confidence: overflowConfidence,
				Reasons:    []string{model.ReasonOverflow},
				ComputedAt: placedAt,
			},
			Overflow: true,
		})
		delete(pending, ck)
		overflow++
	}

	for ek := range result.Assignments {
		list := result.Assignments[ek]
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Score.TotalScore > list[j].Score.TotalScore
		})
	}

	metrics.RecordAssignments("greedy", greedy)
	metrics.RecordAssignments("overflow", overflow)
	return result, nil
}

// leastLoaded returns the employee with the fewest assignments, lowest key first.
func leastLoaded(assignments map[string][]model.Assignment, employees []model.Employee) string {
	best := ""
	bestLoad := -1
	for _, e := range employees {
		ek := e.Key()
		load := len(assignments[ek])
		if bestLoad < 0 || load < bestLoad || (load == bestLoad && ek < best) {
			best, bestLoad = ek, load
		}
	}
	return best
}
