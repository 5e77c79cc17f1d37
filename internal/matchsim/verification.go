package matchsim

import (
	"errors"
	"fmt"

	"github.com/okian/affinity/internal/domain/model"
)

// ErrVerify marks a result that breaks an assignment guarantee.
var ErrVerify = errors.New("verification failed")

// Verify checks a result against the clients that were sent (already
// filtered by kind) and fills load statistics into stats.
//
// Checked: every client appears exactly once, nothing unknown is assigned,
// greedy placements never exceed the quota, and each list is ordered by
// score.
func Verify(result model.AssignmentResult, clients []model.Client, employees []model.Employee, stats *Stats) error {
	want := make(map[string]bool, len(clients))
	for _, c := range clients {
		want[c.Key()] = true
	}
	known := make(map[string]bool, len(employees))
	for _, e := range employees {
		known[e.Key()] = true
	}

	if q := model.Quota(len(clients), len(employees)); result.Quota != q {
		return fmt.Errorf("%w: quota %d, expected %d", ErrVerify, result.Quota, q)
	}

	seen := make(map[string]string, len(clients))
	var (
		scoreSum float64
		overflow int
	)
	minLoad, maxLoad := -1, 0
	for empKey, list := range result.Assignments {
		if !known[empKey] {
			return fmt.Errorf("%w: unknown employee %q", ErrVerify, empKey)
		}
		greedy := 0
		for i, a := range list {
			key := a.Client.Key()
			if !want[key] {
				return fmt.Errorf("%w: unexpected client %q", ErrVerify, key)
			}
			if prev, dup := seen[key]; dup {
				return fmt.Errorf("%w: client %q assigned to %q and %q", ErrVerify, key, prev, empKey)
			}
			seen[key] = empKey
			if i > 0 && list[i-1].Score.TotalScore < a.Score.TotalScore {
				return fmt.Errorf("%w: list of %q not ordered by score at %d", ErrVerify, empKey, i)
			}
			if a.Overflow {
				overflow++
			} else {
				greedy++
			}
			scoreSum += a.Score.TotalScore
		}
		if result.Mode == model.ModeScored && greedy > result.Quota {
			return fmt.Errorf("%w: %q holds %d greedy placements, quota %d", ErrVerify, empKey, greedy, result.Quota)
		}
		if minLoad < 0 || len(list) < minLoad {
			minLoad = len(list)
		}
		if len(list) > maxLoad {
			maxLoad = len(list)
		}
	}

	if len(seen) != len(want) {
		return fmt.Errorf("%w: %d of %d clients assigned", ErrVerify, len(seen), len(want))
	}

	if stats != nil {
		stats.Matched = len(seen)
		stats.Overflow = overflow
		stats.Mode = result.Mode
		stats.Quota = result.Quota
		stats.MaxLoad = maxLoad
		stats.MinLoad = max(minLoad, 0)
		if len(seen) > 0 {
			stats.AverageScore = scoreSum / float64(len(seen))
		}
	}
	return nil
}
