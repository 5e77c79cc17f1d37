package assignment_test

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/okian/affinity/internal/domain/assignment"
	"github.com/okian/affinity/internal/domain/matrix"
	"github.com/okian/affinity/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var placed = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return placed }

func pair(c, e string, score float64) model.ScoredPair {
	return model.ScoredPair{
		Client:   model.Client{ID: c},
		Employee: model.Employee{ID: e},
		Score:    model.ScorePair{TotalScore: score},
	}
}

func ids(list []model.Assignment) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.Client.ID
	}
	return out
}

func makeClients(n int) []model.Client {
	out := make([]model.Client, n)
	for i := range out {
		out[i] = model.Client{ID: fmt.Sprintf("c%d", i+1)}
	}
	return out
}

func makeEmployees(n int) []model.Employee {
	out := make([]model.Employee, n)
	for i := range out {
		out[i] = model.Employee{ID: fmt.Sprintf("e%d", i+1)}
	}
	return out
}

func TestAssign_Scenarios(t *testing.T) {
	Convey("Given five clients split by preference over two employees", t, func() {
		m := []model.ScoredPair{
			pair("c1", "e1", 95), pair("c2", "e1", 90), pair("c3", "e1", 85),
			pair("c4", "e2", 80), pair("c5", "e2", 75),
			pair("c1", "e2", 30), pair("c2", "e2", 25), pair("c3", "e2", 20),
			pair("c4", "e1", 15), pair("c5", "e1", 10),
		}
		matrix.Sort(m)

		result, err := assignment.Assign(m, makeClients(5), makeEmployees(2))

		Convey("Then each side gets its preferred clients without overflow", func() {
			So(err, ShouldBeNil)
			So(result.Quota, ShouldEqual, 3)
			So(ids(result.Assignments["e1"]), ShouldResemble, []string{"c1", "c2", "c3"})
			So(ids(result.Assignments["e2"]), ShouldResemble, []string{"c4", "c5"})
			for _, list := range result.Assignments {
				for _, a := range list {
					So(a.Overflow, ShouldBeFalse)
				}
			}
		})
	})

	Convey("Given five clients whose only scored pairs point to one employee", t, func() {
		m := []model.ScoredPair{
			pair("c1", "e1", 99), pair("c2", "e1", 97), pair("c3", "e1", 95),
			pair("c4", "e1", 93), pair("c5", "e1", 91),
		}

		result, err := assignment.Assign(m, makeClients(5), makeEmployees(3))

		Convey("Then e1 keeps its top two and the rest are swept least-loaded first", func() {
			So(err, ShouldBeNil)
			So(result.Quota, ShouldEqual, 2)
			So(ids(result.Assignments["e1"]), ShouldResemble, []string{"c1", "c2"})
			So(ids(result.Assignments["e2"]), ShouldResemble, []string{"c3", "c5"})
			So(ids(result.Assignments["e3"]), ShouldResemble, []string{"c4"})
		})

		Convey("And swept clients carry the placeholder score", func() {
			a := result.Assignments["e3"][0]
			So(a.Overflow, ShouldBeTrue)
			So(a.Score.TotalScore, ShouldEqual, 50)
			So(a.Score.Confidence, ShouldEqual, 0.5)
			So(a.Score.Reasons, ShouldResemble, []string{model.ReasonOverflow})
		})
	})
}

func TestAssign_Properties(t *testing.T) {
	Convey("Given random matrices of varying shape", t, func() {
		rng := rand.New(rand.NewSource(7))

		for round := 0; round < 50; round++ {
			clients := makeClients(rng.Intn(40))
			employees := makeEmployees(1 + rng.Intn(7))

			var m []model.ScoredPair
			for _, c := range clients {
				for _, e := range employees {
					// drop some pairs the way failed scoring calls would
					if rng.Float64() < 0.2 {
						continue
					}
					m = append(m, pair(c.ID, e.ID, float64(rng.Intn(101))))
				}
			}
			matrix.Sort(m)

			result, err := assignment.Assign(m, clients, employees, assignment.WithClock(fixedNow))
			So(err, ShouldBeNil)

			// every client exactly once
			seen := map[string]int{}
			for _, list := range result.Assignments {
				for _, a := range list {
					seen[a.Client.ID]++
				}
			}
			So(len(seen), ShouldEqual, len(clients))
			for _, n := range seen {
				So(n, ShouldEqual, 1)
			}
			So(result.Total(), ShouldEqual, len(clients))

			// every employee has a list; greedy placements respect quota
			So(len(result.Assignments), ShouldEqual, len(employees))
			for _, list := range result.Assignments {
				greedy := 0
				for i, a := range list {
					if !a.Overflow {
						greedy++
					}
					if i > 0 {
						So(list[i-1].Score.TotalScore, ShouldBeGreaterThanOrEqualTo, a.Score.TotalScore)
					}
				}
				So(greedy, ShouldBeLessThanOrEqualTo, result.Quota)
			}

			// identical input yields identical output
			again, _ := assignment.Assign(m, clients, employees, assignment.WithClock(fixedNow))
			So(again.Assignments, ShouldResemble, result.Assignments)
		}
	})
}

func TestAssign_EdgeCases(t *testing.T) {
	Convey("Given no employees", t, func() {
		_, err := assignment.Assign(nil, makeClients(3), nil)

		Convey("Then ErrNoEmployees is returned", func() {
			So(errors.Is(err, assignment.ErrNoEmployees), ShouldBeTrue)
		})
	})

	Convey("Given no clients", t, func() {
		result, err := assignment.Assign(nil, nil, makeEmployees(2))

		Convey("Then every employee has an empty list", func() {
			So(err, ShouldBeNil)
			So(result.Quota, ShouldEqual, 0)
			So(result.Total(), ShouldEqual, 0)
			So(result.Assignments["e1"], ShouldBeEmpty)
			So(result.Assignments["e2"], ShouldBeEmpty)
		})
	})

	Convey("Given an empty matrix", t, func() {
		result, err := assignment.Assign(nil, makeClients(4), makeEmployees(2))

		Convey("Then the sweep balances every client", func() {
			So(err, ShouldBeNil)
			So(ids(result.Assignments["e1"]), ShouldResemble, []string{"c1", "c3"})
			So(ids(result.Assignments["e2"]), ShouldResemble, []string{"c2", "c4"})
		})

		Convey("Then placeholder scores carry a computation time", func() {
			for _, list := range result.Assignments {
				for _, a := range list {
					So(a.Overflow, ShouldBeTrue)
					So(a.Score.ComputedAt.IsZero(), ShouldBeFalse)
				}
			}
		})
	})

	Convey("Given an injected clock", t, func() {
		result, err := assignment.Assign(nil, makeClients(2), makeEmployees(2), assignment.WithClock(fixedNow))

		Convey("Then overflow placements are stamped with it", func() {
			So(err, ShouldBeNil)
			So(result.Assignments["e1"][0].Score.ComputedAt.Equal(placed), ShouldBeTrue)
			So(result.Assignments["e2"][0].Score.ComputedAt.Equal(placed), ShouldBeTrue)
		})
	})

	Convey("Given pairs for clients outside the run", t, func() {
		m := []model.ScoredPair{pair("ghost", "e1", 100), pair("c1", "e9", 99), pair("c1", "e1", 10)}
		result, err := assignment.Assign(m, makeClients(1), makeEmployees(1))

		Convey("Then they are ignored", func() {
			So(err, ShouldBeNil)
			So(ids(result.Assignments["e1"]), ShouldResemble, []string{"c1"})
			So(result.Assignments, ShouldNotContainKey, "e9")
		})
	})
}
