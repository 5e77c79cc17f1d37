package scoring_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/affinity/internal/domain/model"
	scoring "github.com/okian/affinity/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestInMemoryScorer_Score(t *testing.T) {
	Convey("Given a new in-memory scorer", t, func() {
		scorer := scoring.NewInMemoryScorer(scoring.WithClock(func() time.Time { return fixedNow }))
		ctx := context.Background()

		fintech := model.Client{
			ID:       "c-1",
			Name:     "Ledgerly",
			Industry: "fintech",
			Needs:    "payments compliance",
			Size:     "enterprise",
		}
		banker := model.Employee{
			ID:          "e-1",
			Name:        "Ana",
			Department:  "Enterprise Sales",
			Specialties: []string{"fintech", "payments", "compliance"},
		}
		gardener := model.Employee{
			ID:          "e-2",
			Name:        "Bo",
			Department:  "Retail",
			Specialties: []string{"gardening", "outdoor"},
		}

		Convey("When scoring a well aligned pair", func() {
			pair, err := scorer.Score(ctx, fintech, banker)

			Convey("Then every component is in range", func() {
				So(err, ShouldBeNil)
				for _, v := range []float64{pair.SemanticScore, pair.IndustryAlignment, pair.SkillsMatch, pair.OverallSimilarity, pair.Confidence} {
					So(v, ShouldBeBetweenOrEqual, 0, 1)
				}
				So(pair.TotalScore, ShouldBeBetweenOrEqual, 0, 100)
				So(pair.ComputedAt, ShouldEqual, fixedNow)
			})

			Convey("And rule-based reasons are attached", func() {
				So(pair.IndustryAlignment, ShouldEqual, 1.0)
				So(pair.SkillsMatch, ShouldEqual, 1.0)
				So(pair.Reasons, ShouldContain, "industry experience: fintech")
				So(pair.Reasons, ShouldContain, "specialties cover client needs")
				So(pair.Reasons, ShouldContain, "handles enterprise accounts")
			})
		})

		Convey("When scoring an unrelated pair", func() {
			good, _ := scorer.Score(ctx, fintech, banker)
			bad, err := scorer.Score(ctx, fintech, gardener)

			Convey("Then it scores lower than the aligned pair", func() {
				So(err, ShouldBeNil)
				So(bad.TotalScore, ShouldBeLessThan, good.TotalScore)
				So(bad.Reasons, ShouldResemble, []string{"profile similarity"})
			})
		})

		Convey("When scoring the same pair twice", func() {
			a, _ := scorer.Score(ctx, fintech, banker)
			b, _ := scorer.Score(ctx, fintech, banker)

			Convey("Then the result is deterministic", func() {
				So(a, ShouldResemble, b)
			})
		})

		Convey("When the client has no comparable text", func() {
			_, err := scorer.Score(ctx, model.Client{ID: "c-2"}, banker)

			Convey("Then a scoring error is returned", func() {
				So(errors.Is(err, scoring.ErrScoring), ShouldBeTrue)
				So(errors.Is(err, scoring.ErrUnavailable), ShouldBeFalse)
			})
		})
	})
}

func TestInMemoryScorer_Latency(t *testing.T) {
	Convey("Given a scorer with simulated latency", t, func() {
		scorer := scoring.NewInMemoryScorer(scoring.WithLatencyRange(20*time.Millisecond, 40*time.Millisecond))
		client := model.Client{ID: "c", Industry: "retail"}
		employee := model.Employee{ID: "e", Department: "retail"}

		Convey("When the context is cancelled first", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
			defer cancel()

			_, err := scorer.Score(ctx, client, employee)

			Convey("Then the call fails as a scoring error", func() {
				So(errors.Is(err, scoring.ErrScoring), ShouldBeTrue)
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			})
		})

		Convey("When called concurrently", func() {
			var wg sync.WaitGroup
			errs := make(chan error, 10)
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := scorer.Score(context.Background(), client, employee)
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)

			Convey("Then every call succeeds", func() {
				for err := range errs {
					So(err, ShouldBeNil)
				}
			})
		})
	})
}

func TestInMemoryScorer_Health(t *testing.T) {
	Convey("Given an in-memory scorer", t, func() {
		scorer := scoring.NewInMemoryScorer()

		Convey("Then it is healthy while the context is live", func() {
			So(scorer.HealthCheck(context.Background()), ShouldBeTrue)
			So(scorer.Warmup(context.Background()), ShouldBeNil)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			So(scorer.HealthCheck(ctx), ShouldBeFalse)
		})
	})
}
