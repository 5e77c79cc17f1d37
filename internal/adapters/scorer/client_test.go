package scorer_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/affinity/internal/adapters/scorer"
	"github.com/okian/affinity/internal/domain/model"
	"github.com/okian/affinity/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeService mimics the scoring service endpoints.
type fakeService struct {
	matchStatus  int
	matchBody    string
	healthStatus int
	cleared      atomic.Int32
	delay        time.Duration
	lastMatch    map[string]any
}

func (f *fakeService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /match", func(w http.ResponseWriter, r *http.Request) {
		if f.delay > 0 {
			time.Sleep(f.delay)
		}
		_ = json.NewDecoder(r.Body).Decode(&f.lastMatch)
		if f.matchStatus != 0 {
			w.WriteHeader(f.matchStatus)
		}
		_, _ = w.Write([]byte(f.matchBody))
	})
	mux.HandleFunc("POST /semantic-similarity", func(w http.ResponseWriter, _ *http.Request) {
		if f.healthStatus != 0 {
			w.WriteHeader(f.healthStatus)
			return
		}
		_, _ = w.Write([]byte(`{"score": 1.0}`))
	})
	mux.HandleFunc("POST /clear-cache", func(w http.ResponseWriter, _ *http.Request) {
		f.cleared.Add(1)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

const okMatch = `{"matches":[{"employee_ref":{"id":"e-1"},"semantic_score":0.8,"overall_similarity":0.7,
"industry_similarity":0.9,"skills_similarity":0.6,"total_score":84.5,"overall_confidence":0.75,
"rule_based_reasons":["industry experience"]}]}`

func TestClient_Score(t *testing.T) {
	Convey("Given a scoring service", t, func() {
		svc := &fakeService{matchBody: okMatch}
		srv := httptest.NewServer(svc.handler())
		defer srv.Close()

		c := scorer.New(srv.URL+"/", scorer.WithTimeout(time.Second))
		ctx := context.Background()
		client := model.Client{ID: "c-1", Name: "Acme", Industry: "retail"}
		employee := model.Employee{ID: "e-1", Name: "Ana"}

		Convey("When the pair is scored", func() {
			pair, err := c.Score(ctx, client, employee)

			Convey("Then the response is mapped onto a score pair", func() {
				So(err, ShouldBeNil)
				So(pair.SemanticScore, ShouldEqual, 0.8)
				So(pair.IndustryAlignment, ShouldEqual, 0.9)
				So(pair.SkillsMatch, ShouldEqual, 0.6)
				So(pair.OverallSimilarity, ShouldEqual, 0.7)
				So(pair.Confidence, ShouldEqual, 0.75)
				So(pair.TotalScore, ShouldEqual, 84.5)
				So(pair.Reasons, ShouldResemble, []string{"industry experience"})
				So(pair.ComputedAt.IsZero(), ShouldBeFalse)
			})

			Convey("And the request carries the client and one employee", func() {
				So(svc.lastMatch["client"].(map[string]any)["id"], ShouldEqual, "c-1")
				So(len(svc.lastMatch["employees"].([]any)), ShouldEqual, 1)
			})
		})

		Convey("When the service answers 503", func() {
			svc.matchStatus = http.StatusServiceUnavailable
			_, err := c.Score(ctx, client, employee)

			Convey("Then the error is ErrUnavailable", func() {
				So(errors.Is(err, scoring.ErrUnavailable), ShouldBeTrue)
			})
		})

		Convey("When the service answers 500", func() {
			svc.matchStatus = http.StatusInternalServerError
			_, err := c.Score(ctx, client, employee)

			Convey("Then the error is ErrScoring", func() {
				So(errors.Is(err, scoring.ErrScoring), ShouldBeTrue)
			})
		})

		Convey("When the response is malformed", func() {
			svc.matchBody = `{"matches": "nope"`
			_, err := c.Score(ctx, client, employee)

			Convey("Then the error is ErrScoring", func() {
				So(errors.Is(err, scoring.ErrScoring), ShouldBeTrue)
			})
		})

		Convey("When no match is returned", func() {
			svc.matchBody = `{"matches": []}`
			_, err := c.Score(ctx, client, employee)

			Convey("Then the error is ErrScoring", func() {
				So(errors.Is(err, scoring.ErrScoring), ShouldBeTrue)
			})
		})

		Convey("When the scores are out of range", func() {
			for _, body := range []string{
				`{"matches":[{"semantic_score":7,"overall_confidence":0.5,"total_score":50}]}`,
				`{"matches":[{"semantic_score":0.5,"overall_confidence":-3,"total_score":50}]}`,
				`{"matches":[{"semantic_score":0.5,"overall_confidence":0.5,"total_score":-250}]}`,
				`{"matches":[{"semantic_score":0.5,"overall_confidence":0.5,"total_score":1000}]}`,
				`{"matches":[{"skills_similarity":1.5,"total_score":50}]}`,
			} {
				svc.matchBody = body
				_, err := c.Score(ctx, client, employee)

				So(errors.Is(err, scoring.ErrScoring), ShouldBeTrue)
				So(errors.Is(err, scoring.ErrUnavailable), ShouldBeFalse)
			}
		})

		Convey("When the match refers to another employee", func() {
			svc.matchBody = `{"matches":[{"employee_ref":{"id":"e-9"},"total_score":50}]}`
			_, err := c.Score(ctx, client, employee)

			Convey("Then the error is ErrScoring", func() {
				So(errors.Is(err, scoring.ErrScoring), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "employee_ref")
			})
		})

		Convey("When the match refers to the employee by a bare id", func() {
			svc.matchBody = `{"matches":[{"employee_ref":"e-1","total_score":100,"overall_confidence":1}]}`
			pair, err := c.Score(ctx, client, employee)

			Convey("Then the boundary values are accepted", func() {
				So(err, ShouldBeNil)
				So(pair.TotalScore, ShouldEqual, 100)
				So(pair.Confidence, ShouldEqual, 1)
			})
		})

		Convey("When the call exceeds the per-call timeout", func() {
			svc.delay = 200 * time.Millisecond
			slow := scorer.New(srv.URL, scorer.WithTimeout(20*time.Millisecond))
			_, err := slow.Score(ctx, client, employee)

			Convey("Then the error is ErrScoring, not ErrUnavailable", func() {
				So(errors.Is(err, scoring.ErrScoring), ShouldBeTrue)
				So(errors.Is(err, scoring.ErrUnavailable), ShouldBeFalse)
			})
		})
	})

	Convey("Given no service listening", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		c := scorer.New(url)

		Convey("Then Score fails with ErrUnavailable", func() {
			_, err := c.Score(context.Background(), model.Client{ID: "c"}, model.Employee{ID: "e"})
			So(errors.Is(err, scoring.ErrUnavailable), ShouldBeTrue)
		})

		Convey("Then HealthCheck reports false without an error", func() {
			So(c.HealthCheck(context.Background()), ShouldBeFalse)
		})
	})
}

func TestClient_HealthAndMaintenance(t *testing.T) {
	Convey("Given a scoring service", t, func() {
		svc := &fakeService{}
		srv := httptest.NewServer(svc.handler())
		defer srv.Close()
		c := scorer.New(srv.URL)
		ctx := context.Background()

		Convey("Then a healthy service passes the health check", func() {
			So(c.HealthCheck(ctx), ShouldBeTrue)
			So(c.Warmup(ctx), ShouldBeNil)
		})

		Convey("Then an unhealthy service fails the health check", func() {
			svc.healthStatus = http.StatusServiceUnavailable
			So(c.HealthCheck(ctx), ShouldBeFalse)
			So(c.Warmup(ctx), ShouldNotBeNil)
		})

		Convey("Then ClearCache hits the clear endpoint", func() {
			So(c.ClearCache(ctx), ShouldBeNil)
			So(svc.cleared.Load(), ShouldEqual, 1)
		})
	})
}
