// Package scorer is the HTTP client of the semantic scoring service.
//
// Failures are classified for the matching engine: anything that means the
// service is not there (refused, DNS, 502/503/504) is scoring.ErrUnavailable;
// every other failure is scoring.ErrScoring. The client never retries.
package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/affinity/internal/domain/model"
	"github.com/okian/affinity/internal/domain/scoring"
	"github.com/okian/affinity/pkg/logger"
	"github.com/okian/affinity/pkg/metrics"
)

const (
	pathMatch      = "/match"
	pathSimilarity = "/semantic-similarity"
	pathClearCache = "/clear-cache"

	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// Client implements scoring.Scorer over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     logger.Logger
}

var (
	_ scoring.Scorer = (*Client)(nil)
	_ scoring.Warmer = (*Client)(nil)
)

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    defaultTimeout,
		logger:     logger.Get().Named("scorer"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type matchRequest struct {
	Client    model.Client     `json:"client"`
	Employees []model.Employee `json:"employees"`
}

type matchItem struct {
	EmployeeRef        json.RawMessage `json:"employee_ref"`
	SemanticScore      float64         `json:"semantic_score"`
	OverallSimilarity  float64         `json:"overall_similarity"`
	IndustrySimilarity float64         `json:"industry_similarity"`
	SkillsSimilarity   float64         `json:"skills_similarity"`
	TotalScore         float64         `json:"total_score"`
	OverallConfidence  float64         `json:"overall_confidence"`
	RuleBasedReasons   []string        `json:"rule_based_reasons"`
}

// validate rejects out-of-range or non-finite scores and a match that
// refers to a different employee.
func (m matchItem) validate(employee model.Employee) error {
	unit := []struct {
		name string
		v    float64
	}{
		{"semantic_score", m.SemanticScore},
		{"overall_similarity", m.OverallSimilarity},
		{"industry_similarity", m.IndustrySimilarity},
		{"skills_similarity", m.SkillsSimilarity},
		{"overall_confidence", m.OverallConfidence},
	}
	for _, f := range unit {
		if !inRange(f.v, 0, 1) {
			return fmt.Errorf("%s %v outside [0,1]", f.name, f.v)
		}
	}
	if !inRange(m.TotalScore, 0, 100) {
		return fmt.Errorf("total_score %v outside [0,100]", m.TotalScore)
	}
	if ref := refID(m.EmployeeRef); ref != "" && ref != employee.Key() {
		return fmt.Errorf("employee_ref %q does not match %q", ref, employee.Key())
	}
	return nil
}

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}

// refID reads employee_ref as either a bare id string or an object with an id.
func refID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return strings.TrimSpace(id)
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.ID)
	}
	return ""
}

type matchResponse struct {
	Matches []matchItem `json:"matches"`
}

type similarityRequest struct {
	Text1 string `json:"text1"`
	Text2 string `json:"text2"`
}

type similarityResponse struct {
	Score *float64 `json:"score"`
}

// Score asks the service for the affinity of one pair.
func (c *Client) Score(ctx context.Context, client model.Client, employee model.Employee) (model.ScorePair, error) {
	start := time.Now()
	var resp matchResponse
	err := c.post(ctx, pathMatch, matchRequest{Client: client, Employees: []model.Employee{employee}}, &resp)
	metrics.RecordScoringLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		c.recordOutcome(err)
		return model.ScorePair{}, err
	}
	if len(resp.Matches) == 0 {
		metrics.RecordScoringRequest("error")
		return model.ScorePair{}, fmt.Errorf("%w: empty match list for %s/%s", scoring.ErrScoring, client.Key(), employee.Key())
	}
	m := resp.Matches[0]
	if err := m.validate(employee); err != nil {
		metrics.RecordScoringRequest("error")
		return model.ScorePair{}, fmt.Errorf("%w: %s/%s: %w", scoring.ErrScoring, client.Key(), employee.Key(), err)
	}
	metrics.RecordScoringRequest("ok")

	return model.ScorePair{
		SemanticScore:     m.SemanticScore,
		IndustryAlignment: m.IndustrySimilarity,
		SkillsMatch:       m.SkillsSimilarity,
		OverallSimilarity: m.OverallSimilarity,
		Confidence:        m.OverallConfidence,
		TotalScore:        m.TotalScore,
		Reasons:           m.RuleBasedReasons,
		ComputedAt:        time.Now(),
	}, nil
}

// HealthCheck calls the similarity endpoint with trivial input.
func (c *Client) HealthCheck(ctx context.Context) bool {
	var resp similarityResponse
	err := c.post(ctx, pathSimilarity, similarityRequest{Text1: "test", Text2: "test"}, &resp)
	healthy := err == nil && resp.Score != nil
	metrics.RecordHealthCheck(healthy)
	if !healthy {
		c.logger.Debug(ctx, "scoring health check failed", logger.Error(err))
	}
	return healthy
}

// Warmup sends one realistic similarity request so the service loads its model.
func (c *Client) Warmup(ctx context.Context) error {
	var resp similarityResponse
	err := c.post(ctx, pathSimilarity, similarityRequest{
		Text1: "enterprise software customer looking for cloud migration support",
		Text2: "account manager specialised in cloud infrastructure for enterprise clients",
	}, &resp)
	if err != nil {
		return fmt.Errorf("warmup: %w", err)
	}
	return nil
}

// ClearCache asks the service to drop its own score cache.
func (c *Client) ClearCache(ctx context.Context) error {
	if err := c.post(ctx, pathClearCache, struct{}{}, nil); err != nil {
		return fmt.Errorf("clear remote cache: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: marshal request: %w", scoring.ErrScoring, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: create request: %w", scoring.ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug(ctx, "failed to close response body", logger.Error(cerr))
		}
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", scoring.ErrScoring, err)
	}

	switch {
	case resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s returned %d", scoring.ErrUnavailable, path, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: %s returned %d", scoring.ErrScoring, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: decode %s response: %w", scoring.ErrScoring, path, err)
	}
	return nil
}

// classifyTransportError maps a failed round trip. A deadline or cancel is a
// per-call failure; anything else means the service could not be reached.
func classifyTransportError(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", scoring.ErrScoring, err)
	}
	return fmt.Errorf("%w: %w", scoring.ErrUnavailable, err)
}

func (c *Client) recordOutcome(err error) {
	outcome := "error"
	if errors.Is(err, scoring.ErrUnavailable) {
		outcome = "unavailable"
	}
	metrics.RecordScoringRequest(outcome)
	metrics.RecordErrorByComponent("scorer", outcome)
}

// String is used in startup logs.
func (c *Client) String() string {
	return "http(" + c.baseURL + ", timeout=" + strconv.FormatInt(c.timeout.Milliseconds(), 10) + "ms)"
}
