package model

import "time"

// ScorePair is the affinity between one client and one employee.
// Component scores are in [0,1]; TotalScore is a percentage that includes
// rule-based bonuses on top of the semantic score. Treat it as immutable.
type ScorePair struct {
	SemanticScore     float64   `json:"semantic_score"`
	IndustryAlignment float64   `json:"industry_alignment"`
	SkillsMatch       float64   `json:"skills_match"`
	OverallSimilarity float64   `json:"overall_similarity"`
	Confidence        float64   `json:"confidence"`
	TotalScore        float64   `json:"total_score"`
	Reasons           []string  `json:"reasons"`
	ComputedAt        time.Time `json:"computed_at"`
}

// ScoredPair is one row of the assignment matrix.
type ScoredPair struct {
	Client   Client
	Employee Employee
	Score    ScorePair
}
