package recommender

import (
	"jobmate/recommendation-service/internal/model"
)

// Algorithm names accepted by Generate.
const (
	AlgorithmContent       = "content_based"
	AlgorithmCollaborative = "collaborative"
	AlgorithmHybrid        = "hybrid"
)

// Hybrid blend weights. Fixed by design: the analytics service tunes the
// upstream match_score weights, not this blend.
const (
	hybridContentWeight       = 0.6
	hybridCollaborativeWeight = 0.4
)

// ContentFactors breaks a content-based score into its named contributions.
// Zero-valued terms were not triggered by the job.
type ContentFactors struct {
	Base          float64 `json:"base"`
	Company       float64 `json:"company,omitempty"`
	Location      float64 `json:"location,omitempty"`
	Remote        float64 `json:"remote,omitempty"`
	TitleKeywords float64 `json:"titleKeywords,omitempty"`
	FitAdjustment float64 `json:"fitAdjustment,omitempty"`
	RecencyBoost  float64 `json:"recencyBoost,omitempty"`
}

// CollaborativeFactors breaks a collaborative score into its contributions.
// ColdStart marks a score that was delegated to the content scorer because
// the requester has no application history yet.
type CollaborativeFactors struct {
	HistoryOverlap float64 `json:"historyOverlap"`
	RecencyBoost   float64 `json:"recencyBoost"`
	ColdStart      bool    `json:"coldStart,omitempty"`
}

// HybridFactors records both strategy scores, the blend weights, and the two
// raw factor breakdowns, so a caller can recover each strategy's exact
// contribution from the persisted row.
type HybridFactors struct {
	ContentWeight       float64               `json:"contentWeight"`
	CollaborativeWeight float64               `json:"collaborativeWeight"`
	ContentScore        float64               `json:"contentScore"`
	CollaborativeScore  float64               `json:"collaborativeScore"`
	Content             *ContentFactors       `json:"content,omitempty"`
	Collaborative       *CollaborativeFactors `json:"collaborative,omitempty"`
}

// MatchFactors is the tagged union persisted in recommendations.match_factors.
// Exactly one of the strategy breakdowns is set, matching Algorithm.
type MatchFactors struct {
	Algorithm     string                `json:"algorithm"`
	Content       *ContentFactors       `json:"content,omitempty"`
	Collaborative *CollaborativeFactors `json:"collaborative,omitempty"`
	Hybrid        *HybridFactors        `json:"hybrid,omitempty"`
}

// ScoredJob is the output of one scoring strategy for one job.
type ScoredJob struct {
	Job     model.Job
	Score   float64 // [0,100]
	Reasons []string
	Factors MatchFactors
}

// clamp bounds v into [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
