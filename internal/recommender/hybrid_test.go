package recommender_test

import (
	"testing"

	"jobmate/recommendation-service/internal/recommender"
)

func TestBlendHybrid_ExactWeights(t *testing.T) {
	job := staleJob()
	content := recommender.ScoredJob{
		Job:     job,
		Score:   80,
		Reasons: []string{"content reason"},
		Factors: recommender.MatchFactors{
			Algorithm: recommender.AlgorithmContent,
			Content:   &recommender.ContentFactors{Base: 50, Company: 30},
		},
	}
	collab := recommender.ScoredJob{
		Job:     job,
		Score:   50,
		Reasons: []string{"collab reason"},
		Factors: recommender.MatchFactors{
			Algorithm:     recommender.AlgorithmCollaborative,
			Collaborative: &recommender.CollaborativeFactors{HistoryOverlap: 50},
		},
	}

	got := recommender.BlendHybrid(content, collab)

	want := 80*0.6 + 50*0.4
	if !almostEqual(got.Score, want) {
		t.Errorf("Score = %v, want exactly %v", got.Score, want)
	}
}

func TestBlendHybrid_PreservesProvenance(t *testing.T) {
	job := staleJob()
	contentFactors := &recommender.ContentFactors{Base: 50, Location: 12}
	collabFactors := &recommender.CollaborativeFactors{HistoryOverlap: 40, RecencyBoost: 5}

	got := recommender.BlendHybrid(
		recommender.ScoredJob{Job: job, Score: 62, Reasons: []string{"a"}, Factors: recommender.MatchFactors{Algorithm: recommender.AlgorithmContent, Content: contentFactors}},
		recommender.ScoredJob{Job: job, Score: 45, Reasons: []string{"b"}, Factors: recommender.MatchFactors{Algorithm: recommender.AlgorithmCollaborative, Collaborative: collabFactors}},
	)

	h := got.Factors.Hybrid
	if h == nil {
		t.Fatal("Factors.Hybrid is nil")
	}
	if h.ContentWeight != 0.6 || h.CollaborativeWeight != 0.4 {
		t.Errorf("weights = %v/%v, want 0.6/0.4", h.ContentWeight, h.CollaborativeWeight)
	}
	if h.ContentScore != 62 || h.CollaborativeScore != 45 {
		t.Errorf("raw scores = %v/%v, want 62/45", h.ContentScore, h.CollaborativeScore)
	}
	if h.Content != contentFactors || h.Collaborative != collabFactors {
		t.Error("raw factor breakdowns must be carried into the blend")
	}
	if len(got.Reasons) != 2 || got.Reasons[0] != "a" || got.Reasons[1] != "b" {
		t.Errorf("Reasons = %v, want merged [a b]", got.Reasons)
	}
}

func TestBlendHybrid_EqualInputsAreFixed(t *testing.T) {
	// 0.6x + 0.4x == x — a cold-start blend must not distort the score.
	job := staleJob()
	sj := recommender.ScoredJob{Job: job, Score: 73.5, Factors: recommender.MatchFactors{}}
	got := recommender.BlendHybrid(sj, sj)
	if !almostEqual(got.Score, 73.5) {
		t.Errorf("Score = %v, want 73.5", got.Score)
	}
}
