package recommender

import (
	"time"

	"jobmate/recommendation-service/internal/model"
)

// Collaborative recency boost: up to 10 points, decaying with job age.
const (
	collabRecencyMax      = 10.0
	collabRecencyDecayDiv = 7.0
)

// ScoreCollaborative scores a job against the requester's application history.
//
// With an empty history it delegates entirely to the content scorer
// (cold-start fallback, marked in the factors). Otherwise the base term is
// the share of the whole applications event stream that intersects the
// requester's history — the self-similarity proxy described in the package
// doc — plus a linearly decaying recency boost. Jobs already in the history
// score zero.
func ScoreCollaborative(job model.Job, history, eventStream map[string]bool, prefs []Preference, now time.Time) ScoredJob {
	if len(history) == 0 {
		scored := ScoreContent(job, prefs, now)
		scored.Factors = MatchFactors{
			Algorithm:     AlgorithmCollaborative,
			Collaborative: &CollaborativeFactors{ColdStart: true},
			Content:       scored.Factors.Content,
		}
		scored.Reasons = append(scored.Reasons, "No application history yet — scored on your preferences")
		return scored
	}

	if history[job.ID] {
		return ScoredJob{
			Job:     job,
			Score:   0,
			Reasons: []string{"Already applied to this job"},
			Factors: MatchFactors{
				Algorithm:     AlgorithmCollaborative,
				Collaborative: &CollaborativeFactors{},
			},
		}
	}

	overlap := 0
	for id := range eventStream {
		if history[id] {
			overlap++
		}
	}

	base := float64(overlap) / float64(len(history)) * 100

	boost := 0.0
	if !job.PostedAt.IsZero() {
		daysOld := now.Sub(job.PostedAt).Hours() / 24
		if daysOld < 0 {
			daysOld = 0
		}
		boost = collabRecencyMax - daysOld/collabRecencyDecayDiv
		if boost < 0 {
			boost = 0
		}
	}

	factors := CollaborativeFactors{
		HistoryOverlap: base,
		RecencyBoost:   boost,
	}

	reasons := make([]string, 0, 2)
	if overlap > 0 {
		reasons = append(reasons, "Similar to jobs you have applied to")
	}
	if boost > 0 {
		reasons = append(reasons, "Recently posted")
	}

	return ScoredJob{
		Job:     job,
		Score:   clamp(base+boost, 0, 100),
		Reasons: reasons,
		Factors: MatchFactors{Algorithm: AlgorithmCollaborative, Collaborative: &factors},
	}
}
