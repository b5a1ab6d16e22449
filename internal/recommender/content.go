package recommender

import (
	"fmt"
	"strings"
	"time"

	"jobmate/recommendation-service/internal/model"
)

// Scoring weights for the content strategy.
const (
	contentBaseScore      = 50.0
	companyMatchWeight    = 20.0
	locationMatchWeight   = 15.0
	remoteMatchWeight     = 15.0
	titleKeywordWeight    = 10.0
	recencyBoost          = 10.0
	recencyWindow         = 7 * 24 * time.Hour
	lowFitThreshold       = 60.0
	lowFitPenaltyPerPoint = 0.3
	highFitThreshold      = 80.0
	highFitBonusPerPoint  = 0.5
)

// ScoreContent scores a job against the learned preference profile plus the
// job's own signals. Total function: missing optional fields (empty company or
// location, absent match_score) simply skip their term.
//
// Starts at a base of 50 and adds preference.score × preference.confidence × W
// for every matching preference, then the externally supplied fit adjustment
// and a recency boost, clamped to [0,100].
func ScoreContent(job model.Job, prefs []Preference, now time.Time) ScoredJob {
	factors := ContentFactors{Base: contentBaseScore}
	reasons := make([]string, 0, 4)
	score := contentBaseScore

	title := strings.ToLower(job.Title)
	company := strings.ToLower(job.Company)
	location := strings.ToLower(job.Location)

	for _, p := range prefs {
		value := strings.ToLower(p.Value)
		if value == "" {
			continue
		}
		weight := p.Score * p.Confidence

		switch p.Type {
		case PrefCompany:
			if company != "" && strings.Contains(company, value) {
				delta := weight * companyMatchWeight
				score += delta
				factors.Company += delta
				reasons = append(reasons, fmt.Sprintf("Matches preferred company %q", p.Value))
			}
		case PrefLocation:
			if location != "" && strings.Contains(location, value) {
				delta := weight * locationMatchWeight
				score += delta
				factors.Location += delta
				reasons = append(reasons, fmt.Sprintf("Matches preferred location %q", p.Value))
			}
		case PrefRemote:
			if p.Value == "true" && strings.Contains(location, "remote") {
				delta := weight * remoteMatchWeight
				score += delta
				factors.Remote += delta
				reasons = append(reasons, "Remote position matches your preference")
			}
		case PrefTitleKeyword:
			// Each matching keyword contributes independently — no cap.
			if title != "" && strings.Contains(title, value) {
				delta := weight * titleKeywordWeight
				score += delta
				factors.TitleKeywords += delta
				reasons = append(reasons, fmt.Sprintf("Title contains %q", p.Value))
			}
		}
	}

	if job.MatchScore != nil {
		ms := *job.MatchScore
		switch {
		case ms < lowFitThreshold:
			adj := -(lowFitThreshold - ms) * lowFitPenaltyPerPoint
			score += adj
			factors.FitAdjustment = adj
		case ms > highFitThreshold:
			adj := (ms - highFitThreshold) * highFitBonusPerPoint
			score += adj
			factors.FitAdjustment = adj
			reasons = append(reasons, fmt.Sprintf("Strong fit score (%.0f)", ms))
		}
	}

	if !job.PostedAt.IsZero() && now.Sub(job.PostedAt) <= recencyWindow {
		score += recencyBoost
		factors.RecencyBoost = recencyBoost
		reasons = append(reasons, "Posted within the last week")
	}

	return ScoredJob{
		Job:     job,
		Score:   clamp(score, 0, 100),
		Reasons: reasons,
		Factors: MatchFactors{Algorithm: AlgorithmContent, Content: &factors},
	}
}
