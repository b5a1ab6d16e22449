package recommender_test

import (
	"math"
	"testing"
	"time"

	"jobmate/recommendation-service/internal/model"
	"jobmate/recommendation-service/internal/recommender"
)

var testNow = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func floatPtr(v float64) *float64 { return &v }

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// A job posted long ago so neither scorer's recency boost gets in the way
// (the collaborative decay only reaches zero after 70 days).
func staleJob() model.Job {
	return model.Job{
		ID:       "job-1",
		Title:    "Backend Engineer",
		Company:  "Acme",
		Location: "Paris",
		PostedAt: testNow.AddDate(0, -6, 0),
	}
}

func pref(prefType, value string, score, confidence float64) recommender.Preference {
	return recommender.Preference{Type: prefType, Value: value, Score: score, Confidence: confidence}
}

// ── Base score and individual terms ────────────────────────────────────────

func TestScoreContent_NoPreferencesIsBase(t *testing.T) {
	got := recommender.ScoreContent(staleJob(), nil, testNow)
	if !almostEqual(got.Score, 50) {
		t.Errorf("Score = %v, want base 50", got.Score)
	}
	if len(got.Reasons) != 0 {
		t.Errorf("Reasons = %v, want none", got.Reasons)
	}
	if got.Factors.Content == nil || got.Factors.Content.Base != 50 {
		t.Errorf("Factors.Content = %+v, want base 50", got.Factors.Content)
	}
}

func TestScoreContent_CompanyMatch(t *testing.T) {
	prefs := []recommender.Preference{pref(recommender.PrefCompany, "acme", 0.8, 0.5)}
	got := recommender.ScoreContent(staleJob(), prefs, testNow)
	// 50 + 0.8*0.5*20 = 58
	if !almostEqual(got.Score, 58) {
		t.Errorf("Score = %v, want 58", got.Score)
	}
	if !almostEqual(got.Factors.Content.Company, 8) {
		t.Errorf("Company factor = %v, want 8", got.Factors.Content.Company)
	}
	if len(got.Reasons) != 1 {
		t.Errorf("Reasons = %v, want one company match", got.Reasons)
	}
}

func TestScoreContent_CaseInsensitiveSubstring(t *testing.T) {
	job := staleJob()
	job.Company = "ACME Robotics"
	prefs := []recommender.Preference{pref(recommender.PrefCompany, "Acme", 1, 1)}
	got := recommender.ScoreContent(job, prefs, testNow)
	if !almostEqual(got.Score, 70) {
		t.Errorf("Score = %v, want 70 (substring match must ignore case)", got.Score)
	}
}

func TestScoreContent_RemotePreference(t *testing.T) {
	job := staleJob()
	job.Location = "Remote — Europe"
	prefs := []recommender.Preference{pref(recommender.PrefRemote, "true", 1, 0.5)}
	got := recommender.ScoreContent(job, prefs, testNow)
	// 50 + 1*0.5*15 = 57.5
	if !almostEqual(got.Score, 57.5) {
		t.Errorf("Score = %v, want 57.5", got.Score)
	}
}

func TestScoreContent_RemotePreferenceNeedsRemoteLocation(t *testing.T) {
	prefs := []recommender.Preference{pref(recommender.PrefRemote, "true", 1, 1)}
	got := recommender.ScoreContent(staleJob(), prefs, testNow) // location "Paris"
	if !almostEqual(got.Score, 50) {
		t.Errorf("Score = %v, want 50 (onsite job must not get the remote boost)", got.Score)
	}
}

func TestScoreContent_TitleKeywordsAreUncapped(t *testing.T) {
	job := staleJob()
	job.Title = "Senior Lead Engineer"
	prefs := []recommender.Preference{
		pref(recommender.PrefTitleKeyword, "senior", 1, 1),
		pref(recommender.PrefTitleKeyword, "lead", 1, 1),
		pref(recommender.PrefTitleKeyword, "engineer", 1, 1),
	}
	got := recommender.ScoreContent(job, prefs, testNow)
	// 50 + 3 * (1*1*10) = 80 — each keyword contributes independently
	if !almostEqual(got.Score, 80) {
		t.Errorf("Score = %v, want 80", got.Score)
	}
	if !almostEqual(got.Factors.Content.TitleKeywords, 30) {
		t.Errorf("TitleKeywords factor = %v, want 30", got.Factors.Content.TitleKeywords)
	}
}

// ── Fit adjustment ─────────────────────────────────────────────────────────

func TestScoreContent_FitAdjustment(t *testing.T) {
	cases := []struct {
		name       string
		matchScore *float64
		want       float64
	}{
		{"low fit penalised", floatPtr(40), 50 - 20*0.3},
		{"mid fit untouched", floatPtr(70), 50},
		{"high fit boosted", floatPtr(90), 50 + 10*0.5},
		{"absent score skipped", nil, 50},
		{"boundary 60", floatPtr(60), 50},
		{"boundary 80", floatPtr(80), 50},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			job := staleJob()
			job.MatchScore = c.matchScore
			got := recommender.ScoreContent(job, nil, testNow)
			if !almostEqual(got.Score, c.want) {
				t.Errorf("Score = %v, want %v", got.Score, c.want)
			}
		})
	}
}

// ── Recency ────────────────────────────────────────────────────────────────

func TestScoreContent_RecencyBoost(t *testing.T) {
	job := staleJob()
	job.PostedAt = testNow.AddDate(0, 0, -3)
	got := recommender.ScoreContent(job, nil, testNow)
	if !almostEqual(got.Score, 60) {
		t.Errorf("Score = %v, want 60 (fresh posting gets +10)", got.Score)
	}
}

// ── Clamping and totality ──────────────────────────────────────────────────

func TestScoreContent_ClampedTo100(t *testing.T) {
	job := staleJob()
	job.Title = "Senior Lead Engineer Manager Developer Architect"
	job.PostedAt = testNow
	job.MatchScore = floatPtr(100)
	prefs := []recommender.Preference{
		pref(recommender.PrefCompany, "acme", 1, 1),
		pref(recommender.PrefLocation, "paris", 1, 1),
	}
	for _, kw := range []string{"senior", "lead", "engineer", "manager", "developer", "architect"} {
		prefs = append(prefs, pref(recommender.PrefTitleKeyword, kw, 1, 1))
	}
	got := recommender.ScoreContent(job, prefs, testNow)
	if got.Score != 100 {
		t.Errorf("Score = %v, want clamp at 100", got.Score)
	}
}

func TestScoreContent_MissingFieldsAreSkipped(t *testing.T) {
	job := model.Job{ID: "job-2"} // everything empty
	prefs := []recommender.Preference{
		pref(recommender.PrefCompany, "acme", 1, 1),
		pref(recommender.PrefLocation, "paris", 1, 1),
		pref(recommender.PrefRemote, "true", 1, 1),
		pref(recommender.PrefTitleKeyword, "senior", 1, 1),
	}
	got := recommender.ScoreContent(job, prefs, testNow)
	if !almostEqual(got.Score, 50) {
		t.Errorf("Score = %v, want 50 (empty fields skip their terms)", got.Score)
	}
}

// Monotonicity: matching one more positive preference never lowers the score.
func TestScoreContent_Monotonicity(t *testing.T) {
	job := staleJob()
	base := []recommender.Preference{pref(recommender.PrefCompany, "acme", 0.9, 0.7)}
	more := append([]recommender.Preference{}, base...)
	more = append(more, pref(recommender.PrefLocation, "paris", 0.6, 0.4))

	scoreK1 := recommender.ScoreContent(job, base, testNow).Score
	scoreK2 := recommender.ScoreContent(job, more, testNow).Score
	if scoreK2 < scoreK1 {
		t.Errorf("score with k preferences (%v) < score with k-1 (%v)", scoreK2, scoreK1)
	}
}
