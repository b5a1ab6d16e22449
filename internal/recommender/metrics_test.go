package recommender_test

import (
	"testing"
	"time"

	"jobmate/recommendation-service/internal/recommender"
)

var (
	periodStart = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
)

func TestBuildMetrics_Funnel(t *testing.T) {
	rating := 4.2
	m := recommender.BuildMetrics(periodStart, periodEnd, recommender.MetricCounts{
		Total:           40,
		Viewed:          20,
		Clicked:         10,
		Applied:         4,
		Dismissed:       8,
		AvgScore:        71.5,
		AvgRating:       &rating,
		UniqueCompanies: 12,
	})

	if !almostEqual(m.ClickThroughRate, 50) {
		t.Errorf("ClickThroughRate = %v, want 50", m.ClickThroughRate)
	}
	if !almostEqual(m.ApplicationRate, 40) {
		t.Errorf("ApplicationRate = %v, want 40", m.ApplicationRate)
	}
	if !almostEqual(m.DismissalRate, 20) {
		t.Errorf("DismissalRate = %v, want 20", m.DismissalRate)
	}
	if m.AvgRating == nil || *m.AvgRating != 4.2 {
		t.Errorf("AvgRating = %v, want 4.2", m.AvgRating)
	}
}

// An empty window produces an all-zero record — never a division error.
func TestBuildMetrics_EmptyWindow(t *testing.T) {
	m := recommender.BuildMetrics(periodStart, periodEnd, recommender.MetricCounts{})

	if m.Total != 0 || m.Viewed != 0 || m.Clicked != 0 || m.Applied != 0 || m.Dismissed != 0 {
		t.Errorf("counts = %+v, want all zero", m)
	}
	if m.ClickThroughRate != 0 || m.ApplicationRate != 0 || m.DismissalRate != 0 {
		t.Errorf("rates = %v/%v/%v, want all zero", m.ClickThroughRate, m.ApplicationRate, m.DismissalRate)
	}
	if m.AvgScore != 0 {
		t.Errorf("AvgScore = %v, want 0", m.AvgScore)
	}
	if m.AvgRating != nil {
		t.Errorf("AvgRating = %v, want nil", m.AvgRating)
	}
}

func TestBuildMetrics_ZeroDenominatorsIndividually(t *testing.T) {
	// Recommendations exist but none were viewed or clicked.
	m := recommender.BuildMetrics(periodStart, periodEnd, recommender.MetricCounts{
		Total:     5,
		Dismissed: 1,
	})
	if m.ClickThroughRate != 0 {
		t.Errorf("ClickThroughRate = %v, want 0 with no views", m.ClickThroughRate)
	}
	if m.ApplicationRate != 0 {
		t.Errorf("ApplicationRate = %v, want 0 with no clicks", m.ApplicationRate)
	}
	if !almostEqual(m.DismissalRate, 20) {
		t.Errorf("DismissalRate = %v, want 20", m.DismissalRate)
	}
}
