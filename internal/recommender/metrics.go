package recommender

import (
	"context"
	"fmt"
	"time"
)

// MetricCounts are the raw aggregates of one metrics window.
type MetricCounts struct {
	Total           int
	Viewed          int
	Clicked         int
	Applied         int
	Dismissed       int
	AvgScore        float64
	AvgRating       *float64
	UniqueCompanies int
}

// Metrics is the derived funnel view over a recommendation window. Read-only:
// always recomputed from the rows, never stored.
type Metrics struct {
	PeriodStart      time.Time `json:"periodStart"`
	PeriodEnd        time.Time `json:"periodEnd"`
	Total            int       `json:"total"`
	Viewed           int       `json:"viewed"`
	Clicked          int       `json:"clicked"`
	Applied          int       `json:"applied"`
	Dismissed        int       `json:"dismissed"`
	ClickThroughRate float64   `json:"clickThroughRate"`
	ApplicationRate  float64   `json:"applicationRate"`
	DismissalRate    float64   `json:"dismissalRate"`
	AvgScore         float64   `json:"avgScore"`
	AvgRating        *float64  `json:"avgRating"`
	UniqueCompanies  int       `json:"uniqueCompanies"`
}

// BuildMetrics derives the funnel rates from raw counts. Every rate is zero
// when its denominator is zero — an empty window never divides by zero.
func BuildMetrics(start, end time.Time, c MetricCounts) Metrics {
	m := Metrics{
		PeriodStart:     start,
		PeriodEnd:       end,
		Total:           c.Total,
		Viewed:          c.Viewed,
		Clicked:         c.Clicked,
		Applied:         c.Applied,
		Dismissed:       c.Dismissed,
		AvgScore:        c.AvgScore,
		AvgRating:       c.AvgRating,
		UniqueCompanies: c.UniqueCompanies,
	}
	if c.Viewed > 0 {
		m.ClickThroughRate = float64(c.Clicked) / float64(c.Viewed) * 100
	}
	if c.Clicked > 0 {
		m.ApplicationRate = float64(c.Applied) / float64(c.Clicked) * 100
	}
	if c.Total > 0 {
		m.DismissalRate = float64(c.Dismissed) / float64(c.Total) * 100
	}
	return m
}

// Metrics aggregates the user's recommendations generated in [start, end).
func (s *Service) Metrics(ctx context.Context, userID string, start, end time.Time) (*Metrics, error) {
	if !end.After(start) {
		return nil, &ValidationError{Msg: "periodEnd must be after periodStart"}
	}

	var (
		c        MetricCounts
		avgScore *float64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(r.viewed_at),
		        COUNT(r.clicked_at),
		        COUNT(*) FILTER (WHERE r.was_applied),
		        COUNT(r.dismissed_at),
		        AVG(r.recommendation_score),
		        AVG(r.user_rating),
		        COUNT(DISTINCT jf.raw_data->>'company')
		 FROM recommendations r
		 LEFT JOIN job_feed jf ON jf.id = r.job_id
		 WHERE r.user_id = $1
		   AND r.recommended_at >= $2 AND r.recommended_at < $3`,
		userID, start, end,
	).Scan(
		&c.Total, &c.Viewed, &c.Clicked, &c.Applied, &c.Dismissed,
		&avgScore, &c.AvgRating, &c.UniqueCompanies,
	)
	if err != nil {
		return nil, fmt.Errorf("metrics query: %w", err)
	}
	if avgScore != nil {
		c.AvgScore = *avgScore
	}

	m := BuildMetrics(start, end, c)
	return &m, nil
}
