package recommender

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"jobmate/recommendation-service/internal/model"
)

// Similarity weights and thresholds.
const (
	simTitleWeight      = 0.4
	simCompanyWeight    = 0.2
	simLocationWeight   = 0.15
	simMatchScoreWeight = 0.15
	simRecencyWeight    = 0.1
	simMatchScoreWindow = 10.0
	simPostedWindow     = 14 * 24 * time.Hour
	simKeepThreshold    = 0.5
)

// SimilarityFactors is the per-edge score breakdown persisted alongside the
// similarity score.
type SimilarityFactors struct {
	TitleOverlap    float64 `json:"titleOverlap"`
	SameCompany     float64 `json:"sameCompany,omitempty"`
	SameLocation    float64 `json:"sameLocation,omitempty"`
	CloseMatchScore float64 `json:"closeMatchScore,omitempty"`
	PostedClose     float64 `json:"postedClose,omitempty"`
}

// SimilarJob is a directed job-to-job similarity edge.
type SimilarJob struct {
	JobID        string            `json:"jobId"`
	SimilarJobID string            `json:"similarJobId"`
	Score        float64           `json:"similarityScore"`
	Factors      SimilarityFactors `json:"factors"`
	CalculatedAt time.Time         `json:"calculatedAt"`
}

// SimilarityScore computes the weighted similarity of two jobs: title word
// overlap (Jaccard against the larger title), same company, same location,
// close AI fit scores, and close posting dates.
func SimilarityScore(a, b model.Job) (float64, SimilarityFactors) {
	var f SimilarityFactors

	f.TitleOverlap = titleWordOverlap(a.Title, b.Title) * simTitleWeight

	if a.Company != "" && strings.EqualFold(a.Company, b.Company) {
		f.SameCompany = simCompanyWeight
	}
	if a.Location != "" && strings.EqualFold(a.Location, b.Location) {
		f.SameLocation = simLocationWeight
	}
	if a.MatchScore != nil && b.MatchScore != nil {
		diff := *a.MatchScore - *b.MatchScore
		if diff < 0 {
			diff = -diff
		}
		if diff < simMatchScoreWindow {
			f.CloseMatchScore = simMatchScoreWeight
		}
	}
	if !a.PostedAt.IsZero() && !b.PostedAt.IsZero() {
		gap := a.PostedAt.Sub(b.PostedAt)
		if gap < 0 {
			gap = -gap
		}
		if gap < simPostedWindow {
			f.PostedClose = simRecencyWeight
		}
	}

	score := f.TitleOverlap + f.SameCompany + f.SameLocation + f.CloseMatchScore + f.PostedClose
	return score, f
}

// titleWordOverlap is |wordsA ∩ wordsB| / max(|wordsA|, |wordsB|) over
// lower-cased whitespace-tokenised titles. 0 when either title is empty.
func titleWordOverlap(a, b string) float64 {
	wordsA := strings.Fields(strings.ToLower(a))
	wordsB := strings.Fields(strings.ToLower(b))
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	setA := make(map[string]bool, len(wordsA))
	for _, w := range wordsA {
		setA[w] = true
	}
	setB := make(map[string]bool, len(wordsB))
	for _, w := range wordsB {
		setB[w] = true
	}

	inter := 0
	for w := range setA {
		if setB[w] {
			inter++
		}
	}

	max := len(setA)
	if len(setB) > max {
		max = len(setB)
	}
	return float64(inter) / float64(max)
}

// FindSimilar returns up to limit jobs similar to jobID. Cached edges younger
// than 7 days are served as-is; otherwise every other active job is scored,
// edges above 0.5 are persisted, and the best ones returned.
func (s *Service) FindSimilar(ctx context.Context, jobID string, limit int) ([]SimilarJob, error) {
	if limit <= 0 {
		limit = 5
	}

	job, err := s.jobs.Job(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrNotFound
	}

	cached, err := s.cachedEdges(ctx, jobID, limit)
	if err != nil {
		return nil, err
	}
	if len(cached) > 0 {
		return cached, nil
	}

	candidates, err := s.jobs.ActiveJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load candidate jobs: %w", err)
	}

	edges := make([]SimilarJob, 0)
	now := s.now()
	for _, other := range candidates {
		if other.ID == jobID {
			continue
		}
		score, factors := SimilarityScore(*job, other)
		if score <= simKeepThreshold {
			continue
		}
		edges = append(edges, SimilarJob{
			JobID:        jobID,
			SimilarJobID: other.ID,
			Score:        score,
			Factors:      factors,
			CalculatedAt: now,
		})
	}

	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].Score != edges[j].Score {
			return edges[i].Score > edges[j].Score
		}
		return edges[i].SimilarJobID < edges[j].SimilarJobID
	})
	if len(edges) > limit {
		edges = edges[:limit]
	}

	if err := s.persistEdges(ctx, jobID, edges); err != nil {
		// The computed result is still good — stale cache is the only cost.
		slog.Warn("persist similarity edges failed", "jobId", jobID, "err", err)
	}
	return edges, nil
}

// RecentlyRecommendedJobIDs returns the distinct jobs recommended in the last
// 7 days — the set the similarity sweep keeps warm.
func (s *Service) RecentlyRecommendedJobIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT job_id::text FROM recommendations
		 WHERE recommended_at > NOW() - INTERVAL '7 days'`,
	)
	if err != nil {
		return nil, fmt.Errorf("query recommended jobs: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan recommended job: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Service) cachedEdges(ctx context.Context, jobID string, limit int) ([]SimilarJob, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT job_id::text, similar_job_id::text, similarity_score, factors, calculated_at
		 FROM similar_jobs
		 WHERE job_id = $1 AND calculated_at > NOW() - INTERVAL '7 days'
		 ORDER BY similarity_score DESC, similar_job_id ASC
		 LIMIT $2`,
		jobID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query similar_jobs: %w", err)
	}
	defer rows.Close()

	edges := make([]SimilarJob, 0)
	for rows.Next() {
		var (
			e           SimilarJob
			factorsJSON []byte
		)
		if err := rows.Scan(&e.JobID, &e.SimilarJobID, &e.Score, &factorsJSON, &e.CalculatedAt); err != nil {
			return nil, fmt.Errorf("scan similar_jobs: %w", err)
		}
		if len(factorsJSON) > 0 {
			if err := json.Unmarshal(factorsJSON, &e.Factors); err != nil {
				return nil, fmt.Errorf("unmarshal similarity factors: %w", err)
			}
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// persistEdges replaces the job's cached edges with the fresh set.
func (s *Service) persistEdges(ctx context.Context, jobID string, edges []SimilarJob) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin similarity tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM similar_jobs WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("clear similar_jobs: %w", err)
	}

	for _, e := range edges {
		factorsJSON, err := json.Marshal(e.Factors)
		if err != nil {
			return fmt.Errorf("marshal similarity factors: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO similar_jobs (job_id, similar_job_id, similarity_score, factors, calculated_at)
			 VALUES ($1, $2, $3, $4::jsonb, $5)`,
			e.JobID, e.SimilarJobID, e.Score, string(factorsJSON), e.CalculatedAt,
		); err != nil {
			return fmt.Errorf("insert similar_jobs: %w", err)
		}
	}

	return tx.Commit(ctx)
}
