package recommender

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

// Digest parameters.
const (
	DigestTypeDaily = "daily"
	digestSize      = 10
	digestTopSlice  = 5
	digestMaxListed = 5
)

// DigestHighlights is the aggregate summary embedded in a digest.
type DigestHighlights struct {
	AvgScore     float64  `json:"avgScore"`
	TopCompanies []string `json:"topCompanies"`
	Locations    []string `json:"locations"`
}

// Digest is a periodic snapshot of the best pending recommendations. One row
// per (user, type, date); immutable after creation.
type Digest struct {
	ID                   string           `json:"id"`
	UserID               string           `json:"userId"`
	DigestType           string           `json:"digestType"`
	DigestDate           time.Time        `json:"digestDate"`
	JobIDs               []string         `json:"jobIds"`
	TotalRecommendations int              `json:"totalRecommendations"`
	Highlights           DigestHighlights `json:"highlights"`
	NewOpportunities     int              `json:"newOpportunities"`
	CreatedAt            time.Time        `json:"createdAt"`
}

// CountNewOpportunities is the cardinality of the set difference
// current − previous over job id slices.
func CountNewOpportunities(current, previous []string) int {
	prev := toSet(previous)
	n := 0
	seen := make(map[string]bool, len(current))
	for _, id := range current {
		if seen[id] {
			continue
		}
		seen[id] = true
		if !prev[id] {
			n++
		}
	}
	return n
}

// GenerateDailyDigest snapshots the user's top pending recommendations of the
// last 24 hours. Returns (nil, nil) when nothing qualifies — an empty day is
// not an error. Regenerating on a day that already has a digest returns the
// stored one.
func (s *Service) GenerateDailyDigest(ctx context.Context, userID string) (*Digest, error) {
	today := s.now().UTC().Truncate(24 * time.Hour)

	if existing, err := s.digestFor(ctx, userID, DigestTypeDaily, today); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	recs, err := s.recentPending(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}

	jobIDs := make([]string, 0, len(recs))
	var scoreSum float64
	for _, r := range recs {
		jobIDs = append(jobIDs, r.JobID)
		scoreSum += r.Score
	}

	highlights := DigestHighlights{
		AvgScore:     scoreSum / float64(len(recs)),
		TopCompanies: s.distinctField(ctx, recs[:min(digestTopSlice, len(recs))], func(j jobFields) string { return j.company }),
		Locations:    s.distinctField(ctx, recs, func(j jobFields) string { return j.location }),
	}

	previous, err := s.previousDigest(ctx, userID, DigestTypeDaily, today)
	if err != nil {
		return nil, err
	}
	var prevIDs []string
	if previous != nil {
		prevIDs = previous.JobIDs
	}

	digest := &Digest{
		UserID:               userID,
		DigestType:           DigestTypeDaily,
		DigestDate:           today,
		JobIDs:               jobIDs,
		TotalRecommendations: len(recs),
		Highlights:           highlights,
		NewOpportunities:     CountNewOpportunities(jobIDs, prevIDs),
	}

	if err := s.insertDigest(ctx, digest); err != nil {
		return nil, err
	}

	s.publish(ctx, "EVENT_DIGEST_READY", map[string]string{
		"userId":     userID,
		"digestId":   digest.ID,
		"digestType": DigestTypeDaily,
	})
	return digest, nil
}

// DigestUserIDs returns the users with recommendations generated in the last
// 24 hours — the audience of the daily digest cron.
func (s *Service) DigestUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT user_id FROM recommendations
		 WHERE recommended_at > NOW() - INTERVAL '24 hours'`,
	)
	if err != nil {
		return nil, fmt.Errorf("query digest users: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan digest user: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// recentPending returns the user's PENDING recommendations generated in the
// last 24 hours, best first, capped at the digest size.
func (s *Service) recentPending(ctx context.Context, userID string) ([]Recommendation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+recColumns+`
		 FROM recommendations
		 WHERE user_id = $1 AND status = 'PENDING'
		   AND recommended_at > NOW() - INTERVAL '24 hours'
		 ORDER BY recommendation_score DESC, job_id ASC
		 LIMIT $2`,
		userID, digestSize,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent pending: %w", err)
	}
	defer rows.Close()

	recs := make([]Recommendation, 0, digestSize)
	for rows.Next() {
		rec, err := scanRec(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

type jobFields struct {
	company  string
	location string
}

// distinctField collects up to digestMaxListed distinct non-empty values of
// one job field across the given recommendations, in recommendation order.
func (s *Service) distinctField(ctx context.Context, recs []Recommendation, pick func(jobFields) string) []string {
	out := make([]string, 0, digestMaxListed)
	seen := make(map[string]bool)
	for _, r := range recs {
		job, err := s.jobs.Job(ctx, r.JobID)
		if err != nil || job == nil {
			slog.Warn("digest: job lookup failed", "jobId", r.JobID, "err", err)
			continue
		}
		v := pick(jobFields{company: job.Company, location: job.Location})
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
		if len(out) == digestMaxListed {
			break
		}
	}
	return out
}

// ─── Persistence ─────────────────────────────────────────────────────────────

const digestColumns = `id::text, user_id, digest_type, digest_date, job_ids,
	total_recommendations, highlights, new_opportunities, created_at`

func (s *Service) digestFor(ctx context.Context, userID, digestType string, date time.Time) (*Digest, error) {
	d, err := scanDigest(s.pool.QueryRow(ctx,
		`SELECT `+digestColumns+` FROM recommendation_digests
		 WHERE user_id = $1 AND digest_type = $2 AND digest_date = $3`,
		userID, digestType, date,
	))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query digest: %w", err)
	}
	return d, nil
}

// previousDigest returns the most recent digest of the same type before date.
func (s *Service) previousDigest(ctx context.Context, userID, digestType string, date time.Time) (*Digest, error) {
	d, err := scanDigest(s.pool.QueryRow(ctx,
		`SELECT `+digestColumns+` FROM recommendation_digests
		 WHERE user_id = $1 AND digest_type = $2 AND digest_date < $3
		 ORDER BY digest_date DESC
		 LIMIT 1`,
		userID, digestType, date,
	))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query previous digest: %w", err)
	}
	return d, nil
}

func (s *Service) insertDigest(ctx context.Context, d *Digest) error {
	jobIDsJSON, err := json.Marshal(d.JobIDs)
	if err != nil {
		return fmt.Errorf("marshal digest job ids: %w", err)
	}
	highlightsJSON, err := json.Marshal(d.Highlights)
	if err != nil {
		return fmt.Errorf("marshal digest highlights: %w", err)
	}

	stored, err := scanDigest(s.pool.QueryRow(ctx,
		`INSERT INTO recommendation_digests
		   (user_id, digest_type, digest_date, job_ids, total_recommendations,
		    highlights, new_opportunities)
		 VALUES ($1, $2, $3, $4::jsonb, $5, $6::jsonb, $7)
		 ON CONFLICT (user_id, digest_type, digest_date) DO NOTHING
		 RETURNING `+digestColumns,
		d.UserID, d.DigestType, d.DigestDate, string(jobIDsJSON),
		d.TotalRecommendations, string(highlightsJSON), d.NewOpportunities,
	))
	if err == pgx.ErrNoRows {
		// Lost a same-day race; the winner's digest is the digest.
		winner, ferr := s.digestFor(ctx, d.UserID, d.DigestType, d.DigestDate)
		if ferr != nil || winner == nil {
			return fmt.Errorf("digest conflict resolution failed: %w", ferr)
		}
		*d = *winner
		return nil
	}
	if err != nil {
		return fmt.Errorf("insert digest: %w", err)
	}
	*d = *stored
	return nil
}

func scanDigest(row rowScanner) (*Digest, error) {
	var (
		d              Digest
		jobIDsJSON     []byte
		highlightsJSON []byte
	)
	err := row.Scan(
		&d.ID, &d.UserID, &d.DigestType, &d.DigestDate, &jobIDsJSON,
		&d.TotalRecommendations, &highlightsJSON, &d.NewOpportunities, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(jobIDsJSON) > 0 {
		if err := json.Unmarshal(jobIDsJSON, &d.JobIDs); err != nil {
			return nil, fmt.Errorf("unmarshal digest job ids: %w", err)
		}
	}
	if len(highlightsJSON) > 0 {
		if err := json.Unmarshal(highlightsJSON, &d.Highlights); err != nil {
			return nil, fmt.Errorf("unmarshal digest highlights: %w", err)
		}
	}
	return &d, nil
}
