// Package catalog reads the tables owned by the other jobmate services:
// job_feed (discovery service) as the job catalog, and applications
// (tracker service) as the application-history feed.
//
// Both are exposed as small interfaces so the recommender can be exercised
// in tests without a database.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobmate/recommendation-service/internal/model"
)

// JobSource provides read access to the job catalog.
type JobSource interface {
	// ActiveJobs returns every non-archived offer in the feed.
	ActiveJobs(ctx context.Context) ([]model.Job, error)
	// Job returns a single offer, or nil if it does not exist.
	Job(ctx context.Context, id string) (*model.Job, error)
}

// HistorySource provides read access to the application-tracking feed.
type HistorySource interface {
	// AppliedJobIDs returns the distinct job ids the user's applications have
	// reached APPLIED, INTERVIEW, OFFER or HIRED for.
	AppliedJobIDs(ctx context.Context, userID string) ([]string, error)
	// AllAppliedJobIDs returns the same set across every user. Used by the
	// collaborative scorer's overlap count, which is deliberately not
	// partitioned per user (see the recommender package doc).
	AllAppliedJobIDs(ctx context.Context) ([]string, error)
}

// historyStatuses are the application statuses that count as "applied" for
// scoring and learning purposes.
const historyStatuses = `'APPLIED', 'INTERVIEW', 'OFFER', 'HIRED'`

// ─── job_feed ────────────────────────────────────────────────────────────────

// FeedCatalog is the pgx-backed JobSource over job_feed.
type FeedCatalog struct {
	pool *pgxpool.Pool
}

// NewFeedCatalog returns a FeedCatalog.
func NewFeedCatalog(pool *pgxpool.Pool) *FeedCatalog {
	return &FeedCatalog{pool: pool}
}

// ActiveJobs returns all non-archived offers, newest first.
func (c *FeedCatalog) ActiveJobs(ctx context.Context) ([]model.Job, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT id::text, raw_data, match_score, created_at
		 FROM job_feed
		 WHERE status <> 'ARCHIVED'
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query job_feed: %w", err)
	}
	defer rows.Close()

	jobs := make([]model.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// Job returns a single offer by id, or nil if missing.
func (c *FeedCatalog) Job(ctx context.Context, id string) (*model.Job, error) {
	row := c.pool.QueryRow(ctx,
		`SELECT id::text, raw_data, match_score, created_at
		 FROM job_feed
		 WHERE id = $1`,
		id,
	)
	job, err := scanJob(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanJob decodes one job_feed row into a model.Job. The posted date prefers
// the board's publishedAt from raw_data and falls back to the feed insert time.
func scanJob(row rowScanner) (*model.Job, error) {
	var (
		id         string
		rawData    []byte
		matchScore *float64
		createdAt  time.Time
	)
	if err := row.Scan(&id, &rawData, &matchScore, &createdAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan job_feed: %w", err)
	}

	var raw model.RawJob
	if err := json.Unmarshal(rawData, &raw); err != nil {
		// A malformed raw_data row should not poison the whole feed.
		slog.Warn("job_feed raw_data unmarshal failed", "jobId", id, "err", err)
	}

	posted := createdAt
	if raw.PublishedAt != "" {
		if t, err := parsePublishedAt(raw.PublishedAt); err == nil {
			posted = t
		}
	}

	return &model.Job{
		ID:         id,
		Title:      raw.Title,
		Company:    raw.Company,
		Location:   raw.Location,
		MatchScore: matchScore,
		PostedAt:   posted,
	}, nil
}

// parsePublishedAt accepts the two timestamp layouts seen in board payloads.
func parsePublishedAt(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// ─── applications ────────────────────────────────────────────────────────────

// TrackerHistory is the pgx-backed HistorySource over applications.
type TrackerHistory struct {
	pool *pgxpool.Pool
}

// NewTrackerHistory returns a TrackerHistory.
func NewTrackerHistory(pool *pgxpool.Pool) *TrackerHistory {
	return &TrackerHistory{pool: pool}
}

// AppliedJobIDs returns the user's applied job ids.
func (h *TrackerHistory) AppliedJobIDs(ctx context.Context, userID string) ([]string, error) {
	return h.appliedIDs(ctx,
		`SELECT DISTINCT job_feed_id::text
		 FROM applications
		 WHERE user_id = $1
		   AND job_feed_id IS NOT NULL
		   AND current_status IN (`+historyStatuses+`)`,
		userID,
	)
}

// AllAppliedJobIDs returns applied job ids across all users.
func (h *TrackerHistory) AllAppliedJobIDs(ctx context.Context) ([]string, error) {
	return h.appliedIDs(ctx,
		`SELECT DISTINCT job_feed_id::text
		 FROM applications
		 WHERE job_feed_id IS NOT NULL
		   AND current_status IN (`+historyStatuses+`)`,
	)
}

func (h *TrackerHistory) appliedIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := h.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan applications: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
