package recommender

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"jobmate/recommendation-service/internal/catalog"
	"jobmate/recommendation-service/internal/model"
)

// Recommendation is one scored job surfaced to the user, with its lifecycle
// state. Rows expire 14 days after generation. For a given (user, job) at
// most one PENDING row exists at any time; a re-generation pass updates that
// row in place.
type Recommendation struct {
	ID              string       `json:"id"`
	UserID          string       `json:"userId"`
	JobID           string       `json:"jobId"`
	Score           float64      `json:"score"`
	Confidence      float64      `json:"confidence"`
	Status          Status       `json:"status"`
	Reasons         []string     `json:"reasons"`
	MatchFactors    MatchFactors `json:"matchFactors"`
	RecommendedAt   time.Time    `json:"recommendedAt"`
	ExpiresAt       time.Time    `json:"expiresAt"`
	ViewedAt        *time.Time   `json:"viewedAt"`
	ClickedAt       *time.Time   `json:"clickedAt"`
	DismissedAt     *time.Time   `json:"dismissedAt"`
	WasApplied      bool         `json:"wasApplied"`
	UserRating      *int         `json:"userRating"`
	DismissalReason *string      `json:"dismissalReason"`
}

// GenerateParams control one generation pass.
type GenerateParams struct {
	Limit          int     `json:"limit"`
	Algorithm      string  `json:"algorithm"`
	IncludeReasons bool    `json:"includeReasons"`
	FilterApplied  bool    `json:"filterApplied"`
	MinScore       float64 `json:"minScore"`
}

const defaultGenerateLimit = 10

// ─── Service ─────────────────────────────────────────────────────────────────

// Service encapsulates the recommendation engine's business logic.
// It has no dependency on net/http — it can be used by any transport layer.
type Service struct {
	pool    *pgxpool.Pool
	rdb     *redis.Client
	jobs    catalog.JobSource
	history catalog.HistorySource
	prefs   *PreferenceStore
	learner *Learner
	now     func() time.Time
}

// NewService returns a configured Service.
func NewService(pool *pgxpool.Pool, rdb *redis.Client, jobs catalog.JobSource, history catalog.HistorySource) *Service {
	prefs := NewPreferenceStore(pool)
	return &Service{
		pool:    pool,
		rdb:     rdb,
		jobs:    jobs,
		history: history,
		prefs:   prefs,
		learner: NewLearner(prefs),
		now:     time.Now,
	}
}

// Learner exposes the feedback learner so the tracker's status-change handler
// can feed application events directly.
func (s *Service) Learner() *Learner { return s.learner }

// ─── Confidence ──────────────────────────────────────────────────────────────

// Preference-count thresholds that raise recommendation confidence.
const (
	confidencePrefTier1 = 10
	confidencePrefTier2 = 20
	confidenceTierBonus = 0.1
	freshJobDamping     = 0.8
)

// RecommendationConfidence estimates how much to trust a recommendation:
// the normalised score, raised as the learned profile grows past 10 and 20
// active preferences, damped for jobs posted less than a day ago (too little
// signal), and clamped to [0,1].
func RecommendationConfidence(job model.Job, score float64, activePrefs int, now time.Time) float64 {
	confidence := score / 100
	if activePrefs > confidencePrefTier1 {
		confidence += confidenceTierBonus
	}
	if activePrefs > confidencePrefTier2 {
		confidence += confidenceTierBonus
	}
	if !job.PostedAt.IsZero() && now.Sub(job.PostedAt) < 24*time.Hour {
		confidence *= freshJobDamping
	}
	return clamp(confidence, 0, 1)
}

// ─── Generation pass ─────────────────────────────────────────────────────────

// Generate runs one generation pass: score the candidate pool with the
// selected strategy, keep the best candidates above MinScore, and upsert one
// PENDING recommendation per surviving job.
//
// An empty candidate pool is not an error — the result is an empty list.
func (s *Service) Generate(ctx context.Context, userID string, p GenerateParams) ([]Recommendation, error) {
	switch p.Algorithm {
	case "":
		p.Algorithm = AlgorithmHybrid
	case AlgorithmContent, AlgorithmCollaborative, AlgorithmHybrid:
	default:
		return nil, &ValidationError{Msg: fmt.Sprintf("unknown algorithm %q", p.Algorithm)}
	}
	if p.MinScore < 0 || p.MinScore > 100 {
		return nil, &ValidationError{Msg: "minScore must be between 0 and 100"}
	}
	if p.Limit <= 0 {
		p.Limit = defaultGenerateLimit
	}

	scored, err := s.scoreCandidates(ctx, userID, p)
	if err != nil {
		return nil, err
	}

	now := s.now()
	recs := make([]Recommendation, 0, len(scored))
	for _, sj := range scored {
		rec, err := s.upsertPending(ctx, userID, sj, now)
		if err != nil {
			return nil, err
		}
		if !p.IncludeReasons {
			rec.Reasons = nil
		}
		recs = append(recs, *rec)
	}

	if len(recs) > 0 {
		s.publish(ctx, "EVENT_RECOMMENDATIONS_READY", map[string]string{
			"userId": userID,
			"count":  fmt.Sprintf("%d", len(recs)),
		})
	}
	return recs, nil
}

// scoreCandidates loads the candidate pool, the user's history and the event
// stream, then hands selection to SelectCandidates.
func (s *Service) scoreCandidates(ctx context.Context, userID string, p GenerateParams) ([]ScoredJob, error) {
	jobs, err := s.jobs.ActiveJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load candidate jobs: %w", err)
	}

	historyIDs, err := s.history.AppliedJobIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load application history: %w", err)
	}
	history := toSet(historyIDs)

	var eventStream map[string]bool
	if p.Algorithm != AlgorithmContent {
		streamIDs, err := s.history.AllAppliedJobIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("load event stream: %w", err)
		}
		eventStream = toSet(streamIDs)
	}

	prefs, err := s.prefs.Active(ctx, userID)
	if err != nil {
		return nil, err
	}

	return SelectCandidates(jobs, history, eventStream, prefs, p, s.now()), nil
}

// SelectCandidates runs the chosen strategy over the candidate pool and keeps
// the winners: already-applied jobs are skipped when FilterApplied is set,
// anything scoring below MinScore is dropped, and the survivors come back in
// descending score order (job id ascending on ties) truncated to Limit.
//
// Pure given its inputs; the stable sort and id tie-break keep a parallel
// rollout of the scoring loop from changing the outcome.
func SelectCandidates(jobs []model.Job, history, eventStream map[string]bool, prefs []Preference, p GenerateParams, now time.Time) []ScoredJob {
	scored := make([]ScoredJob, 0, len(jobs))
	for _, job := range jobs {
		if p.FilterApplied && history[job.ID] {
			continue
		}

		var sj ScoredJob
		switch p.Algorithm {
		case AlgorithmContent:
			sj = ScoreContent(job, prefs, now)
		case AlgorithmCollaborative:
			sj = ScoreCollaborative(job, history, eventStream, prefs, now)
		case AlgorithmHybrid:
			sj = BlendHybrid(
				ScoreContent(job, prefs, now),
				ScoreCollaborative(job, history, eventStream, prefs, now),
			)
		}

		if sj.Score < p.MinScore {
			continue
		}
		scored = append(scored, sj)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Job.ID < scored[j].Job.ID
	})
	if p.Limit > 0 && len(scored) > p.Limit {
		scored = scored[:p.Limit]
	}
	return scored
}

// upsertPending updates the job's existing PENDING row in place, or creates a
// new recommendation. Runs in a transaction with a row lock so concurrent
// generation passes cannot produce duplicate PENDING rows for one job.
func (s *Service) upsertPending(ctx context.Context, userID string, sj ScoredJob, now time.Time) (*Recommendation, error) {
	reasonsJSON, err := json.Marshal(sj.Reasons)
	if err != nil {
		return nil, fmt.Errorf("marshal reasons: %w", err)
	}
	factorsJSON, err := json.Marshal(sj.Factors)
	if err != nil {
		return nil, fmt.Errorf("marshal factors: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin upsert tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var pendingID string
	err = tx.QueryRow(ctx,
		`SELECT id::text FROM recommendations
		 WHERE user_id = $1 AND job_id = $2 AND status = 'PENDING'
		 FOR UPDATE`,
		userID, sj.Job.ID,
	).Scan(&pendingID)

	var rec *Recommendation
	switch err {
	case nil:
		// Refreshing expires_at along with recommended_at keeps the
		// 14-day window anchored to the latest generation pass.
		rec, err = scanRec(tx.QueryRow(ctx,
			`UPDATE recommendations
			 SET recommendation_score = $1, reasons = $2::jsonb,
			     match_factors = $3::jsonb, recommended_at = NOW(),
			     expires_at = NOW() + INTERVAL '14 days'
			 WHERE id = $4
			 RETURNING `+recColumns,
			sj.Score, string(reasonsJSON), string(factorsJSON), pendingID,
		))
	case pgx.ErrNoRows:
		activePrefs, cerr := s.prefs.ActiveCount(ctx, userID)
		if cerr != nil {
			return nil, cerr
		}
		confidence := RecommendationConfidence(sj.Job, sj.Score, activePrefs, now)
		rec, err = scanRec(tx.QueryRow(ctx,
			`INSERT INTO recommendations
			   (user_id, job_id, recommendation_score, confidence, status,
			    reasons, match_factors, recommended_at, expires_at)
			 VALUES ($1, $2, $3, $4, 'PENDING', $5::jsonb, $6::jsonb, NOW(), NOW() + INTERVAL '14 days')
			 RETURNING `+recColumns,
			userID, sj.Job.ID, sj.Score, confidence,
			string(reasonsJSON), string(factorsJSON),
		))
	default:
		return nil, fmt.Errorf("select pending recommendation: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("upsert recommendation for job %s: %w", sj.Job.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit upsert tx: %w", err)
	}
	return rec, nil
}

// ListActive returns the user's non-expired recommendations, best first.
// If statusFilter is non-empty, only rows with that status are returned.
func (s *Service) ListActive(ctx context.Context, userID, statusFilter string) ([]Recommendation, error) {
	base := `SELECT ` + recColumns + `
		 FROM recommendations
		 WHERE user_id = $1 AND expires_at > NOW()`

	var (
		rows pgx.Rows
		err  error
	)
	if statusFilter != "" {
		status, perr := ParseStatus(statusFilter)
		if perr != nil {
			return nil, &ValidationError{Msg: perr.Error()}
		}
		rows, err = s.pool.Query(ctx,
			base+` AND status = $2::recommendation_status
			 ORDER BY recommendation_score DESC, job_id ASC`,
			userID, string(status))
	} else {
		rows, err = s.pool.Query(ctx,
			base+` ORDER BY recommendation_score DESC, job_id ASC`, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("listActive query: %w", err)
	}
	defer rows.Close()

	recs := make([]Recommendation, 0)
	for rows.Next() {
		rec, err := scanRec(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// ─── Row plumbing ────────────────────────────────────────────────────────────

const recColumns = `id::text, user_id, job_id::text, recommendation_score, confidence,
	status, reasons, match_factors, recommended_at, expires_at,
	viewed_at, clicked_at, dismissed_at, was_applied, user_rating, dismissal_reason`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRec(row rowScanner) (*Recommendation, error) {
	var (
		r           Recommendation
		status      string
		reasonsJSON []byte
		factorsJSON []byte
	)
	err := row.Scan(
		&r.ID, &r.UserID, &r.JobID, &r.Score, &r.Confidence,
		&status, &reasonsJSON, &factorsJSON, &r.RecommendedAt, &r.ExpiresAt,
		&r.ViewedAt, &r.ClickedAt, &r.DismissedAt, &r.WasApplied, &r.UserRating, &r.DismissalReason,
	)
	if err != nil {
		return nil, err
	}
	r.Status = Status(status)
	if len(reasonsJSON) > 0 {
		if err := json.Unmarshal(reasonsJSON, &r.Reasons); err != nil {
			return nil, fmt.Errorf("unmarshal reasons: %w", err)
		}
	}
	if len(factorsJSON) > 0 {
		if err := json.Unmarshal(factorsJSON, &r.MatchFactors); err != nil {
			return nil, fmt.Errorf("unmarshal match_factors: %w", err)
		}
	}
	return &r, nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// publish sends an event to Redis for the Gateway SSE stream (non-fatal).
func (s *Service) publish(ctx context.Context, channel string, fields map[string]string) {
	if s.rdb == nil {
		return
	}
	payload := map[string]string{"type": channel}
	for k, v := range fields {
		payload[k] = v
	}
	event, _ := json.Marshal(payload)
	if err := s.rdb.Publish(ctx, channel, event).Err(); err != nil {
		slog.Warn("publish failed", "channel", channel, "err", err)
	}
}

// ─── Sentinel errors ─────────────────────────────────────────────────────────

// ErrNotFound is returned when a recommendation or job is missing or does not
// belong to the user.
var ErrNotFound = fmt.Errorf("not found")

// ValidationError wraps a user-facing validation message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }
