package recommender

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Preference types. The (type, value) pair is unique per user.
const (
	PrefCompany      = "company"
	PrefLocation     = "location"
	PrefRemote       = "remote"
	PrefTitleKeyword = "job_title_keyword"
)

// Preference provenance tags.
const (
	SourceApplications = "applications"
	SourceClicks       = "clicks"
	SourceDismissals   = "dismissals"
	SourceExplicit     = "explicit"
)

// Preference is a learned affinity between a user and a (type, value)
// attribute pair. Score and Confidence always lie in [0,1]; SampleSize only
// increases. Rows are never deleted by this service.
type Preference struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Type        string    `json:"type"`
	Value       string    `json:"value"`
	Score       float64   `json:"score"`
	Confidence  float64   `json:"confidence"`
	SampleSize  int       `json:"sampleSize"`
	LearnedFrom string    `json:"learnedFrom"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Seed values for a preference created by its first learning event.
const (
	seedNeutralScore   = 0.5
	seedConfidence     = 0.3
	confidenceStepRate = 0.1
)

// AdvancePreference applies one learning delta to an existing preference's
// score and confidence. The score is clamped into [0,1]; confidence
// asymptotically approaches 1 and never decreases.
func AdvancePreference(score, confidence, delta float64) (newScore, newConfidence float64) {
	newScore = clamp(score+delta, 0, 1)
	newConfidence = confidence + confidenceStepRate*(1-confidence)
	if newConfidence > 1 {
		newConfidence = 1
	}
	return newScore, newConfidence
}

// SeedPreference computes the score and confidence for a preference created
// by its first learning event.
func SeedPreference(delta float64) (score, confidence float64) {
	return clamp(seedNeutralScore+delta, 0, 1), seedConfidence
}

// ─── Store ───────────────────────────────────────────────────────────────────

// PreferenceStore persists learned preferences.
type PreferenceStore struct {
	pool *pgxpool.Pool
}

// NewPreferenceStore returns a configured PreferenceStore.
func NewPreferenceStore(pool *pgxpool.Pool) *PreferenceStore {
	return &PreferenceStore{pool: pool}
}

// Active returns the user's active preferences.
func (s *PreferenceStore) Active(ctx context.Context, userID string) ([]Preference, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, user_id, pref_type, pref_value, score, confidence,
		        sample_size, learned_from, last_updated
		 FROM preferences
		 WHERE user_id = $1 AND is_active = true`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	defer rows.Close()

	prefs := make([]Preference, 0)
	for rows.Next() {
		var p Preference
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Type, &p.Value, &p.Score, &p.Confidence,
			&p.SampleSize, &p.LearnedFrom, &p.LastUpdated,
		); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}

// ActiveCount returns the number of active preferences for the user.
func (s *PreferenceStore) ActiveCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM preferences WHERE user_id = $1 AND is_active = true`,
		userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count preferences: %w", err)
	}
	return n, nil
}

// UpdatePreference applies one learning delta to the (type, value) row,
// creating it on first contact. The read-modify-write runs in a single
// transaction with a row lock so concurrent learning events for the same key
// cannot lose updates.
func (s *PreferenceStore) UpdatePreference(ctx context.Context, userID, prefType, value string, delta float64, source string) (*Preference, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin preference tx: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := lockedUpdate(ctx, tx, userID, prefType, value, delta, source)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit preference tx: %w", err)
	}
	return p, nil
}

func lockedUpdate(ctx context.Context, tx pgx.Tx, userID, prefType, value string, delta float64, source string) (*Preference, error) {
	var p Preference
	err := tx.QueryRow(ctx,
		`SELECT id::text, score, confidence, sample_size
		 FROM preferences
		 WHERE user_id = $1 AND pref_type = $2 AND pref_value = $3
		 FOR UPDATE`,
		userID, prefType, value,
	).Scan(&p.ID, &p.Score, &p.Confidence, &p.SampleSize)

	switch err {
	case nil:
		newScore, newConfidence := AdvancePreference(p.Score, p.Confidence, delta)
		err = tx.QueryRow(ctx,
			`UPDATE preferences
			 SET score = $1, confidence = $2, sample_size = sample_size + 1,
			     last_updated = NOW()
			 WHERE id = $3
			 RETURNING id::text, user_id, pref_type, pref_value, score, confidence,
			           sample_size, learned_from, last_updated`,
			newScore, newConfidence, p.ID,
		).Scan(
			&p.ID, &p.UserID, &p.Type, &p.Value, &p.Score, &p.Confidence,
			&p.SampleSize, &p.LearnedFrom, &p.LastUpdated,
		)
		if err != nil {
			return nil, fmt.Errorf("update preference: %w", err)
		}
		return &p, nil

	case pgx.ErrNoRows:
		score, confidence := SeedPreference(delta)
		// Two concurrent first events for the same key race on the insert;
		// ON CONFLICT folds the loser into an update of the winner's row.
		err = tx.QueryRow(ctx,
			`INSERT INTO preferences
			   (user_id, pref_type, pref_value, score, confidence, sample_size,
			    learned_from, is_active, last_updated)
			 VALUES ($1, $2, $3, $4, $5, 1, $6, true, NOW())
			 ON CONFLICT (user_id, pref_type, pref_value) DO UPDATE
			 SET score       = LEAST(1, GREATEST(0, preferences.score + $7)),
			     confidence  = LEAST(1, preferences.confidence + 0.1 * (1 - preferences.confidence)),
			     sample_size = preferences.sample_size + 1,
			     last_updated = NOW()
			 RETURNING id::text, user_id, pref_type, pref_value, score, confidence,
			           sample_size, learned_from, last_updated`,
			userID, prefType, value, score, confidence, source, delta,
		).Scan(
			&p.ID, &p.UserID, &p.Type, &p.Value, &p.Score, &p.Confidence,
			&p.SampleSize, &p.LearnedFrom, &p.LastUpdated,
		)
		if err != nil {
			return nil, fmt.Errorf("insert preference: %w", err)
		}
		return &p, nil

	default:
		return nil, fmt.Errorf("select preference: %w", err)
	}
}
