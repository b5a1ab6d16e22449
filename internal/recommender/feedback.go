package recommender

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"jobmate/recommendation-service/internal/model"
)

// Explicit feedback types that carry a learning signal. Other values are
// stored verbatim but do not move preferences.
const (
	FeedbackHelpful    = "helpful"
	FeedbackNotHelpful = "not_helpful"
)

// Feedback is one explicit user reaction to a recommendation. Append-only:
// a recommendation accumulates many feedback rows.
type Feedback struct {
	ID               string    `json:"id"`
	RecommendationID string    `json:"recommendationId"`
	FeedbackType     string    `json:"feedbackType"`
	FeedbackText     *string   `json:"feedbackText"`
	Rating           *int      `json:"rating"`
	CreatedAt        time.Time `json:"createdAt"`
}

// SubmitFeedback appends a feedback row for the recommendation, copies a
// provided rating onto the recommendation itself, and forwards
// helpful/not_helpful to the learner.
func (s *Service) SubmitFeedback(ctx context.Context, userID, recID, feedbackType string, text *string, rating *int) (*Feedback, error) {
	if feedbackType == "" {
		return nil, &ValidationError{Msg: "feedbackType is required"}
	}
	if rating != nil && (*rating < 1 || *rating > 5) {
		return nil, &ValidationError{Msg: "rating must be between 1 and 5"}
	}

	var jobID string
	err := s.pool.QueryRow(ctx,
		`SELECT job_id::text FROM recommendations WHERE id = $1 AND user_id = $2`,
		recID, userID,
	).Scan(&jobID)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load recommendation: %w", err)
	}

	var fb Feedback
	err = s.pool.QueryRow(ctx,
		`INSERT INTO recommendation_feedback
		   (recommendation_id, feedback_type, feedback_text, rating)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id::text, recommendation_id::text, feedback_type, feedback_text, rating, created_at`,
		recID, feedbackType, text, rating,
	).Scan(&fb.ID, &fb.RecommendationID, &fb.FeedbackType, &fb.FeedbackText, &fb.Rating, &fb.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert feedback: %w", err)
	}

	if rating != nil {
		if _, err := s.pool.Exec(ctx,
			`UPDATE recommendations SET user_rating = $1 WHERE id = $2`,
			*rating, recID,
		); err != nil {
			slog.Warn("copy rating to recommendation failed", "recommendationId", recID, "err", err)
		}
	}

	if feedbackType == FeedbackHelpful || feedbackType == FeedbackNotHelpful {
		comment := ""
		if text != nil {
			comment = *text
		}
		s.learn(ctx, userID, jobID, func(job model.Job) error {
			return s.learner.LearnFromFeedback(ctx, userID, job, feedbackType, comment)
		})
	}

	return &fb, nil
}
