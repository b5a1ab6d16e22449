package recommender

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"jobmate/recommendation-service/internal/model"
)

// Lifecycle operations. Every learning side effect fires at most once per
// recommendation: clicks learn on the first clicked_at set, applications on
// the was_applied false→true edge, dismissals on the first dismissed_at set.
// Repeated calls on an already-transitioned row return it unchanged.

// ─── Idempotence guards ──────────────────────────────────────────────────────

// Each guard pairs a lifecycle write with the column it sets: once the mark is
// present, repeats are no-ops and the learning side effect never re-fires.

// ShouldRecordView reports whether markViewed has anything left to write.
func ShouldRecordView(cur *Recommendation) bool { return cur.ViewedAt == nil }

// ShouldRecordClick reports whether this click is the first one.
func ShouldRecordClick(cur *Recommendation) bool { return cur.ClickedAt == nil }

// ShouldRecordApplication reports whether the application edge has fired yet.
func ShouldRecordApplication(cur *Recommendation) bool { return !cur.WasApplied }

// ShouldRecordDismissal reports whether the recommendation was already dismissed.
func ShouldRecordDismissal(cur *Recommendation) bool { return cur.DismissedAt == nil }

// ─── Operations ──────────────────────────────────────────────────────────────

// MarkViewed records that the user saw the recommendation. Idempotent: a
// second call does not change viewed_at.
func (s *Service) MarkViewed(ctx context.Context, userID, recID string) (*Recommendation, error) {
	rec, changed, err := s.transition(ctx, userID, recID, StatusViewed, func(cur *Recommendation) (string, []any, bool) {
		if !ShouldRecordView(cur) {
			return "", nil, false
		}
		return `viewed_at = NOW(), status = 'VIEWED'`, nil, true
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.publishMoved(ctx, userID, rec, StatusViewed)
	}
	return rec, nil
}

// MarkClicked records a click-through. Sets viewed_at as well if the card was
// never viewed, and feeds the click to the learner only the first time
// clicked_at transitions from unset to set.
func (s *Service) MarkClicked(ctx context.Context, userID, recID string) (*Recommendation, error) {
	rec, changed, err := s.transition(ctx, userID, recID, StatusClicked, func(cur *Recommendation) (string, []any, bool) {
		if !ShouldRecordClick(cur) {
			return "", nil, false
		}
		return `viewed_at = COALESCE(viewed_at, NOW()), clicked_at = NOW(), status = 'CLICKED'`, nil, true
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.learn(ctx, userID, rec.JobID, func(job model.Job) error {
			return s.learner.LearnFromClick(ctx, userID, job)
		})
		s.publishMoved(ctx, userID, rec, StatusClicked)
	}
	return rec, nil
}

// MarkApplied records that the user applied through this recommendation.
// Learning fires on the was_applied false→true edge only. viewed_at is left
// alone: only a click implies a view, so apply-without-view flows do not
// inflate the viewed funnel count.
func (s *Service) MarkApplied(ctx context.Context, userID, recID string) (*Recommendation, error) {
	rec, changed, err := s.transition(ctx, userID, recID, StatusApplied, func(cur *Recommendation) (string, []any, bool) {
		if !ShouldRecordApplication(cur) {
			return "", nil, false
		}
		return `was_applied = true, status = 'APPLIED'`, nil, true
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.learn(ctx, userID, rec.JobID, func(job model.Job) error {
			return s.learner.LearnFromApplication(ctx, userID, job)
		})
		s.publishMoved(ctx, userID, rec, StatusApplied)
	}
	return rec, nil
}

// Dismiss moves the recommendation to the terminal DISMISSED state. Learning
// fires on the first dismissal only.
func (s *Service) Dismiss(ctx context.Context, userID, recID, reason string) (*Recommendation, error) {
	rec, changed, err := s.transition(ctx, userID, recID, StatusDismissed, func(cur *Recommendation) (string, []any, bool) {
		if !ShouldRecordDismissal(cur) {
			return "", nil, false
		}
		return `dismissed_at = NOW(), dismissal_reason = $2, status = 'DISMISSED'`, []any{reason}, true
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.learn(ctx, userID, rec.JobID, func(job model.Job) error {
			return s.learner.LearnFromDismissal(ctx, userID, job, reason)
		})
		s.publishMoved(ctx, userID, rec, StatusDismissed)
	}
	return rec, nil
}

// transition runs one guarded lifecycle update in a transaction. decide
// inspects the locked current row and returns the SET clause (with extra args
// beyond $1 = id), or false to signal an idempotent no-op. Returns whether a
// write happened.
func (s *Service) transition(
	ctx context.Context,
	userID, recID string,
	target Status,
	decide func(cur *Recommendation) (setClause string, extraArgs []any, write bool),
) (*Recommendation, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin transition tx: %w", err)
	}
	defer tx.Rollback(ctx)

	cur, err := scanRec(tx.QueryRow(ctx,
		`SELECT `+recColumns+` FROM recommendations
		 WHERE id = $1 AND user_id = $2
		 FOR UPDATE`,
		recID, userID,
	))
	if err == pgx.ErrNoRows {
		return nil, false, ErrNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("load recommendation: %w", err)
	}

	setClause, extraArgs, write := decide(cur)
	if !write {
		// Already there — idempotent success.
		return cur, false, tx.Commit(ctx)
	}

	if cur.Status != target && !IsTransitionAllowed(cur.Status, target) {
		return nil, false, &ValidationError{
			Msg: fmt.Sprintf("transition %s → %s is not allowed", cur.Status, target),
		}
	}

	args := append([]any{cur.ID}, extraArgs...)
	rec, err := scanRec(tx.QueryRow(ctx,
		`UPDATE recommendations SET `+setClause+`
		 WHERE id = $1
		 RETURNING `+recColumns,
		args...,
	))
	if err != nil {
		return nil, false, fmt.Errorf("transition update: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit transition tx: %w", err)
	}
	return rec, true, nil
}

// learn resolves the job and feeds it to the learner. Learning failures are
// logged, not surfaced: the lifecycle write already committed, and the signal
// is statistical.
func (s *Service) learn(ctx context.Context, userID, jobID string, fn func(job model.Job) error) {
	job, err := s.jobs.Job(ctx, jobID)
	if err != nil || job == nil {
		slog.Warn("learn: job lookup failed", "userId", userID, "jobId", jobID, "err", err)
		return
	}
	if err := fn(*job); err != nil {
		slog.Warn("learn: preference update failed", "jobId", jobID, "err", err)
	}
}

func (s *Service) publishMoved(ctx context.Context, userID string, rec *Recommendation, to Status) {
	s.publish(ctx, "EVENT_RECOMMENDATION_MOVED", map[string]string{
		"recommendationId": rec.ID,
		"userId":           userID,
		"jobId":            rec.JobID,
		"to":               string(to),
	})
}
