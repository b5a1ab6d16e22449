package recommender

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"jobmate/recommendation-service/internal/model"
)

// titleVocabulary is the fixed set of role keywords mined from job titles on
// application events.
var titleVocabulary = []string{"senior", "lead", "engineer", "manager", "developer", "architect"}

// Learning deltas per signal kind.
const (
	applyCompanyDelta    = 0.7
	applyLocationDelta   = 0.6
	applyRemoteDelta     = 0.8
	applyKeywordDelta    = 0.5
	clickCompanyDelta    = 0.3
	clickLocationDelta   = 0.2
	dismissCompanyDelta  = -0.2
	dismissLocationDelta = -0.3
)

// LearningSignal is one preference delta derived from a user action.
type LearningSignal struct {
	Type   string
	Value  string
	Delta  float64
	Source string
}

// ApplicationSignals derives the preference deltas for an application event:
// strong positive signals for the company and location, remote work when the
// location says so, and every vocabulary keyword found in the title.
func ApplicationSignals(job model.Job) []LearningSignal {
	signals := make([]LearningSignal, 0, 4)
	if job.Company != "" {
		signals = append(signals, LearningSignal{PrefCompany, job.Company, applyCompanyDelta, SourceApplications})
	}
	if job.Location != "" {
		signals = append(signals, LearningSignal{PrefLocation, job.Location, applyLocationDelta, SourceApplications})
		if strings.Contains(strings.ToLower(job.Location), "remote") {
			signals = append(signals, LearningSignal{PrefRemote, "true", applyRemoteDelta, SourceApplications})
		}
	}
	title := strings.ToLower(job.Title)
	for _, kw := range titleVocabulary {
		if strings.Contains(title, kw) {
			signals = append(signals, LearningSignal{PrefTitleKeyword, kw, applyKeywordDelta, SourceApplications})
		}
	}
	return signals
}

// ClickSignals derives the mild positive deltas for a click event.
func ClickSignals(job model.Job) []LearningSignal {
	signals := make([]LearningSignal, 0, 2)
	if job.Company != "" {
		signals = append(signals, LearningSignal{PrefCompany, job.Company, clickCompanyDelta, SourceClicks})
	}
	if job.Location != "" {
		signals = append(signals, LearningSignal{PrefLocation, job.Location, clickLocationDelta, SourceClicks})
	}
	return signals
}

// DismissalSignals derives the negative deltas for a dismissal. The location
// penalty only applies when the stated reason mentions location.
func DismissalSignals(job model.Job, reason string) []LearningSignal {
	signals := make([]LearningSignal, 0, 2)
	if job.Company != "" {
		signals = append(signals, LearningSignal{PrefCompany, job.Company, dismissCompanyDelta, SourceDismissals})
	}
	if job.Location != "" && strings.Contains(strings.ToLower(reason), "location") {
		signals = append(signals, LearningSignal{PrefLocation, job.Location, dismissLocationDelta, SourceDismissals})
	}
	return signals
}

// FeedbackSignals maps explicit feedback onto the implicit signal tables:
// "helpful" learns like a click, "not_helpful" like a dismissal whose reason
// is the free-text comment. Other feedback types carry no signal.
func FeedbackSignals(job model.Job, feedbackType, text string) []LearningSignal {
	switch feedbackType {
	case FeedbackHelpful:
		return ClickSignals(job)
	case FeedbackNotHelpful:
		return DismissalSignals(job, text)
	}
	return nil
}

// ─── Learner ─────────────────────────────────────────────────────────────────

// Learner applies learning signals to the PreferenceStore.
type Learner struct {
	prefs *PreferenceStore
}

// NewLearner returns a configured Learner.
func NewLearner(prefs *PreferenceStore) *Learner {
	return &Learner{prefs: prefs}
}

// LearnFromApplication records the strong positive signals of an application.
func (l *Learner) LearnFromApplication(ctx context.Context, userID string, job model.Job) error {
	return l.apply(ctx, userID, ApplicationSignals(job))
}

// LearnFromClick records the mild positive signals of a click.
func (l *Learner) LearnFromClick(ctx context.Context, userID string, job model.Job) error {
	return l.apply(ctx, userID, ClickSignals(job))
}

// LearnFromDismissal records the negative signals of a dismissal.
func (l *Learner) LearnFromDismissal(ctx context.Context, userID string, job model.Job, reason string) error {
	return l.apply(ctx, userID, DismissalSignals(job, reason))
}

// LearnFromFeedback records the signals of an explicit feedback event, with
// the free-text comment standing in as the dismissal reason.
func (l *Learner) LearnFromFeedback(ctx context.Context, userID string, job model.Job, feedbackType, text string) error {
	return l.apply(ctx, userID, FeedbackSignals(job, feedbackType, text))
}

// apply pushes each signal through the store. A failed update is logged and
// skipped rather than aborting the batch — learning is statistical, and a
// partially applied event is better than a lost one.
func (l *Learner) apply(ctx context.Context, userID string, signals []LearningSignal) error {
	var firstErr error
	for _, sig := range signals {
		if _, err := l.prefs.UpdatePreference(ctx, userID, sig.Type, sig.Value, sig.Delta, sig.Source); err != nil {
			slog.Warn("preference update failed",
				"userId", userID, "type", sig.Type, "value", sig.Value, "err", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("update preference (%s, %s): %w", sig.Type, sig.Value, err)
			}
		}
	}
	return firstErr
}
