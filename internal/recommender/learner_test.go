package recommender_test

import (
	"testing"

	"jobmate/recommendation-service/internal/model"
	"jobmate/recommendation-service/internal/recommender"
)

func findSignal(signals []recommender.LearningSignal, prefType, value string) *recommender.LearningSignal {
	for i := range signals {
		if signals[i].Type == prefType && signals[i].Value == value {
			return &signals[i]
		}
	}
	return nil
}

// ── ApplicationSignals ─────────────────────────────────────────────────────

func TestApplicationSignals_FullJob(t *testing.T) {
	job := model.Job{
		Title:    "Senior Backend Engineer",
		Company:  "Acme",
		Location: "Remote — Paris",
	}
	signals := recommender.ApplicationSignals(job)

	company := findSignal(signals, recommender.PrefCompany, "Acme")
	if company == nil || company.Delta != 0.7 || company.Source != recommender.SourceApplications {
		t.Errorf("company signal = %+v, want delta 0.7 from applications", company)
	}
	location := findSignal(signals, recommender.PrefLocation, "Remote — Paris")
	if location == nil || location.Delta != 0.6 {
		t.Errorf("location signal = %+v, want delta 0.6", location)
	}
	remote := findSignal(signals, recommender.PrefRemote, "true")
	if remote == nil || remote.Delta != 0.8 {
		t.Errorf("remote signal = %+v, want delta 0.8", remote)
	}
	for _, kw := range []string{"senior", "engineer"} {
		if sig := findSignal(signals, recommender.PrefTitleKeyword, kw); sig == nil || sig.Delta != 0.5 {
			t.Errorf("keyword %q signal = %+v, want delta 0.5", kw, sig)
		}
	}
	if sig := findSignal(signals, recommender.PrefTitleKeyword, "manager"); sig != nil {
		t.Errorf("unexpected keyword signal %+v for a title without it", sig)
	}
}

func TestApplicationSignals_OnsiteJobHasNoRemoteSignal(t *testing.T) {
	job := model.Job{Title: "Developer", Company: "Acme", Location: "Lyon"}
	if sig := findSignal(recommender.ApplicationSignals(job), recommender.PrefRemote, "true"); sig != nil {
		t.Errorf("unexpected remote signal %+v for an onsite job", sig)
	}
}

func TestApplicationSignals_EmptyJobYieldsNothing(t *testing.T) {
	if signals := recommender.ApplicationSignals(model.Job{}); len(signals) != 0 {
		t.Errorf("signals = %+v, want none for an empty job", signals)
	}
}

// ── ClickSignals ───────────────────────────────────────────────────────────

func TestClickSignals(t *testing.T) {
	job := model.Job{Title: "Engineer", Company: "Acme", Location: "Paris"}
	signals := recommender.ClickSignals(job)

	if len(signals) != 2 {
		t.Fatalf("got %d signals, want 2", len(signals))
	}
	company := findSignal(signals, recommender.PrefCompany, "Acme")
	if company == nil || company.Delta != 0.3 || company.Source != recommender.SourceClicks {
		t.Errorf("company signal = %+v, want delta 0.3 from clicks", company)
	}
	location := findSignal(signals, recommender.PrefLocation, "Paris")
	if location == nil || location.Delta != 0.2 {
		t.Errorf("location signal = %+v, want delta 0.2", location)
	}
}

// ── DismissalSignals ───────────────────────────────────────────────────────

func TestDismissalSignals_CompanyAlways(t *testing.T) {
	job := model.Job{Company: "Acme", Location: "Paris"}
	signals := recommender.DismissalSignals(job, "not interesting")

	company := findSignal(signals, recommender.PrefCompany, "Acme")
	if company == nil || company.Delta != -0.2 || company.Source != recommender.SourceDismissals {
		t.Errorf("company signal = %+v, want delta -0.2 from dismissals", company)
	}
	if sig := findSignal(signals, recommender.PrefLocation, "Paris"); sig != nil {
		t.Errorf("unexpected location signal %+v: reason does not mention location", sig)
	}
}

func TestDismissalSignals_LocationReason(t *testing.T) {
	job := model.Job{Company: "Acme", Location: "Paris"}
	signals := recommender.DismissalSignals(job, "Bad LOCATION for me")

	location := findSignal(signals, recommender.PrefLocation, "Paris")
	if location == nil || location.Delta != -0.3 {
		t.Errorf("location signal = %+v, want delta -0.3", location)
	}
}

func TestDismissalSignals_LocationReasonWithoutLocationField(t *testing.T) {
	job := model.Job{Company: "Acme"}
	signals := recommender.DismissalSignals(job, "wrong location")
	if sig := findSignal(signals, recommender.PrefLocation, ""); sig != nil {
		t.Errorf("unexpected location signal %+v for a job without a location", sig)
	}
	if len(signals) != 1 {
		t.Errorf("got %d signals, want company only", len(signals))
	}
}

// ── FeedbackSignals ────────────────────────────────────────────────────────

func TestFeedbackSignals_HelpfulLearnsLikeAClick(t *testing.T) {
	job := model.Job{Title: "Engineer", Company: "Acme", Location: "Paris"}
	signals := recommender.FeedbackSignals(job, recommender.FeedbackHelpful, "")

	company := findSignal(signals, recommender.PrefCompany, "Acme")
	if company == nil || company.Delta != 0.3 || company.Source != recommender.SourceClicks {
		t.Errorf("company signal = %+v, want the click delta 0.3", company)
	}
}

func TestFeedbackSignals_NotHelpfulCommentIsTheDismissalReason(t *testing.T) {
	job := model.Job{Company: "Acme", Location: "Paris"}
	signals := recommender.FeedbackSignals(job, recommender.FeedbackNotHelpful, "wrong location for me")

	location := findSignal(signals, recommender.PrefLocation, "Paris")
	if location == nil || location.Delta != -0.3 {
		t.Errorf("location signal = %+v, want delta -0.3: the comment drives the location penalty", location)
	}
	company := findSignal(signals, recommender.PrefCompany, "Acme")
	if company == nil || company.Delta != -0.2 {
		t.Errorf("company signal = %+v, want the dismissal delta -0.2", company)
	}
}

func TestFeedbackSignals_UnknownTypeCarriesNoSignal(t *testing.T) {
	job := model.Job{Company: "Acme", Location: "Paris"}
	if signals := recommender.FeedbackSignals(job, "bookmark", "nice"); len(signals) != 0 {
		t.Errorf("signals = %+v, want none for an unrecognised feedback type", signals)
	}
}
