package recommender_test

import (
	"testing"

	"jobmate/recommendation-service/internal/recommender"
)

// ── ParseStatus ────────────────────────────────────────────────────────────

func TestParseStatus_ValidValues(t *testing.T) {
	valid := []string{"PENDING", "VIEWED", "CLICKED", "APPLIED", "DISMISSED"}
	for _, s := range valid {
		got, err := recommender.ParseStatus(s)
		if err != nil {
			t.Errorf("ParseStatus(%q) returned unexpected error: %v", s, err)
		}
		if string(got) != s {
			t.Errorf("ParseStatus(%q) = %q, want %q", s, got, s)
		}
	}
}

func TestParseStatus_InvalidValue(t *testing.T) {
	for _, s := range []string{"UNKNOWN", "", "pending", " PENDING"} {
		if _, err := recommender.ParseStatus(s); err == nil {
			t.Errorf("ParseStatus(%q) expected error, got nil", s)
		}
	}
}

// ── IsTransitionAllowed — forward transitions ──────────────────────────────

func TestIsTransitionAllowed_ValidForward(t *testing.T) {
	cases := []struct {
		from recommender.Status
		to   recommender.Status
	}{
		{recommender.StatusPending, recommender.StatusViewed},
		{recommender.StatusPending, recommender.StatusClicked}, // click also marks viewed
		{recommender.StatusPending, recommender.StatusApplied},
		{recommender.StatusViewed, recommender.StatusClicked},
		{recommender.StatusViewed, recommender.StatusApplied},
		{recommender.StatusClicked, recommender.StatusApplied},
	}
	for _, c := range cases {
		if !recommender.IsTransitionAllowed(c.from, c.to) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be true", c.from, c.to)
		}
	}
}

// ── IsTransitionAllowed — dismissal from any non-terminal state ────────────

func TestIsTransitionAllowed_ToDismissed(t *testing.T) {
	nonTerminals := []recommender.Status{
		recommender.StatusPending,
		recommender.StatusViewed,
		recommender.StatusClicked,
	}
	for _, from := range nonTerminals {
		if !recommender.IsTransitionAllowed(from, recommender.StatusDismissed) {
			t.Errorf("IsTransitionAllowed(%s → DISMISSED) should be true", from)
		}
	}
}

// ── IsTransitionAllowed — terminal states have no outgoing transitions ─────

func TestIsTransitionAllowed_FromTerminal(t *testing.T) {
	terminals := []recommender.Status{recommender.StatusApplied, recommender.StatusDismissed}
	targets := []recommender.Status{
		recommender.StatusPending,
		recommender.StatusViewed,
		recommender.StatusClicked,
		recommender.StatusApplied,
		recommender.StatusDismissed,
	}
	for _, from := range terminals {
		for _, to := range targets {
			if recommender.IsTransitionAllowed(from, to) {
				t.Errorf("IsTransitionAllowed(%s → %s) should be false (terminal state)", from, to)
			}
		}
	}
}

// ── Status never regresses ─────────────────────────────────────────────────

func TestIsTransitionAllowed_NoRegression(t *testing.T) {
	cases := []struct {
		from recommender.Status
		to   recommender.Status
	}{
		{recommender.StatusViewed, recommender.StatusPending},
		{recommender.StatusClicked, recommender.StatusPending},
		{recommender.StatusClicked, recommender.StatusViewed},
	}
	for _, c := range cases {
		if recommender.IsTransitionAllowed(c.from, c.to) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be false (regression)", c.from, c.to)
		}
	}
}

// ── IsTerminal ─────────────────────────────────────────────────────────────

func TestIsTerminal(t *testing.T) {
	for _, s := range []recommender.Status{recommender.StatusApplied, recommender.StatusDismissed} {
		if !recommender.IsTerminal(s) {
			t.Errorf("IsTerminal(%s) should be true", s)
		}
	}
	for _, s := range []recommender.Status{
		recommender.StatusPending,
		recommender.StatusViewed,
		recommender.StatusClicked,
	} {
		if recommender.IsTerminal(s) {
			t.Errorf("IsTerminal(%s) should be false", s)
		}
	}
}
