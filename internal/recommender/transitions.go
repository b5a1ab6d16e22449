// Package recommender implements the adaptive recommendation engine:
// preference learning, content/collaborative/hybrid scoring, recommendation
// lifecycle, job-to-job similarity, daily digests and funnel metrics.
//
// The "collaborative" scorer is a single-requester self-similarity proxy:
// it measures how much of the whole applications event stream intersects the
// requester's own history, so with one active user its base term saturates.
// A true multi-user variant would partition the overlap per requester.
//
// Valid recommendation status graph:
//
//	PENDING ──► VIEWED ──► CLICKED ──► APPLIED
//	    │           │           │
//	    └───────────┴───────────┴──► DISMISSED
//
// Forward jumps are allowed (clicking an unseen card also marks it viewed);
// APPLIED and DISMISSED are terminal. Status never regresses.
package recommender

import "fmt"

// Status values mirror the recommendation_status enum in PostgreSQL.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusViewed    Status = "VIEWED"
	StatusClicked   Status = "CLICKED"
	StatusApplied   Status = "APPLIED"
	StatusDismissed Status = "DISMISSED"
)

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[Status][]Status{
	StatusPending: {StatusViewed, StatusClicked, StatusApplied, StatusDismissed},
	StatusViewed:  {StatusClicked, StatusApplied, StatusDismissed},
	StatusClicked: {StatusApplied, StatusDismissed},
	// APPLIED and DISMISSED are terminal — no outgoing transitions
}

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusPending, StatusViewed, StatusClicked, StatusApplied, StatusDismissed:
		return st, nil
	}
	return "", fmt.Errorf("unknown recommendation status %q", s)
}

// IsTransitionAllowed returns true when moving from → to is permitted by the
// state machine.
func IsTransitionAllowed(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false // terminal state — no outgoing transitions
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true for APPLIED and DISMISSED.
func IsTerminal(s Status) bool {
	_, ok := validTransitions[s]
	return !ok
}
