// Package model defines shared data structures for the recommendation service.
package model

import "time"

// Job is a normalised offer read from the discovery service's job_feed table.
// MatchScore is the AI Coach fit score (0–100) and may be absent for offers
// that have not been analysed yet.
type Job struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Company    string    `json:"company"`
	Location   string    `json:"location"`
	MatchScore *float64  `json:"matchScore,omitempty"`
	PostedAt   time.Time `json:"postedAt"`
}

// RawJob mirrors the JSONB shape the discovery service stores in
// job_feed.raw_data (see discovery's JobResult).
type RawJob struct {
	ExternalID  string `json:"externalId"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description"`
	SourceURL   string `json:"sourceUrl"`
	PublishedAt string `json:"publishedAt,omitempty"`
}
