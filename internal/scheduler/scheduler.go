// Package scheduler wires up the cron jobs that periodically generate daily
// digests and keep the similarity cache warm.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"jobmate/recommendation-service/internal/recommender"
)

// Scheduler wraps robfig/cron and manages the periodic jobs.
type Scheduler struct {
	cron       *cron.Cron
	svc        *recommender.Service
	digestSpec string // e.g. "0 8 * * *"
	sweepSpec  string // e.g. "@every 24h"
}

// New creates a Scheduler that builds digests at digestHour every day and
// refreshes similarity edges every sweepHours hours.
func New(svc *recommender.Service, digestHour, sweepHours int) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithLogger(cron.DefaultLogger)),
		svc:        svc,
		digestSpec: fmt.Sprintf("0 %d * * *", digestHour),
		sweepSpec:  fmt.Sprintf("@every %dh", sweepHours),
	}
}

// Start registers the jobs and starts the scheduler. Unlike the discovery
// scraper there is no immediate run on startup: an off-hour digest would
// double up with the next morning's one.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.digestSpec, func() { s.runDigests(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc digest: %w", err)
	}
	if _, err := s.cron.AddFunc(s.sweepSpec, func() { s.runSimilaritySweep(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc similarity sweep: %w", err)
	}

	s.cron.Start()
	slog.Info("cron started", "digestSpec", s.digestSpec, "sweepSpec", s.sweepSpec)
	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	slog.Info("cron stopped")
}

// runDigests builds the daily digest for every user with fresh recommendations.
func (s *Scheduler) runDigests(ctx context.Context) {
	slog.Info("digest cycle started")

	userIDs, err := s.svc.DigestUserIDs(ctx)
	if err != nil {
		slog.Error("digest users lookup failed", "err", err)
		return
	}
	if len(userIDs) == 0 {
		slog.Info("no users with fresh recommendations — nothing to digest")
		return
	}

	built := 0
	for _, userID := range userIDs {
		digest, err := s.svc.GenerateDailyDigest(ctx, userID)
		if err != nil {
			slog.Error("digest generation failed", "userId", userID, "err", err)
			continue
		}
		if digest != nil {
			built++
		}
	}
	slog.Info("digest cycle complete", "users", len(userIDs), "digests", built)
}

// runSimilaritySweep recomputes stale similarity edges for recently
// recommended jobs so interactive FindSimilar calls mostly hit the cache.
func (s *Scheduler) runSimilaritySweep(ctx context.Context) {
	slog.Info("similarity sweep started")

	jobIDs, err := s.svc.RecentlyRecommendedJobIDs(ctx)
	if err != nil {
		slog.Error("similarity sweep lookup failed", "err", err)
		return
	}

	for _, jobID := range jobIDs {
		if _, err := s.svc.FindSimilar(ctx, jobID, 10); err != nil {
			slog.Error("similarity refresh failed", "jobId", jobID, "err", err)
		}
	}
	slog.Info("similarity sweep complete", "jobs", len(jobIDs))
}
