// Copyright 2025 Certen Protocol
//
// Package controlloop is the pure decision layer: for each head
// observation, it consults the Persistent Store and Settlement and
// enqueues zero or more new jobs. It performs no external work beyond
// enqueue and store-query operations (§4.3).

package controlloop

import (
	"context"
	"fmt"
	"log"

	"github.com/certen/beacon-relay/pkg/beacon"
	"github.com/certen/beacon-relay/pkg/database"
	"github.com/certen/beacon-relay/pkg/settlement"
)

// Constants from §4.3.
const (
	SlotsPerEpoch              = 32
	SlotsPerSyncCommittee      = 8192
	EpochsPerSyncCommittee     = 256
	TargetBatchSize            = 32
	MaxConcurrentJobsInProgress = 16
)

// EnqueueFunc is called once per job the Control Loop decides to create.
// Grounded in pkg/batch.Scheduler's callback-injection idiom.
type EnqueueFunc func(ctx context.Context, job *database.NewJob) error

// ControlLoop is the decision layer. It holds no mutable state beyond its
// collaborators and is safe to call repeatedly and serially.
type ControlLoop struct {
	jobs       *database.JobRepository
	settlement settlement.Client
	enqueue    EnqueueFunc
	logger     *log.Logger
}

// New constructs a ControlLoop.
func New(jobs *database.JobRepository, settlementClient settlement.Client, enqueue EnqueueFunc) *ControlLoop {
	return &ControlLoop{
		jobs:       jobs,
		settlement: settlementClient,
		enqueue:    enqueue,
		logger:     log.New(log.Writer(), "[ControlLoop] ", log.LstdFlags),
	}
}

// Tick processes one head observation, evaluating the decision rules of
// §4.3 in order. The caller (the daemon's event loop) is responsible for
// serializing calls to Tick — one observation completes before the next
// begins (§5c).
func (c *ControlLoop) Tick(ctx context.Context, event beacon.HeadEvent) error {
	latestVerifiedSlot, err := c.settlement.GetLatestEpochSlot(ctx)
	if err != nil {
		return fmt.Errorf("control loop: get latest verified slot: %w", err)
	}
	latestVerifiedEpoch := latestVerifiedSlot / SlotsPerEpoch

	latestInProgressEpoch, err := c.jobs.GetLatestEpochInProgress(ctx)
	if err != nil {
		return fmt.Errorf("control loop: get latest epoch in progress: %w", err)
	}
	lastInProgressEpoch := maxInt64(latestInProgressEpoch, latestVerifiedEpoch)

	observedEpoch := event.Epoch(SlotsPerEpoch)
	epochsBehind := observedEpoch - latestVerifiedEpoch

	// Rule 4: catch-up.
	for epochsBehind > TargetBatchSize {
		inProgress, err := c.jobs.CountJobsInProgress(ctx)
		if err != nil {
			return fmt.Errorf("control loop: count jobs in progress: %w", err)
		}
		if inProgress >= MaxConcurrentJobsInProgress {
			break
		}

		begin := lastInProgressEpoch + 1
		end := lastInProgressEpoch + TargetBatchSize
		end = clampToCommitteeBoundary(begin, end)

		if err := c.enqueueBatch(ctx, begin, end); err != nil {
			return err
		}

		lastInProgressEpoch = end
		epochsBehind = observedEpoch - lastInProgressEpoch
	}

	// Rule 5: steady-state epoch transition.
	if epochsBehind <= TargetBatchSize && event.EpochTransition {
		begin := lastInProgressEpoch + 1
		end := observedEpoch
		if end >= begin {
			end = clampToCommitteeBoundary(begin, end)
			if err := c.enqueueBatch(ctx, begin, end); err != nil {
				return err
			}
		}
	}

	// Rule 6: sync-committee rotation.
	if event.Slot%SlotsPerSyncCommittee == 0 {
		committeeID := event.Slot / SlotsPerSyncCommittee
		if err := c.enqueue(ctx, &database.NewJob{
			JobID:   database.NewUUID(),
			JobType: database.JobTypeSyncCommitteeUpdate,
			Slot:    event.Slot,
		}); err != nil {
			return fmt.Errorf("control loop: enqueue sync committee update %d: %w", committeeID, err)
		}
		c.logger.Printf("enqueued sync committee update for committee %d at slot %d", committeeID, event.Slot)
	}

	return nil
}

func (c *ControlLoop) enqueueBatch(ctx context.Context, begin, end int64) error {
	if end < begin {
		return nil
	}
	slot := end * SlotsPerEpoch
	if err := c.enqueue(ctx, &database.NewJob{
		JobID:                database.NewUUID(),
		JobType:              database.JobTypeEpochBatchUpdate,
		Slot:                 slot,
		BatchRangeBeginEpoch: &begin,
		BatchRangeEndEpoch:   &end,
	}); err != nil {
		return fmt.Errorf("control loop: enqueue batch [%d,%d]: %w", begin, end, err)
	}
	c.logger.Printf("enqueued epoch batch update [%d,%d]", begin, end)
	return nil
}

// clampToCommitteeBoundary shortens [begin,end] so it never crosses a
// sync-committee period boundary, per §4.3 rule 4 and §3's invariant that
// a batch's range lies within exactly one committee period.
func clampToCommitteeBoundary(begin, end int64) int64 {
	committeeEndEpoch := ((begin-1)/EpochsPerSyncCommittee + 1) * EpochsPerSyncCommittee
	if end > committeeEndEpoch {
		return committeeEndEpoch
	}
	return end
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
