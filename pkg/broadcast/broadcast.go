// Copyright 2025 Certen Protocol
//
// Package broadcast is the single-writer Broadcast Serializer: it drains
// READY_TO_BROADCAST_ONCHAIN jobs and submits them to Settlement in a
// globally safe order (§4.6). Run-loop shape follows pkg/batch.Scheduler.

package broadcast

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/certen/beacon-relay/pkg/controlloop"
	"github.com/certen/beacon-relay/pkg/database"
	"github.com/certen/beacon-relay/pkg/metrics"
	"github.com/certen/beacon-relay/pkg/relayerr"
	"github.com/certen/beacon-relay/pkg/settlement"
)

// PollInterval is how often the serializer checks for newly ready jobs.
const PollInterval = 5 * time.Second

// Serializer is the single writer that submits settlement transactions.
// It must be run from exactly one goroutine; do not run two instances
// concurrently against the same Settlement client.
type Serializer struct {
	jobs       *database.JobRepository
	verified   *database.VerifiedRepository
	settlement settlement.Client

	mu     sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}

	logger *log.Logger
}

// New constructs a Serializer.
func New(jobs *database.JobRepository, verified *database.VerifiedRepository, settlementClient settlement.Client) *Serializer {
	return &Serializer{
		jobs:       jobs,
		verified:   verified,
		settlement: settlementClient,
		logger:     log.New(log.Writer(), "[Broadcast] ", log.LstdFlags),
	}
}

// Start begins the drain loop in a background goroutine.
func (s *Serializer) Start(ctx context.Context) {
	s.mu.Lock()
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.run(ctx)
}

// Stop signals the loop to exit and waits for it to finish.
func (s *Serializer) Stop() {
	s.mu.Lock()
	stopCh := s.stopCh
	doneCh := s.doneCh
	s.mu.Unlock()
	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh
}

func (s *Serializer) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := s.drainOnce(ctx); err != nil {
				s.logger.Printf("drain error: %v", err)
			}
		}
	}
}

// drainOnce submits every currently READY_TO_BROADCAST_ONCHAIN job,
// enforcing ordering rule 1: SyncCommitteeUpdate jobs for a committee
// submit before any EpochBatchUpdate whose epochs fall in that committee.
func (s *Serializer) drainOnce(ctx context.Context) error {
	ready, err := s.jobs.GetJobsWithStatus(ctx, database.StatusReadyToBroadcastOnchain)
	if err != nil {
		return err
	}
	if len(ready) == 0 {
		return nil
	}

	var committees, batches []*database.Job
	for _, job := range ready {
		if job.JobType == database.JobTypeSyncCommitteeUpdate {
			committees = append(committees, job)
		} else {
			batches = append(batches, job)
		}
	}

	for _, job := range committees {
		s.submit(ctx, job)
	}
	for _, job := range batches {
		s.submit(ctx, job)
	}
	return nil
}

// submit issues one job's settlement transaction and advances it through
// PROOF_VERIFY_CALLED_ONCHAIN -> VERIFIED_FACT_REGISTERED -> DONE.
func (s *Serializer) submit(ctx context.Context, job *database.Job) {
	readySince := time.Now()
	if job.BatchRangeEndEpoch.Valid {
		latestSettled, err := s.settlement.GetLatestEpochSlot(ctx)
		if err != nil {
			s.logger.Printf("job %s: check settlement pre-state: %v", job.JobID, err)
			return
		}
		if latestSettled/32 > job.BatchRangeEndEpoch.Int64 {
			s.logger.Printf("job %s: settlement already past this batch's range; marking ERROR", job.JobID)
			_ = s.jobs.RecordError(ctx, job.JobID, "requires newer epoch")
			_ = s.jobs.UpdateJobStatus(ctx, job.JobID, database.StatusError)
			return
		}
	}

	txHash, err := s.settlement.SubmitUpdate(ctx, settlementOutputsFor(job))
	if err != nil {
		if rerr, ok := err.(*relayerr.Error); ok && rerr.Kind == relayerr.KindRequiresNewerEpoch {
			_ = s.jobs.RecordError(ctx, job.JobID, err.Error())
			_ = s.jobs.UpdateJobStatus(ctx, job.JobID, database.StatusError)
			return
		}
		s.logger.Printf("job %s: submit failed, will retry next drain: %v", job.JobID, err)
		_ = s.jobs.RecordError(ctx, job.JobID, err.Error())
		return
	}

	if err := s.jobs.SetJobTxHash(ctx, job.JobID, txHash); err != nil {
		s.logger.Printf("job %s: persist tx hash: %v", job.JobID, err)
		return
	}
	if err := s.jobs.UpdateJobStatus(ctx, job.JobID, database.StatusProofVerifyCalledOnchain); err != nil {
		s.logger.Printf("job %s: persist PROOF_VERIFY_CALLED_ONCHAIN: %v", job.JobID, err)
		return
	}
	metrics.BroadcastLatencySeconds.WithLabelValues(string(job.JobType)).Observe(time.Since(readySince).Seconds())

	if err := s.finalize(ctx, job); err != nil {
		s.logger.Printf("job %s: finalize: %v", job.JobID, err)
	}
}

// finalize records the VerifiedEpoch/VerifiedSyncCommittee rows and
// transitions the job to DONE after its transaction has landed.
func (s *Serializer) finalize(ctx context.Context, job *database.Job) error {
	if err := s.jobs.UpdateJobStatus(ctx, job.JobID, database.StatusVerifiedFactRegistered); err != nil {
		return err
	}

	if job.JobType == database.JobTypeEpochBatchUpdate && job.BatchRangeEndEpoch.Valid {
		for epoch := job.BatchRangeBeginEpoch.Int64; epoch <= job.BatchRangeEndEpoch.Int64; epoch++ {
			proof, err := s.settlement.GetEpochProof(ctx, epoch*controlloop.SlotsPerEpoch)
			if err != nil || proof == nil {
				s.logger.Printf("job %s: get epoch proof for epoch %d: %v", job.JobID, epoch, err)
				continue
			}
			_ = s.verified.InsertVerifiedEpoch(ctx, &database.NewVerifiedEpoch{
				EpochID:         epoch,
				HeaderRoot:      proof.HeaderRoot,
				StateRoot:       proof.StateRoot,
				NSigners:        int64(proof.NSigners),
				ExecutionHash:   proof.ExecutionHash,
				ExecutionHeight: int64(proof.ExecutionHeight),
			})
		}
	} else if job.JobType == database.JobTypeSyncCommitteeUpdate {
		_ = s.verified.InsertVerifiedSyncCommittee(ctx, job.Slot/controlloop.SlotsPerSyncCommittee, job.TxHash.String)
	}

	return s.jobs.UpdateJobStatus(ctx, job.JobID, database.StatusDone)
}

func settlementOutputsFor(job *database.Job) settlement.CircuitOutputs {
	return settlement.CircuitOutputs{
		JobKind: string(job.JobType),
		Payload: []byte(job.JobID.String()),
	}
}
