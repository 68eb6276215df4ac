// Copyright 2025 Certen Protocol
//
// Package dispatcher is the bounded-concurrency executor: it accepts Job
// Records and runs the per-kind state machine to completion, persisting
// each transition. Concurrency shape (semaphores as counting chan
// struct{}, context-cancellable run loop) follows pkg/batch.Scheduler and
// pkg/batch.Processor.

package dispatcher

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/certen/beacon-relay/pkg/beacon"
	"github.com/certen/beacon-relay/pkg/database"
	"github.com/certen/beacon-relay/pkg/merkle"
	"github.com/certen/beacon-relay/pkg/metrics"
	"github.com/certen/beacon-relay/pkg/prover"
	"github.com/certen/beacon-relay/pkg/relayerr"
	"github.com/certen/beacon-relay/pkg/tracerunner"
)

// Constants from §4.4/§4.5/§5.
const (
	MaxConcurrentRPCFetchJobs    = 1
	MaxConcurrentPIEGenerations  = 1
	MaxConcurrentJobsInProgress  = 16
	RetryDelay                   = 300 * time.Second
	MaxJobRetries                = 10
	MaxSkippedSlotsRetryAttempts = 5
	MaxCommitteeSlotAttempts     = 3
)

// Dispatcher runs Job Records to completion against the three resource
// pools described in §4.4.
type Dispatcher struct {
	repos  *database.Repositories
	beacon beacon.Client
	trace  tracerunner.Runner
	prover prover.Client

	rpcFetchSem chan struct{}
	pieSem      chan struct{}
	jobsSem     chan struct{}

	retryEnabled  bool
	resumeEnabled bool

	wg     sync.WaitGroup
	logger *log.Logger
}

// New constructs a Dispatcher.
func New(repos *database.Repositories, beaconClient beacon.Client, trace tracerunner.Runner, proverClient prover.Client, retryEnabled, resumeEnabled bool) *Dispatcher {
	return &Dispatcher{
		repos:         repos,
		beacon:        beaconClient,
		trace:         trace,
		prover:        proverClient,
		rpcFetchSem:   make(chan struct{}, MaxConcurrentRPCFetchJobs),
		pieSem:        make(chan struct{}, MaxConcurrentPIEGenerations),
		jobsSem:       make(chan struct{}, MaxConcurrentJobsInProgress),
		retryEnabled:  retryEnabled,
		resumeEnabled: resumeEnabled,
		logger:        log.New(log.Writer(), "[Dispatcher] ", log.LstdFlags),
	}
}

// Submit hands a newly created or resumed job to the Dispatcher. It
// returns once the job has been accepted for execution (acquiring a slot
// in jobsSem may block until another job completes).
func (d *Dispatcher) Submit(ctx context.Context, job *database.Job) {
	d.wg.Add(1)
	select {
	case d.jobsSem <- struct{}{}:
	case <-ctx.Done():
		d.wg.Done()
		return
	}
	metrics.PoolOccupancy.WithLabelValues("jobs_in_progress").Inc()

	go func() {
		defer d.wg.Done()
		defer func() { <-d.jobsSem }()
		defer metrics.PoolOccupancy.WithLabelValues("jobs_in_progress").Dec()
		d.run(ctx, job)
	}()
}

// Wait blocks until every submitted job's goroutine has exited — used at
// shutdown after ctx has been cancelled.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// ResumeAll re-submits every job not in a terminal status, per §4.4's
// resume semantics, governed by JOBS_RESUME_ENABLED.
func (d *Dispatcher) ResumeAll(ctx context.Context) error {
	if !d.resumeEnabled {
		n, err := d.repos.Jobs.CancelAllUnfinishedJobs(ctx)
		if err != nil {
			return fmt.Errorf("resume: cancel unfinished jobs: %w", err)
		}
		d.logger.Printf("resume disabled: cancelled %d unfinished jobs", n)
		return nil
	}

	jobs, err := d.repos.Jobs.GetUnfinishedJobs(ctx)
	if err != nil {
		return fmt.Errorf("resume: get unfinished jobs: %w", err)
	}
	for _, job := range jobs {
		d.logger.Printf("resuming job %s at status %s", job.JobID, job.JobStatus)
		d.Submit(ctx, job)
	}
	return nil
}

// run drives one job's state machine from its current status until it
// reaches READY_TO_BROADCAST_ONCHAIN (left to the Broadcast Serializer) or a
// terminal status, persisting every transition. It never returns an error:
// failures are recorded on the job row itself (§7's "nothing is silently
// dropped").
func (d *Dispatcher) run(ctx context.Context, job *database.Job) {
	work := &jobWork{job: job}

	if err := d.hydrate(ctx, work); err != nil {
		d.handleStepError(ctx, job, err)
		if job.JobStatus == database.StatusError {
			return
		}
	}

	for !job.JobStatus.IsTerminal() && job.JobStatus != database.StatusReadyToBroadcastOnchain && job.JobStatus != database.StatusProofVerifyCalledOnchain {
		select {
		case <-ctx.Done():
			return
		default:
		}

		next, err := d.step(ctx, work)
		if err != nil {
			d.handleStepError(ctx, job, err)
			if job.JobStatus == database.StatusError {
				return
			}
			continue
		}

		if err := d.repos.Jobs.UpdateJobStatus(ctx, job.JobID, next); err != nil {
			d.logger.Printf("job %s: failed to persist status %s: %v", job.JobID, next, err)
			return
		}
		metrics.JobsByStatus.WithLabelValues(string(job.JobType), string(job.JobStatus)).Dec()
		job.JobStatus = next
		job.RetryCount = 0
		metrics.JobsByStatus.WithLabelValues(string(job.JobType), string(job.JobStatus)).Inc()
	}
}

// jobWork carries the transient, in-memory assembled inputs for the
// duration of one goroutine's run — not persisted, since §8 guarantees
// re-assembly is byte-identical and crash resume simply re-assembles.
type jobWork struct {
	job         *database.Job
	epoch       *beacon.EpochInputs
	committee   *beacon.CommitteeInputs
	batch       *beacon.BatchInputs
	pie         *tracerunner.PIE
	rawProof    []byte
	wrappedDone bool
}

// hydrate re-derives in-memory assembled inputs (and, if needed, the PIE)
// for a job resumed past CREATED, since neither is persisted on the job
// row — both are pure/deterministic to rebuild, per §4.4's resume
// semantics and §8's re-assembly idempotence guarantee.
func (d *Dispatcher) hydrate(ctx context.Context, work *jobWork) error {
	job := work.job
	ordinal, ok := job.JobStatus.Ordinal()
	if !ok || ordinal <= 0 {
		return nil
	}

	if _, err := d.stepCreated(ctx, work); err != nil {
		return err
	}

	if ordinal >= 2 { // >= PIE_GENERATED
		pieBytes, err := d.trace.Run(ctx, job.JobID.String(), work.assembledInput())
		if err != nil {
			return err
		}
		work.pie = pieBytes
	}
	return nil
}

func (d *Dispatcher) handleStepError(ctx context.Context, job *database.Job, err error) {
	kind := kindOf(err)

	if !relayerr.IsRetryable(err) {
		d.logger.Printf("job %s: non-retryable error: %v", job.JobID, err)
		_ = d.repos.Jobs.RecordError(ctx, job.JobID, err.Error())
		_ = d.repos.Jobs.UpdateJobStatus(ctx, job.JobID, database.StatusError)
		job.JobStatus = database.StatusError
		metrics.JobsFailedTotal.WithLabelValues(string(job.JobType), kind).Inc()
		return
	}

	_ = d.repos.Jobs.RecordError(ctx, job.JobID, err.Error())
	job.RetryCount++
	metrics.JobRetriesTotal.WithLabelValues(string(job.JobType), kind).Inc()

	if d.retryEnabled && job.RetryCount < MaxJobRetries {
		d.logger.Printf("job %s: retryable error (attempt %d/%d): %v", job.JobID, job.RetryCount, MaxJobRetries, err)
		select {
		case <-time.After(RetryDelay):
		case <-ctx.Done():
		}
		return
	}

	d.logger.Printf("job %s: retries exhausted: %v", job.JobID, err)
	_ = d.repos.Jobs.UpdateJobStatus(ctx, job.JobID, database.StatusError)
	job.JobStatus = database.StatusError
	metrics.JobsFailedTotal.WithLabelValues(string(job.JobType), kind).Inc()
}

// kindOf extracts a metrics-safe label for the error's relayerr.Kind, or
// "unknown" if err was not produced via the relayerr constructors.
func kindOf(err error) string {
	if rerr, ok := err.(*relayerr.Error); ok {
		return string(rerr.Kind)
	}
	return "unknown"
}

// step performs exactly one state transition for work.job, dispatching on
// its current status per the common skeleton in §4.4.
func (d *Dispatcher) step(ctx context.Context, work *jobWork) (database.JobStatus, error) {
	job := work.job

	switch job.JobStatus {
	case database.StatusCreated:
		return d.stepCreated(ctx, work)
	case database.StatusFetchedProof:
		return d.stepFetchedProof(ctx, work)
	case database.StatusPieGenerated:
		return d.stepPieGenerated(ctx, work)
	case database.StatusOffchainProofRequested:
		return d.stepOffchainProofRequested(ctx, work)
	case database.StatusOffchainProofRetrieved:
		return d.stepOffchainProofRetrieved(ctx, work)
	case database.StatusWrapProofRequested:
		return d.stepWrapProofRequested(ctx, work)
	case database.StatusWrappedProofDone:
		return database.StatusOffchainComputationFinished, nil
	case database.StatusOffchainComputationFinished:
		return d.stepPromoteReady(ctx, work)
	default:
		return "", fmt.Errorf("dispatcher: job %s: no transition defined for status %s", job.JobID, job.JobStatus)
	}
}

func (d *Dispatcher) stepCreated(ctx context.Context, work *jobWork) (database.JobStatus, error) {
	select {
	case d.rpcFetchSem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	metrics.PoolOccupancy.WithLabelValues("rpc_fetch_pool").Inc()
	defer metrics.PoolOccupancy.WithLabelValues("rpc_fetch_pool").Dec()
	defer func() { <-d.rpcFetchSem }()

	job := work.job
	switch job.JobType {
	case database.JobTypeEpochUpdate:
		epoch, err := beacon.AssembleEpochInputs(ctx, d.beacon, job.Slot, MaxSkippedSlotsRetryAttempts)
		if err != nil {
			return "", err
		}
		work.epoch = epoch

	case database.JobTypeSyncCommitteeUpdate:
		committee, err := beacon.AssembleCommitteeInputs(ctx, d.beacon, job.Slot, MaxCommitteeSlotAttempts)
		if err != nil {
			return "", err
		}
		work.committee = committee

	case database.JobTypeEpochBatchUpdate:
		if !job.BatchRangeBeginEpoch.Valid || !job.BatchRangeEndEpoch.Valid {
			return "", fmt.Errorf("dispatcher: job %s: EpochBatchUpdate missing batch range", job.JobID)
		}
		batch, err := beacon.AssembleBatchInputs(ctx, d.beacon, job.BatchRangeBeginEpoch.Int64, job.BatchRangeEndEpoch.Int64, controlloopSlotsPerEpoch, MaxSkippedSlotsRetryAttempts)
		if err != nil {
			return "", err
		}
		work.batch = batch

		if err := d.persistBatchMerklePaths(ctx, batch); err != nil {
			return "", err
		}

	default:
		return "", fmt.Errorf("dispatcher: job %s: unknown job type %s", job.JobID, job.JobType)
	}

	return database.StatusFetchedProof, nil
}

// persistBatchMerklePaths builds the explicit sentinel-padded balanced
// binary tree over the batch's epoch header roots and writes each leaf's
// sibling path at assembly time, per §9 and §4.5.
func (d *Dispatcher) persistBatchMerklePaths(ctx context.Context, batch *beacon.BatchInputs) error {
	tree, err := merkle.BuildTree(batch.LeafRoots)
	if err != nil {
		return relayerr.Wrap(relayerr.KindInvalidMerkleTree, err)
	}

	for i := range batch.Epochs {
		proof, err := tree.GenerateProof(i)
		if err != nil {
			return relayerr.Wrap(relayerr.KindInvalidMerkleTree, err)
		}
		epochID := batch.BeginEpoch + int64(i)
		for pathIndex, node := range proof.Path {
			if err := d.repos.Merkle.InsertMerklePathForEpoch(ctx, epochID, pathIndex, node.Hash); err != nil {
				return fmt.Errorf("persist merkle path: epoch %d: %w", epochID, err)
			}
		}
	}
	return nil
}

func (d *Dispatcher) stepFetchedProof(ctx context.Context, work *jobWork) (database.JobStatus, error) {
	select {
	case d.pieSem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	metrics.PoolOccupancy.WithLabelValues("pie_pool").Inc()
	defer metrics.PoolOccupancy.WithLabelValues("pie_pool").Dec()
	defer func() { <-d.pieSem }()

	input := work.assembledInput()
	pie, err := d.trace.Run(ctx, work.job.JobID.String(), input)
	if err != nil {
		return "", err
	}
	work.pie = pie
	return database.StatusPieGenerated, nil
}

func (d *Dispatcher) stepPieGenerated(ctx context.Context, work *jobWork) (database.JobStatus, error) {
	job := work.job
	if job.AtlanticProofGenerateBatchID.Valid {
		// Already submitted on a previous run; skip resubmission (§4.4 resume).
		return database.StatusOffchainProofRequested, nil
	}

	pieBytes, err := readPIE(work.pie)
	if err != nil {
		return "", relayerr.Wrap(relayerr.KindIOError, err)
	}

	batchID, err := d.prover.SubmitGeneration(ctx, pieBytes)
	if err != nil {
		return "", err
	}
	if err := d.repos.Jobs.SetAtlanticQueryID(ctx, job.JobID, database.AtlanticJobTypeGeneration, batchID); err != nil {
		return "", fmt.Errorf("dispatcher: persist generation batch id: %w", err)
	}
	job.AtlanticProofGenerateBatchID.String = batchID
	job.AtlanticProofGenerateBatchID.Valid = true
	return database.StatusOffchainProofRequested, nil
}

func (d *Dispatcher) stepOffchainProofRequested(ctx context.Context, work *jobWork) (database.JobStatus, error) {
	job := work.job
	status, err := prover.WaitUntilTerminal(ctx, d.prover, job.AtlanticProofGenerateBatchID.String)
	if err != nil {
		return "", err
	}
	if status == prover.BatchStatusFailed {
		return "", relayerr.Sentinel(relayerr.KindProverError)
	}

	raw, err := d.prover.FetchProof(ctx, job.AtlanticProofGenerateBatchID.String)
	if err != nil {
		return "", err
	}
	work.rawProof = raw
	return database.StatusOffchainProofRetrieved, nil
}

func (d *Dispatcher) stepOffchainProofRetrieved(ctx context.Context, work *jobWork) (database.JobStatus, error) {
	job := work.job
	if job.AtlanticProofWrapperBatchID.Valid {
		return database.StatusWrapProofRequested, nil
	}

	batchID, err := d.prover.SubmitWrapping(ctx, work.rawProof)
	if err != nil {
		return "", err
	}
	if err := d.repos.Jobs.SetAtlanticQueryID(ctx, job.JobID, database.AtlanticJobTypeWrapping, batchID); err != nil {
		return "", fmt.Errorf("dispatcher: persist wrapping batch id: %w", err)
	}
	job.AtlanticProofWrapperBatchID.String = batchID
	job.AtlanticProofWrapperBatchID.Valid = true
	return database.StatusWrapProofRequested, nil
}

func (d *Dispatcher) stepWrapProofRequested(ctx context.Context, work *jobWork) (database.JobStatus, error) {
	job := work.job
	status, err := prover.WaitUntilTerminal(ctx, d.prover, job.AtlanticProofWrapperBatchID.String)
	if err != nil {
		return "", err
	}
	if status == prover.BatchStatusFailed {
		return "", relayerr.Sentinel(relayerr.KindProverError)
	}
	return database.StatusWrappedProofDone, nil
}

// stepPromoteReady flips the job to READY_TO_BROADCAST_ONCHAIN: directly
// for kinds with no batch range, or via SetReadyToBroadcastForBatchEpochs
// for EpochBatchUpdate so the same sweep can also catch sibling jobs in
// the same epoch range left over from a prior crash.
func (d *Dispatcher) stepPromoteReady(ctx context.Context, work *jobWork) (database.JobStatus, error) {
	job := work.job
	if job.JobType == database.JobTypeEpochBatchUpdate && job.BatchRangeBeginEpoch.Valid && job.BatchRangeEndEpoch.Valid {
		if _, err := d.repos.Jobs.SetReadyToBroadcastForBatchEpochs(ctx, job.BatchRangeBeginEpoch.Int64, job.BatchRangeEndEpoch.Int64); err != nil {
			return "", fmt.Errorf("dispatcher: promote ready: %w", err)
		}
		return database.StatusReadyToBroadcastOnchain, nil
	}

	return database.StatusReadyToBroadcastOnchain, nil
}

func (w *jobWork) assembledInput() interface{} {
	switch {
	case w.batch != nil:
		return w.batch
	case w.committee != nil:
		return w.committee
	default:
		return w.epoch
	}
}

const controlloopSlotsPerEpoch = 32
