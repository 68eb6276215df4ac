// Copyright 2025 Certen Protocol
//
// Job Repository - CRUD and query operations for the job-orchestration store.

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobRepository handles all persistent-store operations over jobs.
type JobRepository struct {
	client *Client
}

// NewJobRepository creates a new job repository.
func NewJobRepository(client *Client) *JobRepository {
	return &JobRepository{client: client}
}

// CreateJob inserts a new job, failing if job_id already exists.
func (r *JobRepository) CreateJob(ctx context.Context, input *NewJob) (*Job, error) {
	job := &Job{
		JobID:      input.JobID,
		JobType:    input.JobType,
		JobStatus:  StatusCreated,
		Slot:       input.Slot,
		RetryCount: 0,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if input.BatchRangeBeginEpoch != nil {
		job.BatchRangeBeginEpoch = sql.NullInt64{Int64: *input.BatchRangeBeginEpoch, Valid: true}
	}
	if input.BatchRangeEndEpoch != nil {
		job.BatchRangeEndEpoch = sql.NullInt64{Int64: *input.BatchRangeEndEpoch, Valid: true}
	}

	query := `
		INSERT INTO jobs (
			job_id, job_type, job_status, slot,
			batch_range_begin_epoch, batch_range_end_epoch,
			retry_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (job_id) DO NOTHING
		RETURNING job_id, created_at, updated_at`

	err := r.client.QueryRowContext(ctx, query,
		job.JobID, job.JobType, job.JobStatus, job.Slot,
		job.BatchRangeBeginEpoch, job.BatchRangeEndEpoch,
		job.RetryCount, job.CreatedAt, job.UpdatedAt,
	).Scan(&job.JobID, &job.CreatedAt, &job.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("create job %s: %w", input.JobID, ErrJobExists)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	return job, nil
}

// GetJob retrieves a job by id.
func (r *JobRepository) GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	query := `
		SELECT job_id, job_type, job_status, slot,
			batch_range_begin_epoch, batch_range_end_epoch,
			atlantic_proof_generate_batch_id, atlantic_proof_wrapper_batch_id,
			tx_hash, retry_count, last_error, created_at, updated_at
		FROM jobs WHERE job_id = $1`

	job := &Job{}
	err := r.client.QueryRowContext(ctx, query, jobID).Scan(
		&job.JobID, &job.JobType, &job.JobStatus, &job.Slot,
		&job.BatchRangeBeginEpoch, &job.BatchRangeEndEpoch,
		&job.AtlanticProofGenerateBatchID, &job.AtlanticProofWrapperBatchID,
		&job.TxHash, &job.RetryCount, &job.LastError, &job.CreatedAt, &job.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return job, nil
}

// UpdateJobStatus sets status and updated_at. It does not check the new
// status against the current one: ordering along the status taxonomy is
// not enforced here.
func (r *JobRepository) UpdateJobStatus(ctx context.Context, jobID uuid.UUID, status JobStatus) error {
	res, err := r.client.ExecContext(ctx,
		`UPDATE jobs SET job_status = $1, updated_at = NOW() WHERE job_id = $2`,
		status, jobID,
	)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return requireRowsAffected(res, ErrJobNotFound)
}

// RecordError records a transient failure against a job, incrementing its
// retry count and stashing the error text for the Query API's debug view,
// without changing job_status.
func (r *JobRepository) RecordError(ctx context.Context, jobID uuid.UUID, errText string) error {
	res, err := r.client.ExecContext(ctx,
		`UPDATE jobs SET retry_count = retry_count + 1, last_error = $1, updated_at = NOW() WHERE job_id = $2`,
		errText, jobID,
	)
	if err != nil {
		return fmt.Errorf("failed to record job error: %w", err)
	}
	return requireRowsAffected(res, ErrJobNotFound)
}

// AtlanticQueryKind distinguishes which prover submission id is being set.
type AtlanticQueryKind = AtlanticJobType

// SetAtlanticQueryID records a prover-assigned identifier for the given kind.
func (r *JobRepository) SetAtlanticQueryID(ctx context.Context, jobID uuid.UUID, kind AtlanticQueryKind, id string) error {
	var column string
	switch kind {
	case AtlanticJobTypeGeneration:
		column = "atlantic_proof_generate_batch_id"
	case AtlanticJobTypeWrapping:
		column = "atlantic_proof_wrapper_batch_id"
	default:
		return fmt.Errorf("unknown atlantic query kind: %s", kind)
	}

	query := fmt.Sprintf(`UPDATE jobs SET %s = $1, updated_at = NOW() WHERE job_id = $2`, column)
	res, err := r.client.ExecContext(ctx, query, id, jobID)
	if err != nil {
		return fmt.Errorf("failed to set atlantic query id: %w", err)
	}
	return requireRowsAffected(res, ErrJobNotFound)
}

// SetJobTxHash records the destination-chain transaction identifier.
func (r *JobRepository) SetJobTxHash(ctx context.Context, jobID uuid.UUID, txHash string) error {
	res, err := r.client.ExecContext(ctx,
		`UPDATE jobs SET tx_hash = $1, updated_at = NOW() WHERE job_id = $2`,
		txHash, jobID,
	)
	if err != nil {
		return fmt.Errorf("failed to set job tx hash: %w", err)
	}
	return requireRowsAffected(res, ErrJobNotFound)
}

// GetLatestEpochInProgress returns the greatest batch_range_end_epoch over
// non-terminal EpochBatchUpdate jobs, or 0 if none exist.
func (r *JobRepository) GetLatestEpochInProgress(ctx context.Context) (int64, error) {
	query := `
		SELECT batch_range_end_epoch FROM jobs
		WHERE job_status NOT IN ('DONE', 'CANCELLED', 'ERROR')
			AND batch_range_end_epoch IS NOT NULL
			AND job_type = $1
		ORDER BY batch_range_end_epoch DESC
		LIMIT 1`

	var epoch int64
	err := r.client.QueryRowContext(ctx, query, JobTypeEpochBatchUpdate).Scan(&epoch)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get latest epoch in progress: %w", err)
	}
	return epoch, nil
}

// GetLatestSyncCommitteeInProgress returns the greatest slot over
// non-terminal SyncCommitteeUpdate jobs, or 0 if none.
func (r *JobRepository) GetLatestSyncCommitteeInProgress(ctx context.Context) (int64, error) {
	query := `
		SELECT slot FROM jobs
		WHERE job_status NOT IN ('DONE', 'CANCELLED', 'ERROR')
			AND job_type = $1
		ORDER BY slot DESC
		LIMIT 1`

	var slot int64
	err := r.client.QueryRowContext(ctx, query, JobTypeSyncCommitteeUpdate).Scan(&slot)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get latest sync committee in progress: %w", err)
	}
	return slot, nil
}

// CountJobsInProgress counts non-terminal EpochBatchUpdate jobs.
func (r *JobRepository) CountJobsInProgress(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(*) FROM jobs
		WHERE job_status NOT IN ('DONE', 'CANCELLED', 'ERROR')
			AND job_type = $1`

	var count int
	if err := r.client.QueryRowContext(ctx, query, JobTypeEpochBatchUpdate).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count jobs in progress: %w", err)
	}
	return count, nil
}

// GetJobsWithStatus lists all jobs currently at the given status.
func (r *JobRepository) GetJobsWithStatus(ctx context.Context, status JobStatus) ([]*Job, error) {
	query := `
		SELECT job_id, job_type, job_status, slot,
			batch_range_begin_epoch, batch_range_end_epoch,
			atlantic_proof_generate_batch_id, atlantic_proof_wrapper_batch_id,
			tx_hash, retry_count, last_error, created_at, updated_at
		FROM jobs WHERE job_status = $1
		ORDER BY created_at ASC`

	rows, err := r.client.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs by status: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job := &Job{}
		if err := rows.Scan(
			&job.JobID, &job.JobType, &job.JobStatus, &job.Slot,
			&job.BatchRangeBeginEpoch, &job.BatchRangeEndEpoch,
			&job.AtlanticProofGenerateBatchID, &job.AtlanticProofWrapperBatchID,
			&job.TxHash, &job.RetryCount, &job.LastError, &job.CreatedAt, &job.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// GetUnfinishedJobs lists every job not in a terminal status, for daemon
// startup resume.
func (r *JobRepository) GetUnfinishedJobs(ctx context.Context) ([]*Job, error) {
	query := `
		SELECT job_id, job_type, job_status, slot,
			batch_range_begin_epoch, batch_range_end_epoch,
			atlantic_proof_generate_batch_id, atlantic_proof_wrapper_batch_id,
			tx_hash, retry_count, last_error, created_at, updated_at
		FROM jobs WHERE job_status NOT IN ('DONE', 'CANCELLED', 'ERROR')
		ORDER BY created_at ASC`

	rows, err := r.client.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query unfinished jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job := &Job{}
		if err := rows.Scan(
			&job.JobID, &job.JobType, &job.JobStatus, &job.Slot,
			&job.BatchRangeBeginEpoch, &job.BatchRangeEndEpoch,
			&job.AtlanticProofGenerateBatchID, &job.AtlanticProofWrapperBatchID,
			&job.TxHash, &job.RetryCount, &job.LastError, &job.CreatedAt, &job.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// SetReadyToBroadcastForBatchEpochs transitions every EpochBatchUpdate job
// whose range lies within [begin, end] and whose status is
// OFFCHAIN_COMPUTATION_FINISHED to READY_TO_BROADCAST_ONCHAIN.
func (r *JobRepository) SetReadyToBroadcastForBatchEpochs(ctx context.Context, begin, end int64) (int64, error) {
	res, err := r.client.ExecContext(ctx, `
		UPDATE jobs SET job_status = $1, updated_at = NOW()
		WHERE batch_range_begin_epoch >= $2
			AND batch_range_end_epoch <= $3
			AND job_type = $4
			AND job_status = $5`,
		StatusReadyToBroadcastOnchain, begin, end, JobTypeEpochBatchUpdate, StatusOffchainComputationFinished,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to set ready-to-broadcast for epochs [%d,%d]: %w", begin, end, err)
	}
	return res.RowsAffected()
}

// CancelAllUnfinishedJobs marks every non-terminal job CANCELLED. Used only
// at startup when JOBS_RESUME_ENABLED is false.
func (r *JobRepository) CancelAllUnfinishedJobs(ctx context.Context) (int64, error) {
	res, err := r.client.ExecContext(ctx,
		`UPDATE jobs SET job_status = $1, updated_at = NOW() WHERE job_status NOT IN ('DONE', 'CANCELLED', 'ERROR')`,
		StatusCancelled,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel unfinished jobs: %w", err)
	}
	return res.RowsAffected()
}

func requireRowsAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
