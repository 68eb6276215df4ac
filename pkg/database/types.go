// Copyright 2025 Certen Protocol
//
// Database Types for the beacon-chain relay's job-orchestration store.
// These types map directly to the PostgreSQL schema defined in migrations/001_initial_schema.sql

package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// JOB TYPES
// ============================================================================

// JobType identifies the kind of work a Job represents.
type JobType string

const (
	// JobTypeEpochUpdate proves a single epoch. Deprecated: the control loop
	// never enqueues this kind directly; it survives only as a debug path.
	JobTypeEpochUpdate      JobType = "EPOCH_UPDATE"
	JobTypeEpochBatchUpdate JobType = "EPOCH_BATCH_UPDATE"
	JobTypeSyncCommitteeUpdate JobType = "SYNC_COMMITTEE_UPDATE"
)

// JobStatus is a single point along the job's monotonic status taxonomy.
type JobStatus string

const (
	StatusCreated                   JobStatus = "CREATED"
	StatusFetchedProof               JobStatus = "FETCHED_PROOF"
	StatusPieGenerated                JobStatus = "PIE_GENERATED"
	StatusOffchainProofRequested       JobStatus = "OFFCHAIN_PROOF_REQUESTED"
	StatusOffchainProofRetrieved       JobStatus = "OFFCHAIN_PROOF_RETRIEVED"
	StatusWrapProofRequested          JobStatus = "WRAP_PROOF_REQUESTED"
	StatusWrappedProofDone            JobStatus = "WRAPPED_PROOF_DONE"
	StatusOffchainComputationFinished JobStatus = "OFFCHAIN_COMPUTATION_FINISHED"
	StatusReadyToBroadcastOnchain      JobStatus = "READY_TO_BROADCAST_ONCHAIN"
	StatusProofVerifyCalledOnchain     JobStatus = "PROOF_VERIFY_CALLED_ONCHAIN"
	StatusVerifiedFactRegistered       JobStatus = "VERIFIED_FACT_REGISTERED"
	StatusDone                      JobStatus = "DONE"
	StatusError                     JobStatus = "ERROR"
	StatusCancelled                 JobStatus = "CANCELLED"
)

// statusOrder gives the ordinal position of each on-path status so callers
// can assert monotonic progress. ERROR and CANCELLED are off-path and have
// no ordinal: they may be entered from any on-path status.
var statusOrder = map[JobStatus]int{
	StatusCreated:                      0,
	StatusFetchedProof:                 1,
	StatusPieGenerated:                 2,
	StatusOffchainProofRequested:       3,
	StatusOffchainProofRetrieved:       4,
	StatusWrapProofRequested:           5,
	StatusWrappedProofDone:             6,
	StatusOffchainComputationFinished:  7,
	StatusReadyToBroadcastOnchain:      8,
	StatusProofVerifyCalledOnchain:     9,
	StatusVerifiedFactRegistered:       10,
	StatusDone:                         11,
}

// Ordinal returns the status's position in the on-path taxonomy, and false
// if the status is off-path (ERROR, CANCELLED) or unrecognized.
func (s JobStatus) Ordinal() (int, bool) {
	o, ok := statusOrder[s]
	return o, ok
}

// IsTerminal reports whether no further transitions are expected.
func (s JobStatus) IsTerminal() bool {
	return s == StatusDone || s == StatusError || s == StatusCancelled
}

// AtlanticJobType distinguishes the two prover submission kinds recorded
// against a job: PIE generation and proof wrapping.
type AtlanticJobType string

const (
	AtlanticJobTypeGeneration AtlanticJobType = "generation"
	AtlanticJobTypeWrapping   AtlanticJobType = "wrapping"
)

// Job is the durable record of one unit of relay work.
// Maps to: jobs table.
type Job struct {
	JobID                        uuid.UUID      `db:"job_id" json:"job_id"`
	JobType                      JobType        `db:"job_type" json:"job_type"`
	JobStatus                    JobStatus      `db:"job_status" json:"job_status"`
	Slot                         int64          `db:"slot" json:"slot"`
	BatchRangeBeginEpoch         sql.NullInt64  `db:"batch_range_begin_epoch" json:"batch_range_begin_epoch,omitempty"`
	BatchRangeEndEpoch           sql.NullInt64  `db:"batch_range_end_epoch" json:"batch_range_end_epoch,omitempty"`
	AtlanticProofGenerateBatchID sql.NullString `db:"atlantic_proof_generate_batch_id" json:"atlantic_proof_generate_batch_id,omitempty"`
	AtlanticProofWrapperBatchID  sql.NullString `db:"atlantic_proof_wrapper_batch_id" json:"atlantic_proof_wrapper_batch_id,omitempty"`
	TxHash                       sql.NullString `db:"tx_hash" json:"tx_hash,omitempty"`
	RetryCount                   int            `db:"retry_count" json:"retry_count"`
	LastError                    sql.NullString `db:"last_error" json:"last_error,omitempty"`
	CreatedAt                    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt                    time.Time      `db:"updated_at" json:"updated_at"`
}

// NewJob carries the fields needed to create a job. BatchRangeBeginEpoch/
// BatchRangeEndEpoch are only meaningful for JobTypeEpochBatchUpdate.
type NewJob struct {
	JobID                uuid.UUID
	JobType              JobType
	Slot                 int64
	BatchRangeBeginEpoch *int64
	BatchRangeEndEpoch   *int64
}

// ============================================================================
// VERIFIED EPOCH / SYNC COMMITTEE TYPES
// ============================================================================

// VerifiedEpoch is the append-only record of an epoch's settled proof outputs.
// Maps to: verified_epoch table.
type VerifiedEpoch struct {
	EpochID         int64     `db:"epoch_id" json:"epoch_id"`
	HeaderRoot      string    `db:"header_root" json:"header_root"`
	StateRoot       string    `db:"state_root" json:"state_root"`
	NSigners        int64     `db:"n_signers" json:"n_signers"`
	ExecutionHash   string    `db:"execution_hash" json:"execution_hash"`
	ExecutionHeight int64     `db:"execution_height" json:"execution_height"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// NewVerifiedEpoch carries the fields needed to insert a VerifiedEpoch row.
type NewVerifiedEpoch struct {
	EpochID         int64
	HeaderRoot      string
	StateRoot       string
	NSigners        int64
	ExecutionHash   string
	ExecutionHeight int64
}

// VerifiedSyncCommittee is the append-only record of a committee rotation's
// settled hash. Maps to: verified_sync_committee table.
type VerifiedSyncCommittee struct {
	SyncCommitteeID   int64     `db:"sync_committee_id" json:"sync_committee_id"`
	SyncCommitteeHash string    `db:"sync_committee_hash" json:"sync_committee_hash"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// ============================================================================
// EPOCH MERKLE PATH TYPES
// ============================================================================

// EpochMerklePath is one sibling-hash path from an epoch's header leaf to
// its batch's Merkle root. Maps to: epoch_merkle_paths table.
type EpochMerklePath struct {
	EpochID    int64     `db:"epoch_id" json:"epoch_id"`
	PathIndex  int       `db:"path_index" json:"path_index"`
	MerklePath string    `db:"merkle_path" json:"merkle_path"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ============================================================================
// UUID HELPERS
// ============================================================================

// NullUUID aliases uuid.NullUUID for nullable UUID columns.
type NullUUID = uuid.NullUUID

// ParseUUID parses a string into a UUID.
func ParseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// NewUUID generates a new random UUID.
func NewUUID() uuid.UUID {
	return uuid.New()
}
