// Copyright 2025 Certen Protocol
//
// Verified Repository - append-only records of settled epoch and sync
// committee outputs, written by the Broadcast Serializer once a job's
// settlement transaction has landed.

package database

import (
	"context"
	"database/sql"
	"fmt"
)

// VerifiedRepository handles persistence of settled epoch/committee facts.
type VerifiedRepository struct {
	client *Client
}

// NewVerifiedRepository creates a new verified-facts repository.
func NewVerifiedRepository(client *Client) *VerifiedRepository {
	return &VerifiedRepository{client: client}
}

// InsertVerifiedEpoch records a newly settled epoch's proof outputs.
func (r *VerifiedRepository) InsertVerifiedEpoch(ctx context.Context, input *NewVerifiedEpoch) error {
	_, err := r.client.ExecContext(ctx, `
		INSERT INTO verified_epoch (
			epoch_id, header_root, state_root, n_signers, execution_hash, execution_height
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (epoch_id) DO NOTHING`,
		input.EpochID, input.HeaderRoot, input.StateRoot,
		input.NSigners, input.ExecutionHash, input.ExecutionHeight,
	)
	if err != nil {
		return fmt.Errorf("failed to insert verified epoch %d: %w", input.EpochID, err)
	}
	return nil
}

// GetVerifiedEpoch retrieves a settled epoch's record.
func (r *VerifiedRepository) GetVerifiedEpoch(ctx context.Context, epochID int64) (*VerifiedEpoch, error) {
	epoch := &VerifiedEpoch{}
	err := r.client.QueryRowContext(ctx, `
		SELECT epoch_id, header_root, state_root, n_signers, execution_hash, execution_height, created_at
		FROM verified_epoch WHERE epoch_id = $1`, epochID,
	).Scan(
		&epoch.EpochID, &epoch.HeaderRoot, &epoch.StateRoot,
		&epoch.NSigners, &epoch.ExecutionHash, &epoch.ExecutionHeight, &epoch.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get verified epoch %d: %w", epochID, err)
	}
	return epoch, nil
}

// GetLatestVerifiedEpoch returns the highest epoch_id settled so far, or
// nil if no epoch has ever been settled.
func (r *VerifiedRepository) GetLatestVerifiedEpoch(ctx context.Context) (*VerifiedEpoch, error) {
	epoch := &VerifiedEpoch{}
	err := r.client.QueryRowContext(ctx, `
		SELECT epoch_id, header_root, state_root, n_signers, execution_hash, execution_height, created_at
		FROM verified_epoch ORDER BY epoch_id DESC LIMIT 1`,
	).Scan(
		&epoch.EpochID, &epoch.HeaderRoot, &epoch.StateRoot,
		&epoch.NSigners, &epoch.ExecutionHash, &epoch.ExecutionHeight, &epoch.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest verified epoch: %w", err)
	}
	return epoch, nil
}

// InsertVerifiedSyncCommittee records a newly settled sync committee rotation.
func (r *VerifiedRepository) InsertVerifiedSyncCommittee(ctx context.Context, syncCommitteeID int64, hash string) error {
	_, err := r.client.ExecContext(ctx, `
		INSERT INTO verified_sync_committee (sync_committee_id, sync_committee_hash)
		VALUES ($1, $2)
		ON CONFLICT (sync_committee_id) DO NOTHING`,
		syncCommitteeID, hash,
	)
	if err != nil {
		return fmt.Errorf("failed to insert verified sync committee %d: %w", syncCommitteeID, err)
	}
	return nil
}

// GetLatestVerifiedSyncCommittee returns the most recently settled sync
// committee rotation, or nil if none has ever been settled.
func (r *VerifiedRepository) GetLatestVerifiedSyncCommittee(ctx context.Context) (*VerifiedSyncCommittee, error) {
	sc := &VerifiedSyncCommittee{}
	err := r.client.QueryRowContext(ctx, `
		SELECT sync_committee_id, sync_committee_hash, created_at
		FROM verified_sync_committee ORDER BY sync_committee_id DESC LIMIT 1`,
	).Scan(&sc.SyncCommitteeID, &sc.SyncCommitteeHash, &sc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest verified sync committee: %w", err)
	}
	return sc, nil
}
