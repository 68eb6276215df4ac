// Copyright 2025 Certen Protocol
//
// Merkle Repository - per-epoch sibling-hash paths into a batch's Merkle
// tree, handed out by the Query API so a caller can independently verify
// an epoch's inclusion in a settled batch root.

package database

import (
	"context"
	"fmt"
)

// MerkleRepository handles persistence of per-epoch Merkle inclusion paths.
type MerkleRepository struct {
	client *Client
}

// NewMerkleRepository creates a new Merkle-path repository.
func NewMerkleRepository(client *Client) *MerkleRepository {
	return &MerkleRepository{client: client}
}

// InsertMerklePathForEpoch records one sibling hash at pathIndex for epochID.
// Call once per sibling hash in the proof, in the leaf-to-root order
// produced by pkg/merkle.Tree.GenerateProof — path_index preserves that
// order for GetMerklePathsForEpoch to reconstruct it.
func (r *MerkleRepository) InsertMerklePathForEpoch(ctx context.Context, epochID int64, pathIndex int, merklePath string) error {
	_, err := r.client.ExecContext(ctx, `
		INSERT INTO epoch_merkle_paths (epoch_id, path_index, merkle_path)
		VALUES ($1, $2, $3)
		ON CONFLICT (epoch_id, path_index) DO UPDATE SET merkle_path = EXCLUDED.merkle_path`,
		epochID, pathIndex, merklePath,
	)
	if err != nil {
		return fmt.Errorf("failed to insert merkle path for epoch %d: %w", epochID, err)
	}
	return nil
}

// GetMerklePathsForEpoch returns every recorded sibling hash for epochID,
// ordered by path_index ascending (leaf-to-root).
func (r *MerkleRepository) GetMerklePathsForEpoch(ctx context.Context, epochID int64) ([]string, error) {
	rows, err := r.client.QueryContext(ctx, `
		SELECT merkle_path FROM epoch_merkle_paths
		WHERE epoch_id = $1
		ORDER BY path_index ASC`, epochID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query merkle paths for epoch %d: %w", epochID, err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan merkle path: %w", err)
		}
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, ErrNoMerklePaths
	}
	return paths, nil
}
