// Copyright 2025 Certen Protocol

package database

import (
	"context"
	"testing"
)

func TestInsertAndGetMerklePathsForEpoch(t *testing.T) {
	if testClient == nil {
		t.Skip("test database not configured")
	}
	repo := NewMerkleRepository(testClient)
	ctx := context.Background()

	// epoch_merkle_paths has no FK on epoch_id in practice (purely
	// numeric), so an arbitrary fresh id keeps this test independent.
	epochID := int64(900001)
	paths := []string{"0xaa", "0xbb", "0xcc"}
	for i, p := range paths {
		if err := repo.InsertMerklePathForEpoch(ctx, epochID, i, p); err != nil {
			t.Fatalf("InsertMerklePathForEpoch(%d): %v", i, err)
		}
	}

	got, err := repo.GetMerklePathsForEpoch(ctx, epochID)
	if err != nil {
		t.Fatalf("GetMerklePathsForEpoch: %v", err)
	}
	if len(got) != len(paths) {
		t.Fatalf("expected %d paths, got %d", len(paths), len(got))
	}
	for i, p := range paths {
		if got[i] != p {
			t.Errorf("path %d: expected %q, got %q", i, p, got[i])
		}
	}
}

func TestGetMerklePathsForUnknownEpochReturnsErrNoMerklePaths(t *testing.T) {
	if testClient == nil {
		t.Skip("test database not configured")
	}
	repo := NewMerkleRepository(testClient)
	_, err := repo.GetMerklePathsForEpoch(context.Background(), 999999999)
	if err != ErrNoMerklePaths {
		t.Errorf("expected ErrNoMerklePaths, got %v", err)
	}
}
