// Copyright 2025 Certen Protocol

package database

import (
	"context"
	"testing"
)

func TestInsertAndGetVerifiedEpoch(t *testing.T) {
	if testClient == nil {
		t.Skip("test database not configured")
	}
	repo := NewVerifiedRepository(testClient)
	ctx := context.Background()

	input := &NewVerifiedEpoch{
		EpochID:         900002,
		HeaderRoot:      "0xheader",
		StateRoot:       "0xstate",
		NSigners:        384,
		ExecutionHash:   "0xexec",
		ExecutionHeight: 12345,
	}
	if err := repo.InsertVerifiedEpoch(ctx, input); err != nil {
		t.Fatalf("InsertVerifiedEpoch: %v", err)
	}

	got, err := repo.GetVerifiedEpoch(ctx, input.EpochID)
	if err != nil {
		t.Fatalf("GetVerifiedEpoch: %v", err)
	}
	if got.HeaderRoot != input.HeaderRoot || got.NSigners != input.NSigners {
		t.Errorf("unexpected verified epoch: %+v", got)
	}

	// Re-inserting the same epoch is a no-op (ON CONFLICT DO NOTHING).
	if err := repo.InsertVerifiedEpoch(ctx, input); err != nil {
		t.Fatalf("re-insert InsertVerifiedEpoch: %v", err)
	}
}

func TestGetVerifiedEpochUnknownReturnsErrNotFound(t *testing.T) {
	if testClient == nil {
		t.Skip("test database not configured")
	}
	repo := NewVerifiedRepository(testClient)
	_, err := repo.GetVerifiedEpoch(context.Background(), 999999998)
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertAndGetVerifiedSyncCommittee(t *testing.T) {
	if testClient == nil {
		t.Skip("test database not configured")
	}
	repo := NewVerifiedRepository(testClient)
	ctx := context.Background()

	if err := repo.InsertVerifiedSyncCommittee(ctx, 900003, "0xcommitteehash"); err != nil {
		t.Fatalf("InsertVerifiedSyncCommittee: %v", err)
	}

	latest, err := repo.GetLatestVerifiedSyncCommittee(ctx)
	if err != nil {
		t.Fatalf("GetLatestVerifiedSyncCommittee: %v", err)
	}
	if latest == nil {
		t.Fatal("expected a latest sync committee after insert")
	}
}
