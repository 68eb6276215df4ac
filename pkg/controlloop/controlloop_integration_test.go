// Copyright 2025 Certen Protocol

package controlloop

import (
	"context"
	"os"
	"testing"

	"github.com/certen/beacon-relay/pkg/beacon"
	"github.com/certen/beacon-relay/pkg/config"
	"github.com/certen/beacon-relay/pkg/database"
	"github.com/certen/beacon-relay/pkg/settlement"
)

func newTestJobRepository(t *testing.T) *database.JobRepository {
	t.Helper()
	connStr := os.Getenv("RELAY_TEST_DATABASE_URL")
	if connStr == "" {
		t.Skip("test database not configured")
	}

	cfg := &config.Config{
		DatabaseURL:         connStr,
		DatabaseMaxConns:    5,
		DatabaseMinConns:    1,
		DatabaseMaxIdleTime: 300,
		DatabaseMaxLifetime: 3600,
	}
	client, err := database.NewClient(cfg)
	if err != nil {
		t.Fatalf("connect test database: %v", err)
	}
	if err := client.MigrateUp(context.Background()); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return database.NewJobRepository(client)
}

func TestTickEnqueuesSyncCommitteeUpdateAtRotationBoundary(t *testing.T) {
	jobs := newTestJobRepository(t)
	settlementClient := &settlement.MockClient{LatestEpochSlot: 0}

	var enqueued []*database.NewJob
	enqueue := func(ctx context.Context, job *database.NewJob) error {
		enqueued = append(enqueued, job)
		return nil
	}

	loop := New(jobs, settlementClient, enqueue)
	event := beacon.HeadEvent{Slot: SlotsPerSyncCommittee, EpochTransition: false}

	if err := loop.Tick(context.Background(), event); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	found := false
	for _, job := range enqueued {
		if job.JobType == database.JobTypeSyncCommitteeUpdate && job.Slot == SlotsPerSyncCommittee {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a sync committee update job at the rotation boundary, got %+v", enqueued)
	}
}

func TestTickDoesNotEnqueueBatchBelowTargetSize(t *testing.T) {
	jobs := newTestJobRepository(t)
	settlementClient := &settlement.MockClient{LatestEpochSlot: 0}

	var enqueued []*database.NewJob
	enqueue := func(ctx context.Context, job *database.NewJob) error {
		enqueued = append(enqueued, job)
		return nil
	}

	loop := New(jobs, settlementClient, enqueue)
	// Slot 31 is epoch 0 with no epoch transition: nothing behind the
	// target batch size and no transition, so no batch should enqueue.
	event := beacon.HeadEvent{Slot: 31, EpochTransition: false}

	if err := loop.Tick(context.Background(), event); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	for _, job := range enqueued {
		if job.JobType == database.JobTypeEpochBatchUpdate {
			t.Errorf("did not expect a batch job this early, got %+v", job)
		}
	}
}
