// Copyright 2025 Certen Protocol
//
// Integration tests for JobRepository. Requires a live Postgres instance
// with migrations applied; skipped when RELAY_TEST_DATABASE_URL is unset.

package database

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/certen/beacon-relay/pkg/config"
)

var testClient *Client

func TestMain(m *testing.M) {
	connStr := os.Getenv("RELAY_TEST_DATABASE_URL")
	if connStr == "" {
		os.Exit(0)
	}

	cfg := &config.Config{
		DatabaseURL:         connStr,
		DatabaseMaxConns:    5,
		DatabaseMinConns:    1,
		DatabaseMaxIdleTime: 300,
		DatabaseMaxLifetime: 3600,
	}

	var err error
	testClient, err = NewClient(cfg)
	if err != nil {
		panic("failed to connect to test database: " + err.Error())
	}
	if err := testClient.MigrateUp(context.Background()); err != nil {
		panic("failed to run migrations: " + err.Error())
	}

	code := m.Run()
	testClient.Close()
	os.Exit(code)
}

func TestCreateAndGetJob(t *testing.T) {
	if testClient == nil {
		t.Skip("test database not configured")
	}
	repo := NewJobRepository(testClient)
	ctx := context.Background()

	jobID := NewUUID()
	created, err := repo.CreateJob(ctx, &NewJob{
		JobID:   jobID,
		JobType: JobTypeSyncCommitteeUpdate,
		Slot:    8192,
	})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if created.JobStatus != StatusCreated {
		t.Errorf("expected new job status CREATED, got %s", created.JobStatus)
	}

	fetched, err := repo.GetJob(ctx, jobID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if fetched.Slot != 8192 {
		t.Errorf("expected slot 8192, got %d", fetched.Slot)
	}
}

func TestCreateJobConflictReturnsErrJobExists(t *testing.T) {
	if testClient == nil {
		t.Skip("test database not configured")
	}
	repo := NewJobRepository(testClient)
	ctx := context.Background()

	jobID := NewUUID()
	newJob := &NewJob{JobID: jobID, JobType: JobTypeSyncCommitteeUpdate, Slot: 16384}
	if _, err := repo.CreateJob(ctx, newJob); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if _, err := repo.CreateJob(ctx, newJob); !errors.Is(err, ErrJobExists) {
		t.Errorf("expected ErrJobExists on duplicate create, got %v", err)
	}
}

func TestUpdateJobStatusUnknownJobReturnsNotFound(t *testing.T) {
	if testClient == nil {
		t.Skip("test database not configured")
	}
	repo := NewJobRepository(testClient)
	if err := repo.UpdateJobStatus(context.Background(), NewUUID(), StatusDone); err != ErrJobNotFound {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}
