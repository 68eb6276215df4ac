// Copyright 2025 Certen Protocol
//
// Package database provides sentinel errors for repository operations.
// Lookups of a single entity report a miss with a sentinel error; the
// "latest verified" queries return nil, nil when nothing has been settled.

package database

import "errors"

// Sentinel errors for database operations
var (
	// ErrNotFound is returned when a requested entity is not found
	ErrNotFound = errors.New("entity not found")

	// ErrJobNotFound is returned when a job is not found
	ErrJobNotFound = errors.New("job not found")

	// ErrJobExists is returned by CreateJob when job_id already exists
	ErrJobExists = errors.New("job already exists")

	// ErrNoMerklePaths is returned when an epoch has no recorded merkle paths
	ErrNoMerklePaths = errors.New("no merkle paths recorded for epoch")
)
