// Copyright 2025 Certen Protocol

package tracerunner

import "context"

// MockRunner is a test double satisfying Runner.
type MockRunner struct {
	Err error
}

func (m *MockRunner) Run(ctx context.Context, jobID string, input interface{}) (*PIE, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return &PIE{Path: "/tmp/" + jobID + ".pie", Size: 1}, nil
}
