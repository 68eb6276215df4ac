// Copyright 2025 Certen Protocol

package prover

import "context"

// MockClient is a test double satisfying Client with immediate completion.
type MockClient struct {
	GenerationBatchID string
	WrappingBatchID   string
	Proof             []byte
	Err               error
}

func (m *MockClient) SubmitGeneration(ctx context.Context, pieData []byte) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.GenerationBatchID, nil
}

func (m *MockClient) SubmitWrapping(ctx context.Context, rawProof []byte) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.WrappingBatchID, nil
}

func (m *MockClient) PollStatus(ctx context.Context, batchID string) (BatchStatus, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return BatchStatusDone, nil
}

func (m *MockClient) FetchProof(ctx context.Context, batchID string) ([]byte, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Proof, nil
}
