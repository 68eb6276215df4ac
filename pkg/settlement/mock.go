// Copyright 2025 Certen Protocol

package settlement

import "context"

// MockClient is a test double satisfying Client.
type MockClient struct {
	LatestEpochSlot     int64
	LatestCommitteeID   int64
	SubmittedTxHash     string
	EpochProofs         map[int64]*EpochProof
	Err                 error
}

func (m *MockClient) GetLatestEpochSlot(ctx context.Context) (int64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	return m.LatestEpochSlot, nil
}

func (m *MockClient) GetLatestCommitteeID(ctx context.Context) (int64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	return m.LatestCommitteeID, nil
}

func (m *MockClient) SubmitUpdate(ctx context.Context, outputs CircuitOutputs) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.SubmittedTxHash, nil
}

func (m *MockClient) GetEpochProof(ctx context.Context, slot int64) (*EpochProof, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.EpochProofs == nil {
		return nil, nil
	}
	return m.EpochProofs[slot], nil
}
