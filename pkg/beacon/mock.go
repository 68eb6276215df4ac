// Copyright 2025 Certen Protocol

package beacon

import (
	"context"

	"github.com/certen/beacon-relay/pkg/relayerr"
)

// MockClient is a test double satisfying Client, driven entirely by its
// exported fields — set Headers/Aggregates/Committees/Validators/Err before
// exercising the code under test. A slot with no entry in Headers is
// reported as EmptySlotDetected, as HTTPClient reports a 404.
type MockClient struct {
	Headers    map[int64]*Header
	Aggregates map[int64]*SyncAggregate
	Committees map[int64]*SyncCommittee
	Validators []Validator
	Err        error
}

// NewMockClient returns an empty MockClient ready for population.
func NewMockClient() *MockClient {
	return &MockClient{
		Headers:    make(map[int64]*Header),
		Aggregates: make(map[int64]*SyncAggregate),
		Committees: make(map[int64]*SyncCommittee),
	}
}

func (m *MockClient) GetHeader(ctx context.Context, slot int64) (*Header, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	h, ok := m.Headers[slot]
	if !ok {
		return nil, relayerr.EmptySlot(slot)
	}
	return h, nil
}

func (m *MockClient) GetSyncAggregate(ctx context.Context, slot int64) (*SyncAggregate, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	a, ok := m.Aggregates[slot]
	if !ok {
		return nil, ErrSlotNotStubbed
	}
	return a, nil
}

func (m *MockClient) GetSyncCommittee(ctx context.Context, slot int64) (*SyncCommittee, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	sc, ok := m.Committees[slot]
	if !ok {
		return nil, ErrSlotNotStubbed
	}
	return sc, nil
}

func (m *MockClient) GetValidators(ctx context.Context, indices []int64) ([]Validator, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Validators, nil
}
