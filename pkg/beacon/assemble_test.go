// Copyright 2025 Certen Protocol

package beacon

import (
	"context"
	"testing"

	"github.com/certen/beacon-relay/pkg/relayerr"
)

func mockHeader(slot int64) *Header {
	return &Header{
		Slot:          slot,
		ParentRoot:    "0xparent",
		StateRoot:     "0xstate",
		BodyRoot:      "0xbody",
		ProposerIndex: 7,
	}
}

func TestAssembleEpochInputsAdvancesPastEmptySlots(t *testing.T) {
	client := NewMockClient()
	// Slot 96 is empty; slot 97 has a header.
	client.Headers[97] = mockHeader(97)
	client.Aggregates[97] = &SyncAggregate{SyncCommitteeBits: "0xff"}

	inputs, err := AssembleEpochInputs(context.Background(), client, 96, 5)
	if err != nil {
		t.Fatalf("AssembleEpochInputs: %v", err)
	}
	if inputs.Slot != 97 {
		t.Errorf("expected advance to slot 97, got %d", inputs.Slot)
	}
}

func TestAssembleEpochInputsExhaustsAttempts(t *testing.T) {
	client := NewMockClient()
	_, err := AssembleEpochInputs(context.Background(), client, 100, 2)
	if err == nil {
		t.Fatal("expected error when no slot in range is stubbed")
	}
	rerr, ok := err.(*relayerr.Error)
	if !ok || rerr.Kind != relayerr.KindEmptySlotDetected {
		t.Errorf("expected EmptySlotDetected, got %v", err)
	}
}

func TestAssembleBatchInputsCollectsLeafPerEpoch(t *testing.T) {
	client := NewMockClient()
	const slotsPerEpoch = 32
	for epoch := int64(10); epoch <= 12; epoch++ {
		slot := epoch * slotsPerEpoch
		client.Headers[slot] = mockHeader(slot)
		client.Aggregates[slot] = &SyncAggregate{SyncCommitteeBits: "0xff"}
	}

	batch, err := AssembleBatchInputs(context.Background(), client, 10, 12, slotsPerEpoch, 5)
	if err != nil {
		t.Fatalf("AssembleBatchInputs: %v", err)
	}
	if len(batch.Epochs) != 3 {
		t.Errorf("expected 3 epochs, got %d", len(batch.Epochs))
	}
	if len(batch.LeafRoots) != 3 {
		t.Errorf("expected 3 leaf roots, got %d", len(batch.LeafRoots))
	}
}

func TestHeaderRootIsDeterministic(t *testing.T) {
	h := mockHeader(5)
	a := h.Root()
	b := h.Root()
	if string(a) != string(b) {
		t.Error("expected Header.Root() to be deterministic for identical fields")
	}

	other := mockHeader(6)
	if string(a) == string(other.Root()) {
		t.Error("expected different slots to produce different roots")
	}
}
