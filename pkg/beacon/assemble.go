// Copyright 2025 Certen Protocol
//
// Proof input assembly per §4.5: turns BeaconClient reads into the
// materialized inputs the Trace Runner consumes, with the empty-slot
// advancement behavior described in §4.4/§8.

package beacon

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/certen/beacon-relay/pkg/commitment"
	"github.com/certen/beacon-relay/pkg/relayerr"
)

// hashHeaderFields stands in for a real SSZ hash_tree_root: no SSZ library
// is available, so header identity is the canonical-JSON hash of its
// fields instead. Deterministic and collision-resistant for our purposes,
// but not beacon-chain-spec-compatible.
func hashHeaderFields(slot int64, parentRoot, stateRoot, bodyRoot string, proposerIndex int64) []byte {
	digest, err := commitment.HashCanonical(struct {
		Slot          int64  `json:"slot"`
		ParentRoot    string `json:"parent_root"`
		StateRoot     string `json:"state_root"`
		BodyRoot      string `json:"body_root"`
		ProposerIndex int64  `json:"proposer_index"`
	}{slot, parentRoot, stateRoot, bodyRoot, proposerIndex})
	if err != nil {
		// commitment.HashCanonical only fails on non-JSON-marshalable
		// input, which a struct of strings and ints never is.
		panic(err)
	}
	raw, _ := hex.DecodeString(digest[2:])
	return raw
}

// AssembleEpochInputs fetches the header and sync aggregate for slot,
// advancing slot by 1 on EmptySlotDetected up to maxAttempts times.
func AssembleEpochInputs(ctx context.Context, client Client, slot int64, maxAttempts int) (*EpochInputs, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		header, err := client.GetHeader(ctx, slot)
		if err != nil {
			if rerr, ok := err.(*relayerr.Error); ok && rerr.Kind == relayerr.KindEmptySlotDetected {
				slot++
				continue
			}
			return nil, err
		}

		agg, err := client.GetSyncAggregate(ctx, slot)
		if err != nil {
			return nil, err
		}

		return &EpochInputs{
			Slot:          slot,
			HeaderRoot:    fmt.Sprintf("0x%x", header.Root()),
			StateRoot:     header.StateRoot,
			SyncAggregate: *agg,
		}, nil
	}
	return nil, relayerr.EmptySlot(slot)
}

// AssembleCommitteeInputs validates slot is non-empty (advancing on
// EmptySlotDetected up to maxAttempts, per §4.5's MAX_ATTEMPTS=3), then
// fetches the new committee's membership and validator pubkeys.
func AssembleCommitteeInputs(ctx context.Context, client Client, slot int64, maxAttempts int) (*CommitteeInputs, error) {
	var epoch *EpochInputs
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		epoch, err = AssembleEpochInputs(ctx, client, slot, 1)
		if err == nil {
			break
		}
		if rerr, ok := err.(*relayerr.Error); ok && rerr.Kind == relayerr.KindEmptySlotDetected {
			slot++
			continue
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	committee, err := client.GetSyncCommittee(ctx, epoch.Slot)
	if err != nil {
		return nil, err
	}

	validators, err := client.GetValidators(ctx, committee.ValidatorIndices)
	if err != nil {
		return nil, err
	}

	committeeHash := sha256.Sum256([]byte(fmt.Sprintf("%v", committee.ValidatorIndices)))
	return &CommitteeInputs{
		Slot:             epoch.Slot,
		CommitteeHash:    fmt.Sprintf("0x%x", committeeHash),
		ValidatorIndices: committee.ValidatorIndices,
		Validators:       validators,
	}, nil
}

// AssembleBatchInputs assembles EpochInputs for every epoch in
// [beginEpoch, endEpoch] inclusive, advancing past empty slots with
// maxSkipAttempts per epoch (per §4.4's MAX_SKIPPED_SLOTS_RETRY_ATTEMPTS=5),
// and collects the SHA-256 of each epoch's hex header root as a Merkle leaf
// in batch order.
func AssembleBatchInputs(ctx context.Context, client Client, beginEpoch, endEpoch, slotsPerEpoch int64, maxSkipAttempts int) (*BatchInputs, error) {
	batch := &BatchInputs{BeginEpoch: beginEpoch, EndEpoch: endEpoch}

	for epoch := beginEpoch; epoch <= endEpoch; epoch++ {
		slot := epoch * slotsPerEpoch
		inputs, err := AssembleEpochInputs(ctx, client, slot, maxSkipAttempts)
		if err != nil {
			return nil, fmt.Errorf("assemble batch inputs: epoch %d: %w", epoch, err)
		}
		batch.Epochs = append(batch.Epochs, *inputs)

		leaf := sha256.Sum256([]byte(inputs.HeaderRoot))
		batch.LeafRoots = append(batch.LeafRoots, leaf[:])
	}

	return batch, nil
}
