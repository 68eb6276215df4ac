// Copyright 2025 Certen Protocol
//
// Pure-logic unit tests for the dispatcher's helpers. Exercising Submit/run
// end-to-end needs a live JobRepository and is left to an integration
// environment, gated the same way the repository-backed tests are.

package dispatcher

import (
	"errors"
	"testing"

	"github.com/certen/beacon-relay/pkg/beacon"
	"github.com/certen/beacon-relay/pkg/relayerr"
)

func TestKindOfRelayerrError(t *testing.T) {
	err := relayerr.Sentinel(relayerr.KindProverError)
	if got := kindOf(err); got != string(relayerr.KindProverError) {
		t.Errorf("expected %q, got %q", relayerr.KindProverError, got)
	}
}

func TestKindOfUnclassifiedError(t *testing.T) {
	if got := kindOf(errors.New("boom")); got != "unknown" {
		t.Errorf("expected \"unknown\", got %q", got)
	}
}

func TestAssembledInputPrefersBatchOverCommitteeOverEpoch(t *testing.T) {
	epoch := &beacon.EpochInputs{Slot: 1}
	committee := &beacon.CommitteeInputs{Slot: 2}
	batch := &beacon.BatchInputs{BeginEpoch: 3}

	onlyEpoch := &jobWork{epoch: epoch}
	if got := onlyEpoch.assembledInput(); got != epoch {
		t.Errorf("expected epoch input when only epoch is set")
	}

	withCommittee := &jobWork{epoch: epoch, committee: committee}
	if got := withCommittee.assembledInput(); got != committee {
		t.Errorf("expected committee input to take precedence over epoch")
	}

	withBatch := &jobWork{epoch: epoch, committee: committee, batch: batch}
	if got := withBatch.assembledInput(); got != batch {
		t.Errorf("expected batch input to take precedence over committee and epoch")
	}
}
