// Copyright 2025 Certen Protocol
//
// drainOnce/submit touch a live JobRepository and are exercised in an
// integration environment; settlementOutputsFor is pure and tested here.

package broadcast

import (
	"database/sql"
	"testing"

	"github.com/certen/beacon-relay/pkg/database"
)

func TestSettlementOutputsForCarriesJobIdentity(t *testing.T) {
	jobID := database.NewUUID()
	job := &database.Job{
		JobID:   jobID,
		JobType: database.JobTypeEpochBatchUpdate,
	}

	outputs := settlementOutputsFor(job)
	if outputs.JobKind != string(database.JobTypeEpochBatchUpdate) {
		t.Errorf("expected job kind %q, got %q", database.JobTypeEpochBatchUpdate, outputs.JobKind)
	}
	if string(outputs.Payload) != jobID.String() {
		t.Errorf("expected payload to carry the job id, got %q", outputs.Payload)
	}
}

func TestSettlementOutputsForSyncCommittee(t *testing.T) {
	job := &database.Job{
		JobID:   database.NewUUID(),
		JobType: database.JobTypeSyncCommitteeUpdate,
		TxHash:  sql.NullString{},
	}
	outputs := settlementOutputsFor(job)
	if outputs.JobKind != string(database.JobTypeSyncCommitteeUpdate) {
		t.Errorf("expected job kind %q, got %q", database.JobTypeSyncCommitteeUpdate, outputs.JobKind)
	}
}
