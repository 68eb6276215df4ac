// Copyright 2025 Certen Protocol
//
// Package beacon models the narrow slice of the source chain's REST API
// this relay consumes: headers, sync aggregates, committee membership, and
// the head event stream.

package beacon

// Header is the decoded response of GET /eth/v1/beacon/headers/{slot}.
type Header struct {
	Slot          int64
	ParentRoot    string
	StateRoot     string
	BodyRoot      string
	ProposerIndex int64
}

// SyncAggregate is the `sync_aggregate` field of a block body, carried in
// block N+1's body for slot N, per the Beacon Source's convention.
type SyncAggregate struct {
	SyncCommitteeBits      string
	SyncCommitteeSignature string
}

// SyncCommittee is the validator membership of a committee, as reported at
// states/{slot}/sync_committees.
type SyncCommittee struct {
	ValidatorIndices []int64
}

// Validator carries the index/pubkey pair from states/head/validators.
type Validator struct {
	Index  int64
	Pubkey string
}

// HeadEvent is one parsed SSE frame from GET /eth/v1/events?topics=head.
type HeadEvent struct {
	Slot            int64
	Block           string
	EpochTransition bool
}

// Epoch returns the epoch containing this event's slot.
func (h HeadEvent) Epoch(slotsPerEpoch int64) int64 {
	return h.Slot / slotsPerEpoch
}

// EpochInputs is the materialized per-epoch proof input assembled from a
// Header plus its sync aggregate, sufficient to prove one epoch.
type EpochInputs struct {
	Slot          int64
	HeaderRoot    string
	StateRoot     string
	SyncAggregate SyncAggregate
}

// CommitteeInputs is the materialized sync-committee proof input.
type CommitteeInputs struct {
	Slot             int64
	CommitteeHash    string
	ValidatorIndices []int64
	Validators       []Validator
}

// BatchInputs is the materialized batch proof input: one EpochInputs per
// epoch in the range, plus one Merkle leaf per epoch derived from its header
// root. AssembleBatchInputs does not build the tree; callers build it over
// LeafRoots and persist its per-epoch paths.
type BatchInputs struct {
	BeginEpoch int64
	EndEpoch   int64
	Epochs     []EpochInputs
	LeafRoots  [][]byte
}

// Root returns a deterministic 32-byte commitment for a Header, computed by
// hashing its canonical fields — the pack carries no SSZ hash_tree_root
// implementation, so this stands in as the header's identity for Merkle
// leaves and VerifiedEpoch.header_root.
func (h Header) Root() []byte {
	return hashHeaderFields(h.Slot, h.ParentRoot, h.StateRoot, h.BodyRoot, h.ProposerIndex)
}
