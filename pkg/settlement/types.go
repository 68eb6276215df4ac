// Copyright 2025 Certen Protocol

package settlement

// EpochProof is the settlement contract's recorded view of one epoch,
// per §6's GetEpochProof.
type EpochProof struct {
	HeaderRoot      string
	StateRoot       string
	NSigners        uint64
	ExecutionHash   string
	ExecutionHeight uint64
}

// CircuitOutputs is the opaque calldata payload produced by the wrapped
// proof, submitted verbatim to the settlement contract's submit_update
// entrypoint. The exact layout is the settlement contract's concern (§1
// Non-goals); the relay treats it as bytes plus the job kind it belongs to.
type CircuitOutputs struct {
	JobKind string
	Payload []byte
}
