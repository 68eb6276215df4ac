// Copyright 2025 Certen Protocol
//
// Package relayerr models the relay's error taxonomy as a closed tagged
// variant, so a caller can switch on Kind without losing the underlying
// cause the way a catch-all wrapper would.

package relayerr

import "fmt"

// Kind enumerates the relay's error taxonomy.
type Kind string

const (
	KindInvalidProof              Kind = "InvalidProof"
	KindBeaconRPCError            Kind = "BeaconRpcError"
	KindDeserializeError          Kind = "DeserializeError"
	KindIOError                   Kind = "IoError"
	KindSettlementError           Kind = "SettlementError"
	KindBlockNotFound              Kind = "BlockNotFound"
	KindFetchSyncCommitteeError    Kind = "FetchSyncCommitteeError"
	KindFailedFetchingBeaconState  Kind = "FailedFetchingBeaconState"
	KindInvalidBLSPoint            Kind = "InvalidBLSPoint"
	KindMissingRPCURL              Kind = "MissingRpcUrl"
	KindEmptySlotDetected          Kind = "EmptySlotDetected"
	KindRequiresNewerEpoch         Kind = "RequiresNewerEpoch"
	KindCairoRunError              Kind = "CairoRunError"
	KindProverError                Kind = "ProverError"
	KindInvalidResponse            Kind = "InvalidResponse"
	KindPollingTimeout             Kind = "PollingTimeout"
	KindInvalidMerkleTree          Kind = "InvalidMerkleTree"
	KindDatabaseError              Kind = "DatabaseError"
)

// Error is the relay's single error type: a closed tagged variant over
// Kind, carrying whatever payload that Kind needs plus an optional
// wrapped cause.
type Error struct {
	Kind Kind

	// Msg carries the free-text payload for DeserializeError, CairoRunError,
	// InvalidResponse, PollingTimeout, and DatabaseError.
	Msg string

	// Slot carries the payload for EmptySlotDetected.
	Slot int64

	// ReportedEpoch carries the payload for RequiresNewerEpoch.
	ReportedEpoch int64

	// Provider/Account carry the payload for SettlementError.
	Provider string
	Account  string

	// Cause, if set, is the underlying error this one wraps.
	Cause error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindEmptySlotDetected:
		return fmt.Sprintf("empty slot detected: %d", e.Slot)
	case KindRequiresNewerEpoch:
		return fmt.Sprintf("requires newer epoch: reported epoch %d", e.ReportedEpoch)
	case KindSettlementError:
		return fmt.Sprintf("settlement error: provider=%s account=%s", e.Provider, e.Account)
	case KindDeserializeError, KindCairoRunError, KindInvalidResponse, KindPollingTimeout, KindDatabaseError:
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	default:
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
		}
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *Error with the same Kind, so callers can
// use errors.Is(err, relayerr.Sentinel(KindEmptySlotDetected)) style checks
// regardless of payload.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel returns a bare *Error of the given Kind, suitable only for use
// with errors.Is — it carries no payload.
func Sentinel(kind Kind) *Error {
	return &Error{Kind: kind}
}

// Wrap builds an *Error of the given Kind wrapping cause.
func Wrap(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

// WrapMsg builds an *Error of the given Kind with a free-text message,
// optionally wrapping cause.
func WrapMsg(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// EmptySlot builds the EmptySlotDetected variant.
func EmptySlot(slot int64) *Error {
	return &Error{Kind: KindEmptySlotDetected, Slot: slot}
}

// RequiresNewerEpoch builds the RequiresNewerEpoch variant.
func RequiresNewerEpoch(reportedEpoch int64) *Error {
	return &Error{Kind: KindRequiresNewerEpoch, ReportedEpoch: reportedEpoch}
}

// SettlementErr builds the SettlementError variant.
func SettlementErr(provider, account string, cause error) *Error {
	return &Error{Kind: KindSettlementError, Provider: provider, Account: account, Cause: cause}
}

// IsRetryable reports whether the error kind is recovered via the
// Dispatcher's RETRY_DELAY_MS/MAX_JOB_RETRIES_COUNT policy rather than
// being a structural, non-retryable failure.
func IsRetryable(err error) bool {
	re, ok := err.(*Error)
	if !ok {
		// Unclassified errors are treated as transient so an unexpected
		// failure mode does not permanently wedge a job; this matches the
		// retry-until-success posture described for crash-stop assumptions.
		return true
	}
	switch re.Kind {
	case KindRequiresNewerEpoch, KindInvalidProof, KindInvalidMerkleTree:
		return false
	default:
		return true
	}
}
