// Copyright 2025 Certen Protocol

package relayerr

import (
	"errors"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	cases := []struct {
		name string
		err  *Error
		want string
	}{
		{"empty slot", EmptySlot(128), "empty slot detected: 128"},
		{"requires newer epoch", RequiresNewerEpoch(42), "requires newer epoch: reported epoch 42"},
		{"settlement error", SettlementErr("starknet", "0xabc", nil), "settlement error: provider=starknet account=0xabc"},
		{"wrap msg no cause", WrapMsg(KindCairoRunError, "trace failed", nil), "CairoRunError: trace failed"},
		{"wrap msg with cause", WrapMsg(KindCairoRunError, "trace failed", errors.New("exit 1")), "CairoRunError: trace failed: exit 1"},
		{"bare kind", Sentinel(KindBlockNotFound), "BlockNotFound"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.err.Error(); got != tc.want {
				t.Errorf("Error() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestErrorIsMatchesByKind(t *testing.T) {
	a := EmptySlot(1)
	b := EmptySlot(2)
	if !errors.Is(a, b) {
		t.Error("expected two EmptySlotDetected errors to match via errors.Is regardless of payload")
	}

	c := Sentinel(KindBlockNotFound)
	if errors.Is(a, c) {
		t.Error("expected errors of different Kind not to match")
	}
}

func TestUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("boom")
	wrapped := Wrap(KindIOError, cause)
	if !errors.Is(wrapped, cause) {
		t.Error("expected errors.Is to see through to the wrapped cause")
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"requires newer epoch is not retryable", RequiresNewerEpoch(5), false},
		{"invalid proof is not retryable", Sentinel(KindInvalidProof), false},
		{"invalid merkle tree is not retryable", Sentinel(KindInvalidMerkleTree), false},
		{"beacon rpc error is retryable", Sentinel(KindBeaconRPCError), true},
		{"unclassified error is retryable", errors.New("unexpected"), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRetryable(tc.err); got != tc.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tc.want)
			}
		})
	}
}
