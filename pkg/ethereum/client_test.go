package ethereum

import (
	"errors"
	"math/big"
	"testing"
)

func TestEscalateGasPriceRaisesByTwentyPercentPerAttempt(t *testing.T) {
	base := big.NewInt(100)

	if got := escalateGasPrice(base, 1); got.Cmp(big.NewInt(120)) != 0 {
		t.Errorf("expected 120 at attempt 1, got %s", got)
	}
	if got := escalateGasPrice(base, 2); got.Cmp(big.NewInt(140)) != 0 {
		t.Errorf("expected 140 at attempt 2, got %s", got)
	}
}

func TestIsRetryableSendError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"underpriced", errors.New("replacement transaction underpriced"), true},
		{"stale nonce", errors.New("nonce too low"), true},
		{"already known", errors.New("already known"), true},
		{"unrelated", errors.New("execution reverted"), false},
	}
	for _, c := range cases {
		if got := isRetryableSendError(c.err); got != c.want {
			t.Errorf("%s: expected %v, got %v", c.name, c.want, got)
		}
	}
}
