// Copyright 2025 Certen Protocol

package commitment

import "testing"

func TestCanonicalizeJSONSortsKeys(t *testing.T) {
	a, err := CanonicalizeJSON([]byte(`{"b":1,"a":2}`))
	if err != nil {
		t.Fatalf("CanonicalizeJSON: %v", err)
	}
	b, err := CanonicalizeJSON([]byte(`{"a":2,"b":1}`))
	if err != nil {
		t.Fatalf("CanonicalizeJSON: %v", err)
	}
	if string(a) != string(b) {
		t.Errorf("expected key-order-independent output, got %q vs %q", a, b)
	}
}

func TestCanonicalizeJSONPreservesArrayOrder(t *testing.T) {
	out, err := CanonicalizeJSON([]byte(`[3,1,2]`))
	if err != nil {
		t.Fatalf("CanonicalizeJSON: %v", err)
	}
	if string(out) != "[3,1,2]" {
		t.Errorf("expected array order preserved, got %q", out)
	}
}

func TestHashCanonicalIsFieldOrderIndependent(t *testing.T) {
	type pair struct {
		A int `json:"a"`
		B int `json:"b"`
	}
	type swapped struct {
		B int `json:"b"`
		A int `json:"a"`
	}

	h1, err := HashCanonical(pair{A: 1, B: 2})
	if err != nil {
		t.Fatalf("HashCanonical: %v", err)
	}
	h2, err := HashCanonical(swapped{B: 2, A: 1})
	if err != nil {
		t.Fatalf("HashCanonical: %v", err)
	}
	if h1 != h2 {
		t.Errorf("expected identical hash for field-for-field equal values, got %q vs %q", h1, h2)
	}
}

func TestHashCanonicalDiffersOnDifferentValues(t *testing.T) {
	h1, err := HashCanonical(map[string]int{"a": 1})
	if err != nil {
		t.Fatalf("HashCanonical: %v", err)
	}
	h2, err := HashCanonical(map[string]int{"a": 2})
	if err != nil {
		t.Fatalf("HashCanonical: %v", err)
	}
	if h1 == h2 {
		t.Error("expected different values to hash differently")
	}
}

func TestHashBytesIsHexPrefixed(t *testing.T) {
	h := HashBytes([]byte("hello"))
	if len(h) != 2+64 {
		t.Errorf("expected 0x-prefixed 32-byte hex digest, got %q (len %d)", h, len(h))
	}
	if h[:2] != "0x" {
		t.Errorf("expected 0x prefix, got %q", h)
	}
}
