// Copyright 2025 Certen Protocol
//
// HandleGetMerklePathsForEpoch and HandleReadyz touch a live
// MerkleRepository/JobRepository and are left to an integration environment; the handlers built on the
// beacon.Client and settlement.Client interfaces are exercised here with
// mocks, the way the dispatcher and broadcast packages split their tests.

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/certen/beacon-relay/pkg/beacon"
	"github.com/certen/beacon-relay/pkg/settlement"
)

func TestHandleStatusReturnsSuccess(t *testing.T) {
	h := NewRelayHandlers(nil, beacon.NewMockClient(), &settlement.MockClient{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	h.HandleStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]bool
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body["success"] {
		t.Error("expected success: true")
	}
}

func TestHandleStatusRejectsNonGet(t *testing.T) {
	h := NewRelayHandlers(nil, beacon.NewMockClient(), &settlement.MockClient{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/status", nil)
	rec := httptest.NewRecorder()
	h.HandleStatus(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestHandleHealthz(t *testing.T) {
	h := NewRelayHandlers(nil, beacon.NewMockClient(), &settlement.MockClient{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.HandleHealthz(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHandleDebugGetLatestVerifiedSlot(t *testing.T) {
	mock := &settlement.MockClient{LatestEpochSlot: 12345}
	h := NewRelayHandlers(nil, beacon.NewMockClient(), mock, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/debug/get-latest-verified-slot", nil)
	rec := httptest.NewRecorder()
	h.HandleDebugGetLatestVerifiedSlot(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]int64
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["latest_verified_slot"] != 12345 {
		t.Errorf("expected slot 12345, got %d", body["latest_verified_slot"])
	}
}

func TestHandleDebugGetLatestVerifiedSlotPropagatesSettlementError(t *testing.T) {
	mock := &settlement.MockClient{Err: errBoom{}}
	h := NewRelayHandlers(nil, beacon.NewMockClient(), mock, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/debug/get-latest-verified-slot", nil)
	rec := httptest.NewRecorder()
	h.HandleDebugGetLatestVerifiedSlot(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestHandleDebugGetEpochUpdate(t *testing.T) {
	beaconMock := beacon.NewMockClient()
	beaconMock.Headers[100] = &beacon.Header{Slot: 100, StateRoot: "0xstate", BodyRoot: "0xbody"}
	beaconMock.Aggregates[100] = &beacon.SyncAggregate{SyncCommitteeBits: "0xff", SyncCommitteeSignature: "0xsig"}

	h := NewRelayHandlers(nil, beaconMock, &settlement.MockClient{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/debug/get-epoch-update/100", nil)
	rec := httptest.NewRecorder()
	h.HandleDebugGetEpochUpdate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleDebugGetEpochUpdateInvalidSlot(t *testing.T) {
	h := NewRelayHandlers(nil, beacon.NewMockClient(), &settlement.MockClient{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/debug/get-epoch-update/not-a-slot", nil)
	rec := httptest.NewRecorder()
	h.HandleDebugGetEpochUpdate(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestParseTrailingInt64(t *testing.T) {
	got, err := parseTrailingInt64("/get_merkle_paths_for_epoch/42", "/get_merkle_paths_for_epoch/")
	if err != nil {
		t.Fatalf("parseTrailingInt64: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}

func TestParseTrailingInt64Invalid(t *testing.T) {
	if _, err := parseTrailingInt64("/get_merkle_paths_for_epoch/abc", "/get_merkle_paths_for_epoch/"); err == nil {
		t.Fatal("expected an error for a non-numeric trailing segment")
	}
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
