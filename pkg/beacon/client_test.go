// Copyright 2025 Certen Protocol

package beacon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/certen/beacon-relay/pkg/relayerr"
)

func TestHTTPClientGetHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/eth/v1/beacon/headers/128" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"header":{"message":{
			"slot":"128","proposer_index":"3",
			"parent_root":"0xaa","state_root":"0xbb","body_root":"0xcc"
		}}}}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL)
	header, err := client.GetHeader(context.Background(), 128)
	if err != nil {
		t.Fatalf("GetHeader: %v", err)
	}
	if header.Slot != 128 || header.ProposerIndex != 3 || header.ParentRoot != "0xaa" {
		t.Errorf("unexpected header: %+v", header)
	}
}

func TestHTTPClientGetHeaderNotFoundIsEmptySlot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL)
	_, err := client.GetHeader(context.Background(), 128)
	rerr, ok := err.(*relayerr.Error)
	if !ok || rerr.Kind != relayerr.KindEmptySlotDetected {
		t.Fatalf("expected EmptySlotDetected, got %v", err)
	}
}

func TestHTTPClientGetSyncCommittee(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"validators":["10","20","30"]}}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL)
	committee, err := client.GetSyncCommittee(context.Background(), 100)
	if err != nil {
		t.Fatalf("GetSyncCommittee: %v", err)
	}
	want := []int64{10, 20, 30}
	if len(committee.ValidatorIndices) != len(want) {
		t.Fatalf("expected %d validators, got %d", len(want), len(committee.ValidatorIndices))
	}
	for i, idx := range want {
		if committee.ValidatorIndices[i] != idx {
			t.Errorf("index %d: expected %d, got %d", i, idx, committee.ValidatorIndices[i])
		}
	}
}

func TestHTTPClientUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL)
	_, err := client.GetSyncAggregate(context.Background(), 100)
	if err == nil {
		t.Fatal("expected error on 500 response")
	}
	rerr, ok := err.(*relayerr.Error)
	if !ok || rerr.Kind != relayerr.KindBeaconRPCError {
		t.Errorf("expected BeaconRpcError, got %v", err)
	}
}
