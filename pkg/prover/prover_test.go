// Copyright 2025 Certen Protocol

package prover

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPClientSubmitGeneration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/proof-generation" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("expected bearer auth header, got %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"batch_id":"batch-1"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "test-key")
	batchID, err := client.SubmitGeneration(context.Background(), []byte("pie-bytes"))
	if err != nil {
		t.Fatalf("SubmitGeneration: %v", err)
	}
	if batchID != "batch-1" {
		t.Errorf("expected batch-1, got %q", batchID)
	}
}

func TestHTTPClientPollStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"DONE"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "test-key")
	status, err := client.PollStatus(context.Background(), "batch-1")
	if err != nil {
		t.Fatalf("PollStatus: %v", err)
	}
	if status != BatchStatusDone {
		t.Errorf("expected DONE, got %s", status)
	}
}

func TestWaitUntilTerminalReturnsImmediatelyOnDone(t *testing.T) {
	client := &MockClient{}
	status, err := WaitUntilTerminal(context.Background(), client, "batch-1")
	if err != nil {
		t.Fatalf("WaitUntilTerminal: %v", err)
	}
	if status != BatchStatusDone {
		t.Errorf("expected DONE, got %s", status)
	}
}

func TestWaitUntilTerminalPropagatesPollError(t *testing.T) {
	client := &MockClient{Err: errors.New("prover unreachable")}
	_, err := WaitUntilTerminal(context.Background(), client, "batch-1")
	if err == nil {
		t.Fatal("expected error to propagate from PollStatus")
	}
}
