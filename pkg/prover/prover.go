// Copyright 2025 Certen Protocol
//
// Package prover is the ProverClient interface over the external proving
// service's HTTP API: submit a PIE for generation, submit a raw proof for
// wrapping, poll each batch to completion, fetch the resulting artifact.

package prover

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/certen/beacon-relay/pkg/relayerr"
)

// PollInterval is the fixed cadence for polling a submitted batch's status,
// per §6: "Poll interval 10 s, unbounded retries."
const PollInterval = 10 * time.Second

// BatchStatus is the terminal/non-terminal state of a submitted batch.
type BatchStatus string

const (
	BatchStatusPending BatchStatus = "PENDING"
	BatchStatusRunning BatchStatus = "RUNNING"
	BatchStatusDone    BatchStatus = "DONE"
	BatchStatusFailed  BatchStatus = "FAILED"
)

// Client is the interface the Dispatcher depends on.
type Client interface {
	SubmitGeneration(ctx context.Context, pieData []byte) (batchID string, err error)
	SubmitWrapping(ctx context.Context, rawProof []byte) (batchID string, err error)
	PollStatus(ctx context.Context, batchID string) (BatchStatus, error)
	FetchProof(ctx context.Context, batchID string) ([]byte, error)
}

// HTTPClient is the production Client backed by the Prover's REST API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewHTTPClient constructs a Client against baseURL (e.g. ATLANTIC_API_URL)
// authenticated with apiKey (ATLANTIC_API_KEY).
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *HTTPClient) SubmitGeneration(ctx context.Context, pieData []byte) (string, error) {
	return c.submitBatch(ctx, "/v1/proof-generation", pieData)
}

func (c *HTTPClient) SubmitWrapping(ctx context.Context, rawProof []byte) (string, error) {
	return c.submitBatch(ctx, "/v1/proof-wrapping", rawProof)
}

func (c *HTTPClient) submitBatch(ctx context.Context, path string, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return "", relayerr.Wrap(relayerr.KindIOError, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", relayerr.Wrap(relayerr.KindProverError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", relayerr.WrapMsg(relayerr.KindProverError, fmt.Sprintf("submit to %s: status %d", path, resp.StatusCode), nil)
	}

	var body struct {
		BatchID string `json:"batch_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", relayerr.WrapMsg(relayerr.KindDeserializeError, path, err)
	}
	return body.BatchID, nil
}

func (c *HTTPClient) PollStatus(ctx context.Context, batchID string) (BatchStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/batches/"+batchID+"/status", nil)
	if err != nil {
		return "", relayerr.Wrap(relayerr.KindIOError, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", relayerr.Wrap(relayerr.KindProverError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", relayerr.WrapMsg(relayerr.KindProverError, fmt.Sprintf("poll batch %s: status %d", batchID, resp.StatusCode), nil)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", relayerr.WrapMsg(relayerr.KindDeserializeError, "poll status", err)
	}
	return BatchStatus(body.Status), nil
}

func (c *HTTPClient) FetchProof(ctx context.Context, batchID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/batches/"+batchID+"/proof", nil)
	if err != nil {
		return nil, relayerr.Wrap(relayerr.KindIOError, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, relayerr.Wrap(relayerr.KindProverError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, relayerr.WrapMsg(relayerr.KindProverError, fmt.Sprintf("fetch proof %s: status %d", batchID, resp.StatusCode), nil)
	}

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, relayerr.Wrap(relayerr.KindIOError, err)
	}
	return buf.Bytes(), nil
}

// WaitUntilTerminal polls batchID at PollInterval until its status is DONE
// or FAILED, or ctx is cancelled.
func WaitUntilTerminal(ctx context.Context, client Client, batchID string) (BatchStatus, error) {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		status, err := client.PollStatus(ctx, batchID)
		if err != nil {
			return "", err
		}
		switch status {
		case BatchStatusDone, BatchStatusFailed:
			return status, nil
		}

		select {
		case <-ctx.Done():
			return "", relayerr.WrapMsg(relayerr.KindPollingTimeout, batchID, ctx.Err())
		case <-ticker.C:
		}
	}
}
