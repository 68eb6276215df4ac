// Copyright 2025 Certen Protocol
//
// Package beacon provides the BeaconClient interface so the Dispatcher and
// Control Loop depend on an abstraction over the source chain's REST API,
// not net/http directly.

package beacon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/certen/beacon-relay/pkg/relayerr"
)

// Client is the interface the rest of the relay depends on. A mock
// implementation satisfies the same interface for tests.
type Client interface {
	GetHeader(ctx context.Context, slot int64) (*Header, error)
	GetSyncAggregate(ctx context.Context, slot int64) (*SyncAggregate, error)
	GetSyncCommittee(ctx context.Context, slot int64) (*SyncCommittee, error)
	GetValidators(ctx context.Context, indices []int64) ([]Validator, error)
}

// HTTPClient is the production Client backed by a beacon node's REST API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient constructs a Client against baseURL (e.g. BEACON_RPC_URL).
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// GetHeader fetches GET /eth/v1/beacon/headers/{slot}. A 404 response is
// reported as relayerr.KindEmptySlotDetected, per §6's EmptySlot convention.
func (c *HTTPClient) GetHeader(ctx context.Context, slot int64) (*Header, error) {
	var body struct {
		Data struct {
			Header struct {
				Message struct {
					Slot          string `json:"slot"`
					ProposerIndex string `json:"proposer_index"`
					ParentRoot    string `json:"parent_root"`
					StateRoot     string `json:"state_root"`
					BodyRoot      string `json:"body_root"`
				} `json:"message"`
			} `json:"header"`
		} `json:"data"`
	}

	path := fmt.Sprintf("/eth/v1/beacon/headers/%d", slot)
	if err := c.getJSON(ctx, path, &body); err != nil {
		if rerr, ok := err.(*relayerr.Error); ok && rerr.Kind == relayerr.KindBlockNotFound {
			return nil, relayerr.EmptySlot(slot)
		}
		return nil, err
	}

	parsedSlot, err := strconv.ParseInt(body.Data.Header.Message.Slot, 10, 64)
	if err != nil {
		return nil, relayerr.WrapMsg(relayerr.KindDeserializeError, "header.message.slot", err)
	}
	proposerIndex, err := strconv.ParseInt(body.Data.Header.Message.ProposerIndex, 10, 64)
	if err != nil {
		return nil, relayerr.WrapMsg(relayerr.KindDeserializeError, "header.message.proposer_index", err)
	}

	return &Header{
		Slot:          parsedSlot,
		ParentRoot:    body.Data.Header.Message.ParentRoot,
		StateRoot:     body.Data.Header.Message.StateRoot,
		BodyRoot:      body.Data.Header.Message.BodyRoot,
		ProposerIndex: proposerIndex,
	}, nil
}

// GetSyncAggregate fetches GET /eth/v2/beacon/blocks/{slot+1} and extracts
// .data.message.body.sync_aggregate — the aggregate attesting to slot N is
// carried in block N+1's body, per the Beacon Source's convention.
func (c *HTTPClient) GetSyncAggregate(ctx context.Context, slot int64) (*SyncAggregate, error) {
	var body struct {
		Data struct {
			Message struct {
				Body struct {
					SyncAggregate struct {
						SyncCommitteeBits      string `json:"sync_committee_bits"`
						SyncCommitteeSignature string `json:"sync_committee_signature"`
					} `json:"sync_aggregate"`
				} `json:"body"`
			} `json:"message"`
		} `json:"data"`
	}

	path := fmt.Sprintf("/eth/v2/beacon/blocks/%d", slot+1)
	if err := c.getJSON(ctx, path, &body); err != nil {
		return nil, err
	}

	agg := body.Data.Message.Body.SyncAggregate
	return &SyncAggregate{
		SyncCommitteeBits:      agg.SyncCommitteeBits,
		SyncCommitteeSignature: agg.SyncCommitteeSignature,
	}, nil
}

// GetSyncCommittee fetches GET /eth/v1/beacon/states/{slot+1}/sync_committees
// and returns the validator indices, parsed from decimal strings.
func (c *HTTPClient) GetSyncCommittee(ctx context.Context, slot int64) (*SyncCommittee, error) {
	var body struct {
		Data struct {
			Validators []string `json:"validators"`
		} `json:"data"`
	}

	path := fmt.Sprintf("/eth/v1/beacon/states/%d/sync_committees", slot+1)
	if err := c.getJSON(ctx, path, &body); err != nil {
		return nil, relayerr.Wrap(relayerr.KindFetchSyncCommitteeError, err)
	}

	indices := make([]int64, len(body.Data.Validators))
	for i, s := range body.Data.Validators {
		idx, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, relayerr.WrapMsg(relayerr.KindDeserializeError, "sync_committees.validators["+s+"]", err)
		}
		indices[i] = idx
	}

	return &SyncCommittee{ValidatorIndices: indices}, nil
}

// GetValidators fetches GET /eth/v1/beacon/states/head/validators?id=... for
// the given indices, joined with '&' in the query string per §6.
func (c *HTTPClient) GetValidators(ctx context.Context, indices []int64) ([]Validator, error) {
	ids := make([]string, len(indices))
	for i, idx := range indices {
		ids[i] = strconv.FormatInt(idx, 10)
	}

	var body struct {
		Data []struct {
			Index     string `json:"index"`
			Validator struct {
				Pubkey string `json:"pubkey"`
			} `json:"validator"`
		} `json:"data"`
	}

	path := "/eth/v1/beacon/states/head/validators?id=" + strings.Join(ids, "&id=")
	if err := c.getJSON(ctx, path, &body); err != nil {
		return nil, relayerr.Wrap(relayerr.KindFailedFetchingBeaconState, err)
	}

	validators := make([]Validator, len(body.Data))
	for i, v := range body.Data {
		idx, err := strconv.ParseInt(v.Index, 10, 64)
		if err != nil {
			return nil, relayerr.WrapMsg(relayerr.KindDeserializeError, "validators[].index", err)
		}
		validators[i] = Validator{Index: idx, Pubkey: v.Validator.Pubkey}
	}

	return validators, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return relayerr.Wrap(relayerr.KindIOError, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return relayerr.Wrap(relayerr.KindBeaconRPCError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return relayerr.Sentinel(relayerr.KindBlockNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return relayerr.WrapMsg(relayerr.KindBeaconRPCError, fmt.Sprintf("unexpected status %d from %s", resp.StatusCode, path), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return relayerr.WrapMsg(relayerr.KindDeserializeError, path, err)
	}
	return nil
}
