// Copyright 2025 Certen Protocol
//
// Relay Query API Handlers - read-only status, Merkle-path, and debug
// endpoints per §4.7/§6.

package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/certen/beacon-relay/pkg/beacon"
	"github.com/certen/beacon-relay/pkg/database"
	"github.com/certen/beacon-relay/pkg/settlement"
)

// RelayHandlers serves the relay's read-only Query API.
type RelayHandlers struct {
	repos      *database.Repositories
	beacon     beacon.Client
	settlement settlement.Client
	lastHead   func() *beacon.HeadEvent
	logger     *log.Logger
}

// NewRelayHandlers constructs the relay's Query API handlers. lastHead
// reads the Head Listener's last observed event; it is stored on the
// handlers, and no current endpoint reads it.
func NewRelayHandlers(repos *database.Repositories, beaconClient beacon.Client, settlementClient settlement.Client, lastHead func() *beacon.HeadEvent, logger *log.Logger) *RelayHandlers {
	if logger == nil {
		logger = log.New(log.Writer(), "[RelayAPI] ", log.LstdFlags)
	}
	return &RelayHandlers{
		repos:      repos,
		beacon:     beaconClient,
		settlement: settlementClient,
		lastHead:   lastHead,
		logger:     logger,
	}
}

// HandleStatus serves GET /status.
func (h *RelayHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

// HandleGetMerklePathsForEpoch serves GET /get_merkle_paths_for_epoch/{epoch_id}.
func (h *RelayHandlers) HandleGetMerklePathsForEpoch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	epochID, err := parseTrailingInt64(r.URL.Path, "/get_merkle_paths_for_epoch/")
	if err != nil {
		writeJSONError(w, "invalid epoch_id", http.StatusBadRequest)
		return
	}

	paths, err := h.repos.Merkle.GetMerklePathsForEpoch(r.Context(), epochID)
	if err != nil {
		if err == database.ErrNoMerklePaths {
			writeJSONError(w, "no merkle paths recorded for epoch", http.StatusNotFound)
			return
		}
		h.logger.Printf("get merkle paths for epoch %d: %v", epochID, err)
		writeJSONError(w, "failed to fetch merkle paths", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"epoch_id":     epochID,
		"merkle_paths": paths,
	})
}

// HandleDebugGetEpochUpdate serves GET /debug/get-epoch-update/{slot}, the
// deprecated EpochUpdate debug path retained per §4.5/§9 Open Question 3.
func (h *RelayHandlers) HandleDebugGetEpochUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	slot, err := parseTrailingInt64(r.URL.Path, "/debug/get-epoch-update/")
	if err != nil {
		writeJSONError(w, "invalid slot", http.StatusBadRequest)
		return
	}

	inputs, err := beacon.AssembleEpochInputs(r.Context(), h.beacon, slot, 5)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, inputs)
}

// HandleDebugGetLatestVerifiedSlot serves GET /debug/get-latest-verified-slot.
func (h *RelayHandlers) HandleDebugGetLatestVerifiedSlot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	slot, err := h.settlement.GetLatestEpochSlot(r.Context())
	if err != nil {
		h.logger.Printf("get latest verified slot: %v", err)
		writeJSONError(w, "failed to query settlement", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]int64{"latest_verified_slot": slot})
}

// HandleHealthz serves GET /healthz: process liveness only.
func (h *RelayHandlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// HandleReadyz serves GET /readyz: liveness plus a database round trip.
func (h *RelayHandlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	if _, err := h.repos.Jobs.CountJobsInProgress(r.Context()); err != nil {
		writeJSONError(w, "not ready: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]string{"status": "ready"})
}

func parseTrailingInt64(path, prefix string) (int64, error) {
	trimmed := strings.TrimPrefix(path, prefix)
	return strconv.ParseInt(trimmed, 10, 64)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
