// Copyright 2025 Certen Protocol
//
// Package settlement is the SettlementClient interface over the
// destination chain's contract: queries for the latest settled epoch/
// committee, and mutations that submit wrapped-proof circuit outputs.
// The concrete implementation is built on pkg/ethereum's JSON-RPC client,
// generalized from an execution-chain client to a settlement-chain one —
// the contract ABI and calldata layout are the settlement contract's own
// concern (§1 Non-goals), so this package carries only a narrow ABI string
// covering the calls it makes, passed to pkg/ethereum on each call.

package settlement

import (
	"context"
	"fmt"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/certen/beacon-relay/pkg/ethereum"
	"github.com/certen/beacon-relay/pkg/relayerr"
)

// Client is the interface the Control Loop and Broadcast Serializer depend on.
type Client interface {
	GetLatestEpochSlot(ctx context.Context) (int64, error)
	GetLatestCommitteeID(ctx context.Context) (int64, error)
	SubmitUpdate(ctx context.Context, outputs CircuitOutputs) (txHash string, err error)
	GetEpochProof(ctx context.Context, slot int64) (*EpochProof, error)
}

// contractABI is the minimal interface this relay calls against the
// settlement contract: only the four methods below, not the contract's
// full ABI.
const contractABI = `[
	{"name":"get_latest_epoch_slot","type":"function","inputs":[],"outputs":[{"type":"uint64"}],"stateMutability":"view"},
	{"name":"get_latest_committee_id","type":"function","inputs":[],"outputs":[{"type":"uint64"}],"stateMutability":"view"},
	{"name":"submit_update","type":"function","inputs":[{"type":"bytes"}],"outputs":[],"stateMutability":"nonpayable"},
	{"name":"get_epoch_proof","type":"function","inputs":[{"type":"uint64"}],"outputs":[{"type":"bytes32"},{"type":"bytes32"},{"type":"uint64"},{"type":"bytes32"},{"type":"uint64"}],"stateMutability":"view"}
]`

// JSONRPCClient is the production Client, built atop pkg/ethereum's
// connection/retry/gas-escalation shape.
type JSONRPCClient struct {
	rpc           *ethereum.Client
	contractAddr  ethcommon.Address
	privateKeyHex string
	gasLimit      uint64
}

// NewJSONRPCClient dials rpcURL and wires calls against contractAddr,
// signing with privateKeyHex.
func NewJSONRPCClient(rpcURL string, chainID int64, contractAddr, privateKeyHex string) (*JSONRPCClient, error) {
	rpc, err := ethereum.NewClient(rpcURL, chainID)
	if err != nil {
		return nil, relayerr.SettlementErr("settlement", contractAddr, err)
	}

	return &JSONRPCClient{
		rpc:           rpc,
		contractAddr:  ethcommon.HexToAddress(contractAddr),
		privateKeyHex: privateKeyHex,
		gasLimit:      500_000,
	}, nil
}

func (c *JSONRPCClient) GetLatestEpochSlot(ctx context.Context) (int64, error) {
	outputs, err := c.rpc.CallContract(ctx, c.contractAddr, contractABI, "get_latest_epoch_slot")
	if err != nil {
		return 0, relayerr.SettlementErr("settlement", c.contractAddr.Hex(), err)
	}
	return decodeUint64(outputs)
}

func (c *JSONRPCClient) GetLatestCommitteeID(ctx context.Context) (int64, error) {
	outputs, err := c.rpc.CallContract(ctx, c.contractAddr, contractABI, "get_latest_committee_id")
	if err != nil {
		return 0, relayerr.SettlementErr("settlement", c.contractAddr.Hex(), err)
	}
	return decodeUint64(outputs)
}

func (c *JSONRPCClient) SubmitUpdate(ctx context.Context, outputs CircuitOutputs) (string, error) {
	result, err := c.rpc.SendContractTransaction(ctx, c.contractAddr, contractABI, c.privateKeyHex, "submit_update", c.gasLimit, outputs.Payload)
	if err != nil {
		return "", relayerr.SettlementErr("settlement", c.contractAddr.Hex(), err)
	}
	if !result.Success {
		return result.TransactionHash, relayerr.WrapMsg(relayerr.KindSettlementError, fmt.Sprintf("submit_update reverted for %s job", outputs.JobKind), nil)
	}
	return result.TransactionHash, nil
}

func (c *JSONRPCClient) GetEpochProof(ctx context.Context, slot int64) (*EpochProof, error) {
	outputs, err := c.rpc.CallContract(ctx, c.contractAddr, contractABI, "get_epoch_proof", big.NewInt(slot))
	if err != nil {
		return nil, relayerr.SettlementErr("settlement", c.contractAddr.Hex(), err)
	}
	if len(outputs) != 5 {
		return nil, relayerr.WrapMsg(relayerr.KindInvalidResponse, "get_epoch_proof: unexpected output arity", nil)
	}

	headerRoot, _ := outputs[0].([32]byte)
	stateRoot, _ := outputs[1].([32]byte)
	nSigners, _ := outputs[2].(uint64)
	executionHash, _ := outputs[3].([32]byte)
	executionHeight, _ := outputs[4].(uint64)

	return &EpochProof{
		HeaderRoot:      fmt.Sprintf("0x%x", headerRoot),
		StateRoot:       fmt.Sprintf("0x%x", stateRoot),
		NSigners:        nSigners,
		ExecutionHash:   fmt.Sprintf("0x%x", executionHash),
		ExecutionHeight: executionHeight,
	}, nil
}

func decodeUint64(outputs []interface{}) (int64, error) {
	if len(outputs) != 1 {
		return 0, relayerr.WrapMsg(relayerr.KindInvalidResponse, "expected single uint64 output", nil)
	}
	switch v := outputs[0].(type) {
	case uint64:
		return int64(v), nil
	case *big.Int:
		return v.Int64(), nil
	default:
		return 0, relayerr.WrapMsg(relayerr.KindInvalidResponse, "unexpected output type", nil)
	}
}
