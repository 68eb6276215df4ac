// Copyright 2025 Certen Protocol
//
// Package ethereum is the JSON-RPC client the relay's Broadcast Serializer
// submits settlement transactions through: dial an EVM-compatible RPC
// endpoint, pack/call/unpack against an injected contract ABI, and sign and
// send a transaction with gas-price escalation on the retryable mempool
// rejections a settlement submitter actually sees (underpriced replacement,
// stale nonce, already-known). pkg/settlement is the only caller; this file
// carries only the surface that caller uses, not a general-purpose wallet
// toolkit.

package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
)

// maxSendAttempts bounds gas-price escalation retries for a single
// settlement submission before SendContractTransaction gives up.
const maxSendAttempts = 3

// minGasPriceWei is the floor this relay enforces so a submission is never
// priced so low it never gets included.
var minGasPriceWei = big.NewInt(5 * 1e9)

// Client wraps the settlement chain's JSON-RPC endpoint.
type Client struct {
	client  *ethclient.Client
	chainID *big.Int
	url     string
}

// NewClient dials url and wraps it for chainID.
func NewClient(url string, chainID int64) (*Client, error) {
	client, err := ethclient.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to settlement RPC: %w", err)
	}

	return &Client{
		client:  client,
		chainID: big.NewInt(chainID),
		url:     url,
	}, nil
}

// Health checks that the settlement RPC endpoint is reachable.
func (c *Client) Health(ctx context.Context) error {
	if _, err := c.client.BlockNumber(ctx); err != nil {
		return fmt.Errorf("settlement RPC health check failed: %w", err)
	}
	return nil
}

// ContractCallResult is the outcome of a submitted settlement transaction.
type ContractCallResult struct {
	TransactionHash string
	BlockNumber     uint64
	BlockHash       string
	GasUsed         uint64
	GasCost         *big.Int
	Success         bool
	Timestamp       time.Time
}

// CallContract makes a read-only call against the settlement contract,
// packing params per methodName and unpacking the raw return data.
func (c *Client) CallContract(ctx context.Context, contractAddr common.Address, abiString string, methodName string, params ...interface{}) ([]interface{}, error) {
	contractABI, err := abi.JSON(strings.NewReader(abiString))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}

	callData, err := contractABI.Pack(methodName, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack method call: %w", err)
	}

	result, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &contractAddr,
		Data: callData,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("contract call failed: %w", err)
	}

	outputs, err := contractABI.Unpack(methodName, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack result: %w", err)
	}

	return outputs, nil
}

// SendContractTransaction signs and sends a settlement transaction,
// escalating gas price on a retryable mempool rejection up to
// maxSendAttempts times before giving up.
func (c *Client) SendContractTransaction(ctx context.Context, contractAddr common.Address, abiString string, privateKeyHex string, methodName string, gasLimit uint64, params ...interface{}) (*ContractCallResult, error) {
	contractABI, err := abi.JSON(strings.NewReader(abiString))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}

	callData, err := contractABI.Pack(methodName, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack method call: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	fromAddress := crypto.PubkeyToAddress(privateKey.PublicKey)

	for attempt := 0; attempt < maxSendAttempts; attempt++ {
		nonce, err := c.client.PendingNonceAt(ctx, fromAddress)
		if err != nil {
			return nil, fmt.Errorf("failed to get nonce: %w", err)
		}

		gasPrice, err := c.client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get gas price: %w", err)
		}
		if gasPrice.Cmp(minGasPriceWei) < 0 {
			gasPrice = new(big.Int).Set(minGasPriceWei)
		}
		if attempt > 0 {
			gasPrice = escalateGasPrice(gasPrice, attempt)
		}

		tx := types.NewTransaction(nonce, contractAddr, big.NewInt(0), gasLimit, gasPrice, callData)
		signedTx, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), privateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to sign transaction: %w", err)
		}

		if err := c.client.SendTransaction(ctx, signedTx); err != nil {
			if isRetryableSendError(err) && attempt < maxSendAttempts-1 {
				time.Sleep(2 * time.Second)
				continue
			}
			return nil, fmt.Errorf("failed to send transaction after %d attempts: %w", attempt+1, err)
		}

		receipt, err := bind.WaitMined(ctx, c.client, signedTx)
		if err != nil {
			return nil, fmt.Errorf("failed to wait for transaction receipt: %w", err)
		}

		return &ContractCallResult{
			TransactionHash: signedTx.Hash().Hex(),
			BlockNumber:     receipt.BlockNumber.Uint64(),
			BlockHash:       receipt.BlockHash.Hex(),
			GasUsed:         receipt.GasUsed,
			GasCost:         new(big.Int).Mul(gasPrice, big.NewInt(int64(receipt.GasUsed))),
			Success:         receipt.Status == types.ReceiptStatusSuccessful,
			Timestamp:       time.Now(),
		}, nil
	}

	return nil, fmt.Errorf("failed to send transaction after %d attempts", maxSendAttempts)
}

// escalateGasPrice raises base by 20% per retry attempt (120%, 140%, ...).
func escalateGasPrice(base *big.Int, attempt int) *big.Int {
	multiplier := big.NewInt(int64(100 + 20*attempt))
	escalated := new(big.Int).Mul(base, multiplier)
	return escalated.Div(escalated, big.NewInt(100))
}

// isRetryableSendError reports whether a failed SendTransaction is worth
// retrying with a higher gas price rather than surfacing immediately.
func isRetryableSendError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "replacement transaction underpriced") ||
		strings.Contains(msg, "nonce too low") ||
		strings.Contains(msg, "already known")
}
