// Package chain implements the read-only chain client over an EVM JSON-RPC
// endpoint.
package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/parkview-app/walletcore/ports"
)

// weiPerEther converts wei amounts to whole native-token units.
var weiPerEther = decimal.New(1, 18)

// EthReader reads balances and contract state through an ethclient.
type EthReader struct {
	client *ethclient.Client
}

// Dial connects to an EVM RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*EthReader, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc %s: %w", rpcURL, err)
	}
	return &EthReader{client: client}, nil
}

// NewEthReader wraps an existing client.
func NewEthReader(client *ethclient.Client) *EthReader {
	return &EthReader{client: client}
}

var _ ports.ChainReader = (*EthReader)(nil)

// Balance returns the native-token balance of an address in whole units.
func (r *EthReader) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	if !common.IsHexAddress(address) {
		return decimal.Zero, fmt.Errorf("invalid address %q", address)
	}

	wei, err := r.client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch balance for %s: %w", address, err)
	}

	return decimal.NewFromBigInt(wei, 0).Div(weiPerEther), nil
}

// Call executes a read-only contract call and returns the decoded outputs.
func (r *EthReader) Call(ctx context.Context, desc ports.CallDescriptor) ([]any, error) {
	if !common.IsHexAddress(desc.Contract) {
		return nil, fmt.Errorf("invalid contract address %q", desc.Contract)
	}

	parsed, err := abi.JSON(strings.NewReader(desc.ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract abi: %w", err)
	}

	input, err := parsed.Pack(desc.Method, desc.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack call %s: %w", desc.Method, err)
	}

	to := common.HexToAddress(desc.Contract)
	output, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("contract call %s failed: %w", desc.Method, err)
	}

	results, err := parsed.Unpack(desc.Method, output)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s result: %w", desc.Method, err)
	}
	return results, nil
}

// Close releases the underlying RPC connection.
func (r *EthReader) Close() {
	r.client.Close()
}
