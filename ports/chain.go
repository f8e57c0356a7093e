package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// CallDescriptor describes a read-only contract call.
type CallDescriptor struct {
	Contract string // contract address
	ABI      string // contract ABI, JSON
	Method   string
	Args     []any
}

// ChainReader reads on-chain state. Both operations may fail with transport
// errors, which callers surface as stale data or propagate as-is.
type ChainReader interface {
	// Balance returns the native-token balance of an address in whole token
	// units.
	Balance(ctx context.Context, address string) (decimal.Decimal, error)

	// Call executes a read-only contract call and returns the decoded
	// outputs.
	Call(ctx context.Context, desc CallDescriptor) ([]any, error)
}
