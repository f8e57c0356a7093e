package core

import "github.com/shopspring/decimal"

// State is the connection state machine's externally visible state.
type State int

const (
	StateIdle State = iota
	StateInitializing
	StateReady
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// Facts is the derived connection fact set read by the rest of the
// application. It is recomputed from session state on every transition and
// never independently settable.
type Facts struct {
	State         State            `json:"state"`
	Address       string           `json:"address,omitempty"`
	ChainID       int64            `json:"chain_id"`
	Balance       *decimal.Decimal `json:"balance,omitempty"`
	BalanceStale  bool             `json:"balance_stale,omitempty"`
	IsConnected   bool             `json:"is_connected"`
	IsConnecting  bool             `json:"is_connecting"`
	IsInitialized bool             `json:"is_initialized"`
}
