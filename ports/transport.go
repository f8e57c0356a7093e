package ports

import (
	"context"
	"encoding/json"

	"github.com/parkview-app/walletcore/core"
)

// ApprovalResult terminates a pending proposal: a settled session or a
// wallet-side rejection.
type ApprovalResult struct {
	Session core.Session
	Err     error
}

// SignTransport is the session transport to an external wallet. The relay
// implementation speaks the pairing protocol over a websocket; variant
// implementations (read-only, manual address entry) provide the same
// capability surface and are selected at construction.
type SignTransport interface {
	// Init prepares the transport and restores persisted sessions and
	// pairings. Failure to restore any individual record is treated as that
	// record being absent.
	Init(ctx context.Context) error

	// Propose creates a pairing proposal for the given capability set and
	// returns it together with a channel that yields exactly one
	// ApprovalResult when the wallet approves or rejects.
	Propose(ctx context.Context, ns core.Namespaces) (core.Proposal, <-chan ApprovalResult, error)

	// Request forwards a signing or transaction request over an established
	// session and blocks until the correlated response or a transport
	// failure. There is no transport-imposed timeout; cancellation is the
	// caller's context.
	Request(ctx context.Context, topic string, chainID int64, method string, params any) (json.RawMessage, error)

	// Disconnect closes a session with a reason code.
	Disconnect(ctx context.Context, topic string, reason core.Reason) error

	// Sessions lists the transport's known sessions.
	Sessions() []core.Session

	// Pairings lists transport-level pairings, including orphaned ones.
	Pairings() []core.Pairing

	// DisconnectPairing closes a pairing independently of any session.
	DisconnectPairing(ctx context.Context, topic string) error

	// Events is the single inbound channel of wallet push events. Closed
	// when the transport shuts down.
	Events() <-chan core.Event

	// Close tears the transport down.
	Close() error
}
