// Package static is a read-only SignTransport variant: sessions are bound
// by a manually supplied or deep-link-returned address instead of a relay
// handshake. It supports browsing with a known address but cannot sign.
package static

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/parkview-app/walletcore/core"
	"github.com/parkview-app/walletcore/pairing"
	"github.com/parkview-app/walletcore/ports"
)

const sessionKey = "static:session"

const proposalTTL = 120 * time.Second

// Transport is the manual/read-only transport.
type Transport struct {
	store  ports.SessionStore
	logger *zap.Logger

	mu      sync.Mutex
	session *core.Session
	pending chan ports.ApprovalResult
	chains  []string

	events chan core.Event
}

// New creates a static transport.
func New(store ports.SessionStore, logger *zap.Logger) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{
		store:  store,
		logger: logger,
		events: make(chan core.Event, 4),
	}
}

var _ ports.SignTransport = (*Transport)(nil)

// Init restores a previously bound address, if any.
func (t *Transport) Init(ctx context.Context) error {
	val, found, err := t.store.Get(ctx, sessionKey)
	if err != nil || !found {
		return nil
	}

	var session core.Session
	if json.Unmarshal([]byte(val), &session) != nil {
		_ = t.store.Remove(ctx, sessionKey)
		return nil
	}

	t.mu.Lock()
	t.session = &session
	t.mu.Unlock()
	return nil
}

// Propose returns a pairing proposal whose approval is resolved by
// ResolveApproval or Reject rather than a wallet handshake.
func (t *Transport) Propose(ctx context.Context, ns core.Namespaces) (core.Proposal, <-chan ports.ApprovalResult, error) {
	topicBytes := make([]byte, 16)
	if _, err := rand.Read(topicBytes); err != nil {
		return core.Proposal{}, nil, fmt.Errorf("failed to generate topic: %w", err)
	}
	topic := hex.EncodeToString(topicBytes)

	ch := make(chan ports.ApprovalResult, 1)
	t.mu.Lock()
	t.pending = ch
	t.chains = ns.Chains
	t.mu.Unlock()

	now := time.Now()
	uri := pairing.URI{
		Topic:         topic,
		Version:       pairing.ProtocolVersion,
		RelayProtocol: pairing.RelayProtocolIrn,
		SymKey:        topic, // no encrypted channel in read-only mode
	}
	return core.Proposal{
		URI:        uri.Encode(),
		Topic:      topic,
		Namespaces: ns,
		CreatedAt:  now,
		ExpiresAt:  now.Add(proposalTTL),
	}, ch, nil
}

// ResolveApproval completes the pending proposal with a manually supplied
// account. Called when a deep-link callback or manual entry delivers an
// address.
func (t *Transport) ResolveApproval(ctx context.Context, address string, chainID int64) error {
	acct, err := core.ParseAccount(core.ChainRef(core.NamespaceEIP155, chainID) + ":" + address)
	if err != nil {
		return err
	}

	t.mu.Lock()
	ch := t.pending
	t.pending = nil
	chains := t.chains
	t.mu.Unlock()
	if ch == nil {
		return fmt.Errorf("no pending proposal")
	}

	session := core.Session{
		Topic:      "static:" + acct.Address,
		Accounts:   []core.Account{acct},
		Namespaces: core.Namespaces{Chains: chains},
		IssuedAt:   time.Now(),
	}

	t.mu.Lock()
	t.session = &session
	t.mu.Unlock()

	if raw, err := json.Marshal(session); err == nil {
		if err := t.store.Set(ctx, sessionKey, string(raw)); err != nil {
			t.logger.Warn("failed to persist static session", zap.Error(err))
		}
	}

	ch <- ports.ApprovalResult{Session: session}
	return nil
}

// Reject fails the pending proposal.
func (t *Transport) Reject() {
	t.mu.Lock()
	ch := t.pending
	t.pending = nil
	t.mu.Unlock()
	if ch != nil {
		ch <- ports.ApprovalResult{Err: core.ErrUserRejected}
	}
}

// Request always fails: a read-only session cannot sign.
func (t *Transport) Request(ctx context.Context, topic string, chainID int64, method string, params any) (json.RawMessage, error) {
	return nil, fmt.Errorf("%w: read-only session cannot sign", core.ErrTransportFailure)
}

// Disconnect clears the bound address.
func (t *Transport) Disconnect(ctx context.Context, topic string, reason core.Reason) error {
	t.mu.Lock()
	t.session = nil
	t.mu.Unlock()
	return t.store.Remove(ctx, sessionKey)
}

// Sessions lists the bound session, if any.
func (t *Transport) Sessions() []core.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == nil {
		return nil
	}
	return []core.Session{*t.session}
}

// Pairings always returns nothing: there is no transport link to orphan.
func (t *Transport) Pairings() []core.Pairing {
	return nil
}

// DisconnectPairing is a no-op for the static transport.
func (t *Transport) DisconnectPairing(ctx context.Context, topic string) error {
	return nil
}

// Events is the inbound event channel. The static transport never pushes.
func (t *Transport) Events() <-chan core.Event {
	return t.events
}

// Close releases the transport.
func (t *Transport) Close() error {
	t.Reject()
	return nil
}
