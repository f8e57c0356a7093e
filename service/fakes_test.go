package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/parkview-app/walletcore/core"
	"github.com/parkview-app/walletcore/deeplink"
	"github.com/parkview-app/walletcore/ports"
)

// fakeTransport is a scriptable SignTransport. Propose hands out a channel
// the test resolves by hand; Request records calls and replies from a
// queue.
type fakeTransport struct {
	mu sync.Mutex

	initErr    error
	initCalls  int
	sessions   []core.Session
	pairings   []core.Pairing
	proposeErr error

	approvals chan ports.ApprovalResult
	proposal  core.Proposal

	requestCalls   []requestCall
	requestResults []requestResult

	disconnected        []string
	disconnectedPairing []string

	events chan core.Event
	closed bool
}

type requestCall struct {
	topic   string
	chainID int64
	method  string
	params  any
}

type requestResult struct {
	res json.RawMessage
	err error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		approvals: make(chan ports.ApprovalResult, 1),
		events:    make(chan core.Event, 8),
	}
}

func (f *fakeTransport) Init(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls++
	return f.initErr
}

func (f *fakeTransport) Propose(ctx context.Context, ns core.Namespaces) (core.Proposal, <-chan ports.ApprovalResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.proposeErr != nil {
		return core.Proposal{}, nil, f.proposeErr
	}
	if f.proposal.Topic == "" {
		f.proposal = core.Proposal{
			URI:        "wc:topic-1@2?relay-protocol=irn&symKey=aa",
			Topic:      "topic-1",
			Namespaces: ns,
			CreatedAt:  time.Now(),
			ExpiresAt:  time.Now().Add(2 * time.Minute),
		}
	}
	f.pairings = append(f.pairings, core.Pairing{Topic: f.proposal.Topic, CreatedAt: time.Now()})
	return f.proposal, f.approvals, nil
}

func (f *fakeTransport) Request(ctx context.Context, topic string, chainID int64, method string, params any) (json.RawMessage, error) {
	f.mu.Lock()
	f.requestCalls = append(f.requestCalls, requestCall{topic, chainID, method, params})
	var r requestResult
	if len(f.requestResults) > 0 {
		r = f.requestResults[0]
		f.requestResults = f.requestResults[1:]
	}
	f.mu.Unlock()
	if r.err == nil && r.res == nil {
		r.res = json.RawMessage(`null`)
	}
	return r.res, r.err
}

func (f *fakeTransport) Disconnect(ctx context.Context, topic string, reason core.Reason) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = append(f.disconnected, topic)
	kept := f.sessions[:0]
	for _, s := range f.sessions {
		if s.Topic != topic {
			kept = append(kept, s)
		}
	}
	f.sessions = kept
	return nil
}

func (f *fakeTransport) Sessions() []core.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.Session, len(f.sessions))
	copy(out, f.sessions)
	return out
}

func (f *fakeTransport) Pairings() []core.Pairing {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.Pairing, len(f.pairings))
	copy(out, f.pairings)
	return out
}

func (f *fakeTransport) DisconnectPairing(ctx context.Context, topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnectedPairing = append(f.disconnectedPairing, topic)
	kept := f.pairings[:0]
	for _, p := range f.pairings {
		if p.Topic != topic {
			kept = append(kept, p)
		}
	}
	f.pairings = kept
	return nil
}

func (f *fakeTransport) Events() <-chan core.Event { return f.events }

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

func (f *fakeTransport) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requestCalls)
}

// fakeLauncher scripts which candidate links the OS claims to handle.
type fakeLauncher struct {
	mu       sync.Mutex
	canOpen  func(uri string) bool
	openErr  error
	opened   []string
	attempts []string
}

func (f *fakeLauncher) CanOpen(ctx context.Context, uri string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, uri)
	if f.canOpen == nil {
		return true
	}
	return f.canOpen(uri)
}

func (f *fakeLauncher) Open(ctx context.Context, uri string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.opened = append(f.opened, uri)
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) Notify(level ports.NotifyLevel, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
}

type publishedEvent struct {
	kind    string
	address string
	chainID int64
	reason  string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (f *fakePublisher) PublishConnected(ctx context.Context, address string, chainID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{kind: "connected", address: address, chainID: chainID})
	return nil
}

func (f *fakePublisher) PublishDisconnected(ctx context.Context, address string, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{kind: "disconnected", address: address, reason: reason})
	return nil
}

func (f *fakePublisher) PublishChainSwitched(ctx context.Context, address string, chainID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{kind: "chain_switched", address: address, chainID: chainID})
	return nil
}

func (f *fakePublisher) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.kind
	}
	return out
}

type fakeReader struct {
	mu      sync.Mutex
	balance decimal.Decimal
	err     error
	calls   int
	release chan struct{} // when set, Balance blocks until it closes
}

func (f *fakeReader) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	f.mu.Lock()
	f.calls++
	bal, err, release := f.balance, f.err, f.release
	f.mu.Unlock()
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return decimal.Zero, ctx.Err()
		}
	}
	return bal, err
}

func (f *fakeReader) Call(ctx context.Context, desc ports.CallDescriptor) ([]any, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeReader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testAccount(chainID int64, address string) core.Account {
	return core.Account{Namespace: core.NamespaceEIP155, ChainID: chainID, Address: address}
}

func testSession(topic string, accounts ...core.Account) core.Session {
	return core.Session{
		Topic:    topic,
		Accounts: accounts,
		Namespaces: core.Namespaces{
			Chains:  []string{"eip155:5003"},
			Methods: []string{"personal_sign", "eth_sendTransaction"},
			Events:  []string{"chainChanged", "accountsChanged"},
		},
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

type harness struct {
	svc       *WalletService
	transport *fakeTransport
	launcher  *fakeLauncher
	notifier  *fakeNotifier
	publisher *fakePublisher
	reader    *fakeReader
}

func newHarness(mutate ...func(*Config)) *harness {
	cfg := Config{
		Chains:          []string{"eip155:5003"},
		Wallet:          deeplink.SupportedWallets[0],
		DefaultChainID:  5003,
		ApprovalTimeout: 80 * time.Millisecond,
		BalanceDebounce: 5 * time.Millisecond,
	}
	for _, m := range mutate {
		m(&cfg)
	}

	h := &harness{
		transport: newFakeTransport(),
		launcher:  &fakeLauncher{},
		notifier:  &fakeNotifier{},
		publisher: &fakePublisher{},
		reader:    &fakeReader{balance: decimal.NewFromInt(42)},
	}
	h.svc = NewWalletService(cfg, h.transport,
		deeplink.NewDispatcher(h.launcher, nil),
		h.reader, h.publisher, h.notifier, nil)
	return h
}
