// Package service implements the connection lifecycle: pairing with an
// external wallet, session restoration, request relaying and balance
// tracking. All state lives in the Registry; the WalletService is its
// single writer.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/parkview-app/walletcore/core"
	"github.com/parkview-app/walletcore/deeplink"
	"github.com/parkview-app/walletcore/pairing"
	"github.com/parkview-app/walletcore/ports"
)

const (
	// DefaultApprovalTimeout bounds how long a pairing proposal waits for
	// the user to act in the wallet app.
	DefaultApprovalTimeout = 120 * time.Second

	// DefaultBalanceDebounce coalesces bursts of balance refresh triggers.
	DefaultBalanceDebounce = 250 * time.Millisecond

	methodSwitchChain = "wallet_switchEthereumChain"
)

// Config carries the connection policy of a WalletService.
type Config struct {
	// Chains is the required chain set of every proposal, e.g.
	// ["eip155:5003"]. Must be non-empty.
	Chains []string

	// Methods and Events default to the standard signing capability set
	// when empty.
	Methods []string
	Events  []string

	// Wallet is the external app candidate links are built for.
	Wallet deeplink.WalletApp

	// DefaultChainID is reported while no session is bound.
	DefaultChainID int64

	ApprovalTimeout time.Duration
	BalanceDebounce time.Duration
}

// approvalResolver is the optional transport surface for manual approval,
// provided by the read-only variant.
type approvalResolver interface {
	ResolveApproval(ctx context.Context, address string, chainID int64) error
	Reject()
}

// connectWatch is the per-Connect coordination point: Close-once channels
// for an explicit cancel and for a wallet-side delete of the pending topic.
type connectWatch struct {
	topic      string
	cancel     chan struct{}
	abort      chan struct{}
	cancelOnce sync.Once
	abortOnce  sync.Once
}

// initAttempt is one in-flight or finished Initialize. err is written
// before done closes and only read after.
type initAttempt struct {
	done chan struct{}
	err  error
}

// WalletService drives the connection state machine over a SignTransport.
type WalletService struct {
	cfg        Config
	transport  ports.SignTransport
	dispatcher *deeplink.Dispatcher
	registry   *Registry
	balances   *balanceSyncer
	events     ports.EventPublisher
	notifier   ports.Notifier
	logger     *zap.Logger

	initMu sync.Mutex
	init   *initAttempt

	mu    sync.Mutex
	watch *connectWatch

	stop     chan struct{}
	stopOnce sync.Once
}

// NewWalletService wires a service over its ports. Reader, publisher and
// notifier are required; pass no-op implementations to opt out.
func NewWalletService(
	cfg Config,
	transport ports.SignTransport,
	dispatcher *deeplink.Dispatcher,
	reader ports.ChainReader,
	events ports.EventPublisher,
	notifier ports.Notifier,
	logger *zap.Logger,
) *WalletService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ApprovalTimeout <= 0 {
		cfg.ApprovalTimeout = DefaultApprovalTimeout
	}
	if cfg.BalanceDebounce <= 0 {
		cfg.BalanceDebounce = DefaultBalanceDebounce
	}
	if len(cfg.Methods) == 0 {
		cfg.Methods = pairing.DefaultMethods
	}
	if len(cfg.Events) == 0 {
		cfg.Events = pairing.DefaultEvents
	}

	registry := NewRegistry(cfg.DefaultChainID)
	return &WalletService{
		cfg:        cfg,
		transport:  transport,
		dispatcher: dispatcher,
		registry:   registry,
		balances:   newBalanceSyncer(reader, registry, logger, cfg.BalanceDebounce),
		events:     events,
		notifier:   notifier,
		logger:     logger,
		stop:       make(chan struct{}),
	}
}

// Facts returns the current public snapshot of the connection.
func (s *WalletService) Facts() core.Facts {
	return s.registry.Facts()
}

// PendingProposal returns the proposal of an in-flight Connect, if one is
// still awaiting approval. Consumers render its URI as a QR code.
func (s *WalletService) PendingProposal() (core.Proposal, bool) {
	p, ok := s.registry.Proposal()
	if !ok || p.Expired(time.Now()) {
		return core.Proposal{}, false
	}
	return p, true
}

// Initialize prepares the transport and restores a persisted session if a
// valid one exists. Concurrent calls share one attempt and observe the same
// outcome; a failed attempt may be retried.
func (s *WalletService) Initialize(ctx context.Context) error {
	s.initMu.Lock()
	att := s.init
	if att == nil {
		att = &initAttempt{done: make(chan struct{})}
		s.init = att
		s.initMu.Unlock()

		s.registry.SetState(core.StateInitializing)
		att.err = s.initialize(ctx)
		close(att.done)
		if att.err != nil {
			s.initMu.Lock()
			s.init = nil
			s.initMu.Unlock()
		}
		return att.err
	}
	s.initMu.Unlock()

	select {
	case <-att.done:
		return att.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *WalletService) initialize(ctx context.Context) error {
	if err := s.transport.Init(ctx); err != nil {
		s.registry.SetState(core.StateIdle)
		return fmt.Errorf("transport init: %w", err)
	}

	restored := s.restoreSession(ctx)
	s.registry.SetInitialized()
	if restored {
		s.registry.SetState(core.StateConnected)
	} else {
		s.registry.SetState(core.StateReady)
	}

	go s.eventLoop()
	go s.balances.run()

	if restored {
		s.refreshBalance()
		s.logger.Info("restored wallet session")
	}
	return nil
}

// restoreSession adopts the most recently issued valid session known to the
// transport. Expired sessions are closed rather than restored.
func (s *WalletService) restoreSession(ctx context.Context) bool {
	now := time.Now()
	var best *core.Session
	for _, sess := range s.transport.Sessions() {
		sess := sess
		if !sess.Valid(now) {
			if err := s.transport.Disconnect(ctx, sess.Topic, core.ReasonSessionExpired); err != nil {
				s.logger.Warn("failed to close expired session",
					zap.String("topic", sess.Topic), zap.Error(err))
			}
			continue
		}
		if best == nil || sess.IssuedAt.After(best.IssuedAt) {
			best = &sess
		}
	}
	if best == nil {
		return false
	}
	s.registry.SetSession(*best)
	return true
}

// Connect runs one full pairing cycle: close anything stale, propose, hand
// the URI to the wallet app and wait for approval, rejection, timeout,
// cancellation or a wallet-side delete of the pending topic. It blocks in
// the caller's goroutine and always leaves a terminal state behind.
func (s *WalletService) Connect(ctx context.Context) (core.Session, error) {
	if !s.registry.Initialized() {
		return core.Session{}, core.ErrNotInitialized
	}
	if !s.registry.Transition(core.StateReady, core.StateConnecting) &&
		!s.registry.Transition(core.StateConnected, core.StateConnecting) {
		if s.registry.State() == core.StateConnecting {
			return core.Session{}, core.ErrAlreadyConnecting
		}
		return core.Session{}, fmt.Errorf("%w: connect is not available in state %s",
			core.ErrTransportFailure, s.registry.State())
	}

	s.cleanupStale(ctx)

	ns, err := pairing.Requirements(s.cfg.Chains, s.cfg.Methods, s.cfg.Events)
	if err != nil {
		s.registry.SetState(core.StateReady)
		return core.Session{}, err
	}

	proposal, approvals, err := s.transport.Propose(ctx, ns)
	if err != nil {
		s.registry.SetState(core.StateReady)
		return core.Session{}, fmt.Errorf("propose pairing: %w", err)
	}
	s.registry.SetProposal(proposal)

	watch := &connectWatch{
		topic:  proposal.Topic,
		cancel: make(chan struct{}),
		abort:  make(chan struct{}),
	}
	s.mu.Lock()
	s.watch = watch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.watch = nil
		s.mu.Unlock()
	}()

	if res := s.dispatcher.Open(ctx, s.cfg.Wallet.CandidateLinks(proposal.URI)); !res.Opened {
		s.abandonProposal(ctx, proposal.Topic)
		s.notifier.Notify(ports.NotifyWarn,
			fmt.Sprintf("%s does not appear to be installed: %s", s.cfg.Wallet.Name, s.cfg.Wallet.DownloadURL))
		return core.Session{}, fmt.Errorf("%w: no wallet app handled the pairing link",
			core.ErrTransportFailure)
	}

	timer := time.NewTimer(s.cfg.ApprovalTimeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		return s.connectTimedOut(ctx, proposal.Topic)

	case res := <-approvals:
		// A timeout that fired together with the approval wins the tie.
		select {
		case <-timer.C:
			return s.connectTimedOut(ctx, proposal.Topic)
		default:
		}
		if res.Err != nil {
			s.abandonProposal(ctx, proposal.Topic)
			if errors.Is(res.Err, core.ErrUserRejected) {
				s.notifier.Notify(ports.NotifyInfo, "Connection rejected in wallet")
				return core.Session{}, res.Err
			}
			return core.Session{}, fmt.Errorf("%w: %v", core.ErrTransportFailure, res.Err)
		}
		return s.connectSettled(ctx, res.Session)

	case <-watch.cancel:
		s.abandonProposal(ctx, proposal.Topic)
		return core.Session{}, core.ErrConnectCancelled

	case <-watch.abort:
		// The wallet deleted the pending topic; nothing left to close.
		s.registry.ClearProposal()
		s.registry.SetState(core.StateReady)
		return core.Session{}, fmt.Errorf("%w: pairing closed by wallet", core.ErrConnectCancelled)

	case <-ctx.Done():
		s.abandonProposal(ctx, proposal.Topic)
		return core.Session{}, fmt.Errorf("%w: %v", core.ErrConnectCancelled, ctx.Err())
	}
}

func (s *WalletService) connectTimedOut(ctx context.Context, topic string) (core.Session, error) {
	s.abandonProposal(ctx, topic)
	s.notifier.Notify(ports.NotifyWarn, "Wallet approval timed out")
	return core.Session{}, core.ErrApprovalTimeout
}

func (s *WalletService) connectSettled(ctx context.Context, sess core.Session) (core.Session, error) {
	acct, ok := sess.PrimaryAccount()
	if !ok || !sess.Valid(time.Now()) {
		s.abandonProposal(ctx, sess.Topic)
		return core.Session{}, fmt.Errorf("%w: settled session carries no usable account",
			core.ErrTransportFailure)
	}

	s.registry.SetSession(sess)
	s.registry.ClearProposal()
	s.registry.SetState(core.StateConnected)

	if err := s.events.PublishConnected(ctx, acct.Address, acct.ChainID); err != nil {
		s.logger.Warn("failed to publish connected event", zap.Error(err))
	}
	s.notifier.Notify(ports.NotifyInfo, fmt.Sprintf("Connected to %s", acct.Address))
	s.refreshBalance()

	s.logger.Info("wallet connected",
		zap.String("topic", sess.Topic),
		zap.String("address", acct.Address),
		zap.Int64("chain_id", acct.ChainID))
	return sess, nil
}

// abandonProposal closes the half-open pairing left by a proposal that will
// never settle and returns the machine to Ready.
func (s *WalletService) abandonProposal(ctx context.Context, topic string) {
	if err := s.transport.DisconnectPairing(ctx, topic); err != nil {
		s.logger.Warn("failed to close abandoned pairing",
			zap.String("topic", topic), zap.Error(err))
	}
	s.registry.ClearProposal()
	s.registry.SetState(core.StateReady)
}

// cleanupStale closes every session and pairing the transport still knows
// about before a fresh pairing starts. Failures are logged, never fatal.
func (s *WalletService) cleanupStale(ctx context.Context) {
	for _, sess := range s.transport.Sessions() {
		if err := s.transport.Disconnect(ctx, sess.Topic, core.ReasonUserDisconnected); err != nil {
			s.logger.Warn("failed to close stale session",
				zap.String("topic", sess.Topic), zap.Error(err))
		}
		s.registry.ClearSession(sess.Topic)
	}
	for _, p := range s.transport.Pairings() {
		if err := s.transport.DisconnectPairing(ctx, p.Topic); err != nil {
			s.logger.Warn("failed to close stale pairing",
				zap.String("topic", p.Topic), zap.Error(err))
		}
	}
	s.balances.invalidate()
}

// CancelConnect aborts a pending Connect, if any. Safe to call at any time.
func (s *WalletService) CancelConnect() {
	s.mu.Lock()
	watch := s.watch
	s.mu.Unlock()
	if watch != nil {
		watch.cancelOnce.Do(func() { close(watch.cancel) })
	}
}

// HandleCallback feeds a wallet callback URI into a pending manual
// approval. Only transports with a manual approval surface accept it.
func (s *WalletService) HandleCallback(ctx context.Context, raw string) error {
	resolver, ok := s.transport.(approvalResolver)
	if !ok {
		return fmt.Errorf("%w: transport does not accept callbacks", core.ErrTransportFailure)
	}

	cb, err := deeplink.ParseCallback(raw)
	if err != nil {
		return err
	}
	if !cb.Approved {
		resolver.Reject()
		return nil
	}

	chainID := s.cfg.DefaultChainID
	if cb.HasChainID {
		chainID = cb.ChainID
	}
	return resolver.ResolveApproval(ctx, cb.Address, chainID)
}

// Disconnect closes the current session. The local view is cleared even if
// the wallet side cannot be reached.
func (s *WalletService) Disconnect(ctx context.Context) error {
	sess, ok := s.registry.Session()
	if !ok {
		return core.ErrNotConnected
	}
	s.registry.SetState(core.StateDisconnecting)

	acct, _ := sess.PrimaryAccount()
	if err := s.transport.Disconnect(ctx, sess.Topic, core.ReasonUserDisconnected); err != nil {
		s.logger.Warn("failed to notify wallet of disconnect",
			zap.String("topic", sess.Topic), zap.Error(err))
	}

	s.registry.ClearSession(sess.Topic)
	s.registry.SetState(core.StateReady)
	s.balances.invalidate()

	if err := s.events.PublishDisconnected(ctx, acct.Address, core.ReasonUserDisconnected.Message); err != nil {
		s.logger.Warn("failed to publish disconnected event", zap.Error(err))
	}
	s.notifier.Notify(ports.NotifyInfo, "Wallet disconnected")
	s.logger.Info("wallet disconnected", zap.String("topic", sess.Topic))
	return nil
}

// SwitchNetwork asks the wallet to move the session to another chain and
// waits for the acknowledgement. The reported chain id is never updated
// optimistically; on any failure it stays as it was.
func (s *WalletService) SwitchNetwork(ctx context.Context, chainID int64) error {
	sess, ok := s.registry.Session()
	if !ok {
		return core.ErrNotConnected
	}
	acct, ok := sess.PrimaryAccount()
	if !ok {
		return core.ErrNotConnected
	}
	if acct.ChainID == chainID {
		return nil
	}

	params := []any{map[string]string{"chainId": core.HexChainID(chainID)}}
	rctx, cancel := context.WithTimeout(ctx, s.cfg.ApprovalTimeout)
	defer cancel()

	if _, err := s.transport.Request(rctx, sess.Topic, acct.ChainID, methodSwitchChain, params); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return core.ErrApprovalTimeout
		}
		if errors.Is(err, core.ErrUserRejected) {
			return err
		}
		return fmt.Errorf("switch network: %w", err)
	}

	s.registry.SwitchChain(sess.Topic, chainID)
	if err := s.events.PublishChainSwitched(ctx, acct.Address, chainID); err != nil {
		s.logger.Warn("failed to publish chain switch event", zap.Error(err))
	}
	s.refreshBalance()
	s.notifier.Notify(ports.NotifyInfo, fmt.Sprintf("Switched to chain %d", chainID))
	s.logger.Info("network switched", zap.Int64("chain_id", chainID))
	return nil
}

// RefreshBalance schedules a balance fetch for the connected account.
func (s *WalletService) RefreshBalance() {
	s.refreshBalance()
}

func (s *WalletService) refreshBalance() {
	f := s.registry.Facts()
	if f.Address == "" {
		return
	}
	s.balances.refresh(f.Address, f.ChainID)
}

// Reset closes everything the transport knows about and returns the
// machine to Ready. Housekeeping for a stuck or corrupted pairing state.
func (s *WalletService) Reset(ctx context.Context) error {
	if !s.registry.Initialized() {
		return core.ErrNotInitialized
	}
	s.CancelConnect()
	s.cleanupStale(ctx)
	if sess, ok := s.registry.Session(); ok {
		s.registry.ClearSession(sess.Topic)
	}
	s.registry.ClearProposal()
	s.registry.SetState(core.StateReady)
	s.logger.Info("wallet state reset")
	return nil
}

// Close stops background work and tears down the transport.
func (s *WalletService) Close() error {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.balances.close()
	})
	return s.transport.Close()
}

// eventLoop is the single consumer of transport push events. It serializes
// all wallet-initiated state changes.
func (s *WalletService) eventLoop() {
	for {
		select {
		case <-s.stop:
			return
		case ev, ok := <-s.transport.Events():
			if !ok {
				return
			}
			switch e := ev.(type) {
			case core.SessionDelete:
				s.handleSessionDelete(e)
			case core.SessionUpdate:
				s.handleSessionUpdate(e)
			case core.SessionNotice:
				s.handleSessionNotice(e)
			default:
				s.logger.Debug("ignoring unknown transport event",
					zap.String("topic", ev.EventTopic()))
			}
		}
	}
}

// handleSessionDelete applies a wallet-side close. A delete for the topic
// of a pending Connect aborts the wait immediately; a delete for the
// current session tears it down. Deletes for unknown topics are ignored.
func (s *WalletService) handleSessionDelete(e core.SessionDelete) {
	s.mu.Lock()
	watch := s.watch
	s.mu.Unlock()
	if watch != nil && watch.topic == e.Topic {
		watch.abortOnce.Do(func() { close(watch.abort) })
		return
	}

	sess, ok := s.registry.Session()
	if !ok || sess.Topic != e.Topic {
		s.logger.Debug("session delete for unknown topic", zap.String("topic", e.Topic))
		return
	}

	acct, _ := sess.PrimaryAccount()
	s.registry.ClearSession(e.Topic)
	s.registry.Transition(core.StateConnected, core.StateReady)
	s.balances.invalidate()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.events.PublishDisconnected(ctx, acct.Address, e.Reason.Message); err != nil {
		s.logger.Warn("failed to publish disconnected event", zap.Error(err))
	}
	s.notifier.Notify(ports.NotifyWarn, "Wallet closed the session")
	s.logger.Info("session deleted by wallet",
		zap.String("topic", e.Topic), zap.Int("code", e.Reason.Code))
}

func (s *WalletService) handleSessionUpdate(e core.SessionUpdate) {
	before := s.registry.Facts()
	if !s.registry.UpdateAccounts(e.Topic, e.Accounts, e.Namespaces) {
		s.logger.Debug("session update for unknown topic", zap.String("topic", e.Topic))
		return
	}

	after := s.registry.Facts()
	if after.Address != before.Address || after.ChainID != before.ChainID {
		s.refreshBalance()
	}
	s.logger.Info("session updated",
		zap.String("topic", e.Topic), zap.Int("accounts", len(e.Accounts)))
}

func (s *WalletService) handleSessionNotice(e core.SessionNotice) {
	sess, ok := s.registry.Session()
	if !ok || sess.Topic != e.Topic {
		return
	}

	switch e.Name {
	case "chainChanged":
		if id, err := noticeChainID(e.Data); err == nil {
			before := s.registry.Facts()
			s.registry.SwitchChain(e.Topic, id)
			if before.ChainID != id {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := s.events.PublishChainSwitched(ctx, before.Address, id); err != nil {
					s.logger.Warn("failed to publish chain switch event", zap.Error(err))
				}
				s.refreshBalance()
			}
		} else {
			s.logger.Warn("unparseable chainChanged payload", zap.String("data", e.Data))
		}
	case "accountsChanged":
		s.refreshBalance()
	default:
		s.logger.Debug("ignoring session event", zap.String("name", e.Name))
	}
}

// noticeChainID extracts a chain id from a chainChanged payload. The data
// is the event's raw JSON value: wallets emit the id as a JSON string
// ("0x1" or "5003") or as a bare number.
func noticeChainID(data string) (int64, error) {
	var s string
	if err := json.Unmarshal([]byte(data), &s); err == nil {
		return core.ParseChainID(s)
	}
	var n json.Number
	if err := json.Unmarshal([]byte(data), &n); err == nil {
		return core.ParseChainID(n.String())
	}
	return core.ParseChainID(data)
}
