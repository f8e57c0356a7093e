// Package relay implements the wallet session transport over a relay
// websocket: pairing proposals, session settlement, request relaying, and
// the inbound push-event stream.
package relay

import (
	"context"
	"crypto/ecdsa"
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

const (
	sessionKeyPrefix = "wc@2:session:"
	pairingKeyPrefix = "wc@2:pairing:"

	proposalTTL       = 120 * time.Second
	defaultSessionTTL = 7 * 24 * time.Hour

	tagSessionPropose = 1100
	tagSessionRequest = 1108
	tagSessionDelete  = 1112

	// rpcUserRejected is the error code wallets use for a user decline.
	rpcUserRejected = 4001
)

// Metadata identifies this client to wallets.
type Metadata struct {
	Name        string
	Description string
	URL         string
	Icons       []string
}

// Config configures the relay transport.
type Config struct {
	RelayURL  string
	ProjectID string
	AuthKey   *ecdsa.PrivateKey
	Metadata  Metadata
}

type sessionRecord struct {
	Session core.Session `json:"session"`
	SymKey  string       `json:"sym_key"`
}

type pairingRecord struct {
	Pairing core.Pairing `json:"pairing"`
	SymKey  string       `json:"sym_key"`
}

type pendingProposal struct {
	pairingTopic string
	pairingKey   string
	ch           chan ports.ApprovalResult
}

// Transport is the relay-backed SignTransport.
type Transport struct {
	cfg    Config
	store  ports.SessionStore
	logger *zap.Logger

	client *Client

	mu        sync.Mutex
	sessions  map[string]sessionRecord
	pairings  map[string]pairingRecord
	proposals map[string]*pendingProposal   // keyed by pairing topic
	inflight  map[int64]chan wireMessage    // session request correlation
	nextReqID int64

	events chan core.Event
}

// New creates a relay transport persisting through the given store.
func New(cfg Config, store ports.SessionStore, logger *zap.Logger) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{
		cfg:       cfg,
		store:     store,
		logger:    logger,
		sessions:  make(map[string]sessionRecord),
		pairings:  make(map[string]pairingRecord),
		proposals: make(map[string]*pendingProposal),
		inflight:  make(map[int64]chan wireMessage),
		events:    make(chan core.Event, 16),
	}
}

var _ ports.SignTransport = (*Transport)(nil)

// Init dials the relay and restores persisted sessions and pairings. A
// record that fails to decode is dropped and treated as absent.
func (t *Transport) Init(ctx context.Context) error {
	client, err := DialRelay(ctx, t.cfg.RelayURL, t.cfg.ProjectID, t.cfg.AuthKey, t.logger)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrTransportFailure, err)
	}
	t.client = client
	client.SetMessageHandler(t.handleMessage)

	t.restore(ctx)
	return nil
}

func (t *Transport) restore(ctx context.Context) {
	keys, err := t.store.Keys(ctx)
	if err != nil {
		t.logger.Warn("session store unreadable, starting empty", zap.Error(err))
		return
	}

	for _, key := range keys {
		val, found, err := t.store.Get(ctx, key)
		if err != nil || !found {
			continue
		}

		switch {
		case len(key) > len(sessionKeyPrefix) && key[:len(sessionKeyPrefix)] == sessionKeyPrefix:
			var rec sessionRecord
			if json.Unmarshal([]byte(val), &rec) != nil || rec.Session.Topic == "" {
				t.logger.Warn("dropping undecodable session record", zap.String("key", key))
				_ = t.store.Remove(ctx, key)
				continue
			}
			t.mu.Lock()
			t.sessions[rec.Session.Topic] = rec
			t.mu.Unlock()
			if err := t.client.Subscribe(ctx, rec.Session.Topic); err != nil {
				t.logger.Warn("failed to resubscribe session", zap.String("topic", rec.Session.Topic), zap.Error(err))
			}

		case len(key) > len(pairingKeyPrefix) && key[:len(pairingKeyPrefix)] == pairingKeyPrefix:
			var rec pairingRecord
			if json.Unmarshal([]byte(val), &rec) != nil || rec.Pairing.Topic == "" {
				t.logger.Warn("dropping undecodable pairing record", zap.String("key", key))
				_ = t.store.Remove(ctx, key)
				continue
			}
			t.mu.Lock()
			t.pairings[rec.Pairing.Topic] = rec
			t.mu.Unlock()
		}
	}

	t.mu.Lock()
	nSessions, nPairings := len(t.sessions), len(t.pairings)
	t.mu.Unlock()
	t.logger.Info("restored transport state",
		zap.Int("sessions", nSessions), zap.Int("pairings", nPairings))
}

// Propose creates a pairing, announces the session proposal on it, and
// returns a channel that yields the settlement or rejection.
func (t *Transport) Propose(ctx context.Context, ns core.Namespaces) (core.Proposal, <-chan ports.ApprovalResult, error) {
	if t.client == nil {
		return core.Proposal{}, nil, core.ErrNotInitialized
	}

	symKey, err := GenerateSymKey()
	if err != nil {
		return core.Proposal{}, nil, err
	}
	topic, err := TopicFromKey(symKey)
	if err != nil {
		return core.Proposal{}, nil, err
	}

	if err := t.client.Subscribe(ctx, topic); err != nil {
		return core.Proposal{}, nil, fmt.Errorf("%w: %v", core.ErrTransportFailure, err)
	}

	now := time.Now()
	rec := pairingRecord{
		Pairing: core.Pairing{Topic: topic, CreatedAt: now, ExpiresAt: now.Add(proposalTTL)},
		SymKey:  symKey,
	}
	t.persistPairing(ctx, rec)

	payload, err := json.Marshal(proposePayload{
		Proposer: metadata(t.cfg.Metadata),
		Namespaces: namespacesWire{
			Chains:  ns.Chains,
			Methods: ns.Methods,
			Events:  ns.Events,
		},
	})
	if err != nil {
		return core.Proposal{}, nil, fmt.Errorf("failed to marshal proposal: %w", err)
	}

	msg := wireMessage{JSONRPC: "2.0", ID: t.reqID(), Method: wcSessionPropose, Params: payload}
	if err := t.publishWire(ctx, topic, symKey, msg, tagSessionPropose); err != nil {
		return core.Proposal{}, nil, err
	}

	ch := make(chan ports.ApprovalResult, 1)
	t.mu.Lock()
	t.proposals[topic] = &pendingProposal{pairingTopic: topic, pairingKey: symKey, ch: ch}
	t.mu.Unlock()

	uri := pairing.URI{
		Topic:         topic,
		Version:       pairing.ProtocolVersion,
		RelayProtocol: pairing.RelayProtocolIrn,
		SymKey:        symKey,
	}

	return core.Proposal{
		URI:        uri.Encode(),
		Topic:      topic,
		Namespaces: ns,
		CreatedAt:  now,
		ExpiresAt:  now.Add(proposalTTL),
	}, ch, nil
}

// Request forwards a session request and blocks for the correlated response.
func (t *Transport) Request(ctx context.Context, topic string, chainID int64, method string, params any) (json.RawMessage, error) {
	t.mu.Lock()
	rec, ok := t.sessions[topic]
	t.mu.Unlock()
	if !ok {
		return nil, core.ErrNotConnected
	}

	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request params: %w", err)
	}

	payload, err := json.Marshal(sessionRequestPayload{
		ChainID: core.ChainRef(core.NamespaceEIP155, chainID),
		Request: sessionRequestBody{Method: method, Params: rawParams},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session request: %w", err)
	}

	id := t.reqID()
	respCh := make(chan wireMessage, 1)
	t.mu.Lock()
	t.inflight[id] = respCh
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.inflight, id)
		t.mu.Unlock()
	}()

	msg := wireMessage{JSONRPC: "2.0", ID: id, Method: wcSessionRequest, Params: payload}
	if err := t.publishWire(ctx, topic, rec.SymKey, msg, tagSessionRequest); err != nil {
		return nil, err
	}

	// No transport-imposed deadline: the user may sit on the wallet's
	// confirmation screen indefinitely.
	select {
	case resp := <-respCh:
		if resp.Error != nil {
			if resp.Error.Code == rpcUserRejected {
				return nil, fmt.Errorf("%w: %s", core.ErrUserRejected, resp.Error.Message)
			}
			return nil, fmt.Errorf("%w: %d %s", core.ErrTransportFailure, resp.Error.Code, resp.Error.Message)
		}
		return resp.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.client.Done():
		return nil, core.ErrTransportFailure
	}
}

// Disconnect closes a session. The local record is removed even when the
// far end cannot be told.
func (t *Transport) Disconnect(ctx context.Context, topic string, reason core.Reason) error {
	t.mu.Lock()
	rec, ok := t.sessions[topic]
	delete(t.sessions, topic)
	t.mu.Unlock()
	if !ok {
		return nil
	}

	_ = t.store.Remove(ctx, sessionKeyPrefix+topic)

	payload, _ := json.Marshal(deletePayload{Code: reason.Code, Message: reason.Message})
	msg := wireMessage{JSONRPC: "2.0", ID: t.reqID(), Method: wcSessionDelete, Params: payload}
	if err := t.publishWire(ctx, topic, rec.SymKey, msg, tagSessionDelete); err != nil {
		return err
	}
	return t.client.Unsubscribe(ctx, topic)
}

// Sessions lists known sessions.
func (t *Transport) Sessions() []core.Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]core.Session, 0, len(t.sessions))
	for _, rec := range t.sessions {
		out = append(out, rec.Session)
	}
	return out
}

// Pairings lists known pairings, orphaned ones included.
func (t *Transport) Pairings() []core.Pairing {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]core.Pairing, 0, len(t.pairings))
	for _, rec := range t.pairings {
		out = append(out, rec.Pairing)
	}
	return out
}

// DisconnectPairing closes a pairing independently of any session.
func (t *Transport) DisconnectPairing(ctx context.Context, topic string) error {
	t.mu.Lock()
	rec, ok := t.pairings[topic]
	delete(t.pairings, topic)
	pending, hasPending := t.proposals[topic]
	delete(t.proposals, topic)
	t.mu.Unlock()
	if !ok {
		return nil
	}

	if hasPending {
		pending.ch <- ports.ApprovalResult{Err: core.ErrConnectCancelled}
	}

	_ = t.store.Remove(ctx, pairingKeyPrefix+topic)

	payload, _ := json.Marshal(deletePayload{Code: core.ReasonUserDisconnected.Code, Message: "pairing closed"})
	msg := wireMessage{JSONRPC: "2.0", ID: t.reqID(), Method: wcSessionDelete, Params: payload}
	if err := t.publishWire(ctx, topic, rec.SymKey, msg, tagSessionDelete); err != nil {
		return err
	}
	return t.client.Unsubscribe(ctx, topic)
}

// Events is the inbound wallet push-event channel.
func (t *Transport) Events() <-chan core.Event {
	return t.events
}

// Close tears the relay connection down and fails any pending proposal.
func (t *Transport) Close() error {
	t.mu.Lock()
	for topic, pending := range t.proposals {
		pending.ch <- ports.ApprovalResult{Err: core.ErrTransportFailure}
		delete(t.proposals, topic)
	}
	t.mu.Unlock()

	if t.client != nil {
		return t.client.Close()
	}
	return nil
}

func (t *Transport) reqID() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextReqID++
	return t.nextReqID
}

func (t *Transport) publishWire(ctx context.Context, topic, symKey string, msg wireMessage, tag int) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal wire message: %w", err)
	}
	envelope, err := Seal(symKey, raw)
	if err != nil {
		return err
	}
	if err := t.client.Publish(ctx, topic, envelope, tag); err != nil {
		return fmt.Errorf("%w: %v", core.ErrTransportFailure, err)
	}
	return nil
}

func (t *Transport) persistPairing(ctx context.Context, rec pairingRecord) {
	t.mu.Lock()
	t.pairings[rec.Pairing.Topic] = rec
	t.mu.Unlock()

	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := t.store.Set(ctx, pairingKeyPrefix+rec.Pairing.Topic, string(raw)); err != nil {
		t.logger.Warn("failed to persist pairing", zap.Error(err))
	}
}

func (t *Transport) persistSession(ctx context.Context, rec sessionRecord) {
	t.mu.Lock()
	t.sessions[rec.Session.Topic] = rec
	t.mu.Unlock()

	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := t.store.Set(ctx, sessionKeyPrefix+rec.Session.Topic, string(raw)); err != nil {
		t.logger.Warn("failed to persist session", zap.Error(err))
	}
}

// handleMessage routes a decrypted topic message: settlement and rejection
// on pairing topics, updates/deletes/events and request responses on
// session topics.
func (t *Transport) handleMessage(topic, envelope string) {
	t.mu.Lock()
	var symKey string
	if rec, ok := t.sessions[topic]; ok {
		symKey = rec.SymKey
	} else if rec, ok := t.pairings[topic]; ok {
		symKey = rec.SymKey
	}
	t.mu.Unlock()
	if symKey == "" {
		t.logger.Debug("message on unknown topic", zap.String("topic", topic))
		return
	}

	plaintext, err := Open(symKey, envelope)
	if err != nil {
		t.logger.Warn("failed to open envelope", zap.String("topic", topic), zap.Error(err))
		return
	}

	var msg wireMessage
	if err := json.Unmarshal(plaintext, &msg); err != nil {
		t.logger.Warn("undecodable wire message", zap.String("topic", topic), zap.Error(err))
		return
	}

	switch msg.Method {
	case wcSessionSettle:
		t.handleSettle(topic, symKey, msg)
	case wcSessionReject:
		t.handleReject(topic, msg)
	case wcSessionUpdate:
		t.handleUpdate(topic, msg)
	case wcSessionDelete:
		t.handleDelete(topic, msg)
	case wcSessionEvent:
		t.handleSessionEvent(topic, msg)
	case "":
		// Correlated response to one of our session requests.
		t.mu.Lock()
		ch, ok := t.inflight[msg.ID]
		t.mu.Unlock()
		if ok {
			ch <- msg
		}
	default:
		t.logger.Debug("ignoring wire method", zap.String("method", msg.Method))
	}
}

func (t *Transport) handleSettle(pairingTopic, pairingKey string, msg wireMessage) {
	ctx := context.Background()

	var payload settlePayload
	if err := json.Unmarshal(msg.Params, &payload); err != nil {
		t.logger.Warn("undecodable settle payload", zap.Error(err))
		return
	}

	nonce, err := hex.DecodeString(payload.Nonce)
	if err != nil {
		t.logger.Warn("settle nonce not hex", zap.Error(err))
		return
	}
	sessionKey, err := DeriveSessionKey(pairingKey, nonce)
	if err != nil {
		t.logger.Warn("failed to derive session key", zap.Error(err))
		return
	}
	sessionTopic, err := TopicFromKey(sessionKey)
	if err != nil {
		return
	}

	accounts := parseAccounts(payload.Accounts, t.logger)

	expiry := time.Unix(payload.Expiry, 0)
	if payload.Expiry == 0 {
		expiry = time.Now().Add(defaultSessionTTL)
	}

	session := core.Session{
		Topic:    sessionTopic,
		Accounts: accounts,
		Namespaces: core.Namespaces{
			Chains:  payload.Namespaces.Chains,
			Methods: payload.Namespaces.Methods,
			Events:  payload.Namespaces.Events,
		},
		IssuedAt:  time.Now(),
		ExpiresAt: expiry,
	}

	if err := t.client.Subscribe(ctx, sessionTopic); err != nil {
		t.logger.Warn("failed to subscribe settled session", zap.Error(err))
	}
	t.persistSession(ctx, sessionRecord{Session: session, SymKey: sessionKey})

	// The pairing settled; keep it but mark it active.
	t.mu.Lock()
	if rec, ok := t.pairings[pairingTopic]; ok {
		rec.Pairing.Active = true
		t.pairings[pairingTopic] = rec
	}
	pending, hasPending := t.proposals[pairingTopic]
	delete(t.proposals, pairingTopic)
	t.mu.Unlock()

	if hasPending {
		pending.ch <- ports.ApprovalResult{Session: session}
	}
}

func (t *Transport) handleReject(pairingTopic string, msg wireMessage) {
	var payload rejectPayload
	_ = json.Unmarshal(msg.Params, &payload)

	t.mu.Lock()
	pending, hasPending := t.proposals[pairingTopic]
	delete(t.proposals, pairingTopic)
	t.mu.Unlock()

	if hasPending {
		pending.ch <- ports.ApprovalResult{
			Err: fmt.Errorf("%w: %s", core.ErrUserRejected, payload.Message),
		}
	}
}

func (t *Transport) handleUpdate(topic string, msg wireMessage) {
	var payload updatePayload
	if err := json.Unmarshal(msg.Params, &payload); err != nil {
		t.logger.Warn("undecodable update payload", zap.Error(err))
		return
	}

	accounts := parseAccounts(payload.Accounts, t.logger)

	t.mu.Lock()
	rec, ok := t.sessions[topic]
	if ok {
		rec.Session.Accounts = accounts
		rec.Session.Namespaces = core.Namespaces{
			Chains:  payload.Namespaces.Chains,
			Methods: payload.Namespaces.Methods,
			Events:  payload.Namespaces.Events,
		}
		t.sessions[topic] = rec
	}
	t.mu.Unlock()
	if ok {
		t.persistSession(context.Background(), rec)
	}

	t.emit(core.SessionUpdate{Topic: topic, Accounts: accounts, Namespaces: core.Namespaces{
		Chains:  payload.Namespaces.Chains,
		Methods: payload.Namespaces.Methods,
		Events:  payload.Namespaces.Events,
	}})
}

func (t *Transport) handleDelete(topic string, msg wireMessage) {
	var payload deletePayload
	_ = json.Unmarshal(msg.Params, &payload)

	t.mu.Lock()
	delete(t.sessions, topic)
	delete(t.pairings, topic)
	pending, hasPending := t.proposals[topic]
	delete(t.proposals, topic)
	t.mu.Unlock()
	_ = t.store.Remove(context.Background(), sessionKeyPrefix+topic)
	_ = t.store.Remove(context.Background(), pairingKeyPrefix+topic)

	if hasPending {
		pending.ch <- ports.ApprovalResult{
			Err: fmt.Errorf("%w: pairing closed by wallet", core.ErrConnectCancelled),
		}
	}

	t.emit(core.SessionDelete{
		Topic:  topic,
		Reason: core.Reason{Code: payload.Code, Message: payload.Message},
	})
}

func (t *Transport) handleSessionEvent(topic string, msg wireMessage) {
	var payload eventPayload
	if err := json.Unmarshal(msg.Params, &payload); err != nil {
		return
	}

	var chainID int64
	if payload.ChainID != "" {
		if _, id, err := core.ParseChainRef(payload.ChainID); err == nil {
			chainID = id
		}
	}

	t.emit(core.SessionNotice{
		Topic:   topic,
		ChainID: chainID,
		Name:    payload.Event.Name,
		Data:    string(payload.Event.Data),
	})
}

// emit delivers an event to the consumer. session_delete is authoritative
// and is never dropped; the send waits for channel capacity. Other events
// are best-effort under backpressure.
func (t *Transport) emit(ev core.Event) {
	if _, authoritative := ev.(core.SessionDelete); authoritative {
		t.events <- ev
		return
	}
	select {
	case t.events <- ev:
	default:
		t.logger.Warn("event channel full, dropping event",
			zap.String("topic", ev.EventTopic()))
	}
}

func parseAccounts(raw []string, logger *zap.Logger) []core.Account {
	accounts := make([]core.Account, 0, len(raw))
	for _, s := range raw {
		acct, err := core.ParseAccount(s)
		if err != nil {
			logger.Warn("skipping invalid account", zap.String("account", s))
			continue
		}
		accounts = append(accounts, acct)
	}
	return accounts
}
