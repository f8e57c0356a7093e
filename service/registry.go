package service

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/parkview-app/walletcore/core"
)

// Registry is the single authoritative view of the connection lifecycle.
// All mutations flow through the wallet service; readers may snapshot it
// concurrently via Facts.
type Registry struct {
	mu             sync.RWMutex
	state          core.State
	initialized    bool
	session        *core.Session
	proposal       *core.Proposal
	balance        *decimal.Decimal
	balanceStale   bool
	defaultChainID int64
}

func NewRegistry(defaultChainID int64) *Registry {
	return &Registry{state: core.StateIdle, defaultChainID: defaultChainID}
}

// Facts derives the public snapshot. Address and chain id always come from
// the first bound account of the current session; with no session the chain
// id falls back to the configured default.
func (r *Registry) Facts() core.Facts {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f := core.Facts{
		State:         r.state,
		ChainID:       r.defaultChainID,
		IsInitialized: r.initialized,
		IsConnecting:  r.state == core.StateConnecting,
	}
	if r.session != nil {
		if acct, ok := r.session.PrimaryAccount(); ok {
			f.Address = acct.Address
			f.ChainID = acct.ChainID
			f.IsConnected = true
		}
	}
	if r.balance != nil {
		b := *r.balance
		f.Balance = &b
		f.BalanceStale = r.balanceStale
	}
	return f
}

func (r *Registry) State() core.State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Registry) SetState(s core.State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Transition moves to the target state only when the current state matches.
func (r *Registry) Transition(from, to core.State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != from {
		return false
	}
	r.state = to
	return true
}

func (r *Registry) SetInitialized() {
	r.mu.Lock()
	r.initialized = true
	r.mu.Unlock()
}

func (r *Registry) Initialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.initialized
}

func (r *Registry) Session() (core.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.session == nil {
		return core.Session{}, false
	}
	return *r.session, true
}

func (r *Registry) SetSession(s core.Session) {
	r.mu.Lock()
	r.session = &s
	r.balance = nil
	r.balanceStale = false
	r.mu.Unlock()
}

// ClearSession drops the session only when its topic matches, so a stale
// delete for an old topic cannot tear down a newer session.
func (r *Registry) ClearSession(topic string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil || r.session.Topic != topic {
		return false
	}
	r.session = nil
	r.balance = nil
	r.balanceStale = false
	return true
}

// UpdateAccounts applies a session_update to the current session. Updates
// for other topics are ignored; an update never creates a session.
func (r *Registry) UpdateAccounts(topic string, accounts []core.Account, ns core.Namespaces) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil || r.session.Topic != topic {
		return false
	}
	r.session.Accounts = accounts
	r.session.Namespaces = ns
	return true
}

// SwitchChain rebinds the first account of the current session to the target
// chain. Called only after the wallet acknowledged the switch.
func (r *Registry) SwitchChain(topic string, chainID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil || r.session.Topic != topic || len(r.session.Accounts) == 0 {
		return false
	}
	r.session.Accounts[0].ChainID = chainID
	return true
}

func (r *Registry) Proposal() (core.Proposal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.proposal == nil {
		return core.Proposal{}, false
	}
	return *r.proposal, true
}

func (r *Registry) SetProposal(p core.Proposal) {
	r.mu.Lock()
	r.proposal = &p
	r.mu.Unlock()
}

func (r *Registry) ClearProposal() {
	r.mu.Lock()
	r.proposal = nil
	r.mu.Unlock()
}

func (r *Registry) SetBalance(b decimal.Decimal) {
	r.mu.Lock()
	r.balance = &b
	r.balanceStale = false
	r.mu.Unlock()
}

// MarkBalanceStale flags the last known balance as possibly outdated while
// keeping its value readable.
func (r *Registry) MarkBalanceStale() {
	r.mu.Lock()
	r.balanceStale = true
	r.mu.Unlock()
}
