package core

import "time"

// Namespaces describes the capability set requested from, or granted by, a
// wallet: which chains, which request methods, which subscribed events.
type Namespaces struct {
	Chains  []string `json:"chains"`
	Methods []string `json:"methods"`
	Events  []string `json:"events"`
}

// Proposal is an ephemeral pairing proposal, alive only while a connect is
// pending. It is owned by the connection state machine.
type Proposal struct {
	URI        string
	Topic      string
	Namespaces Namespaces
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the proposal's TTL has elapsed.
func (p Proposal) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt)
}

// Session is an approved, capability-scoped binding between this client and
// one or more wallet accounts.
type Session struct {
	Topic      string    `json:"topic"`
	Accounts   []Account `json:"accounts"`
	Namespaces Namespaces `json:"namespaces"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Valid reports whether the session can be treated as present. A session
// with zero bound accounts or a lapsed expiry is treated as absent.
func (s Session) Valid(now time.Time) bool {
	if len(s.Accounts) == 0 {
		return false
	}
	if !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt) {
		return false
	}
	return true
}

// PrimaryAccount returns the first bound account. The externally observable
// address and chain ID are always derived from it, never cached separately.
func (s Session) PrimaryAccount() (Account, bool) {
	if len(s.Accounts) == 0 {
		return Account{}, false
	}
	return s.Accounts[0], true
}

// SupportsChain reports whether chainID is in the session's bound chain set.
func (s Session) SupportsChain(chainID int64) bool {
	for _, a := range s.Accounts {
		if a.ChainID == chainID {
			return true
		}
	}
	for _, ref := range s.Namespaces.Chains {
		if _, id, err := ParseChainRef(ref); err == nil && id == chainID {
			return true
		}
	}
	return false
}

// Pairing is a transport-level link to a wallet. It may outlive the session
// it carried; an orphaned pairing left behind makes the wallet resume stale
// state on the next connect, so pairings are enumerable and closable on
// their own.
type Pairing struct {
	Topic     string    `json:"topic"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Reason is the close reason sent with a disconnect.
type Reason struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ReasonUserDisconnected is the reason attached to a user-initiated
// disconnect.
var ReasonUserDisconnected = Reason{Code: 6000, Message: "User disconnected"}

// ReasonSessionExpired closes sessions found past their expiry during
// restoration or housekeeping.
var ReasonSessionExpired = Reason{Code: 6001, Message: "Session expired"}
