// Package pairing implements the pairing URI codec: the wc: URI that hands
// a wallet the symmetric key and relay endpoint it needs to open an
// encrypted channel back to this client, plus the requested capability set.
package pairing

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/parkview-app/walletcore/core"
)

// ProtocolVersion is the pairing protocol version embedded in the URI.
const ProtocolVersion = 2

// RelayProtocolIrn is the default relay protocol tag.
const RelayProtocolIrn = "irn"

// DefaultMethods is the request method set proposed to wallets.
var DefaultMethods = []string{
	"eth_sendTransaction",
	"eth_signTransaction",
	"eth_sign",
	"personal_sign",
	"eth_signTypedData",
	"eth_signTypedData_v4",
}

// DefaultEvents is the session event set proposed to wallets.
var DefaultEvents = []string{"chainChanged", "accountsChanged"}

// URI is a decoded pairing URI.
type URI struct {
	Topic         string
	Version       int
	RelayProtocol string
	SymKey        string
}

// Encode renders the wc:{topic}@{version}?relay-protocol=...&symKey=... form.
func (u URI) Encode() string {
	q := url.Values{}
	q.Set("relay-protocol", u.RelayProtocol)
	q.Set("symKey", u.SymKey)
	return fmt.Sprintf("wc:%s@%d?%s", u.Topic, u.Version, q.Encode())
}

// Parse decodes a pairing URI.
func Parse(raw string) (URI, error) {
	rest, ok := strings.CutPrefix(raw, "wc:")
	if !ok {
		return URI{}, fmt.Errorf("%w: missing wc scheme", core.ErrInvalidURI)
	}

	head, query, _ := strings.Cut(rest, "?")
	topic, ver, ok := strings.Cut(head, "@")
	if !ok || topic == "" {
		return URI{}, fmt.Errorf("%w: missing topic or version", core.ErrInvalidURI)
	}

	version, err := strconv.Atoi(ver)
	if err != nil {
		return URI{}, fmt.Errorf("%w: bad version %q", core.ErrInvalidURI, ver)
	}

	params, err := url.ParseQuery(query)
	if err != nil {
		return URI{}, fmt.Errorf("%w: bad query", core.ErrInvalidURI)
	}

	u := URI{
		Topic:         topic,
		Version:       version,
		RelayProtocol: params.Get("relay-protocol"),
		SymKey:        params.Get("symKey"),
	}
	if u.SymKey == "" {
		return URI{}, fmt.Errorf("%w: missing symKey", core.ErrInvalidURI)
	}
	if u.RelayProtocol == "" {
		u.RelayProtocol = RelayProtocolIrn
	}
	return u, nil
}

// Requirements builds the namespace capability set for a proposal. The chain
// set must be non-empty; method and event sets fall back to the defaults.
func Requirements(chains []string, methods, events []string) (core.Namespaces, error) {
	if len(chains) == 0 {
		return core.Namespaces{}, core.ErrEmptyChains
	}
	for _, ref := range chains {
		if _, _, err := core.ParseChainRef(ref); err != nil {
			return core.Namespaces{}, err
		}
	}
	if len(methods) == 0 {
		methods = DefaultMethods
	}
	if len(events) == 0 {
		events = DefaultEvents
	}
	return core.Namespaces{Chains: chains, Methods: methods, Events: events}, nil
}
