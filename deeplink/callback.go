package deeplink

import (
	"fmt"
	"net/url"

	"github.com/parkview-app/walletcore/core"
)

// Callback is the connection-approval metadata a wallet sends back through
// the OS after the user acts on a request.
type Callback struct {
	Address    string
	ChainID    int64
	HasChainID bool
	Approved   bool
}

// ParseCallback decodes a wallet callback URI. Wallets are inconsistent
// about parameter names (address vs account) and chain-id encoding (hex vs
// decimal); both shapes are accepted and the chain id is normalized to its
// integer value.
func ParseCallback(raw string) (Callback, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return Callback{}, fmt.Errorf("%w: %q", core.ErrInvalidURI, raw)
	}

	params := parsed.Query()

	cb := Callback{}
	cb.Address = params.Get("address")
	if cb.Address == "" {
		cb.Address = params.Get("account")
	}

	if raw := params.Get("chainId"); raw != "" {
		id, err := core.ParseChainID(raw)
		if err != nil {
			return Callback{}, err
		}
		cb.ChainID = id
		cb.HasChainID = true
	}

	// An address in the callback means the connection was approved.
	cb.Approved = cb.Address != "" || params.Get("approved") == "true"

	return cb, nil
}
