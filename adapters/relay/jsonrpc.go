package relay

import "encoding/json"

// Relay-level RPC methods.
const (
	methodPublish      = "irn_publish"
	methodSubscribe    = "irn_subscribe"
	methodUnsubscribe  = "irn_unsubscribe"
	methodSubscription = "irn_subscription"
)

// Session-protocol methods carried inside encrypted envelopes.
const (
	wcSessionPropose = "wc_sessionPropose"
	wcSessionSettle  = "wc_sessionSettle"
	wcSessionReject  = "wc_sessionReject"
	wcSessionUpdate  = "wc_sessionUpdate"
	wcSessionDelete  = "wc_sessionDelete"
	wcSessionEvent   = "wc_sessionEvent"
	wcSessionRequest = "wc_sessionRequest"
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type publishParams struct {
	Topic   string `json:"topic"`
	Message string `json:"message"`
	TTL     int    `json:"ttl"`
	Tag     int    `json:"tag"`
}

type subscribeParams struct {
	Topic string `json:"topic"`
}

type subscriptionParams struct {
	ID   string           `json:"id"`
	Data subscriptionData `json:"data"`
}

type subscriptionData struct {
	Topic   string `json:"topic"`
	Message string `json:"message"`
}

// wireMessage is the decrypted payload exchanged on a topic: either a
// session-protocol request or a response correlated by id.
type wireMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// Session-protocol payload shapes.

type proposePayload struct {
	Proposer   metadata        `json:"proposer"`
	Namespaces namespacesWire  `json:"requiredNamespaces"`
}

type metadata struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Icons       []string `json:"icons"`
}

type namespacesWire struct {
	Chains  []string `json:"chains"`
	Methods []string `json:"methods"`
	Events  []string `json:"events"`
}

type settlePayload struct {
	Nonce      string         `json:"nonce"` // hex, session key derivation salt
	Accounts   []string       `json:"accounts"`
	Namespaces namespacesWire `json:"namespaces"`
	Expiry     int64          `json:"expiry"` // unix seconds
}

type rejectPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type updatePayload struct {
	Accounts   []string       `json:"accounts"`
	Namespaces namespacesWire `json:"namespaces"`
}

type deletePayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type eventPayload struct {
	ChainID string          `json:"chainId"`
	Event   sessionEventBody `json:"event"`
}

type sessionEventBody struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

type sessionRequestPayload struct {
	ChainID string             `json:"chainId"`
	Request sessionRequestBody `json:"request"`
}

type sessionRequestBody struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}
