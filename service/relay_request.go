package service

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/parkview-app/walletcore/core"
)

// Request describes a signing or transaction request to relay to the
// wallet. ChainID is the chain the request must execute on.
type Request struct {
	Method  string
	Params  any
	ChainID int64
}

// TxParams are the fields of an eth_sendTransaction call. Value, Gas and
// the fee fields are hex quantity strings; empty fields are omitted.
type TxParams struct {
	From     string `json:"from"`
	To       string `json:"to,omitempty"`
	Value    string `json:"value,omitempty"`
	Data     string `json:"data,omitempty"`
	Gas      string `json:"gas,omitempty"`
	GasPrice string `json:"gasPrice,omitempty"`
	Nonce    string `json:"nonce,omitempty"`
}

// Relay forwards a request over the current session. A request for a chain
// the session has not bound is refused locally; the transport is never
// touched for it.
func (s *WalletService) Relay(ctx context.Context, req Request) (json.RawMessage, error) {
	sess, ok := s.registry.Session()
	if !ok {
		return nil, core.ErrNotConnected
	}
	if !sess.SupportsChain(req.ChainID) {
		return nil, fmt.Errorf("%w: session is not bound to chain %d",
			core.ErrChainMismatch, req.ChainID)
	}

	s.logger.Debug("relaying request",
		zap.String("method", req.Method), zap.Int64("chain_id", req.ChainID))

	res, err := s.transport.Request(ctx, sess.Topic, req.ChainID, req.Method, req.Params)
	if err != nil {
		return nil, fmt.Errorf("relay %s: %w", req.Method, err)
	}
	return res, nil
}

// SignMessage asks the wallet to personal_sign a message with the bound
// account and returns the signature.
func (s *WalletService) SignMessage(ctx context.Context, message string) (string, error) {
	sess, ok := s.registry.Session()
	if !ok {
		return "", core.ErrNotConnected
	}
	acct, ok := sess.PrimaryAccount()
	if !ok {
		return "", core.ErrNotConnected
	}

	res, err := s.Relay(ctx, Request{
		Method:  "personal_sign",
		Params:  []any{"0x" + hex.EncodeToString([]byte(message)), acct.Address},
		ChainID: acct.ChainID,
	})
	if err != nil {
		return "", err
	}

	var sig string
	if err := json.Unmarshal(res, &sig); err != nil {
		return "", fmt.Errorf("%w: unexpected personal_sign result: %v",
			core.ErrTransportFailure, err)
	}
	return sig, nil
}

// SendTransaction asks the wallet to sign and broadcast a transaction on
// the session's bound chain and returns the transaction hash.
func (s *WalletService) SendTransaction(ctx context.Context, tx TxParams) (string, error) {
	sess, ok := s.registry.Session()
	if !ok {
		return "", core.ErrNotConnected
	}
	acct, ok := sess.PrimaryAccount()
	if !ok {
		return "", core.ErrNotConnected
	}
	if tx.From == "" {
		tx.From = acct.Address
	}

	res, err := s.Relay(ctx, Request{
		Method:  "eth_sendTransaction",
		Params:  []any{tx},
		ChainID: acct.ChainID,
	})
	if err != nil {
		return "", err
	}

	var hash string
	if err := json.Unmarshal(res, &hash); err != nil {
		return "", fmt.Errorf("%w: unexpected eth_sendTransaction result: %v",
			core.ErrTransportFailure, err)
	}
	return hash, nil
}
