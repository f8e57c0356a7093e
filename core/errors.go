package core

import "errors"

var (
	// ErrNotInitialized is returned when an operation runs before Initialize.
	ErrNotInitialized = errors.New("wallet client not initialized")

	// ErrNotConnected is returned when an operation requires an active session.
	ErrNotConnected = errors.New("no active wallet session")

	// ErrAlreadyConnecting is returned when a connect is already pending.
	ErrAlreadyConnecting = errors.New("connect already in progress")

	// ErrUserRejected is returned when the wallet reports the user declined.
	ErrUserRejected = errors.New("user rejected the request")

	// ErrApprovalTimeout is returned when the approval deadline elapses.
	ErrApprovalTimeout = errors.New("wallet approval timed out")

	// ErrConnectCancelled is returned when a pending connect is cancelled locally.
	ErrConnectCancelled = errors.New("connect cancelled")

	// ErrChainMismatch is returned when a request targets a chain the active
	// session does not support. Checked locally before any transport send.
	ErrChainMismatch = errors.New("session does not support requested chain")

	// ErrTransportFailure is returned when the wallet could not be reached:
	// no deep-link candidate opened, or the underlying send failed.
	ErrTransportFailure = errors.New("wallet transport failure")

	// ErrInvalidAccount is returned for a malformed namespace:chainId:address string.
	ErrInvalidAccount = errors.New("invalid account identifier")

	// ErrInvalidChainID is returned for a chain identifier that is neither
	// decimal nor 0x-prefixed hex.
	ErrInvalidChainID = errors.New("invalid chain identifier")

	// ErrInvalidURI is returned for a malformed pairing URI.
	ErrInvalidURI = errors.New("invalid pairing uri")

	// ErrEmptyChains is returned when a proposal requests no chains.
	ErrEmptyChains = errors.New("proposal requires at least one chain")

	// ErrStoreOperationFailed is returned when a session store operation fails.
	ErrStoreOperationFailed = errors.New("store operation failed")
)
