// Package config loads runtime configuration from the environment, with an
// optional .env file for development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/parkview-app/walletcore/core"
)

// Defaults target Mantle Sepolia, the network the reference deployment
// runs on.
const (
	DefaultChainID         = 5003
	DefaultRPCURL          = "https://rpc.sepolia.mantle.xyz"
	DefaultRelayURL        = "wss://relay.walletconnect.com"
	DefaultHTTPAddr        = ":8080"
	DefaultApprovalTimeout = 120 * time.Second
)

// Config is the full runtime configuration of walletd.
type Config struct {
	// ProjectID authenticates against the relay.
	ProjectID string

	// RelayURL is the websocket endpoint of the pairing relay.
	RelayURL string

	// RelayAuthKey is a PEM- or hex-encoded ES256 private key for relay
	// auth tokens. Empty means a fresh ephemeral key is generated.
	RelayAuthKey string

	// ChainID is the chain proposals are bound to.
	ChainID int64

	// RPCURL is the JSON-RPC endpoint used for balance and contract reads.
	RPCURL string

	// RedisURL enables the durable session store and the event stream
	// publisher. Empty selects the in-memory store and a Go-channel
	// publisher.
	RedisURL string

	HTTPAddr        string
	ApprovalTimeout time.Duration

	// StaticMode selects the read-only transport variant: no relay, the
	// wallet address is supplied through the callback endpoint.
	StaticMode bool
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first; a missing one is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ProjectID:       os.Getenv("WALLET_PROJECT_ID"),
		RelayURL:        envOr("WALLET_RELAY_URL", DefaultRelayURL),
		RelayAuthKey:    os.Getenv("WALLET_RELAY_AUTH_KEY"),
		RPCURL:          envOr("WALLET_RPC_URL", DefaultRPCURL),
		RedisURL:        os.Getenv("WALLET_REDIS_URL"),
		HTTPAddr:        envOr("WALLET_HTTP_ADDR", DefaultHTTPAddr),
		ChainID:         DefaultChainID,
		ApprovalTimeout: DefaultApprovalTimeout,
		StaticMode:      os.Getenv("WALLET_STATIC_MODE") == "true",
	}

	if raw := os.Getenv("WALLET_CHAIN_ID"); raw != "" {
		id, err := core.ParseChainID(raw)
		if err != nil {
			return Config{}, fmt.Errorf("WALLET_CHAIN_ID: %w", err)
		}
		cfg.ChainID = id
	}

	if raw := os.Getenv("WALLET_APPROVAL_TIMEOUT"); raw != "" {
		d, err := parseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("WALLET_APPROVAL_TIMEOUT: %w", err)
		}
		cfg.ApprovalTimeout = d
	}

	if !cfg.StaticMode && cfg.ProjectID == "" {
		return Config{}, fmt.Errorf("WALLET_PROJECT_ID is required unless WALLET_STATIC_MODE=true")
	}
	return cfg, nil
}

// parseDuration accepts either a Go duration string or a bare number of
// seconds.
func parseDuration(raw string) (time.Duration, error) {
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("must be positive, got %d", secs)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
