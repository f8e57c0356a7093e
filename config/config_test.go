package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WALLET_PROJECT_ID", "proj-1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(5003), cfg.ChainID)
	assert.Equal(t, DefaultRPCURL, cfg.RPCURL)
	assert.Equal(t, DefaultRelayURL, cfg.RelayURL)
	assert.Equal(t, 120*time.Second, cfg.ApprovalTimeout)
	assert.False(t, cfg.StaticMode)
}

func TestLoadRequiresProjectID(t *testing.T) {
	t.Setenv("WALLET_PROJECT_ID", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadStaticModeSkipsProjectID(t *testing.T) {
	t.Setenv("WALLET_PROJECT_ID", "")
	t.Setenv("WALLET_STATIC_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.StaticMode)
}

func TestLoadChainIDAcceptsHex(t *testing.T) {
	t.Setenv("WALLET_PROJECT_ID", "proj-1")
	t.Setenv("WALLET_CHAIN_ID", "0x138b")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(5003), cfg.ChainID)
}

func TestLoadApprovalTimeoutFormats(t *testing.T) {
	t.Setenv("WALLET_PROJECT_ID", "proj-1")

	t.Setenv("WALLET_APPROVAL_TIMEOUT", "90")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.ApprovalTimeout)

	t.Setenv("WALLET_APPROVAL_TIMEOUT", "2m")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.ApprovalTimeout)

	t.Setenv("WALLET_APPROVAL_TIMEOUT", "-5")
	_, err = Load()
	assert.Error(t, err)
}
