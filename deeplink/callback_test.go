package deeplink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkview-app/walletcore/core"
)

func TestParseCallbackHexChainID(t *testing.T) {
	cb, err := ParseCallback("parkview://wallet-callback?address=0xABC0000000000000000000000000000000000001&chainId=0x138b")
	require.NoError(t, err)
	assert.Equal(t, "0xABC0000000000000000000000000000000000001", cb.Address)
	assert.True(t, cb.HasChainID)
	assert.Equal(t, int64(5003), cb.ChainID)
	assert.True(t, cb.Approved)
}

func TestParseCallbackDecimalChainID(t *testing.T) {
	cb, err := ParseCallback("parkview://wallet-callback?account=0xABC0000000000000000000000000000000000001&chainId=5003")
	require.NoError(t, err)
	// The account parameter is an accepted alias for address.
	assert.Equal(t, "0xABC0000000000000000000000000000000000001", cb.Address)
	assert.Equal(t, int64(5003), cb.ChainID)
}

func TestParseCallbackApprovedFlagOnly(t *testing.T) {
	cb, err := ParseCallback("parkview://wallet-callback?approved=true")
	require.NoError(t, err)
	assert.Empty(t, cb.Address)
	assert.False(t, cb.HasChainID)
	assert.True(t, cb.Approved)
}

func TestParseCallbackRejected(t *testing.T) {
	cb, err := ParseCallback("parkview://wallet-callback")
	require.NoError(t, err)
	assert.False(t, cb.Approved)
}

func TestParseCallbackBadChainID(t *testing.T) {
	_, err := ParseCallback("parkview://wallet-callback?address=0xABC&chainId=banana")
	assert.ErrorIs(t, err, core.ErrInvalidChainID)
}
