package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChainID(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"5003", 5003, false},
		{"0x138b", 5003, false},
		{"0X138B", 5003, false},
		{"1", 1, false},
		{"0x1", 1, false},
		{" 5003 ", 5003, false},
		{"", 0, true},
		{"0x", 0, true},
		{"abc", 0, true},
		{"0xzz", 0, true},
	}

	for _, tc := range cases {
		got, err := ParseChainID(tc.in)
		if tc.wantErr {
			assert.ErrorIs(t, err, ErrInvalidChainID, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestParseAccount(t *testing.T) {
	acct, err := ParseAccount("eip155:5003:0x742d35cc6634c0532925a3b844bc9e7595f0beb8")
	require.NoError(t, err)
	assert.Equal(t, "eip155", acct.Namespace)
	assert.Equal(t, int64(5003), acct.ChainID)
	// Address is normalized to its checksummed form.
	assert.Equal(t, "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb8", acct.Address)
	assert.Equal(t, "eip155:5003", acct.ChainRef())
}

func TestParseAccountHexChainID(t *testing.T) {
	acct, err := ParseAccount("eip155:0x138b:0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb8")
	require.NoError(t, err)
	assert.Equal(t, int64(5003), acct.ChainID)
}

func TestParseAccountInvalid(t *testing.T) {
	for _, in := range []string{
		"",
		"eip155:5003",
		"eip155::0xabc",
		":5003:0xabc",
		"eip155:nope:0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb8",
		"eip155:5003:not-an-address",
	} {
		_, err := ParseAccount(in)
		assert.ErrorIs(t, err, ErrInvalidAccount, "input %q", in)
	}
}

func TestHexChainID(t *testing.T) {
	assert.Equal(t, "0x138b", HexChainID(5003))
	assert.Equal(t, "0x1", HexChainID(1))
}

func TestParseChainRef(t *testing.T) {
	ns, id, err := ParseChainRef("eip155:0x138b")
	require.NoError(t, err)
	assert.Equal(t, "eip155", ns)
	assert.Equal(t, int64(5003), id)

	_, _, err = ParseChainRef("eip155")
	assert.ErrorIs(t, err, ErrInvalidChainID)
}
