package pairing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkview-app/walletcore/core"
)

func TestURIRoundTrip(t *testing.T) {
	u := URI{
		Topic:         "a0b1c2d3",
		Version:       ProtocolVersion,
		RelayProtocol: RelayProtocolIrn,
		SymKey:        "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef",
	}

	encoded := u.Encode()
	assert.Contains(t, encoded, "wc:a0b1c2d3@2?")

	parsed, err := Parse(encoded)
	require.NoError(t, err)
	assert.Equal(t, u, parsed)
}

func TestParseDefaultsRelayProtocol(t *testing.T) {
	parsed, err := Parse("wc:topic@2?symKey=abc123")
	require.NoError(t, err)
	assert.Equal(t, RelayProtocolIrn, parsed.RelayProtocol)
}

func TestParseInvalid(t *testing.T) {
	for _, raw := range []string{
		"",
		"http://example.com",
		"wc:@2?symKey=abc",
		"wc:topic?symKey=abc",
		"wc:topic@x?symKey=abc",
		"wc:topic@2",
		"wc:topic@2?relay-protocol=irn",
	} {
		_, err := Parse(raw)
		assert.ErrorIs(t, err, core.ErrInvalidURI, "input %q", raw)
	}
}

func TestRequirements(t *testing.T) {
	ns, err := Requirements([]string{"eip155:5003"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"eip155:5003"}, ns.Chains)
	assert.Equal(t, DefaultMethods, ns.Methods)
	assert.Equal(t, DefaultEvents, ns.Events)
}

func TestRequirementsEmptyChains(t *testing.T) {
	_, err := Requirements(nil, nil, nil)
	assert.ErrorIs(t, err, core.ErrEmptyChains)
}

func TestRequirementsBadChainRef(t *testing.T) {
	_, err := Requirements([]string{"eip155:banana"}, nil, nil)
	assert.ErrorIs(t, err, core.ErrInvalidChainID)
}

func TestQRPNG(t *testing.T) {
	png, err := QRPNG("wc:topic@2?relay-protocol=irn&symKey=abc", 0)
	require.NoError(t, err)
	// PNG magic header.
	require.GreaterOrEqual(t, len(png), 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}
