package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NamespaceEIP155 is the namespace for EVM-compatible chains.
const NamespaceEIP155 = "eip155"

// Account is a chain-qualified wallet account, e.g. eip155:5003:0xABC...
type Account struct {
	Namespace string
	ChainID   int64
	Address   string
}

// ParseAccount parses a namespace:chainId:address string.
func ParseAccount(s string) (Account, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return Account{}, fmt.Errorf("%w: %q", ErrInvalidAccount, s)
	}

	chainID, err := ParseChainID(parts[1])
	if err != nil {
		return Account{}, fmt.Errorf("%w: %q", ErrInvalidAccount, s)
	}

	addr := parts[2]
	if parts[0] == NamespaceEIP155 {
		if !common.IsHexAddress(addr) {
			return Account{}, fmt.Errorf("%w: bad address in %q", ErrInvalidAccount, s)
		}
		addr = common.HexToAddress(addr).Hex()
	}

	return Account{Namespace: parts[0], ChainID: chainID, Address: addr}, nil
}

// String returns the namespace:chainId:address form.
func (a Account) String() string {
	return fmt.Sprintf("%s:%d:%s", a.Namespace, a.ChainID, a.Address)
}

// ChainRef returns the namespace:chainId form, e.g. eip155:5003.
func (a Account) ChainRef() string {
	return ChainRef(a.Namespace, a.ChainID)
}

// ChainRef formats a namespace-qualified chain identifier.
func ChainRef(namespace string, chainID int64) string {
	return fmt.Sprintf("%s:%d", namespace, chainID)
}

// ParseChainID normalizes a chain identifier string to its integer value.
// Wallets report chain IDs both as decimal ("5003") and 0x-prefixed hex
// ("0x138b") depending on the callback shape; both are accepted here so
// comparisons always happen in the integer domain.
func ParseChainID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidChainID
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		id, err := strconv.ParseInt(s[2:], 16, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidChainID, s)
		}
		return id, nil
	}

	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidChainID, s)
	}
	return id, nil
}

// ParseChainRef parses a namespace:chainId pair.
func ParseChainRef(s string) (namespace string, chainID int64, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidChainID, s)
	}
	chainID, err = ParseChainID(parts[1])
	if err != nil {
		return "", 0, err
	}
	return parts[0], chainID, nil
}

// HexChainID formats a chain ID the way wallet_switchEthereumChain expects it.
func HexChainID(chainID int64) string {
	return "0x" + strconv.FormatInt(chainID, 16)
}
