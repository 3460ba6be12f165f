package model

import "strings"

// Network selects the Bitcoin chain used for derivation and address encoding.
type Network uint8

const (
	// Mainnet is the production Bitcoin chain (BIP44 coin type 0).
	Mainnet Network = iota
	// Testnet is the test chain (BIP44 coin type 1).
	Testnet
)

// String returns the chain name published on the volume.
func (n Network) String() string {
	if n == Testnet {
		return "testnet"
	}
	return "mainnet"
}

// CoinType returns the BIP44 coin type used in the account derivation path.
func (n Network) CoinType() uint32 {
	if n == Testnet {
		return 1
	}
	return 0
}

// IsTestnet reports whether n is the test chain, matching the record encoding.
func (n Network) IsTestnet() bool {
	return n == Testnet
}

// NetworkFromTestnetFlag maps the persisted boolean back to a Network.
func NetworkFromTestnetFlag(testnet bool) Network {
	if testnet {
		return Testnet
	}
	return Mainnet
}

// ParseNetwork interprets a user-supplied network selector. Any payload
// containing "testnet" selects the test chain; everything else is mainnet.
func ParseNetwork(payload string) Network {
	if strings.Contains(strings.ToLower(payload), "testnet") {
		return Testnet
	}
	return Mainnet
}
