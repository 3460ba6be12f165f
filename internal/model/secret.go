package model

// SecretMaterial is the sensitive part of the board record: the BIP39
// mnemonic, the optional passphrase, and the chain the keys belong to.
type SecretMaterial struct {
	Mnemonic   string
	Passphrase string
	Network    Network
}

// Blank reports whether no mnemonic is stored. A blank secret in a state
// that expects one indicates record corruption and disables derivation.
func (s SecretMaterial) Blank() bool {
	return s.Mnemonic == ""
}

// Wipe overwrites the secret fields in memory after use.
func (s *SecretMaterial) Wipe() {
	s.Mnemonic = ""
	s.Passphrase = ""
	s.Network = Mainnet
}

// Record is the full persisted board state. Every field survives power
// cycles; RestartCounter additionally survives a device format.
type Record struct {
	Status         LifecycleStatus
	Secret         SecretMaterial
	RestartCounter int32
}

// DefaultRecord is the record assumed for a board whose storage has never
// been written, or whose keys cannot be read back.
func DefaultRecord() Record {
	return Record{
		Status:         StatusUnknown,
		Secret:         SecretMaterial{Network: Testnet},
		RestartCounter: 0,
	}
}
