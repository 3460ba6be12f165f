// Package derive turns the board's secret material into the published
// account hierarchy: one account per supported purpose, ten receive and ten
// change rows each, with private material gated behind an Exposure.
package derive

import (
	"crypto/sha512"
	"errors"
	"fmt"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/unicode/norm"
)

const (
	seedIterations = 2048
	seedLen        = 64
	seedSaltPrefix = "mnemonic"
)

// Seed stretches a mnemonic sentence and passphrase into the 64-byte BIP39
// seed. Both inputs are NFKD-normalized first, so non-ASCII passphrases
// derive the same keys regardless of how the host composed them.
func Seed(mnemonic, passphrase string) []byte {
	m := norm.NFKD.String(mnemonic)
	p := norm.NFKD.String(passphrase)
	return pbkdf2.Key([]byte(m), []byte(seedSaltPrefix+p), seedIterations, seedLen, sha512.New)
}

// GenerateMnemonic draws fresh entropy and encodes it as a mnemonic
// sentence. entropyBits follows BIP39: a multiple of 32 between 128 and 256.
func GenerateMnemonic(entropyBits int) (string, error) {
	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return "", fmt.Errorf("failed to draw entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("failed to encode mnemonic: %w", err)
	}
	return mnemonic, nil
}

// ValidateMnemonic checks sentence length, wordlist membership and checksum.
func ValidateMnemonic(mnemonic string) error {
	if !bip39.IsMnemonicValid(mnemonic) {
		return errors.New("derive: not a valid mnemonic sentence")
	}
	return nil
}
