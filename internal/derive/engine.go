package derive

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/valerio-vaccaro/BitFloppy/internal/model"
)

// AddressesPerBranch is how many rows each receive and change branch gets.
const AddressesPerBranch = 10

// Engine derives accounts from secret material. The zero value is ready to
// use; derivation is pure and the same inputs always yield the same rows.
type Engine struct{}

// Accounts derives one account per supported purpose, in publication order.
func (e Engine) Accounts(secret model.SecretMaterial, exposure Exposure) ([]model.DerivedAccount, error) {
	accounts := make([]model.DerivedAccount, 0, len(model.Purposes()))
	for _, purpose := range model.Purposes() {
		account, err := e.Account(secret, purpose, exposure)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// Account derives the account m/purpose'/coin'/0' and its first ten receive
// and change rows.
func (e Engine) Account(secret model.SecretMaterial, purpose model.Purpose, exposure Exposure) (model.DerivedAccount, error) {
	if secret.Blank() {
		return model.DerivedAccount{}, errors.New("derive: no mnemonic present")
	}
	params := chainParams(secret.Network)

	master, err := hdkeychain.NewMaster(Seed(secret.Mnemonic, secret.Passphrase), params)
	if err != nil {
		return model.DerivedAccount{}, fmt.Errorf("failed to derive master key: %w", err)
	}
	purposeKey, err := master.Derive(hdkeychain.HardenedKeyStart + uint32(purpose))
	if err != nil {
		return model.DerivedAccount{}, fmt.Errorf("failed to derive purpose key: %w", err)
	}
	coinKey, err := purposeKey.Derive(hdkeychain.HardenedKeyStart + secret.Network.CoinType())
	if err != nil {
		return model.DerivedAccount{}, fmt.Errorf("failed to derive coin key: %w", err)
	}
	accountKey, err := coinKey.Derive(hdkeychain.HardenedKeyStart)
	if err != nil {
		return model.DerivedAccount{}, fmt.Errorf("failed to derive account key: %w", err)
	}
	neutered, err := accountKey.Neuter()
	if err != nil {
		return model.DerivedAccount{}, fmt.Errorf("failed to neuter account key: %w", err)
	}

	account := model.DerivedAccount{
		Purpose: purpose,
		Network: secret.Network,
		XPub:    neutered.String(),
		XPriv:   exposure.key(accountKey.String()),
	}
	account.Receive, err = e.branch(accountKey, 0, purpose, secret.Network, params, exposure)
	if err != nil {
		return model.DerivedAccount{}, err
	}
	account.Change, err = e.branch(accountKey, 1, purpose, secret.Network, params, exposure)
	if err != nil {
		return model.DerivedAccount{}, err
	}
	return account, nil
}

// branch derives rows 0..AddressesPerBranch-1 of one change branch.
func (e Engine) branch(accountKey *hdkeychain.ExtendedKey, change uint32, purpose model.Purpose, network model.Network, params *chaincfg.Params, exposure Exposure) ([]model.PathEntry, error) {
	branchKey, err := accountKey.Derive(change)
	if err != nil {
		return nil, fmt.Errorf("failed to derive branch %d: %w", change, err)
	}
	rows := make([]model.PathEntry, 0, AddressesPerBranch)
	for index := uint32(0); index < AddressesPerBranch; index++ {
		child, err := branchKey.Derive(index)
		if err != nil {
			return nil, fmt.Errorf("failed to derive child %d/%d: %w", change, index, err)
		}
		priv, err := child.ECPrivKey()
		if err != nil {
			return nil, fmt.Errorf("failed to extract private key %d/%d: %w", change, index, err)
		}
		address, err := encodeAddress(purpose, priv.PubKey(), params)
		if err != nil {
			return nil, err
		}
		wif, err := btcutil.NewWIF(priv, params, true)
		if err != nil {
			return nil, fmt.Errorf("failed to encode WIF %d/%d: %w", change, index, err)
		}
		rows = append(rows, model.PathEntry{
			Path:    fmt.Sprintf("m/%d'/%d'/0'/%d/%d", uint32(purpose), network.CoinType(), change, index),
			Address: address,
			Key:     exposure.key(wif.String()),
		})
	}
	return rows, nil
}

// encodeAddress renders the purpose's address style for a compressed key:
// legacy P2PKH for 44, P2SH-wrapped segwit for 49, native segwit for 84.
func encodeAddress(purpose model.Purpose, pub *btcec.PublicKey, params *chaincfg.Params) (string, error) {
	pkHash := btcutil.Hash160(pub.SerializeCompressed())
	switch purpose {
	case model.Purpose44:
		addr, err := btcutil.NewAddressPubKeyHash(pkHash, params)
		if err != nil {
			return "", fmt.Errorf("failed to encode P2PKH address: %w", err)
		}
		return addr.EncodeAddress(), nil
	case model.Purpose49:
		redeem := append([]byte{0x00, 0x14}, pkHash...)
		addr, err := btcutil.NewAddressScriptHash(redeem, params)
		if err != nil {
			return "", fmt.Errorf("failed to encode P2SH-P2WPKH address: %w", err)
		}
		return addr.EncodeAddress(), nil
	case model.Purpose84:
		addr, err := btcutil.NewAddressWitnessPubKeyHash(pkHash, params)
		if err != nil {
			return "", fmt.Errorf("failed to encode P2WPKH address: %w", err)
		}
		return addr.EncodeAddress(), nil
	default:
		return "", fmt.Errorf("derive: unsupported purpose %d", uint32(purpose))
	}
}

func chainParams(network model.Network) *chaincfg.Params {
	if network.IsTestnet() {
		return &chaincfg.TestNet3Params
	}
	return &chaincfg.MainNetParams
}
