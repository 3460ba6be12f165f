// Package publish renders the board's outward files onto the volume: the
// help text, the network indicator, the per-purpose account files and, on
// an unlocked board, the secret echoes.
package publish

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/valerio-vaccaro/BitFloppy/internal/model"
	"github.com/valerio-vaccaro/BitFloppy/internal/volume"
)

// Root-level file names. Together with the trigger names these form the
// device's user protocol, so they are spelled exactly, not derived.
const (
	HelpFile           = "README.txt"
	LogFile            = "log.txt"
	NetworkFile        = "network.txt"
	MnemonicEchoFile   = "mnemonic.txt"
	PassphraseEchoFile = "passphrase.txt"
	UnlockedMarkerFile = "UNLOCKED.txt"
)

// Per-purpose file names inside each bip directory.
const (
	XPrivFile     = "xpriv.txt"
	XPubFile      = "xpub.txt"
	AddressesFile = "addresses.txt"
	ChangesFile   = "changes.txt"
	QRFile        = "qr.txt"
)

const helpText = `BITFLOPPY
---------

Unlock

If you want the board to show the mnemonic, the passphrase, the account
xpriv keys and the per-address private keys:
- write a file named UNLOCK.txt,
- unmount the volume,
- restart the board.
The board honors the request only while a locked secret is present. The
secret files appear next to the address files on the following boot.

---------

Format

If you want to replace the stored secret:
- write a file named FORMAT.txt,
- write a file named MNEMONIC.txt to supply your own mnemonic, or leave it
  out to have the board generate a fresh one,
- write a file named PASSPHRASE.txt to supply a passphrase (optional),
- write a file named NETWORK.txt containing the word testnet to select the
  test chain, or leave it out for mainnet,
- unmount the volume,
- restart the board.
The board wipes every generated file, then loads or generates the new
secret on the following boot.
`

// Publisher writes rendered files onto a mounted volume.
type Publisher struct {
	vol *volume.Volume
	log zerolog.Logger
}

// New returns a Publisher writing to vol.
func New(vol *volume.Volume, log zerolog.Logger) *Publisher {
	return &Publisher{
		vol: vol,
		log: log.With().Str("component", "publish").Logger(),
	}
}

// WriteHelp publishes the protocol description. It is rewritten on every
// boot so a user can always recover the instructions by power cycling.
func (p *Publisher) WriteHelp() error {
	if err := p.vol.WriteFile(HelpFile, []byte(helpText)); err != nil {
		return fmt.Errorf("failed to write help file: %w", err)
	}
	return nil
}

// PublishNetwork writes the chain indicator file.
func (p *Publisher) PublishNetwork(network model.Network) error {
	if err := p.vol.WriteFile(NetworkFile, []byte(network.String())); err != nil {
		return fmt.Errorf("failed to write network file: %w", err)
	}
	return nil
}

// PublishAccounts renders every account in order.
func (p *Publisher) PublishAccounts(accounts []model.DerivedAccount) error {
	for _, account := range accounts {
		if err := p.PublishAccount(account); err != nil {
			return err
		}
	}
	return nil
}

// PublishAccount renders one purpose directory: the account keys, both
// address branches and a scannable QR of the first receive address.
func (p *Publisher) PublishAccount(account model.DerivedAccount) error {
	dir := account.Purpose.Directory()

	files := []struct {
		name string
		data []byte
	}{
		{XPrivFile, line(account.XPriv.String())},
		{XPubFile, line(account.XPub)},
		{AddressesFile, renderRows(account.Receive)},
		{ChangesFile, renderRows(account.Change)},
	}
	for _, f := range files {
		if err := p.vol.WriteFile(dir+"/"+f.name, f.data); err != nil {
			return fmt.Errorf("failed to write %s/%s: %w", dir, f.name, err)
		}
	}

	if len(account.Receive) > 0 {
		qr, err := renderQR(account.Receive[0].Address)
		if err != nil {
			return fmt.Errorf("failed to render QR for %s: %w", dir, err)
		}
		if err := p.vol.WriteFile(dir+"/"+QRFile, qr); err != nil {
			return fmt.Errorf("failed to write %s/%s: %w", dir, QRFile, err)
		}
	}

	p.log.Debug().
		Str("directory", dir).
		Int("receive", len(account.Receive)).
		Int("change", len(account.Change)).
		Msg("account published")
	return nil
}

// EchoSecrets writes the cleartext secret files and the unlocked marker.
// Only called while the board status is unlocked.
func (p *Publisher) EchoSecrets(secret model.SecretMaterial) error {
	if err := p.vol.WriteFile(MnemonicEchoFile, []byte(secret.Mnemonic)); err != nil {
		return fmt.Errorf("failed to write mnemonic echo: %w", err)
	}
	if err := p.vol.WriteFile(PassphraseEchoFile, []byte(secret.Passphrase)); err != nil {
		return fmt.Errorf("failed to write passphrase echo: %w", err)
	}
	if err := p.vol.WriteFile(UnlockedMarkerFile, nil); err != nil {
		return fmt.Errorf("failed to write unlocked marker: %w", err)
	}
	return nil
}

// Wipe removes every file on the volume except the boot log, which keeps
// accumulating across formats like the restart counter does. With
// keepCustomInputs set, the user-supplied MNEMONIC.txt, PASSPHRASE.txt and
// NETWORK.txt survive so the following boot can adopt them. Returns the
// number of entries removed.
func (p *Publisher) Wipe(keepCustomInputs bool) int {
	kept := map[string]bool{
		strings.ToUpper(LogFile): true,
		"MNEMONIC.TXT":           keepCustomInputs,
		"PASSPHRASE.TXT":         keepCustomInputs,
		"NETWORK.TXT":            keepCustomInputs,
	}
	removed := 0
	for _, name := range p.vol.List("") {
		if kept[strings.ToUpper(name)] {
			continue
		}
		removed += p.vol.RemoveAll(name)
	}
	p.log.Info().Int("removed", removed).Bool("kept_custom_inputs", keepCustomInputs).Msg("volume wiped")
	return removed
}

func renderRows(rows []model.PathEntry) []byte {
	var buf bytes.Buffer
	for _, row := range rows {
		buf.WriteString(row.Path)
		buf.WriteByte('\t')
		buf.WriteString(row.Address)
		buf.WriteByte('\t')
		buf.WriteString(row.Key.String())
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func renderQR(address string) ([]byte, error) {
	qr, err := qrcode.New(address, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	return []byte(qr.ToSmallString(false)), nil
}

func line(s string) []byte {
	return []byte(s + "\n")
}
