package board

import (
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/valerio-vaccaro/BitFloppy/internal/model"
	"github.com/valerio-vaccaro/BitFloppy/internal/volume"
)

// Trigger and input file names. Lookups fold case like the volume does, so
// a host writing format.txt is obeyed the same as FORMAT.txt.
const (
	TriggerFormat = "FORMAT.txt"
	TriggerUnlock = "UNLOCK.txt"
	TriggerSign   = "PSBT.txt"

	InputMnemonic   = "MNEMONIC.txt"
	InputPassphrase = "PASSPHRASE.txt"
	InputNetwork    = "NETWORK.txt"
)

// Scanner reads and consumes the trigger protocol files on a mounted
// volume. Consumption is explicit and separate from scanning: a trigger
// file is only deleted once its request is reflected in the record.
type Scanner struct {
	vol *volume.Volume
	log zerolog.Logger
}

// NewScanner returns a Scanner over vol.
func NewScanner(vol *volume.Volume, log zerolog.Logger) *Scanner {
	return &Scanner{
		vol: vol,
		log: log.With().Str("component", "scanner").Logger(),
	}
}

// Scan inspects the volume for trigger and input files. Payloads are
// whitespace-trimmed; file presence is reported independently of content.
func (s *Scanner) Scan() Triggers {
	triggers := Triggers{
		Format: s.vol.Exists(TriggerFormat),
		Unlock: s.vol.Exists(TriggerUnlock),
		Sign:   s.vol.Exists(TriggerSign),
	}
	if payload, ok := s.payload(InputMnemonic); ok {
		triggers.Custom.HasMnemonic = true
		triggers.Custom.Mnemonic = payload
	}
	if payload, ok := s.payload(InputPassphrase); ok {
		triggers.Custom.HasPassphrase = true
		triggers.Custom.Passphrase = payload
	}
	if payload, ok := s.payload(InputNetwork); ok {
		triggers.Custom.HasNetwork = true
		triggers.Custom.Network = model.ParseNetwork(payload)
	}
	s.log.Debug().
		Bool("format", triggers.Format).
		Bool("unlock", triggers.Unlock).
		Bool("sign", triggers.Sign).
		Bool("custom_mnemonic", triggers.Custom.HasMnemonic).
		Msg("volume scanned")
	return triggers
}

// Consume removes one protocol file after its request has been handled.
func (s *Scanner) Consume(name string) {
	if s.vol.Remove(name) {
		s.log.Debug().Str("file", name).Msg("trigger file consumed")
	}
}

// ConsumeCustomInputs removes the user-supplied secret files once their
// contents are persisted in the record.
func (s *Scanner) ConsumeCustomInputs() {
	for _, name := range []string{InputMnemonic, InputPassphrase, InputNetwork} {
		s.Consume(name)
	}
}

func (s *Scanner) payload(name string) (string, bool) {
	data, err := s.vol.ReadFile(name)
	if errors.Is(err, volume.ErrNotFound) {
		return "", false
	}
	if err != nil {
		s.log.Warn().Err(err).Str("file", name).Msg("input file unreadable, treating as absent")
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}
