package board

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/valerio-vaccaro/BitFloppy/internal/bridge"
	"github.com/valerio-vaccaro/BitFloppy/internal/config"
	"github.com/valerio-vaccaro/BitFloppy/internal/derive"
	"github.com/valerio-vaccaro/BitFloppy/internal/flash"
	"github.com/valerio-vaccaro/BitFloppy/internal/model"
	"github.com/valerio-vaccaro/BitFloppy/internal/publish"
	"github.com/valerio-vaccaro/BitFloppy/internal/record"
	"github.com/valerio-vaccaro/BitFloppy/internal/volume"
)

// ErrHalted means the device cannot recover by restarting itself: the
// volume is corrupt and reformatting failed. The caller waits and powers
// the device again.
var ErrHalted = errors.New("board: halted waiting for power cycle")

// MaxChainedRestarts caps how many self-restarts PowerCycle chases before
// giving up. A healthy device needs at most three chained cycles.
const MaxChainedRestarts = 8

// Options assembles a Device.
type Options struct {
	// Store is the record partition. May be nil when opening it failed;
	// the device then runs every boot on defaults and skips persistence.
	Store *record.Store
	// Medium is the flash partition carrying the file volume.
	Medium flash.Medium
	// Identity is reported to USB hosts by the bridge.
	Identity bridge.Identity
	// EntropyBits sizes generated mnemonics.
	EntropyBits int
	// LogSink receives host-side log output. Boot-cycle events are
	// additionally appended to the on-volume log file.
	LogSink io.Writer
	// LogLevel filters both log destinations.
	LogLevel zerolog.Level
}

// Device is one BitFloppy board: the record partition, the flash medium
// and the state machine that couples them. A Device alternates between
// boot cycles (volume mounted internally) and exposure (volume visible to
// the host through the bridge); the two phases never overlap.
type Device struct {
	store       *record.Store
	medium      flash.Medium
	identity    bridge.Identity
	entropyBits int
	engine      derive.Engine
	sink        io.Writer
	level       zerolog.Level
	log         zerolog.Logger
}

// NewDevice builds a Device from explicit parts. Callers that just want
// the configured board use Open.
func NewDevice(opts Options) *Device {
	sink := opts.LogSink
	if sink == nil {
		sink = io.Discard
	}
	return &Device{
		store:       opts.Store,
		medium:      opts.Medium,
		identity:    opts.Identity,
		entropyBits: opts.EntropyBits,
		sink:        sink,
		level:       opts.LogLevel,
		log:         zerolog.New(sink).Level(opts.LogLevel).With().Timestamp().Logger(),
	}
}

// Open assembles the Device described by the environment configuration.
// A record partition that fails to open degrades the device instead of
// stopping it; a missing flash medium is fatal since there is no board
// without its storage.
func Open(sink io.Writer) (*Device, error) {
	level, err := zerolog.ParseLevel(config.GetLogLevel())
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", config.GetLogLevel(), err)
	}
	log := zerolog.New(sink).Level(level).With().Timestamp().Logger()

	medium, err := flash.Open(config.GetFlashImagePath(), config.GetFlashSize(), config.GetBlockSize())
	if err != nil {
		return nil, fmt.Errorf("failed to open flash medium: %w", err)
	}
	store, err := record.Open(config.GetRecordDir(), log)
	if err != nil {
		log.Error().Err(err).Msg("record partition unavailable, continuing with defaults")
		store = nil
	}
	return NewDevice(Options{
		Store:  store,
		Medium: medium,
		Identity: bridge.Identity{
			Vendor:   config.GetVendor(),
			Product:  config.GetProduct(),
			Revision: config.GetRevision(),
		},
		EntropyBits: config.GetEntropyBits(),
		LogSink:     sink,
		LogLevel:    level,
	}), nil
}

// BootResult summarizes one completed boot cycle.
type BootResult struct {
	Status          model.LifecycleStatus
	RestartRequired bool
	RestartCounter  int32
}

// Boot runs exactly one cycle: load record, mount the volume, consume
// triggers, run the entry action for the resulting status, unmount. When
// RestartRequired is set the caller powers the device again before the
// new state acts, so derivation only ever runs against a durable record.
func (d *Device) Boot(ctx context.Context) (BootResult, error) {
	if err := ctx.Err(); err != nil {
		return BootResult{}, err
	}

	rec := d.loadRecord()
	rec.RestartCounter++
	d.putCounter(rec.RestartCounter)

	vol, err := volume.Mount(d.medium)
	if err != nil {
		d.log.Error().Err(err).Msg("volume mount failed, treating as corruption")
		if ferr := volume.Format(d.medium); ferr != nil {
			d.log.Error().Err(ferr).Msg("volume reformat failed")
			return BootResult{}, fmt.Errorf("%w: volume reformat failed: %v", ErrHalted, ferr)
		}
		d.log.Warn().Msg("volume reformatted, restart required")
		return BootResult{Status: rec.Status, RestartRequired: true, RestartCounter: rec.RestartCounter}, nil
	}

	log := d.bootLogger(vol, rec.RestartCounter)
	log.Info().Str("status", rec.Status.String()).Msg("boot cycle started")

	restart := d.run(log, vol, &rec)

	if err := vol.Unmount(); err != nil {
		d.log.Error().Err(err).Msg("volume unmount failed, file changes lost")
	}
	return BootResult{Status: rec.Status, RestartRequired: restart, RestartCounter: rec.RestartCounter}, nil
}

// PowerCycle boots the device and chases the self-restarts a real board
// performs, returning once a cycle completes without requesting one.
func (d *Device) PowerCycle(ctx context.Context) (BootResult, error) {
	var result BootResult
	for i := 0; i <= MaxChainedRestarts; i++ {
		res, err := d.Boot(ctx)
		if err != nil {
			return res, err
		}
		result = res
		if !res.RestartRequired {
			return result, nil
		}
		d.log.Debug().Int32("boot", res.RestartCounter).Str("status", res.Status.String()).Msg("restart requested, cycling")
	}
	return result, fmt.Errorf("board: restart chain exceeded %d cycles", MaxChainedRestarts)
}

// Expose attaches the mass-storage bridge to the partition. Only valid
// between boots: Boot always unmounts the volume before returning, so the
// host and the board never share the medium.
func (d *Device) Expose() *bridge.MSC {
	return bridge.New(d.medium, d.identity)
}

// Close releases the record partition and the flash medium.
func (d *Device) Close() error {
	var merr *multierror.Error
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	if err := d.medium.Close(); err != nil {
		merr = multierror.Append(merr, err)
	}
	return merr.ErrorOrNil()
}

// run executes the mounted part of a boot cycle and reports whether a
// restart is required before the next state's work may run.
func (d *Device) run(log zerolog.Logger, vol *volume.Volume, rec *model.Record) bool {
	scanner := NewScanner(vol, log)
	publisher := publish.New(vol, log)

	if err := publisher.WriteHelp(); err != nil {
		log.Error().Err(err).Msg("failed to publish help file")
	}

	triggers := scanner.Scan()

	if triggers.Sign {
		log.Info().Msg("signing request found, signing is not supported yet")
		scanner.Consume(TriggerSign)
	}

	outcome := ResolveTriggers(rec.Status, triggers)
	if outcome.UnlockRejected {
		log.Warn().Str("status", rec.Status.String()).Msg("unlock requested in a status that cannot unlock")
		scanner.Consume(TriggerUnlock)
	}
	if outcome.FormatApplied || outcome.UnlockApplied {
		// Trigger files fall only after the transition is in the record, so
		// a crash in between re-applies the request instead of losing it.
		committed := outcome.Status == rec.Status || d.putStatus(log, outcome.Status)
		if committed {
			rec.Status = outcome.Status
			if outcome.UnlockApplied {
				scanner.Consume(TriggerUnlock)
			}
			if outcome.FormatApplied {
				scanner.Consume(TriggerFormat)
				// The wipe runs on the next boot, against a format status
				// that is already durable.
				log.Info().Msg("format request recorded, restart required")
				d.syncStore(log)
				return true
			}
		}
	}

	step := Plan(rec.Status, triggers.Custom.HasMnemonic)
	log.Debug().Str("action", step.Action.String()).Str("status", rec.Status.String()).Msg("entry action planned")

	restart := false
	switch step.Action {
	case ActionInitialize:
		if d.putStatus(log, step.Next) {
			rec.Status = step.Next
			log.Info().Msg("record initialized, board is empty")
		}
	case ActionGenerate:
		restart = d.generate(log, rec, step)
	case ActionAdoptCustom:
		restart = d.adoptCustom(log, scanner, rec, triggers.Custom, step)
	case ActionPublish:
		d.publishFiles(log, publisher, rec)
	case ActionWipe:
		restart = d.wipe(log, publisher, rec, triggers, step)
	}

	if restart {
		d.syncStore(log)
	}
	return restart
}

// generate draws a fresh mnemonic on the test chain and locks it.
func (d *Device) generate(log zerolog.Logger, rec *model.Record, step Step) bool {
	mnemonic, err := derive.GenerateMnemonic(d.entropyBits)
	if err != nil {
		log.Error().Err(err).Msg("failed to generate mnemonic")
		return false
	}
	secret := model.SecretMaterial{Mnemonic: mnemonic, Network: model.Testnet}
	if !d.putSecretAndStatus(log, secret, step.Next) {
		return false
	}
	rec.Secret = secret
	rec.Status = step.Next
	log.Info().Int("entropy_bits", d.entropyBits).Msg("new secret generated and locked")
	return step.Restart
}

// adoptCustom persists the user-supplied secret and consumes the input
// files. Invalid input keeps the board waiting and leaves the files in
// place so the user can inspect and fix them.
func (d *Device) adoptCustom(log zerolog.Logger, scanner *Scanner, rec *model.Record, inputs CustomInputs, step Step) bool {
	if !inputs.HasMnemonic {
		log.Error().Msg("custom provisioning expects MNEMONIC.txt, staying empty")
		return false
	}
	secret := inputs.Secret()
	if err := derive.ValidateMnemonic(secret.Mnemonic); err != nil {
		log.Error().Err(err).Msg("custom mnemonic rejected")
		return false
	}
	if !d.putSecretAndStatus(log, secret, step.Next) {
		return false
	}
	rec.Secret = secret
	rec.Status = step.Next
	scanner.ConsumeCustomInputs()
	log.Info().Str("network", secret.Network.String()).Msg("custom secret adopted and locked")
	return step.Restart
}

// publishFiles derives all purposes from the record secret and renders
// them with the exposure the current status grants.
func (d *Device) publishFiles(log zerolog.Logger, publisher *publish.Publisher, rec *model.Record) {
	if rec.Secret.Blank() {
		log.Error().Str("status", rec.Status.String()).Msg("record holds no mnemonic, skipping derivation")
		return
	}
	exposure := derive.ExposureFor(rec.Status)
	accounts, err := d.engine.Accounts(rec.Secret, exposure)
	if err != nil {
		log.Error().Err(err).Msg("derivation failed, volume left unchanged")
		return
	}
	if err := publisher.PublishNetwork(rec.Secret.Network); err != nil {
		log.Error().Err(err).Msg("failed to publish network file")
	}
	if err := publisher.PublishAccounts(accounts); err != nil {
		log.Error().Err(err).Msg("failed to publish account files")
	}
	if exposure.IsUnlocked() {
		if err := publisher.EchoSecrets(rec.Secret); err != nil {
			log.Error().Err(err).Msg("failed to publish secret echoes")
		}
	}
	log.Info().Int("accounts", len(accounts)).Bool("unlocked", exposure.IsUnlocked()).Msg("account files published")
}

// wipe clears the secret record first, then the generated files. Custom
// input files survive when a user mnemonic is waiting to be adopted.
func (d *Device) wipe(log zerolog.Logger, publisher *publish.Publisher, rec *model.Record, triggers Triggers, step Step) bool {
	if !d.wipeSecretAndStatus(log, step.Next) {
		return false
	}
	rec.Secret = model.SecretMaterial{Network: model.Testnet}
	rec.Status = step.Next
	removed := publisher.Wipe(triggers.Custom.HasMnemonic)
	log.Info().Str("status", rec.Status.String()).Int("files_removed", removed).Msg("device formatted")
	return step.Restart
}

// bootLogger fans boot-cycle events out to the host sink and the
// on-volume log file, tagged with the persisted boot counter.
func (d *Device) bootLogger(vol *volume.Volume, counter int32) zerolog.Logger {
	volWriter := zerolog.ConsoleWriter{
		Out:        vol.Appender(publish.LogFile),
		NoColor:    true,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(zerolog.MultiLevelWriter(d.sink, volWriter)).
		Level(d.level).
		With().Timestamp().Int32("boot", counter).
		Logger()
}

// loadRecord reads the persisted record, falling back to defaults when
// the store is unavailable. Storage faults never stop a boot.
func (d *Device) loadRecord() model.Record {
	if d.store == nil {
		d.log.Warn().Msg("record store unavailable, using default record")
		return model.DefaultRecord()
	}
	rec, err := d.store.Load()
	if err != nil {
		d.log.Error().Err(err).Msg("record load failed, using default record")
	}
	return rec
}

func (d *Device) putCounter(counter int32) {
	if d.store == nil {
		return
	}
	if err := d.store.PutRestartCounter(counter); err != nil {
		d.log.Error().Err(err).Msg("failed to persist restart counter")
	}
}

func (d *Device) putStatus(log zerolog.Logger, status model.LifecycleStatus) bool {
	if d.store == nil {
		log.Error().Str("status", status.String()).Msg("cannot persist status, store unavailable")
		return false
	}
	if err := d.store.PutStatus(status); err != nil {
		log.Error().Err(err).Str("status", status.String()).Msg("failed to persist status")
		return false
	}
	return true
}

func (d *Device) putSecretAndStatus(log zerolog.Logger, secret model.SecretMaterial, status model.LifecycleStatus) bool {
	if d.store == nil {
		log.Error().Str("status", status.String()).Msg("cannot persist secret, store unavailable")
		return false
	}
	if err := d.store.PutSecretAndStatus(secret, status); err != nil {
		log.Error().Err(err).Str("status", status.String()).Msg("failed to persist secret")
		return false
	}
	return true
}

func (d *Device) wipeSecretAndStatus(log zerolog.Logger, status model.LifecycleStatus) bool {
	if d.store == nil {
		log.Error().Str("status", status.String()).Msg("cannot wipe secret, store unavailable")
		return false
	}
	if err := d.store.WipeSecretAndStatus(status); err != nil {
		log.Error().Err(err).Str("status", status.String()).Msg("failed to wipe secret")
		return false
	}
	return true
}

func (d *Device) syncStore(log zerolog.Logger) {
	if d.store == nil {
		return
	}
	if err := d.store.Sync(); err != nil {
		log.Error().Err(err).Msg("failed to sync record partition before restart")
	}
}
