// Package board drives the device through its boot cycles: it owns the
// lifecycle state machine, the trigger file protocol and the coupling
// between the record partition, the file volume and the USB bridge.
package board

import (
	"github.com/valerio-vaccaro/BitFloppy/internal/model"
)

// CustomInputs carries the user-supplied secret files found on the volume.
// The Has flags record file presence; a present-but-empty file is distinct
// from an absent one.
type CustomInputs struct {
	HasMnemonic   bool
	Mnemonic      string
	HasPassphrase bool
	Passphrase    string
	HasNetwork    bool
	Network       model.Network
}

// Secret assembles the secret material the inputs select. Absent optional
// files fall back to an empty passphrase and the main chain.
func (c CustomInputs) Secret() model.SecretMaterial {
	secret := model.SecretMaterial{
		Mnemonic: c.Mnemonic,
		Network:  model.Mainnet,
	}
	if c.HasPassphrase {
		secret.Passphrase = c.Passphrase
	}
	if c.HasNetwork {
		secret.Network = c.Network
	}
	return secret
}

// Triggers is everything the trigger scan found on the volume.
type Triggers struct {
	Format bool
	Unlock bool
	Sign   bool
	Custom CustomInputs
}

// TriggerOutcome is the result of resolving the trigger files against the
// current status: the status the board moves to, and which requests were
// honored or rejected. Rejected requests are still consumed.
type TriggerOutcome struct {
	Status         model.LifecycleStatus
	FormatApplied  bool
	UnlockApplied  bool
	UnlockRejected bool
}

// ResolveTriggers applies the trigger files to the current status. Format
// is evaluated first and always wins; an unlock request arriving together
// with it is rejected against the format state. The function is pure:
// persistence and file consumption stay with the caller.
func ResolveTriggers(status model.LifecycleStatus, triggers Triggers) TriggerOutcome {
	outcome := TriggerOutcome{Status: status}

	if triggers.Format {
		outcome.Status = model.StatusFormat
		outcome.FormatApplied = true
	}
	if triggers.Unlock {
		if outcome.Status.Lockable() {
			switch outcome.Status {
			case model.StatusLocked:
				outcome.Status = model.StatusUnlocked
			case model.StatusCustomLocked:
				outcome.Status = model.StatusCustomUnlocked
			}
			outcome.UnlockApplied = true
		} else {
			outcome.UnlockRejected = true
		}
	}
	return outcome
}

// Action is the entry work a status performs after triggers are resolved.
type Action uint8

const (
	// ActionNone performs no entry work.
	ActionNone Action = iota
	// ActionInitialize moves a never-written record to empty.
	ActionInitialize
	// ActionGenerate draws a fresh mnemonic and locks it.
	ActionGenerate
	// ActionAdoptCustom loads the user-supplied secret and locks it.
	ActionAdoptCustom
	// ActionPublish derives and publishes the account files.
	ActionPublish
	// ActionWipe clears the secret and every generated file.
	ActionWipe
)

// String returns the action name used in logs.
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionInitialize:
		return "initialize"
	case ActionGenerate:
		return "generate"
	case ActionAdoptCustom:
		return "adopt-custom"
	case ActionPublish:
		return "publish"
	case ActionWipe:
		return "wipe"
	default:
		return "invalid"
	}
}

// Step is one planned entry action: what to do, the status persisted when
// the action succeeds, and whether the board restarts afterwards.
type Step struct {
	Action  Action
	Next    model.LifecycleStatus
	Restart bool
}

// Plan returns the entry step for a status. hasCustomMnemonic steers only
// the wipe state, which lands in the custom track when a user mnemonic is
// already waiting on the volume. Plan is pure; Boot executes it.
func Plan(status model.LifecycleStatus, hasCustomMnemonic bool) Step {
	switch status {
	case model.StatusEmpty:
		return Step{Action: ActionGenerate, Next: model.StatusLocked, Restart: true}
	case model.StatusLocked:
		return Step{Action: ActionPublish, Next: model.StatusLocked}
	case model.StatusUnlocked:
		return Step{Action: ActionPublish, Next: model.StatusUnlocked}
	case model.StatusCustomEmpty:
		return Step{Action: ActionAdoptCustom, Next: model.StatusCustomLocked, Restart: true}
	case model.StatusCustomLocked:
		return Step{Action: ActionPublish, Next: model.StatusCustomLocked}
	case model.StatusCustomUnlocked:
		return Step{Action: ActionPublish, Next: model.StatusCustomUnlocked}
	case model.StatusFormat:
		next := model.StatusEmpty
		if hasCustomMnemonic {
			next = model.StatusCustomEmpty
		}
		return Step{Action: ActionWipe, Next: next, Restart: true}
	default:
		// StatusUnknown and any unrecognized code initialize to empty.
		return Step{Action: ActionInitialize, Next: model.StatusEmpty}
	}
}
