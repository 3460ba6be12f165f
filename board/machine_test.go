package board

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valerio-vaccaro/BitFloppy/internal/model"
)

func TestPlanTable(t *testing.T) {
	cases := []struct {
		name      string
		status    model.LifecycleStatus
		hasCustom bool
		want      Step
	}{
		{"unknown initializes", model.StatusUnknown, false,
			Step{Action: ActionInitialize, Next: model.StatusEmpty}},
		{"empty generates and restarts", model.StatusEmpty, false,
			Step{Action: ActionGenerate, Next: model.StatusLocked, Restart: true}},
		{"locked publishes in place", model.StatusLocked, false,
			Step{Action: ActionPublish, Next: model.StatusLocked}},
		{"unlocked publishes in place", model.StatusUnlocked, false,
			Step{Action: ActionPublish, Next: model.StatusUnlocked}},
		{"custom empty adopts and restarts", model.StatusCustomEmpty, true,
			Step{Action: ActionAdoptCustom, Next: model.StatusCustomLocked, Restart: true}},
		{"custom locked publishes in place", model.StatusCustomLocked, false,
			Step{Action: ActionPublish, Next: model.StatusCustomLocked}},
		{"custom unlocked publishes in place", model.StatusCustomUnlocked, false,
			Step{Action: ActionPublish, Next: model.StatusCustomUnlocked}},
		{"format wipes to empty", model.StatusFormat, false,
			Step{Action: ActionWipe, Next: model.StatusEmpty, Restart: true}},
		{"format wipes to custom empty when a mnemonic waits", model.StatusFormat, true,
			Step{Action: ActionWipe, Next: model.StatusCustomEmpty, Restart: true}},
		{"unrecognized code initializes", model.LifecycleStatus(42), false,
			Step{Action: ActionInitialize, Next: model.StatusEmpty}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Plan(tc.status, tc.hasCustom))
		})
	}
}

func TestResolveTriggersNoFiles(t *testing.T) {
	outcome := ResolveTriggers(model.StatusLocked, Triggers{})

	assert.Equal(t, model.StatusLocked, outcome.Status)
	assert.False(t, outcome.FormatApplied)
	assert.False(t, outcome.UnlockApplied)
	assert.False(t, outcome.UnlockRejected)
}

func TestResolveTriggersUnlock(t *testing.T) {
	outcome := ResolveTriggers(model.StatusLocked, Triggers{Unlock: true})
	assert.Equal(t, model.StatusUnlocked, outcome.Status)
	assert.True(t, outcome.UnlockApplied)

	outcome = ResolveTriggers(model.StatusCustomLocked, Triggers{Unlock: true})
	assert.Equal(t, model.StatusCustomUnlocked, outcome.Status)
	assert.True(t, outcome.UnlockApplied)
}

func TestResolveTriggersUnlockRejected(t *testing.T) {
	for _, status := range []model.LifecycleStatus{
		model.StatusUnknown,
		model.StatusEmpty,
		model.StatusUnlocked,
		model.StatusCustomEmpty,
		model.StatusCustomUnlocked,
		model.StatusFormat,
	} {
		outcome := ResolveTriggers(status, Triggers{Unlock: true})
		assert.Equal(t, status, outcome.Status, "status %s must not change", status)
		assert.False(t, outcome.UnlockApplied)
		assert.True(t, outcome.UnlockRejected)
	}
}

func TestResolveTriggersFormatWinsOverUnlock(t *testing.T) {
	outcome := ResolveTriggers(model.StatusLocked, Triggers{Format: true, Unlock: true})

	assert.Equal(t, model.StatusFormat, outcome.Status)
	assert.True(t, outcome.FormatApplied)
	assert.False(t, outcome.UnlockApplied)
	assert.True(t, outcome.UnlockRejected, "unlock is rejected against the format state")
}

func TestResolveTriggersFormatFromAnyStatus(t *testing.T) {
	for status := model.StatusUnknown; status <= model.StatusFormat; status++ {
		outcome := ResolveTriggers(status, Triggers{Format: true})
		assert.Equal(t, model.StatusFormat, outcome.Status)
		assert.True(t, outcome.FormatApplied)
	}
}

func TestCustomInputsSecretDefaults(t *testing.T) {
	inputs := CustomInputs{HasMnemonic: true, Mnemonic: "some words"}

	secret := inputs.Secret()
	assert.Equal(t, "some words", secret.Mnemonic)
	assert.Empty(t, secret.Passphrase)
	assert.Equal(t, model.Mainnet, secret.Network, "absent network file selects mainnet")

	inputs.HasNetwork = true
	inputs.Network = model.Testnet
	inputs.HasPassphrase = true
	inputs.Passphrase = "pp"

	secret = inputs.Secret()
	assert.Equal(t, "pp", secret.Passphrase)
	assert.Equal(t, model.Testnet, secret.Network)
}
