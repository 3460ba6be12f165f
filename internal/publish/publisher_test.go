package publish

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio-vaccaro/BitFloppy/internal/flash"
	"github.com/valerio-vaccaro/BitFloppy/internal/model"
	"github.com/valerio-vaccaro/BitFloppy/internal/volume"
)

func mountTestVolume(t *testing.T) *volume.Volume {
	t.Helper()
	m, err := flash.Open(filepath.Join(t.TempDir(), "flash.img"), 256*1024, 4096)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	v, err := volume.Mount(m)
	require.NoError(t, err)
	return v
}

func testAccount(unlocked bool) model.DerivedAccount {
	key := func(v string) model.KeyView {
		if unlocked {
			return model.ExposeKey(v)
		}
		return model.KeyView{}
	}
	return model.DerivedAccount{
		Purpose: model.Purpose84,
		Network: model.Testnet,
		XPub:    "tpubDCtestonly",
		XPriv:   key("tprvtestonly"),
		Receive: []model.PathEntry{
			{Path: "m/84'/1'/0'/0/0", Address: "tb1qfirst", Key: key("cWifZero")},
			{Path: "m/84'/1'/0'/0/1", Address: "tb1qsecond", Key: key("cWifOne")},
		},
		Change: []model.PathEntry{
			{Path: "m/84'/1'/0'/1/0", Address: "tb1qchange", Key: key("cWifChange")},
		},
	}
}

func TestWriteHelp(t *testing.T) {
	v := mountTestVolume(t)
	p := New(v, zerolog.Nop())

	require.NoError(t, p.WriteHelp())

	data, err := v.ReadFile(HelpFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "UNLOCK.txt")
	assert.Contains(t, string(data), "FORMAT.txt")
	assert.Contains(t, string(data), "NETWORK.txt")
}

func TestPublishNetwork(t *testing.T) {
	v := mountTestVolume(t)
	p := New(v, zerolog.Nop())

	require.NoError(t, p.PublishNetwork(model.Testnet))
	data, err := v.ReadFile(NetworkFile)
	require.NoError(t, err)
	assert.Equal(t, "testnet", string(data))

	require.NoError(t, p.PublishNetwork(model.Mainnet))
	data, err = v.ReadFile(NetworkFile)
	require.NoError(t, err)
	assert.Equal(t, "mainnet", string(data))
}

func TestPublishAccountRedacted(t *testing.T) {
	v := mountTestVolume(t)
	p := New(v, zerolog.Nop())

	require.NoError(t, p.PublishAccount(testAccount(false)))

	data, err := v.ReadFile("bip84/addresses.txt")
	require.NoError(t, err)
	assert.Equal(t,
		"m/84'/1'/0'/0/0\ttb1qfirst\t**********\n"+
			"m/84'/1'/0'/0/1\ttb1qsecond\t**********\n",
		string(data))

	data, err = v.ReadFile("bip84/changes.txt")
	require.NoError(t, err)
	assert.Equal(t, "m/84'/1'/0'/1/0\ttb1qchange\t**********\n", string(data))

	data, err = v.ReadFile("bip84/xpriv.txt")
	require.NoError(t, err)
	assert.Equal(t, model.RedactedMarker+"\n", string(data))

	data, err = v.ReadFile("bip84/xpub.txt")
	require.NoError(t, err)
	assert.Equal(t, "tpubDCtestonly\n", string(data), "xpub is public even while locked")

	qr, err := v.ReadFile("bip84/qr.txt")
	require.NoError(t, err)
	assert.NotEmpty(t, qr)
}

func TestPublishAccountUnlocked(t *testing.T) {
	v := mountTestVolume(t)
	p := New(v, zerolog.Nop())

	require.NoError(t, p.PublishAccount(testAccount(true)))

	data, err := v.ReadFile("bip84/addresses.txt")
	require.NoError(t, err)
	assert.Equal(t,
		"m/84'/1'/0'/0/0\ttb1qfirst\tcWifZero\n"+
			"m/84'/1'/0'/0/1\ttb1qsecond\tcWifOne\n",
		string(data))

	data, err = v.ReadFile("bip84/xpriv.txt")
	require.NoError(t, err)
	assert.Equal(t, "tprvtestonly\n", string(data))
}

func TestPublishIsIdempotent(t *testing.T) {
	v := mountTestVolume(t)
	p := New(v, zerolog.Nop())

	require.NoError(t, p.PublishAccount(testAccount(false)))
	first, err := v.ReadFile("bip84/qr.txt")
	require.NoError(t, err)

	require.NoError(t, p.PublishAccount(testAccount(false)))
	second, err := v.ReadFile("bip84/qr.txt")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"addresses.txt", "changes.txt", "qr.txt", "xpriv.txt", "xpub.txt"}, v.List("bip84"))
}

func TestEchoSecrets(t *testing.T) {
	v := mountTestVolume(t)
	p := New(v, zerolog.Nop())

	secret := model.SecretMaterial{Mnemonic: "all all all", Passphrase: "pp", Network: model.Testnet}
	require.NoError(t, p.EchoSecrets(secret))

	data, err := v.ReadFile(MnemonicEchoFile)
	require.NoError(t, err)
	assert.Equal(t, "all all all", string(data), "echo carries no trailing newline")

	data, err = v.ReadFile(PassphraseEchoFile)
	require.NoError(t, err)
	assert.Equal(t, "pp", string(data))

	data, err = v.ReadFile(UnlockedMarkerFile)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestWipe(t *testing.T) {
	v := mountTestVolume(t)
	p := New(v, zerolog.Nop())

	require.NoError(t, p.WriteHelp())
	require.NoError(t, p.PublishAccount(testAccount(true)))
	require.NoError(t, p.EchoSecrets(model.SecretMaterial{Mnemonic: "m"}))
	require.NoError(t, v.WriteFile(LogFile, []byte("boot 1\n")))
	require.NoError(t, v.WriteFile("MNEMONIC.txt", []byte("user supplied")))
	require.NoError(t, v.WriteFile("NETWORK.txt", []byte("testnet")))

	p.Wipe(true)

	assert.Equal(t, []string{LogFile, "MNEMONIC.txt", "NETWORK.txt"}, v.List(""))

	p.Wipe(false)
	assert.Equal(t, []string{LogFile}, v.List(""), "the boot log survives every wipe")
}
