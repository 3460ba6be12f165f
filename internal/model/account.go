package model

import "fmt"

// RedactedMarker replaces private key material in every published file
// while the board is locked. Exactly ten asterisks, fixed by the file format.
const RedactedMarker = "**********"

// Purpose is a BIP43 purpose number selecting the address style.
type Purpose uint32

const (
	// Purpose44 derives legacy P2PKH addresses (BIP44).
	Purpose44 Purpose = 44
	// Purpose49 derives P2SH-wrapped segwit addresses (BIP49).
	Purpose49 Purpose = 49
	// Purpose84 derives native segwit addresses (BIP84).
	Purpose84 Purpose = 84
)

// Purposes lists every supported purpose in publication order.
func Purposes() []Purpose {
	return []Purpose{Purpose44, Purpose49, Purpose84}
}

// Directory returns the volume directory holding this purpose's files.
func (p Purpose) Directory() string {
	return fmt.Sprintf("bip%d", uint32(p))
}

// KeyView is a piece of private key material gated for publication. The
// zero value renders as RedactedMarker; only ExposeKey yields the cleartext.
type KeyView struct {
	value   string
	exposed bool
}

// ExposeKey wraps cleartext key material for publication on an unlocked
// board. Callers must hold an unlocked status before constructing one.
func ExposeKey(value string) KeyView {
	return KeyView{value: value, exposed: true}
}

// Exposed reports whether String will render cleartext.
func (k KeyView) Exposed() bool {
	return k.exposed
}

// String renders the key for publication: cleartext when exposed,
// RedactedMarker otherwise.
func (k KeyView) String() string {
	if k.exposed {
		return k.value
	}
	return RedactedMarker
}

// PathEntry is one derived address row: the derivation path, the encoded
// address, and the matching private key view.
type PathEntry struct {
	Path    string
	Address string
	Key     KeyView
}

// DerivedAccount is everything published for one purpose: the account keys
// and ten receive plus ten change rows.
type DerivedAccount struct {
	Purpose Purpose
	Network Network
	XPub    string
	XPriv   KeyView
	Receive []PathEntry
	Change  []PathEntry
}
