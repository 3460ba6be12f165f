package model

// LifecycleStatus is the persisted board lifecycle state. The numeric codes
// are part of the on-flash record format and must never be renumbered:
// a board flashed years ago has these exact values in its record partition.
type LifecycleStatus uint8

const (
	// StatusUnknown marks a board whose record has never been written.
	StatusUnknown LifecycleStatus = 0
	// StatusEmpty marks an initialized board that holds no secret yet.
	StatusEmpty LifecycleStatus = 1
	// StatusLocked holds a generated secret with private material redacted.
	StatusLocked LifecycleStatus = 2
	// StatusUnlocked holds a generated secret with private material exposed.
	StatusUnlocked LifecycleStatus = 3
	// StatusCustomEmpty awaits user-supplied secret material.
	StatusCustomEmpty LifecycleStatus = 4
	// StatusCustomLocked holds a user-supplied secret, redacted.
	StatusCustomLocked LifecycleStatus = 5
	// StatusCustomUnlocked holds a user-supplied secret, exposed.
	StatusCustomUnlocked LifecycleStatus = 6
	// StatusFormat is the transient wipe state entered by a format request.
	StatusFormat LifecycleStatus = 7
)

// String returns the lifecycle state name used in logs.
func (s LifecycleStatus) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusEmpty:
		return "empty"
	case StatusLocked:
		return "locked"
	case StatusUnlocked:
		return "unlocked"
	case StatusCustomEmpty:
		return "custom-empty"
	case StatusCustomLocked:
		return "custom-locked"
	case StatusCustomUnlocked:
		return "custom-unlocked"
	case StatusFormat:
		return "format"
	default:
		return "invalid"
	}
}

// Valid reports whether s is one of the defined lifecycle codes.
func (s LifecycleStatus) Valid() bool {
	return s <= StatusFormat
}

// Unlocked reports whether private key material may be rendered in this state.
func (s LifecycleStatus) Unlocked() bool {
	return s == StatusUnlocked || s == StatusCustomUnlocked
}

// Lockable reports whether an unlock request is honored in this state.
func (s LifecycleStatus) Lockable() bool {
	return s == StatusLocked || s == StatusCustomLocked
}

// Custom reports whether the board follows the user-supplied secret track.
func (s LifecycleStatus) Custom() bool {
	return s == StatusCustomEmpty || s == StatusCustomLocked || s == StatusCustomUnlocked
}

// HasSecret reports whether a secret is expected to be present in the record.
func (s LifecycleStatus) HasSecret() bool {
	switch s {
	case StatusLocked, StatusUnlocked, StatusCustomLocked, StatusCustomUnlocked:
		return true
	default:
		return false
	}
}
