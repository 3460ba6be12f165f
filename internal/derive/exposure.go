package derive

import "github.com/valerio-vaccaro/BitFloppy/internal/model"

// Exposure decides whether derived private material is rendered or
// redacted. It is the only way key views are constructed, so a caller that
// never holds an unlocked exposure can never leak cleartext.
type Exposure struct {
	unlocked bool
}

// Redacted returns the exposure used while the board is locked.
func Redacted() Exposure {
	return Exposure{}
}

// Unlocked returns the exposure used after an honored unlock request.
func Unlocked() Exposure {
	return Exposure{unlocked: true}
}

// ExposureFor maps a lifecycle status to its exposure.
func ExposureFor(status model.LifecycleStatus) Exposure {
	return Exposure{unlocked: status.Unlocked()}
}

// IsUnlocked reports whether this exposure renders cleartext.
func (e Exposure) IsUnlocked() bool {
	return e.unlocked
}

func (e Exposure) key(value string) model.KeyView {
	if e.unlocked {
		return model.ExposeKey(value)
	}
	return model.KeyView{}
}
