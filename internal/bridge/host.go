package bridge

import "github.com/valerio-vaccaro/BitFloppy/internal/flash"

// HostMedium adapts an MSC back into a flash.Medium, giving host-side code
// the same view of the partition a USB host gets: every access goes through
// block reads and writes, never around them.
type HostMedium struct {
	msc *MSC
}

// NewHostMedium returns a medium view over msc.
func NewHostMedium(msc *MSC) *HostMedium {
	return &HostMedium{msc: msc}
}

// ReadAt implements flash.Medium.
func (h *HostMedium) ReadAt(p []byte, off int64) (int, error) {
	bs := h.msc.medium.BlockSize()
	return h.msc.Read(uint32(off/bs), uint32(off%bs), p)
}

// WriteAt implements flash.Medium.
func (h *HostMedium) WriteAt(p []byte, off int64) (int, error) {
	bs := h.msc.medium.BlockSize()
	return h.msc.Write(uint32(off/bs), uint32(off%bs), p)
}

// Erase implements flash.Medium. A host cannot issue erase commands, so it
// writes erased bytes instead; the bridge's write path erases underneath.
func (h *HostMedium) Erase(off, length int64) error {
	const chunk = 64 * 1024
	buf := make([]byte, chunk)
	for i := range buf {
		buf[i] = flash.EraseByte
	}
	for length > 0 {
		n := int64(len(buf))
		if length < n {
			n = length
		}
		if _, err := h.WriteAt(buf[:n], off); err != nil {
			return err
		}
		off += n
		length -= n
	}
	return nil
}

// Size implements flash.Medium.
func (h *HostMedium) Size() int64 { return h.msc.medium.Size() }

// BlockSize implements flash.Medium.
func (h *HostMedium) BlockSize() int64 { return h.msc.medium.BlockSize() }

// Sync implements flash.Medium.
func (h *HostMedium) Sync() error { return h.msc.Flush() }

// Close implements flash.Medium. The host view owns nothing to release.
func (h *HostMedium) Close() error { return nil }
