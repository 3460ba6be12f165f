// Package bridge exposes the flash partition to a USB host as a raw block
// device. The bridge never interprets the bytes it moves; the host sees
// whatever image the last unmount left on the partition.
package bridge

import (
	"fmt"

	"github.com/valerio-vaccaro/BitFloppy/internal/flash"
)

// Identity is the device identification reported to the host.
type Identity struct {
	Vendor   string
	Product  string
	Revision string
}

// MSC is the mass-storage endpoint over one flash medium. It must only be
// attached while the board itself has the volume unmounted; the board and
// the host never own the partition at the same time.
type MSC struct {
	medium   flash.Medium
	identity Identity
}

// New returns an MSC serving medium under the given identity.
func New(medium flash.Medium, identity Identity) *MSC {
	return &MSC{medium: medium, identity: identity}
}

// Identity returns the reported device identification.
func (m *MSC) Identity() Identity { return m.identity }

// BlockSize returns the logical block size in bytes.
func (m *MSC) BlockSize() uint32 { return uint32(m.medium.BlockSize()) }

// BlockCount returns the number of addressable blocks.
func (m *MSC) BlockCount() uint32 {
	return uint32(m.medium.Size() / m.medium.BlockSize())
}

// Read copies len(p) bytes starting at the given block and intra-block
// offset. Requests crossing the end of the device fail with
// flash.ErrOutOfRange.
func (m *MSC) Read(lba, offset uint32, p []byte) (int, error) {
	n, err := m.medium.ReadAt(p, m.position(lba, offset))
	if err != nil {
		return n, fmt.Errorf("bridge read block %d offset %d: %w", lba, offset, err)
	}
	return n, nil
}

// Write erases the addressed range and programs data into it, mirroring
// how flash sectors are rewritten in place.
func (m *MSC) Write(lba, offset uint32, data []byte) (int, error) {
	pos := m.position(lba, offset)
	if err := m.medium.Erase(pos, int64(len(data))); err != nil {
		return 0, fmt.Errorf("bridge erase block %d offset %d: %w", lba, offset, err)
	}
	n, err := m.medium.WriteAt(data, pos)
	if err != nil {
		return n, fmt.Errorf("bridge write block %d offset %d: %w", lba, offset, err)
	}
	return n, nil
}

// StartStop acknowledges host start/stop-unit requests. The device keeps
// the medium attached regardless, so the request always succeeds.
func (m *MSC) StartStop(powerCondition uint8, start, loadEject bool) bool {
	return true
}

// MediaPresent reports whether the medium is available. Always true: the
// partition is soldered on.
func (m *MSC) MediaPresent() bool { return true }

// Flush forces pending writes to stable storage, serving the host's cache
// synchronization requests.
func (m *MSC) Flush() error {
	return m.medium.Sync()
}

func (m *MSC) position(lba, offset uint32) int64 {
	return int64(lba)*m.medium.BlockSize() + int64(offset)
}
