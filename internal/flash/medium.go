// Package flash models the raw storage partition that backs the board's
// file volume. The partition is byte-addressable for reads, programmed in
// place for writes, and erased to 0xFF like NOR flash.
package flash

import (
	"errors"
	"fmt"
)

// EraseByte is the value every erased flash cell reads back as.
const EraseByte byte = 0xFF

// DefaultBlockSize is the logical block size exposed to USB hosts.
const DefaultBlockSize = 4096

// ErrOutOfRange is returned when an access crosses the partition boundary.
var ErrOutOfRange = errors.New("flash: access out of range")

// Medium is a raw rewritable partition. Implementations must be safe for
// sequential use by a single owner; they are not required to be goroutine
// safe. Reads and writes are exact: short transfers are reported as errors,
// never as partial counts.
type Medium interface {
	// ReadAt copies len(p) bytes starting at off.
	ReadAt(p []byte, off int64) (int, error)
	// WriteAt programs len(p) bytes starting at off. Callers erase first
	// when they need cells reset; WriteAt alone overwrites in place.
	WriteAt(p []byte, off int64) (int, error)
	// Erase resets length bytes starting at off to EraseByte.
	Erase(off, length int64) error
	// Size returns the partition capacity in bytes.
	Size() int64
	// BlockSize returns the logical block size in bytes.
	BlockSize() int64
	// Sync flushes pending writes to stable storage.
	Sync() error
	// Close releases the medium. Further access fails.
	Close() error
}

func checkRange(size, off, length int64) error {
	if off < 0 || length < 0 || off > size || size-off < length {
		return fmt.Errorf("%w: offset %d length %d capacity %d", ErrOutOfRange, off, length, size)
	}
	return nil
}
