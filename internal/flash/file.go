package flash

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileMedium is a Medium backed by a fixed-size image file on the host.
// A fresh image is created zero-filled, which the volume layer reads as an
// empty formatted volume, matching a device that left the factory blank.
type FileMedium struct {
	mu        sync.Mutex
	f         *os.File
	size      int64
	blockSize int64
	closed    bool
}

// Open opens the image at path, creating it zero-filled at the given size
// when it does not exist. An existing image must match the configured size;
// a mismatch means the configuration changed under a live device and is
// refused rather than silently truncated.
func Open(path string, size, blockSize int64) (*FileMedium, error) {
	if size <= 0 || blockSize <= 0 || size%blockSize != 0 {
		return nil, fmt.Errorf("flash: invalid geometry: size %d block size %d", size, blockSize)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open flash image: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat flash image: %w", err)
	}
	switch info.Size() {
	case 0:
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to size flash image: %w", err)
		}
	case size:
		// Existing image with the expected geometry.
	default:
		f.Close()
		return nil, fmt.Errorf("flash: image %s is %d bytes, expected %d", path, info.Size(), size)
	}
	return &FileMedium{f: f, size: size, blockSize: blockSize}, nil
}

// ReadAt implements Medium.
func (m *FileMedium) ReadAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(off, int64(len(p))); err != nil {
		return 0, err
	}
	n, err := m.f.ReadAt(p, off)
	if err != nil {
		return n, fmt.Errorf("failed to read flash image: %w", err)
	}
	return n, nil
}

// WriteAt implements Medium.
func (m *FileMedium) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(off, int64(len(p))); err != nil {
		return 0, err
	}
	n, err := m.f.WriteAt(p, off)
	if err != nil {
		return n, fmt.Errorf("failed to write flash image: %w", err)
	}
	return n, nil
}

// Erase implements Medium, filling the range with EraseByte in chunks.
func (m *FileMedium) Erase(off, length int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(off, length); err != nil {
		return err
	}
	const chunk = 64 * 1024
	buf := make([]byte, chunk)
	for i := range buf {
		buf[i] = EraseByte
	}
	for length > 0 {
		n := int64(len(buf))
		if length < n {
			n = length
		}
		if _, err := m.f.WriteAt(buf[:n], off); err != nil {
			return fmt.Errorf("failed to erase flash image: %w", err)
		}
		off += n
		length -= n
	}
	return nil
}

// Size implements Medium.
func (m *FileMedium) Size() int64 { return m.size }

// BlockSize implements Medium.
func (m *FileMedium) BlockSize() int64 { return m.blockSize }

// Sync implements Medium.
func (m *FileMedium) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("flash: medium closed")
	}
	if err := m.f.Sync(); err != nil {
		return fmt.Errorf("failed to sync flash image: %w", err)
	}
	return nil
}

// Close implements Medium.
func (m *FileMedium) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	if err := m.f.Close(); err != nil {
		return fmt.Errorf("failed to close flash image: %w", err)
	}
	return nil
}

func (m *FileMedium) check(off, length int64) error {
	if m.closed {
		return errors.New("flash: medium closed")
	}
	return checkRange(m.size, off, length)
}
