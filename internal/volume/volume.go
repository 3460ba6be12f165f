// Package volume implements the board's internal file volume: a small
// case-insensitive file tree kept in memory between Mount and Unmount and
// serialized as a single image onto the flash partition. The image uses the
// ustar archive layout, written deterministically so that identical trees
// produce identical partition bytes.
package volume

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/valerio-vaccaro/BitFloppy/internal/flash"
)

var (
	// ErrCorrupted is returned by Mount when the partition holds neither a
	// blank image nor a parseable one. The caller is expected to reformat.
	ErrCorrupted = errors.New("volume: image corrupted")
	// ErrNotFound is returned when a named file is absent.
	ErrNotFound = errors.New("volume: file not found")
	// ErrFull is returned when a write would not fit the partition.
	ErrFull = errors.New("volume: no space left")
)

// entry is one node of the tree. The name keeps the case it was first
// written with; lookups fold case like a FAT directory does.
type entry struct {
	name string
	dir  bool
	data []byte
}

// Volume is a mounted file tree. It is owned by a single boot cycle and is
// not goroutine safe. After Unmount every operation fails.
type Volume struct {
	medium  flash.Medium
	entries map[string]*entry
}

// Mount reads the partition image and rebuilds the tree. A blank partition
// mounts as an empty volume; anything unparseable returns ErrCorrupted.
func Mount(medium flash.Medium) (*Volume, error) {
	img := make([]byte, medium.Size())
	if _, err := medium.ReadAt(img, 0); err != nil {
		return nil, fmt.Errorf("failed to read volume image: %w", err)
	}
	entries, err := decodeImage(img)
	if err != nil {
		return nil, err
	}
	return &Volume{medium: medium, entries: entries}, nil
}

// Format wipes the partition to a blank, mountable state.
func Format(medium flash.Medium) error {
	if err := medium.Erase(0, medium.Size()); err != nil {
		return fmt.Errorf("failed to erase volume partition: %w", err)
	}
	if _, err := medium.WriteAt(make([]byte, blankImageLen), 0); err != nil {
		return fmt.Errorf("failed to blank volume partition: %w", err)
	}
	if err := medium.Sync(); err != nil {
		return fmt.Errorf("failed to sync volume partition: %w", err)
	}
	return nil
}

// Unmount serializes the tree back onto the partition and invalidates the
// volume. The partition is erased first so stale image bytes never survive.
func (v *Volume) Unmount() error {
	if v.entries == nil {
		return errors.New("volume: not mounted")
	}
	img, err := encodeImage(v.entries)
	if err != nil {
		return err
	}
	v.entries = nil
	if int64(len(img)) > v.medium.Size() {
		return ErrFull
	}
	if err := v.medium.Erase(0, v.medium.Size()); err != nil {
		return fmt.Errorf("failed to erase volume partition: %w", err)
	}
	if _, err := v.medium.WriteAt(img, 0); err != nil {
		return fmt.Errorf("failed to write volume image: %w", err)
	}
	if err := v.medium.Sync(); err != nil {
		return fmt.Errorf("failed to sync volume partition: %w", err)
	}
	return nil
}

// WriteFile stores data under name, replacing any previous contents. Parent
// directories are created as needed. The first writer fixes the stored case
// of each path component.
func (v *Volume) WriteFile(name string, data []byte) error {
	if v.entries == nil {
		return errors.New("volume: not mounted")
	}
	cleaned, err := normalize(name)
	if err != nil {
		return err
	}
	key := fold(cleaned)
	if old, ok := v.entries[key]; ok && old.dir {
		return fmt.Errorf("volume: %s is a directory", cleaned)
	}
	saved, existed := v.entries[key]
	next := &entry{name: cleaned, data: append([]byte(nil), data...)}
	if existed {
		next.name = saved.name
	}
	created, err := v.ensureParents(cleaned)
	if err != nil {
		return err
	}
	v.entries[key] = next
	if v.encodedLen() > v.medium.Size() {
		if existed {
			v.entries[key] = saved
		} else {
			delete(v.entries, key)
		}
		for _, k := range created {
			delete(v.entries, k)
		}
		return ErrFull
	}
	return nil
}

// Append extends name with data, creating the file when absent.
func (v *Volume) Append(name string, data []byte) error {
	existing, err := v.ReadFile(name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return v.WriteFile(name, append(existing, data...))
}

// ReadFile returns a copy of the file contents, or ErrNotFound.
func (v *Volume) ReadFile(name string) ([]byte, error) {
	if v.entries == nil {
		return nil, errors.New("volume: not mounted")
	}
	cleaned, err := normalize(name)
	if err != nil {
		return nil, err
	}
	e, ok := v.entries[fold(cleaned)]
	if !ok || e.dir {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, cleaned)
	}
	return append([]byte(nil), e.data...), nil
}

// Exists reports whether a file or directory is present under name.
func (v *Volume) Exists(name string) bool {
	if v.entries == nil {
		return false
	}
	cleaned, err := normalize(name)
	if err != nil {
		return false
	}
	_, ok := v.entries[fold(cleaned)]
	return ok
}

// Remove deletes a file or an empty directory and reports whether anything
// was removed. Directories with children are left alone.
func (v *Volume) Remove(name string) bool {
	if v.entries == nil {
		return false
	}
	cleaned, err := normalize(name)
	if err != nil {
		return false
	}
	key := fold(cleaned)
	e, ok := v.entries[key]
	if !ok {
		return false
	}
	if e.dir && v.hasChildren(key) {
		return false
	}
	delete(v.entries, key)
	return true
}

// RemoveAll deletes name and everything below it, returning the number of
// entries removed.
func (v *Volume) RemoveAll(name string) int {
	if v.entries == nil {
		return 0
	}
	cleaned, err := normalize(name)
	if err != nil {
		return 0
	}
	key := fold(cleaned)
	prefix := key + "/"
	removed := 0
	for k := range v.entries {
		if k == key || strings.HasPrefix(k, prefix) {
			delete(v.entries, k)
			removed++
		}
	}
	return removed
}

// List returns the base names of the immediate children of dir, in stored
// case, sorted case-insensitively. The empty string lists the root.
func (v *Volume) List(dir string) []string {
	if v.entries == nil {
		return nil
	}
	prefix := ""
	if strings.Trim(dir, "/") != "" {
		cleaned, err := normalize(dir)
		if err != nil {
			return nil
		}
		prefix = fold(cleaned) + "/"
	}
	var names []string
	for k, e := range v.entries {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := k[len(prefix):]
		if rest == "" || strings.Contains(rest, "/") {
			continue
		}
		names = append(names, path.Base(e.name))
	}
	sort.Slice(names, func(i, j int) bool { return fold(names[i]) < fold(names[j]) })
	return names
}

// Files returns every file path on the volume, sorted case-insensitively.
func (v *Volume) Files() []string {
	if v.entries == nil {
		return nil
	}
	var paths []string
	for _, e := range v.entries {
		if !e.dir {
			paths = append(paths, e.name)
		}
	}
	sort.Slice(paths, func(i, j int) bool { return fold(paths[i]) < fold(paths[j]) })
	return paths
}

// Appender returns a writer that appends every Write to name. It backs the
// on-volume log file.
func (v *Volume) Appender(name string) *Appender {
	return &Appender{v: v, name: name}
}

// Appender appends to a single volume file.
type Appender struct {
	v    *Volume
	name string
}

// Write implements io.Writer.
func (a *Appender) Write(p []byte) (int, error) {
	if err := a.v.Append(a.name, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// ensureParents adds missing directory entries above cleaned and returns
// the folded keys it created, so a failed write can undo them. A parent
// that already exists as a file fails the write.
func (v *Volume) ensureParents(cleaned string) ([]string, error) {
	var created []string
	parts := strings.Split(cleaned, "/")
	for i := 1; i < len(parts); i++ {
		dir := strings.Join(parts[:i], "/")
		key := fold(dir)
		if e, ok := v.entries[key]; ok {
			if !e.dir {
				for _, k := range created {
					delete(v.entries, k)
				}
				return nil, fmt.Errorf("volume: %s is not a directory", dir)
			}
			continue
		}
		v.entries[key] = &entry{name: dir, dir: true}
		created = append(created, key)
	}
	return created, nil
}

func (v *Volume) hasChildren(key string) bool {
	prefix := key + "/"
	for k := range v.entries {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

// fold maps a path to its case-insensitive lookup key.
func fold(p string) string {
	return strings.ToUpper(p)
}

// normalize validates a volume path and strips the leading slash. Paths
// must stay inside the tree and fit a ustar name field.
func normalize(name string) (string, error) {
	trimmed := strings.Trim(name, "/")
	if trimmed == "" {
		return "", errors.New("volume: empty path")
	}
	if strings.Contains(trimmed, "\\") {
		return "", fmt.Errorf("volume: invalid path %q", name)
	}
	cleaned := path.Clean(trimmed)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("volume: invalid path %q", name)
	}
	if len(cleaned) > maxNameLen {
		return "", fmt.Errorf("volume: path too long: %q", name)
	}
	return cleaned, nil
}
