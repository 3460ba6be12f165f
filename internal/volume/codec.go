package volume

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

const (
	blockLen = 512
	// blankImageLen is the archive trailer alone: what Format leaves behind
	// and what an empty tree serializes to.
	blankImageLen = 2 * blockLen
	// maxNameLen keeps every path, including a trailing directory slash,
	// inside the fixed ustar name field.
	maxNameLen = 90
)

// imageEpoch is the timestamp stamped on every archived entry. A fixed
// value keeps the image bytes a pure function of the tree contents.
var imageEpoch = time.Unix(0, 0).UTC()

// encodeImage serializes the tree as a ustar stream. Entries are emitted in
// folded path order, which places directories ahead of their children.
func encodeImage(entries map[string]*entry) ([]byte, error) {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, k := range keys {
		e := entries[k]
		hdr := &tar.Header{
			Name:    e.name,
			Mode:    0o644,
			Size:    int64(len(e.data)),
			ModTime: imageEpoch,
			Format:  tar.FormatUSTAR,
		}
		if e.dir {
			hdr.Name += "/"
			hdr.Mode = 0o755
			hdr.Size = 0
			hdr.Typeflag = tar.TypeDir
		} else {
			hdr.Typeflag = tar.TypeReg
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("failed to encode volume entry %s: %w", e.name, err)
		}
		if !e.dir {
			if _, err := tw.Write(e.data); err != nil {
				return nil, fmt.Errorf("failed to encode volume entry %s: %w", e.name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize volume image: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeImage parses a partition image back into a tree. A blank image
// yields an empty tree; malformed bytes yield ErrCorrupted.
func decodeImage(img []byte) (map[string]*entry, error) {
	entries := make(map[string]*entry)
	tr := tar.NewReader(bytes.NewReader(img))
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			cleaned, err := normalize(strings.TrimSuffix(hdr.Name, "/"))
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
			}
			putEntry(entries, &entry{name: cleaned, dir: true})
		case tar.TypeReg:
			cleaned, err := normalize(hdr.Name)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
			}
			if hdr.Size < 0 || hdr.Size > int64(len(img)) {
				return nil, fmt.Errorf("%w: entry %s size %d", ErrCorrupted, cleaned, hdr.Size)
			}
			data := make([]byte, hdr.Size)
			if _, err := io.ReadFull(tr, data); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
			}
			putEntry(entries, &entry{name: cleaned, data: data})
		default:
			return nil, fmt.Errorf("%w: unsupported entry type %d", ErrCorrupted, hdr.Typeflag)
		}
	}
}

// putEntry inserts e and any missing parent directories.
func putEntry(entries map[string]*entry, e *entry) {
	parts := strings.Split(e.name, "/")
	for i := 1; i < len(parts); i++ {
		dir := strings.Join(parts[:i], "/")
		key := fold(dir)
		if _, ok := entries[key]; !ok {
			entries[key] = &entry{name: dir, dir: true}
		}
	}
	entries[fold(e.name)] = e
}

// encodedLen returns the exact image size the current tree serializes to.
func (v *Volume) encodedLen() int64 {
	size := int64(blankImageLen)
	for _, e := range v.entries {
		size += blockLen
		if !e.dir {
			size += (int64(len(e.data)) + blockLen - 1) / blockLen * blockLen
		}
	}
	return size
}
