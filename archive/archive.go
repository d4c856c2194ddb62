// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"
)

// gzipOSUnknown is the OS value for "unknown" in gzip headers (RFC 1952).
// Using this value ensures cross-platform reproducibility.
const gzipOSUnknown = 255

const (
	// MaxFileSize is the maximum size of a single extracted file (100MB),
	// preventing decompression bombs.
	MaxFileSize = 100 * 1024 * 1024

	// MaxFileCount is the maximum number of entries in a package archive.
	MaxFileCount = 10000
)

// Entry is one file inside a package archive.
type Entry struct {
	Path    string // Path within the archive, relative to the package root
	Content []byte // File content
	Mode    int64  // File mode (defaults to 0644)
}

// Pack creates a reproducible tar+gzip archive from the given entries.
// Entries are sorted alphabetically, headers are normalized to the given
// epoch, and gzip header fields are pinned, so identical inputs always
// produce identical bytes. A zero epoch means the Unix epoch.
func Pack(entries []Entry, epoch time.Time) ([]byte, error) {
	if epoch.IsZero() {
		epoch = time.Unix(0, 0).UTC()
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Path < sorted[j].Path
	})

	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	for _, e := range sorted {
		mode := e.Mode
		if mode == 0 {
			mode = 0o644
		}
		hdr := &tar.Header{
			Name:     e.Path,
			Size:     int64(len(e.Content)),
			Mode:     mode,
			ModTime:  epoch,
			Typeflag: tar.TypeReg,
			Format:   tar.FormatPAX,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("writing tar header for %s: %w", e.Path, err)
		}
		if _, err := tw.Write(e.Content); err != nil {
			return nil, fmt.Errorf("writing tar content for %s: %w", e.Path, err)
		}
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("closing tar writer: %w", err)
	}

	var gzBuf bytes.Buffer
	gw, err := gzip.NewWriterLevel(&gzBuf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("creating gzip writer: %w", err)
	}
	gw.ModTime = epoch
	gw.Name = ""
	gw.Comment = ""
	gw.OS = gzipOSUnknown
	if _, err := gw.Write(tarBuf.Bytes()); err != nil {
		return nil, fmt.Errorf("writing gzip data: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip writer: %w", err)
	}

	return gzBuf.Bytes(), nil
}

// Unpack reads a tar+gzip archive into memory. It rejects symlinks,
// hardlinks, device entries, path traversal, and entries beyond the
// size and count limits.
func Unpack(data []byte) ([]Entry, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer func() { _ = gr.Close() }()

	tr := tar.NewReader(gr)
	var entries []Entry

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar header: %w", err)
		}

		if err := validatePath(hdr.Name); err != nil {
			return nil, err
		}

		if hdr.Typeflag == tar.TypeDir {
			continue
		}
		if hdr.Typeflag == tar.TypeSymlink || hdr.Typeflag == tar.TypeLink {
			return nil, fmt.Errorf("archive contains disallowed link type: %s", hdr.Name)
		}
		if hdr.Typeflag != tar.TypeReg {
			return nil, fmt.Errorf("archive contains disallowed entry type %d: %s", hdr.Typeflag, hdr.Name)
		}

		if len(entries) >= MaxFileCount {
			return nil, fmt.Errorf("archive exceeds maximum of %d entries", MaxFileCount)
		}
		if hdr.Size > MaxFileSize {
			return nil, fmt.Errorf("file %s exceeds maximum size of %d bytes", hdr.Name, MaxFileSize)
		}

		content, err := io.ReadAll(io.LimitReader(tr, MaxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("reading tar content for %s: %w", hdr.Name, err)
		}
		if int64(len(content)) > MaxFileSize {
			return nil, fmt.Errorf("file %s exceeds maximum size of %d bytes", hdr.Name, MaxFileSize)
		}

		entries = append(entries, Entry{
			Path:    hdr.Name,
			Content: content,
			Mode:    hdr.Mode,
		})
	}

	return entries, nil
}

// Extract unpacks a tar+gzip archive under dest, creating parent
// directories as needed. Callers point dest at a staging directory and
// atomically move it into place once extraction succeeds.
func Extract(data []byte, dest string) error {
	entries, err := Unpack(data)
	if err != nil {
		return err
	}

	for _, e := range entries {
		target := filepath.Join(dest, filepath.FromSlash(e.Path))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", e.Path, err)
		}
		mode := os.FileMode(e.Mode & 0o777)
		if mode == 0 {
			mode = 0o644
		}
		if err := os.WriteFile(target, e.Content, mode); err != nil {
			return fmt.Errorf("writing %s: %w", e.Path, err)
		}
	}
	return nil
}

// validatePath checks that an archive entry path cannot escape the
// extraction root. path.Clean resolves all ".." segments; any remaining
// leading ".." means the path escapes.
func validatePath(p string) error {
	cleaned := path.Clean(p)
	if cleaned == ".." || len(cleaned) >= 3 && cleaned[:3] == "../" {
		return fmt.Errorf("path traversal detected in archive: %s", p)
	}
	if path.IsAbs(cleaned) {
		return fmt.Errorf("absolute path not allowed in archive: %s", p)
	}
	return nil
}
