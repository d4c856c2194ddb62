// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/opencontainers/go-digest"
	"gopkg.in/yaml.v3"

	"github.com/spazyCZ/agent-package-manager-sub001/manifest"
	"github.com/spazyCZ/agent-package-manager-sub001/verify"
)

// Publish records a package version in the registry: the archive bytes
// are written under the package directory, the checksum is computed
// from them, and metadata and index are updated. A nil signature
// publishes the version unsigned. Publishing an existing version
// overwrites it.
func (r *Registry) Publish(ref *manifest.Ref, archive []byte, sig *verify.Signature) error {
	if ref == nil || ref.Name == "" || ref.Version == nil {
		return fmt.Errorf("publish requires a name and version")
	}

	pkgDir := r.packageDir(ref.Name)
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		return fmt.Errorf("creating package directory: %w", err)
	}

	archiveName := ref.Version.String() + ".tar.gz"
	if err := os.WriteFile(filepath.Join(pkgDir, archiveName), archive, 0o644); err != nil {
		return fmt.Errorf("writing archive: %w", err)
	}

	deps := make(map[string]string, len(ref.Dependencies))
	for depName, depConstraint := range ref.Dependencies {
		deps[string(depName)] = depConstraint.String()
	}

	rec := versionRecord{
		Checksum:     digest.FromBytes(archive).String(),
		Archive:      archiveName,
		Dependencies: deps,
	}
	if sig != nil {
		rec.Signature = &signatureRecord{
			Identity:  sig.Identity,
			PublicKey: base64.StdEncoding.EncodeToString(sig.PublicKey),
			Signature: base64.StdEncoding.EncodeToString(sig.Sig),
		}
	}

	meta, err := r.readMetadata(ref.Name)
	if err != nil {
		return err
	}
	if meta == nil {
		meta = &metadataFile{Name: string(ref.Name), Versions: map[string]versionRecord{}}
	}
	meta.Versions[ref.Version.String()] = rec

	if err := writeYAML(filepath.Join(pkgDir, metadataFileName), meta); err != nil {
		return fmt.Errorf("writing package metadata: %w", err)
	}

	return r.indexPackage(ref.Name)
}

// SetDistTag points a distribution tag of a package at a version.
func (r *Registry) SetDistTag(name manifest.PackageName, tag, version string) error {
	idx, err := r.readIndex()
	if err != nil {
		return err
	}
	if idx.DistTags == nil {
		idx.DistTags = map[string]map[string]string{}
	}
	if idx.DistTags[string(name)] == nil {
		idx.DistTags[string(name)] = map[string]string{}
	}
	idx.DistTags[string(name)][tag] = version
	return writeYAML(filepath.Join(r.root, indexFileName), idx)
}

// indexPackage adds a package name to the index if not yet present.
func (r *Registry) indexPackage(name manifest.PackageName) error {
	idx, err := r.readIndex()
	if err != nil {
		return err
	}
	for _, existing := range idx.Packages {
		if existing == string(name) {
			return nil
		}
	}
	idx.Packages = append(idx.Packages, string(name))
	sort.Strings(idx.Packages)
	return writeYAML(filepath.Join(r.root, indexFileName), idx)
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
