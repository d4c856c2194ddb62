// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/adrg/xdg"
	"github.com/opencontainers/go-digest"
	"gopkg.in/yaml.v3"

	"github.com/spazyCZ/agent-package-manager-sub001/constraint"
	"github.com/spazyCZ/agent-package-manager-sub001/manifest"
	"github.com/spazyCZ/agent-package-manager-sub001/registry"
	"github.com/spazyCZ/agent-package-manager-sub001/verify"
)

const (
	indexFileName    = "index.yaml"
	metadataFileName = "metadata.yaml"
	packagesDirName  = "packages"
)

// DefaultRoot returns the default registry root under the XDG data
// directory.
func DefaultRoot() string {
	return filepath.Join(xdg.DataHome, "aam", "registry")
}

// indexFile is the registry-level index listing known packages and
// their distribution tags.
type indexFile struct {
	Registry string                       `yaml:"registry"`
	Packages []string                     `yaml:"packages"`
	DistTags map[string]map[string]string `yaml:"dist_tags,omitempty"`
}

// metadataFile is the per-package version catalog.
type metadataFile struct {
	Name     string                   `yaml:"name"`
	Versions map[string]versionRecord `yaml:"versions"`
}

// versionRecord describes one published version of a package.
type versionRecord struct {
	Checksum     string            `yaml:"checksum"`
	Archive      string            `yaml:"archive"`
	Dependencies map[string]string `yaml:"dependencies,omitempty"`
	Signature    *signatureRecord  `yaml:"signature,omitempty"`
}

// signatureRecord is a detached signature stored alongside version
// metadata. Key and signature bytes are base64-encoded.
type signatureRecord struct {
	Identity  string `yaml:"identity"`
	PublicKey string `yaml:"public_key"`
	Signature string `yaml:"signature"`
}

// Registry is a filesystem-backed package registry rooted at a
// directory holding index.yaml and per-package metadata. It implements
// registry.Registry and registry.SignatureProvider.
type Registry struct {
	name string
	root string
}

var _ registry.Registry = (*Registry)(nil)
var _ registry.SignatureProvider = (*Registry)(nil)

// New creates a local registry at the given root directory. An empty
// root selects DefaultRoot. The root is not required to exist yet;
// queries against a missing root fail with registry.ErrNotConfigured
// wrapped as unreachable, and Publish creates it.
func New(name, root string) *Registry {
	if root == "" {
		root = DefaultRoot()
	}
	return &Registry{name: name, root: root}
}

// Name implements registry.Registry.
func (r *Registry) Name() string {
	return r.name
}

// Root returns the registry's root directory.
func (r *Registry) Root() string {
	return r.root
}

// packageDir maps a package name to its directory under packages/.
// Scoped names are flattened: "@scope/tool" becomes "scope__tool".
func (r *Registry) packageDir(name manifest.PackageName) string {
	dir := strings.TrimPrefix(string(name), "@")
	dir = strings.ReplaceAll(dir, "/", "__")
	return filepath.Join(r.root, packagesDirName, dir)
}

// readMetadata loads a package's version catalog. A package absent
// from the registry yields (nil, nil).
func (r *Registry) readMetadata(name manifest.PackageName) (*metadataFile, error) {
	if _, err := os.Stat(r.root); err != nil {
		if os.IsNotExist(err) {
			return nil, registry.Unreachablef(r.name, fmt.Errorf("%w: root %s does not exist", registry.ErrNotConfigured, r.root))
		}
		return nil, registry.Unreachablef(r.name, err)
	}

	data, err := os.ReadFile(filepath.Join(r.packageDir(name), metadataFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, registry.Unreachablef(r.name, err)
	}

	var meta metadataFile
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing metadata for %s in registry %q: %w", name, r.name, err)
	}
	if meta.Name != string(name) {
		return nil, fmt.Errorf("metadata name %q does not match package %q in registry %q", meta.Name, name, r.name)
	}
	return &meta, nil
}

// ListVersions implements registry.Registry.
func (r *Registry) ListVersions(_ context.Context, name manifest.PackageName) ([]*semver.Version, error) {
	meta, err := r.readMetadata(name)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, nil
	}

	out := make([]*semver.Version, 0, len(meta.Versions))
	for raw := range meta.Versions {
		v, err := constraint.ParseVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid version %q for %s in registry %q: %w", raw, name, r.name, err)
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LessThan(out[j]) })
	return out, nil
}

// record fetches the version record for one published version.
func (r *Registry) record(name manifest.PackageName, version *semver.Version) (*versionRecord, error) {
	meta, err := r.readMetadata(name)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, fmt.Errorf("%s not found in registry %q", name, r.name)
	}
	rec, ok := meta.Versions[version.String()]
	if !ok {
		return nil, fmt.Errorf("%s@%s not found in registry %q", name, version, r.name)
	}
	return &rec, nil
}

// FetchManifest implements registry.Registry.
func (r *Registry) FetchManifest(
	_ context.Context,
	name manifest.PackageName,
	version *semver.Version,
) (*manifest.Ref, digest.Digest, error) {
	rec, err := r.record(name, version)
	if err != nil {
		return nil, "", err
	}

	checksum, err := digest.Parse(rec.Checksum)
	if err != nil {
		return nil, "", fmt.Errorf("invalid checksum for %s@%s in registry %q: %w", name, version, r.name, err)
	}

	deps := make(map[manifest.PackageName]constraint.Constraint, len(rec.Dependencies))
	for depName, depConstraint := range rec.Dependencies {
		dn, err := manifest.ParsePackageName(depName)
		if err != nil {
			return nil, "", fmt.Errorf("invalid dependency name %q for %s@%s: %w", depName, name, version, err)
		}
		c, err := constraint.Parse(depConstraint)
		if err != nil {
			return nil, "", fmt.Errorf("invalid dependency constraint %q for %s@%s: %w", depConstraint, name, version, err)
		}
		deps[dn] = c
	}

	return &manifest.Ref{Name: name, Version: version, Dependencies: deps}, checksum, nil
}

// FetchArchive implements registry.Registry.
func (r *Registry) FetchArchive(_ context.Context, name manifest.PackageName, version *semver.Version) ([]byte, error) {
	rec, err := r.record(name, version)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(r.packageDir(name), rec.Archive))
	if err != nil {
		return nil, fmt.Errorf("reading archive for %s@%s in registry %q: %w", name, version, r.name, err)
	}
	return data, nil
}

// FetchSignature implements registry.SignatureProvider. Versions
// published without a signature block yield (nil, nil).
func (r *Registry) FetchSignature(_ context.Context, name manifest.PackageName, version *semver.Version) (*verify.Signature, error) {
	rec, err := r.record(name, version)
	if err != nil {
		return nil, err
	}
	if rec.Signature == nil {
		return nil, nil
	}

	pub, err := base64.StdEncoding.DecodeString(rec.Signature.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("decoding public key for %s@%s: %w", name, version, err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key for %s@%s has %d bytes, want %d", name, version, len(pub), ed25519.PublicKeySize)
	}
	sig, err := base64.StdEncoding.DecodeString(rec.Signature.Signature)
	if err != nil {
		return nil, fmt.Errorf("decoding signature for %s@%s: %w", name, version, err)
	}

	return &verify.Signature{
		Identity:  rec.Signature.Identity,
		PublicKey: ed25519.PublicKey(pub),
		Sig:       sig,
	}, nil
}

// readIndex loads the registry index, or an empty index when the file
// does not exist yet.
func (r *Registry) readIndex() (*indexFile, error) {
	data, err := os.ReadFile(filepath.Join(r.root, indexFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return &indexFile{Registry: r.name}, nil
		}
		return nil, registry.Unreachablef(r.name, err)
	}
	var idx indexFile
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parsing index of registry %q: %w", r.name, err)
	}
	return &idx, nil
}

// Packages lists all package names recorded in the index, sorted.
func (r *Registry) Packages() ([]manifest.PackageName, error) {
	if _, err := os.Stat(r.root); err != nil {
		if os.IsNotExist(err) {
			return nil, registry.Unreachablef(r.name, fmt.Errorf("%w: root %s does not exist", registry.ErrNotConfigured, r.root))
		}
		return nil, registry.Unreachablef(r.name, err)
	}

	idx, err := r.readIndex()
	if err != nil {
		return nil, err
	}
	sort.Strings(idx.Packages)
	out := make([]manifest.PackageName, 0, len(idx.Packages))
	for _, name := range idx.Packages {
		pkgName, err := manifest.ParsePackageName(name)
		if err != nil {
			return nil, fmt.Errorf("invalid package name %q in index of registry %q: %w", name, r.name, err)
		}
		out = append(out, pkgName)
	}
	return out, nil
}

// DistTag resolves a distribution tag (for example "latest") for a
// package to a version, or nil when the tag is not set.
func (r *Registry) DistTag(name manifest.PackageName, tag string) (*semver.Version, error) {
	idx, err := r.readIndex()
	if err != nil {
		return nil, err
	}
	raw, ok := idx.DistTags[string(name)][tag]
	if !ok {
		return nil, nil
	}
	v, err := constraint.ParseVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("dist tag %q of %s points at invalid version %q: %w", tag, name, raw, err)
	}
	return v, nil
}
