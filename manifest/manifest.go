// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"bytes"
	"os"
	"sort"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/spazyCZ/agent-package-manager-sub001/constraint"
)

// FileName is the canonical manifest file name at a package root.
const FileName = "aam.yaml"

// Artifact declares one unit of agent capability bundled in a package.
// Artifacts are payload: the core carries them through to the deploy
// handoff without interpreting them.
type Artifact struct {
	// Name identifies the artifact within the package.
	Name string `json:"name" yaml:"name"`
	// Type is the artifact kind, for example "skill", "agent", "prompt",
	// or "instruction".
	Type string `json:"type" yaml:"type"`
	// Path is the artifact's location relative to the package root.
	Path string `json:"path" yaml:"path"`
}

// Manifest is the fully parsed and validated package manifest.
type Manifest struct {
	// Name is the validated package name.
	Name PackageName
	// Version is the package's own version.
	Version *semver.Version
	// Description is a human-readable summary. Optional.
	Description string
	// Dependencies maps dependency names to their version constraints.
	Dependencies map[PackageName]constraint.Constraint
	// Artifacts lists the artifact declarations for platform adapters.
	Artifacts []Artifact
}

// Ref returns the resolution-relevant subset of the manifest.
func (m *Manifest) Ref() *Ref {
	return &Ref{Name: m.Name, Version: m.Version, Dependencies: m.Dependencies}
}

// Ref is the subset of a manifest the resolver traverses: the package's
// identity plus its dependency constraints. The full artifact payload is
// irrelevant to resolution.
type Ref struct {
	Name         PackageName
	Version      *semver.Version
	Dependencies map[PackageName]constraint.Constraint
}

// DependencyNames returns the dependency names in sorted order, giving
// callers a deterministic traversal order.
func (r *Ref) DependencyNames() []PackageName {
	names := make([]PackageName, 0, len(r.Dependencies))
	for name := range r.Dependencies {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// document is the raw YAML shape of a manifest, decoded strictly before
// validation converts it into the typed Manifest.
type document struct {
	Name         string            `json:"name" yaml:"name"`
	Version      string            `json:"version" yaml:"version"`
	Description  string            `json:"description,omitempty" yaml:"description,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Artifacts    []Artifact        `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
}

// Parse parses and validates a YAML manifest document.
// All failures are reported as *InvalidError; no partially-validated
// manifest is ever returned.
func Parse(data []byte) (*Manifest, error) {
	return parse(data, "")
}

// ParseFile reads, parses, and validates the manifest at path.
func ParseFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, invalidf(path, "reading manifest: %v", err)
	}
	return parse(data, path)
}

func parse(data []byte, path string) (*Manifest, error) {
	if err := validateSchema(data); err != nil {
		return nil, invalidf(path, "%v", err)
	}

	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, invalidf(path, "parsing YAML: %v", err)
	}

	name, err := ParsePackageName(doc.Name)
	if err != nil {
		return nil, invalidf(path, "%v", err)
	}

	version, err := constraint.ParseVersion(doc.Version)
	if err != nil {
		return nil, invalidf(path, "%v", err)
	}

	deps := make(map[PackageName]constraint.Constraint, len(doc.Dependencies))
	for rawName, rawConstraint := range doc.Dependencies {
		depName, err := ParsePackageName(rawName)
		if err != nil {
			return nil, invalidf(path, "dependency %q: %v", rawName, err)
		}
		if depName == name {
			return nil, invalidf(path, "package %q cannot depend on itself", name)
		}
		c, err := constraint.Parse(rawConstraint)
		if err != nil {
			return nil, invalidf(path, "dependency %q: %v", rawName, err)
		}
		deps[depName] = c
	}

	for i, a := range doc.Artifacts {
		if a.Name == "" || a.Type == "" || a.Path == "" {
			return nil, invalidf(path, "artifact %d: name, type, and path are required", i)
		}
	}

	return &Manifest{
		Name:         name,
		Version:      version,
		Description:  doc.Description,
		Dependencies: deps,
		Artifacts:    doc.Artifacts,
	}, nil
}
