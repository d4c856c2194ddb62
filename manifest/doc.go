// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package manifest defines package identity and the typed manifest boundary.

Manifests are YAML documents. Parsing is a single validation gate:
documents are checked against an embedded JSON schema, decoded strictly
(unknown keys rejected), and converted into typed values (package names,
semantic versions, constraint predicates) before any resolution logic
can see them. Every failure at this boundary is an *InvalidError; nothing
downstream ever re-validates manifest input.

A PackageName is either "name" or "@scope/name", lowercase alphanumeric
with dashes, each segment at most 64 characters and the whole at most 130.

The Ref type is the resolver's view of a manifest: name, version, and the
dependency constraint map. Artifact declarations are carried on the full
Manifest for the deploy handoff but are never interpreted here.
*/
package manifest
