// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package registry defines the abstract query contract between the install
pipeline and package registries.

The pipeline depends only on the Registry interface: list the versions of
a name, fetch the resolution-relevant manifest plus its expected checksum,
and fetch the raw archive bytes. Concrete backends implement this contract
elsewhere; the local filesystem backend lives in the local sub-package.

Two conventions keep backends composable:

  - "Package not in this registry" is an empty version list, never an
    error. Errors mean the registry itself failed (ErrUnreachable,
    ErrNotConfigured).
  - Multi composes registries in search order: the first registry offering
    any version of a name claims that name, unreachable registries are
    skipped with a warning, and the lookup fails only when every registry
    failed.

Registries that serve detached signatures additionally implement
SignatureProvider; the verifier treats missing signatures according to the
trust policy.
*/
package registry
