// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package verify implements the integrity and authenticity gate of the
install pipeline.

Every fetched archive passes through Archive before extraction. The
checksum step is unconditional: the sha256 digest of the raw archive bytes
must equal the checksum recorded in the package metadata, and a mismatch
is a hard ChecksumError: corrupted or tampered archives are never
unpacked.

The signature step is governed by a TrustPolicy. Archives may carry a
detached ed25519 signature with a claimed signer identity. Cryptographic
validity is checked first; trust is decided separately by matching the
signer against glob identity patterns (doublestar syntax, for example
"*@example.org"), trusted key fingerprints, or an optional CEL rule
evaluated with identity, fingerprint, and valid bindings. Failures are
routed through the policy's failure mode: Error aborts the package's
installation, Warn logs and proceeds, Ignore proceeds silently. Policies
fail closed: the zero failure mode is Error.
*/
package verify
