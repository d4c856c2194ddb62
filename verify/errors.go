// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"fmt"

	"github.com/opencontainers/go-digest"
)

// ChecksumError reports that fetched archive bytes do not match the
// checksum recorded for them. It is always fatal for the affected package
// and is raised before any extraction can happen.
type ChecksumError struct {
	// Name and Version identify the affected package. Archive verifies
	// raw bytes and leaves them empty; callers that know which package
	// the bytes belong to fill them in.
	Name    string
	Version string
	// Expected is the checksum recorded in the package metadata.
	Expected digest.Digest
	// Actual is the checksum computed over the fetched bytes.
	Actual digest.Digest
}

// Error implements the error interface.
func (e *ChecksumError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("checksum mismatch for %s@%s: expected %s, actual %s", e.Name, e.Version, e.Expected, e.Actual)
	}
	return fmt.Sprintf("checksum mismatch: expected %s, actual %s", e.Expected, e.Actual)
}

// SignatureError reports a signature failure in a trust policy whose
// failure mode is FailureModeError. Warn and Ignore modes never produce
// this error.
type SignatureError struct {
	// Reason describes why the signature was rejected.
	Reason string
}

// Error implements the error interface.
func (e *SignatureError) Error() string {
	return fmt.Sprintf("signature rejected: %s", e.Reason)
}
