// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"fmt"

	"github.com/opencontainers/go-digest"

	"github.com/spazyCZ/agent-package-manager-sub001/logger"
)

// SignatureOutcome describes the signature step of one verification.
type SignatureOutcome struct {
	// Valid reports whether the signature cryptographically verified.
	Valid bool
	// Identity is the signer identity claimed by the signature.
	Identity string
	// Trusted reports whether the trust policy accepted the signer.
	Trusted bool
}

// Result is the outcome of verifying one archive. It is produced
// immediately after download and consumed within the install transaction;
// it is never persisted.
type Result struct {
	// ChecksumOK is true for every Result returned without error; a
	// checksum mismatch aborts verification instead of producing a Result.
	ChecksumOK bool
	// Signature is nil when no signature was present and none was required.
	Signature *SignatureOutcome
}

// Archive verifies fetched archive bytes against their expected checksum
// and, when present, their detached signature under the given trust
// policy.
//
// The checksum step always runs and cannot be disabled: a mismatch
// returns *ChecksumError and the archive must never be extracted. The
// signature step is policy-driven per TrustPolicy; only
// FailureModeError turns signature failures into a *SignatureError.
func Archive(archive []byte, expected digest.Digest, sig *Signature, policy TrustPolicy) (*Result, error) {
	if err := expected.Validate(); err != nil {
		return nil, fmt.Errorf("invalid expected checksum %q: %w", string(expected), err)
	}
	if expected.Algorithm() != digest.SHA256 {
		return nil, fmt.Errorf("unsupported checksum algorithm %q: only sha256 is accepted", expected.Algorithm())
	}

	actual := digest.FromBytes(archive)
	if actual != expected {
		return nil, &ChecksumError{Expected: expected, Actual: actual}
	}

	result := &Result{ChecksumOK: true}

	if sig == nil {
		if policy.RequireSignature {
			if err := signatureFailure(policy, "signature required but absent"); err != nil {
				return nil, err
			}
		}
		return result, nil
	}

	outcome := &SignatureOutcome{Identity: sig.Identity}
	result.Signature = outcome

	outcome.Valid = sig.Valid(archive)
	if !outcome.Valid {
		if err := signatureFailure(policy, fmt.Sprintf("invalid signature from %q", sig.Identity)); err != nil {
			return nil, err
		}
		return result, nil
	}

	trusted, err := policy.Trusted(sig)
	if err != nil {
		return nil, err
	}
	outcome.Trusted = trusted
	if !trusted {
		reason := fmt.Sprintf("valid signature from untrusted signer %q (key %s)", sig.Identity, sig.Fingerprint())
		if err := signatureFailure(policy, reason); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// signatureFailure applies the policy's failure mode to one signature
// failure. It returns a *SignatureError only in FailureModeError.
func signatureFailure(policy TrustPolicy, reason string) error {
	switch policy.OnFailure {
	case FailureModeWarn:
		logger.Warnw("signature verification failed, proceeding per trust policy", "reason", reason)
		return nil
	case FailureModeIgnore:
		return nil
	default:
		return &SignatureError{Reason: reason}
	}
}
