// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// FailureMode selects what happens when a signature check fails: the
// signature is absent but required, cryptographically invalid, or valid
// but signed by an untrusted party.
type FailureMode int

const (
	// FailureModeError aborts installation of the package. This is the
	// zero value: policies fail closed unless configured otherwise.
	FailureModeError FailureMode = iota
	// FailureModeWarn logs the failure and proceeds.
	FailureModeWarn
	// FailureModeIgnore proceeds silently.
	FailureModeIgnore
)

// String implements fmt.Stringer.
func (m FailureMode) String() string {
	switch m {
	case FailureModeError:
		return "error"
	case FailureModeWarn:
		return "warn"
	case FailureModeIgnore:
		return "ignore"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ParseFailureMode parses "error", "warn", or "ignore".
func ParseFailureMode(s string) (FailureMode, error) {
	switch s {
	case "error":
		return FailureModeError, nil
	case "warn":
		return FailureModeWarn, nil
	case "ignore":
		return FailureModeIgnore, nil
	default:
		return FailureModeError, fmt.Errorf("unknown signature failure mode %q", s)
	}
}

// TrustPolicy governs the signature step of verification. The checksum
// step is not policy-driven and can never be disabled.
type TrustPolicy struct {
	// RequireSignature makes an absent signature a failure instead of a
	// skipped step.
	RequireSignature bool

	// TrustedIdentities lists glob patterns for signer identities, for
	// example "*@example.org".
	TrustedIdentities []string

	// TrustedKeys lists trusted public key fingerprints in
	// "sha256:<hex>" form.
	TrustedKeys []string

	// Rule is an optional CEL expression evaluated with the bindings
	// identity (string), fingerprint (string), and valid (bool). When it
	// evaluates to true the signer is trusted even if no identity or key
	// list matched.
	Rule string

	// OnFailure selects the reaction to signature failures.
	OnFailure FailureMode
}

// Trusted reports whether the signer of a valid signature is trusted by
// this policy. It must only be called for signatures that already passed
// cryptographic verification.
func (p TrustPolicy) Trusted(sig *Signature) (bool, error) {
	for _, pattern := range p.TrustedIdentities {
		ok, err := doublestar.Match(pattern, sig.Identity)
		if err != nil {
			return false, fmt.Errorf("invalid trusted identity pattern %q: %w", pattern, err)
		}
		if ok {
			return true, nil
		}
	}

	fingerprint := sig.Fingerprint().String()
	for _, key := range p.TrustedKeys {
		if key == fingerprint {
			return true, nil
		}
	}

	if p.Rule != "" {
		return evalRule(p.Rule, sig.Identity, fingerprint, true)
	}

	return false, nil
}
