// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"crypto/ed25519"

	"github.com/opencontainers/go-digest"
)

// Signature is a detached ed25519 signature over raw archive bytes,
// carrying the signer identity claimed at signing time. The identity is
// untrusted input until the signature verifies and the trust policy
// accepts the signer.
type Signature struct {
	// Identity is the signer identity, typically an email address.
	Identity string
	// PublicKey is the signer's ed25519 public key.
	PublicKey ed25519.PublicKey
	// Sig is the signature over the raw archive byte stream.
	Sig []byte
}

// Fingerprint returns the sha256 digest of the public key, the form used
// in trust policy key lists.
func (s *Signature) Fingerprint() digest.Digest {
	return digest.FromBytes(s.PublicKey)
}

// Valid reports whether the signature cryptographically verifies over the
// archive bytes. Validity says nothing about trust.
func (s *Signature) Valid(archive []byte) bool {
	if len(s.PublicKey) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(s.PublicKey, archive, s.Sig)
}

// Sign produces a detached signature over archive with the given key and
// claimed identity. Used by publisher tooling and test fixtures; the
// install pipeline itself only ever verifies.
func Sign(key ed25519.PrivateKey, identity string, archive []byte) *Signature {
	return &Signature{
		Identity:  identity,
		PublicKey: key.Public().(ed25519.PublicKey),
		Sig:       ed25519.Sign(key, archive),
	}
}
