// Package signer owns the issuer key pair, signs credential documents, and
// derives holder identifiers from external user ids.
package signer

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/btcsuite/btcutil/base58"

	"unicred/internal/domain"
	dErrors "unicred/pkg/domain-errors"
)

// holderDIDPrefix namespaces derived holder identifiers. No external DID
// registry backs these yet; the derivation is deterministic so the same
// learner always maps to the same DID within a deployment.
const holderDIDPrefix = "did:uni:holder:"

// Signer holds the issuer's Ed25519 key pair. It is constructed once at
// process start; the key material is read-only afterwards and safe for
// concurrent signing.
type Signer struct {
	issuerDID string
	public    ed25519.PublicKey
	private   ed25519.PrivateKey
}

// New generates a fresh key pair for the process lifetime. There is no key
// rotation in this version.
func New(issuerDID string) (*Signer, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate issuer key pair: %w", err)
	}
	return &Signer{issuerDID: issuerDID, public: public, private: private}, nil
}

// IssuerDID returns the stable issuer identifier. It comes from
// configuration, not from the key material.
func (s *Signer) IssuerDID() string {
	return s.issuerDID
}

// DeriveHolderDID maps an external user id to a holder DID. The mapping is a
// base58-encoded SHA-256 digest: deterministic and collision-resistant.
func (s *Signer) DeriveHolderDID(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return holderDIDPrefix + base58.Encode(sum[:])
}

// Sign computes the proof block over the canonical serialization of the
// document with any existing proof stripped, then returns the block for the
// caller to attach.
func (s *Signer) Sign(doc domain.VerifiableCredential) (domain.Proof, error) {
	if s.private == nil {
		return domain.Proof{}, dErrors.New(dErrors.CodeInternal, "signing key unavailable")
	}

	doc.Proof = nil
	payload, err := Canonical(doc)
	if err != nil {
		return domain.Proof{}, fmt.Errorf("canonicalize credential: %w", err)
	}

	signature := ed25519.Sign(s.private, payload)
	return domain.Proof{
		Type:               domain.ProofTypeEd25519,
		Created:            time.Now().UTC().Format(time.RFC3339),
		VerificationMethod: s.issuerDID + "#key-1",
		ProofValue:         base64.StdEncoding.EncodeToString(signature),
	}, nil
}

// Verify checks a proof against the document it claims to cover. Used by
// tests and diagnostics; wallets verify with the published key.
func (s *Signer) Verify(doc domain.VerifiableCredential, proof domain.Proof) bool {
	doc.Proof = nil
	payload, err := Canonical(doc)
	if err != nil {
		return false
	}
	signature, err := base64.StdEncoding.DecodeString(proof.ProofValue)
	if err != nil {
		return false
	}
	return ed25519.Verify(s.public, payload, signature)
}
