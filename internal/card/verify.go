package card

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
)

// Verify base58-decodes card.PublicKey and signatureB58, then checks
// signatureB58 as a detached Ed25519 signature over the canonical
// serialization of card. Any decode failure or length mismatch is
// reported as a false verdict, never an error: signature verification is
// a boolean gate, not a parser.
func Verify(c *Card, signatureB58 string) bool {
	pubBytes, err := base58.Decode(c.PublicKey)
	if err != nil || len(pubBytes) != ed25519.PublicKeySize {
		return false
	}

	sigBytes, err := base58.Decode(signatureB58)
	if err != nil || len(sigBytes) != ed25519.SignatureSize {
		return false
	}

	canon, err := Canonicalize(c)
	if err != nil {
		return false
	}

	return ed25519.Verify(ed25519.PublicKey(pubBytes), canon, sigBytes)
}

// Sign produces a base58-encoded detached Ed25519 signature over the
// canonical serialization of card. Exposed for tests and for operators
// provisioning agent cards out of band; the registration pipeline itself
// never signs, only verifies.
func Sign(c *Card, priv ed25519.PrivateKey) (string, error) {
	canon, err := Canonicalize(c)
	if err != nil {
		return "", err
	}
	sig := ed25519.Sign(priv, canon)
	return base58.Encode(sig), nil
}
