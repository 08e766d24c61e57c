// Package sigverify recovers the signer of a secp256k1 ECDSA signature.
//
// RecoverSigner is a pure primitive for off-chain consent attestation: it
// answers "whose key produced this signature over this digest" and nothing
// else. Callers compare the result with the identity they expect.
package sigverify

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/dmitrijs2005/medkeeper/internal/identity"
)

// DigestLength is the size of the message digest a signature covers.
const DigestLength = 32

// Digest is a fixed-size message hash.
type Digest [DigestLength]byte

// compactMagic is the recovery-byte offset of compact signatures. Values of
// v below it (0 or 1) are raw recovery ids.
const compactMagic = 27

// RecoverSigner returns the address whose private key produced the (v, r, s)
// signature over digest. v may be a raw recovery id (0, 1) or carry the
// 27 offset (27, 28).
//
// Malformed components or a point that cannot be recovered yield
// identity.Zero. The function never panics and never returns an error.
func RecoverSigner(digest Digest, v byte, r, s [32]byte) identity.Address {
	if v < compactMagic {
		v += compactMagic
	}
	if v != compactMagic && v != compactMagic+1 {
		return identity.Zero
	}

	sig := make([]byte, 0, 65)
	sig = append(sig, v)
	sig = append(sig, r[:]...)
	sig = append(sig, s[:]...)

	pub, _, err := ecdsa.RecoverCompact(sig, digest[:])
	if err != nil {
		return identity.Zero
	}

	return identity.FromPublicKey(pub)
}

// Sign produces (v, r, s) over digest with v in {27, 28}. It is the inverse
// of RecoverSigner and is used by clients to attest consent.
func Sign(priv *secp256k1.PrivateKey, digest Digest) (v byte, r, s [32]byte) {
	sig := ecdsa.SignCompact(priv, digest[:], false)

	v = sig[0]
	copy(r[:], sig[1:33])
	copy(s[:], sig[33:65])
	return v, r, s
}
