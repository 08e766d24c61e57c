package cryptox

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"golang.org/x/crypto/hkdf"
)

const (
	compressedPubKeyLen = 33
	wrapInfo            = "medkeeper content key v1"
)

// wrapKEK derives the key-encryption key from an ECDH shared secret. The
// ephemeral public key is bound in as salt.
func wrapKEK(shared, ephemeral []byte) ([]byte, error) {
	kek := make([]byte, ContentKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, ephemeral, []byte(wrapInfo)), kek); err != nil {
		return nil, err
	}
	return kek, nil
}

// WrapKey encrypts contentKey so that only the holder of the private key
// matching pub can recover it. The layout is
// ephemeral compressed pubkey (33) || nonce || AES-GCM ciphertext.
func WrapKey(pub *secp256k1.PublicKey, contentKey []byte) ([]byte, error) {
	if pub == nil {
		return nil, fmt.Errorf("wrap key: nil public key")
	}

	eph, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("wrap key: %w", err)
	}
	defer eph.Zero()

	ephPub := eph.PubKey().SerializeCompressed()
	shared := secp256k1.GenerateSharedSecret(eph, pub)
	defer common.WipeByteArray(shared)

	kek, err := wrapKEK(shared, ephPub)
	if err != nil {
		return nil, fmt.Errorf("wrap key: %w", err)
	}
	defer common.WipeByteArray(kek)

	sealed, err := seal(kek, contentKey, ephPub)
	if err != nil {
		return nil, fmt.Errorf("wrap key: %w", err)
	}

	return append(ephPub, sealed...), nil
}

// UnwrapKey recovers a content key produced by WrapKey.
func UnwrapKey(priv *secp256k1.PrivateKey, wrapped []byte) ([]byte, error) {
	if len(wrapped) <= compressedPubKeyLen {
		return nil, ErrMalformed
	}

	ephPub := wrapped[:compressedPubKeyLen]
	eph, err := secp256k1.ParsePubKey(ephPub)
	if err != nil {
		return nil, fmt.Errorf("unwrap key: %w", err)
	}

	shared := secp256k1.GenerateSharedSecret(priv, eph)
	defer common.WipeByteArray(shared)

	kek, err := wrapKEK(shared, ephPub)
	if err != nil {
		return nil, fmt.Errorf("unwrap key: %w", err)
	}
	defer common.WipeByteArray(kek)

	contentKey, err := open(kek, wrapped[compressedPubKeyLen:], ephPub)
	if err != nil {
		return nil, fmt.Errorf("unwrap key: %w", err)
	}
	return contentKey, nil
}

// ParsePublicKey accepts a compressed or uncompressed secp256k1 public key
// in hex, with or without the 0x prefix.
func ParsePublicKey(s string) (*secp256k1.PublicKey, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	pub, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return pub, nil
}

// PublicKeyHex is the form ParsePublicKey reads back.
func PublicKeyHex(pub *secp256k1.PublicKey) string {
	return "0x" + hex.EncodeToString(pub.SerializeCompressed())
}
