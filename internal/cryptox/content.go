// Package cryptox holds the client-side cryptography of MedKeeper.
//
// The registry never sees plaintext or content keys. Clients encrypt a
// document with a fresh AES-256-GCM content key, publish the SHA-256 of the
// ciphertext as the record digest, and hand out the content key wrapped
// separately for each reader's secp256k1 public key.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/medkeeper/internal/common"
)

// ContentKeySize is the length of an AES-256 content key.
const ContentKeySize = 32

// ErrMalformed is returned when a ciphertext is too short to be valid.
var ErrMalformed = errors.New("malformed ciphertext")

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// seal encrypts plaintext under key and returns nonce || ciphertext.
func seal(key, plaintext, aad []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce, err := common.GenerateRandByteArray(aesgcm.NonceSize())
	if err != nil {
		return nil, err
	}

	return aesgcm.Seal(nonce, nonce, plaintext, aad), nil
}

func open(key, sealed, aad []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	ns := aesgcm.NonceSize()
	if len(sealed) < ns+aesgcm.Overhead() {
		return nil, ErrMalformed
	}

	return aesgcm.Open(nil, sealed[:ns], sealed[ns:], aad)
}

// EncryptContent encrypts a document under a freshly generated content key.
// The returned ciphertext is what gets uploaded and digested.
func EncryptContent(plaintext []byte) (ciphertext, contentKey []byte, err error) {
	contentKey, err = common.GenerateRandByteArray(ContentKeySize)
	if err != nil {
		return nil, nil, err
	}

	ciphertext, err = seal(contentKey, plaintext, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("encrypt content: %w", err)
	}
	return ciphertext, contentKey, nil
}

// DecryptContent reverses EncryptContent.
func DecryptContent(ciphertext, contentKey []byte) ([]byte, error) {
	plaintext, err := open(contentKey, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt content: %w", err)
	}
	return plaintext, nil
}

// ContentDigest is the integrity hash stored with a record.
func ContentDigest(ciphertext []byte) [32]byte {
	return sha256.Sum256(ciphertext)
}
