package cryptox

import (
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

const saltSize = 16

// ErrWrongPassphrase is returned when a sealed key cannot be opened.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted key")

// DeriveMasterKey stretches a passphrase with argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// SealPrivateKey encrypts priv for storage at rest as
// salt (16) || nonce || AES-GCM ciphertext.
func SealPrivateKey(priv *secp256k1.PrivateKey, passphrase []byte) ([]byte, error) {
	salt, err := common.GenerateRandByteArray(saltSize)
	if err != nil {
		return nil, err
	}

	mk := DeriveMasterKey(passphrase, salt)
	defer common.WipeByteArray(mk)

	raw := priv.Serialize()
	defer common.WipeByteArray(raw)

	sealed, err := seal(mk, raw, salt)
	if err != nil {
		return nil, fmt.Errorf("seal private key: %w", err)
	}
	return append(salt, sealed...), nil
}

// OpenPrivateKey reverses SealPrivateKey.
func OpenPrivateKey(sealed, passphrase []byte) (*secp256k1.PrivateKey, error) {
	if len(sealed) <= saltSize {
		return nil, ErrMalformed
	}

	salt := sealed[:saltSize]
	mk := DeriveMasterKey(passphrase, salt)
	defer common.WipeByteArray(mk)

	raw, err := open(mk, sealed[saltSize:], salt)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	defer common.WipeByteArray(raw)

	return secp256k1.PrivKeyFromBytes(raw), nil
}
