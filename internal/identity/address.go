// Package identity defines the 20-byte account address used to name
// patients and providers across the registry.
//
// An address is derived from a secp256k1 public key as the last 20 bytes of
// the Keccak-256 hash of the uncompressed key (without the 0x04 prefix).
// The canonical text form is lowercase hex with a "0x" prefix.
package identity

import (
	"database/sql/driver"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/sha3"
)

// AddressLength is the size of an address in bytes.
const AddressLength = 20

// ErrInvalidAddress is returned when a string is not a 20-byte hex address.
var ErrInvalidAddress = errors.New("invalid address")

// Address identifies a patient or a provider.
type Address [AddressLength]byte

// Zero is the null identity returned when no signer can be recovered.
var Zero Address

// ParseAddress parses a hex address with or without the "0x" prefix.
// Case is ignored.
func ParseAddress(s string) (Address, error) {
	var a Address

	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if len(s) != AddressLength*2 {
		return a, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	copy(a[:], b)
	return a, nil
}

// MustParseAddress is like ParseAddress but panics on error.
// Intended for constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromPublicKey derives the address of a secp256k1 public key.
func FromPublicKey(pub *secp256k1.PublicKey) Address {
	var a Address
	if pub == nil {
		return a
	}

	h := sha3.NewLegacyKeccak256()
	h.Write(pub.SerializeUncompressed()[1:])
	sum := h.Sum(nil)

	copy(a[:], sum[len(sum)-AddressLength:])
	return a
}

// Hex returns the canonical "0x"-prefixed lowercase form.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) String() string {
	return a.Hex()
}

// IsZero reports whether a is the null identity.
func (a Address) IsZero() bool {
	return a == Zero
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(b []byte) error {
	parsed, err := ParseAddress(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value stores the address in its canonical text form.
func (a Address) Value() (driver.Value, error) {
	return a.Hex(), nil
}

// Scan reads an address stored by Value.
func (a *Address) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	case nil:
		*a = Zero
		return nil
	default:
		return fmt.Errorf("%w: unsupported scan type %T", ErrInvalidAddress, src)
	}
}
