package api

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidHex = errors.New("invalid hex value")

// EncodeHex32 renders a 32-byte value as 0x-prefixed lowercase hex.
func EncodeHex32(b [32]byte) string {
	return "0x" + hex.EncodeToString(b[:])
}

// ParseHex32 parses 64 hex digits with an optional 0x prefix.
func ParseHex32(s string) ([32]byte, error) {
	var out [32]byte

	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if len(s) != 64 {
		return out, fmt.Errorf("%w: want 64 hex digits, got %d", ErrInvalidHex, len(s))
	}
	if _, err := hex.Decode(out[:], []byte(s)); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}
	return out, nil
}
