package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/cryptox"
	"github.com/dmitrijs2005/medkeeper/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeThenRevoke(t *testing.T) {
	l, tr := newLedger(), newMemTransfer()
	patient := newHarness(t, l, tr)
	provider := newHarness(t, l, tr)
	patient.keygen(t)
	provAddr, provPub := provider.keygen(t)

	patient.mustRun(t, "", "upload", writeDoc(t, "discharge summary"))

	out := filepath.Join(t.TempDir(), "out")
	_, err := provider.run(pass(), "fetch", "1", out)
	require.ErrorIs(t, err, common.ErrNoKey)

	msg := patient.mustRun(t, pass(), "authorize", "1", provAddr.Hex(), provPub)
	assert.Equal(t, provAddr.Hex()+" authorized for record 1\n", msg)

	provider.mustRun(t, pass(), "fetch", "1", out)
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "discharge summary", string(got))

	msg = patient.mustRun(t, "", "revoke", "1", provAddr.Hex())
	assert.Equal(t, provAddr.Hex()+" revoked for record 1\n", msg)

	_, err = provider.run(pass(), "fetch", "1", out)
	assert.ErrorIs(t, err, common.ErrNoKey)
}

func TestAuthorize_OnlyCreator(t *testing.T) {
	l, tr := newLedger(), newMemTransfer()
	patient := newHarness(t, l, tr)
	provider := newHarness(t, l, tr)
	patient.keygen(t)
	provAddr, provPub := provider.keygen(t)

	patient.mustRun(t, "", "upload", writeDoc(t, "x"), "--provider", provAddr.Hex()+":"+provPub)

	// the provider holds a key but cannot re-share it
	_, err := provider.run(pass(), "authorize", "1", provAddr.Hex(), provPub)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = provider.run("", "revoke", "1", provAddr.Hex())
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestAuthorize_ArgumentErrors(t *testing.T) {
	h := newHarness(t, newLedger(), newMemTransfer())
	h.keygen(t)
	h.mustRun(t, "", "upload", writeDoc(t, "x"))

	k, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	addr := identity.FromPublicKey(k.PubKey())
	pub := cryptox.PublicKeyHex(k.PubKey())

	_, err = h.run(pass(), "authorize", "x", addr.Hex(), pub)
	assert.Error(t, err)

	_, err = h.run(pass(), "authorize", "1", "0x00000000000000000000000000000000000000f5", pub)
	assert.ErrorIs(t, err, ErrKeyAddressMismatch)

	_, err = h.run(pass(), "authorize", "7", addr.Hex(), pub)
	assert.ErrorIs(t, err, common.ErrorRecordNotFound)

	_, err = h.run("", "revoke", "1", "bad")
	assert.ErrorIs(t, err, identity.ErrInvalidAddress)

	_, err = h.run("", "revoke", "1")
	assert.Error(t, err)
}
