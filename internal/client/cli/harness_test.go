package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/medkeeper/internal/client/store"
	"github.com/dmitrijs2005/medkeeper/internal/identity"
	"github.com/stretchr/testify/require"
)

const testPass = "correct horse battery staple"

// harness runs commands for one local identity against a shared ledger.
type harness struct {
	app    *App
	store  *store.Store
	ledger *ledger
	tr     *memTransfer

	dialedToken string
}

func newHarness(t *testing.T, l *ledger, tr *memTransfer) *harness {
	t.Helper()

	s, err := store.OpenDSN(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	h := &harness{store: s, ledger: l, tr: tr}
	h.app = NewApp()
	h.app.openStore = func(context.Context, string) (*store.Store, error) { return s, nil }
	h.app.dial = func(_ string, token string) (Registry, error) {
		h.dialedToken = token
		caller := identity.Zero
		if id, err := s.Identity(context.Background()); err == nil {
			caller = id.Address
		}
		return l.as(caller, token), nil
	}
	h.app.transfer = tr
	return h
}

func (h *harness) run(stdin string, args ...string) (string, error) {
	var out, errOut bytes.Buffer

	cmd := NewRootCommand(h.app)
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))

	err := cmd.ExecuteContext(context.Background())

	// every invocation gets fresh input and a fresh connection, as in main
	h.app.in = nil
	h.app.registry = nil
	return out.String(), err
}

func (h *harness) mustRun(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	out, err := h.run(stdin, args...)
	require.NoError(t, err, "medkeeper %s", strings.Join(args, " "))
	return out
}

// keygen creates an identity and returns its address and public key hex.
func (h *harness) keygen(t *testing.T) (identity.Address, string) {
	t.Helper()
	h.mustRun(t, testPass+"\n"+testPass+"\n", "keygen")

	id, err := h.store.Identity(context.Background())
	require.NoError(t, err)
	v, err := identityView(id)
	require.NoError(t, err)
	return id.Address, v.PublicKey
}

func pass() string { return testPass + "\n" }

var errBoom = errors.New("boom")
