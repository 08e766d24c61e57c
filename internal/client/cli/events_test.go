package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/dmitrijs2005/medkeeper/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvents(t *testing.T) {
	l, tr := newLedger(), newMemTransfer()
	h := newHarness(t, l, tr)
	h.keygen(t)
	h.mustRun(t, "", "upload", writeDoc(t, "x"))
	h.mustRun(t, "", "delete", "1")

	out := h.mustRun(t, "", "events")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "ProviderAuthorized")
	assert.Contains(t, lines[1], "RecordCreated")
	assert.Contains(t, lines[2], "RecordDeleted")
	assert.True(t, strings.HasPrefix(lines[2], "3\t"))

	out = h.mustRun(t, "", "events", "--after", "1", "--limit", "1")
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, "RecordCreated")
}

func TestEvents_FollowJSON(t *testing.T) {
	l, tr := newLedger(), newMemTransfer()
	h := newHarness(t, l, tr)
	h.keygen(t)
	h.mustRun(t, "", "upload", writeDoc(t, "x"))

	out := h.mustRun(t, "", "--format", "json", "events", "--follow", "--after", "1")

	dec := json.NewDecoder(strings.NewReader(out))
	var ev api.AuditEvent
	require.NoError(t, dec.Decode(&ev))
	assert.Equal(t, int64(2), ev.Seq)
	assert.Equal(t, "RecordCreated", ev.Kind)
	assert.False(t, dec.More())
}
