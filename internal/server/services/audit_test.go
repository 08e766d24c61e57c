package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/medkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampPageSize(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultAuditPageSize},
		{-5, DefaultAuditPageSize},
		{1, 1},
		{250, 250},
		{MaxAuditPageSize, MaxAuditPageSize},
		{MaxAuditPageSize + 1, MaxAuditPageSize},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampPageSize(tt.in), "limit %d", tt.in)
	}
}

func TestAuditService_List(t *testing.T) {
	db, _ := newSQLMock(t)
	store := newMemStore()
	for i := 0; i < 5; i++ {
		store.events = append(store.events, &models.AuditEvent{Seq: int64(i + 1), Kind: models.EventKeyUpdated, RecordID: 1})
	}
	svc := NewAuditService(db, &memManager{s: store})

	got, err := svc.List(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].Seq)
	assert.Equal(t, int64(4), got[1].Seq)

	got, err = svc.List(context.Background(), -1, 0)
	require.NoError(t, err)
	assert.Len(t, got, 5)

	got, err = svc.List(context.Background(), 5, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}
