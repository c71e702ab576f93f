package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	s, err := m.CreateStore(ctx, "docs")
	require.NoError(t, err)
	require.NoError(t, ValidateStoreID(s.ID))

	fid, err := m.Register(ctx, "a.txt", []byte("hello"), "assistants")
	require.NoError(t, err)
	status, err := m.Attach(ctx, s.ID, fid)
	require.NoError(t, err)
	assert.Equal(t, "completed", status)

	_, err = m.Attach(ctx, "vs_missing", fid)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = m.Attach(ctx, s.ID, "file-missing")
	require.ErrorIs(t, err, ErrNotFound)

	stores, err := m.ListStores(ctx)
	require.NoError(t, err)
	require.Len(t, stores, 1)
	assert.Equal(t, 1, stores[0].FileCounts.Total)
	assert.Equal(t, int64(5), stores[0].UsageBytes)

	files, err := m.ListFiles(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, fid, files[0].ID)

	require.NoError(t, m.DeleteFile(ctx, s.ID, fid))
	require.ErrorIs(t, m.DeleteFile(ctx, s.ID, fid), ErrNotFound)
	files, err = m.ListFiles(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, files)

	require.NoError(t, m.DeleteStore(ctx, s.ID))
	require.ErrorIs(t, m.DeleteStore(ctx, s.ID), ErrNotFound)
	_, err = m.ListFiles(ctx, s.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
