// ABOUTME: Shared test helpers and tests for opening the SQLite ledger
// ABOUTME: Verifies schema creation, reopen persistence and action constraints

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "audit.db")

	store, err := NewSQLiteStore(dbPath, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func TestNewSQLiteStore_CreatesParentDirs(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "audit.db")

	store, err := NewSQLiteStore(dbPath, nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	assert.FileExists(t, dbPath)
}

func TestNewSQLiteStore_InMemory(t *testing.T) {
	store, err := NewSQLiteStore(":memory:", nil)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.AppendAuditLog(ctx, &AuditEntry{
		ChatID:  "room",
		ActorID: "alice",
		Action:  AuditGroupLeft,
	}))

	entries, err := store.ListAuditLog(ctx, AuditFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	ctx := context.Background()

	first, err := NewSQLiteStore(dbPath, nil)
	require.NoError(t, err)
	require.NoError(t, first.AppendAuditLog(ctx, &AuditEntry{
		ChatID:  "room",
		ActorID: "alice",
		Action:  AuditGroupRenamed,
		Detail:  map[string]any{"subject": "New Name"},
	}))
	require.NoError(t, first.Close())

	second, err := NewSQLiteStore(dbPath, nil)
	require.NoError(t, err)
	defer second.Close()

	entries, err := second.ListAuditLog(ctx, AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "New Name", entries[0].Detail["subject"])
}

func TestSQLiteStore_RejectsUnknownAction(t *testing.T) {
	store := setupTestStore(t)

	err := store.AppendAuditLog(context.Background(), &AuditEntry{
		ChatID:  "room",
		ActorID: "alice",
		Action:  AuditAction("launch_missiles"),
	})
	assert.Error(t, err)
}

func TestNormalizeAuditLimit(t *testing.T) {
	assert.Equal(t, 100, normalizeAuditLimit(0))
	assert.Equal(t, 100, normalizeAuditLimit(-3))
	assert.Equal(t, 5, normalizeAuditLimit(5))
	assert.Equal(t, 1000, normalizeAuditLimit(5000))
}
