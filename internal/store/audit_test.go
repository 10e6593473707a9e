// ABOUTME: Tests for audit log store operations
// ABOUTME: Covers Append and List with filtering for the audit_log table

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditStore_Append(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	entry := &AuditEntry{
		ChatID:  "!room:example.org",
		ActorID: "@spammer:example.org",
		Action:  AuditMessageSuppressed,
		Detail:  map[string]any{"policy": "antilink"},
	}

	err := store.AppendAuditLog(ctx, entry)
	require.NoError(t, err)

	// Should have generated ID and timestamp
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.Timestamp.IsZero())
}

func TestAuditStore_List_NoFilter(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i, action := range []AuditAction{AuditSettingsChanged, AuditMessageSuppressed, AuditGroupRenamed} {
		entry := &AuditEntry{
			ChatID:    "room",
			ActorID:   "alice",
			Action:    action,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.AppendAuditLog(ctx, entry))
	}

	entries, err := store.ListAuditLog(ctx, AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Should be newest first
	assert.Equal(t, AuditGroupRenamed, entries[0].Action)
	assert.Equal(t, AuditSettingsChanged, entries[2].Action)
}

func TestAuditStore_List_SubSecondOrdering(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	// 0.5s sorts after 0s only when fractional digits are fixed width.
	require.NoError(t, store.AppendAuditLog(ctx, &AuditEntry{
		ChatID: "room", ActorID: "a", Action: AuditSettingsChanged, Timestamp: base,
	}))
	require.NoError(t, store.AppendAuditLog(ctx, &AuditEntry{
		ChatID: "room", ActorID: "b", Action: AuditSettingsChanged, Timestamp: base.Add(500 * time.Millisecond),
	}))

	entries, err := store.ListAuditLog(ctx, AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].ActorID)
	assert.True(t, entries[0].Timestamp.Equal(base.Add(500*time.Millisecond)))
}

func TestAuditStore_List_ByChat(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, chat := range []string{"room-a", "room-b", "room-a"} {
		require.NoError(t, store.AppendAuditLog(ctx, &AuditEntry{
			ChatID:  chat,
			ActorID: "alice",
			Action:  AuditMessageSuppressed,
		}))
	}

	chat := "room-a"
	entries, err := store.ListAuditLog(ctx, AuditFilter{ChatID: &chat})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "room-a", e.ChatID)
	}
}

func TestAuditStore_List_ByActorAndAction(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendAuditLog(ctx, &AuditEntry{ChatID: "r", ActorID: "alice", Action: AuditGroupLeft}))
	require.NoError(t, store.AppendAuditLog(ctx, &AuditEntry{ChatID: "r", ActorID: "bob", Action: AuditGroupLeft}))
	require.NoError(t, store.AppendAuditLog(ctx, &AuditEntry{ChatID: "r", ActorID: "alice", Action: AuditGroupRenamed}))

	actor := "alice"
	entries, err := store.ListAuditLog(ctx, AuditFilter{ActorID: &actor})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	action := AuditGroupLeft
	entries, err = store.ListAuditLog(ctx, AuditFilter{ActorID: &actor, Action: &action})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, AuditGroupLeft, entries[0].Action)
}

func TestAuditStore_List_BySince(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.AppendAuditLog(ctx, &AuditEntry{
		ChatID: "r", ActorID: "old", Action: AuditSettingsChanged, Timestamp: now.Add(-2 * time.Hour),
	}))
	require.NoError(t, store.AppendAuditLog(ctx, &AuditEntry{
		ChatID: "r", ActorID: "new", Action: AuditSettingsChanged, Timestamp: now,
	}))

	since := now.Add(-time.Hour)
	entries, err := store.ListAuditLog(ctx, AuditFilter{Since: &since})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0].ActorID)
}

func TestAuditStore_List_Limit(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 8; i++ {
		require.NoError(t, store.AppendAuditLog(ctx, &AuditEntry{
			ChatID:    "r",
			ActorID:   fmt.Sprintf("user-%d", i),
			Action:    AuditMessageSuppressed,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}))
	}

	entries, err := store.ListAuditLog(ctx, AuditFilter{Limit: 5})
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, "user-7", entries[0].ActorID)
}

func TestAuditStore_List_Empty(t *testing.T) {
	store := setupTestStore(t)

	entries, err := store.ListAuditLog(context.Background(), AuditFilter{})
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestAuditStore_DetailRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendAuditLog(ctx, &AuditEntry{
		ChatID:  "r",
		ActorID: "alice",
		Action:  AuditSettingsChanged,
		Detail:  map[string]any{"setting": "antispam", "enabled": true},
	}))
	require.NoError(t, store.AppendAuditLog(ctx, &AuditEntry{
		ChatID:  "r",
		ActorID: "alice",
		Action:  AuditGroupLeft,
	}))

	entries, err := store.ListAuditLog(ctx, AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var withDetail, withoutDetail AuditEntry
	for _, e := range entries {
		if e.Action == AuditSettingsChanged {
			withDetail = e
		} else {
			withoutDetail = e
		}
	}
	assert.Equal(t, "antispam", withDetail.Detail["setting"])
	assert.Equal(t, true, withDetail.Detail["enabled"])
	assert.Nil(t, withoutDetail.Detail)
}
