// ABOUTME: Audit ledger types and the store contract used by moderation and commands
// ABOUTME: Records what the bot enforced or changed; chat settings and history are not stored here

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entry does not exist
var ErrNotFound = errors.New("not found")

// AuditAction represents an auditable bot action.
type AuditAction string

const (
	AuditMessageSuppressed   AuditAction = "message_suppressed"
	AuditPolicyUnenforceable AuditAction = "policy_unenforceable"
	AuditSettingsChanged     AuditAction = "settings_changed"
	AuditGroupRenamed        AuditAction = "group_renamed"
	AuditGroupLeft           AuditAction = "group_left"
)

// ValidAuditActions lists all valid audit actions.
var ValidAuditActions = []AuditAction{
	AuditMessageSuppressed,
	AuditPolicyUnenforceable,
	AuditSettingsChanged,
	AuditGroupRenamed,
	AuditGroupLeft,
}

// AuditEntry is a single ledger row.
type AuditEntry struct {
	ID        string         // UUID v4, generated when empty
	ChatID    string         // chat the action happened in
	ActorID   string         // participant whose message or command caused it
	Action    AuditAction    // what happened
	Timestamp time.Time      // generated when zero
	Detail    map[string]any // policy name, setting values, new subject...
}

// AuditFilter narrows ListAuditLog results.
type AuditFilter struct {
	ChatID  *string
	ActorID *string
	Action  *AuditAction
	Since   *time.Time
	Limit   int // default 100, max 1000
}

// AuditLog is implemented by SQLiteStore and MockStore.
type AuditLog interface {
	AppendAuditLog(ctx context.Context, e *AuditEntry) error
	ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error)
}

// normalizeAuditLimit applies default (100) and cap (1000) to audit limit.
func normalizeAuditLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 1000:
		return 1000
	default:
		return limit
	}
}
