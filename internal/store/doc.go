// Package store keeps the bot's audit ledger in SQLite.
//
// The ledger is append-only. It records moderation outcomes (a suppressed
// message, a policy the bot could not enforce) and administrative actions
// (settings toggled, group renamed, group left) so that admins can review
// them with the modlog command. Chat settings and conversation history are
// deliberately absent: they live in memory and are lost on restart.
//
// # SQLite Configuration
//
// The ledger uses modernc.org/sqlite with WAL mode:
//
//	PRAGMA journal_mode=WAL;
//
// Timestamps are stored as fixed-width UTC strings so ORDER BY ts sorts
// chronologically.
//
// # Testing
//
// Use NewMockStore() for unit tests in other packages, or
// NewSQLiteStore(":memory:", nil) when real SQL behaviour matters.
package store
