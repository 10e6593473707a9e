// Package conversation owns the per-chat state of the bot.
//
// # Overview
//
// A Store keeps two tables keyed by ChatID:
//
//   - ChatSettings: AI, anti-link, welcome and anti-spam toggles
//   - History: the rolling window of messages sent to the AI provider
//
// Both are in-memory only. They are created lazily and rebuilt after a
// restart; nothing is persisted.
//
// # History Window
//
// AppendAndTrim keeps the history within the configured window (default 10):
//
//  1. A system message, if present, is pinned at index 0 and counts towards the window
//  2. The oldest non-system entries are dropped first
//  3. Leading assistant entries are dropped so the history starts on a user turn
//  4. Consecutive entries with the same role are merged into one
//
// # Requests
//
// BuildRequest turns a history into the provider view:
//
//	req, ok := conversation.BuildRequest(history)
//	if !ok {
//	    // nothing eligible: no user turn, or the last turn is not the user's
//	}
//
// Callers never hold references into the store; every accessor returns copies.
package conversation
