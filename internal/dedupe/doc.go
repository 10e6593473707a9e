// Package dedupe drops chat events that were already handled.
//
// Chat networks redeliver: Matrix replays the last events after a
// reconnect and Discord resumes a gateway session by resending recent
// dispatches. A Filter remembers (chat, event) pairs for a TTL so each
// event reaches the session coordinator once.
package dedupe
