// Package matrix connects the session coordinator to a Matrix homeserver.
//
// A room counts as a group when it has more than two joined members.
// Administrator rights map to room power levels: a participant is an
// administrator when their level reaches the configured threshold
// (50, moderator, by default). Moderation deletes are redactions and the
// group subject is the room name.
//
// Events older than the moment the adapter started syncing are ignored so
// the initial sync does not replay history into the bot.
package matrix
