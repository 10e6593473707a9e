// Package moderation decides whether an incoming group message must be
// removed before anything else looks at it.
//
// Policies are evaluated in a fixed order and the first match wins:
//
//  1. An administrator sender is never moderated.
//  2. With anti-link on, text matching the link predicate triggers.
//  3. Otherwise, with anti-spam on, text matching the spam predicate triggers.
//
// A trigger is enforced by deleting the message when the bot holds
// administrator rights in the chat. Without them the outcome is
// Unenforceable: the message stays and the incident is logged and recorded.
package moderation
