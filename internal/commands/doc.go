// Package commands parses prefixed chat commands and executes them.
//
// A message is a command iff it starts with the configured prefix. The
// remainder is split on whitespace; the first token, lowercased, names the
// command and the rest are its arguments. Once recognised, a command always
// ends processing of the message, whatever its outcome.
//
// Commands that change how the bot behaves in a group (the toggles, rename,
// leave and modlog) are reserved for group administrators. A non-admin gets
// a single rejection reply and nothing changes.
package commands
