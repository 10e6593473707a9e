// ABOUTME: Package discord connects the bot core to Discord via discordgo
// ABOUTME: Guild text channels are groups; the guild is what gets renamed or left

// Package discord implements session.Channel on a discordgo session.
//
// A chat is a Discord channel ID. Messages in guild channels are group
// messages and direct messages are private. Group operations (info, rename,
// leave) act on the guild that owns the channel. Joins are reported in the
// guild's system channel, which is where Discord shows its own join notices.
package discord
