// Package session is the entry point for inbound chat events.
//
// A Coordinator decides which path each message takes:
//
//	Received -> Command                       (terminal)
//	Received -> Moderation -> Suppressed      (terminal)
//	                       -> Skip            (AI off in a group, terminal)
//	                       -> AI -> reply
//
// Events are submitted onto Lanes, one FIFO queue per chat. Different chats
// are handled concurrently; events of the same chat never interleave, so a
// chat's settings and history are only touched by one handler at a time.
package session
