// Package assistant runs the AI side of a conversation.
//
// The cycle is split in two so the caller can wrap the provider call with a
// presence indicator:
//
//	req, ok := o.Prepare(chatID, text)   // append user turn, build request
//	reply := o.Complete(ctx, chatID, req) // call once, append reply on success
//
// Provider failures never reach the chat verbatim. Each ai.Kind maps to a
// fixed fallback sentence and the history keeps only the user's turn.
package assistant
