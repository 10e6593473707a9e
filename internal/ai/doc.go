// Package ai provides completion providers for the assistant.
//
// Two providers implement Completer:
//
//   - AnthropicClient: POST {base}/v1/messages with a separate system field
//   - OpenAIClient: POST {base}/chat/completions with a leading system message
//
// Every failure is an *Error carrying a Kind:
//
//	401, 403            -> KindAuth
//	429                 -> KindRateLimit
//	unparseable / empty -> KindMalformed
//	anything else       -> KindTransport
//
// Providers never retry. Timeouts come from the caller's context and surface
// as KindTransport.
package ai
