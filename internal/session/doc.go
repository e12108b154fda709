// Package session owns the question-answering pipeline for one user
// session: its documents, its index handle and its conversation.
//
// Ask is serialized per session, so one question is fully processed
// before the next starts. Re-indexing builds a new handle off to the side
// and publishes it atomically; a failed build keeps the previous handle.
// A turn is recorded only after a successful answer and only when the
// caller's context is still live, so timeouts and cancellations leave the
// history untouched.
//
// Manager tracks live sessions by ID and evicts idle ones.
package session
