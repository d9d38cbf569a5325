// Package chat owns conversation sessions and append-only message storage
// for the tutoring flow.
//
// Each chat turn runs strictly in sequence: session resolution, user-message
// persistence, bounded context assembly, generation, reply persistence. The
// user message is recorded before the generation call, so a backend failure
// still leaves a durable record of what the student asked.
//
// Sessions are owned by the user who created them. A client-supplied session
// ID that does not resolve or belongs to a different user yields a fresh
// session rather than an error, which prevents cross-user hijacking via a
// guessed ID.
package chat
