// Package conversation keeps the ordered question/answer log of a session.
//
// A Store is append-only: turns are never edited or reordered, and the
// only way to drop them is Clear, which a session reset calls. Readers get
// copies, so a slice returned by Turns or Last is never mutated by later
// appends.
//
// Turns can be exported as JSON Lines, one turn per line.
package conversation
