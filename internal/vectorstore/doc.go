// Package vectorstore embeds document chunks and answers nearest-neighbor
// queries over them.
//
// An Index owns the embedding function. Build embeds a full chunk set into
// a fresh in-memory chromem-go collection and returns an immutable Handle;
// building again produces a new Handle and never merges into an old one, so
// a caller can publish the new Handle atomically while searches continue on
// the previous one.
//
// Similarity is cosine similarity. Search ranks every stored vector,
// breaks score ties by insertion order and returns the top k. Asking for
// more results than the handle holds returns all of them.
//
// Handles are not persisted; they live until the process exits or the
// owning session drops them.
package vectorstore
