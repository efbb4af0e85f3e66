// Package state implements the persistent ledger state tree.
//
// A tree is built from four node kinds: Null, Cell (an encoded value),
// Array (a fixed sequence of children) and Map (encoded keys to children).
// Nodes are immutable. Every update returns a new root that shares all
// unmodified subtrees with the old one, so references taken before an
// update stay valid.
//
// Map keys are compared by decoded content. Because encoded segments are
// canonical (trailing zeros trimmed), this is byte equality of the key's
// segments. Entries are kept sorted by key, which makes iteration order
// stable for an unmodified map.
package state
