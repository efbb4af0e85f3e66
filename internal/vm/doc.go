// Package vm implements the ledger query interpreter.
//
// A program is an ordered list of stack operations executed against a
// QueryContext. The stack starts as [root]. Operations read and rewrite the
// tree through the stack: idx descends into a node, push places a literal,
// ins writes a value back into its container, and popeq is the only read
// whose outcome leaves the interpreter, as a read event. A program must leave
// exactly one entry on the stack, which becomes the new root.
//
// Execution is all-or-nothing. The input context is never modified; a failed
// program returns no context and its writes are simply dropped.
package vm
