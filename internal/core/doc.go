// Package core implements the resource substrate shared by every backend:
// the error taxonomy, the reference-counted object model, device and engine
// contracts, buffers, memory views, strided images and the FIFO work queue.
//
// Nothing in this package translates failures into caller-visible codes.
// Internal code returns errors (or panics with a LogicError for violated
// invariants) and the public package converts them at its boundary.
package core
