// Package dag converts flat plans of tool calls into dependency graphs and
// executes them with maximum safe concurrency.
//
// The builder enforces read/write isolation on the shared timeline document:
// write steps are globally serialized against everything declared before
// them, while sibling reads between two writes run concurrently. Explicit
// dependencies and resource locks are unioned with the inferred edges.
// Cyclic input is a programming error and fails the build outright.
//
// The scheduler walks the graph one settlement at a time: every ready node is
// launched concurrently, the first completion is recorded and its locks
// released, and readiness is recomputed before the next admission pass.
// Results carrying pause or cancellation markers halt admission and return
// the walk early while in-flight nodes drain. Pending nodes with nothing
// running is a scheduling deadlock, reported as a fatal internal error rather
// than a hang.
package dag
