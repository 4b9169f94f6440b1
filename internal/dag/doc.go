// Package dag holds the flow dependency graph and its aggregation pass.
//
// Nodes are flows interned by path; edges point from a requiring flow to
// the flow it requires. Each node carries the interval the resolver
// computed for the file itself, and after aggregation a resolved interval:
// the intersection of its own interval with the resolved intervals of
// everything it depends on. Aggregation needs a dependency-first order, so
// the graph must be acyclic; a cycle is a fatal configuration error
// reported with its member flows.
package dag
