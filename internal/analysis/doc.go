// Package analysis orchestrates a full version computation run. Starting
// from the deliverable flow entry points it discovers the transitive
// require closure wave by wave, parsing and resolving files across a
// bounded worker pool, then assembles the dependency graph and aggregates
// resolved intervals single-threaded once the pool has drained.
package analysis
