// Package resolver computes the SDK version interval a single flow file
// requires, by statically walking its parsed syntax tree.
//
// Resolution is scope-aware: an explicit stack of binding frames tracks
// what each local name holds (a named function, an alias collapsed through
// other locals, the result of a version-probe call, or an unknown value),
// pushed on block entry and popped on exit. Within straight-line code
// every registry-known call intersects its declared interval into the
// file's running interval. The pcall indirection is transparent; a
// recognized probe conditional resolves each branch independently and
// merges them by union, since only one branch executes at any given
// platform version.
//
// Granularity is per file: all calls in a file share one resolved
// interval, conservatively unified across the whole file. The narrow
// Resolve entry point exists so this can later be refined to per-function
// resolution without touching graph aggregation.
package resolver
