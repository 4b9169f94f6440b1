// Package registry holds the static lookup table of versioned platform API
// functions, keyed by fully-qualified name.
//
// The registry is populated once at startup from the externally maintained
// manifest and is read-only afterwards, which is what allows the per-file
// resolvers to share it without coordination. One entry is distinguished as
// the version probe: the runtime call that returns the platform's current
// SDK version. Calls to the probe never constrain an interval by
// themselves; they only matter as the comparison operand of a recognized
// conditional.
package registry
