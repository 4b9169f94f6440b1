package dag

import (
	"context"

	"github.com/vlk/flowver/internal/ctxlog"
	"github.com/vlk/flowver/internal/interval"
)

// Aggregate propagates version requirements across the graph. Nodes are
// visited in dependency-first order, so every dependency's resolved
// interval is final before its dependents read it; each node's resolved
// interval is its own interval intersected with the resolved intervals of
// all direct dependencies. Any empty intersection aborts with a
// *ConflictError carrying the dependency chain that produced it.
//
// The caller must run DetectCycles first; Aggregate assumes an acyclic
// graph.
func (g *Graph) Aggregate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	order := g.TopoSort()

	g.mutex.Lock()
	defer g.mutex.Unlock()

	for _, id := range order {
		n := g.nodes[id]
		n.resolved = n.own
		n.minFrom, n.maxFrom = "", ""

		for _, depID := range sortedKeys(n.deps) {
			dep := n.deps[depID]
			next := n.resolved.Intersect(dep.resolved)
			if next.Empty() {
				return &ConflictError{
					Chain: g.conflictChain(n, dep),
					Own:   n.own,
					Dep:   dep.resolved,
				}
			}
			if next.Min > n.resolved.Min {
				n.minFrom = depID
			}
			if next.Bounded() && (!n.resolved.Bounded() || *next.Max < *n.resolved.Max) {
				n.maxFrom = depID
			}
			n.resolved = next
		}

		logger.Debug("Aggregated flow interval.", "id", id, "resolved", n.resolved.String())
	}
	return nil
}

// conflictChain reconstructs the dependency path that carried the
// irreconcilable bound: from the conflicting node through the dependency
// whose intersection emptied, then onward through whichever transitive
// dependency supplied that bound.
func (g *Graph) conflictChain(n, dep *node) []string {
	chain := []string{n.id}

	// Decide which of dep's bounds clashes with the running interval.
	followMin := n.resolved.Bounded() && dep.resolved.Min > *n.resolved.Max

	for cur := dep; cur != nil; {
		chain = append(chain, cur.id)
		var nextID string
		if followMin {
			nextID = cur.minFrom
		} else {
			nextID = cur.maxFrom
		}
		if nextID == "" {
			break
		}
		cur = cur.deps[nextID]
	}
	return chain
}

// TopNodes returns the resolved interval of every flow declared as a
// deliverable output. Flows only reachable as dependencies are computed
// but not surfaced.
func (g *Graph) TopNodes() map[string]interval.Interval {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	out := make(map[string]interval.Interval)
	for id, n := range g.nodes {
		if n.top {
			out[id] = n.resolved
		}
	}
	return out
}
