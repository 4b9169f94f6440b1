package dag

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vlk/flowver/internal/interval"
)

// Graph is the dependency graph for one analysis run. All operations are
// concurrency-safe, since file-level workers add nodes and edges in
// parallel while the graph is assembled.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*node
}

// node is un-exported to force interaction through string IDs rather than
// shared pointers, which keeps cycle detection and interning simple.
type node struct {
	id       string
	top      bool
	own      interval.Interval
	resolved interval.Interval

	deps       map[string]*node
	dependents map[string]*node

	// minFrom and maxFrom record which direct dependency supplied the
	// resolved bounds during aggregation; empty means the node itself.
	// They let a conflict report the full dependency chain.
	minFrom string
	maxFrom string
}

// New creates an initialized, empty Graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*node)}
}

// AddNode interns a flow node under the given ID. Nodes start with the
// unbounded interval so flows with no requirement of their own, such as
// pure re-export files, still participate in aggregation. Adding an
// existing ID does nothing.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.ensure(id)
}

func (g *Graph) ensure(id string) *node {
	if n, ok := g.nodes[id]; ok {
		return n
	}
	n := &node{
		id:         id,
		own:        interval.Unbounded(),
		resolved:   interval.Unbounded(),
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
	g.nodes[id] = n
	return n
}

// SetOwn records the interval the resolver computed for the flow itself.
func (g *Graph) SetOwn(id string, own interval.Interval) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("node not found: %s", id)
	}
	n.own = own
	return nil
}

// MarkTop flags a flow as a deliverable output whose resolved interval is
// reported externally.
func (g *Graph) MarkTop(id string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("node not found: %s", id)
	}
	n.top = true
	return nil
}

// AddDependency records that flow fromID requires flow toID. Both nodes
// must already exist; duplicate edges are dropped; a self-reference is an
// error.
func (g *Graph) AddDependency(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("flow must not require itself: %s", fromID)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	from, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}
	to, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	if _, dup := from.deps[toID]; dup {
		return nil
	}
	from.deps[toID] = to
	to.dependents[fromID] = from
	return nil
}

// Len returns the number of interned nodes.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.nodes)
}

// Dependencies returns the sorted IDs a node requires.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedKeys(n.deps), nil
}

// Resolved returns a node's final interval after aggregation.
func (g *Graph) Resolved(id string) (interval.Interval, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return interval.Interval{}, false
	}
	return n.resolved, true
}

// DetectCycles checks the graph with a depth-first search, coloring nodes
// on the current recursion stack. On a cycle it returns a *CycleError
// listing the member flows in require order.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	var stack []string

	var visit func(n *node) error
	visit = func(n *node) error {
		visiting[n.id] = true
		stack = append(stack, n.id)

		for _, depID := range sortedKeys(n.deps) {
			dep := n.deps[depID]
			if visiting[dep.id] {
				return &CycleError{Members: cycleMembers(stack, dep.id)}
			}
			if !visited[dep.id] {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		delete(visiting, n.id)
		visited[n.id] = true
		return nil
	}

	for _, id := range sortedKeys(g.nodes) {
		if !visited[id] {
			if err := visit(g.nodes[id]); err != nil {
				return err
			}
		}
	}
	return nil
}

// cycleMembers slices the recursion stack from the first occurrence of
// start and closes the loop.
func cycleMembers(stack []string, start string) []string {
	for i, id := range stack {
		if id == start {
			members := append([]string{}, stack[i:]...)
			return append(members, start)
		}
	}
	return []string{start, start}
}

// TopoSort returns all node IDs in dependency-first order: every flow
// appears after everything it requires. The graph must already have passed
// DetectCycles. Iteration over sorted IDs makes the order deterministic.
func (g *Graph) TopoSort() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	order := make([]string, 0, len(g.nodes))
	visited := make(map[string]bool)

	var visit func(n *node)
	visit = func(n *node) {
		visited[n.id] = true
		for _, depID := range sortedKeys(n.deps) {
			if !visited[depID] {
				visit(n.deps[depID])
			}
		}
		order = append(order, n.id)
	}

	for _, id := range sortedKeys(g.nodes) {
		if !visited[id] {
			visit(g.nodes[id])
		}
	}
	return order
}

func sortedKeys(m map[string]*node) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
