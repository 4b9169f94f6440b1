package dag

import (
	"fmt"
	"strings"

	"github.com/vlk/flowver/internal/interval"
)

// CycleError reports a dependency cycle among flows. No valid processing
// order exists, so the run must abort before aggregation.
type CycleError struct {
	// Members lists the flows on the cycle in require order, ending where
	// it started.
	Members []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle among flows: %s", strings.Join(e.Members, " -> "))
}

// ConflictError reports that aggregation produced an empty interval at a
// node: the flow's own requirement cannot coexist with what one of its
// dependencies requires.
type ConflictError struct {
	// Chain is the dependency path from the conflicting flow down to the
	// dependency that supplied the irreconcilable bound.
	Chain []string
	// Own is the flow's own interval, Dep the dependency's resolved one.
	Own interval.Interval
	Dep interval.Interval
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict along dependency chain %s: %s cannot be reconciled with %s",
		strings.Join(e.Chain, " -> "), e.Own, e.Dep)
}
