// Package interval implements the inclusive SDK version ranges that the
// resolver and the dependency graph operate on, together with the two
// combining operations the engine needs: intersection for sequential
// constraints and union for mutually exclusive conditional branches.
package interval

import "fmt"

// Interval is an inclusive range of platform SDK versions. A nil Max means
// the range is unbounded above.
type Interval struct {
	Min uint64  `json:"minSdkVersion"`
	Max *uint64 `json:"maxSdkVersion,omitempty"`
}

// Unbounded returns the interval covering every SDK version.
func Unbounded() Interval {
	return Interval{Min: 0}
}

// AtLeast returns the interval [min, ∞).
func AtLeast(min uint64) Interval {
	return Interval{Min: min}
}

// Between returns the bounded interval [min, max].
func Between(min, max uint64) Interval {
	return Interval{Min: min, Max: &max}
}

// Bounded reports whether the interval has an upper bound.
func (i Interval) Bounded() bool {
	return i.Max != nil
}

// Empty reports whether the interval contains no versions. Only a bounded
// interval with Min > Max is empty; an unbounded interval never is.
func (i Interval) Empty() bool {
	return i.Max != nil && i.Min > *i.Max
}

// Intersect returns the interval of versions contained in both i and o:
// the max of the mins and, where bounded, the min of the maxes. The result
// may be empty, which callers must treat as a version conflict.
func (i Interval) Intersect(o Interval) Interval {
	out := Interval{Min: i.Min}
	if o.Min > out.Min {
		out.Min = o.Min
	}
	switch {
	case i.Max != nil && o.Max != nil:
		m := min(*i.Max, *o.Max)
		out.Max = &m
	case i.Max != nil:
		m := *i.Max
		out.Max = &m
	case o.Max != nil:
		m := *o.Max
		out.Max = &m
	}
	return out
}

// Union returns the smallest interval containing both i and o. It is
// bounded above only when both operands are; a single unbounded branch
// makes the result unbounded.
func (i Interval) Union(o Interval) Interval {
	out := Interval{Min: i.Min}
	if o.Min < out.Min {
		out.Min = o.Min
	}
	if i.Max != nil && o.Max != nil {
		m := max(*i.Max, *o.Max)
		out.Max = &m
	}
	return out
}

// Equal reports whether two intervals cover the same versions.
func (i Interval) Equal(o Interval) bool {
	if i.Min != o.Min {
		return false
	}
	if (i.Max == nil) != (o.Max == nil) {
		return false
	}
	return i.Max == nil || *i.Max == *o.Max
}

// String renders the interval in the usual half-open notation for logs
// and error messages.
func (i Interval) String() string {
	if i.Max == nil {
		return fmt.Sprintf("[%d,∞)", i.Min)
	}
	return fmt.Sprintf("[%d,%d]", i.Min, *i.Max)
}
