package registry

import (
	"fmt"

	"github.com/vlk/flowver/internal/interval"
)

// Registry maps fully-qualified API function names to the SDK version
// intervals that support them.
type Registry struct {
	functions  map[string]interval.Interval
	probe      string
	defaultMin uint64
}

// New creates an empty registry. probe is the fully-qualified name of the
// version-probe function; defaultMin is the floor applied to files that
// constrain nothing on their own.
func New(probe string, defaultMin uint64) (*Registry, error) {
	if probe == "" {
		return nil, fmt.Errorf("registry: a version-probe function must be designated")
	}
	return &Registry{
		functions:  make(map[string]interval.Interval),
		probe:      probe,
		defaultMin: defaultMin,
	}, nil
}

// Add records the supported interval for a function name. Registering the
// same name twice is a manifest error.
func (r *Registry) Add(name string, span interval.Interval) error {
	if name == "" {
		return fmt.Errorf("registry: function name must not be empty")
	}
	if span.Empty() {
		return fmt.Errorf("registry: function %q declares empty interval %s", name, span)
	}
	if _, ok := r.functions[name]; ok {
		return fmt.Errorf("registry: duplicate entry for function %q", name)
	}
	r.functions[name] = span
	return nil
}

// Lookup returns the declared interval for a function name. Unknown names
// return ok=false and contribute no constraint; it is the caller's job to
// surface them as warnings.
func (r *Registry) Lookup(name string) (interval.Interval, bool) {
	span, ok := r.functions[name]
	return span, ok
}

// IsProbe reports whether name is the designated version-probe function.
func (r *Registry) IsProbe(name string) bool {
	return name == r.probe
}

// ProbeName returns the fully-qualified name of the version-probe function.
func (r *Registry) ProbeName() string {
	return r.probe
}

// DefaultMin returns the minimum version assumed for files with no
// version-sensitive calls.
func (r *Registry) DefaultMin() uint64 {
	return r.defaultMin
}

// Len returns the number of registered functions.
func (r *Registry) Len() int {
	return len(r.functions)
}
