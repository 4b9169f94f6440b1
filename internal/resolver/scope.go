package resolver

// bindingKind classifies what a local name is known to hold.
type bindingKind int

const (
	// bindUnknown is a local holding a value the resolver cannot trace to
	// a function. Calling it is an unresolved symbol, not an error.
	bindUnknown bindingKind = iota
	// bindFunc is a local holding a reference to a named function. Alias
	// chains collapse at binding time, so name is always fully resolved.
	bindFunc
	// bindProbeValue is a local holding the result of a direct call to
	// the version-probe function, usable as a conditional operand.
	bindProbeValue
)

type binding struct {
	kind bindingKind
	name string
}

// scopeStack is an explicit stack of lexical binding frames. A frame is
// pushed on every block entry and popped on exit; inner bindings shadow
// outer ones.
type scopeStack struct {
	frames []map[string]binding
}

func newScopeStack() *scopeStack {
	return &scopeStack{frames: []map[string]binding{{}}}
}

func (s *scopeStack) push() {
	s.frames = append(s.frames, map[string]binding{})
}

func (s *scopeStack) pop() {
	if len(s.frames) == 1 {
		panic("resolver: scope stack underflow")
	}
	s.frames = s.frames[:len(s.frames)-1]
}

func (s *scopeStack) bind(name string, b binding) {
	s.frames[len(s.frames)-1][name] = b
}

// lookup walks the frames innermost-first.
func (s *scopeStack) lookup(name string) (binding, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if b, ok := s.frames[i][name]; ok {
			return b, true
		}
	}
	return binding{}, false
}
