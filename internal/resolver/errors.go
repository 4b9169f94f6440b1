package resolver

import (
	"fmt"

	"github.com/vlk/flowver/internal/interval"
)

// CallSite identifies a version-relevant call within a flow file.
type CallSite struct {
	Name string
	Line int
}

// ConflictError reports that the running interval of a file became empty:
// two calls demand SDK version ranges with no overlap. Resolution aborts
// rather than reporting either bound as the answer.
type ConflictError struct {
	Path string
	// Site is the call whose requirement emptied the interval.
	Site CallSite
	// Need is the interval Site requires.
	Need interval.Interval
	// Prior is the earlier call that set the violated bound. It is nil
	// when the conflict is against the manifest's default minimum.
	Prior *CallSite
	// Run is the running interval before Site was applied.
	Run interval.Interval
}

func (e *ConflictError) Error() string {
	if e.Prior == nil {
		return fmt.Sprintf("version conflict in %s: %s at line %d requires %s, outside the file's interval %s",
			e.Path, e.Site.Name, e.Site.Line, e.Need, e.Run)
	}
	return fmt.Sprintf("version conflict in %s: %s at line %d requires %s, but %s at line %d already limits the file to %s",
		e.Path, e.Site.Name, e.Site.Line, e.Need, e.Prior.Name, e.Prior.Line, e.Run)
}

// UnsupportedConditionalError reports a conditional shape the resolver
// refuses to guess about: an elseif chain on a probe comparison, or a
// compound or indirect probe comparison. Guessing could silently
// under-report the minimum version, so these abort the run instead.
type UnsupportedConditionalError struct {
	Path   string
	Line   int
	Reason string
}

func (e *UnsupportedConditionalError) Error() string {
	return fmt.Sprintf("unsupported conditional in %s at line %d: %s", e.Path, e.Line, e.Reason)
}

// Warning flags a non-fatal finding: a call that could not be matched to
// any registry entry and therefore contributed no constraint.
type Warning struct {
	Path    string
	Line    int
	Name    string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s:%d: %s", w.Path, w.Line, w.Message)
}
