package resolver

import (
	"context"
	"strings"

	"github.com/yuin/gopher-lua/ast"

	"github.com/vlk/flowver/internal/ctxlog"
	"github.com/vlk/flowver/internal/interval"
	"github.com/vlk/flowver/internal/luautil"
	"github.com/vlk/flowver/internal/registry"
)

// pcallName is the protected-call idiom: pcall(fn, ...) invokes fn while
// suppressing propagation of its failure. Resolution treats the wrapped
// call as if it were made directly.
const pcallName = "pcall"

// Resolve computes the SDK version interval of a single parsed flow file.
// It walks the chunk with a lexical scope stack, intersecting the declared
// interval of every registry-known call into a running interval, and
// merging recognized probe conditionals by branch union. It returns the
// file's own interval plus any warnings for calls that contributed no
// constraint. A *ConflictError or *UnsupportedConditionalError aborts the
// file.
func Resolve(ctx context.Context, path string, chunk []ast.Stmt, reg *registry.Registry) (interval.Interval, []Warning, error) {
	r := &resolver{
		path:   path,
		reg:    reg,
		scopes: newScopeStack(),
		run:    interval.AtLeast(reg.DefaultMin()),
		warned: make(map[string]struct{}),
	}

	if err := r.resolveStmts(chunk); err != nil {
		return interval.Interval{}, r.warnings, err
	}

	ctxlog.FromContext(ctx).Debug("Resolved flow file.",
		"path", path, "interval", r.run.String(), "warnings", len(r.warnings))
	return r.run, r.warnings, nil
}

type resolver struct {
	path   string
	reg    *registry.Registry
	scopes *scopeStack

	// run is the straight-line running interval of the sequence currently
	// being resolved. Branch resolution swaps it out and restores it.
	run interval.Interval
	// minSite and maxSite record which call supplied the current bounds,
	// so a conflict can name both offending call sites.
	minSite *CallSite
	maxSite *CallSite

	warnings []Warning
	warned   map[string]struct{}
}

// --- constraint application ---

func (r *resolver) applyConstraint(site CallSite, need interval.Interval) error {
	next := r.run.Intersect(need)
	if next.Empty() {
		var prior *CallSite
		if r.run.Bounded() && need.Min > *r.run.Max {
			prior = r.maxSite
		} else {
			prior = r.minSite
		}
		return &ConflictError{Path: r.path, Site: site, Need: need, Prior: prior, Run: r.run}
	}
	if next.Min > r.run.Min {
		s := site
		r.minSite = &s
	}
	if next.Bounded() && (!r.run.Bounded() || *next.Max < *r.run.Max) {
		s := site
		r.maxSite = &s
	}
	r.run = next
	return nil
}

func (r *resolver) applyKnown(name string, line int) error {
	if need, ok := r.reg.Lookup(name); ok {
		return r.applyConstraint(CallSite{Name: name, Line: line}, need)
	}
	r.warnOnce(name, line, "call to "+name+" is not in the API registry and contributes no version constraint")
	return nil
}

func (r *resolver) warnOnce(key string, line int, msg string) {
	if _, dup := r.warned[key]; dup {
		return
	}
	r.warned[key] = struct{}{}
	r.warnings = append(r.warnings, Warning{Path: r.path, Line: line, Name: key, Message: msg})
}

// --- name resolution through scope ---

// resolveName resolves a syntactic call name through the scope stack. The
// head segment of a dotted name may be a local alias for another function;
// alias chains were collapsed at binding time, so one lookup suffices.
// Unbound heads are global references and resolve to themselves.
func (r *resolver) resolveName(name string) (string, bindingKind) {
	head, rest, dotted := strings.Cut(name, ".")
	b, ok := r.scopes.lookup(head)
	if !ok {
		return name, bindFunc
	}
	switch b.kind {
	case bindFunc:
		if dotted {
			return b.name + "." + rest, bindFunc
		}
		return b.name, bindFunc
	case bindProbeValue:
		return "", bindProbeValue
	default:
		return "", bindUnknown
	}
}

// isProbeCall reports whether e is a direct, statically named call to the
// version-probe function. Calls made through pcall never qualify.
func (r *resolver) isProbeCall(e ast.Expr) bool {
	call, ok := e.(*ast.FuncCallExpr)
	if !ok {
		return false
	}
	name, ok := luautil.CallTarget(call)
	if !ok {
		return false
	}
	resolved, kind := r.resolveName(name)
	return kind == bindFunc && r.reg.IsProbe(resolved)
}

// mentionsProbe reports whether the probe function or a probe-result local
// appears anywhere inside an expression. It is used to tell "conditional
// that has nothing to do with the probe" apart from "probe comparison in a
// shape we refuse to guess about".
func (r *resolver) mentionsProbe(e ast.Expr) bool {
	switch v := e.(type) {
	case *ast.IdentExpr:
		resolved, kind := r.resolveName(v.Value)
		return kind == bindProbeValue || (kind == bindFunc && r.reg.IsProbe(resolved))
	case *ast.AttrGetExpr:
		if name, ok := luautil.FQN(v); ok {
			resolved, kind := r.resolveName(name)
			if kind == bindFunc && r.reg.IsProbe(resolved) {
				return true
			}
		}
		return r.mentionsProbe(v.Object) || r.mentionsProbe(v.Key)
	case *ast.FuncCallExpr:
		if r.isProbeCall(v) {
			return true
		}
		if v.Func != nil && r.mentionsProbe(v.Func) {
			return true
		}
		for _, arg := range v.Args {
			if r.mentionsProbe(arg) {
				return true
			}
		}
		return false
	case *ast.LogicalOpExpr:
		return r.mentionsProbe(v.Lhs) || r.mentionsProbe(v.Rhs)
	case *ast.RelationalOpExpr:
		return r.mentionsProbe(v.Lhs) || r.mentionsProbe(v.Rhs)
	case *ast.ArithmeticOpExpr:
		return r.mentionsProbe(v.Lhs) || r.mentionsProbe(v.Rhs)
	case *ast.StringConcatOpExpr:
		return r.mentionsProbe(v.Lhs) || r.mentionsProbe(v.Rhs)
	case *ast.UnaryMinusOpExpr:
		return r.mentionsProbe(v.Expr)
	case *ast.UnaryNotOpExpr:
		return r.mentionsProbe(v.Expr)
	case *ast.UnaryLenOpExpr:
		return r.mentionsProbe(v.Expr)
	default:
		return false
	}
}

// --- statement walk ---

func (r *resolver) resolveStmts(stmts []ast.Stmt) error {
	for _, stmt := range stmts {
		if err := r.resolveStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) resolveStmt(stmt ast.Stmt) error {
	switch v := stmt.(type) {
	case *ast.LocalAssignStmt:
		return r.resolveLocalAssign(v)
	case *ast.AssignStmt:
		if err := r.resolveExprs(v.Lhs); err != nil {
			return err
		}
		return r.resolveExprs(v.Rhs)
	case *ast.FuncCallStmt:
		return r.resolveExpr(v.Expr)
	case *ast.DoBlockStmt:
		return r.inScope(func() error { return r.resolveStmts(v.Stmts) })
	case *ast.WhileStmt:
		if err := r.resolveExpr(v.Condition); err != nil {
			return err
		}
		return r.inScope(func() error { return r.resolveStmts(v.Stmts) })
	case *ast.RepeatStmt:
		return r.inScope(func() error {
			if err := r.resolveStmts(v.Stmts); err != nil {
				return err
			}
			return r.resolveExpr(v.Condition)
		})
	case *ast.IfStmt:
		return r.resolveIf(v)
	case *ast.NumberForStmt:
		if err := r.resolveExpr(v.Init); err != nil {
			return err
		}
		if err := r.resolveExpr(v.Limit); err != nil {
			return err
		}
		if v.Step != nil {
			if err := r.resolveExpr(v.Step); err != nil {
				return err
			}
		}
		return r.inScope(func() error {
			r.scopes.bind(v.Name, binding{kind: bindUnknown})
			return r.resolveStmts(v.Stmts)
		})
	case *ast.GenericForStmt:
		if err := r.resolveExprs(v.Exprs); err != nil {
			return err
		}
		return r.inScope(func() error {
			for _, name := range v.Names {
				r.scopes.bind(name, binding{kind: bindUnknown})
			}
			return r.resolveStmts(v.Stmts)
		})
	case *ast.FuncDefStmt:
		return r.resolveExpr(v.Func)
	case *ast.ReturnStmt:
		return r.resolveExprs(v.Exprs)
	default:
		return nil
	}
}

func (r *resolver) inScope(fn func() error) error {
	r.scopes.push()
	defer r.scopes.pop()
	return fn()
}

// resolveLocalAssign resolves the right-hand sides and then records what
// each declared local is now known to hold.
func (r *resolver) resolveLocalAssign(v *ast.LocalAssignStmt) error {
	if err := r.resolveExprs(v.Exprs); err != nil {
		return err
	}
	for i, name := range v.Names {
		if i >= len(v.Exprs) {
			r.scopes.bind(name, binding{kind: bindUnknown})
			continue
		}
		r.scopes.bind(name, r.bindingFor(v.Exprs[i]))
	}
	return nil
}

// bindingFor classifies a binding's right-hand side. The expression has
// already been resolved for calls; this only decides what the local holds.
func (r *resolver) bindingFor(e ast.Expr) binding {
	switch v := e.(type) {
	case *ast.IdentExpr, *ast.AttrGetExpr:
		name, ok := luautil.FQN(v)
		if !ok {
			return binding{kind: bindUnknown}
		}
		resolved, kind := r.resolveName(name)
		if kind == bindFunc {
			return binding{kind: bindFunc, name: resolved}
		}
		return binding{kind: kind}
	case *ast.FuncCallExpr:
		if r.isProbeCall(v) {
			return binding{kind: bindProbeValue}
		}
		return binding{kind: bindUnknown}
	default:
		return binding{kind: bindUnknown}
	}
}

// --- expression walk ---

func (r *resolver) resolveExprs(exprs []ast.Expr) error {
	for _, e := range exprs {
		if err := r.resolveExpr(e); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) resolveExpr(expr ast.Expr) error {
	switch v := expr.(type) {
	case *ast.FuncCallExpr:
		return r.resolveCall(v)
	case *ast.AttrGetExpr:
		if err := r.resolveExpr(v.Object); err != nil {
			return err
		}
		return r.resolveExpr(v.Key)
	case *ast.TableExpr:
		for _, field := range v.Fields {
			if field.Key != nil {
				if err := r.resolveExpr(field.Key); err != nil {
					return err
				}
			}
			if err := r.resolveExpr(field.Value); err != nil {
				return err
			}
		}
		return nil
	case *ast.FunctionExpr:
		return r.inScope(func() error {
			if v.ParList != nil {
				for _, param := range v.ParList.Names {
					r.scopes.bind(param, binding{kind: bindUnknown})
				}
			}
			return r.resolveStmts(v.Stmts)
		})
	case *ast.LogicalOpExpr:
		if err := r.resolveExpr(v.Lhs); err != nil {
			return err
		}
		return r.resolveExpr(v.Rhs)
	case *ast.RelationalOpExpr:
		if err := r.resolveExpr(v.Lhs); err != nil {
			return err
		}
		return r.resolveExpr(v.Rhs)
	case *ast.ArithmeticOpExpr:
		if err := r.resolveExpr(v.Lhs); err != nil {
			return err
		}
		return r.resolveExpr(v.Rhs)
	case *ast.StringConcatOpExpr:
		if err := r.resolveExpr(v.Lhs); err != nil {
			return err
		}
		return r.resolveExpr(v.Rhs)
	case *ast.UnaryMinusOpExpr:
		return r.resolveExpr(v.Expr)
	case *ast.UnaryNotOpExpr:
		return r.resolveExpr(v.Expr)
	case *ast.UnaryLenOpExpr:
		return r.resolveExpr(v.Expr)
	default:
		return nil
	}
}

// resolveCall applies the version constraint of a single call, resolving
// its target through scope and looking through the pcall indirection.
func (r *resolver) resolveCall(call *ast.FuncCallExpr) error {
	if err := r.resolveExprs(call.Args); err != nil {
		return err
	}

	name, ok := luautil.CallTarget(call)
	if !ok {
		// Method or computed-access call: no static target.
		return nil
	}

	if name == pcallName {
		return r.resolveProtectedCall(call)
	}

	resolved, kind := r.resolveName(name)
	switch kind {
	case bindFunc:
		if r.reg.IsProbe(resolved) {
			// A direct probe call constrains nothing by itself; it only
			// matters as a conditional operand.
			return nil
		}
		return r.applyKnown(resolved, call.Line())
	case bindProbeValue:
		r.warnOnce(name, call.Line(), "local "+name+" holds a probe result, not a function; call ignored")
		return nil
	default:
		r.warnOnce(name, call.Line(), "call target "+name+" is not resolvable through scope; treated as unconstrained")
		return nil
	}
}

// resolveProtectedCall handles pcall(fn, ...). The wrapped call resolves
// exactly as if made directly, with one exception: the version probe is
// only recognized as a probe when called directly, so a probe reached
// through pcall degrades to an ordinary unrecognized call.
func (r *resolver) resolveProtectedCall(call *ast.FuncCallExpr) error {
	if len(call.Args) == 0 {
		return nil
	}

	target, ok := luautil.FQN(call.Args[0])
	if !ok {
		r.warnOnce(pcallName, call.Line(), "pcall target is not statically resolvable; treated as unconstrained")
		return nil
	}

	resolved, kind := r.resolveName(target)
	if kind != bindFunc {
		r.warnOnce(target, call.Line(), "pcall target "+target+" is not resolvable through scope; treated as unconstrained")
		return nil
	}
	if r.reg.IsProbe(resolved) {
		r.warnOnce(resolved, call.Line(), "version probe invoked through pcall is not recognized as a probe")
		return nil
	}
	return r.applyKnown(resolved, call.Line())
}

// --- conditionals ---

// resolveIf handles the one recognized branching form: a single relational
// comparison of a direct probe call (or a probe-result local) against an
// integer literal, with at most one else clause. Recognized conditionals
// merge their branch intervals by union, because exactly one branch runs
// at any given platform version. Conditionals that never mention the probe
// are traversed as ordinary statements, which intersects both branches and
// stays conservative. Anything in between fails fast.
func (r *resolver) resolveIf(v *ast.IfStmt) error {
	recognized, err := r.classifyCondition(v.Condition)
	if err != nil {
		return err
	}

	if !recognized {
		if err := r.resolveExpr(v.Condition); err != nil {
			return err
		}
		if err := r.inScope(func() error { return r.resolveStmts(v.Then) }); err != nil {
			return err
		}
		return r.inScope(func() error { return r.resolveStmts(v.Else) })
	}

	// gopher-lua parses `elseif` as a nested if that is the sole statement
	// of the else body. A chain has more than two outcomes, which the
	// union merge cannot represent, so it must not resolve silently.
	if len(v.Else) == 1 {
		if _, chained := v.Else[0].(*ast.IfStmt); chained {
			return &UnsupportedConditionalError{
				Path:   r.path,
				Line:   v.Line(),
				Reason: "elseif chain on a version-probe comparison; split the chain into nested two-way conditionals",
			}
		}
	}

	thenSpan, err := r.resolveBranch(v.Then)
	if err != nil {
		return err
	}
	elseSpan := interval.AtLeast(r.reg.DefaultMin())
	if len(v.Else) > 0 {
		if elseSpan, err = r.resolveBranch(v.Else); err != nil {
			return err
		}
	}

	merged := thenSpan.Union(elseSpan)
	site := CallSite{Name: r.reg.ProbeName() + " conditional", Line: v.Line()}
	return r.applyConstraint(site, merged)
}

// classifyCondition decides whether a condition is a recognized probe
// comparison. A condition that mentions the probe in any other shape is a
// fatal UnsupportedConditionalError; silently guessing could under-report
// the true minimum version.
func (r *resolver) classifyCondition(cond ast.Expr) (bool, error) {
	if rel, ok := cond.(*ast.RelationalOpExpr); ok && relationalOps[rel.Operator] {
		lhsProbe := r.isProbeOperand(rel.Lhs)
		rhsProbe := r.isProbeOperand(rel.Rhs)
		_, lhsLit := luautil.IntLiteral(rel.Lhs)
		_, rhsLit := luautil.IntLiteral(rel.Rhs)
		if (lhsProbe && rhsLit) || (rhsProbe && lhsLit) {
			return true, nil
		}
	}
	if r.mentionsProbe(cond) {
		return false, &UnsupportedConditionalError{
			Path:   r.path,
			Line:   cond.Line(),
			Reason: "version probe may only be compared directly against an integer literal",
		}
	}
	return false, nil
}

var relationalOps = map[string]bool{
	">": true, ">=": true, "<": true, "<=": true, "==": true, "~=": true,
}

// isProbeOperand reports whether a comparison operand is a direct probe
// call or a local bound to a probe result.
func (r *resolver) isProbeOperand(e ast.Expr) bool {
	if r.isProbeCall(e) {
		return true
	}
	if ident, ok := e.(*ast.IdentExpr); ok {
		_, kind := r.resolveName(ident.Value)
		return kind == bindProbeValue
	}
	return false
}

// resolveBranch resolves a branch body as its own straight-line sequence
// in a fresh nested scope, returning the branch's interval while leaving
// the enclosing running interval untouched.
func (r *resolver) resolveBranch(stmts []ast.Stmt) (interval.Interval, error) {
	savedRun, savedMin, savedMax := r.run, r.minSite, r.maxSite
	r.run = interval.AtLeast(r.reg.DefaultMin())
	r.minSite, r.maxSite = nil, nil

	err := r.inScope(func() error { return r.resolveStmts(stmts) })

	span := r.run
	r.run, r.minSite, r.maxSite = savedRun, savedMin, savedMax
	if err != nil {
		return interval.Interval{}, err
	}
	return span, nil
}
