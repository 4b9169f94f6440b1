// Package luautil provides small shared helpers for inspecting gopher-lua
// syntax trees: extracting fully-qualified call names, matching require
// calls, and reading integer literals.
package luautil

import (
	"strconv"

	"github.com/yuin/gopher-lua/ast"
)

// FQN returns the dotted fully-qualified name of an expression such as
// `sdk.http.fetch`, built from an identifier followed by constant field
// accesses. Computed member access (`t[k]`) has no static name and
// returns ok=false.
func FQN(e ast.Expr) (string, bool) {
	switch v := e.(type) {
	case *ast.IdentExpr:
		return v.Value, true
	case *ast.AttrGetExpr:
		key, ok := v.Key.(*ast.StringExpr)
		if !ok {
			return "", false
		}
		prefix, ok := FQN(v.Object)
		if !ok {
			return "", false
		}
		return prefix + "." + key.Value, true
	default:
		return "", false
	}
}

// CallTarget returns the static fully-qualified name a call refers to.
// Method calls (`obj:m()`) are dispatched on a receiver value and carry no
// static name, so they return ok=false.
func CallTarget(call *ast.FuncCallExpr) (string, bool) {
	if call.Method != "" || call.Receiver != nil {
		return "", false
	}
	return FQN(call.Func)
}

// IntLiteral reads an expression as a non-negative integer literal.
func IntLiteral(e ast.Expr) (uint64, bool) {
	num, ok := e.(*ast.NumberExpr)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseUint(num.Value, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// RequirePath matches a `require("path")` call and returns its literal
// argument. Anything other than a plain require with a single string
// literal returns ok=false.
func RequirePath(call *ast.FuncCallExpr) (string, bool) {
	if call.Method != "" || call.Receiver != nil {
		return "", false
	}
	ident, ok := call.Func.(*ast.IdentExpr)
	if !ok || ident.Value != "require" {
		return "", false
	}
	if len(call.Args) != 1 {
		return "", false
	}
	str, ok := call.Args[0].(*ast.StringExpr)
	if !ok {
		return "", false
	}
	return str.Value, true
}
