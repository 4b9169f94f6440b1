package luadep

import (
	"context"
	"path/filepath"

	"github.com/yuin/gopher-lua/ast"

	"github.com/vlk/flowver/internal/ctxlog"
	"github.com/vlk/flowver/internal/luautil"
)

// Collect walks the parsed chunk of the flow file at path and returns the
// normalized paths of every flow it requires, in first-seen order and
// deduplicated. Require paths are resolved relative to the requiring file;
// a path without an extension gets ".lua" appended.
func Collect(ctx context.Context, path string, chunk []ast.Stmt) []string {
	c := &collector{
		base: filepath.Dir(path),
		seen: make(map[string]struct{}),
	}
	c.walkStmts(chunk)

	ctxlog.FromContext(ctx).Debug("Collected flow dependencies.",
		"path", path, "count", len(c.deps))
	return c.deps
}

type collector struct {
	base string
	deps []string
	seen map[string]struct{}
}

func (c *collector) record(literal string) {
	p := literal
	if filepath.Ext(p) == "" {
		p += ".lua"
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(c.base, p)
	}
	p = filepath.Clean(p)

	if _, dup := c.seen[p]; dup {
		return
	}
	c.seen[p] = struct{}{}
	c.deps = append(c.deps, p)
}

func (c *collector) walkStmts(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		c.walkStmt(stmt)
	}
}

func (c *collector) walkStmt(stmt ast.Stmt) {
	switch v := stmt.(type) {
	case *ast.LocalAssignStmt:
		c.walkExprs(v.Exprs)
	case *ast.AssignStmt:
		c.walkExprs(v.Lhs)
		c.walkExprs(v.Rhs)
	case *ast.FuncCallStmt:
		c.walkExpr(v.Expr)
	case *ast.DoBlockStmt:
		c.walkStmts(v.Stmts)
	case *ast.WhileStmt:
		c.walkExpr(v.Condition)
		c.walkStmts(v.Stmts)
	case *ast.RepeatStmt:
		c.walkStmts(v.Stmts)
		c.walkExpr(v.Condition)
	case *ast.IfStmt:
		c.walkExpr(v.Condition)
		c.walkStmts(v.Then)
		c.walkStmts(v.Else)
	case *ast.NumberForStmt:
		c.walkExpr(v.Init)
		c.walkExpr(v.Limit)
		if v.Step != nil {
			c.walkExpr(v.Step)
		}
		c.walkStmts(v.Stmts)
	case *ast.GenericForStmt:
		c.walkExprs(v.Exprs)
		c.walkStmts(v.Stmts)
	case *ast.FuncDefStmt:
		c.walkExpr(v.Func)
	case *ast.ReturnStmt:
		c.walkExprs(v.Exprs)
	}
}

func (c *collector) walkExprs(exprs []ast.Expr) {
	for _, e := range exprs {
		c.walkExpr(e)
	}
}

func (c *collector) walkExpr(expr ast.Expr) {
	switch v := expr.(type) {
	case *ast.FuncCallExpr:
		if literal, ok := luautil.RequirePath(v); ok {
			c.record(literal)
			return
		}
		if v.Func != nil {
			c.walkExpr(v.Func)
		}
		if v.Receiver != nil {
			c.walkExpr(v.Receiver)
		}
		c.walkExprs(v.Args)
	case *ast.AttrGetExpr:
		c.walkExpr(v.Object)
		c.walkExpr(v.Key)
	case *ast.TableExpr:
		for _, field := range v.Fields {
			if field.Key != nil {
				c.walkExpr(field.Key)
			}
			c.walkExpr(field.Value)
		}
	case *ast.FunctionExpr:
		c.walkStmts(v.Stmts)
	case *ast.LogicalOpExpr:
		c.walkExpr(v.Lhs)
		c.walkExpr(v.Rhs)
	case *ast.RelationalOpExpr:
		c.walkExpr(v.Lhs)
		c.walkExpr(v.Rhs)
	case *ast.ArithmeticOpExpr:
		c.walkExpr(v.Lhs)
		c.walkExpr(v.Rhs)
	case *ast.StringConcatOpExpr:
		c.walkExpr(v.Lhs)
		c.walkExpr(v.Rhs)
	case *ast.UnaryMinusOpExpr:
		c.walkExpr(v.Expr)
	case *ast.UnaryNotOpExpr:
		c.walkExpr(v.Expr)
	case *ast.UnaryLenOpExpr:
		c.walkExpr(v.Expr)
	}
}
