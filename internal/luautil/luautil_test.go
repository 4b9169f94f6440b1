package luautil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/gopher-lua/ast"
	"github.com/yuin/gopher-lua/parse"
)

// firstCall parses a single-statement Lua source and returns its call expression.
func firstCall(t *testing.T, src string) *ast.FuncCallExpr {
	t.Helper()
	chunk, err := parse.Parse(strings.NewReader(src), "test.lua")
	require.NoError(t, err)
	require.NotEmpty(t, chunk)
	stmt, ok := chunk[0].(*ast.FuncCallStmt)
	require.True(t, ok, "expected a call statement")
	call, ok := stmt.Expr.(*ast.FuncCallExpr)
	require.True(t, ok)
	return call
}

func TestCallTarget(t *testing.T) {
	t.Run("bare identifier", func(t *testing.T) {
		name, ok := CallTarget(firstCall(t, `fetch()`))
		require.True(t, ok)
		assert.Equal(t, "fetch", name)
	})

	t.Run("dotted name", func(t *testing.T) {
		name, ok := CallTarget(firstCall(t, `sdk.http.fetch()`))
		require.True(t, ok)
		assert.Equal(t, "sdk.http.fetch", name)
	})

	t.Run("method call has no static name", func(t *testing.T) {
		_, ok := CallTarget(firstCall(t, `client:fetch()`))
		assert.False(t, ok)
	})

	t.Run("computed access has no static name", func(t *testing.T) {
		_, ok := CallTarget(firstCall(t, `t[k]()`))
		assert.False(t, ok)
	})
}

func TestRequirePath(t *testing.T) {
	t.Run("string literal argument", func(t *testing.T) {
		path, ok := RequirePath(firstCall(t, `require("./helpers/auth")`))
		require.True(t, ok)
		assert.Equal(t, "./helpers/auth", path)
	})

	t.Run("non-literal argument is not matched", func(t *testing.T) {
		_, ok := RequirePath(firstCall(t, `require(mod_name)`))
		assert.False(t, ok)
	})

	t.Run("other calls are not matched", func(t *testing.T) {
		_, ok := RequirePath(firstCall(t, `load("./helpers/auth")`))
		assert.False(t, ok)
	})
}

func TestIntLiteral(t *testing.T) {
	chunk, err := parse.Parse(strings.NewReader(`local a = 25`), "test.lua")
	require.NoError(t, err)
	local, ok := chunk[0].(*ast.LocalAssignStmt)
	require.True(t, ok)
	require.Len(t, local.Exprs, 1)

	n, ok := IntLiteral(local.Exprs[0])
	require.True(t, ok)
	assert.Equal(t, uint64(25), n)
}
