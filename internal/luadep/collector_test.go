package luadep

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/gopher-lua/ast"
	"github.com/yuin/gopher-lua/parse"
)

func parseChunk(t *testing.T, src string) []ast.Stmt {
	t.Helper()
	chunk, err := parse.Parse(strings.NewReader(src), "test.lua")
	require.NoError(t, err)
	return chunk
}

func TestCollect(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves relative to the requiring file", func(t *testing.T) {
		src := `local auth = require("./auth")`
		deps := Collect(ctx, filepath.Join("flows", "profile.lua"), parseChunk(t, src))
		require.Len(t, deps, 1)
		assert.Equal(t, filepath.Join("flows", "auth.lua"), deps[0])
	})

	t.Run("appends the lua extension when missing", func(t *testing.T) {
		src := `require("../shared/util")`
		deps := Collect(ctx, filepath.Join("flows", "a", "main.lua"), parseChunk(t, src))
		require.Len(t, deps, 1)
		assert.Equal(t, filepath.Join("flows", "shared", "util.lua"), deps[0])
	})

	t.Run("deduplicates repeated requires", func(t *testing.T) {
		src := `
local a = require("./auth")
local b = require("./auth.lua")
require("./other")
`
		deps := Collect(ctx, filepath.Join("flows", "main.lua"), parseChunk(t, src))
		assert.Equal(t, []string{
			filepath.Join("flows", "auth.lua"),
			filepath.Join("flows", "other.lua"),
		}, deps)
	})

	t.Run("finds requires in nested blocks and functions", func(t *testing.T) {
		src := `
local function setup()
	if ready then
		local mod = require("./nested/inner")
	end
end

for i = 1, 3 do
	require("./looped")
end
`
		deps := Collect(ctx, filepath.Join("flows", "main.lua"), parseChunk(t, src))
		assert.Equal(t, []string{
			filepath.Join("flows", "nested", "inner.lua"),
			filepath.Join("flows", "looped.lua"),
		}, deps)
	})

	t.Run("ignores dynamic require arguments", func(t *testing.T) {
		src := `require(pick_module())`
		deps := Collect(ctx, "main.lua", parseChunk(t, src))
		assert.Empty(t, deps)
	})
}
