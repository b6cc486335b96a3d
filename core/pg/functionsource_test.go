package pg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tileflux/martin/core/source"
)

func TestFunctionEntryCallExprOmitsQueryArgForThreeArgFunction(t *testing.T) {
	e := FunctionEntry{Schema: "public", Name: "tiles3", Arity: 3}
	sql, args := e.callExpr(source.XYZ{Z: 1, X: 2, Y: 3}, source.Query{"k": "v"})

	assert.Contains(t, sql, "($1, $2, $3)")
	require.Len(t, args, 3)
	assert.Equal(t, uint8(1), args[0])
}

func TestFunctionEntryCallExprIncludesQueryArgForFourArgFunction(t *testing.T) {
	e := FunctionEntry{Schema: "public", Name: "tiles4", Arity: 4}
	sql, args := e.callExpr(source.XYZ{Z: 1, X: 2, Y: 3}, source.Query{"k": "v"})

	assert.Contains(t, sql, "($1, $2, $3, $4)")
	require.Len(t, args, 4)
	assert.Equal(t, map[string]string{"k": "v"}, args[3])
}
