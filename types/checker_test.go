package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnionOf(t *testing.T) {
	c, h, _ := newBuiltinChecker()
	intT, strT, boolT := h.Inst("int"), h.Inst("str"), h.Inst("bool")

	t.Run("subsumed members are dropped", func(t *testing.T) {
		got := c.UnionOf(intT, boolT)
		assert.True(t, c.TypesEquivalent(got, intT))
	})
	t.Run("incomparable members stay", func(t *testing.T) {
		u, ok := c.UnionOf(intT, strT).(*UnionType)
		require.True(t, ok)
		assert.Len(t, u.Items, 2)
	})
	t.Run("equivalent members keep only one", func(t *testing.T) {
		got := c.UnionOf(NewUnion(intT, strT), NewUnion(strT, intT))
		u, ok := got.(*UnionType)
		require.True(t, ok)
		assert.Len(t, u.Items, 2)
	})
	t.Run("literal-only unions stay enumerable", func(t *testing.T) {
		one := &LiteralType{Value: IntLit(1), Fallback: intT}
		two := &LiteralType{Value: IntLit(2), Fallback: intT}
		u, ok := c.UnionOf(one, two).(*UnionType)
		require.True(t, ok)
		assert.Len(t, u.Items, 2, "finite value sets must not be simplified away")
	})
	t.Run("literal folds into its fallback in mixed unions", func(t *testing.T) {
		one := &LiteralType{Value: IntLit(1), Fallback: intT}
		got := c.UnionOf(one, intT)
		assert.True(t, c.TypesEquivalent(got, intT))
	})
}

func TestTypesEquivalent(t *testing.T) {
	c, h, _ := newBuiltinChecker()
	intT, strT := h.Inst("int"), h.Inst("str")

	assert.True(t, c.TypesEquivalent(intT, h.Inst("int")))
	assert.True(t, c.TypesEquivalent(NewUnion(intT, strT), NewUnion(strT, intT)))
	assert.False(t, c.TypesEquivalent(intT, h.Inst("bool")), "one-way subtyping is not equivalence")
	assert.False(t, c.TypesEquivalent(intT, h.Inst("float")), "promotion is not equivalence")

	def := &AliasDef{Name: "Pair", Target: &TupleType{Items: []Type{intT, intT}}}
	assert.True(t, c.TypesEquivalent(&AliasType{Def: def}, &TupleType{Items: []Type{intT, intT}}),
		"an alias is equivalent to its expansion")
}

func TestGenericAliasExpansion(t *testing.T) {
	c, h, f := newBuiltinChecker()
	intT := h.Inst("int")

	tv := f.NewTypeVar("T", Invariant, nil)
	def := &AliasDef{
		Name:       "Pair",
		TypeParams: []*TypeVarType{tv},
		Target:     &TupleType{Items: []Type{tv, tv}},
	}

	assert.True(t, c.TypesEquivalent(
		&AliasType{Def: def, Args: []Type{intT}},
		&TupleType{Items: []Type{intT, intT}},
	))

	// a missing argument falls back to the parameter default, then to Any
	tv.Default = h.Inst("str")
	assert.True(t, c.TypesEquivalent(
		&AliasType{Def: def},
		&TupleType{Items: []Type{h.Inst("str"), h.Inst("str")}},
	))
}
