package types

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoin(t *testing.T) {
	c, h, f := newBuiltinChecker()
	intT, strT, boolT, obj := h.Inst("int"), h.Inst("str"), h.Inst("bool"), h.Object()

	boxT := f.NewTypeVar("T", Covariant, nil)
	h.Define(NewClassInfo("Box", []*Instance{h.Object()}, boxT))

	testCases := []struct {
		name string
		a, b Type
		want Type
	}{
		{name: "join with a supertype", a: boolT, b: intT, want: intT},
		{name: "unrelated classes meet at object", a: intT, b: strT, want: obj},
		{name: "Never is the identity", a: NeverType{}, b: strT, want: strT},
		{name: "Any absorbs", a: AnyType{}, b: strT, want: AnyType{}},
		{name: "None joins into an optional", a: intT, b: NoneType{}, want: NewUnion(intT, NoneType{})},
		{name: "union operands stay unions", a: NewUnion(intT, strT), b: NoneType{}, want: NewUnion(intT, strT, NoneType{})},
		{name: "covariant arguments join pointwise", a: h.Inst("Box", intT), b: h.Inst("Box", strT), want: h.Inst("Box", obj)},
		{name: "literals join at their fallback", a: &LiteralType{Value: IntLit(1), Fallback: intT}, b: &LiteralType{Value: IntLit(2), Fallback: intT}, want: intT},
		{
			name: "same-arity tuples join itemwise",
			a:    &TupleType{Items: []Type{intT, boolT}},
			b:    &TupleType{Items: []Type{strT, intT}},
			want: &TupleType{Items: []Type{obj, intT}},
		},
		{name: "callable and tuple fall back to object", a: &CallableType{Ret: intT}, b: &TupleType{Items: []Type{intT}}, want: obj},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.Join(tc.a, tc.b)
			assert.True(t, c.TypesEquivalent(got, tc.want),
				fmt.Sprintf("Join(%s, %s) = %s, want %s", tc.a, tc.b, got, tc.want))
		})
	}
}

func TestJoinInvariantDisagreementErases(t *testing.T) {
	c, h, _ := newBuiltinChecker()
	got := c.Join(h.Inst("list", h.Inst("int")), h.Inst("list", h.Inst("str")))
	inst, ok := got.(*Instance)
	assert.True(t, ok)
	assert.Equal(t, "list", inst.Class.Name)
	assert.True(t, inst.Erased, "disagreeing invariant arguments erase the instance")
}

func TestJoinCallablesPointwise(t *testing.T) {
	c, h, _ := newBuiltinChecker()
	intT, boolT, obj := h.Inst("int"), h.Inst("bool"), h.Object()

	a := &CallableType{Params: []Param{{Kind: PosOnly, Typ: obj}}, Ret: intT}
	b := &CallableType{Params: []Param{{Kind: PosOnly, Typ: intT}}, Ret: boolT}
	got, ok := c.Join(a, b).(*CallableType)
	assert.True(t, ok)
	assert.True(t, c.TypesEquivalent(got.Params[0].Typ, intT), "parameters meet")
	assert.True(t, c.TypesEquivalent(got.Ret, intT), "returns join")

	// arity mismatch falls back to the nominal function type
	mismatched := c.Join(a, &CallableType{Ret: intT})
	assert.True(t, c.TypesEquivalent(mismatched, h.FunctionFallback()))
}

func TestMeet(t *testing.T) {
	c, h, _ := newBuiltinChecker()
	intT, strT, boolT, obj := h.Inst("int"), h.Inst("str"), h.Inst("bool"), h.Object()

	testCases := []struct {
		name string
		a, b Type
		want Type
	}{
		{name: "meet with a supertype", a: intT, b: obj, want: intT},
		{name: "disjoint classes meet at Never", a: boolT, b: strT, want: NeverType{}},
		{name: "Any is the identity", a: AnyType{}, b: intT, want: intT},
		{name: "Never absorbs", a: NeverType{}, b: intT, want: NeverType{}},
		{name: "narrowing an optional with None", a: NewUnion(intT, NoneType{}), b: NoneType{}, want: NoneType{}},
		{name: "None against a class is empty", a: NoneType{}, b: intT, want: NeverType{}},
		{name: "union distributes", a: NewUnion(intT, strT), b: NewUnion(strT, h.Inst("bytes")), want: strT},
		{
			name: "tuples meet itemwise",
			a:    &TupleType{Items: []Type{intT, obj}},
			b:    &TupleType{Items: []Type{obj, strT}},
			want: &TupleType{Items: []Type{intT, strT}},
		},
		{
			name: "tuples with an empty slot are empty",
			a:    &TupleType{Items: []Type{intT, intT}},
			b:    &TupleType{Items: []Type{intT, strT}},
			want: NeverType{},
		},
		{name: "tuple arity mismatch is empty", a: &TupleType{Items: []Type{intT}}, b: &TupleType{Items: []Type{intT, intT}}, want: NeverType{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.Meet(tc.a, tc.b)
			assert.True(t, c.TypesEquivalent(got, tc.want),
				fmt.Sprintf("Meet(%s, %s) = %s, want %s", tc.a, tc.b, got, tc.want))
		})
	}
}

// The lattice identities hold over a mixed pool of types: both operations
// are idempotent and commutative, and each absorbs the other.
func TestLatticeIdentities(t *testing.T) {
	c, h, _ := newBuiltinChecker()
	intT, strT := h.Inst("int"), h.Inst("str")
	pool := []Type{
		h.Inst("bool"),
		intT,
		strT,
		h.Object(),
		NewUnion(intT, NoneType{}),
		&TupleType{Items: []Type{intT, strT}},
		h.Inst("list", intT),
		&LiteralType{Value: StrLit("on"), Fallback: strT},
	}

	for _, a := range pool {
		assert.True(t, c.TypesEquivalent(c.Join(a, a), a), fmt.Sprintf("Join(%s, %s)", a, a))
		assert.True(t, c.TypesEquivalent(c.Meet(a, a), a), fmt.Sprintf("Meet(%s, %s)", a, a))
		for _, b := range pool {
			assert.True(t, c.TypesEquivalent(c.Join(a, b), c.Join(b, a)),
				fmt.Sprintf("Join(%s, %s) is not commutative", a, b))
			assert.True(t, c.TypesEquivalent(c.Meet(a, b), c.Meet(b, a)),
				fmt.Sprintf("Meet(%s, %s) is not commutative", a, b))
			assert.True(t, c.TypesEquivalent(c.Join(a, c.Meet(a, b)), a),
				fmt.Sprintf("absorption failed for Join(%s, Meet(%s, %s))", a, a, b))
			assert.True(t, c.TypesEquivalent(c.Meet(a, c.Join(a, b)), a),
				fmt.Sprintf("absorption failed for Meet(%s, Join(%s, %s))", a, a, b))
		}
	}
}

func TestJoinAndMeetBoundTheOperands(t *testing.T) {
	c, h, _ := newBuiltinChecker()
	intT, strT := h.Inst("int"), h.Inst("str")
	pool := []Type{h.Inst("bool"), intT, strT, h.Object(), NewUnion(intT, strT), NoneType{}}

	for _, a := range pool {
		for _, b := range pool {
			join := c.Join(a, b)
			assert.True(t, c.IsAssignable(a, join), fmt.Sprintf("%s not assignable to Join(%s, %s) = %s", a, a, b, join))
			assert.True(t, c.IsAssignable(b, join), fmt.Sprintf("%s not assignable to Join(%s, %s) = %s", b, a, b, join))
			meet := c.Meet(a, b)
			assert.True(t, c.IsAssignable(meet, a), fmt.Sprintf("Meet(%s, %s) = %s not assignable to %s", a, b, meet, a))
			assert.True(t, c.IsAssignable(meet, b), fmt.Sprintf("Meet(%s, %s) = %s not assignable to %s", a, b, meet, b))
		}
	}
}
