package types

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// newBuiltinChecker is the shared harness: a builtin universe plus a fresh
// checker over it.
func newBuiltinChecker() (*Checker, *Hierarchy, *Fresher) {
	f := NewFresher()
	h := NewBuiltins(f)
	return NewChecker(h), h, f
}

func TestNominalSubtyping(t *testing.T) {
	c, h, _ := newBuiltinChecker()

	testCases := []struct {
		name  string
		left  Type
		right Type
		mode  SubtypeMode
		want  bool
	}{
		{name: "class is a subtype of itself", left: h.Inst("int"), right: h.Inst("int"), want: true},
		{name: "everything is a subtype of object", left: h.Inst("str"), right: h.Object(), want: true},
		{name: "bool inherits from int", left: h.Inst("bool"), right: h.Inst("int"), want: true},
		{name: "int does not inherit from bool", left: h.Inst("int"), right: h.Inst("bool"), want: false},
		{name: "unrelated classes", left: h.Inst("int"), right: h.Inst("str"), want: false},
		{name: "Never flows anywhere", left: NeverType{}, right: h.Inst("str"), want: true},
		{name: "Any flows anywhere", left: AnyType{}, right: h.Inst("str"), want: true},
		{name: "anything flows into Any", left: h.Inst("str"), right: AnyType{}, want: true},
		{name: "nothing flows into Never", left: h.Inst("str"), right: NeverType{}, want: false},
		{name: "None against the NoneType class", left: NoneType{}, right: h.Inst("NoneType"), want: true},
		{name: "None is not an int", left: NoneType{}, right: h.Inst("int"), want: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.IsSubtype(tc.left, tc.right, tc.mode))
		})
	}
}

func TestPromotionsOnlyOutsideProperMode(t *testing.T) {
	c, h, _ := newBuiltinChecker()

	testCases := []struct {
		name  string
		left  string
		right string
	}{
		{name: "int promotes to float", left: "int", right: "float"},
		{name: "int promotes transitively to complex", left: "int", right: "complex"},
		{name: "bool promotes through int to float", left: "bool", right: "float"},
		{name: "bytearray promotes to bytes", left: "bytearray", right: "bytes"},
		{name: "memoryview promotes to bytes", left: "memoryview", right: "bytes"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l, r := h.Inst(tc.left), h.Inst(tc.right)
			assert.True(t, c.IsAssignable(l, r))
			assert.False(t, c.IsProperSubtype(l, r), "promotion must not leak into proper subtyping")
			assert.False(t, c.IsAssignable(r, l), "promotions are one-way")
		})
	}
}

func TestGenericVariance(t *testing.T) {
	c, h, f := newBuiltinChecker()

	boxT := f.NewTypeVar("T", Covariant, nil)
	h.Define(NewClassInfo("Box", []*Instance{h.Object()}, boxT))
	sinkT := f.NewTypeVar("T", Contravariant, nil)
	h.Define(NewClassInfo("Sink", []*Instance{h.Object()}, sinkT))

	intT, obj := h.Inst("int"), h.Object()

	assert.True(t, c.IsProperSubtype(h.Inst("Box", intT), h.Inst("Box", obj)))
	assert.False(t, c.IsProperSubtype(h.Inst("Box", obj), h.Inst("Box", intT)))

	assert.True(t, c.IsProperSubtype(h.Inst("Sink", obj), h.Inst("Sink", intT)))
	assert.False(t, c.IsProperSubtype(h.Inst("Sink", intT), h.Inst("Sink", obj)))

	// list is invariant: neither direction holds for distinct arguments
	assert.False(t, c.IsProperSubtype(h.Inst("list", intT), h.Inst("list", obj)))
	assert.False(t, c.IsProperSubtype(h.Inst("list", obj), h.Inst("list", intT)))
	assert.True(t, c.IsProperSubtype(h.Inst("list", intT), h.Inst("list", intT)))

	// an erased instance is compatible at any argument list
	erased := &Instance{Class: h.Inst("list").Class, Erased: true}
	assert.True(t, c.IsProperSubtype(h.Inst("list", intT), erased))
	assert.True(t, c.IsProperSubtype(erased, h.Inst("list", obj)))
}

func TestUnionSubtyping(t *testing.T) {
	c, h, _ := newBuiltinChecker()
	intT, strT, boolT := h.Inst("int"), h.Inst("str"), h.Inst("bool")

	testCases := []struct {
		name  string
		left  Type
		right Type
		want  bool
	}{
		{name: "member flows into its union", left: intT, right: NewUnion(intT, strT), want: true},
		{name: "union covered member by member", left: NewUnion(intT, boolT), right: intT, want: true},
		{name: "union with a stray member does not flow", left: NewUnion(intT, strT), right: intT, want: false},
		{name: "union into wider union", left: NewUnion(intT, strT), right: NewUnion(intT, strT, NoneType{}), want: true},
		{name: "None flows into an optional", left: NoneType{}, right: NewUnion(intT, NoneType{}), want: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.IsProperSubtype(tc.left, tc.right))
		})
	}
}

func TestTypeVarSubtyping(t *testing.T) {
	c, h, f := newBuiltinChecker()
	intT, strT := h.Inst("int"), h.Inst("str")

	bounded := f.NewTypeVar("T", Invariant, intT)
	assert.True(t, c.IsProperSubtype(bounded, intT), "a bounded variable flows through its bound")
	assert.True(t, c.IsProperSubtype(bounded, h.Object()))
	assert.False(t, c.IsProperSubtype(bounded, strT))
	assert.True(t, c.IsProperSubtype(bounded, bounded), "same identity is reflexive")

	restricted := f.NewTypeVar("AnyStr", Invariant, nil, intT, strT)
	assert.True(t, c.IsProperSubtype(restricted, NewUnion(intT, strT)))
	assert.False(t, c.IsProperSubtype(restricted, intT))

	other := f.NewTypeVar("T", Invariant, intT)
	assert.False(t, c.IsProperSubtype(bounded, other),
		"distinct identities never unify, even with the same name and bound")
	assert.False(t, c.IsProperSubtype(intT, bounded),
		"nothing concrete flows into an unresolved variable")
}

func TestTupleSubtyping(t *testing.T) {
	c, h, _ := newBuiltinChecker()
	intT, strT, obj := h.Inst("int"), h.Inst("str"), h.Object()
	fixed := func(items ...Type) *TupleType { return &TupleType{Items: items} }

	testCases := []struct {
		name  string
		left  Type
		right Type
		want  bool
	}{
		{name: "itemwise covariance", left: fixed(intT, strT), right: fixed(obj, obj), want: true},
		{name: "arity mismatch", left: fixed(intT), right: fixed(intT, intT), want: false},
		{name: "item mismatch", left: fixed(intT, strT), right: fixed(intT, intT), want: false},
		{
			name:  "fixed tuple into homogeneous target",
			left:  fixed(intT, intT),
			right: fixed(&UnpackType{Inner: h.Inst("tuple", intT)}),
			want:  true,
		},
		{
			name:  "fixed tuple with a stray item into homogeneous target",
			left:  fixed(intT, strT),
			right: fixed(&UnpackType{Inner: h.Inst("tuple", intT)}),
			want:  false,
		},
		{
			name:  "prefix and suffix around an unpack",
			left:  fixed(intT, strT, strT, intT),
			right: fixed(intT, &UnpackType{Inner: h.Inst("tuple", strT)}, intT),
			want:  true,
		},
		{
			name:  "too short for prefix plus suffix",
			left:  fixed(intT),
			right: fixed(intT, &UnpackType{Inner: h.Inst("tuple", strT)}, intT),
			want:  false,
		},
		{
			name:  "variable-length never fits a fixed length",
			left:  fixed(&UnpackType{Inner: h.Inst("tuple", intT)}),
			right: fixed(intT, intT),
			want:  false,
		},
		{
			name:  "unpack against unpack compares element types",
			left:  fixed(&UnpackType{Inner: h.Inst("tuple", intT)}),
			right: fixed(&UnpackType{Inner: h.Inst("tuple", obj)}),
			want:  true,
		},
		{name: "tuple into its nominal fallback", left: fixed(intT, intT), right: h.Inst("tuple", intT), want: true},
		{name: "tuple into a wider nominal fallback", left: fixed(intT, strT), right: h.Inst("tuple", obj), want: true},
		{name: "tuple is an object", left: fixed(intT), right: obj, want: true},
		{name: "empty tuple", left: fixed(), right: fixed(), want: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.IsProperSubtype(tc.left, tc.right))
		})
	}
}

func TestCallableSubtyping(t *testing.T) {
	c, h, _ := newBuiltinChecker()
	intT, strT, obj := h.Inst("int"), h.Inst("str"), h.Object()
	def := func(ret Type, params ...Param) *CallableType { return &CallableType{Params: params, Ret: ret} }
	pos := func(t Type) Param { return Param{Kind: PosOnly, Typ: t} }

	testCases := []struct {
		name  string
		left  Type
		right Type
		want  bool
	}{
		{name: "return is covariant", left: def(intT), right: def(obj), want: true},
		{name: "return covariance violated", left: def(obj), right: def(intT), want: false},
		{name: "parameters are contravariant", left: def(intT, pos(obj)), right: def(intT, pos(intT)), want: true},
		{name: "parameter contravariance violated", left: def(intT, pos(intT)), right: def(intT, pos(obj)), want: false},
		{name: "missing parameter", left: def(intT), right: def(intT, pos(intT)), want: false},
		{name: "extra required parameter", left: def(intT, pos(intT), pos(strT)), right: def(intT, pos(intT)), want: false},
		{
			name:  "extra defaulted parameter is fine",
			left:  def(intT, pos(intT), Param{Kind: PosOnly, Typ: strT, HasDefault: true}),
			right: def(intT, pos(intT)),
			want:  true,
		},
		{
			name:  "defaulted target parameter needs a defaulted source",
			left:  def(intT, pos(intT)),
			right: def(intT, Param{Kind: PosOnly, Typ: intT, HasDefault: true}),
			want:  false,
		},
		{
			name:  "star args absorb extra positionals",
			left:  def(intT, Param{Kind: StarArgs, Name: "args", Typ: obj}),
			right: def(intT, pos(intT), pos(strT)),
			want:  true,
		},
		{
			name:  "keyword name must match",
			left:  def(intT, Param{Kind: PosOrKeyword, Name: "x", Typ: intT}),
			right: def(intT, Param{Kind: PosOrKeyword, Name: "y", Typ: intT}),
			want:  false,
		},
		{
			name:  "positional-only source cannot serve a keyword caller",
			left:  def(intT, pos(intT)),
			right: def(intT, Param{Kind: PosOrKeyword, Name: "x", Typ: intT}),
			want:  false,
		},
		{
			name:  "star star kwargs absorb keyword-only targets",
			left:  def(intT, Param{Kind: StarStarKwargs, Name: "kw", Typ: obj}),
			right: def(intT, Param{Kind: KeywordOnly, Name: "x", Typ: intT}),
			want:  true,
		},
		{name: "ellipsis accepts any parameters", left: &CallableType{Ret: intT, IsEllipsis: true}, right: def(obj, pos(strT)), want: true},
		{name: "anything flows into an ellipsis target", left: def(intT, pos(strT)), right: &CallableType{Ret: obj, IsEllipsis: true}, want: true},
		{name: "callable is a function instance", left: def(intT), right: h.FunctionFallback(), want: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.IsProperSubtype(tc.left, tc.right))
		})
	}
}

func TestOverloadedSubtyping(t *testing.T) {
	c, h, _ := newBuiltinChecker()
	intT, strT := h.Inst("int"), h.Inst("str")
	intToInt := &CallableType{Params: []Param{{Kind: PosOnly, Typ: intT}}, Ret: intT}
	strToStr := &CallableType{Params: []Param{{Kind: PosOnly, Typ: strT}}, Ret: strT}
	over := &Overloaded{Alts: []*CallableType{intToInt, strToStr}}

	// strict: every alternative must conform to the target
	assert.False(t, c.IsProperSubtype(over, intToInt))
	// assignable: one matching alternative suffices
	assert.True(t, c.IsAssignable(over, intToInt))
	assert.True(t, c.IsAssignable(over, strToStr))

	// an overload target requires the source to satisfy every alternative
	assert.False(t, c.IsProperSubtype(intToInt, over))
	anyCallable := &CallableType{Ret: AnyType{}, IsEllipsis: true}
	assert.True(t, c.IsProperSubtype(anyCallable, over))
}

func TestProtocolSubtyping(t *testing.T) {
	c, h, _ := newBuiltinChecker()
	strT, bytesT := h.Inst("str"), h.Inst("bytes")
	readStr := &CallableType{Ret: strT}

	reader := NewClassInfo("SupportsRead", nil)
	reader.IsProtocol = true
	reader.SetReadOnlyMember("read", readStr)
	h.Define(reader)

	file := h.Define(NewClassInfo("File", nil))
	file.SetReadOnlyMember("read", readStr)

	socket := h.Define(NewClassInfo("Socket", nil))
	socket.SetReadOnlyMember("read", &CallableType{Ret: bytesT})

	h.Define(NewClassInfo("Closed", nil))

	target := h.Inst("SupportsRead")
	assert.True(t, c.IsProperSubtype(h.Inst("File"), target),
		"matching member satisfies the protocol without inheritance")
	assert.False(t, c.IsProperSubtype(h.Inst("Socket"), target),
		"member present but incompatible")
	assert.False(t, c.IsProperSubtype(h.Inst("Closed"), target),
		"member missing entirely")
	assert.False(t, c.IsProperSubtype(target, h.Inst("File")),
		"protocols do not flow into nominal classes")
}

func TestReadWriteProtocolMembersAreInvariant(t *testing.T) {
	c, h, _ := newBuiltinChecker()
	intT, obj := h.Inst("int"), h.Object()

	hasValue := NewClassInfo("HasValue", nil)
	hasValue.IsProtocol = true
	hasValue.SetMember("value", obj)
	h.Define(hasValue)

	narrow := h.Define(NewClassInfo("Narrow", nil))
	narrow.SetMember("value", intT)
	exact := h.Define(NewClassInfo("Exact", nil))
	exact.SetMember("value", obj)

	assert.False(t, c.IsProperSubtype(h.Inst("Narrow"), h.Inst("HasValue")),
		"a writable member must match in both directions")
	assert.True(t, c.IsProperSubtype(h.Inst("Exact"), h.Inst("HasValue")))
}

func TestStructuralMode(t *testing.T) {
	c, h, _ := newBuiltinChecker()
	strT := h.Inst("str")

	named := h.Define(NewClassInfo("Named", nil))
	named.SetReadOnlyMember("name", strT)
	tagged := h.Define(NewClassInfo("Tagged", nil))
	tagged.SetReadOnlyMember("name", strT)

	// Named is not a protocol, so nominally the classes are unrelated
	assert.False(t, c.IsProperSubtype(h.Inst("Tagged"), h.Inst("Named")))
	assert.True(t, c.IsSubtype(h.Inst("Tagged"), h.Inst("Named"), ModeStructural),
		"structural mode treats any class target as a protocol")
}

func TestLiteralSubtyping(t *testing.T) {
	c, h, _ := newBuiltinChecker()
	intT := h.Inst("int")
	one := &LiteralType{Value: IntLit(1), Fallback: intT}
	two := &LiteralType{Value: IntLit(2), Fallback: intT}
	on := &LiteralType{Value: StrLit("on"), Fallback: h.Inst("str")}

	assert.True(t, c.IsProperSubtype(one, intT), "a literal flows into its fallback")
	assert.True(t, c.IsProperSubtype(one, &LiteralType{Value: IntLit(1), Fallback: intT}))
	assert.False(t, c.IsProperSubtype(one, two))
	assert.False(t, c.IsProperSubtype(intT, one), "the fallback never narrows to a literal")
	assert.False(t, c.IsProperSubtype(on, intT))
	assert.True(t, c.IsProperSubtype(one, NewUnion(one, two)))
}

func TestTypedDictSubtyping(t *testing.T) {
	c, h, _ := newBuiltinChecker()
	intT, strT := h.Inst("int"), h.Inst("str")
	td := func(fields ...TDField) *TypedDictType { return &TypedDictType{Fields: fields} }

	movie := td(
		TDField{Name: "name", Typ: strT, Required: true},
		TDField{Name: "year", Typ: intT, Required: true},
	)

	testCases := []struct {
		name  string
		left  *TypedDictType
		right *TypedDictType
		want  bool
	}{
		{name: "width subtyping drops extra fields", left: movie, right: td(TDField{Name: "name", Typ: strT, Required: true}), want: true},
		{name: "missing required field", left: td(TDField{Name: "name", Typ: strT, Required: true}), right: movie, want: false},
		{
			name:  "optional target rejects a required source field",
			left:  td(TDField{Name: "name", Typ: strT, Required: true}),
			right: td(TDField{Name: "name", Typ: strT}),
			want:  false,
		},
		{
			name:  "read-only optional target accepts a required source field",
			left:  td(TDField{Name: "name", Typ: strT, Required: true}),
			right: td(TDField{Name: "name", Typ: strT, ReadOnly: true}),
			want:  true,
		},
		{
			name:  "read-only fields compare covariantly",
			left:  td(TDField{Name: "id", Typ: h.Inst("bool"), Required: true}),
			right: td(TDField{Name: "id", Typ: intT, Required: true, ReadOnly: true}),
			want:  true,
		},
		{
			name:  "writable fields compare invariantly",
			left:  td(TDField{Name: "id", Typ: h.Inst("bool"), Required: true}),
			right: td(TDField{Name: "id", Typ: intT, Required: true}),
			want:  false,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.IsProperSubtype(tc.left, tc.right))
		})
	}
}

func TestRecursiveAliasSubtyping(t *testing.T) {
	c, h, _ := newBuiltinChecker()
	intT, strT := h.Inst("int"), h.Inst("str")

	jsonDef := &AliasDef{Name: "Json"}
	json := &AliasType{Def: jsonDef}
	jsonDef.Target = NewUnion(intT, strT, h.Inst("list", json))

	assert.True(t, c.IsProperSubtype(intT, json))
	assert.True(t, c.IsProperSubtype(h.Inst("list", json), json))
	assert.True(t, c.IsProperSubtype(json, json))
	assert.False(t, c.IsProperSubtype(h.Inst("bytes"), json))
}

func TestAliasWithoutBaseCaseResolvesToAny(t *testing.T) {
	c, h, _ := newBuiltinChecker()

	loopDef := &AliasDef{Name: "Loop"}
	loopDef.Target = &AliasType{Def: loopDef}
	loop := &AliasType{Def: loopDef}

	reported := 0
	c.OnRecursive = func(Type) { reported++ }

	assert.True(t, c.IsProperSubtype(loop, h.Inst("int")),
		"a divergent alias degrades to Any rather than crashing")
	assert.Greater(t, reported, 0, "the divergence must be surfaced")
}

func TestGrowingAliasResolvesToAny(t *testing.T) {
	c, h, f := newBuiltinChecker()

	// Grow[T] = Grow[list[T]]: every expansion yields a new, strictly
	// larger reference, so no two expansions are structurally equal
	tv := f.NewTypeVar("T", Invariant, nil)
	growDef := &AliasDef{Name: "Grow", TypeParams: []*TypeVarType{tv}}
	growDef.Target = &AliasType{Def: growDef, Args: []Type{h.Inst("list", tv)}}
	grow := &AliasType{Def: growDef, Args: []Type{h.Inst("int")}}

	reported := 0
	c.OnRecursive = func(Type) { reported++ }

	assert.True(t, c.IsProperSubtype(grow, h.Inst("int")),
		"an alias whose arguments grow forever still degrades to Any")
	assert.Greater(t, reported, 0, "the divergence must be surfaced")
}

func TestNegativeCacheIsInvisible(t *testing.T) {
	c, h, _ := newBuiltinChecker()
	intT, strT := h.Inst("int"), h.Inst("str")

	assert.False(t, c.IsProperSubtype(intT, strT))
	assert.False(t, c.IsProperSubtype(intT, strT), "cached failure answers the same")
	assert.True(t, c.IsAssignable(intT, h.Inst("float")),
		"the cache is keyed by mode, a proper-mode failure must not leak")
	c.ClearCache()
	assert.False(t, c.IsProperSubtype(intT, strT))
}

func TestProperSubtypingIsTransitive(t *testing.T) {
	c, h, _ := newBuiltinChecker()
	intT, strT := h.Inst("int"), h.Inst("str")
	pool := []Type{
		h.Inst("bool"),
		intT,
		strT,
		h.Object(),
		NewUnion(intT, strT),
		&LiteralType{Value: IntLit(1), Fallback: intT},
		&TupleType{Items: []Type{intT}},
		h.Inst("tuple", intT),
		NoneType{},
		NeverType{},
	}
	for _, a := range pool {
		for _, b := range pool {
			if !c.IsProperSubtype(a, b) {
				continue
			}
			for _, d := range pool {
				if c.IsProperSubtype(b, d) {
					assert.True(t, c.IsProperSubtype(a, d),
						fmt.Sprintf("%s <: %s and %s <: %s but not %s <: %s", a, b, b, d, a, d))
				}
			}
		}
	}
}
