package fixture

import (
	"testing"

	"github.com/pyrite-lang/pyrite/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFixture(t *testing.T) {
	suite, err := Load("testdata/smoke.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, suite.Queries)

	for _, res := range suite.Run() {
		assert.NoError(t, res.Err, "query %+v", res.Query)
		assert.True(t, res.Pass, "query %+v got %s, want %s", res.Query, res.Got, res.Query.Expect)
	}
}

func TestParseType(t *testing.T) {
	env := NewEnv()
	c := types.NewChecker(env.Hier)
	intT, strT := env.Hier.Inst("int"), env.Hier.Inst("str")

	testCases := []struct {
		name string
		src  string
		want types.Type
	}{
		{name: "plain class", src: "int", want: intT},
		{name: "None", src: "None", want: types.NoneType{}},
		{name: "Any", src: "Any", want: types.AnyType{}},
		{name: "Never", src: "Never", want: types.NeverType{}},
		{name: "NoReturn is Never", src: "NoReturn", want: types.NeverType{}},
		{name: "generic instance", src: "dict[str, int]", want: env.Hier.Inst("dict", strT, intT)},
		{name: "union", src: "Union[int, str]", want: types.NewUnion(intT, strT)},
		{name: "optional", src: "Optional[int]", want: types.NewUnion(intT, types.NoneType{})},
		{name: "fixed tuple", src: "Tuple[int, str]", want: &types.TupleType{Items: []types.Type{intT, strT}}},
		{name: "empty tuple", src: "Tuple[()]", want: &types.TupleType{}},
		{
			name: "homogeneous tuple shorthand",
			src:  "Tuple[int, ...]",
			want: &types.TupleType{Items: []types.Type{&types.UnpackType{Inner: env.Hier.Inst("tuple", intT)}}},
		},
		{name: "bare tuple class", src: "tuple", want: env.Hier.Inst("tuple")},
		{
			name: "callable",
			src:  "Callable[[int, str], bool]",
			want: &types.CallableType{
				Params: []types.Param{
					{Kind: types.PosOnly, Typ: intT},
					{Kind: types.PosOnly, Typ: strT},
				},
				Ret: env.Hier.Inst("bool"),
			},
		},
		{name: "gradual callable", src: "Callable[..., int]", want: &types.CallableType{Ret: intT, IsEllipsis: true}},
		{name: "nullary callable", src: "Callable[[], str]", want: &types.CallableType{Ret: strT}},
		{name: "int literal", src: "Literal[1]", want: &types.LiteralType{Value: types.IntLit(1), Fallback: intT}},
		{name: "negative int literal", src: "Literal[-3]", want: &types.LiteralType{Value: types.IntLit(-3), Fallback: intT}},
		{
			name: "string literal in either quote style",
			src:  `Literal['on']`,
			want: &types.LiteralType{Value: types.StrLit("on"), Fallback: strT},
		},
		{
			name: "multi-value literal is a union",
			src:  "Literal[True, False]",
			want: types.NewUnion(
				&types.LiteralType{Value: types.BoolLit(true), Fallback: env.Hier.Inst("bool")},
				&types.LiteralType{Value: types.BoolLit(false), Fallback: env.Hier.Inst("bool")},
			),
		},
		{name: "whitespace is insignificant", src: "  dict[ str , int ]  ", want: env.Hier.Inst("dict", strT, intT)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := env.ParseType(tc.src)
			require.NoError(t, err)
			assert.True(t, c.TypesEquivalent(got, tc.want), "parsed %q to %s, want %s", tc.src, got, tc.want)
		})
	}
}

func TestParseTypeErrors(t *testing.T) {
	env := NewEnv()

	for _, src := range []string{
		"",
		"NotAClass",
		"Union[int",
		"Optional[int, str]",
		"Callable[int, str]",
		"Literal[maybe]",
		"int]",
		"...",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := env.ParseType(src)
			assert.Error(t, err)
		})
	}
}

func TestBuildRejectsBadDeclarations(t *testing.T) {
	testCases := []struct {
		name string
		file File
	}{
		{
			name: "unknown base class",
			file: File{Classes: []ClassDecl{{Name: "A", Bases: []string{"Missing"}}}},
		},
		{
			name: "base that is not a class",
			file: File{Classes: []ClassDecl{{Name: "A", Bases: []string{"None"}}}},
		},
		{
			name: "unknown type parameter",
			file: File{Classes: []ClassDecl{{Name: "A", Params: []string{"T"}}}},
		},
		{
			name: "unknown typevar kind",
			file: File{TypeVars: []TypeVarDecl{{Name: "T", Kind: "weird"}}},
		},
		{
			name: "unknown variance",
			file: File{TypeVars: []TypeVarDecl{{Name: "T", Variance: "sideways"}}},
		},
		{
			name: "promotion to an unknown class",
			file: File{Classes: []ClassDecl{{Name: "A", Promotes: []string{"Missing"}}}},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(&tc.file)
			assert.Error(t, err)
		})
	}
}

func TestFixtureDeclaredProtocolAndVariance(t *testing.T) {
	file := File{
		TypeVars: []TypeVarDecl{
			{Name: "T", Variance: "contravariant"},
		},
		Classes: []ClassDecl{
			{Name: "Consumer", Params: []string{"T"}},
			{Name: "Greets", Protocol: true, Members: []MemberDecl{
				{Name: "greet", Type: "Callable[[], str]", ReadOnly: true},
			}},
		},
	}
	suite, err := Build(&file)
	require.NoError(t, err)

	consumer, ok := suite.Env.Hier.Class("Consumer")
	require.True(t, ok)
	require.Len(t, consumer.TypeParams, 1)
	assert.Equal(t, types.Contravariant, consumer.TypeParams[0].Variance)

	greets, ok := suite.Env.Hier.Class("Greets")
	require.True(t, ok)
	assert.True(t, greets.IsProtocol)
	member, ok := greets.Members["greet"]
	require.True(t, ok)
	assert.True(t, member.ReadOnly)
}
