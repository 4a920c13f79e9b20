package types

import (
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/pyrite-lang/pyrite/internal/log"
	"github.com/pyrite-lang/pyrite/util"
)

var logger = log.DefaultLogger.With("section", "types")

// TypeVarID is the opaque identity of a declared type parameter. Two type
// variables are the same variable iff their IDs match; display names carry
// no identity whatsoever (the same name in two scopes gets two IDs).
type TypeVarID int

// Variance of a declared type parameter.
type Variance int

const (
	Invariant Variance = iota
	Covariant
	Contravariant
)

func (v Variance) String() string {
	switch v {
	case Covariant:
		return "covariant"
	case Contravariant:
		return "contravariant"
	default:
		return "invariant"
	}
}

// AnySource records where a gradual Any came from. It affects diagnostics
// only, never compatibility.
type AnySource int

const (
	AnyExplicit AnySource = iota
	AnyFromError
	AnyUnimported
)

// ParamKind is the calling-convention slot of a formal parameter.
type ParamKind int

const (
	PosOnly ParamKind = iota
	PosOrKeyword
	KeywordOnly
	StarArgs
	StarStarKwargs
)

// Type is the closed sum every engine dispatches over. All implementations
// are immutable value objects: derived types are always newly allocated.
//
// Hash is a structural hash used for memo keys and cheap equivalence; it is
// guaranteed to terminate on recursive types because AliasType hashes its
// definition identity rather than its expansion.
type Type interface {
	fmt.Stringer
	Hash() uint64
	children() iter.Seq[Type]
	mapChildren(f func(Type) Type) Type
}

var emptySeqType iter.Seq[Type] = func(func(Type) bool) {}

var (
	_ Type = AnyType{}
	_ Type = NoneType{}
	_ Type = NeverType{}
	_ Type = (*Instance)(nil)
	_ Type = (*UnionType)(nil)
	_ Type = (*TupleType)(nil)
	_ Type = (*UnpackType)(nil)
	_ Type = (*CallableType)(nil)
	_ Type = (*Overloaded)(nil)
	_ Type = (*TypeVarType)(nil)
	_ Type = (*ParamSpecType)(nil)
	_ Type = (*TypeVarTupleType)(nil)
	_ Type = (*LiteralType)(nil)
	_ Type = (*TypedDictType)(nil)
	_ Type = (*AliasType)(nil)
)

// AnyType is the gradual escape hatch: compatible with everything in both
// directions.
type AnyType struct {
	Source AnySource
}

func (AnyType) String() string                      { return "Any" }
func (AnyType) Hash() uint64                        { return 16777619 }
func (AnyType) children() iter.Seq[Type]            { return emptySeqType }
func (t AnyType) mapChildren(func(Type) Type) Type { return t }

// NoneType is the type of the absent value. It behaves like a final class
// with exactly one inhabitant.
type NoneType struct{}

func (NoneType) String() string                     { return "None" }
func (NoneType) Hash() uint64                       { return 1099511628211 }
func (NoneType) children() iter.Seq[Type]           { return emptySeqType }
func (t NoneType) mapChildren(func(Type) Type) Type { return t }

// NeverType is the bottom: no value inhabits it. Meets of disjoint types
// produce it, and it is a subtype of everything.
type NeverType struct{}

func (NeverType) String() string                     { return "Never" }
func (NeverType) Hash() uint64                       { return 14695981039346656037 }
func (NeverType) children() iter.Seq[Type]           { return emptySeqType }
func (t NeverType) mapChildren(func(Type) Type) Type { return t }

// Instance is a nominal class reference with its type arguments. Erased
// marks the any-arity placeholder used when arguments are not known yet;
// an erased Instance compares compatibly at any argument list.
type Instance struct {
	Class  *ClassInfo
	Args   []Type
	Erased bool
}

func (t *Instance) String() string {
	if len(t.Args) == 0 {
		return t.Class.Name
	}
	return fmt.Sprintf("%s[%s]", t.Class.Name, util.JoinString(t.Args, ", "))
}

func (t *Instance) Hash() uint64 {
	h := uint64(31)
	for _, c := range t.Class.Name {
		h = h*31 + uint64(c)
	}
	for _, arg := range t.Args {
		h = h*37 + arg.Hash()
	}
	if t.Erased {
		h = h*41 + 1
	}
	return h
}

func (t *Instance) children() iter.Seq[Type] { return util.SliceIter(t.Args) }

func (t *Instance) mapChildren(f func(Type) Type) Type {
	if len(t.Args) == 0 {
		return t
	}
	return &Instance{Class: t.Class, Args: util.MapSlice(t.Args, f), Erased: t.Erased}
}

// UnionType is an unordered set of alternatives. Construction goes through
// NewUnion, which flattens nested unions; checker-level construction
// (Checker.UnionOf) additionally drops members subsumed by another member.
type UnionType struct {
	Items []Type
}

// NewUnion flattens nested unions and collapses the degenerate cases. It
// performs no subtyping-based simplification; use Checker.UnionOf for that.
func NewUnion(items ...Type) Type {
	var flat []Type
	for _, item := range items {
		if u, ok := item.(*UnionType); ok {
			flat = append(flat, u.Items...)
		} else {
			flat = append(flat, item)
		}
	}
	// drop structural duplicates
	var dedup []Type
	seen := util.NewEmptySet[uint64]()
	for _, item := range flat {
		if seen.Contains(item.Hash()) {
			continue
		}
		seen.Add(item.Hash())
		dedup = append(dedup, item)
	}
	switch len(dedup) {
	case 0:
		return NeverType{}
	case 1:
		return dedup[0]
	}
	return &UnionType{Items: dedup}
}

func (t *UnionType) String() string {
	return fmt.Sprintf("Union[%s]", util.JoinString(t.Items, ", "))
}

func (t *UnionType) Hash() uint64 {
	// order-insensitive: members are an unordered set
	h := uint64(53)
	for _, item := range t.Items {
		h ^= item.Hash() * 31
	}
	return h
}

func (t *UnionType) children() iter.Seq[Type] { return util.SliceIter(t.Items) }

func (t *UnionType) mapChildren(f func(Type) Type) Type {
	return NewUnion(util.MapSlice(t.Items, f)...)
}

// TupleType is a fixed-length sequence of item types, unless one item is an
// UnpackType standing for a variable-length middle segment. Fallback is the
// generic container Instance the tuple presents for nominal and protocol
// purposes.
type TupleType struct {
	Items    []Type
	Fallback *Instance
}

func (t *TupleType) String() string {
	if len(t.Items) == 0 {
		return "Tuple[()]"
	}
	return fmt.Sprintf("Tuple[%s]", util.JoinString(t.Items, ", "))
}

func (t *TupleType) Hash() uint64 {
	h := uint64(59)
	for _, item := range t.Items {
		h = h*31 + item.Hash()
	}
	return h
}

func (t *TupleType) children() iter.Seq[Type] { return util.SliceIter(t.Items) }

func (t *TupleType) mapChildren(f func(Type) Type) Type {
	return &TupleType{Items: util.MapSlice(t.Items, f), Fallback: t.Fallback}
}

// unpackIndex returns the position of the single unpack item, or -1 for a
// fixed-length tuple.
func (t *TupleType) unpackIndex() int {
	for i, item := range t.Items {
		if _, ok := item.(*UnpackType); ok {
			return i
		}
	}
	return -1
}

// UnpackType marks a variable-length segment inside a TupleType or a
// *args parameter. Inner is either an Instance of the homogeneous tuple
// class (one argument: the element type), a TypeVarTupleType, or another
// TupleType.
type UnpackType struct {
	Inner Type
}

func (t *UnpackType) String() string            { return "Unpack[" + t.Inner.String() + "]" }
func (t *UnpackType) Hash() uint64              { return t.Inner.Hash() * 61 }
func (t *UnpackType) children() iter.Seq[Type]  { return util.SingleIter(t.Inner) }
func (t *UnpackType) mapChildren(f func(Type) Type) Type {
	return &UnpackType{Inner: f(t.Inner)}
}

// Param is one formal parameter of a CallableType.
type Param struct {
	Name       string
	Kind       ParamKind
	Typ        Type
	HasDefault bool
}

func (p Param) String() string {
	prefix := ""
	switch p.Kind {
	case StarArgs:
		prefix = "*"
	case StarStarKwargs:
		prefix = "**"
	}
	s := prefix + p.Name + ": " + p.Typ.String()
	if p.HasDefault {
		s += " = ..."
	}
	return s
}

// required reports whether a call must supply this parameter.
func (p Param) required() bool {
	return !p.HasDefault && p.Kind != StarArgs && p.Kind != StarStarKwargs
}

// CallableType is a function signature: ordered formals, a return type,
// and the signature's own generic parameters (distinct from any enclosing
// scope's). A ParamSpecTail means "plus whatever parameter list P stands
// for"; IsEllipsis marks the gradual Callable[..., R] whose parameters are
// compatible with anything.
type CallableType struct {
	Name          string
	Params        []Param
	Ret           Type
	TypeParams    []Type
	ParamSpecTail *ParamSpecType
	IsEllipsis    bool
}

func (t *CallableType) String() string {
	sb := strings.Builder{}
	sb.WriteString("def ")
	if t.Name != "" {
		sb.WriteString(t.Name)
	}
	sb.WriteString("(")
	if t.IsEllipsis {
		sb.WriteString("...")
	}
	for i, p := range t.Params {
		if i > 0 || t.IsEllipsis {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
	}
	if t.ParamSpecTail != nil {
		if len(t.Params) > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("**" + t.ParamSpecTail.Name)
	}
	sb.WriteString(") -> ")
	sb.WriteString(t.Ret.String())
	return sb.String()
}

func (t *CallableType) Hash() uint64 {
	h := uint64(67)
	for _, p := range t.Params {
		h = h*31 + p.Typ.Hash() + uint64(p.Kind)*7
		if p.HasDefault {
			h = h*41 + 1
		}
		if p.Kind == KeywordOnly || p.Kind == PosOrKeyword {
			for _, c := range p.Name {
				h = h*31 + uint64(c)
			}
		}
	}
	h = h*71 + t.Ret.Hash()
	if t.IsEllipsis {
		h = h*73 + 1
	}
	if t.ParamSpecTail != nil {
		h = h*79 + uint64(t.ParamSpecTail.ID)
	}
	return h
}

func (t *CallableType) children() iter.Seq[Type] {
	return func(yield func(Type) bool) {
		for _, p := range t.Params {
			if !yield(p.Typ) {
				return
			}
		}
		yield(t.Ret)
	}
}

func (t *CallableType) mapChildren(f func(Type) Type) Type {
	params := make([]Param, len(t.Params))
	for i, p := range t.Params {
		p.Typ = f(p.Typ)
		params[i] = p
	}
	return &CallableType{
		Name:          t.Name,
		Params:        params,
		Ret:           f(t.Ret),
		TypeParams:    t.TypeParams,
		ParamSpecTail: t.ParamSpecTail,
		IsEllipsis:    t.IsEllipsis,
	}
}

// Overloaded is an ordered list of callable alternatives sharing one name.
type Overloaded struct {
	Alts []*CallableType
}

func (t *Overloaded) String() string {
	alts := make([]string, len(t.Alts))
	for i, alt := range t.Alts {
		alts[i] = alt.String()
	}
	return "Overload[" + strings.Join(alts, "; ") + "]"
}

func (t *Overloaded) Hash() uint64 {
	h := uint64(83)
	for _, alt := range t.Alts {
		h = h*31 + alt.Hash()
	}
	return h
}

func (t *Overloaded) children() iter.Seq[Type] {
	return func(yield func(Type) bool) {
		for _, alt := range t.Alts {
			if !yield(alt) {
				return
			}
		}
	}
}

func (t *Overloaded) mapChildren(f func(Type) Type) Type {
	alts := make([]*CallableType, len(t.Alts))
	for i, alt := range t.Alts {
		if mapped, ok := f(alt).(*CallableType); ok {
			alts[i] = mapped
		} else {
			alts[i] = alt
		}
	}
	return &Overloaded{Alts: alts}
}

// TypeVarType is a reference to a declared type parameter. Bound and Values
// are mutually exclusive; Default may be nil. Identity is ID alone.
type TypeVarType struct {
	ID       TypeVarID
	Name     string
	Bound    Type
	Values   []Type
	Default  Type
	Variance Variance
}

func (t *TypeVarType) String() string { return t.Name + "`" + strconv.Itoa(int(t.ID)) }
func (t *TypeVarType) Hash() uint64   { return uint64(t.ID)*2654435761 + 89 }
func (t *TypeVarType) children() iter.Seq[Type] { return emptySeqType }
func (t *TypeVarType) mapChildren(func(Type) Type) Type { return t }

// ParamSpecType stands for an entire parameter list.
type ParamSpecType struct {
	ID      TypeVarID
	Name    string
	Default []Param
}

func (t *ParamSpecType) String() string { return t.Name + "`" + strconv.Itoa(int(t.ID)) }
func (t *ParamSpecType) Hash() uint64   { return uint64(t.ID)*2654435761 + 97 }
func (t *ParamSpecType) children() iter.Seq[Type] { return emptySeqType }
func (t *ParamSpecType) mapChildren(func(Type) Type) Type { return t }

// TypeVarTupleType stands for an ordered sequence of zero or more types.
type TypeVarTupleType struct {
	ID      TypeVarID
	Name    string
	Default Type
}

func (t *TypeVarTupleType) String() string { return "*" + t.Name + "`" + strconv.Itoa(int(t.ID)) }
func (t *TypeVarTupleType) Hash() uint64   { return uint64(t.ID)*2654435761 + 101 }
func (t *TypeVarTupleType) children() iter.Seq[Type] { return emptySeqType }
func (t *TypeVarTupleType) mapChildren(func(Type) Type) Type { return t }

// LitKind discriminates LitValue.
type LitKind int

const (
	LitInt LitKind = iota
	LitString
	LitBool
)

// LitValue is the payload of a LiteralType.
type LitValue struct {
	Kind LitKind
	Int  int64
	Str  string
	Bool bool
}

func (v LitValue) String() string {
	switch v.Kind {
	case LitInt:
		return strconv.FormatInt(v.Int, 10)
	case LitBool:
		if v.Bool {
			return "True"
		}
		return "False"
	default:
		return strconv.Quote(v.Str)
	}
}

// encode yields a total-ordering key, used for finite value-set operations.
func (v LitValue) encode() string {
	switch v.Kind {
	case LitInt:
		return "i:" + strconv.FormatInt(v.Int, 10)
	case LitBool:
		return "b:" + strconv.FormatBool(v.Bool)
	default:
		return "s:" + v.Str
	}
}

func IntLit(i int64) LitValue  { return LitValue{Kind: LitInt, Int: i} }
func StrLit(s string) LitValue { return LitValue{Kind: LitString, Str: s} }
func BoolLit(b bool) LitValue  { return LitValue{Kind: LitBool, Bool: b} }

// LiteralType is a single runtime value viewed as a type; Fallback is the
// Instance it is a value of.
type LiteralType struct {
	Value    LitValue
	Fallback *Instance
}

func (t *LiteralType) String() string { return "Literal[" + t.Value.String() + "]" }

func (t *LiteralType) Hash() uint64 {
	h := uint64(103)
	for _, c := range t.Value.encode() {
		h = h*31 + uint64(c)
	}
	return h
}

func (t *LiteralType) children() iter.Seq[Type] { return emptySeqType }
func (t *LiteralType) mapChildren(func(Type) Type) Type { return t }

// TDField is one item of a TypedDictType.
type TDField struct {
	Name     string
	Typ      Type
	Required bool
	ReadOnly bool
}

// TypedDictType is a structural dict-with-known-keys type.
type TypedDictType struct {
	Fields   []TDField
	Fallback *Instance
}

func (t *TypedDictType) field(name string) (TDField, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return TDField{}, false
}

func (t *TypedDictType) String() string {
	sb := strings.Builder{}
	sb.WriteString("TypedDict({")
	for i, f := range t.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Quote(f.Name) + ": " + f.Typ.String())
	}
	sb.WriteString("})")
	return sb.String()
}

func (t *TypedDictType) Hash() uint64 {
	h := uint64(107)
	for _, f := range t.Fields {
		for _, c := range f.Name {
			h = h*31 + uint64(c)
		}
		h = h*37 + f.Typ.Hash()
		if f.Required {
			h = h*41 + 1
		}
		if f.ReadOnly {
			h = h*43 + 1
		}
	}
	return h
}

func (t *TypedDictType) children() iter.Seq[Type] {
	return func(yield func(Type) bool) {
		for _, f := range t.Fields {
			if !yield(f.Typ) {
				return
			}
		}
	}
}

func (t *TypedDictType) mapChildren(f func(Type) Type) Type {
	fields := make([]TDField, len(t.Fields))
	for i, fld := range t.Fields {
		fld.Typ = f(fld.Typ)
		fields[i] = fld
	}
	return &TypedDictType{Fields: fields, Fallback: t.Fallback}
}

// AliasDef is a (possibly generic, possibly recursive) type alias
// declaration. Target may refer back to the definition through another
// AliasType, which is why expansion is lazy: engines unwrap one level at a
// time behind identity-keyed guards.
type AliasDef struct {
	Name       string
	TypeParams []*TypeVarType
	Target     Type
}

// AliasType is a reference to an AliasDef with concrete arguments.
type AliasType struct {
	Def  *AliasDef
	Args []Type
}

func (t *AliasType) String() string {
	if len(t.Args) == 0 {
		return t.Def.Name
	}
	return fmt.Sprintf("%s[%s]", t.Def.Name, util.JoinString(t.Args, ", "))
}

func (t *AliasType) Hash() uint64 {
	// hash the definition identity, never the expansion: this is what keeps
	// Hash total on recursive aliases
	h := uint64(109)
	for _, c := range t.Def.Name {
		h = h*31 + uint64(c)
	}
	for _, arg := range t.Args {
		h = h*37 + arg.Hash()
	}
	return h
}

func (t *AliasType) children() iter.Seq[Type] { return util.SliceIter(t.Args) }

func (t *AliasType) mapChildren(f func(Type) Type) Type {
	return &AliasType{Def: t.Def, Args: util.MapSlice(t.Args, f)}
}

// typePair is an in-progress (left, right) query, used as the key of the
// assumption sets that guard every recursive traversal.
type typePair struct {
	l, r Type
}

func (p *typePair) Hash() uint64 {
	return 31*p.l.Hash() ^ p.r.Hash()
}
