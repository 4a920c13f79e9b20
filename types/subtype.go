package types

import (
	set "github.com/hashicorp/go-set/v3"
)

const (
	defaultStartingFuel = 10000
	defaultDepthLimit   = 250
)

// subtypeQuery holds the state of a single IsSubtype call: the mode, the
// fuel and depth budget, and the set of in-progress (left, right) pairs
// assumed true while their own comparison is underway. The set is owned by
// the query, never shared, which keeps the engine referentially
// transparent.
type subtypeQuery struct {
	c           *Checker
	mode        SubtypeMode
	assumptions *set.HashSet[*typePair, uint64]
	fuel        int
	depth       int
}

// IsSubtype reports whether left is usable wherever right is expected,
// under the given mode. Malformed combinations never fail loudly: they
// fall through to false.
func (c *Checker) IsSubtype(left, right Type, mode SubtypeMode) bool {
	q := &subtypeQuery{
		c:           c,
		mode:        mode,
		assumptions: set.NewHashSet[*typePair, uint64](0),
		fuel:        defaultStartingFuel,
	}
	return q.rec(left, right)
}

func (q *subtypeQuery) rec(l, r Type) bool {
	q.fuel--
	q.depth++
	defer func() { q.depth-- }()
	if q.fuel <= 0 || q.depth > defaultDepthLimit {
		q.c.reportRecursive(l)
		return false
	}

	l, r = q.c.resolve(l), q.c.resolve(r)

	// Any absorbs all checks, in every mode, before any structural logic
	if _, ok := l.(AnyType); ok {
		return true
	}
	if _, ok := r.(AnyType); ok {
		return true
	}
	// bottom is a subtype of everything
	if _, ok := l.(NeverType); ok {
		return true
	}
	if l.Hash() == r.Hash() {
		return true
	}
	if lv, ok := l.(*TypeVarType); ok {
		if rv, ok := r.(*TypeVarType); ok && lv.ID == rv.ID {
			return true
		}
	}

	pair := &typePair{l, r}
	if q.assumptions.Contains(pair) {
		// coinduction: while (l, r) is being established, nested
		// occurrences of the same pair hold by assumption
		return true
	}
	key := negKey{l: l.Hash(), r: r.Hash(), mode: q.mode}
	if _, failed := q.c.negCache[key]; failed {
		return false
	}

	q.assumptions.Insert(pair)
	res := q.dispatch(l, r)
	q.assumptions.Remove(pair)

	if !res {
		// only failures are safe to memoize across queries: a success may
		// lean on assumptions local to this call
		q.c.negCache[key] = struct{}{}
	}
	return res
}

func (q *subtypeQuery) dispatch(l, r Type) bool {
	// a union on the left must be covered member by member
	if lu, ok := l.(*UnionType); ok {
		for _, item := range lu.Items {
			if !q.rec(item, r) {
				return false
			}
		}
		return true
	}
	// a union on the right needs just one member to admit l
	if ru, ok := r.(*UnionType); ok {
		for _, item := range ru.Items {
			if q.rec(l, item) {
				return true
			}
		}
		// a type variable may still fit through its bound as a whole
		if lv, ok := l.(*TypeVarType); ok {
			return q.rec(q.typeVarProxy(lv), r)
		}
		return false
	}
	// an unresolved variable on the left is known only through its bound
	// (or the union of its value restriction)
	if lv, ok := l.(*TypeVarType); ok {
		return q.rec(q.typeVarProxy(lv), r)
	}

	switch r := r.(type) {
	case NoneType:
		if li, ok := l.(*Instance); ok && li.Class.Name == "NoneType" {
			return true
		}
		return false
	case NeverType:
		return false
	case *TypeVarType:
		// distinct identity: nothing is known to flow into it
		return false
	case *ParamSpecType, *TypeVarTupleType, *UnpackType:
		return false
	case *Instance:
		return q.instanceTarget(l, r)
	case *CallableType:
		return q.callableTarget(l, r)
	case *Overloaded:
		for _, alt := range r.Alts {
			if !q.rec(l, alt) {
				return false
			}
		}
		return true
	case *TupleType:
		return q.tupleTarget(l, r)
	case *TypedDictType:
		return q.typedDictTarget(l, r)
	case *LiteralType:
		ll, ok := l.(*LiteralType)
		return ok && ll.Value == r.Value && q.rec(ll.Fallback, r.Fallback)
	}
	return false
}

// typeVarProxy is the most precise type an unresolved variable is known to
// be a subtype of.
func (q *subtypeQuery) typeVarProxy(tv *TypeVarType) Type {
	if len(tv.Values) > 0 {
		return NewUnion(tv.Values...)
	}
	if tv.Bound != nil {
		return tv.Bound
	}
	return q.c.hier.Object()
}

func (q *subtypeQuery) instanceTarget(l Type, r *Instance) bool {
	if r.Class == q.c.hier.Object().Class {
		return true
	}
	switch l := l.(type) {
	case *Instance:
		return q.instanceInstance(l, r)
	case NoneType:
		if r.Class.Name == "NoneType" {
			return true
		}
		if r.Class.IsProtocol || q.mode == ModeStructural {
			return q.structural(l, r)
		}
		return false
	case *TupleType:
		return q.instanceTarget(q.c.hier.TupleFallback(l), r)
	case *LiteralType:
		return q.rec(l.Fallback, r)
	case *CallableType, *Overloaded:
		if r.Class.IsProtocol || q.mode == ModeStructural {
			return q.structural(l, r)
		}
		return q.rec(q.c.hier.FunctionFallback(), r)
	case *TypedDictType:
		if l.Fallback != nil {
			return q.rec(l.Fallback, r)
		}
		return false
	}
	return false
}

func (q *subtypeQuery) instanceInstance(l, r *Instance) bool {
	if mapped, ok := q.c.hier.SupertypeOf(l, r.Class); ok {
		if q.argsCompatible(mapped, r) {
			return true
		}
		// nominal match with bad arguments can still be saved structurally
		if r.Class.IsProtocol {
			return q.structural(l, r)
		}
		return false
	}
	// the promotion table allows some non-inheriting pairs outside strict
	// mode: bool/int/float/complex, bytearray/bytes
	if q.mode != ModeProper {
		for _, cls := range l.Class.MRO {
			for _, promoted := range cls.Promotions {
				if q.rec(&Instance{Class: promoted}, r) {
					return true
				}
			}
		}
	}
	if r.Class.IsProtocol || q.mode == ModeStructural {
		return q.structural(l, r)
	}
	return false
}

// argsCompatible compares type arguments of two instances of the same
// class under the variance declared on each parameter.
func (q *subtypeQuery) argsCompatible(l, r *Instance) bool {
	if l.Erased || r.Erased {
		return true
	}
	if len(r.Args) == 0 {
		return true
	}
	params := r.Class.TypeParams
	for i, ra := range r.Args {
		var la Type = AnyType{Source: AnyFromError}
		if i < len(l.Args) {
			la = l.Args[i]
		}
		variance := Invariant
		if i < len(params) {
			variance = params[i].Variance
		}
		switch variance {
		case Covariant:
			if !q.rec(la, ra) {
				return false
			}
		case Contravariant:
			if !q.rec(ra, la) {
				return false
			}
		default:
			if !q.rec(la, ra) || !q.rec(ra, la) {
				return false
			}
		}
	}
	return true
}

// structural decides protocol satisfaction: every member the protocol
// declares must be present on l with a compatible type. The (l, r) pair is
// already in the assumption set when we get here, which is what keeps
// mutually referential protocols from diverging.
func (q *subtypeQuery) structural(l Type, r *Instance) bool {
	for _, cls := range r.Class.MRO {
		if cls == q.c.hier.Object().Class {
			continue
		}
		for name := range cls.Members {
			want, ok := q.c.hier.MemberOf(r, name)
			if !ok {
				continue
			}
			have, ok := q.c.hier.MemberOf(l, name)
			if !ok {
				return false
			}
			if want.ReadOnly {
				if !q.rec(have.Typ, want.Typ) {
					return false
				}
			} else if !q.rec(have.Typ, want.Typ) || !q.rec(want.Typ, have.Typ) {
				return false
			}
		}
	}
	return true
}

func (q *subtypeQuery) callableTarget(l Type, r *CallableType) bool {
	switch l := l.(type) {
	case *CallableType:
		return q.callableCallable(l, r)
	case *Overloaded:
		if q.mode == ModeProper {
			// strict: every alternative must conform
			for _, alt := range l.Alts {
				if !q.callableCallable(alt, r) {
					return false
				}
			}
			return true
		}
		for _, alt := range l.Alts {
			if q.callableCallable(alt, r) {
				return true
			}
		}
		return false
	case *Instance:
		if member, ok := q.c.hier.MemberOf(l, "__call__"); ok {
			return q.rec(member.Typ, r)
		}
		return false
	}
	return false
}

// callableCallable: parameter lists compare contravariantly and the return
// type covariantly. Kind and arity mismatches fail before any parameter
// type is compared.
func (q *subtypeQuery) callableCallable(l, r *CallableType) bool {
	if !q.rec(l.Ret, r.Ret) {
		return false
	}
	if l.IsEllipsis || r.IsEllipsis {
		return true
	}
	if l.ParamSpecTail != nil || r.ParamSpecTail != nil {
		if l.ParamSpecTail == nil || r.ParamSpecTail == nil {
			return false
		}
		if l.ParamSpecTail.ID != r.ParamSpecTail.ID {
			return false
		}
	}
	return q.formalsAcceptable(l, r)
}

// formalsAcceptable checks that every call shape valid against r is valid
// against l, and that the matched parameter types compare contravariantly.
func (q *subtypeQuery) formalsAcceptable(l, r *CallableType) bool {
	var lPositional []Param
	var lStar, lStarStar *Param
	lByName := map[string]Param{}
	for _, p := range l.Params {
		switch p.Kind {
		case PosOnly:
			lPositional = append(lPositional, p)
		case PosOrKeyword:
			lPositional = append(lPositional, p)
			lByName[p.Name] = p
		case KeywordOnly:
			lByName[p.Name] = p
		case StarArgs:
			p := p
			lStar = &p
		case StarStarKwargs:
			p := p
			lStarStar = &p
		}
	}

	posIdx := 0
	consumed := map[string]struct{}{}
	for _, rp := range r.Params {
		switch rp.Kind {
		case PosOnly, PosOrKeyword:
			var lp Param
			if posIdx < len(lPositional) {
				lp = lPositional[posIdx]
				posIdx++
			} else if lStar != nil {
				lp = *lStar
			} else {
				return false
			}
			if rp.Kind == PosOrKeyword {
				// callers of r may pass this by name; l must accept that
				if lp.Kind == PosOnly {
					return false
				}
				if lp.Kind == PosOrKeyword && lp.Name != rp.Name {
					return false
				}
			}
			if rp.HasDefault && lp.required() {
				return false
			}
			if lp.Kind != StarArgs {
				consumed[lp.Name] = struct{}{}
			}
			if !q.rec(rp.Typ, lp.Typ) {
				return false
			}
		case KeywordOnly:
			lp, ok := lByName[rp.Name]
			if !ok {
				if lStarStar == nil {
					return false
				}
				lp = *lStarStar
			} else {
				consumed[lp.Name] = struct{}{}
			}
			if rp.HasDefault && lp.required() {
				return false
			}
			if !q.rec(rp.Typ, lp.Typ) {
				return false
			}
		case StarArgs:
			if lStar == nil {
				return false
			}
			if !q.rec(rp.Typ, lStar.Typ) {
				return false
			}
		case StarStarKwargs:
			if lStarStar == nil {
				return false
			}
			if !q.rec(rp.Typ, lStarStar.Typ) {
				return false
			}
		}
	}
	// l must not require anything r never supplies
	for i, lp := range lPositional {
		if i >= posIdx && lp.required() {
			return false
		}
	}
	for name, lp := range lByName {
		if _, ok := consumed[name]; ok {
			continue
		}
		if lp.Kind == KeywordOnly && lp.required() {
			return false
		}
	}
	return true
}

func (q *subtypeQuery) tupleTarget(l Type, r *TupleType) bool {
	lt, ok := l.(*TupleType)
	if !ok {
		// a homogeneous tuple instance is the variable-length tuple
		if li, isInst := l.(*Instance); isInst && li.Class.Name == "tuple" && len(li.Args) == 1 {
			lt = &TupleType{Items: []Type{&UnpackType{Inner: li}}}
		} else {
			return false
		}
	}
	lUn, rUn := lt.unpackIndex(), r.unpackIndex()

	switch {
	case lUn == -1 && rUn == -1:
		if len(lt.Items) != len(r.Items) {
			return false
		}
		for i, item := range lt.Items {
			if !q.rec(item, r.Items[i]) {
				return false
			}
		}
		return true

	case lUn == -1 && rUn >= 0:
		prefix, suffix := r.Items[:rUn], r.Items[rUn+1:]
		// length compatibility precedes any item comparison
		if len(lt.Items) < len(prefix)+len(suffix) {
			return false
		}
		for i, want := range prefix {
			if !q.rec(lt.Items[i], want) {
				return false
			}
		}
		for i, want := range suffix {
			if !q.rec(lt.Items[len(lt.Items)-len(suffix)+i], want) {
				return false
			}
		}
		middle := lt.Items[len(prefix) : len(lt.Items)-len(suffix)]
		return q.middleAccepted(middle, r.Items[rUn].(*UnpackType))

	case lUn >= 0 && rUn >= 0:
		lPrefix, lSuffix := lt.Items[:lUn], lt.Items[lUn+1:]
		rPrefix, rSuffix := r.Items[:rUn], r.Items[rUn+1:]
		if len(lPrefix) != len(rPrefix) || len(lSuffix) != len(rSuffix) {
			return false
		}
		for i := range rPrefix {
			if !q.rec(lPrefix[i], rPrefix[i]) {
				return false
			}
		}
		for i := range rSuffix {
			if !q.rec(lSuffix[i], rSuffix[i]) {
				return false
			}
		}
		return q.unpackAccepted(lt.Items[lUn].(*UnpackType), r.Items[rUn].(*UnpackType))

	default:
		// variable-length left against fixed-length right can always
		// mismatch on length
		return false
	}
}

// middleAccepted checks a fixed middle segment against the unpack item of
// the target tuple.
func (q *subtypeQuery) middleAccepted(middle []Type, target *UnpackType) bool {
	switch inner := q.c.resolve(target.Inner).(type) {
	case *Instance:
		if len(inner.Args) != 1 {
			return false
		}
		for _, item := range middle {
			if !q.rec(item, inner.Args[0]) {
				return false
			}
		}
		return true
	case *TupleType:
		if len(middle) != len(inner.Items) {
			return false
		}
		for i, item := range middle {
			if !q.rec(item, inner.Items[i]) {
				return false
			}
		}
		return true
	case AnyType:
		return true
	default:
		// an unresolved TypeVarTuple admits nothing concrete
		return false
	}
}

func (q *subtypeQuery) unpackAccepted(l, r *UnpackType) bool {
	li, ri := q.c.resolve(l.Inner), q.c.resolve(r.Inner)
	if ltv, ok := li.(*TypeVarTupleType); ok {
		rtv, ok := ri.(*TypeVarTupleType)
		return ok && ltv.ID == rtv.ID
	}
	lInst, lOk := li.(*Instance)
	rInst, rOk := ri.(*Instance)
	if lOk && rOk && len(lInst.Args) == 1 && len(rInst.Args) == 1 {
		return q.rec(lInst.Args[0], rInst.Args[0])
	}
	if _, ok := ri.(AnyType); ok {
		return true
	}
	return false
}

func (q *subtypeQuery) typedDictTarget(l Type, r *TypedDictType) bool {
	lt, ok := l.(*TypedDictType)
	if !ok {
		return false
	}
	for _, want := range r.Fields {
		have, ok := lt.field(want.Name)
		if !ok {
			return false
		}
		if want.Required && !have.Required {
			return false
		}
		if !want.Required && !want.ReadOnly && have.Required {
			return false
		}
		if want.ReadOnly {
			if !q.rec(have.Typ, want.Typ) {
				return false
			}
		} else if !q.rec(have.Typ, want.Typ) || !q.rec(want.Typ, have.Typ) {
			return false
		}
	}
	return true
}
