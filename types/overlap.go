package types

import (
	"sort"

	hset "github.com/hashicorp/go-set/v3"
	"github.com/xtgo/set"
)

// overlapQuery is the per-call state of MightOverlap, with the same
// memoization discipline as the subtype engine.
type overlapQuery struct {
	c           *Checker
	assumptions *hset.HashSet[*typePair, uint64]
	fuel        int
	depth       int
}

// MightOverlap reports whether some runtime value could satisfy both types
// at once. The relation is symmetric, and undecidable combinations answer
// true (the conservative side for reachability checks).
func (c *Checker) MightOverlap(a, b Type) bool {
	o := &overlapQuery{
		c:           c,
		assumptions: hset.NewHashSet[*typePair, uint64](0),
		fuel:        defaultStartingFuel,
	}
	return o.rec(a, b)
}

func (o *overlapQuery) rec(a, b Type) bool {
	o.fuel--
	o.depth++
	defer func() { o.depth-- }()
	if o.fuel <= 0 || o.depth > defaultDepthLimit {
		o.c.reportRecursive(a)
		return true
	}

	a, b = o.c.resolve(a), o.c.resolve(b)
	// normalizing operand order keeps the relation symmetric by
	// construction
	if a.Hash() > b.Hash() {
		a, b = b, a
	}

	// Never first: it has no inhabitants, so not even Any shares a value
	// with it
	if isNever(a) || isNever(b) {
		return false
	}
	if _, ok := a.(AnyType); ok {
		return true
	}
	if _, ok := b.(AnyType); ok {
		return true
	}
	if a.Hash() == b.Hash() {
		return true
	}

	pair := &typePair{a, b}
	if o.assumptions.Contains(pair) {
		return true
	}
	o.assumptions.Insert(pair)
	defer o.assumptions.Remove(pair)

	// finite value sets intersect exactly
	if aEnc, ok := literalEncodings(a); ok {
		if bEnc, ok := literalEncodings(b); ok {
			return finiteSetsIntersect(aEnc, bEnc)
		}
	}

	if au, ok := a.(*UnionType); ok {
		for _, item := range au.Items {
			if o.rec(item, b) {
				return true
			}
		}
		return false
	}
	if bu, ok := b.(*UnionType); ok {
		for _, item := range bu.Items {
			if o.rec(a, item) {
				return true
			}
		}
		return false
	}

	if av, ok := a.(*TypeVarType); ok {
		return o.rec(o.varProxy(av), b)
	}
	if bv, ok := b.(*TypeVarType); ok {
		return o.rec(a, o.varProxy(bv))
	}

	if al, ok := a.(*LiteralType); ok {
		return o.rec(al.Fallback, b)
	}
	if bl, ok := b.(*LiteralType); ok {
		return o.rec(a, bl.Fallback)
	}

	_, aNone := a.(NoneType)
	_, bNone := b.(NoneType)
	if aNone || bNone {
		other := a
		if aNone {
			other = b
		}
		if oi, ok := other.(*Instance); ok && oi.Class.Name == "NoneType" {
			return true
		}
		return aNone && bNone
	}

	if at, ok := a.(*TupleType); ok {
		if bt, ok := b.(*TupleType); ok {
			return o.tuplesOverlap(at, bt)
		}
		return o.rec(o.c.hier.TupleFallback(at), b)
	}
	if bt, ok := b.(*TupleType); ok {
		return o.rec(a, o.c.hier.TupleFallback(bt))
	}

	if ac, ok := callableOf(a); ok {
		if bc, ok := callableOf(b); ok {
			// far looser than subtyping: in gradual contexts two
			// arity-compatible callables can share values
			return aritiesOverlap(ac, bc)
		}
	}

	if atd, ok := a.(*TypedDictType); ok {
		if btd, ok := b.(*TypedDictType); ok {
			return o.typedDictsOverlap(atd, btd)
		}
	}

	if ai, ok := a.(*Instance); ok {
		if bi, ok := b.(*Instance); ok {
			return o.instancesOverlap(ai, bi)
		}
	}

	// unhandled combinations of distinct variants share no values
	return false
}

func (o *overlapQuery) varProxy(tv *TypeVarType) Type {
	if len(tv.Values) > 0 {
		return NewUnion(tv.Values...)
	}
	if tv.Bound != nil {
		return tv.Bound
	}
	return o.c.hier.Object()
}

// literalEncodings extracts the finite value set of a literal or a
// literal-only union.
func literalEncodings(t Type) ([]string, bool) {
	switch t := t.(type) {
	case *LiteralType:
		return []string{t.Value.encode()}, true
	case *UnionType:
		enc := make([]string, 0, len(t.Items))
		for _, item := range t.Items {
			lit, ok := item.(*LiteralType)
			if !ok {
				return nil, false
			}
			enc = append(enc, lit.Value.encode())
		}
		return enc, true
	}
	return nil, false
}

func finiteSetsIntersect(a, b []string) bool {
	sort.Strings(a)
	sort.Strings(b)
	data := sort.StringSlice(append(a, b...))
	return set.Inter(data, len(a)) > 0
}

func callableOf(t Type) (*CallableType, bool) {
	switch t := t.(type) {
	case *CallableType:
		return t, true
	case *Overloaded:
		if len(t.Alts) > 0 {
			return t.Alts[0], true
		}
	}
	return nil, false
}

// aritiesOverlap checks that some positional argument count is accepted by
// both signatures.
func aritiesOverlap(a, b *CallableType) bool {
	aMin, aMax := positionalArity(a)
	bMin, bMax := positionalArity(b)
	return aMin <= bMax && bMin <= aMax
}

// positionalArity yields the [min, max] count of positional arguments a
// signature accepts; max is unbounded for *args and ellipsis signatures.
func positionalArity(t *CallableType) (int, int) {
	const unbounded = 1 << 20
	if t.IsEllipsis || t.ParamSpecTail != nil {
		return 0, unbounded
	}
	minArgs, maxArgs := 0, 0
	for _, p := range t.Params {
		switch p.Kind {
		case PosOnly, PosOrKeyword:
			maxArgs++
			if p.required() {
				minArgs++
			}
		case StarArgs:
			maxArgs = unbounded
		}
	}
	return minArgs, maxArgs
}

func (o *overlapQuery) tuplesOverlap(a, b *TupleType) bool {
	if a.unpackIndex() != -1 || b.unpackIndex() != -1 {
		// a variable-length side can always stretch to a compatible
		// length; compare only what is forced to line up
		return true
	}
	if len(a.Items) != len(b.Items) {
		return false
	}
	for i := range a.Items {
		if !o.rec(a.Items[i], b.Items[i]) {
			return false
		}
	}
	return true
}

func (o *overlapQuery) typedDictsOverlap(a, b *TypedDictType) bool {
	// shared required keys must be able to hold a common value
	for _, af := range a.Fields {
		if !af.Required {
			continue
		}
		bf, ok := b.field(af.Name)
		if !ok || !bf.Required {
			continue
		}
		if !o.rec(af.Typ, bf.Typ) {
			return false
		}
	}
	return true
}

func (o *overlapQuery) instancesOverlap(a, b *Instance) bool {
	// promotions participate in overlap even where strict subtyping
	// ignores them, so go through assignability both ways
	if o.c.IsSubtype(a, b, ModeAssignable) || o.c.IsSubtype(b, a, ModeAssignable) {
		return true
	}
	if a.Class.IsProtocol || b.Class.IsProtocol {
		return true
	}
	// an unseen subclass could inherit from both open classes; a final
	// class admits no such subclass
	return !a.Class.IsFinal && !b.Class.IsFinal
}
