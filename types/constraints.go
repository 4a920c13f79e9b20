package types

import (
	set "github.com/hashicorp/go-set/v3"
)

// ConstraintDir is the direction of one inference constraint.
type ConstraintDir int

const (
	// SupertypeOf: the variable must be a supertype of the bound (the
	// bound is a lower bound; this is what an argument flowing into a
	// parameter produces).
	SupertypeOf ConstraintDir = iota
	// SubtypeOf: the variable must be a subtype of the bound (an upper
	// bound; produced by contravariant positions).
	SubtypeOf
)

func (d ConstraintDir) String() string {
	if d == SupertypeOf {
		return ":>"
	}
	return "<:"
}

func (d ConstraintDir) flip() ConstraintDir {
	if d == SupertypeOf {
		return SubtypeOf
	}
	return SupertypeOf
}

// Constraint records that the variable identified by Var must be a
// supertype or subtype of Bound.
type Constraint struct {
	Var   TypeVarID
	Dir   ConstraintDir
	Bound Type
}

type inferQuery struct {
	c           *Checker
	assumptions *set.HashSet[*typePair, uint64]
	fuel        int
}

// InferConstraints is the primitive the argument matcher calls once per
// formal/actual pair: it walks the structural pairing of formal against
// actual and emits constraints for every type variable the formal
// mentions. dir is the direction for variables in covariant position.
func (c *Checker) InferConstraints(formal, actual Type, dir ConstraintDir) []Constraint {
	iq := &inferQuery{
		c:           c,
		assumptions: set.NewHashSet[*typePair, uint64](0),
		fuel:        defaultStartingFuel,
	}
	out := iq.infer(formal, actual, dir)
	logger.Debug("inferred constraints", "section", "solve", "formal", formal.String(), "actual", actual.String(), "count", len(out))
	return out
}

func (iq *inferQuery) infer(formal, actual Type, dir ConstraintDir) []Constraint {
	iq.fuel--
	if iq.fuel <= 0 {
		iq.c.reportRecursive(formal)
		return nil
	}
	formal, actual = iq.c.resolve(formal), iq.c.resolve(actual)

	if tv, ok := formal.(*TypeVarType); ok {
		return []Constraint{{Var: tv.ID, Dir: dir, Bound: actual}}
	}
	if tvt, ok := formal.(*TypeVarTupleType); ok {
		return []Constraint{{Var: tvt.ID, Dir: dir, Bound: actual}}
	}
	if _, ok := formal.(AnyType); ok {
		return nil
	}
	// a gradual actual flows into every variable the formal mentions
	if _, ok := actual.(AnyType); ok {
		var out []Constraint
		for id := range typeVarsIn(formal) {
			out = append(out, Constraint{Var: id, Dir: dir, Bound: actual})
		}
		return out
	}

	pair := &typePair{formal, actual}
	if iq.assumptions.Contains(pair) {
		return nil
	}
	iq.assumptions.Insert(pair)
	defer iq.assumptions.Remove(pair)

	// a union actual constrains through each of its members
	if au, ok := actual.(*UnionType); ok {
		var out []Constraint
		for _, item := range au.Items {
			out = append(out, iq.infer(formal, item, dir)...)
		}
		return out
	}

	switch formal := formal.(type) {
	case *UnionType:
		return iq.inferUnion(formal, actual, dir)
	case *Instance:
		if ai, ok := actual.(*Instance); ok {
			return iq.inferInstance(formal, ai, dir)
		}
		if at, ok := actual.(*TupleType); ok {
			return iq.inferInstance(formal, iq.c.hier.TupleFallback(at), dir)
		}
		if al, ok := actual.(*LiteralType); ok {
			return iq.infer(formal, al.Fallback, dir)
		}
		return nil
	case *CallableType:
		if ac, ok := callableOf(actual); ok {
			return iq.inferCallable(formal, ac, dir)
		}
		if ai, ok := actual.(*Instance); ok {
			if member, found := iq.c.hier.MemberOf(ai, "__call__"); found {
				return iq.infer(formal, member.Typ, dir)
			}
		}
		return nil
	case *Overloaded:
		var out []Constraint
		for _, alt := range formal.Alts {
			out = append(out, iq.infer(alt, actual, dir)...)
		}
		return out
	case *TupleType:
		if at, ok := actual.(*TupleType); ok {
			return iq.inferTuple(formal, at, dir)
		}
		return nil
	case *TypedDictType:
		if at, ok := actual.(*TypedDictType); ok {
			var out []Constraint
			for _, f := range formal.Fields {
				if af, ok := at.field(f.Name); ok {
					out = append(out, iq.infer(f.Typ, af.Typ, dir)...)
				}
			}
			return out
		}
		return nil
	}
	return nil
}

// inferUnion constrains through a union formal. When exactly one member
// mentions type variables, the others act as a filter: an actual already
// absorbed by a variable-free member contributes nothing.
func (iq *inferQuery) inferUnion(formal *UnionType, actual Type, dir ConstraintDir) []Constraint {
	var varMembers []Type
	for _, item := range formal.Items {
		if len(typeVarsIn(item)) > 0 {
			varMembers = append(varMembers, item)
		} else if iq.c.IsSubtype(actual, item, ModeAssignable) {
			return nil
		}
	}
	if len(varMembers) == 1 {
		return iq.infer(varMembers[0], actual, dir)
	}
	var out []Constraint
	for _, member := range varMembers {
		out = append(out, iq.infer(member, actual, dir)...)
	}
	return out
}

func (iq *inferQuery) inferInstance(formal, actual *Instance, dir ConstraintDir) []Constraint {
	mapped, ok := iq.c.hier.SupertypeOf(actual, formal.Class)
	if !ok || mapped.Erased || formal.Erased {
		return nil
	}
	var out []Constraint
	for i, fa := range formal.Args {
		if i >= len(mapped.Args) {
			break
		}
		aa := mapped.Args[i]
		variance := Invariant
		if i < len(formal.Class.TypeParams) {
			variance = formal.Class.TypeParams[i].Variance
		}
		switch variance {
		case Covariant:
			out = append(out, iq.infer(fa, aa, dir)...)
		case Contravariant:
			out = append(out, iq.infer(fa, aa, dir.flip())...)
		default:
			out = append(out, iq.infer(fa, aa, dir)...)
			out = append(out, iq.infer(fa, aa, dir.flip())...)
		}
	}
	return out
}

func (iq *inferQuery) inferCallable(formal, actual *CallableType, dir ConstraintDir) []Constraint {
	var out []Constraint
	// parameters pair contravariantly
	n := min(len(formal.Params), len(actual.Params))
	for i := 0; i < n; i++ {
		out = append(out, iq.infer(formal.Params[i].Typ, actual.Params[i].Typ, dir.flip())...)
	}
	// a ParamSpec tail captures whatever actual parameters remain
	if formal.ParamSpecTail != nil {
		rest := &CallableType{
			Params:        append([]Param(nil), actual.Params[min(len(formal.Params), len(actual.Params)):]...),
			Ret:           AnyType{},
			ParamSpecTail: actual.ParamSpecTail,
			IsEllipsis:    actual.IsEllipsis,
		}
		out = append(out, Constraint{Var: formal.ParamSpecTail.ID, Dir: dir.flip(), Bound: rest})
	}
	out = append(out, iq.infer(formal.Ret, actual.Ret, dir)...)
	return out
}

func (iq *inferQuery) inferTuple(formal, actual *TupleType, dir ConstraintDir) []Constraint {
	fUn := formal.unpackIndex()
	if fUn == -1 {
		if actual.unpackIndex() != -1 || len(formal.Items) != len(actual.Items) {
			return nil
		}
		var out []Constraint
		for i, f := range formal.Items {
			out = append(out, iq.infer(f, actual.Items[i], dir)...)
		}
		return out
	}
	if actual.unpackIndex() != -1 {
		return nil
	}
	prefix, suffix := formal.Items[:fUn], formal.Items[fUn+1:]
	if len(actual.Items) < len(prefix)+len(suffix) {
		return nil
	}
	var out []Constraint
	for i, f := range prefix {
		out = append(out, iq.infer(f, actual.Items[i], dir)...)
	}
	for i, f := range suffix {
		out = append(out, iq.infer(f, actual.Items[len(actual.Items)-len(suffix)+i], dir)...)
	}
	middle := actual.Items[len(prefix) : len(actual.Items)-len(suffix)]
	unpack := formal.Items[fUn].(*UnpackType)
	switch inner := iq.c.resolve(unpack.Inner).(type) {
	case *TypeVarTupleType:
		out = append(out, Constraint{
			Var:   inner.ID,
			Dir:   dir,
			Bound: &TupleType{Items: append([]Type(nil), middle...)},
		})
	case *Instance:
		if len(inner.Args) == 1 {
			for _, m := range middle {
				out = append(out, iq.infer(inner.Args[0], m, dir)...)
			}
		}
	}
	return out
}
