package types

// Join computes the least upper bound of two types: the most specific type
// both are assignable to. Used for merging control-flow branches.
func (c *Checker) Join(a, b Type) Type {
	a, b = c.resolve(a), c.resolve(b)
	if _, ok := a.(AnyType); ok {
		return a
	}
	if _, ok := b.(AnyType); ok {
		return b
	}
	if _, ok := a.(NeverType); ok {
		return b
	}
	if _, ok := b.(NeverType); ok {
		return a
	}
	if c.IsSubtype(a, b, ModeAssignable) {
		return b
	}
	if c.IsSubtype(b, a, ModeAssignable) {
		return a
	}

	// union operands (and None, which joins into an optional) stay unions
	_, aIsUnion := a.(*UnionType)
	_, bIsUnion := b.(*UnionType)
	_, aIsNone := a.(NoneType)
	_, bIsNone := b.(NoneType)
	if aIsUnion || bIsUnion || aIsNone || bIsNone {
		return c.UnionOf(a, b)
	}

	switch a := a.(type) {
	case *Instance:
		if bi, ok := b.(*Instance); ok {
			return c.joinInstances(a, bi)
		}
		return c.Join(a, c.nominalForm(b))
	case *TupleType:
		if bt, ok := b.(*TupleType); ok {
			if a.unpackIndex() == -1 && bt.unpackIndex() == -1 && len(a.Items) == len(bt.Items) {
				items := make([]Type, len(a.Items))
				for i := range a.Items {
					items[i] = c.Join(a.Items[i], bt.Items[i])
				}
				return &TupleType{Items: items}
			}
		}
		return c.Join(c.nominalForm(a), c.nominalForm(b))
	case *CallableType:
		if bc, ok := b.(*CallableType); ok {
			return c.joinCallables(a, bc)
		}
		return c.Join(c.nominalForm(a), c.nominalForm(b))
	case *LiteralType:
		return c.Join(a.Fallback, c.nominalForm(b))
	case *TypeVarType:
		return c.Join(c.varProxy(a), b)
	default:
		return c.Join(c.nominalForm(a), c.nominalForm(b))
	}
}

// nominalForm maps structural variants to the Instance that nominally
// stands for them; anything without one erases to object.
func (c *Checker) nominalForm(t Type) Type {
	switch t := t.(type) {
	case *Instance:
		return t
	case *TupleType:
		return c.hier.TupleFallback(t)
	case *CallableType, *Overloaded:
		return c.hier.FunctionFallback()
	case *LiteralType:
		return t.Fallback
	case *TypedDictType:
		if t.Fallback != nil {
			return t.Fallback
		}
		return c.hier.Object()
	case *TypeVarType:
		return c.nominalForm(c.varProxy(t))
	default:
		return c.hier.Object()
	}
}

func (c *Checker) varProxy(tv *TypeVarType) Type {
	if len(tv.Values) > 0 {
		return NewUnion(tv.Values...)
	}
	if tv.Bound != nil {
		return tv.Bound
	}
	return c.hier.Object()
}

// joinInstances walks a's linearized chain for the most specific class b
// also derives from, then joins the mapped arguments slot by slot under
// the ancestor's variance. Invariant slots that disagree erase the whole
// instance to the class's unconstrained form.
func (c *Checker) joinInstances(a, b *Instance) Type {
	for _, ancestor := range a.Class.MRO {
		if !b.Class.HasAncestor(ancestor) {
			continue
		}
		ma, okA := c.hier.SupertypeOf(a, ancestor)
		mb, okB := c.hier.SupertypeOf(b, ancestor)
		if !okA || !okB {
			continue
		}
		if ma.Erased || mb.Erased {
			return &Instance{Class: ancestor, Erased: true}
		}
		args := make([]Type, len(ancestor.TypeParams))
		for i, param := range ancestor.TypeParams {
			var aa, ba Type = AnyType{Source: AnyFromError}, AnyType{Source: AnyFromError}
			if i < len(ma.Args) {
				aa = ma.Args[i]
			}
			if i < len(mb.Args) {
				ba = mb.Args[i]
			}
			switch param.Variance {
			case Covariant:
				args[i] = c.Join(aa, ba)
			case Contravariant:
				args[i] = c.Meet(aa, ba)
			default:
				if !c.TypesEquivalent(aa, ba) {
					return &Instance{Class: ancestor, Erased: true}
				}
				args[i] = aa
			}
		}
		return &Instance{Class: ancestor, Args: args}
	}
	return c.hier.Object()
}

// joinCallables joins signatures of the same shape pointwise: parameters
// meet (contravariantly), returns join. Shape mismatches fall back to the
// nominal function type.
func (c *Checker) joinCallables(a, b *CallableType) Type {
	if len(a.Params) != len(b.Params) || a.IsEllipsis != b.IsEllipsis ||
		(a.ParamSpecTail == nil) != (b.ParamSpecTail == nil) {
		return c.hier.FunctionFallback()
	}
	params := make([]Param, len(a.Params))
	for i, ap := range a.Params {
		bp := b.Params[i]
		if ap.Kind != bp.Kind || (ap.Kind != PosOnly && ap.Name != bp.Name) {
			return c.hier.FunctionFallback()
		}
		merged := ap
		merged.Typ = c.Meet(ap.Typ, bp.Typ)
		merged.HasDefault = ap.HasDefault && bp.HasDefault
		params[i] = merged
	}
	return &CallableType{
		Params:        params,
		Ret:           c.Join(a.Ret, b.Ret),
		ParamSpecTail: a.ParamSpecTail,
		IsEllipsis:    a.IsEllipsis,
	}
}

// Meet computes the greatest lower bound: the most general type whose
// values satisfy both operands. Used for narrowing; disjoint operands meet
// at Never.
func (c *Checker) Meet(a, b Type) Type {
	a, b = c.resolve(a), c.resolve(b)
	if _, ok := a.(AnyType); ok {
		return b
	}
	if _, ok := b.(AnyType); ok {
		return a
	}
	if _, ok := a.(NeverType); ok {
		return a
	}
	if _, ok := b.(NeverType); ok {
		return b
	}
	if c.IsSubtype(a, b, ModeAssignable) {
		return a
	}
	if c.IsSubtype(b, a, ModeAssignable) {
		return b
	}

	// meeting a union intersects member-wise, so narrowing an optional
	// with None leaves None rather than collapsing to bottom
	if au, ok := a.(*UnionType); ok {
		items := make([]Type, 0, len(au.Items))
		for _, item := range au.Items {
			if met := c.Meet(item, b); !isNever(met) {
				items = append(items, met)
			}
		}
		return c.UnionOf(items...)
	}
	if bu, ok := b.(*UnionType); ok {
		return c.Meet(bu, a)
	}

	switch a := a.(type) {
	case NoneType:
		// absence intersects with nothing but itself (and unions, above)
		return NeverType{}
	case *TupleType:
		bt, ok := b.(*TupleType)
		if !ok || a.unpackIndex() != -1 || bt.unpackIndex() != -1 || len(a.Items) != len(bt.Items) {
			return NeverType{}
		}
		items := make([]Type, len(a.Items))
		for i := range a.Items {
			items[i] = c.Meet(a.Items[i], bt.Items[i])
			if isNever(items[i]) {
				return NeverType{}
			}
		}
		return &TupleType{Items: items}
	default:
		// neither is a subtype of the other; a common value would need a
		// shared descendant, which nominal meets do not fabricate
		return NeverType{}
	}
}

func isNever(t Type) bool {
	_, ok := t.(NeverType)
	return ok
}
