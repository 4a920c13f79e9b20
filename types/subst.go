package types

// applyTypeVarSubst replaces every type variable (plain, ParamSpec or
// TypeVarTuple) whose identity appears in m. The replacement is capture-free
// because identities are globally unique: a variable of an inner scope can
// never collide with an outer one.
func applyTypeVarSubst(t Type, m map[TypeVarID]Type) Type {
	if len(m) == 0 {
		return t
	}
	switch t := t.(type) {
	case *TypeVarType:
		if repl, ok := m[t.ID]; ok {
			return repl
		}
		return t
	case *ParamSpecType:
		if repl, ok := m[t.ID]; ok {
			return repl
		}
		return t
	case *TypeVarTupleType:
		if repl, ok := m[t.ID]; ok {
			return repl
		}
		return t
	case *TupleType:
		// an unpacked TypeVarTuple solved to a tuple splices its items in
		// place rather than nesting
		var items []Type
		changed := false
		for _, item := range t.Items {
			if up, ok := item.(*UnpackType); ok {
				if tvt, ok := up.Inner.(*TypeVarTupleType); ok {
					if repl, ok := m[tvt.ID]; ok {
						changed = true
						if spliced, ok := repl.(*TupleType); ok {
							items = append(items, spliced.Items...)
						} else {
							items = append(items, &UnpackType{Inner: repl})
						}
						continue
					}
				}
			}
			mapped := applyTypeVarSubst(item, m)
			changed = changed || mapped != item
			items = append(items, mapped)
		}
		if !changed {
			return t
		}
		return &TupleType{Items: items, Fallback: t.Fallback}
	case *CallableType:
		mapped := t.mapChildren(func(child Type) Type {
			return applyTypeVarSubst(child, m)
		}).(*CallableType)
		if t.ParamSpecTail != nil {
			if repl, ok := m[t.ParamSpecTail.ID]; ok {
				if captured, ok := repl.(*CallableType); ok {
					mapped.Params = append(mapped.Params, captured.Params...)
					mapped.ParamSpecTail = captured.ParamSpecTail
					mapped.IsEllipsis = mapped.IsEllipsis || captured.IsEllipsis
				}
			}
		}
		return mapped
	default:
		return t.mapChildren(func(child Type) Type {
			return applyTypeVarSubst(child, m)
		})
	}
}

// typeVarsIn collects the identities of every type variable reachable in t,
// without expanding aliases (an alias argument list is traversed, its
// definition body is not).
func typeVarsIn(t Type) map[TypeVarID]struct{} {
	found := make(map[TypeVarID]struct{})
	var walk func(Type)
	seen := make(map[uint64]struct{})
	walk = func(t Type) {
		switch t := t.(type) {
		case *TypeVarType:
			found[t.ID] = struct{}{}
			return
		case *ParamSpecType:
			found[t.ID] = struct{}{}
			return
		case *TypeVarTupleType:
			found[t.ID] = struct{}{}
			return
		}
		h := t.Hash()
		if _, ok := seen[h]; ok {
			return
		}
		seen[h] = struct{}{}
		for child := range t.children() {
			walk(child)
		}
	}
	walk(t)
	return found
}
