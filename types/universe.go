package types

// NewBuiltins builds the standard builtin universe: the numeric tower with
// its promotions, the bytes-likes, str, bool (a nominal int subclass), and
// the generic containers the engines' fallbacks point at.
func NewBuiltins(f *Fresher) *Hierarchy {
	h := NewHierarchy()

	object := h.object
	objInst := []*Instance{{Class: object}}

	complexC := h.Define(NewClassInfo("complex", objInst))
	floatC := h.Define(NewClassInfo("float", objInst))
	intC := h.Define(NewClassInfo("int", objInst))
	floatC.Promotions = []*ClassInfo{complexC}
	intC.Promotions = []*ClassInfo{floatC}

	boolC := h.Define(NewClassInfo("bool", []*Instance{{Class: intC}}))
	boolC.IsFinal = true

	h.Define(NewClassInfo("str", objInst))
	bytesC := h.Define(NewClassInfo("bytes", objInst))
	bytearrayC := h.Define(NewClassInfo("bytearray", objInst))
	bytearrayC.Promotions = []*ClassInfo{bytesC}
	h.Define(NewClassInfo("memoryview", objInst)).Promotions = []*ClassInfo{bytesC}

	noneC := h.Define(NewClassInfo("NoneType", objInst))
	noneC.IsFinal = true

	tupleT := f.NewTypeVar("T", Covariant, nil)
	h.Define(NewClassInfo("tuple", objInst, tupleT))

	listT := f.NewTypeVar("T", Invariant, nil)
	h.Define(NewClassInfo("list", objInst, listT))

	setT := f.NewTypeVar("T", Invariant, nil)
	h.Define(NewClassInfo("set", objInst, setT))

	frozensetT := f.NewTypeVar("T", Covariant, nil)
	h.Define(NewClassInfo("frozenset", objInst, frozensetT))

	dictK := f.NewTypeVar("K", Invariant, nil)
	dictV := f.NewTypeVar("V", Invariant, nil)
	h.Define(NewClassInfo("dict", objInst, dictK, dictV))

	return h
}

// TupleFallback is the nominal view of a tuple: tuple[join-less union of
// the items]. Engines use it whenever a TupleType meets a nominal or
// structural target.
func (h *Hierarchy) TupleFallback(t *TupleType) *Instance {
	if t.Fallback != nil {
		return t.Fallback
	}
	tupleC, ok := h.classes["tuple"]
	if !ok {
		return h.Object()
	}
	var items []Type
	for _, item := range t.Items {
		if up, ok := item.(*UnpackType); ok {
			if inner, ok := up.Inner.(*Instance); ok && len(inner.Args) == 1 {
				items = append(items, inner.Args[0])
				continue
			}
			items = append(items, AnyType{Source: AnyFromError})
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return &Instance{Class: tupleC, Args: []Type{NeverType{}}}
	}
	return &Instance{Class: tupleC, Args: []Type{NewUnion(items...)}}
}
