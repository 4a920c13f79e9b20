package types

import "slices"

// Member is a named attribute of a class (or of a protocol). ReadOnly
// members compare covariantly during structural matching; read-write
// members require mutual compatibility.
type Member struct {
	Typ      Type
	ReadOnly bool
}

// ClassInfo is the checker-facing view of one class declaration: its
// declared type parameters, immediate bases (in generic form, with
// arguments expressed over this class's own parameters), the linearized
// method resolution order, members, and the flags the engines consult.
//
// ClassInfos are built once during semantic analysis and never mutated
// afterwards; the MRO is computed at construction and cached here.
type ClassInfo struct {
	Name       string
	TypeParams []*TypeVarType
	Bases      []*Instance
	MRO        []*ClassInfo
	Members    map[string]Member
	IsProtocol bool
	IsFinal    bool
	// Promotions lists classes whose values this class's values are
	// accepted as outside strict mode (the numeric tower, bytes-likes).
	Promotions []*ClassInfo
}

// NewClassInfo builds a class and linearizes its base chain. The
// linearization is a dedup-preserving merge: self first, then each base's
// MRO in declaration order, keeping the first occurrence of every class.
func NewClassInfo(name string, bases []*Instance, params ...*TypeVarType) *ClassInfo {
	c := &ClassInfo{
		Name:       name,
		TypeParams: params,
		Bases:      bases,
		Members:    make(map[string]Member),
	}
	c.MRO = []*ClassInfo{c}
	for _, base := range bases {
		for _, ancestor := range base.Class.MRO {
			if !slices.Contains(c.MRO, ancestor) {
				c.MRO = append(c.MRO, ancestor)
			}
		}
	}
	return c
}

// SetMember adds or replaces a read-write member.
func (c *ClassInfo) SetMember(name string, typ Type) *ClassInfo {
	c.Members[name] = Member{Typ: typ}
	return c
}

// SetReadOnlyMember adds or replaces a read-only member (methods,
// properties without setters).
func (c *ClassInfo) SetReadOnlyMember(name string, typ Type) *ClassInfo {
	c.Members[name] = Member{Typ: typ, ReadOnly: true}
	return c
}

// HasAncestor reports nominal is-subclass over the linearized chain.
func (c *ClassInfo) HasAncestor(other *ClassInfo) bool {
	return slices.Contains(c.MRO, other)
}

// ClassOracle is what the engines know about the ambient class hierarchy.
// It is injected so that each engine stays unit-testable against a fake;
// Hierarchy below is the concrete implementation the rest of the system
// uses.
type ClassOracle interface {
	// Object is the top instance every class derives from.
	Object() *Instance
	// FunctionFallback is the nominal class of every callable value.
	FunctionFallback() *Instance
	// SupertypeOf maps inst upwards to target, substituting type arguments
	// through the inheritance chain. ok is false when target is not an
	// ancestor of inst's class.
	SupertypeOf(inst *Instance, target *ClassInfo) (mapped *Instance, ok bool)
	// MemberOf looks a member up on any type that nominally has members:
	// instances (through the MRO), tuples/literals/typed dicts (through
	// their fallback), callables (a synthesized __call__).
	MemberOf(t Type, name string) (Member, bool)
	// TupleFallback is the nominal instance a tuple degrades to when an
	// engine needs a class view of it.
	TupleFallback(t *TupleType) *Instance
}

// Hierarchy is the default ClassOracle, backed by registered ClassInfos.
type Hierarchy struct {
	classes  map[string]*ClassInfo
	object   *ClassInfo
	function *ClassInfo
}

var _ ClassOracle = (*Hierarchy)(nil)

// NewHierarchy creates a hierarchy containing only the two classes the
// engines themselves need: object and the function fallback. Use
// NewBuiltins for a hierarchy with the usual builtin universe.
func NewHierarchy() *Hierarchy {
	h := &Hierarchy{classes: make(map[string]*ClassInfo)}
	h.object = NewClassInfo("object", nil)
	h.function = NewClassInfo("function", []*Instance{{Class: h.object}})
	h.classes["object"] = h.object
	h.classes["function"] = h.function
	return h
}

// Define registers a class. A class with no declared bases implicitly
// derives from object.
func (h *Hierarchy) Define(c *ClassInfo) *ClassInfo {
	if len(c.Bases) == 0 && c != h.object {
		c.Bases = []*Instance{{Class: h.object}}
		if !slices.Contains(c.MRO, h.object) {
			c.MRO = append(c.MRO, h.object)
		}
	}
	h.classes[c.Name] = c
	return c
}

// Class resolves a registered class by name.
func (h *Hierarchy) Class(name string) (*ClassInfo, bool) {
	c, ok := h.classes[name]
	return c, ok
}

// Inst builds an Instance of a registered class; unknown names yield an
// erased object instance rather than failing, per the engine's
// never-crash policy.
func (h *Hierarchy) Inst(name string, args ...Type) *Instance {
	c, ok := h.classes[name]
	if !ok {
		return &Instance{Class: h.object, Erased: true}
	}
	return &Instance{Class: c, Args: args}
}

func (h *Hierarchy) Object() *Instance {
	return &Instance{Class: h.object}
}

func (h *Hierarchy) FunctionFallback() *Instance {
	return &Instance{Class: h.function}
}

func (h *Hierarchy) SupertypeOf(inst *Instance, target *ClassInfo) (*Instance, bool) {
	if inst.Class == target {
		return inst, true
	}
	if !inst.Class.HasAncestor(target) {
		return nil, false
	}
	for _, base := range inst.Class.Bases {
		mapped := base
		if inst.Erased {
			mapped = &Instance{Class: base.Class, Erased: true}
		} else if len(inst.Class.TypeParams) > 0 {
			subst := make(map[TypeVarID]Type, len(inst.Class.TypeParams))
			for i, p := range inst.Class.TypeParams {
				if i < len(inst.Args) {
					subst[p.ID] = inst.Args[i]
				} else {
					subst[p.ID] = AnyType{Source: AnyFromError}
				}
			}
			mapped = applyTypeVarSubst(base, subst).(*Instance)
		}
		if up, ok := h.SupertypeOf(mapped, target); ok {
			return up, true
		}
	}
	return nil, false
}

func (h *Hierarchy) MemberOf(t Type, name string) (Member, bool) {
	switch t := t.(type) {
	case *Instance:
		for _, cls := range t.Class.MRO {
			member, ok := cls.Members[name]
			if !ok {
				continue
			}
			if len(cls.TypeParams) == 0 {
				return member, true
			}
			mapped, ok := h.SupertypeOf(t, cls)
			if !ok {
				return member, true
			}
			subst := make(map[TypeVarID]Type, len(cls.TypeParams))
			for i, p := range cls.TypeParams {
				if i < len(mapped.Args) {
					subst[p.ID] = mapped.Args[i]
				} else {
					subst[p.ID] = AnyType{Source: AnyFromError}
				}
			}
			member.Typ = applyTypeVarSubst(member.Typ, subst)
			return member, true
		}
		return Member{}, false
	case *CallableType:
		if name == "__call__" {
			return Member{Typ: t, ReadOnly: true}, true
		}
		return h.MemberOf(h.FunctionFallback(), name)
	case *Overloaded:
		if name == "__call__" {
			return Member{Typ: t, ReadOnly: true}, true
		}
		return h.MemberOf(h.FunctionFallback(), name)
	case *TupleType:
		if t.Fallback != nil {
			return h.MemberOf(t.Fallback, name)
		}
		return Member{}, false
	case *LiteralType:
		if t.Fallback != nil {
			return h.MemberOf(t.Fallback, name)
		}
		return Member{}, false
	case *TypedDictType:
		if t.Fallback != nil {
			return h.MemberOf(t.Fallback, name)
		}
		return Member{}, false
	default:
		return Member{}, false
	}
}
