package types

// SubtypeMode selects which compatibility relation IsSubtype decides.
type SubtypeMode int

const (
	// ModeProper is strict proper subtyping, used for override and
	// variance checks: no Any leniency beyond Any itself, no promotions.
	ModeProper SubtypeMode = iota
	// ModeAssignable additionally permits the gradual rules: numeric
	// tower promotions and covariant container exceptions.
	ModeAssignable
	// ModeStructural treats every class target structurally, as if it
	// were a protocol.
	ModeStructural
)

func (m SubtypeMode) String() string {
	switch m {
	case ModeProper:
		return "proper"
	case ModeAssignable:
		return "assignable"
	default:
		return "structural"
	}
}

// The engines depend on each other through these interfaces rather than on
// the concrete Checker, so each can be exercised against a fake in tests.

type Subtyper interface {
	IsSubtype(left, right Type, mode SubtypeMode) bool
}

type Lattice interface {
	Join(a, b Type) Type
	Meet(a, b Type) Type
}

type Overlapper interface {
	MightOverlap(a, b Type) bool
}

var (
	_ Subtyper   = (*Checker)(nil)
	_ Lattice    = (*Checker)(nil)
	_ Overlapper = (*Checker)(nil)
)

type negKey struct {
	l, r uint64
	mode SubtypeMode
}

// Checker implements the four engines over an injected class oracle.
//
// A Checker is a single-worker object: the negative cache is not guarded
// by a lock, so concurrent checking shards must each own their own
// instance. Clearing or disabling the cache never changes results.
type Checker struct {
	hier ClassOracle

	// negCache holds failed (left, right, mode) queries. Successes are
	// never cached: a success can depend on in-progress assumptions that
	// do not hold outside the query that made them.
	negCache map[negKey]struct{}

	// OnRecursive, when set, is told about types that expand into
	// themselves with no base case ("recursive type has no fixed point").
	// The offending query still returns its conservative answer.
	OnRecursive func(t Type)
}

func NewChecker(hier ClassOracle) *Checker {
	return &Checker{
		hier:     hier,
		negCache: make(map[negKey]struct{}),
	}
}

// ClearCache drops the negative-subtyping cache. Purely a memory knob.
func (c *Checker) ClearCache() {
	c.negCache = make(map[negKey]struct{})
}

func (c *Checker) reportRecursive(t Type) {
	logger.Warn("recursive type has no fixed point", "type", t.String())
	if c.OnRecursive != nil {
		c.OnRecursive(t)
	}
}

// resolve dereferences alias indirections until a proper type surfaces.
// Every engine entry point calls this before dispatching on variant;
// skipping it would make structurally identical types compare unequal.
// An alias that expands to itself with no base case resolves to an
// error-flavoured Any after being reported. The guard is keyed by
// definition identity: a definition whose expansion leads straight back to
// itself never surfaces a proper type, even when generic arguments keep
// growing on every round.
func (c *Checker) resolve(t Type) Type {
	a, ok := t.(*AliasType)
	if !ok {
		return t
	}
	seen := map[*AliasDef]struct{}{}
	for {
		if _, dejaVu := seen[a.Def]; dejaVu {
			c.reportRecursive(a)
			return AnyType{Source: AnyFromError}
		}
		seen[a.Def] = struct{}{}
		t = expandAlias(a)
		if a, ok = t.(*AliasType); !ok {
			return t
		}
	}
}

// expandAlias substitutes the alias arguments into its target, one level
// deep. Nested alias references inside the target stay lazy; the engines'
// guards take care of them.
func expandAlias(a *AliasType) Type {
	if len(a.Def.TypeParams) == 0 {
		return a.Def.Target
	}
	subst := make(map[TypeVarID]Type, len(a.Def.TypeParams))
	for i, p := range a.Def.TypeParams {
		if i < len(a.Args) {
			subst[p.ID] = a.Args[i]
		} else if p.Default != nil {
			subst[p.ID] = p.Default
		} else {
			subst[p.ID] = AnyType{Source: AnyFromError}
		}
	}
	return applyTypeVarSubst(a.Def.Target, subst)
}

// UnionOf builds a union and simplifies away members already subsumed by
// another member under proper subtyping. Literal-only unions are kept
// verbatim so that finite value sets stay enumerable.
func (c *Checker) UnionOf(items ...Type) Type {
	t := NewUnion(items...)
	u, ok := t.(*UnionType)
	if !ok {
		return t
	}
	literalOnly := true
	for _, item := range u.Items {
		if _, isLit := item.(*LiteralType); !isLit {
			literalOnly = false
			break
		}
	}
	if literalOnly {
		return u
	}
	var kept []Type
	for i, item := range u.Items {
		subsumed := false
		for j, other := range u.Items {
			if i == j {
				continue
			}
			if !c.IsSubtype(item, other, ModeProper) {
				continue
			}
			// mutual subtypes are equivalent: keep only the first
			if c.IsSubtype(other, item, ModeProper) {
				if j < i {
					subsumed = true
					break
				}
			} else {
				subsumed = true
				break
			}
		}
		if !subsumed {
			kept = append(kept, item)
		}
	}
	return NewUnion(kept...)
}

// TypesEquivalent is mutual proper subtyping, the engine's own notion of
// "the same type".
func (c *Checker) TypesEquivalent(a, b Type) bool {
	return c.IsSubtype(a, b, ModeProper) && c.IsSubtype(b, a, ModeProper)
}

// IsAssignable is the everyday compatibility question.
func (c *Checker) IsAssignable(left, right Type) bool {
	return c.IsSubtype(left, right, ModeAssignable)
}

// IsProperSubtype is the strict relation, for override and variance checks.
func (c *Checker) IsProperSubtype(left, right Type) bool {
	return c.IsSubtype(left, right, ModeProper)
}
