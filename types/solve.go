package types

import (
	"github.com/benbjohnson/immutable"
)

// TypeVarLike is any solvable unknown: a plain type variable, a ParamSpec,
// or a TypeVarTuple.
type TypeVarLike interface {
	Type
	VarID() TypeVarID
}

func (t *TypeVarType) VarID() TypeVarID      { return t.ID }
func (t *ParamSpecType) VarID() TypeVarID    { return t.ID }
func (t *TypeVarTupleType) VarID() TypeVarID { return t.ID }

var (
	_ TypeVarLike = (*TypeVarType)(nil)
	_ TypeVarLike = (*ParamSpecType)(nil)
	_ TypeVarLike = (*TypeVarTupleType)(nil)
)

type typeVarIDHasher struct{}

func (typeVarIDHasher) Hash(key TypeVarID) uint32 { return uint32(uint64(key) * 2654435761) }
func (typeVarIDHasher) Equal(a, b TypeVarID) bool { return a == b }

// Substitution is the outcome of a solve: an immutable mapping from each
// requested variable identity to its solution, plus a per-variable failure
// reason for the ones that could not be solved. The caller decides whether
// an unsolved variable becomes Any, an error, or a deferred retry.
type Substitution struct {
	solved *immutable.Map[TypeVarID, Type]
	failed map[TypeVarID]string
}

// Get returns the solution for one variable, if it was solved.
func (s *Substitution) Get(id TypeVarID) (Type, bool) {
	return s.solved.Get(id)
}

// Failure returns the failure reason for one variable, if it failed.
func (s *Substitution) Failure(id TypeVarID) (string, bool) {
	reason, ok := s.failed[id]
	return reason, ok
}

// Complete reports whether every requested variable was solved.
func (s *Substitution) Complete() bool {
	return len(s.failed) == 0
}

// Apply substitutes every solved variable into t; failed variables are
// left untouched.
func (s *Substitution) Apply(t Type) Type {
	return applyTypeVarSubst(t, s.asMap())
}

func (s *Substitution) asMap() map[TypeVarID]Type {
	m := make(map[TypeVarID]Type, s.solved.Len())
	itr := s.solved.Iterator()
	for !itr.Done() {
		id, t, _ := itr.Next()
		m[id] = t
	}
	return m
}

// maxSolveRounds bounds the fixed-point iteration over inter-variable
// dependencies; a variable still cyclic after this many rounds gets its
// remaining unknowns erased to Any rather than recursing unboundedly.
const maxSolveRounds = 3

// SolveConstraints picks a concrete type for every requested variable from
// the accumulated directional constraints. Failures are per-variable; a
// failed variable never aborts the rest of the solve.
func (c *Checker) SolveConstraints(constraints []Constraint, vars []TypeVarLike) *Substitution {
	grouped := make(map[TypeVarID][]Constraint)
	for _, con := range constraints {
		grouped[con.Var] = append(grouped[con.Var], con)
	}

	solved := make(map[TypeVarID]Type)
	failed := make(map[TypeVarID]string)
	pendingIDs := make(map[TypeVarID]struct{}, len(vars))
	for _, v := range vars {
		pendingIDs[v.VarID()] = struct{}{}
	}

	pending := append([]TypeVarLike(nil), vars...)
	for round := 0; round < maxSolveRounds && len(pending) > 0; round++ {
		var deferred []TypeVarLike
		lastRound := round == maxSolveRounds-1
		for _, v := range pending {
			id := v.VarID()
			cons := substituteSolved(grouped[id], solved)
			if !lastRound && mentionsOthers(cons, id, pendingIDs) {
				// transitive dependency on a not-yet-solved variable:
				// propagate its resolution first
				deferred = append(deferred, v)
				continue
			}
			if lastRound {
				cons = eraseUnknowns(cons, pendingIDs)
			}
			solution, reason := c.solveOne(v, cons)
			delete(pendingIDs, id)
			if reason != "" {
				failed[id] = reason
				logger.Debug("constraint solving failed for variable", "section", "solve", "var", v.String(), "reason", reason)
			} else {
				solved[id] = solution
				logger.Debug("solved variable", "section", "solve", "var", v.String(), "solution", solution.String())
			}
		}
		pending = deferred
	}

	b := immutable.NewMapBuilder[TypeVarID, Type](typeVarIDHasher{})
	for id, t := range solved {
		b.Set(id, t)
	}
	return &Substitution{solved: b.Map(), failed: failed}
}

func substituteSolved(cons []Constraint, solved map[TypeVarID]Type) []Constraint {
	if len(solved) == 0 {
		return cons
	}
	out := make([]Constraint, len(cons))
	for i, con := range cons {
		con.Bound = applyTypeVarSubst(con.Bound, solved)
		out[i] = con
	}
	return out
}

func mentionsOthers(cons []Constraint, self TypeVarID, pending map[TypeVarID]struct{}) bool {
	for _, con := range cons {
		for id := range typeVarsIn(con.Bound) {
			if id == self {
				continue
			}
			if _, stillPending := pending[id]; stillPending {
				return true
			}
		}
	}
	return false
}

// eraseUnknowns replaces variables that never converged (cyclic through
// each other) with Any inside the bounds, so the final round terminates.
func eraseUnknowns(cons []Constraint, pending map[TypeVarID]struct{}) []Constraint {
	subst := make(map[TypeVarID]Type, len(pending))
	for id := range pending {
		subst[id] = AnyType{Source: AnyFromError}
	}
	return substituteSolved(cons, subst)
}

func (c *Checker) solveOne(v TypeVarLike, cons []Constraint) (Type, string) {
	switch v := v.(type) {
	case *TypeVarType:
		return c.solveTypeVar(v, cons)
	case *ParamSpecType:
		return c.solveParamSpec(v, cons)
	case *TypeVarTupleType:
		return c.solveTypeVarTuple(v, cons)
	}
	return nil, "unknown kind of type variable"
}

// solveTypeVar implements the interval solve: join of lower constraints,
// meet of upper constraints, then the tie-break
// lower, upper, default, declared bound, Any.
func (c *Checker) solveTypeVar(v *TypeVarType, cons []Constraint) (Type, string) {
	var lower, upper Type
	for _, con := range cons {
		if con.Dir == SupertypeOf {
			if lower == nil {
				lower = con.Bound
			} else {
				lower = c.Join(lower, con.Bound)
			}
		} else {
			if upper == nil {
				upper = con.Bound
			} else {
				upper = c.Meet(upper, con.Bound)
			}
		}
	}

	// a value-restricted variable resolves to exactly one of its listed
	// alternatives: the first every constraint is compatible with
	if len(v.Values) > 0 {
		for _, value := range v.Values {
			if lower != nil && !c.IsAssignable(lower, value) {
				continue
			}
			if upper != nil && !c.IsAssignable(value, upper) {
				continue
			}
			return value, ""
		}
		return nil, "no declared alternative satisfies the constraints"
	}

	var solution Type
	switch {
	case lower != nil && !isNever(lower):
		if upper != nil && !c.IsAssignable(lower, upper) {
			return nil, "lower bound " + lower.String() + " is incompatible with upper bound " + upper.String()
		}
		solution = lower
	case upper != nil:
		solution = upper
	case v.Default != nil:
		solution = v.Default
	case v.Bound != nil:
		solution = v.Bound
	default:
		return AnyType{}, ""
	}
	if v.Bound != nil && !c.IsAssignable(solution, v.Bound) {
		return nil, "solution " + solution.String() + " does not satisfy declared bound " + v.Bound.String()
	}
	return solution, ""
}

// solveParamSpec picks a literal parameter list. Competing captures must
// agree structurally.
func (c *Checker) solveParamSpec(v *ParamSpecType, cons []Constraint) (Type, string) {
	var captured *CallableType
	for _, con := range cons {
		ct, ok := c.resolve(con.Bound).(*CallableType)
		if !ok {
			if _, isAny := c.resolve(con.Bound).(AnyType); isAny {
				ct = &CallableType{Ret: AnyType{}, IsEllipsis: true}
			} else {
				return nil, "parameter-list constraint is not callable-shaped"
			}
		}
		if captured == nil {
			captured = ct
			continue
		}
		if captured.Hash() != ct.Hash() {
			return nil, "conflicting parameter-list captures"
		}
	}
	if captured != nil {
		return captured, ""
	}
	if v.Default != nil {
		return &CallableType{Params: v.Default, Ret: AnyType{}}, ""
	}
	// unconstrained: the gradual parameter list
	return &CallableType{Ret: AnyType{}, IsEllipsis: true}, ""
}

// solveTypeVarTuple joins fixed-arity tuple captures item-wise.
func (c *Checker) solveTypeVarTuple(v *TypeVarTupleType, cons []Constraint) (Type, string) {
	var lower *TupleType
	var uppers []*TupleType
	for _, con := range cons {
		tt, ok := c.resolve(con.Bound).(*TupleType)
		if !ok {
			if _, isAny := c.resolve(con.Bound).(AnyType); isAny {
				continue
			}
			return nil, "sequence constraint is not tuple-shaped"
		}
		if con.Dir == SubtypeOf {
			uppers = append(uppers, tt)
			continue
		}
		if lower == nil {
			lower = tt
			continue
		}
		if len(lower.Items) != len(tt.Items) {
			return nil, "conflicting sequence arities"
		}
		items := make([]Type, len(lower.Items))
		for i := range lower.Items {
			items[i] = c.Join(lower.Items[i], tt.Items[i])
		}
		lower = &TupleType{Items: items}
	}
	solution := lower
	if solution == nil && len(uppers) > 0 {
		solution = uppers[0]
	}
	if solution == nil {
		if v.Default != nil {
			if dt, ok := c.resolve(v.Default).(*TupleType); ok {
				return dt, ""
			}
		}
		return nil, "no constraints for sequence variable"
	}
	for _, up := range uppers {
		if !c.IsAssignable(solution, up) {
			return nil, "sequence solution does not satisfy an upper constraint"
		}
	}
	return solution, ""
}
