package fixture

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/pyrite-lang/pyrite/types"
)

// Result is the verdict of one query.
type Result struct {
	Query Query
	Got   string
	Pass  bool
	Err   error
}

// Run executes every query of the suite against a fresh Checker.
func (s *Suite) Run() []Result {
	checker := types.NewChecker(s.Env.Hier)
	results := make([]Result, 0, len(s.Queries))
	for _, q := range s.Queries {
		results = append(results, s.runOne(checker, q))
	}
	return results
}

func (s *Suite) runOne(c *types.Checker, q Query) Result {
	res := Result{Query: q}
	switch q.Kind {
	case "subtype", "assignable", "equivalent", "overlap":
		left, err := s.Env.ParseType(q.Left)
		if err != nil {
			res.Err = err
			return res
		}
		right, err := s.Env.ParseType(q.Right)
		if err != nil {
			res.Err = err
			return res
		}
		var got bool
		switch q.Kind {
		case "subtype":
			got = c.IsSubtype(left, right, s.mode(q))
		case "assignable":
			got = c.IsAssignable(left, right)
		case "equivalent":
			got = c.TypesEquivalent(left, right)
		case "overlap":
			got = c.MightOverlap(left, right)
		}
		res.Got = strconv.FormatBool(got)
		want, err := strconv.ParseBool(q.Expect)
		if err != nil {
			res.Err = errors.Wrap(err, "expect must be a boolean")
			return res
		}
		res.Pass = got == want
		return res

	case "join", "meet":
		left, err := s.Env.ParseType(q.Left)
		if err != nil {
			res.Err = err
			return res
		}
		right, err := s.Env.ParseType(q.Right)
		if err != nil {
			res.Err = err
			return res
		}
		var got types.Type
		if q.Kind == "join" {
			got = c.Join(left, right)
		} else {
			got = c.Meet(left, right)
		}
		res.Got = got.String()
		want, err := s.Env.ParseType(q.Expect)
		if err != nil {
			res.Err = errors.Wrap(err, "parsing expected type")
			return res
		}
		res.Pass = c.TypesEquivalent(got, want)
		return res

	case "infer":
		formal, err := s.Env.ParseType(q.Formal)
		if err != nil {
			res.Err = err
			return res
		}
		actual, err := s.Env.ParseType(q.Actual)
		if err != nil {
			res.Err = err
			return res
		}
		unknown, ok := s.Env.TypeVars[q.Var].(types.TypeVarLike)
		if !ok {
			res.Err = errors.Errorf("unknown type variable %q", q.Var)
			return res
		}
		cons := c.InferConstraints(formal, actual, types.SupertypeOf)
		sub := c.SolveConstraints(cons, []types.TypeVarLike{unknown})
		if reason, failedVar := sub.Failure(unknown.VarID()); failedVar {
			res.Got = "fail: " + reason
			res.Pass = q.Expect == "fail"
			return res
		}
		solution, _ := sub.Get(unknown.VarID())
		res.Got = solution.String()
		want, err := s.Env.ParseType(q.Expect)
		if err != nil {
			res.Err = errors.Wrap(err, "parsing expected type")
			return res
		}
		res.Pass = c.TypesEquivalent(solution, want)
		return res
	}
	res.Err = errors.Errorf("unknown query kind %q", q.Kind)
	return res
}

func (s *Suite) mode(q Query) types.SubtypeMode {
	switch q.Mode {
	case "assignable":
		return types.ModeAssignable
	case "structural":
		return types.ModeStructural
	default:
		return types.ModeProper
	}
}
