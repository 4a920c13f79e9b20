// Package fixture loads YAML conformance fixtures: small declarative files
// that stand in for the excluded semantic-analysis pass, so the engines can
// be driven against a realistic hierarchy without a frontend.
package fixture

import (
	"os"

	"github.com/pkg/errors"
	"github.com/pyrite-lang/pyrite/internal/log"
	"github.com/pyrite-lang/pyrite/types"
	"gopkg.in/yaml.v3"
)

var logger = log.DefaultLogger.With("section", "fixture")

// File is the on-disk shape of a fixture.
type File struct {
	TypeVars []TypeVarDecl `yaml:"typevars"`
	Classes  []ClassDecl   `yaml:"classes"`
	Aliases  []AliasDecl   `yaml:"aliases"`
	Queries  []Query       `yaml:"queries"`
}

type TypeVarDecl struct {
	Name     string   `yaml:"name"`
	Kind     string   `yaml:"kind"` // typevar (default), paramspec, typevartuple
	Variance string   `yaml:"variance"`
	Bound    string   `yaml:"bound"`
	Values   []string `yaml:"values"`
	Default  string   `yaml:"default"`
}

type MemberDecl struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	ReadOnly bool   `yaml:"readonly"`
}

type ClassDecl struct {
	Name     string       `yaml:"name"`
	Bases    []string     `yaml:"bases"`
	Params   []string     `yaml:"params"`
	Protocol bool         `yaml:"protocol"`
	Final    bool         `yaml:"final"`
	Promotes []string     `yaml:"promotes"`
	Members  []MemberDecl `yaml:"members"`
}

type AliasDecl struct {
	Name   string   `yaml:"name"`
	Params []string `yaml:"params"`
	Target string   `yaml:"target"`
}

// Query is one check to run against the engines.
type Query struct {
	Kind   string `yaml:"kind"` // subtype, assignable, equivalent, overlap, join, meet, infer
	Mode   string `yaml:"mode"` // proper (default), assignable, structural
	Left   string `yaml:"left"`
	Right  string `yaml:"right"`
	Formal string `yaml:"formal"`
	Actual string `yaml:"actual"`
	Var    string `yaml:"var"`
	Expect string `yaml:"expect"`
}

// Suite is a loaded fixture, ready to run.
type Suite struct {
	Env     *Env
	Queries []Query
}

// Load reads and resolves a fixture file. Declarations may reference each
// other freely: classes and aliases are registered before any type
// expression is parsed.
func Load(path string) (*Suite, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading fixture")
	}
	var file File
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, errors.Wrap(err, "decoding fixture yaml")
	}
	return Build(&file)
}

// Build resolves a decoded fixture into an Env plus its queries.
func Build(file *File) (*Suite, error) {
	env := NewEnv()

	for _, decl := range file.TypeVars {
		if err := declareTypeVar(env, decl); err != nil {
			return nil, err
		}
	}

	// register alias names first so targets may be self- or
	// mutually-recursive
	for _, decl := range file.Aliases {
		def := &types.AliasDef{Name: decl.Name}
		for _, p := range decl.Params {
			tv, ok := env.TypeVars[p].(*types.TypeVarType)
			if !ok {
				return nil, errors.Errorf("alias %s: unknown type parameter %q", decl.Name, p)
			}
			def.TypeParams = append(def.TypeParams, tv)
		}
		env.Aliases[decl.Name] = def
	}

	// classes in declaration order: bases must already exist
	for _, decl := range file.Classes {
		if err := declareClass(env, decl); err != nil {
			return nil, err
		}
	}

	// second pass: members and alias targets, now that every name resolves
	for _, decl := range file.Classes {
		cls, _ := env.Hier.Class(decl.Name)
		for _, m := range decl.Members {
			typ, err := env.ParseType(m.Type)
			if err != nil {
				return nil, errors.Wrapf(err, "member %s.%s", decl.Name, m.Name)
			}
			if m.ReadOnly {
				cls.SetReadOnlyMember(m.Name, typ)
			} else {
				cls.SetMember(m.Name, typ)
			}
		}
	}
	for _, decl := range file.Aliases {
		target, err := env.ParseType(decl.Target)
		if err != nil {
			return nil, errors.Wrapf(err, "alias %s", decl.Name)
		}
		env.Aliases[decl.Name].Target = target
	}

	logger.Debug("fixture loaded",
		"classes", len(file.Classes), "aliases", len(file.Aliases), "queries", len(file.Queries))
	return &Suite{Env: env, Queries: file.Queries}, nil
}

func declareTypeVar(env *Env, decl TypeVarDecl) error {
	switch decl.Kind {
	case "paramspec":
		env.TypeVars[decl.Name] = env.Fresher.NewParamSpec(decl.Name)
		return nil
	case "typevartuple":
		env.TypeVars[decl.Name] = env.Fresher.NewTypeVarTuple(decl.Name)
		return nil
	case "", "typevar":
	default:
		return errors.Errorf("typevar %s: unknown kind %q", decl.Name, decl.Kind)
	}

	variance := types.Invariant
	switch decl.Variance {
	case "", "invariant":
	case "covariant":
		variance = types.Covariant
	case "contravariant":
		variance = types.Contravariant
	default:
		return errors.Errorf("typevar %s: unknown variance %q", decl.Name, decl.Variance)
	}
	var bound types.Type
	if decl.Bound != "" {
		parsed, err := env.ParseType(decl.Bound)
		if err != nil {
			return errors.Wrapf(err, "typevar %s bound", decl.Name)
		}
		bound = parsed
	}
	var values []types.Type
	for _, v := range decl.Values {
		parsed, err := env.ParseType(v)
		if err != nil {
			return errors.Wrapf(err, "typevar %s value", decl.Name)
		}
		values = append(values, parsed)
	}
	tv := env.Fresher.NewTypeVar(decl.Name, variance, bound, values...)
	if decl.Default != "" {
		parsed, err := env.ParseType(decl.Default)
		if err != nil {
			return errors.Wrapf(err, "typevar %s default", decl.Name)
		}
		tv.Default = parsed
	}
	env.TypeVars[decl.Name] = tv
	return nil
}

func declareClass(env *Env, decl ClassDecl) error {
	var params []*types.TypeVarType
	for _, p := range decl.Params {
		tv, ok := env.TypeVars[p].(*types.TypeVarType)
		if !ok {
			return errors.Errorf("class %s: unknown type parameter %q", decl.Name, p)
		}
		params = append(params, tv)
	}
	var bases []*types.Instance
	for _, b := range decl.Bases {
		parsed, err := env.ParseType(b)
		if err != nil {
			return errors.Wrapf(err, "class %s base", decl.Name)
		}
		inst, ok := parsed.(*types.Instance)
		if !ok {
			return errors.Errorf("class %s: base %q is not a class", decl.Name, b)
		}
		bases = append(bases, inst)
	}
	cls := types.NewClassInfo(decl.Name, bases, params...)
	cls.IsProtocol = decl.Protocol
	cls.IsFinal = decl.Final
	for _, p := range decl.Promotes {
		target, ok := env.Hier.Class(p)
		if !ok {
			return errors.Errorf("class %s promotes to unknown class %q", decl.Name, p)
		}
		cls.Promotions = append(cls.Promotions, target)
	}
	env.Hier.Define(cls)
	return nil
}
