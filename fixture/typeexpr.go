package fixture

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"github.com/pyrite-lang/pyrite/types"
)

// Env is the name scope a fixture's type expressions resolve against:
// registered classes, alias definitions, and declared type variables.
type Env struct {
	Hier     *types.Hierarchy
	Fresher  *types.Fresher
	Aliases  map[string]*types.AliasDef
	TypeVars map[string]types.Type
}

func NewEnv() *Env {
	f := types.NewFresher()
	return &Env{
		Hier:     types.NewBuiltins(f),
		Fresher:  f,
		Aliases:  map[string]*types.AliasDef{},
		TypeVars: map[string]types.Type{},
	}
}

// ParseType reads one type expression, e.g.
//
//	dict[str, Union[int, None]]
//	Callable[[int, str], bool]
//	Tuple[int, ...]
//	Literal["on", "off"]
func (e *Env) ParseType(src string) (types.Type, error) {
	p := &typeParser{src: src, env: e}
	t, err := p.parse()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, errors.Errorf("trailing input at %d in %q", p.pos, src)
	}
	return t, nil
}

type typeParser struct {
	src string
	pos int
	env *Env
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *typeParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *typeParser) expect(ch byte) error {
	p.skipSpace()
	if p.peek() != ch {
		return errors.Errorf("expected %q at %d in %q", string(ch), p.pos, p.src)
	}
	p.pos++
	return nil
}

func (p *typeParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		r := rune(p.src[p.pos])
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' {
			p.pos++
		} else {
			break
		}
	}
	return p.src[start:p.pos]
}

func (p *typeParser) parse() (types.Type, error) {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], "...") {
		return nil, errors.New("'...' is only valid inside Tuple or Callable")
	}
	name := p.ident()
	if name == "" {
		return nil, errors.Errorf("expected a type at %d in %q", p.pos, p.src)
	}
	switch name {
	case "None":
		return types.NoneType{}, nil
	case "Any":
		return types.AnyType{}, nil
	case "Never", "NoReturn":
		return types.NeverType{}, nil
	case "Union":
		items, err := p.argList()
		if err != nil {
			return nil, err
		}
		return types.NewUnion(items...), nil
	case "Optional":
		items, err := p.argList()
		if err != nil {
			return nil, err
		}
		if len(items) != 1 {
			return nil, errors.New("Optional takes exactly one argument")
		}
		return types.NewUnion(items[0], types.NoneType{}), nil
	case "Tuple", "tuple":
		return p.tupleArgs()
	case "Literal":
		return p.literalArgs()
	case "Callable":
		return p.callableArgs()
	case "Unpack":
		items, err := p.argList()
		if err != nil {
			return nil, err
		}
		if len(items) != 1 {
			return nil, errors.New("Unpack takes exactly one argument")
		}
		return &types.UnpackType{Inner: items[0]}, nil
	}

	if tv, ok := p.env.TypeVars[name]; ok {
		return tv, nil
	}
	if def, ok := p.env.Aliases[name]; ok {
		args, err := p.maybeArgList()
		if err != nil {
			return nil, err
		}
		return &types.AliasType{Def: def, Args: args}, nil
	}
	if _, ok := p.env.Hier.Class(name); ok {
		args, err := p.maybeArgList()
		if err != nil {
			return nil, err
		}
		return p.env.Hier.Inst(name, args...), nil
	}
	return nil, errors.Errorf("unknown type name %q", name)
}

func (p *typeParser) maybeArgList() ([]types.Type, error) {
	p.skipSpace()
	if p.peek() != '[' {
		return nil, nil
	}
	return p.argList()
}

func (p *typeParser) argList() ([]types.Type, error) {
	if err := p.expect('['); err != nil {
		return nil, err
	}
	var items []types.Type
	for {
		item, err := p.parse()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		p.skipSpace()
		if p.peek() == ',' {
			p.pos++
			continue
		}
		break
	}
	return items, p.expect(']')
}

// tupleArgs handles the homogeneous shorthand Tuple[X, ...] alongside
// fixed-length and Unpack forms.
func (p *typeParser) tupleArgs() (types.Type, error) {
	p.skipSpace()
	if p.peek() != '[' {
		inst := p.env.Hier.Inst("tuple")
		return inst, nil
	}
	if err := p.expect('['); err != nil {
		return nil, err
	}
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], "()") {
		p.pos += 2
		if err := p.expect(']'); err != nil {
			return nil, err
		}
		return &types.TupleType{}, nil
	}
	var items []types.Type
	for {
		p.skipSpace()
		if strings.HasPrefix(p.src[p.pos:], "...") {
			p.pos += 3
			if len(items) != 1 {
				return nil, errors.New("'...' must follow exactly one tuple item")
			}
			if err := p.expect(']'); err != nil {
				return nil, err
			}
			elem := p.env.Hier.Inst("tuple", items[0])
			return &types.TupleType{Items: []types.Type{&types.UnpackType{Inner: elem}}}, nil
		}
		item, err := p.parse()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		p.skipSpace()
		if p.peek() == ',' {
			p.pos++
			continue
		}
		break
	}
	if err := p.expect(']'); err != nil {
		return nil, err
	}
	return &types.TupleType{Items: items}, nil
}

func (p *typeParser) literalArgs() (types.Type, error) {
	if err := p.expect('['); err != nil {
		return nil, err
	}
	var items []types.Type
	for {
		value, fallbackName, err := p.literalValue()
		if err != nil {
			return nil, err
		}
		items = append(items, &types.LiteralType{
			Value:    value,
			Fallback: p.env.Hier.Inst(fallbackName),
		})
		p.skipSpace()
		if p.peek() == ',' {
			p.pos++
			continue
		}
		break
	}
	if err := p.expect(']'); err != nil {
		return nil, err
	}
	return types.NewUnion(items...), nil
}

func (p *typeParser) literalValue() (types.LitValue, string, error) {
	p.skipSpace()
	ch := p.peek()
	switch {
	case ch == '"' || ch == '\'':
		quote := ch
		p.pos++
		start := p.pos
		for p.pos < len(p.src) && p.src[p.pos] != quote {
			p.pos++
		}
		if p.pos >= len(p.src) {
			return types.LitValue{}, "", errors.New("unterminated string literal")
		}
		s := p.src[start:p.pos]
		p.pos++
		return types.StrLit(s), "str", nil
	case ch == '-' || unicode.IsDigit(rune(ch)):
		start := p.pos
		if ch == '-' {
			p.pos++
		}
		for p.pos < len(p.src) && unicode.IsDigit(rune(p.src[p.pos])) {
			p.pos++
		}
		i, err := strconv.ParseInt(p.src[start:p.pos], 10, 64)
		if err != nil {
			return types.LitValue{}, "", errors.Wrap(err, "bad integer literal")
		}
		return types.IntLit(i), "int", nil
	default:
		word := p.ident()
		switch word {
		case "True":
			return types.BoolLit(true), "bool", nil
		case "False":
			return types.BoolLit(false), "bool", nil
		}
		return types.LitValue{}, "", errors.Errorf("unsupported literal %q", word)
	}
}

// callableArgs reads Callable[[params], ret] or Callable[..., ret].
func (p *typeParser) callableArgs() (types.Type, error) {
	if err := p.expect('['); err != nil {
		return nil, err
	}
	p.skipSpace()
	ct := &types.CallableType{}
	if strings.HasPrefix(p.src[p.pos:], "...") {
		p.pos += 3
		ct.IsEllipsis = true
	} else {
		if err := p.expect('['); err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.peek() != ']' {
			for {
				item, err := p.parse()
				if err != nil {
					return nil, err
				}
				ct.Params = append(ct.Params, types.Param{Kind: types.PosOnly, Typ: item})
				p.skipSpace()
				if p.peek() == ',' {
					p.pos++
					continue
				}
				break
			}
		}
		if err := p.expect(']'); err != nil {
			return nil, err
		}
	}
	if err := p.expect(','); err != nil {
		return nil, err
	}
	ret, err := p.parse()
	if err != nil {
		return nil, err
	}
	ct.Ret = ret
	return ct, p.expect(']')
}
