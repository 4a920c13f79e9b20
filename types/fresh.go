package types

// Fresher allocates type-variable identities. Identities are allocated once
// per declaration and never reused within a checking run; everything keyed
// by TypeVarID relies on that.
type Fresher struct {
	next TypeVarID
}

func NewFresher() *Fresher {
	return &Fresher{next: 1}
}

func (f *Fresher) fresh() TypeVarID {
	id := f.next
	f.next++
	return id
}

// NewTypeVar declares a fresh type variable. bound and values are mutually
// exclusive; passing both keeps only values.
func (f *Fresher) NewTypeVar(name string, variance Variance, bound Type, values ...Type) *TypeVarType {
	tv := &TypeVarType{
		ID:       f.fresh(),
		Name:     name,
		Variance: variance,
		Bound:    bound,
		Values:   values,
	}
	if len(values) > 0 {
		tv.Bound = nil
	}
	return tv
}

func (f *Fresher) NewParamSpec(name string) *ParamSpecType {
	return &ParamSpecType{ID: f.fresh(), Name: name}
}

func (f *Fresher) NewTypeVarTuple(name string) *TypeVarTupleType {
	return &TypeVarTupleType{ID: f.fresh(), Name: name}
}
