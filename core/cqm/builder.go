package cqm

import "fmt"

// Builder accumulates variables and constraints. It is not safe for
// concurrent use.
type Builder struct {
	m    *Model
	done bool
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{m: &Model{varIdx: make(map[string]int), conIdx: make(map[string]int)}}
}

// AddBinary declares a 0/1 variable.
func (b *Builder) AddBinary(label string) error {
	return b.AddVariable(Variable{Label: label, Type: Binary, Lower: 0, Upper: 1})
}

// AddInteger declares an integer variable with domain [lower, upper].
func (b *Builder) AddInteger(label string, lower, upper int64) error {
	return b.AddVariable(Variable{Label: label, Type: Integer, Lower: lower, Upper: upper})
}

// AddVariable declares v.
func (b *Builder) AddVariable(v Variable) error {
	if b.done {
		return ErrFinalized
	}
	if _, ok := b.m.varIdx[v.Label]; ok {
		return fmt.Errorf("variable %q: %w", v.Label, ErrDuplicateLabel)
	}
	if v.Type == Binary {
		v.Lower, v.Upper = 0, 1
	}
	if v.Lower > v.Upper {
		return fmt.Errorf("variable %q: empty domain [%d, %d]", v.Label, v.Lower, v.Upper)
	}
	b.m.varIdx[v.Label] = len(b.m.vars)
	b.m.vars = append(b.m.vars, v)
	return nil
}

// AddConstraint appends a copy of c.
func (b *Builder) AddConstraint(c Constraint) error {
	if b.done {
		return ErrFinalized
	}
	if _, ok := b.m.conIdx[c.Label]; ok {
		return fmt.Errorf("constraint %q: %w", c.Label, ErrDuplicateLabel)
	}
	if err := b.checkVars(c.Expr); err != nil {
		return fmt.Errorf("constraint %q: %w", c.Label, err)
	}
	if c.Weight < 0 {
		return fmt.Errorf("constraint %q: negative weight %v", c.Label, c.Weight)
	}
	c.Expr = c.Expr.clone()
	b.m.conIdx[c.Label] = len(b.m.cons)
	b.m.cons = append(b.m.cons, c)
	return nil
}

// SetObjective sets the expression to minimise.
func (b *Builder) SetObjective(e LinearExpr) error {
	if b.done {
		return ErrFinalized
	}
	if err := b.checkVars(e); err != nil {
		return fmt.Errorf("objective: %w", err)
	}
	b.m.objective = e.clone()
	return nil
}

// Model finalizes the builder. Any later call on the builder fails with
// ErrFinalized.
func (b *Builder) Model() (*Model, error) {
	if b.done {
		return nil, ErrFinalized
	}
	b.done = true
	return b.m, nil
}

func (b *Builder) checkVars(e LinearExpr) error {
	for _, t := range e.terms {
		if _, ok := b.m.varIdx[t.Var]; !ok {
			return fmt.Errorf("%w %q", ErrUnknownVariable, t.Var)
		}
	}
	return nil
}
