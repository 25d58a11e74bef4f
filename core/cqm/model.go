package cqm

import (
	"encoding/json"
	"fmt"
	"math"
)

// Vartype is the domain kind of a variable.
type Vartype int

const (
	Binary Vartype = iota
	Integer
)

func (t Vartype) String() string {
	switch t {
	case Binary:
		return "BINARY"
	case Integer:
		return "INTEGER"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Vartype) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Vartype) UnmarshalText(b []byte) error {
	switch string(b) {
	case "BINARY":
		*t = Binary
	case "INTEGER":
		*t = Integer
	default:
		return fmt.Errorf("unknown vartype %q", string(b))
	}
	return nil
}

// Variable is a decision variable with an inclusive integer domain.
type Variable struct {
	Label string  `json:"label"`
	Type  Vartype `json:"type"`
	Lower int64   `json:"lower"`
	Upper int64   `json:"upper"`
}

// Sense is the comparison operator of a constraint.
type Sense int

const (
	LE Sense = iota
	GE
	EQ
)

func (s Sense) String() string {
	switch s {
	case LE:
		return "<="
	case GE:
		return ">="
	case EQ:
		return "=="
	default:
		return "?"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Sense) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Sense) UnmarshalText(b []byte) error {
	switch string(b) {
	case "<=":
		*s = LE
	case ">=":
		*s = GE
	case "==":
		*s = EQ
	default:
		return fmt.Errorf("unknown sense %q", string(b))
	}
	return nil
}

// Constraint is a labelled linear constraint expr <sense> rhs.
type Constraint struct {
	Label string
	Expr  LinearExpr
	Sense Sense
	RHS   int64
	// Weight turns the constraint into a soft one with the given penalty on
	// solvers that support it. Zero means hard.
	Weight float64
}

// Violation returns by how much the constraint is violated under s; zero
// means satisfied.
func (c Constraint) Violation(s Sample) float64 {
	lhs := c.Expr.Evaluate(s)
	rhs := float64(c.RHS)
	switch c.Sense {
	case LE:
		return math.Max(0, lhs-rhs)
	case GE:
		return math.Max(0, rhs-lhs)
	default:
		return math.Abs(lhs - rhs)
	}
}

// Violation describes one failed check of a sample against a model.
type Violation struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// Model is a finalized constrained model. It is safe for concurrent reads.
type Model struct {
	vars      []Variable
	varIdx    map[string]int
	cons      []Constraint
	conIdx    map[string]int
	objective LinearExpr
}

// NumVariables returns the number of declared variables.
func (m *Model) NumVariables() int { return len(m.vars) }

// NumConstraints returns the number of constraints.
func (m *Model) NumConstraints() int { return len(m.cons) }

// Variables returns a copy of the variables in declaration order.
func (m *Model) Variables() []Variable { return append([]Variable(nil), m.vars...) }

// Variable looks a variable up by label.
func (m *Model) Variable(label string) (Variable, bool) {
	i, ok := m.varIdx[label]
	if !ok {
		return Variable{}, false
	}
	return m.vars[i], true
}

// Constraints returns a copy of the constraints in insertion order.
func (m *Model) Constraints() []Constraint {
	out := make([]Constraint, len(m.cons))
	for i, c := range m.cons {
		c.Expr = c.Expr.clone()
		out[i] = c
	}
	return out
}

// Constraint looks a constraint up by label.
func (m *Model) Constraint(label string) (Constraint, bool) {
	i, ok := m.conIdx[label]
	if !ok {
		return Constraint{}, false
	}
	c := m.cons[i]
	c.Expr = c.Expr.clone()
	return c, true
}

// Objective returns the expression to minimise.
func (m *Model) Objective() LinearExpr { return m.objective.clone() }

// Energy returns the objective value of s.
func (m *Model) Energy(s Sample) float64 { return m.objective.Evaluate(s) }

// Violations lists every variable domain and constraint violated by s beyond
// tol. Variables missing from s are reported as violations of their domain.
func (m *Model) Violations(s Sample, tol float64) []Violation {
	var out []Violation
	for _, v := range m.vars {
		if amt := domainViolation(v, s); amt > tol {
			out = append(out, Violation{Label: "variable " + v.Label, Amount: amt})
		}
	}
	for _, c := range m.cons {
		if amt := c.Violation(s); amt > tol {
			out = append(out, Violation{Label: c.Label, Amount: amt})
		}
	}
	return out
}

// CheckFeasible reports whether s satisfies every constraint and variable
// domain within tol.
func (m *Model) CheckFeasible(s Sample, tol float64) bool {
	for _, v := range m.vars {
		if domainViolation(v, s) > tol {
			return false
		}
	}
	for _, c := range m.cons {
		if c.Violation(s) > tol {
			return false
		}
	}
	return true
}

func domainViolation(v Variable, s Sample) float64 {
	x, ok := s[v.Label]
	if !ok {
		return math.Inf(1)
	}
	var amt float64
	if x < float64(v.Lower) {
		amt = float64(v.Lower) - x
	} else if x > float64(v.Upper) {
		amt = x - float64(v.Upper)
	}
	return math.Max(amt, math.Abs(x-math.Round(x)))
}

func (m *Model) variableMap() map[string]Variable {
	out := make(map[string]Variable, len(m.vars))
	for _, v := range m.vars {
		out[v.Label] = v
	}
	return out
}

type wireExpr struct {
	Terms  []Term `json:"terms"`
	Offset int64  `json:"offset,omitempty"`
}

type wireConstraint struct {
	Label  string  `json:"label"`
	Terms  []Term  `json:"terms"`
	Offset int64   `json:"offset,omitempty"`
	Sense  Sense   `json:"sense"`
	RHS    int64   `json:"rhs"`
	Weight float64 `json:"weight,omitempty"`
}

type wireModel struct {
	Variables   []Variable       `json:"variables"`
	Objective   wireExpr         `json:"objective"`
	Constraints []wireConstraint `json:"constraints"`
}

// MarshalJSON encodes the model in the form sent to solver gateways.
func (m *Model) MarshalJSON() ([]byte, error) {
	w := wireModel{
		Variables:   m.vars,
		Objective:   wireExpr{Terms: m.objective.terms, Offset: m.objective.offset},
		Constraints: make([]wireConstraint, len(m.cons)),
	}
	for i, c := range m.cons {
		w.Constraints[i] = wireConstraint{
			Label: c.Label, Terms: c.Expr.terms, Offset: c.Expr.offset,
			Sense: c.Sense, RHS: c.RHS, Weight: c.Weight,
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a model and re-validates it through a Builder.
func (m *Model) UnmarshalJSON(data []byte) error {
	var w wireModel
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	b := NewBuilder()
	for _, v := range w.Variables {
		if err := b.AddVariable(v); err != nil {
			return err
		}
	}
	for _, c := range w.Constraints {
		err := b.AddConstraint(Constraint{
			Label: c.Label, Expr: LinearExpr{terms: c.Terms, offset: c.Offset},
			Sense: c.Sense, RHS: c.RHS, Weight: c.Weight,
		})
		if err != nil {
			return err
		}
	}
	if err := b.SetObjective(LinearExpr{terms: w.Objective.Terms, offset: w.Objective.Offset}); err != nil {
		return err
	}
	built, err := b.Model()
	if err != nil {
		return err
	}
	*m = *built
	return nil
}
