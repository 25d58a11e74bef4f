package cqm

import "math"

// Sample maps variable labels to assigned values.
type Sample map[string]float64

// Term is a single coefficient-variable product.
type Term struct {
	Var   string `json:"var"`
	Coeff int64  `json:"coeff"`
}

// LinearExpr is a weighted sum of variables plus a constant offset.
type LinearExpr struct {
	terms  []Term
	offset int64
}

// NewLinearExpr returns an empty expression.
func NewLinearExpr() *LinearExpr { return &LinearExpr{} }

// AddTerm adds coeff*v and returns the expression.
func (l *LinearExpr) AddTerm(v string, coeff int64) *LinearExpr {
	l.terms = append(l.terms, Term{Var: v, Coeff: coeff})
	return l
}

// AddConstant adds c to the offset and returns the expression.
func (l *LinearExpr) AddConstant(c int64) *LinearExpr {
	l.offset += c
	return l
}

// AddExpr adds scale*e and returns the expression.
func (l *LinearExpr) AddExpr(e LinearExpr, scale int64) *LinearExpr {
	for _, t := range e.terms {
		l.terms = append(l.terms, Term{Var: t.Var, Coeff: t.Coeff * scale})
	}
	l.offset += e.offset * scale
	return l
}

// Terms returns a copy of the terms in insertion order.
func (l LinearExpr) Terms() []Term {
	return append([]Term(nil), l.terms...)
}

// Offset returns the constant part.
func (l LinearExpr) Offset() int64 { return l.offset }

// Len returns the number of terms.
func (l LinearExpr) Len() int { return len(l.terms) }

// Coeff returns the summed coefficient of v.
func (l LinearExpr) Coeff(v string) int64 {
	var c int64
	for _, t := range l.terms {
		if t.Var == v {
			c += t.Coeff
		}
	}
	return c
}

// Evaluate computes the value of the expression under s. Missing variables
// count as zero.
func (l LinearExpr) Evaluate(s Sample) float64 {
	sum := float64(l.offset)
	for _, t := range l.terms {
		sum += float64(t.Coeff) * s[t.Var]
	}
	return sum
}

// Bounds returns the minimum and maximum the expression can take given the
// variable domains in vars.
func (l LinearExpr) Bounds(vars map[string]Variable) (lo, hi float64) {
	lo, hi = float64(l.offset), float64(l.offset)
	for _, t := range l.terms {
		v := vars[t.Var]
		a := float64(t.Coeff) * float64(v.Lower)
		b := float64(t.Coeff) * float64(v.Upper)
		lo += math.Min(a, b)
		hi += math.Max(a, b)
	}
	return lo, hi
}

func (l LinearExpr) clone() LinearExpr {
	return LinearExpr{terms: l.Terms(), offset: l.offset}
}
