package cqm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// Relax solves the linear relaxation of m, with every variable continuous
// in its domain and soft constraints treated as hard, and returns the optimal
// objective. The result is a lower bound on the objective of any feasible
// sample. Models with more than maxVars variables are refused since the
// simplex works on dense matrices.
func Relax(m *Model, maxVars int) (float64, error) {
	n := m.NumVariables()
	if maxVars > 0 && n > maxVars {
		return 0, fmt.Errorf("%w: %d variables > %d", ErrTooLarge, n, maxVars)
	}
	col := make(map[string]int, n)
	for i, v := range m.vars {
		col[v.Label] = i
	}

	c := make([]float64, n)
	for _, t := range m.objective.terms {
		c[col[t.Var]] += float64(t.Coeff)
	}

	var gRows, aRows [][]float64
	var h, b []float64
	for _, con := range m.cons {
		row := make([]float64, n)
		for _, t := range con.Expr.terms {
			row[col[t.Var]] += float64(t.Coeff)
		}
		rhs := float64(con.RHS - con.Expr.offset)
		switch con.Sense {
		case LE:
			gRows, h = append(gRows, row), append(h, rhs)
		case GE:
			for i := range row {
				row[i] = -row[i]
			}
			gRows, h = append(gRows, row), append(h, -rhs)
		case EQ:
			aRows, b = append(aRows, row), append(b, rhs)
		}
	}
	for i, v := range m.vars {
		up := make([]float64, n)
		up[i] = 1
		lo := make([]float64, n)
		lo[i] = -1
		gRows = append(gRows, up, lo)
		h = append(h, float64(v.Upper), -float64(v.Lower))
	}

	cStd, aStd, bStd := lp.Convert(c, dense(gRows, n), h, dense(aRows, n), b)
	opt, _, err := lp.Simplex(cStd, aStd, bStd, 1e-7, nil)
	if err != nil {
		return 0, fmt.Errorf("simplex: %w", err)
	}
	return opt + float64(m.objective.offset), nil
}

func dense(rows [][]float64, n int) mat.Matrix {
	if len(rows) == 0 {
		return nil
	}
	d := mat.NewDense(len(rows), n, nil)
	for i, r := range rows {
		d.SetRow(i, r)
	}
	return d
}
