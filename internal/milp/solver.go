package milp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// ErrBadModel reports a structurally invalid model (for example a variable
// whose lower bound exceeds its upper bound).
var ErrBadModel = errors.New("milp: invalid model")

// Options bounds the search effort of a solve.
type Options struct {
	// TimeLimit is the wall-clock budget. Zero means no limit. When the
	// budget runs out the best incumbent found so far is returned rather
	// than aborting mid-node.
	TimeLimit time.Duration

	// MaxNodes caps the number of branch-and-bound nodes. Zero means no cap.
	MaxNodes int

	// IntTol is the integrality tolerance for binary variables. Values
	// within IntTol of 0 or 1 count as integral. Defaults to 1e-6.
	IntTol float64
}

// Result is the outcome of one solve attempt.
type Result struct {
	Status Status

	// Objective is the objective value of the returned solution in the
	// model's sense. Only meaningful when Status.HasSolution().
	Objective float64

	// Values holds one value per model variable, indexed by Var.
	Values []float64

	// Nodes is the number of branch-and-bound nodes explored.
	Nodes int
}

// Value returns the solved value of a variable.
func (r Result) Value(v Var) float64 {
	return r.Values[v]
}

const (
	simplexTol = 1e-10
	pruneEps   = 1e-9
)

// Solve runs branch-and-bound on the model. Each node's LP relaxation is
// converted to standard form and solved with gonum's simplex. The search is
// depth-first, branching on the most fractional binary, pruning nodes whose
// relaxation bound cannot beat the incumbent.
//
// Exactly one search is performed; the engine never retries or relaxes
// constraints on its own.
func Solve(ctx context.Context, m *Model, opts Options) (Result, error) {
	if !m.validBounds() {
		return Result{}, fmt.Errorf("%w: variable bounds are inconsistent", ErrBadModel)
	}
	if opts.IntTol <= 0 {
		opts.IntTol = 1e-6
	}

	if m.NumVars() == 0 {
		return Result{Status: StatusOptimal}, nil
	}

	var deadline time.Time
	if opts.TimeLimit > 0 {
		deadline = time.Now().Add(opts.TimeLimit)
	}

	// Internally always minimize; flip the sign back when reporting.
	negate := m.sense == Maximize

	root := node{lower: append([]float64(nil), m.lower...), upper: append([]float64(nil), m.upper...)}
	stack := []node{root}

	var (
		bestX   []float64
		bestF   = math.Inf(1)
		nodes   int
		budget  bool
		hasBest bool
	)

	for len(stack) > 0 {
		if ctxDone(ctx) || (!deadline.IsZero() && time.Now().After(deadline)) || (opts.MaxNodes > 0 && nodes >= opts.MaxNodes) {
			budget = true
			break
		}

		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		f, x, err := m.relax(n.lower, n.upper, negate)
		switch {
		case errors.Is(err, lp.ErrInfeasible):
			if nodes == 1 {
				return Result{Status: StatusInfeasible, Nodes: nodes}, nil
			}
			continue
		case errors.Is(err, lp.ErrUnbounded):
			// A bounded-binary model can only be unbounded through its
			// continuous part, so any unbounded relaxation is terminal.
			return Result{Status: StatusUnbounded, Nodes: nodes}, nil
		case err != nil:
			return Result{}, fmt.Errorf("milp: relaxation failed at node %d: %w", nodes, err)
		}

		if hasBest && f >= bestF-pruneEps {
			continue
		}

		branch := m.mostFractionalBinary(x, opts.IntTol)
		if branch < 0 {
			if !hasBest || f < bestF {
				bestF = f
				bestX = append(bestX[:0], x...)
				hasBest = true
			}
			continue
		}

		// Explore the rounding-closer side first (it is pushed last).
		zero, one := n.fix(branch, 0), n.fix(branch, 1)
		if x[branch] >= 0.5 {
			stack = append(stack, zero, one)
		} else {
			stack = append(stack, one, zero)
		}
	}

	res := Result{Nodes: nodes}
	switch {
	case hasBest && !budget:
		res.Status = StatusOptimal
	case hasBest:
		res.Status = StatusFeasible
	case budget:
		res.Status = StatusNotSolved
	default:
		// Search completed without any integral solution.
		res.Status = StatusInfeasible
	}

	if hasBest {
		res.Values = bestX
		res.Objective = bestF
		if negate {
			res.Objective = -bestF
		}
	}
	return res, nil
}

type node struct {
	lower []float64
	upper []float64
}

// fix returns a child node with a variable pinned to value.
func (n node) fix(v int, value float64) node {
	child := node{
		lower: append([]float64(nil), n.lower...),
		upper: append([]float64(nil), n.upper...),
	}
	child.lower[v] = value
	child.upper[v] = value
	return child
}

// relax solves the LP relaxation of the model under the given bounds and
// returns the (minimization) objective value and variable values.
func (m *Model) relax(lower, upper []float64, negate bool) (float64, []float64, error) {
	numVars := m.NumVars()

	c := make([]float64, numVars)
	for _, t := range m.objective {
		coef := t.Coef
		if negate {
			coef = -coef
		}
		c[t.Var] += coef
	}

	// Inequality rows: model constraints plus explicit bound rows, since the
	// general form treats variables as free.
	var ineqRows, eqRows int
	for _, con := range m.constraints {
		if con.Op == Equal {
			eqRows++
		} else {
			ineqRows++
		}
	}
	for i := 0; i < numVars; i++ {
		if !math.IsInf(lower[i], -1) {
			ineqRows++
		}
		if !math.IsInf(upper[i], 1) {
			ineqRows++
		}
	}

	g := mat.NewDense(ineqRows, numVars, nil)
	h := make([]float64, ineqRows)

	var a *mat.Dense
	var b []float64
	if eqRows > 0 {
		a = mat.NewDense(eqRows, numVars, nil)
		b = make([]float64, eqRows)
	}

	gi, ai := 0, 0
	for _, con := range m.constraints {
		switch con.Op {
		case Equal:
			for _, t := range con.Terms {
				a.Set(ai, int(t.Var), a.At(ai, int(t.Var))+t.Coef)
			}
			b[ai] = con.RHS
			ai++
		case LessEq:
			for _, t := range con.Terms {
				g.Set(gi, int(t.Var), g.At(gi, int(t.Var))+t.Coef)
			}
			h[gi] = con.RHS
			gi++
		case GreaterEq:
			for _, t := range con.Terms {
				g.Set(gi, int(t.Var), g.At(gi, int(t.Var))-t.Coef)
			}
			h[gi] = -con.RHS
			gi++
		}
	}
	for i := 0; i < numVars; i++ {
		if !math.IsInf(lower[i], -1) {
			g.Set(gi, i, -1)
			h[gi] = -lower[i]
			gi++
		}
		if !math.IsInf(upper[i], 1) {
			g.Set(gi, i, 1)
			h[gi] = upper[i]
			gi++
		}
	}

	// Pass an untyped nil when there are no equality rows; a typed nil
	// *mat.Dense would not compare equal to nil inside Convert.
	var aMat mat.Matrix
	if a != nil {
		aMat = a
	}
	cStd, aStd, bStd := lp.Convert(c, g, h, aMat, b)

	f, xStd, err := lp.Simplex(cStd, aStd, bStd, simplexTol, nil)
	if err != nil {
		return 0, nil, err
	}

	// Convert recovers x as the difference of its positive and negative parts.
	x := make([]float64, numVars)
	for i := 0; i < numVars; i++ {
		x[i] = xStd[i] - xStd[numVars+i]
	}
	return f, x, nil
}

// mostFractionalBinary returns the binary variable farthest from integrality,
// or -1 if every binary is integral within tol.
func (m *Model) mostFractionalBinary(x []float64, tol float64) int {
	best := -1
	bestFrac := tol
	for i, t := range m.types {
		if t != Binary {
			continue
		}
		frac := math.Min(x[i]-math.Floor(x[i]), math.Ceil(x[i])-x[i])
		if frac > bestFrac {
			bestFrac = frac
			best = i
		}
	}
	return best
}

func ctxDone(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
