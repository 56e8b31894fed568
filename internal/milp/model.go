// Package milp provides a small mixed-integer linear programming layer: a
// typed model of variables, linear constraints and a linear objective, and a
// solving engine implementing branch-and-bound over simplex relaxations.
//
// The package is generic over problem domains; callers build a Model, hand it
// to Solve and read variable values back out of the Result.
package milp

import "math"

// Sense is the optimization direction of the objective.
type Sense int

const (
	Minimize Sense = iota
	Maximize
)

// VarType distinguishes continuous from binary decision variables.
type VarType int

const (
	Continuous VarType = iota
	Binary
)

// Var is an opaque handle to a decision variable in a Model.
type Var int

// Op is a constraint comparison operator.
type Op int

const (
	LessEq Op = iota
	GreaterEq
	Equal
)

// Term is one coefficient-variable product of a linear expression.
type Term struct {
	Var  Var
	Coef float64
}

// Constraint is a named linear constraint: sum(Terms) Op RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Op    Op
	RHS   float64
}

// Model is a mutable MILP under construction. It is not safe for concurrent
// use; each solve owns its own Model.
type Model struct {
	sense Sense

	names []string
	types []VarType
	lower []float64
	upper []float64

	constraints []Constraint
	objective   []Term
}

// NewModel creates an empty model with the given objective sense.
func NewModel(sense Sense) *Model {
	return &Model{sense: sense}
}

// AddContinuous adds a bounded continuous variable and returns its handle.
// Use math.Inf(1) for an unbounded upper limit.
func (m *Model) AddContinuous(name string, lower, upper float64) Var {
	return m.addVar(name, Continuous, lower, upper)
}

// AddBinary adds a {0,1} variable and returns its handle.
func (m *Model) AddBinary(name string) Var {
	return m.addVar(name, Binary, 0, 1)
}

func (m *Model) addVar(name string, t VarType, lower, upper float64) Var {
	m.names = append(m.names, name)
	m.types = append(m.types, t)
	m.lower = append(m.lower, lower)
	m.upper = append(m.upper, upper)
	return Var(len(m.names) - 1)
}

// FixVar pins a variable to a single value by collapsing its bounds.
func (m *Model) FixVar(v Var, value float64) {
	m.lower[v] = value
	m.upper[v] = value
}

// AddConstraint appends a named linear constraint.
func (m *Model) AddConstraint(name string, terms []Term, op Op, rhs float64) {
	m.constraints = append(m.constraints, Constraint{Name: name, Terms: terms, Op: op, RHS: rhs})
}

// SetObjective replaces the objective expression.
func (m *Model) SetObjective(terms []Term) {
	m.objective = terms
}

// NumVars returns the number of variables in the model.
func (m *Model) NumVars() int {
	return len(m.names)
}

// NumConstraints returns the number of constraints in the model.
func (m *Model) NumConstraints() int {
	return len(m.constraints)
}

// NumBinaries returns the number of binary variables in the model.
func (m *Model) NumBinaries() int {
	n := 0
	for _, t := range m.types {
		if t == Binary {
			n++
		}
	}
	return n
}

// VarName returns the name a variable was registered with.
func (m *Model) VarName(v Var) string {
	return m.names[v]
}

// IsBinary reports whether a variable is binary.
func (m *Model) IsBinary(v Var) bool {
	return m.types[v] == Binary
}

// objectiveValue evaluates the objective at x in the model's sense.
func (m *Model) objectiveValue(x []float64) float64 {
	sum := 0.0
	for _, t := range m.objective {
		sum += t.Coef * x[t.Var]
	}
	return sum
}

// validBounds reports whether every variable has lower <= upper, which
// branching relies on.
func (m *Model) validBounds() bool {
	for i := range m.lower {
		if m.lower[i] > m.upper[i] || math.IsNaN(m.lower[i]) || math.IsNaN(m.upper[i]) {
			return false
		}
	}
	return true
}
