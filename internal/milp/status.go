package milp

// Status is the outcome of a solve attempt.
type Status int

const (
	// StatusNotSolved means the budget ran out before any feasible solution
	// was found.
	StatusNotSolved Status = iota

	// StatusOptimal means the search completed and the returned solution is
	// proven optimal.
	StatusOptimal

	// StatusFeasible means the budget ran out but an incumbent was found; the
	// returned solution is feasible, not proven optimal.
	StatusFeasible

	// StatusInfeasible means no assignment satisfies all constraints.
	StatusInfeasible

	// StatusUnbounded means the objective can be improved without limit,
	// which indicates a defect in model construction.
	StatusUnbounded
)

// String returns the lower-case name of the status.
func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	default:
		return "not_solved"
	}
}

// HasSolution reports whether the status carries decodable variable values.
func (s Status) HasSolution() bool {
	return s == StatusOptimal || s == StatusFeasible
}
