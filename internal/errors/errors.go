package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeUnknownDependency ErrorCode = "CONFIG-001"
	ErrCodeCyclicDependency  ErrorCode = "CONFIG-002"
	ErrCodeUnknownRole       ErrorCode = "CONFIG-003"
	ErrCodeUnreachableRole   ErrorCode = "CONFIG-004"
	ErrCodeBadNumeric        ErrorCode = "CONFIG-005"
	ErrCodeDuplicateID       ErrorCode = "CONFIG-006"

	// Modeling defects (MODEL-001 to MODEL-099)
	ErrCodeNonIntegralSolution ErrorCode = "MODEL-001"
	ErrCodeUnboundedModel      ErrorCode = "MODEL-002"
	ErrCodePlanInvariant       ErrorCode = "MODEL-003"

	// Solver outcomes surfaced as errors at the CLI boundary (SOLVE-001 to SOLVE-099)
	ErrCodeInfeasible ErrorCode = "SOLVE-001"
	ErrCodeNoSolution ErrorCode = "SOLVE-002"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileNotFound   ErrorCode = "IO-001"
	ErrCodeFileReadFailed ErrorCode = "IO-002"
	ErrCodeFileParse      ErrorCode = "IO-003"
	ErrCodeFileWrite      ErrorCode = "IO-004"
)

// PlanningError represents an enhanced error with code, suggestions, and a cause
type PlanningError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	Cause       error
}

// Error implements the error interface
func (e *PlanningError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *PlanningError) Unwrap() error {
	return e.Cause
}

// IsConfiguration reports whether the error belongs to the configuration family
func (e *PlanningError) IsConfiguration() bool {
	return strings.HasPrefix(string(e.Code), "CONFIG-")
}

// IsModelingDefect reports whether the error indicates a bug in model construction
func (e *PlanningError) IsModelingDefect() bool {
	return strings.HasPrefix(string(e.Code), "MODEL-")
}

// New creates a new PlanningError
func New(code ErrorCode, message string) *PlanningError {
	return &PlanningError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new PlanningError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *PlanningError {
	return &PlanningError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *PlanningError) WithSuggestion(suggestion string) *PlanningError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *PlanningError) WithSuggestions(suggestions ...string) *PlanningError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// Common error constructors for frequently used errors

// NewUnknownDependencyError creates an error for a dependency on a story not in the snapshot
func NewUnknownDependencyError(storyID, depID string) *PlanningError {
	return New(ErrCodeUnknownDependency, fmt.Sprintf("story %q depends on unknown story %q", storyID, depID)).
		WithSuggestion("Check the depends_on column in stories.csv for typos")
}

// NewCyclicDependencyError creates an error for a cycle in the story dependency graph
func NewCyclicDependencyError(cycle []string) *PlanningError {
	return New(ErrCodeCyclicDependency, fmt.Sprintf("cyclic story dependency: %s", strings.Join(cycle, " -> "))).
		WithSuggestion("Remove one edge of the cycle from stories.csv").
		WithSuggestion("Dependencies must form a directed acyclic graph")
}

// NewUnknownRoleError creates an error for a person whose role has no profile
func NewUnknownRoleError(personID, role string) *PlanningError {
	return New(ErrCodeUnknownRole, fmt.Sprintf("person %q has role %q which is not defined in roles.csv", personID, role)).
		WithSuggestion("Add the role to roles.csv or fix the person's role")
}

// NewUnreachableRoleError creates an error for a role that no staffed person can cover
func NewUnreachableRoleError(role string) *PlanningError {
	return New(ErrCodeUnreachableRole, fmt.Sprintf("role %q is required but has no person with available hours", role)).
		WithSuggestion("Add a person with that role to people.csv").
		WithSuggestion("Set the role's share_of_hours to 0 if it should not participate")
}

// NewBadNumericError creates an error for an out-of-range numeric parameter
func NewBadNumericError(field string, value float64) *PlanningError {
	return New(ErrCodeBadNumeric, fmt.Sprintf("invalid value %v for %s", value, field)).
		WithSuggestion("Hours, points, values and lambda must be non-negative").
		WithSuggestion("hours_per_point and bug_hours_per_bug must be strictly positive")
}

// NewDuplicateIDError creates an error for a repeated identifier in an input table
func NewDuplicateIDError(kind, id string) *PlanningError {
	return New(ErrCodeDuplicateID, fmt.Sprintf("duplicate %s identifier %q", kind, id))
}

// NewNonIntegralSolutionError creates an error for a decoded binary outside tolerance
func NewNonIntegralSolutionError(variable string, value float64) *PlanningError {
	return New(ErrCodeNonIntegralSolution, fmt.Sprintf("variable %s decoded to non-integral value %v", variable, value)).
		WithSuggestion("This indicates a solver or model construction bug, not an input problem")
}

// NewUnboundedModelError creates an error for an unbounded objective
func NewUnboundedModelError() *PlanningError {
	return New(ErrCodeUnboundedModel, "objective is unbounded").
		WithSuggestion("Deviation variables must carry upper bounds and a non-negative penalty weight")
}

// NewPlanInvariantError creates an error for a decoded plan violating a model invariant
func NewPlanInvariantError(detail string) *PlanningError {
	return New(ErrCodePlanInvariant, fmt.Sprintf("decoded plan violates invariant: %s", detail)).
		WithSuggestion("This indicates a bug in constraint construction, not an input problem")
}

// NewInfeasibleError creates the CLI-boundary error for an infeasible model
func NewInfeasibleError(hints []string) *PlanningError {
	err := New(ErrCodeInfeasible, "no feasible assignment exists for the given inputs")
	for _, h := range hints {
		err = err.WithSuggestion(h)
	}
	return err
}

// NewNoSolutionError creates an error for a solve that produced no incumbent in budget
func NewNoSolutionError() *PlanningError {
	return New(ErrCodeNoSolution, "solver budget exhausted before any feasible assignment was found").
		WithSuggestion("Raise solver_time_limit_seconds in config.yaml")
}

// NewFileReadError creates a file read error
func NewFileReadError(path string, cause error) *PlanningError {
	return Wrap(ErrCodeFileReadFailed, fmt.Sprintf("failed to read %s", path), cause).
		WithSuggestion("Check that the data directory contains people.csv, stories.csv, roles.csv and config.yaml")
}

// NewFileParseError creates a parse error for an input file
func NewFileParseError(path string, cause error) *PlanningError {
	return Wrap(ErrCodeFileParse, fmt.Sprintf("failed to parse %s", path), cause).
		WithSuggestion("Check the file syntax and column headers")
}

// NewFileWriteError creates a write error for a result file
func NewFileWriteError(path string, cause error) *PlanningError {
	return Wrap(ErrCodeFileWrite, fmt.Sprintf("failed to write %s", path), cause)
}
