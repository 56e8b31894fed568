package exitcode

import (
	stderrors "errors"
	"os"
	"strings"

	"github.com/Wolfant/modelo-milp-agilidad/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates an optimal or best-found feasible solve
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// ConfigError indicates invalid or inconsistent input data
	ConfigError = 3

	// Infeasible indicates the model admits no feasible assignment
	Infeasible = 4

	// ModelingDefect indicates a bug in model construction (unbounded or
	// non-integral solution), never expected in normal operation
	ModelingDefect = 5

	// Interrupted indicates the process was cancelled by the user
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}

	Exit(DetermineExitCode(err))
}

// DetermineExitCode analyzes an error and returns the appropriate exit code
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	var perr *errors.PlanningError
	if stderrors.As(err, &perr) {
		switch {
		case perr.IsConfiguration():
			return ConfigError
		case perr.IsModelingDefect():
			return ModelingDefect
		case perr.Code == errors.ErrCodeInfeasible:
			return Infeasible
		}
		return GeneralError
	}

	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "unknown flag") || strings.Contains(errMsg, "unknown command") {
		return UsageError
	}
	if strings.Contains(errMsg, "required flag") || strings.Contains(errMsg, "invalid argument") {
		return UsageError
	}

	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case ConfigError:
		return "Input validation error"
	case Infeasible:
		return "Model is infeasible"
	case ModelingDefect:
		return "Internal modeling defect"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
