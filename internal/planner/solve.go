package planner

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Wolfant/modelo-milp-agilidad/internal/errors"
	"github.com/Wolfant/modelo-milp-agilidad/internal/log"
	"github.com/Wolfant/modelo-milp-agilidad/internal/milp"
	"github.com/Wolfant/modelo-milp-agilidad/internal/sprint"
)

// intTol is the decoding tolerance: a binary decoded further than this from
// 0 or 1 is a modeling defect, never expected from a correctly typed model.
const intTol = 1e-6

// Planner builds, solves and decodes one assignment model per invocation.
// A Planner holds no mutable state across solves and is safe to reuse.
type Planner struct {
	logger *log.Logger
}

// New creates a Planner. A nil logger falls back to the process default.
func New(logger *log.Logger) *Planner {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Planner{logger: logger}
}

// Solve runs exactly one solve attempt against the snapshot and decodes the
// outcome. Infeasibility is a legitimate business outcome and comes back as a
// plan with status "infeasible" and diagnostic hints, not as an error.
// Unbounded objectives and non-integral solutions are modeling defects and
// come back as errors.
func (pl *Planner) Solve(ctx context.Context, snap *sprint.Snapshot) (*Plan, error) {
	model, vars := buildModel(snap)
	composeObjective(model, snap, vars)

	pl.logger.Info("model built",
		"stories", len(snap.Stories),
		"people", len(snap.People),
		"variables", model.NumVars(),
		"constraints", model.NumConstraints(),
	)

	opts := milp.Options{}
	if snap.Config.SolverTimeLimitSeconds > 0 {
		opts.TimeLimit = time.Duration(snap.Config.SolverTimeLimitSeconds * float64(time.Second))
	}

	res, err := milp.Solve(ctx, model, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNoSolution, "solving engine failed", err)
	}

	pl.logger.Info("solve finished", "status", res.Status.String(), "nodes", res.Nodes)

	switch res.Status {
	case milp.StatusUnbounded:
		return nil, errors.NewUnboundedModelError()
	case milp.StatusNotSolved:
		return nil, errors.NewNoSolutionError()
	case milp.StatusInfeasible:
		return infeasiblePlan(snap), nil
	}

	plan, err := decode(snap, model, vars, res)
	if err != nil {
		return nil, err
	}
	if err := plan.Verify(snap); err != nil {
		return nil, err
	}
	return plan, nil
}

// decode maps the raw solver values back onto stories and people.
func decode(snap *sprint.Snapshot, model *milp.Model, vars *modelVars, res milp.Result) (*Plan, error) {
	plan := &Plan{
		ID:          uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Status:      res.Status.String(),
		IsOptimal:   res.Status == milp.StatusOptimal,
	}

	committed := make([]float64, len(snap.People))
	storyCount := make([]int, len(snap.People))
	roleHours := make(map[string]float64)

	for si, story := range snap.Stories {
		sel, err := decodeBinary(model, res, vars.selects[si])
		if err != nil {
			return nil, err
		}
		if !sel {
			continue
		}

		assignee := -1
		for _, pi := range vars.byStory[si] {
			on, err := decodeBinary(model, res, vars.assigns[assignment{si, pi}])
			if err != nil {
				return nil, err
			}
			if !on {
				continue
			}
			if assignee >= 0 {
				return nil, errors.NewPlanInvariantError(fmt.Sprintf("story %s decoded with more than one assignee", story.ID))
			}
			assignee = pi
		}
		if assignee < 0 {
			return nil, errors.NewPlanInvariantError(fmt.Sprintf("story %s selected without an assignee", story.ID))
		}

		person := snap.People[assignee]
		hours := snap.Cost(story, person)
		committed[assignee] += hours
		storyCount[assignee]++
		roleHours[person.Role] += hours

		plan.Selected = append(plan.Selected, SelectedStory{
			StoryID:    story.ID,
			AssigneeID: person.ID,
			Points:     story.Points,
			Value:      story.Value,
			Hours:      roundHours(hours),
		})
		plan.Summary.TotalValue += story.Value
	}

	totalHours := 0.0
	for _, h := range roleHours {
		totalHours += h
	}

	for pi, person := range snap.People {
		active := committed[pi] > 0
		if active {
			plan.Summary.ActivePeople++
		}
		plan.Utilization = append(plan.Utilization, PersonUtilization{
			PersonID:       person.ID,
			Role:           person.Role,
			CommittedHours: roundHours(committed[pi]),
			AvailableHours: person.AvailableHours,
			Utilization:    roundHours(committed[pi] / person.AvailableHours),
			Stories:        storyCount[pi],
			Active:         active,
		})
	}

	for _, role := range sortedKeys(snap.PeopleByRole) {
		actual := 0.0
		if totalHours > 0 {
			actual = roleHours[role] / totalHours
		}
		plan.RoleUsage = append(plan.RoleUsage, RoleUsage{
			Role:           role,
			CommittedHours: roundHours(roleHours[role]),
			TargetShare:    snap.Roles[role].ShareOfHours,
			ActualShare:    roundHours(actual),
		})
	}

	plan.Summary.StoriesSelected = len(plan.Selected)
	plan.Summary.StoriesTotal = len(snap.Stories)
	plan.Summary.ObjectiveValue = res.Objective
	plan.Summary.SolverStatus = plan.Status
	plan.Summary.IsOptimal = plan.IsOptimal
	return plan, nil
}

// decodeBinary rounds a near-binary value within tolerance and fails loudly
// otherwise.
func decodeBinary(model *milp.Model, res milp.Result, v milp.Var) (bool, error) {
	val := res.Value(v)
	switch {
	case math.Abs(val) <= intTol:
		return false, nil
	case math.Abs(val-1) <= intTol:
		return true, nil
	default:
		return false, errors.NewNonIntegralSolutionError(model.VarName(v), val)
	}
}

// infeasiblePlan wraps the infeasible outcome with structural hints about
// which constraint families are suspect. No automatic relaxation is
// attempted; re-editing the inputs is left to the operator.
func infeasiblePlan(snap *sprint.Snapshot) *Plan {
	plan := &Plan{
		ID:                 uuid.NewString(),
		GeneratedAt:        time.Now().UTC(),
		Status:             milp.StatusInfeasible.String(),
		InfeasibilityHints: diagnoseInfeasible(snap),
	}
	plan.Summary.SolverStatus = plan.Status
	plan.Summary.StoriesTotal = len(snap.Stories)
	return plan
}

// diagnoseInfeasible inspects the capacity aggregates and the mandatory
// dependency closure. Without mandatory stories the only way to lose the
// empty selection is a bug reservation eating more than a role's raw hours.
func diagnoseInfeasible(snap *sprint.Snapshot) []string {
	var hints []string

	for _, role := range sortedKeys(snap.PeopleByRole) {
		if snap.EffectiveRoleCapacity[role] < 0 {
			hints = append(hints, fmt.Sprintf(
				"bug reservation for role %s (%d bugs x %.1fh) exceeds its %.1fh of available hours; lower bugs_per_sprint or bug_hours_per_bug",
				role, snap.Config.BugsPerSprint, snap.Roles[role].BugHoursPerBug, snap.RoleCapacity[role]))
		}
	}

	closure := mandatoryClosure(snap)
	if len(closure) == 0 {
		if len(hints) > 0 {
			return hints
		}
		return []string{"model infeasible without mandatory stories; this should not happen, check constraint construction"}
	}

	demand := 0.0
	roleDemand := make(map[string]float64)
	for _, si := range closure {
		story := snap.Stories[si]
		effort := float64(story.Points) * snap.Config.HoursPerPoint
		demand += effort
		if story.Role != "" {
			if story.Role == snap.Config.QualityRole {
				effort *= snap.Config.QACoverageFactor
			}
			roleDemand[story.Role] += effort
		}

		if len(compatiblePeople(snap, story)) == 0 {
			hints = append(hints, fmt.Sprintf("mandatory story %s requires role %q but no person can take it", story.ID, story.Role))
		}
	}

	if demand > snap.TotalCapacity {
		hints = append(hints, fmt.Sprintf(
			"mandatory stories and their dependencies need at least %.1fh but total capacity is %.1fh", demand, snap.TotalCapacity))
	}

	for _, role := range sortedDemandRoles(roleDemand) {
		if eff, ok := snap.EffectiveRoleCapacity[role]; ok && roleDemand[role] > eff {
			hints = append(hints, fmt.Sprintf(
				"mandatory stories require %.1fh of role %s but only %.1fh remain after reservations", roleDemand[role], role, eff))
		}
	}

	if len(hints) == 0 {
		hints = append(hints, "mandatory stories cannot be packed within per-person capacities; review capacity_hours and max_points_per_dev")
	}
	return hints
}

// mandatoryClosure returns the indices of mandatory stories plus everything
// they transitively depend on.
func mandatoryClosure(snap *sprint.Snapshot) []int {
	depsOf := make(map[int][]int)
	for _, edge := range snap.Deps {
		depsOf[edge[0]] = append(depsOf[edge[0]], edge[1])
	}

	seen := make(map[int]bool)
	var visit func(int)
	visit = func(si int) {
		if seen[si] {
			return
		}
		seen[si] = true
		for _, d := range depsOf[si] {
			visit(d)
		}
	}
	for si, story := range snap.Stories {
		if story.Mandatory {
			visit(si)
		}
	}

	closure := make([]int, 0, len(seen))
	for si := range seen {
		closure = append(closure, si)
	}
	sort.Ints(closure)
	return closure
}

func compatiblePeople(snap *sprint.Snapshot, story sprint.Story) []int {
	var people []int
	for pi, person := range snap.People {
		if snap.Compatible(story, person) {
			people = append(people, pi)
		}
	}
	return people
}

func sortedDemandRoles(demand map[string]float64) []string {
	roles := make([]string, 0, len(demand))
	for r := range demand {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	return roles
}
