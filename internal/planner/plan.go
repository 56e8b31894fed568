package planner

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Wolfant/modelo-milp-agilidad/internal/errors"
	"github.com/Wolfant/modelo-milp-agilidad/internal/sprint"
)

// capacityEps absorbs floating point noise when re-checking capacity sums.
const capacityEps = 1e-6

// SelectedStory is one story taken into the interval with its single assignee.
type SelectedStory struct {
	StoryID    string  `json:"story_id" yaml:"story_id"`
	AssigneeID string  `json:"assignee_id" yaml:"assignee_id"`
	Points     int     `json:"points" yaml:"points"`
	Value      float64 `json:"value" yaml:"value"`
	Hours      float64 `json:"hours" yaml:"hours"`
}

// PersonUtilization summarizes one person's committed load.
type PersonUtilization struct {
	PersonID       string  `json:"person_id" yaml:"person_id"`
	Role           string  `json:"role" yaml:"role"`
	CommittedHours float64 `json:"committed_hours" yaml:"committed_hours"`
	AvailableHours float64 `json:"available_hours" yaml:"available_hours"`
	Utilization    float64 `json:"utilization_ratio" yaml:"utilization_ratio"`
	Stories        int     `json:"stories" yaml:"stories"`
	Active         bool    `json:"active" yaml:"active"`
}

// RoleUsage compares committed hours per role against the configured share.
type RoleUsage struct {
	Role           string  `json:"role" yaml:"role"`
	CommittedHours float64 `json:"committed_hours" yaml:"committed_hours"`
	TargetShare    float64 `json:"target_share" yaml:"target_share"`
	ActualShare    float64 `json:"actual_share" yaml:"actual_share"`
}

// Summary aggregates the headline numbers of a solve.
type Summary struct {
	TotalValue      float64 `json:"total_value_captured" yaml:"total_value_captured"`
	StoriesSelected int     `json:"total_stories_selected" yaml:"total_stories_selected"`
	StoriesTotal    int     `json:"stories_total" yaml:"stories_total"`
	ObjectiveValue  float64 `json:"objective_value" yaml:"objective_value"`
	ActivePeople    int     `json:"active_people" yaml:"active_people"`
	SolverStatus    string  `json:"solver_status" yaml:"solver_status"`
	IsOptimal       bool    `json:"is_optimal" yaml:"is_optimal"`
}

// Plan is the decoded assignment for one planning interval. A plan is
// produced once per solve and never updated in place.
type Plan struct {
	ID          string    `json:"id" yaml:"id"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`

	Status    string `json:"status" yaml:"status"`
	IsOptimal bool   `json:"is_optimal" yaml:"is_optimal"`

	Selected    []SelectedStory     `json:"selected_stories" yaml:"selected_stories"`
	Utilization []PersonUtilization `json:"person_utilization" yaml:"person_utilization"`
	RoleUsage   []RoleUsage         `json:"role_usage" yaml:"role_usage"`
	Summary     Summary             `json:"summary" yaml:"summary"`

	// InfeasibilityHints names the constraint families that look structurally
	// suspect when Status is infeasible.
	InfeasibilityHints []string `json:"infeasibility_hints,omitempty" yaml:"infeasibility_hints,omitempty"`
}

// Feasible reports whether the plan carries a usable assignment.
func (p *Plan) Feasible() bool {
	return p.Status == "optimal" || p.Status == "feasible"
}

// Verify re-checks the decoded plan against the snapshot's invariants:
// single assignee per selected story, dependency closure, per-person capacity.
// A violation is a modeling defect, never an input problem.
func (p *Plan) Verify(snap *sprint.Snapshot) error {
	selected := make(map[string]SelectedStory, len(p.Selected))
	for _, s := range p.Selected {
		if _, dup := selected[s.StoryID]; dup {
			return errors.NewPlanInvariantError(fmt.Sprintf("story %s decoded with more than one assignee", s.StoryID))
		}
		selected[s.StoryID] = s
	}

	committed := make(map[string]float64, len(snap.People))
	for _, s := range p.Selected {
		si, ok := snap.StoryIndex[s.StoryID]
		if !ok {
			return errors.NewPlanInvariantError(fmt.Sprintf("selected story %s is not in the snapshot", s.StoryID))
		}
		pi, ok := snap.PersonIndex[s.AssigneeID]
		if !ok {
			return errors.NewPlanInvariantError(fmt.Sprintf("story %s assigned to unknown person %s", s.StoryID, s.AssigneeID))
		}
		story, person := snap.Stories[si], snap.People[pi]
		if !snap.Compatible(story, person) {
			return errors.NewPlanInvariantError(fmt.Sprintf("story %s requires role %s but was assigned to %s (%s)",
				story.ID, story.Role, person.ID, person.Role))
		}
		committed[person.ID] += snap.Cost(story, person)
	}

	for _, edge := range snap.Deps {
		s, d := snap.Stories[edge[0]], snap.Stories[edge[1]]
		if _, sSel := selected[s.ID]; sSel {
			if _, dSel := selected[d.ID]; !dSel {
				return errors.NewPlanInvariantError(fmt.Sprintf("story %s is selected but its dependency %s is not", s.ID, d.ID))
			}
		}
	}

	for _, person := range snap.People {
		if committed[person.ID] > person.AvailableHours+capacityEps {
			return errors.NewPlanInvariantError(fmt.Sprintf("person %s committed %.2fh over %.2fh available",
				person.ID, committed[person.ID], person.AvailableHours))
		}
	}

	return nil
}

// String renders the plan as the human-readable summary report.
func (p *Plan) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Status: %s\n", p.Status)
	if p.Feasible() {
		fmt.Fprintf(&b, "Objective: %.3f\n", p.Summary.ObjectiveValue)
		fmt.Fprintf(&b, "Delivered value: %.3f\n", p.Summary.TotalValue)
		fmt.Fprintf(&b, "Stories selected: %d / %d\n", p.Summary.StoriesSelected, p.Summary.StoriesTotal)
		fmt.Fprintf(&b, "Active people: %d\n", p.Summary.ActivePeople)
		if !p.IsOptimal {
			b.WriteString("Solution is the best incumbent found within budget, not proven optimal.\n")
		}

		if len(p.Selected) > 0 {
			b.WriteString("\nSelected stories:\n")
			for _, s := range p.Selected {
				fmt.Fprintf(&b, "  %-12s %dpt value=%.1f -> %s (%.1fh)\n", s.StoryID, s.Points, s.Value, s.AssigneeID, s.Hours)
			}
		}

		b.WriteString("\nUtilization:\n")
		for _, u := range p.Utilization {
			fmt.Fprintf(&b, "  %-12s %-4s %6.1fh / %6.1fh (%.0f%%)\n",
				u.PersonID, u.Role, u.CommittedHours, u.AvailableHours, u.Utilization*100)
		}
	}

	if len(p.InfeasibilityHints) > 0 {
		b.WriteString("\nDiagnostic hints:\n")
		for _, hint := range p.InfeasibilityHints {
			fmt.Fprintf(&b, "  - %s\n", hint)
		}
	}

	return b.String()
}

// roundHours trims decoding noise for report output.
func roundHours(h float64) float64 {
	return math.Round(h*100) / 100
}
