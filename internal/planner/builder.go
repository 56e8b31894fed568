package planner

import (
	"fmt"
	"sort"

	"github.com/Wolfant/modelo-milp-agilidad/internal/milp"
	"github.com/Wolfant/modelo-milp-agilidad/internal/sprint"
)

// assignment identifies one (story, person) decision by snapshot indices.
type assignment struct {
	story  int
	person int
}

// modelVars holds the handles of every decision variable the builder emits,
// keyed the way the decoder needs them.
type modelVars struct {
	// selects has one binary per story; a selected story is taken into the
	// interval.
	selects []milp.Var

	// assigns has one binary per compatible (story, person) pair.
	assigns map[assignment]milp.Var

	// byStory lists the people eligible for each story.
	byStory [][]int

	// active has one binary per person when the active-people penalty is
	// enabled, nil otherwise.
	active []milp.Var

	// devPlus and devMinus are the role-distribution deviation variables,
	// present only when lambda is positive.
	devPlus  map[string]milp.Var
	devMinus map[string]milp.Var
}

// buildModel emits the full variable and constraint set for the snapshot.
// The objective is composed separately; see composeObjective.
func buildModel(snap *sprint.Snapshot) (*milp.Model, *modelVars) {
	m := milp.NewModel(milp.Maximize)
	vars := &modelVars{
		assigns:  make(map[assignment]milp.Var),
		byStory:  make([][]int, len(snap.Stories)),
		devPlus:  make(map[string]milp.Var),
		devMinus: make(map[string]milp.Var),
	}

	// Selection variables. A mandatory story has its selection pinned to 1;
	// if it cannot be placed the model becomes infeasible, which is the
	// intended signal.
	for si, story := range snap.Stories {
		v := m.AddBinary(fmt.Sprintf("select[%s]", story.ID))
		if story.Mandatory {
			m.FixVar(v, 1)
		}
		vars.selects = append(vars.selects, v)

		for pi, person := range snap.People {
			if !snap.Compatible(story, person) {
				continue
			}
			av := m.AddBinary(fmt.Sprintf("assign[%s,%s]", story.ID, person.ID))
			vars.assigns[assignment{si, pi}] = av
			vars.byStory[si] = append(vars.byStory[si], pi)
		}
	}

	penalize := snap.Config.LambdaPeoplePenalty > 0

	if penalize && snap.Config.PenalizeActivePeople {
		vars.active = make([]milp.Var, len(snap.People))
		for pi, person := range snap.People {
			vars.active[pi] = m.AddBinary(fmt.Sprintf("active[%s]", person.ID))
		}
	}

	// Coupling: a selected story has exactly one assignee, an unselected one
	// has none. A story with zero eligible people keeps its select variable;
	// the empty sum forces selection to 0 rather than erroring out.
	for si, story := range snap.Stories {
		terms := []milp.Term{{Var: vars.selects[si], Coef: -1}}
		for _, pi := range vars.byStory[si] {
			terms = append(terms, milp.Term{Var: vars.assigns[assignment{si, pi}], Coef: 1})
		}
		m.AddConstraint(fmt.Sprintf("one_assignee[%s]", story.ID), terms, milp.Equal, 0)
	}

	// Capacity per person, including per-story meeting overhead.
	for pi, person := range snap.People {
		var terms []milp.Term
		for si := range snap.Stories {
			if av, ok := vars.assigns[assignment{si, pi}]; ok {
				terms = append(terms, milp.Term{Var: av, Coef: snap.Cost(snap.Stories[si], person)})
			}
		}
		if len(terms) == 0 {
			continue
		}
		m.AddConstraint(fmt.Sprintf("capacity[%s]", person.ID), terms, milp.LessEq, person.AvailableHours)
	}

	// Aggregate role capacity with the bug reservation (and the WIP buffer
	// for the quality role) already folded into EffectiveRoleCapacity.
	for _, role := range sortedKeys(snap.PeopleByRole) {
		var terms []milp.Term
		for _, pi := range snap.PeopleByRole[role] {
			person := snap.People[pi]
			for si := range snap.Stories {
				if av, ok := vars.assigns[assignment{si, pi}]; ok {
					terms = append(terms, milp.Term{Var: av, Coef: snap.Cost(snap.Stories[si], person)})
				}
			}
		}
		if len(terms) == 0 {
			continue
		}
		m.AddConstraint(fmt.Sprintf("role_capacity[%s]", role), terms, milp.LessEq, snap.EffectiveRoleCapacity[role])
	}

	// Dependencies: selecting a story requires selecting each dependency.
	// Precedence on inclusion only; there is no intra-interval ordering.
	for _, edge := range snap.Deps {
		s, d := edge[0], edge[1]
		m.AddConstraint(
			fmt.Sprintf("dep[%s->%s]", snap.Stories[s].ID, snap.Stories[d].ID),
			[]milp.Term{{Var: vars.selects[s], Coef: 1}, {Var: vars.selects[d], Coef: -1}},
			milp.LessEq, 0,
		)
	}

	// Points cap for point-capped (developer) roles.
	for pi, person := range snap.People {
		if !snap.Config.IsPointCapped(person.Role) {
			continue
		}
		var terms []milp.Term
		for si, story := range snap.Stories {
			if av, ok := vars.assigns[assignment{si, pi}]; ok {
				terms = append(terms, milp.Term{Var: av, Coef: float64(story.Points)})
			}
		}
		if len(terms) == 0 {
			continue
		}
		m.AddConstraint(fmt.Sprintf("points_cap[%s]", person.ID), terms, milp.LessEq, float64(snap.Config.MaxPointsPerDev))
	}

	// Activity coupling: any assignment marks the person active.
	if vars.active != nil {
		for si, story := range snap.Stories {
			for _, pi := range vars.byStory[si] {
				m.AddConstraint(
					fmt.Sprintf("active_link[%s,%s]", story.ID, snap.People[pi].ID),
					[]milp.Term{{Var: vars.assigns[assignment{si, pi}], Coef: 1}, {Var: vars.active[pi], Coef: -1}},
					milp.LessEq, 0,
				)
			}
		}
	}

	// Soft role distribution: per participating role, the committed hours
	// should track share * total committed hours. The deviation is split into
	// two non-negative variables so the absolute value stays linear; both are
	// bounded by total capacity to keep the model bounded regardless of the
	// penalty weight.
	if penalize {
		for _, role := range participatingRoles(snap) {
			plus := m.AddContinuous(fmt.Sprintf("dev_plus[%s]", role), 0, snap.TotalCapacity)
			minus := m.AddContinuous(fmt.Sprintf("dev_minus[%s]", role), 0, snap.TotalCapacity)
			vars.devPlus[role] = plus
			vars.devMinus[role] = minus

			share := snap.Roles[role].ShareOfHours
			var terms []milp.Term
			for si, story := range snap.Stories {
				for _, pi := range vars.byStory[si] {
					person := snap.People[pi]
					cost := snap.Cost(story, person)
					coef := -share * cost
					if person.Role == role {
						coef += cost
					}
					if coef != 0 {
						terms = append(terms, milp.Term{Var: vars.assigns[assignment{si, pi}], Coef: coef})
					}
				}
			}
			terms = append(terms,
				milp.Term{Var: plus, Coef: -1},
				milp.Term{Var: minus, Coef: 1},
			)
			m.AddConstraint(fmt.Sprintf("role_share[%s]", role), terms, milp.Equal, 0)
		}
	}

	return m, vars
}

// participatingRoles lists the roles with a positive point share, sorted for
// deterministic model construction.
func participatingRoles(snap *sprint.Snapshot) []string {
	var roles []string
	for name, profile := range snap.Roles {
		if profile.ShareOfHours > 0 {
			roles = append(roles, name)
		}
	}
	sort.Strings(roles)
	return roles
}

func sortedKeys(m map[string][]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
