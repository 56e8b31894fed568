package planner

import (
	"github.com/Wolfant/modelo-milp-agilidad/internal/milp"
	"github.com/Wolfant/modelo-milp-agilidad/internal/sprint"
)

// composeObjective sets the weighted objective on the model:
//
//	maximize  sum(value_s * select_s)  -  lambda * penalty
//
// where penalty aggregates the role-distribution deviations and, when
// enabled, the number of active people. With lambda = 0 the model degrades to
// pure value maximization and no penalty variables exist at all.
func composeObjective(m *milp.Model, snap *sprint.Snapshot, vars *modelVars) {
	var terms []milp.Term

	for si, story := range snap.Stories {
		if story.Value != 0 {
			terms = append(terms, milp.Term{Var: vars.selects[si], Coef: story.Value})
		}
	}

	lambda := snap.Config.LambdaPeoplePenalty
	if lambda > 0 {
		for _, role := range participatingRoles(snap) {
			if plus, ok := vars.devPlus[role]; ok {
				terms = append(terms, milp.Term{Var: plus, Coef: -lambda})
				terms = append(terms, milp.Term{Var: vars.devMinus[role], Coef: -lambda})
			}
		}
		for _, active := range vars.active {
			terms = append(terms, milp.Term{Var: active, Coef: -lambda})
		}
	}

	m.SetObjective(terms)
}
