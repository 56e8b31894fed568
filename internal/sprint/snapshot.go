package sprint

import (
	"math"
	"sort"

	"github.com/Wolfant/modelo-milp-agilidad/internal/errors"
)

// Snapshot is the validated, cross-referenced view of one planning interval.
// It is read-only for the duration of a solve.
type Snapshot struct {
	People  []Person
	Stories []Story
	Roles   map[string]RoleProfile
	Config  Config

	// PersonIndex and StoryIndex map identifiers to positions in People and
	// Stories.
	PersonIndex map[string]int
	StoryIndex  map[string]int

	// PeopleByRole groups People indices by role category.
	PeopleByRole map[string][]int

	// Deps holds resolved dependency edges as (story index, dependency index)
	// pairs. Dependencies on stories filtered by forbid_points are dropped.
	Deps [][2]int

	// RoleCapacity is raw available hours per role; EffectiveRoleCapacity is
	// the same minus the bug reservation and, for the quality role, the WIP
	// buffer. TotalCapacity sums raw hours over all people.
	RoleCapacity          map[string]float64
	EffectiveRoleCapacity map[string]float64
	TotalCapacity         float64
}

// Normalize validates raw input records and produces a consistent Snapshot,
// or fails with a configuration error.
func Normalize(people []Person, stories []Story, roles []RoleProfile, cfg Config) (*Snapshot, error) {
	cfg = cfg.WithDefaults()

	if err := checkConfig(cfg); err != nil {
		return nil, err
	}

	roleMap := make(map[string]RoleProfile, len(roles))
	for _, r := range roles {
		if _, ok := roleMap[r.Role]; ok {
			return nil, errors.NewDuplicateIDError("role", r.Role)
		}
		if r.ShareOfHours < 0 {
			return nil, errors.NewBadNumericError("share_of_hours for role "+r.Role, r.ShareOfHours)
		}
		if r.MeetingLoadPerStoryHours < 0 {
			return nil, errors.NewBadNumericError("meeting_load_per_story_hours for role "+r.Role, r.MeetingLoadPerStoryHours)
		}
		if r.BugHoursPerBug < 0 {
			return nil, errors.NewBadNumericError("bug_hours_per_bug for role "+r.Role, r.BugHoursPerBug)
		}
		roleMap[r.Role] = r
	}

	if err := checkShares(roleMap); err != nil {
		return nil, err
	}

	if cfg.BugsPerSprint > 0 {
		q, ok := roleMap[cfg.QualityRole]
		if !ok || q.BugHoursPerBug <= 0 {
			return nil, errors.NewBadNumericError("bug_hours_per_bug for quality role "+cfg.QualityRole, 0).
				WithSuggestion("bugs_per_sprint > 0 requires a quality role with positive bug_hours_per_bug")
		}
	}

	personIndex := make(map[string]int, len(people))
	peopleByRole := make(map[string][]int)
	roleCap := make(map[string]float64)
	total := 0.0
	for i, p := range people {
		if _, ok := personIndex[p.ID]; ok {
			return nil, errors.NewDuplicateIDError("person", p.ID)
		}
		if _, ok := roleMap[p.Role]; !ok {
			return nil, errors.NewUnknownRoleError(p.ID, p.Role)
		}
		if p.AvailableHours <= 0 {
			return nil, errors.NewBadNumericError("capacity_hours for person "+p.ID, p.AvailableHours)
		}
		personIndex[p.ID] = i
		peopleByRole[p.Role] = append(peopleByRole[p.Role], i)
		roleCap[p.Role] += p.AvailableHours
		total += p.AvailableHours
	}

	// Any role participating in point work must be staffed, otherwise the
	// model is guaranteed infeasible and that should surface pre-solve.
	for _, r := range sortedRoles(roleMap) {
		if roleMap[r].ShareOfHours > 0 && len(peopleByRole[r]) == 0 {
			return nil, errors.NewUnreachableRoleError(r)
		}
	}

	kept, storyIndex, err := filterStories(stories, cfg)
	if err != nil {
		return nil, err
	}

	deps, err := resolveDeps(kept, storyIndex, stories)
	if err != nil {
		return nil, err
	}

	if err := checkAcyclic(kept, deps); err != nil {
		return nil, err
	}

	effCap := make(map[string]float64, len(roleCap))
	for role, cap := range roleCap {
		eff := cap - float64(cfg.BugsPerSprint)*roleMap[role].BugHoursPerBug
		if role == cfg.QualityRole {
			eff = math.Min(eff, cap*cfg.WIPFactorQACapacity)
		}
		effCap[role] = eff
	}

	return &Snapshot{
		People:                people,
		Stories:               kept,
		Roles:                 roleMap,
		Config:                cfg,
		PersonIndex:           personIndex,
		StoryIndex:            storyIndex,
		PeopleByRole:          peopleByRole,
		Deps:                  deps,
		RoleCapacity:          roleCap,
		EffectiveRoleCapacity: effCap,
		TotalCapacity:         total,
	}, nil
}

// Compatible reports whether a person may take a story.
func (s *Snapshot) Compatible(story Story, p Person) bool {
	return story.Role == "" || story.Role == p.Role
}

// Cost returns the hours person p consumes when assigned the story: sized
// effort plus per-story meeting overhead, with quality-role effort scaled by
// the coverage factor.
func (s *Snapshot) Cost(story Story, p Person) float64 {
	effort := float64(story.Points) * s.Config.HoursPerPoint
	if p.Role == s.Config.QualityRole {
		effort *= s.Config.QACoverageFactor
	}
	return effort + s.Roles[p.Role].MeetingLoadPerStoryHours
}

func checkConfig(cfg Config) error {
	if cfg.HoursPerPoint <= 0 {
		return errors.NewBadNumericError("hours_per_point", cfg.HoursPerPoint)
	}
	if cfg.BugsPerSprint < 0 {
		return errors.NewBadNumericError("bugs_per_sprint", float64(cfg.BugsPerSprint))
	}
	if cfg.LambdaPeoplePenalty < 0 {
		return errors.NewBadNumericError("lambda_people_penalty", cfg.LambdaPeoplePenalty)
	}
	if cfg.SolverTimeLimitSeconds < 0 {
		return errors.NewBadNumericError("solver_time_limit_seconds", cfg.SolverTimeLimitSeconds)
	}
	if cfg.MaxPointsPerDev < 0 {
		return errors.NewBadNumericError("max_points_per_dev", float64(cfg.MaxPointsPerDev))
	}
	if cfg.QACoverageFactor <= 0 {
		return errors.NewBadNumericError("qa_coverage_factor", cfg.QACoverageFactor)
	}
	if cfg.WIPFactorQACapacity <= 0 || cfg.WIPFactorQACapacity > 1 {
		return errors.NewBadNumericError("wip_factor_qa_capacity", cfg.WIPFactorQACapacity)
	}
	return nil
}

// checkShares verifies the point distribution sums to 1 over participating
// roles, within a small tolerance.
func checkShares(roles map[string]RoleProfile) error {
	sum := 0.0
	any := false
	for _, r := range roles {
		if r.ShareOfHours > 0 {
			sum += r.ShareOfHours
			any = true
		}
	}
	if any && math.Abs(sum-1) > 1e-6 {
		return errors.NewBadNumericError("sum of share_of_hours", sum).
			WithSuggestion("Shares of participating roles must sum to 1")
	}
	return nil
}

func filterStories(stories []Story, cfg Config) ([]Story, map[string]int, error) {
	forbidden := make(map[int]bool, len(cfg.ForbidPoints))
	for _, p := range cfg.ForbidPoints {
		forbidden[p] = true
	}

	seen := make(map[string]bool, len(stories))
	var kept []Story
	index := make(map[string]int)
	for _, st := range stories {
		if seen[st.ID] {
			return nil, nil, errors.NewDuplicateIDError("story", st.ID)
		}
		seen[st.ID] = true
		if st.Points <= 0 {
			return nil, nil, errors.NewBadNumericError("points for story "+st.ID, float64(st.Points))
		}
		if st.Value < 0 {
			return nil, nil, errors.NewBadNumericError("value for story "+st.ID, st.Value)
		}
		if forbidden[st.Points] {
			continue
		}
		index[st.ID] = len(kept)
		kept = append(kept, st)
	}
	return kept, index, nil
}

// resolveDeps cross-references dependency identifiers. A reference to a story
// that never existed is a configuration error; a reference to a story removed
// by forbid_points is silently dropped.
func resolveDeps(kept []Story, index map[string]int, all []Story) ([][2]int, error) {
	existed := make(map[string]bool, len(all))
	for _, st := range all {
		existed[st.ID] = true
	}

	var deps [][2]int
	for si, st := range kept {
		for _, dep := range st.DependsOn {
			di, ok := index[dep]
			if !ok {
				if existed[dep] {
					continue
				}
				return nil, errors.NewUnknownDependencyError(st.ID, dep)
			}
			if di == si {
				return nil, errors.NewCyclicDependencyError([]string{st.ID, st.ID})
			}
			deps = append(deps, [2]int{si, di})
		}
	}
	return deps, nil
}

// checkAcyclic detects cycles in the dependency graph via DFS and reports the
// offending path.
func checkAcyclic(stories []Story, deps [][2]int) error {
	graph := make(map[int][]int)
	for _, e := range deps {
		graph[e[0]] = append(graph[e[0]], e[1])
	}

	visited := make([]bool, len(stories))
	onStack := make([]bool, len(stories))

	var walk func(i int, path []int) error
	walk = func(i int, path []int) error {
		visited[i] = true
		onStack[i] = true
		path = append(path, i)

		for _, next := range graph[i] {
			if !visited[next] {
				if err := walk(next, path); err != nil {
					return err
				}
			} else if onStack[next] {
				cycle := make([]string, 0, len(path)+1)
				for _, p := range path {
					cycle = append(cycle, stories[p].ID)
				}
				cycle = append(cycle, stories[next].ID)
				return errors.NewCyclicDependencyError(cycle)
			}
		}

		onStack[i] = false
		return nil
	}

	for i := range stories {
		if !visited[i] {
			if err := walk(i, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func sortedRoles(roles map[string]RoleProfile) []string {
	names := make([]string, 0, len(roles))
	for r := range roles {
		names = append(names, r)
	}
	sort.Strings(names)
	return names
}
