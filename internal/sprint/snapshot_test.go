package sprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wolfant/modelo-milp-agilidad/internal/errors"
)

func validRoles() []RoleProfile {
	return []RoleProfile{
		{Role: "BE", ShareOfHours: 0.5, MeetingLoadPerStoryHours: 0},
		{Role: "QA", ShareOfHours: 0.5, MeetingLoadPerStoryHours: 1, BugHoursPerBug: 2},
	}
}

func validPeople() []Person {
	return []Person{
		{ID: "ana", Role: "BE", AvailableHours: 40},
		{ID: "bob", Role: "QA", AvailableHours: 30},
	}
}

func validConfig() Config {
	return Config{HoursPerPoint: 2}
}

func TestNormalize_Valid(t *testing.T) {
	stories := []Story{
		{ID: "S1", Points: 3, Value: 10, Role: "BE"},
		{ID: "S2", Points: 2, Value: 8, Role: "QA", DependsOn: []string{"S1"}},
	}

	snap, err := Normalize(validPeople(), stories, validRoles(), validConfig())
	require.NoError(t, err)

	assert.Len(t, snap.Stories, 2)
	assert.Equal(t, [][2]int{{1, 0}}, snap.Deps)
	assert.Equal(t, 70.0, snap.TotalCapacity)
	assert.Equal(t, 40.0, snap.RoleCapacity["BE"])
	assert.Equal(t, 30.0, snap.RoleCapacity["QA"])
	// defaults applied
	assert.Equal(t, 1.0, snap.Config.QACoverageFactor)
	assert.Equal(t, "QA", snap.Config.QualityRole)
}

func TestNormalize_UnknownDependency(t *testing.T) {
	stories := []Story{
		{ID: "S1", Points: 3, Value: 10, DependsOn: []string{"missing"}},
	}

	_, err := Normalize(validPeople(), stories, validRoles(), validConfig())
	require.Error(t, err)
	var perr *errors.PlanningError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, errors.ErrCodeUnknownDependency, perr.Code)
}

func TestNormalize_CyclicDependency(t *testing.T) {
	tests := []struct {
		name    string
		stories []Story
	}{
		{
			name: "two story cycle",
			stories: []Story{
				{ID: "S1", Points: 1, Value: 1, DependsOn: []string{"S2"}},
				{ID: "S2", Points: 1, Value: 1, DependsOn: []string{"S1"}},
			},
		},
		{
			name: "three story cycle",
			stories: []Story{
				{ID: "S1", Points: 1, Value: 1, DependsOn: []string{"S3"}},
				{ID: "S2", Points: 1, Value: 1, DependsOn: []string{"S1"}},
				{ID: "S3", Points: 1, Value: 1, DependsOn: []string{"S2"}},
			},
		},
		{
			name: "self dependency",
			stories: []Story{
				{ID: "S1", Points: 1, Value: 1, DependsOn: []string{"S1"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(validPeople(), tt.stories, validRoles(), validConfig())
			require.Error(t, err)
			var perr *errors.PlanningError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, errors.ErrCodeCyclicDependency, perr.Code)
		})
	}
}

func TestNormalize_UnknownRole(t *testing.T) {
	people := []Person{{ID: "ana", Role: "DESIGN", AvailableHours: 10}}

	_, err := Normalize(people, nil, validRoles(), validConfig())
	require.Error(t, err)
	var perr *errors.PlanningError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, errors.ErrCodeUnknownRole, perr.Code)
}

func TestNormalize_UnreachableRole(t *testing.T) {
	// QA participates in point work but nobody staffs it
	people := []Person{{ID: "ana", Role: "BE", AvailableHours: 10}}

	_, err := Normalize(people, nil, validRoles(), validConfig())
	require.Error(t, err)
	var perr *errors.PlanningError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, errors.ErrCodeUnreachableRole, perr.Code)
}

func TestNormalize_NumericSanity(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config, *[]Person, *[]Story)
	}{
		{"zero hours_per_point", func(c *Config, _ *[]Person, _ *[]Story) { c.HoursPerPoint = 0 }},
		{"negative lambda", func(c *Config, _ *[]Person, _ *[]Story) { c.LambdaPeoplePenalty = -1 }},
		{"negative time limit", func(c *Config, _ *[]Person, _ *[]Story) { c.SolverTimeLimitSeconds = -5 }},
		{"zero person hours", func(_ *Config, p *[]Person, _ *[]Story) { (*p)[0].AvailableHours = 0 }},
		{"zero story points", func(_ *Config, _ *[]Person, s *[]Story) { (*s)[0].Points = 0 }},
		{"negative story value", func(_ *Config, _ *[]Person, s *[]Story) { (*s)[0].Value = -1 }},
		{"wip factor above one", func(c *Config, _ *[]Person, _ *[]Story) { c.WIPFactorQACapacity = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			people := validPeople()
			stories := []Story{{ID: "S1", Points: 3, Value: 10}}
			tt.mutate(&cfg, &people, &stories)

			_, err := Normalize(people, stories, validRoles(), cfg)
			require.Error(t, err)
			var perr *errors.PlanningError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, errors.ErrCodeBadNumeric, perr.Code)
		})
	}
}

func TestNormalize_SharesMustSumToOne(t *testing.T) {
	roles := []RoleProfile{
		{Role: "BE", ShareOfHours: 0.5},
		{Role: "QA", ShareOfHours: 0.2},
	}

	_, err := Normalize(validPeople(), nil, roles, validConfig())
	require.Error(t, err)
	var perr *errors.PlanningError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, errors.ErrCodeBadNumeric, perr.Code)
}

func TestNormalize_DuplicateIDs(t *testing.T) {
	t.Run("person", func(t *testing.T) {
		people := append(validPeople(), Person{ID: "ana", Role: "BE", AvailableHours: 5})
		_, err := Normalize(people, nil, validRoles(), validConfig())
		var perr *errors.PlanningError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, errors.ErrCodeDuplicateID, perr.Code)
	})

	t.Run("story", func(t *testing.T) {
		stories := []Story{
			{ID: "S1", Points: 1, Value: 1},
			{ID: "S1", Points: 2, Value: 2},
		}
		_, err := Normalize(validPeople(), stories, validRoles(), validConfig())
		var perr *errors.PlanningError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, errors.ErrCodeDuplicateID, perr.Code)
	})

	t.Run("role", func(t *testing.T) {
		roles := append(validRoles(), RoleProfile{Role: "BE"})
		_, err := Normalize(validPeople(), nil, roles, validConfig())
		var perr *errors.PlanningError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, errors.ErrCodeDuplicateID, perr.Code)
	})
}

func TestNormalize_ForbidPoints(t *testing.T) {
	cfg := validConfig()
	cfg.ForbidPoints = []int{13}

	stories := []Story{
		{ID: "epic", Points: 13, Value: 100},
		{ID: "S1", Points: 3, Value: 10, DependsOn: []string{"epic"}},
	}

	snap, err := Normalize(validPeople(), stories, validRoles(), cfg)
	require.NoError(t, err)

	// The oversized story is filtered and the dependency on it dropped.
	require.Len(t, snap.Stories, 1)
	assert.Equal(t, "S1", snap.Stories[0].ID)
	assert.Empty(t, snap.Deps)
}

func TestNormalize_EffectiveCapacity(t *testing.T) {
	cfg := validConfig()
	cfg.BugsPerSprint = 3
	cfg.WIPFactorQACapacity = 0.8

	snap, err := Normalize(validPeople(), nil, validRoles(), cfg)
	require.NoError(t, err)

	// BE has no bug cost; QA reserves 3 bugs * 2h and is then capped by the
	// WIP buffer: min(30 - 6, 30*0.8) = 24, both give 24.
	assert.InDelta(t, 40.0, snap.EffectiveRoleCapacity["BE"], 1e-9)
	assert.InDelta(t, 24.0, snap.EffectiveRoleCapacity["QA"], 1e-9)
}

func TestNormalize_BugReservationRequiresQualityProfile(t *testing.T) {
	cfg := validConfig()
	cfg.BugsPerSprint = 2

	roles := []RoleProfile{
		{Role: "BE", ShareOfHours: 1},
		{Role: "QA", ShareOfHours: 0, BugHoursPerBug: 0},
	}

	_, err := Normalize(validPeople(), nil, roles, cfg)
	require.Error(t, err)
	var perr *errors.PlanningError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, errors.ErrCodeBadNumeric, perr.Code)
}

func TestSnapshot_Cost(t *testing.T) {
	cfg := validConfig()
	cfg.QACoverageFactor = 0.5

	stories := []Story{{ID: "S1", Points: 4, Value: 1}}
	snap, err := Normalize(validPeople(), stories, validRoles(), cfg)
	require.NoError(t, err)

	be := snap.People[snap.PersonIndex["ana"]]
	qa := snap.People[snap.PersonIndex["bob"]]
	story := snap.Stories[0]

	// BE: 4 points * 2h, no meeting load.
	assert.InDelta(t, 8.0, snap.Cost(story, be), 1e-9)
	// QA: effort scaled by coverage factor plus 1h meeting load per story.
	assert.InDelta(t, 4.0+1.0, snap.Cost(story, qa), 1e-9)
}

func TestConfig_IsPointCapped(t *testing.T) {
	cfg := Config{MaxPointsPerDev: 13}.WithDefaults()
	assert.True(t, cfg.IsPointCapped("BE"))
	assert.True(t, cfg.IsPointCapped("FE"))
	assert.False(t, cfg.IsPointCapped("QA"))

	uncapped := Config{}.WithDefaults()
	assert.False(t, uncapped.IsPointCapped("BE"))
}
