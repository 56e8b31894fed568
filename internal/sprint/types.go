package sprint

// Person is a team member available during the planning interval.
type Person struct {
	ID             string
	Role           string
	AvailableHours float64
}

// Story is a backlog item candidate for the interval.
type Story struct {
	ID        string
	Points    int
	Value     float64
	DependsOn []string

	// Role optionally restricts who may take the story. Empty means any role.
	Role string

	// Mandatory forces selection; an unplaceable mandatory story makes the
	// whole model infeasible.
	Mandatory bool
}

// RoleProfile describes how a role category participates in sprint work.
type RoleProfile struct {
	Role string

	// ShareOfHours is the fraction of total committed hours expected to land
	// on this role. Shares of participating roles sum to 1.
	ShareOfHours float64

	// MeetingLoadPerStoryHours is charged per story a person of this role
	// touches, independent of story size.
	MeetingLoadPerStoryHours float64

	// BugHoursPerBug is the fixed cost reserved per expected bug for this role.
	BugHoursPerBug float64
}

// Config holds the global planning parameters (config.yaml).
type Config struct {
	HoursPerPoint          float64 `yaml:"hours_per_point"`
	BugsPerSprint          int     `yaml:"bugs_per_sprint"`
	LambdaPeoplePenalty    float64 `yaml:"lambda_people_penalty"`
	SolverTimeLimitSeconds float64 `yaml:"solver_time_limit_seconds"`

	// MaxPointsPerDev caps story points owned by any one person in a
	// point-capped role. Zero disables the cap.
	MaxPointsPerDev  int      `yaml:"max_points_per_dev"`
	PointCappedRoles []string `yaml:"point_capped_roles"`

	// ForbidPoints filters out stories with these point values before the
	// model is built. Dependencies on filtered stories are dropped.
	ForbidPoints []int `yaml:"forbid_points"`

	// QACoverageFactor scales the effort of stories taken by the quality role.
	QACoverageFactor float64 `yaml:"qa_coverage_factor"`

	// WIPFactorQACapacity buffers aggregate quality capacity, in (0, 1].
	WIPFactorQACapacity float64 `yaml:"wip_factor_qa_capacity"`

	QualityRole string `yaml:"quality_role"`

	// PenalizeActivePeople adds the count of people with any assignment to the
	// penalty term, so lambda trades value against team size.
	PenalizeActivePeople bool `yaml:"penalize_active_people"`
}

// defaultPointCappedRoles mirrors the developer roles the points cap
// traditionally applies to.
var defaultPointCappedRoles = []string{"BE", "FE"}

// WithDefaults returns a copy of the config with zero-valued optional fields
// replaced by their defaults.
func (c Config) WithDefaults() Config {
	if c.QACoverageFactor == 0 {
		c.QACoverageFactor = 1
	}
	if c.WIPFactorQACapacity == 0 {
		c.WIPFactorQACapacity = 1
	}
	if c.QualityRole == "" {
		c.QualityRole = "QA"
	}
	if c.PointCappedRoles == nil {
		c.PointCappedRoles = defaultPointCappedRoles
	}
	return c
}

// IsPointCapped reports whether the points-per-person cap applies to a role.
func (c Config) IsPointCapped(role string) bool {
	if c.MaxPointsPerDev <= 0 {
		return false
	}
	for _, r := range c.PointCappedRoles {
		if r == role {
			return true
		}
	}
	return false
}
