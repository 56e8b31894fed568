// Package input reads the tabular planning inputs (people.csv, stories.csv,
// roles.csv, config.yaml) from a data directory into typed records.
package input

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Wolfant/modelo-milp-agilidad/internal/errors"
	"github.com/Wolfant/modelo-milp-agilidad/internal/sprint"
)

// File names expected inside the data directory.
const (
	PeopleFile  = "people.csv"
	StoriesFile = "stories.csv"
	RolesFile   = "roles.csv"
	ConfigFile  = "config.yaml"
)

// Inputs bundles the raw records of one planning interval.
type Inputs struct {
	People  []sprint.Person
	Stories []sprint.Story
	Roles   []sprint.RoleProfile
	Config  sprint.Config
}

// Load reads all four input files from dir.
func Load(dir string) (*Inputs, error) {
	people, err := LoadPeople(filepath.Join(dir, PeopleFile))
	if err != nil {
		return nil, err
	}
	stories, err := LoadStories(filepath.Join(dir, StoriesFile))
	if err != nil {
		return nil, err
	}
	roles, err := LoadRoles(filepath.Join(dir, RolesFile))
	if err != nil {
		return nil, err
	}
	cfg, err := LoadConfig(filepath.Join(dir, ConfigFile))
	if err != nil {
		return nil, err
	}
	return &Inputs{People: people, Stories: stories, Roles: roles, Config: cfg}, nil
}

// LoadPeople reads people records from a CSV file with columns
// person, role, capacity_hours.
func LoadPeople(path string) ([]sprint.Person, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	people := make([]sprint.Person, 0, len(rows))
	for _, row := range rows {
		hours, err := row.float("capacity_hours")
		if err != nil {
			return nil, errors.NewFileParseError(path, err)
		}
		people = append(people, sprint.Person{
			ID:             row.get("person"),
			Role:           row.get("role"),
			AvailableHours: hours,
		})
	}
	return people, nil
}

// LoadStories reads story records from a CSV file with columns
// story_id, points, value, depends_on and optional role, mandatory.
// depends_on holds zero or more story ids separated by semicolons.
func LoadStories(path string) ([]sprint.Story, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	stories := make([]sprint.Story, 0, len(rows))
	for _, row := range rows {
		points, err := row.int("points")
		if err != nil {
			return nil, errors.NewFileParseError(path, err)
		}
		value, err := row.float("value")
		if err != nil {
			return nil, errors.NewFileParseError(path, err)
		}

		var deps []string
		for _, dep := range strings.Split(row.get("depends_on"), ";") {
			if dep = strings.TrimSpace(dep); dep != "" {
				deps = append(deps, dep)
			}
		}

		mandatory := false
		if raw := row.get("mandatory"); raw != "" {
			mandatory, err = strconv.ParseBool(raw)
			if err != nil {
				return nil, errors.NewFileParseError(path, fmt.Errorf("mandatory for story %s: %w", row.get("story_id"), err))
			}
		}

		stories = append(stories, sprint.Story{
			ID:        row.get("story_id"),
			Points:    points,
			Value:     value,
			DependsOn: deps,
			Role:      row.get("role"),
			Mandatory: mandatory,
		})
	}
	return stories, nil
}

// LoadRoles reads role profiles from a CSV file with columns
// role, share_of_hours, meeting_load_per_story_hours, bug_hours_per_bug.
func LoadRoles(path string) ([]sprint.RoleProfile, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	roles := make([]sprint.RoleProfile, 0, len(rows))
	for _, row := range rows {
		share, err := row.float("share_of_hours")
		if err != nil {
			return nil, errors.NewFileParseError(path, err)
		}
		meeting, err := row.float("meeting_load_per_story_hours")
		if err != nil {
			return nil, errors.NewFileParseError(path, err)
		}
		bugHours, err := row.float("bug_hours_per_bug")
		if err != nil {
			return nil, errors.NewFileParseError(path, err)
		}
		roles = append(roles, sprint.RoleProfile{
			Role:                     row.get("role"),
			ShareOfHours:             share,
			MeetingLoadPerStoryHours: meeting,
			BugHoursPerBug:           bugHours,
		})
	}
	return roles, nil
}

// LoadConfig reads the global parameters from a YAML file.
func LoadConfig(path string) (sprint.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return sprint.Config{}, errors.NewFileReadError(path, err)
	}

	var cfg sprint.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return sprint.Config{}, errors.NewFileParseError(path, err)
	}
	return cfg, nil
}

// record is one CSV row indexed by lower-cased header name.
type record map[string]string

func (r record) get(col string) string {
	return strings.TrimSpace(r[col])
}

func (r record) float(col string) (float64, error) {
	raw := r.get(col)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %q is not a number", col, raw)
	}
	return v, nil
}

func (r record) int(col string) (int, error) {
	raw := r.get(col)
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("column %s: %q is not an integer", col, raw)
	}
	return v, nil
}

func readCSV(path string) ([]record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewFileReadError(path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.NewFileParseError(path, err)
	}
	if len(rows) == 0 {
		return nil, errors.NewFileParseError(path, fmt.Errorf("missing header row"))
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	records := make([]record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(record, len(header))
		for i, cell := range row {
			if i < len(header) {
				rec[header[i]] = cell
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
