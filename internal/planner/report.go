package planner

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Wolfant/modelo-milp-agilidad/internal/errors"
)

// Result file names written into the output directory.
const (
	SelectedStoriesFile   = "selected_stories.csv"
	AssignmentsFile       = "assignments.csv"
	PersonUtilizationFile = "person_utilization.csv"
	SummaryFile           = "summary.txt"
)

// WriteReports writes the plan's result files into dir, creating it if
// needed: selected stories, assignments, per-person utilization and a text
// summary.
func WriteReports(plan *Plan, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewFileWriteError(dir, err)
	}

	selected := [][]string{{"story_id", "points", "value", "assignee"}}
	for _, s := range plan.Selected {
		selected = append(selected, []string{
			s.StoryID,
			strconv.Itoa(s.Points),
			formatFloat(s.Value),
			s.AssigneeID,
		})
	}
	if err := writeCSV(filepath.Join(dir, SelectedStoriesFile), selected); err != nil {
		return err
	}

	assignments := [][]string{{"person", "role", "story_id", "hours"}}
	for _, s := range plan.Selected {
		role := ""
		for _, u := range plan.Utilization {
			if u.PersonID == s.AssigneeID {
				role = u.Role
				break
			}
		}
		assignments = append(assignments, []string{s.AssigneeID, role, s.StoryID, formatFloat(s.Hours)})
	}
	if err := writeCSV(filepath.Join(dir, AssignmentsFile), assignments); err != nil {
		return err
	}

	utilization := [][]string{{"person", "role", "hours_used", "capacity", "utilization", "active", "stories"}}
	for _, u := range plan.Utilization {
		utilization = append(utilization, []string{
			u.PersonID,
			u.Role,
			formatFloat(u.CommittedHours),
			formatFloat(u.AvailableHours),
			formatFloat(u.Utilization),
			strconv.FormatBool(u.Active),
			strconv.Itoa(u.Stories),
		})
	}
	if err := writeCSV(filepath.Join(dir, PersonUtilizationFile), utilization); err != nil {
		return err
	}

	summaryPath := filepath.Join(dir, SummaryFile)
	if err := os.WriteFile(summaryPath, []byte(plan.String()), 0o644); err != nil {
		return errors.NewFileWriteError(summaryPath, err)
	}

	return nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.NewFileWriteError(path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return errors.NewFileWriteError(path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.NewFileWriteError(path, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}
