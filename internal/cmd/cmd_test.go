package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wolfant/modelo-milp-agilidad/internal/errors"
	"github.com/Wolfant/modelo-milp-agilidad/internal/exitcode"
	"github.com/Wolfant/modelo-milp-agilidad/internal/planner"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeDataDir(t *testing.T, stories string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"people.csv": "person,role,capacity_hours\nana,BE,10\nbea,QA,5\n",
		"roles.csv": "role,share_of_hours,meeting_load_per_story_hours,bug_hours_per_bug\n" +
			"BE,0.6,0,0\nQA,0.4,0,0\n",
		"stories.csv": stories,
		"config.yaml": "hours_per_point: 2\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func feasibleStories() string {
	return "story_id,points,value,depends_on,role\nS1,3,10,,BE\nS2,2,8,S1,QA\n"
}

func TestSolveCommand(t *testing.T) {
	dataDir := writeDataDir(t, feasibleStories())
	outDir := filepath.Join(t.TempDir(), "results")

	_, err := executeCommand(t, "solve", "--data", dataDir, "--out", outDir, "--format", "json")
	require.NoError(t, err)

	for _, name := range []string{
		planner.SelectedStoriesFile,
		planner.AssignmentsFile,
		planner.PersonUtilizationFile,
		planner.SummaryFile,
	} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}
}

func TestSolveCommand_Infeasible(t *testing.T) {
	stories := "story_id,points,value,depends_on,role,mandatory\nS1,20,10,,BE,true\n"
	dataDir := writeDataDir(t, stories)
	outDir := filepath.Join(t.TempDir(), "results")

	_, err := executeCommand(t, "solve", "--data", dataDir, "--out", outDir, "--format", "text")
	require.Error(t, err)

	var perr *errors.PlanningError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, errors.ErrCodeInfeasible, perr.Code)
	assert.Equal(t, exitcode.Infeasible, exitcode.DetermineExitCode(err))

	// The infeasible plan and its hints are still reported.
	assert.FileExists(t, filepath.Join(outDir, planner.SummaryFile))
}

func TestSolveCommand_CyclicInputs(t *testing.T) {
	stories := "story_id,points,value,depends_on,role\nS1,1,5,S2,BE\nS2,1,5,S1,QA\n"
	dataDir := writeDataDir(t, stories)

	_, err := executeCommand(t, "solve", "--data", dataDir, "--out", "")
	require.Error(t, err)
	assert.Equal(t, exitcode.ConfigError, exitcode.DetermineExitCode(err))
}

func TestSolveCommand_MissingDataDir(t *testing.T) {
	_, err := executeCommand(t, "solve", "--data", filepath.Join(t.TempDir(), "nope"), "--out", "")
	require.Error(t, err)

	var perr *errors.PlanningError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, errors.ErrCodeFileReadFailed, perr.Code)
}

func TestSolveCommand_UnknownFormat(t *testing.T) {
	dataDir := writeDataDir(t, feasibleStories())

	_, err := executeCommand(t, "solve", "--data", dataDir, "--out", "", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestValidateCommand(t *testing.T) {
	dataDir := writeDataDir(t, feasibleStories())

	_, err := executeCommand(t, "validate", "--data", dataDir)
	require.NoError(t, err)
}

func TestValidateCommand_BadInputs(t *testing.T) {
	stories := "story_id,points,value,depends_on,role\nS1,1,5,ghost,BE\n"
	dataDir := writeDataDir(t, stories)

	_, err := executeCommand(t, "validate", "--data", dataDir)
	require.Error(t, err)

	var perr *errors.PlanningError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, errors.ErrCodeUnknownDependency, perr.Code)
}

func TestVersionCommand(t *testing.T) {
	_, err := executeCommand(t, "version")
	require.NoError(t, err)

	_, err = executeCommand(t, "version", "--short")
	require.NoError(t, err)
}

func TestUnknownCommand(t *testing.T) {
	_, err := executeCommand(t, "frobnicate")
	require.Error(t, err)
	assert.Equal(t, exitcode.UsageError, exitcode.DetermineExitCode(err))
}
