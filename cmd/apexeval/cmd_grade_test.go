package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeGradeFixtures writes an eval spec, response and rubric file and
// returns their paths.
func writeGradeFixtures(t *testing.T) (evalPath, responsePath, rubricPath string) {
	t.Helper()
	dir := t.TempDir()

	spec := `name: grade-test
models:
  - model_id: mock-model
    provider: mock
    temperature: 0
    top_p: 1
    max_tokens: 1024
grading:
  model_id: mock-judge
  provider: mock
`
	evalPath = filepath.Join(dir, "eval.yaml")
	require.NoError(t, os.WriteFile(evalPath, []byte(spec), 0o644))

	responsePath = filepath.Join(dir, "response.txt")
	require.NoError(t, os.WriteFile(responsePath, []byte("The answer is 42 because the list is sorted."), 0o644))

	rubricPath = filepath.Join(dir, "rubric.json")
	require.NoError(t, os.WriteFile(rubricPath, []byte(testRubricJSON), 0o644))

	return evalPath, responsePath, rubricPath
}

func TestGradeCommand_RequiresFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no flags", []string{}},
		{"missing rubric", []string{"--eval", "e.yaml", "--response", "r.txt"}},
		{"missing response", []string{"--eval", "e.yaml", "--rubric", "r.json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newGradeCommand()
			cmd.SetArgs(tt.args)
			cmd.SetOut(new(bytes.Buffer))
			cmd.SetErr(new(bytes.Buffer))
			assert.Error(t, cmd.Execute())
		})
	}
}

func TestGradeCommand_MissingResponseFile(t *testing.T) {
	evalPath, _, rubricPath := writeGradeFixtures(t)

	cmd := newGradeCommand()
	cmd.SetArgs([]string{"--eval", evalPath, "--response", "nope.txt", "--rubric", rubricPath})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading response file")
}

func TestGradeCommand_MockGrade(t *testing.T) {
	evalPath, responsePath, rubricPath := writeGradeFixtures(t)

	var out bytes.Buffer
	cmd := newGradeCommand()
	cmd.SetArgs([]string{"--eval", evalPath, "--response", responsePath, "--rubric", rubricPath})
	cmd.SetOut(&out)
	cmd.SetErr(new(bytes.Buffer))

	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "Score: 100.0")
	// The summary is the rubric annotated with the judge's verdict.
	assert.Contains(t, out.String(), `"autorating": true`)
	assert.Contains(t, out.String(), "criterion_1")
}

func TestGradeCommand_MalformedRubric(t *testing.T) {
	evalPath, responsePath, _ := writeGradeFixtures(t)

	badRubric := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(badRubric, []byte("not json"), 0o644))

	cmd := newGradeCommand()
	cmd.SetArgs([]string{"--eval", evalPath, "--response", responsePath, "--rubric", badRubric})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))

	err := cmd.Execute()
	require.Error(t, err)

	var runFailureErr *RunFailureError
	assert.ErrorAs(t, err, &runFailureErr)
	assert.Contains(t, err.Error(), "grading failed")
}
