package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Flag validation
// ---------------------------------------------------------------------------

func TestCheckCommand_RequiresEvalFlag(t *testing.T) {
	cmd := newCheckCommand()
	cmd.SetArgs([]string{})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	assert.Error(t, cmd.Execute())
}

func TestCheckCommand_MissingEvalFile(t *testing.T) {
	cmd := newCheckCommand()
	cmd.SetArgs([]string{"--eval", filepath.Join(t.TempDir(), "nope.yaml")})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read eval spec")
}

// ---------------------------------------------------------------------------
// Readiness verdicts
// ---------------------------------------------------------------------------

func TestCheckCommand_ValidSpecIsReady(t *testing.T) {
	_, evalPath := createTestEval(t)

	var out bytes.Buffer
	cmd := newCheckCommand()
	cmd.SetArgs([]string{"--eval", evalPath})
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Ready to run.")
	assert.Contains(t, out.String(), "1 model profile(s), 1 run(s) each.")
	assert.Contains(t, out.String(), "no credential required")
}

func TestCheckCommand_ReportsSchemaAndSpecProblems(t *testing.T) {
	dir := t.TempDir()
	evalPath := filepath.Join(dir, "eval.yaml")
	spec := `name: incomplete
models:
  - model_id: m1
    provider: mock
`
	require.NoError(t, os.WriteFile(evalPath, []byte(spec), 0o644))

	var out bytes.Buffer
	cmd := newCheckCommand()
	cmd.SetArgs([]string{"--eval", evalPath})
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.Error(t, err)

	var runFailureErr *RunFailureError
	assert.True(t, errors.As(err, &runFailureErr), "expected RunFailureError type")
	assert.Contains(t, err.Error(), "check found")
	assert.Contains(t, out.String(), "needs some work")
}

// ---------------------------------------------------------------------------
// Task list validation
// ---------------------------------------------------------------------------

func TestCheckCommand_MissingTaskCSV(t *testing.T) {
	_, evalPath := createTestEval(t)
	emptyDir := t.TempDir()

	var out bytes.Buffer
	cmd := newCheckCommand()
	cmd.SetArgs([]string{"--eval", evalPath, "--input-dir", emptyDir})
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.Error(t, err)

	var runFailureErr *RunFailureError
	assert.True(t, errors.As(err, &runFailureErr), "expected RunFailureError type")
	assert.Contains(t, out.String(), "Unreadable")
}

func TestCheckCommand_ReportsTaskProblems(t *testing.T) {
	dir, evalPath := createTestEval(t)
	writeTaskCSV(t, dir, [][]string{
		{"task_0001", "General", "Prompt one.", "", testRubricJSON},
		{"task_0002", "General", "Prompt two.", "", `{not json`},
		{"task_0003", "General", "Prompt three.", "docs/missing.pdf", testRubricJSON},
	})

	var out bytes.Buffer
	cmd := newCheckCommand()
	cmd.SetArgs([]string{"--eval", evalPath, "--input-dir", dir})
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.Error(t, err)

	var runFailureErr *RunFailureError
	require.True(t, errors.As(err, &runFailureErr), "expected RunFailureError type")
	assert.Contains(t, err.Error(), "check found 2 problem(s)")
	assert.Contains(t, out.String(), "task_0002")
	assert.Contains(t, out.String(), "rubric does not decode")
	assert.Contains(t, out.String(), "attachment not found: docs/missing.pdf")
}

func TestCheckCommand_ValidTaskList(t *testing.T) {
	dir, evalPath := createTestEval(t)
	docsDir := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(docsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "spec.pdf"), []byte("pdf"), 0o644))
	writeTaskCSV(t, dir, [][]string{
		{"task_0001", "General", "Prompt one.", "", testRubricJSON},
		{"task_0002", "General", "Prompt two.", "docs/spec.pdf", testRubricJSON},
	})

	var out bytes.Buffer
	cmd := newCheckCommand()
	cmd.SetArgs([]string{"--eval", evalPath, "--input-dir", dir})
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "parsed with no problems")
	assert.Contains(t, out.String(), "Ready to run.")
}

// ---------------------------------------------------------------------------
// Display helpers
// ---------------------------------------------------------------------------

func TestTruncateName(t *testing.T) {
	assert.Equal(t, "short", truncateName("short", 10))
	assert.Equal(t, "exactly-10", truncateName("exactly-10", 10))
	assert.Equal(t, "overflowi…", truncateName("overflowing", 10))
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "ab   ", padRight("ab", 5))
	assert.Equal(t, "abcdef", padRight("abcdef", 5))
	// Double-width runes count at display width, not rune count.
	assert.Equal(t, "日本", padRight("日本", 4))
	assert.Equal(t, "日本  ", padRight("日本", 6))
}
