package mcp

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apex-evals/apexeval/internal/jsonrpc"
	"github.com/apex-evals/apexeval/internal/models"
	"github.com/apex-evals/apexeval/internal/reporting"
	"github.com/apex-evals/apexeval/internal/results"
)

const taskRubric = `{"criterion_1": {"description": "States the sum."}}`

// serveLine pushes one request line through a fresh server and decodes the
// single response line it produces.
func serveLine(t *testing.T, line string) jsonrpc.Response {
	t.Helper()
	srv := NewServer("1.2.3", slog.New(slog.NewTextHandler(io.Discard, nil)))

	var out bytes.Buffer
	srv.Serve(context.Background(), strings.NewReader(line+"\n"), &out)

	var resp jsonrpc.Response
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	return resp
}

// callTool invokes one tool through the full tools/call path.
func callTool(t *testing.T, name string, args any) toolsCallResult {
	t.Helper()
	argJSON, err := json.Marshal(args)
	require.NoError(t, err)
	params, err := json.Marshal(toolsCallParams{Name: name, Arguments: argJSON})
	require.NoError(t, err)

	resp := serveLine(t, fmt.Sprintf(`{"jsonrpc":"2.0","method":"tools/call","params":%s,"id":7}`, params))
	require.Nil(t, resp.Error)

	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result toolsCallResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.Len(t, result.Content, 1)
	require.Equal(t, "text", result.Content[0].Type)
	return result
}

// writeEvalSpec writes a minimal valid spec wired to the mock provider.
func writeEvalSpec(t *testing.T) string {
	t.Helper()
	spec := `name: mcp-test
models:
  - model_id: mock-model
    provider: mock
    max_tokens: 1024
grading:
  model_id: mock-judge
  provider: mock
`
	path := filepath.Join(t.TempDir(), "eval.yaml")
	require.NoError(t, os.WriteFile(path, []byte(spec), 0o644))
	return path
}

// writeDataset lays out a dataset root with data/train.csv holding one
// graded task and one task with no rubric and missing attachments.
func writeDataset(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "data"), 0o755))

	f, err := os.Create(filepath.Join(root, "data", "train.csv"))
	require.NoError(t, err)
	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll([][]string{
		{"Task ID", "Domain", "Prompt", "File Attachments", "Rubric JSON"},
		{"task_0001", "math", "Add the numbers.", "", taskRubric},
		{"task_0002", "writing", "Summarize the text.", "notes.txt\nmore.txt", ""},
	}))
	require.NoError(t, f.Close())
	return root
}

func TestInitialize(t *testing.T) {
	resp := serveLine(t, `{"jsonrpc":"2.0","method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}},"id":1}`)
	require.Nil(t, resp.Error)

	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result initializeResult
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, protocolVersion, result.ProtocolVersion)
	assert.Equal(t, "apexeval", result.ServerInfo.Name)
	assert.Equal(t, "1.2.3", result.ServerInfo.Version)
	assert.NotNil(t, result.Capabilities.Tools)
}

func TestToolsList(t *testing.T) {
	resp := serveLine(t, `{"jsonrpc":"2.0","method":"tools/list","params":{},"id":2}`)
	require.Nil(t, resp.Error)

	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result toolsListResult
	require.NoError(t, json.Unmarshal(data, &result))

	names := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description)
		assert.NotEmpty(t, tool.InputSchema)
	}
	assert.ElementsMatch(t, []string{
		"apexeval_validate_eval",
		"apexeval_list_tasks",
		"apexeval_grade_response",
		"apexeval_results_report",
	}, names)
}

func TestToolsCall_UnknownTool(t *testing.T) {
	result := callTool(t, "nonexistent", map[string]string{})

	assert.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "unknown tool")
}

func TestUnknownMethod(t *testing.T) {
	resp := serveLine(t, `{"jsonrpc":"2.0","method":"unknown/method","params":{},"id":3}`)

	require.NotNil(t, resp.Error)
	assert.Equal(t, jsonrpc.CodeMethodNotFound, resp.Error.Code)
}

func TestValidateEval_MissingSpec(t *testing.T) {
	result := callTool(t, toolValidateEval, map[string]string{
		"eval_path": filepath.Join(t.TempDir(), "nope.yaml"),
	})

	assert.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "Eval spec not found")
}

func TestValidateEval_CleanSpec(t *testing.T) {
	result := callTool(t, toolValidateEval, map[string]string{
		"eval_path": writeEvalSpec(t),
	})
	require.False(t, result.IsError, result.Content[0].Text)

	var verdict validateEvalResult
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &verdict))
	assert.True(t, verdict.Ready)
	assert.Empty(t, verdict.Problems)
}

func TestValidateEval_ReportsTaskProblems(t *testing.T) {
	result := callTool(t, toolValidateEval, map[string]string{
		"eval_path": writeEvalSpec(t),
		"input_dir": writeDataset(t),
	})
	require.False(t, result.IsError, result.Content[0].Text)

	var verdict validateEvalResult
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &verdict))
	assert.False(t, verdict.Ready)

	joined := strings.Join(verdict.Problems, "\n")
	assert.Contains(t, joined, "task_0002: no rubric")
	assert.Contains(t, joined, "attachment not found: notes.txt")
	assert.NotContains(t, joined, "task_0001")
}

func TestListTasks(t *testing.T) {
	result := callTool(t, toolListTasks, map[string]string{
		"input_dir": writeDataset(t),
	})
	require.False(t, result.IsError, result.Content[0].Text)

	var list listTasksResult
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &list))
	require.Equal(t, 2, list.Count)

	assert.Equal(t, "task_0001", list.Tasks[0].TaskID)
	assert.Equal(t, "math", list.Tasks[0].Domain)
	assert.True(t, list.Tasks[0].HasRubric)
	assert.Equal(t, 0, list.Tasks[0].Attachments)

	assert.Equal(t, "task_0002", list.Tasks[1].TaskID)
	assert.False(t, list.Tasks[1].HasRubric)
	assert.Equal(t, 2, list.Tasks[1].Attachments)
}

func TestListTasks_ExplicitCSV(t *testing.T) {
	root := writeDataset(t)

	result := callTool(t, toolListTasks, map[string]string{
		"task_csv": filepath.Join(root, "data", "train.csv"),
	})
	require.False(t, result.IsError, result.Content[0].Text)

	var list listTasksResult
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &list))
	assert.Equal(t, 2, list.Count)
}

func TestListTasks_MissingDataset(t *testing.T) {
	result := callTool(t, toolListTasks, map[string]string{
		"input_dir": t.TempDir(),
	})

	assert.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "loading tasks")
}

func TestGradeResponse(t *testing.T) {
	result := callTool(t, toolGradeResponse, map[string]string{
		"eval_path":   writeEvalSpec(t),
		"response":    "The sum is 42.",
		"rubric_json": taskRubric,
	})
	require.False(t, result.IsError, result.Content[0].Text)

	var graded gradeResponseResult
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &graded))
	assert.InDelta(t, 100.0, graded.Score, 1e-9)
	assert.Contains(t, string(graded.ScoreSummary), `"autorating": true`)
	assert.Contains(t, string(graded.ScoreSummary), "criterion_1")
}

func TestGradeResponse_EmptyResponse(t *testing.T) {
	result := callTool(t, toolGradeResponse, map[string]string{
		"eval_path":   writeEvalSpec(t),
		"response":    "",
		"rubric_json": taskRubric,
	})

	assert.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "Grading failed")
}

func TestResultsReport(t *testing.T) {
	headers := []string{
		"task_id", "domain", "status",
		"model_a_1_response", "model_a_1_score", "model_a_1_score_summary",
	}
	path := filepath.Join(t.TempDir(), "results.csv")
	store := results.NewStore(path)
	require.NoError(t, store.Reset(headers))
	require.NoError(t, store.Append(headers, models.ResultRecord{
		"task_id": "task_0001", "domain": "math", "status": "completed",
		"model_a_1_response":      "The sum is 42.",
		"model_a_1_score":         "85",
		"model_a_1_score_summary": `{"criterion_1": {"description": "States the sum.", "autorating": true, "reason": "ok"}}`,
	}))

	result := callTool(t, toolResultsReport, map[string]string{"results_csv": path})
	require.False(t, result.IsError, result.Content[0].Text)

	var report reporting.ResultsReport
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &report))
	assert.Equal(t, 1, report.Tasks)
	assert.Equal(t, 1, report.Completed)
	require.Len(t, report.ModelRuns, 1)
	assert.Equal(t, "model_a", report.ModelRuns[0].Model)
	assert.Equal(t, 1, report.ModelRuns[0].Graded)
	assert.InDelta(t, 85.0, report.ModelRuns[0].Stats.Mean, 1e-9)
}

func TestResultsReport_MissingFile(t *testing.T) {
	result := callTool(t, toolResultsReport, map[string]string{
		"results_csv": filepath.Join(t.TempDir(), "nope.csv"),
	})

	assert.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "failed to load results")
}

func TestServe_HandshakeFlow(t *testing.T) {
	input := `{"jsonrpc":"2.0","method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}},"id":1}` + "\n" +
		`{"jsonrpc":"2.0","method":"notifications/initialized","params":{}}` + "\n" +
		`{"jsonrpc":"2.0","method":"tools/list","params":{},"id":2}` + "\n"

	srv := NewServer("dev", slog.New(slog.NewTextHandler(io.Discard, nil)))
	var out bytes.Buffer
	srv.Serve(context.Background(), strings.NewReader(input), &out)

	// The notification in the middle must not produce a line.
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	for i, line := range lines {
		var resp jsonrpc.Response
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		assert.Nil(t, resp.Error, "line %d", i)
		assert.NotNil(t, resp.Result, "line %d", i)
	}
}
