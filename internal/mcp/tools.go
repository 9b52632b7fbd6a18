package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/apex-evals/apexeval/internal/attachment"
	"github.com/apex-evals/apexeval/internal/config"
	"github.com/apex-evals/apexeval/internal/dataset"
	"github.com/apex-evals/apexeval/internal/execution"
	"github.com/apex-evals/apexeval/internal/grading"
	"github.com/apex-evals/apexeval/internal/jsonrpc"
	"github.com/apex-evals/apexeval/internal/models"
	"github.com/apex-evals/apexeval/internal/reporting"
	"github.com/apex-evals/apexeval/internal/results"
	"github.com/apex-evals/apexeval/internal/validation"
)

// Tool names exposed over tools/list.
const (
	toolValidateEval  = "apexeval_validate_eval"
	toolListTasks     = "apexeval_list_tasks"
	toolGradeResponse = "apexeval_grade_response"
	toolResultsReport = "apexeval_results_report"
)

// Tool describes an MCP tool with its input schema.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// toolbox returns the tools the server offers.
func toolbox() []Tool {
	return []Tool{
		{
			Name:        toolValidateEval,
			Description: "Validate an eval spec and, when a dataset root is given, its task list",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"eval_path": {"type": "string", "description": "Path to the eval spec YAML"},
					"input_dir": {"type": "string", "description": "Dataset root holding data/train.csv; task rows are validated when set"}
				},
				"required": ["eval_path"]
			}`),
		},
		{
			Name:        toolListTasks,
			Description: "List the tasks in a dataset's task list CSV",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"input_dir": {"type": "string", "description": "Dataset root holding data/train.csv"},
					"task_csv": {"type": "string", "description": "Explicit task list CSV path, overrides input_dir"}
				}
			}`),
		},
		{
			Name:        toolGradeResponse,
			Description: "Grade one response against a rubric using the spec's grading model",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"eval_path": {"type": "string", "description": "Path to the eval spec YAML naming the grading model"},
					"response": {"type": "string", "description": "Response text to grade"},
					"rubric_json": {"type": "string", "description": "Rubric as a JSON object keyed by criterion"}
				},
				"required": ["eval_path", "response", "rubric_json"]
			}`),
		},
		{
			Name:        toolResultsReport,
			Description: "Summarize a results CSV: per model and run scores, failures and status tallies",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"results_csv": {"type": "string", "description": "Path to a results CSV written by an evaluation run"}
				},
				"required": ["results_csv"]
			}`),
		},
	}
}

// callTool routes one tools/call invocation to its handler.
func (s *Server) callTool(ctx context.Context, name string, args json.RawMessage) (any, error) {
	switch name {
	case toolValidateEval:
		return s.validateEval(args)
	case toolListTasks:
		return s.listTasks(args)
	case toolGradeResponse:
		return s.gradeResponse(ctx, args)
	case toolResultsReport:
		return s.resultsReport(args)
	}
	return nil, fmt.Errorf("unknown tool: %s", name)
}

type validateEvalArgs struct {
	EvalPath string `json:"eval_path"`
	InputDir string `json:"input_dir"`
}

type validateEvalResult struct {
	Ready    bool     `json:"ready"`
	Problems []string `json:"problems"`
}

func (s *Server) validateEval(args json.RawMessage) (any, error) {
	var p validateEvalArgs
	if err := json.Unmarshal(args, &p); err != nil {
		return nil, jsonrpc.ErrInvalidParams(err.Error())
	}
	if p.EvalPath == "" {
		return nil, jsonrpc.ErrInvalidParams("eval_path is required")
	}
	if _, err := os.Stat(p.EvalPath); err != nil {
		return nil, jsonrpc.ErrSpecNotFound(p.EvalPath)
	}

	problems, err := validation.ValidateEvalFile(p.EvalPath)
	if err != nil {
		return nil, jsonrpc.ErrValidationFailed(err.Error())
	}

	spec, err := models.LoadEvalSpec(p.EvalPath)
	if err != nil {
		problems = append(problems, fmt.Sprintf("spec does not load: %v", err))
	}

	if p.InputDir != "" {
		cfg := config.NewRunConfig(spec, config.WithInputDir(p.InputDir))
		taskErrs, listErr := validation.ValidateTaskList(cfg.TaskCSVPath(), cfg.AttachmentRoot())
		if listErr != nil {
			problems = append(problems, fmt.Sprintf("task list: %v", listErr))
		} else {
			ids := make([]string, 0, len(taskErrs))
			for id := range taskErrs {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				for _, msg := range taskErrs[id] {
					problems = append(problems, fmt.Sprintf("%s: %s", id, msg))
				}
			}
		}
	}

	if problems == nil {
		problems = []string{}
	}
	return validateEvalResult{Ready: len(problems) == 0, Problems: problems}, nil
}

type listTasksArgs struct {
	InputDir string `json:"input_dir"`
	TaskCSV  string `json:"task_csv"`
}

type taskSummary struct {
	TaskID      string `json:"task_id"`
	Domain      string `json:"domain"`
	HasRubric   bool   `json:"has_rubric"`
	Attachments int    `json:"attachments"`
}

type listTasksResult struct {
	Count int           `json:"count"`
	Tasks []taskSummary `json:"tasks"`
}

func (s *Server) listTasks(args json.RawMessage) (any, error) {
	var p listTasksArgs
	if err := json.Unmarshal(args, &p); err != nil {
		return nil, jsonrpc.ErrInvalidParams(err.Error())
	}
	if p.InputDir == "" && p.TaskCSV == "" {
		return nil, jsonrpc.ErrInvalidParams("input_dir or task_csv is required")
	}

	cfg := config.NewRunConfig(nil, config.WithInputDir(p.InputDir), config.WithTaskCSV(p.TaskCSV))
	tasks, err := dataset.LoadTasks(cfg.TaskCSVPath())
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}

	result := listTasksResult{Count: len(tasks), Tasks: make([]taskSummary, 0, len(tasks))}
	for _, task := range tasks {
		result.Tasks = append(result.Tasks, taskSummary{
			TaskID:      task.TaskID,
			Domain:      task.Domain,
			HasRubric:   task.HasRubric(),
			Attachments: len(attachment.Split(task.FileAttachments)),
		})
	}
	return result, nil
}

type gradeResponseArgs struct {
	EvalPath   string `json:"eval_path"`
	Response   string `json:"response"`
	RubricJSON string `json:"rubric_json"`
}

type gradeResponseResult struct {
	Score        float64         `json:"score"`
	ScoreSummary json.RawMessage `json:"score_summary"`
}

func (s *Server) gradeResponse(ctx context.Context, args json.RawMessage) (any, error) {
	var p gradeResponseArgs
	if err := json.Unmarshal(args, &p); err != nil {
		return nil, jsonrpc.ErrInvalidParams(err.Error())
	}
	if p.EvalPath == "" {
		return nil, jsonrpc.ErrInvalidParams("eval_path is required")
	}
	if _, err := os.Stat(p.EvalPath); err != nil {
		return nil, jsonrpc.ErrSpecNotFound(p.EvalPath)
	}

	spec, err := models.LoadEvalSpec(p.EvalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load eval spec: %w", err)
	}

	router := execution.NewRouter(config.LoadEnv())
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = router.Shutdown(shutdownCtx)
	}()

	grader := grading.NewGrader(grading.NewLLMJudge(router, spec.GradingProfile()))
	outcome, err := grader.Grade(ctx, p.Response, p.RubricJSON)
	if err != nil {
		return nil, jsonrpc.ErrGradingFailed(err.Error())
	}

	return gradeResponseResult{
		Score:        outcome.Score,
		ScoreSummary: json.RawMessage(outcome.ScoreSummary),
	}, nil
}

type resultsReportArgs struct {
	ResultsCSV string `json:"results_csv"`
}

func (s *Server) resultsReport(args json.RawMessage) (any, error) {
	var p resultsReportArgs
	if err := json.Unmarshal(args, &p); err != nil {
		return nil, jsonrpc.ErrInvalidParams(err.Error())
	}
	if p.ResultsCSV == "" {
		return nil, jsonrpc.ErrInvalidParams("results_csv is required")
	}

	headers, rows, err := results.NewStore(p.ResultsCSV).Read()
	if err != nil {
		return nil, fmt.Errorf("failed to load results: %w", err)
	}
	return reporting.BuildResultsReport(p.ResultsCSV, headers, rows), nil
}
