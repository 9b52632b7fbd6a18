package validation

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/apex-evals/apexeval/internal/attachment"
	"github.com/apex-evals/apexeval/internal/dataset"
	"github.com/apex-evals/apexeval/internal/rubric"
	"github.com/apex-evals/apexeval/schemas"
)

// defaultPrinter is used to format schema validation error messages.
var defaultPrinter = message.NewPrinter(language.English)

// evalSchema is the compiled JSON Schema for eval.yaml files.
var evalSchema *jsonschema.Schema

// verdictSchema is the compiled JSON Schema for grading model verdicts.
var verdictSchema *jsonschema.Schema

func init() {
	evalSchema = mustCompileSchema(schemas.EvalSchemaJSON, "eval.schema.json")
	verdictSchema = mustCompileSchema(schemas.VerdictSchemaJSON, "verdict.schema.json")
}

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	var schemaDoc any
	if err := json.Unmarshal([]byte(raw), &schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// ValidateEvalFile validates an eval.yaml file at the given path against the
// embedded schema.
func ValidateEvalFile(evalPath string) ([]string, error) {
	data, err := os.ReadFile(evalPath)
	if err != nil {
		return nil, fmt.Errorf("reading eval file: %w", err)
	}
	return ValidateEvalBytes(data), nil
}

// ValidateEvalBytes validates raw YAML bytes against the eval schema.
func ValidateEvalBytes(data []byte) []string {
	return validateYAMLBytes(evalSchema, data)
}

// ValidateVerdict checks a decoded grading verdict against the verdict
// schema. The instance must be JSON-compatible (the result of unmarshalling
// into any).
func ValidateVerdict(instance any) []string {
	return validateAgainstSchema(verdictSchema, instance)
}

// ValidateTaskList inspects every row of a task CSV and reports per-task
// problems keyed by task ID: blank prompts, rubrics that do not decode, and
// attachment references that do not resolve under attachmentRoot. Tasks
// without a rubric are reported too, since their responses will never be
// graded.
func ValidateTaskList(csvPath string, attachmentRoot string) (map[string][]string, error) {
	tasks, err := dataset.LoadTasks(csvPath)
	if err != nil {
		return nil, err
	}

	taskErrs := make(map[string][]string)
	for _, task := range tasks {
		var errs []string
		if strings.TrimSpace(task.Prompt) == "" {
			errs = append(errs, "prompt is blank")
		}
		if task.HasRubric() {
			if _, decodeErr := rubric.Decode(task.RubricJSON); decodeErr != nil {
				errs = append(errs, fmt.Sprintf("rubric does not decode: %v", decodeErr))
			}
		} else {
			errs = append(errs, "no rubric; responses will not be graded")
		}
		for _, ref := range attachment.Missing(task.FileAttachments, attachmentRoot) {
			errs = append(errs, fmt.Sprintf("attachment not found: %s", ref))
		}
		if len(errs) > 0 {
			taskErrs[task.TaskID] = errs
		}
	}
	return taskErrs, nil
}

func validateYAMLBytes(schema *jsonschema.Schema, data []byte) []string {
	var yamlDoc any
	if err := yaml.Unmarshal(data, &yamlDoc); err != nil {
		return []string{fmt.Sprintf("YAML parse error: %v", err)}
	}

	return validateAgainstSchema(schema, convertToJSONCompatible(yamlDoc))
}

func validateAgainstSchema(schema *jsonschema.Schema, instance any) []string {
	err := schema.Validate(instance)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var errs []string
	collectSchemaErrors(ve, &errs)
	return errs
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(defaultPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}

// convertToJSONCompatible converts YAML-decoded values to JSON-compatible types.
// yaml.v3 decodes to map[string]any which is fine, but integers need to stay as-is.
func convertToJSONCompatible(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v2 := range val {
			result[k] = convertToJSONCompatible(v2)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, v2 := range val {
			result[i] = convertToJSONCompatible(v2)
		}
		return result
	default:
		return val
	}
}
