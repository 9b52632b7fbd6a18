// Package scaffold provides shared template helpers for generating starter
// eval projects, used by apexeval new.
package scaffold

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex-evals/apexeval/internal/dataset"
)

// ValidateName rejects eval names that are empty or unsafe as path segments.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("eval name must not be empty")
	}
	if name == "." || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("eval name %q contains invalid path characters", name)
	}
	return nil
}

// TitleCase converts a kebab-case name to Title Case.
func TitleCase(s string) string {
	words := strings.Split(s, "-")
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// TaskCSV renders a two-task starter file in the column layout the run
// pipeline reads. The first task carries a rubric, the second shows the
// ungraded path.
func TaskCSV() string {
	rubric := `{"criterion 1": {"description": "States the time complexity of the final solution.", "weight": "Primary objective(s)", "criterion_type": ["Reasoning"]}, "criterion 2": {"description": "Provides working code for the merge function.", "weight": "Secondary objective(s)", "criterion_type": ["Instruction Following"]}}`

	rows := [][]string{
		{dataset.ColumnTaskID, dataset.ColumnDomain, dataset.ColumnPrompt, dataset.ColumnAttachments, dataset.ColumnRubric},
		{"task_0001", "Software Engineering", "Implement a function that merges two sorted integer lists and explain its complexity.", "sample.py", rubric},
		{"task_0002", "Software Engineering", "Review the attached module and point out its biggest correctness risk.", "sample.py", ""},
	}

	var buf strings.Builder
	w := csv.NewWriter(&buf)
	w.WriteAll(rows) //nolint:errcheck
	return buf.String()
}

// Fixture returns the default sample.py attachment content.
func Fixture() string {
	return `def merge(left, right):
    """Merge two sorted lists into one sorted list."""
    out = []
    i = j = 0
    while i < len(left) and j < len(right):
        if left[i] <= right[j]:
            out.append(left[i])
            i += 1
        else:
            out.append(right[j])
            j += 1
    return out + left[i:] + right[j:]
`
}

// EnvExample returns a starter .env listing the credentials the engines read.
func EnvExample() string {
	return `# Provider credentials for apexeval. Copy to .env and fill in what you use.
OPENAI_API_KEY=
# OPENAI_BASE_URL=
ANTHROPIC_API_KEY=
GEMINI_API_KEY=
# DATABASE_URL=
# AZURE_STORAGE_ACCOUNT=
# AZURE_STORAGE_CONNECTION_STRING=
`
}

// WriteFiles writes the named files under dir, creating directories as
// needed. Existing files are refused unless force is set.
func WriteFiles(dir string, files map[string]string, force bool) error {
	if !force {
		for name := range files {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
		}
	}

	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}
