package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/apex-evals/apexeval/internal/projectconfig"
	"github.com/apex-evals/apexeval/internal/scaffold"
	"github.com/apex-evals/apexeval/internal/wizard"
)

func newNewCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "new [path]",
		Short: "Create a starter eval project",
		Long: `Create a starter eval project: an eval.yaml spec, a two-task data/train.csv,
a sample attachment, and a .env.example listing the provider credentials.

When running in a terminal (TTY), launches an interactive wizard to collect
the spec fields. In non-interactive environments (CI, pipes), uses project
defaults. The directory name becomes the eval name.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return newCommandE(cmd, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite files that already exist")

	return cmd
}

func newCommandE(cmd *cobra.Command, dir string, force bool) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", dir, err)
	}

	name := filepath.Base(absDir)
	if scaffold.ValidateName(name) != nil {
		name = "my-eval"
	}

	var draft *wizard.EvalDraft
	// Check TTY from the command's input stream, not os.Stdin directly.
	inReader := cmd.InOrStdin()
	isTTY := false
	if f, ok := inReader.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}
	if isTTY {
		draft, err = wizard.RunEvalWizard(cmd.InOrStdin(), cmd.OutOrStdout(), name)
		if err != nil {
			return fmt.Errorf("wizard failed: %w", err)
		}
	} else {
		cfg, err := projectconfig.Load(".")
		if err != nil {
			return fmt.Errorf("loading project config: %w", err)
		}
		draft = &wizard.EvalDraft{
			Name:         name,
			Description:  fmt.Sprintf("Evaluation suite for %s.", scaffold.TitleCase(name)),
			Models:       []string{cfg.Defaults.Model},
			Runs:         cfg.Defaults.Runs,
			GradingModel: cfg.Defaults.GradingModel,
		}
	}

	evalYAML, err := wizard.GenerateEvalYAML(draft)
	if err != nil {
		return fmt.Errorf("failed to generate eval.yaml: %w", err)
	}

	files := map[string]string{
		"eval.yaml":      evalYAML,
		"data/train.csv": scaffold.TaskCSV(),
		"sample.py":      scaffold.Fixture(),
		".env.example":   scaffold.EnvExample(),
		".gitignore":     defaultGitignore(),
		"README.md":      defaultReadme(draft.Name),
	}

	if err := scaffold.WriteFiles(absDir, files, force); err != nil {
		return err
	}

	printScaffoldSummary(cmd.OutOrStdout(), absDir)
	return nil
}

//nolint:errcheck
func printScaffoldSummary(w writer, dir string) {
	fmt.Fprintf(w, "Created eval project in %s:\n", dir)
	for _, f := range []string{"eval.yaml", "data/train.csv", "sample.py", ".env.example", ".gitignore", "README.md"} {
		fmt.Fprintf(w, "  create %s\n", f)
	}
	fmt.Fprintf(w, "\nNext steps:\n")
	fmt.Fprintf(w, "  1. Copy .env.example to .env and fill in your API keys\n")
	fmt.Fprintf(w, "  2. Edit data/train.csv with your tasks and rubrics\n")
	fmt.Fprintf(w, "  3. apexeval check --eval eval.yaml --input-dir .\n")
	fmt.Fprintf(w, "  4. apexeval run --eval eval.yaml --input-dir . -o results.csv\n")
}

func defaultGitignore() string {
	return `.env
*.csv
!data/train.csv
.apexeval-cache/
logs/
`
}

func defaultReadme(name string) string {
	return fmt.Sprintf(`# %s

A rubric-graded model evaluation run with apexeval.

## Quick Start

1. Copy `+"`.env.example`"+` to `+"`.env`"+` and fill in the credentials for
   the providers your models use.
2. Edit `+"`data/train.csv`"+`: one row per task with a prompt, optional
   attachments (paths relative to this directory), and a rubric JSON.
3. Check the setup before burning tokens:

`+"```bash"+`
apexeval check --eval eval.yaml --input-dir .
`+"```"+`

4. Run the evaluation:

`+"```bash"+`
apexeval run --eval eval.yaml --input-dir . -o results.csv
`+"```"+`

5. Summarize the output:

`+"```bash"+`
apexeval report results.csv
`+"```"+`

## Structure

`+"```"+`
%s/
├── eval.yaml        # Model profiles, runs, grading model
├── data/
│   └── train.csv    # Task list: prompts, attachments, rubrics
├── sample.py        # Example attachment referenced by the tasks
├── .env.example     # Credential template
└── README.md
`+"```"+`

An interrupted run can pick up where it left off with `+"`--resume`"+`.
`, scaffold.TitleCase(name), name)
}
