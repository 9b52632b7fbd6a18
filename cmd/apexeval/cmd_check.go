package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/apex-evals/apexeval/internal/config"
	"github.com/apex-evals/apexeval/internal/execution"
	"github.com/apex-evals/apexeval/internal/models"
	"github.com/apex-evals/apexeval/internal/validation"
	"github.com/spf13/cobra"
)

func newCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check an eval spec before running it",
		Long: `Check that an eval spec is ready to run.

Performs the following checks:
  1. Schema - validates the eval YAML against the eval schema
  2. Spec - applies defaults and semantic validation, lists every profile
  3. Credentials - verifies that each provider's API key is present
  4. Task list - with --input-dir, validates every task row and attachment

Schema, spec, and task problems fail the check; a missing credential is
reported as a warning since it can still be exported before the run.`,
		Args:          cobra.NoArgs,
		RunE:          runCheck,
		SilenceErrors: true,
	}
	cmd.Flags().String("eval", "", "Path to the eval spec YAML (required)")
	cmd.Flags().String("input-dir", "", "Input directory whose task list and attachments should be validated")
	_ = cmd.MarkFlagRequired("eval") //nolint:errcheck
	return cmd
}

// checkReport collects everything the check learned before rendering.
type checkReport struct {
	evalPath   string
	schemaErrs []string
	specErr    error
	spec       *models.EvalSpec

	inputDir    string
	taskCSV     string
	taskCSVErr  error
	taskErrs    map[string][]string
	tasksLoaded bool
}

func runCheck(cmd *cobra.Command, args []string) error {
	evalPath, err := cmd.Flags().GetString("eval")
	if err != nil {
		return err
	}
	inputDir, err := cmd.Flags().GetString("input-dir")
	if err != nil {
		return err
	}

	report := &checkReport{evalPath: evalPath, inputDir: inputDir}

	schemaErrs, err := validation.ValidateEvalFile(evalPath)
	if err != nil {
		return fmt.Errorf("failed to read eval spec: %w", err)
	}
	report.schemaErrs = schemaErrs

	report.spec, report.specErr = models.LoadEvalSpec(evalPath)

	if inputDir != "" {
		cfg := config.NewRunConfig(report.spec, config.WithInputDir(inputDir))
		report.taskCSV = cfg.TaskCSVPath()
		if _, statErr := os.Stat(report.taskCSV); statErr != nil {
			report.taskCSVErr = statErr
		} else {
			taskErrs, valErr := validation.ValidateTaskList(report.taskCSV, cfg.AttachmentRoot())
			if valErr != nil {
				report.taskCSVErr = valErr
			} else {
				report.tasksLoaded = true
				report.taskErrs = taskErrs
			}
		}
	}

	env := config.LoadEnv()
	displayCheckReport(cmd.OutOrStdout(), report, env)

	if problems := countCheckProblems(report); problems > 0 {
		return &RunFailureError{Message: fmt.Sprintf("check found %d problem(s)", problems)}
	}
	return nil
}

// countCheckProblems tallies the failures that make the spec unrunnable.
// Missing credentials are excluded: they are environment state, not spec
// state.
func countCheckProblems(report *checkReport) int {
	problems := len(report.schemaErrs)
	if report.specErr != nil {
		problems++
	}
	if report.taskCSVErr != nil {
		problems++
	}
	for _, errs := range report.taskErrs {
		problems += len(errs)
	}
	return problems
}

// credentialForProvider names the env var a provider needs and whether it is
// set. The second return is false for providers that need no credential.
func credentialForProvider(provider string, env config.Env) (name string, required bool, set bool) {
	switch provider {
	case execution.ProviderOpenAI:
		return "OPENAI_API_KEY", true, env.OpenAIAPIKey != ""
	case execution.ProviderAnthropic:
		return "ANTHROPIC_API_KEY", true, env.AnthropicAPIKey != ""
	case execution.ProviderGemini:
		return "GEMINI_API_KEY", true, env.GeminiAPIKey != ""
	}
	return "", false, true
}

// ---------------------------------------------------------------------------
// Shared display helpers for check output formatting.
//
// Convention:
//   Section header:  "emoji Title: summary\n"
//   Status line:     "   emoji  message\n"   (3-space indent, emoji, 2-space gap)
//
// 3-state icons:  ✅ = ok/passed   ⚠️ = warning   ❌ = error/failed
// ---------------------------------------------------------------------------

type writer = interface{ Write([]byte) (int, error) }

// writeSection prints a section header: "emoji Title: summary\n".
//
//nolint:errcheck
func writeSection(w writer, emoji, title, summary string) {
	if summary != "" {
		fmt.Fprintf(w, "%s %s: %s\n", emoji, title, summary)
	} else {
		fmt.Fprintf(w, "%s %s\n", emoji, title)
	}
}

// writeStatus prints a status line: "   icon  message\n".
//
//nolint:errcheck
func writeStatus(w writer, icon, message string) {
	fmt.Fprintf(w, "   %s  %s\n", icon, message)
}

// statusIcon returns the standard 3-state icon for the given state.
func statusIcon(state string) string {
	switch state {
	case "ok":
		return "✅"
	case "warning":
		return "⚠️"
	case "error":
		return "❌"
	default:
		return "—"
	}
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

// truncateName shortens a name to maxLen runes, replacing the last rune with "…" if needed.
func truncateName(name string, maxLen int) string {
	runes := []rune(name)
	if len(runes) <= maxLen {
		return name
	}
	return string(runes[:maxLen-1]) + "…"
}

//nolint:errcheck // display-only writes
func displayCheckReport(w writer, report *checkReport, env config.Env) {
	fmt.Fprintf(w, "\n🔍 Eval Readiness Check\n")
	fmt.Fprintf(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Fprintf(w, "Eval: %s\n\n", report.evalPath)

	// 1. Schema
	if len(report.schemaErrs) > 0 {
		writeSection(w, "📐", "Schema", fmt.Sprintf("%d error(s)", len(report.schemaErrs)))
		for _, e := range report.schemaErrs {
			writeStatus(w, statusIcon("error"), e)
		}
	} else {
		writeSection(w, "📐", "Schema", "Valid")
		writeStatus(w, statusIcon("ok"), "eval YAML matches the eval schema.")
	}
	fmt.Fprintf(w, "\n")

	// 2. Spec semantics
	if report.specErr != nil {
		writeSection(w, "🧪", "Spec", "Invalid")
		writeStatus(w, statusIcon("error"), report.specErr.Error())
		fmt.Fprintf(w, "\n")
	} else {
		spec := report.spec
		writeSection(w, "🧪", "Spec", spec.Name)
		writeStatus(w, statusIcon("ok"), fmt.Sprintf("%d model profile(s), %d run(s) each.", len(spec.Models), spec.Runs))
		writeStatus(w, statusIcon("ok"), fmt.Sprintf("Grading model: %s.", spec.Grading.ModelID))
		fmt.Fprintf(w, "\n")

		// 3. Credentials, one line per provider in use
		displayCredentials(w, spec, env)
	}

	// 4. Task list
	if report.inputDir != "" {
		switch {
		case report.taskCSVErr != nil:
			writeSection(w, "📋", "Task List", "Unreadable")
			writeStatus(w, statusIcon("error"), fmt.Sprintf("%s: %v", report.taskCSV, report.taskCSVErr))
		case len(report.taskErrs) > 0:
			writeSection(w, "📋", "Task List", fmt.Sprintf("%d task(s) with problems", len(report.taskErrs)))
			ids := make([]string, 0, len(report.taskErrs))
			for id := range report.taskErrs {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				fmt.Fprintf(w, "   %s:\n", id)
				for _, e := range report.taskErrs[id] {
					fmt.Fprintf(w, "     ❌  %s\n", e)
				}
			}
		case report.tasksLoaded:
			writeSection(w, "📋", "Task List", "Valid")
			writeStatus(w, statusIcon("ok"), fmt.Sprintf("%s parsed with no problems.", report.taskCSV))
		}
		fmt.Fprintf(w, "\n")
	}

	// Overall
	fmt.Fprintf(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	if countCheckProblems(report) == 0 {
		fmt.Fprintf(w, "✅ Ready to run.\n\n")
	} else {
		fmt.Fprintf(w, "⚠️  This eval needs some work before it can run.\n\n")
	}
}

//nolint:errcheck
func displayCredentials(w writer, spec *models.EvalSpec, env config.Env) {
	writeSection(w, "🔑", "Credentials", "")

	const modelWidth = 30
	seen := make(map[string]bool)
	profiles := append([]models.ModelProfile{}, spec.Models...)
	profiles = append(profiles, spec.GradingProfile())

	for _, profile := range profiles {
		provider := execution.InferProvider(profile)
		label := fmt.Sprintf("%s (%s)", truncateName(profile.ModelID, modelWidth-8), provider)
		name, required, set := credentialForProvider(provider, env)
		switch {
		case !required:
			writeStatus(w, statusIcon(""), padRight(label, modelWidth)+" no credential required")
		case set:
			writeStatus(w, statusIcon("ok"), padRight(label, modelWidth)+" "+name+" is set")
		case seen[provider]:
			// Repeat providers get one warning line only.
		default:
			writeStatus(w, statusIcon("warning"), padRight(label, modelWidth)+" "+name+" is not set")
		}
		seen[provider] = true
	}
	fmt.Fprintf(w, "\n")
}
