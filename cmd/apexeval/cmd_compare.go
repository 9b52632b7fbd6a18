package main

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/apex-evals/apexeval/internal/metrics"
	"github.com/apex-evals/apexeval/internal/models"
	"github.com/apex-evals/apexeval/internal/orchestration"
	"github.com/apex-evals/apexeval/internal/results"
	"github.com/apex-evals/apexeval/internal/rubric"
	"github.com/spf13/cobra"
)

// scoreColumnPattern matches result score columns: <sanitized model>_<run>_score.
var scoreColumnPattern = regexp.MustCompile(`^(.+)_(\d+)_score$`)

var (
	compareThreshold    float64
	compareOutputFormat string
)

func newCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <baseline.csv> <candidate.csv>",
		Short: "Compare two evaluation results files",
		Long: `Compare a candidate results file against a baseline over the tasks both
contain. Reports per-column mean deltas, a bootstrap confidence interval
over the paired per-task deltas, tasks that regressed past the threshold,
and judge agreement between the two runs' per-criterion verdicts.`,
		Args: cobra.ExactArgs(2),
		RunE: compareCommandE,
	}

	cmd.Flags().Float64VarP(&compareThreshold, "threshold", "t", 5.0, "Per-task regression threshold in score points")
	cmd.Flags().StringVarP(&compareOutputFormat, "format", "f", "table", "Output format: table or json")

	return cmd
}

// columnComparison holds mean scores for one shared (model, run) column.
type columnComparison struct {
	Model         string  `json:"model"`
	Run           int     `json:"run"`
	SharedScores  int     `json:"shared_scores"`
	BaselineMean  float64 `json:"baseline_mean"`
	CandidateMean float64 `json:"candidate_mean"`
	MeanDelta     float64 `json:"mean_delta"`
}

// taskRegression flags one task whose mean score dropped past the threshold.
type taskRegression struct {
	TaskID         string  `json:"task_id"`
	BaselineScore  float64 `json:"baseline_score"`
	CandidateScore float64 `json:"candidate_score"`
	Delta          float64 `json:"delta"`
}

// compareReport is the full comparison output.
type compareReport struct {
	BaselineFile   string                     `json:"baseline_file"`
	CandidateFile  string                     `json:"candidate_file"`
	SharedTasks    int                        `json:"shared_tasks"`
	BaselineMean   float64                    `json:"baseline_mean"`
	CandidateMean  float64                    `json:"candidate_mean"`
	MeanDelta      float64                    `json:"mean_delta"`
	NormalizedGain float64                    `json:"normalized_gain"`
	DeltaCI        metrics.ConfidenceInterval `json:"delta_ci"`
	Significant    bool                       `json:"significant"`
	Columns        []columnComparison         `json:"columns"`
	Regressions    []taskRegression           `json:"regressions"`
	Agreement      *metrics.AgreementMetrics  `json:"judge_agreement,omitempty"`
}

func compareCommandE(_ *cobra.Command, args []string) error {
	if compareOutputFormat != "table" && compareOutputFormat != "json" {
		return fmt.Errorf("unsupported format %q: must be table or json", compareOutputFormat)
	}

	baseHeaders, baseRows, err := results.NewStore(args[0]).Read()
	if err != nil {
		return fmt.Errorf("failed to load baseline: %w", err)
	}
	candHeaders, candRows, err := results.NewStore(args[1]).Read()
	if err != nil {
		return fmt.Errorf("failed to load candidate: %w", err)
	}

	report := buildCompareReport(args[0], args[1], baseHeaders, baseRows, candHeaders, candRows)
	if report.SharedTasks == 0 {
		return fmt.Errorf("no shared tasks between %s and %s", args[0], args[1])
	}

	if compareOutputFormat == "json" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal comparison report: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}
	printCompareTable(report)
	return nil
}

// pairedTask joins the baseline and candidate rows for one task ID.
type pairedTask struct {
	base models.ResultRecord
	cand models.ResultRecord
}

// gradedScore extracts the real score of one (row, column) cell. Synthetic
// zeros written for generation failures and ungraded pairs do not count.
func gradedScore(row models.ResultRecord, scoreCol string) (float64, bool) {
	summary := row[scoreCol+"_summary"]
	if summary == "" ||
		summary == orchestration.NoRubricOrEmptyResponse ||
		strings.HasPrefix(summary, orchestration.GenerationFailedPrefix) {
		return 0, false
	}
	score, err := strconv.ParseFloat(row[scoreCol], 64)
	if err != nil {
		return 0, false
	}
	return score, true
}

func buildCompareReport(baseFile, candFile string, baseHeaders []string, baseRows []models.ResultRecord, candHeaders []string, candRows []models.ResultRecord) *compareReport {
	report := &compareReport{
		BaselineFile:  baseFile,
		CandidateFile: candFile,
	}

	candByTask := make(map[string]models.ResultRecord, len(candRows))
	for _, row := range candRows {
		candByTask[row.TaskID()] = row
	}

	inCandidate := make(map[string]bool, len(candHeaders))
	for _, h := range candHeaders {
		inCandidate[h] = true
	}
	var scoreColumns []string
	for _, h := range baseHeaders {
		if scoreColumnPattern.MatchString(h) && inCandidate[h] {
			scoreColumns = append(scoreColumns, h)
		}
	}

	var shared []pairedTask
	for _, row := range baseRows {
		if cand, ok := candByTask[row.TaskID()]; ok {
			shared = append(shared, pairedTask{base: row, cand: cand})
		}
	}
	report.SharedTasks = len(shared)

	// Per-column means over cells graded on both sides.
	for _, col := range scoreColumns {
		m := scoreColumnPattern.FindStringSubmatch(col)
		run, _ := strconv.Atoi(m[2])
		cc := columnComparison{Model: m[1], Run: run}
		var baseScores, candScores []float64
		for _, pt := range shared {
			b, okB := gradedScore(pt.base, col)
			c, okC := gradedScore(pt.cand, col)
			if okB && okC {
				baseScores = append(baseScores, b)
				candScores = append(candScores, c)
			}
		}
		cc.SharedScores = len(baseScores)
		cc.BaselineMean = metrics.Mean(baseScores)
		cc.CandidateMean = metrics.Mean(candScores)
		cc.MeanDelta = cc.CandidateMean - cc.BaselineMean
		report.Columns = append(report.Columns, cc)
	}

	// Per-task deltas across all shared columns feed the aggregate CI.
	var baseMeans, candMeans, deltas []float64
	for _, pt := range shared {
		var bs, cs []float64
		for _, col := range scoreColumns {
			b, okB := gradedScore(pt.base, col)
			c, okC := gradedScore(pt.cand, col)
			if okB && okC {
				bs = append(bs, b)
				cs = append(cs, c)
			}
		}
		if len(bs) == 0 {
			continue
		}
		bMean, cMean := metrics.Mean(bs), metrics.Mean(cs)
		baseMeans = append(baseMeans, bMean)
		candMeans = append(candMeans, cMean)
		delta := cMean - bMean
		deltas = append(deltas, delta)
		if delta < -compareThreshold {
			report.Regressions = append(report.Regressions, taskRegression{
				TaskID:         pt.base.TaskID(),
				BaselineScore:  bMean,
				CandidateScore: cMean,
				Delta:          delta,
			})
		}
	}
	report.BaselineMean = metrics.Mean(baseMeans)
	report.CandidateMean = metrics.Mean(candMeans)
	report.MeanDelta = report.CandidateMean - report.BaselineMean
	report.NormalizedGain = metrics.NormalizedGain(report.BaselineMean/100, report.CandidateMean/100)
	report.DeltaCI = metrics.BootstrapCI(deltas, 0.95)
	report.Significant = metrics.IsSignificant(report.DeltaCI)

	report.Agreement = metrics.ComputeAgreement(collectVerdictPairs(shared, scoreColumns))
	return report
}

// collectVerdictPairs pairs up per-criterion verdicts for every shared
// (task, column, criterion) whose score summaries decode as rubrics on both
// sides.
func collectVerdictPairs(shared []pairedTask, scoreColumns []string) []metrics.VerdictPair {
	var pairs []metrics.VerdictPair
	for _, pt := range shared {
		for _, col := range scoreColumns {
			baseRubric, err := rubric.Decode(pt.base[col+"_summary"])
			if err != nil {
				continue
			}
			candRubric, err := rubric.Decode(pt.cand[col+"_summary"])
			if err != nil {
				continue
			}
			for _, key := range baseRubric.Keys() {
				bCrit, ok := baseRubric.Criterion(key)
				if !ok {
					continue
				}
				cCrit, ok := candRubric.Criterion(key)
				if !ok {
					continue
				}
				bVerdict, bSet := bCrit.Autorating()
				cVerdict, cSet := cCrit.Autorating()
				if bSet && cSet {
					pairs = append(pairs, metrics.VerdictPair{Baseline: bVerdict, Candidate: cVerdict})
				}
			}
		}
	}
	return pairs
}

func printCompareTable(r *compareReport) {
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println(" COMPARISON REPORT")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println()

	fmt.Printf("  [1] %s  (baseline)\n", r.BaselineFile)
	fmt.Printf("  [2] %s  (candidate)\n", r.CandidateFile)
	fmt.Printf("  Shared tasks: %d\n", r.SharedTasks)
	fmt.Println()

	fmt.Println(strings.Repeat("-", 70))
	fmt.Println(" AGGREGATE")
	fmt.Println(strings.Repeat("-", 70))
	fmt.Printf("  %-20s  %-9s  %-9s  Delta\n", "Metric", "[1]", "[2]")
	fmt.Printf("  %-20s  %-9.2f  %-9.2f  %+.2f\n", "Mean score", r.BaselineMean, r.CandidateMean, r.MeanDelta)
	fmt.Printf("  %-20s  %+.4f\n", "Normalized gain", r.NormalizedGain)
	fmt.Printf("  %-20s  [%.2f, %.2f]", "Delta 95% CI", r.DeltaCI.Lower, r.DeltaCI.Upper)
	if r.Significant {
		fmt.Printf("  (significant)\n")
	} else {
		fmt.Printf("  (not significant)\n")
	}
	fmt.Println()

	fmt.Println(strings.Repeat("-", 70))
	fmt.Println(" PER COLUMN")
	fmt.Println(strings.Repeat("-", 70))
	fmt.Printf("  %-28s  %-3s  %-9s  %-9s  Delta\n", "Model", "Run", "[1]", "[2]")
	for _, cc := range r.Columns {
		name := cc.Model
		if len(name) > 28 {
			name = name[:25] + "..."
		}
		deltaIcon := " "
		if cc.MeanDelta > 0 {
			deltaIcon = "↑"
		} else if cc.MeanDelta < 0 {
			deltaIcon = "↓"
		}
		fmt.Printf("  %-28s  %-3d  %-9.2f  %-9.2f  %s%+.2f\n",
			name, cc.Run, cc.BaselineMean, cc.CandidateMean, deltaIcon, cc.MeanDelta)
	}
	fmt.Println()

	if len(r.Regressions) > 0 {
		fmt.Println(strings.Repeat("-", 70))
		fmt.Printf(" REGRESSIONS (delta below -%.1f)\n", compareThreshold)
		fmt.Println(strings.Repeat("-", 70))
		for _, reg := range r.Regressions {
			fmt.Printf("  ↓ %-30s  %.2f → %.2f  (%+.2f)\n", reg.TaskID, reg.BaselineScore, reg.CandidateScore, reg.Delta)
		}
		fmt.Println()
	}

	if r.Agreement != nil {
		fmt.Println(strings.Repeat("-", 70))
		fmt.Println(" JUDGE AGREEMENT (candidate vs baseline verdicts)")
		fmt.Println(strings.Repeat("-", 70))
		fmt.Printf("  Accuracy: %.4f  Precision: %.4f  Recall: %.4f  F1: %.4f\n",
			r.Agreement.Accuracy, r.Agreement.Precision, r.Agreement.Recall, r.Agreement.F1)
		fmt.Printf("  TP: %d  FP: %d  TN: %d  FN: %d\n",
			r.Agreement.TP, r.Agreement.FP, r.Agreement.TN, r.Agreement.FN)
		fmt.Println()
	}
}
