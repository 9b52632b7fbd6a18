// Package reporting summarizes results files and converts them into
// formats CI systems ingest.
package reporting

import (
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/apex-evals/apexeval/internal/models"
	"github.com/apex-evals/apexeval/internal/orchestration"
	"github.com/apex-evals/apexeval/internal/rubric"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one (model, run) column group.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one task cell.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitFailure reports a graded response that missed rubric criteria.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitError reports a pair whose generation never produced a response.
type JUnitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitSkipped marks a pair that had nothing to grade.
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// scoreColumn matches result score columns: <sanitized model>_<run>_score.
var scoreColumn = regexp.MustCompile(`^(.+)_(\d+)_score$`)

// ConvertToJUnit maps a results file onto JUnit XML: one testsuite per
// (model, run) column group and one testcase per task. A pair whose
// generation failed becomes an error, a pair with nothing to grade becomes
// a skip, and a graded pair fails when the judge marked any rubric
// criterion false. The CSV does not carry per-pair durations, so all time
// attributes are zero.
func ConvertToJUnit(file string, headers []string, rows []models.ResultRecord) *JUnitTestSuites {
	suites := &JUnitTestSuites{}
	timestamp := time.Now().UTC().Format(time.RFC3339)

	for _, header := range headers {
		m := scoreColumn.FindStringSubmatch(header)
		if m == nil {
			continue
		}
		model, runText := m[1], m[2]

		suite := JUnitTestSuite{
			Name:      fmt.Sprintf("%s run %s", model, runText),
			Tests:     len(rows),
			Timestamp: timestamp,
		}

		var sum float64
		var graded int
		for _, row := range rows {
			tc := convertCell(model, header, row)
			switch {
			case tc.Error != nil:
				suite.Errors++
			case tc.Skipped != nil:
				suite.Skipped++
			default:
				score, _ := strconv.ParseFloat(row[header], 64)
				sum += score
				graded++
				if tc.Failure != nil {
					suite.Failures++
				}
			}
			suite.TestCases = append(suite.TestCases, tc)
		}

		suite.Properties = []JUnitProperty{
			{Name: "file", Value: file},
			{Name: "model", Value: model},
			{Name: "run", Value: runText},
		}
		if graded > 0 {
			suite.Properties = append(suite.Properties, JUnitProperty{
				Name: "mean_score", Value: fmt.Sprintf("%.4f", sum/float64(graded)),
			})
		}

		suites.Tests += suite.Tests
		suites.Failures += suite.Failures
		suites.Errors += suite.Errors
		suites.TestSuites = append(suites.TestSuites, suite)
	}

	return suites
}

func convertCell(model, scoreCol string, row models.ResultRecord) JUnitTestCase {
	tc := JUnitTestCase{
		Name:      row.TaskID(),
		Classname: model,
	}

	summary := row[scoreCol+"_summary"]
	switch {
	case strings.HasPrefix(summary, orchestration.GenerationFailedPrefix):
		tc.Error = &JUnitError{
			Message: strings.TrimPrefix(summary, orchestration.GenerationFailedPrefix),
			Type:    "GenerationFailure",
		}
	case summary == orchestration.NoRubricOrEmptyResponse || summary == "":
		tc.Skipped = &JUnitSkipped{Message: summary}
	default:
		score, err := strconv.ParseFloat(row[scoreCol], 64)
		if err != nil {
			tc.Skipped = &JUnitSkipped{Message: "score cell is not numeric"}
			break
		}
		if details := formatFailedCriteria(summary); details != "" {
			tc.Failure = &JUnitFailure{
				Message: fmt.Sprintf("%s: score=%.2f", row.TaskID(), score),
				Type:    "RubricFailure",
				Body:    details,
			}
		}
	}

	return tc
}

// formatFailedCriteria lists the criteria the judge marked false, one line
// per criterion in rubric order. Returns "" when the summary is not a
// graded rubric or every criterion passed.
func formatFailedCriteria(summary string) string {
	rb, err := rubric.Decode(summary)
	if err != nil {
		return ""
	}

	var lines []string
	for _, key := range rb.Keys() {
		crit, ok := rb.Criterion(key)
		if !ok {
			continue
		}
		verdict, rated := crit.Autorating()
		if !rated || verdict {
			continue
		}
		line := fmt.Sprintf("[FAIL] %s: %s", key, crit.Description())
		if reason, ok := crit.Reason(); ok && reason != "" {
			line += " (" + reason + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// WriteJUnit writes the suites as indented JUnit XML.
func WriteJUnit(w io.Writer, suites *JUnitTestSuites) error {
	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}
