// Package attachment resolves newline-delimited relative file references
// into addressable handles for the generation engines.
package attachment

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex-evals/apexeval/internal/models"
)

// Split breaks a newline-delimited reference list into trimmed entries,
// dropping blanks.
func Split(refs string) []string {
	var out []string
	for _, ref := range strings.Split(strings.TrimSpace(refs), "\n") {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		out = append(out, ref)
	}
	return out
}

// Resolve turns a newline-delimited list of relative paths into attachments
// rooted at baseDir. Blank entries are skipped. Entries that do not exist on
// disk are logged and omitted; they never fail the task. Input order is
// preserved in the output.
func Resolve(refs string, baseDir string) []models.Attachment {
	var attachments []models.Attachment
	for _, ref := range Split(refs) {
		fullPath := filepath.Join(baseDir, ref)
		if _, err := os.Stat(fullPath); err != nil {
			slog.Warn("attachment not found, skipping", "path", fullPath)
			continue
		}
		absPath, err := filepath.Abs(fullPath)
		if err != nil {
			slog.Warn("attachment path could not be resolved, skipping", "path", fullPath, "error", err)
			continue
		}
		attachments = append(attachments, models.Attachment{
			Filename: filepath.Base(absPath),
			URL:      "file://" + absPath,
		})
	}
	return attachments
}

// Missing returns the references in refs that do not resolve to a file
// under baseDir. Unlike Resolve it reports rather than skips, so callers
// can surface dataset problems before a run.
func Missing(refs string, baseDir string) []string {
	var missing []string
	for _, ref := range Split(refs) {
		if _, err := os.Stat(filepath.Join(baseDir, ref)); err != nil {
			missing = append(missing, ref)
		}
	}
	return missing
}
