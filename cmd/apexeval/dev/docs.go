package dev

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// LinkIssue describes a single link problem found in the docs tree.
type LinkIssue struct {
	Source string // file the link appears in, relative to the docs root
	Target string // link destination as written
	Reason string
}

// DocsReport holds the outcome of a docs link check.
type DocsReport struct {
	Files      int
	TotalLinks int
	Broken     []LinkIssue
}

func newDocsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs [dir]",
		Short: "Check markdown files for broken local links",
		Long: `Check every .md and .mdx file under a directory for local links whose
target does not exist or points at a directory instead of a file.

External URLs, mailto links, and fragment-only links are not checked.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving docs directory: %w", err)
			}

			report, err := CheckDocs(absDir)
			if err != nil {
				return err
			}

			writeDocsReport(cmd.OutOrStdout(), absDir, report)
			if len(report.Broken) > 0 {
				return fmt.Errorf("found %d broken link(s)", len(report.Broken))
			}
			return nil
		},
	}
	return cmd
}

// CheckDocs validates local links in all markdown files under dir.
func CheckDocs(dir string) (*DocsReport, error) {
	files := collectMarkdownFiles(dir)
	report := &DocsReport{Files: len(files)}

	for _, f := range files {
		relPath, err := filepath.Rel(dir, f)
		if err != nil {
			continue
		}
		relPath = filepath.ToSlash(relPath)

		source, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", relPath, err)
		}

		for _, target := range extractLinkTargets(source) {
			if shouldSkipLink(target) {
				continue
			}
			localTarget := stripFragment(target)
			if localTarget == "" {
				continue // fragment-only
			}

			report.TotalLinks++

			sourceDir := filepath.Dir(f)
			resolved := filepath.Clean(filepath.Join(sourceDir, filepath.FromSlash(localTarget)))

			info, err := os.Stat(resolved)
			if err != nil {
				report.Broken = append(report.Broken, LinkIssue{
					Source: relPath, Target: target, Reason: "target does not exist",
				})
				continue
			}
			if info.IsDir() {
				report.Broken = append(report.Broken, LinkIssue{
					Source: relPath, Target: target, Reason: "target is a directory, not a file",
				})
			}
		}
	}

	return report, nil
}

// collectMarkdownFiles walks dir and returns paths to .md and .mdx files.
func collectMarkdownFiles(dir string) []string {
	var files []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".md" || ext == ".mdx" {
			files = append(files, path)
		}
		return nil
	})
	return files
}

// extractLinkTargets parses markdown bytes and extracts link and image
// destinations, including autolinks.
func extractLinkTargets(source []byte) []string {
	md := goldmark.New()
	reader := text.NewReader(source)
	doc := md.Parser().Parse(reader)

	var targets []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Link:
			targets = append(targets, string(v.Destination))
		case *ast.Image:
			targets = append(targets, string(v.Destination))
		case *ast.AutoLink:
			target := string(v.Label(source))
			if len(v.Protocol) > 0 && !strings.HasPrefix(target, string(v.Protocol)) {
				target = string(v.Protocol) + target
			}
			targets = append(targets, target)
		}
		return ast.WalkContinue, nil
	})
	return targets
}

// shouldSkipLink returns true for targets the offline checker cannot validate.
func shouldSkipLink(target string) bool {
	return strings.HasPrefix(target, "http://") ||
		strings.HasPrefix(target, "https://") ||
		strings.HasPrefix(target, "mailto:")
}

// stripFragment removes the #fragment portion of a URL or path.
func stripFragment(target string) string {
	if idx := strings.Index(target, "#"); idx >= 0 {
		return target[:idx]
	}
	return target
}

//nolint:errcheck
func writeDocsReport(w io.Writer, dir string, r *DocsReport) {
	fmt.Fprintf(w, "Checked %d markdown file(s) in %s\n", r.Files, dir)
	fmt.Fprintf(w, "Local links: %d checked, %d broken\n", r.TotalLinks, len(r.Broken))
	for _, issue := range r.Broken {
		fmt.Fprintf(w, "  ❌ %s: %s (%s)\n", issue.Source, issue.Target, issue.Reason)
	}
}
