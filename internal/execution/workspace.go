package execution

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex-evals/apexeval/internal/models"
)

// stageAttachments copies attachment files into workspaceDir with path-traversal
// protection on the attachment names.
func stageAttachments(workspaceDir string, attachments []models.Attachment) error {
	baseWorkspace := filepath.Clean(workspaceDir)
	if baseWorkspace == "" {
		return fmt.Errorf("workspace is not set")
	}

	baseWithSep := baseWorkspace + string(os.PathSeparator)

	for _, att := range attachments {
		if att.Filename == "" {
			continue
		}

		relPath := filepath.Clean(att.Filename)

		if filepath.IsAbs(relPath) {
			return fmt.Errorf("attachment name %q must be relative", att.Filename)
		}

		fullPath := filepath.Join(baseWorkspace, relPath)

		fullPathClean := filepath.Clean(fullPath)
		fullWithSep := fullPathClean + string(os.PathSeparator)

		if !strings.HasPrefix(fullWithSep, baseWithSep) {
			return fmt.Errorf("attachment name %q escapes workspace", att.Filename)
		}

		dir := filepath.Dir(fullPathClean)

		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory for attachment %q: %w", att.Filename, err)
		}

		if err := copyAttachment(fullPathClean, att); err != nil {
			return fmt.Errorf("staging attachment %q: %w", att.Filename, err)
		}
	}

	return nil
}

func copyAttachment(dst string, att models.Attachment) error {
	src, err := os.Open(strings.TrimPrefix(att.URL, "file://"))
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
