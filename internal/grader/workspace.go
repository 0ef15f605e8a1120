package grader

import (
	"fmt"
	"os"
)

// createWorkspace makes the per-job scratch directory under root and
// returns it with its remover. The directory name embeds the submission
// id for debuggability, sanitized down to filename-safe characters.
func createWorkspace(root, submissionID string) (string, func(), error) {
	dir, err := os.MkdirTemp(root, "judge-"+sanitizeID(submissionID)+"-")
	if err != nil {
		return "", nil, fmt.Errorf("create workspace: %w", err)
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

// sanitizeID keeps only filename-safe characters and caps the length.
func sanitizeID(id string) string {
	const maxLen = 32
	out := make([]byte, 0, len(id))
	for i := 0; i < len(id) && len(out) < maxLen; i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return "job"
	}
	return string(out)
}
