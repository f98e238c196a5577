package tools

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ResolvePath resolves a user-supplied path against the workspace root and
// rejects anything that escapes it. Relative paths are interpreted against
// the root; absolute paths must already lie inside it. The returned path is
// absolute and cleaned.
func ResolvePath(workspaceRoot, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path must not be empty")
	}

	root, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return "", fmt.Errorf("resolve workspace root: %w", err)
	}

	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, abs)
	}
	abs = filepath.Clean(abs)

	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", fmt.Errorf("path %q is outside the workspace", path)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside the workspace", path)
	}
	return abs, nil
}
