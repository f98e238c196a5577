// Package project gathers workspace context that is injected into the
// system prompt: instruction files and a shallow directory survey.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// TruncationMarker ends the context blob when it had to be cut to fit the
// budget.
const TruncationMarker = "\n[... project context truncated ...]"

// Instruction files are included verbatim, first match per name wins.
var instructionFiles = []string{"TERMITE.md", "AGENTS.md", "README.md"}

// Collect builds the project context blob for the given workspace, capped at
// maxChars characters.
func Collect(root string, maxChars int) string {
	var b strings.Builder

	entries, err := os.ReadDir(root)
	if err == nil && len(entries) > 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			name := e.Name()
			if strings.HasPrefix(name, ".") {
				continue
			}
			if e.IsDir() {
				name += "/"
			}
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteString("Top-level entries:\n")
		for _, name := range names {
			fmt.Fprintf(&b, "  %s\n", name)
		}
		b.WriteString("\n")
	}

	for _, name := range instructionFiles {
		data, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "--- %s ---\n%s\n", name, strings.TrimSpace(string(data)))
		b.WriteString("\n")
	}

	return truncate(b.String(), maxChars)
}

func truncate(s string, maxChars int) string {
	if maxChars <= 0 || len(s) <= maxChars {
		return s
	}
	cut := maxChars - len(TruncationMarker)
	if cut < 0 {
		cut = 0
	}
	// Cut on a line boundary when one is near.
	if i := strings.LastIndexByte(s[:cut], '\n'); i > cut/2 {
		cut = i
	}
	return s[:cut] + TruncationMarker
}
